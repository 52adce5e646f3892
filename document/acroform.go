// seehuhn.de/go/pdfedit - a library for editing PDF files
// Copyright (C) 2025  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.


package document

import (
	"fmt"

	pdf "seehuhn.de/go/pdfedit"
)

// PDF 2.0 sections: 12.7.3

// AcroForm gives access to the interactive form dictionary of a document.
// Only the dictionary itself is managed here; the form fields are plain
// objects.
type AcroForm struct {
	obj  *pdf.Object
	dict *pdf.Dict
}

// AcroForm returns the interactive form dictionary, or nil if the document
// has no form.
func (doc *Document) AcroForm() (*AcroForm, error) {
	if doc.acroForm != nil {
		return doc.acroForm, nil
	}
	obj := doc.catalogDict().Find("AcroForm")
	if obj == nil || obj.IsNull() {
		return nil, nil
	}
	dict, err := obj.GetDict()
	if err != nil {
		return nil, pdf.Wrap(fmt.Errorf("interactive form: %w", err), "/AcroForm")
	}
	doc.acroForm = &AcroForm{obj: obj, dict: dict}
	return doc.acroForm, nil
}

// GetOrCreateAcroForm returns the interactive form dictionary.  If the
// document has no form, an empty one is created.
func (doc *Document) GetOrCreateAcroForm() (*AcroForm, error) {
	form, err := doc.AcroForm()
	if err != nil || form != nil {
		return form, err
	}
	obj := doc.list.CreateObject(pdf.NewDict(
		pdf.Entry{Key: "Fields", Value: pdf.NewArray()},
	))
	err = doc.catalogDict().SetIndirect("AcroForm", obj)
	if err != nil {
		doc.list.Delete(obj.Reference())
		return nil, err
	}
	dict, _ := obj.GetDict()
	doc.acroForm = &AcroForm{obj: obj, dict: dict}
	return doc.acroForm, nil
}

// Object returns the interactive form dictionary.
func (f *AcroForm) Object() *pdf.Object {
	return f.obj
}

// Fields returns the root fields of the form.  Entries which cannot be
// resolved are skipped.
func (f *AcroForm) Fields() []*pdf.Object {
	fields := f.dict.FindArray("Fields")
	var res []*pdf.Object
	for i := 0; i < fields.Len(); i++ {
		if field := fields.Find(i); field != nil && !field.IsNull() {
			res = append(res, field)
		}
	}
	return res
}

// AddField appends a field dictionary to the list of root fields.
func (f *AcroForm) AddField(field *pdf.Object) error {
	if _, err := field.GetDict(); err != nil {
		return err
	}
	fields := f.dict.FindArray("Fields")
	if fields == nil {
		err := f.dict.Set("Fields", pdf.NewArray())
		if err != nil {
			return err
		}
		fields = f.dict.FindArray("Fields")
	}
	return fields.AppendIndirect(field)
}

// NeedAppearances reports whether viewers should construct appearance
// streams for the form fields.
func (f *AcroForm) NeedAppearances() bool {
	b, _ := f.dict.FindBool("NeedAppearances")
	return bool(b)
}

// SetNeedAppearances sets the /NeedAppearances flag.
func (f *AcroForm) SetNeedAppearances(need bool) error {
	if !need {
		return f.dict.Remove("NeedAppearances")
	}
	return f.dict.Set("NeedAppearances", pdf.Bool(true))
}
