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
	"time"

	pdf "seehuhn.de/go/pdfedit"
)

// PDF 2.0 sections: 14.3.3

// Info gives access to the document information dictionary.
//
// Setting a text field to the empty string removes the entry.
type Info struct {
	obj  *pdf.Object
	dict *pdf.Dict
}

var standardInfoKeys = map[pdf.Name]bool{
	"Title": true, "Author": true, "Subject": true, "Keywords": true,
	"Creator": true, "Producer": true, "CreationDate": true, "ModDate": true,
	"Trapped": true,
}

// Info returns the document information dictionary, or nil if the
// document has none.
func (doc *Document) Info() (*Info, error) {
	if doc.info != nil {
		return doc.info, nil
	}
	obj := doc.trailerDict().Find("Info")
	if obj == nil || obj.IsNull() {
		return nil, nil
	}
	dict, err := obj.GetDict()
	if err != nil {
		return nil, pdf.Wrap(fmt.Errorf("document information: %w", err), "/Info")
	}
	doc.info = &Info{obj: obj, dict: dict}
	return doc.info, nil
}

// GetOrCreateInfo returns the document information dictionary.  If the
// document has none, an empty one is created.
func (doc *Document) GetOrCreateInfo() (*Info, error) {
	info, err := doc.Info()
	if err != nil || info != nil {
		return info, err
	}
	obj := doc.list.CreateDict("")
	err = doc.trailerDict().SetIndirect("Info", obj)
	if err != nil {
		doc.list.Delete(obj.Reference())
		return nil, err
	}
	dict, _ := obj.GetDict()
	doc.info = &Info{obj: obj, dict: dict}
	return doc.info, nil
}

// Object returns the information dictionary.
func (info *Info) Object() *pdf.Object {
	return info.obj
}

func (info *Info) text(key pdf.Name) string {
	s, _ := info.dict.FindString(key)
	return s.AsTextString()
}

func (info *Info) setText(key pdf.Name, s string) error {
	if s == "" {
		return info.dict.Remove(key)
	}
	return info.dict.Set(key, pdf.TextString(s))
}

// Title returns the document's title.
func (info *Info) Title() string { return info.text("Title") }

// SetTitle sets the document's title.
func (info *Info) SetTitle(s string) error { return info.setText("Title", s) }

// Author returns the name of the person who created the document.
func (info *Info) Author() string { return info.text("Author") }

// SetAuthor sets the name of the person who created the document.
func (info *Info) SetAuthor(s string) error { return info.setText("Author", s) }

// Subject returns the subject of the document.
func (info *Info) Subject() string { return info.text("Subject") }

// SetSubject sets the subject of the document.
func (info *Info) SetSubject(s string) error { return info.setText("Subject", s) }

// Keywords returns the keywords associated with the document.
func (info *Info) Keywords() string { return info.text("Keywords") }

// SetKeywords sets the keywords associated with the document.
func (info *Info) SetKeywords(s string) error { return info.setText("Keywords", s) }

// Creator returns the name of the application which created the original
// document, if the document was converted to PDF from another format.
func (info *Info) Creator() string { return info.text("Creator") }

// SetCreator sets the name of the application which created the original
// document.
func (info *Info) SetCreator(s string) error { return info.setText("Creator", s) }

// Producer returns the name of the application which converted the
// document to PDF.
func (info *Info) Producer() string { return info.text("Producer") }

// SetProducer sets the name of the application which converted the
// document to PDF.
func (info *Info) SetProducer(s string) error { return info.setText("Producer", s) }

func (info *Info) date(key pdf.Name) (time.Time, bool) {
	s, ok := info.dict.FindString(key)
	if !ok {
		return time.Time{}, false
	}
	t, err := s.AsDate()
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (info *Info) setDate(key pdf.Name, t time.Time) error {
	if t.IsZero() {
		return info.dict.Remove(key)
	}
	return info.dict.Set(key, pdf.Date(t))
}

// CreationDate returns the date and time the document was created.
// The second return value is false if the date is missing or malformed.
func (info *Info) CreationDate() (time.Time, bool) { return info.date("CreationDate") }

// SetCreationDate sets the date and time the document was created.
// The zero time removes the entry.
func (info *Info) SetCreationDate(t time.Time) error { return info.setDate("CreationDate", t) }

// ModDate returns the date and time the document was most recently
// modified.
func (info *Info) ModDate() (time.Time, bool) { return info.date("ModDate") }

// SetModDate sets the date and time the document was most recently
// modified.  The zero time removes the entry.
func (info *Info) SetModDate(t time.Time) error { return info.setDate("ModDate", t) }

// Trapped returns whether the document has been modified to include
// trapping information.  The result is one of /True, /False and /Unknown.
func (info *Info) Trapped() pdf.Name {
	if v, ok := info.dict.FindName("Trapped"); ok && (v == "True" || v == "False") {
		return v
	}
	if b, ok := info.dict.FindBool("Trapped"); ok {
		// PDF 1.3 used booleans here
		if b {
			return "True"
		}
		return "False"
	}
	return "Unknown"
}

// SetTrapped sets the trapping status.  The value must be one of /True,
// /False and /Unknown.
func (info *Info) SetTrapped(v pdf.Name) error {
	switch v {
	case "True", "False":
		return info.dict.Set("Trapped", v)
	case "Unknown":
		return info.dict.Remove("Trapped")
	}
	return fmt.Errorf("%w: /Trapped must be /True, /False or /Unknown, not /%s",
		pdf.ErrInvalidDataType, v)
}

// Custom returns the value of a non-standard text entry.
func (info *Info) Custom(key pdf.Name) (string, bool) {
	s, ok := info.dict.FindString(key)
	return s.AsTextString(), ok
}

// SetCustom sets a non-standard text entry.  The empty string removes the
// entry.
func (info *Info) SetCustom(key pdf.Name, value string) error {
	if standardInfoKeys[key] {
		return fmt.Errorf("%w: /%s is a standard entry", pdf.ErrInvalidDataType, key)
	}
	return info.setText(key, value)
}

// CustomKeys returns the keys of all non-standard entries.
func (info *Info) CustomKeys() []pdf.Name {
	var res []pdf.Name
	for _, key := range info.dict.Keys() {
		if !standardInfoKeys[key] {
			res = append(res, key)
		}
	}
	return res
}
