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
	"seehuhn.de/go/pdfedit/outline"
	"seehuhn.de/go/pdfedit/pagetree"
)

// inheritedKeys lists the page attributes which may be inherited from the
// page tree.  Copied pages get explicit values for these.
var inheritedKeys = []pdf.Name{"Resources", "MediaBox", "CropBox", "Rotate"}

// AppendDocument appends all pages of src to doc.  The outline of src, if
// any, is appended to the outline of doc.
func (doc *Document) AppendDocument(src *Document) error {
	srcPages, err := src.Pages()
	if err != nil {
		return err
	}
	n, err := srcPages.Count()
	if err != nil {
		return err
	}
	dstPages, err := doc.Pages()
	if err != nil {
		return err
	}
	at, err := dstPages.Count()
	if err != nil {
		return err
	}
	c, err := doc.insertPages(src, 0, n, at)
	if err != nil {
		return err
	}
	return doc.appendOutline(src, c)
}

// AppendDocumentPages appends n pages of src, starting with the page at
// index first, to doc.
func (doc *Document) AppendDocumentPages(src *Document, first, n int) error {
	dstPages, err := doc.Pages()
	if err != nil {
		return err
	}
	at, err := dstPages.Count()
	if err != nil {
		return err
	}
	_, err = doc.insertPages(src, first, n, at)
	return err
}

// InsertDocumentPageAt copies the page with index srcIndex of src into doc,
// so that it gets index atIndex.
func (doc *Document) InsertDocumentPageAt(src *Document, srcIndex, atIndex int) error {
	_, err := doc.insertPages(src, srcIndex, 1, atIndex)
	return err
}

// insertPages copies the pages first, ..., first+n-1 of src into doc and
// inserts them at index at.  The /Parent entries of the source pages are
// not followed.  References from the copied objects to other pages of src,
// and to the page tree of src, are replaced by null.
func (doc *Document) insertPages(src *Document, first, n, at int) (*pdf.Copier, error) {
	if src == doc || src.list == doc.list {
		return nil, fmt.Errorf("%w: cannot copy pages within one document", pdf.ErrInvalidHandle)
	}
	srcPages, err := src.Pages()
	if err != nil {
		return nil, err
	}
	all, err := srcPages.Pages()
	if err != nil {
		return nil, err
	}
	if first < 0 || n < 0 || first+n > len(all) {
		return nil, fmt.Errorf("pages %d to %d of %d: %w", first, first+n-1, len(all), pdf.ErrOutOfRange)
	}
	dstPages, err := doc.Pages()
	if err != nil {
		return nil, err
	}
	dstCount, err := dstPages.Count()
	if err != nil {
		return nil, err
	}
	if at < 0 || at > dstCount {
		return nil, fmt.Errorf("insert at %d, %d pages: %w", at, dstCount, pdf.ErrOutOfRange)
	}
	err = dstPages.Root().AssertMutable()
	if err != nil {
		return nil, err
	}

	c := pdf.NewCopier(doc.list, src.list)
	c.Exclude(srcPages.Root().Reference())
	selected := all[first : first+n]
	for i, p := range all {
		if i < first || i >= first+n {
			c.Exclude(p.Reference())
		}
		if dict, err := p.Object().GetDict(); err == nil {
			if parent, ok := dict.Get("Parent").TryGetReference(); ok {
				c.Exclude(parent)
			}
		}
	}

	// Allocate all targets first, so that links between the copied pages
	// are translated.
	targets := make([]*pdf.Object, n)
	for i, p := range selected {
		targets[i] = doc.list.CreateObject(nil)
		c.Redirect(p.Reference(), targets[i].Reference())
	}

	rootRotate := dstPages.Root().Value().(*pdf.Dict).Has("Rotate")
	for i, p := range selected {
		err := c.CopyInto(targets[i], p.Object(), "Parent")
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", first+i, err)
		}
		err = materialise(c, p, targets[i], rootRotate)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", first+i, err)
		}
	}

	err = dstPages.InsertPagesAt(at, targets...)
	if err != nil {
		return nil, err
	}
	doc.log.Debug("pages copied", "count", n, "at", at)
	return c, nil
}

// materialise stores the inherited attributes of the source page p in the
// copied page dictionary.
func materialise(c *pdf.Copier, p *pagetree.Page, target *pdf.Object, rootRotate bool) error {
	dict, err := target.GetDict()
	if err != nil {
		return err
	}
	for _, key := range inheritedKeys {
		if dict.Has(key) {
			continue
		}
		obj, err := p.Inherited(key)
		if err != nil {
			return err
		}
		if obj == nil {
			continue
		}
		var v pdf.Value
		if obj.IsIndirect() {
			v, err = c.Copy(obj.Reference())
		} else {
			v, err = c.Copy(obj.Value())
		}
		if err != nil {
			return err
		}
		if v != nil {
			dict.Set(key, v)
		}
	}
	if rootRotate && !dict.Has("Rotate") {
		// do not pick up the rotation of the target tree
		dict.Set("Rotate", pdf.Integer(0))
	}
	return nil
}

// appendOutline copies the outline items of src to the end of the outline
// of doc.  Destinations are translated using c; items pointing to pages
// which were not copied lose their destination.
func (doc *Document) appendOutline(src *Document, c *pdf.Copier) error {
	srcOutline, err := src.Outlines()
	if err != nil || srcOutline == nil {
		return err
	}
	items, err := srcOutline.Children()
	if err != nil || len(items) == 0 {
		return err
	}
	dstOutline, err := doc.GetOrCreateOutlines()
	if err != nil {
		return err
	}
	return copyItems(c, dstOutline, items, 0)
}

type childCreator interface {
	CreateChild(title string, target outline.Target) (*outline.Item, error)
}

func copyItems(c *pdf.Copier, parent childCreator, items []*outline.Item, depth int) error {
	if depth > pdf.MaxDepth {
		return pdf.Errorf("outline nested too deeply")
	}
	for _, item := range items {
		target, err := item.Target()
		if err != nil {
			return err
		}
		target, err = translateTarget(c, target)
		if err != nil {
			return err
		}
		out, err := parent.CreateChild(item.Title(), target)
		if err != nil {
			return err
		}
		children, err := item.Children()
		if err != nil {
			return err
		}
		err = copyItems(c, out, children, depth+1)
		if err != nil {
			return err
		}
		if item.IsOpen() {
			err = out.SetOpen(true)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func translateTarget(c *pdf.Copier, target outline.Target) (outline.Target, error) {
	switch t := target.(type) {
	case outline.TargetDestination:
		if t.Named != "" {
			return t, nil
		}
		page, err := c.Copy(t.Page)
		if err != nil {
			return nil, err
		}
		ref, ok := page.(pdf.Reference)
		if !ok {
			return outline.TargetNone{}, nil
		}
		t.Page = ref
		return t, nil
	case outline.TargetAction:
		action, err := c.CopyDict(t.Action, nil)
		if err != nil {
			return nil, err
		}
		return outline.TargetAction{Action: action}, nil
	}
	return target, nil
}
