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

package pagetree

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"seehuhn.de/go/geom/rect"

	pdf "seehuhn.de/go/pdfedit"
)

// inheritable lists the page attributes which can be inherited from
// ancestor nodes of the page tree.
var inheritable = []pdf.Name{"Resources", "MediaBox", "CropBox", "Rotate"}

func isInheritable(key pdf.Name) bool {
	for _, k := range inheritable {
		if k == key {
			return true
		}
	}
	return false
}

// Page is a view of one page dictionary.
//
// Pages which are part of a [Collection] remember the dictionaries of
// their ancestor nodes at the time the page tree was read, and use these
// to look up inherited attributes.  For pages outside a collection, the
// /Parent chain is followed instead.
type Page struct {
	obj  *pdf.Object
	coll *Collection

	// ancestors holds the dictionaries of the enclosing /Pages nodes,
	// outermost first.
	ancestors []*pdf.Dict

	index int
}

// FromObject returns a page view for a page dictionary which is not
// accessed through a page collection.
func FromObject(obj *pdf.Object) (*Page, error) {
	dict, err := obj.GetDict()
	if err != nil {
		return nil, err
	}
	if typ, ok := dict.FindName("Type"); ok && typ != "Page" {
		return nil, fmt.Errorf("object of type /%s is not a page: %w",
			typ, pdf.ErrInvalidDataType)
	}
	return &Page{obj: obj, index: -1}, nil
}

// Object returns the page dictionary.
func (p *Page) Object() *pdf.Object {
	return p.obj
}

// Reference returns the reference of the page dictionary.
func (p *Page) Reference() pdf.Reference {
	return p.obj.Reference()
}

// Index returns the 0-based index of the page within its collection,
// or -1 if the page has been removed.
func (p *Page) Index() int {
	return p.index
}

// PageNumber returns the 1-based page number.
func (p *Page) PageNumber() int {
	return p.index + 1
}

// MoveTo moves the page to index i.  See [Collection.TryMovePageTo].
func (p *Page) MoveTo(i int) bool {
	if p.coll == nil {
		return false
	}
	return p.coll.TryMovePageTo(p.index, i)
}

func (p *Page) detach() {
	p.coll = nil
	p.ancestors = nil
	p.index = -1
}

func (p *Page) dict() (*pdf.Dict, error) {
	return p.obj.GetDict()
}

// Inherited returns the value of a page attribute.  For the inheritable
// attributes /Resources, /MediaBox, /CropBox and /Rotate, the ancestors
// of the page are searched if the page dictionary has no entry for key.
// The result is nil if the attribute is not set.
func (p *Page) Inherited(key pdf.Name) (*pdf.Object, error) {
	dict, err := p.dict()
	if err != nil {
		return nil, err
	}
	if obj := dict.Find(key); obj != nil {
		return obj, nil
	}
	if !isInheritable(key) {
		return nil, nil
	}

	if p.ancestors != nil {
		for i := len(p.ancestors) - 1; i >= 0; i-- {
			if obj := p.ancestors[i].Find(key); obj != nil {
				return obj, nil
			}
		}
		return nil, nil
	}

	obj, err := dict.MustFindParent(key)
	if errors.Is(err, pdf.ErrNoObject) {
		return nil, nil
	}
	return obj, err
}

// valueOf returns the value to store when obj is copied into another
// dictionary.  Indirect objects are stored by reference.
func valueOf(obj *pdf.Object) pdf.Value {
	if obj.IsIndirect() {
		return obj.Reference()
	}
	return obj.Value()
}

// FlattenInherited copies all inherited attributes into the page
// dictionary.
func (p *Page) FlattenInherited() error {
	dict, err := p.dict()
	if err != nil {
		return err
	}
	values := make(map[pdf.Name]pdf.Value)
	for _, key := range inheritable {
		if dict.Has(key) {
			continue
		}
		obj, err := p.Inherited(key)
		if err != nil {
			return err
		}
		if obj != nil {
			values[key] = valueOf(obj)
		}
	}
	if len(values) == 0 {
		return nil
	}
	err = p.obj.AssertMutable()
	if err != nil {
		return err
	}
	for _, key := range inheritable {
		if v, ok := values[key]; ok {
			dict.Set(key, v)
		}
	}
	return nil
}

// copyInherited copies key from the nearest ancestor other than root into
// the page dictionary, if the page does not define key itself.
func (p *Page) copyInherited(key pdf.Name, root *pdf.Dict) {
	dict := p.obj.Value().(*pdf.Dict)
	if dict.Has(key) {
		return
	}
	for i := len(p.ancestors) - 1; i >= 0; i-- {
		anc := p.ancestors[i]
		if anc == root {
			return
		}
		if obj := anc.Find(key); obj != nil {
			dict.Set(key, valueOf(obj))
			return
		}
	}
}

// MediaBox returns the boundaries of the physical medium of the page.
func (p *Page) MediaBox() (rect.Rect, error) {
	r, ok, err := p.getBox("MediaBox")
	if err != nil {
		return rect.Rect{}, err
	}
	if !ok {
		return rect.Rect{}, fmt.Errorf("page %d: /MediaBox: %w",
			p.PageNumber(), pdf.ErrNoObject)
	}
	return r, nil
}

// CropBox returns the visible region of the page.  If no crop box is set,
// the media box is used.
func (p *Page) CropBox() (rect.Rect, error) {
	r, ok, err := p.getBox("CropBox")
	if err != nil || ok {
		return r, err
	}
	return p.MediaBox()
}

// TrimBox returns the intended dimensions of the finished page.  If no trim
// box is set, the crop box is used.
func (p *Page) TrimBox() (rect.Rect, error) {
	return p.cropBoxDefault("TrimBox")
}

// BleedBox returns the clipping region for production output.  If no bleed
// box is set, the crop box is used.
func (p *Page) BleedBox() (rect.Rect, error) {
	return p.cropBoxDefault("BleedBox")
}

// ArtBox returns the extent of the meaningful content of the page.  If no
// art box is set, the crop box is used.
func (p *Page) ArtBox() (rect.Rect, error) {
	return p.cropBoxDefault("ArtBox")
}

func (p *Page) cropBoxDefault(key pdf.Name) (rect.Rect, error) {
	r, ok, err := p.getBox(key)
	if err != nil || ok {
		return r, err
	}
	return p.CropBox()
}

// getBox reads a rectangle.  Malformed rectangles are treated as missing.
func (p *Page) getBox(key pdf.Name) (rect.Rect, bool, error) {
	obj, err := p.Inherited(key)
	if err != nil || obj == nil {
		return rect.Rect{}, false, err
	}
	r, err := pdf.GetRectangle(obj)
	if err != nil {
		p.logger().Warn("ignoring malformed page box",
			"page", p.obj.Reference(), "key", key, "error", err)
		return rect.Rect{}, false, nil
	}
	return r, true, nil
}

// Rect returns the named page box.  If rotated is true and the page is
// rotated by 90 or 270 degrees, width and height are swapped.
func (p *Page) Rect(box pdf.Name, rotated bool) (rect.Rect, error) {
	var r rect.Rect
	var err error
	switch box {
	case "MediaBox":
		r, err = p.MediaBox()
	case "CropBox":
		r, err = p.CropBox()
	case "TrimBox", "BleedBox", "ArtBox":
		r, err = p.cropBoxDefault(box)
	default:
		return rect.Rect{}, fmt.Errorf("unknown page box /%s: %w",
			box, pdf.ErrOutOfRange)
	}
	if err != nil || !rotated {
		return r, err
	}

	rot, err := p.Rotation()
	if err != nil {
		return rect.Rect{}, err
	}
	if rot == 90 || rot == 270 {
		r = rect.Rect{LLx: r.LLy, LLy: r.LLx, URx: r.URy, URy: r.URx}
	}
	return r, nil
}

// SetMediaBox sets the /MediaBox of the page.
func (p *Page) SetMediaBox(r rect.Rect) error { return p.setBox("MediaBox", r) }

// SetCropBox sets the /CropBox of the page.
func (p *Page) SetCropBox(r rect.Rect) error { return p.setBox("CropBox", r) }

// SetTrimBox sets the /TrimBox of the page.
func (p *Page) SetTrimBox(r rect.Rect) error { return p.setBox("TrimBox", r) }

// SetBleedBox sets the /BleedBox of the page.
func (p *Page) SetBleedBox(r rect.Rect) error { return p.setBox("BleedBox", r) }

// SetArtBox sets the /ArtBox of the page.
func (p *Page) SetArtBox(r rect.Rect) error { return p.setBox("ArtBox", r) }

func (p *Page) setBox(key pdf.Name, r rect.Rect) error {
	dict, err := p.dict()
	if err != nil {
		return err
	}
	return dict.Set(key, pdf.RectangleArray(r))
}

// Rotation returns the clockwise rotation of the page in degrees, as one
// of 0, 90, 180 or 270.  Values which are not multiples of 90 are rounded
// to the closest multiple.
func (p *Page) Rotation() (int, error) {
	obj, err := p.Inherited("Rotate")
	if err != nil || obj == nil {
		return 0, err
	}
	x, ok := obj.TryGetNumber()
	if !ok {
		p.logger().Warn("ignoring malformed /Rotate", "page", p.obj.Reference())
		return 0, nil
	}
	x = math.Mod(x, 360)
	if x < 0 {
		x += 360
	}
	return int(math.Round(x/90)) * 90 % 360, nil
}

// SetRotation sets the clockwise rotation of the page.  The angle must be
// a multiple of 90.
func (p *Page) SetRotation(degrees int) error {
	if degrees%90 != 0 {
		return fmt.Errorf("rotation %d: %w", degrees, pdf.ErrOutOfRange)
	}
	dict, err := p.dict()
	if err != nil {
		return err
	}
	degrees %= 360
	if degrees < 0 {
		degrees += 360
	}
	return dict.Set("Rotate", pdf.Integer(degrees))
}

// Resources returns the resource dictionary of the page, or nil if there
// is none.
func (p *Page) Resources() (*pdf.Dict, error) {
	obj, err := p.Inherited("Resources")
	if err != nil {
		return nil, err
	}
	res, _ := obj.TryGetDict()
	return res, nil
}

// GetOrCreateResources returns the resource dictionary stored in the page
// dictionary.  Inherited resources are copied into the page dictionary,
// and an empty dictionary is created if the page has no resources.
func (p *Page) GetOrCreateResources() (*pdf.Dict, error) {
	dict, err := p.dict()
	if err != nil {
		return nil, err
	}
	if res := dict.FindDict("Resources"); res != nil {
		return res, nil
	}

	obj, err := p.Inherited("Resources")
	if err != nil {
		return nil, err
	}
	var v pdf.Value = pdf.NewDict()
	if _, isDict := obj.TryGetDict(); isDict {
		v = valueOf(obj)
	}
	err = dict.Set("Resources", v)
	if err != nil {
		return nil, err
	}
	return dict.FindDict("Resources"), nil
}

// Contents returns the content streams of the page, in order.
func (p *Page) Contents() ([]*pdf.Object, error) {
	dict, err := p.dict()
	if err != nil {
		return nil, err
	}
	contents := dict.Find("Contents")
	if contents == nil {
		return nil, nil
	}
	if err := contents.DelayedLoad(); err != nil {
		return nil, err
	}

	a, isArray := contents.TryGetArray()
	if !isArray {
		if !contents.HasStream() {
			return nil, pdf.Errorf("page %d: /Contents is not a stream", p.PageNumber())
		}
		return []*pdf.Object{contents}, nil
	}
	res := make([]*pdf.Object, 0, a.Len())
	for i := 0; i < a.Len(); i++ {
		obj := a.Find(i)
		if obj == nil || !obj.HasStream() {
			p.logger().Warn("skipping invalid content stream",
				"page", p.obj.Reference(), "index", i)
			continue
		}
		res = append(res, obj)
	}
	return res, nil
}

// AddContents appends a new content stream with the given data to the
// page.  The data is compressed.
func (p *Page) AddContents(data []byte) (*pdf.Object, error) {
	dict, err := p.dict()
	if err != nil {
		return nil, err
	}
	err = p.obj.AssertMutable()
	if err != nil {
		return nil, err
	}
	list := p.obj.Owner()
	if list == nil {
		return nil, fmt.Errorf("page without document: %w", pdf.ErrInvalidHandle)
	}

	contents := dict.Find("Contents")
	a, isArray := contents.TryGetArray()
	if isArray {
		if err := contents.AssertMutable(); err != nil {
			return nil, err
		}
	}

	stmObj := list.CreateDict("")
	stm, err := stmObj.GetOrCreateStream()
	if err != nil {
		return nil, err
	}
	err = stm.SetData(data, "FlateDecode")
	if err != nil {
		list.Delete(stmObj.Reference())
		return nil, err
	}

	switch {
	case contents == nil:
		err = dict.SetIndirect("Contents", stmObj)
	case isArray:
		err = a.AppendIndirect(stmObj)
	default:
		err = dict.Set("Contents", pdf.NewArray(valueOf(contents), stmObj.Reference()))
	}
	if err != nil {
		return nil, err
	}
	return stmObj, nil
}

func (p *Page) logger() *slog.Logger {
	if p.coll != nil {
		return p.coll.log
	}
	if list := p.obj.Owner(); list != nil {
		return list.Logger()
	}
	return discardLogger()
}
