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
	"testing"

	"seehuhn.de/go/geom/rect"

	pdf "seehuhn.de/go/pdfedit"
)

func TestBoxFallback(t *testing.T) {
	tree := newTestTree(t)
	c := tree.open(t)

	// page 3 only inherits the /MediaBox from the root
	p, err := c.PageAt(3)
	if err != nil {
		t.Fatal(err)
	}
	media, err := p.MediaBox()
	if err != nil {
		t.Fatal(err)
	}
	if want := (rect.Rect{URx: 600, URy: 800}); media != want {
		t.Errorf("wrong media box %v", media)
	}
	for _, get := range []func() (rect.Rect, error){p.CropBox, p.TrimBox, p.BleedBox, p.ArtBox} {
		r, err := get()
		if err != nil {
			t.Fatal(err)
		}
		if r != media {
			t.Errorf("box %v does not fall back to media box %v", r, media)
		}
	}

	// page 1 inherits the /CropBox from node a
	p, _ = c.PageAt(1)
	crop, err := p.CropBox()
	if err != nil {
		t.Fatal(err)
	}
	if want := (rect.Rect{LLx: 10, LLy: 10, URx: 590, URy: 790}); crop != want {
		t.Errorf("wrong crop box %v", crop)
	}
	trim, err := p.TrimBox()
	if err != nil {
		t.Fatal(err)
	}
	if trim != crop {
		t.Errorf("trim box %v does not fall back to crop box %v", trim, crop)
	}
	media, _ = p.MediaBox()
	if want := (rect.Rect{URx: 300, URy: 400}); media != want {
		t.Errorf("own media box not used: %v", media)
	}

	art := rect.Rect{LLx: 20, LLy: 20, URx: 100, URy: 100}
	err = p.SetArtBox(art)
	if err != nil {
		t.Fatal(err)
	}
	if r, _ := p.ArtBox(); r != art {
		t.Errorf("wrong art box %v", r)
	}
	if r, _ := p.BleedBox(); r != crop {
		t.Errorf("wrong bleed box %v", r)
	}
}

func TestMissingMediaBox(t *testing.T) {
	list := pdf.NewObjectList(nil)
	p, err := FromObject(list.CreateDict("Page"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.CropBox(); !errors.Is(err, pdf.ErrNoObject) {
		t.Errorf("expected ErrNoObject, got %v", err)
	}

	// malformed boxes are ignored
	dict, _ := p.Object().GetDict()
	dict.Set("MediaBox", pdf.NewArray(pdf.Integer(0), pdf.Integer(0), pdf.Integer(100), pdf.Integer(100)))
	dict.Set("CropBox", pdf.NewArray(pdf.Name("bad")))
	crop, err := p.CropBox()
	if err != nil {
		t.Fatal(err)
	}
	if want := (rect.Rect{URx: 100, URy: 100}); crop != want {
		t.Errorf("wrong crop box %v", crop)
	}
}

func TestRotation(t *testing.T) {
	type testCase struct {
		in  pdf.Value
		out int
	}
	cases := []testCase{
		{nil, 0},
		{pdf.Integer(0), 0},
		{pdf.Integer(90), 90},
		{pdf.Integer(-90), 270},
		{pdf.Integer(450), 90},
		{pdf.Integer(100), 90},
		{pdf.Integer(359), 0},
		{pdf.Real(180), 180},
		{pdf.Name("up"), 0},
	}
	list := pdf.NewObjectList(nil)
	for _, test := range cases {
		obj := list.CreateDict("Page")
		if test.in != nil {
			dict, _ := obj.GetDict()
			dict.Set("Rotate", test.in)
		}
		p, err := FromObject(obj)
		if err != nil {
			t.Fatal(err)
		}
		rot, err := p.Rotation()
		if err != nil {
			t.Fatal(err)
		}
		if rot != test.out {
			t.Errorf("%s: got %d, want %d", pdf.Format(test.in), rot, test.out)
		}
	}
}

func TestSetRotation(t *testing.T) {
	list := pdf.NewObjectList(nil)
	p, _ := FromObject(list.CreateDict("Page"))

	err := p.SetRotation(45)
	if !errors.Is(err, pdf.ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
	if dict, _ := p.Object().GetDict(); dict.Has("Rotate") {
		t.Error("invalid rotation was stored")
	}

	err = p.SetRotation(-90)
	if err != nil {
		t.Fatal(err)
	}
	dict, _ := p.Object().GetDict()
	if rot, _ := dict.FindInteger("Rotate"); rot != 270 {
		t.Errorf("stored /Rotate %d", rot)
	}
}

func TestRotatedRect(t *testing.T) {
	tree := newTestTree(t)
	c := tree.open(t)
	p, _ := c.PageAt(3) // not rotated
	r, err := p.Rect("MediaBox", true)
	if err != nil {
		t.Fatal(err)
	}
	if want := (rect.Rect{URx: 600, URy: 800}); r != want {
		t.Errorf("wrong rectangle %v", r)
	}

	p, _ = c.PageAt(2) // rotated by 90 degrees via node a
	r, err = p.Rect("MediaBox", true)
	if err != nil {
		t.Fatal(err)
	}
	if want := (rect.Rect{URx: 800, URy: 600}); r != want {
		t.Errorf("wrong rotated rectangle %v", r)
	}
	r, _ = p.Rect("MediaBox", false)
	if want := (rect.Rect{URx: 600, URy: 800}); r != want {
		t.Errorf("wrong unrotated rectangle %v", r)
	}

	_, err = p.Rect("FooBox", false)
	if !errors.Is(err, pdf.ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
}

func TestParentCycle(t *testing.T) {
	list := pdf.NewObjectList(nil)
	node := list.CreateDict("Pages")
	nodeDict, _ := node.GetDict()
	nodeDict.Set("Parent", node.Reference())
	page := list.CreateObject(pdf.NewDict(
		pdf.Entry{Key: "Type", Value: pdf.Name("Page")},
		pdf.Entry{Key: "Parent", Value: node.Reference()},
	))

	p, err := FromObject(page)
	if err != nil {
		t.Fatal(err)
	}
	_, err = p.Inherited("Resources")
	if !errors.Is(err, pdf.ErrBrokenFile) {
		t.Errorf("expected ErrBrokenFile, got %v", err)
	}
	_, err = p.MediaBox()
	if !errors.Is(err, pdf.ErrBrokenFile) {
		t.Errorf("expected ErrBrokenFile, got %v", err)
	}

	// without the cycle, the attribute is inherited
	nodeDict.Remove("Parent")
	nodeDict.Set("Rotate", pdf.Integer(180))
	rot, err := p.Rotation()
	if err != nil {
		t.Fatal(err)
	}
	if rot != 180 {
		t.Errorf("wrong rotation %d", rot)
	}

	// only inheritable attributes are inherited
	nodeDict.Set("TrimBox", pdf.NewArray(pdf.Integer(0), pdf.Integer(0), pdf.Integer(1), pdf.Integer(1)))
	if obj, _ := p.Inherited("TrimBox"); obj != nil {
		t.Error("/TrimBox was inherited")
	}
}

func TestFromObject(t *testing.T) {
	list := pdf.NewObjectList(nil)
	_, err := FromObject(list.CreateDict("Pages"))
	if !errors.Is(err, pdf.ErrInvalidDataType) {
		t.Errorf("expected ErrInvalidDataType, got %v", err)
	}
	p, err := FromObject(list.CreateDict("Page"))
	if err != nil {
		t.Fatal(err)
	}
	if p.Index() != -1 {
		t.Errorf("detached page has index %d", p.Index())
	}
}

func TestResources(t *testing.T) {
	tree := newTestTree(t)
	c := tree.open(t)

	p, _ := c.PageAt(3)
	res, err := p.Resources()
	if err != nil || res != nil {
		t.Errorf("unexpected resources %v, %v", res, err)
	}
	res, err = p.GetOrCreateResources()
	if err != nil {
		t.Fatal(err)
	}
	if res == nil || res.Len() != 0 {
		t.Error("empty resource dictionary not created")
	}

	// inherited resources are copied
	p, _ = c.PageAt(1)
	res, err = p.GetOrCreateResources()
	if err != nil {
		t.Fatal(err)
	}
	if !res.Has("ProcSet") {
		t.Error("inherited resources not copied")
	}
	res.Set("Font", pdf.NewDict())
	bDict, _ := tree.b.GetDict()
	if bDict.FindDict("Resources").Has("Font") {
		t.Error("changing page resources modified the parent node")
	}
}

func TestFlattenInherited(t *testing.T) {
	tree := newTestTree(t)
	c := tree.open(t)
	p, _ := c.PageAt(0)
	err := p.FlattenInherited()
	if err != nil {
		t.Fatal(err)
	}
	dict, _ := p.Object().GetDict()
	for _, key := range []pdf.Name{"MediaBox", "CropBox", "Rotate"} {
		if !dict.Has(key) {
			t.Errorf("/%s not copied", key)
		}
	}
	if dict.Has("Resources") {
		t.Error("/Resources defined on a sibling branch was copied")
	}
}

func TestStandardSize(t *testing.T) {
	r := StandardSize(A4, false)
	if r != (rect.Rect{URx: 595, URy: 842}) {
		t.Errorf("wrong A4 size %v", r)
	}
	r = StandardSize(Letter, true)
	if r != (rect.Rect{URx: 792, URy: 612}) {
		t.Errorf("wrong landscape letter size %v", r)
	}
	if StandardSize(PageSize(99), false) != (rect.Rect{}) {
		t.Error("unknown size accepted")
	}
	if A3.String() != "A3" || Tabloid.String() != "Tabloid" {
		t.Error("wrong page size names")
	}
}
