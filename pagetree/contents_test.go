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
	"io"
	"testing"

	"seehuhn.de/go/geom/rect"

	pdf "seehuhn.de/go/pdfedit"
)

func TestContentStream(t *testing.T) {
	list := pdf.NewObjectList(nil)
	catalog := list.CreateDict("Catalog")
	pages, err := New(list, catalog)
	if err != nil {
		t.Fatal(err)
	}

	A := addStream(t, list, "A")
	B := addStream(t, list, "B", "FlateDecode")
	C := addStream(t, list, "C", "FlateDecode", "ASCIIHexDecode")

	type testCase struct {
		name     string
		contents pdf.Value
		expect   string
	}
	cases := []*testCase{
		{
			name:     "missing",
			contents: nil,
			expect:   "",
		},
		{
			name:     "empty",
			contents: pdf.NewArray(),
			expect:   "",
		},
		{
			name:     "A",
			contents: A,
			expect:   "A",
		},
		{
			name:     "AB",
			contents: pdf.NewArray(A, B),
			expect:   "A\nB",
		},
		{
			name:     "ABC",
			contents: pdf.NewArray(A, B, C),
			expect:   "A\nB\nC",
		},
		{
			name:     "gap",
			contents: pdf.NewArray(A, nil, C),
			expect:   "A\nC",
		},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			p, err := pages.CreatePage(rect.Rect{URx: 100, URy: 100})
			if err != nil {
				t.Fatal(err)
			}
			if test.contents != nil {
				dict, _ := p.Object().GetDict()
				dict.Set("Contents", test.contents)
			}

			r, err := p.ContentReader()
			if err != nil {
				t.Fatal(err)
			}
			body, err := io.ReadAll(r)
			if err != nil {
				t.Fatal(err)
			}
			if string(body) != test.expect {
				t.Errorf("expected %q, got %q", test.expect, body)
			}
		})
	}
}

func TestAddContents(t *testing.T) {
	list := pdf.NewObjectList(nil)
	pages, err := New(list, list.CreateDict("Catalog"))
	if err != nil {
		t.Fatal(err)
	}
	p, err := pages.CreatePage(rect.Rect{URx: 100, URy: 100})
	if err != nil {
		t.Fatal(err)
	}

	for _, part := range []string{"q", "1 0 0 1 0 0 cm", "Q"} {
		_, err = p.AddContents([]byte(part))
		if err != nil {
			t.Fatal(err)
		}
	}

	streams, err := p.Contents()
	if err != nil {
		t.Fatal(err)
	}
	if len(streams) != 3 {
		t.Fatalf("expected 3 content streams, got %d", len(streams))
	}
	r, err := p.ContentReader()
	if err != nil {
		t.Fatal(err)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "q\n1 0 0 1 0 0 cm\nQ" {
		t.Errorf("wrong content %q", body)
	}
}

func addStream(t *testing.T, list *pdf.ObjectList, body string, filters ...pdf.Name) pdf.Reference {
	t.Helper()

	obj := list.CreateDict("")
	stm, err := obj.GetOrCreateStream()
	if err != nil {
		t.Fatal(err)
	}
	err = stm.SetData([]byte(body), filters...)
	if err != nil {
		t.Fatal(err)
	}
	return obj.Reference()
}
