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

package pdf

import (
	"testing"

	"seehuhn.de/go/geom/rect"
)

func TestRectangle(t *testing.T) {
	type testCase struct {
		in  string
		out rect.Rect
	}
	cases := []testCase{
		{"[0 0 0 0]", rect.Rect{}},
		{"[1 2 3 4]", rect.Rect{LLx: 1, LLy: 2, URx: 3, URy: 4}},
		{"[1.0 2.0 3.0 4.0]", rect.Rect{LLx: 1, LLy: 2, URx: 3, URy: 4}},
		{"[1.1 2.2 3.3 4.4]", rect.Rect{LLx: 1.1, LLy: 2.2, URx: 3.3, URy: 4.4}},
		{"[3 4 1 2]", rect.Rect{LLx: 1, LLy: 2, URx: 3, URy: 4}},
		{"[0 792 612 0]", rect.Rect{LLx: 0, LLy: 0, URx: 612, URy: 792}},
	}
	for _, test := range cases {
		t.Run(test.in, func(t *testing.T) {
			val, err := testScanner(test.in).ReadObject()
			if err != nil {
				t.Fatal(err)
			}

			r, err := GetRectangle(NewObject(val))
			if err != nil {
				t.Fatalf("GetRectangle(%q) returned error %v", test.in, err)
			}
			if r != test.out {
				t.Errorf("GetRectangle(%q) = %v, want %v", test.in, r, test.out)
			}

			back, err := GetRectangle(NewObject(RectangleArray(r)))
			if err != nil {
				t.Fatal(err)
			}
			if back != r {
				t.Errorf("round trip: %v != %v", back, r)
			}
		})
	}

	for _, in := range []string{"[1 2 3]", "[1 2 3 /x]", "5"} {
		val, _ := testScanner(in).ReadObject()
		if _, err := GetRectangle(NewObject(val)); err == nil {
			t.Errorf("%q: invalid rectangle accepted", in)
		}
	}
}

func TestNumber(t *testing.T) {
	if v, ok := Number(612).(Integer); !ok || v != 612 {
		t.Errorf("Number(612) = %s", Format(Number(612)))
	}
	if v, ok := Number(0.5).(Real); !ok || v != 0.5 {
		t.Errorf("Number(0.5) = %s", Format(Number(0.5)))
	}
}
