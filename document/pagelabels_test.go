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
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	pdf "seehuhn.de/go/pdfedit"
)

func TestFormatLabel(t *testing.T) {
	cases := []struct {
		style pdf.Name
		n     int
		want  string
	}{
		{"D", 7, "7"},
		{"R", 1, "I"},
		{"R", 4, "IV"},
		{"R", 1994, "MCMXCIV"},
		{"r", 9, "ix"},
		{"A", 1, "A"},
		{"A", 26, "Z"},
		{"A", 27, "AA"},
		{"a", 54, "bbb"},
		{"", 5, ""},
	}
	for _, c := range cases {
		if got := formatLabel(c.style, c.n); got != c.want {
			t.Errorf("formatLabel(%q, %d) = %q, want %q", c.style, c.n, got, c.want)
		}
	}
}

func TestPageLabels(t *testing.T) {
	doc := New(nil)
	pages, _ := doc.Pages()
	pages.CreatePagesAt(0, 8, letter)

	if label, _ := doc.PageLabel(3); label != "4" {
		t.Errorf("wrong default label %q", label)
	}

	ranges := []LabelRange{
		{Start: 0, Style: "r", First: 1},
		{Start: 3, Style: "D", First: 1},
		{Start: 6, Style: "A", Prefix: "App. ", First: 1},
	}
	err := doc.SetPageLabels(ranges)
	if err != nil {
		t.Fatal(err)
	}

	doc2 := loadDoc(t, writeDoc(t, doc), nil)
	var labels []string
	for i := range 8 {
		label, err := doc2.PageLabel(i)
		if err != nil {
			t.Fatal(err)
		}
		labels = append(labels, label)
	}
	want := []string{"i", "ii", "iii", "1", "2", "3", "App. A", "App. B"}
	if d := cmp.Diff(want, labels); d != "" {
		t.Errorf("wrong labels (-want +got):\n%s", d)
	}
	got, err := doc2.PageLabels()
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff(ranges, got); d != "" {
		t.Errorf("wrong ranges (-want +got):\n%s", d)
	}

	err = doc.SetPageLabels([]LabelRange{{Start: 1, Style: "D"}})
	if !errors.Is(err, pdf.ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
	err = doc.SetPageLabels([]LabelRange{{Start: 0, Style: "X"}})
	if !errors.Is(err, pdf.ErrInvalidDataType) {
		t.Errorf("expected ErrInvalidDataType, got %v", err)
	}

	err = doc.SetPageLabels(nil)
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := doc.PageLabels(); got != nil {
		t.Errorf("page labels not removed: %v", got)
	}
}
