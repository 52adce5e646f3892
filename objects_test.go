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
	"bytes"
	"errors"
	"math"
	"testing"
	"time"
)

func TestFormat(t *testing.T) {
	cases := []struct {
		in  Value
		out string
	}{
		{nil, "null"},
		{(*Dict)(nil), "null"},
		{Bool(true), "true"},
		{Integer(-7), "-7"},
		{Real(1.5), "1.5"},
		{Real(2), "2."},
		{String("a"), "(a)"},
		{String("a (test version)"), "(a (test version))"},
		{String("a (test version"), "(a \\(test version)"},
		{String(""), "()"},
		{String("\000"), "<00>"},
		{String("a\rb\nc"), "(a\\rb\nc)"},
		{Name("Type"), "/Type"},
		{Name("F# minor"), "/F#23#20minor"},
		{Name("a/b"), "/a#2Fb"},
		{NewReference(12, 3), "12 3 R"},
		{NewArray(Integer(1), nil, Integer(3)), "[1 null 3]"},
		{NewDict(Entry{"A", Integer(1)}, Entry{"Type", Name("X")}), "<<\n/Type /X\n/A 1\n>>"},
		{NewDict(Entry{"A", nil}), "<<\n>>"},
	}
	for _, test := range cases {
		out := Format(test.in)
		if out != test.out {
			t.Errorf("string wrongly formatted, expected %q but got %q",
				test.out, out)
		}
	}
}

func TestKindOf(t *testing.T) {
	cases := []struct {
		in   Value
		kind Kind
	}{
		{nil, KindNull},
		{(*Array)(nil), KindNull},
		{Bool(false), KindBool},
		{Integer(0), KindInteger},
		{Real(0), KindReal},
		{String(nil), KindString},
		{Name(""), KindName},
		{NewArray(), KindArray},
		{NewDict(), KindDict},
		{NewReference(1, 0), KindReference},
		{RawData("x"), KindRawData},
	}
	for _, test := range cases {
		if got := KindOf(test.in); got != test.kind {
			t.Errorf("KindOf(%s) = %s, want %s", Format(test.in), got, test.kind)
		}
	}
}

func TestReference(t *testing.T) {
	ref := NewReference(0xFFFFFFFE, 0xFFFF)
	if ref.Number() != 0xFFFFFFFE || ref.Generation() != 0xFFFF {
		t.Errorf("wrong fields: %d %d", ref.Number(), ref.Generation())
	}
	if !ref.IsIndirect() {
		t.Error("reference should be indirect")
	}
	if Reference(0).IsIndirect() {
		t.Error("zero reference should not be indirect")
	}

	a := NewReference(1, 5)
	b := NewReference(2, 0)
	c := NewReference(2, 1)
	if CompareReferences(a, b) >= 0 || CompareReferences(b, c) >= 0 || CompareReferences(c, c) != 0 {
		t.Error("wrong ordering")
	}
}

func TestTextString(t *testing.T) {
	cases := []string{
		"",
		"hello",
		"Grüß Gott",
		"„quoted“ – •",
		"中文",
		"\U0001F600",
	}
	for _, test := range cases {
		enc := TextString(test)
		out := enc.AsTextString()
		if out != test {
			t.Errorf("wrong text: %q != %q", out, test)
		}
	}

	// PDFDocEncoding is used where possible
	if enc := TextString("Grüß"); len(enc) != 4 {
		t.Errorf("expected PDFDocEncoding, got %q", enc)
	}
	if enc := TextString("中"); enc[0] != 0xFE || enc[1] != 0xFF {
		t.Errorf("expected UTF-16BE with BOM, got %q", enc)
	}
	if got := String("\xEF\xBB\xBFabc").AsTextString(); got != "abc" {
		t.Errorf("UTF-8 text string decoded as %q", got)
	}
}

func TestDate(t *testing.T) {
	PST := time.FixedZone("PST", -8*60*60)
	cases := []time.Time{
		time.Date(1998, 12, 23, 19, 52, 0, 0, PST),
		time.Date(2020, 12, 24, 16, 30, 12, 0, time.FixedZone("", 90*60)),
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, test := range cases {
		enc := Date(test)
		out, err := enc.AsDate()
		if err != nil {
			t.Error(err)
		} else if !test.Equal(out) {
			t.Errorf("wrong time: %s != %s", out, test)
		}
	}

	for _, in := range []string{"D:19981223195200-08'00'", "D:2000", "20000102"} {
		_, err := String(in).AsDate()
		if err != nil {
			t.Errorf("%q: %s", in, err)
		}
	}
	if _, err := String("yesterday").AsDate(); err == nil {
		t.Error("invalid date accepted")
	}
}

func TestEqualValues(t *testing.T) {
	a := NewDict(Entry{"A", NewArray(Integer(1), String("x"))})
	b := NewDict(Entry{"A", NewArray(Integer(1), String("x"))})
	if !equalValues(a, b) {
		t.Error("equal dictionaries compare different")
	}
	b.set("B", Bool(true))
	if equalValues(a, b) {
		t.Error("different dictionaries compare equal")
	}
	if !equalValues(nil, (*Dict)(nil)) {
		t.Error("null values compare different")
	}
	if equalValues(Integer(1), Real(1)) {
		t.Error("values of different kinds compare equal")
	}
}

func TestRealNotFinite(t *testing.T) {
	for _, x := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		err := Real(x).PDF(&bytes.Buffer{})
		if !errors.Is(err, ErrInvalidDataType) {
			t.Errorf("%g: expected ErrInvalidDataType, got %v", x, err)
		}
	}
}
