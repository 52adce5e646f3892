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
	"fmt"
	"strconv"
	"strings"

	pdf "seehuhn.de/go/pdfedit"
	"seehuhn.de/go/pdfedit/numtree"
)

// PDF 2.0 sections: 12.4.2

// LabelRange describes the page labels for a range of pages.  The range
// extends to the start of the next range.
type LabelRange struct {
	// Start is the index of the first page in the range.
	Start int

	// Style is the numbering style, one of /D (decimal), /R (upper case
	// roman), /r (lower case roman), /A (upper case letters) and /a
	// (lower case letters).  If this is empty, labels consist of the
	// prefix only.
	Style pdf.Name

	// Prefix is prepended to the number.
	Prefix string

	// First is the numeric value of the first label in the range.
	// Zero is treated as 1.
	First int
}

// PageLabels returns the page label ranges of the document, or nil if the
// document has no page labels.
func (doc *Document) PageLabels() ([]LabelRange, error) {
	tree, err := doc.labelTree()
	if err != nil || tree == nil {
		return nil, err
	}
	var res []LabelRange
	for key, obj := range tree.All() {
		res = append(res, decodeLabel(key, obj))
	}
	return res, nil
}

// SetPageLabels replaces the page labels of the document.  The first range
// must start at page 0.  Use nil to remove all page labels.
func (doc *Document) SetPageLabels(ranges []LabelRange) error {
	catDict := doc.catalogDict()
	if len(ranges) == 0 {
		return catDict.Remove("PageLabels")
	}
	if ranges[0].Start != 0 {
		return fmt.Errorf("%w: page labels must start at page 0", pdf.ErrOutOfRange)
	}
	for i, r := range ranges {
		if i > 0 && r.Start <= ranges[i-1].Start {
			return fmt.Errorf("%w: label ranges out of order", pdf.ErrOutOfRange)
		}
		if r.First < 0 {
			return fmt.Errorf("%w: label numbers must be positive", pdf.ErrOutOfRange)
		}
		switch r.Style {
		case "", "D", "R", "r", "A", "a":
		default:
			return fmt.Errorf("%w: label style /%s", pdf.ErrInvalidDataType, r.Style)
		}
	}
	err := doc.catalog.AssertMutable()
	if err != nil {
		return err
	}

	tree := numtree.Create(doc.list)
	for _, r := range ranges {
		label := pdf.NewDict()
		if r.Style != "" {
			label.Set("S", r.Style)
		}
		if r.Prefix != "" {
			label.Set("P", pdf.TextString(r.Prefix))
		}
		if r.First > 1 {
			label.Set("St", pdf.Integer(r.First))
		}
		err := tree.Set(r.Start, label)
		if err != nil {
			return err
		}
	}
	return catDict.SetIndirect("PageLabels", tree.Object())
}

// PageLabel returns the label of the page with index i.  If the document
// has no page labels, the decimal page number is used.
func (doc *Document) PageLabel(i int) (string, error) {
	if i < 0 {
		return "", pdf.ErrOutOfRange
	}
	tree, err := doc.labelTree()
	if err != nil {
		return "", err
	}
	if tree == nil {
		return strconv.Itoa(i + 1), nil
	}
	start, obj, err := tree.Floor(i)
	if errors.Is(err, numtree.ErrKeyNotFound) {
		return strconv.Itoa(i + 1), nil
	} else if err != nil {
		return "", err
	}
	r := decodeLabel(start, obj)
	first := r.First
	if first < 1 {
		first = 1
	}
	return r.Prefix + formatLabel(r.Style, first+i-start), nil
}

func (doc *Document) labelTree() (*numtree.Tree, error) {
	obj := doc.catalogDict().Find("PageLabels")
	if obj == nil || obj.IsNull() {
		return nil, nil
	}
	tree, err := numtree.Open(obj)
	if err != nil {
		return nil, pdf.Wrap(err, "/PageLabels")
	}
	return tree, nil
}

func decodeLabel(start int, obj *pdf.Object) LabelRange {
	r := LabelRange{Start: start, First: 1}
	dict, ok := obj.TryGetDict()
	if !ok {
		return r
	}
	r.Style, _ = dict.FindName("S")
	if p, ok := dict.FindString("P"); ok {
		r.Prefix = p.AsTextString()
	}
	if st, ok := dict.FindInteger("St"); ok && st > 0 {
		r.First = int(st)
	}
	return r
}

func formatLabel(style pdf.Name, n int) string {
	switch style {
	case "D":
		return strconv.Itoa(n)
	case "R":
		return roman(n)
	case "r":
		return strings.ToLower(roman(n))
	case "A":
		return letters(n)
	case "a":
		return strings.ToLower(letters(n))
	}
	return ""
}

var romanDigits = []struct {
	value  int
	symbol string
}{
	{1000, "M"}, {900, "CM"}, {500, "D"}, {400, "CD"},
	{100, "C"}, {90, "XC"}, {50, "L"}, {40, "XL"},
	{10, "X"}, {9, "IX"}, {5, "V"}, {4, "IV"}, {1, "I"},
}

func roman(n int) string {
	var b strings.Builder
	for _, d := range romanDigits {
		for n >= d.value {
			b.WriteString(d.symbol)
			n -= d.value
		}
	}
	return b.String()
}

// letters gives A to Z for the first 26 pages, then AA to ZZ, then AAA
// to ZZZ, and so on.
func letters(n int) string {
	if n < 1 {
		return ""
	}
	c := byte('A' + (n-1)%26)
	return strings.Repeat(string(c), (n-1)/26+1)
}
