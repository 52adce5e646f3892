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
	"bytes"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	pdf "seehuhn.de/go/pdfedit"
)

func TestBalance(t *testing.T) {
	testCases := []int{
		0, 1, 10,
		maxDegree - 1, maxDegree, maxDegree + 1,
		maxDegree*maxDegree - 1, maxDegree * maxDegree, maxDegree*maxDegree + 1,
		1000,
	}
	for _, numPages := range testCases {
		t.Run(fmt.Sprint(numPages), func(t *testing.T) {
			catalog, c := newTestCollection(t, numPages)
			want := pageRefs(t, c)

			err := c.Balance()
			if err != nil {
				t.Fatal(err)
			}
			if d := cmp.Diff(want, pageRefs(t, c)); d != "" {
				t.Errorf("page order changed (-want +got):\n%s", d)
			}

			depths := make(map[int]bool)
			total, err := walkPages(c.Root(), 0, 0, depths)
			if err != nil {
				t.Fatal(err)
			}
			if total != numPages {
				t.Errorf("total pages: %d != %d", total, numPages)
			}
			if len(depths) > 1 {
				t.Errorf("pages at different depths: %v", depths)
			}

			// write the file and read back the page tree
			list := catalog.Owner()
			buf := &bytes.Buffer{}
			trailer := pdf.NewDict(pdf.Entry{Key: "Root", Value: catalog.Reference()})
			err = pdf.Write(buf, list, trailer, nil)
			if err != nil {
				t.Fatal(err)
			}
			list2 := pdf.NewObjectList(nil)
			_, err = pdf.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()), list2, nil)
			if err != nil {
				t.Fatal(err)
			}
			c2, err := Open(list2.Get(catalog.Reference()))
			if err != nil {
				t.Fatal(err)
			}
			if d := cmp.Diff(want, pageRefs(t, c2)); d != "" {
				t.Errorf("wrong pages after reading (-want +got):\n%s", d)
			}

			// modifying the tree flattens it again
			if numPages > 1 {
				if !c.TryMovePageTo(0, numPages-1) {
					t.Fatal("move failed")
				}
				checkConsistency(t, c)
			}
		})
	}
}

func TestBalanceKeepsAttributes(t *testing.T) {
	tree := newTestTree(t)
	c := tree.open(t)
	before := attributes(t, c)

	// add enough pages to require intermediate nodes
	for i := 0; i < 2*maxDegree; i++ {
		_, err := c.CreatePage(StandardSize(A6, false))
		if err != nil {
			t.Fatal(err)
		}
	}
	err := c.Balance()
	if err != nil {
		t.Fatal(err)
	}
	after := attributes(t, c)[:len(before)]
	if d := cmp.Diff(before, after); d != "" {
		t.Errorf("attributes changed (-want +got):\n%s", d)
	}
	after = attributes(t, tree.open(t))[:len(before)]
	if d := cmp.Diff(before, after); d != "" {
		t.Errorf("attributes changed after re-reading (-want +got):\n%s", d)
	}
}

// walkPages walks the page tree and counts pages, verifying structure.
func walkPages(node *pdf.Object, parentRef pdf.Reference, depth int, depths map[int]bool) (int, error) {
	dict, err := node.GetDict()
	if err != nil {
		return 0, err
	}
	var total int
	typ, _ := dict.FindName("Type")
	switch typ {
	case "Page":
		depths[depth] = true
		total++
	case "Pages":
		kids := dict.FindArray("Kids")
		if kids == nil {
			return 0, fmt.Errorf("%s: missing /Kids", node.Reference())
		}
		if kids.Len() > maxDegree {
			return 0, fmt.Errorf("%s: %d kids", node.Reference(), kids.Len())
		}
		var subTotal int
		for i := 0; i < kids.Len(); i++ {
			kid := kids.Find(i)
			if kid == nil {
				return 0, fmt.Errorf("%s: dangling kid %d", node.Reference(), i)
			}
			count, err := walkPages(kid, node.Reference(), depth+1, depths)
			if err != nil {
				return 0, err
			}
			subTotal += count
		}
		if x, ok := dict.FindInteger("Count"); !ok || int(x) != subTotal {
			return 0, fmt.Errorf("wrong /Count: expected %d but got %d", subTotal, x)
		}
		total += subTotal
	default:
		return 0, fmt.Errorf("unknown type: %q", typ)
	}

	parent, hasParent := dict.Get("Parent").TryGetReference()
	if parentRef != 0 {
		if parent != parentRef {
			return 0, fmt.Errorf("parent mismatch: %s != %s", parent, parentRef)
		}
	} else if hasParent {
		return 0, fmt.Errorf("root has parent")
	}
	return total, nil
}
