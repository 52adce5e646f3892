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


// Package outline gives access to the document outline (bookmarks) of a
// PDF file.
//
// The outline is edited in place: an [Outline] or [Item] is a thin handle
// on the underlying dictionary, and all navigation follows the /First,
// /Last, /Next, /Prev and /Parent entries stored in the file.  Structural
// changes keep the /Count entries of all ancestors up to date.
//
// PDF 2.0 sections: 12.3.3
package outline

import (
	"errors"
	"fmt"

	pdf "seehuhn.de/go/pdfedit"
)

// maxItems bounds the number of items visited by a single traversal.
const maxItems = 65536

var errLoop = errors.New("outline tree contains a loop")

// Target describes what happens when an outline item is activated.
// This must be one of [TargetNone], [TargetDestination] or [TargetAction].
type Target interface {
	isTarget()
}

// TargetNone is used for items which do nothing when activated.
type TargetNone struct{}

// TargetDestination jumps to a location in the document.
type TargetDestination struct {
	// Named, if not empty, gives the name of a destination in the
	// /Dests name tree.  All other fields are ignored in this case.
	Named string

	// Page is the reference of the destination page.
	Page pdf.Reference

	// Fit is the destination type, for example /XYZ or /FitH.
	// If this is empty, /Fit is used.
	Fit pdf.Name

	// Params holds the remaining elements of the destination array.
	// Null values are represented by nil.
	Params []pdf.Value
}

// TargetAction performs an action when the item is activated.
type TargetAction struct {
	Action *pdf.Dict
}

func (TargetNone) isTarget()        {}
func (TargetDestination) isTarget() {}
func (TargetAction) isTarget()      {}

// Outline is the root of a document outline.
type Outline struct {
	node
}

// Item is an entry in a document outline.
type Item struct {
	node
}

type node struct {
	obj  *pdf.Object
	dict *pdf.Dict
}

// Open returns a handle for an existing outline dictionary.
func Open(root *pdf.Object) (*Outline, error) {
	if root == nil || !root.IsIndirect() {
		return nil, fmt.Errorf("%w: outline root must be an indirect object",
			pdf.ErrInvalidHandle)
	}
	err := root.DelayedLoad()
	if err != nil {
		return nil, err
	}
	dict, ok := root.TryGetDict()
	if !ok {
		return nil, pdf.Errorf("outline root is not a dictionary")
	}
	return &Outline{node{obj: root, dict: dict}}, nil
}

// Create allocates a new, empty outline dictionary in list.
func Create(list *pdf.ObjectList) *Outline {
	obj := list.CreateDict("Outlines")
	dict, _ := obj.GetDict()
	return &Outline{node{obj: obj, dict: dict}}
}

// Count returns the number of items which are visible when the document
// is opened.
func (o *Outline) Count() (int, error) {
	return o.openDescendants()
}

// All returns all items of the outline, in depth-first order.
func (o *Outline) All() ([]*Item, error) {
	var res []*Item
	seen := make(map[pdf.Reference]bool)
	var walk func(n *node, depth int) error
	walk = func(n *node, depth int) error {
		if depth > pdf.MaxDepth {
			return pdf.Errorf("outline nested too deeply")
		}
		for it := n.First(); it != nil; it = it.Next() {
			ref := it.obj.Reference()
			if seen[ref] {
				return &pdf.MalformedFileError{Err: errLoop}
			}
			seen[ref] = true
			if len(seen) > maxItems {
				return errors.New("outline too large")
			}
			res = append(res, it)
			err := walk(&it.node, depth+1)
			if err != nil {
				return err
			}
		}
		return nil
	}
	err := walk(&o.node, 0)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Object returns the dictionary object of the node.
func (n *node) Object() *pdf.Object {
	return n.obj
}

// Reference returns the reference of the node.
func (n *node) Reference() pdf.Reference {
	return n.obj.Reference()
}

// First returns the first child, or nil if there are no children.
func (n *node) First() *Item {
	return itemAt(n.dict, "First")
}

// Last returns the last child, or nil if there are no children.
func (n *node) Last() *Item {
	return itemAt(n.dict, "Last")
}

// Children returns the direct children of the node, following the /Next
// chain from /First.
func (n *node) Children() ([]*Item, error) {
	var res []*Item
	seen := make(map[pdf.Reference]bool)
	for it := n.First(); it != nil; it = it.Next() {
		ref := it.obj.Reference()
		if seen[ref] {
			return nil, &pdf.MalformedFileError{Err: errLoop}
		}
		seen[ref] = true
		if len(seen) > maxItems {
			return nil, errors.New("outline too large")
		}
		res = append(res, it)
	}
	return res, nil
}

// CreateChild appends a new item at the end of the children of the node.
func (n *node) CreateChild(title string, target Target) (*Item, error) {
	err := n.obj.AssertMutable()
	if err != nil {
		return nil, err
	}
	children, err := n.Children()
	if err != nil {
		return nil, err
	}
	item, err := n.newItem(title, target)
	if err != nil {
		return nil, err
	}

	ref := item.Reference()
	if len(children) > 0 {
		last := children[len(children)-1]
		if err := last.dict.Set("Next", ref); err != nil {
			return nil, err
		}
		item.dict.Set("Prev", last.Reference())
	} else if err := n.dict.Set("First", ref); err != nil {
		return nil, err
	}
	err = n.dict.Set("Last", ref)
	if err != nil {
		return nil, err
	}
	return item, n.updateCounts()
}

// newItem allocates a new item dictionary with n as its parent.  The item
// is not yet linked into the list of children.
func (n *node) newItem(title string, target Target) (*Item, error) {
	list := n.obj.Owner()
	if list == nil {
		return nil, pdf.ErrInvalidHandle
	}
	key, val, err := targetEntry(target)
	if err != nil {
		return nil, err
	}
	dict := pdf.NewDict(
		pdf.Entry{Key: "Title", Value: pdf.TextString(title)},
		pdf.Entry{Key: "Parent", Value: n.obj.Reference()},
	)
	if key != "" {
		dict.Set(key, val)
	}
	obj := list.CreateObject(dict)
	dict, _ = obj.GetDict()
	return &Item{node{obj: obj, dict: dict}}, nil
}

func (n *node) parent() *node {
	obj := n.dict.Find("Parent")
	if obj == nil || !obj.IsIndirect() {
		return nil
	}
	dict, ok := obj.TryGetDict()
	if !ok {
		return nil
	}
	return &node{obj: obj, dict: dict}
}

func (n *node) isRoot() bool {
	return !n.dict.Has("Parent")
}

func (n *node) count() int {
	c, _ := n.dict.FindInteger("Count")
	return int(c)
}

// openDescendants returns the number of descendants which are visible if
// the node itself is open.
func (n *node) openDescendants() (int, error) {
	children, err := n.Children()
	if err != nil {
		return 0, err
	}
	total := 0
	for _, c := range children {
		total++
		if k := c.count(); k > 0 {
			total += k
		}
	}
	return total, nil
}

// updateCounts recomputes the /Count entries of n and its ancestors.
// Unchanged entries are not written.
func (n *node) updateCounts() error {
	seen := make(map[*pdf.Object]bool)
	for cur := n; cur != nil; cur = cur.parent() {
		if seen[cur.obj] || len(seen) > pdf.MaxDepth {
			return &pdf.MalformedFileError{Err: errLoop}
		}
		seen[cur.obj] = true

		total, err := cur.openDescendants()
		if err != nil {
			return err
		}
		want := total
		if !cur.isRoot() && cur.count() <= 0 {
			// new parents start out closed
			want = -total
		}
		err = cur.storeCount(want)
		if err != nil {
			return err
		}
	}
	return nil
}

func (n *node) storeCount(want int) error {
	if want == 0 {
		return n.dict.Remove("Count")
	}
	if c, ok := n.dict.FindInteger("Count"); ok && int(c) == want {
		return nil
	}
	return n.dict.Set("Count", pdf.Integer(want))
}

func itemAt(d *pdf.Dict, key pdf.Name) *Item {
	obj := d.Find(key)
	if obj == nil || !obj.IsIndirect() {
		return nil
	}
	dict, ok := obj.TryGetDict()
	if !ok {
		return nil
	}
	return &Item{node{obj: obj, dict: dict}}
}

// Next returns the next sibling, or nil.
func (it *Item) Next() *Item {
	return itemAt(it.dict, "Next")
}

// Prev returns the previous sibling, or nil.
func (it *Item) Prev() *Item {
	return itemAt(it.dict, "Prev")
}

// Parent returns the parent item.  The result is nil for top-level items.
func (it *Item) Parent() *Item {
	p := it.parent()
	if p == nil || p.isRoot() {
		return nil
	}
	return &Item{*p}
}

// Title returns the text displayed for the item.
func (it *Item) Title() string {
	s, _ := it.dict.FindString("Title")
	return s.AsTextString()
}

// SetTitle changes the text displayed for the item.
func (it *Item) SetTitle(title string) error {
	return it.dict.Set("Title", pdf.TextString(title))
}

// IsOpen reports whether the children of the item are shown when the
// document is opened.
func (it *Item) IsOpen() bool {
	return it.count() > 0
}

// SetOpen expands or collapses the item.  This has no effect for items
// without children.
func (it *Item) SetOpen(open bool) error {
	total, err := it.openDescendants()
	if err != nil || total == 0 {
		return err
	}
	if !open {
		total = -total
	}
	err = it.storeCount(total)
	if err != nil {
		return err
	}
	if p := it.parent(); p != nil {
		return p.updateCounts()
	}
	return nil
}

// Color returns the text color of the item, as RGB values in the range
// 0 to 1.  The second return value is false if no color is set.
func (it *Item) Color() ([3]float64, bool) {
	var res [3]float64
	c := it.dict.FindArray("C")
	if c.Len() != 3 {
		return res, false
	}
	for i := range res {
		x, ok := c.Find(i).TryGetNumber()
		if !ok {
			return res, false
		}
		res[i] = x
	}
	return res, true
}

// SetColor sets the text color of the item (PDF 1.4).
func (it *Item) SetColor(r, g, b float64) error {
	for _, x := range []float64{r, g, b} {
		if x < 0 || x > 1 {
			return fmt.Errorf("%w: color component %g", pdf.ErrOutOfRange, x)
		}
	}
	return it.dict.Set("C", pdf.NewArray(pdf.Number(r), pdf.Number(g), pdf.Number(b)))
}

// Style returns the font style flags of the item.
func (it *Item) Style() (bold, italic bool) {
	f, _ := it.dict.FindInteger("F")
	return f&2 != 0, f&1 != 0
}

// SetStyle sets the font style flags of the item (PDF 1.4).
func (it *Item) SetStyle(bold, italic bool) error {
	var f pdf.Integer
	if italic {
		f |= 1
	}
	if bold {
		f |= 2
	}
	if f == 0 {
		return it.dict.Remove("F")
	}
	return it.dict.Set("F", f)
}

// Target returns the destination or action of the item.
// If both /Dest and /A are present, /Dest is used.
func (it *Item) Target() (Target, error) {
	if dest := it.dict.Find("Dest"); dest != nil && !dest.IsNull() {
		t, err := decodeDest(dest)
		if err != nil {
			return nil, pdf.Wrap(err, "/Dest in outline")
		}
		return t, nil
	}
	if a := it.dict.FindDict("A"); a != nil {
		return TargetAction{Action: a}, nil
	}
	return TargetNone{}, nil
}

// SetTarget replaces the destination or action of the item.
func (it *Item) SetTarget(target Target) error {
	key, val, err := targetEntry(target)
	if err != nil {
		return err
	}
	for _, k := range []pdf.Name{"Dest", "A"} {
		if err := it.dict.Remove(k); err != nil {
			return err
		}
	}
	if key == "" {
		return nil
	}
	return it.dict.Set(key, val)
}

// CreateNext inserts a new item directly after it.
func (it *Item) CreateNext(title string, target Target) (*Item, error) {
	p := it.parent()
	if p == nil {
		return nil, fmt.Errorf("%w: outline item has no parent", pdf.ErrInvalidHandle)
	}
	err := p.obj.AssertMutable()
	if err != nil {
		return nil, err
	}
	item, err := p.newItem(title, target)
	if err != nil {
		return nil, err
	}

	ref := item.Reference()
	item.dict.Set("Prev", it.Reference())
	if next := it.Next(); next != nil {
		item.dict.Set("Next", next.Reference())
		if err := next.dict.Set("Prev", ref); err != nil {
			return nil, err
		}
	} else if err := p.dict.Set("Last", ref); err != nil {
		return nil, err
	}
	err = it.dict.Set("Next", ref)
	if err != nil {
		return nil, err
	}
	return item, p.updateCounts()
}

// Remove unlinks the item from the outline and deletes the item and all
// its descendants from the object list.
func (it *Item) Remove() error {
	list := it.obj.Owner()
	if list == nil {
		return pdf.ErrInvalidHandle
	}
	err := it.obj.AssertMutable()
	if err != nil {
		return err
	}

	var doomed []pdf.Reference
	seen := map[pdf.Reference]bool{it.Reference(): true}
	var collect func(n *node, depth int) error
	collect = func(n *node, depth int) error {
		if depth > pdf.MaxDepth {
			return pdf.Errorf("outline nested too deeply")
		}
		for c := n.First(); c != nil; c = c.Next() {
			if seen[c.Reference()] {
				return &pdf.MalformedFileError{Err: errLoop}
			}
			seen[c.Reference()] = true
			doomed = append(doomed, c.Reference())
			if err := collect(&c.node, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	err = collect(&it.node, 0)
	if err != nil {
		return err
	}

	p := it.parent()
	prev, next := it.Prev(), it.Next()
	err = relink(dictOf(prev), "Next", next)
	if err == nil && prev == nil && p != nil {
		err = relink(p.dict, "First", next)
	}
	if err == nil {
		err = relink(dictOf(next), "Prev", prev)
	}
	if err == nil && next == nil && p != nil {
		err = relink(p.dict, "Last", prev)
	}
	if err != nil {
		return err
	}

	for _, ref := range doomed {
		list.Delete(ref)
	}
	list.Delete(it.Reference())

	if p != nil {
		return p.updateCounts()
	}
	return nil
}

func dictOf(it *Item) *pdf.Dict {
	if it == nil {
		return nil
	}
	return it.dict
}

// relink points the entry key of d to the item to, or removes the entry
// if to is nil.
func relink(d *pdf.Dict, key pdf.Name, to *Item) error {
	if d == nil {
		return nil
	}
	if to == nil {
		return d.Remove(key)
	}
	return d.Set(key, to.Reference())
}

func targetEntry(target Target) (pdf.Name, pdf.Value, error) {
	switch t := target.(type) {
	case nil, TargetNone:
		return "", nil, nil
	case TargetDestination:
		if t.Named != "" {
			return "Dest", pdf.String(t.Named), nil
		}
		if !t.Page.IsIndirect() {
			return "", nil, fmt.Errorf("%w: destination page must be an indirect object",
				pdf.ErrInvalidHandle)
		}
		fit := t.Fit
		if fit == "" {
			fit = "Fit"
		}
		vals := append([]pdf.Value{t.Page, fit}, t.Params...)
		return "Dest", pdf.NewArray(vals...), nil
	case TargetAction:
		if t.Action == nil {
			return "", nil, fmt.Errorf("%w: missing action dictionary", pdf.ErrInvalidHandle)
		}
		return "A", t.Action, nil
	default:
		return "", nil, fmt.Errorf("%w: unsupported outline target %T",
			pdf.ErrInvalidDataType, target)
	}
}

func decodeDest(obj *pdf.Object) (Target, error) {
	switch v := obj.Value().(type) {
	case pdf.Name:
		return TargetDestination{Named: string(v)}, nil
	case pdf.String:
		return TargetDestination{Named: string(v)}, nil
	case *pdf.Array:
		if v.Len() < 2 {
			return nil, pdf.Errorf("destination array too short")
		}
		page, _ := v.At(0).TryGetReference()
		fit, ok := v.Find(1).TryGetName()
		if !ok {
			return nil, pdf.Errorf("invalid destination type %s", pdf.Format(v.At(1).Value()))
		}
		res := TargetDestination{Page: page, Fit: fit}
		for i := 2; i < v.Len(); i++ {
			res.Params = append(res.Params, v.At(i).Value())
		}
		return res, nil
	}
	return nil, pdf.Errorf("invalid destination %s", pdf.Format(obj.Value()))
}
