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

// Package pagetree gives access to the pages of a PDF document.
//
// A [Collection] presents the page tree rooted at the /Pages entry of the
// document catalog as a flat, indexed list of [Page] values.  Documents
// read from a file start with an arbitrary tree, which is traversed the
// first time a page is accessed.  Every operation which changes the order
// or the number of pages first flattens the tree, so that afterwards all
// pages are direct children of the root node.
//
// The traversal is strict about the structure of the tree: cycles, nodes
// of unknown type, /Kids entries which are not arrays, kids which are not
// indirect objects and excessive nesting all cause [pdf.ErrBrokenFile].
// Page counts are treated as hints: the /Count entry of the root node
// bounds the number of pages collected, while /Count values of
// intermediate nodes are ignored.  References to missing objects in /Kids
// arrays are skipped.
package pagetree

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/exp/slices"

	"seehuhn.de/go/geom/rect"

	pdf "seehuhn.de/go/pdfedit"
)

// Collection is the list of pages of a document.
type Collection struct {
	root    *pdf.Object
	catalog *pdf.Object

	// kids is the live /Kids array of the root node.  It is non-nil once
	// the tree is flat.
	kids *pdf.Array

	pages  []*Page
	loaded bool

	log *slog.Logger
}

// Open returns the page collection for the document with the given
// catalog.  The page tree is not read until the first page is accessed.
func Open(catalog *pdf.Object) (*Collection, error) {
	catDict, err := catalog.GetDict()
	if err != nil {
		return nil, fmt.Errorf("document catalog: %w", err)
	}
	ref, ok := catDict.Get("Pages").TryGetReference()
	if !ok {
		return nil, pdf.Errorf("/Pages must be an indirect reference")
	}
	root := catDict.Find("Pages")
	if root == nil {
		return nil, fmt.Errorf("page tree root %s: %w", ref, pdf.ErrNoObject)
	}
	if err := root.DelayedLoad(); err != nil {
		return nil, err
	}
	rootDict, ok := root.TryGetDict()
	if !ok {
		return nil, pdf.Errorf("page tree root is not a dictionary")
	}
	c := newCollection(root, catalog)
	if !rootDict.IsType("Pages") {
		if rootDict.Has("Type") || !rootDict.Has("Kids") {
			return nil, pdf.Errorf("page tree root has wrong type")
		}
		c.log.Warn("page tree root without /Type", "ref", ref)
	}
	return c, nil
}

// New creates an empty page tree in list and installs it as the /Pages
// entry of catalog.
func New(list *pdf.ObjectList, catalog *pdf.Object) (*Collection, error) {
	catDict, err := catalog.GetDict()
	if err != nil {
		return nil, fmt.Errorf("document catalog: %w", err)
	}
	if err := catalog.AssertMutable(); err != nil {
		return nil, err
	}

	root := list.CreateObject(pdf.NewDict(
		pdf.Entry{Key: "Type", Value: pdf.Name("Pages")},
		pdf.Entry{Key: "Kids", Value: pdf.NewArray()},
		pdf.Entry{Key: "Count", Value: pdf.Integer(0)},
	))
	err = catDict.SetIndirect("Pages", root)
	if err != nil {
		return nil, err
	}

	c := newCollection(root, catalog)
	c.kids = root.Value().(*pdf.Dict).Get("Kids").Value().(*pdf.Array)
	c.loaded = true
	return c, nil
}

func newCollection(root, catalog *pdf.Object) *Collection {
	logger := discardLogger()
	if list := root.Owner(); list != nil {
		logger = list.Logger()
	}
	return &Collection{
		root:    root,
		catalog: catalog,
		log:     logger,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Root returns the root node of the page tree.
func (c *Collection) Root() *pdf.Object {
	return c.root
}

// IsFlat reports whether all pages are direct children of the root node.
func (c *Collection) IsFlat() bool {
	return c.kids != nil
}

// Count returns the number of pages in the document.
func (c *Collection) Count() (int, error) {
	err := c.load()
	if err != nil {
		return 0, err
	}
	return len(c.pages), nil
}

// PageAt returns the page with the given 0-based index.
func (c *Collection) PageAt(i int) (*Page, error) {
	err := c.load()
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= len(c.pages) {
		return nil, fmt.Errorf("page index %d, %d pages: %w",
			i, len(c.pages), pdf.ErrOutOfRange)
	}
	return c.pages[i], nil
}

// PageByReference returns the page with the given object reference.
func (c *Collection) PageByReference(ref pdf.Reference) (*Page, error) {
	err := c.load()
	if err != nil {
		return nil, err
	}
	for _, p := range c.pages {
		if p.obj.Reference() == ref {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", ref, pdf.ErrPageNotFound)
}

// Pages returns all pages, in order.
func (c *Collection) Pages() ([]*Page, error) {
	err := c.load()
	if err != nil {
		return nil, err
	}
	return slices.Clone(c.pages), nil
}

// CreatePage appends a new, empty page with the given media box.
func (c *Collection) CreatePage(mediaBox rect.Rect) (*Page, error) {
	n, err := c.Count()
	if err != nil {
		return nil, err
	}
	return c.CreatePageAt(n, mediaBox)
}

// CreatePageAt inserts a new, empty page at index i.
func (c *Collection) CreatePageAt(i int, mediaBox rect.Rect) (*Page, error) {
	pages, err := c.CreatePagesAt(i, 1, mediaBox)
	if err != nil {
		return nil, err
	}
	return pages[0], nil
}

// CreatePagesAt inserts n new, empty pages at index i.
func (c *Collection) CreatePagesAt(i, n int, mediaBox rect.Rect) ([]*Page, error) {
	err := c.load()
	if err != nil {
		return nil, err
	}
	if i < 0 || i > len(c.pages) || n < 0 {
		return nil, fmt.Errorf("insert %d pages at %d, %d pages: %w",
			n, i, len(c.pages), pdf.ErrOutOfRange)
	}
	err = c.root.AssertMutable()
	if err != nil {
		return nil, err
	}
	err = c.FlattenStructure()
	if err != nil {
		return nil, err
	}

	list := c.root.Owner()
	objs := make([]*pdf.Object, n)
	for k := range objs {
		objs[k] = list.CreateObject(pdf.NewDict(
			pdf.Entry{Key: "Type", Value: pdf.Name("Page")},
			pdf.Entry{Key: "Parent", Value: c.root.Reference()},
			pdf.Entry{Key: "MediaBox", Value: pdf.RectangleArray(mediaBox)},
			pdf.Entry{Key: "Resources", Value: pdf.NewDict()},
		))
	}
	err = c.InsertPagesAt(i, objs...)
	if err != nil {
		return nil, err
	}
	return slices.Clone(c.pages[i : i+n]), nil
}

// InsertPagesAt inserts existing page objects at index i.  The objects
// must be indirect page dictionaries belonging to the same document which
// are not yet part of the page tree.  Their /Parent entries are updated.
func (c *Collection) InsertPagesAt(i int, objs ...*pdf.Object) error {
	err := c.load()
	if err != nil {
		return err
	}
	if i < 0 || i > len(c.pages) {
		return fmt.Errorf("insert at %d, %d pages: %w",
			i, len(c.pages), pdf.ErrOutOfRange)
	}

	list := c.root.Owner()
	refs := make([]pdf.Value, len(objs))
	for k, obj := range objs {
		dict, err := obj.GetDict()
		if err != nil {
			return fmt.Errorf("new page %d: %w", k, err)
		}
		if !obj.IsIndirect() || obj.Owner() != list {
			return fmt.Errorf("new page %d: %w", k, pdf.ErrInvalidHandle)
		}
		if typ, ok := dict.FindName("Type"); ok && typ != "Page" {
			return fmt.Errorf("new page %d has type /%s: %w",
				k, typ, pdf.ErrInvalidDataType)
		}
		if c.indexOf(obj) >= 0 || slices.Index(objs[:k], obj) >= 0 {
			return fmt.Errorf("%s is already in the page tree: %w",
				obj.Reference(), pdf.ErrInvalidHandle)
		}
		err = obj.AssertMutable()
		if err != nil {
			return err
		}
		refs[k] = obj.Reference()
	}
	err = c.root.AssertMutable()
	if err != nil {
		return err
	}
	err = c.FlattenStructure()
	if err != nil {
		return err
	}

	rootRef := c.root.Reference()
	newPages := make([]*Page, len(objs))
	for k, obj := range objs {
		dict := obj.Value().(*pdf.Dict)
		if !dict.Has("Type") {
			dict.Set("Type", pdf.Name("Page"))
		}
		dict.Set("Parent", rootRef)
		newPages[k] = &Page{
			obj:       obj,
			coll:      c,
			ancestors: []*pdf.Dict{c.rootDict()},
		}
	}
	c.kids.Insert(i, refs...)
	c.pages = slices.Insert(c.pages, i, newPages...)
	c.reindex(i, len(c.pages))
	return c.updateCount()
}

// RemovePageAt removes the page with index i from the page tree.  The page
// object itself stays in the object list until the next garbage
// collection.  Since an /OpenAction of the document may refer to the
// removed page, the /OpenAction entry of the catalog is removed as well.
func (c *Collection) RemovePageAt(i int) error {
	err := c.load()
	if err != nil {
		return err
	}
	if i < 0 || i >= len(c.pages) {
		return fmt.Errorf("remove page %d, %d pages: %w",
			i, len(c.pages), pdf.ErrOutOfRange)
	}
	err = c.root.AssertMutable()
	if err != nil {
		return err
	}
	catDict, _ := c.catalog.TryGetDict()
	if catDict.Has("OpenAction") {
		err = c.catalog.AssertMutable()
		if err != nil {
			return err
		}
	}
	err = c.FlattenStructure()
	if err != nil {
		return err
	}

	p := c.pages[i]
	c.kids.RemoveAt(i)
	c.pages = slices.Delete(c.pages, i, i+1)
	p.detach()
	c.reindex(i, len(c.pages))
	err = c.updateCount()
	if err != nil {
		return err
	}
	if catDict.Has("OpenAction") {
		c.log.Debug("removing /OpenAction after page removal")
		return catDict.Remove("OpenAction")
	}
	return nil
}

// TryMovePageTo moves the page at index from to index to.  The pages in
// between shift by one position.  The result is false, and nothing is
// changed, if either index is out of range or if the tree cannot be
// modified.
func (c *Collection) TryMovePageTo(from, to int) bool {
	err := c.load()
	if err != nil {
		c.log.Warn("cannot move page", "error", err)
		return false
	}
	n := len(c.pages)
	if from < 0 || from >= n || to < 0 || to >= n {
		return false
	}
	if from == to {
		return true
	}
	err = c.FlattenStructure()
	if err != nil {
		c.log.Warn("cannot move page", "error", err)
		return false
	}
	err = c.kids.Rotate(from, to)
	if err != nil {
		return false
	}
	pdf.Rotate(c.pages, from, to)
	c.reindex(min(from, to), max(from, to)+1)
	return true
}

// FlattenStructure rewrites the page tree so that all pages are direct
// children of the root node.  Inherited attributes of intermediate nodes
// are copied into the page dictionaries, so that attribute lookups give
// the same results as before.  The intermediate nodes are no longer
// referenced afterwards; they are removed by the next garbage collection.
//
// Calling FlattenStructure on a flat tree has no effect.
func (c *Collection) FlattenStructure() error {
	if c.kids != nil {
		return nil
	}
	err := c.load()
	if err != nil {
		return err
	}
	rootDict := c.rootDict()

	if kids, ok := c.alreadyFlat(); ok {
		c.kids = kids
		return nil
	}

	err = c.root.AssertMutable()
	if err != nil {
		return err
	}
	for _, p := range c.pages {
		err = p.obj.AssertMutable()
		if err != nil {
			return err
		}
	}

	rootRef := c.root.Reference()
	kids := make([]pdf.Value, len(c.pages))
	for i, p := range c.pages {
		for _, key := range inheritable {
			p.copyInherited(key, rootDict)
		}
		p.obj.Value().(*pdf.Dict).Set("Parent", rootRef)
		p.ancestors = []*pdf.Dict{rootDict}
		kids[i] = p.obj.Reference()
	}
	err = rootDict.Set("Kids", pdf.NewArray(kids...))
	if err != nil {
		return err
	}
	c.kids = rootDict.Get("Kids").Value().(*pdf.Array)
	c.log.Debug("page tree flattened", "pages", len(c.pages))
	return c.updateCount()
}

// alreadyFlat checks whether the tree read from the file is flat and
// consistent, so that flattening can skip rewriting the root node.
func (c *Collection) alreadyFlat() (*pdf.Array, bool) {
	rootDict := c.rootDict()
	kids, ok := rootDict.Get("Kids").TryGetArray()
	if !ok || kids.Len() != len(c.pages) {
		return nil, false
	}
	if n, ok := rootDict.FindInteger("Count"); !ok || int(n) != len(c.pages) {
		return nil, false
	}
	rootRef := c.root.Reference()
	for i, p := range c.pages {
		ref, _ := kids.At(i).TryGetReference()
		if ref != p.obj.Reference() || len(p.ancestors) != 1 {
			return nil, false
		}
		parent, _ := p.obj.Value().(*pdf.Dict).Get("Parent").TryGetReference()
		if parent != rootRef {
			return nil, false
		}
	}
	return kids, true
}

func (c *Collection) rootDict() *pdf.Dict {
	d, _ := c.root.TryGetDict()
	return d
}

func (c *Collection) indexOf(obj *pdf.Object) int {
	for i, p := range c.pages {
		if p.obj == obj {
			return i
		}
	}
	return -1
}

// reindex updates the indices of the pages in the range [from, to).
func (c *Collection) reindex(from, to int) {
	for i := from; i < to; i++ {
		c.pages[i].index = i
	}
}

func (c *Collection) updateCount() error {
	return c.rootDict().Set("Count", pdf.Integer(len(c.pages)))
}

// load traverses the page tree, if this has not been done yet.
func (c *Collection) load() error {
	if c.loaded {
		return nil
	}

	limit := -1
	if n, ok := c.rootDict().FindInteger("Count"); ok && n >= 0 {
		limit = int(n)
	} else {
		c.log.Warn("page tree root has invalid /Count")
	}

	w := &walker{
		c:     c,
		limit: limit,
		seen:  make(map[*pdf.Object]bool),
	}
	err := w.visit(c.root, nil, 0)
	if err != nil && err != errLimitReached {
		c.pages = nil
		return pdf.Wrap(err, "page tree")
	}
	if limit >= 0 && len(c.pages) < limit {
		c.log.Warn("page tree has fewer pages than /Count",
			"count", limit, "found", len(c.pages))
	}
	c.loaded = true
	return nil
}

var errLimitReached = errors.New("page limit reached")

type walker struct {
	c     *Collection
	limit int
	seen  map[*pdf.Object]bool
}

// visit adds the pages below node to the collection.  The ancestors are
// the dictionaries of the enclosing /Pages nodes, outermost first.
func (w *walker) visit(node *pdf.Object, ancestors []*pdf.Dict, depth int) error {
	if depth > pdf.MaxDepth {
		return pdf.Errorf("page tree too deep")
	}
	dict, ok := node.TryGetDict()
	if !ok {
		return pdf.Errorf("%s: page tree node is not a dictionary", node.Reference())
	}

	tp, ok := dict.FindName("Type")
	if !ok {
		if dict.Has("Kids") {
			tp = "Pages"
		} else {
			tp = "Page"
		}
		w.c.log.Warn("page tree node without /Type",
			"ref", node.Reference(), "assumed", tp)
	}

	switch tp {
	case "Pages":
		if w.seen[node] {
			return pdf.Errorf("%s: cycle in page tree", node.Reference())
		}
		w.seen[node] = true

		kids, ok := dict.Find("Kids").TryGetArray()
		if !ok {
			return pdf.Errorf("%s: /Kids is not an array", node.Reference())
		}
		inner := append(slices.Clone(ancestors), dict)
		for i := 0; i < kids.Len(); i++ {
			ref, ok := kids.At(i).TryGetReference()
			if !ok {
				return pdf.Errorf("%s: /Kids entry %d is not a reference",
					node.Reference(), i)
			}
			kid := kids.Find(i)
			if kid != nil {
				if err := kid.DelayedLoad(); err != nil {
					return err
				}
			}
			if kid.IsNull() {
				w.c.log.Warn("skipping missing page tree node", "ref", ref)
				continue
			}
			err := w.visit(kid, inner, depth+1)
			if err != nil {
				return err
			}
		}
		return nil

	case "Page":
		if depth == 0 {
			return pdf.Errorf("page tree root is a page")
		}
		if w.seen[node] {
			w.c.log.Warn("skipping duplicate page", "ref", node.Reference())
			return nil
		}
		if w.limit >= 0 && len(w.c.pages) >= w.limit {
			return errLimitReached
		}
		w.seen[node] = true
		w.c.pages = append(w.c.pages, &Page{
			obj:       node,
			coll:      w.c,
			ancestors: ancestors,
			index:     len(w.c.pages),
		})
		return nil

	default:
		return pdf.Errorf("%s: unexpected page tree node type /%s",
			node.Reference(), tp)
	}
}
