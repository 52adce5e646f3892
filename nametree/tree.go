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


package nametree

import (
	"errors"
	"fmt"
	"iter"

	pdf "seehuhn.de/go/pdfedit"
)

// ErrKeyNotFound is returned by [Tree.Lookup] if a key is not present.
var ErrKeyNotFound = fmt.Errorf("%w: key not found in name tree", pdf.ErrNoObject)

var errLoop = errors.New("name tree contains a loop")

// maxEntries is the number of key-value pairs in a leaf, and the number of
// children of an intermediate node, above which the node is split.
const maxEntries = 32

// Tree is a name tree stored in a PDF file.
type Tree struct {
	root *pdf.Object
	dict *pdf.Dict
}

// OpenTree returns a handle for the name tree with the given root node.
func OpenTree(root *pdf.Object) (*Tree, error) {
	if root == nil {
		return nil, pdf.ErrInvalidHandle
	}
	err := root.DelayedLoad()
	if err != nil {
		return nil, err
	}
	dict, ok := root.TryGetDict()
	if !ok {
		return nil, pdf.Errorf("name tree root is not a dictionary")
	}
	return &Tree{root: root, dict: dict}, nil
}

// Create allocates a new, empty name tree in list.
func Create(list *pdf.ObjectList) *Tree {
	root := list.CreateObject(pdf.NewDict(pdf.Entry{Key: "Names", Value: pdf.NewArray()}))
	dict, _ := root.GetDict()
	return &Tree{root: root, dict: dict}
}

// Object returns the root node of the tree.
func (t *Tree) Object() *pdf.Object {
	return t.root
}

// Lookup returns the value stored under key.  References are resolved.
// If the key is not present, [ErrKeyNotFound] is returned.
func (t *Tree) Lookup(key string) (*pdf.Object, error) {
	return t.lookup(t.dict, key, 0, make(map[*pdf.Dict]bool))
}

func (t *Tree) lookup(node *pdf.Dict, key string, depth int, seen map[*pdf.Dict]bool) (*pdf.Object, error) {
	if seen[node] || depth > pdf.MaxDepth {
		return nil, &pdf.MalformedFileError{Err: errLoop}
	}
	seen[node] = true

	if names := node.FindArray("Names"); names != nil {
		i, found := searchNames(names, key)
		if !found {
			return nil, ErrKeyNotFound
		}
		val := names.At(i + 1).Resolve()
		if val == nil {
			return nil, fmt.Errorf("%w: dangling value for key %q", pdf.ErrNoObject, key)
		}
		return val, nil
	}

	kids := node.FindArray("Kids")
	for j := 0; j < kids.Len(); j++ {
		kid, ok := kids.Find(j).TryGetDict()
		if !ok {
			continue
		}
		if lo, hi, ok := limitsOf(kid); ok && (key < lo || key > hi) {
			continue
		}
		val, err := t.lookup(kid, key, depth+1, seen)
		if !errors.Is(err, ErrKeyNotFound) {
			return val, err
		}
	}
	return nil, ErrKeyNotFound
}

// All iterates over all entries of the tree, in the order in which they
// are stored.  Malformed nodes are skipped.
func (t *Tree) All() iter.Seq2[string, *pdf.Object] {
	return func(yield func(string, *pdf.Object) bool) {
		t.yieldFrom(t.dict, 0, make(map[*pdf.Dict]bool), yield)
	}
}

func (t *Tree) yieldFrom(node *pdf.Dict, depth int, seen map[*pdf.Dict]bool, yield func(string, *pdf.Object) bool) bool {
	if seen[node] || depth > pdf.MaxDepth {
		return true
	}
	seen[node] = true

	if names := node.FindArray("Names"); names != nil {
		for i := 0; i+1 < names.Len(); i += 2 {
			key, ok := names.Find(i).TryGetString()
			if !ok {
				continue
			}
			if !yield(string(key), names.At(i+1).Resolve()) {
				return false
			}
		}
		return true
	}

	kids := node.FindArray("Kids")
	for j := 0; j < kids.Len(); j++ {
		kid, ok := kids.Find(j).TryGetDict()
		if !ok {
			continue
		}
		if !t.yieldFrom(kid, depth+1, seen, yield) {
			return false
		}
	}
	return true
}

// Len returns the number of entries in the tree.
func (t *Tree) Len() int {
	n := 0
	for range t.All() {
		n++
	}
	return n
}

// Add stores v under key.  An existing value for the same key is
// replaced.
func (t *Tree) Add(key string, v pdf.Value) error {
	path, err := t.path(key)
	if err != nil {
		return err
	}
	leaf := path[len(path)-1].dict

	names := leaf.FindArray("Names")
	if names == nil {
		if err := leaf.Remove("Kids"); err != nil {
			return err
		}
		if err := leaf.Set("Names", pdf.NewArray()); err != nil {
			return err
		}
		names = leaf.FindArray("Names")
	}

	i, found := searchNames(names, key)
	if found {
		err = names.Set(i+1, v)
	} else {
		err = names.Insert(i, pdf.String(key), v)
	}
	if err != nil {
		return err
	}

	for i := len(path) - 1; i >= 0; i-- {
		err := t.split(path, i)
		if err != nil {
			return err
		}
		if i > 0 {
			err = setLimits(path[i].dict)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// Remove deletes the entry for key.  The return value reports whether the
// key was present.  Nodes which become empty are removed from the tree.
func (t *Tree) Remove(key string) (bool, error) {
	path, err := t.path(key)
	if err != nil {
		return false, err
	}
	names := path[len(path)-1].dict.FindArray("Names")
	i, found := searchNames(names, key)
	if !found {
		return false, nil
	}
	err = names.RemoveRange(i, i+2)
	if err != nil {
		return false, err
	}

	for len(path) > 1 {
		n := path[len(path)-1]
		if !isEmpty(n.dict) {
			break
		}
		err := path[len(path)-2].dict.FindArray("Kids").RemoveAt(n.index)
		if err != nil {
			return false, err
		}
		if list := n.obj.Owner(); list != nil && n.obj.IsIndirect() {
			list.Delete(n.obj.Reference())
		}
		path = path[:len(path)-1]
	}
	for i := len(path) - 1; i > 0; i-- {
		err := setLimits(path[i].dict)
		if err != nil {
			return false, err
		}
	}

	if len(path) == 1 && isEmpty(t.dict) && t.dict.Has("Kids") {
		err := t.dict.Remove("Kids")
		if err == nil {
			err = t.dict.Set("Names", pdf.NewArray())
		}
		if err != nil {
			return false, err
		}
	}
	return true, nil
}

type pathEntry struct {
	obj   *pdf.Object
	dict  *pdf.Dict
	index int // position in the /Kids array of the parent
}

// path returns the nodes from the root to the leaf in which key is, or
// should be, stored.
func (t *Tree) path(key string) ([]pathEntry, error) {
	path := []pathEntry{{obj: t.root, dict: t.dict, index: -1}}
	seen := map[*pdf.Dict]bool{t.dict: true}
	for {
		cur := path[len(path)-1].dict
		if cur.Has("Names") {
			return path, nil
		}
		kids := cur.FindArray("Kids")
		chosen := -1
		var chosenObj *pdf.Object
		var chosenDict *pdf.Dict
		for j := 0; j < kids.Len(); j++ {
			obj := kids.Find(j)
			kid, ok := obj.TryGetDict()
			if !ok {
				continue
			}
			chosen, chosenObj, chosenDict = j, obj, kid
			if _, hi, ok := limitsOf(kid); !ok || key <= hi {
				break
			}
		}
		if chosen < 0 {
			// an empty node becomes a leaf
			return path, nil
		}
		if seen[chosenDict] || len(path) > pdf.MaxDepth {
			return nil, &pdf.MalformedFileError{Err: errLoop}
		}
		seen[chosenDict] = true
		path = append(path, pathEntry{obj: chosenObj, dict: chosenDict, index: chosen})
	}
}

// split divides path[i] into two nodes, if it has grown too large.
func (t *Tree) split(path []pathEntry, i int) error {
	node := path[i]
	key := pdf.Name("Kids")
	limit := maxEntries
	if node.dict.Has("Names") {
		key = "Names"
		limit = 2 * maxEntries
	}
	arr := node.dict.FindArray(key)
	if arr.Len() <= limit {
		return nil
	}

	list := node.obj.Owner()
	if list == nil {
		return pdf.ErrInvalidHandle
	}
	vals := arr.Values()
	half := len(vals) / 2
	if key == "Names" {
		half &^= 1
	}
	first := pdf.NewArray(vals[:half]...)
	second := pdf.NewArray(vals[half:]...)

	sibling := list.CreateObject(pdf.NewDict(pdf.Entry{Key: key, Value: second}))
	siblingDict, _ := sibling.GetDict()
	err := setLimits(siblingDict)
	if err != nil {
		return err
	}

	if i == 0 {
		// The root keeps its object; both halves move into new children.
		child := list.CreateObject(pdf.NewDict(pdf.Entry{Key: key, Value: first}))
		childDict, _ := child.GetDict()
		err := setLimits(childDict)
		if err != nil {
			return err
		}
		err = node.dict.Remove(key)
		if err != nil {
			return err
		}
		return node.dict.Set("Kids", pdf.NewArray(child.Reference(), sibling.Reference()))
	}

	err = node.dict.Set(key, first)
	if err != nil {
		return err
	}
	return path[i-1].dict.FindArray("Kids").Insert(node.index+1, sibling.Reference())
}

// searchNames returns the position of key in a /Names array.  If the key
// is not present, the position where it should be inserted is returned.
func searchNames(names *pdf.Array, key string) (int, bool) {
	n := names.Len() &^ 1
	for i := 0; i < n; i += 2 {
		k, ok := names.Find(i).TryGetString()
		if !ok {
			continue
		}
		switch {
		case string(k) == key:
			return i, true
		case string(k) > key:
			return i, false
		}
	}
	return n, false
}

func limitsOf(node *pdf.Dict) (lo, hi string, ok bool) {
	limits := node.FindArray("Limits")
	if limits.Len() != 2 {
		return "", "", false
	}
	a, ok1 := limits.Find(0).TryGetString()
	b, ok2 := limits.Find(1).TryGetString()
	return string(a), string(b), ok1 && ok2
}

func computeLimits(node *pdf.Dict) (lo, hi string, ok bool) {
	if names := node.FindArray("Names"); names != nil {
		n := names.Len() &^ 1
		if n == 0 {
			return "", "", false
		}
		a, ok1 := names.Find(0).TryGetString()
		b, ok2 := names.Find(n - 2).TryGetString()
		return string(a), string(b), ok1 && ok2
	}

	kids := node.FindArray("Kids")
	var haveLo, haveHi bool
	for j := 0; j < kids.Len() && !haveLo; j++ {
		if kid, ok := kids.Find(j).TryGetDict(); ok {
			lo, _, haveLo = limitsOf(kid)
		}
	}
	for j := kids.Len() - 1; j >= 0 && !haveHi; j-- {
		if kid, ok := kids.Find(j).TryGetDict(); ok {
			_, hi, haveHi = limitsOf(kid)
		}
	}
	return lo, hi, haveLo && haveHi
}

// setLimits updates the /Limits entry of an intermediate or leaf node.
func setLimits(node *pdf.Dict) error {
	lo, hi, ok := computeLimits(node)
	if !ok {
		return node.Remove("Limits")
	}
	if oldLo, oldHi, ok := limitsOf(node); ok && oldLo == lo && oldHi == hi {
		return nil
	}
	return node.Set("Limits", pdf.NewArray(pdf.String(lo), pdf.String(hi)))
}

func isEmpty(node *pdf.Dict) bool {
	return node.FindArray("Names").Len() < 2 && node.FindArray("Kids").Len() == 0
}
