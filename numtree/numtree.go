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


package numtree

import (
	"errors"
	"fmt"
	"iter"
	"sort"

	pdf "seehuhn.de/go/pdfedit"
)

// PDF 2.0 sections: 7.9.7

// ErrKeyNotFound is returned if a key is not present in a number tree.
var ErrKeyNotFound = fmt.Errorf("%w: key not found in number tree", pdf.ErrNoObject)

var errLoop = errors.New("number tree contains a loop")

// Tree is a number tree stored in a PDF file.
type Tree struct {
	root *pdf.Object
	dict *pdf.Dict
}

// Open returns a handle for the number tree with the given root node.
func Open(root *pdf.Object) (*Tree, error) {
	if root == nil {
		return nil, pdf.ErrInvalidHandle
	}
	err := root.DelayedLoad()
	if err != nil {
		return nil, err
	}
	dict, ok := root.TryGetDict()
	if !ok {
		return nil, pdf.Errorf("number tree root is not a dictionary")
	}
	return &Tree{root: root, dict: dict}, nil
}

// Create allocates a new, empty number tree in list.
func Create(list *pdf.ObjectList) *Tree {
	root := list.CreateObject(pdf.NewDict(pdf.Entry{Key: "Nums", Value: pdf.NewArray()}))
	dict, _ := root.GetDict()
	return &Tree{root: root, dict: dict}
}

// Object returns the root node of the tree.
func (t *Tree) Object() *pdf.Object {
	return t.root
}

type entry struct {
	key int
	val *pdf.Object // the element of the /Nums array, not resolved
}

// entries returns the entries of the tree in key order.  Keys which are not
// larger than the previous key are skipped.  The second return value lists
// the indirect intermediate and leaf nodes below the root.
func (t *Tree) entries() ([]entry, []pdf.Reference, error) {
	var res []entry
	var nodes []pdf.Reference

	seen := map[*pdf.Dict]bool{t.dict: true}
	type todoItem struct {
		dict  *pdf.Dict
		depth int
	}
	todo := []todoItem{{t.dict, 0}}
	for len(todo) > 0 {
		node := todo[len(todo)-1]
		todo = todo[:len(todo)-1]
		if node.depth > pdf.MaxDepth {
			return nil, nil, &pdf.MalformedFileError{Err: errLoop}
		}

		nums := node.dict.FindArray("Nums")
		for i := 0; i+1 < nums.Len(); i += 2 {
			key, ok := nums.Find(i).TryGetInteger()
			if !ok {
				continue
			}
			if len(res) == 0 || int(key) > res[len(res)-1].key {
				res = append(res, entry{key: int(key), val: nums.At(i + 1)})
			}
		}

		kids := node.dict.FindArray("Kids")
		for i := kids.Len() - 1; i >= 0; i-- {
			kid := kids.Find(i)
			kidDict, ok := kid.TryGetDict()
			if !ok {
				continue
			}
			if seen[kidDict] {
				return nil, nil, &pdf.MalformedFileError{Err: errLoop}
			}
			seen[kidDict] = true
			if kid.IsIndirect() {
				nodes = append(nodes, kid.Reference())
			}
			todo = append(todo, todoItem{kidDict, node.depth + 1})
		}
	}
	return res, nodes, nil
}

// Get returns the value stored under key.  References are resolved.
func (t *Tree) Get(key int) (*pdf.Object, error) {
	data, _, err := t.entries()
	if err != nil {
		return nil, err
	}
	idx := sort.Search(len(data), func(i int) bool {
		return data[i].key >= key
	})
	if idx == len(data) || data[idx].key != key {
		return nil, ErrKeyNotFound
	}
	return data[idx].val.Resolve(), nil
}

// First returns the smallest key in the tree.
func (t *Tree) First() (int, error) {
	data, _, err := t.entries()
	if err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, ErrKeyNotFound
	}
	return data[0].key, nil
}

// Next returns the smallest key which is larger than after.
func (t *Tree) Next(after int) (int, error) {
	data, _, err := t.entries()
	if err != nil {
		return 0, err
	}
	idx := sort.Search(len(data), func(i int) bool {
		return data[i].key > after
	})
	if idx == len(data) {
		return 0, ErrKeyNotFound
	}
	return data[idx].key, nil
}

// Floor returns the largest key which is less than or equal to key,
// together with the value stored under this key.
func (t *Tree) Floor(key int) (int, *pdf.Object, error) {
	data, _, err := t.entries()
	if err != nil {
		return 0, nil, err
	}
	idx := sort.Search(len(data), func(i int) bool {
		return data[i].key > key
	})
	if idx == 0 {
		return 0, nil, ErrKeyNotFound
	}
	e := data[idx-1]
	return e.key, e.val.Resolve(), nil
}

// All iterates over the entries of the tree in key order.  If the tree is
// malformed, the iteration stops early.
func (t *Tree) All() iter.Seq2[int, *pdf.Object] {
	return func(yield func(int, *pdf.Object) bool) {
		data, _, _ := t.entries()
		for _, e := range data {
			if !yield(e.key, e.val.Resolve()) {
				return
			}
		}
	}
}

// Len returns the number of entries in the tree.
func (t *Tree) Len() int {
	data, _, _ := t.entries()
	return len(data)
}
