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
	"sort"

	pdf "seehuhn.de/go/pdfedit"
)

// Set stores v under key.  An existing value for key is replaced.
func (t *Tree) Set(key int, v pdf.Value) error {
	data, nodes, err := t.entries()
	if err != nil {
		return err
	}
	err = t.root.AssertMutable()
	if err != nil {
		return err
	}
	idx := sort.Search(len(data), func(i int) bool {
		return data[i].key >= key
	})
	if idx < len(data) && data[idx].key == key && len(nodes) == 0 {
		return data[idx].val.SetValue(v)
	}

	vals := make([]pdf.Value, 0, 2*len(data)+2)
	for i, e := range data {
		if i == idx {
			vals = append(vals, pdf.Integer(key), v)
			if e.key == key {
				continue
			}
		}
		vals = append(vals, pdf.Integer(e.key), e.val.Value())
	}
	if idx == len(data) {
		vals = append(vals, pdf.Integer(key), v)
	}
	return t.rewrite(vals, nodes)
}

// Remove deletes the entry for key.  The return value reports whether
// the key was present.
func (t *Tree) Remove(key int) (bool, error) {
	data, nodes, err := t.entries()
	if err != nil {
		return false, err
	}
	idx := sort.Search(len(data), func(i int) bool {
		return data[i].key >= key
	})
	if idx == len(data) || data[idx].key != key {
		return false, nil
	}
	err = t.root.AssertMutable()
	if err != nil {
		return false, err
	}

	vals := make([]pdf.Value, 0, 2*len(data))
	for i, e := range data {
		if i != idx {
			vals = append(vals, pdf.Integer(e.key), e.val.Value())
		}
	}
	return true, t.rewrite(vals, nodes)
}

// rewrite turns the root into a leaf holding the given key/value pairs.
// The former intermediate nodes are removed from the object list.
func (t *Tree) rewrite(vals []pdf.Value, nodes []pdf.Reference) error {
	err := t.dict.Set("Nums", pdf.NewArray(vals...))
	if err != nil {
		return err
	}
	for _, key := range []pdf.Name{"Kids", "Limits"} {
		err = t.dict.Remove(key)
		if err != nil {
			return err
		}
	}
	if list := t.root.Owner(); list != nil {
		for _, ref := range nodes {
			list.Delete(ref)
		}
	}
	return nil
}
