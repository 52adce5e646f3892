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
	pdf "seehuhn.de/go/pdfedit"
)

// Keys of the name dictionary in the document catalog.
const (
	Dests                  pdf.Name = "Dests"
	AP                     pdf.Name = "AP"
	JavaScript             pdf.Name = "JavaScript"
	Pages                  pdf.Name = "Pages"
	Templates              pdf.Name = "Templates"
	IDS                    pdf.Name = "IDS"
	URLS                   pdf.Name = "URLS"
	EmbeddedFiles          pdf.Name = "EmbeddedFiles"
	AlternatePresentations pdf.Name = "AlternatePresentations"
	Renditions             pdf.Name = "Renditions"
)

// Names is the name dictionary of a document, which maps each kind of
// named object to a name tree.
type Names struct {
	obj  *pdf.Object
	dict *pdf.Dict
}

// Open returns a handle for an existing name dictionary.
func Open(obj *pdf.Object) (*Names, error) {
	if obj == nil {
		return nil, pdf.ErrInvalidHandle
	}
	err := obj.DelayedLoad()
	if err != nil {
		return nil, err
	}
	dict, ok := obj.TryGetDict()
	if !ok {
		return nil, pdf.Errorf("name dictionary is not a dictionary")
	}
	return &Names{obj: obj, dict: dict}, nil
}

// CreateNames allocates a new, empty name dictionary in list.
func CreateNames(list *pdf.ObjectList) *Names {
	obj := list.CreateDict("")
	dict, _ := obj.GetDict()
	return &Names{obj: obj, dict: dict}
}

// Object returns the name dictionary.
func (n *Names) Object() *pdf.Object {
	return n.obj
}

// Tree returns the name tree for the given kind, or nil if the document
// has no such tree.
func (n *Names) Tree(kind pdf.Name) (*Tree, error) {
	obj := n.dict.Find(kind)
	if obj == nil || obj.IsNull() {
		return nil, nil
	}
	t, err := OpenTree(obj)
	if err != nil {
		return nil, pdf.Wrap(err, "/"+string(kind))
	}
	return t, nil
}

// GetOrCreateTree returns the name tree for the given kind.  If the tree
// does not exist yet, a new, empty tree is created.
func (n *Names) GetOrCreateTree(kind pdf.Name) (*Tree, error) {
	t, err := n.Tree(kind)
	if err != nil || t != nil {
		return t, err
	}
	list := n.obj.Owner()
	if list == nil {
		return nil, pdf.ErrInvalidHandle
	}
	err = n.obj.AssertMutable()
	if err != nil {
		return nil, err
	}
	t = Create(list)
	err = n.dict.SetIndirect(kind, t.root)
	if err != nil {
		list.Delete(t.root.Reference())
		return nil, err
	}
	return t, nil
}

// Kinds returns the keys of all name trees present in the dictionary.
func (n *Names) Kinds() []pdf.Name {
	var res []pdf.Name
	for _, key := range n.dict.Keys() {
		if d, ok := n.dict.Find(key).TryGetDict(); ok && (d.Has("Names") || d.Has("Kids")) {
			res = append(res, key)
		}
	}
	return res
}
