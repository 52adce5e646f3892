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

import "fmt"

// A Copier copies objects from one object list to another.  The Copier
// keeps track of the objects that have already been copied and ensures that
// each object is copied only once.
//
// Indirect objects are allocated in the target list as needed, and
// references are translated accordingly.
type Copier struct {
	trans   map[Reference]Reference
	exclude map[Reference]bool
	src     *ObjectList
	dst     *ObjectList
}

// NewCopier creates a new Copier which copies objects from src to dst.
func NewCopier(dst, src *ObjectList) *Copier {
	return &Copier{
		trans:   make(map[Reference]Reference),
		exclude: make(map[Reference]bool),
		src:     src,
		dst:     dst,
	}
}

// Copy returns a copy of v for use in the target list.  Containers are
// copied recursively, references are translated.  References to objects
// which do not exist, or which have been excluded, are replaced by null.
func (c *Copier) Copy(v Value) (Value, error) {
	switch x := v.(type) {
	case *Dict:
		return c.CopyDict(x, nil)
	case *Array:
		vals := make([]Value, len(x.elems))
		for i, elem := range x.elems {
			repl, err := c.Copy(elem.Value())
			if err != nil {
				return nil, err
			}
			vals[i] = repl
		}
		return NewArray(vals...), nil
	case Reference:
		if c.exclude[x] {
			return nil, nil
		}
		if c.src.Get(x) == nil {
			return nil, nil
		}
		return c.CopyReference(x)
	default:
		return v, nil
	}
}

// CopyDict copies a dictionary.  Keys listed in skip are omitted.
func (c *Copier) CopyDict(d *Dict, skip []Name) (*Dict, error) {
	res := NewDict()
keys:
	for _, key := range d.Keys() {
		for _, s := range skip {
			if key == s {
				continue keys
			}
		}
		repl, err := c.Copy(d.Get(key).Value())
		if err != nil {
			return nil, err
		}
		if repl != nil {
			res.set(key, repl)
		}
	}
	return res, nil
}

// CopyReference copies the indirect object ref, including its stream, and
// returns the reference of the copy.
func (c *Copier) CopyReference(ref Reference) (Reference, error) {
	if newRef, ok := c.trans[ref]; ok {
		return newRef, nil
	}
	obj, err := c.src.MustGet(ref)
	if err != nil {
		return 0, err
	}
	err = obj.DelayedLoad()
	if err != nil {
		return 0, err
	}

	// Allocate first, so that cyclic references terminate.
	out := c.dst.CreateObject(nil)
	c.trans[ref] = out.ref

	err = c.fill(out, obj, nil)
	if err != nil {
		return 0, err
	}
	return out.ref, nil
}

// CopyInto copies the value and the stream of the source object obj into
// the existing target object out.  Keys listed in skip are omitted from
// dictionaries.  Use Redirect first if references to obj should point to
// out.
func (c *Copier) CopyInto(out, obj *Object, skip ...Name) error {
	err := obj.DelayedLoad()
	if err != nil {
		return err
	}
	return c.fill(out, obj, skip)
}

func (c *Copier) fill(out, obj *Object, skip []Name) error {
	var val Value
	var err error
	if dict, ok := obj.val.(*Dict); ok {
		val, err = c.CopyDict(dict, skip)
	} else {
		val, err = c.Copy(obj.val)
	}
	if err != nil {
		return fmt.Errorf("copying %s: %w", obj.ref, err)
	}
	err = out.SetValue(val)
	if err != nil {
		return err
	}
	if obj.stream != nil {
		stm, err := out.GetOrCreateStream()
		if err != nil {
			return err
		}
		err = stm.SetRaw(obj.stream.Raw())
		if err != nil {
			return err
		}
	}
	return nil
}

// Redirect makes references to origRef in the source list translate to
// newRef in the target list.
func (c *Copier) Redirect(origRef, newRef Reference) {
	c.trans[origRef] = newRef
}

// Exclude causes references to ref to be replaced by null.
func (c *Copier) Exclude(ref Reference) {
	c.exclude[ref] = true
}
