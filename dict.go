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
	"errors"
	"fmt"
	"io"

	"golang.org/x/exp/slices"
)

// Entry is a key/value pair, used to construct dictionaries.
type Entry struct {
	Key   Name
	Value Value
}

// Dict represent a Dictionary object in a PDF file.
//
// The values are stored as direct objects which belong to the dictionary.
// Keys are kept in insertion order; when the dictionary is written, the
// /Type key comes first.
type Dict struct {
	owner *Object
	keys  []Name
	m     map[Name]*Object
}

// NewDict returns a new, detached dictionary with the given entries.
func NewDict(entries ...Entry) *Dict {
	d := &Dict{
		m: make(map[Name]*Object, len(entries)),
	}
	for _, e := range entries {
		d.set(e.Key, e.Value)
	}
	return d
}

func (d *Dict) ownerObject() *Object { return d.owner }
func (d *Dict) setOwner(o *Object)   { d.owner = o }

// Owner returns the object which holds the dictionary, or nil if the
// dictionary is detached.
func (d *Dict) Owner() *Object {
	return d.owner
}

// Len returns the number of entries in the dictionary.
func (d *Dict) Len() int {
	if d == nil {
		return 0
	}
	return len(d.keys)
}

// Keys returns the keys of the dictionary in insertion order.
func (d *Dict) Keys() []Name {
	if d == nil {
		return nil
	}
	return slices.Clone(d.keys)
}

// Has reports whether the dictionary contains the given key.
func (d *Dict) Has(key Name) bool {
	if d == nil {
		return false
	}
	_, ok := d.m[key]
	return ok
}

// Get returns the object stored under key, without resolving references.
// The result is nil if the key is not present.
func (d *Dict) Get(key Name) *Object {
	if d == nil {
		return nil
	}
	return d.m[key]
}

// Set stores v under key.  Containers which already belong to another
// object are copied.
func (d *Dict) Set(key Name, v Value) error {
	err := d.assertMutable()
	if err != nil {
		return err
	}
	d.set(key, v)
	d.setDirty()
	return nil
}

func (d *Dict) set(key Name, v Value) {
	child := &Object{parent: d}
	child.val = child.adopt(v)
	if old, ok := d.m[key]; ok {
		old.parent = nil
	} else {
		d.keys = append(d.keys, key)
	}
	d.m[key] = child
}

// SetIndirect stores a reference to the indirect object obj under key.
func (d *Dict) SetIndirect(key Name, obj *Object) error {
	if !obj.IsIndirect() {
		return fmt.Errorf("%w: /%s must refer to an indirect object",
			ErrInvalidHandle, key)
	}
	return d.Set(key, obj.ref)
}

// Remove deletes the entry for key.  Removing a key which is not present
// is not an error.
func (d *Dict) Remove(key Name) error {
	old, ok := d.m[key]
	if !ok {
		return nil
	}
	err := d.assertMutable()
	if err != nil {
		return err
	}
	old.parent = nil
	delete(d.m, key)
	idx := slices.Index(d.keys, key)
	d.keys = slices.Delete(d.keys, idx, idx+1)
	d.setDirty()
	return nil
}

// Clear removes all entries from the dictionary.
func (d *Dict) Clear() error {
	if len(d.keys) == 0 {
		return nil
	}
	err := d.assertMutable()
	if err != nil {
		return err
	}
	for _, key := range d.keys {
		d.m[key].parent = nil
	}
	d.keys = nil
	d.m = make(map[Name]*Object)
	d.setDirty()
	return nil
}

// Find returns the object stored under key.  References are resolved.
// If the key is not present, or if the reference cannot be resolved,
// nil is returned.
func (d *Dict) Find(key Name) *Object {
	return d.Get(key).Resolve()
}

// MustFind is like Find, but returns ErrNoObject if no object is found.
func (d *Dict) MustFind(key Name) (*Object, error) {
	obj := d.Find(key)
	if obj == nil {
		return nil, fmt.Errorf("%w: key /%s", ErrNoObject, key)
	}
	return obj, nil
}

// FindParent looks up key in the dictionary and, if it is not found, in
// the dictionaries reachable via the /Parent chain.  This implements
// attribute inheritance.  The result is nil if the key is not found or if
// the /Parent chain is cyclic.
func (d *Dict) FindParent(key Name) *Object {
	obj, _ := d.findParent(key)
	return obj
}

// MustFindParent is like FindParent, but returns ErrNoObject if the key is
// not found and ErrBrokenFile if the /Parent chain is cyclic.
func (d *Dict) MustFindParent(key Name) (*Object, error) {
	obj, err := d.findParent(key)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: inherited key /%s", ErrNoObject, key)
	}
	return obj, nil
}

var errParentCycle = errors.New("cycle in /Parent chain")

func (d *Dict) findParent(key Name) (*Object, error) {
	seen := make(map[*Dict]bool)
	cur := d
	for depth := 0; cur != nil; depth++ {
		if obj := cur.Find(key); obj != nil {
			return obj, nil
		}
		if depth >= MaxDepth {
			return nil, &MalformedFileError{Err: errParentCycle, Loc: []string{"/" + string(key)}}
		}
		seen[cur] = true
		parent := cur.FindDict("Parent")
		if parent != nil && seen[parent] {
			return nil, &MalformedFileError{Err: errParentCycle, Loc: []string{"/" + string(key)}}
		}
		cur = parent
	}
	return nil, nil
}

// FindDict returns the dictionary stored under key, or nil.
func (d *Dict) FindDict(key Name) *Dict {
	res, _ := d.Find(key).TryGetDict()
	return res
}

// FindArray returns the array stored under key, or nil.
func (d *Dict) FindArray(key Name) *Array {
	res, _ := d.Find(key).TryGetArray()
	return res
}

// FindName returns the name stored under key.
func (d *Dict) FindName(key Name) (Name, bool) {
	return d.Find(key).TryGetName()
}

// FindInteger returns the integer stored under key.
func (d *Dict) FindInteger(key Name) (Integer, bool) {
	return d.Find(key).TryGetInteger()
}

// FindNumber returns the number stored under key, which may be an Integer
// or a Real.
func (d *Dict) FindNumber(key Name) (float64, bool) {
	return d.Find(key).TryGetNumber()
}

// FindString returns the string stored under key.
func (d *Dict) FindString(key Name) (String, bool) {
	return d.Find(key).TryGetString()
}

// FindBool returns the boolean stored under key.
func (d *Dict) FindBool(key Name) (Bool, bool) {
	return d.Find(key).TryGetBool()
}

// IsType reports whether the /Type entry of the dictionary equals typ.
func (d *Dict) IsType(typ Name) bool {
	val, ok := d.FindName("Type")
	return ok && val == typ
}

// Copy returns a detached deep copy of the dictionary.
func (d *Dict) Copy() *Dict {
	res := &Dict{
		keys: slices.Clone(d.keys),
		m:    make(map[Name]*Object, len(d.keys)),
	}
	for _, key := range d.keys {
		child := &Object{parent: res}
		child.val = child.adopt(copyValue(d.m[key].val))
		res.m[key] = child
	}
	return res
}

// Equal reports whether two dictionaries have the same keys and equal
// values.  The order of keys is not significant.
func (d *Dict) Equal(other *Dict) bool {
	if d.Len() != other.Len() {
		return false
	}
	for _, key := range d.Keys() {
		o2, ok := other.m[key]
		if !ok || !equalValues(d.m[key].val, o2.val) {
			return false
		}
	}
	return true
}

// PDF implements the Value interface.
func (d *Dict) PDF(w io.Writer) error {
	if d == nil {
		_, err := io.WriteString(w, "null")
		return err
	}

	_, err := io.WriteString(w, "<<")
	if err != nil {
		return err
	}

	keys := d.keys
	if idx := slices.Index(keys, "Type"); idx > 0 {
		keys = make([]Name, 0, len(d.keys))
		keys = append(keys, "Type")
		keys = append(keys, d.keys[:idx]...)
		keys = append(keys, d.keys[idx+1:]...)
	}
	for _, key := range keys {
		val := d.m[key].val
		if KindOf(val) == KindNull {
			continue
		}
		_, err = io.WriteString(w, "\n")
		if err != nil {
			return err
		}
		err = key.PDF(w)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, " ")
		if err != nil {
			return err
		}
		err = val.PDF(w)
		if err != nil {
			return err
		}
	}
	_, err = io.WriteString(w, "\n>>")
	return err
}

func (d *Dict) assertMutable() error {
	if d.owner == nil {
		return nil
	}
	return d.owner.AssertMutable()
}

func (d *Dict) setDirty() {
	if d.owner != nil {
		d.owner.SetDirty()
	}
}

// setDirect replaces the value stored under key without marking the owner
// as dirty.  This is used to fix up /Length entries during writing.
func (d *Dict) setDirect(key Name, v Value) {
	d.set(key, v)
}
