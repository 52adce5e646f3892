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
	"fmt"
	"io"

	"golang.org/x/exp/slices"
)

// Array represent an array of objects in a PDF file.
type Array struct {
	owner *Object
	elems []*Object
}

// NewArray returns a new, detached array holding the given values.
func NewArray(vals ...Value) *Array {
	a := &Array{
		elems: make([]*Object, 0, len(vals)),
	}
	for _, v := range vals {
		a.elems = append(a.elems, a.newElem(v))
	}
	return a
}

func (a *Array) ownerObject() *Object { return a.owner }
func (a *Array) setOwner(o *Object)   { a.owner = o }

func (a *Array) newElem(v Value) *Object {
	elem := &Object{parent: a}
	elem.val = elem.adopt(v)
	return elem
}

// Owner returns the object which holds the array, or nil if the array is
// detached.
func (a *Array) Owner() *Object {
	return a.owner
}

// Len returns the number of elements in the array.
func (a *Array) Len() int {
	if a == nil {
		return 0
	}
	return len(a.elems)
}

// At returns the element at index i, without resolving references.
// The result is nil if i is out of range.
func (a *Array) At(i int) *Object {
	if i < 0 || i >= a.Len() {
		return nil
	}
	return a.elems[i]
}

// Find returns the element at index i, resolving references.  The result
// is nil if i is out of range or if a reference cannot be resolved.
func (a *Array) Find(i int) *Object {
	return a.At(i).Resolve()
}

// MustFind is like Find, but returns an error instead of nil.
func (a *Array) MustFind(i int) (*Object, error) {
	if i < 0 || i >= a.Len() {
		return nil, fmt.Errorf("%w: index %d, array length %d",
			ErrOutOfRange, i, a.Len())
	}
	obj := a.Find(i)
	if obj == nil {
		return nil, fmt.Errorf("%w: array element %d (%s)",
			ErrNoObject, i, Format(a.elems[i].val))
	}
	return obj, nil
}

// Values returns the values of all elements, without resolving references.
func (a *Array) Values() []Value {
	res := make([]Value, a.Len())
	for i := range res {
		res[i] = a.elems[i].val
	}
	return res
}

// Append adds values at the end of the array.
func (a *Array) Append(vals ...Value) error {
	err := a.assertMutable()
	if err != nil {
		return err
	}
	for _, v := range vals {
		a.elems = append(a.elems, a.newElem(v))
	}
	a.setDirty()
	return nil
}

// AppendIndirect adds a reference to the indirect object obj at the end
// of the array.
func (a *Array) AppendIndirect(obj *Object) error {
	if !obj.IsIndirect() {
		return fmt.Errorf("%w: array element must be an indirect object",
			ErrInvalidHandle)
	}
	return a.Append(obj.ref)
}

// Insert inserts values at position i.  Use i == Len() to append.
func (a *Array) Insert(i int, vals ...Value) error {
	if i < 0 || i > a.Len() {
		return fmt.Errorf("%w: insert position %d, array length %d",
			ErrOutOfRange, i, a.Len())
	}
	err := a.assertMutable()
	if err != nil {
		return err
	}
	elems := make([]*Object, len(vals))
	for k, v := range vals {
		elems[k] = a.newElem(v)
	}
	a.elems = slices.Insert(a.elems, i, elems...)
	a.setDirty()
	return nil
}

// Set replaces the element at index i.
func (a *Array) Set(i int, v Value) error {
	if i < 0 || i >= a.Len() {
		return fmt.Errorf("%w: index %d, array length %d",
			ErrOutOfRange, i, a.Len())
	}
	err := a.assertMutable()
	if err != nil {
		return err
	}
	a.elems[i].parent = nil
	a.elems[i] = a.newElem(v)
	a.setDirty()
	return nil
}

// RemoveAt removes the element at index i.
func (a *Array) RemoveAt(i int) error {
	return a.RemoveRange(i, i+1)
}

// RemoveRange removes the elements with indices i, ..., j-1.
func (a *Array) RemoveRange(i, j int) error {
	if i < 0 || j > a.Len() || i > j {
		return fmt.Errorf("%w: range [%d,%d), array length %d",
			ErrOutOfRange, i, j, a.Len())
	}
	if i == j {
		return nil
	}
	err := a.assertMutable()
	if err != nil {
		return err
	}
	for _, elem := range a.elems[i:j] {
		elem.parent = nil
	}
	a.elems = slices.Delete(a.elems, i, j)
	a.setDirty()
	return nil
}

// Clear removes all elements.
func (a *Array) Clear() error {
	return a.RemoveRange(0, a.Len())
}

// Rotate moves the element at index from to index to, shifting the
// elements in between by one position.
func (a *Array) Rotate(from, to int) error {
	n := a.Len()
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("%w: move %d to %d, array length %d",
			ErrOutOfRange, from, to, n)
	}
	if from == to {
		return nil
	}
	err := a.assertMutable()
	if err != nil {
		return err
	}
	Rotate(a.elems, from, to)
	a.setDirty()
	return nil
}

// Rotate moves s[from] to position to, shifting the elements in between
// by one position.  Both indices must be valid for s.
func Rotate[T any](s []T, from, to int) {
	x := s[from]
	if from < to {
		copy(s[from:to], s[from+1:to+1])
	} else {
		copy(s[to+1:from+1], s[to:from])
	}
	s[to] = x
}

// IndexOf returns the index of the first element which holds v, or -1.
func (a *Array) IndexOf(v Value) int {
	for i, elem := range a.elems {
		if equalValues(elem.val, v) {
			return i
		}
	}
	return -1
}

// Copy returns a detached deep copy of the array.
func (a *Array) Copy() *Array {
	res := &Array{
		elems: make([]*Object, len(a.elems)),
	}
	for i, elem := range a.elems {
		res.elems[i] = res.newElem(copyValue(elem.val))
	}
	return res
}

// Equal reports whether two arrays have the same length and equal
// elements.
func (a *Array) Equal(other *Array) bool {
	if a.Len() != other.Len() {
		return false
	}
	for i := range a.Len() {
		if !equalValues(a.elems[i].val, other.elems[i].val) {
			return false
		}
	}
	return true
}

// PDF implements the Value interface.
func (a *Array) PDF(w io.Writer) error {
	if a == nil {
		_, err := io.WriteString(w, "null")
		return err
	}
	_, err := io.WriteString(w, "[")
	if err != nil {
		return err
	}
	for i, elem := range a.elems {
		if i > 0 {
			_, err = io.WriteString(w, " ")
			if err != nil {
				return err
			}
		}
		err = writeValue(w, elem.val)
		if err != nil {
			return err
		}
	}
	_, err = io.WriteString(w, "]")
	return err
}

func (a *Array) assertMutable() error {
	if a.owner == nil {
		return nil
	}
	return a.owner.AssertMutable()
}

func (a *Array) setDirty() {
	if a.owner != nil {
		a.owner.SetDirty()
	}
}
