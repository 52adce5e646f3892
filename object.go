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
	"bytes"
	"fmt"
)

// MaxDepth bounds the depth of all recursive walks over the object graph,
// for example along /Parent chains or through the page tree.  Exceeding
// the bound is reported as ErrBrokenFile.
const MaxDepth = 256

// maxRefDepth is the maximal length of a chain of references which is
// followed during resolution.
const maxRefDepth = 16

// Loader materialises the value and the stream of an object which was
// registered for delayed loading.  The returned stream may be nil.
type Loader func(ref Reference) (Value, *Stream, error)

// An Object is a node in the PDF object graph.
//
// An Object is either indirect, in which case it has a Reference and is
// registered in an ObjectList, or direct, in which case it is either
// detached or stored inside an Array or Dict.  Changes to a direct object
// mark the nearest indirect ancestor as dirty.
type Object struct {
	val    Value
	stream *Stream
	ref    Reference

	// list is set for indirect objects and for root objects like the
	// trailer.  All other objects find their list via the parent chain.
	list   *ObjectList
	parent container

	dirty     bool
	immutable bool

	load    Loader
	loadErr error
}

// container is implemented by *Array and *Dict.
type container interface {
	Value
	ownerObject() *Object
	setOwner(o *Object)
}

// NewObject returns a new, detached object holding v.
// If v is a container which already belongs to a different object,
// a deep copy of v is stored instead.
func NewObject(v Value) *Object {
	o := &Object{}
	o.val = o.adopt(v)
	return o
}

// adopt makes o the owner of v, if v is a container.  Containers which
// already have an owner, or which contain o, are copied first.
func (o *Object) adopt(v Value) Value {
	if KindOf(v) == KindNull {
		return nil
	}
	c, ok := v.(container)
	if !ok {
		return v
	}
	if owner := c.ownerObject(); owner != nil && owner != o || o.insideOf(c) {
		c = copyValue(v).(container)
	}
	c.setOwner(o)
	return c
}

func (o *Object) insideOf(c container) bool {
	for depth := 0; o != nil && depth < MaxDepth; depth++ {
		if o.parent == nil {
			return false
		}
		if o.parent == c {
			return true
		}
		o = o.parent.ownerObject()
	}
	return false
}

// copyValue returns a deep copy of v.  Copies of containers are detached.
func copyValue(v Value) Value {
	switch v := v.(type) {
	case *Array:
		return v.Copy()
	case *Dict:
		return v.Copy()
	default:
		return v
	}
}

// Reference returns the reference of an indirect object, or 0 for direct
// objects.
func (o *Object) Reference() Reference {
	if o == nil {
		return 0
	}
	return o.ref
}

// IsIndirect reports whether o is an indirect object.
func (o *Object) IsIndirect() bool {
	return o != nil && o.ref.IsIndirect()
}

// Owner returns the object list which o belongs to, or nil if o is
// detached.  For direct objects this is the list of the enclosing
// indirect object.
func (o *Object) Owner() *ObjectList {
	for depth := 0; o != nil && depth < MaxDepth; depth++ {
		if o.list != nil {
			return o.list
		}
		if o.parent == nil {
			return nil
		}
		o = o.parent.ownerObject()
	}
	return nil
}

// Parent returns the object owning the container which holds o, or nil if
// o is not stored in a container.
func (o *Object) Parent() *Object {
	if o == nil || o.parent == nil {
		return nil
	}
	return o.parent.ownerObject()
}

// Value returns the value stored in the object.  If the object was
// registered for delayed loading, the value is loaded first.  If loading
// fails, nil is returned and the error can be obtained from DelayedLoad.
func (o *Object) Value() Value {
	if o == nil {
		return nil
	}
	if o.load != nil {
		o.DelayedLoad()
	}
	return o.val
}

// Kind returns the kind of the value stored in the object.
func (o *Object) Kind() Kind {
	return KindOf(o.Value())
}

// IsNull reports whether o is nil or holds the null value.
func (o *Object) IsNull() bool {
	return o.Kind() == KindNull
}

// SetValue replaces the value of the object.  If the new value is not a
// dictionary, any stream attached to the object is removed.
func (o *Object) SetValue(v Value) error {
	if o == nil {
		return ErrInvalidHandle
	}
	err := o.AssertMutable()
	if err != nil {
		return err
	}
	if o.load != nil {
		// The old value is discarded, so a load failure is irrelevant here.
		o.DelayedLoad()
	}
	o.loadErr = nil

	old := o.val
	o.val = o.adopt(v)
	if c, ok := old.(container); ok && KindOf(old) != KindNull {
		if c.ownerObject() == o && c != o.val {
			c.setOwner(nil)
		}
	}
	if _, isDict := o.val.(*Dict); !isDict && o.stream != nil {
		o.stream.obj = nil
		o.stream = nil
	}
	o.SetDirty()
	return nil
}

// IsLoaded reports whether the value of the object is available.  This is
// false only for objects registered for delayed loading which have not
// been accessed yet.
func (o *Object) IsLoaded() bool {
	return o.load == nil
}

// DelayedLoad loads the value of an object registered for delayed loading.
// The loader runs at most once; the outcome of the first call is reported
// by all later calls.  Loading does not mark the object as dirty.
func (o *Object) DelayedLoad() error {
	if o.load == nil {
		return o.loadErr
	}
	load := o.load
	o.load = nil

	v, stm, err := load(o.ref)
	if err != nil {
		o.loadErr = err
		if l := o.Owner(); l != nil {
			l.log.Warn("cannot load object", "ref", o.ref, "error", err)
		}
		return err
	}
	o.val = o.adopt(v)
	if stm != nil {
		if _, isDict := o.val.(*Dict); isDict {
			stm.obj = o
			o.stream = stm
		}
	}
	return nil
}

// SetDirty marks the object as modified.  For direct objects, the nearest
// indirect ancestor is marked instead.
func (o *Object) SetDirty() {
	for depth := 0; o != nil && depth < MaxDepth; depth++ {
		if o.ref.IsIndirect() || o.parent == nil {
			o.dirty = true
			return
		}
		o = o.parent.ownerObject()
	}
}

// IsDirty reports whether the object was modified since the last call to
// ResetDirty.
func (o *Object) IsDirty() bool {
	return o != nil && o.dirty
}

// ResetDirty clears the dirty flag of the object and of all objects
// stored inside it.
func (o *Object) ResetDirty() {
	o.dirty = false
	switch v := o.val.(type) {
	case *Array:
		if v != nil {
			for _, elem := range v.elems {
				elem.ResetDirty()
			}
		}
	case *Dict:
		if v != nil {
			for _, key := range v.keys {
				v.m[key].ResetDirty()
			}
		}
	}
}

// SetImmutable marks the object as read-only, or makes it writable again.
// Direct objects stored inside an immutable object are read-only, too.
func (o *Object) SetImmutable(immutable bool) {
	o.immutable = immutable
}

// IsImmutable reports whether o was marked read-only using SetImmutable.
func (o *Object) IsImmutable() bool {
	return o != nil && o.immutable
}

// AssertMutable returns ErrImmutable if o, or the indirect object which
// contains o, is read-only.
func (o *Object) AssertMutable() error {
	for depth := 0; o != nil && depth < MaxDepth; depth++ {
		if o.immutable {
			if o.ref.IsIndirect() {
				return fmt.Errorf("%s: %w", o.ref, ErrImmutable)
			}
			return ErrImmutable
		}
		if o.ref.IsIndirect() || o.parent == nil {
			return nil
		}
		o = o.parent.ownerObject()
	}
	return nil
}

// Resolve follows references.  If o holds a Reference, the referenced
// object is returned, or nil if the reference cannot be resolved.
// Otherwise o itself is returned.
func (o *Object) Resolve() *Object {
	for i := 0; o != nil && i < maxRefDepth; i++ {
		ref, isRef := o.Value().(Reference)
		if !isRef {
			return o
		}
		l := o.Owner()
		if l == nil {
			return nil
		}
		o = l.Get(ref)
	}
	return nil
}

// Copy returns a detached deep copy of o.  The reference, the owner, the
// parent and the dirty flag are not copied.
func (o *Object) Copy() *Object {
	res := &Object{}
	res.val = res.adopt(copyValue(o.Value()))
	if o.stream != nil {
		res.stream = &Stream{obj: res, data: bytes.Clone(o.stream.data)}
	}
	return res
}

// Equal reports whether two objects are the same.  Indirect objects are
// equal if they have the same reference and owner; direct objects are
// equal if their values are equal.
func (o *Object) Equal(other *Object) bool {
	if o == nil || other == nil {
		return o == other
	}
	if o.ref.IsIndirect() || other.ref.IsIndirect() {
		return o.ref == other.ref && o.Owner() == other.Owner()
	}
	return equalValues(o.Value(), other.Value())
}

func (o *Object) String() string {
	if o == nil {
		return "<nil>"
	}
	if o.ref.IsIndirect() {
		return o.ref.String()
	}
	return Format(o.Value())
}

func tryGet[T Value](o *Object) (T, bool) {
	var zero T
	if o == nil {
		return zero, false
	}
	v, ok := o.Value().(T)
	if !ok || KindOf(v) == KindNull {
		return zero, false
	}
	return v, true
}

func getAs[T Value](o *Object, want Kind) (T, error) {
	var zero T
	if o == nil {
		return zero, ErrInvalidHandle
	}
	err := o.DelayedLoad()
	if err != nil {
		return zero, err
	}
	v, ok := o.val.(T)
	if !ok || KindOf(v) == KindNull {
		return zero, fmt.Errorf("%w: expected %s, got %s",
			ErrInvalidDataType, want, KindOf(o.val))
	}
	return v, nil
}

// TryGetBool returns the boolean value of o, if o holds a Bool.
func (o *Object) TryGetBool() (Bool, bool) { return tryGet[Bool](o) }

// GetBool returns the boolean value of o.
func (o *Object) GetBool() (Bool, error) { return getAs[Bool](o, KindBool) }

// TryGetInteger returns the integer value of o, if o holds an Integer.
func (o *Object) TryGetInteger() (Integer, bool) { return tryGet[Integer](o) }

// GetInteger returns the integer value of o.
func (o *Object) GetInteger() (Integer, error) { return getAs[Integer](o, KindInteger) }

// TryGetReal returns the value of o, if o holds a Real.
func (o *Object) TryGetReal() (Real, bool) { return tryGet[Real](o) }

// GetReal returns the value of o, which must be a Real.
func (o *Object) GetReal() (Real, error) { return getAs[Real](o, KindReal) }

// TryGetString returns the string value of o, if o holds a String.
func (o *Object) TryGetString() (String, bool) { return tryGet[String](o) }

// GetString returns the string value of o.
func (o *Object) GetString() (String, error) { return getAs[String](o, KindString) }

// TryGetName returns the name stored in o, if o holds a Name.
func (o *Object) TryGetName() (Name, bool) { return tryGet[Name](o) }

// GetName returns the name stored in o.
func (o *Object) GetName() (Name, error) { return getAs[Name](o, KindName) }

// TryGetReference returns the reference stored in o, if o holds a
// Reference.
func (o *Object) TryGetReference() (Reference, bool) { return tryGet[Reference](o) }

// GetReference returns the reference stored in o.
func (o *Object) GetReference() (Reference, error) {
	return getAs[Reference](o, KindReference)
}

// TryGetArray returns the array stored in o, if o holds an array.
func (o *Object) TryGetArray() (*Array, bool) { return tryGet[*Array](o) }

// GetArray returns the array stored in o.
func (o *Object) GetArray() (*Array, error) { return getAs[*Array](o, KindArray) }

// TryGetDict returns the dictionary stored in o, if o holds a dictionary.
func (o *Object) TryGetDict() (*Dict, bool) { return tryGet[*Dict](o) }

// GetDict returns the dictionary stored in o.
func (o *Object) GetDict() (*Dict, error) { return getAs[*Dict](o, KindDict) }

// TryGetNumber returns the value of o as a float64, if o holds an Integer
// or a Real.
func (o *Object) TryGetNumber() (float64, bool) {
	switch v := o.Value().(type) {
	case Integer:
		return float64(v), true
	case Real:
		return float64(v), true
	default:
		return 0, false
	}
}

// GetNumber returns the value of o as a float64.  Both Integer and Real
// values are accepted.
func (o *Object) GetNumber() (float64, error) {
	if o == nil {
		return 0, ErrInvalidHandle
	}
	err := o.DelayedLoad()
	if err != nil {
		return 0, err
	}
	x, ok := o.TryGetNumber()
	if !ok {
		return 0, fmt.Errorf("%w: expected number, got %s",
			ErrInvalidDataType, KindOf(o.val))
	}
	return x, nil
}

// HasStream reports whether a stream is attached to o.
func (o *Object) HasStream() bool {
	return o.Stream() != nil
}

// Stream returns the stream attached to o, or nil if there is none.
func (o *Object) Stream() *Stream {
	if o == nil {
		return nil
	}
	if o.load != nil {
		o.DelayedLoad()
	}
	return o.stream
}

// MustGetStream returns the stream attached to o.  If there is no stream,
// ErrInvalidHandle is returned.
func (o *Object) MustGetStream() (*Stream, error) {
	if o == nil {
		return nil, ErrInvalidHandle
	}
	err := o.DelayedLoad()
	if err != nil {
		return nil, err
	}
	if o.stream == nil {
		return nil, fmt.Errorf("%w: %s has no stream", ErrInvalidHandle, o)
	}
	return o.stream, nil
}

// GetOrCreateStream returns the stream attached to o, creating an empty
// stream if needed.  Only dictionaries can carry streams.
func (o *Object) GetOrCreateStream() (*Stream, error) {
	if o == nil {
		return nil, ErrInvalidHandle
	}
	err := o.DelayedLoad()
	if err != nil {
		return nil, err
	}
	if o.stream != nil {
		return o.stream, nil
	}
	if _, isDict := o.val.(*Dict); !isDict {
		return nil, fmt.Errorf("%w: streams require a dictionary, not %s",
			ErrInvalidDataType, KindOf(o.val))
	}
	err = o.AssertMutable()
	if err != nil {
		return nil, err
	}
	o.stream = &Stream{obj: o}
	o.SetDirty()
	return o.stream, nil
}

// RemoveStream detaches the stream from o, if any.
func (o *Object) RemoveStream() error {
	if o == nil {
		return ErrInvalidHandle
	}
	err := o.DelayedLoad()
	if err != nil {
		return err
	}
	if o.stream == nil {
		return nil
	}
	err = o.AssertMutable()
	if err != nil {
		return err
	}
	o.stream.obj = nil
	o.stream = nil
	o.SetDirty()
	return nil
}
