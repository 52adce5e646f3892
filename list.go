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
	"log/slog"
	"math"

	"golang.org/x/exp/slices"
)

// ListOptions can be used to configure a new ObjectList.
type ListOptions struct {
	// Logger receives warnings about recoverable problems, for example
	// objects which fail to load.  If this is nil, nothing is logged.
	Logger *slog.Logger

	// NoReuse disables the reuse of object numbers from the free list.
	// See ObjectList.SetCanReuseObjectNumbers.
	NoReuse bool
}

// ObjectList holds the indirect objects of a PDF document.
//
// The list allocates object numbers for new objects and keeps track of
// free object numbers.  Each document has its own list.
type ObjectList struct {
	objects map[uint32]*Object

	// next is the smallest object number above all numbers in use or
	// in the free list.
	next uint32

	// free holds reusable object numbers, sorted by number.  The
	// generation is the one to use when the number is reused.
	free []Reference

	// unavailable holds object numbers whose generation number is
	// exhausted.
	unavailable map[uint32]bool

	canReuse bool

	log *slog.Logger
}

// NewObjectList returns a new, empty object list.
func NewObjectList(opt *ListOptions) *ObjectList {
	if opt == nil {
		opt = &ListOptions{}
	}
	logger := opt.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ObjectList{
		objects:     make(map[uint32]*Object),
		next:        1,
		unavailable: make(map[uint32]bool),
		canReuse:    !opt.NoReuse,
		log:         logger,
	}
}

// Logger returns the logger used by the list.
func (l *ObjectList) Logger() *slog.Logger {
	return l.log
}

// Len returns the number of objects in the list.
func (l *ObjectList) Len() int {
	return len(l.objects)
}

// Size returns one more than the highest object number in use or in the
// free list.  This is the value of /Size in the cross-reference section.
func (l *ObjectList) Size() uint32 {
	return l.next
}

// SetCanReuseObjectNumbers controls whether object numbers from the free
// list are used for new objects.  This must be disabled for documents
// which are written as incremental updates.
func (l *ObjectList) SetCanReuseObjectNumbers(canReuse bool) {
	l.canReuse = canReuse
}

// CanReuseObjectNumbers reports whether free object numbers are reused.
func (l *ObjectList) CanReuseObjectNumbers() bool {
	return l.canReuse
}

// CreateObject creates a new indirect object holding v.
func (l *ObjectList) CreateObject(v Value) *Object {
	ref := l.allocate()
	o := &Object{ref: ref, list: l}
	o.val = o.adopt(v)
	o.dirty = true
	l.objects[ref.Number()] = o
	return o
}

// CreateDict creates a new indirect object holding a dictionary.
// If typ is not empty, the /Type entry of the dictionary is set.
func (l *ObjectList) CreateDict(typ Name) *Object {
	return l.CreateDictSubtype(typ, "")
}

// CreateDictSubtype creates a new indirect object holding a dictionary with
// the given /Type and /Subtype entries.  Empty names are omitted.
func (l *ObjectList) CreateDictSubtype(typ, subtype Name) *Object {
	d := NewDict()
	if typ != "" {
		d.set("Type", typ)
	}
	if subtype != "" {
		d.set("Subtype", subtype)
	}
	return l.CreateObject(d)
}

// CreateArray creates a new indirect object holding an empty array.
func (l *ObjectList) CreateArray() *Object {
	return l.CreateObject(NewArray())
}

func (l *ObjectList) allocate() Reference {
	if l.canReuse && len(l.free) > 0 {
		ref := l.free[0]
		l.free = slices.Delete(l.free, 0, 1)
		return ref
	}
	if l.next == math.MaxUint32 {
		panic("pdf: object numbers exhausted")
	}
	ref := NewReference(l.next, 0)
	l.next++
	return ref
}

// NewRootObject returns an object which belongs to l but which is not
// registered in the list.  This is used for the trailer dictionary.
func (l *ObjectList) NewRootObject(v Value) *Object {
	o := &Object{list: l}
	o.val = o.adopt(v)
	return o
}

// Get returns the object with the given reference, or nil if there is no
// such object.
func (l *ObjectList) Get(ref Reference) *Object {
	o := l.objects[ref.Number()]
	if o == nil || o.ref != ref {
		return nil
	}
	return o
}

// MustGet is like Get, but returns ErrNoObject if the object is missing.
func (l *ObjectList) MustGet(ref Reference) (*Object, error) {
	o := l.Get(ref)
	if o == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoObject, ref)
	}
	return o, nil
}

// Resolve returns the object a value refers to.  If v is a Reference, the
// referenced object is returned (or nil if it does not exist).  For all
// other values, a new detached object holding v is returned.
func (l *ObjectList) Resolve(v Value) *Object {
	ref, isRef := v.(Reference)
	if !isRef {
		return NewObject(v)
	}
	return l.Get(ref).Resolve()
}

// Put registers v under the given reference.  An existing object with the
// same object number is replaced and detached.
func (l *ObjectList) Put(ref Reference, v Value) (*Object, error) {
	o := &Object{}
	o.val = o.adopt(v)
	err := l.register(ref, o)
	if err != nil {
		return nil, err
	}
	o.dirty = true
	return o, nil
}

// AddDelayed registers an object under ref whose value will be obtained by
// calling load on first access.
func (l *ObjectList) AddDelayed(ref Reference, load Loader) (*Object, error) {
	o := &Object{load: load}
	err := l.register(ref, o)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (l *ObjectList) register(ref Reference, o *Object) error {
	num := ref.Number()
	if num == 0 || num == math.MaxUint32 {
		return fmt.Errorf("%w: invalid object number %d", ErrOutOfRange, num)
	}
	if old := l.objects[num]; old != nil {
		l.log.Debug("replacing object", "old", old.ref, "new", ref)
		old.list = nil
	}
	o.ref = ref
	o.list = l
	l.objects[num] = o
	if idx, found := l.findFree(num); found {
		l.free = slices.Delete(l.free, idx, idx+1)
	}
	if num >= l.next {
		l.next = num + 1
	}
	return nil
}

// Remove removes the object with the given reference from the list and
// returns it.  The object number is not added to the free list.  The
// result is nil if the object does not exist.
func (l *ObjectList) Remove(ref Reference) *Object {
	o := l.Get(ref)
	if o == nil {
		return nil
	}
	delete(l.objects, ref.Number())
	o.list = nil
	return o
}

// Delete removes the object with the given reference from the list and
// adds the object number to the free list, with the generation number
// increased by one.  The function reports whether an object was removed.
func (l *ObjectList) Delete(ref Reference) bool {
	if l.Remove(ref) == nil {
		return false
	}
	l.addFreeAfter(ref)
	return true
}

// addFreeAfter records that the object ref has been deleted.
func (l *ObjectList) addFreeAfter(ref Reference) {
	gen := ref.Generation()
	if gen == math.MaxUint16 {
		l.unavailable[ref.Number()] = true
		return
	}
	l.AddFree(NewReference(ref.Number(), gen+1))
}

// AddFree marks an object number as free.  The generation of ref is the
// generation to use when the number is reused.  Numbers with generation
// 65535 are never reused.  Numbers which are in use are ignored.
func (l *ObjectList) AddFree(ref Reference) {
	num := ref.Number()
	if num == 0 || l.objects[num] != nil {
		return
	}
	if num >= l.next {
		l.next = num + 1
	}
	if ref.Generation() == math.MaxUint16 {
		l.unavailable[num] = true
		return
	}
	if l.unavailable[num] {
		return
	}
	idx, found := l.findFree(num)
	if found {
		if l.free[idx].Generation() < ref.Generation() {
			l.free[idx] = ref
		}
		return
	}
	l.free = slices.Insert(l.free, idx, ref)
}

func (l *ObjectList) findFree(num uint32) (int, bool) {
	return slices.BinarySearchFunc(l.free, num, func(ref Reference, num uint32) int {
		switch {
		case ref.Number() < num:
			return -1
		case ref.Number() > num:
			return 1
		default:
			return 0
		}
	})
}

// FreeObjects returns the free object numbers, with the generation numbers
// to be used on reuse.
func (l *ObjectList) FreeObjects() []Reference {
	return slices.Clone(l.free)
}

// IsUnavailable reports whether an object number can never be used again
// because its generation number is exhausted.
func (l *ObjectList) IsUnavailable(num uint32) bool {
	return l.unavailable[num]
}

// References returns the references of all objects in the list, in
// increasing order.
func (l *ObjectList) References() []Reference {
	refs := make([]Reference, 0, len(l.objects))
	for _, o := range l.objects {
		refs = append(refs, o.ref)
	}
	slices.SortFunc(refs, CompareReferences)
	return refs
}

// Objects returns all objects in the list, ordered by reference.
func (l *ObjectList) Objects() []*Object {
	refs := l.References()
	res := make([]*Object, len(refs))
	for i, ref := range refs {
		res[i] = l.objects[ref.Number()]
	}
	return res
}

// ResetDirty clears the dirty flags of all objects in the list.
func (l *ObjectList) ResetDirty() {
	for _, o := range l.objects {
		o.ResetDirty()
	}
}

// SetImmutable marks all objects in the list as read-only, or makes them
// writable again.
func (l *ObjectList) SetImmutable(immutable bool) {
	for _, o := range l.objects {
		o.immutable = immutable
	}
}
