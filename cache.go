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

// lruCache is a simple LRU cache, used by the reader to keep decoded
// object streams.
type lruCache[V any] struct {
	capacity    int
	entries     map[Reference]*cacheEntry[V]
	first, last *cacheEntry[V]
}

type cacheEntry[V any] struct {
	prev, next *cacheEntry[V]
	key        Reference
	val        V
}

// newCache creates a new LRU cache with the given capacity.
func newCache[V any](capacity int) *lruCache[V] {
	return &lruCache[V]{
		capacity: capacity,
		entries:  make(map[Reference]*cacheEntry[V], capacity),
	}
}

// Put adds a value to the cache.
func (l *lruCache[V]) Put(key Reference, val V) {
	if l.capacity <= 0 {
		return
	}

	if ent, ok := l.entries[key]; ok {
		ent.val = val
		l.moveToFront(ent)
		return
	}

	ent := &cacheEntry[V]{
		key: key,
		val: val,
	}
	l.entries[key] = ent
	l.moveToFront(ent)

	if len(l.entries) > l.capacity {
		l.removeLast()
	}
}

// Get returns a value from the cache and marks it as recently used.
func (l *lruCache[V]) Get(key Reference) (V, bool) {
	ent, ok := l.entries[key]
	if !ok {
		var zero V
		return zero, false
	}

	l.moveToFront(ent)
	return ent.val, true
}

// Has returns true if the cache contains the given key.
// The entry is not marked as recently used.
func (l *lruCache[V]) Has(key Reference) bool {
	_, ok := l.entries[key]
	return ok
}

func (l *lruCache[V]) moveToFront(ent *cacheEntry[V]) {
	if ent == l.first {
		return
	}

	if ent.prev != nil {
		ent.prev.next = ent.next
	}
	if ent.next != nil {
		ent.next.prev = ent.prev
	}
	if ent == l.last {
		l.last = ent.prev
	}

	ent.prev = nil
	ent.next = l.first
	if l.first != nil {
		l.first.prev = ent
	}
	l.first = ent
	if l.last == nil {
		l.last = ent
	}
}

func (l *lruCache[V]) removeLast() {
	last := l.last
	if last == nil {
		return
	}

	delete(l.entries, last.key)
	l.last = last.prev
	if l.last != nil {
		l.last.next = nil
	} else {
		l.first = nil
	}
}
