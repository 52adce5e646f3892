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
	"golang.org/x/exp/slices"
)

// Dependencies returns the references of all indirect objects which can be
// reached from obj by following references.  The reference of obj itself
// is only included if obj can be reached from itself.  The result is
// sorted.  References to objects which are not in the list are ignored.
func (l *ObjectList) Dependencies(obj *Object) ([]Reference, error) {
	seen, err := l.reachable([]*Object{obj})
	if err != nil {
		return nil, err
	}
	res := make([]Reference, 0, len(seen))
	for ref := range seen {
		res = append(res, ref)
	}
	slices.SortFunc(res, CompareReferences)
	return res, nil
}

// reachable returns the set of indirect objects in l reachable from the
// given roots.  The roots themselves are not included, unless they are
// reachable from another root.
func (l *ObjectList) reachable(roots []*Object) (map[Reference]bool, error) {
	seen := make(map[Reference]bool)
	todo := make([]*Object, 0, len(roots))
	for _, root := range roots {
		if root != nil {
			todo = append(todo, root)
		}
	}

	var stack []Value
	for len(todo) > 0 {
		obj := todo[len(todo)-1]
		todo = todo[:len(todo)-1]

		err := obj.DelayedLoad()
		if err != nil {
			return nil, Wrap(err, obj.ref.String())
		}

		stack = append(stack[:0], obj.val)
		for len(stack) > 0 {
			v := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			switch v := v.(type) {
			case Reference:
				if seen[v] {
					continue
				}
				target := l.Get(v)
				if target == nil {
					continue
				}
				seen[v] = true
				todo = append(todo, target)
			case *Array:
				if v == nil {
					continue
				}
				for _, elem := range v.elems {
					stack = append(stack, elem.val)
				}
			case *Dict:
				if v == nil {
					continue
				}
				for _, key := range v.keys {
					stack = append(stack, v.m[key].val)
				}
			}
		}
	}
	return seen, nil
}

// CollectGarbage removes all objects which cannot be reached from the given
// roots, normally the trailer dictionary.  The object numbers of removed
// objects are added to the free list.  The function returns the number of
// objects removed.  If any reachable object fails to load, nothing is
// removed.
func (l *ObjectList) CollectGarbage(roots ...*Object) (int, error) {
	seen, err := l.reachable(roots)
	if err != nil {
		return 0, err
	}
	for _, root := range roots {
		if root.IsIndirect() {
			seen[root.ref] = true
		}
	}

	var unused []Reference
	for _, o := range l.objects {
		if !seen[o.ref] {
			unused = append(unused, o.ref)
		}
	}
	slices.SortFunc(unused, CompareReferences)
	for _, ref := range unused {
		l.Delete(ref)
	}
	if len(unused) > 0 {
		l.log.Debug("removed unreachable objects", "count", len(unused))
	}
	return len(unused), nil
}
