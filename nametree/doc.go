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


// Package nametree implements PDF name trees.
//
// Name trees serve a similar purpose to dictionaries, associating keys and
// values, but using string keys that are ordered lexicographically.  The
// data structure can represent an arbitrarily large collection of
// key-value pairs, split over many nodes, with efficient lookup.
//
// A [Tree] edits a name tree in place.  Lookups use the /Limits entries
// of intermediate nodes to find the responsible leaf.  New entries are
// inserted into the leaf /Names arrays in sorted order, and nodes which
// grow too large are split.  [Names] gives access to the trees in the
// /Names dictionary of the document catalog.
//
// PDF 2.0 sections: 7.9.6 7.7.4
package nametree
