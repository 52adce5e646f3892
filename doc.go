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

// Package pdf implements the object graph of a PDF file.
//
// A PDF file is a collection of indirect objects, held in an ObjectList.
// Each indirect object is an *Object with a Reference.  Objects hold
// values of the following types, all of which implement the Value
// interface:
//
//	Bool
//	Integer
//	Real
//	String
//	Name
//	*Array
//	*Dict
//	Reference
//	RawData
//
// The nil Value represents the PDF null object.  Dictionaries can carry a
// Stream.
//
// Arrays and dictionaries own their elements.  Every element is a direct
// *Object whose parent is the container, so that changes anywhere in the
// tree mark the enclosing indirect object as dirty.  References between
// indirect objects are explicit Reference values which are resolved
// through the ObjectList:
//
//	list := pdf.NewObjectList(nil)
//	font := list.CreateDict("Font")
//	res := list.CreateDict("")
//	dict, _ := res.GetDict()
//	dict.Set("F1", font.Reference())
//	obj := dict.Find("F1") // == font
//
// Existing files are read using NewReader, which registers all objects for
// delayed loading.  Write and WriteUpdate produce complete files and
// incremental updates, respectively.
//
// Higher level access to documents, including the page tree, is provided
// by the sub-packages.
package pdf
