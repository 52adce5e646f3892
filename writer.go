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
	"cmp"
	"errors"
	"fmt"
	"io"
	"math"

	"golang.org/x/exp/slices"
)

// WriterOptions can be used to configure the output of Write and
// WriteUpdate.
type WriterOptions struct {
	// Version is the PDF version written in the file header.  If this is
	// zero, PDF 1.7 is used.  Ignored for incremental updates.
	Version Version

	// XRefStream selects a cross-reference stream instead of a
	// cross-reference table.  This requires PDF 1.5 or newer.  For
	// incremental updates, the format of the original file is used.
	XRefStream bool

	// ID, if set, replaces the file identifier in the trailer.  It must
	// consist of two byte strings.
	ID [][]byte
}

var errNoRoot = errors.New("trailer has no /Root entry")

// Write writes all objects in list as a complete PDF file.  The trailer
// dictionary must contain a /Root entry; /Size is filled in automatically.
//
// All objects are loaded before writing.  After a successful write, the
// dirty flags of all objects are cleared.
func Write(w io.Writer, list *ObjectList, trailer *Dict, opt *WriterOptions) error {
	if opt == nil {
		opt = &WriterOptions{}
	}
	if !trailer.Has("Root") {
		return errNoRoot
	}
	version := opt.Version
	if version == 0 {
		version = V1_7
	}
	if opt.XRefStream && version < V1_5 {
		return &VersionError{Operation: "cross-reference streams", Earliest: V1_5}
	}
	versionString, err := version.ToString()
	if err != nil {
		return err
	}

	pw := &posWriter{w: w}
	_, err = fmt.Fprintf(pw, "%%PDF-%s\n%%\x80\x80\x80\x80\n", versionString)
	if err != nil {
		return err
	}

	size := list.Size()
	pos := make(map[uint32]int64, list.Len())
	for _, obj := range list.Objects() {
		err := obj.DelayedLoad()
		if err != nil {
			return err
		}
		pos[obj.ref.Number()] = pw.pos
		err = writeObject(pw, obj)
		if err != nil {
			return err
		}
	}

	xrefNumber := size
	if opt.XRefStream {
		size++
	}

	var entries []xRefLine
	var free []int
	for num := uint32(0); num < size; num++ {
		if p, ok := pos[num]; ok {
			obj := list.objects[num]
			entries = append(entries, xRefLine{
				Number:     num,
				Pos:        p,
				Generation: obj.ref.Generation(),
			})
			continue
		}
		if opt.XRefStream && num == xrefNumber {
			// filled in below
			entries = append(entries, xRefLine{Number: num})
			continue
		}
		free = append(free, len(entries))
		entries = append(entries, xRefLine{
			Number:     num,
			Generation: freeGeneration(list, num),
			Free:       true,
		})
	}
	chainFree(entries, free)

	out := trailerDict(trailer, opt.ID)
	out.set("Size", Integer(size))
	err = finishFile(pw, entries, out, opt.XRefStream, xrefNumber)
	if err != nil {
		return err
	}
	list.ResetDirty()
	return nil
}

// WriteUpdate appends an incremental update to the file read by r.  The
// original bytes are copied unchanged, followed by all dirty objects and
// free entries for the objects which have been deleted since the file was
// read.  The list must have been filled by r.
//
// After a successful write, the dirty flags of all objects are cleared.
func WriteUpdate(w io.Writer, list *ObjectList, trailer *Dict, r *Reader, opt *WriterOptions) error {
	if opt == nil {
		opt = &WriterOptions{}
	}
	if !trailer.Has("Root") {
		return errNoRoot
	}
	if r.recovered {
		return errors.New("cannot update a file with a damaged cross-reference table")
	}

	pw := &posWriter{w: w}
	_, err := r.WriteTo(pw)
	if err != nil {
		return err
	}
	_, err = io.WriteString(pw, "\n")
	if err != nil {
		return err
	}

	var entries []xRefLine
	var free []int
	for _, obj := range list.Objects() {
		if !obj.IsDirty() {
			continue
		}
		err := obj.DelayedLoad()
		if err != nil {
			return err
		}
		entries = append(entries, xRefLine{
			Number:     obj.ref.Number(),
			Pos:        pw.pos,
			Generation: obj.ref.Generation(),
		})
		err = writeObject(pw, obj)
		if err != nil {
			return err
		}
	}

	for num, entry := range r.xref {
		if entry.IsFree() || num == 0 {
			continue
		}
		if obj := list.objects[num]; obj != nil {
			continue
		}
		entries = append(entries, xRefLine{
			Number:     num,
			Generation: freeGeneration(list, num),
			Free:       true,
		})
	}

	size := max(list.Size(), maxXRefNumber(r.xref)+1)
	useStream := r.usesXRefStream
	xrefNumber := size
	if useStream {
		entries = append(entries, xRefLine{Number: xrefNumber})
		size++
	}
	if len(entries) > 0 {
		entries = append(entries, xRefLine{Number: 0, Generation: math.MaxUint16, Free: true})
	}
	sortXRefLines(entries)
	for i, e := range entries {
		if e.Free {
			free = append(free, i)
		}
	}
	chainFree(entries, free)

	out := trailerDict(trailer, opt.ID)
	out.set("Size", Integer(size))
	out.set("Prev", Integer(r.startXRef))
	err = finishFile(pw, entries, out, useStream, xrefNumber)
	if err != nil {
		return err
	}
	list.ResetDirty()
	return nil
}

// finishFile writes the cross-reference section, the trailer and the end of
// file marker.  If xrefStream is set, the entry for xrefNumber is filled in
// with the position of the cross-reference stream.
func finishFile(pw *posWriter, entries []xRefLine, trailer *Dict, xrefStream bool, xrefNumber uint32) error {
	xRefPos := pw.pos
	var err error
	if xrefStream {
		for i := range entries {
			if entries[i].Number == xrefNumber && !entries[i].Free {
				entries[i].Pos = xRefPos
			}
		}
		obj := NewObject(trailer)
		obj.ref = NewReference(xrefNumber, 0)
		dict := obj.val.(*Dict)
		data := encodeXRefStream(entries, dict)
		data, err = encode(data, "FlateDecode")
		if err != nil {
			return err
		}
		dict.set("Filter", Name("FlateDecode"))
		obj.stream = &Stream{obj: obj, data: data}
		err = writeObject(pw, obj)
	} else {
		err = writeXRefTable(pw, entries, trailer)
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(pw, "startxref\n%d\n%%%%EOF\n", xRefPos)
	return err
}

// trailerDict returns the entries of the trailer which are carried over to
// the output file.
func trailerDict(trailer *Dict, id [][]byte) *Dict {
	out := NewDict()
	for _, key := range trailer.Keys() {
		switch key {
		case "Size", "Prev", "XRefStm", "Type", "W", "Index",
			"Filter", "DecodeParms", "Length", "Encrypt":
			continue
		}
		out.set(key, trailer.Get(key).Value())
	}
	if len(id) == 2 {
		out.set("ID", NewArray(String(id[0]), String(id[1])))
	}
	return out
}

// freeGeneration returns the generation number to record for a free object
// number.
func freeGeneration(list *ObjectList, num uint32) uint16 {
	if num == 0 || list.unavailable[num] {
		return math.MaxUint16
	}
	if idx, found := list.findFree(num); found {
		return list.free[idx].Generation()
	}
	return 0
}

// chainFree links the free entries into a list.  The entry for object 0
// is the head of the list, the last entry points back to 0.
func chainFree(entries []xRefLine, free []int) {
	for k, i := range free {
		next := uint32(0)
		if k+1 < len(free) {
			next = entries[free[k+1]].Number
		}
		entries[i].Pos = int64(next)
	}
}

func sortXRefLines(entries []xRefLine) {
	slices.SortFunc(entries, func(a, b xRefLine) int {
		return cmp.Compare(a.Number, b.Number)
	})
}

func maxXRefNumber(xref map[uint32]*xRefEntry) uint32 {
	var res uint32
	for num := range xref {
		res = max(res, num)
	}
	return res
}

// writeObject writes an indirect object, including its stream data.  The
// /Length entry of stream dictionaries is updated without marking the
// object as dirty.
func writeObject(w io.Writer, obj *Object) error {
	_, err := fmt.Fprintf(w, "%d %d obj\n", obj.ref.Number(), obj.ref.Generation())
	if err != nil {
		return err
	}
	if dict, isDict := obj.val.(*Dict); isDict && obj.stream != nil {
		dict.setDirect("Length", Integer(len(obj.stream.data)))
		err = dict.PDF(w)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, "\nstream\n")
		if err != nil {
			return err
		}
		_, err = w.Write(obj.stream.data)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, "\nendstream")
	} else {
		err = writeValue(w, obj.val)
	}
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, "\nendobj\n")
	return err
}

// VersionError is returned when a feature is not supported by the PDF
// version of the output file.
type VersionError struct {
	Operation string
	Earliest  Version
}

func (err *VersionError) Error() string {
	return fmt.Sprintf("%s requires PDF version %s or newer", err.Operation, err.Earliest)
}

type posWriter struct {
	w   io.Writer
	pos int64
}

func (w *posWriter) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	w.pos += int64(n)
	return n, err
}
