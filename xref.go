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
	"errors"
	"fmt"
	"io"
	"math"
	"math/bits"
	"strconv"
)

// xRefEntry describes the location of an object in a PDF file.
type xRefEntry struct {
	// InStream is the reference of the object stream which contains the
	// object, or 0 if the object is stored directly in the file.
	InStream Reference

	// Pos is the byte offset of the object in the file, or the index in
	// the object stream if InStream is set.  Free entries have Pos < 0.
	Pos int64

	Generation uint16
}

// IsFree reports whether the entry describes a free object number.
func (entry *xRefEntry) IsFree() bool {
	return entry == nil || entry.Pos < 0
}

type xRefSubSection struct {
	Start, Size int
}

func (r *Reader) findXRef() (int64, error) {
	pos, err := r.lastOccurence("startxref")
	if err != nil {
		return 0, err
	}
	s := r.scannerAt(pos + 9)

	err = s.SkipWhiteSpace()
	if err != nil {
		return 0, err
	}
	xRefPos, err := s.ReadInteger()
	if err != nil {
		return 0, err
	}

	if xRefPos <= 0 || int64(xRefPos) >= r.size {
		return 0, &MalformedFileError{
			Pos: s.currentPos(),
			Err: errors.New("invalid xref position"),
		}
	}

	return int64(xRefPos), nil
}

func (r *Reader) lastOccurence(pat string) (int64, error) {
	const chunkSize = 1024

	buf := make([]byte, chunkSize)
	k := int64(len(pat))
	pos := r.size
	for pos >= k {
		start := pos - chunkSize
		if start < 0 {
			start = 0
		}
		n, err := r.r.ReadAt(buf[:pos-start], start)
		if err != nil && err != io.EOF {
			return 0, err
		}

		idx := bytes.LastIndex(buf[:n], []byte(pat))
		if idx >= 0 {
			return start + int64(idx), nil
		}

		if start == 0 {
			break
		}
		pos = start + k - 1
	}
	return 0, &MalformedFileError{
		Err: fmt.Errorf("%q not found", pat),
	}
}

// readXRef reads all cross-reference sections of the file, following the
// /Prev chain.  Entries from newer sections take precedence.  The returned
// trailer combines the /Root, /Info, /ID and /Encrypt entries of all
// trailers, newest first.
func (r *Reader) readXRef() (map[uint32]*xRefEntry, *Dict, error) {
	start, err := r.findXRef()
	if err != nil {
		return nil, nil, err
	}
	r.startXRef = start

	xref := make(map[uint32]*xRefEntry)
	trailer := NewDict()
	first := true
	seen := make(map[int64]bool)
	for {
		// avoid xref loops
		if seen[start] {
			break
		}
		seen[start] = true

		s := r.scannerAt(start)

		buf, err := s.Peek(4)
		if err != nil {
			return nil, nil, err
		}
		var dict *Dict
		if bytes.Equal(buf, []byte("xref")) {
			dict, err = readXRefTable(xref, s)
			if err != nil {
				return nil, nil, err
			}

			if xRefStm := dict.Get("XRefStm"); xRefStm != nil {
				zStart, ok := xRefStm.TryGetInteger()
				if !ok || zStart <= 0 || int64(zStart) >= r.size {
					return nil, nil, &MalformedFileError{
						Pos: start,
						Err: errors.New("invalid /XRefStm"),
					}
				}
				_, err = r.readXRefStream(xref, r.scannerAt(int64(zStart)))
				if err != nil {
					return nil, nil, err
				}
			}
		} else {
			dict, err = r.readXRefStream(xref, s)
			if err != nil {
				return nil, nil, err
			}
			if first {
				r.usesXRefStream = true
			}
		}

		for _, key := range []Name{"Root", "Encrypt", "Info", "ID"} {
			val := dict.Get(key)
			if val != nil && !trailer.Has(key) {
				trailer.set(key, val.val)
			}
		}
		first = false

		prev := dict.Get("Prev")
		if prev == nil {
			break
		}
		prevStart, ok := prev.TryGetInteger()
		if !ok || prevStart <= 0 || int64(prevStart) >= r.size {
			return nil, nil, &MalformedFileError{
				Pos: start,
				Err: fmt.Errorf("invalid /Prev value %s", prev),
			}
		}
		start = int64(prevStart)
	}

	return xref, trailer, nil
}

func readXRefTable(xref map[uint32]*xRefEntry, s *scanner) (*Dict, error) {
	err := s.SkipString("xref")
	if err != nil {
		return nil, err
	}
	err = s.SkipWhiteSpace()
	if err != nil {
		return nil, err
	}

	for {
		buf, err := s.Peek(1)
		if err != nil {
			return nil, err
		}
		if len(buf) == 0 || buf[0] < '0' || buf[0] > '9' {
			break
		}

		start, err := s.ReadInteger()
		if err != nil {
			return nil, err
		}
		err = s.SkipWhiteSpace()
		if err != nil {
			return nil, err
		}
		length, err := s.ReadInteger()
		if err != nil {
			return nil, err
		}
		if start < 0 || length < 0 || start+length > math.MaxUint32 {
			return nil, s.malformed(errors.New("invalid xref subsection"))
		}
		err = s.SkipWhiteSpace()
		if err != nil {
			return nil, err
		}

		err = decodeXRefSection(xref, s, uint32(start), uint32(start+length))
		if err != nil {
			return nil, err
		}
		err = s.SkipWhiteSpace()
		if err != nil {
			return nil, err
		}
	}

	err = s.SkipString("trailer")
	if err != nil {
		return nil, err
	}
	err = s.SkipWhiteSpace()
	if err != nil {
		return nil, err
	}
	return s.ReadDict()
}

func decodeXRefSection(xref map[uint32]*xRefEntry, s *scanner, start, end uint32) error {
	for i := start; i < end; i++ {
		// Lines are meant to be 20 bytes long, but some writers use a
		// single end-of-line character.  We read the fields and then
		// skip white space.
		buf, err := s.Peek(18)
		if err != nil {
			return err
		}
		if len(buf) < 18 {
			return s.malformed(io.ErrUnexpectedEOF)
		}

		a, err := strconv.ParseInt(string(buf[:10]), 10, 64)
		if err != nil {
			return s.malformed(err)
		}
		b, err := strconv.ParseUint(string(buf[11:16]), 10, 16)
		c := buf[17]
		if err != nil {
			// fix a common error in some PDF files
			if bytes.HasPrefix(buf, []byte("0000000000 65536 ")) {
				b = 65535
				c = 'f'
			} else {
				return s.malformed(err)
			}
		}
		s.pos += 18
		err = s.SkipWhiteSpace()
		if err != nil {
			return err
		}

		if xref[i] != nil {
			continue
		}
		switch c {
		case 'f':
			xref[i] = &xRefEntry{
				Pos:        -1,
				Generation: uint16(b),
			}
		case 'n':
			xref[i] = &xRefEntry{
				Pos:        a,
				Generation: uint16(b),
			}
		default:
			return s.malformed(errors.New("malformed xref table"))
		}
	}
	return nil
}

func (r *Reader) readXRefStream(xref map[uint32]*xRefEntry, s *scanner) (*Dict, error) {
	ref, val, stm, err := s.ReadIndirectObject()
	if err != nil {
		return nil, err
	}
	r.xrefStreams[ref.Number()] = true
	dict, ok := val.(*Dict)
	if !ok || stm == nil {
		return nil, s.malformed(errors.New("invalid xref stream"))
	}
	// attach the stream, so that the filters can be found
	obj := NewObject(dict)
	dict = obj.val.(*Dict)
	stm.obj = obj
	obj.stream = stm

	w, ss, err := checkXRefStreamDict(dict)
	if err != nil {
		return nil, err
	}
	data, err := stm.Decode()
	if err != nil {
		return nil, Wrap(err, "xref stream")
	}
	err = decodeXRefStream(xref, bytes.NewReader(data), w, ss)
	if err != nil {
		return nil, err
	}

	return dict, nil
}

func checkXRefStreamDict(dict *Dict) ([]int, []*xRefSubSection, error) {
	size, ok := dict.Get("Size").TryGetInteger()
	if !ok || size < 0 {
		return nil, nil, Errorf("xref stream: invalid /Size")
	}
	W, ok := dict.Get("W").TryGetArray()
	if !ok || W.Len() < 3 {
		return nil, nil, Errorf("xref stream: invalid /W")
	}
	var w []int
	for i := range W.Len() {
		wi, ok := W.At(i).TryGetInteger()
		if !ok || wi < 0 || wi > 8 {
			return nil, nil, Errorf("xref stream: invalid /W")
		}
		w = append(w, int(wi))
	}

	var ss []*xRefSubSection
	ind, ok := dict.Get("Index").TryGetArray()
	if !ok {
		ss = append(ss, &xRefSubSection{0, int(size)})
	} else {
		if ind.Len()%2 != 0 {
			return nil, nil, Errorf("xref stream: invalid /Index")
		}
		for i := 0; i < ind.Len(); i += 2 {
			start, ok1 := ind.At(i).TryGetInteger()
			size, ok2 := ind.At(i + 1).TryGetInteger()
			if !ok1 || !ok2 || start < 0 || size < 0 || start+size > math.MaxUint32 {
				return nil, nil, Errorf("xref stream: invalid /Index")
			}
			ss = append(ss, &xRefSubSection{int(start), int(size)})
		}
	}
	return w, ss, nil
}

func decodeXRefStream(xref map[uint32]*xRefEntry, r io.Reader, w []int, ss []*xRefSubSection) error {
	wTotal := 0
	for _, wi := range w {
		wTotal += wi
	}
	buf := make([]byte, wTotal)

	w0 := w[0]
	w1 := w[1]
	w2 := w[2]
	for _, sec := range ss {
		for j := sec.Start; j < sec.Start+sec.Size; j++ {
			i := uint32(j)
			_, err := io.ReadFull(r, buf)
			if err != nil {
				return &MalformedFileError{Err: fmt.Errorf("xref stream: %w", err)}
			}

			if xref[i] != nil {
				continue
			}

			tp := decodeInt(buf[:w0])
			if w0 == 0 {
				tp = 1
			}
			a := decodeInt(buf[w0 : w0+w1])
			b := decodeInt(buf[w0+w1 : w0+w1+w2])
			switch tp {
			case 0:
				// free/deleted object
				// a = next free object
				// b = generation number to be used if the object is resurrected
				xref[i] = &xRefEntry{
					Pos:        -1,
					Generation: uint16(b),
				}
			case 1:
				// used object, not compressed
				// a = byte offset of the object
				// b = generation number
				xref[i] = &xRefEntry{
					Pos:        a,
					Generation: uint16(b),
				}
			case 2:
				// used object, compressed
				// a = object number of the compressed stream (generation number 0)
				// b = index within the stream
				if a <= 0 || a >= math.MaxUint32 {
					continue
				}
				xref[i] = &xRefEntry{
					Pos:      b,
					InStream: NewReference(uint32(a), 0),
				}
			}
		}
	}
	return nil
}

func decodeInt(buf []byte) (res int64) {
	for _, x := range buf {
		res = res<<8 | int64(x)
	}
	return res
}

// writeXRefTable writes a cross-reference table for the given entries,
// followed by the trailer dictionary.  Entries must be sorted by object
// number.  Free entries are chained through their Pos fields.
func writeXRefTable(w io.Writer, entries []xRefLine, trailer *Dict) error {
	_, err := io.WriteString(w, "xref\n")
	if err != nil {
		return err
	}
	for i := 0; i < len(entries); {
		j := i + 1
		for j < len(entries) && entries[j].Number == entries[j-1].Number+1 {
			j++
		}
		_, err = fmt.Fprintf(w, "%d %d\n", entries[i].Number, j-i)
		if err != nil {
			return err
		}
		for _, e := range entries[i:j] {
			c := 'n'
			if e.Free {
				c = 'f'
			}
			_, err = fmt.Fprintf(w, "%010d %05d %c\r\n", e.Pos, e.Generation, c)
			if err != nil {
				return err
			}
		}
		i = j
	}

	_, err = io.WriteString(w, "trailer\n")
	if err != nil {
		return err
	}
	err = trailer.PDF(w)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, "\n")
	return err
}

// xRefLine is one line of a cross-reference section, as written to the
// output file.  For free entries, Pos holds the next free object number.
type xRefLine struct {
	Number     uint32
	Pos        int64
	Generation uint16
	Free       bool
}

// encodeXRefStream encodes entries as the data of a cross-reference stream
// and stores /W, /Index and /Type in dict.
func encodeXRefStream(entries []xRefLine, dict *Dict) []byte {
	maxField2 := int64(0)
	maxField3 := uint16(0)
	for _, e := range entries {
		maxField2 = max(maxField2, e.Pos)
		maxField3 = max(maxField3, e.Generation)
	}
	w2 := max((bits.Len64(uint64(maxField2))+7)/8, 1)
	w3 := max((bits.Len16(maxField3)+7)/8, 1)

	index := NewArray()
	for i := 0; i < len(entries); {
		j := i + 1
		for j < len(entries) && entries[j].Number == entries[j-1].Number+1 {
			j++
		}
		index.elems = append(index.elems,
			index.newElem(Integer(entries[i].Number)),
			index.newElem(Integer(j-i)))
		i = j
	}

	data := &bytes.Buffer{}
	for _, e := range entries {
		if e.Free {
			data.WriteByte(0)
		} else {
			data.WriteByte(1)
		}
		encodeInt(data, uint64(e.Pos), w2)
		encodeInt(data, uint64(e.Generation), w3)
	}

	dict.set("Type", Name("XRef"))
	dict.set("W", NewArray(Integer(1), Integer(w2), Integer(w3)))
	dict.set("Index", index)
	return data.Bytes()
}

func encodeInt(data *bytes.Buffer, x uint64, w int) {
	for i := w - 1; i >= 0; i-- {
		data.WriteByte(byte(x >> (i * 8)))
	}
}
