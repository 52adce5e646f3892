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
	"log/slog"
	"math"
	"regexp"
	"strconv"

	"golang.org/x/exp/slices"
)

// ReaderOptions can be used to configure a Reader.
type ReaderOptions struct {
	// Logger receives warnings, for example when a damaged cross-reference
	// table is reconstructed.  If this is nil, the logger of the object
	// list is used.
	Logger *slog.Logger

	// ObjectStreamCacheSize is the number of decoded object streams kept
	// in memory.  The default is 8.
	ObjectStreamCacheSize int
}

// Reader reads the objects of a PDF file into an ObjectList.
//
// The objects are registered for delayed loading: the file is only read
// when an object is accessed for the first time.  The underlying
// io.ReaderAt must therefore stay valid while the list is in use.
type Reader struct {
	// Version is the PDF version from the file header.
	Version Version

	// ID is the file identifier from the trailer, or nil if the file has
	// no valid /ID.
	ID [][]byte

	r    io.ReaderAt
	size int64

	xref    map[uint32]*xRefEntry
	trailer *Dict

	startXRef      int64
	usesXRefStream bool
	recovered      bool

	// xrefStreams holds the object numbers of cross-reference streams.
	// These objects are not registered in the object list.
	xrefStreams map[uint32]bool

	objStreams *lruCache[*objStm]
	log        *slog.Logger

	// level guards against loops when /Length entries are resolved
	level int
}

// NewReader reads the cross-reference information of a PDF file and
// registers all objects in list.  Free object numbers from the file are
// added to the free list.
//
// If the cross-reference table is damaged, the reader tries to locate the
// objects by scanning the whole file.
func NewReader(data io.ReaderAt, size int64, list *ObjectList, opt *ReaderOptions) (*Reader, error) {
	if opt == nil {
		opt = &ReaderOptions{}
	}
	logger := opt.Logger
	if logger == nil {
		logger = list.Logger()
	}
	cacheSize := opt.ObjectStreamCacheSize
	if cacheSize <= 0 {
		cacheSize = 8
	}

	r := &Reader{
		r:           data,
		size:        size,
		xrefStreams: make(map[uint32]bool),
		objStreams:  newCache[*objStm](cacheSize),
		log:         logger,
	}

	s := r.scannerAt(0)
	version, err := s.readHeaderVersion()
	if err != nil {
		return nil, err
	}
	r.Version = version

	xref, trailer, err := r.readXRef()
	if err != nil {
		r.log.Warn("cannot read cross-reference table, scanning file",
			"error", err)
		var err2 error
		xref, trailer, err2 = r.reconstructXRef()
		if err2 != nil {
			return nil, err
		}
		r.recovered = true
		r.startXRef = 0
	}
	r.xref = xref
	r.trailer = trailer

	if trailer.Has("Encrypt") {
		return nil, ErrEncrypted
	}

	if ID, ok := trailer.Get("ID").TryGetArray(); ok && ID.Len() >= 2 {
		for i := 0; i < 2; i++ {
			s, ok := ID.At(i).TryGetString()
			if !ok {
				break
			}
			r.ID = append(r.ID, []byte(s))
		}
		if len(r.ID) != 2 {
			r.ID = nil
		}
	}

	nums := make([]uint32, 0, len(xref))
	for num := range xref {
		if num > 0 && num < math.MaxUint32 {
			nums = append(nums, num)
		}
	}
	slices.Sort(nums)
	for _, num := range nums {
		entry := xref[num]
		if entry.IsFree() {
			list.AddFree(NewReference(num, entry.Generation))
			continue
		}
		if r.xrefStreams[num] && entry.InStream == 0 {
			list.addFreeAfter(NewReference(num, entry.Generation))
			continue
		}
		_, err := list.AddDelayed(NewReference(num, entry.Generation), r.load)
		if err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Trailer returns a copy of the trailer dictionary.  Only the /Root,
// /Info and /ID entries are included.
func (r *Reader) Trailer() *Dict {
	return r.trailer.Copy()
}

// Size returns the size of the underlying file in bytes.
func (r *Reader) Size() int64 {
	return r.size
}

// UsesXRefStream reports whether the newest cross-reference section of the
// file is a cross-reference stream.
func (r *Reader) UsesXRefStream() bool {
	return r.usesXRefStream
}

// Recovered reports whether the cross-reference table was reconstructed
// because it was damaged.
func (r *Reader) Recovered() bool {
	return r.recovered
}

// WriteTo copies the unmodified file contents to w.
func (r *Reader) WriteTo(w io.Writer) (int64, error) {
	return io.Copy(w, io.NewSectionReader(r.r, 0, r.size))
}

// Close closes the underlying file, if it implements io.Closer.
func (r *Reader) Close() error {
	if closer, ok := r.r.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// load is the Loader used for all objects registered by the reader.
func (r *Reader) load(ref Reference) (Value, *Stream, error) {
	val, stm, err := r.get(ref)
	if err != nil {
		return nil, nil, Wrap(err, ref.String())
	}
	return val, stm, nil
}

// get reads an object from the file, bypassing the object list.
func (r *Reader) get(ref Reference) (Value, *Stream, error) {
	entry := r.xref[ref.Number()]
	if entry.IsFree() {
		return nil, nil, nil
	}

	if entry.InStream != 0 {
		val, err := r.getFromObjectStream(ref.Number(), entry.InStream, entry.Pos)
		return val, nil, err
	}
	if entry.Generation != ref.Generation() {
		return nil, nil, nil
	}

	s := r.scannerAt(entry.Pos)
	fileRef, val, stm, err := s.ReadIndirectObject()
	if err != nil {
		return nil, nil, err
	}
	if fileRef != ref {
		return nil, nil, &MalformedFileError{
			Pos: entry.Pos,
			Err: fmt.Errorf("xref corrupted: found %s instead of %s", fileRef, ref),
		}
	}
	return val, stm, nil
}

// getInt reads the integer value of a stream /Length entry.
func (r *Reader) getInt(v Value) (Integer, error) {
	switch v := v.(type) {
	case Integer:
		return v, nil
	case Reference:
		if r.level > 2 {
			return 0, Errorf("stream /Length refers to a stream")
		}
		r.level++
		val, _, err := r.get(v)
		r.level--
		if err != nil {
			return 0, err
		}
		if x, ok := val.(Integer); ok {
			return x, nil
		}
	}
	return 0, Errorf("invalid stream length %s", Format(v))
}

func (r *Reader) scannerAt(pos int64) *scanner {
	return newScanner(io.NewSectionReader(r.r, pos, r.size-pos), pos, r.getInt)
}

// attachStream stores v in a new detached object and attaches stm.
func attachStream(v Value, stm *Stream) *Object {
	obj := NewObject(v)
	if stm != nil {
		if _, isDict := obj.val.(*Dict); isDict {
			stm.obj = obj
			obj.stream = stm
		}
	}
	return obj
}

type objStm struct {
	data []byte

	// numbers and offs list the objects in the order of the stream header.
	// Offsets are relative to the start of data.
	numbers []uint32
	offs    []int
}

func (r *Reader) getObjStm(ref Reference) (*objStm, error) {
	if res, ok := r.objStreams.Get(ref); ok {
		return res, nil
	}

	entry := r.xref[ref.Number()]
	if entry.IsFree() || entry.InStream != 0 {
		return nil, Errorf("object stream %s not found", ref)
	}
	val, stm, err := r.get(ref)
	if err != nil {
		return nil, err
	}
	obj := attachStream(val, stm)
	dict, ok := obj.TryGetDict()
	if !ok || obj.stream == nil {
		return nil, &MalformedFileError{
			Pos: entry.Pos,
			Err: errors.New("wrong type for object stream"),
		}
	}

	N, ok := dict.Get("N").TryGetInteger()
	if !ok || N < 0 || N > 100_000 {
		return nil, &MalformedFileError{
			Pos: entry.Pos,
			Err: errors.New("no valid /N for ObjStm"),
		}
	}
	first, ok := dict.Get("First").TryGetInteger()
	if !ok || first < 0 {
		return nil, &MalformedFileError{
			Pos: entry.Pos,
			Err: errors.New("no valid /First for ObjStm"),
		}
	}

	data, err := obj.stream.Decode()
	if err != nil {
		return nil, Wrap(err, "object stream "+ref.String())
	}
	if int(first) > len(data) {
		return nil, &MalformedFileError{
			Pos: entry.Pos,
			Err: errors.New("no valid /First for ObjStm"),
		}
	}

	res := &objStm{
		data:    data,
		numbers: make([]uint32, N),
		offs:    make([]int, N),
	}
	s := newScanner(bytes.NewReader(data[:first]), 0, nil)
	for i := range int(N) {
		err = s.SkipWhiteSpace()
		if err != nil {
			return nil, err
		}
		no, err := s.ReadInteger()
		if err != nil {
			return nil, Wrap(err, "object stream "+ref.String())
		}
		err = s.SkipWhiteSpace()
		if err != nil {
			return nil, err
		}
		offs, err := s.ReadInteger()
		if err != nil {
			return nil, Wrap(err, "object stream "+ref.String())
		}
		if no <= 0 || no >= math.MaxUint32 || offs < 0 || int(first+offs) > len(data) {
			return nil, &MalformedFileError{
				Pos: entry.Pos,
				Err: errors.New("invalid ObjStm header"),
			}
		}
		res.numbers[i] = uint32(no)
		res.offs[i] = int(first + offs)
	}

	r.objStreams.Put(ref, res)
	return res, nil
}

func (r *Reader) getFromObjectStream(number uint32, sRef Reference, idx int64) (Value, error) {
	contents, err := r.getObjStm(sRef)
	if err != nil {
		return nil, err
	}

	k := int(idx)
	if idx < 0 || k >= len(contents.numbers) || contents.numbers[k] != number {
		// The index is only a hint; some writers get it wrong.
		k = slices.Index(contents.numbers, number)
	}
	if k < 0 {
		return nil, Errorf("object %d missing from object stream %s", number, sRef)
	}

	s := newScanner(bytes.NewReader(contents.data[contents.offs[k]:]), 0, nil)
	err = s.SkipWhiteSpace()
	if err != nil {
		return nil, err
	}
	return s.ReadObject()
}

var objHeader = regexp.MustCompile(`\b(\d{1,10})\s+(\d{1,5})\s+obj\b`)

// reconstructXRef locates all objects by scanning the file for object
// headers.  Later definitions of an object number win.  The trailer is
// taken from "trailer" dictionaries and cross-reference streams; if no
// /Root is found, the first catalog dictionary in the file is used.
func (r *Reader) reconstructXRef() (map[uint32]*xRefEntry, *Dict, error) {
	data := make([]byte, r.size)
	n, err := r.r.ReadAt(data, 0)
	if err != nil && err != io.EOF {
		return nil, nil, err
	}
	data = data[:n]

	xref := make(map[uint32]*xRefEntry)
	for _, m := range objHeader.FindAllSubmatchIndex(data, -1) {
		num, err1 := strconv.ParseUint(string(data[m[2]:m[3]]), 10, 32)
		gen, err2 := strconv.ParseUint(string(data[m[4]:m[5]]), 10, 16)
		if err1 != nil || err2 != nil || num == 0 || num == math.MaxUint32 {
			continue
		}
		xref[uint32(num)] = &xRefEntry{
			Pos:        int64(m[2]),
			Generation: uint16(gen),
		}
	}
	if len(xref) == 0 {
		return nil, nil, Errorf("no objects found")
	}
	r.xref = xref

	trailer := NewDict()
	merge := func(dict *Dict) {
		for _, key := range []Name{"Root", "Encrypt", "Info", "ID"} {
			if val := dict.Get(key); val != nil && !trailer.Has(key) {
				trailer.set(key, val.val)
			}
		}
	}

	pos := len(data)
	for {
		idx := bytes.LastIndex(data[:pos], []byte("trailer"))
		if idx < 0 {
			break
		}
		s := r.scannerAt(int64(idx + 7))
		if s.SkipWhiteSpace() == nil {
			if dict, err := s.ReadDict(); err == nil {
				merge(dict)
			}
		}
		pos = idx
	}

	nums := make([]uint32, 0, len(xref))
	for num := range xref {
		nums = append(nums, num)
	}
	slices.Sort(nums)
	var catalog Reference
	for i := len(nums) - 1; i >= 0; i-- {
		num := nums[i]
		ref := NewReference(num, xref[num].Generation)
		val, _, err := r.get(ref)
		if err != nil {
			continue
		}
		dict, ok := val.(*Dict)
		if !ok {
			continue
		}
		switch {
		case dict.IsType("XRef"):
			merge(dict)
		case dict.IsType("Catalog"):
			catalog = ref
		case dict.IsType("ObjStm"):
			stm, err := r.getObjStm(ref)
			if err != nil {
				continue
			}
			for k, inner := range stm.numbers {
				if xref[inner] == nil {
					xref[inner] = &xRefEntry{InStream: ref, Pos: int64(k)}
				}
			}
		}
	}
	if !trailer.Has("Root") {
		if catalog == 0 {
			catalog = r.findCatalogInStreams(xref)
		}
		if catalog != 0 {
			trailer.set("Root", catalog)
		}
	}

	return xref, trailer, nil
}

func (r *Reader) findCatalogInStreams(xref map[uint32]*xRefEntry) Reference {
	nums := make([]uint32, 0, len(xref))
	for num, entry := range xref {
		if entry.InStream != 0 {
			nums = append(nums, num)
		}
	}
	slices.Sort(nums)
	for _, num := range nums {
		ref := NewReference(num, 0)
		val, _, err := r.get(ref)
		if err != nil {
			continue
		}
		if dict, ok := val.(*Dict); ok && dict.IsType("Catalog") {
			return ref
		}
	}
	return 0
}
