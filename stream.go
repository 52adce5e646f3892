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
	"io"
)

// Stream holds the binary data attached to a dictionary object.
//
// The data is kept in encoded form, i.e. with the filters listed in the
// /Filter entry of the dictionary applied.  The /Length entry is managed
// automatically when the object is written.
type Stream struct {
	obj  *Object
	data []byte
}

// NewStream returns a stream holding the given encoded data.  This is used
// by Loader implementations; to attach a new stream to an object, use
// Object.GetOrCreateStream.
func NewStream(encoded []byte) *Stream {
	return &Stream{data: encoded}
}

// Object returns the object the stream is attached to.
func (s *Stream) Object() *Object {
	return s.obj
}

func (s *Stream) dict() *Dict {
	if s.obj == nil {
		return nil
	}
	d, _ := s.obj.val.(*Dict)
	return d
}

// Len returns the length of the encoded stream data.
func (s *Stream) Len() int {
	return len(s.data)
}

// Raw returns the encoded stream data.  The returned slice must not be
// modified.
func (s *Stream) Raw() []byte {
	return s.data
}

// SetRaw replaces the encoded stream data.  The filters listed in the
// stream dictionary are not changed.
func (s *Stream) SetRaw(encoded []byte) error {
	if s.obj != nil {
		err := s.obj.AssertMutable()
		if err != nil {
			return err
		}
	}
	s.data = encoded
	if s.obj != nil {
		s.obj.SetDirty()
	}
	return nil
}

// Filters returns the names of the filters listed in the stream
// dictionary, together with their parameter dictionaries.  Entries in
// parms may be nil.
func (s *Stream) Filters() (names []Name, parms []*Dict, err error) {
	d := s.dict()
	if d == nil {
		return nil, nil, nil
	}
	filter := d.Find("Filter")
	decodeParms := d.Find("DecodeParms")
	switch f := filter.Value().(type) {
	case nil:
		return nil, nil, nil
	case Name:
		names = []Name{f}
		p, _ := decodeParms.TryGetDict()
		parms = []*Dict{p}
	case *Array:
		pa, _ := decodeParms.TryGetArray()
		for i := range f.Len() {
			name, ok := f.Find(i).TryGetName()
			if !ok {
				return nil, nil, Errorf("invalid /Filter entry %s", Format(f))
			}
			names = append(names, name)
			p, _ := pa.Find(i).TryGetDict()
			parms = append(parms, p)
		}
	default:
		return nil, nil, Errorf("invalid /Filter entry %s", Format(f))
	}
	return names, parms, nil
}

// Decode returns the stream data with all filters removed.
func (s *Stream) Decode() ([]byte, error) {
	names, parms, err := s.Filters()
	if err != nil {
		return nil, err
	}
	data := s.data
	for i, name := range names {
		data, err = decode(data, name, parms[i])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	return data, nil
}

// Reader returns an io.Reader for the decoded stream data.
func (s *Stream) Reader() (io.Reader, error) {
	data, err := s.Decode()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

// SetData encodes data using the given filters and stores the result.  The
// /Filter entry of the stream dictionary is updated, and any /DecodeParms
// entry is removed.  The filters are listed in the order in which they must
// be applied for decoding.
func (s *Stream) SetData(data []byte, filters ...Name) error {
	d := s.dict()
	if d == nil {
		return fmt.Errorf("%w: stream is not attached to a dictionary", ErrInvalidHandle)
	}
	err := s.obj.AssertMutable()
	if err != nil {
		return err
	}

	encoded := data
	for i := len(filters) - 1; i >= 0; i-- {
		encoded, err = encode(encoded, filters[i])
		if err != nil {
			return fmt.Errorf("%s: %w", filters[i], err)
		}
	}

	switch len(filters) {
	case 0:
		err = d.Remove("Filter")
	case 1:
		err = d.Set("Filter", filters[0])
	default:
		arr := NewArray()
		for _, f := range filters {
			arr.elems = append(arr.elems, arr.newElem(f))
		}
		err = d.Set("Filter", arr)
	}
	if err != nil {
		return err
	}
	err = d.Remove("DecodeParms")
	if err != nil {
		return err
	}
	return s.SetRaw(encoded)
}
