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
	"strconv"
)

const scannerBufSize = 1024

// scanner reads PDF objects from an io.Reader.
type scanner struct {
	r         io.Reader
	buf       []byte
	used, pos int

	// getInt resolves the /Length entry of stream dictionaries.
	getInt func(Value) (Integer, error)

	// total is the file position of buf[0].
	total int64

	depth int
}

func newScanner(r io.Reader, base int64, getInt func(Value) (Integer, error)) *scanner {
	return &scanner{
		r:      r,
		buf:    make([]byte, scannerBufSize),
		getInt: getInt,
		total:  base,
	}
}

func (s *scanner) currentPos() int64 {
	return s.total + int64(s.pos)
}

func (s *scanner) malformed(err error) error {
	return &MalformedFileError{Pos: s.currentPos(), Err: err}
}

// ReadIndirectObject reads an object of the form "N G obj ... endobj".
// If the object is a stream, the stream data is returned, too.
func (s *scanner) ReadIndirectObject() (Reference, Value, *Stream, error) {
	// Some files point the xref entries at the end of the previous line.
	// Try to fix this up by skipping any leading white space.
	err := s.SkipWhiteSpace()
	if err != nil {
		return 0, nil, nil, err
	}

	number, err := s.ReadInteger()
	if err != nil {
		return 0, nil, nil, err
	}
	err = s.SkipWhiteSpace()
	if err != nil {
		return 0, nil, nil, err
	}
	generation, err := s.ReadInteger()
	if err != nil {
		return 0, nil, nil, err
	}
	if number < 0 || number >= math.MaxUint32 || generation < 0 || generation > math.MaxUint16 {
		return 0, nil, nil, s.malformed(fmt.Errorf("invalid object id %d %d", number, generation))
	}
	ref := NewReference(uint32(number), uint16(generation))

	err = s.SkipWhiteSpace()
	if err != nil {
		return 0, nil, nil, err
	}
	err = s.SkipString("obj")
	if err != nil {
		return 0, nil, nil, err
	}
	err = s.SkipWhiteSpace()
	if err != nil {
		return 0, nil, nil, err
	}

	obj, err := s.ReadObject()
	if err != nil {
		return 0, nil, nil, err
	}
	err = s.SkipWhiteSpace()
	if err != nil {
		return 0, nil, nil, err
	}

	var stm *Stream
	buf, _ := s.Peek(6)
	switch {
	case bytes.HasPrefix(buf, []byte("stream")):
		dict, ok := obj.(*Dict)
		if !ok {
			return 0, nil, nil, s.malformed(errors.New("stream without dictionary"))
		}
		stm, err = s.ReadStreamData(dict)
		if err != nil {
			return 0, nil, nil, err
		}
	case KindOf(obj) == KindInteger && !bytes.HasPrefix(buf, []byte("endobj")):
		// This could be a reference "a b R" as the top-level object.
		b, err := s.ReadInteger()
		if err != nil {
			return 0, nil, nil, err
		}
		err = s.SkipWhiteSpace()
		if err != nil {
			return 0, nil, nil, err
		}
		err = s.SkipString("R")
		if err != nil {
			return 0, nil, nil, err
		}
		obj, err = makeReference(obj.(Integer), b)
		if err != nil {
			return 0, nil, nil, s.malformed(err)
		}
	}

	err = s.SkipWhiteSpace()
	if err != nil {
		return 0, nil, nil, err
	}
	buf, _ = s.Peek(6)
	if bytes.Equal(buf, []byte("endobj")) {
		s.pos += 6
	}
	// A missing "endobj" is tolerated, since the object is complete.

	return ref, obj, stm, nil
}

func makeReference(a, b Integer) (Reference, error) {
	if a <= 0 || a >= math.MaxUint32 || b < 0 || b > math.MaxUint16 {
		return 0, fmt.Errorf("invalid reference %d %d R", a, b)
	}
	return NewReference(uint32(a), uint16(b)), nil
}

// ReadObject reads a direct object.  Integers which start a reference are
// returned as Integer; it is the caller's job to check for "a b R".
func (s *scanner) ReadObject() (Value, error) {
	buf, err := s.Peek(5) // len("false") == 5
	if err == nil {
		// Below, we return `err` if we cannot detect an object.
		if len(buf) < 5 {
			err = s.malformed(io.ErrUnexpectedEOF)
		} else {
			err = s.malformed(fmt.Errorf("unexpected %q", buf))
		}
	}

	switch {
	case len(buf) == 0:
		// Test this first, so that we can use buf[0] in the following cases.
		return nil, err
	case bytes.HasPrefix(buf, []byte("null")):
		s.pos += 4
		return nil, nil
	case bytes.HasPrefix(buf, []byte("true")):
		s.pos += 4
		return Bool(true), nil
	case bytes.HasPrefix(buf, []byte("false")):
		s.pos += 5
		return Bool(false), nil
	case buf[0] == '/':
		return s.ReadName()
	case buf[0] >= '0' && buf[0] <= '9', buf[0] == '+', buf[0] == '-', buf[0] == '.':
		return s.ReadNumber()
	case bytes.HasPrefix(buf, []byte("<<")):
		return s.ReadDict()
	case buf[0] == '(':
		s.pos++
		return s.ReadQuotedString()
	case buf[0] == '<':
		s.pos++
		return s.ReadHexString()
	case buf[0] == '[':
		s.pos++
		return s.ReadArray()
	}
	return nil, err
}

// ReadInteger reads an integer.
func (s *scanner) ReadInteger() (Integer, error) {
	first := true
	var res []byte
	err := s.ScanBytes(func(c byte) bool {
		if first && (c == '+' || c == '-') {
			res = append(res, c)
		} else if c >= '0' && c <= '9' {
			res = append(res, c)
		} else {
			return false
		}
		first = false
		return true
	})
	if err != nil {
		return 0, err
	}

	x, err := strconv.ParseInt(string(res), 10, 64)
	if err != nil {
		return 0, s.malformed(err)
	}
	return Integer(x), nil
}

// ReadNumber reads an integer or real number.
func (s *scanner) ReadNumber() (Value, error) {
	hasDot := false
	first := true
	var res []byte
	err := s.ScanBytes(func(c byte) bool {
		if !hasDot && c == '.' {
			hasDot = true
			res = append(res, c)
		} else if first && (c == '+' || c == '-') {
			res = append(res, c)
		} else if c >= '0' && c <= '9' {
			res = append(res, c)
		} else if c == '-' {
			// some writers produce numbers like "0.00-50"; ignore the junk
		} else {
			return false
		}
		first = false
		return true
	})
	if err != nil {
		return nil, err
	}

	if hasDot {
		if len(res) == 1 || len(res) == 2 && (res[0] == '+' || res[0] == '-') {
			return Real(0), nil
		}
		x, err := strconv.ParseFloat(string(res), 64)
		if err != nil {
			return nil, s.malformed(err)
		}
		return Real(x), nil
	}

	x, err := strconv.ParseInt(string(res), 10, 64)
	if err != nil {
		f, err2 := strconv.ParseFloat(string(res), 64)
		if err2 != nil {
			return nil, s.malformed(err)
		}
		return Real(f), nil
	}
	return Integer(x), nil
}

// ReadQuotedString reads a ()-delimited string, starting after the opening
// bracket.
func (s *scanner) ReadQuotedString() (String, error) {
	var res []byte
	parentCount := 0
	escape := false
	ignoreLF := false
	isOctal := 0
	octalVal := byte(0)
	err := s.ScanBytes(func(c byte) bool {
		if ignoreLF {
			ignoreLF = false
			if c == '\n' {
				return true
			}
		}
		if isOctal > 0 {
			if c >= '0' && c <= '7' {
				octalVal = octalVal*8 + (c - '0')
				isOctal--
				if isOctal == 0 {
					res = append(res, octalVal)
				}
				return true
			}
			res = append(res, octalVal)
			isOctal = 0
		}
		if escape {
			escape = false
			switch c {
			case '\n':
				return true
			case '\r':
				ignoreLF = true
				return true
			case 'n':
				c = '\n'
			case 'r':
				c = '\r'
			case 't':
				c = '\t'
			case 'b':
				c = '\b'
			case 'f':
				c = '\f'
			}
			if c >= '0' && c <= '7' {
				isOctal = 2
				octalVal = c - '0'
				return true
			}
		} else if c == '\\' {
			escape = true
			return true
		} else if c == '(' {
			parentCount++
		} else if c == ')' {
			if parentCount > 0 {
				parentCount--
			} else {
				return false
			}
		} else if c == '\r' {
			c = '\n'
			ignoreLF = true
		}
		res = append(res, c)
		return true
	})
	if err != nil {
		return nil, err
	}

	// If we reach the end of the file, the trailing ")" will be missing.
	s.SkipString(")")
	return String(res), nil
}

// ReadHexString reads a <>-delimited string, starting after the opening
// angled bracket.
func (s *scanner) ReadHexString() (String, error) {
	var res []byte
	var hexVal byte
	first := true
	err := s.ScanBytes(func(c byte) bool {
		var d byte
		if c >= '0' && c <= '9' {
			d = c - '0'
		} else if c >= 'A' && c <= 'F' {
			d = c - 'A' + 10
		} else if c >= 'a' && c <= 'f' {
			d = c - 'a' + 10
		} else if c == '>' {
			return false
		} else {
			return true
		}
		if first {
			hexVal = d
		} else {
			res = append(res, 16*hexVal+d)
		}
		first = !first
		return true
	})
	if err != nil {
		return nil, err
	}
	if !first {
		res = append(res, 16*hexVal)
	}

	// If we reach the end of the file, the trailing ">" will be missing.
	s.SkipString(">")

	return String(res), nil
}

// ReadName reads a PDF name object.
func (s *scanner) ReadName() (Name, error) {
	err := s.SkipString("/")
	if err != nil {
		return "", err
	}

	hex := 0
	var hexByte byte
	var res []byte
	err = s.ScanBytes(func(c byte) bool {
		if hex > 0 {
			var val byte
			if c >= '0' && c <= '9' {
				val = c - '0'
			} else if c >= 'A' && c <= 'F' {
				val = c - 'A' + 10
			} else if c >= 'a' && c <= 'f' {
				val = c - 'a' + 10
			} else {
				// not a valid escape; keep the '#' literally
				res = append(res, '#')
				hex = 0
				if isSpace[c] || isDelimiter[c] {
					return false
				}
				res = append(res, c)
				return true
			}
			hexByte = 16*hexByte + val
			hex--
			if hex == 0 {
				res = append(res, hexByte)
			}
		} else if c == '#' {
			hexByte = 0
			hex = 2
		} else if isSpace[c] || isDelimiter[c] {
			return false
		} else {
			res = append(res, c)
		}
		return true
	})
	if err != nil {
		return "", err
	}

	return Name(res), nil
}

func (s *scanner) enter() error {
	s.depth++
	if s.depth > MaxDepth {
		return s.malformed(errors.New("objects nested too deeply"))
	}
	return nil
}

// ReadArray reads an array, starting after the opening "[".
func (s *scanner) ReadArray() (*Array, error) {
	err := s.enter()
	if err != nil {
		return nil, err
	}
	defer func() { s.depth-- }()

	var vals []Value
	integersSeen := 0
	for {
		err := s.SkipWhiteSpace()
		if err != nil {
			return nil, err
		}

		buf, err := s.Peek(1)
		if err != nil {
			return nil, err
		}
		if len(buf) == 0 {
			return nil, s.malformed(io.ErrUnexpectedEOF)
		}
		if buf[0] == ']' {
			break
		}
		if integersSeen >= 2 && buf[0] == 'R' {
			s.pos++
			k := len(vals)
			ref, err := makeReference(vals[k-2].(Integer), vals[k-1].(Integer))
			if err != nil {
				return nil, s.malformed(err)
			}
			vals = append(vals[:k-2], ref)
			integersSeen = 0
			continue
		}

		obj, err := s.ReadObject()
		if err != nil {
			return nil, err
		}

		if _, isInt := obj.(Integer); isInt {
			integersSeen++
		} else {
			integersSeen = 0
		}

		vals = append(vals, obj)
	}
	s.pos++ // we have already seen the closing "]"

	return NewArray(vals...), nil
}

// ReadDict reads a PDF dictionary.
func (s *scanner) ReadDict() (*Dict, error) {
	err := s.enter()
	if err != nil {
		return nil, err
	}
	defer func() { s.depth-- }()

	err = s.SkipString("<<")
	if err != nil {
		return nil, err
	}
	err = s.SkipWhiteSpace()
	if err != nil {
		return nil, err
	}

	dict := NewDict()
	for {
		buf, err := s.Peek(2)
		if err != nil {
			return nil, err
		}
		if len(buf) == 0 {
			return nil, s.malformed(io.ErrUnexpectedEOF)
		}
		if buf[0] != '/' {
			break
		}

		key, err := s.ReadName()
		if err != nil {
			return nil, err
		}
		err = s.SkipWhiteSpace()
		if err != nil {
			return nil, err
		}

		val, err := s.ReadObject()
		if err != nil {
			return nil, err
		}
		err = s.SkipWhiteSpace()
		if err != nil {
			return nil, err
		}

		// If we found an integer, check whether this is a reference to an
		// indirect object.
		if a, isInt := val.(Integer); isInt {
			buf, err := s.Peek(1)
			if err != nil {
				return nil, err
			}
			if len(buf) == 0 {
				return nil, s.malformed(io.ErrUnexpectedEOF)
			}
			if buf[0] >= '0' && buf[0] <= '9' {
				b, err := s.ReadInteger()
				if err != nil {
					return nil, err
				}
				err = s.SkipWhiteSpace()
				if err != nil {
					return nil, err
				}
				err = s.SkipString("R")
				if err != nil {
					return nil, err
				}
				err = s.SkipWhiteSpace()
				if err != nil {
					return nil, err
				}
				val, err = makeReference(a, b)
				if err != nil {
					return nil, s.malformed(err)
				}
			}
		}

		dict.set(key, val)
	}
	err = s.SkipString(">>")
	if err != nil {
		return nil, err
	}

	return dict, nil
}

// ReadStreamData reads the data of a PDF Stream, starting after the Dict.
func (s *scanner) ReadStreamData(dict *Dict) (*Stream, error) {
	if s.getInt == nil {
		return nil, s.malformed(errors.New("unexpected stream"))
	}
	length, err := s.getInt(dict.Get("Length").Value())
	if err != nil {
		return nil, Wrap(err, "stream /Length")
	} else if length < 0 {
		return nil, s.malformed(errors.New("stream with negative length"))
	}

	err = s.SkipString("stream")
	if err != nil {
		return nil, err
	}
	buf, err := s.Peek(2)
	if err != nil {
		return nil, err
	}
	if len(buf) >= 1 && buf[0] == '\n' {
		s.pos++
	} else if len(buf) >= 2 && buf[0] == '\r' && buf[1] == '\n' {
		s.pos += 2
	} else if len(buf) >= 1 && buf[0] == '\r' {
		// not permitted in PDF, but seen in the wild
		s.pos++
	}

	data, err := s.ReadBytes(int64(length))
	if err != nil {
		return nil, err
	}

	err = s.SkipWhiteSpace()
	if err != nil {
		return nil, err
	}
	err = s.SkipString("endstream")
	if err != nil {
		return nil, err
	}

	return NewStream(data), nil
}

// ReadBytes reads the next n bytes of input.
func (s *scanner) ReadBytes(n int64) ([]byte, error) {
	res := &bytes.Buffer{}
	for n > 0 {
		if s.pos == s.used {
			err := s.refill()
			if err != nil {
				return nil, err
			}
			if s.used == 0 {
				return nil, s.malformed(io.ErrUnexpectedEOF)
			}
		}
		k := int64(s.used - s.pos)
		if k > n {
			k = n
		}
		res.Write(s.buf[s.pos : s.pos+int(k)])
		s.pos += int(k)
		n -= k
	}
	return res.Bytes(), nil
}

func (s *scanner) readHeaderVersion() (Version, error) {
	buf, err := s.Peek(16)
	if err != nil {
		return 0, err
	}

	if !bytes.HasPrefix(buf, []byte("%PDF-")) || len(buf) < 8 {
		return 0, &MalformedFileError{
			Err: errors.New("PDF header not found"),
		}
	}

	end := 5
	for end < len(buf) && !isSpace[buf[end]] && buf[end] != '%' {
		end++
	}
	version, err := ParseVersion(string(buf[5:end]))
	if err != nil {
		return 0, &MalformedFileError{Pos: 5, Err: err}
	}

	err = s.SkipWhiteSpace()
	if err != nil {
		return 0, err
	}

	return version, nil
}

// Refill discards the read part of the buffer and reads as much new data as
// possible.  Once the end of file is reached, s.used will be smaller than the
// buffer size, but no error will be returned.
func (s *scanner) refill() error {
	s.total += int64(s.pos)
	copy(s.buf, s.buf[s.pos:s.used])
	s.used -= s.pos
	s.pos = 0

	n, err := io.ReadFull(s.r, s.buf[s.used:])
	s.used += n

	if err == io.ErrUnexpectedEOF || err == io.EOF {
		err = nil
	}

	return err
}

// Peek returns a view of the next n bytes of input.  The function panics, if n
// is larger than scannerBufSize.  On EOF, short buffers without an error code
// will be returned.
func (s *scanner) Peek(n int) ([]byte, error) {
	if n > scannerBufSize {
		panic("peek window too large")
	}

	var err error
	if s.pos+n > s.used {
		err = s.refill()
	}

	if s.pos+n > s.used {
		return s.buf[s.pos:s.used], err
	}

	return s.buf[s.pos : s.pos+n], nil
}

// ScanBytes calls accept for the bytes of input, until accept returns false
// or the end of input is reached.
func (s *scanner) ScanBytes(accept func(c byte) bool) error {
	for {
		for s.pos < s.used {
			if !accept(s.buf[s.pos]) {
				return nil
			}
			s.pos++
		}
		err := s.refill()
		if err != nil {
			return err
		}
		if s.used == 0 {
			return nil
		}
	}
}

// SkipWhiteSpace skips white space and comments.
func (s *scanner) SkipWhiteSpace() error {
	isComment := false
	return s.ScanBytes(func(c byte) bool {
		if isComment {
			if c == '\r' || c == '\n' {
				isComment = false
			}
		} else if c == '%' {
			isComment = true
		} else {
			return isSpace[c]
		}
		return true
	})
}

// SkipString checks that the input continues with pat and skips pat.
func (s *scanner) SkipString(pat string) error {
	n := len(pat)
	buf, err := s.Peek(n)
	if err != nil {
		return err
	}
	if string(buf) != pat {
		return s.malformed(fmt.Errorf("expected %q but found %q", pat, string(buf)))
	}
	s.pos += n
	return nil
}

var (
	isSpace = [256]bool{
		0:  true,
		9:  true,
		10: true,
		12: true,
		13: true,
		32: true,
	}
	isDelimiter = [256]bool{
		'(': true,
		')': true,
		'<': true,
		'>': true,
		'[': true,
		']': true,
		'{': true,
		'}': true,
		'/': true,
		'%': true,
	}
)
