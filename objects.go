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
	"math"
	"strconv"
	"strings"
)

// Value is the payload of an Object.  The concrete type is one of Bool,
// Integer, Real, String, Name, Reference, RawData, *Array or *Dict.
// The nil Value represents the PDF null object.
type Value interface {
	// PDF writes the PDF file representation of the value to w.
	PDF(w io.Writer) error
}

// Kind identifies the concrete type of a Value.
type Kind int

// These are the possible kinds of values.
const (
	KindNull Kind = iota
	KindBool
	KindInteger
	KindReal
	KindString
	KindName
	KindReference
	KindArray
	KindDict
	KindRawData
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInteger:
		return "integer"
	case KindReal:
		return "real"
	case KindString:
		return "string"
	case KindName:
		return "name"
	case KindReference:
		return "reference"
	case KindArray:
		return "array"
	case KindDict:
		return "dictionary"
	case KindRawData:
		return "raw data"
	default:
		return "pdf.Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// KindOf returns the kind of v.
func KindOf(v Value) Kind {
	switch v := v.(type) {
	case nil:
		return KindNull
	case Bool:
		return KindBool
	case Integer:
		return KindInteger
	case Real:
		return KindReal
	case String:
		return KindString
	case Name:
		return KindName
	case Reference:
		return KindReference
	case *Array:
		if v == nil {
			return KindNull
		}
		return KindArray
	case *Dict:
		if v == nil {
			return KindNull
		}
		return KindDict
	case RawData:
		return KindRawData
	default:
		panic(fmt.Sprintf("unexpected PDF value type %T", v))
	}
}

// Bool represents a boolean value in a PDF file.
type Bool bool

// PDF implements the Value interface.
func (x Bool) PDF(w io.Writer) error {
	var err error
	if x {
		_, err = io.WriteString(w, "true")
	} else {
		_, err = io.WriteString(w, "false")
	}
	return err
}

// Integer represents an integer constant in a PDF file.
type Integer int64

// PDF implements the Value interface.
func (x Integer) PDF(w io.Writer) error {
	_, err := io.WriteString(w, strconv.FormatInt(int64(x), 10))
	return err
}

// Real represents an real number in a PDF file.
type Real float64

// PDF implements the Value interface.
func (x Real) PDF(w io.Writer) error {
	if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
		return fmt.Errorf("%w: real number %g", ErrInvalidDataType, float64(x))
	}
	s := strconv.FormatFloat(float64(x), 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s = s + "."
	}
	_, err := io.WriteString(w, s)
	return err
}

// String represents a raw string in a PDF file.  The character set encoding,
// if any, is determined by the context.
type String []byte

// PDF implements the Value interface.
func (x String) PDF(w io.Writer) error {
	l := []byte(x)

	level := 0
	for _, c := range l {
		if c == '(' {
			level++
		} else if c == ')' {
			level--
			if level < 0 {
				break
			}
		}
	}
	balanced := level == 0

	var funny []int
	for i, c := range l {
		if c == '\n' || c == '\t' {
			continue
		}
		if c < 32 || c >= 127 || c == '\\' ||
			!balanced && (c == '(' || c == ')') {
			funny = append(funny, i)
		}
	}
	n := len(l)

	buf := &bytes.Buffer{}
	if 3*len(funny) <= n {
		buf.WriteByte('(')
		pos := 0
		for _, i := range funny {
			if pos < i {
				buf.Write(l[pos:i])
			}
			c := l[i]
			switch c {
			case '\r':
				buf.WriteString(`\r`)
			case '\b':
				buf.WriteString(`\b`)
			case '\f':
				buf.WriteString(`\f`)
			case '(', ')', '\\':
				buf.WriteByte('\\')
				buf.WriteByte(c)
			default:
				fmt.Fprintf(buf, `\%03o`, c)
			}
			pos = i + 1
		}
		buf.Write(l[pos:])
		buf.WriteByte(')')
	} else {
		fmt.Fprintf(buf, "<%x>", l)
	}

	_, err := w.Write(buf.Bytes())
	return err
}

// Name represents a name object in a PDF file.
type Name string

// PDF implements the Value interface.
func (x Name) PDF(w io.Writer) error {
	const hexDigits = "0123456789ABCDEF"

	l := []byte(x)
	buf := make([]byte, 0, len(l)+8)
	buf = append(buf, '/')
	for _, c := range l {
		if c < 0x21 || c > 0x7e || c == '#' || isDelimiter[c] {
			buf = append(buf, '#', hexDigits[c>>4], hexDigits[c&15])
		} else {
			buf = append(buf, c)
		}
	}
	_, err := w.Write(buf)
	return err
}

// RawData is a fragment of PDF syntax which is written to the file
// unchanged.
type RawData []byte

// PDF implements the Value interface.
func (x RawData) PDF(w io.Writer) error {
	_, err := w.Write(x)
	return err
}

// Reference represents a reference to an indirect object in a PDF file.
// The lowest 32 bits hold the object number, the next 16 bits the
// generation number.  An object number of 0 means that the reference
// does not point to an indirect object.
type Reference uint64

// NewReference creates a new reference object.
func NewReference(number uint32, generation uint16) Reference {
	return Reference(uint64(number) | uint64(generation)<<32)
}

// Number returns the object number of the reference.
func (x Reference) Number() uint32 {
	return uint32(x)
}

// Generation returns the generation number of the reference.
func (x Reference) Generation() uint16 {
	return uint16(x >> 32)
}

// IsIndirect reports whether x refers to an indirect object.
func (x Reference) IsIndirect() bool {
	return x.Number() != 0
}

// String returns a textual representation of the reference, for use in
// diagnostic messages.
func (x Reference) String() string {
	res := "obj_" + strconv.FormatUint(uint64(x.Number()), 10)
	if gen := x.Generation(); gen > 0 {
		res += "@" + strconv.FormatUint(uint64(gen), 10)
	}
	return res
}

// PDF implements the Value interface.
func (x Reference) PDF(w io.Writer) error {
	if x>>48 != 0 {
		return fmt.Errorf("invalid reference %016x", uint64(x))
	}
	_, err := fmt.Fprintf(w, "%d %d R", x.Number(), x.Generation())
	return err
}

// CompareReferences orders references by object number, and then by
// generation number.
func CompareReferences(a, b Reference) int {
	if a.Number() != b.Number() {
		if a.Number() < b.Number() {
			return -1
		}
		return 1
	}
	if a.Generation() != b.Generation() {
		if a.Generation() < b.Generation() {
			return -1
		}
		return 1
	}
	return 0
}

// Format returns the PDF representation of v as a string.
func Format(v Value) string {
	buf := &bytes.Buffer{}
	err := writeValue(buf, v)
	if err != nil {
		return "<error: " + err.Error() + ">"
	}
	return buf.String()
}

func writeValue(w io.Writer, v Value) error {
	if KindOf(v) == KindNull {
		_, err := io.WriteString(w, "null")
		return err
	}
	return v.PDF(w)
}

// equalValues compares two values structurally.  References are compared
// as numbers, without resolving them.
func equalValues(a, b Value) bool {
	ka, kb := KindOf(a), KindOf(b)
	if ka != kb {
		return false
	}
	if ka == KindNull {
		return true
	}
	switch a := a.(type) {
	case String:
		return bytes.Equal(a, b.(String))
	case RawData:
		return bytes.Equal(a, b.(RawData))
	case *Array:
		return a.Equal(b.(*Array))
	case *Dict:
		return a.Equal(b.(*Dict))
	default:
		return a == b
	}
}
