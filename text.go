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
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
)

var (
	utf16Encoding = unicode.UTF16(unicode.BigEndian, unicode.UseBOM)
	utf16Decoding = unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM)

	utf8BOM = []byte{0xEF, 0xBB, 0xBF}

	errNoDate = errors.New("not a valid date string")
)

// AsTextString interprets x as a PDF "text string" and returns
// the corresponding utf-8 encoded string.
func (x String) AsTextString() string {
	switch {
	case len(x) >= 2 && x[0] == 0xFE && x[1] == 0xFF:
		res, err := utf16Decoding.NewDecoder().Bytes(x)
		if err == nil {
			return string(res)
		}
	case bytes.HasPrefix(x, utf8BOM):
		return string(x[3:])
	}
	return pdfDocDecode(x)
}

// TextString creates a String object using the "text string" encoding,
// i.e. using either PDFDocEncoding or UTF-16BE encoding (with a BOM).
func TextString(s string) String {
	if buf, ok := pdfDocEncode(s); ok {
		return buf
	}
	res, err := utf16Encoding.NewEncoder().Bytes([]byte(s))
	if err != nil {
		// s contains invalid UTF-8; encode what we can
		res, _ = utf16Encoding.NewEncoder().Bytes([]byte(strings.ToValidUTF8(s, "�")))
	}
	return String(res)
}

func pdfDocDecode(s String) string {
	var buf strings.Builder
	for _, c := range s {
		buf.WriteRune(pdfDocRunes[c])
	}
	return buf.String()
}

func pdfDocEncode(s string) (String, bool) {
	res := make([]byte, 0, len(s))
	for _, r := range s {
		c, ok := pdfDocBytes[r]
		if !ok {
			return nil, false
		}
		res = append(res, c)
	}
	return String(res), true
}

// pdfDocRunes maps PDFDocEncoding bytes to unicode.  Undefined codes are
// mapped to U+FFFD.
var pdfDocRunes [256]rune

// pdfDocBytes is the inverse of pdfDocRunes.
var pdfDocBytes map[rune]byte

func init() {
	for i := range pdfDocRunes {
		pdfDocRunes[i] = rune(i)
	}
	for i, r := range []rune{
		0x02D8, 0x02C7, 0x02C6, 0x02D9, 0x02DD, 0x02DB, 0x02DA, 0x02DC,
	} {
		pdfDocRunes[0x18+i] = r
	}
	for i, r := range []rune{
		0x2022, 0x2020, 0x2021, 0x2026, 0x2014, 0x2013, 0x0192, 0x2044,
		0x2039, 0x203A, 0x2212, 0x2030, 0x201E, 0x201C, 0x201D, 0x2018,
		0x2019, 0x201A, 0x2122, 0xFB01, 0xFB02, 0x0141, 0x0152, 0x0160,
		0x0178, 0x017D, 0x0131, 0x0142, 0x0153, 0x0161, 0x017E, 0xFFFD,
		0x20AC,
	} {
		pdfDocRunes[0x80+i] = r
	}
	pdfDocRunes[0x7F] = 0xFFFD

	pdfDocBytes = make(map[rune]byte, 256)
	for i, r := range pdfDocRunes {
		if r == 0xFFFD {
			continue
		}
		if i < 0x18 && i != '\t' && i != '\n' && i != '\r' {
			continue
		}
		pdfDocBytes[r] = byte(i)
	}
}

// AsDate converts a PDF date string to a time.Time object.
// If the string does not have the correct format, an error is returned.
func (x String) AsDate() (time.Time, error) {
	s := x.AsTextString()
	if s == "D:" || s == "" {
		return time.Time{}, nil
	}
	s = strings.ReplaceAll(s, "'", "")
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "19") || strings.HasPrefix(s, "20") {
		s = "D:" + s
	}

	formats := []string{
		"D:20060102150405-0700",
		"D:20060102150405-07",
		"D:20060102150405Z0000",
		"D:20060102150405Z00",
		"D:20060102150405Z",
		"D:20060102150405",
		"D:200601021504",
		"D:2006010215",
		"D:20060102",
		"D:200601",
		"D:2006",
		time.ANSIC,
	}
	for _, format := range formats {
		t, err := time.Parse(format, s)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, errNoDate
}

// Date creates a PDF String object encoding the given date and time.
func Date(t time.Time) String {
	s := t.Format("D:20060102150405-0700")
	k := len(s) - 2
	s = s[:k] + "'" + s[k:]
	return String(s)
}
