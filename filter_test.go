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
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestStreamFilters(t *testing.T) {
	filterLists := [][]Name{
		nil,
		{"FlateDecode"},
		{"ASCIIHexDecode"},
		{"ASCII85Decode"},
		{"ASCII85Decode", "FlateDecode"},
		{"ASCIIHexDecode", "ASCII85Decode", "FlateDecode"},
	}
	inputs := []string{"", "12345", "1234567890", "\x00\x00\x00\x00 zero block"}

	list := NewObjectList(nil)
	for _, filters := range filterLists {
		for _, in := range inputs {
			obj := list.CreateDict("")
			stm, err := obj.GetOrCreateStream()
			if err != nil {
				t.Fatal(err)
			}
			err = stm.SetData([]byte(in), filters...)
			if err != nil {
				t.Errorf("%v %q: %s", filters, in, err)
				continue
			}

			names, _, err := stm.Filters()
			if err != nil {
				t.Fatal(err)
			}
			if len(names) != len(filters) {
				t.Errorf("%v: /Filter lists %v", filters, names)
			}

			out, err := stm.Decode()
			if err != nil {
				t.Errorf("%v %q: %s", filters, in, err)
				continue
			}
			if string(out) != in {
				t.Errorf("%v: wrong results: %q vs %q", filters, in, out)
			}
		}
	}
}

func TestUnknownFilter(t *testing.T) {
	_, err := decode([]byte("x"), "JBIG2Decode", nil)
	if !errors.Is(err, errUnsupportedFilter) {
		t.Errorf("expected errUnsupportedFilter, got %v", err)
	}
}

func TestASCIIHex(t *testing.T) {
	// an odd final digit is padded with 0
	out, err := decodeASCIIHex([]byte("68 65\n6C6c7>garbage"))
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "hellp" {
		t.Errorf("got %q", out)
	}
	_, err = decodeASCIIHex([]byte("6x"))
	if err == nil {
		t.Error("invalid hex data accepted")
	}
}

func TestPNGPredictor(t *testing.T) {
	// two columns, one byte per pixel
	rows := [][]byte{
		{1, 2},
		{3, 5},
		{4, 4},
		{10, 20},
		{0, 255},
	}
	var raw []byte
	prev := []byte{0, 0}
	for i, row := range rows {
		tp := byte(i % 5)
		raw = append(raw, tp)
		for j := range row {
			var left, upLeft byte
			if j > 0 {
				left = row[j-1]
				upLeft = prev[j-1]
			}
			up := prev[j]
			var pred byte
			switch tp {
			case 1:
				pred = left
			case 2:
				pred = up
			case 3:
				pred = byte((int(left) + int(up)) / 2)
			case 4:
				pred = paeth(left, up, upLeft)
			}
			raw = append(raw, row[j]-pred)
		}
		prev = row
	}

	parms := NewDict(
		Entry{"Predictor", Integer(12)},
		Entry{"Columns", Integer(2)},
	)
	out, err := applyPredictor(raw, parms)
	if err != nil {
		t.Fatal(err)
	}
	want := bytes.Join(rows, nil)
	if !bytes.Equal(out, want) {
		t.Errorf("got %v, want %v", out, want)
	}

	_, err = applyPredictor(raw, NewDict(Entry{"Predictor", Integer(2)}))
	if err == nil {
		t.Error("TIFF predictor accepted")
	}
}

func TestLZWExample(t *testing.T) {
	// This is example 1 from section 7.4.4.2 of ISO 32000-2:2020.
	in := []byte{0x80, 0x0B, 0x60, 0x50, 0x22, 0x0C, 0x0C, 0x85, 0x01}
	want := []byte{45, 45, 45, 45, 45, 65, 45, 45, 45, 66}

	out, err := decode(in, "LZWDecode", nil)
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff(want, out); d != "" {
		t.Errorf("wrong result (-want +got):\n%s", d)
	}
}

// lzwEncode is a simple LZW encoder, used to generate test data which
// exercises all code widths.
func lzwEncode(data []byte, earlyChange int) []byte {
	table := make(map[string]int)
	for i := range 256 {
		table[string([]byte{byte(i)})] = i
	}
	next := 258
	width := func() int {
		n := max(next-1, 258)
		w := 9
		for w < 12 && n+earlyChange >= 1<<w {
			w++
		}
		return w
	}

	var out []byte
	var bits uint64
	nBits := 0
	emit := func(code, w int) {
		bits = bits<<w | uint64(code)
		nBits += w
		for nBits >= 8 {
			out = append(out, byte(bits>>(nBits-8)))
			nBits -= 8
		}
	}

	emit(256, 9)
	var cur []byte
	for _, c := range data {
		ext := append(cur[:len(cur):len(cur)], c)
		if _, ok := table[string(ext)]; ok {
			cur = ext
			continue
		}
		emit(table[string(cur)], width())
		if next < 4095 {
			table[string(ext)] = next
			next++
		}
		cur = []byte{c}
	}
	if len(cur) > 0 {
		emit(table[string(cur)], width())
		next++
	}
	emit(257, width())
	if nBits > 0 {
		out = append(out, byte(bits<<(8-nBits)))
	}
	return out
}

func TestLZWRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, earlyChange := range []int{0, 1} {
		for _, n := range []int{0, 1, 100, 3000, 20000} {
			in := make([]byte, n)
			for i := range in {
				in[i] = "abcdefgh"[rng.Intn(8)]
			}
			encoded := lzwEncode(in, earlyChange)
			out, err := decodeLZW(encoded, earlyChange)
			if err != nil {
				t.Fatalf("%d/%d: %v", earlyChange, n, err)
			}
			if !bytes.Equal(in, out) {
				t.Errorf("%d/%d: round trip failed", earlyChange, n)
			}
		}
	}

	_, err := decodeLZW([]byte{0x80, 0x40, 0x80}, 1)
	if err == nil {
		t.Error("invalid code accepted")
	}
}

func TestRunLength(t *testing.T) {
	in := []byte{2, 'a', 'b', 'c', 253, 'x', 0, 'y', 128, 'z'}
	out, err := decode(in, "RunLengthDecode", nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "abcxxxxy" {
		t.Errorf("got %q", out)
	}

	_, err = decodeRunLength([]byte{5, 'a'})
	if err == nil {
		t.Error("truncated data accepted")
	}
}
