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
	"compress/zlib"
	"encoding/ascii85"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

var errUnsupportedFilter = errors.New("unsupported filter")

func decode(data []byte, name Name, parms *Dict) ([]byte, error) {
	switch name {
	case "FlateDecode", "Fl":
		zr, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		res, err := io.ReadAll(zr)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, err
		}
		return applyPredictor(res, parms)
	case "LZWDecode", "LZW":
		earlyChange := 1
		if x, ok := parms.FindInteger("EarlyChange"); ok {
			earlyChange = int(x)
		}
		res, err := decodeLZW(data, earlyChange)
		if err != nil {
			return nil, err
		}
		return applyPredictor(res, parms)
	case "RunLengthDecode", "RL":
		return decodeRunLength(data)
	case "ASCIIHexDecode", "AHx":
		return decodeASCIIHex(data)
	case "ASCII85Decode", "A85":
		if i := bytes.Index(data, []byte("~>")); i >= 0 {
			data = data[:i]
		}
		dst := make([]byte, 4*len(data)+4)
		n, _, err := ascii85.Decode(dst, data, true)
		if err != nil {
			return nil, err
		}
		return dst[:n], nil
	default:
		return nil, fmt.Errorf("%w %q", errUnsupportedFilter, name)
	}
}

func encode(data []byte, name Name) ([]byte, error) {
	switch name {
	case "FlateDecode", "Fl":
		buf := &bytes.Buffer{}
		zw := zlib.NewWriter(buf)
		_, err := zw.Write(data)
		if err != nil {
			return nil, err
		}
		err = zw.Close()
		if err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case "ASCIIHexDecode", "AHx":
		res := make([]byte, hex.EncodedLen(len(data))+1)
		hex.Encode(res, data)
		res[len(res)-1] = '>'
		return res, nil
	case "ASCII85Decode", "A85":
		res := make([]byte, ascii85.MaxEncodedLen(len(data))+2)
		n := ascii85.Encode(res, data)
		copy(res[n:], "~>")
		return res[:n+2], nil
	default:
		return nil, fmt.Errorf("%w %q", errUnsupportedFilter, name)
	}
}

func decodeASCIIHex(data []byte) ([]byte, error) {
	res := make([]byte, 0, len(data)/2)
	var hi byte
	first := true
loop:
	for _, c := range data {
		var d byte
		switch {
		case c >= '0' && c <= '9':
			d = c - '0'
		case c >= 'A' && c <= 'F':
			d = c - 'A' + 10
		case c >= 'a' && c <= 'f':
			d = c - 'a' + 10
		case c == '>':
			break loop
		case isSpace[c]:
			continue
		default:
			return nil, fmt.Errorf("invalid character %q in hex data", c)
		}
		if first {
			hi = d
		} else {
			res = append(res, hi<<4|d)
		}
		first = !first
	}
	if !first {
		res = append(res, hi<<4)
	}
	return res, nil
}

// applyPredictor undoes the PNG predictors used with FlateDecode.
// TIFF predictor 2 is not supported.
func applyPredictor(data []byte, parms *Dict) ([]byte, error) {
	predictor := 1
	colors := 1
	bpc := 8
	columns := 1
	if parms != nil {
		if x, ok := parms.FindInteger("Predictor"); ok {
			predictor = int(x)
		}
		if x, ok := parms.FindInteger("Colors"); ok {
			colors = int(x)
		}
		if x, ok := parms.FindInteger("BitsPerComponent"); ok {
			bpc = int(x)
		}
		if x, ok := parms.FindInteger("Columns"); ok {
			columns = int(x)
		}
	}
	if predictor == 1 {
		return data, nil
	}
	if predictor < 10 || predictor > 15 {
		return nil, fmt.Errorf("unsupported predictor %d", predictor)
	}
	if colors < 1 || bpc < 1 || columns < 1 || colors*bpc*columns > 1<<24 {
		return nil, errors.New("invalid predictor parameters")
	}

	bpp := (colors*bpc + 7) / 8
	rowLen := (colors*bpc*columns + 7) / 8
	prev := make([]byte, rowLen)
	res := make([]byte, 0, len(data))
	for len(data) > 0 {
		if len(data) < rowLen+1 {
			// ignore incomplete trailing rows
			break
		}
		tp := data[0]
		row := bytes.Clone(data[1 : rowLen+1])
		data = data[rowLen+1:]
		for i := range row {
			var left, upLeft byte
			if i >= bpp {
				left = row[i-bpp]
				upLeft = prev[i-bpp]
			}
			up := prev[i]
			switch tp {
			case 0:
				// none
			case 1:
				row[i] += left
			case 2:
				row[i] += up
			case 3:
				row[i] += byte((int(left) + int(up)) / 2)
			case 4:
				row[i] += paeth(left, up, upLeft)
			default:
				return nil, fmt.Errorf("invalid PNG predictor type %d", tp)
			}
		}
		res = append(res, row...)
		prev = row
	}
	return res, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa := abs(p - int(a))
	pb := abs(p - int(b))
	pc := abs(p - int(c))
	if pa <= pb && pa <= pc {
		return a
	} else if pb <= pc {
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
