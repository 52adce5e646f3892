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
	"errors"
	"fmt"
)

// decodeLZW decodes LZWDecode data.  If earlyChange is 1, the code width
// increases one code early, as described in section 7.4.4.2 of
// ISO 32000-2:2020.  A missing end-of-data marker is tolerated.
func decodeLZW(data []byte, earlyChange int) ([]byte, error) {
	const (
		clearTable = 256
		endOfData  = 257
		maxEntries = 4096
	)

	table := make([][]byte, 258, maxEntries)
	for i := range 256 {
		table[i] = []byte{byte(i)}
	}
	width := 9

	var res, prev []byte
	var bits uint32
	nBits := 0
	pos := 0
	for {
		for nBits < width {
			if pos >= len(data) {
				return res, nil
			}
			bits = bits<<8 | uint32(data[pos])
			pos++
			nBits += 8
		}
		code := int(bits>>(nBits-width)) & (1<<width - 1)
		nBits -= width
		bits &= 1<<nBits - 1

		switch code {
		case clearTable:
			table = table[:258]
			width = 9
			prev = nil
			continue
		case endOfData:
			return res, nil
		}

		var entry []byte
		switch {
		case code < len(table):
			entry = table[code]
		case code == len(table) && prev != nil:
			entry = make([]byte, len(prev)+1)
			copy(entry, prev)
			entry[len(prev)] = prev[0]
		default:
			return nil, fmt.Errorf("invalid LZW code %d", code)
		}
		res = append(res, entry...)

		if prev != nil && len(table) < maxEntries {
			next := make([]byte, len(prev)+1)
			copy(next, prev)
			next[len(prev)] = entry[0]
			table = append(table, next)
		}
		prev = entry
		if width < 12 && len(table)+earlyChange >= 1<<width {
			width++
		}
	}
}

var errRunLength = errors.New("truncated run-length data")

// decodeRunLength decodes RunLengthDecode data.
func decodeRunLength(data []byte) ([]byte, error) {
	var res []byte
	for len(data) > 0 {
		length := data[0]
		data = data[1:]
		switch {
		case length == 128:
			return res, nil
		case length < 128:
			count := int(length) + 1 // 1, ..., 128
			if len(data) < count {
				return nil, errRunLength
			}
			res = append(res, data[:count]...)
			data = data[count:]
		default:
			count := 257 - int(length) // 2, ..., 128
			if len(data) < 1 {
				return nil, errRunLength
			}
			for range count {
				res = append(res, data[0])
			}
			data = data[1:]
		}
	}
	return res, nil
}
