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

package pagetree

import "seehuhn.de/go/geom/rect"

// PageSize identifies a standard paper size.
type PageSize int

// These are the supported paper sizes.
const (
	A0 PageSize = iota
	A1
	A2
	A3
	A4
	A5
	A6
	Letter
	Legal
	Tabloid
)

var pageSizes = map[PageSize][2]float64{
	A0:      {2384, 3370},
	A1:      {1684, 2384},
	A2:      {1191, 1684},
	A3:      {842, 1190},
	A4:      {595, 842},
	A5:      {420, 595},
	A6:      {297, 420},
	Letter:  {612, 792},
	Legal:   {612, 1008},
	Tabloid: {792, 1224},
}

// StandardSize returns a media box for the given paper size, with the
// lower left corner at the origin.  Dimensions are rounded to integer
// multiples of 1/72 inch.  Unknown sizes give an empty rectangle.
func StandardSize(size PageSize, landscape bool) rect.Rect {
	wh, ok := pageSizes[size]
	if !ok {
		return rect.Rect{}
	}
	if landscape {
		wh[0], wh[1] = wh[1], wh[0]
	}
	return rect.Rect{URx: wh[0], URy: wh[1]}
}

func (s PageSize) String() string {
	switch s {
	case A0, A1, A2, A3, A4, A5, A6:
		return "A" + string(rune('0'+int(s-A0)))
	case Letter:
		return "Letter"
	case Legal:
		return "Legal"
	case Tabloid:
		return "Tabloid"
	default:
		return "PageSize(?)"
	}
}
