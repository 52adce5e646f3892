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
	"math"

	"seehuhn.de/go/geom/rect"
)

var errNoRectangle = errors.New("not a valid PDF rectangle")

// GetRectangle converts a PDF rectangle, i.e. an array of four numbers,
// into a rect.Rect.  References are resolved.  The corners are normalised
// so that LLx <= URx and LLy <= URy.
func GetRectangle(obj *Object) (rect.Rect, error) {
	a, err := obj.Resolve().GetArray()
	if err != nil {
		return rect.Rect{}, err
	}
	if a.Len() != 4 {
		return rect.Rect{}, fmt.Errorf("%w: %s", errNoRectangle, Format(a))
	}
	var x [4]float64
	for i := range x {
		val, ok := a.Find(i).TryGetNumber()
		if !ok {
			return rect.Rect{}, fmt.Errorf("%w: %s", errNoRectangle, Format(a))
		}
		x[i] = val
	}
	return rect.Rect{
		LLx: math.Min(x[0], x[2]),
		LLy: math.Min(x[1], x[3]),
		URx: math.Max(x[0], x[2]),
		URy: math.Max(x[1], x[3]),
	}, nil
}

// RectangleArray converts r into a PDF rectangle.
func RectangleArray(r rect.Rect) *Array {
	return NewArray(Number(r.LLx), Number(r.LLy), Number(r.URx), Number(r.URy))
}

// Number returns x as an Integer if x is integral, and as a Real otherwise.
func Number(x float64) Value {
	if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
		return Integer(x)
	}
	return Real(x)
}
