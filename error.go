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
	"strconv"
	"strings"
)

// These errors classify the failures reported by this package and its
// sub-packages.  Use errors.Is to test for them.
var (
	// ErrInvalidHandle indicates that a required object is missing.
	ErrInvalidHandle = errors.New("invalid handle")

	// ErrInvalidDataType indicates that an object has the wrong kind for
	// the requested operation.
	ErrInvalidDataType = errors.New("invalid data type")

	// ErrNoObject indicates that a reference or key could not be resolved
	// where an object was required.
	ErrNoObject = errors.New("object not found")

	// ErrOutOfRange indicates an index or value outside the legal bounds.
	ErrOutOfRange = errors.New("value out of range")

	// ErrBrokenFile indicates structural corruption, for example a cycle in
	// the page tree.  All *MalformedFileError values match this error.
	ErrBrokenFile = errors.New("broken file")

	// ErrImmutable is returned when an immutable object is modified.
	ErrImmutable = errors.New("change on immutable object")

	// ErrPageNotFound indicates that a page could not be located.
	ErrPageNotFound = errors.New("page not found")

	// ErrEncrypted is returned when an encrypted file is opened.
	ErrEncrypted = errors.New("encrypted files are not supported")

	errVersion = errors.New("unsupported PDF version")
)

// MalformedFileError indicates that a PDF file could not be parsed, or that
// the object graph is structurally invalid.
type MalformedFileError struct {
	Err error
	Loc []string
	Pos int64
}

func (err *MalformedFileError) Error() string {
	parts := make([]string, 0, 4)
	parts = append(parts, "broken PDF file")
	if len(err.Loc) > 0 {
		parts = append(parts, strings.Join(err.Loc, ": "))
	}
	if err.Err != nil {
		parts = append(parts, err.Err.Error())
	}
	msg := strings.Join(parts, ": ")
	if err.Pos > 0 {
		msg += " (at byte " + strconv.FormatInt(err.Pos, 10) + ")"
	}
	return msg
}

func (err *MalformedFileError) Unwrap() error {
	return err.Err
}

// Is makes every MalformedFileError match ErrBrokenFile.
func (err *MalformedFileError) Is(target error) bool {
	return target == ErrBrokenFile
}

// Wrap adds location information to an error.  If err is a
// *MalformedFileError, the location is prepended to the existing location
// list.  Otherwise err is returned unchanged.
func Wrap(err error, loc string) error {
	if err == nil {
		return nil
	}
	var mf *MalformedFileError
	if errors.As(err, &mf) {
		all := append([]string{loc}, mf.Loc...)
		return &MalformedFileError{Err: mf.Err, Loc: all, Pos: mf.Pos}
	}
	return err
}

// Errorf returns a *MalformedFileError with the given message.
func Errorf(format string, args ...any) error {
	return &MalformedFileError{Err: fmt.Errorf(format, args...)}
}
