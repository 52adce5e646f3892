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

import (
	"io"

	pdf "seehuhn.de/go/pdfedit"
)

// ContentReader returns a reader for the decoded content streams of the
// page.  If /Contents is an array, the streams are concatenated, separated
// by newline characters.  Pages without content give an empty reader.
func (p *Page) ContentReader() (io.Reader, error) {
	streams, err := p.Contents()
	if err != nil {
		return nil, err
	}
	if len(streams) == 0 {
		return eofReader{}, nil
	}
	return &contentsReader{streams: streams}, nil
}

type eofReader struct{}

func (e eofReader) Read(_ []byte) (int, error) {
	return 0, io.EOF
}

// a contentsReader reads the content streams of a page one after another.
type contentsReader struct {
	// streams holds the objects which have not been opened yet.
	streams []*pdf.Object

	// err is the first error encountered, or io.EOF once all streams have
	// been exhausted.
	err error

	current io.Reader

	needNewline bool // true if a newline should be prepended before the next read.
}

func (cr *contentsReader) Read(p []byte) (int, error) {
	if cr.err != nil {
		return 0, cr.err
	}
	if len(p) == 0 {
		return 0, nil
	}

	r, err := cr.getReader()
	if err != nil {
		cr.err = err
		return 0, err
	}

	extra := 0
	if cr.needNewline {
		p[0] = '\n'
		extra = 1
		p = p[1:]
		cr.needNewline = false

		if len(p) == 0 {
			return extra, nil
		}
	}

	n, err := r.Read(p)
	if err == io.EOF {
		cr.current = nil
		if len(cr.streams) > 0 {
			err = nil
			cr.needNewline = true
		} else {
			cr.err = io.EOF
			if extra+n > 0 {
				err = nil
			}
		}
	} else if err != nil {
		cr.err = err
		cr.current = nil
	}

	return extra + n, err
}

func (cr *contentsReader) getReader() (io.Reader, error) {
	if cr.current != nil {
		return cr.current, nil
	}
	if len(cr.streams) == 0 {
		return nil, io.EOF
	}

	obj := cr.streams[0]
	cr.streams = cr.streams[1:]
	stm, err := obj.MustGetStream()
	if err != nil {
		return nil, err
	}
	r, err := stm.Reader()
	if err != nil {
		return nil, err
	}
	cr.current = r
	return r, nil
}
