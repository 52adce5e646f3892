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

// Package metadata reads and writes XMP metadata streams.
//
// The document catalog can refer to a metadata stream via its /Metadata
// entry.  The stream contains an XMP packet, which duplicates and extends
// the information in the document information dictionary.
package metadata

import (
	"bytes"
	"fmt"
	"time"

	"golang.org/x/text/language"

	"seehuhn.de/go/xmp"

	pdf "seehuhn.de/go/pdfedit"
)

// PDF 2.0 sections: 14.3

// PDF is the XMP namespace for PDF specific properties.
type PDF struct {
	_          xmp.Namespace `xmp:"http://ns.adobe.com/pdf/1.3/"`
	_          xmp.Prefix    `xmp:"pdf"`
	Keywords   xmp.Text
	PDFVersion xmp.Text
	Producer   xmp.AgentName
}

// Read decodes the XMP packet from the metadata stream obj.
// If obj is nil, the function returns nil.
func Read(obj *pdf.Object) (*xmp.Packet, error) {
	if obj == nil {
		return nil, nil
	}
	stm, err := obj.MustGetStream()
	if err != nil {
		return nil, fmt.Errorf("metadata stream: %w", err)
	}
	body, err := stm.Reader()
	if err != nil {
		return nil, err
	}
	return xmp.Read(body)
}

// Embed stores the packet as a new metadata stream in list.
func Embed(list *pdf.ObjectList, packet *xmp.Packet) (*pdf.Object, error) {
	buf := &bytes.Buffer{}
	err := packet.Write(buf, &xmp.PacketOptions{Pretty: true})
	if err != nil {
		return nil, err
	}

	obj := list.CreateDictSubtype("Metadata", "XML")
	stm, err := obj.GetOrCreateStream()
	if err != nil {
		return nil, err
	}
	err = stm.SetData(buf.Bytes(), "FlateDecode")
	if err != nil {
		list.Delete(obj.Reference())
		return nil, err
	}
	return obj, nil
}

// Info holds the fields of a document information dictionary which have
// XMP equivalents.  Empty fields are omitted.
type Info struct {
	Title    string
	Author   string
	Subject  string
	Keywords string
	Producer string

	CreationDate time.Time
	ModDate      time.Time

	PDFVersion pdf.Version
}

// FromInfo builds an XMP packet from the document information fields.
func FromInfo(info *Info) (*xmp.Packet, error) {
	dc := &xmp.DublinCore{}
	if info.Title != "" {
		dc.Title.Set(language.MustParse("x-default"), info.Title)
	}
	if info.Author != "" {
		dc.Creator.Append(xmp.NewProperName(info.Author))
	}
	if info.Subject != "" {
		dc.Description.Set(language.MustParse("x-default"), info.Subject)
	}

	basic := &xmp.Basic{}
	if !info.CreationDate.IsZero() {
		basic.CreateDate = xmp.NewDate(info.CreationDate)
	}
	if !info.ModDate.IsZero() {
		basic.ModifyDate = xmp.NewDate(info.ModDate)
	}

	pdfInfo := &PDF{}
	if info.Keywords != "" {
		pdfInfo.Keywords = xmp.NewText(info.Keywords)
	}
	if info.Producer != "" {
		pdfInfo.Producer = xmp.NewAgentName(info.Producer)
	}
	if info.PDFVersion != 0 {
		if v, err := info.PDFVersion.ToString(); err == nil {
			pdfInfo.PDFVersion = xmp.NewText(v)
		}
	}

	packet := xmp.NewPacket()
	err := packet.Set(dc, basic, pdfInfo)
	if err != nil {
		return nil, err
	}
	return packet, nil
}
