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

package metadata

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/text/language"

	"seehuhn.de/go/xmp"

	pdf "seehuhn.de/go/pdfedit"
)

func TestRoundTrip(t *testing.T) {
	// Create XMP packet with Dublin Core properties
	packet := xmp.NewPacket()
	dc := &xmp.DublinCore{}
	dc.Title.Set(language.Und, "Test Document")
	dc.Creator.Append(xmp.NewProperName("Test Author"))

	err := packet.Set(dc)
	if err != nil {
		t.Fatalf("failed to set properties: %v", err)
	}

	list := pdf.NewObjectList(nil)
	obj, err := Embed(list, packet)
	if err != nil {
		t.Fatalf("failed to embed metadata: %v", err)
	}
	dict, _ := obj.GetDict()
	if !dict.IsType("Metadata") {
		t.Error("wrong /Type for metadata stream")
	}
	if subtype, _ := dict.FindName("Subtype"); subtype != "XML" {
		t.Errorf("wrong /Subtype %q", subtype)
	}

	extracted, err := Read(obj)
	if err != nil {
		t.Fatalf("failed to read metadata: %v", err)
	}

	var originalDC, extractedDC xmp.DublinCore
	packet.Get(&originalDC)
	extracted.Get(&extractedDC)

	if diff := cmp.Diff(extractedDC, originalDC); diff != "" {
		t.Errorf("round trip failed (-got +want):\n%s", diff)
	}
}

func TestReadErrors(t *testing.T) {
	packet, err := Read(nil)
	if packet != nil || err != nil {
		t.Errorf("Read(nil) = %v, %v", packet, err)
	}

	list := pdf.NewObjectList(nil)
	_, err = Read(list.CreateDict("Metadata"))
	if err == nil {
		t.Error("metadata without stream accepted")
	}
}

func TestFromInfo(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	info := &Info{
		Title:        "Report",
		Author:       "A. Writer",
		Keywords:     "test, metadata",
		Producer:     "pdfedit",
		CreationDate: created,
		PDFVersion:   pdf.V1_7,
	}
	packet, err := FromInfo(info)
	if err != nil {
		t.Fatal(err)
	}

	dc := &xmp.DublinCore{}
	dc.Title.Set(language.MustParse("x-default"), "Report")
	dc.Creator.Append(xmp.NewProperName("A. Writer"))
	ref := xmp.NewPacket()
	err = ref.Set(dc)
	if err != nil {
		t.Fatal(err)
	}
	want := &xmp.DublinCore{}
	ref.Get(want)
	got := &xmp.DublinCore{}
	packet.Get(got)
	if d := cmp.Diff(want, got); d != "" {
		t.Errorf("wrong Dublin Core properties (-want +got):\n%s", d)
	}

	// the packet survives embedding
	list := pdf.NewObjectList(nil)
	obj, err := Embed(list, packet)
	if err != nil {
		t.Fatal(err)
	}
	back, err := Read(obj)
	if err != nil {
		t.Fatal(err)
	}
	pdfInfo := &PDF{}
	back.Get(pdfInfo)
	if pdfInfo.Keywords.V != "test, metadata" || pdfInfo.PDFVersion.V != "1.7" {
		t.Errorf("wrong pdf properties: %q, %q", pdfInfo.Keywords.V, pdfInfo.PDFVersion.V)
	}
}
