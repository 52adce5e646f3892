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
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// makeTestFile writes a small document with a catalog, a page tree
// root and a content stream.
func makeTestFile(t *testing.T, opt *WriterOptions) ([]byte, *ObjectList, *Dict) {
	t.Helper()

	list := NewObjectList(nil)
	catalog := list.CreateDict("Catalog")
	pages := list.CreateDict("Pages")
	content := list.CreateDict("")
	stm, err := content.GetOrCreateStream()
	if err != nil {
		t.Fatal(err)
	}
	err = stm.SetData([]byte("0 0 m 100 100 l S"), "FlateDecode")
	if err != nil {
		t.Fatal(err)
	}
	page := list.CreateObject(NewDict(
		Entry{"Type", Name("Page")},
		Entry{"Parent", pages.Reference()},
		Entry{"MediaBox", NewArray(Integer(0), Integer(0), Integer(612), Integer(792))},
		Entry{"Contents", content.Reference()},
		Entry{"Title", TextString("Grüße, 世界")},
	))

	catDict, _ := catalog.GetDict()
	catDict.Set("Pages", pages.Reference())
	pagesDict, _ := pages.GetDict()
	pagesDict.Set("Kids", NewArray(page.Reference()))
	pagesDict.Set("Count", Integer(1))

	trailer := NewDict(Entry{"Root", catalog.Reference()})

	buf := &bytes.Buffer{}
	err = Write(buf, list, trailer, opt)
	if err != nil {
		t.Fatal(err)
	}
	return buf.Bytes(), list, trailer
}

func readTestFile(t *testing.T, data []byte) (*Reader, *ObjectList) {
	t.Helper()
	list := NewObjectList(nil)
	r, err := NewReader(bytes.NewReader(data), int64(len(data)), list, nil)
	if err != nil {
		t.Fatal(err)
	}
	return r, list
}

func compareLists(t *testing.T, want, got *ObjectList) {
	t.Helper()
	if d := cmp.Diff(want.References(), got.References()); d != "" {
		t.Fatalf("wrong references (-want +got):\n%s", d)
	}
	for _, obj := range want.Objects() {
		other := got.Get(obj.Reference())
		if !equalValues(obj.Value(), other.Value()) {
			t.Errorf("%s: %s != %s", obj.Reference(), Format(obj.Value()), Format(other.Value()))
		}
		if obj.HasStream() != other.HasStream() {
			t.Errorf("%s: stream mismatch", obj.Reference())
		} else if obj.HasStream() && !bytes.Equal(obj.Stream().Raw(), other.Stream().Raw()) {
			t.Errorf("%s: stream data differs", obj.Reference())
		}
	}
}

func TestRoundTrip(t *testing.T) {
	for _, opt := range []*WriterOptions{
		nil,
		{Version: V1_4},
		{XRefStream: true},
		{ID: [][]byte{[]byte("0123456789abcdef"), []byte("fedcba9876543210")}},
	} {
		data, list1, _ := makeTestFile(t, opt)
		for _, obj := range list1.Objects() {
			if obj.IsDirty() {
				t.Errorf("%s dirty after writing", obj.Reference())
			}
		}

		r, list2 := readTestFile(t, data)
		for _, obj := range list2.Objects() {
			if obj.IsLoaded() {
				t.Errorf("%s loaded before use", obj.Reference())
			}
		}
		compareLists(t, list1, list2)

		wantVersion := V1_7
		if opt != nil && opt.Version != 0 {
			wantVersion = opt.Version
		}
		if r.Version != wantVersion {
			t.Errorf("wrong version %s", r.Version)
		}
		if opt != nil && opt.ID != nil {
			if d := cmp.Diff(opt.ID, r.ID); d != "" {
				t.Errorf("wrong ID (-want +got):\n%s", d)
			}
		}
		if r.UsesXRefStream() != (opt != nil && opt.XRefStream) {
			t.Error("wrong xref format detected")
		}

		catalog := list2.Resolve(r.Trailer().Get("Root").Value())
		if dict, err := catalog.GetDict(); err != nil || !dict.IsType("Catalog") {
			t.Errorf("catalog not found: %v", err)
		}
		for _, obj := range list2.Objects() {
			if obj.IsDirty() {
				t.Errorf("%s dirty after loading", obj.Reference())
			}
		}
	}
}

func TestXRefStreamNeedsVersion(t *testing.T) {
	list := NewObjectList(nil)
	catalog := list.CreateDict("Catalog")
	trailer := NewDict(Entry{"Root", catalog.Reference()})
	err := Write(&bytes.Buffer{}, list, trailer, &WriterOptions{Version: V1_4, XRefStream: true})
	var verr *VersionError
	if !errors.As(err, &verr) {
		t.Errorf("expected VersionError, got %v", err)
	}

	err = Write(&bytes.Buffer{}, list, NewDict(), nil)
	if err == nil {
		t.Error("trailer without /Root accepted")
	}
}

func TestFreeListRoundTrip(t *testing.T) {
	list := NewObjectList(nil)
	catalog := list.CreateDict("Catalog")
	victim := list.CreateObject(Integer(1))
	list.CreateObject(Integer(2))
	list.Delete(victim.Reference())

	buf := &bytes.Buffer{}
	err := Write(buf, list, NewDict(Entry{"Root", catalog.Reference()}), nil)
	if err != nil {
		t.Fatal(err)
	}

	_, list2 := readTestFile(t, buf.Bytes())
	want := []Reference{NewReference(2, 1)}
	if d := cmp.Diff(want, list2.FreeObjects()); d != "" {
		t.Errorf("wrong free list (-want +got):\n%s", d)
	}
	if list2.Size() != 4 {
		t.Errorf("wrong size %d", list2.Size())
	}
}

func TestIncrementalUpdate(t *testing.T) {
	for _, xrefStream := range []bool{false, true} {
		data, _, _ := makeTestFile(t, &WriterOptions{XRefStream: xrefStream})

		r, list := readTestFile(t, data)
		list.SetCanReuseObjectNumbers(false)
		trailer := r.Trailer()

		catalog := list.Resolve(trailer.Get("Root").Value())
		catDict, err := catalog.GetDict()
		if err != nil {
			t.Fatal(err)
		}
		err = catDict.Set("PageMode", Name("UseOutlines"))
		if err != nil {
			t.Fatal(err)
		}
		extra := list.CreateObject(String("new"))
		err = catDict.Set("Extra", extra.Reference())
		if err != nil {
			t.Fatal(err)
		}

		// delete the content stream
		pages := catDict.FindDict("Pages")
		page := pages.FindArray("Kids").Find(0)
		pageDict, _ := page.GetDict()
		contentRef, _ := pageDict.Get("Contents").TryGetReference()
		pageDict.Remove("Contents")
		list.Delete(contentRef)

		buf := &bytes.Buffer{}
		err = WriteUpdate(buf, list, trailer, r, nil)
		if err != nil {
			t.Fatal(err)
		}
		out := buf.Bytes()
		if !bytes.HasPrefix(out, data) {
			t.Fatal("original data not preserved")
		}

		r2, list2 := readTestFile(t, out)
		if r2.UsesXRefStream() != xrefStream {
			t.Error("xref format changed")
		}
		cat2, err := list2.Resolve(r2.Trailer().Get("Root").Value()).GetDict()
		if err != nil {
			t.Fatal(err)
		}
		if mode, _ := cat2.FindName("PageMode"); mode != "UseOutlines" {
			t.Errorf("wrong /PageMode %q", mode)
		}
		if s, _ := cat2.FindString("Extra"); string(s) != "new" {
			t.Errorf("wrong /Extra %q", s)
		}
		if list2.Get(contentRef) != nil {
			t.Error("deleted object still present")
		}
		if d := cmp.Diff(list.References(), list2.References()); d != "" {
			t.Errorf("wrong references (-want +got):\n%s", d)
		}
	}
}

func TestRecovery(t *testing.T) {
	data, list1, _ := makeTestFile(t, nil)

	// break the startxref pointer
	idx := bytes.LastIndex(data, []byte("startxref"))
	broken := append([]byte{}, data[:idx]...)
	broken = append(broken, "startxref\n999999\n%%EOF\n"...)

	r, list2 := readTestFile(t, broken)
	if !r.Recovered() {
		t.Error("recovery not reported")
	}
	compareLists(t, list1, list2)
	if !r.Trailer().Has("Root") {
		t.Error("/Root not recovered")
	}

	err := WriteUpdate(&bytes.Buffer{}, list2, r.Trailer(), r, nil)
	if err == nil {
		t.Error("incremental update of a recovered file succeeded")
	}
}

func TestObjectStreamRecovery(t *testing.T) {
	// Object 1 is an object stream holding the catalog (2) and the page
	// tree root (3).  There is no usable xref table, so the objects must be
	// found by scanning the file.
	cat := "<</Type/Catalog/Pages 3 0 R>>\n"
	pages := "<</Type/Pages/Kids[]/Count 0>>"
	header := fmt.Sprintf("2 0 3 %d ", len(cat))
	body := cat + pages

	list := NewObjectList(nil)
	objStm := list.CreateObject(NewDict(
		Entry{"Type", Name("ObjStm")},
		Entry{"N", Integer(2)},
		Entry{"First", Integer(len(header))},
	))
	stm, _ := objStm.GetOrCreateStream()
	stm.SetData([]byte(header+body), "FlateDecode")

	buf := &bytes.Buffer{}
	err := Write(buf, list, NewDict(Entry{"Root", NewReference(2, 0)}), nil)
	if err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()
	idx := bytes.LastIndex(data, []byte("\nxref\n"))
	data = append(data[:idx+1:idx+1], "trailer\n<</Root 2 0 R>>\n%%EOF\n"...)

	r, list2 := readTestFile(t, data)
	if !r.Recovered() {
		t.Error("recovery not reported")
	}
	catalog, err := list2.Resolve(r.Trailer().Get("Root").Value()).GetDict()
	if err != nil {
		t.Fatal(err)
	}
	if !catalog.IsType("Catalog") {
		t.Error("catalog not found")
	}
	if n, _ := catalog.FindDict("Pages").FindInteger("Count"); n != 0 {
		t.Errorf("wrong /Count %d", n)
	}
}

func TestEncryptedRejected(t *testing.T) {
	list := NewObjectList(nil)
	catalog := list.CreateDict("Catalog")
	enc := list.CreateDict("")
	trailer := NewDict(
		Entry{"Root", catalog.Reference()},
	)
	buf := &bytes.Buffer{}
	err := Write(buf, list, trailer, nil)
	if err != nil {
		t.Fatal(err)
	}
	encrypt := fmt.Sprintf("/Root 1 0 R\n/Encrypt %d 0 R", enc.Reference().Number())
	data := bytes.Replace(buf.Bytes(), []byte("/Root 1 0 R"), []byte(encrypt), 1)
	_, err = NewReader(bytes.NewReader(data), int64(len(data)), NewObjectList(nil), nil)
	if !errors.Is(err, ErrEncrypted) {
		t.Errorf("expected ErrEncrypted, got %v", err)
	}
}
