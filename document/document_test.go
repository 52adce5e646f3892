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

package document

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/text/language"

	"seehuhn.de/go/geom/rect"

	pdf "seehuhn.de/go/pdfedit"
	"seehuhn.de/go/pdfedit/nametree"
)

var letter = rect.Rect{URx: 612, URy: 792}

func writeDoc(t *testing.T, doc *Document) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	err := doc.Write(buf)
	if err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func loadDoc(t *testing.T, data []byte, opt *Options) *Document {
	t.Helper()
	doc, err := Load(bytes.NewReader(data), int64(len(data)), opt)
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestNewWriteLoad(t *testing.T) {
	doc := New(nil)
	pages, err := doc.Pages()
	if err != nil {
		t.Fatal(err)
	}
	for range 3 {
		_, err := pages.CreatePage(letter)
		if err != nil {
			t.Fatal(err)
		}
	}
	info, err := doc.GetOrCreateInfo()
	if err != nil {
		t.Fatal(err)
	}
	info.SetTitle("Test Document")

	doc2 := loadDoc(t, writeDoc(t, doc), nil)
	if doc2.Version() != pdf.V1_7 {
		t.Errorf("wrong version %s", doc2.Version())
	}
	pages2, err := doc2.Pages()
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := pages2.Count(); n != 3 {
		t.Errorf("wrong page count %d", n)
	}
	info2, err := doc2.Info()
	if err != nil {
		t.Fatal(err)
	}
	if info2.Title() != "Test Document" {
		t.Errorf("wrong title %q", info2.Title())
	}
	if info2.Producer() != Producer {
		t.Errorf("wrong producer %q", info2.Producer())
	}
	if _, ok := info2.CreationDate(); !ok {
		t.Error("creation date missing")
	}
	id := doc2.Trailer().Value().(*pdf.Dict).FindArray("ID")
	if id.Len() != 2 {
		t.Error("file identifier missing")
	}
}

func TestIncrementalUpdate(t *testing.T) {
	doc := New(nil)
	pages, _ := doc.Pages()
	pages.CreatePage(letter)
	data := writeDoc(t, doc)

	doc2 := loadDoc(t, data, &Options{Incremental: true})
	info, err := doc2.Info()
	if err != nil {
		t.Fatal(err)
	}
	err = info.SetTitle("Updated")
	if err != nil {
		t.Fatal(err)
	}
	pages2, _ := doc2.Pages()
	_, err = pages2.CreatePage(letter)
	if err != nil {
		t.Fatal(err)
	}
	buf := &bytes.Buffer{}
	err = doc2.WriteUpdate(buf)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(buf.Bytes(), data) {
		t.Fatal("original file not preserved")
	}

	doc3 := loadDoc(t, buf.Bytes(), nil)
	info3, _ := doc3.Info()
	if info3.Title() != "Updated" {
		t.Errorf("wrong title %q", info3.Title())
	}
	pages3, _ := doc3.Pages()
	if n, _ := pages3.Count(); n != 2 {
		t.Errorf("wrong page count %d", n)
	}

	// the file identifier keeps its first part
	id1 := doc2.Trailer().Value().(*pdf.Dict).FindArray("ID")
	id3 := doc3.Trailer().Value().(*pdf.Dict).FindArray("ID")
	a, _ := id1.Find(0).TryGetString()
	b, _ := id3.Find(0).TryGetString()
	if !bytes.Equal(a, b) {
		t.Error("permanent file identifier changed")
	}

	err = New(nil).WriteUpdate(&bytes.Buffer{})
	if !errors.Is(err, errNotLoaded) {
		t.Errorf("expected errNotLoaded, got %v", err)
	}

	// without Incremental, deleted object numbers may be reused
	doc4 := loadDoc(t, data, nil)
	err = doc4.WriteUpdate(&bytes.Buffer{})
	if !errors.Is(err, errNotIncremental) {
		t.Errorf("expected errNotIncremental, got %v", err)
	}
}

func TestReadOnly(t *testing.T) {
	doc := New(nil)
	data := writeDoc(t, doc)

	doc2 := loadDoc(t, data, &Options{ReadOnly: true})
	err := doc2.SetPageMode("UseOutlines")
	if !errors.Is(err, pdf.ErrImmutable) {
		t.Errorf("expected ErrImmutable, got %v", err)
	}
	pages, err := doc2.Pages()
	if err != nil {
		t.Fatal(err)
	}
	_, err = pages.CreatePage(letter)
	if !errors.Is(err, pdf.ErrImmutable) {
		t.Errorf("expected ErrImmutable, got %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	list := pdf.NewObjectList(nil)
	list.CreateDict("Catalog")
	buf := &bytes.Buffer{}
	err := pdf.Write(buf, list, pdf.NewDict(pdf.Entry{Key: "Root", Value: pdf.NewReference(1, 0)}), nil)
	if err != nil {
		t.Fatal(err)
	}
	data := bytes.Replace(buf.Bytes(), []byte("/Root 1 0 R"), []byte("/Root 7 0 R"), 1)
	_, err = Load(bytes.NewReader(data), int64(len(data)), nil)
	if !errors.Is(err, pdf.ErrNoObject) {
		t.Errorf("expected ErrNoObject, got %v", err)
	}
}

func TestVersion(t *testing.T) {
	doc := New(&Options{Version: pdf.V1_4})
	data := writeDoc(t, doc)
	doc2 := loadDoc(t, data, nil)
	if doc2.Version() != pdf.V1_4 {
		t.Fatalf("wrong version %s", doc2.Version())
	}

	err := doc2.SetVersion(pdf.V2_0)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := doc2.catalogDict().FindName("Version"); v != "2.0" {
		t.Errorf("wrong catalog /Version %q", v)
	}
	doc3 := loadDoc(t, writeDoc(t, doc2), nil)
	if doc3.Version() != pdf.V2_0 {
		t.Errorf("wrong version %s", doc3.Version())
	}
}

func TestInfo(t *testing.T) {
	doc := New(nil)
	info, err := doc.GetOrCreateInfo()
	if err != nil {
		t.Fatal(err)
	}

	info.SetAuthor("Jochen Voss")
	info.SetSubject("Ünïcödé")
	info.SetKeywords("pdf, test")
	info.SetCreator("")
	if info.Author() != "Jochen Voss" || info.Subject() != "Ünïcödé" {
		t.Errorf("wrong values %q, %q", info.Author(), info.Subject())
	}
	if info.Object().Value().(*pdf.Dict).Has("Creator") {
		t.Error("empty /Creator stored")
	}

	mod := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	info.SetModDate(mod)
	if got, ok := info.ModDate(); !ok || !got.Equal(mod) {
		t.Errorf("wrong /ModDate %v", got)
	}
	info.SetModDate(time.Time{})
	if _, ok := info.ModDate(); ok {
		t.Error("/ModDate not removed")
	}

	if info.Trapped() != "Unknown" {
		t.Errorf("wrong default /Trapped %q", info.Trapped())
	}
	if err := info.SetTrapped("True"); err != nil {
		t.Fatal(err)
	}
	if info.Trapped() != "True" {
		t.Errorf("wrong /Trapped %q", info.Trapped())
	}
	if err := info.SetTrapped("Maybe"); !errors.Is(err, pdf.ErrInvalidDataType) {
		t.Errorf("expected ErrInvalidDataType, got %v", err)
	}
	info.Object().Value().(*pdf.Dict).Set("Trapped", pdf.Bool(false))
	if info.Trapped() != "False" {
		t.Errorf("boolean /Trapped read as %q", info.Trapped())
	}

	if err := info.SetCustom("Title", "x"); err == nil {
		t.Error("standard key accepted as custom key")
	}
	info.SetCustom("Department", "Statistics")
	if v, ok := info.Custom("Department"); !ok || v != "Statistics" {
		t.Errorf("wrong custom value %q", v)
	}
	if d := cmp.Diff([]pdf.Name{"Department"}, info.CustomKeys()); d != "" {
		t.Errorf("wrong custom keys (-want +got):\n%s", d)
	}
}

func TestCatalogSettings(t *testing.T) {
	doc := New(nil)

	if doc.PageMode() != "UseNone" || doc.PageLayout() != "SinglePage" {
		t.Errorf("wrong defaults %q, %q", doc.PageMode(), doc.PageLayout())
	}
	if err := doc.SetPageMode("UseOutlines"); err != nil {
		t.Fatal(err)
	}
	if err := doc.SetPageLayout("TwoColumnLeft"); err != nil {
		t.Fatal(err)
	}
	if err := doc.SetPageMode("Sideways"); !errors.Is(err, pdf.ErrInvalidDataType) {
		t.Errorf("expected ErrInvalidDataType, got %v", err)
	}
	if doc.PageMode() != "UseOutlines" || doc.PageLayout() != "TwoColumnLeft" {
		t.Errorf("wrong values %q, %q", doc.PageMode(), doc.PageLayout())
	}
	doc.SetPageMode("UseNone")
	if doc.catalogDict().Has("PageMode") {
		t.Error("default page mode stored")
	}

	tag, err := doc.Language()
	if err != nil || tag != language.Und {
		t.Errorf("wrong default language %v, %v", tag, err)
	}
	err = doc.SetLanguage(language.MustParse("de-CH"))
	if err != nil {
		t.Fatal(err)
	}
	doc2 := loadDoc(t, writeDoc(t, doc), nil)
	tag, err = doc2.Language()
	if err != nil {
		t.Fatal(err)
	}
	if tag.String() != "de-CH" {
		t.Errorf("wrong language %s", tag)
	}
	if doc2.PageLayout() != "TwoColumnLeft" {
		t.Errorf("wrong page layout %q", doc2.PageLayout())
	}

	doc2.catalogDict().Set("Lang", pdf.String("not a tag!"))
	if _, err := doc2.Language(); err == nil {
		t.Error("malformed language tag accepted")
	}
}

func TestNameTrees(t *testing.T) {
	doc := New(nil)
	pages, _ := doc.Pages()
	page, _ := pages.CreatePage(letter)

	err := doc.AddNamedDestination("intro", page.Reference(), "")
	if err != nil {
		t.Fatal(err)
	}
	err = doc.AddNamedDestination("bad", pdf.NewReference(999, 0), "")
	if !errors.Is(err, pdf.ErrNoObject) {
		t.Errorf("expected ErrNoObject, got %v", err)
	}
	data := []byte("hello, world\n")
	mod := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	fileSpec, err := doc.AttachFile("hello.txt", data, mod)
	if err != nil {
		t.Fatal(err)
	}

	doc2 := loadDoc(t, writeDoc(t, doc), nil)
	names, err := doc2.Names()
	if err != nil || names == nil {
		t.Fatalf("name dictionary missing: %v", err)
	}
	if d := cmp.Diff([]pdf.Name{nametree.Dests, nametree.EmbeddedFiles}, names.Kinds()); d != "" {
		t.Errorf("wrong trees (-want +got):\n%s", d)
	}

	dests, err := names.Tree(nametree.Dests)
	if err != nil {
		t.Fatal(err)
	}
	dest, err := dests.Lookup("intro")
	if err != nil {
		t.Fatal(err)
	}
	arr, err := dest.GetArray()
	if err != nil {
		t.Fatal(err)
	}
	if ref, _ := arr.At(0).TryGetReference(); ref != page.Reference() {
		t.Errorf("wrong destination page %s", ref)
	}
	if fit, _ := arr.At(1).TryGetName(); fit != "Fit" {
		t.Errorf("wrong fit %q", fit)
	}

	files, err := names.Tree(nametree.EmbeddedFiles)
	if err != nil {
		t.Fatal(err)
	}
	fileSpec2, err := files.Lookup("hello.txt")
	if err != nil {
		t.Fatal(err)
	}
	if fileSpec2.Reference() != fileSpec.Reference() {
		t.Errorf("wrong file specification %s", fileSpec2.Reference())
	}
	specDict, _ := fileSpec2.GetDict()
	file := specDict.FindDict("EF").Find("F")
	got, err := file.Stream().Decode()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("wrong file contents %q", got)
	}
	params := file.Value().(*pdf.Dict).FindDict("Params")
	if n, _ := params.FindInteger("Size"); int(n) != len(data) {
		t.Errorf("wrong /Size %d", n)
	}
}

func TestMetadata(t *testing.T) {
	doc := New(nil)
	packet, err := doc.Metadata()
	if err != nil || packet != nil {
		t.Fatalf("unexpected metadata %v, %v", packet, err)
	}

	info, _ := doc.Info()
	info.SetTitle("With Metadata")
	err = doc.SyncMetadata()
	if err != nil {
		t.Fatal(err)
	}

	doc2 := loadDoc(t, writeDoc(t, doc), nil)
	packet, err = doc2.Metadata()
	if err != nil {
		t.Fatal(err)
	}
	if packet == nil {
		t.Fatal("metadata missing")
	}

	err = doc2.SetMetadata(nil)
	if err != nil {
		t.Fatal(err)
	}
	if doc2.catalogDict().Has("Metadata") {
		t.Error("metadata not removed")
	}
	n, err := doc2.CollectGarbage()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("%d objects collected, want 1", n)
	}
}

func TestAcroForm(t *testing.T) {
	doc := New(nil)
	form, err := doc.AcroForm()
	if err != nil || form != nil {
		t.Fatalf("unexpected form %v, %v", form, err)
	}
	form, err = doc.GetOrCreateAcroForm()
	if err != nil {
		t.Fatal(err)
	}
	field := doc.Objects().CreateObject(pdf.NewDict(
		pdf.Entry{Key: "FT", Value: pdf.Name("Tx")},
		pdf.Entry{Key: "T", Value: pdf.TextString("name")},
	))
	err = form.AddField(field)
	if err != nil {
		t.Fatal(err)
	}
	if err := form.AddField(pdf.NewObject(pdf.Integer(1))); err == nil {
		t.Error("non-dictionary field accepted")
	}
	form.SetNeedAppearances(true)

	doc2 := loadDoc(t, writeDoc(t, doc), nil)
	form2, err := doc2.AcroForm()
	if err != nil || form2 == nil {
		t.Fatalf("form missing: %v", err)
	}
	fields := form2.Fields()
	if len(fields) != 1 || fields[0].Reference() != field.Reference() {
		t.Errorf("wrong fields %v", fields)
	}
	if !form2.NeedAppearances() {
		t.Error("/NeedAppearances lost")
	}
}

func TestSetTrailer(t *testing.T) {
	doc := New(nil)
	pages, _ := doc.Pages()
	pages.CreatePage(letter)

	// a second catalog with an empty page tree
	list := doc.Objects()
	catalog := list.CreateDict("Catalog")
	tree := list.CreateObject(pdf.NewDict(
		pdf.Entry{Key: "Type", Value: pdf.Name("Pages")},
		pdf.Entry{Key: "Kids", Value: pdf.NewArray()},
		pdf.Entry{Key: "Count", Value: pdf.Integer(0)},
	))
	catalog.Value().(*pdf.Dict).Set("Pages", tree.Reference())

	err := doc.SetTrailer(pdf.NewObject(pdf.NewDict(pdf.Entry{Key: "Size", Value: pdf.Integer(3)})))
	if !errors.Is(err, pdf.ErrNoObject) {
		t.Errorf("expected ErrNoObject, got %v", err)
	}
	err = doc.SetTrailer(pdf.NewObject(pdf.NewDict(pdf.Entry{Key: "Root", Value: pdf.NewReference(99, 0)})))
	if !errors.Is(err, pdf.ErrNoObject) {
		t.Errorf("dangling /Root: expected ErrNoObject, got %v", err)
	}
	err = doc.SetTrailer(pdf.NewObject(pdf.NewDict(pdf.Entry{Key: "Root", Value: pdf.NewDict()})))
	if !errors.Is(err, pdf.ErrInvalidHandle) {
		t.Errorf("direct /Root: expected ErrInvalidHandle, got %v", err)
	}
	if doc.Catalog() == catalog {
		t.Fatal("catalog replaced by a rejected trailer")
	}
	err = doc.SetTrailer(pdf.NewObject(pdf.NewDict(pdf.Entry{Key: "Root", Value: catalog.Reference()})))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Catalog() != catalog {
		t.Error("catalog not replaced")
	}
	pages, err = doc.Pages()
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := pages.Count(); n != 0 {
		t.Errorf("wrong page count %d", n)
	}

	// the old catalog, page tree, page and info dictionary are unreachable
	n, err := doc.CollectGarbage()
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Errorf("%d objects collected, want 4", n)
	}
}
