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


// Package document gives high-level access to PDF documents.
//
// A [Document] owns the object list of a PDF file, the trailer dictionary
// and the document catalog.  Facades for the page tree, the outline, the
// name trees, the interactive form and the document information
// dictionary are created on first use and then cached.
//
// Documents are created empty using [New], or read from a file using
// [Open] or [Load].  A document can be written as a complete new file
// ([Document.Write], [Document.Save]), or, if it was read from a file, as
// an incremental update appended to the original bytes
// ([Document.WriteUpdate]).
package document

import (
	"bufio"
	"crypto/md5"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"golang.org/x/text/language"

	"seehuhn.de/go/xmp"

	pdf "seehuhn.de/go/pdfedit"
	"seehuhn.de/go/pdfedit/metadata"
	"seehuhn.de/go/pdfedit/nametree"
	"seehuhn.de/go/pdfedit/outline"
	"seehuhn.de/go/pdfedit/pagetree"
)

// Producer is stored in the document information dictionary of new
// documents.
const Producer = "seehuhn.de/go/pdfedit"

// Options configures the creation and loading of documents.
// A nil *Options is equivalent to the zero value.
type Options struct {
	// Logger receives warnings about recoverable problems in the file.
	// If this is nil, nothing is logged.
	Logger *slog.Logger

	// Version is the PDF version of new documents.  If this is zero,
	// PDF 1.7 is used.  Ignored by Open and Load.
	Version pdf.Version

	// Incremental prepares a loaded document for an incremental update:
	// numbers of deleted objects are not reused, so that new objects never
	// collide with objects in the original file.  [Document.WriteUpdate]
	// requires this option.
	Incremental bool

	// ReadOnly marks all objects read from the file as immutable.
	ReadOnly bool

	// XRefStream selects a cross-reference stream instead of a
	// cross-reference table when the document is written as a new file.
	XRefStream bool
}

// Document is a PDF document.
type Document struct {
	list    *pdf.ObjectList
	trailer *pdf.Object
	catalog *pdf.Object
	version pdf.Version
	reader  *pdf.Reader
	opt     Options
	log     *slog.Logger

	pages    *pagetree.Collection
	outlines *outline.Outline
	names    *nametree.Names
	acroForm *AcroForm
	info     *Info
}

var (
	errNotLoaded      = errors.New("document was not read from a file")
	errNotIncremental = errors.New("document was not loaded for an incremental update")
)

// New creates a new, empty document.  The document has a catalog, an
// empty page tree and a document information dictionary.
func New(opt *Options) *Document {
	if opt == nil {
		opt = &Options{}
	}
	list := pdf.NewObjectList(&pdf.ListOptions{Logger: opt.Logger})
	catalog := list.CreateDict("Catalog")
	trailer := list.NewRootObject(pdf.NewDict(
		pdf.Entry{Key: "Root", Value: catalog.Reference()},
	))

	version := opt.Version
	if version == 0 {
		version = pdf.V1_7
	}
	doc := &Document{
		list:    list,
		trailer: trailer,
		catalog: catalog,
		version: version,
		opt:     *opt,
		log:     list.Logger(),
	}

	// A fresh catalog is always mutable, so these cannot fail.
	doc.pages, _ = pagetree.New(list, catalog)
	info, _ := doc.GetOrCreateInfo()
	info.SetProducer(Producer)
	info.SetCreationDate(time.Now())

	return doc
}

// Open reads a document from the named file.  The file stays open until
// the document is closed.
func Open(path string, opt *Options) (*Document, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	fi, err := fd.Stat()
	if err != nil {
		fd.Close()
		return nil, err
	}
	doc, err := Load(fd, fi.Size(), opt)
	if err != nil {
		fd.Close()
		return nil, err
	}
	return doc, nil
}

// Load reads a document from r.  Objects are read from r on demand, so r
// must stay valid until the document is closed.  If r implements
// io.Closer, it is closed by [Document.Close].
func Load(r io.ReaderAt, size int64, opt *Options) (*Document, error) {
	if opt == nil {
		opt = &Options{}
	}
	list := pdf.NewObjectList(&pdf.ListOptions{
		Logger:  opt.Logger,
		NoReuse: opt.Incremental,
	})
	reader, err := pdf.NewReader(r, size, list, nil)
	if err != nil {
		return nil, err
	}

	trailer := list.NewRootObject(reader.Trailer())
	trailerDict, _ := trailer.GetDict()
	if _, ok := trailerDict.Get("Root").TryGetReference(); !ok {
		return nil, fmt.Errorf("%w: trailer has no /Root", pdf.ErrNoObject)
	}
	catalog, err := trailerDict.MustFind("Root")
	if err != nil {
		return nil, fmt.Errorf("document catalog: %w", err)
	}
	if _, err := catalog.GetDict(); err != nil {
		return nil, pdf.Wrap(fmt.Errorf("document catalog: %w", err), "/Root")
	}

	doc := &Document{
		list:    list,
		trailer: trailer,
		catalog: catalog,
		version: reader.Version,
		reader:  reader,
		opt:     *opt,
		log:     list.Logger(),
	}

	// PDF 1.4 and newer can override the header version in the catalog.
	if name, ok := doc.catalogDict().FindName("Version"); ok {
		if v, err := pdf.ParseVersion(string(name)); err == nil && v > doc.version {
			doc.version = v
		}
	}

	if opt.ReadOnly {
		list.SetImmutable(true)
		trailer.SetImmutable(true)
	}
	doc.log.Debug("document loaded",
		"version", doc.version, "objects", list.Len(), "recovered", reader.Recovered())
	return doc, nil
}

// Close releases the file the document was read from.  The document must
// not be used after Close has been called.
func (doc *Document) Close() error {
	if doc.reader == nil {
		return nil
	}
	return doc.reader.Close()
}

// Objects returns the object list of the document.
func (doc *Document) Objects() *pdf.ObjectList {
	return doc.list
}

// Trailer returns the trailer dictionary.  The trailer is not part of the
// object list.
func (doc *Document) Trailer() *pdf.Object {
	return doc.trailer
}

// Catalog returns the document catalog.
func (doc *Document) Catalog() *pdf.Object {
	return doc.catalog
}

func (doc *Document) catalogDict() *pdf.Dict {
	d, _ := doc.catalog.TryGetDict()
	return d
}

func (doc *Document) trailerDict() *pdf.Dict {
	d, _ := doc.trailer.TryGetDict()
	return d
}

// Logger returns the logger of the document.
func (doc *Document) Logger() *slog.Logger {
	return doc.log
}

// Version returns the PDF version of the document.
func (doc *Document) Version() pdf.Version {
	return doc.version
}

// SetVersion changes the PDF version of the document.  For documents read
// from a file, a version above the one in the file header is also
// recorded in the /Version entry of the catalog, so that it survives an
// incremental update.
func (doc *Document) SetVersion(v pdf.Version) error {
	s, err := v.ToString()
	if err != nil {
		return err
	}
	if doc.reader != nil && v > doc.reader.Version {
		err := doc.catalogDict().Set("Version", pdf.Name(s))
		if err != nil {
			return err
		}
	}
	doc.version = v
	return nil
}

// SetTrailer replaces the trailer dictionary.  The new trailer must
// contain a /Root entry which refers to a dictionary.  All cached facades
// are discarded.
func (doc *Document) SetTrailer(obj *pdf.Object) error {
	dict, err := obj.GetDict()
	if err != nil {
		return err
	}
	if !dict.Has("Root") {
		return fmt.Errorf("%w: trailer has no /Root", pdf.ErrNoObject)
	}
	ref, ok := dict.Get("Root").TryGetReference()
	if !ok {
		return fmt.Errorf("%w: /Root must be an object of this document", pdf.ErrInvalidHandle)
	}
	root, err := doc.list.MustGet(ref)
	if err != nil {
		return fmt.Errorf("document catalog: %w", err)
	}
	if err := root.DelayedLoad(); err != nil {
		return err
	}
	if _, err := root.GetDict(); err != nil {
		return fmt.Errorf("document catalog: %w", err)
	}

	doc.trailer = doc.list.NewRootObject(dict.Copy())
	doc.catalog = root
	doc.pages = nil
	doc.outlines = nil
	doc.names = nil
	doc.acroForm = nil
	doc.info = nil
	return nil
}

// Pages returns the page tree of the document.
func (doc *Document) Pages() (*pagetree.Collection, error) {
	if doc.pages != nil {
		return doc.pages, nil
	}
	pages, err := pagetree.Open(doc.catalog)
	if err != nil {
		return nil, err
	}
	doc.pages = pages
	return pages, nil
}

// Outlines returns the document outline, or nil if the document has no
// outline.
func (doc *Document) Outlines() (*outline.Outline, error) {
	if doc.outlines != nil {
		return doc.outlines, nil
	}
	obj := doc.catalogDict().Find("Outlines")
	if obj == nil || obj.IsNull() {
		return nil, nil
	}
	o, err := outline.Open(obj)
	if err != nil {
		return nil, pdf.Wrap(err, "/Outlines")
	}
	doc.outlines = o
	return o, nil
}

// GetOrCreateOutlines returns the document outline.  If the document has
// no outline, an empty one is created.
func (doc *Document) GetOrCreateOutlines() (*outline.Outline, error) {
	o, err := doc.Outlines()
	if err != nil || o != nil {
		return o, err
	}
	o = outline.Create(doc.list)
	err = doc.catalogDict().SetIndirect("Outlines", o.Object())
	if err != nil {
		doc.list.Delete(o.Reference())
		return nil, err
	}
	doc.outlines = o
	return o, nil
}

// Names returns the name dictionary of the document, or nil if the
// document has none.
func (doc *Document) Names() (*nametree.Names, error) {
	if doc.names != nil {
		return doc.names, nil
	}
	obj := doc.catalogDict().Find("Names")
	if obj == nil || obj.IsNull() {
		return nil, nil
	}
	names, err := nametree.Open(obj)
	if err != nil {
		return nil, pdf.Wrap(err, "/Names")
	}
	doc.names = names
	return names, nil
}

// GetOrCreateNames returns the name dictionary of the document.  If the
// document has none, an empty one is created.
func (doc *Document) GetOrCreateNames() (*nametree.Names, error) {
	names, err := doc.Names()
	if err != nil || names != nil {
		return names, err
	}
	names = nametree.CreateNames(doc.list)
	err = doc.catalogDict().SetIndirect("Names", names.Object())
	if err != nil {
		doc.list.Delete(names.Object().Reference())
		return nil, err
	}
	doc.names = names
	return names, nil
}

// Metadata returns the XMP metadata of the document, or nil if there is
// no metadata stream.
func (doc *Document) Metadata() (*xmp.Packet, error) {
	packet, err := metadata.Read(doc.catalogDict().Find("Metadata"))
	if err != nil {
		return nil, pdf.Wrap(err, "/Metadata")
	}
	return packet, nil
}

// SetMetadata stores packet as the metadata stream of the document.  The
// previous metadata stream, if any, is left in the object list and can be
// removed using [Document.CollectGarbage].
func (doc *Document) SetMetadata(packet *xmp.Packet) error {
	catDict := doc.catalogDict()
	err := doc.catalog.AssertMutable()
	if err != nil {
		return err
	}
	if packet == nil {
		return catDict.Remove("Metadata")
	}
	obj, err := metadata.Embed(doc.list, packet)
	if err != nil {
		return err
	}
	return catDict.SetIndirect("Metadata", obj)
}

// SyncMetadata replaces the metadata stream by an XMP packet generated
// from the document information dictionary.
func (doc *Document) SyncMetadata() error {
	mi := &metadata.Info{PDFVersion: doc.version}
	if info, err := doc.Info(); err != nil {
		return err
	} else if info != nil {
		mi.Title = info.Title()
		mi.Author = info.Author()
		mi.Subject = info.Subject()
		mi.Keywords = info.Keywords()
		mi.Producer = info.Producer()
		mi.CreationDate, _ = info.CreationDate()
		mi.ModDate, _ = info.ModDate()
	}
	packet, err := metadata.FromInfo(mi)
	if err != nil {
		return err
	}
	return doc.SetMetadata(packet)
}

// Language returns the natural language of the document, as given by the
// /Lang entry of the catalog.  If the entry is missing, [language.Und] is
// returned.
func (doc *Document) Language() (language.Tag, error) {
	s, ok := doc.catalogDict().FindString("Lang")
	if !ok || len(s) == 0 {
		return language.Und, nil
	}
	tag, err := language.Parse(s.AsTextString())
	if err != nil {
		return language.Und, pdf.Wrap(pdf.Errorf("invalid language tag %q", s.AsTextString()), "/Lang")
	}
	return tag, nil
}

// SetLanguage sets the natural language of the document.  Use
// [language.Und] to remove the entry.
func (doc *Document) SetLanguage(tag language.Tag) error {
	if tag == language.Und {
		return doc.catalogDict().Remove("Lang")
	}
	return doc.catalogDict().Set("Lang", pdf.TextString(tag.String()))
}

var (
	pageModes = map[pdf.Name]bool{
		"UseNone": true, "UseOutlines": true, "UseThumbs": true,
		"FullScreen": true, "UseOC": true, "UseAttachments": true,
	}
	pageLayouts = map[pdf.Name]bool{
		"SinglePage": true, "OneColumn": true, "TwoColumnLeft": true,
		"TwoColumnRight": true, "TwoPageLeft": true, "TwoPageRight": true,
	}
)

// PageMode returns how the document is displayed when opened.
// The default is /UseNone.
func (doc *Document) PageMode() pdf.Name {
	if mode, ok := doc.catalogDict().FindName("PageMode"); ok && pageModes[mode] {
		return mode
	}
	return "UseNone"
}

// SetPageMode sets how the document is displayed when opened.
func (doc *Document) SetPageMode(mode pdf.Name) error {
	if !pageModes[mode] {
		return fmt.Errorf("%w: page mode /%s", pdf.ErrInvalidDataType, mode)
	}
	if mode == "UseNone" {
		return doc.catalogDict().Remove("PageMode")
	}
	return doc.catalogDict().Set("PageMode", mode)
}

// PageLayout returns the page layout used when the document is opened.
// The default is /SinglePage.
func (doc *Document) PageLayout() pdf.Name {
	if layout, ok := doc.catalogDict().FindName("PageLayout"); ok && pageLayouts[layout] {
		return layout
	}
	return "SinglePage"
}

// SetPageLayout sets the page layout used when the document is opened.
func (doc *Document) SetPageLayout(layout pdf.Name) error {
	if !pageLayouts[layout] {
		return fmt.Errorf("%w: page layout /%s", pdf.ErrInvalidDataType, layout)
	}
	if layout == "SinglePage" {
		return doc.catalogDict().Remove("PageLayout")
	}
	return doc.catalogDict().Set("PageLayout", layout)
}

// AddNamedDestination registers a destination in the /Dests name tree.
// If fit is empty, /Fit is used.
func (doc *Document) AddNamedDestination(name string, page pdf.Reference, fit pdf.Name, params ...pdf.Value) error {
	if doc.list.Get(page) == nil {
		return fmt.Errorf("%w: destination page %s", pdf.ErrNoObject, page)
	}
	if fit == "" {
		fit = "Fit"
	}
	names, err := doc.GetOrCreateNames()
	if err != nil {
		return err
	}
	tree, err := names.GetOrCreateTree(nametree.Dests)
	if err != nil {
		return err
	}
	dest := pdf.NewArray(append([]pdf.Value{page, fit}, params...)...)
	return tree.Add(name, dest)
}

// AttachFile embeds a file in the document and lists it in the
// /EmbeddedFiles name tree.  The file specification is returned.
func (doc *Document) AttachFile(name string, data []byte, modTime time.Time) (*pdf.Object, error) {
	names, err := doc.GetOrCreateNames()
	if err != nil {
		return nil, err
	}
	tree, err := names.GetOrCreateTree(nametree.EmbeddedFiles)
	if err != nil {
		return nil, err
	}

	params := pdf.NewDict(pdf.Entry{Key: "Size", Value: pdf.Integer(len(data))})
	if !modTime.IsZero() {
		params.Set("ModDate", pdf.Date(modTime))
	}
	file := doc.list.CreateObject(pdf.NewDict(
		pdf.Entry{Key: "Type", Value: pdf.Name("EmbeddedFile")},
		pdf.Entry{Key: "Params", Value: params},
	))
	stm, err := file.GetOrCreateStream()
	if err != nil {
		return nil, err
	}
	err = stm.SetData(data, "FlateDecode")
	if err != nil {
		doc.list.Delete(file.Reference())
		return nil, err
	}

	fileSpec := doc.list.CreateObject(pdf.NewDict(
		pdf.Entry{Key: "Type", Value: pdf.Name("Filespec")},
		pdf.Entry{Key: "F", Value: pdf.TextString(name)},
		pdf.Entry{Key: "UF", Value: pdf.TextString(name)},
		pdf.Entry{Key: "EF", Value: pdf.NewDict(pdf.Entry{Key: "F", Value: file.Reference()})},
	))
	err = tree.Add(name, fileSpec.Reference())
	if err != nil {
		return nil, err
	}
	return fileSpec, nil
}

// CollectGarbage removes all objects which cannot be reached from the
// trailer.  The number of removed objects is returned.
func (doc *Document) CollectGarbage() (int, error) {
	return doc.list.CollectGarbage(doc.trailer)
}

// Write writes the document as a complete PDF file.
func (doc *Document) Write(w io.Writer) error {
	opt := &pdf.WriterOptions{
		Version:    doc.version,
		XRefStream: doc.opt.XRefStream,
		ID:         doc.newID(),
	}
	if doc.reader != nil && doc.reader.UsesXRefStream() && doc.version >= pdf.V1_5 {
		opt.XRefStream = true
	}
	return pdf.Write(w, doc.list, doc.trailerDict(), opt)
}

// Save writes the document as a complete PDF file to the named file.
// The file must be different from the file the document was read from.
func (doc *Document) Save(path string) error {
	fd, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(fd)
	err = doc.Write(w)
	if err == nil {
		err = w.Flush()
	}
	if closeErr := fd.Close(); err == nil {
		err = closeErr
	}
	return err
}

// WriteUpdate writes the original file, followed by an incremental update
// which contains all objects changed since the document was loaded.
// The document must have been loaded with [Options.Incremental] set.
func (doc *Document) WriteUpdate(w io.Writer) error {
	if doc.reader == nil {
		return errNotLoaded
	}
	if !doc.opt.Incremental {
		return errNotIncremental
	}
	opt := &pdf.WriterOptions{ID: doc.newID()}
	return pdf.WriteUpdate(w, doc.list, doc.trailerDict(), doc.reader, opt)
}

// newID returns the file identifier for the next write.  The first part
// of an existing identifier is kept, the second part changes with every
// write.
func (doc *Document) newID() [][]byte {
	h := md5.New()
	io.WriteString(h, time.Now().Format(time.RFC3339Nano))
	io.WriteString(h, strconv.Itoa(doc.list.Len()))
	if info := doc.trailerDict().FindDict("Info"); info != nil {
		info.PDF(h)
	}
	instance := h.Sum(nil)

	if id := doc.trailerDict().FindArray("ID"); id.Len() == 2 {
		if first, ok := id.Find(0).TryGetString(); ok && len(first) > 0 {
			return [][]byte{[]byte(first), instance}
		}
	}
	return [][]byte{instance, instance}
}
