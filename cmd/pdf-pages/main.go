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


// Pdf-pages lists and rearranges the pages of PDF files.
//
// Usage:
//
//	pdf-pages list file.pdf
//	pdf-pages outline file.pdf
//	pdf-pages [-o out.pdf] [-f] concat a.pdf b.pdf ...
//	pdf-pages [-o out.pdf] [-f] select file.pdf 3 1 2
//	pdf-pages [-o out.pdf] [-f] rotate file.pdf 90
//
// The select command copies the given pages, numbered from 1, in the given
// order.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	pdf "seehuhn.de/go/pdfedit"
	"seehuhn.de/go/pdfedit/document"
	"seehuhn.de/go/pdfedit/outline"
	"seehuhn.de/go/pdfedit/pagetree"
)

func main() {
	out := flag.String("o", "out.pdf", "output file name")
	force := flag.Bool("f", false, "overwrite output file if it exists")
	verbose := flag.Bool("v", false, "show warnings about malformed input files")
	flag.Usage = func() {
		w := flag.CommandLine.Output()
		fmt.Fprintf(w, "Usage: %s [options] list|outline|concat|select|rotate file.pdf ...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) < 2 {
		flag.Usage()
		os.Exit(1)
	}

	level := slog.LevelError
	if *verbose {
		level = slog.LevelWarn
	}
	opt := &document.Options{
		Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})),
	}

	var err error
	switch args[0] {
	case "list":
		err = listPages(args[1], opt)
	case "outline":
		err = showOutline(args[1], opt)
	case "concat", "select", "rotate":
		if !*force {
			if _, statErr := os.Stat(*out); !os.IsNotExist(statErr) {
				fmt.Fprintf(os.Stderr, "error: output file %q already exists\n", *out)
				os.Exit(1)
			}
		}
		switch args[0] {
		case "concat":
			err = concatFiles(*out, args[1:], opt)
		case "select":
			err = selectPages(*out, args[1], args[2:], opt)
		case "rotate":
			err = rotatePages(*out, args[1], args[2:], opt)
		}
	default:
		err = fmt.Errorf("unknown command %q", args[0])
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// lineWidth returns the width available for output lines.
func lineWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	width, _, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return width
}

func clip(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-1]) + "…"
}

func listPages(fname string, opt *document.Options) error {
	opt.ReadOnly = true
	doc, err := document.Open(fname, opt)
	if err != nil {
		return err
	}
	defer doc.Close()

	pages, err := doc.Pages()
	if err != nil {
		return err
	}
	all, err := pages.Pages()
	if err != nil {
		return err
	}

	width := lineWidth()
	fmt.Printf("PDF-%s, %d pages\n", doc.Version(), len(all))
	if info, _ := doc.Info(); info != nil && info.Title() != "" {
		fmt.Println(clip("title: "+info.Title(), width))
	}
	for _, p := range all {
		box, err := p.MediaBox()
		if err != nil {
			fmt.Printf("%4d  %s: %v\n", p.PageNumber(), p.Reference(), err)
			continue
		}
		rot, _ := p.Rotation()
		label, _ := doc.PageLabel(p.Index())
		line := fmt.Sprintf("%4d  %-6s %-10s %6.1f x %6.1f", p.PageNumber(), label, p.Reference(), box.Dx(), box.Dy())
		if rot != 0 {
			line += fmt.Sprintf("  rotated %d", rot)
		}
		contents, _ := p.Contents()
		line += fmt.Sprintf("  %d content streams", len(contents))
		fmt.Println(clip(line, width))
	}
	return nil
}

func showOutline(fname string, opt *document.Options) error {
	opt.ReadOnly = true
	doc, err := document.Open(fname, opt)
	if err != nil {
		return err
	}
	defer doc.Close()

	o, err := doc.Outlines()
	if err != nil {
		return err
	}
	if o == nil {
		fmt.Println("no outline")
		return nil
	}
	pages, err := doc.Pages()
	if err != nil {
		return err
	}
	children, err := o.Children()
	if err != nil {
		return err
	}
	return printItems(pages.PageByReference, children, 0, lineWidth())
}

func printItems(lookup pageLookup, items []*outline.Item, depth, width int) error {
	if depth > pdf.MaxDepth {
		return errors.New("outline nested too deeply")
	}
	for _, it := range items {
		where := ""
		target, err := it.Target()
		switch t := target.(type) {
		case outline.TargetDestination:
			if t.Named != "" {
				where = "→ " + t.Named
			} else if p, err := lookup(t.Page); err == nil {
				where = "→ p. " + strconv.Itoa(p.PageNumber())
			}
		case outline.TargetAction:
			if s, ok := t.Action.FindName("S"); ok {
				where = "→ /" + string(s)
			}
		}
		if err != nil {
			where = "→ ?"
		}
		line := strings.Repeat("  ", depth) + it.Title()
		if where != "" {
			line += "  " + where
		}
		fmt.Println(clip(line, width))

		children, err := it.Children()
		if err != nil {
			return err
		}
		err = printItems(lookup, children, depth+1, width)
		if err != nil {
			return err
		}
	}
	return nil
}

func concatFiles(out string, in []string, opt *document.Options) error {
	res := document.New(&document.Options{Logger: opt.Logger})
	for _, fname := range in {
		src, err := document.Open(fname, opt)
		if err != nil {
			return err
		}
		if src.Version() > res.Version() {
			res.SetVersion(src.Version())
		}
		err = res.AppendDocument(src)
		src.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", fname, err)
		}
	}
	if o, _ := res.Outlines(); o != nil {
		res.SetPageMode("UseOutlines")
	}
	return res.Save(out)
}

func selectPages(out, fname string, sel []string, opt *document.Options) error {
	src, err := document.Open(fname, opt)
	if err != nil {
		return err
	}
	defer src.Close()

	res := document.New(&document.Options{Logger: opt.Logger, Version: src.Version()})
	for _, s := range sel {
		pageNo, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid page number %q", s)
		}
		err = res.AppendDocumentPages(src, pageNo-1, 1)
		if err != nil {
			return fmt.Errorf("page %d: %w", pageNo, err)
		}
	}
	return res.Save(out)
}

// rotatePages rotates all pages of a file.  The file is saved using an
// incremental update.
func rotatePages(out, fname string, args []string, opt *document.Options) error {
	if len(args) != 1 {
		return errors.New("rotate needs exactly one angle")
	}
	angle, err := strconv.Atoi(args[0])
	if err != nil || angle%90 != 0 {
		return fmt.Errorf("invalid angle %q", args[0])
	}

	opt.Incremental = true
	doc, err := document.Open(fname, opt)
	if err != nil {
		return err
	}
	defer doc.Close()

	pages, err := doc.Pages()
	if err != nil {
		return err
	}
	all, err := pages.Pages()
	if err != nil {
		return err
	}
	for _, p := range all {
		rot, err := p.Rotation()
		if err != nil {
			return err
		}
		err = p.SetRotation(rot + angle)
		if err != nil {
			return err
		}
	}

	fd, err := os.Create(out)
	if err != nil {
		return err
	}
	err = doc.WriteUpdate(fd)
	if closeErr := fd.Close(); err == nil {
		err = closeErr
	}
	return err
}

type pageLookup func(pdf.Reference) (*pagetree.Page, error)
