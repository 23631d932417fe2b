// seehuhn.de/go/redact - remove content from regions of PDF pages
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
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

// Package extract recovers the text shown on the first page of a PDF file.
//
// The text is reconstructed from the content stream of the page, using the
// encoding and the ToUnicode map of each font.  Line breaks are inserted
// where the text position moves to a new line, and spaces are inserted for
// large gaps inside a line.  This is good enough to check which words are
// present on a page, but no attempt is made to reconstruct the reading
// order of complex layouts.
package extract

import (
	"errors"
	"strings"

	"golang.org/x/text/unicode/norm"

	"seehuhn.de/go/redact/content"
	"seehuhn.de/go/redact/internal/pdffont"
	"seehuhn.de/go/redact/pdf"
)

// maxDepth limits the nesting of form XObjects.
const maxDepth = 16

// gapThreshold is the size of a TJ position adjustment, in thousandths of
// a text space unit, above which a space is inserted.
const gapThreshold = 250

// File returns the text of the first page of the named PDF file.
func File(fname string) (string, error) {
	r, err := pdf.Open(fname)
	if err != nil {
		return "", err
	}
	defer r.Close()

	catalog, err := r.Catalog()
	if err != nil {
		return "", err
	}
	page, err := pdf.FirstPage(r, catalog)
	if err != nil {
		return "", err
	}
	return Page(r, page)
}

// Page returns the text of a page.  The result is in Unicode normalization
// form NFC.
func Page(r pdf.Getter, page *pdf.Page) (string, error) {
	data, err := page.Contents(r)
	if err != nil {
		return "", err
	}

	e := &extractor{
		r:     r,
		fonts: make(map[pdf.Reference]*pdffont.Font),
		forms: make(map[pdf.Reference]bool),
	}
	res, _ := pdf.GetDict(r, page.Attr("Resources"))
	err = e.run(data, res, 0)
	if err != nil {
		return "", err
	}
	return norm.NFC.String(strings.TrimSpace(e.buf.String())), nil
}

type extractor struct {
	r     pdf.Getter
	fonts map[pdf.Reference]*pdffont.Font
	forms map[pdf.Reference]bool
	buf   strings.Builder
}

type textState struct {
	font *pdffont.Font
}

func (e *extractor) run(data []byte, res pdf.Dict, depth int) error {
	ops, err := content.Parse(data)
	if err != nil {
		return err
	}

	var state textState
	var stack []textState
	for _, op := range ops {
		switch op.Name {
		case "q":
			stack = append(stack, state)
		case "Q":
			if len(stack) > 0 {
				state = stack[len(stack)-1]
				stack = stack[:len(stack)-1]
			}
		case "Tf":
			if len(op.Args) == 2 {
				name, _ := op.Args[0].(pdf.Name)
				state.font = e.font(res, name)
			}
		case "gs":
			if len(op.Args) == 1 {
				name, _ := op.Args[0].(pdf.Name)
				if font := e.gsFont(res, name); font != nil {
					state.font = font
				}
			}
		case "T*", "Tm":
			e.newline()
		case "Td", "TD":
			if len(op.Args) == 2 {
				if ty, err := pdf.GetNumber(nil, op.Args[1]); err == nil && ty != 0 {
					e.newline()
				}
			}
		case "'", "\"":
			e.newline()
			fallthrough
		case "Tj":
			if len(op.Args) > 0 {
				s, _ := op.Args[len(op.Args)-1].(pdf.String)
				e.show(state.font, s)
			}
		case "TJ":
			if len(op.Args) == 0 {
				continue
			}
			elems, _ := op.Args[0].(pdf.Array)
			for _, elem := range elems {
				switch elem := elem.(type) {
				case pdf.String:
					e.show(state.font, elem)
				case pdf.Integer, pdf.Real:
					x, _ := pdf.GetNumber(nil, elem)
					if x < -gapThreshold {
						e.space()
					}
				}
			}
		case "Do":
			if len(op.Args) == 1 {
				name, _ := op.Args[0].(pdf.Name)
				err := e.form(res, name, depth)
				if err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (e *extractor) show(font *pdffont.Font, s pdf.String) {
	if font == nil {
		font = pdffont.Fallback()
	}
	for _, code := range font.Split(s) {
		e.buf.WriteString(font.Text(code))
	}
}

func (e *extractor) newline() {
	text := e.buf.String()
	if text != "" && !strings.HasSuffix(text, "\n") {
		e.buf.WriteByte('\n')
	}
}

func (e *extractor) space() {
	text := e.buf.String()
	if text != "" && !strings.HasSuffix(text, " ") && !strings.HasSuffix(text, "\n") {
		e.buf.WriteByte(' ')
	}
}

func (e *extractor) resource(res pdf.Dict, category, name pdf.Name) pdf.Object {
	catDict, _ := pdf.GetDict(e.r, res[category])
	return catDict[name]
}

func (e *extractor) font(res pdf.Dict, name pdf.Name) *pdffont.Font {
	return e.loadFont(e.resource(res, "Font", name))
}

func (e *extractor) gsFont(res pdf.Dict, name pdf.Name) *pdffont.Font {
	gs, _ := pdf.GetDict(e.r, e.resource(res, "ExtGState", name))
	a, _ := pdf.GetArray(e.r, gs["Font"])
	if len(a) != 2 {
		return nil
	}
	return e.loadFont(a[0])
}

func (e *extractor) loadFont(obj pdf.Object) *pdffont.Font {
	ref, isRef := obj.(pdf.Reference)
	if f, ok := e.fonts[ref]; isRef && ok {
		return f
	}
	// Load always returns a usable font
	f, _ := pdffont.Load(e.r, obj)
	if isRef {
		e.fonts[ref] = f
	}
	return f
}

var errTooDeep = errors.New("form XObjects nested too deeply")

func (e *extractor) form(res pdf.Dict, name pdf.Name, depth int) error {
	obj := e.resource(res, "XObject", name)
	stm, err := pdf.GetStream(e.r, obj)
	if err != nil || stm == nil {
		return nil
	}
	if subtype, _ := pdf.GetName(e.r, stm.Dict["Subtype"]); subtype != "Form" {
		return nil
	}
	if depth >= maxDepth {
		return errTooDeep
	}
	ref, isRef := obj.(pdf.Reference)
	if isRef {
		if e.forms[ref] {
			return nil
		}
		e.forms[ref] = true
		defer delete(e.forms, ref)
	}

	data, err := pdf.ReadAll(e.r, stm)
	if err != nil {
		return err
	}
	formRes := res
	if stm.Dict["Resources"] != nil {
		formRes, _ = pdf.GetDict(e.r, stm.Dict["Resources"])
	}
	return e.run(data, formRes, depth+1)
}
