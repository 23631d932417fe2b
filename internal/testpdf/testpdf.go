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

// Package testpdf generates small PDF files for use in tests.
package testpdf

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"slices"

	"seehuhn.de/go/geom/rect"

	"seehuhn.de/go/redact/pdf"
)

// Letter is the size of a US letter page, in PDF points.
var Letter = rect.Rect{URx: 612, URy: 792}

// Document describes a PDF file.  Only the first page has content, the
// remaining pages are empty.
type Document struct {
	Version pdf.Version // default: PDF 1.7

	MediaBox rect.Rect // default: US letter
	CropBox  rect.Rect // default: same as MediaBox
	Rotate   int

	// Content is the content stream of the first page.  It is stored
	// with the FlateDecode filter.
	Content string

	// Resources of the first page.  Forms without a /Resources entry
	// share the page resources.
	Fonts      map[pdf.Name]pdf.Dict
	XObjects   map[pdf.Name]*XObject
	ExtGState  map[pdf.Name]pdf.Dict
	Properties map[pdf.Name]pdf.Dict

	// Annots are the annotations of the first page.  Values of type
	// [AnnotRef] inside the dictionaries refer to other annotations.
	// If Fields is set, all widget annotations are listed as fields of
	// an interactive form.
	Annots []pdf.Dict
	Fields bool

	Info     pdf.Dict
	Metadata []byte
	ID       pdf.Array

	NumPages int // default: 1
}

// XObject is an external object stored in a test file.
type XObject struct {
	Dict pdf.Dict
	Data []byte
}

// AnnotRef is a placeholder for a reference to the annotation with the
// given index in [Document.Annots].
type AnnotRef int

// PDF implements the [pdf.Object] interface.  AnnotRef values are replaced
// before a file is written, so this is never called.
func (AnnotRef) PDF(io.Writer) error {
	return fmt.Errorf("unresolved annotation reference")
}

// Helvetica returns the font dictionary of a non-embedded Helvetica font.
func Helvetica() pdf.Dict {
	return pdf.Dict{
		"Type":     pdf.Name("Font"),
		"Subtype":  pdf.Name("Type1"),
		"BaseFont": pdf.Name("Helvetica"),
		"Encoding": pdf.Name("WinAnsiEncoding"),
	}
}

// Image returns a gray-scale image of the given size.
func Image(width, height int) *XObject {
	data := make([]byte, width*height)
	for i := range data {
		data[i] = byte(i * 37)
	}
	return &XObject{
		Dict: pdf.Dict{
			"Type":             pdf.Name("XObject"),
			"Subtype":          pdf.Name("Image"),
			"Width":            pdf.Integer(width),
			"Height":           pdf.Integer(height),
			"ColorSpace":       pdf.Name("DeviceGray"),
			"BitsPerComponent": pdf.Integer(8),
		},
		Data: data,
	}
}

// Form returns a form XObject with the given bounding box and content.
func Form(bbox rect.Rect, content string) *XObject {
	return &XObject{
		Dict: pdf.Dict{
			"Type":    pdf.Name("XObject"),
			"Subtype": pdf.Name("Form"),
			"BBox":    pdf.Rectangle(bbox),
		},
		Data: []byte(content),
	}
}

// WriteFile writes the document to the named file.
func (doc *Document) WriteFile(fname string) error {
	data, err := doc.Bytes()
	if err != nil {
		return err
	}
	return os.WriteFile(fname, data, 0o644)
}

// Bytes returns the PDF representation of the document.
func (doc *Document) Bytes() ([]byte, error) {
	buf := &bytes.Buffer{}
	err := doc.Write(buf)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write writes the document to w.
func (doc *Document) Write(w io.Writer) error {
	ver := doc.Version
	if ver == 0 {
		ver = pdf.V1_7
	}
	out, err := pdf.NewWriter(w, ver)
	if err != nil {
		return err
	}

	catalogRef := out.Alloc()
	pagesRef := out.Alloc()
	resRef := out.Alloc()

	numPages := max(doc.NumPages, 1)
	pageRefs := make([]pdf.Reference, numPages)
	for i := range pageRefs {
		pageRefs[i] = out.Alloc()
	}
	annotRefs := make([]pdf.Reference, len(doc.Annots))
	for i := range annotRefs {
		annotRefs[i] = out.Alloc()
	}

	// resources
	res := pdf.Dict{}
	categories := []struct {
		name pdf.Name
		objs map[pdf.Name]pdf.Dict
	}{
		{"Font", doc.Fonts},
		{"ExtGState", doc.ExtGState},
		{"Properties", doc.Properties},
	}
	for _, cat := range categories {
		if len(cat.objs) == 0 {
			continue
		}
		catDict := pdf.Dict{}
		for _, name := range sortedKeys(cat.objs) {
			ref := out.Alloc()
			err := out.Put(ref, cat.objs[name])
			if err != nil {
				return err
			}
			catDict[name] = ref
		}
		res[cat.name] = catDict
	}
	if len(doc.XObjects) > 0 {
		catDict := pdf.Dict{}
		for _, name := range sortedKeys(doc.XObjects) {
			xObj := doc.XObjects[name]
			dict := xObj.Dict.Clone()
			if sub, _ := dict["Subtype"].(pdf.Name); sub == "Form" && dict["Resources"] == nil {
				dict["Resources"] = resRef
			}
			ref := out.Alloc()
			err := out.Put(ref, &pdf.Stream{Dict: dict, R: bytes.NewReader(xObj.Data)})
			if err != nil {
				return err
			}
			catDict[name] = ref
		}
		res["XObject"] = catDict
	}
	err = out.Put(resRef, res)
	if err != nil {
		return err
	}

	// annotations
	var widgets pdf.Array
	for i, annot := range doc.Annots {
		dict := pdf.Dict{}
		for key, val := range annot {
			if idx, ok := val.(AnnotRef); ok {
				val = annotRefs[idx]
			}
			dict[key] = val
		}
		dict["P"] = pageRefs[0]
		if dict["Subtype"] == pdf.Name("Widget") {
			widgets = append(widgets, annotRefs[i])
		}
		err := out.Put(annotRefs[i], dict)
		if err != nil {
			return err
		}
	}

	// pages
	mediaBox := doc.MediaBox
	if mediaBox.IsZero() {
		mediaBox = Letter
	}
	encoded, err := pdf.Encode([]byte(doc.Content))
	if err != nil {
		return err
	}
	contentRef := out.Alloc()
	err = out.Put(contentRef, &pdf.Stream{
		Dict: pdf.Dict{"Filter": pdf.Name("FlateDecode")},
		R:    bytes.NewReader(encoded),
	})
	if err != nil {
		return err
	}
	first := pdf.Dict{
		"Type":      pdf.Name("Page"),
		"Parent":    pagesRef,
		"Contents":  contentRef,
		"Resources": resRef,
	}
	if !doc.CropBox.IsZero() {
		first["CropBox"] = pdf.Rectangle(doc.CropBox)
	}
	if doc.Rotate != 0 {
		first["Rotate"] = pdf.Integer(doc.Rotate)
	}
	if len(annotRefs) > 0 {
		annots := make(pdf.Array, len(annotRefs))
		for i, ref := range annotRefs {
			annots[i] = ref
		}
		first["Annots"] = annots
	}
	kids := pdf.Array{}
	for i, ref := range pageRefs {
		page := first
		if i > 0 {
			page = pdf.Dict{
				"Type":   pdf.Name("Page"),
				"Parent": pagesRef,
			}
		}
		err := out.Put(ref, page)
		if err != nil {
			return err
		}
		kids = append(kids, ref)
	}
	err = out.Put(pagesRef, pdf.Dict{
		"Type":     pdf.Name("Pages"),
		"Kids":     kids,
		"Count":    pdf.Integer(numPages),
		"MediaBox": pdf.Rectangle(mediaBox),
	})
	if err != nil {
		return err
	}

	// catalog
	catalog := pdf.Dict{
		"Type":  pdf.Name("Catalog"),
		"Pages": pagesRef,
	}
	if doc.Fields {
		catalog["AcroForm"] = pdf.Dict{"Fields": widgets}
	}
	if doc.Metadata != nil {
		ref := out.Alloc()
		err := out.Put(ref, &pdf.Stream{
			Dict: pdf.Dict{
				"Type":    pdf.Name("Metadata"),
				"Subtype": pdf.Name("XML"),
			},
			R: bytes.NewReader(doc.Metadata),
		})
		if err != nil {
			return err
		}
		catalog["Metadata"] = ref
	}
	err = out.Put(catalogRef, catalog)
	if err != nil {
		return err
	}

	trailer := pdf.Dict{"Root": catalogRef}
	if doc.Info != nil {
		ref := out.Alloc()
		err := out.Put(ref, doc.Info)
		if err != nil {
			return err
		}
		trailer["Info"] = ref
	}
	if doc.ID != nil {
		trailer["ID"] = doc.ID
	}
	return out.Close(trailer)
}

func sortedKeys[T any](m map[pdf.Name]T) []pdf.Name {
	keys := make([]pdf.Name, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}
