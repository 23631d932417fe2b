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

// Package redact removes content from regions of the first page of a PDF
// file.
//
// A [Document] is opened with [Open].  [Apply] then writes a copy of the
// document, in which all text, images and vector graphics on the first page
// which intersect one of the given rectangles are removed, and the
// rectangles are filled with black.
//
// Rectangles are given in page coordinates: PDF points, with the origin at
// the lower-left corner of the page as it is displayed, i.e. after the crop
// box and the /Rotate entry of the page have been applied.
package redact

import (
	"errors"
	"math"
	"os"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/redact/pdf"
)

// Document is a PDF file opened for redaction.
// Only the first page of the document can be redacted.
type Document struct {
	path string
	r    *pdf.Reader

	catalog  pdf.Dict
	page     *pdf.Page
	numPages int

	mediaBox rect.Rect
	cropBox  rect.Rect
	rotate   int
}

// letter is used if a page has no valid media box.
var letter = rect.Rect{URx: 612, URy: 792}

// Open opens a PDF file for redaction.  The file is only read, never
// modified.  The Document must be closed after use.
//
// If the file cannot be used, an [*InputError] is returned.
func Open(path string) (*Document, error) {
	r, err := pdf.Open(path)
	if err != nil {
		return nil, &InputError{Path: path, Err: err}
	}

	doc, err := newDocument(path, r)
	if err != nil {
		r.Close()
		return nil, &InputError{Path: path, Err: err}
	}
	return doc, nil
}

func newDocument(path string, r *pdf.Reader) (*Document, error) {
	catalog, err := r.Catalog()
	if err != nil {
		return nil, err
	}
	page, err := pdf.FirstPage(r, catalog)
	if err != nil {
		return nil, err
	}
	numPages, err := pdf.NumPages(r, catalog)
	if err != nil || numPages < 1 {
		// the first page was found, so the count must be wrong
		numPages = 1
	}

	mediaBox, err := pdf.GetRectangle(r, page.Attr("MediaBox"))
	if err != nil || mediaBox.Dx() <= 0 || mediaBox.Dy() <= 0 {
		mediaBox = letter
	}
	cropBox, err := pdf.GetRectangle(r, page.Attr("CropBox"))
	if err != nil || page.Attr("CropBox") == nil {
		cropBox = mediaBox
	}
	cropBox, ok := intersect(cropBox, mediaBox)
	if !ok {
		cropBox = mediaBox
	}

	rotate, _ := pdf.GetInteger(r, page.Attr("Rotate"))
	rot := int(rotate) % 360
	if rot < 0 {
		rot += 360
	}
	rot = rot / 90 * 90

	doc := &Document{
		path:     path,
		r:        r,
		catalog:  catalog,
		page:     page,
		numPages: numPages,
		mediaBox: mediaBox,
		cropBox:  cropBox,
		rotate:   rot,
	}
	return doc, nil
}

// Close closes the underlying file.
func (doc *Document) Close() error {
	if doc.r == nil {
		return nil
	}
	err := doc.r.Close()
	doc.r = nil
	return err
}

// Path returns the file name the document was opened from.
func (doc *Document) Path() string {
	return doc.path
}

// NumPages returns the number of pages in the document.
func (doc *Document) NumPages() int {
	return doc.numPages
}

// Rotation returns the page rotation in degrees: 0, 90, 180 or 270.
func (doc *Document) Rotation() int {
	return doc.rotate
}

// CropBox returns the visible area of the first page, in PDF user space.
func (doc *Document) CropBox() rect.Rect {
	return doc.cropBox
}

// PageSize returns the size of the first page as it is displayed,
// in PDF points.
func (doc *Document) PageSize() vec.Vec2 {
	w, h := doc.cropBox.Dx(), doc.cropBox.Dy()
	if doc.rotate == 90 || doc.rotate == 270 {
		w, h = h, w
	}
	return vec.Vec2{X: w, Y: h}
}

// PageToUser returns the transformation from page coordinates to the
// default user space of the first page.
func (doc *Document) PageToUser() matrix.Matrix {
	c := doc.cropBox
	switch doc.rotate {
	case 90:
		return matrix.Matrix{0, 1, -1, 0, c.URx, c.LLy}
	case 180:
		return matrix.Matrix{-1, 0, 0, -1, c.URx, c.URy}
	case 270:
		return matrix.Matrix{0, -1, 1, 0, c.LLx, c.URy}
	default:
		return matrix.Matrix{1, 0, 0, 1, c.LLx, c.LLy}
	}
}

// Page returns the first page of the document, together with the object
// getter needed to read it.  After the document has been closed, nil is
// returned.
func (doc *Document) Page() (pdf.Getter, *pdf.Page) {
	if doc.r == nil {
		return nil, nil
	}
	return doc.r, doc.page
}

// sameFile checks whether two file names refer to the same file.
func sameFile(a, b string) bool {
	if cleanAbs(a) == cleanAbs(b) {
		return true
	}
	fa, err := os.Stat(a)
	if err != nil {
		return false
	}
	fb, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(fa, fb)
}

// transformRect returns the bounding box of the image of r under m.
func transformRect(r rect.Rect, m matrix.Matrix) rect.Rect {
	return bbox(
		mapPoint(m, r.LLx, r.LLy),
		mapPoint(m, r.URx, r.LLy),
		mapPoint(m, r.URx, r.URy),
		mapPoint(m, r.LLx, r.URy),
	)
}

// mapPoint maps the point (x, y) through m.
func mapPoint(m matrix.Matrix, x, y float64) vec.Vec2 {
	x, y = m.Apply(x, y)
	return vec.Vec2{X: x, Y: y}
}

// bbox returns the smallest rectangle containing all the given points.
func bbox(points ...vec.Vec2) rect.Rect {
	res := rect.Rect{
		LLx: math.Inf(+1), LLy: math.Inf(+1),
		URx: math.Inf(-1), URy: math.Inf(-1),
	}
	for _, p := range points {
		res.LLx = math.Min(res.LLx, p.X)
		res.LLy = math.Min(res.LLy, p.Y)
		res.URx = math.Max(res.URx, p.X)
		res.URy = math.Max(res.URy, p.Y)
	}
	return res
}

// overlaps checks whether the interiors of two rectangles intersect.
// A degenerate rectangle overlaps b if it passes through the interior of b.
func overlaps(a, b rect.Rect) bool {
	return a.LLx < b.URx && b.LLx < a.URx && a.LLy < b.URy && b.LLy < a.URy
}

// contains checks whether a contains b.
func contains(a, b rect.Rect) bool {
	return a.LLx <= b.LLx && b.URx <= a.URx && a.LLy <= b.LLy && b.URy <= a.URy
}

// intersect returns the intersection of two rectangles.  The second return
// value is false if the intersection is empty.
func intersect(a, b rect.Rect) (rect.Rect, bool) {
	res := rect.Rect{
		LLx: math.Max(a.LLx, b.LLx),
		LLy: math.Max(a.LLy, b.LLy),
		URx: math.Min(a.URx, b.URx),
		URy: math.Min(a.URy, b.URy),
	}
	if res.LLx > res.URx || res.LLy > res.URy {
		return rect.Rect{}, false
	}
	return res, true
}

var errClosed = errors.New("document is closed")
