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

// Package preview renders an approximate image of the first page of a
// document, together with the redaction rectangles marked so far.
//
// The renderer is meant for checking the position of redaction
// rectangles, not for faithful display.  Vector graphics are drawn with
// their fill and stroke colours, images in DeviceGray and DeviceRGB as
// well as JPEG images are drawn, and glyphs are shown as boxes.  Clipping
// paths, shadings, patterns and blend modes are ignored.
package preview

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"io"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/vector"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/redact"
	"seehuhn.de/go/redact/content"
	"seehuhn.de/go/redact/internal/pdffont"
	"seehuhn.de/go/redact/pdf"
	"seehuhn.de/go/redact/viewport"
)

// maxDepth limits the nesting of form XObjects.
const maxDepth = 16

// maxPixels limits the size of the rendered image.
const maxPixels = 1 << 26

// MarkColor is used to draw the redaction rectangles.
var MarkColor = color.NRGBA{R: 255, A: 96}

var (
	errClosed   = errors.New("document is closed")
	errTooLarge = errors.New("preview image too large")
)

// Render draws the first page of doc at the given zoom factor.  One PDF
// point corresponds to zoom pixels.  The rectangles in marks are given in
// page coordinates and are drawn as translucent red boxes.
func Render(doc *redact.Document, zoom float64, marks []rect.Rect) (*image.RGBA, error) {
	r, page := doc.Page()
	if page == nil {
		return nil, errClosed
	}
	if !(zoom > 0) {
		zoom = 1
	}

	pageSize := doc.PageSize()
	w := int(math.Ceil(pageSize.X * zoom))
	h := int(math.Ceil(pageSize.Y * zoom))
	if w < 1 || h < 1 || w*h > maxPixels {
		return nil, errTooLarge
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	view := viewport.State{Zoom: zoom}
	toPixels := matrix.Matrix{zoom, 0, 0, -zoom, 0, pageSize.Y * zoom}
	ren := &renderer{
		r:      r,
		img:    img,
		raster: vector.NewRasterizer(w, h),
		device: doc.PageToUser().Inv().Mul(toPixels),
		fonts:  make(map[pdf.Reference]*pdffont.Font),
		forms:  make(map[pdf.Reference]bool),
	}

	data, err := page.Contents(r)
	if err != nil {
		return nil, err
	}
	res, _ := pdf.GetDict(r, page.Attr("Resources"))
	err = ren.run(data, res, newState(matrix.Identity), 0)
	if err != nil {
		return nil, err
	}

	for _, m := range marks {
		box := viewport.RectToPixels(m, view, pageSize)
		area := image.Rect(
			int(math.Floor(box.LLx)), int(math.Floor(box.LLy)),
			int(math.Ceil(box.URx)), int(math.Ceil(box.URy)))
		draw.Draw(img, area, image.NewUniform(MarkColor), image.Point{}, draw.Over)
	}
	return img, nil
}

type renderer struct {
	r      pdf.Getter
	img    *image.RGBA
	raster *vector.Rasterizer

	// device maps default user space to pixel coordinates.
	device matrix.Matrix

	fonts map[pdf.Reference]*pdffont.Font
	forms map[pdf.Reference]bool
}

type gstate struct {
	ctm          matrix.Matrix
	fill, stroke color.Color
	lineWidth    float64

	font        *pdffont.Font
	fontSize    float64
	charSpacing float64
	wordSpacing float64
	hScale      float64
	leading     float64
	rise        float64
	renderMode  int
}

func newState(ctm matrix.Matrix) gstate {
	return gstate{
		ctm:       ctm,
		fill:      color.Black,
		stroke:    color.Black,
		lineWidth: 1,
		hScale:    1,
	}
}

// segment is one element of a path, in pixel coordinates.
type segment struct {
	op  byte // 'm', 'l', 'c' or 'h'
	pts []vec.Vec2
}

type interpreter struct {
	*renderer
	res   pdf.Dict
	depth int

	state gstate
	stack []gstate

	path    []segment
	tm, tlm matrix.Matrix
}

func (ren *renderer) run(data []byte, res pdf.Dict, state gstate, depth int) error {
	ops, err := content.Parse(data)
	if err != nil {
		return err
	}
	it := &interpreter{
		renderer: ren,
		res:      res,
		depth:    depth,
		state:    state,
		tm:       matrix.Identity,
		tlm:      matrix.Identity,
	}
	for _, op := range ops {
		if err := it.apply(op); err != nil {
			return err
		}
	}
	return nil
}

func (it *interpreter) apply(op content.Operator) error {
	s := &it.state
	args := op.Args
	switch op.Name {
	case "q":
		it.stack = append(it.stack, it.state)
	case "Q":
		if n := len(it.stack); n > 0 {
			it.state = it.stack[n-1]
			it.stack = it.stack[:n-1]
		}
	case "cm":
		if m, ok := getMatrix(args); ok {
			s.ctm = m.Mul(s.ctm)
		}
	case "w":
		if x, ok := getNumber(args, 0); ok {
			s.lineWidth = x
		}
	case "gs":
		it.applyExtGState(args)

	case "g", "rg", "k":
		if c, ok := deviceColor(args); ok {
			s.fill = c
		}
	case "G", "RG", "K":
		if c, ok := deviceColor(args); ok {
			s.stroke = c
		}
	case "sc", "scn":
		if c, ok := deviceColor(args); ok {
			s.fill = c
		}
	case "SC", "SCN":
		if c, ok := deviceColor(args); ok {
			s.stroke = c
		}
	case "cs":
		s.fill = color.Black
	case "CS":
		s.stroke = color.Black

	case "m", "l":
		x, ok1 := getNumber(args, 0)
		y, ok2 := getNumber(args, 1)
		if ok1 && ok2 {
			it.path = append(it.path, segment{op.Name[0], []vec.Vec2{it.point(x, y)}})
		}
	case "c", "v", "y":
		it.curve(op)
	case "re":
		x, ok1 := getNumber(args, 0)
		y, ok2 := getNumber(args, 1)
		w, ok3 := getNumber(args, 2)
		h, ok4 := getNumber(args, 3)
		if ok1 && ok2 && ok3 && ok4 {
			it.path = append(it.path,
				segment{'m', []vec.Vec2{it.point(x, y)}},
				segment{'l', []vec.Vec2{it.point(x+w, y)}},
				segment{'l', []vec.Vec2{it.point(x+w, y+h)}},
				segment{'l', []vec.Vec2{it.point(x, y+h)}},
				segment{'h', nil})
		}
	case "h":
		it.path = append(it.path, segment{'h', nil})
	case "W", "W*":
		// clipping is ignored
	case "f", "F", "f*":
		it.fill()
		it.path = nil
	case "S":
		it.strokePath()
		it.path = nil
	case "s":
		it.path = append(it.path, segment{'h', nil})
		it.strokePath()
		it.path = nil
	case "B", "B*":
		it.fill()
		it.strokePath()
		it.path = nil
	case "b", "b*":
		it.path = append(it.path, segment{'h', nil})
		it.fill()
		it.strokePath()
		it.path = nil
	case "n":
		it.path = nil

	case "BT":
		it.tm = matrix.Identity
		it.tlm = matrix.Identity
	case "Tc":
		if x, ok := getNumber(args, 0); ok {
			s.charSpacing = x
		}
	case "Tw":
		if x, ok := getNumber(args, 0); ok {
			s.wordSpacing = x
		}
	case "Tz":
		if x, ok := getNumber(args, 0); ok {
			s.hScale = x / 100
		}
	case "TL":
		if x, ok := getNumber(args, 0); ok {
			s.leading = x
		}
	case "Ts":
		if x, ok := getNumber(args, 0); ok {
			s.rise = x
		}
	case "Tr":
		if x, ok := getNumber(args, 0); ok {
			s.renderMode = int(x)
		}
	case "Tf":
		if len(args) == 2 {
			name, _ := args[0].(pdf.Name)
			s.font = it.loadFont(it.resource("Font", name))
			s.fontSize, _ = getNumber(args, 1)
		}
	case "Td", "TD":
		tx, ok1 := getNumber(args, 0)
		ty, ok2 := getNumber(args, 1)
		if ok1 && ok2 {
			if op.Name == "TD" {
				s.leading = -ty
			}
			it.moveText(tx, ty)
		}
	case "Tm":
		if m, ok := getMatrix(args); ok {
			it.tm = m
			it.tlm = m
		}
	case "T*":
		it.moveText(0, -s.leading)
	case "Tj":
		if len(args) == 1 {
			it.showText(pdf.Array{args[0]})
		}
	case "'":
		it.moveText(0, -s.leading)
		if len(args) == 1 {
			it.showText(pdf.Array{args[0]})
		}
	case "\"":
		if len(args) == 3 {
			s.wordSpacing, _ = getNumber(args, 0)
			s.charSpacing, _ = getNumber(args, 1)
			it.moveText(0, -s.leading)
			it.showText(pdf.Array{args[2]})
		}
	case "TJ":
		if len(args) == 1 {
			a, _ := args[0].(pdf.Array)
			it.showText(a)
		}

	case "Do":
		if len(args) == 1 {
			name, _ := args[0].(pdf.Name)
			return it.doXObject(name)
		}
	case "BI":
		it.placeholder(s.ctm)
	}
	return nil
}

func (it *interpreter) point(x, y float64) vec.Vec2 {
	return mapPoint(it.state.ctm.Mul(it.device), x, y)
}

func mapPoint(m matrix.Matrix, x, y float64) vec.Vec2 {
	x, y = m.Apply(x, y)
	return vec.Vec2{X: x, Y: y}
}

func (it *interpreter) current() (vec.Vec2, bool) {
	for i := len(it.path) - 1; i >= 0; i-- {
		if pts := it.path[i].pts; len(pts) > 0 {
			return pts[len(pts)-1], true
		}
	}
	return vec.Vec2{}, false
}

func (it *interpreter) curve(op content.Operator) {
	var coords []float64
	for i := range op.Args {
		x, ok := getNumber(op.Args, i)
		if !ok {
			return
		}
		coords = append(coords, x)
	}
	cur, ok := it.current()
	var pts []vec.Vec2
	switch {
	case op.Name == "c" && len(coords) == 6:
		pts = []vec.Vec2{it.point(coords[0], coords[1]), it.point(coords[2], coords[3]), it.point(coords[4], coords[5])}
	case op.Name == "v" && len(coords) == 4 && ok:
		pts = []vec.Vec2{cur, it.point(coords[0], coords[1]), it.point(coords[2], coords[3])}
	case op.Name == "y" && len(coords) == 4:
		end := it.point(coords[2], coords[3])
		pts = []vec.Vec2{it.point(coords[0], coords[1]), end, end}
	default:
		return
	}
	it.path = append(it.path, segment{'c', pts})
}

func (it *interpreter) applyExtGState(args []pdf.Object) {
	if len(args) != 1 {
		return
	}
	name, _ := args[0].(pdf.Name)
	gs, _ := pdf.GetDict(it.r, it.resource("ExtGState", name))
	if lw, err := pdf.GetNumber(it.r, gs["LW"]); err == nil && gs["LW"] != nil {
		it.state.lineWidth = lw
	}
	if a, _ := pdf.GetArray(it.r, gs["Font"]); len(a) == 2 {
		it.state.font = it.loadFont(a[0])
		it.state.fontSize, _ = pdf.GetNumber(it.r, a[1])
	}
}

func (it *interpreter) resource(category, name pdf.Name) pdf.Object {
	catDict, _ := pdf.GetDict(it.r, it.res[category])
	return catDict[name]
}

func (ren *renderer) loadFont(obj pdf.Object) *pdffont.Font {
	ref, isRef := obj.(pdf.Reference)
	if f, ok := ren.fonts[ref]; isRef && ok {
		return f
	}
	f, _ := pdffont.Load(ren.r, obj)
	if isRef {
		ren.fonts[ref] = f
	}
	return f
}

// fill paints the current path with the fill colour.
func (it *interpreter) fill() {
	if len(it.path) == 0 {
		return
	}
	z := it.raster
	z.Reset(it.img.Bounds().Dx(), it.img.Bounds().Dy())
	open := false
	for _, seg := range it.path {
		switch seg.op {
		case 'm':
			if open {
				z.ClosePath()
			}
			z.MoveTo(float32(seg.pts[0].X), float32(seg.pts[0].Y))
			open = true
		case 'l':
			z.LineTo(float32(seg.pts[0].X), float32(seg.pts[0].Y))
		case 'c':
			p := seg.pts
			z.CubeTo(float32(p[0].X), float32(p[0].Y), float32(p[1].X), float32(p[1].Y), float32(p[2].X), float32(p[2].Y))
		case 'h':
			z.ClosePath()
			open = false
		}
	}
	if open {
		z.ClosePath()
	}
	z.Draw(it.img, it.img.Bounds(), image.NewUniform(it.state.fill), image.Point{})
}

// strokePath paints the current path with the stroke colour.  Every
// segment is drawn as a quadrilateral, joins and caps are not drawn.
func (it *interpreter) strokePath() {
	if len(it.path) == 0 {
		return
	}
	half := it.state.lineWidth * scaleOf(it.state.ctm.Mul(it.device)) / 2
	if half < 0.5 {
		half = 0.5
	}

	z := it.raster
	z.Reset(it.img.Bounds().Dx(), it.img.Bounds().Dy())
	var start, cur vec.Vec2
	for _, seg := range it.path {
		switch seg.op {
		case 'm':
			start, cur = seg.pts[0], seg.pts[0]
		case 'l':
			strokeLine(z, cur, seg.pts[0], half)
			cur = seg.pts[0]
		case 'c':
			for _, p := range flatten(cur, seg.pts) {
				strokeLine(z, cur, p, half)
				cur = p
			}
		case 'h':
			strokeLine(z, cur, start, half)
			cur = start
		}
	}
	z.Draw(it.img, it.img.Bounds(), image.NewUniform(it.state.stroke), image.Point{})
}

func strokeLine(z *vector.Rasterizer, from, to vec.Vec2, half float64) {
	dx, dy := to.X-from.X, to.Y-from.Y
	l := math.Hypot(dx, dy)
	if l == 0 {
		return
	}
	nx, ny := -dy/l*half, dx/l*half
	z.MoveTo(float32(from.X+nx), float32(from.Y+ny))
	z.LineTo(float32(to.X+nx), float32(to.Y+ny))
	z.LineTo(float32(to.X-nx), float32(to.Y-ny))
	z.LineTo(float32(from.X-nx), float32(from.Y-ny))
	z.ClosePath()
}

// flatten approximates a cubic Bézier curve by line segments.  The start
// point is not included in the result.
func flatten(p0 vec.Vec2, ctrl []vec.Vec2) []vec.Vec2 {
	const n = 16
	p1, p2, p3 := ctrl[0], ctrl[1], ctrl[2]
	res := make([]vec.Vec2, 0, n)
	for i := 1; i <= n; i++ {
		t := float64(i) / n
		u := 1 - t
		a, b, c, d := u*u*u, 3*u*u*t, 3*u*t*t, t*t*t
		res = append(res, vec.Vec2{
			X: a*p0.X + b*p1.X + c*p2.X + d*p3.X,
			Y: a*p0.Y + b*p1.Y + c*p2.Y + d*p3.Y,
		})
	}
	return res
}

func (it *interpreter) moveText(tx, ty float64) {
	it.tlm = matrix.Translate(tx, ty).Mul(it.tlm)
	it.tm = it.tlm
}

// showText draws a box for every glyph of a text showing operator and
// advances the text position.
func (it *interpreter) showText(elems pdf.Array) {
	s := &it.state
	font := s.font
	if font == nil {
		font = pdffont.Fallback()
	}
	invisible := s.renderMode == 3 || s.renderMode == 7
	for _, elem := range elems {
		switch elem := elem.(type) {
		case pdf.String:
			for _, code := range font.Split(elem) {
				w0 := font.Width(code)
				if !invisible && !font.IsSpace(code) {
					it.glyph(font, w0)
				}
				tx := w0*s.fontSize + s.charSpacing
				if font.IsSpace(code) {
					tx += s.wordSpacing
				}
				it.tm = matrix.Translate(tx*s.hScale, 0).Mul(it.tm)
			}
		case pdf.Integer, pdf.Real:
			n, _ := pdf.GetNumber(nil, elem)
			it.tm = matrix.Translate(-n/1000*s.fontSize*s.hScale, 0).Mul(it.tm)
		}
	}
}

// glyph draws a glyph as a box covering the lower part of the glyph
// cell.
func (it *interpreter) glyph(font *pdffont.Font, w0 float64) {
	s := &it.state
	fm := matrix.Matrix{s.fontSize * s.hScale, 0, 0, s.fontSize, 0, s.rise}
	m := fm.Mul(it.tm).Mul(s.ctm).Mul(it.device)
	box := []vec.Vec2{
		mapPoint(m, 0.1*w0, 0),
		mapPoint(m, 0.9*w0, 0),
		mapPoint(m, 0.9*w0, 0.7*font.Ascent),
		mapPoint(m, 0.1*w0, 0.7*font.Ascent),
	}
	it.polygon(box, s.fill)
}

func (it *interpreter) polygon(pts []vec.Vec2, col color.Color) {
	z := it.raster
	z.Reset(it.img.Bounds().Dx(), it.img.Bounds().Dy())
	z.MoveTo(float32(pts[0].X), float32(pts[0].Y))
	for _, p := range pts[1:] {
		z.LineTo(float32(p.X), float32(p.Y))
	}
	z.ClosePath()
	z.Draw(it.img, it.img.Bounds(), image.NewUniform(col), image.Point{})
}

// placeholder draws a grey box in place of an image which cannot be
// decoded.
func (it *interpreter) placeholder(ctm matrix.Matrix) {
	m := ctm.Mul(it.device)
	pts := []vec.Vec2{
		mapPoint(m, 0, 0),
		mapPoint(m, 1, 0),
		mapPoint(m, 1, 1),
		mapPoint(m, 0, 1),
	}
	it.polygon(pts, color.Gray{Y: 160})
}

var errTooDeep = errors.New("form XObjects nested too deeply")

func (it *interpreter) doXObject(name pdf.Name) error {
	obj := it.resource("XObject", name)
	stm, err := pdf.GetStream(it.r, obj)
	if err != nil || stm == nil {
		return nil
	}
	subtype, _ := pdf.GetName(it.r, stm.Dict["Subtype"])
	switch subtype {
	case "Image":
		img, err := decodeImage(it.r, stm)
		if err != nil || img == nil {
			it.placeholder(it.state.ctm)
			return nil
		}
		it.drawImage(img)
	case "Form":
		if it.depth >= maxDepth {
			return errTooDeep
		}
		ref, isRef := obj.(pdf.Reference)
		if isRef {
			if it.forms[ref] {
				return nil
			}
			it.forms[ref] = true
			defer delete(it.forms, ref)
		}
		data, err := pdf.ReadAll(it.r, stm)
		if err != nil {
			return nil
		}
		m, _ := pdf.GetMatrix(it.r, stm.Dict["Matrix"])
		res := it.res
		if stm.Dict["Resources"] != nil {
			res, _ = pdf.GetDict(it.r, stm.Dict["Resources"])
		}
		state := it.state
		state.ctm = m.Mul(state.ctm)
		return it.renderer.run(data, res, state, it.depth+1)
	}
	return nil
}

// drawImage draws img into the unit square of the current user space.
func (it *interpreter) drawImage(img image.Image) {
	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())

	// image pixel (x, y) maps to (x/w, 1-y/h) in the unit square
	toUnit := matrix.Matrix{1 / w, 0, 0, -1 / h, 0, 1}
	m := toUnit.Mul(it.state.ctm).Mul(it.device)
	aff := f64.Aff3{m[0], m[2], m[4], m[1], m[3], m[5]}
	xdraw.BiLinear.Transform(it.img, aff, img, b, draw.Over, nil)
}

// decodeImage reads an image XObject.  The result is nil, if the image
// format is not supported.
func decodeImage(r pdf.Getter, stm *pdf.Stream) (image.Image, error) {
	filters, err := pdf.Filters(r, stm.Dict)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(stm.R)
	if err != nil {
		return nil, err
	}
	isJPEG := false
	if n := len(filters); n > 0 && (filters[n-1].Name == "DCTDecode" || filters[n-1].Name == "DCT") {
		isJPEG = true
		filters = filters[:n-1]
	}
	for _, f := range filters {
		data, err = f.Decode(data)
		if err != nil {
			return nil, err
		}
	}
	if isJPEG {
		return jpeg.Decode(bytes.NewReader(data))
	}

	width, _ := pdf.GetInteger(r, stm.Dict["Width"])
	height, _ := pdf.GetInteger(r, stm.Dict["Height"])
	bpc, _ := pdf.GetInteger(r, stm.Dict["BitsPerComponent"])
	cs, _ := pdf.GetName(r, stm.Dict["ColorSpace"])
	if width <= 0 || height <= 0 || bpc != 8 || int64(width)*int64(height) > maxPixels {
		return nil, nil
	}
	bounds := image.Rect(0, 0, int(width), int(height))
	switch cs {
	case "DeviceGray", "G":
		img := image.NewGray(bounds)
		if len(data) < len(img.Pix) {
			return nil, nil
		}
		copy(img.Pix, data)
		return img, nil
	case "DeviceRGB", "RGB":
		img := image.NewRGBA(bounds)
		n := int(width) * int(height)
		if len(data) < 3*n {
			return nil, nil
		}
		for i := range n {
			img.Pix[4*i] = data[3*i]
			img.Pix[4*i+1] = data[3*i+1]
			img.Pix[4*i+2] = data[3*i+2]
			img.Pix[4*i+3] = 255
		}
		return img, nil
	}
	return nil, nil
}

// deviceColor interprets the operands of a colour operator.  The colour
// space is chosen by the number of operands.
func deviceColor(args []pdf.Object) (color.Color, bool) {
	var v []uint8
	for i := range args {
		x, ok := getNumber(args, i)
		if !ok {
			break
		}
		v = append(v, uint8(math.Round(clamp(x)*255)))
	}
	switch len(v) {
	case 1:
		return color.Gray{Y: v[0]}, true
	case 3:
		return color.RGBA{R: v[0], G: v[1], B: v[2], A: 255}, true
	case 4:
		return color.CMYK{C: v[0], M: v[1], Y: v[2], K: v[3]}, true
	}
	return nil, false
}

func clamp(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}

// scaleOf estimates the factor by which m scales lengths.
func scaleOf(m matrix.Matrix) float64 {
	return math.Sqrt(math.Abs(m[0]*m[3] - m[1]*m[2]))
}

func getNumber(args []pdf.Object, i int) (float64, bool) {
	if i >= len(args) {
		return 0, false
	}
	switch x := args[i].(type) {
	case pdf.Integer:
		return float64(x), true
	case pdf.Real:
		return float64(x), true
	}
	return 0, false
}

func getMatrix(args []pdf.Object) (matrix.Matrix, bool) {
	if len(args) != 6 {
		return matrix.Matrix{}, false
	}
	var m matrix.Matrix
	for i := range m {
		x, ok := getNumber(args, i)
		if !ok {
			return matrix.Matrix{}, false
		}
		m[i] = x
	}
	return m, true
}
