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

package redact

import (
	"bytes"
	"errors"
	"math"

	"github.com/sirupsen/logrus"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/redact/content"
	"seehuhn.de/go/redact/internal/pdffont"
	"seehuhn.de/go/redact/pdf"
)

// maxFormDepth limits the nesting of form XObjects.  Forms nested deeper
// than this are removed if they intersect a redaction rectangle.
const maxFormDepth = 16

// redactor holds the state shared by all content streams processed while
// redacting a page.
type redactor struct {
	r       pdf.Getter
	ov      *pdf.Overlay
	rects   []rect.Rect // in default user space
	lineArt LineArtPolicy
	log     logrus.FieldLogger

	fonts  map[pdf.Reference]*pdffont.Font
	active map[pdf.Reference]bool // forms currently being processed

	stats stats
}

// stats counts the removed objects.
type stats struct {
	Glyphs      int
	Paths       int
	Images      int
	Shadings    int
	Forms       int
	Annotations int

	Clipped int // paths kept with the redacted parts clipped away
}

func newRedactor(ov *pdf.Overlay, rects []rect.Rect, lineArt LineArtPolicy, log logrus.FieldLogger) *redactor {
	return &redactor{
		r:       ov,
		ov:      ov,
		rects:   rects,
		lineArt: lineArt,
		log:     log,
		fonts:   make(map[pdf.Reference]*pdffont.Font),
		active:  make(map[pdf.Reference]bool),
	}
}

// hitIndex returns the index of the first redaction rectangle which
// overlaps box, or -1 if there is none.
func (red *redactor) hitIndex(box rect.Rect) int {
	for i, r := range red.rects {
		if overlaps(box, r) {
			return i
		}
	}
	return -1
}

// hitPath decides whether a path with the given bounding box is removed.
func (red *redactor) hitPath(box rect.Rect) bool {
	if red.lineArt == LineArtRemoveCovered {
		for _, r := range red.rects {
			if contains(r, box) {
				return true
			}
		}
		return false
	}
	return red.hitIndex(box) >= 0
}

// loadFont returns the font for a font resource.
func (red *redactor) loadFont(obj pdf.Object) *pdffont.Font {
	ref, isRef := obj.(pdf.Reference)
	if isRef {
		if f, ok := red.fonts[ref]; ok {
			return f
		}
	}
	f, err := pdffont.Load(red.r, obj)
	if err != nil {
		red.log.WithError(err).WithField("font", f.Name).Warn("cannot read font, using approximate metrics")
	} else if f.Approximate {
		red.log.WithField("font", f.Name).Warn("using approximate font metrics")
	}
	if isRef {
		red.fonts[ref] = f
	}
	return f
}

// gstate is the part of the graphics state needed to locate content.
type gstate struct {
	ctm       matrix.Matrix
	clip      rect.Rect // bounding box of the clipping path, in default user space
	lineWidth float64

	font        *pdffont.Font
	fontSize    float64
	charSpacing float64
	wordSpacing float64
	hScale      float64
	leading     float64
	rise        float64
}

// markedContent describes an open marked-content sequence.
type markedContent struct {
	index int // position of the BMC or BDC operator in the output
	dirty bool
}

// contentFilter removes content from a single content stream.
type contentFilter struct {
	*redactor
	res   *resources
	depth int

	state gstate
	stack []gstate

	out     []content.Operator
	changed bool

	path    []content.Operator
	pathBox rect.Rect
	hasPath bool
	clipOp  string

	tm, tlm matrix.Matrix

	mc []*markedContent
}

func (red *redactor) newFilter(res *resources, state gstate, depth int) *contentFilter {
	return &contentFilter{
		redactor: red,
		res:      res,
		depth:    depth,
		state:    state,
		tm:       matrix.Identity,
		tlm:      matrix.Identity,
	}
}

// run processes a content stream.  The filtered operators are in f.out.
func (f *contentFilter) run(ops []content.Operator) error {
	for _, op := range ops {
		err := f.apply(op)
		if err != nil {
			return err
		}
	}

	// drop an incomplete path
	f.resetPath()

	for len(f.mc) > 0 {
		f.endMarkedContent()
	}
	for range f.stack {
		f.emit(content.Operator{Name: "Q"})
	}
	return nil
}

func (f *contentFilter) emit(op content.Operator) {
	f.out = append(f.out, op)
}

// removed records that content was removed.
func (f *contentFilter) removed() {
	f.changed = true
	for _, mc := range f.mc {
		mc.dirty = true
	}
}

func (f *contentFilter) apply(op content.Operator) error {
	args := op.Args

	switch op.Name {
	case "q":
		f.stack = append(f.stack, f.state)
	case "Q":
		if len(f.stack) == 0 {
			// unbalanced Q
			return nil
		}
		f.state = f.stack[len(f.stack)-1]
		f.stack = f.stack[:len(f.stack)-1]
	case "cm":
		if m, ok := getMatrix(args); ok {
			f.state.ctm = m.Mul(f.state.ctm)
		}
	case "w":
		if x, ok := getNumber(args, 0); ok {
			f.state.lineWidth = x
		}
	case "gs":
		f.applyExtGState(args)

	case "m", "l", "c", "v", "y", "h", "re":
		f.addPath(op)
		return nil
	case "W", "W*":
		f.clipOp = op.Name
		return nil
	case "S", "s", "f", "F", "f*", "B", "B*", "b", "b*", "n":
		f.paint(op)
		return nil

	case "BT":
		f.tm = matrix.Identity
		f.tlm = matrix.Identity
	case "Tc":
		if x, ok := getNumber(args, 0); ok {
			f.state.charSpacing = x
		}
	case "Tw":
		if x, ok := getNumber(args, 0); ok {
			f.state.wordSpacing = x
		}
	case "Tz":
		if x, ok := getNumber(args, 0); ok {
			f.state.hScale = x / 100
		}
	case "TL":
		if x, ok := getNumber(args, 0); ok {
			f.state.leading = x
		}
	case "Ts":
		if x, ok := getNumber(args, 0); ok {
			f.state.rise = x
		}
	case "Tf":
		f.setFont(args)
	case "Td", "TD":
		tx, ok1 := getNumber(args, 0)
		ty, ok2 := getNumber(args, 1)
		if ok1 && ok2 {
			if op.Name == "TD" {
				f.state.leading = -ty
			}
			f.moveText(tx, ty)
		}
	case "Tm":
		if m, ok := getMatrix(args); ok {
			f.tm = m
			f.tlm = m
		}
	case "T*":
		f.moveText(0, -f.state.leading)
	case "Tj", "TJ", "'", "\"":
		f.showText(op)
		return nil

	case "Do":
		return f.doXObject(op)
	case "BI":
		f.inlineImage(op)
		return nil
	case "sh":
		if f.hitIndex(f.state.clip) >= 0 {
			f.stats.Shadings++
			f.removed()
			return nil
		}

	case "BMC", "BDC":
		f.useProperties(op)
		f.mc = append(f.mc, &markedContent{index: len(f.out)})
	case "MP", "DP":
		f.useProperties(op)
	case "EMC":
		if len(f.mc) == 0 {
			// unbalanced EMC
			return nil
		}
		f.endMarkedContent()
		return nil
	}

	f.emit(op)
	return nil
}

// addPath records a path construction operator.
func (f *contentFilter) addPath(op content.Operator) {
	f.path = append(f.path, op)

	var points []vec.Vec2
	switch op.Name {
	case "re":
		x, ok1 := getNumber(op.Args, 0)
		y, ok2 := getNumber(op.Args, 1)
		w, ok3 := getNumber(op.Args, 2)
		h, ok4 := getNumber(op.Args, 3)
		if ok1 && ok2 && ok3 && ok4 {
			points = append(points,
				vec.Vec2{X: x, Y: y}, vec.Vec2{X: x + w, Y: y},
				vec.Vec2{X: x + w, Y: y + h}, vec.Vec2{X: x, Y: y + h})
		}
	case "h":
		// no new points
	default:
		// For curves, the control points are included.  This gives a
		// bounding box which may be slightly too large.
		for i := 0; i+1 < len(op.Args); i += 2 {
			x, ok1 := getNumber(op.Args, i)
			y, ok2 := getNumber(op.Args, i+1)
			if ok1 && ok2 {
				points = append(points, vec.Vec2{X: x, Y: y})
			}
		}
	}

	for _, p := range points {
		p = mapPoint(f.state.ctm, p.X, p.Y)
		if !f.hasPath {
			f.pathBox = rect.Rect{LLx: p.X, LLy: p.Y, URx: p.X, URy: p.Y}
			f.hasPath = true
			continue
		}
		f.pathBox.LLx = math.Min(f.pathBox.LLx, p.X)
		f.pathBox.LLy = math.Min(f.pathBox.LLy, p.Y)
		f.pathBox.URx = math.Max(f.pathBox.URx, p.X)
		f.pathBox.URy = math.Max(f.pathBox.URy, p.Y)
	}
}

// paint handles a path painting operator.
func (f *contentFilter) paint(op content.Operator) {
	remove := false
	var touched []rect.Rect
	var outer rect.Rect
	if op.Name != "n" && f.hasPath {
		box := f.pathBox
		switch op.Name {
		case "S", "s", "B", "B*", "b", "b*":
			d := f.state.lineWidth / 2 * scaleOf(f.state.ctm)
			if d <= 0 {
				// zero width lines are drawn one device pixel wide
				d = 0.5
			}
			box.LLx -= d
			box.LLy -= d
			box.URx += d
			box.URy += d
		}
		remove = f.hitPath(box)
		if !remove {
			for _, r := range f.rects {
				if overlaps(box, r) {
					touched = append(touched, r)
				}
			}
			outer = box
			for _, r := range touched {
				outer.Extend(r)
			}
		}
	}

	if remove {
		f.stats.Paths++
		f.removed()
		if f.clipOp != "" {
			// keep the clipping path, but don't paint
			f.out = append(f.out, f.path...)
			f.emit(content.Operator{Name: f.clipOp})
			f.emit(content.Operator{Name: "n"})
		}
	} else if len(touched) > 0 {
		// The path is painted with the parts under the redaction
		// rectangles clipped away.  A clipping path set by the original
		// operators takes effect after painting.
		f.stats.Clipped++
		f.removed()
		f.emit(content.Operator{Name: "q"})
		f.out = append(f.out, f.cutouts(outer, touched)...)
		f.out = append(f.out, f.path...)
		f.emit(op)
		f.emit(content.Operator{Name: "Q"})
		if f.clipOp != "" {
			f.out = append(f.out, f.path...)
			f.emit(content.Operator{Name: f.clipOp})
			f.emit(content.Operator{Name: "n"})
		}
	} else {
		f.out = append(f.out, f.path...)
		if f.clipOp != "" {
			f.emit(content.Operator{Name: f.clipOp})
		}
		f.emit(op)
	}

	if f.clipOp != "" && f.hasPath {
		clip, ok := intersect(f.state.clip, f.pathBox)
		if !ok {
			clip = rect.Rect{}
		}
		f.state.clip = clip
	}
	f.resetPath()
}

// cutouts returns operators which set the clipping path to the area of
// outer not covered by any of the rects.  All rectangles are given in
// default user space.
func (f *contentFilter) cutouts(outer rect.Rect, rects []rect.Rect) []content.Operator {
	m := f.state.ctm
	if m[0]*m[3]-m[1]*m[2] == 0 {
		// nothing is visible
		return nil
	}
	inv := m.Inv()
	outer.LLx--
	outer.LLy--
	outer.URx++
	outer.URy++

	var ops []content.Operator
	polygon := func(pts ...vec.Vec2) {
		for i, p := range pts {
			p = mapPoint(inv, p.X, p.Y)
			name := "l"
			if i == 0 {
				name = "m"
			}
			ops = append(ops, content.Operator{
				Name: name,
				Args: []pdf.Object{pdf.Number(p.X), pdf.Number(p.Y)},
			})
		}
		ops = append(ops, content.Operator{Name: "h"})
	}
	// Each rectangle is cut out separately, since the nonzero winding
	// rule would add back regions where rectangles overlap.
	for _, r := range rects {
		polygon(
			vec.Vec2{X: outer.LLx, Y: outer.LLy}, vec.Vec2{X: outer.URx, Y: outer.LLy},
			vec.Vec2{X: outer.URx, Y: outer.URy}, vec.Vec2{X: outer.LLx, Y: outer.URy})
		polygon(
			vec.Vec2{X: r.LLx, Y: r.LLy}, vec.Vec2{X: r.LLx, Y: r.URy},
			vec.Vec2{X: r.URx, Y: r.URy}, vec.Vec2{X: r.URx, Y: r.LLy})
		ops = append(ops, content.Operator{Name: "W"}, content.Operator{Name: "n"})
	}
	return ops
}

func (f *contentFilter) resetPath() {
	f.path = f.path[:0]
	f.hasPath = false
	f.clipOp = ""
}

// applyExtGState handles the parts of an ExtGState dictionary which affect
// the position of content.
func (f *contentFilter) applyExtGState(args []pdf.Object) {
	if len(args) < 1 {
		return
	}
	name, ok := args[0].(pdf.Name)
	if !ok {
		return
	}
	obj, err := f.res.get("ExtGState", name)
	if err != nil {
		f.log.WithError(err).Warn("cannot read graphics state parameters")
		return
	}
	dict, err := pdf.GetDict(f.r, obj)
	if err != nil || dict == nil {
		return
	}
	if lw, err := pdf.GetNumber(f.r, dict["LW"]); err == nil && dict["LW"] != nil {
		f.state.lineWidth = lw
	}
	if font, _ := pdf.GetArray(f.r, dict["Font"]); len(font) == 2 {
		size, err := pdf.GetNumber(f.r, font[1])
		if err == nil {
			f.state.font = f.loadFont(font[0])
			f.state.fontSize = size
		}
	}
}

func (f *contentFilter) setFont(args []pdf.Object) {
	if len(args) < 2 {
		return
	}
	name, ok := args[0].(pdf.Name)
	size, ok2 := getNumber(args, 1)
	if !ok || !ok2 {
		return
	}
	obj, err := f.res.get("Font", name)
	if err != nil {
		f.log.WithError(err).Warn("cannot read font resources")
	}
	f.state.font = f.loadFont(obj)
	f.state.fontSize = size
}

func (f *contentFilter) moveText(tx, ty float64) {
	f.tlm = matrix.Translate(tx, ty).Mul(f.tlm)
	f.tm = f.tlm
}

// showText handles the text showing operators.  Glyphs which intersect a
// redaction rectangle are removed, and the remaining glyphs keep their
// position.
func (f *contentFilter) showText(op content.Operator) {
	var elems pdf.Array
	switch op.Name {
	case "TJ":
		if len(op.Args) > 0 {
			elems, _ = op.Args[len(op.Args)-1].(pdf.Array)
		}
	case "'":
		f.moveText(0, -f.state.leading)
		fallthrough
	case "Tj":
		if len(op.Args) > 0 {
			if s, ok := op.Args[len(op.Args)-1].(pdf.String); ok {
				elems = pdf.Array{s}
			}
		}
	case "\"":
		if len(op.Args) == 3 {
			if aw, ok := getNumber(op.Args, 0); ok {
				f.state.wordSpacing = aw
			}
			if ac, ok := getNumber(op.Args, 1); ok {
				f.state.charSpacing = ac
			}
			if s, ok := op.Args[2].(pdf.String); ok {
				elems = pdf.Array{s}
			}
		}
		f.moveText(0, -f.state.leading)
	}

	kept, removed := f.layoutText(elems)
	if !removed {
		f.emit(op)
		return
	}
	f.removed()

	switch op.Name {
	case "'":
		f.emit(content.Operator{Name: "T*"})
	case "\"":
		f.emit(content.Operator{Name: "Tw", Args: op.Args[:1]})
		f.emit(content.Operator{Name: "Tc", Args: op.Args[1:2]})
		f.emit(content.Operator{Name: "T*"})
	}
	if kept != nil {
		f.emit(content.Operator{Name: "TJ", Args: []pdf.Object{kept}})
	}
}

// layoutText advances the text matrix over the elements of a TJ array.
// The returned array contains the glyphs which are kept, with position
// adjustments replacing the removed glyphs.  The second return value
// indicates whether any glyphs were removed.
//
// If the glyph positions cannot be preserved, because the horizontal font
// size is zero, the returned array is nil.
func (f *contentFilter) layoutText(elems pdf.Array) (pdf.Array, bool) {
	font := f.state.font
	if font == nil {
		font = f.loadFont(nil)
		f.state.font = font
	}
	tfs := f.state.fontSize
	th := f.state.hScale
	degenerate := tfs*th == 0

	var res pdf.Array
	var run pdf.String
	var adj float64 // pending adjustment, in thousandths of a text space unit
	flush := func() {
		if len(run) > 0 {
			res = append(res, run)
			run = nil
		}
	}

	removed := false
	for _, elem := range elems {
		switch elem := elem.(type) {
		case pdf.String:
			for _, code := range font.Split(elem) {
				w0 := font.Width(code)
				tx := w0*tfs + f.state.charSpacing
				if font.IsSpace(code) {
					tx += f.state.wordSpacing
				}
				tx *= th

				if f.hitIndex(f.glyphBox(font, code, w0)) >= 0 {
					removed = true
					f.stats.Glyphs++
					if !degenerate {
						adj -= tx * 1000 / (tfs * th)
					}
				} else {
					if adj != 0 {
						flush()
						res = append(res, pdf.Number(adj))
						adj = 0
					}
					run = append(run, code...)
				}
				f.tm = matrix.Translate(tx, 0).Mul(f.tm)
			}
		case pdf.Integer, pdf.Real:
			n, _ := pdf.GetNumber(nil, elem)
			adj += n
			f.tm = matrix.Translate(-n/1000*tfs*th, 0).Mul(f.tm)
		}
	}
	flush()
	if adj != 0 {
		res = append(res, pdf.Number(adj))
	}

	if removed && degenerate {
		return nil, true
	}
	if res == nil {
		res = pdf.Array{}
	}
	return res, removed
}

// glyphBox returns the bounding box of a glyph at the current text
// position, in default user space.  The box covers the glyph cell and,
// for embedded fonts, the glyph outline, which may extend beyond the
// cell.
func (f *contentFilter) glyphBox(font *pdffont.Font, code []byte, w0 float64) rect.Rect {
	s := &f.state
	fm := matrix.Matrix{s.fontSize * s.hScale, 0, 0, s.fontSize, 0, s.rise}
	m := fm.Mul(f.tm).Mul(s.ctm)
	glyph := rect.Rect{LLx: 0, LLy: font.Descent, URx: w0, URy: font.Ascent}
	if outline, ok := font.GlyphBox(code); ok {
		glyph.Extend(outline)
	}
	return transformRect(glyph, m)
}

var unitSquare = rect.Rect{URx: 1, URy: 1}

func (f *contentFilter) inlineImage(op content.Operator) {
	if f.hitIndex(transformRect(unitSquare, f.state.ctm)) >= 0 {
		f.stats.Images++
		f.removed()
		return
	}
	f.emit(op)
}

func (f *contentFilter) doXObject(op content.Operator) error {
	if len(op.Args) < 1 {
		f.emit(op)
		return nil
	}
	name, ok := op.Args[0].(pdf.Name)
	if !ok {
		f.emit(op)
		return nil
	}

	obj, err := f.res.get("XObject", name)
	var stm *pdf.Stream
	if err == nil {
		stm, err = pdf.GetStream(f.r, obj)
	}
	if err != nil {
		// The extent of a damaged XObject is unknown.  We treat it like
		// an image, which is removed if it is near a redaction rectangle.
		f.log.WithError(err).WithField("xobject", name).Warn("cannot read XObject")
	}
	if stm == nil && err == nil {
		// missing XObjects draw nothing
		f.emit(op)
		return nil
	}

	var subtype pdf.Name
	if stm != nil {
		subtype, _ = pdf.GetName(f.r, stm.Dict["Subtype"])
	}
	switch subtype {
	case "Form":
		return f.doForm(op, name, obj, stm)
	case "PS":
		f.res.use("XObject", name)
		f.emit(op)
		return nil
	}

	if f.hitIndex(transformRect(unitSquare, f.state.ctm)) >= 0 {
		f.stats.Images++
		f.res.drop("XObject", name)
		f.removed()
		return nil
	}
	f.res.use("XObject", name)
	f.emit(op)
	return nil
}

// doForm handles a form XObject.  If the form intersects a redaction
// rectangle, a redacted copy of the form is drawn instead.  The original
// form is left in place, since it may be used on other pages.
func (f *contentFilter) doForm(op content.Operator, name pdf.Name, obj pdf.Object, stm *pdf.Stream) error {
	bbox, err1 := pdf.GetRectangle(f.r, stm.Dict["BBox"])
	m, err2 := pdf.GetMatrix(f.r, stm.Dict["Matrix"])
	formCTM := m.Mul(f.state.ctm)
	box := f.state.clip
	if err1 == nil && err2 == nil && !bbox.IsZero() {
		box = transformRect(bbox, formCTM)
	}

	// Forms without resources use the resources of the enclosing content
	// stream.
	ownResources := stm.Dict["Resources"] != nil

	idx := f.hitIndex(box)
	if idx < 0 {
		f.res.use("XObject", name)
		if !ownResources {
			f.res.opaque = true
		}
		f.emit(op)
		return nil
	}

	ref, isRef := obj.(pdf.Reference)
	if f.depth+1 > maxFormDepth || isRef && f.active[ref] {
		f.log.WithField("depth", f.depth+1).Warn("form XObjects nested too deeply, form removed")
		f.stats.Forms++
		f.res.drop("XObject", name)
		f.removed()
		return nil
	}
	if isRef {
		f.active[ref] = true
		defer delete(f.active, ref)
	}

	data, err := pdf.ReadAll(f.r, stm)
	if err != nil {
		return &EncodingError{Index: idx, Err: err}
	}
	ops, err := content.Parse(data)
	if err != nil {
		return &EncodingError{Index: idx, Err: err}
	}

	res := f.res
	if ownResources {
		res, err = newResources(f.r, stm.Dict["Resources"])
		if err != nil {
			return &EncodingError{Index: idx, Err: err}
		}
	}

	state := f.state
	state.ctm = formCTM
	if clip, ok := intersect(state.clip, box); ok {
		state.clip = clip
	}
	sub := f.newFilter(res, state, f.depth+1)
	err = sub.run(ops)
	if err != nil {
		var encErr *EncodingError
		if errors.As(err, &encErr) {
			return err
		}
		return &EncodingError{Index: idx, Err: err}
	}
	if !sub.changed {
		f.res.use("XObject", name)
		f.emit(op)
		return nil
	}

	encoded, err := pdf.Encode(content.Format(sub.out))
	if err != nil {
		return &EncodingError{Index: idx, Err: err}
	}
	dict := stm.Dict.Clone()
	for _, key := range []pdf.Name{"Length", "Filter", "DecodeParms", "DL", "PieceInfo"} {
		delete(dict, key)
	}
	dict["Filter"] = pdf.Name("FlateDecode")
	if ownResources {
		err = res.prune(true)
		if err != nil {
			return &EncodingError{Index: idx, Err: err}
		}
		if modified := res.modified(); modified != nil {
			dict["Resources"] = modified
		}
	}

	newName, err := f.res.add(f.ov, "XObject", "Redacted", &pdf.Stream{
		Dict: dict,
		R:    bytes.NewReader(encoded),
	})
	if err != nil {
		return &EncodingError{Index: idx, Err: err}
	}
	f.stats.Forms++
	f.res.drop("XObject", name)
	f.removed()
	f.emit(content.Operator{Name: "Do", Args: []pdf.Object{newName}})
	return nil
}

// hiddenProperties lists the entries of marked-content property lists
// which can repeat the text of the enclosed content.
var hiddenProperties = []pdf.Name{"ActualText", "Alt", "E"}

// endMarkedContent closes the innermost marked-content sequence.  If
// content was removed from the sequence, text alternatives are removed from
// the property list.
func (f *contentFilter) endMarkedContent() {
	mc := f.mc[len(f.mc)-1]
	f.mc = f.mc[:len(f.mc)-1]
	f.emit(content.Operator{Name: "EMC"})

	if !mc.dirty {
		return
	}
	op := f.out[mc.index]
	if op.Name != "BDC" || len(op.Args) < 2 {
		return
	}

	var props pdf.Dict
	switch x := op.Args[1].(type) {
	case pdf.Dict:
		props = x
	case pdf.Name:
		obj, err := f.res.get("Properties", x)
		if err == nil {
			props, _ = pdf.GetDict(f.r, obj)
		}
	}
	if !hasAny(props, hiddenProperties) {
		return
	}

	clean := props.Clone()
	for _, key := range hiddenProperties {
		delete(clean, key)
	}
	args := []pdf.Object{op.Args[0], clean}
	if oldName, isName := op.Args[1].(pdf.Name); isName {
		f.res.release("Properties", oldName)
		name, err := f.res.add(f.ov, "Properties", "Redacted", clean)
		if err != nil {
			f.log.WithError(err).Warn("cannot update marked content properties")
			args[1] = pdf.Dict{}
		} else {
			args[1] = name
		}
	}
	f.out[mc.index] = content.Operator{Name: "BDC", Args: args}
}

func (f *contentFilter) useProperties(op content.Operator) {
	if len(op.Args) < 2 {
		return
	}
	if name, ok := op.Args[1].(pdf.Name); ok {
		f.res.use("Properties", name)
	}
}

func hasAny(dict pdf.Dict, keys []pdf.Name) bool {
	for _, key := range keys {
		if _, ok := dict[key]; ok {
			return true
		}
	}
	return false
}

// scaleOf returns the largest factor by which m stretches lengths along
// the coordinate axes.
func scaleOf(m matrix.Matrix) float64 {
	return math.Sqrt(math.Max(m[0]*m[0]+m[1]*m[1], m[2]*m[2]+m[3]*m[3]))
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
	default:
		return 0, false
	}
}

func getMatrix(args []pdf.Object) (matrix.Matrix, bool) {
	var m matrix.Matrix
	if len(args) != 6 {
		return m, false
	}
	for i := range m {
		x, ok := getNumber(args, i)
		if !ok {
			return m, false
		}
		m[i] = x
	}
	return m, true
}
