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

// Package viewport converts between the pixel coordinates of a zoomed and
// scrolled page view and the page coordinates used for redaction.
//
// Pixel coordinates have their origin at the top-left corner of the
// viewport, with the y axis pointing down.  Page coordinates are PDF points
// with the origin at the lower-left corner of the page as displayed, and
// the y axis pointing up.
package viewport

import (
	"math"

	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
)

// State describes how the page is shown in the viewport.
type State struct {
	// Zoom is the number of pixels per PDF point.
	Zoom float64

	// Scroll is the pixel position of the top-left corner of the page
	// in the viewport.
	Scroll vec.Vec2
}

// Default returns the view state used after a document is loaded.
func Default() State {
	return State{Zoom: 1}
}

// Limits restricts the zoom factor.
type Limits struct {
	Step     float64
	Min, Max float64
}

// DefaultLimits are the zoom limits used unless configured otherwise.
var DefaultLimits = Limits{Step: 1.25, Min: 0.05, Max: 64}

func (l Limits) clamp(zoom float64) float64 {
	return math.Min(math.Max(zoom, l.Min), l.Max)
}

// Reset restores the default view.
func (s *State) Reset() {
	*s = Default()
}

// ZoomIn increases the zoom factor by one step.
// The top-left corner of the page stays in place.
func (s *State) ZoomIn(l Limits) {
	s.Zoom = l.clamp(s.Zoom * l.Step)
}

// ZoomOut decreases the zoom factor by one step.
func (s *State) ZoomOut(l Limits) {
	s.Zoom = l.clamp(s.Zoom / l.Step)
}

// ScrollBy moves the page by the given number of pixels.
func (s *State) ScrollBy(dx, dy float64) {
	s.Scroll.X += dx
	s.Scroll.Y += dy
}

// FitToWindow chooses the largest zoom factor for which the whole page fits
// into a window of the given pixel size, and centres the page.
func (s *State) FitToWindow(window, pageSize vec.Vec2, l Limits) {
	if pageSize.X <= 0 || pageSize.Y <= 0 || window.X <= 0 || window.Y <= 0 {
		s.Reset()
		return
	}
	zoom := l.clamp(math.Min(window.X/pageSize.X, window.Y/pageSize.Y))
	s.Zoom = zoom
	s.Scroll = vec.Vec2{
		X: (window.X - zoom*pageSize.X) / 2,
		Y: (window.Y - zoom*pageSize.Y) / 2,
	}
}

// Drag is a mouse drag in viewport pixel coordinates.  The two points can
// be any pair of opposite corners.
type Drag struct {
	From, To vec.Vec2
}

// ToPage converts a point from viewport pixels to page coordinates.
// The result is not clipped to the page.
func ToPage(p vec.Vec2, view State, pageSize vec.Vec2) vec.Vec2 {
	return vec.Vec2{
		X: (p.X - view.Scroll.X) / view.Zoom,
		Y: pageSize.Y - (p.Y-view.Scroll.Y)/view.Zoom,
	}
}

// PageToPixel converts a point from page coordinates to viewport pixels.
func PageToPixel(p vec.Vec2, view State, pageSize vec.Vec2) vec.Vec2 {
	return vec.Vec2{
		X: p.X*view.Zoom + view.Scroll.X,
		Y: (pageSize.Y-p.Y)*view.Zoom + view.Scroll.Y,
	}
}

// RectToPixels converts a page rectangle to viewport pixels.  In the result,
// LLy is the top edge of the rectangle on screen, URy the bottom edge.
func RectToPixels(r rect.Rect, view State, pageSize vec.Vec2) rect.Rect {
	a := PageToPixel(vec.Vec2{X: r.LLx, Y: r.URy}, view, pageSize)
	b := PageToPixel(vec.Vec2{X: r.URx, Y: r.LLy}, view, pageSize)
	return rect.Rect{LLx: a.X, LLy: a.Y, URx: b.X, URy: b.Y}
}

// MapToPage converts a drag to a rectangle in page coordinates.
//
// The rectangle is normalized and clipped to the page.  The second return
// value is false if the drag is smaller than minPixels in either direction,
// or if nothing of the rectangle is left after clipping.
func MapToPage(drag Drag, view State, pageSize vec.Vec2, minPixels float64) (rect.Rect, bool) {
	if math.Abs(drag.To.X-drag.From.X) < minPixels || math.Abs(drag.To.Y-drag.From.Y) < minPixels {
		return rect.Rect{}, false
	}
	if !(view.Zoom > 0) {
		return rect.Rect{}, false
	}

	a := ToPage(drag.From, view, pageSize)
	b := ToPage(drag.To, view, pageSize)
	r := Normalize(rect.Rect{LLx: a.X, LLy: a.Y, URx: b.X, URy: b.Y})
	return Clip(r, pageSize)
}

// Normalize reorders the corners of r so that LLx <= URx and LLy <= URy.
func Normalize(r rect.Rect) rect.Rect {
	if r.LLx > r.URx {
		r.LLx, r.URx = r.URx, r.LLx
	}
	if r.LLy > r.URy {
		r.LLy, r.URy = r.URy, r.LLy
	}
	return r
}

// Clip restricts a normalized rectangle to [0, width] x [0, height].
// The second return value is false if the result has zero area.
func Clip(r rect.Rect, pageSize vec.Vec2) (rect.Rect, bool) {
	r.LLx = math.Max(r.LLx, 0)
	r.LLy = math.Max(r.LLy, 0)
	r.URx = math.Min(r.URx, pageSize.X)
	r.URy = math.Min(r.URy, pageSize.Y)
	if !(r.LLx < r.URx && r.LLy < r.URy) {
		return rect.Rect{}, false
	}
	return r, true
}
