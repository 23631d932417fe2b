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

// Package marks keeps the list of rectangles marked for redaction.
package marks

import (
	"slices"

	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/redact/viewport"
)

// Set is an ordered collection of page rectangles.
//
// All rectangles in a Set are normalized and lie within the page.
// Overlapping rectangles are kept as they are.
type Set struct {
	pageSize vec.Vec2
	rects    []rect.Rect

	// OnChange, if set, is called after every change of the set.
	OnChange func()
}

// New creates an empty set for a page of the given size.
func New(pageSize vec.Vec2) *Set {
	return &Set{pageSize: pageSize}
}

// PageSize returns the page size the rectangles are clipped to.
func (s *Set) PageSize() vec.Vec2 {
	return s.pageSize
}

// Add appends a rectangle to the set.  The rectangle is normalized and
// clipped to the page first.  Rectangles with no area inside the page are
// ignored, and false is returned.
func (s *Set) Add(r rect.Rect) bool {
	r, ok := viewport.Clip(viewport.Normalize(r), s.pageSize)
	if !ok {
		return false
	}
	s.rects = append(s.rects, r)
	s.changed()
	return true
}

// Clear removes all rectangles from the set.
func (s *Set) Clear() {
	s.rects = s.rects[:0]
	s.changed()
}

// Reset removes all rectangles and sets a new page size.
func (s *Set) Reset(pageSize vec.Vec2) {
	s.pageSize = pageSize
	s.Clear()
}

// List returns a copy of the rectangles, in the order they were added.
func (s *Set) List() []rect.Rect {
	return slices.Clone(s.rects)
}

// Len returns the number of rectangles in the set.
func (s *Set) Len() int {
	return len(s.rects)
}

func (s *Set) changed() {
	if s.OnChange != nil {
		s.OnChange()
	}
}
