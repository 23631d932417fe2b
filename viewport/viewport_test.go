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

package viewport

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
)

var letter = vec.Vec2{X: 612, Y: 792}

func TestRoundTrip(t *testing.T) {
	views := []State{
		{Zoom: 1},
		{Zoom: 1.5, Scroll: vec.Vec2{X: -100, Y: -250}},
		{Zoom: 0.3, Scroll: vec.Vec2{X: 40, Y: 12.5}},
		{Zoom: 7.2, Scroll: vec.Vec2{X: -3000, Y: -1}},
	}
	page := rect.Rect{LLx: 72, LLy: 100, URx: 300, URy: 180}

	for _, view := range views {
		px := RectToPixels(page, view, letter)
		drag := Drag{
			From: vec.Vec2{X: px.LLx, Y: px.LLy},
			To:   vec.Vec2{X: px.URx, Y: px.URy},
		}
		got, ok := MapToPage(drag, view, letter, 1)
		if !ok {
			t.Errorf("zoom %g: rectangle discarded", view.Zoom)
			continue
		}
		opt := cmpopts.EquateApprox(0, 1)
		if d := cmp.Diff(page, got, opt); d != "" {
			t.Errorf("zoom %g: round trip failed (-want +got):\n%s", view.Zoom, d)
		}
	}
}

func TestNormalization(t *testing.T) {
	view := State{Zoom: 2, Scroll: vec.Vec2{X: 10, Y: 20}}
	a := vec.Vec2{X: 50, Y: 60}
	b := vec.Vec2{X: 250, Y: 400}

	drags := []Drag{
		{From: a, To: b},
		{From: b, To: a},
		{From: vec.Vec2{X: a.X, Y: b.Y}, To: vec.Vec2{X: b.X, Y: a.Y}},
		{From: vec.Vec2{X: b.X, Y: a.Y}, To: vec.Vec2{X: a.X, Y: b.Y}},
	}
	var results []rect.Rect
	for _, drag := range drags {
		r, ok := MapToPage(drag, view, letter, 5)
		if !ok {
			t.Fatalf("drag %v discarded", drag)
		}
		if r.LLx > r.URx || r.LLy > r.URy {
			t.Errorf("drag %v: rectangle %v is not normalized", drag, r)
		}
		results = append(results, r)
	}
	for i := 1; i < len(results); i++ {
		if d := cmp.Diff(results[0], results[i]); d != "" {
			t.Errorf("drag %d: different result (-want +got):\n%s", i, d)
		}
	}

	want := rect.Rect{LLx: 20, LLy: 792 - 190, URx: 120, URy: 792 - 20}
	if d := cmp.Diff(want, results[0]); d != "" {
		t.Errorf("unexpected rectangle (-want +got):\n%s", d)
	}
}

func TestClipping(t *testing.T) {
	view := State{Zoom: 1}
	drag := Drag{
		From: vec.Vec2{X: -50, Y: -50},
		To:   vec.Vec2{X: 100, Y: 100},
	}
	r, ok := MapToPage(drag, view, letter, 5)
	if !ok {
		t.Fatal("rectangle discarded")
	}
	want := rect.Rect{LLx: 0, LLy: 692, URx: 100, URy: 792}
	if d := cmp.Diff(want, r); d != "" {
		t.Errorf("unexpected rectangle (-want +got):\n%s", d)
	}

	// completely outside the page
	drag = Drag{
		From: vec.Vec2{X: 700, Y: 10},
		To:   vec.Vec2{X: 800, Y: 100},
	}
	_, ok = MapToPage(drag, view, letter, 5)
	if ok {
		t.Error("rectangle outside the page was accepted")
	}
}

func TestThreshold(t *testing.T) {
	view := State{Zoom: 3}
	testCases := []struct {
		drag Drag
		ok   bool
	}{
		{Drag{From: vec.Vec2{X: 10, Y: 10}, To: vec.Vec2{X: 10, Y: 10}}, false},
		{Drag{From: vec.Vec2{X: 10, Y: 10}, To: vec.Vec2{X: 11, Y: 11}}, false},
		{Drag{From: vec.Vec2{X: 10, Y: 10}, To: vec.Vec2{X: 100, Y: 14}}, false},
		{Drag{From: vec.Vec2{X: 10, Y: 10}, To: vec.Vec2{X: 15, Y: 15}}, true},
		{Drag{From: vec.Vec2{X: 100, Y: 100}, To: vec.Vec2{X: 10, Y: 10}}, true},
	}
	for _, tc := range testCases {
		_, ok := MapToPage(tc.drag, view, letter, 5)
		if ok != tc.ok {
			t.Errorf("%v: got %t, want %t", tc.drag, ok, tc.ok)
		}
	}
}

func TestZoom(t *testing.T) {
	s := Default()
	s.ZoomIn(DefaultLimits)
	if s.Zoom != 1.25 {
		t.Errorf("zoom in: got %g", s.Zoom)
	}
	s.ZoomOut(DefaultLimits)
	s.ZoomOut(DefaultLimits)
	if math.Abs(s.Zoom-0.8) > 1e-12 {
		t.Errorf("zoom out: got %g", s.Zoom)
	}

	for range 100 {
		s.ZoomIn(DefaultLimits)
	}
	if s.Zoom != DefaultLimits.Max {
		t.Errorf("zoom not clamped: %g", s.Zoom)
	}
	for range 200 {
		s.ZoomOut(DefaultLimits)
	}
	if s.Zoom != DefaultLimits.Min {
		t.Errorf("zoom not clamped: %g", s.Zoom)
	}

	s.ScrollBy(5, -7)
	s.Reset()
	if d := cmp.Diff(Default(), s); d != "" {
		t.Errorf("reset failed (-want +got):\n%s", d)
	}
}

func TestFitToWindow(t *testing.T) {
	var s State
	s.FitToWindow(vec.Vec2{X: 1000, Y: 792}, letter, DefaultLimits)
	if s.Zoom != 1 {
		t.Errorf("unexpected zoom %g", s.Zoom)
	}
	want := vec.Vec2{X: 194, Y: 0}
	if d := cmp.Diff(want, s.Scroll); d != "" {
		t.Errorf("unexpected scroll (-want +got):\n%s", d)
	}

	// the page corners map to the centred window area
	ll := PageToPixel(vec.Vec2{}, s, letter)
	if d := cmp.Diff(vec.Vec2{X: 194, Y: 792}, ll); d != "" {
		t.Errorf("unexpected corner (-want +got):\n%s", d)
	}
}
