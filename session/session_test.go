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

package session

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/redact"
	"seehuhn.de/go/redact/config"
	"seehuhn.de/go/redact/extract"
	"seehuhn.de/go/redact/internal/testpdf"
	"seehuhn.de/go/redact/pdf"
	"seehuhn.de/go/redact/viewport"
)

const secret = `BT
/F1 12 Tf
72 700 Td
(Public text) Tj
0 -20 Td
(SECRET data) Tj
ET
`

func writeDoc(t *testing.T, name string, doc *testpdf.Document) string {
	t.Helper()
	fname := filepath.Join(t.TempDir(), name)
	err := doc.WriteFile(fname)
	if err != nil {
		t.Fatal(err)
	}
	return fname
}

func openSession(t *testing.T, fname string) *Session {
	t.Helper()
	s := New(nil, nil)
	err := s.Open(fname)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func drag(s *Session, x0, y0, x1, y1 float64) bool {
	s.Press(vec.Vec2{X: x0, Y: y0})
	s.Move(vec.Vec2{X: (x0 + x1) / 2, Y: (y0 + y1) / 2})
	return s.Release(vec.Vec2{X: x1, Y: y1})
}

func TestDragStateMachine(t *testing.T) {
	s := openSession(t, writeDoc(t, "a.pdf", &testpdf.Document{}))

	// events in the wrong state are ignored
	s.Move(vec.Vec2{X: 1, Y: 1})
	if s.Release(vec.Vec2{X: 300, Y: 300}) {
		t.Error("release without press added a rectangle")
	}
	if s.DragState() != Idle {
		t.Fatalf("unexpected state %s", s.DragState())
	}

	s.Press(vec.Vec2{X: 100, Y: 100})
	if s.DragState() != Dragging {
		t.Fatalf("unexpected state %s", s.DragState())
	}
	s.Press(vec.Vec2{X: 0, Y: 0}) // ignored
	s.Move(vec.Vec2{X: 150, Y: 120})
	preview, ok := s.Preview()
	wantPreview := rect.Rect{LLx: 100, LLy: 672, URx: 150, URy: 692}
	if !ok || preview != wantPreview {
		t.Errorf("unexpected preview %v, %t", preview, ok)
	}

	if !s.Release(vec.Vec2{X: 200, Y: 150}) {
		t.Fatal("rectangle not added")
	}
	if s.DragState() != Idle {
		t.Errorf("unexpected state %s", s.DragState())
	}
	if _, ok := s.Preview(); ok {
		t.Error("preview shown after release")
	}

	want := []rect.Rect{{LLx: 100, LLy: 642, URx: 200, URy: 692}}
	if d := cmp.Diff(want, s.Marks()); d != "" {
		t.Errorf("unexpected marks (-want +got):\n%s", d)
	}
}

func TestMarksChanged(t *testing.T) {
	s := openSession(t, writeDoc(t, "a.pdf", &testpdf.Document{}))
	calls := 0
	s.OnMarksChanged(func() { calls++ })

	drag(s, 100, 100, 200, 200)
	if calls != 1 {
		t.Errorf("%d calls after adding a rectangle, want 1", calls)
	}
	drag(s, 100, 100, 101, 101)
	if calls != 1 {
		t.Errorf("%d calls after a discarded drag, want 1", calls)
	}
	s.ClearMarks()
	if calls != 2 {
		t.Errorf("%d calls after clearing, want 2", calls)
	}
	err := s.Open(writeDoc(t, "b.pdf", &testpdf.Document{}))
	if err != nil {
		t.Fatal(err)
	}
	if calls != 3 {
		t.Errorf("%d calls after loading a document, want 3", calls)
	}

	s.OnMarksChanged(nil)
	drag(s, 100, 100, 200, 200)
	if calls != 3 {
		t.Errorf("callback called after removal")
	}
}

func TestSmallDrag(t *testing.T) {
	s := openSession(t, writeDoc(t, "a.pdf", &testpdf.Document{}))

	if drag(s, 100, 100, 103, 200) {
		t.Error("narrow drag added a rectangle")
	}
	if drag(s, -50, -50, -10, -10) {
		t.Error("drag outside the page added a rectangle")
	}
	if len(s.Marks()) != 0 {
		t.Errorf("unexpected marks %v", s.Marks())
	}
}

func TestZoomedDrag(t *testing.T) {
	s := openSession(t, writeDoc(t, "a.pdf", &testpdf.Document{}))
	s.ZoomIn()
	s.ScrollBy(10, 20)
	if got := s.View().Zoom; got != 1.25 {
		t.Errorf("unexpected zoom %g", got)
	}

	if !drag(s, 10, 20, 135, 145) {
		t.Fatal("rectangle not added")
	}
	want := []rect.Rect{{LLx: 0, LLy: 692, URx: 100, URy: 792}}
	if d := cmp.Diff(want, s.Marks()); d != "" {
		t.Errorf("unexpected marks (-want +got):\n%s", d)
	}

	s.ResetView()
	if d := cmp.Diff(viewport.Default(), s.View()); d != "" {
		t.Errorf("view not reset (-want +got):\n%s", d)
	}
}

func TestFitToWindow(t *testing.T) {
	s := openSession(t, writeDoc(t, "a.pdf", &testpdf.Document{}))
	s.FitToWindow(306, 1000)
	view := s.View()
	if view.Zoom != 0.5 {
		t.Errorf("unexpected zoom %g", view.Zoom)
	}
	if view.Scroll.X != 0 || view.Scroll.Y != 302 {
		t.Errorf("unexpected scroll position %v", view.Scroll)
	}
}

func TestOpenClearsMarks(t *testing.T) {
	s := openSession(t, writeDoc(t, "a.pdf", &testpdf.Document{}))
	s.ZoomIn()
	if !drag(s, 10, 10, 100, 100) {
		t.Fatal("rectangle not added")
	}

	second := writeDoc(t, "b.pdf", &testpdf.Document{MediaBox: rect.Rect{URx: 200, URy: 100}})
	err := s.Open(second)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Marks()) != 0 {
		t.Errorf("marks not cleared: %v", s.Marks())
	}
	if s.View() != viewport.Default() {
		t.Errorf("view not reset: %v", s.View())
	}
	if s.Document().Path() != second {
		t.Errorf("wrong document %q", s.Document().Path())
	}
}

func TestOpenFailureKeepsState(t *testing.T) {
	first := writeDoc(t, "a.pdf", &testpdf.Document{})
	s := openSession(t, first)
	if !drag(s, 10, 10, 100, 100) {
		t.Fatal("rectangle not added")
	}

	err := s.Open(filepath.Join(t.TempDir(), "missing.pdf"))
	var inputErr *redact.InputError
	if !errors.As(err, &inputErr) {
		t.Fatalf("expected InputError, got %v", err)
	}
	if len(s.Marks()) != 1 {
		t.Errorf("marks changed: %v", s.Marks())
	}
	if s.Document() == nil || s.Document().Path() != first {
		t.Error("document changed")
	}
}

func TestSave(t *testing.T) {
	in := writeDoc(t, "in.pdf", &testpdf.Document{
		Content: secret,
		Fonts:   map[pdf.Name]pdf.Dict{"F1": testpdf.Helvetica()},
	})
	s := openSession(t, in)

	if err := New(nil, nil).Save("x.pdf"); !errors.Is(err, ErrNoDocument) {
		t.Errorf("unexpected error %v", err)
	}

	if !drag(s, 70, 102, 300, 117) {
		t.Fatal("rectangle not added")
	}
	marked := s.Marks()

	out := filepath.Join(t.TempDir(), "out.pdf")
	err := s.Save(out)
	if err != nil {
		t.Fatal(err)
	}
	text, err := extract.File(out)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(text, "SECRET") || !strings.Contains(text, "Public") {
		t.Errorf("unexpected text %q", text)
	}
	if d := cmp.Diff(marked, s.Marks()); d != "" {
		t.Errorf("marks changed by save (-want +got):\n%s", d)
	}

	// saving over the input file is refused
	err = s.Save(in)
	var ioErr *redact.IOError
	if !errors.As(err, &ioErr) {
		t.Errorf("expected IOError, got %v", err)
	}
	if _, err := os.Stat(in); err != nil {
		t.Error(err)
	}
}

func TestLineArtPolicy(t *testing.T) {
	cfg := config.Default()
	cfg.LineArt = config.LineArtCovered
	if lineArtPolicy(cfg.LineArt) != redact.LineArtRemoveCovered {
		t.Error("wrong policy for covered")
	}
	if lineArtPolicy(config.LineArtTouched) != redact.LineArtRemoveTouched {
		t.Error("wrong policy for touched")
	}
}
