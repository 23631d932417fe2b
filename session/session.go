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

// Package session holds the state of an interactive redaction session.
//
// A [Session] owns the open document, the view state, the set of marked
// rectangles and the state of the current mouse drag.  The user interface
// forwards input events to the session and reads the state back for
// display.  A Session must not be used concurrently.
package session

import (
	"errors"
	"io"

	"github.com/sirupsen/logrus"

	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/redact"
	"seehuhn.de/go/redact/config"
	"seehuhn.de/go/redact/marks"
	"seehuhn.de/go/redact/viewport"
)

// ErrNoDocument is returned by [Session.Save] if no document is open.
var ErrNoDocument = errors.New("no document loaded")

// DragState is the state of the drag state machine.
type DragState int

// These are the states of a drag.
const (
	Idle DragState = iota
	Dragging
)

func (s DragState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	default:
		return "invalid"
	}
}

// Session is the state of an interactive redaction session.
type Session struct {
	cfg *config.Config
	log logrus.FieldLogger

	doc   *redact.Document
	view  viewport.State
	marks *marks.Set

	drag     DragState
	from, to vec.Vec2
}

// New creates a session without a document.  If cfg is nil, the default
// settings are used.  If log is nil, messages are discarded.
func New(cfg *config.Config, log logrus.FieldLogger) *Session {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Session{
		cfg:   cfg,
		log:   log,
		view:  viewport.Default(),
		marks: marks.New(vec.Vec2{}),
	}
}

// Open loads a new document.  If the file cannot be opened, an
// [*redact.InputError] is returned and the session is left unchanged.
// Otherwise the previous document is closed, and the view and the list of
// marked rectangles are reset.
func (s *Session) Open(path string) error {
	doc, err := redact.Open(path)
	if err != nil {
		return err
	}
	if s.doc != nil {
		if err := s.doc.Close(); err != nil {
			s.log.WithError(err).Warn("closing previous document")
		}
	}

	s.doc = doc
	s.view.Reset()
	s.marks.Reset(doc.PageSize())
	s.drag = Idle

	size := doc.PageSize()
	s.log.WithFields(logrus.Fields{
		"path":   path,
		"pages":  doc.NumPages(),
		"width":  size.X,
		"height": size.Y,
	}).Info("document opened")
	return nil
}

// Close closes the current document, if any.
func (s *Session) Close() error {
	if s.doc == nil {
		return nil
	}
	err := s.doc.Close()
	s.doc = nil
	s.marks.Reset(vec.Vec2{})
	s.drag = Idle
	return err
}

// Document returns the open document, or nil if no document is loaded.
func (s *Session) Document() *redact.Document {
	return s.doc
}

// Marks returns the rectangles marked for redaction, in page coordinates.
func (s *Session) Marks() []rect.Rect {
	return s.marks.List()
}

// OnMarksChanged registers a function which is called whenever the set of
// marked rectangles changes, for example to redraw the page.  A nil
// function removes the callback.
func (s *Session) OnMarksChanged(fn func()) {
	s.marks.OnChange = fn
}

// View returns the current view state.
func (s *Session) View() viewport.State {
	return s.view
}

// ZoomIn increases the zoom factor by one step.
func (s *Session) ZoomIn() {
	s.view.ZoomIn(s.cfg.Limits())
}

// ZoomOut decreases the zoom factor by one step.
func (s *Session) ZoomOut() {
	s.view.ZoomOut(s.cfg.Limits())
}

// ScrollBy moves the page by the given number of pixels.
func (s *Session) ScrollBy(dx, dy float64) {
	s.view.ScrollBy(dx, dy)
}

// ResetView restores the default zoom and scroll position.
func (s *Session) ResetView() {
	s.view.Reset()
}

// FitToWindow zooms the page so that it fits into a window of the given
// size in pixels.
func (s *Session) FitToWindow(width, height float64) {
	if s.doc == nil {
		return
	}
	s.view.FitToWindow(vec.Vec2{X: width, Y: height}, s.doc.PageSize(), s.cfg.Limits())
}

// DragState returns the state of the drag state machine.
func (s *Session) DragState() DragState {
	return s.drag
}

// Press starts a drag at the given viewport pixel position.
// The event is ignored if a drag is in progress or no document is loaded.
func (s *Session) Press(p vec.Vec2) {
	if s.drag != Idle || s.doc == nil {
		return
	}
	s.drag = Dragging
	s.from, s.to = p, p
}

// Move updates the end point of the current drag.
func (s *Session) Move(p vec.Vec2) {
	if s.drag != Dragging {
		return
	}
	s.to = p
}

// Release ends the current drag and marks the dragged rectangle for
// redaction.  The return value indicates whether a rectangle was added:
// drags below the configured minimum size, and drags which miss the page,
// are discarded.
func (s *Session) Release(p vec.Vec2) bool {
	if s.drag != Dragging {
		return false
	}
	s.drag = Idle
	s.to = p

	drag := viewport.Drag{From: s.from, To: s.to}
	r, ok := viewport.MapToPage(drag, s.view, s.doc.PageSize(), s.cfg.MinDragPixels)
	if !ok || !s.marks.Add(r) {
		s.log.WithField("drag", drag).Debug("drag discarded")
		return false
	}
	s.log.WithField("rect", r).Debug("rectangle marked")
	return true
}

// Preview returns the rectangle of the drag in progress, in page
// coordinates.  The second return value is false if there is no drag in
// progress, or if the rectangle is empty.
func (s *Session) Preview() (rect.Rect, bool) {
	if s.drag != Dragging {
		return rect.Rect{}, false
	}
	drag := viewport.Drag{From: s.from, To: s.to}
	return viewport.MapToPage(drag, s.view, s.doc.PageSize(), 0)
}

// ClearMarks removes all marked rectangles.
func (s *Session) ClearMarks() {
	s.marks.Clear()
}

// Save writes a redacted copy of the document to path.  The document and
// the marked rectangles are not changed, so that Save can be retried after
// an error.
func (s *Session) Save(path string) error {
	if s.doc == nil {
		return ErrNoDocument
	}
	opt := &redact.Options{
		LineArt: lineArtPolicy(s.cfg.LineArt),
		Log:     s.log,
	}
	return redact.Apply(s.doc, s.marks.List(), path, opt)
}

func lineArtPolicy(p config.LineArtPolicy) redact.LineArtPolicy {
	if p == config.LineArtCovered {
		return redact.LineArtRemoveCovered
	}
	return redact.LineArtRemoveTouched
}
