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

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/redact/session"
)

const shellHelp = `commands:
  open FILE            load a PDF file
  save FILE            write the redacted copy
  zoom in|out|reset    change the zoom factor
  fit W H              fit the page into a window of W x H pixels
  scroll DX DY         move the page by DX, DY pixels
  press X Y            start a drag at pixel position X, Y
  move X Y             continue the drag
  release X Y          finish the drag
  list                 show the marked rectangles
  clear                remove all marked rectangles
  preview FILE         render the page and the marks to a PNG file
  exit                 leave the shell`

var errUsage = errors.New("invalid arguments, try \"help\"")

// shell interprets the commands of the interactive user interface, one
// per line.
type shell struct {
	s   *session.Session
	out io.Writer
	log logrus.FieldLogger
}

// run executes the commands read from in, until the input ends or an exit
// command is found.  Errors are reported and the next command is read.
func (sh *shell) run(in io.Reader, prompt string) error {
	scanner := bufio.NewScanner(in)
	for {
		if prompt != "" {
			fmt.Fprint(sh.out, prompt)
		}
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		quit, err := sh.exec(line)
		if err != nil {
			sh.log.WithError(err).WithField("command", line).Error("command failed")
			fmt.Fprintln(sh.out, "error:", err)
		}
		if quit {
			return nil
		}
	}
	return scanner.Err()
}

// exec executes a single command.
func (sh *shell) exec(line string) (bool, error) {
	words := strings.Fields(line)
	cmd, args := words[0], words[1:]
	s := sh.s

	switch cmd {
	case "exit", "quit":
		return true, nil
	case "help":
		fmt.Fprintln(sh.out, shellHelp)
	case "open":
		if len(args) != 1 {
			return false, errUsage
		}
		err := s.Open(args[0])
		if err != nil {
			return false, err
		}
		doc := s.Document()
		size := doc.PageSize()
		fmt.Fprintf(sh.out, "%d pages, page size %g x %g\n", doc.NumPages(), size.X, size.Y)
	case "save":
		if len(args) != 1 {
			return false, errUsage
		}
		err := s.Save(args[0])
		if err != nil {
			return false, err
		}
		fmt.Fprintf(sh.out, "saved %d rectangles to %s\n", len(s.Marks()), args[0])
	case "zoom":
		if len(args) != 1 {
			return false, errUsage
		}
		switch args[0] {
		case "in":
			s.ZoomIn()
		case "out":
			s.ZoomOut()
		case "reset":
			s.ResetView()
		default:
			return false, errUsage
		}
		fmt.Fprintf(sh.out, "zoom %g\n", s.View().Zoom)
	case "fit":
		p, err := point(args)
		if err != nil {
			return false, err
		}
		s.FitToWindow(p.X, p.Y)
		fmt.Fprintf(sh.out, "zoom %g\n", s.View().Zoom)
	case "scroll":
		p, err := point(args)
		if err != nil {
			return false, err
		}
		s.ScrollBy(p.X, p.Y)
	case "press", "move", "release":
		p, err := point(args)
		if err != nil {
			return false, err
		}
		switch cmd {
		case "press":
			s.Press(p)
		case "move":
			s.Move(p)
		case "release":
			if s.Release(p) {
				marks := s.Marks()
				fmt.Fprintln(sh.out, "added", formatRect(len(marks), marks[len(marks)-1]))
			} else {
				fmt.Fprintln(sh.out, "discarded")
			}
		}
	case "list":
		for i, r := range s.Marks() {
			fmt.Fprintln(sh.out, formatRect(i+1, r))
		}
	case "clear":
		s.ClearMarks()
	case "preview":
		if len(args) != 1 {
			return false, errUsage
		}
		doc := s.Document()
		if doc == nil {
			return false, session.ErrNoDocument
		}
		err := writePreview(args[0], doc, s.View().Zoom, s.Marks())
		if err != nil {
			return false, err
		}
	default:
		return false, fmt.Errorf("unknown command %q", cmd)
	}
	return false, nil
}

func point(args []string) (vec.Vec2, error) {
	if len(args) != 2 {
		return vec.Vec2{}, errUsage
	}
	x, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return vec.Vec2{}, err
	}
	y, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return vec.Vec2{}, err
	}
	return vec.Vec2{X: x, Y: y}, nil
}

func formatRect(idx int, r rect.Rect) string {
	return fmt.Sprintf("%d: %g %g %g %g", idx, r.LLx, r.LLy, r.URx, r.URy)
}
