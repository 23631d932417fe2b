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

// Redact removes text, images and vector graphics from rectangular regions
// of the first page of a PDF file.
//
// Usage:
//
//	redact apply --rect x0,y0,x1,y1 ... IN.pdf OUT.pdf
//	redact info IN.pdf
//	redact text IN.pdf
//	redact preview --rect x0,y0,x1,y1 ... IN.pdf OUT.png
//	redact shell [SCRIPT]
//
// Rectangles given with --rect are in PDF points, relative to the lower
// left corner of the page as displayed.  Rectangles given with --drag are
// mouse drags in the pixel coordinates of a viewport with the zoom factor
// and scroll position given by --zoom and --scroll.
package main

import (
	"errors"
	"fmt"
	"image/png"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/redact"
	"seehuhn.de/go/redact/config"
	"seehuhn.de/go/redact/extract"
	"seehuhn.de/go/redact/marks"
	"seehuhn.de/go/redact/preview"
	"seehuhn.de/go/redact/session"
	"seehuhn.de/go/redact/viewport"
)

func main() {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	app := newApp(log)
	err := app.Run(os.Args)
	if err != nil {
		log.WithError(err).Error("redact failed")
		os.Exit(1)
	}
}

// tool holds the settings shared by all sub-commands.
type tool struct {
	cfg *config.Config
	log *logrus.Logger
}

func newApp(log *logrus.Logger) *cli.App {
	t := &tool{cfg: config.Default(), log: log}

	rectFlags := []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "rect",
			Aliases: []string{"r"},
			Usage:   "redact the page rectangle `x0,y0,x1,y1` (may be repeated)",
		},
		&cli.StringSliceFlag{
			Name:  "drag",
			Usage: "redact the rectangle of a mouse drag `x0,y0,x1,y1` in viewport pixels",
		},
		&cli.Float64Flag{
			Name:  "zoom",
			Value: 1,
			Usage: "zoom factor of the viewport, in pixels per point",
		},
		&cli.StringFlag{
			Name:  "scroll",
			Value: "0,0",
			Usage: "position `X,Y` of the top-left page corner in the viewport",
		},
	}

	return &cli.App{
		Name:  "redact",
		Usage: "remove content from regions of the first page of a PDF file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "read settings from `FILE`",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "set the log `LEVEL` (debug, info, warn, error)",
			},
		},
		Before: t.setup,

		// rectangles are given as comma-separated lists
		DisableSliceFlagSeparator: true,

		Commands: []*cli.Command{
			{
				Name:      "apply",
				Usage:     "write a redacted copy of a PDF file",
				ArgsUsage: "IN.pdf OUT.pdf",
				Flags:     rectFlags,
				Action:    t.apply,
			},
			{
				Name:      "info",
				Usage:     "show information about the first page",
				ArgsUsage: "IN.pdf",
				Action:    t.info,
			},
			{
				Name:      "text",
				Usage:     "show the text of the first page",
				ArgsUsage: "IN.pdf",
				Action:    t.text,
			},
			{
				Name:      "preview",
				Usage:     "render the first page and the redaction rectangles to a PNG file",
				ArgsUsage: "IN.pdf OUT.png",
				Flags:     rectFlags,
				Action:    t.preview,
			},
			{
				Name:      "shell",
				Usage:     "read interactive commands from a script or standard input",
				ArgsUsage: "[SCRIPT]",
				Action:    t.shell,
			},
		},
	}
}

func (t *tool) setup(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if level := c.String("log-level"); level != "" {
		cfg.LogLevel = level
	}
	level, err := cfg.Level()
	if err != nil {
		return err
	}
	t.log.SetLevel(level)
	t.cfg = cfg
	return nil
}

func (t *tool) options() *redact.Options {
	opt := &redact.Options{Log: t.log}
	if t.cfg.LineArt == config.LineArtCovered {
		opt.LineArt = redact.LineArtRemoveCovered
	}
	return opt
}

func (t *tool) apply(c *cli.Context) error {
	if c.NArg() != 2 {
		return errors.New("expected input and output file names")
	}
	doc, err := redact.Open(c.Args().Get(0))
	if err != nil {
		return err
	}
	defer doc.Close()

	rects, err := t.collectRects(c, doc.PageSize())
	if err != nil {
		return err
	}
	if len(rects) == 0 {
		t.log.Warn("no rectangles given, the page is copied unchanged")
	}
	return redact.Apply(doc, rects, c.Args().Get(1), t.options())
}

// collectRects gathers the rectangles given by the --rect and --drag
// flags, in page coordinates.
func (t *tool) collectRects(c *cli.Context, pageSize vec.Vec2) ([]rect.Rect, error) {
	set := marks.New(pageSize)
	for _, s := range c.StringSlice("rect") {
		r, err := parseRect(s)
		if err != nil {
			return nil, err
		}
		if !set.Add(r) {
			t.log.WithField("rect", s).Warn("rectangle outside the page ignored")
		}
	}

	scroll, err := parsePoint(c.String("scroll"))
	if err != nil {
		return nil, err
	}
	view := viewport.State{Zoom: c.Float64("zoom"), Scroll: scroll}
	for _, s := range c.StringSlice("drag") {
		d, err := parseRect(s)
		if err != nil {
			return nil, err
		}
		drag := viewport.Drag{
			From: vec.Vec2{X: d.LLx, Y: d.LLy},
			To:   vec.Vec2{X: d.URx, Y: d.URy},
		}
		r, ok := viewport.MapToPage(drag, view, pageSize, t.cfg.MinDragPixels)
		if !ok || !set.Add(r) {
			t.log.WithField("drag", s).Warn("drag discarded")
		}
	}
	return set.List(), nil
}

func (t *tool) info(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("expected one input file name")
	}
	doc, err := redact.Open(c.Args().Get(0))
	if err != nil {
		return err
	}
	defer doc.Close()

	size := doc.PageSize()
	w := c.App.Writer
	fmt.Fprintf(w, "pages:    %d\n", doc.NumPages())
	fmt.Fprintf(w, "size:     %g x %g\n", size.X, size.Y)
	fmt.Fprintf(w, "rotation: %d\n", doc.Rotation())
	return nil
}

func (t *tool) text(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("expected one input file name")
	}
	text, err := extract.File(c.Args().Get(0))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, text)
	return nil
}

func (t *tool) preview(c *cli.Context) error {
	if c.NArg() != 2 {
		return errors.New("expected input and output file names")
	}
	doc, err := redact.Open(c.Args().Get(0))
	if err != nil {
		return err
	}
	defer doc.Close()

	rects, err := t.collectRects(c, doc.PageSize())
	if err != nil {
		return err
	}
	return writePreview(c.Args().Get(1), doc, c.Float64("zoom"), rects)
}

func writePreview(fname string, doc *redact.Document, zoom float64, rects []rect.Rect) error {
	img, err := preview.Render(doc, zoom, rects)
	if err != nil {
		return err
	}
	out, err := os.Create(fname)
	if err != nil {
		return err
	}
	err = png.Encode(out, img)
	if err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func (t *tool) shell(c *cli.Context) error {
	var in io.Reader = os.Stdin
	prompt := ""
	switch c.NArg() {
	case 0:
		if term.IsTerminal(int(os.Stdin.Fd())) {
			prompt = "redact> "
		}
	case 1:
		fd, err := os.Open(c.Args().Get(0))
		if err != nil {
			return err
		}
		defer fd.Close()
		in = fd
	default:
		return errors.New("expected at most one script file")
	}

	sh := &shell{
		s:   session.New(t.cfg, t.log),
		out: c.App.Writer,
		log: t.log,
	}
	defer sh.s.Close()
	return sh.run(in, prompt)
}

// parseRect parses a rectangle of the form "x0,y0,x1,y1".
func parseRect(s string) (rect.Rect, error) {
	x, err := parseNumbers(s, 4)
	if err != nil {
		return rect.Rect{}, err
	}
	return rect.Rect{LLx: x[0], LLy: x[1], URx: x[2], URy: x[3]}, nil
}

// parsePoint parses a point of the form "x,y".
func parsePoint(s string) (vec.Vec2, error) {
	x, err := parseNumbers(s, 2)
	if err != nil {
		return vec.Vec2{}, err
	}
	return vec.Vec2{X: x[0], Y: x[1]}, nil
}

func parseNumbers(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("%q: expected %d comma-separated numbers", s, n)
	}
	res := make([]float64, n)
	for i, part := range parts {
		x, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", s, err)
		}
		res[i] = x
	}
	return res, nil
}
