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

package preview

import (
	"image/color"
	"math"
	"path/filepath"
	"testing"

	"seehuhn.de/go/geom/rect"

	"seehuhn.de/go/redact"
	"seehuhn.de/go/redact/internal/testpdf"
	"seehuhn.de/go/redact/pdf"
)

var (
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	black = color.RGBA{A: 255}
)

// similar compares two colours, allowing for rounding errors.
func similar(a, b color.RGBA) bool {
	d := func(x, y uint8) bool { return math.Abs(float64(x)-float64(y)) <= 2 }
	return d(a.R, b.R) && d(a.G, b.G) && d(a.B, b.B) && d(a.A, b.A)
}

func openDoc(t *testing.T, doc *testpdf.Document) *redact.Document {
	t.Helper()
	fname := filepath.Join(t.TempDir(), "in.pdf")
	err := doc.WriteFile(fname)
	if err != nil {
		t.Fatal(err)
	}
	res, err := redact.Open(fname)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { res.Close() })
	return res
}

func TestRenderShapes(t *testing.T) {
	doc := openDoc(t, &testpdf.Document{
		MediaBox: rect.Rect{URx: 200, URy: 100},
		Content:  "1 0 0 rg 10 10 30 30 re f 0 0 1 RG 4 w 100 50 m 190 50 l S",
	})
	img, err := Render(doc, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 100 {
		t.Fatalf("unexpected image size %v", b)
	}

	testCases := []struct {
		x, y int
		want color.RGBA
	}{
		{25, 75, color.RGBA{R: 255, A: 255}},
		{145, 50, color.RGBA{B: 255, A: 255}},
		{5, 5, white},
		{145, 40, white},
	}
	for _, tc := range testCases {
		if got := img.RGBAAt(tc.x, tc.y); !similar(got, tc.want) {
			t.Errorf("pixel (%d, %d) = %v, want %v", tc.x, tc.y, got, tc.want)
		}
	}
}

func TestRenderText(t *testing.T) {
	doc := openDoc(t, &testpdf.Document{
		MediaBox: rect.Rect{URx: 200, URy: 100},
		Fonts:    map[pdf.Name]pdf.Dict{"F1": testpdf.Helvetica()},
		Content:  "BT /F1 20 Tf 10 10 Td (H) Tj 3 Tr (H) Tj ET",
	})
	img, err := Render(doc, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := img.RGBAAt(17, 85); !similar(got, black) {
		t.Errorf("glyph not drawn, pixel = %v", got)
	}
	// the second glyph uses the invisible text rendering mode
	if got := img.RGBAAt(31, 85); got != white {
		t.Errorf("invisible glyph drawn, pixel = %v", got)
	}
}

func TestRenderRotated(t *testing.T) {
	doc := openDoc(t, &testpdf.Document{
		MediaBox: rect.Rect{URx: 200, URy: 100},
		Rotate:   90,
		Content:  "10 10 20 20 re f",
	})
	img, err := Render(doc, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 100 || b.Dy() != 200 {
		t.Fatalf("unexpected image size %v", b)
	}
	if got := img.RGBAAt(20, 20); !similar(got, black) {
		t.Errorf("rectangle not found, pixel = %v", got)
	}
	if got := img.RGBAAt(20, 180); got != white {
		t.Errorf("unexpected pixel %v", got)
	}
}

func TestRenderImage(t *testing.T) {
	doc := openDoc(t, &testpdf.Document{
		MediaBox: rect.Rect{URx: 200, URy: 100},
		XObjects: map[pdf.Name]*testpdf.XObject{"Im1": testpdf.Image(2, 2)},
		Content:  "q 100 0 0 50 0 0 cm /Im1 Do Q",
	})
	img, err := Render(doc, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := img.RGBAAt(10, 60); got.R > 64 {
		t.Errorf("top left image pixel too light: %v", got)
	}
	if got := img.RGBAAt(150, 50); got != white {
		t.Errorf("image drawn outside the unit square: %v", got)
	}
}

func TestRenderMarks(t *testing.T) {
	doc := openDoc(t, &testpdf.Document{
		MediaBox: rect.Rect{URx: 200, URy: 100},
	})
	img, err := Render(doc, 2, []rect.Rect{{URx: 50, URy: 50}})
	if err != nil {
		t.Fatal(err)
	}
	got := img.RGBAAt(50, 150)
	if got.R != 255 || got.G > 200 || got.G < 100 {
		t.Errorf("mark not drawn, pixel = %v", got)
	}
	if got := img.RGBAAt(150, 150); got != white {
		t.Errorf("unexpected pixel %v", got)
	}
}

func TestRenderClosed(t *testing.T) {
	doc := openDoc(t, &testpdf.Document{})
	doc.Close()
	_, err := Render(doc, 1, nil)
	if err == nil {
		t.Error("closed document rendered")
	}
}
