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

package pdffont

import (
	"bytes"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/image/font/gofont/goregular"

	"seehuhn.de/go/sfnt"

	"seehuhn.de/go/redact/pdf"
)

// objects is a minimal pdf.Getter for tests.
type objects map[pdf.Reference]pdf.Object

func (o objects) Get(ref pdf.Reference) (pdf.Object, error) {
	return o[ref], nil
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSimpleFont(t *testing.T) {
	fdRef := pdf.NewReference(2, 0)
	r := objects{
		fdRef: pdf.Dict{
			"Type":         pdf.Name("FontDescriptor"),
			"Ascent":       pdf.Integer(800),
			"Descent":      pdf.Integer(-200),
			"MissingWidth": pdf.Integer(250),
		},
	}
	fontDict := pdf.Dict{
		"Type":           pdf.Name("Font"),
		"Subtype":        pdf.Name("TrueType"),
		"BaseFont":       pdf.Name("ABCDEF+Custom"),
		"FirstChar":      pdf.Integer(65),
		"Widths":         pdf.Array{pdf.Integer(600), pdf.Integer(700), pdf.Real(550.5)},
		"FontDescriptor": fdRef,
		"Encoding":       pdf.Name("WinAnsiEncoding"),
	}

	f, err := Load(r, fontDict)
	if err != nil {
		t.Fatal(err)
	}
	if f.Name != "Custom" {
		t.Errorf("unexpected name %q", f.Name)
	}
	if f.Approximate {
		t.Error("metrics marked as approximate")
	}
	if !near(f.Ascent, 0.8) || !near(f.Descent, -0.2) {
		t.Errorf("unexpected ascent/descent %g/%g", f.Ascent, f.Descent)
	}

	codes := f.Split(pdf.String("AC\x80x"))
	var widths []float64
	var text string
	for _, code := range codes {
		widths = append(widths, f.Width(code))
		text += f.Text(code)
	}
	if d := cmp.Diff([]float64{0.6, 0.5505, 0.25, 0.25}, widths, cmp.Comparer(near)); d != "" {
		t.Errorf("unexpected widths (-want +got):\n%s", d)
	}
	if text != "AC€x" {
		t.Errorf("unexpected text %q", text)
	}
}

func TestStandardFont(t *testing.T) {
	fontDict := pdf.Dict{
		"Type":     pdf.Name("Font"),
		"Subtype":  pdf.Name("Type1"),
		"BaseFont": pdf.Name("Helvetica"),
	}
	f, err := Load(objects{}, fontDict)
	if err != nil {
		t.Fatal(err)
	}
	if !near(f.Width([]byte("A")), 0.667) || !near(f.Width([]byte(" ")), 0.278) {
		t.Errorf("unexpected widths %g %g", f.Width([]byte("A")), f.Width([]byte(" ")))
	}
	if !near(f.Ascent, 0.718) {
		t.Errorf("unexpected ascent %g", f.Ascent)
	}
	if f.Text([]byte("'")) != "’" {
		t.Errorf("unexpected text %q", f.Text([]byte("'")))
	}

	arial, _ := Load(objects{}, pdf.Dict{
		"Subtype":  pdf.Name("TrueType"),
		"BaseFont": pdf.Name("Arial,Bold"),
	})
	if !near(arial.Width([]byte("i")), 0.278) {
		t.Errorf("unexpected width %g", arial.Width([]byte("i")))
	}
}

func TestCompositeFont(t *testing.T) {
	fontDict := pdf.Dict{
		"Type":     pdf.Name("Font"),
		"Subtype":  pdf.Name("Type0"),
		"BaseFont": pdf.Name("Test"),
		"Encoding": pdf.Name("Identity-H"),
		"DescendantFonts": pdf.Array{pdf.Dict{
			"Subtype": pdf.Name("CIDFontType2"),
			"DW":      pdf.Integer(900),
			"W": pdf.Array{
				pdf.Integer(1), pdf.Array{pdf.Integer(500), pdf.Integer(600)},
				pdf.Integer(10), pdf.Integer(20), pdf.Integer(300),
			},
			"FontDescriptor": pdf.Dict{
				"FontBBox": pdf.Array{pdf.Integer(0), pdf.Integer(-300), pdf.Integer(1000), pdf.Integer(950)},
			},
		}},
	}
	f, err := Load(objects{}, fontDict)
	if err != nil {
		t.Fatal(err)
	}
	if !f.IsComposite() {
		t.Error("font not recognised as composite")
	}

	codes := f.Split(pdf.String{0, 1, 0, 2, 0, 15, 0, 99})
	var widths []float64
	for _, code := range codes {
		widths = append(widths, f.Width(code))
	}
	if d := cmp.Diff([]float64{0.5, 0.6, 0.3, 0.9}, widths, cmp.Comparer(near)); d != "" {
		t.Errorf("unexpected widths (-want +got):\n%s", d)
	}
	if !near(f.Ascent, 0.95) || !near(f.Descent, -0.3) {
		t.Errorf("unexpected ascent/descent %g/%g", f.Ascent, f.Descent)
	}
}

func TestType3Font(t *testing.T) {
	fontDict := pdf.Dict{
		"Subtype":    pdf.Name("Type3"),
		"FontMatrix": pdf.Array{pdf.Real(0.01), pdf.Integer(0), pdf.Integer(0), pdf.Real(0.01), pdf.Integer(0), pdf.Integer(0)},
		"FontBBox":   pdf.Array{pdf.Integer(0), pdf.Integer(-20), pdf.Integer(100), pdf.Integer(80)},
		"FirstChar":  pdf.Integer(0),
		"Widths":     pdf.Array{pdf.Integer(50)},
		"Encoding": pdf.Dict{
			"Differences": pdf.Array{pdf.Integer(0), pdf.Name("eacute")},
		},
	}
	f, err := Load(objects{}, fontDict)
	if err != nil {
		t.Fatal(err)
	}
	if !near(f.Width([]byte{0}), 0.5) {
		t.Errorf("unexpected width %g", f.Width([]byte{0}))
	}
	if !near(f.Ascent, 0.8) || !near(f.Descent, -0.2) {
		t.Errorf("unexpected ascent/descent %g/%g", f.Ascent, f.Descent)
	}
	if f.Text([]byte{0}) != "é" {
		t.Errorf("unexpected text %q", f.Text([]byte{0}))
	}
}

// goRegular returns a font descriptor with an embedded copy of the Go
// Regular font.
func goRegular() pdf.Dict {
	return pdf.Dict{
		"Type":    pdf.Name("FontDescriptor"),
		"Ascent":  pdf.Integer(700),
		"Descent": pdf.Integer(-100),
		"FontFile2": &pdf.Stream{
			Dict: pdf.Dict{},
			R:    bytes.NewReader(goregular.TTF),
		},
	}
}

func TestEmbeddedOutlines(t *testing.T) {
	f, err := Load(objects{}, pdf.Dict{
		"Subtype":        pdf.Name("TrueType"),
		"BaseFont":       pdf.Name("ABCDEF+GoRegular"),
		"FirstChar":      pdf.Integer(32),
		"Widths":         pdf.Array{pdf.Integer(250)},
		"Encoding":       pdf.Name("WinAnsiEncoding"),
		"FontDescriptor": goRegular(),
	})
	if err != nil {
		t.Fatal(err)
	}

	g, ok := f.GlyphBox([]byte("g"))
	if !ok {
		t.Fatal("no outline for \"g\"")
	}
	// The descender of "g" reaches below the descent given in the font
	// descriptor.
	if !(g.LLy < -0.1 && g.URy > 0.3 && g.URx < 1) {
		t.Errorf("implausible glyph box %v", g)
	}
	if _, ok := f.GlyphBox([]byte(" ")); ok {
		t.Error("blank glyph has an outline")
	}

	helvetica, _ := Load(objects{}, pdf.Dict{
		"Subtype":  pdf.Name("Type1"),
		"BaseFont": pdf.Name("Helvetica"),
	})
	if _, ok := helvetica.GlyphBox([]byte("g")); ok {
		t.Error("outline for a font without font program")
	}
}

func TestEmbeddedCIDOutlines(t *testing.T) {
	info, err := sfnt.Read(bytes.NewReader(goregular.TTF))
	if err != nil {
		t.Fatal(err)
	}
	lookup, err := info.CMapTable.GetBest()
	if err != nil {
		t.Fatal(err)
	}
	gid := lookup.Lookup('g')

	simple, _ := Load(objects{}, pdf.Dict{
		"Subtype":        pdf.Name("TrueType"),
		"Encoding":       pdf.Name("WinAnsiEncoding"),
		"FontDescriptor": goRegular(),
	})
	want, ok := simple.GlyphBox([]byte("g"))
	if !ok {
		t.Fatal("no outline in simple font")
	}

	composite, err := Load(objects{}, pdf.Dict{
		"Subtype":  pdf.Name("Type0"),
		"Encoding": pdf.Name("Identity-H"),
		"DescendantFonts": pdf.Array{pdf.Dict{
			"Subtype":        pdf.Name("CIDFontType2"),
			"CIDToGIDMap":    pdf.Name("Identity"),
			"FontDescriptor": goRegular(),
		}},
	})
	if err != nil {
		t.Fatal(err)
	}
	got, ok := composite.GlyphBox([]byte{byte(gid >> 8), byte(gid)})
	if !ok {
		t.Fatal("no outline in composite font")
	}
	if d := cmp.Diff(want, got); d != "" {
		t.Errorf("glyph boxes differ (-simple +composite):\n%s", d)
	}
}

func TestMissingFont(t *testing.T) {
	f, err := Load(objects{}, pdf.NewReference(7, 0))
	if err == nil {
		t.Error("missing font not reported")
	}
	if f == nil || !f.Approximate || !(f.Ascent > f.Descent) {
		t.Errorf("unusable fallback font %v", f)
	}
}

func TestGlyphText(t *testing.T) {
	testCases := map[string]string{
		"A":           "A",
		"zero":        "0",
		"uni00410042": "AB",
		"u1F600":      "\U0001F600",
		"adieresis":   "ä",
		"f_f_i":       "ffi",
		"a.sc":        "a",
		".notdef":     "",
	}
	for name, want := range testCases {
		if got := glyphText(name, ""); got != want {
			t.Errorf("glyphText(%q) = %q, want %q", name, got, want)
		}
	}

	if got := glyphText("a1", "ZapfDingbats"); got != "\u2701" {
		t.Errorf("unexpected dingbat text %q", got)
	}
}
