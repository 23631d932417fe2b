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

import "strings"

// stdFont holds the metrics of one of the standard 14 fonts.
type stdFont struct {
	ascent, descent float64 // text space units
	defaultWidth    float64 // glyph space units

	// ascii holds the widths of the codes 32 to 126 in standard encoding,
	// in glyph space units.  A nil slice means that all glyphs have
	// the default width.
	ascii []float64
}

func (std *stdFont) asciiWidths(scale float64) map[uint32]float64 {
	res := make(map[uint32]float64, 95)
	for code := 32; code <= 126; code++ {
		w := std.defaultWidth
		if std.ascii != nil {
			w = std.ascii[code-32]
		}
		res[uint32(code)] = w / 1000 * scale
	}
	return res
}

var (
	helvetica = []float64{
		278, 278, 355, 556, 556, 889, 667, 222, 333, 333, 389, 584, 278, 333, 278, 278, // 32-47
		556, 556, 556, 556, 556, 556, 556, 556, 556, 556, 278, 278, 584, 584, 584, 556, // 48-63
		1015, 667, 667, 722, 722, 667, 611, 778, 722, 278, 500, 667, 556, 833, 722, 778, // 64-79
		667, 778, 722, 667, 611, 722, 667, 944, 667, 667, 611, 278, 278, 278, 469, 556, // 80-95
		222, 556, 556, 500, 556, 556, 278, 556, 556, 222, 222, 500, 222, 833, 556, 556, // 96-111
		556, 556, 333, 500, 278, 556, 500, 722, 500, 500, 500, 334, 260, 334, 584, // 112-126
	}
	helveticaBold = []float64{
		278, 333, 474, 556, 556, 889, 722, 278, 333, 333, 389, 584, 278, 333, 278, 278,
		556, 556, 556, 556, 556, 556, 556, 556, 556, 556, 333, 333, 584, 584, 584, 611,
		975, 722, 722, 722, 722, 667, 611, 778, 722, 278, 556, 722, 611, 833, 722, 778,
		667, 778, 722, 667, 611, 722, 667, 944, 667, 667, 611, 333, 278, 333, 584, 556,
		278, 556, 611, 556, 611, 556, 333, 611, 611, 278, 278, 556, 278, 889, 611, 611,
		611, 611, 389, 556, 333, 611, 556, 778, 556, 556, 500, 389, 280, 389, 584,
	}
	timesRoman = []float64{
		250, 333, 408, 500, 500, 833, 778, 333, 333, 333, 500, 564, 250, 333, 250, 278,
		500, 500, 500, 500, 500, 500, 500, 500, 500, 500, 278, 278, 564, 564, 564, 444,
		921, 722, 667, 667, 722, 611, 556, 722, 722, 333, 389, 722, 611, 889, 722, 722,
		556, 722, 667, 556, 611, 722, 722, 944, 722, 722, 611, 333, 278, 333, 469, 500,
		333, 444, 500, 444, 500, 444, 333, 500, 500, 278, 278, 500, 278, 778, 500, 500,
		500, 500, 333, 389, 278, 500, 500, 722, 500, 500, 444, 480, 200, 480, 541,
	}
	timesBold = []float64{
		250, 333, 555, 500, 500, 1000, 833, 333, 333, 333, 500, 570, 250, 333, 250, 278,
		500, 500, 500, 500, 500, 500, 500, 500, 500, 500, 333, 333, 570, 570, 570, 500,
		930, 722, 667, 722, 722, 667, 611, 778, 778, 389, 500, 778, 667, 944, 722, 778,
		611, 778, 722, 556, 667, 722, 722, 1000, 722, 722, 667, 333, 278, 333, 581, 500,
		333, 500, 556, 444, 556, 444, 333, 500, 556, 278, 333, 556, 278, 833, 556, 500,
		556, 556, 444, 389, 333, 556, 500, 722, 500, 500, 444, 394, 220, 394, 520,
	}
)

// standardFonts gives the metrics of the standard 14 fonts.
// The widths of the oblique and italic variants are approximated by the
// widths of the upright fonts.
var standardFonts = map[string]*stdFont{
	"Helvetica":             {ascent: 0.718, descent: -0.207, defaultWidth: 556, ascii: helvetica},
	"Helvetica-Oblique":     {ascent: 0.718, descent: -0.207, defaultWidth: 556, ascii: helvetica},
	"Helvetica-Bold":        {ascent: 0.718, descent: -0.207, defaultWidth: 556, ascii: helveticaBold},
	"Helvetica-BoldOblique": {ascent: 0.718, descent: -0.207, defaultWidth: 556, ascii: helveticaBold},
	"Times-Roman":           {ascent: 0.683, descent: -0.217, defaultWidth: 500, ascii: timesRoman},
	"Times-Italic":          {ascent: 0.683, descent: -0.217, defaultWidth: 500, ascii: timesRoman},
	"Times-Bold":            {ascent: 0.683, descent: -0.217, defaultWidth: 500, ascii: timesBold},
	"Times-BoldItalic":      {ascent: 0.683, descent: -0.217, defaultWidth: 500, ascii: timesBold},
	"Courier":               {ascent: 0.629, descent: -0.157, defaultWidth: 600},
	"Courier-Oblique":       {ascent: 0.629, descent: -0.157, defaultWidth: 600},
	"Courier-Bold":          {ascent: 0.629, descent: -0.157, defaultWidth: 600},
	"Courier-BoldOblique":   {ascent: 0.629, descent: -0.157, defaultWidth: 600},
	"Symbol":                {ascent: 1.010, descent: -0.293, defaultWidth: 600},
	"ZapfDingbats":          {ascent: 0.820, descent: -0.143, defaultWidth: 600},
}

// standardName maps common alternative names of the standard fonts to their
// canonical names.
func standardName(name string) string {
	if _, ok := standardFonts[name]; ok {
		return name
	}

	base, style, _ := strings.Cut(name, ",")
	if base == name {
		base, style, _ = strings.Cut(name, "-")
	}
	bold := strings.Contains(style, "Bold")
	italic := strings.Contains(style, "Italic") || strings.Contains(style, "Oblique")

	var family string
	switch base {
	case "Arial", "ArialMT", "Helvetica":
		family = "Helvetica"
	case "TimesNewRoman", "TimesNewRomanPS", "TimesNewRomanPSMT", "Times":
		family = "Times"
	case "CourierNew", "CourierNewPSMT", "Courier":
		family = "Courier"
	default:
		return name
	}

	switch {
	case family == "Times" && bold && italic:
		return "Times-BoldItalic"
	case family == "Times" && bold:
		return "Times-Bold"
	case family == "Times" && italic:
		return "Times-Italic"
	case family == "Times":
		return "Times-Roman"
	case bold && italic:
		return family + "-BoldOblique"
	case bold:
		return family + "-Bold"
	case italic:
		return family + "-Oblique"
	default:
		return family
	}
}
