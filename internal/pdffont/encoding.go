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
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"seehuhn.de/go/postscript/type1/names"

	"seehuhn.de/go/redact/pdf"
)

// loadEncoding determines the text of each code of a simple font.
func (f *Font) loadEncoding(r pdf.Getter, obj pdf.Object, subtype pdf.Name) (*[256]string, error) {
	base := &standardEncoding
	switch {
	case subtype == "TrueType":
		base = &winAnsiEncoding
	case f.Name == "Symbol" || f.Name == "ZapfDingbats":
		base = &emptyEncoding
	}

	obj, err := pdf.Resolve(r, obj)
	if err != nil {
		return base, err
	}

	var differences pdf.Array
	switch enc := obj.(type) {
	case pdf.Name:
		base = namedEncoding(enc, base)
	case pdf.Dict:
		baseName, _ := pdf.GetName(r, enc["BaseEncoding"])
		base = namedEncoding(baseName, base)
		differences, err = pdf.GetArray(r, enc["Differences"])
		if err != nil {
			return base, err
		}
	}
	if differences == nil {
		return base, nil
	}

	res := *base
	code := -1
	for _, elem := range differences {
		elem, err := pdf.Resolve(r, elem)
		if err != nil {
			return &res, err
		}
		switch elem := elem.(type) {
		case pdf.Integer:
			code = int(elem)
		case pdf.Name:
			if code >= 0 && code < 256 {
				res[code] = glyphText(string(elem), f.Name)
			}
			code++
		}
	}
	return &res, nil
}

func namedEncoding(name pdf.Name, def *[256]string) *[256]string {
	switch name {
	case "WinAnsiEncoding":
		return &winAnsiEncoding
	case "MacRomanEncoding":
		return &macRomanEncoding
	case "StandardEncoding":
		return &standardEncoding
	default:
		return def
	}
}

// glyphText returns the text represented by a glyph name, using the
// Adobe Glyph List conventions.  The ZapfDingbats font uses its own list
// of glyph names.
func glyphText(name, fontName string) string {
	if name == "" || name == ".notdef" {
		return ""
	}
	return names.ToUnicode(name, fontName)
}

var (
	emptyEncoding    [256]string
	winAnsiEncoding  = charmapEncoding(charmap.Windows1252)
	macRomanEncoding = charmapEncoding(charmap.Macintosh)
	standardEncoding = func() [256]string {
		var res [256]string
		for c := 32; c <= 126; c++ {
			res[c] = string(rune(c))
		}
		res[0x27] = "’"
		res[0x60] = "‘"
		for c, s := range standardUpper {
			res[c] = s
		}
		return res
	}()
)

// standardUpper lists the most common codes above 127 in StandardEncoding.
var standardUpper = map[byte]string{
	0xA1: "¡", 0xA2: "¢", 0xA3: "£", 0xA5: "¥",
	0xA7: "§", 0xA9: "'", 0xAA: "“", 0xAB: "«",
	0xAE: "fi", 0xAF: "fl", 0xB1: "–", 0xB2: "†",
	0xB3: "‡", 0xB7: "•", 0xBA: "”", 0xBB: "»",
	0xBC: "…", 0xD0: "—", 0xE1: "Æ", 0xE8: "Ł",
	0xE9: "Ø", 0xEA: "Œ", 0xF1: "æ", 0xF5: "ı",
	0xF8: "ł", 0xF9: "ø", 0xFA: "œ", 0xFB: "ß",
}

func charmapEncoding(cm *charmap.Charmap) [256]string {
	var res [256]string
	for c := 32; c < 256; c++ {
		if c == 127 {
			continue
		}
		r := cm.DecodeByte(byte(c))
		if r != utf8.RuneError {
			res[c] = string(r)
		}
	}
	return res
}
