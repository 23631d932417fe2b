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

package pdf

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

// AsTextString interprets x as a PDF "text string" and returns the
// corresponding utf-8 encoded string.
func (x String) AsTextString() string {
	if bytes.HasPrefix(x, []byte{0xFE, 0xFF}) || bytes.HasPrefix(x, []byte{0xFF, 0xFE}) {
		dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
		res, err := dec.Bytes(x)
		if err == nil {
			return string(res)
		}
	}
	if bytes.HasPrefix(x, []byte{0xEF, 0xBB, 0xBF}) && utf8.Valid(x[3:]) {
		return string(x[3:])
	}
	return pdfDocDecode(x)
}

// TextString encodes s as a PDF text string.  PDFDocEncoding is used where
// possible, and UTF-16 otherwise.
func TextString(s string) String {
	if res, ok := pdfDocEncode(s); ok {
		return res
	}
	enc := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder()
	res, err := enc.String(s)
	if err != nil {
		return String(s)
	}
	return String(res)
}

func pdfDocDecode(x []byte) string {
	var b strings.Builder
	for _, c := range x {
		if r, ok := pdfDocSpecial[c]; ok {
			b.WriteRune(r)
		} else {
			b.WriteRune(rune(c))
		}
	}
	return b.String()
}

func pdfDocEncode(s string) (String, bool) {
	res := make([]byte, 0, len(s))
	for _, r := range s {
		switch {
		case r < 0x18 || r >= 0x20 && r < 0x7F || r > 0xA0 && r < 0x100 && r != 0xAD:
			res = append(res, byte(r))
		default:
			c, ok := pdfDocReverse[r]
			if !ok {
				return nil, false
			}
			res = append(res, c)
		}
	}
	return String(res), true
}

// pdfDocSpecial lists the PDFDocEncoding codes which differ from Latin-1.
var pdfDocSpecial = map[byte]rune{
	0x18: '˘', 0x19: 'ˇ', 0x1A: 'ˆ', 0x1B: '˙', 0x1C: '˝', 0x1D: '˛', 0x1E: '˚', 0x1F: '˜',
	0x7F: utf8.RuneError,
	0x80: '•', 0x81: '†', 0x82: '‡', 0x83: '…', 0x84: '—', 0x85: '–', 0x86: 'ƒ', 0x87: '⁄',
	0x88: '‹', 0x89: '›', 0x8A: '−', 0x8B: '‰', 0x8C: '„', 0x8D: '“', 0x8E: '”', 0x8F: '‘',
	0x90: '’', 0x91: '‚', 0x92: '™', 0x93: 'ﬁ', 0x94: 'ﬂ', 0x95: 'Ł', 0x96: 'Œ', 0x97: 'Š',
	0x98: 'Ÿ', 0x99: 'Ž', 0x9A: 'ı', 0x9B: 'ł', 0x9C: 'œ', 0x9D: 'š', 0x9E: 'ž', 0x9F: utf8.RuneError,
	0xA0: '€', 0xAD: utf8.RuneError,
}

var pdfDocReverse = func() map[rune]byte {
	res := make(map[rune]byte)
	for c, r := range pdfDocSpecial {
		if r != utf8.RuneError {
			res[r] = c
		}
	}
	return res
}()
