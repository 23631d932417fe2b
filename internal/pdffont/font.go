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

// Package pdffont extracts the font information needed to locate glyphs
// on a page and to map character codes to text.
//
// Glyph boxes are normally based on the advance widths given in the font
// dictionary, together with the ascent and descent of the font.  For
// embedded TrueType and OpenType fonts, the bounding boxes of the glyph
// outlines are available in addition.
package pdffont

import (
	"bytes"
	"errors"
	"strings"

	"seehuhn.de/go/redact/internal/cmap"
	"seehuhn.de/go/redact/pdf"
)

// Font holds the metrics and the encoding of a PDF font.
type Font struct {
	// Name is the PostScript name of the font, without a subset tag.
	Name string

	// Ascent and Descent give the vertical extent of the glyphs, in text
	// space units for a font size of 1.  Descent is normally negative.
	Ascent, Descent float64

	// Approximate is set if the metrics had to be guessed.
	Approximate bool

	// Vertical is set for fonts with vertical writing mode.  Glyphs of
	// these fonts are still placed as if they were written horizontally.
	Vertical bool

	composite bool
	codes     cmap.CodeSpace
	cids      *cmap.CMap // nil for identity mappings

	widths       map[uint32]float64
	defaultWidth float64

	toUnicode *cmap.ToUnicode
	encoding  *[256]string // text for each code, only for simple fonts

	outlines *outlines // nil if no font program is available
}

// Load reads the font dictionary obj.
//
// If the font data is damaged, a usable Font is returned together with the
// error.  The metrics of such a font are marked as approximate.
func Load(r pdf.Getter, obj pdf.Object) (*Font, error) {
	dict, err := pdf.GetDict(r, obj)
	if err != nil {
		return Fallback(), err
	}
	if dict == nil {
		return Fallback(), errMissingFont
	}

	subtype, _ := pdf.GetName(r, dict["Subtype"])
	baseFont, _ := pdf.GetName(r, dict["BaseFont"])

	f := &Font{Name: stripSubset(string(baseFont))}
	if subtype == "Type0" {
		err = f.loadComposite(r, dict)
	} else {
		err = f.loadSimple(r, dict, subtype)
	}
	if err != nil {
		f.Approximate = true
	}

	if stm, _ := pdf.GetStream(r, dict["ToUnicode"]); stm != nil {
		data, err := pdf.ReadAll(r, stm)
		if err == nil {
			f.toUnicode, _ = cmap.ReadToUnicode(bytes.NewReader(data))
		}
	}

	if !(f.Ascent > f.Descent) {
		f.Ascent, f.Descent = defaultAscent, defaultDescent
		f.Approximate = true
	}
	return f, err
}

// Fallback returns a font with Helvetica metrics.  This is used when the
// font of a text object cannot be found.
func Fallback() *Font {
	std := standardFonts["Helvetica"]
	return &Font{
		Name:         "Helvetica",
		Ascent:       std.ascent,
		Descent:      std.descent,
		Approximate:  true,
		codes:        cmap.Simple,
		widths:       std.asciiWidths(1),
		defaultWidth: std.defaultWidth / 1000,
		encoding:     &standardEncoding,
	}
}

func (f *Font) loadSimple(r pdf.Getter, dict pdf.Dict, subtype pdf.Name) error {
	f.codes = cmap.Simple
	f.widths = make(map[uint32]float64)

	// glyph space to text space
	scale := 0.001
	vScale := 0.001
	if subtype == "Type3" {
		m, err := pdf.GetMatrix(r, dict["FontMatrix"])
		if err != nil {
			return err
		}
		scale, vScale = m[0], m[3]
	}

	var errs []error

	enc, err := f.loadEncoding(r, dict["Encoding"], subtype)
	f.encoding = enc
	if err != nil {
		errs = append(errs, err)
	}

	fd, err := pdf.GetDict(r, dict["FontDescriptor"])
	if err != nil {
		errs = append(errs, err)
	}
	missing, _ := pdf.GetNumber(r, fd["MissingWidth"])
	f.defaultWidth = missing * scale

	std, isStandard := standardFonts[standardName(f.Name)]

	widths, err := pdf.GetArray(r, dict["Widths"])
	if err != nil {
		errs = append(errs, err)
	}
	if widths != nil {
		firstChar, err := pdf.GetInteger(r, dict["FirstChar"])
		if err != nil {
			errs = append(errs, err)
		}
		for i, w := range widths {
			code := int64(firstChar) + int64(i)
			if code < 0 || code > 255 {
				continue
			}
			x, err := pdf.GetNumber(r, w)
			if err != nil {
				continue
			}
			f.widths[uint32(code)] = x * scale
		}
	} else if isStandard {
		f.widths = std.asciiWidths(1)
		f.defaultWidth = std.defaultWidth / 1000
	} else {
		f.Approximate = true
		f.defaultWidth = 0.5
	}

	if subtype == "Type3" {
		bbox, err := pdf.GetRectangle(r, dict["FontBBox"])
		if err != nil {
			errs = append(errs, err)
		}
		f.Ascent = bbox.URy * vScale
		f.Descent = bbox.LLy * vScale
		if vScale < 0 {
			f.Ascent, f.Descent = f.Descent, f.Ascent
		}
	} else {
		f.readDescriptor(r, fd)
		f.readOutlines(r, fd, nil)
	}
	if !(f.Ascent > f.Descent) && isStandard {
		f.Ascent, f.Descent = std.ascent, std.descent
	}

	return errors.Join(errs...)
}

func (f *Font) loadComposite(r pdf.Getter, dict pdf.Dict) error {
	f.composite = true
	f.widths = make(map[uint32]float64)
	f.defaultWidth = 1
	f.codes = cmap.Identity

	var errs []error

	switch enc := dict["Encoding"].(type) {
	case pdf.Name:
		if enc == "Identity-V" {
			f.Vertical = true
		} else if enc != "Identity-H" {
			// Predefined CMaps are not available.  Most of these use
			// two-byte codes.
			f.Approximate = true
			if strings.HasSuffix(string(enc), "-V") {
				f.Vertical = true
			}
		}
	case pdf.Reference:
		stm, err := pdf.GetStream(r, enc)
		if err != nil {
			errs = append(errs, err)
			break
		}
		if stm == nil {
			errs = append(errs, errors.New("missing CMap"))
			break
		}
		data, err := pdf.ReadAll(r, stm)
		if err != nil {
			errs = append(errs, err)
			break
		}
		cm, err := cmap.Read(bytes.NewReader(data))
		if err != nil {
			errs = append(errs, err)
			break
		}
		f.cids = cm
		if len(cm.CodeSpace) > 0 {
			f.codes = cm.CodeSpace
		}
		f.Vertical = cm.Vertical
	default:
		f.Approximate = true
	}

	descendants, err := pdf.GetArray(r, dict["DescendantFonts"])
	if err != nil {
		errs = append(errs, err)
	}
	if len(descendants) == 0 {
		errs = append(errs, errors.New("missing descendant font"))
		return errors.Join(errs...)
	}
	cidFont, err := pdf.GetDict(r, descendants[0])
	if err != nil || cidFont == nil {
		errs = append(errs, errors.New("invalid descendant font"))
		return errors.Join(errs...)
	}

	if dw, err := pdf.GetNumber(r, cidFont["DW"]); err == nil && cidFont["DW"] != nil {
		f.defaultWidth = dw / 1000
	}
	err = f.readCIDWidths(r, cidFont["W"])
	if err != nil {
		errs = append(errs, err)
	}

	fd, err := pdf.GetDict(r, cidFont["FontDescriptor"])
	if err != nil {
		errs = append(errs, err)
	}
	f.readDescriptor(r, fd)
	if tp, _ := pdf.GetName(r, cidFont["Subtype"]); tp == "CIDFontType2" {
		f.readOutlines(r, fd, cidFont["CIDToGIDMap"])
	}

	return errors.Join(errs...)
}

// readCIDWidths reads the /W array of a CIDFont.  The array has elements of
// the forms "c [w1 w2 ...]" and "cFirst cLast w".
func (f *Font) readCIDWidths(r pdf.Getter, obj pdf.Object) error {
	w, err := pdf.GetArray(r, obj)
	if err != nil || w == nil {
		return err
	}
	for len(w) >= 2 {
		first, err := pdf.GetInteger(r, w[0])
		if err != nil {
			return err
		}
		elem, err := pdf.Resolve(r, w[1])
		if err != nil {
			return err
		}
		if a, ok := elem.(pdf.Array); ok {
			for i, x := range a {
				width, err := pdf.GetNumber(r, x)
				if err != nil {
					return err
				}
				f.widths[uint32(int64(first)+int64(i))] = width / 1000
			}
			w = w[2:]
			continue
		}

		if len(w) < 3 {
			return errors.New("malformed /W array")
		}
		last, err := pdf.GetInteger(r, w[1])
		if err != nil {
			return err
		}
		width, err := pdf.GetNumber(r, w[2])
		if err != nil {
			return err
		}
		if last-first > 0xFFFF || last < first {
			return errors.New("invalid CID range in /W array")
		}
		for cid := first; cid <= last; cid++ {
			f.widths[uint32(cid)] = width / 1000
		}
		w = w[3:]
	}
	return nil
}

func (f *Font) readDescriptor(r pdf.Getter, fd pdf.Dict) {
	if fd == nil {
		return
	}
	ascent, _ := pdf.GetNumber(r, fd["Ascent"])
	descent, _ := pdf.GetNumber(r, fd["Descent"])
	if descent > 0 {
		// some writers give the descent as a positive number
		descent = -descent
	}
	if ascent > descent {
		f.Ascent, f.Descent = ascent/1000, descent/1000
		return
	}
	bbox, err := pdf.GetRectangle(r, fd["FontBBox"])
	if err == nil && bbox.URy > bbox.LLy {
		f.Ascent, f.Descent = bbox.URy/1000, bbox.LLy/1000
	}
}

// Split breaks a string into character codes.
func (f *Font) Split(s pdf.String) [][]byte {
	return f.codes.Split(s)
}

// IsComposite reports whether the font is a Type 0 font.
func (f *Font) IsComposite() bool {
	return f.composite
}

// Width returns the advance width of a character code, in text space units
// for a font size of 1.
func (f *Font) Width(code []byte) float64 {
	key := f.key(code)
	if w, ok := f.widths[key]; ok {
		return w
	}
	return f.defaultWidth
}

// IsSpace reports whether word spacing applies to code.  This is the case
// for the single-byte code 32, in both simple and composite fonts.
func (f *Font) IsSpace(code []byte) bool {
	return len(code) == 1 && code[0] == ' '
}

// Text returns the text represented by a character code.
// The empty string is returned if the text cannot be determined.
func (f *Font) Text(code []byte) string {
	if f.toUnicode != nil {
		if s, ok := f.toUnicode.Lookup(code); ok {
			return s
		}
	}
	if f.encoding != nil && len(code) == 1 {
		return f.encoding[code[0]]
	}
	return ""
}

// key returns the index into the width table for a code.
func (f *Font) key(code []byte) uint32 {
	if !f.composite {
		if len(code) == 0 {
			return 0
		}
		return uint32(code[0])
	}
	if f.cids != nil {
		return f.cids.CID(code)
	}
	var cid uint32
	for _, c := range code {
		cid = cid<<8 | uint32(c)
	}
	return cid
}

// stripSubset removes the six letter subset tag from a font name.
func stripSubset(name string) string {
	if len(name) > 7 && name[6] == '+' {
		for i := range 6 {
			if name[i] < 'A' || name[i] > 'Z' {
				return name
			}
		}
		return name[7:]
	}
	return name
}

const (
	defaultAscent  = 0.9
	defaultDescent = -0.25
)

var errMissingFont = errors.New("font not found")
