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

	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/sfnt"
	sfntcmap "seehuhn.de/go/sfnt/cmap"
	"seehuhn.de/go/sfnt/glyph"

	"seehuhn.de/go/redact/pdf"
)

// outlines gives access to the glyph bounding boxes of an embedded
// TrueType or OpenType font program.
type outlines struct {
	font *sfnt.Font
	q    float64 // font design units to text space units

	cmap     sfntcmap.Subtable // for simple fonts, nil if not available
	cidToGID []glyph.ID        // for composite fonts, nil for the identity
}

// readOutlines loads the embedded font program referenced by the font
// descriptor fd.  Composite fonts are only supported for CIDFontType2
// fonts, where cidToGID is the /CIDToGIDMap entry of the CIDFont.
//
// Damaged or unsupported font programs are ignored.  In this case the
// glyph boxes are derived from the font metrics alone.
func (f *Font) readOutlines(r pdf.Getter, fd pdf.Dict, cidToGID pdf.Object) {
	if fd == nil {
		return
	}
	stm, _ := pdf.GetStream(r, fd["FontFile2"])
	if stm == nil && !f.composite {
		stm, _ = pdf.GetStream(r, fd["FontFile3"])
		if stm != nil {
			if tp, _ := pdf.GetName(r, stm.Dict["Subtype"]); tp != "OpenType" {
				return
			}
		}
	}
	if stm == nil {
		return
	}
	data, err := pdf.ReadAll(r, stm)
	if err != nil {
		return
	}
	font, err := sfnt.Read(bytes.NewReader(data))
	if err != nil || font.UnitsPerEm == 0 {
		return
	}

	o := &outlines{
		font: font,
		q:    1 / float64(font.UnitsPerEm),
	}
	if !f.composite {
		if font.CMapTable == nil {
			return
		}
		sub, err := font.CMapTable.GetBest()
		if err != nil {
			return
		}
		o.cmap = sub
	} else if m, _ := pdf.GetStream(r, cidToGID); m != nil {
		data, err := pdf.ReadAll(r, m)
		if err != nil {
			return
		}
		o.cidToGID = make([]glyph.ID, len(data)/2)
		for i := range o.cidToGID {
			o.cidToGID[i] = glyph.ID(data[2*i])<<8 | glyph.ID(data[2*i+1])
		}
	}
	f.outlines = o
}

// GlyphBox returns the bounding box of the glyph outline for a character
// code, in text space units for a font size of 1.  The second return
// value is false if the font program is not embedded, cannot be read, or
// has no outline for the code.
func (f *Font) GlyphBox(code []byte) (rect.Rect, bool) {
	o := f.outlines
	if o == nil {
		return rect.Rect{}, false
	}
	gid, ok := o.glyphID(f, code)
	if !ok {
		return rect.Rect{}, false
	}
	b := o.font.GlyphBBox(gid)
	if b.IsZero() {
		return rect.Rect{}, false
	}
	return rect.Rect{
		LLx: float64(b.LLx) * o.q,
		LLy: float64(b.LLy) * o.q,
		URx: float64(b.URx) * o.q,
		URy: float64(b.URy) * o.q,
	}, true
}

func (o *outlines) glyphID(f *Font, code []byte) (glyph.ID, bool) {
	var gid glyph.ID
	if f.composite {
		cid := f.key(code)
		switch {
		case o.cidToGID != nil && int(cid) < len(o.cidToGID):
			gid = o.cidToGID[cid]
		case o.cidToGID == nil && cid <= 0xFFFF:
			gid = glyph.ID(cid)
		}
	} else if len(code) == 1 {
		// The glyph is found via the text of the code, or via the code
		// itself for symbolic fonts.
		var candidates []rune
		if text := []rune(f.Text(code)); len(text) == 1 {
			candidates = append(candidates, text[0])
		}
		candidates = append(candidates, rune(code[0]), 0xF000+rune(code[0]))
		for _, r := range candidates {
			if gid = o.cmap.Lookup(r); gid != 0 {
				break
			}
		}
	}
	if gid == 0 || int(gid) >= o.font.NumGlyphs() {
		return 0, false
	}
	return gid, true
}
