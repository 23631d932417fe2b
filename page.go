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

package redact

import (
	"bytes"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/rect"

	"seehuhn.de/go/redact/content"
	"seehuhn.de/go/redact/pdf"
)

// redactPage returns a new page dictionary, in which the content
// intersecting the redaction rectangles is removed and the rectangles are
// filled with black.  The new content stream is stored in the overlay.
func (red *redactor) redactPage(page *pdf.Page, mediaBox rect.Rect) (pdf.Dict, error) {
	data, err := page.Contents(red.r)
	if err != nil {
		return nil, err
	}
	ops, err := content.Parse(data)
	if err != nil {
		return nil, err
	}
	res, err := newResources(red.r, page.Attr("Resources"))
	if err != nil {
		return nil, err
	}

	state := gstate{
		ctm:       matrix.Identity,
		clip:      mediaBox,
		lineWidth: 1,
		hScale:    1,
	}
	f := red.newFilter(res, state, 0)
	err = f.run(ops)
	if err != nil {
		return nil, err
	}
	err = res.prune(f.changed)
	if err != nil {
		return nil, err
	}

	out := make([]content.Operator, 0, len(f.out)+len(red.rects)+4)
	out = append(out, content.Operator{Name: "q"})
	out = append(out, f.out...)
	out = append(out,
		content.Operator{Name: "Q"},
		content.Operator{Name: "g", Args: []pdf.Object{pdf.Integer(0)}})
	for _, r := range red.rects {
		out = append(out,
			content.Operator{Name: "re", Args: []pdf.Object{
				pdf.Number(r.LLx), pdf.Number(r.LLy), pdf.Number(r.Dx()), pdf.Number(r.Dy()),
			}},
			content.Operator{Name: "f"})
	}

	encoded, err := pdf.Encode(content.Format(out))
	if err != nil {
		return nil, err
	}
	contents := red.ov.Add(&pdf.Stream{
		Dict: pdf.Dict{"Filter": pdf.Name("FlateDecode")},
		R:    bytes.NewReader(encoded),
	})

	dict := page.Dict.Clone()
	dict["Contents"] = contents
	if modified := res.modified(); modified != nil {
		dict["Resources"] = modified
	}
	// Thumbnails and private application data can show the removed
	// content.
	delete(dict, "Thumb")
	delete(dict, "PieceInfo")
	return dict, nil
}
