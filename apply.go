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
	"errors"
	"io"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"seehuhn.de/go/geom/rect"

	"seehuhn.de/go/redact/pdf"
)

// Apply writes a redacted copy of the document to outputPath.
//
// On the first page, all text glyphs, images, shadings and vector paths
// which intersect one of the rectangles are removed, and the rectangles
// are filled with black.  Annotations which intersect a rectangle are
// removed.  The rectangles are given in page coordinates (see the package
// documentation).  Other pages are copied unchanged.  The order of the
// rectangles does not affect the result.
//
// The input file and doc are not modified.  An existing file at outputPath
// is replaced only if the redacted file has been written completely.
//
// Errors are of type [*IOError] or [*EncodingError].  If outputPath refers
// to the input file, an [*IOError] wrapping [ErrSameFile] is returned.
func Apply(doc *Document, rects []rect.Rect, outputPath string, opt *Options) error {
	if doc.r == nil {
		return &EncodingError{Index: -1, Err: errClosed}
	}
	if sameFile(doc.path, outputPath) {
		return &IOError{Path: outputPath, Err: ErrSameFile}
	}
	log := opt.logger()

	toUser := doc.PageToUser()
	userRects := make([]rect.Rect, len(rects))
	for i, r := range rects {
		userRects[i] = transformRect(r, toUser)
	}

	lineArt := LineArtRemoveTouched
	if opt != nil {
		lineArt = opt.LineArt
	}
	ov := pdf.NewOverlay(doc.r, doc.r.NumObjects())
	red := newRedactor(ov, userRects, lineArt, log)

	pageDict, err := red.redactPage(doc.page, doc.mediaBox)
	if err != nil {
		var encErr *EncodingError
		if errors.As(err, &encErr) {
			if encErr.Index >= 0 && encErr.Index < len(rects) {
				encErr.Rect = rects[encErr.Index]
			}
			return encErr
		}
		return &EncodingError{Index: -1, Err: err}
	}

	trailer := doc.r.Trailer().Clone()
	catalog := doc.catalog.Clone()
	err = red.redactAnnotations(pageDict, catalog)
	if err != nil {
		return &EncodingError{Index: -1, Err: err}
	}
	red.updateMetadata(trailer, catalog, opt.now())

	ov.Set(doc.page.Ref, pageDict)
	if ref, ok := trailer["Root"].(pdf.Reference); ok {
		ov.Set(ref, catalog)
	} else {
		trailer["Root"] = ov.Add(catalog)
	}

	err = writeFile(outputPath, func(w io.Writer) error {
		return writeDocument(w, ov, trailer, doc.r.Version)
	})
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"output":      outputPath,
		"rects":       len(rects),
		"glyphs":      red.stats.Glyphs,
		"paths":       red.stats.Paths,
		"images":      red.stats.Images,
		"shadings":    red.stats.Shadings,
		"forms":       red.stats.Forms,
		"annotations": red.stats.Annotations,
		"clipped":     red.stats.Clipped,
	}).Info("page redacted")
	return nil
}

// writeDocument writes all objects reachable from the trailer to w.
func writeDocument(w io.Writer, r pdf.Getter, trailer pdf.Dict, ver pdf.Version) error {
	out, err := pdf.NewWriter(w, ver)
	if err != nil {
		return err
	}
	c := pdf.NewCopier(out, r)

	newTrailer := pdf.Dict{}
	for _, key := range []pdf.Name{"Root", "Info"} {
		if trailer[key] == nil {
			continue
		}
		obj, err := c.Copy(trailer[key])
		if err != nil {
			return err
		}
		newTrailer[key] = obj
	}
	newTrailer["ID"] = fileID(r, trailer["ID"])

	return out.Close(newTrailer)
}

// fileID returns the file identifier for the redacted file.  The first
// element, which identifies the original document, is kept.  The second
// element is new, since the file contents have changed.
func fileID(r pdf.Getter, obj pdf.Object) pdf.Array {
	u := uuid.New()
	changed := pdf.String(u[:])

	id, _ := pdf.GetArray(r, obj)
	if len(id) == 2 {
		if orig, err := pdf.GetString(r, id[0]); err == nil && len(orig) > 0 {
			return pdf.Array{orig, changed}
		}
	}
	return pdf.Array{changed, changed}
}
