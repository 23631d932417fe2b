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
	"time"

	"seehuhn.de/go/xmp"

	"seehuhn.de/go/redact/pdf"
)

// xmpDates holds the XMP properties updated when a file is redacted.
type xmpDates struct {
	_ xmp.Namespace `xmp:"http://ns.adobe.com/xap/1.0/"`
	_ xmp.Prefix    `xmp:"xmp"`

	ModifyDate   xmp.Date
	MetadataDate xmp.Date
}

// updateMetadata sets the modification date in the document information
// dictionary and in the XMP metadata of the document.  The trailer and
// catalog dictionaries are modified in place.
//
// Damaged metadata is left unchanged.
func (red *redactor) updateMetadata(trailer, catalog pdf.Dict, now time.Time) {
	if infoObj := trailer["Info"]; infoObj != nil {
		info, err := pdf.GetDict(red.r, infoObj)
		if err != nil || info == nil {
			red.log.WithError(err).Warn("cannot update the document information dictionary")
		} else {
			info = info.Clone()
			info["ModDate"] = pdf.Date(now)
			if ref, ok := infoObj.(pdf.Reference); ok {
				red.ov.Set(ref, info)
			} else {
				trailer["Info"] = info
			}
		}
	}

	metaObj := catalog["Metadata"]
	stm, err := pdf.GetStream(red.r, metaObj)
	if err != nil || stm == nil {
		if err != nil {
			red.log.WithError(err).Warn("cannot read XMP metadata")
		}
		return
	}
	data, err := pdf.ReadAll(red.r, stm)
	if err != nil {
		red.log.WithError(err).Warn("cannot read XMP metadata")
		return
	}
	packet, err := xmp.Read(bytes.NewReader(data))
	if err != nil {
		red.log.WithError(err).Warn("cannot parse XMP metadata")
		return
	}

	date := xmp.NewDate(now)
	err = packet.Set(&xmpDates{ModifyDate: date, MetadataDate: date})
	if err != nil {
		red.log.WithError(err).Warn("cannot update XMP metadata")
		return
	}

	buf := &bytes.Buffer{}
	err = packet.Write(buf, &xmp.PacketOptions{Pretty: true})
	if err != nil {
		red.log.WithError(err).Warn("cannot encode XMP metadata")
		return
	}

	// XMP metadata is stored uncompressed, so that it can be found by
	// tools which don't understand PDF.
	newStm := &pdf.Stream{
		Dict: pdf.Dict{
			"Type":    pdf.Name("Metadata"),
			"Subtype": pdf.Name("XML"),
		},
		R: bytes.NewReader(buf.Bytes()),
	}
	if ref, ok := metaObj.(pdf.Reference); ok {
		red.ov.Set(ref, newStm)
	} else {
		catalog["Metadata"] = red.ov.Add(newStm)
	}
}
