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
	"seehuhn.de/go/redact/pdf"
)

// maxFieldDepth limits the nesting of the form field tree.
const maxFieldDepth = 32

// redactAnnotations removes the annotations of a page which intersect a
// redaction rectangle, together with their pop-up windows.  Removed widget
// annotations are also removed from the interactive form of the document.
// The page and catalog dictionaries are modified in place.
func (red *redactor) redactAnnotations(page, catalog pdf.Dict) error {
	annots, err := pdf.GetArray(red.r, page["Annots"])
	if err != nil {
		return err
	}
	if annots == nil {
		return nil
	}

	remove := make([]bool, len(annots))
	removedRefs := make(map[pdf.Reference]bool)
	dicts := make([]pdf.Dict, len(annots))
	for i, obj := range annots {
		dict, err := pdf.GetDict(red.r, obj)
		if err != nil {
			red.log.WithError(err).Warn("damaged annotation removed")
		}
		box, err2 := pdf.GetRectangle(red.r, dict["Rect"])
		if err != nil || err2 != nil || red.hitIndex(box) >= 0 {
			remove[i] = true
			if ref, ok := obj.(pdf.Reference); ok {
				removedRefs[ref] = true
			}
		}
		dicts[i] = dict
	}

	// pop-up windows of removed annotations show their text
	for i, dict := range dicts {
		if remove[i] || dict == nil {
			continue
		}
		parent, ok := dict["Parent"].(pdf.Reference)
		subtype, _ := pdf.GetName(red.r, dict["Subtype"])
		if subtype == "Popup" && ok && removedRefs[parent] {
			remove[i] = true
			if ref, ok := annots[i].(pdf.Reference); ok {
				removedRefs[ref] = true
			}
		}
	}

	widgets := make(map[pdf.Reference]bool)
	var kept pdf.Array
	for i, obj := range annots {
		if !remove[i] {
			kept = append(kept, obj)
			continue
		}
		red.stats.Annotations++
		subtype, _ := pdf.GetName(red.r, dicts[i]["Subtype"])
		if ref, ok := obj.(pdf.Reference); ok && subtype == "Widget" {
			widgets[ref] = true
		}
	}
	if len(kept) == len(annots) {
		return nil
	}

	if len(kept) > 0 {
		page["Annots"] = kept
	} else {
		delete(page, "Annots")
	}

	if len(widgets) > 0 {
		return red.pruneFields(catalog, widgets)
	}
	return nil
}

// pruneFields removes the given widget annotations from the interactive
// form of the document.  Fields which are left without widgets are removed.
func (red *redactor) pruneFields(catalog pdf.Dict, widgets map[pdf.Reference]bool) error {
	acroForm, err := pdf.GetDict(red.r, catalog["AcroForm"])
	if err != nil || acroForm == nil {
		return err
	}
	fields, err := pdf.GetArray(red.r, acroForm["Fields"])
	if err != nil {
		return err
	}

	newFields, changed := red.pruneFieldArray(fields, widgets, 0)
	if !changed {
		return nil
	}
	acroForm = acroForm.Clone()
	acroForm["Fields"] = newFields
	if ref, ok := catalog["AcroForm"].(pdf.Reference); ok {
		red.ov.Set(ref, acroForm)
	} else {
		catalog["AcroForm"] = acroForm
	}
	return nil
}

func (red *redactor) pruneFieldArray(fields pdf.Array, widgets map[pdf.Reference]bool, depth int) (pdf.Array, bool) {
	if depth > maxFieldDepth {
		return fields, false
	}

	res := pdf.Array{}
	changed := false
	for _, obj := range fields {
		ref, isRef := obj.(pdf.Reference)
		if isRef && widgets[ref] {
			changed = true
			continue
		}

		dict, err := pdf.GetDict(red.r, obj)
		if err != nil || dict == nil {
			res = append(res, obj)
			continue
		}
		kids, _ := pdf.GetArray(red.r, dict["Kids"])
		if kids != nil {
			newKids, kidsChanged := red.pruneFieldArray(kids, widgets, depth+1)
			if kidsChanged {
				changed = true
				if len(newKids) == 0 {
					continue
				}
				dict = dict.Clone()
				dict["Kids"] = newKids
				if isRef {
					red.ov.Set(ref, dict)
				} else {
					obj = dict
				}
			}
		}
		res = append(res, obj)
	}
	return res, changed
}
