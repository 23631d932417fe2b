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
	"strconv"

	"seehuhn.de/go/redact/pdf"
)

// resources gives access to a resource dictionary, and allows to add and
// remove resources without modifying the original dictionary.
//
// The filter records which named resources are still used by the filtered
// content, and which were used only by removed content.  Unused resources
// are removed by [resources.prune], so that the removed content does not
// remain in the file.
type resources struct {
	r    pdf.Getter
	orig pdf.Dict

	// dict is a modified copy of orig, or nil if nothing was changed.
	dict   pdf.Dict
	copied map[pdf.Name]bool

	used    map[pdf.Name]map[pdf.Name]int
	dropped map[pdf.Name]map[pdf.Name]bool

	// opaque is set if content which was not inspected uses these
	// resources.
	opaque bool
}

func newResources(r pdf.Getter, obj pdf.Object) (*resources, error) {
	dict, err := pdf.GetDict(r, obj)
	if err != nil {
		return nil, err
	}
	return &resources{r: r, orig: dict}, nil
}

// current returns the resource dictionary including all changes.
func (res *resources) current() pdf.Dict {
	if res.dict != nil {
		return res.dict
	}
	return res.orig
}

// get looks up a named resource in the given category.
func (res *resources) get(category, name pdf.Name) (pdf.Object, error) {
	catDict, err := pdf.GetDict(res.r, res.current()[category])
	if err != nil {
		return nil, err
	}
	return catDict[name], nil
}

// writable returns a copy of the given category which can be modified.
func (res *resources) writable(category pdf.Name) (pdf.Dict, error) {
	if res.dict == nil {
		res.dict = res.orig.Clone()
		if res.dict == nil {
			res.dict = pdf.Dict{}
		}
		res.copied = make(map[pdf.Name]bool)
	}

	if !res.copied[category] {
		catDict, err := pdf.GetDict(res.r, res.dict[category])
		if err != nil {
			return nil, err
		}
		catDict = catDict.Clone()
		if catDict == nil {
			catDict = pdf.Dict{}
		}
		res.dict[category] = catDict
		res.copied[category] = true
	}
	return res.dict[category].(pdf.Dict), nil
}

// add stores obj as a new resource and returns the resource name.
// The object is added to the file by the overlay ov.
func (res *resources) add(ov *pdf.Overlay, category pdf.Name, prefix string, obj pdf.Object) (pdf.Name, error) {
	catDict, err := res.writable(category)
	if err != nil {
		return "", err
	}

	var name pdf.Name
	for i := 1; ; i++ {
		name = pdf.Name(prefix + strconv.Itoa(i))
		if _, exists := catDict[name]; !exists {
			break
		}
	}
	catDict[name] = ov.Add(obj)
	res.use(category, name)
	return name, nil
}

// use records that the filtered content refers to a resource.
func (res *resources) use(category, name pdf.Name) {
	if res.used == nil {
		res.used = make(map[pdf.Name]map[pdf.Name]int)
	}
	if res.used[category] == nil {
		res.used[category] = make(map[pdf.Name]int)
	}
	res.used[category][name]++
}

// release undoes a previous call to use, and marks the resource for
// removal.
func (res *resources) release(category, name pdf.Name) {
	if res.used[category][name] > 0 {
		res.used[category][name]--
	}
	res.drop(category, name)
}

// drop records that removed content referred to a resource.
func (res *resources) drop(category, name pdf.Name) {
	if res.dropped == nil {
		res.dropped = make(map[pdf.Name]map[pdf.Name]bool)
	}
	if res.dropped[category] == nil {
		res.dropped[category] = make(map[pdf.Name]bool)
	}
	res.dropped[category][name] = true
}

// prunable lists the resource categories which are checked by
// [resources.prune].
var prunable = []pdf.Name{"XObject", "Properties"}

// prune removes resources which are no longer needed.  Resources which
// were only used by removed content are always removed.  If unused is
// set, all XObjects and property lists which the filtered content does not
// refer to are removed as well.
func (res *resources) prune(unused bool) error {
	unused = unused && !res.opaque
	for _, category := range prunable {
		catDict, err := pdf.GetDict(res.r, res.current()[category])
		if err != nil {
			return err
		}
		for name := range catDict {
			if res.used[category][name] > 0 {
				continue
			}
			if !unused && !res.dropped[category][name] {
				continue
			}
			w, err := res.writable(category)
			if err != nil {
				return err
			}
			delete(w, name)
		}
	}
	clear(res.dropped)
	return nil
}

// modified returns the updated resource dictionary, or nil if nothing was
// changed.
func (res *resources) modified() pdf.Dict {
	return res.dict
}
