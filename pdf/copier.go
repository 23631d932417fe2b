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

import "slices"

// A Copier is used to copy objects from one PDF file to another. The Copier
// keeps track of the objects that have already been copied and ensures that
// each object is copied only once.
//
// Indirect objects are allocated in the target file as needed, and references
// are translated accordingly.  Objects which are not reachable from the
// copied objects are not written.
type Copier struct {
	trans map[Reference]Reference
	r     Getter
	w     *Writer
}

// NewCopier creates a new Copier.
func NewCopier(w *Writer, r Getter) *Copier {
	c := &Copier{
		trans: make(map[Reference]Reference),
		w:     w,
		r:     r,
	}
	return c
}

// Copy copies an object from the source file to the target file, recursively.
//
// The returned object is guaranteed to be the same type as the input object.
func (c *Copier) Copy(obj Object) (Object, error) {
	switch x := obj.(type) {
	case Dict:
		return c.CopyDict(x)
	case Array:
		return c.CopyArray(x)
	case *Stream:
		// The length is set when the stream is written.
		dict, err := c.CopyDict(x.Dict, "Length")
		if err != nil {
			return nil, err
		}
		res := &Stream{
			Dict: dict,
			R:    x.R,
		}
		return res, nil
	case Reference:
		return c.CopyReference(x)
	default:
		return obj, nil
	}
}

// CopyDict copies a dictionary from the source file to the target file.
// Keys listed in omit are not copied.
func (c *Copier) CopyDict(obj Dict, omit ...Name) (Dict, error) {
	res := Dict{}
	for key, val := range obj {
		if val == nil || slices.Contains(omit, key) {
			continue
		}
		repl, err := c.Copy(val)
		if err != nil {
			return nil, Wrap(err, "/"+string(key))
		}
		res[key] = repl
	}
	return res, nil
}

// CopyArray copies an array from the source file to the target file.
func (c *Copier) CopyArray(obj Array) (Array, error) {
	res := make(Array, 0, len(obj))
	for _, val := range obj {
		var repl Object
		if val != nil {
			var err error
			repl, err = c.Copy(val)
			if err != nil {
				return nil, err
			}
		}
		res = append(res, repl)
	}
	return res, nil
}

// CopyReference copies a reference from the source file to the target file.
//
// This method shortens chains of indirect references, the returned reference
// always points to a direct object.
func (c *Copier) CopyReference(obj Reference) (Reference, error) {
	newRef, ok := c.trans[obj]
	if ok {
		return newRef, nil
	}
	newRef = c.w.Alloc()
	c.trans[obj] = newRef

	val, err := Resolve(c.r, obj)
	if err != nil {
		return 0, err
	}
	trans, err := c.Copy(val)
	if err != nil {
		return 0, Wrap(err, "object "+obj.String())
	}
	err = c.w.Put(newRef, trans)
	if err != nil {
		return 0, err
	}

	return newRef, nil
}
