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

// Overlay is a Getter which replaces some objects of an underlying file and
// adds new objects.  The underlying file is not modified.
//
// Together with a [Copier], this is used to write a modified copy of a file.
type Overlay struct {
	base    Getter
	objects map[Reference]Object
	next    uint32
}

// NewOverlay creates a new Overlay.  New objects allocated using
// [Overlay.Alloc] get object numbers starting at firstFree.
func NewOverlay(base Getter, firstFree uint32) *Overlay {
	return &Overlay{
		base:    base,
		objects: make(map[Reference]Object),
		next:    max(firstFree, 1),
	}
}

// Get implements the [Getter] interface.
func (o *Overlay) Get(ref Reference) (Object, error) {
	if obj, ok := o.objects[ref]; ok {
		return obj, nil
	}
	return o.base.Get(ref)
}

// Set replaces the object ref.
func (o *Overlay) Set(ref Reference, obj Object) {
	o.objects[ref] = obj
}

// Alloc allocates a reference for a new object.
func (o *Overlay) Alloc() Reference {
	ref := NewReference(o.next, 0)
	o.next++
	return ref
}

// Add stores obj as a new indirect object and returns the reference.
func (o *Overlay) Add(obj Object) Reference {
	ref := o.Alloc()
	o.objects[ref] = obj
	return ref
}
