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
	"errors"
	"fmt"
)

// inheritable lists the page attributes which can be inherited from the
// ancestors of a page in the page tree.
var inheritable = []Name{"Resources", "MediaBox", "CropBox", "Rotate"}

// Page describes a leaf of the page tree.
type Page struct {
	Ref  Reference
	Dict Dict

	// Inherited contains the values of inheritable attributes which are
	// not set in Dict, taken from the ancestors of the page.
	Inherited Dict
}

// Attr returns the value of a page attribute, taking inheritance into
// account.
func (p *Page) Attr(key Name) Object {
	if val, ok := p.Dict[key]; ok && val != nil {
		return val
	}
	return p.Inherited[key]
}

// FirstPage locates the first page of the document.
func FirstPage(r Getter, catalog Dict) (*Page, error) {
	node := catalog["Pages"]
	inherited := Dict{}
	seen := map[Reference]bool{}

	for depth := 0; ; depth++ {
		if depth > maxNesting {
			return nil, &MalformedFileError{Err: errors.New("page tree too deep")}
		}
		ref, isRef := node.(Reference)
		if isRef {
			if seen[ref] {
				return nil, &MalformedFileError{Err: errors.New("loop in page tree")}
			}
			seen[ref] = true
		}
		dict, err := GetDict(r, node)
		if err != nil {
			return nil, Wrap(err, "page tree")
		}
		if dict == nil {
			return nil, ErrNoPages
		}

		kids, err := GetArray(r, dict["Kids"])
		if err != nil {
			return nil, Wrap(err, "page tree")
		}
		tp, _ := GetName(r, dict["Type"])
		if tp == "Page" || tp != "Pages" && kids == nil {
			if !isRef {
				return nil, &MalformedFileError{Err: errors.New("page is not an indirect object")}
			}
			return &Page{Ref: ref, Dict: dict, Inherited: inherited}, nil
		}

		for _, key := range inheritable {
			if val, ok := dict[key]; ok && val != nil {
				inherited[key] = val
			}
		}

		// descend into the first non-empty child
		next := Object(nil)
		for _, kid := range kids {
			kidDict, err := GetDict(r, kid)
			if err != nil || kidDict == nil {
				continue
			}
			if kidType, _ := GetName(r, kidDict["Type"]); kidType == "Pages" {
				if count, err := GetInteger(r, kidDict["Count"]); err == nil && kidDict["Count"] != nil && count <= 0 {
					continue
				}
			}
			next = kid
			break
		}
		if next == nil {
			return nil, ErrNoPages
		}
		node = next
	}
}

// NumPages returns the number of pages in the document.
func NumPages(r Getter, catalog Dict) (int, error) {
	pages, err := GetDict(r, catalog["Pages"])
	if err != nil {
		return 0, Wrap(err, "page tree")
	}
	if pages == nil {
		return 0, nil
	}
	count, err := GetInteger(r, pages["Count"])
	if err != nil {
		return 0, Wrap(err, "page tree")
	}
	if count < 0 {
		return 0, &MalformedFileError{Err: fmt.Errorf("invalid page count %d", count)}
	}
	return int(count), nil
}

// ErrNoPages is returned by [FirstPage] if the document has no pages.
var ErrNoPages = errors.New("document has no pages")

// Contents returns the concatenated data of the content streams of the
// page.  The streams are separated by newlines.
func (p *Page) Contents(r Getter) ([]byte, error) {
	obj, err := Resolve(r, p.Dict["Contents"])
	if err != nil {
		return nil, err
	}

	var streams []Object
	switch x := obj.(type) {
	case nil:
		return nil, nil
	case *Stream:
		streams = []Object{x}
	case Array:
		streams = x
	default:
		return nil, &MalformedFileError{
			Err: fmt.Errorf("invalid /Contents of type %T", obj),
		}
	}

	var buf bytes.Buffer
	for i, elem := range streams {
		stm, err := GetStream(r, elem)
		if err != nil {
			return nil, err
		}
		if stm == nil {
			continue
		}
		data, err := ReadAll(r, stm)
		if err != nil {
			return nil, Wrap(err, fmt.Sprintf("content stream %d", i))
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}
