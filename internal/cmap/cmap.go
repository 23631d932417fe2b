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

// Package cmap reads the CMap files embedded in PDF fonts.
//
// Two kinds of CMap are supported: CID CMaps, which map character codes of
// composite fonts to CIDs, and ToUnicode CMaps, which map character codes to
// text.  In both cases only the information needed to split strings into
// character codes and to look up codes is kept.
package cmap

import (
	"errors"
	"io"
	"unicode/utf16"

	"seehuhn.de/go/postscript"
)

// Range is a range of character codes.  Low and High have the same length,
// and a code is in the range if every byte lies between the corresponding
// bytes of Low and High.
type Range struct {
	Low, High []byte
}

// Contains checks whether code lies in the range.
func (r Range) Contains(code []byte) bool {
	if len(code) != len(r.Low) || len(code) != len(r.High) {
		return false
	}
	for i, c := range code {
		if c < r.Low[i] || c > r.High[i] {
			return false
		}
	}
	return true
}

// offset returns the position of code within the range.
func (r Range) offset(code []byte) uint32 {
	return toInt(code) - toInt(r.Low)
}

// CodeSpace describes how strings are split into character codes.
type CodeSpace []Range

// Identity is the code space of the Identity-H and Identity-V CMaps.
var Identity = CodeSpace{{Low: []byte{0x00, 0x00}, High: []byte{0xFF, 0xFF}}}

// Simple is the code space of simple fonts.
var Simple = CodeSpace{{Low: []byte{0x00}, High: []byte{0xFF}}}

// Next returns the length of the first character code in s.
// If no code space range matches, the length of the shortest range starting
// with the first byte is used, or 1 if there is none.
// The return value is 0 if and only if s is empty.
func (cs CodeSpace) Next(s []byte) int {
	if len(s) == 0 {
		return 0
	}
	for n := 1; n <= 4 && n <= len(s); n++ {
		for _, r := range cs {
			if r.Contains(s[:n]) {
				return n
			}
		}
	}

	best := 0
	for _, r := range cs {
		n := len(r.Low)
		if n == 0 || n > len(s) || s[0] < r.Low[0] || s[0] > r.High[0] {
			continue
		}
		if best == 0 || n < best {
			best = n
		}
	}
	if best == 0 {
		best = 1
	}
	return best
}

// Split splits s into character codes.
func (cs CodeSpace) Split(s []byte) [][]byte {
	var res [][]byte
	for len(s) > 0 {
		n := cs.Next(s)
		res = append(res, s[:n])
		s = s[n:]
	}
	return res
}

// CMap maps character codes of a composite font to CIDs.
type CMap struct {
	CodeSpace CodeSpace
	Vertical  bool

	singles map[string]uint32
	ranges  []cidRange
}

type cidRange struct {
	Range
	first uint32
}

// Read reads a CID CMap from r.
func Read(r io.Reader) (*CMap, error) {
	raw, err := postscript.ReadCMap(r)
	if err != nil {
		return nil, err
	}
	if tp, _ := raw["CMapType"].(postscript.Integer); !(tp == 0 || tp == 1) {
		return nil, errInvalidType
	}
	codeMap, ok := raw["CodeMap"].(*postscript.CMapInfo)
	if !ok {
		return nil, errUnsupported
	}

	res := &CMap{
		CodeSpace: codeSpace(codeMap),
		singles:   make(map[string]uint32),
	}
	if wMode, _ := raw["WMode"].(postscript.Integer); wMode == 1 {
		res.Vertical = true
	}
	for _, entry := range codeMap.CidChars {
		cid, ok := entry.Dst.(postscript.Integer)
		if !ok || cid < 0 || cid > 0xFFFF_FFFF {
			continue
		}
		res.singles[string(entry.Src)] = uint32(cid)
	}
	for _, entry := range codeMap.CidRanges {
		cid, ok := entry.Dst.(postscript.Integer)
		if !ok || cid < 0 || cid > 0xFFFF_FFFF || len(entry.Low) != len(entry.High) {
			continue
		}
		res.ranges = append(res.ranges, cidRange{
			Range: Range{Low: entry.Low, High: entry.High},
			first: uint32(cid),
		})
	}
	return res, nil
}

// CID returns the CID for a character code.  Unmapped codes are mapped to
// CID 0.
func (c *CMap) CID(code []byte) uint32 {
	if cid, ok := c.singles[string(code)]; ok {
		return cid
	}
	for _, r := range c.ranges {
		if r.Contains(code) {
			return r.first + r.offset(code)
		}
	}
	return 0
}

// ToUnicode maps character codes to text.
type ToUnicode struct {
	CodeSpace CodeSpace

	singles map[string]string
	ranges  []textRange
}

type textRange struct {
	Range
	values    [][]uint16
	increment bool // values[0] is incremented for each code
}

// ReadToUnicode reads a ToUnicode CMap from r.
func ReadToUnicode(r io.Reader) (*ToUnicode, error) {
	raw, err := postscript.ReadCMap(r)
	if err != nil {
		return nil, err
	}
	if tp, _ := raw["CMapType"].(postscript.Integer); !(tp == 0 || tp == 2) {
		return nil, errInvalidType
	}
	codeMap, ok := raw["CodeMap"].(*postscript.CMapInfo)
	if !ok {
		return nil, errUnsupported
	}

	res := &ToUnicode{
		CodeSpace: codeSpace(codeMap),
		singles:   make(map[string]string),
	}
	for _, entry := range codeMap.BfChars {
		if len(entry.Src) == 0 {
			continue
		}
		u, ok := utf16Units(entry.Dst)
		if !ok {
			continue
		}
		res.singles[string(entry.Src)] = string(utf16.Decode(u))
	}
	for _, entry := range codeMap.BfRanges {
		if len(entry.Low) != len(entry.High) || len(entry.Low) == 0 {
			continue
		}
		rng := textRange{Range: Range{Low: entry.Low, High: entry.High}}
		switch dst := entry.Dst.(type) {
		case postscript.String:
			u, ok := utf16Units(dst)
			if !ok || len(u) == 0 {
				continue
			}
			rng.values = [][]uint16{u}
			rng.increment = true
		case postscript.Array:
			for _, elem := range dst {
				u, _ := utf16Units(elem)
				rng.values = append(rng.values, u)
			}
		default:
			continue
		}
		res.ranges = append(res.ranges, rng)
	}
	return res, nil
}

// Lookup returns the text for a character code.
func (t *ToUnicode) Lookup(code []byte) (string, bool) {
	if s, ok := t.singles[string(code)]; ok {
		return s, true
	}
	for _, r := range t.ranges {
		if !r.Contains(code) {
			continue
		}
		k := r.offset(code)
		if r.increment {
			u := append([]uint16(nil), r.values[0]...)
			u[len(u)-1] += uint16(k)
			return string(utf16.Decode(u)), true
		}
		if int(k) < len(r.values) && r.values[k] != nil {
			return string(utf16.Decode(r.values[k])), true
		}
		return "", false
	}
	return "", false
}

func codeSpace(codeMap *postscript.CMapInfo) CodeSpace {
	var res CodeSpace
	for _, entry := range codeMap.CodeSpaceRanges {
		if len(entry.Low) != len(entry.High) || len(entry.Low) == 0 || len(entry.Low) > 4 {
			continue
		}
		res = append(res, Range{Low: entry.Low, High: entry.High})
	}
	return res
}

func utf16Units(obj postscript.Object) ([]uint16, bool) {
	s, ok := obj.(postscript.String)
	if !ok || len(s)%2 != 0 {
		return nil, false
	}
	res := make([]uint16, 0, len(s)/2)
	for i := 0; i < len(s); i += 2 {
		res = append(res, uint16(s[i])<<8|uint16(s[i+1]))
	}
	return res, true
}

func toInt(code []byte) uint32 {
	var res uint32
	for _, c := range code {
		res = res<<8 | uint32(c)
	}
	return res
}

var (
	errInvalidType = errors.New("invalid CMapType")
	errUnsupported = errors.New("unsupported CMap format")
)
