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
	"io"
	"regexp"
	"strconv"
)

type xRefEntry struct {
	Pos        int64
	Generation uint16
	InStream   uint32 // object number of the containing object stream, or 0
	Index      int    // index inside the object stream
	Free       bool
}

func (r *Reader) findXRef() (int64, error) {
	pos, err := r.lastOccurence("startxref")
	if err != nil {
		return 0, err
	}
	s := r.scannerAt(pos + 9)
	err = s.skipWhiteSpace()
	if err != nil {
		return 0, err
	}
	xRefPos, err := s.readUint()
	if err != nil {
		return 0, err
	}

	if xRefPos == 0 || int64(xRefPos) >= r.size {
		return 0, &MalformedFileError{
			Pos: s.currentPos(),
			Err: errors.New("invalid xref position"),
		}
	}
	return int64(xRefPos), nil
}

func (r *Reader) lastOccurence(pat string) (int64, error) {
	const chunkSize = 1024

	buf := make([]byte, chunkSize)
	k := int64(len(pat))
	pos := r.size
	for pos >= k {
		start := max(pos-chunkSize, 0)
		n, err := r.r.ReadAt(buf[:pos-start], start)
		if err != nil && err != io.EOF {
			return 0, err
		}

		idx := bytes.LastIndex(buf[:n], []byte(pat))
		if idx >= 0 {
			return start + int64(idx), nil
		}
		if start == 0 {
			break
		}
		pos = start + k - 1
	}
	return 0, &MalformedFileError{
		Err: errors.New("startxref not found"),
	}
}

// readXRef follows the chain of cross-reference sections, starting with the
// most recent one.  Entries from more recent sections take precedence.
func (r *Reader) readXRef() (map[uint32]*xRefEntry, Dict, error) {
	start, err := r.findXRef()
	if err != nil {
		return nil, nil, err
	}

	xref := make(map[uint32]*xRefEntry)
	var trailer Dict
	seen := make(map[int64]bool)
	for {
		// avoid xref loops
		if seen[start] {
			break
		}
		seen[start] = true

		s := r.scannerAt(start)
		buf, err := s.peek(4)
		if err != nil {
			return nil, nil, err
		}
		var dict Dict
		if string(buf) == "xref" {
			s.pos += 4
			dict, err = readXRefTable(xref, s)
			if err != nil {
				return nil, nil, err
			}
			if xRefStm, ok := dict["XRefStm"].(Integer); ok && xRefStm > 0 {
				_, err = r.readXRefStream(xref, r.scannerAt(int64(xRefStm)))
				if err != nil {
					return nil, nil, err
				}
			}
		} else {
			dict, err = r.readXRefStream(xref, s)
			if err != nil {
				return nil, nil, err
			}
		}

		if trailer == nil {
			trailer = dict
		}

		prev, ok := dict["Prev"].(Integer)
		if !ok {
			break
		}
		if prev <= 0 || int64(prev) >= r.size {
			return nil, nil, &MalformedFileError{
				Pos: start,
				Err: fmt.Errorf("invalid /Prev value %d", prev),
			}
		}
		start = int64(prev)
	}

	return xref, trailer, nil
}

func readXRefTable(xref map[uint32]*xRefEntry, s *scanner) (Dict, error) {
	for {
		err := s.skipWhiteSpace()
		if err != nil {
			return nil, err
		}
		isTrailer, err := s.skipKeyword("trailer")
		if err != nil {
			return nil, err
		}
		if isTrailer {
			obj, err := s.readObject()
			if err != nil {
				return nil, err
			}
			dict, ok := obj.(Dict)
			if !ok {
				return nil, s.malformed("invalid trailer")
			}
			return dict, nil
		}

		start, err := s.readUint()
		if err != nil {
			return nil, err
		}
		err = s.skipWhiteSpace()
		if err != nil {
			return nil, err
		}
		count, err := s.readUint()
		if err != nil {
			return nil, err
		}
		if start+count > 1<<32 {
			return nil, s.malformed("invalid xref subsection %d %d", start, count)
		}
		for i := uint64(0); i < count; i++ {
			entry, err := readXRefTableEntry(s)
			if err != nil {
				return nil, err
			}
			number := uint32(start + i)
			if xref[number] == nil {
				xref[number] = entry
			}
		}
	}
}

func readXRefTableEntry(s *scanner) (*xRefEntry, error) {
	err := s.skipWhiteSpace()
	if err != nil {
		return nil, err
	}
	pos, err := s.readUint()
	if err != nil {
		return nil, err
	}
	err = s.skipWhiteSpace()
	if err != nil {
		return nil, err
	}
	gen, err := s.readUint()
	if err != nil {
		return nil, err
	}
	err = s.skipWhiteSpace()
	if err != nil {
		return nil, err
	}
	tp, err := s.next()
	if err != nil {
		return nil, err
	}

	entry := &xRefEntry{
		Pos:        int64(pos),
		Generation: uint16(gen),
	}
	switch tp {
	case 'n':
		if pos == 0 {
			entry.Free = true
		}
	case 'f':
		entry.Free = true
	default:
		return nil, s.malformed("invalid xref entry type %q", rune(tp))
	}
	return entry, nil
}

// readXRefStream reads a cross-reference stream and adds the entries to
// xref.  The stream dictionary is returned.
func (r *Reader) readXRefStream(xref map[uint32]*xRefEntry, s *scanner) (Dict, error) {
	obj, _, err := s.readIndirectObject()
	if err != nil {
		return nil, err
	}
	stream, ok := obj.(*Stream)
	if !ok {
		return nil, s.malformed("xref stream expected, got %T", obj)
	}

	w, sections, err := checkXRefStreamDict(stream.Dict)
	if err != nil {
		return nil, err
	}
	data, err := ReadAll(r, stream)
	if err != nil {
		return nil, Wrap(err, "xref stream")
	}
	err = decodeXRefStream(xref, data, w, sections)
	if err != nil {
		return nil, err
	}
	return stream.Dict, nil
}

type xRefSubSection struct {
	Start, Size uint64
}

func checkXRefStreamDict(dict Dict) ([]int, []xRefSubSection, error) {
	if tp, _ := dict["Type"].(Name); tp != "XRef" {
		return nil, nil, &MalformedFileError{
			Err: errors.New("xref stream has wrong /Type"),
		}
	}

	size, ok := dict["Size"].(Integer)
	if !ok || size < 0 {
		return nil, nil, &MalformedFileError{
			Err: errors.New("xref stream has invalid /Size"),
		}
	}

	var sections []xRefSubSection
	if index, ok := dict["Index"].(Array); ok && len(index)%2 == 0 {
		for i := 0; i < len(index); i += 2 {
			start, ok1 := index[i].(Integer)
			n, ok2 := index[i+1].(Integer)
			if !ok1 || !ok2 || start < 0 || n < 0 {
				return nil, nil, &MalformedFileError{
					Err: errors.New("xref stream has invalid /Index"),
				}
			}
			sections = append(sections, xRefSubSection{uint64(start), uint64(n)})
		}
	} else {
		sections = []xRefSubSection{{0, uint64(size)}}
	}

	wObj, _ := dict["W"].(Array)
	if len(wObj) != 3 {
		return nil, nil, &MalformedFileError{
			Err: errors.New("xref stream has invalid /W"),
		}
	}
	w := make([]int, 3)
	for i, obj := range wObj {
		x, ok := obj.(Integer)
		if !ok || x < 0 || x > 8 {
			return nil, nil, &MalformedFileError{
				Err: errors.New("xref stream has invalid /W"),
			}
		}
		w[i] = int(x)
	}
	return w, sections, nil
}

func decodeXRefStream(xref map[uint32]*xRefEntry, data []byte, w []int, sections []xRefSubSection) error {
	rowLen := w[0] + w[1] + w[2]
	if rowLen == 0 {
		return &MalformedFileError{Err: errors.New("xref stream has invalid /W")}
	}
	for _, sec := range sections {
		for i := uint64(0); i < sec.Size; i++ {
			if len(data) < rowLen {
				return &MalformedFileError{Err: errors.New("xref stream too short")}
			}
			row := data[:rowLen]
			data = data[rowLen:]

			tp := uint64(1)
			if w[0] > 0 {
				tp = decodeInt(row[:w[0]])
			}
			f2 := decodeInt(row[w[0] : w[0]+w[1]])
			f3 := decodeInt(row[w[0]+w[1]:])

			number := sec.Start + i
			if number >= 1<<32 {
				return &MalformedFileError{Err: errors.New("invalid object number in xref stream")}
			}
			if xref[uint32(number)] != nil {
				continue
			}

			var entry *xRefEntry
			switch tp {
			case 0:
				entry = &xRefEntry{Free: true, Generation: uint16(f3)}
			case 1:
				entry = &xRefEntry{Pos: int64(f2), Generation: uint16(f3)}
			case 2:
				entry = &xRefEntry{InStream: uint32(f2), Index: int(f3)}
			default:
				// unknown types are treated as null objects
				continue
			}
			xref[uint32(number)] = entry
		}
	}
	return nil
}

func decodeInt(buf []byte) (res uint64) {
	for _, x := range buf {
		res = res<<8 | uint64(x)
	}
	return res
}

var objHeader = regexp.MustCompile(`(\d{1,10})[\x00\t\n\f\r ]+(\d{1,5})[\x00\t\n\f\r ]+obj\b`)

// reconstructXRef rebuilds the cross-reference table by scanning the whole
// file for objects.  This is used for files where the xref information is
// missing or damaged.
func (r *Reader) reconstructXRef() (map[uint32]*xRefEntry, Dict, error) {
	data, err := io.ReadAll(io.NewSectionReader(r.r, 0, r.size))
	if err != nil {
		return nil, nil, err
	}

	xref := make(map[uint32]*xRefEntry)
	for _, m := range objHeader.FindAllSubmatchIndex(data, -1) {
		start := m[0]
		if start > 0 && class[data[start-1]] == regular {
			continue
		}
		number, err1 := strconv.ParseUint(string(data[m[2]:m[3]]), 10, 32)
		gen, err2 := strconv.ParseUint(string(data[m[4]:m[5]]), 10, 16)
		if err1 != nil || err2 != nil {
			continue
		}
		// later objects replace earlier ones, as in incremental updates
		xref[uint32(number)] = &xRefEntry{
			Pos:        int64(start),
			Generation: uint16(gen),
		}
	}
	if len(xref) == 0 {
		return nil, nil, &MalformedFileError{Err: ErrNoXRef}
	}

	// Try the trailer dictionaries, from last to first.
	var trailer Dict
	for pos := len(data); pos > 0; {
		idx := bytes.LastIndex(data[:pos], []byte("trailer"))
		if idx < 0 {
			break
		}
		pos = idx
		s := r.scannerAt(int64(idx + 7))
		obj, err := s.readObject()
		if err != nil {
			continue
		}
		if dict, ok := obj.(Dict); ok && dict["Root"] != nil {
			trailer = dict
			break
		}
	}

	// Register the contents of object streams, and look for a catalog and
	// for xref stream dictionaries.
	var catalog Reference
	for number, entry := range xref {
		if entry.InStream != 0 {
			continue
		}
		obj, _, err := r.scannerAt(entry.Pos).readIndirectObject()
		if err != nil {
			continue
		}
		var dict Dict
		switch obj := obj.(type) {
		case Dict:
			dict = obj
		case *Stream:
			dict = obj.Dict
		}
		switch dict["Type"] {
		case Name("Catalog"):
			catalog = NewReference(number, entry.Generation)
		case Name("XRef"):
			if trailer == nil && dict["Root"] != nil {
				trailer = dict
			}
		case Name("ObjStm"):
			refs, err := r.objStmHeader(obj.(*Stream))
			if err != nil {
				continue
			}
			for i, ref := range refs {
				if xref[ref.Number()] == nil {
					xref[ref.Number()] = &xRefEntry{InStream: number, Index: i}
				}
			}
		}
	}

	if trailer == nil {
		if catalog == 0 {
			return nil, nil, &MalformedFileError{Err: errors.New("no document catalog found")}
		}
		trailer = Dict{"Root": catalog}
	}
	return xref, trailer, nil
}
