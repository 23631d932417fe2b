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
	"os"
)

// Reader represents a PDF file opened for reading.
//
// Objects are read lazily.  If the cross-reference information of the file
// turns out to be damaged, the table is reconstructed by scanning the file.
type Reader struct {
	// Version is the PDF version given in the file header.
	Version Version

	r      io.ReaderAt
	size   int64
	closer io.Closer

	xref    map[uint32]*xRefEntry
	trailer Dict

	objStms    map[uint32]*objStm
	inProgress map[Reference]bool

	repaired bool
}

// Open opens the named PDF file for reading.  After use, [Reader.Close] must
// be called to close the file.
func Open(fname string) (*Reader, error) {
	fd, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	fi, err := fd.Stat()
	if err != nil {
		fd.Close()
		return nil, err
	}
	r, err := NewReader(fd, fi.Size())
	if err != nil {
		fd.Close()
		return nil, err
	}
	r.closer = fd
	return r, nil
}

// NewReader creates a new Reader object for the PDF data in the given
// io.ReaderAt.
//
// If the file is encrypted, [ErrEncrypted] is returned.
func NewReader(data io.ReaderAt, size int64) (*Reader, error) {
	r := &Reader{
		r:          data,
		size:       size,
		objStms:    make(map[uint32]*objStm),
		inProgress: make(map[Reference]bool),
	}

	head := make([]byte, min(size, 1024))
	n, err := data.ReadAt(head, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	ver, _, err := parseHeader(head[:n])
	if err != nil {
		return nil, &MalformedFileError{Err: err}
	}
	r.Version = ver

	xref, trailer, err := r.readXRef()
	if err == nil && trailer["Root"] == nil {
		err = &MalformedFileError{Err: errors.New("trailer has no /Root")}
	}
	if err == nil {
		r.xref = xref
		r.trailer = trailer
		_, err = GetDict(r, trailer["Root"])
	}
	if err != nil && !r.repaired {
		// Get may already have reconstructed the table
		err = r.repair()
	}
	if err != nil {
		return nil, err
	}

	if r.trailer["Encrypt"] != nil {
		return nil, ErrEncrypted
	}
	// a /Version entry in the catalog overrides the header
	if catalog, err := r.Catalog(); err == nil {
		v, _ := GetName(r, catalog["Version"])
		if ver, err := ParseVersion(string(v)); err == nil && ver > r.Version {
			r.Version = ver
		}
	}

	return r, nil
}

// repair replaces the cross-reference table with one reconstructed from
// a scan of the file.
func (r *Reader) repair() error {
	if r.repaired {
		return errors.New("xref table already reconstructed")
	}
	r.repaired = true

	xref, trailer, err := r.reconstructXRef()
	if err != nil {
		return err
	}
	r.xref = xref
	r.trailer = trailer
	clear(r.objStms)
	return nil
}

// Close closes the underlying file, if the Reader was created by [Open].
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}

// Trailer returns the trailer dictionary of the file.  The caller must not
// modify the returned dictionary.
func (r *Reader) Trailer() Dict {
	return r.trailer
}

// Catalog returns the document catalog.
func (r *Reader) Catalog() (Dict, error) {
	catalog, err := GetDict(r, r.trailer["Root"])
	if err != nil {
		return nil, err
	}
	if catalog == nil {
		return nil, &MalformedFileError{Err: errors.New("missing document catalog")}
	}
	return catalog, nil
}

// NumObjects returns one more than the largest object number in the
// cross-reference table.
func (r *Reader) NumObjects() uint32 {
	var res uint32
	for number := range r.xref {
		if number >= res {
			res = number + 1
		}
	}
	return res
}

// Get reads an indirect object from the file.
// Free and missing objects are returned as nil.
func (r *Reader) Get(ref Reference) (Object, error) {
	obj, err := r.get(ref)
	if err != nil && !r.repaired {
		var mf *MalformedFileError
		if errors.As(err, &mf) && r.repair() == nil {
			obj, err = r.get(ref)
		}
	}
	return obj, err
}

func (r *Reader) get(ref Reference) (Object, error) {
	entry := r.xref[ref.Number()]
	if entry == nil || entry.Free {
		return nil, nil
	}
	if entry.InStream != 0 {
		if ref.Generation() != 0 {
			return nil, nil
		}
		return r.getFromObjectStream(ref, entry)
	}
	if entry.Generation != ref.Generation() {
		return nil, nil
	}

	if r.inProgress[ref] {
		return nil, &MalformedFileError{
			Err: fmt.Errorf("object %s refers to itself", ref),
		}
	}
	r.inProgress[ref] = true
	defer delete(r.inProgress, ref)

	s := r.scannerAt(entry.Pos)
	obj, got, err := s.readIndirectObject()
	if err != nil {
		return nil, Wrap(err, "object "+ref.String())
	}
	if got != ref {
		return nil, &MalformedFileError{
			Err: fmt.Errorf("expected object %s, found %s", ref, got),
			Pos: entry.Pos,
		}
	}
	return obj, nil
}

type objStm struct {
	data  []byte
	refs  []Reference
	first int64
	offs  []int64
}

// objStmHeader reads the object numbers contained in an object stream.
func (r *Reader) objStmHeader(stream *Stream) ([]Reference, error) {
	stm, err := r.decodeObjStm(stream)
	if err != nil {
		return nil, err
	}
	return stm.refs, nil
}

func (r *Reader) decodeObjStm(stream *Stream) (*objStm, error) {
	n, err := GetInteger(r, stream.Dict["N"])
	if err != nil {
		return nil, err
	}
	first, err := GetInteger(r, stream.Dict["First"])
	if err != nil {
		return nil, err
	}
	data, err := ReadAll(r, stream)
	if err != nil {
		return nil, err
	}
	if n < 0 || first < 0 || int64(first) > int64(len(data)) || int64(n) > int64(len(data)) {
		return nil, &MalformedFileError{Err: errors.New("invalid object stream")}
	}

	res := &objStm{
		data:  data,
		first: int64(first),
	}
	s := newScanner(bytes.NewReader(data), int64(len(data)), 0, nil)
	for i := 0; i < int(n); i++ {
		err = s.skipWhiteSpace()
		if err != nil {
			return nil, err
		}
		number, err := s.readUint()
		if err != nil {
			return nil, err
		}
		err = s.skipWhiteSpace()
		if err != nil {
			return nil, err
		}
		off, err := s.readUint()
		if err != nil {
			return nil, err
		}
		if number >= 1<<32 {
			return nil, s.malformed("invalid object number %d", number)
		}
		res.refs = append(res.refs, NewReference(uint32(number), 0))
		res.offs = append(res.offs, int64(off))
	}
	return res, nil
}

func (r *Reader) getFromObjectStream(ref Reference, entry *xRefEntry) (Object, error) {
	stm := r.objStms[entry.InStream]
	if stm == nil {
		// objects streams always have generation 0
		container := NewReference(entry.InStream, 0)
		if c := r.xref[entry.InStream]; c != nil && c.InStream != 0 {
			return nil, &MalformedFileError{
				Err: fmt.Errorf("object stream %s is stored in an object stream", container),
			}
		}
		stream, err := GetStream(r, container)
		if err != nil {
			return nil, err
		}
		if stream == nil {
			return nil, nil
		}
		stm, err = r.decodeObjStm(stream)
		if err != nil {
			return nil, Wrap(err, "object stream "+container.String())
		}
		r.objStms[entry.InStream] = stm
	}

	idx := entry.Index
	if idx < 0 || idx >= len(stm.refs) || stm.refs[idx] != ref {
		idx = -1
		for i, other := range stm.refs {
			if other == ref {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, nil
		}
	}

	s := newScanner(bytes.NewReader(stm.data), int64(len(stm.data)), stm.first+stm.offs[idx], nil)
	obj, err := s.readObject()
	if err != nil {
		return nil, Wrap(err, "object "+ref.String())
	}
	return obj, nil
}

func (r *Reader) scannerAt(pos int64) *scanner {
	return newScanner(r.r, r.size, pos, r.getInt)
}

// getInt resolves the /Length of a stream.
func (r *Reader) getInt(obj Object) (Integer, error) {
	return GetInteger(r, obj)
}
