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
	"bufio"
	"errors"
	"fmt"
	"io"
)

// Writer represents a PDF file open for writing.
//
// Objects are written in the order [Writer.Put] is called, and a classic
// cross-reference table is written by [Writer.Close].
type Writer struct {
	Version Version

	w    *posWriter
	xref map[uint32]int64

	nextNumber uint32
}

// NewWriter prepares a PDF file for writing.
func NewWriter(w io.Writer, ver Version) (*Writer, error) {
	verString, err := ver.ToString()
	if err != nil {
		return nil, err
	}

	pdf := &Writer{
		Version:    ver,
		w:          &posWriter{w: bufio.NewWriter(w)},
		xref:       make(map[uint32]int64),
		nextNumber: 1,
	}

	_, err = fmt.Fprintf(pdf.w, "%%PDF-%s\n%%\x80\x80\x80\x80\n", verString)
	if err != nil {
		return nil, err
	}
	return pdf, nil
}

// Alloc allocates an object number for an indirect object.
func (pdf *Writer) Alloc() Reference {
	ref := NewReference(pdf.nextNumber, 0)
	pdf.nextNumber++
	return ref
}

// Put writes an indirect object to the file.  The reference must have been
// obtained from [Writer.Alloc].
func (pdf *Writer) Put(ref Reference, obj Object) error {
	if pdf.w == nil {
		return errors.New("write after close")
	}
	number := ref.Number()
	if number == 0 || number >= pdf.nextNumber {
		return fmt.Errorf("object %s was not allocated", ref)
	}
	if _, seen := pdf.xref[number]; seen {
		return fmt.Errorf("object %s already written", ref)
	}
	if obj == nil {
		// missing objects are treated as null
		return nil
	}

	pdf.xref[number] = pdf.w.pos
	_, err := fmt.Fprintf(pdf.w, "%d %d obj\n", number, ref.Generation())
	if err != nil {
		return err
	}
	err = obj.PDF(pdf.w)
	if err != nil {
		return err
	}
	_, err = io.WriteString(pdf.w, "\nendobj\n")
	return err
}

// Close writes the cross-reference table and the trailer, and flushes all
// buffered data to the underlying writer.  The /Size entry of the trailer is
// set automatically.  The underlying writer is not closed.
func (pdf *Writer) Close(trailer Dict) error {
	if pdf.w == nil {
		return errors.New("writer already closed")
	}
	if trailer["Root"] == nil {
		return errors.New("missing /Root in trailer")
	}

	xRefPos := pdf.w.pos
	_, err := fmt.Fprintf(pdf.w, "xref\n0 %d\n", pdf.nextNumber)
	if err != nil {
		return err
	}
	_, err = io.WriteString(pdf.w, "0000000000 65535 f\r\n")
	if err != nil {
		return err
	}
	for i := uint32(1); i < pdf.nextNumber; i++ {
		pos, ok := pdf.xref[i]
		if ok {
			_, err = fmt.Fprintf(pdf.w, "%010d 00000 n\r\n", pos)
		} else {
			_, err = io.WriteString(pdf.w, "0000000000 00000 f\r\n")
		}
		if err != nil {
			return err
		}
	}

	trailer = trailer.Clone()
	trailer["Size"] = Integer(pdf.nextNumber)
	_, err = io.WriteString(pdf.w, "trailer\n")
	if err != nil {
		return err
	}
	err = trailer.PDF(pdf.w)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(pdf.w, "\nstartxref\n%d\n%%%%EOF\n", xRefPos)
	if err != nil {
		return err
	}

	err = pdf.w.w.Flush()
	pdf.w = nil
	return err
}

type posWriter struct {
	w   *bufio.Writer
	pos int64
}

func (w *posWriter) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	w.pos += int64(n)
	return n, err
}
