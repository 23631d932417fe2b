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

// Package content reads and writes PDF content streams.
//
// A content stream is represented as a sequence of [Operator] values.
// Parsing and formatting are inverse operations, up to white space and
// the representation of numbers, so that a content stream can be modified
// by editing the operator list.
package content

import (
	"bytes"
	"io"
	"slices"

	"seehuhn.de/go/redact/pdf"
)

// Operator is one operator of a content stream, together with its operands.
type Operator struct {
	Name string
	Args []pdf.Object

	// Data holds the image data of an inline image.  For inline images,
	// Name is "BI" and Args holds the image dictionary as a single
	// [pdf.Dict], with the abbreviated keys used in the content stream.
	Data []byte
}

// Write writes the operators to w in content stream syntax.
func Write(w io.Writer, ops []Operator) error {
	buf := &bytes.Buffer{}
	for _, op := range ops {
		buf.Reset()
		if op.Name == "BI" {
			writeInlineImage(buf, op)
		} else {
			for _, arg := range op.Args {
				writeArg(buf, arg)
				buf.WriteByte(' ')
			}
			buf.WriteString(op.Name)
			buf.WriteByte('\n')
		}
		_, err := w.Write(buf.Bytes())
		if err != nil {
			return err
		}
	}
	return nil
}

// Format returns the content stream representation of the operators.
func Format(ops []Operator) []byte {
	buf := &bytes.Buffer{}
	_ = Write(buf, ops) // writing to a bytes.Buffer cannot fail
	return buf.Bytes()
}

func writeInlineImage(buf *bytes.Buffer, op Operator) {
	buf.WriteString("BI\n")
	if len(op.Args) > 0 {
		if dict, ok := op.Args[0].(pdf.Dict); ok {
			// keep the order stable
			keys := make([]string, 0, len(dict))
			for key := range dict {
				keys = append(keys, string(key))
			}
			slices.Sort(keys)
			for _, key := range keys {
				val := dict[pdf.Name(key)]
				if val == nil {
					continue
				}
				writeArg(buf, pdf.Name(key))
				buf.WriteByte(' ')
				writeArg(buf, val)
				buf.WriteByte('\n')
			}
		}
	}
	buf.WriteString("ID ")
	buf.Write(op.Data)
	buf.WriteString("\nEI\n")
}

func writeArg(buf *bytes.Buffer, obj pdf.Object) {
	switch obj := obj.(type) {
	case nil:
		buf.WriteString("null")
	case pdf.Real:
		buf.WriteString(pdf.FormatReal(float64(obj)))
	case pdf.Array:
		buf.WriteByte('[')
		for i, elem := range obj {
			if i > 0 {
				buf.WriteByte(' ')
			}
			writeArg(buf, elem)
		}
		buf.WriteByte(']')
	case pdf.Dict:
		keys := make([]string, 0, len(obj))
		for key, val := range obj {
			if val != nil {
				keys = append(keys, string(key))
			}
		}
		slices.Sort(keys)
		buf.WriteString("<<")
		for _, key := range keys {
			writeArg(buf, pdf.Name(key))
			buf.WriteByte(' ')
			writeArg(buf, obj[pdf.Name(key)])
		}
		buf.WriteString(">>")
	default:
		_ = obj.PDF(buf)
	}
}
