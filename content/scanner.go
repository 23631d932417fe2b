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

package content

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"

	"seehuhn.de/go/redact/pdf"
)

// Error is returned when a content stream cannot be parsed.
type Error struct {
	Pos int
	Msg string
}

func (err *Error) Error() string {
	return fmt.Sprintf("content stream: %s at byte %d", err.Msg, err.Pos)
}

// Parse breaks a content stream into operators.
//
// Minor syntax errors, like unbalanced brackets, are ignored as much as
// possible.  An error is returned for unterminated strings and inline images,
// since the remaining content cannot be interpreted reliably after these.
func Parse(data []byte) ([]Operator, error) {
	s := &scanner{data: data}
	var res []Operator

	type stackFrame struct {
		data   []pdf.Object
		isDict bool
	}
	var stack []*stackFrame
	var args []pdf.Object

	for {
		obj, err := s.nextToken()
		if err != nil {
			return nil, err
		}
		if obj == eof {
			break
		}

		switch obj {
		case operator("<<"):
			stack = append(stack, &stackFrame{isDict: true})
			continue
		case operator(">>"):
			if len(stack) == 0 || !stack[len(stack)-1].isDict {
				// unexpected '>>'
				continue
			}
			entry := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			dict := pdf.Dict{}
			for i := 0; i+1 < len(entry.data); i += 2 {
				key, ok := entry.data[i].(pdf.Name)
				if !ok {
					continue
				}
				if val := entry.data[i+1]; val != nil {
					dict[key] = val
				}
			}
			obj = dict
		case operator("["):
			stack = append(stack, &stackFrame{})
			continue
		case operator("]"):
			if len(stack) == 0 || stack[len(stack)-1].isDict {
				// unexpected "]"
				continue
			}
			obj = pdf.Array(stack[len(stack)-1].data)
			if obj.(pdf.Array) == nil {
				obj = pdf.Array{}
			}
			stack = stack[:len(stack)-1]
		}

		if len(stack) > 0 { // we are inside a dict or array
			top := stack[len(stack)-1]
			top.data = append(top.data, obj)
			continue
		}

		op, isOp := obj.(operator)
		if !isOp {
			args = append(args, obj)
			continue
		}

		if op == "BI" {
			img, err := s.readInlineImage()
			if err != nil {
				return nil, err
			}
			res = append(res, img)
			args = nil
			continue
		}

		res = append(res, Operator{Name: string(op), Args: args})
		args = nil
	}

	// trailing operands without an operator are dropped
	return res, nil
}

type scanner struct {
	data []byte
	pos  int
}

// operator is a PDF operator, or a delimiter, found in a content stream.
type operator string

// PDF implements the [pdf.Object] interface.
func (x operator) PDF(w io.Writer) error {
	_, err := io.WriteString(w, string(x))
	return err
}

// eof marks the end of the content stream.
const eof = operator("")

func (s *scanner) nextToken() (pdf.Object, error) {
	s.skipWhiteSpace()
	if s.pos >= len(s.data) {
		return eof, nil
	}

	c := s.data[s.pos]
	switch {
	case c == '/':
		s.pos++
		return s.readName(), nil
	case c == '(':
		s.pos++
		return s.readString()
	case c == '<' && s.pos+1 < len(s.data) && s.data[s.pos+1] == '<':
		s.pos += 2
		return operator("<<"), nil
	case c == '<':
		s.pos++
		return s.readHexString()
	case c == '>' && s.pos+1 < len(s.data) && s.data[s.pos+1] == '>':
		s.pos += 2
		return operator(">>"), nil
	case class[c] == delimiter:
		// '[', ']', '{', '}' and stray ')' or '>'
		s.pos++
		return operator(string(c)), nil
	}

	start := s.pos
	for s.pos < len(s.data) && class[s.data[s.pos]] == regular {
		s.pos++
	}
	word := s.data[start:s.pos]

	if x := parseNumber(word); x != nil {
		return x, nil
	}
	switch string(word) {
	case "false":
		return pdf.Boolean(false), nil
	case "true":
		return pdf.Boolean(true), nil
	case "null":
		return nil, nil
	}
	return operator(word), nil
}

func (s *scanner) skipWhiteSpace() {
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		if class[c] == space {
			s.pos++
		} else if c == '%' {
			for s.pos < len(s.data) && s.data[s.pos] != '\n' && s.data[s.pos] != '\r' {
				s.pos++
			}
		} else {
			break
		}
	}
}

// readString reads a literal string, after the opening parenthesis.
func (s *scanner) readString() (pdf.String, error) {
	start := s.pos - 1
	var res []byte
	level := 1
	for {
		if s.pos >= len(s.data) {
			return nil, &Error{Pos: start, Msg: "unterminated string"}
		}
		c := s.data[s.pos]
		s.pos++
		switch c {
		case '(':
			level++
		case ')':
			level--
			if level == 0 {
				return pdf.String(res), nil
			}
		case '\r':
			if s.pos < len(s.data) && s.data[s.pos] == '\n' {
				s.pos++
			}
			c = '\n'
		case '\\':
			if s.pos >= len(s.data) {
				return nil, &Error{Pos: start, Msg: "unterminated string"}
			}
			c = s.data[s.pos]
			s.pos++
			switch c {
			case 'n':
				c = '\n'
			case 'r':
				c = '\r'
			case 't':
				c = '\t'
			case 'b':
				c = '\b'
			case 'f':
				c = '\f'
			case '\r':
				if s.pos < len(s.data) && s.data[s.pos] == '\n' {
					s.pos++
				}
				continue
			case '\n':
				continue
			case '0', '1', '2', '3', '4', '5', '6', '7':
				oct := int(c - '0')
				for i := 0; i < 2 && s.pos < len(s.data); i++ {
					d := s.data[s.pos]
					if d < '0' || d > '7' {
						break
					}
					oct = oct*8 + int(d-'0')
					s.pos++
				}
				c = byte(oct)
			}
		}
		res = append(res, c)
	}
}

func (s *scanner) readHexString() (pdf.String, error) {
	start := s.pos - 1
	var res []byte
	first := true
	var hi byte
	for {
		if s.pos >= len(s.data) {
			return nil, &Error{Pos: start, Msg: "unterminated hex string"}
		}
		c := s.data[s.pos]
		s.pos++

		var lo byte
		switch {
		case c == '>':
			if !first {
				res = append(res, hi)
			}
			return pdf.String(res), nil
		case class[c] == space:
			continue
		case c >= '0' && c <= '9':
			lo = c - '0'
		case c >= 'A' && c <= 'F':
			lo = c - 'A' + 10
		case c >= 'a' && c <= 'f':
			lo = c - 'a' + 10
		default:
			return nil, &Error{Pos: s.pos - 1, Msg: "invalid character in hex string"}
		}
		if first {
			hi = lo << 4
		} else {
			res = append(res, hi|lo)
		}
		first = !first
	}
}

// readName reads a name, after the leading slash.
func (s *scanner) readName() pdf.Name {
	var name []byte
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		if class[c] != regular {
			break
		}
		if c == '#' && s.pos+2 < len(s.data) {
			if x, err := strconv.ParseUint(string(s.data[s.pos+1:s.pos+3]), 16, 8); err == nil {
				name = append(name, byte(x))
				s.pos += 3
				continue
			}
		}
		name = append(name, c)
		s.pos++
	}
	return pdf.Name(name)
}

// readInlineImage reads an inline image, after the "BI" operator.
func (s *scanner) readInlineImage() (Operator, error) {
	start := s.pos
	dict := pdf.Dict{}
	var key pdf.Name
	haveKey := false
dictLoop:
	for {
		obj, err := s.nextToken()
		if err != nil {
			return Operator{}, err
		}
		if obj == eof {
			return Operator{}, &Error{Pos: start, Msg: "unterminated inline image"}
		}
		if op, isOp := obj.(operator); isOp {
			switch op {
			case "ID":
				break dictLoop
			case "[", "<<":
				obj, err = s.readCompound(op)
				if err != nil {
					return Operator{}, err
				}
			default:
				return Operator{}, &Error{Pos: s.pos, Msg: "unexpected " + string(op) + " in inline image"}
			}
		}
		if !haveKey {
			name, ok := obj.(pdf.Name)
			if !ok {
				return Operator{}, &Error{Pos: s.pos, Msg: "invalid key in inline image"}
			}
			key = name
			haveKey = true
		} else {
			if obj != nil {
				dict[key] = obj
			}
			haveKey = false
		}
	}

	// a single white-space character follows the ID operator
	if s.pos < len(s.data) && class[s.data[s.pos]] == space {
		s.pos++
	}
	dataStart := s.pos

	if n := inlineImageSize(dict); n > 0 && dataStart+n <= len(s.data) {
		end := dataStart + n
		pos := end
		for pos < len(s.data) && class[s.data[pos]] == space {
			pos++
		}
		if isEIAt(s.data, pos) {
			s.pos = pos + 2
			return Operator{Name: "BI", Args: []pdf.Object{dict}, Data: s.data[dataStart:end]}, nil
		}
	}

	for i := dataStart + 1; i+2 <= len(s.data); i++ {
		if class[s.data[i-1]] == space && isEIAt(s.data, i) {
			end := i - 1
			if end > dataStart && s.data[end-1] == '\r' && s.data[end] == '\n' {
				end--
			}
			s.pos = i + 2
			return Operator{Name: "BI", Args: []pdf.Object{dict}, Data: s.data[dataStart:end]}, nil
		}
	}
	return Operator{}, &Error{Pos: start, Msg: "unterminated inline image"}
}

// readCompound reads the remainder of an array or dictionary, after the
// opening delimiter.
func (s *scanner) readCompound(open operator) (pdf.Object, error) {
	closing := operator("]")
	if open == "<<" {
		closing = ">>"
	}
	var elems []pdf.Object
	for {
		obj, err := s.nextToken()
		if err != nil {
			return nil, err
		}
		switch obj {
		case eof:
			return nil, &Error{Pos: s.pos, Msg: "unterminated " + string(open)}
		case closing:
			if open == "[" {
				return pdf.Array(append(pdf.Array{}, elems...)), nil
			}
			dict := pdf.Dict{}
			for i := 0; i+1 < len(elems); i += 2 {
				if key, ok := elems[i].(pdf.Name); ok && elems[i+1] != nil {
					dict[key] = elems[i+1]
				}
			}
			return dict, nil
		case operator("["), operator("<<"):
			obj, err = s.readCompound(obj.(operator))
			if err != nil {
				return nil, err
			}
		}
		elems = append(elems, obj)
	}
}

func isEIAt(data []byte, pos int) bool {
	if pos+2 > len(data) || data[pos] != 'E' || data[pos+1] != 'I' {
		return false
	}
	return pos+2 == len(data) || class[data[pos+2]] != regular
}

// inlineImageSize returns the size of the image data of an unfiltered inline
// image, or 0 if the size cannot be determined.
func inlineImageSize(dict pdf.Dict) int {
	if dict["F"] != nil || dict["Filter"] != nil {
		return 0
	}
	get := func(short, long pdf.Name) pdf.Object {
		if val, ok := dict[short]; ok {
			return val
		}
		return dict[long]
	}
	w, ok1 := get("W", "Width").(pdf.Integer)
	h, ok2 := get("H", "Height").(pdf.Integer)
	if !ok1 || !ok2 || w <= 0 || h <= 0 || w > 1<<16 || h > 1<<16 {
		return 0
	}

	isMask, _ := get("IM", "ImageMask").(pdf.Boolean)
	bpc := 1
	colors := 1
	if !isMask {
		b, ok := get("BPC", "BitsPerComponent").(pdf.Integer)
		if !ok {
			return 0
		}
		bpc = int(b)
		switch get("CS", "ColorSpace") {
		case pdf.Name("G"), pdf.Name("DeviceGray"), pdf.Name("CalGray"):
			colors = 1
		case pdf.Name("RGB"), pdf.Name("DeviceRGB"), pdf.Name("CalRGB"):
			colors = 3
		case pdf.Name("CMYK"), pdf.Name("DeviceCMYK"):
			colors = 4
		default:
			return 0
		}
	}
	return (int(w)*colors*bpc + 7) / 8 * int(h)
}

// parseNumber tries to interpret s as a number.
// The function returns [pdf.Integer] or [pdf.Real] in case s is a valid
// number, and nil otherwise.
func parseNumber(s []byte) pdf.Object {
	if len(s) == 0 {
		return nil
	}
	x, err := strconv.ParseInt(string(s), 10, 64)
	if err == nil {
		return pdf.Integer(x)
	}

	// accept some malformed numbers found in the wild, like "--1" and "4.-"
	neg := false
	for len(s) > 0 && (s[0] == '+' || s[0] == '-') {
		neg = neg != (s[0] == '-')
		s = s[1:]
	}
	s = bytes.TrimRight(s, "+-")
	if len(s) == 0 {
		return nil
	}
	for _, c := range s {
		if c != '.' && (c < '0' || c > '9') {
			return nil
		}
	}
	if bytes.Count(s, []byte(".")) > 1 || len(s) == 1 && s[0] == '.' {
		return nil
	}
	y, err := strconv.ParseFloat(string(s), 64)
	if err != nil || math.IsInf(y, 0) || math.IsNaN(y) {
		return nil
	}
	if neg {
		y = -y
	}
	return pdf.Real(y)
}

type characterClass byte

const (
	regular characterClass = iota
	space
	delimiter
)

var class = func() [256]characterClass {
	var res [256]characterClass
	for _, c := range []byte{0, 9, 10, 12, 13, 32} {
		res[c] = space
	}
	for _, c := range []byte("()<>[]{}/%") {
		res[c] = delimiter
	}
	return res
}()
