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
	"strconv"
)

const scannerBufSize = 4096

// maxNesting limits the depth of nested arrays and dictionaries.
const maxNesting = 256

// scanner reads PDF objects from a section of a file.
type scanner struct {
	r    io.ReaderAt
	size int64

	base int64 // file offset of buf[0]
	buf  []byte
	pos  int // next unread byte in buf
	used int // number of valid bytes in buf
	eof  bool

	// getInt resolves the /Length entry of stream dictionaries.
	// If this is nil, or fails, the end of the stream data is located
	// by searching for the "endstream" keyword.
	getInt func(Object) (Integer, error)

	depth int
}

func newScanner(r io.ReaderAt, size int64, start int64, getInt func(Object) (Integer, error)) *scanner {
	return &scanner{
		r:      r,
		size:   size,
		base:   start,
		buf:    make([]byte, scannerBufSize),
		getInt: getInt,
	}
}

// currentPos returns the file offset of the next unread byte.
func (s *scanner) currentPos() int64 {
	return s.base + int64(s.pos)
}

// seek moves the scanner to the given file offset.
func (s *scanner) seek(pos int64) {
	s.base = pos
	s.pos = 0
	s.used = 0
	s.eof = false
}

// refill discards the consumed part of the buffer and reads more data.
func (s *scanner) refill() error {
	if s.eof {
		return io.EOF
	}
	if s.pos > 0 {
		copy(s.buf, s.buf[s.pos:s.used])
		s.base += int64(s.pos)
		s.used -= s.pos
		s.pos = 0
	}
	if s.used == len(s.buf) {
		newBuf := make([]byte, 2*len(s.buf))
		copy(newBuf, s.buf[:s.used])
		s.buf = newBuf
	}

	start := s.base + int64(s.used)
	want := len(s.buf) - s.used
	if rest := s.size - start; rest < int64(want) {
		if rest <= 0 {
			s.eof = true
			return io.EOF
		}
		want = int(rest)
	}
	n, err := s.r.ReadAt(s.buf[s.used:s.used+want], start)
	s.used += n
	if err == io.EOF || start+int64(n) >= s.size {
		s.eof = true
		err = nil
	}
	if n == 0 && err == nil && s.eof {
		return io.EOF
	}
	return err
}

// peek returns the next n bytes without consuming them.  Fewer bytes are
// returned at the end of input.
func (s *scanner) peek(n int) ([]byte, error) {
	for s.pos+n > s.used && !s.eof {
		err := s.refill()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
	}
	end := s.pos + n
	if end > s.used {
		end = s.used
	}
	return s.buf[s.pos:end], nil
}

// next returns the next byte, or -1 at the end of input.
func (s *scanner) next() (int, error) {
	if s.pos >= s.used {
		err := s.refill()
		if err == io.EOF || s.pos >= s.used {
			return -1, nil
		} else if err != nil {
			return -1, err
		}
	}
	c := s.buf[s.pos]
	s.pos++
	return int(c), nil
}

// scanBytes consumes bytes as long as accept returns true.
func (s *scanner) scanBytes(accept func(c byte) bool) ([]byte, error) {
	var res []byte
	for {
		for i := s.pos; i < s.used; i++ {
			if !accept(s.buf[i]) {
				res = append(res, s.buf[s.pos:i]...)
				s.pos = i
				return res, nil
			}
		}
		res = append(res, s.buf[s.pos:s.used]...)
		s.pos = s.used
		err := s.refill()
		if err == io.EOF {
			return res, nil
		} else if err != nil {
			return res, err
		}
	}
}

// skipWhiteSpace skips white space and comments.
func (s *scanner) skipWhiteSpace() error {
	for {
		_, err := s.scanBytes(isSpace)
		if err != nil {
			return err
		}
		buf, err := s.peek(1)
		if err != nil {
			return err
		}
		if len(buf) == 0 || buf[0] != '%' {
			return nil
		}
		_, err = s.scanBytes(func(c byte) bool { return c != '\r' && c != '\n' })
		if err != nil {
			return err
		}
	}
}

// skipString consumes the given keyword, if present.
func (s *scanner) skipString(pat string) (bool, error) {
	buf, err := s.peek(len(pat))
	if err != nil {
		return false, err
	}
	if string(buf) != pat {
		return false, nil
	}
	s.pos += len(pat)
	return true, nil
}

// skipKeyword consumes the given keyword, if present and not followed by
// a regular character.
func (s *scanner) skipKeyword(kw string) (bool, error) {
	buf, err := s.peek(len(kw) + 1)
	if err != nil {
		return false, err
	}
	if len(buf) < len(kw) || string(buf[:len(kw)]) != kw {
		return false, nil
	}
	if len(buf) > len(kw) && class[buf[len(kw)]] == regular {
		return false, nil
	}
	s.pos += len(kw)
	return true, nil
}

func (s *scanner) malformed(format string, args ...any) error {
	return &MalformedFileError{
		Err: fmt.Errorf(format, args...),
		Pos: s.currentPos(),
	}
}

// readIndirectObject reads an object of the form "n g obj ... endobj".
func (s *scanner) readIndirectObject() (Object, Reference, error) {
	err := s.skipWhiteSpace()
	if err != nil {
		return nil, 0, err
	}
	number, err := s.readUint()
	if err != nil {
		return nil, 0, err
	}
	err = s.skipWhiteSpace()
	if err != nil {
		return nil, 0, err
	}
	gen, err := s.readUint()
	if err != nil {
		return nil, 0, err
	}
	if number > 0xFFFFFFFF || gen > 0xFFFF {
		return nil, 0, s.malformed("invalid object number %d %d", number, gen)
	}
	ref := NewReference(uint32(number), uint16(gen))
	err = s.skipWhiteSpace()
	if err != nil {
		return nil, 0, err
	}
	ok, err := s.skipKeyword("obj")
	if err != nil {
		return nil, 0, err
	}
	if !ok {
		return nil, 0, s.malformed("missing \"obj\" for %s", ref)
	}

	obj, err := s.readObject()
	if err != nil {
		return nil, 0, err
	}
	if dict, isDict := obj.(Dict); isDict {
		err = s.skipWhiteSpace()
		if err != nil {
			return nil, 0, err
		}
		isStream, err := s.skipKeyword("stream")
		if err != nil {
			return nil, 0, err
		}
		if isStream {
			obj, err = s.readStreamData(dict)
			if err != nil {
				return nil, 0, err
			}
		}
	}

	// A missing "endobj" is tolerated.
	err = s.skipWhiteSpace()
	if err != nil {
		return nil, 0, err
	}
	_, err = s.skipKeyword("endobj")
	if err != nil {
		return nil, 0, err
	}
	return obj, ref, nil
}

func (s *scanner) readUint() (uint64, error) {
	digits, err := s.scanBytes(func(c byte) bool { return c >= '0' && c <= '9' })
	if err != nil {
		return 0, err
	}
	if len(digits) == 0 {
		return 0, s.malformed("number expected")
	}
	x, err := strconv.ParseUint(string(digits), 10, 64)
	if err != nil {
		return 0, s.malformed("invalid number %q", digits)
	}
	return x, nil
}

// readObject reads a direct object.  References are recognised.
func (s *scanner) readObject() (Object, error) {
	err := s.skipWhiteSpace()
	if err != nil {
		return nil, err
	}
	buf, err := s.peek(2)
	if err != nil {
		return nil, err
	}
	if len(buf) == 0 {
		return nil, s.malformed("unexpected end of input")
	}

	switch c := buf[0]; {
	case c == '/':
		return s.readName()
	case c == '(':
		return s.readLiteralString()
	case c == '<' && len(buf) > 1 && buf[1] == '<':
		return s.readDict()
	case c == '<':
		return s.readHexString()
	case c == '[':
		return s.readArray()
	case c == '+' || c == '-' || c == '.' || c >= '0' && c <= '9':
		return s.readNumberOrReference()
	}

	word, err := s.scanBytes(func(c byte) bool { return class[c] == regular })
	if err != nil {
		return nil, err
	}
	switch string(word) {
	case "null":
		return nil, nil
	case "true":
		return Boolean(true), nil
	case "false":
		return Boolean(false), nil
	case "":
		c, _ := s.next()
		return nil, s.malformed("unexpected character %q", rune(c))
	default:
		return nil, s.malformed("unexpected keyword %q", word)
	}
}

func (s *scanner) readNumberOrReference() (Object, error) {
	word, err := s.scanBytes(func(c byte) bool {
		return c >= '0' && c <= '9' || c == '.' || c == '+' || c == '-'
	})
	if err != nil {
		return nil, err
	}
	x, ok := parseNumber(word)
	if !ok {
		return nil, s.malformed("invalid number %q", word)
	}
	if n, isInt := x.(Integer); isInt && n >= 0 {
		ref, found, err := s.tryReference(n)
		if err != nil {
			return nil, err
		}
		if found {
			return ref, nil
		}
	}
	return x, nil
}

// tryReference checks whether the input continues with "g R", after an
// object number has been read.
func (s *scanner) tryReference(number Integer) (Reference, bool, error) {
	buf, err := s.peek(32)
	if err != nil {
		return 0, false, err
	}
	i := 0
	skip := func() int {
		start := i
		for i < len(buf) && isSpace(buf[i]) {
			i++
		}
		return i - start
	}
	if skip() == 0 {
		return 0, false, nil
	}
	start := i
	for i < len(buf) && buf[i] >= '0' && buf[i] <= '9' {
		i++
	}
	if i == start {
		return 0, false, nil
	}
	gen, err := strconv.ParseUint(string(buf[start:i]), 10, 16)
	if err != nil {
		return 0, false, nil
	}
	if skip() == 0 || i >= len(buf) || buf[i] != 'R' {
		return 0, false, nil
	}
	i++
	if i < len(buf) && class[buf[i]] == regular {
		return 0, false, nil
	}
	if number > 0xFFFFFFFF {
		return 0, false, nil
	}
	s.pos += i
	return NewReference(uint32(number), uint16(gen)), true, nil
}

// parseNumber converts a PDF number token into an Integer or Real.
// Some malformed numbers found in the wild, like "--5" or "5.-", are
// accepted.
func parseNumber(word []byte) (Object, bool) {
	if len(word) == 0 {
		return nil, false
	}
	isReal := bytes.IndexByte(word, '.') >= 0
	if !isReal {
		x, err := strconv.ParseInt(string(word), 10, 64)
		if err == nil {
			return Integer(x), true
		}
	}

	neg := false
	for len(word) > 0 && (word[0] == '-' || word[0] == '+') {
		if word[0] == '-' {
			neg = !neg
		}
		word = word[1:]
	}
	for len(word) > 0 && (word[len(word)-1] == '-' || word[len(word)-1] == '+') {
		word = word[:len(word)-1]
	}
	if len(word) == 0 || bytes.ContainsAny(word, "+-") {
		return nil, false
	}
	x, err := strconv.ParseFloat(string(word), 64)
	if err != nil {
		return nil, false
	}
	if neg {
		x = -x
	}
	return Real(x), true
}

func (s *scanner) readName() (Name, error) {
	_, err := s.next() // skip '/'
	if err != nil {
		return "", err
	}
	raw, err := s.scanBytes(func(c byte) bool { return class[c] == regular })
	if err != nil {
		return "", err
	}
	return decodeName(raw), nil
}

func decodeName(raw []byte) Name {
	if bytes.IndexByte(raw, '#') < 0 {
		return Name(raw)
	}
	res := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c == '#' && i+2 < len(raw) {
			if x, err := strconv.ParseUint(string(raw[i+1:i+3]), 16, 8); err == nil {
				res = append(res, byte(x))
				i += 2
				continue
			}
		}
		res = append(res, c)
	}
	return Name(res)
}

func (s *scanner) readLiteralString() (String, error) {
	_, err := s.next() // skip '('
	if err != nil {
		return nil, err
	}
	var res []byte
	level := 1
	for {
		c, err := s.next()
		if err != nil {
			return nil, err
		}
		switch c {
		case -1:
			return nil, s.malformed("unterminated string")
		case '(':
			level++
		case ')':
			level--
			if level == 0 {
				return String(res), nil
			}
		case '\r':
			// end-of-line markers are normalised to '\n'
			buf, err := s.peek(1)
			if err != nil {
				return nil, err
			}
			if len(buf) > 0 && buf[0] == '\n' {
				s.pos++
			}
			c = '\n'
		case '\\':
			c, err = s.next()
			if err != nil {
				return nil, err
			}
			switch c {
			case -1:
				return nil, s.malformed("unterminated string")
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
				buf, err := s.peek(1)
				if err != nil {
					return nil, err
				}
				if len(buf) > 0 && buf[0] == '\n' {
					s.pos++
				}
				continue
			case '\n':
				continue
			case '0', '1', '2', '3', '4', '5', '6', '7':
				x := c - '0'
				for k := 0; k < 2; k++ {
					buf, err := s.peek(1)
					if err != nil {
						return nil, err
					}
					if len(buf) == 0 || buf[0] < '0' || buf[0] > '7' {
						break
					}
					x = 8*x + int(buf[0]-'0')
					s.pos++
				}
				c = x & 0xFF
			}
		}
		res = append(res, byte(c))
	}
}

func (s *scanner) readHexString() (String, error) {
	_, err := s.next() // skip '<'
	if err != nil {
		return nil, err
	}
	var res []byte
	first := true
	var hi byte
	for {
		c, err := s.next()
		if err != nil {
			return nil, err
		}
		var x byte
		switch {
		case c == '>':
			if !first {
				res = append(res, hi<<4)
			}
			return String(res), nil
		case c == -1:
			return nil, s.malformed("unterminated hex string")
		case c >= '0' && c <= '9':
			x = byte(c - '0')
		case c >= 'a' && c <= 'f':
			x = byte(c - 'a' + 10)
		case c >= 'A' && c <= 'F':
			x = byte(c - 'A' + 10)
		case isSpace(byte(c)):
			continue
		default:
			return nil, s.malformed("invalid character %q in hex string", rune(c))
		}
		if first {
			hi = x
		} else {
			res = append(res, hi<<4|x)
		}
		first = !first
	}
}

func (s *scanner) readArray() (Array, error) {
	_, err := s.next() // skip '['
	if err != nil {
		return nil, err
	}
	s.depth++
	defer func() { s.depth-- }()
	if s.depth > maxNesting {
		return nil, s.malformed("objects nested too deeply")
	}

	res := Array{}
	for {
		err := s.skipWhiteSpace()
		if err != nil {
			return nil, err
		}
		buf, err := s.peek(1)
		if err != nil {
			return nil, err
		}
		if len(buf) == 0 {
			return nil, s.malformed("unterminated array")
		}
		if buf[0] == ']' {
			s.pos++
			return res, nil
		}
		obj, err := s.readObject()
		if err != nil {
			return nil, err
		}
		res = append(res, obj)
	}
}

func (s *scanner) readDict() (Dict, error) {
	s.pos += 2 // skip "<<", which peek has already made available
	s.depth++
	defer func() { s.depth-- }()
	if s.depth > maxNesting {
		return nil, s.malformed("objects nested too deeply")
	}

	res := Dict{}
	for {
		err := s.skipWhiteSpace()
		if err != nil {
			return nil, err
		}
		buf, err := s.peek(2)
		if err != nil {
			return nil, err
		}
		if len(buf) == 0 {
			return nil, s.malformed("unterminated dictionary")
		}
		if string(buf) == ">>" {
			s.pos += 2
			return res, nil
		}
		if buf[0] != '/' {
			// skip a stray value, as some writers do
			_, err := s.readObject()
			if err != nil {
				return nil, err
			}
			continue
		}
		key, err := s.readName()
		if err != nil {
			return nil, err
		}
		err = s.skipWhiteSpace()
		if err != nil {
			return nil, err
		}
		buf, err = s.peek(2)
		if err != nil {
			return nil, err
		}
		if string(buf) == ">>" {
			// missing value
			s.pos += 2
			return res, nil
		}
		val, err := s.readObject()
		if err != nil {
			return nil, err
		}
		if val != nil {
			res[key] = val
		}
	}
}

// readStreamData reads the data of a stream, after the "stream" keyword has
// been consumed.
func (s *scanner) readStreamData(dict Dict) (*Stream, error) {
	// The keyword is followed by CRLF or LF, but some writers use CR alone.
	buf, err := s.peek(2)
	if err != nil {
		return nil, err
	}
	if len(buf) > 0 && buf[0] == '\r' {
		s.pos++
		if len(buf) > 1 && buf[1] == '\n' {
			s.pos++
		}
	} else if len(buf) > 0 && buf[0] == '\n' {
		s.pos++
	}
	start := s.currentPos()

	length := int64(-1)
	if s.getInt != nil {
		if l, err := s.getInt(dict["Length"]); err == nil && l >= 0 {
			length = int64(l)
		}
	}
	if length >= 0 && !s.hasEndstreamAt(start+length) {
		length = -1
	}
	end := start + length
	if length < 0 {
		end, err = s.findEndstream(start)
		if err != nil {
			return nil, err
		}
		length = end - start
		// remove the end-of-line marker before "endstream"
		tail := make([]byte, 2)
		if length >= 2 {
			_, err := s.r.ReadAt(tail, end-2)
			if err == nil {
				if tail[1] == '\n' || tail[1] == '\r' {
					length--
					if tail[1] == '\n' && tail[0] == '\r' {
						length--
					}
				}
			}
		}
	}

	s.seek(end)
	err = s.skipWhiteSpace()
	if err != nil {
		return nil, err
	}
	_, err = s.skipKeyword("endstream")
	if err != nil {
		return nil, err
	}

	res := &Stream{
		Dict: dict,
		R:    io.NewSectionReader(s.r, start, length),
	}
	return res, nil
}

// hasEndstreamAt checks whether the "endstream" keyword follows at pos,
// possibly after white space.
func (s *scanner) hasEndstreamAt(pos int64) bool {
	if pos > s.size {
		return false
	}
	buf := make([]byte, 32)
	n, err := s.r.ReadAt(buf, pos)
	if err != nil && !errors.Is(err, io.EOF) {
		return false
	}
	buf = bytes.TrimLeft(buf[:n], "\x00\t\n\f\r ")
	return bytes.HasPrefix(buf, []byte("endstream"))
}

// findEndstream returns the file offset of the next "endstream" keyword.
func (s *scanner) findEndstream(start int64) (int64, error) {
	const chunk = 64 * 1024
	kw := []byte("endstream")
	buf := make([]byte, chunk+len(kw))
	for pos := start; pos < s.size; pos += chunk {
		n, err := s.r.ReadAt(buf, pos)
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, err
		}
		if idx := bytes.Index(buf[:n], kw); idx >= 0 {
			return pos + int64(idx), nil
		}
		if n < len(buf) {
			break
		}
	}
	return 0, &MalformedFileError{
		Err: errors.New("missing \"endstream\""),
		Pos: start,
	}
}

func isSpace(c byte) bool {
	return class[c] == space
}

type charClass uint8

const (
	regular charClass = iota
	space
	delimiter
)

var class = func() [256]charClass {
	var res [256]charClass
	for _, c := range []byte{0, 9, 10, 12, 13, 32} {
		res[c] = space
	}
	for _, c := range []byte("()<>[]{}/%") {
		res[c] = delimiter
	}
	return res
}()
