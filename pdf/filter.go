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
	"compress/flate"
	"compress/lzw"
	"compress/zlib"
	"encoding/ascii85"
	"errors"
	"fmt"
	"io"

	tiffLZW "golang.org/x/image/tiff/lzw"
)

// Filter describes one of the filters of a stream.
type Filter struct {
	Name  Name
	Parms Dict
}

// Filters returns the filters which need to be applied to decode the data
// of the given stream dictionary, in the order they are applied.
func Filters(r Getter, dict Dict) ([]Filter, error) {
	filterObj, err := Resolve(r, dict["Filter"])
	if err != nil {
		return nil, err
	}
	parmsObj, err := Resolve(r, dict["DecodeParms"])
	if err != nil {
		return nil, err
	}

	var res []Filter
	switch f := filterObj.(type) {
	case nil:
		return nil, nil
	case Name:
		parms, _ := GetDict(r, parmsObj)
		if a, isArray := parmsObj.(Array); isArray && len(a) > 0 {
			parms, _ = GetDict(r, a[0])
		}
		res = append(res, Filter{Name: f, Parms: parms})
	case Array:
		parmsArray, _ := parmsObj.(Array)
		for i, obj := range f {
			name, err := GetName(r, obj)
			if err != nil {
				return nil, err
			}
			var parms Dict
			if i < len(parmsArray) {
				parms, _ = GetDict(r, parmsArray[i])
			}
			res = append(res, Filter{Name: name, Parms: parms})
		}
	default:
		return nil, &MalformedFileError{
			Err: fmt.Errorf("invalid /Filter %s", Format(filterObj)),
		}
	}
	return res, nil
}

// ReadAll reads the stream data and removes all filters.
func ReadAll(r Getter, x *Stream) ([]byte, error) {
	if x == nil || x.R == nil {
		return nil, nil
	}
	filters, err := Filters(r, x.Dict)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(x.R)
	if err != nil {
		return nil, err
	}
	for _, f := range filters {
		data, err = f.Decode(data)
		if err != nil {
			return nil, err
		}
	}
	return data, nil
}

// Decode removes the filter from the given data.
func (f Filter) Decode(data []byte) ([]byte, error) {
	switch f.Name {
	case "FlateDecode", "Fl":
		res, err := inflate(data)
		if err != nil {
			return nil, err
		}
		return f.unpredict(res)
	case "LZWDecode", "LZW":
		res, err := f.lzwDecode(data)
		if err != nil {
			return nil, err
		}
		return f.unpredict(res)
	case "ASCIIHexDecode", "AHx":
		return asciiHexDecode(data), nil
	case "ASCII85Decode", "A85":
		return ascii85Decode(data)
	case "RunLengthDecode", "RL":
		return runLengthDecode(data), nil
	case "Crypt":
		// Only the identity crypt filter can occur in unencrypted files.
		return data, nil
	default:
		return nil, &UnsupportedFilterError{Name: f.Name}
	}
}

// Encode compresses data using the FlateDecode filter.
func Encode(data []byte) ([]byte, error) {
	buf := &bytes.Buffer{}
	zw, err := zlib.NewWriterLevel(buf, zlib.BestCompression)
	if err != nil {
		return nil, err
	}
	_, err = zw.Write(data)
	if err != nil {
		return nil, err
	}
	err = zw.Close()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// inflate decodes zlib data.  Truncated data is accepted, and some writers
// omit the zlib header.
func inflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if errors.Is(err, zlib.ErrHeader) {
		fr := flate.NewReader(bytes.NewReader(data))
		defer fr.Close()
		res, err := io.ReadAll(fr)
		if err != nil && len(res) == 0 {
			return nil, &MalformedFileError{Err: err}
		}
		return res, nil
	} else if err != nil {
		if len(data) == 0 {
			return nil, nil
		}
		return nil, &MalformedFileError{Err: err}
	}
	defer zr.Close()

	res, err := io.ReadAll(zr)
	if err != nil {
		if len(res) > 0 && (errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, zlib.ErrChecksum)) {
			return res, nil
		}
		return nil, &MalformedFileError{Err: err}
	}
	return res, nil
}

func (f Filter) lzwDecode(data []byte) ([]byte, error) {
	earlyChange := 1
	if x, isInt := f.Parms["EarlyChange"].(Integer); isInt {
		earlyChange = int(x)
	}

	var rc io.ReadCloser
	if earlyChange == 0 {
		rc = lzw.NewReader(bytes.NewReader(data), lzw.MSB, 8)
	} else {
		rc = tiffLZW.NewReader(bytes.NewReader(data), tiffLZW.MSB, 8)
	}
	defer rc.Close()
	res, err := io.ReadAll(rc)
	if err != nil && len(res) == 0 {
		return nil, &MalformedFileError{Err: err}
	}
	return res, nil
}

func (f Filter) intParm(key Name, defVal int) int {
	if x, isInt := f.Parms[key].(Integer); isInt && x > 0 && x < 1<<24 {
		return int(x)
	}
	return defVal
}

// unpredict removes TIFF and PNG predictors.
func (f Filter) unpredict(data []byte) ([]byte, error) {
	predictor := f.intParm("Predictor", 1)
	if predictor == 1 {
		return data, nil
	}
	colors := f.intParm("Colors", 1)
	bpc := f.intParm("BitsPerComponent", 8)
	columns := f.intParm("Columns", 1)

	bpp := (colors*bpc + 7) / 8
	rowLen := (colors*bpc*columns + 7) / 8

	if predictor == 2 {
		if bpc != 8 {
			return nil, &MalformedFileError{
				Err: fmt.Errorf("unsupported TIFF predictor with %d bits per component", bpc),
			}
		}
		for start := 0; start < len(data); start += rowLen {
			end := min(start+rowLen, len(data))
			row := data[start:end]
			for i := bpp; i < len(row); i++ {
				row[i] += row[i-bpp]
			}
		}
		return data, nil
	}
	if predictor < 10 {
		return nil, &MalformedFileError{
			Err: fmt.Errorf("unsupported predictor %d", predictor),
		}
	}

	res := make([]byte, 0, len(data))
	prev := make([]byte, rowLen)
	cur := make([]byte, rowLen)
	for len(data) > 0 {
		tp := data[0]
		n := copy(cur, data[1:])
		clear(cur[n:])
		data = data[min(len(data), 1+rowLen):]

		switch tp {
		case 0: // None
		case 1: // Sub
			for i := bpp; i < rowLen; i++ {
				cur[i] += cur[i-bpp]
			}
		case 2: // Up
			for i := range cur {
				cur[i] += prev[i]
			}
		case 3: // Average
			for i := range cur {
				var left byte
				if i >= bpp {
					left = cur[i-bpp]
				}
				cur[i] += byte((int(left) + int(prev[i])) / 2)
			}
		case 4: // Paeth
			for i := range cur {
				var a, c byte
				if i >= bpp {
					a = cur[i-bpp]
					c = prev[i-bpp]
				}
				cur[i] += paeth(a, prev[i], c)
			}
		default:
			return nil, &MalformedFileError{
				Err: fmt.Errorf("invalid PNG predictor type %d", tp),
			}
		}
		res = append(res, cur[:n]...)
		prev, cur = cur, prev
	}
	return res, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa := abs(p - int(a))
	pb := abs(p - int(b))
	pc := abs(p - int(c))
	if pa <= pb && pa <= pc {
		return a
	} else if pb <= pc {
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func asciiHexDecode(data []byte) []byte {
	res := make([]byte, 0, len(data)/2)
	var hi byte
	first := true
	for _, c := range data {
		var x byte
		switch {
		case c >= '0' && c <= '9':
			x = c - '0'
		case c >= 'a' && c <= 'f':
			x = c - 'a' + 10
		case c >= 'A' && c <= 'F':
			x = c - 'A' + 10
		case c == '>':
			if !first {
				res = append(res, hi<<4)
			}
			return res
		default:
			continue
		}
		if first {
			hi = x
		} else {
			res = append(res, hi<<4|x)
		}
		first = !first
	}
	if !first {
		res = append(res, hi<<4)
	}
	return res
}

func ascii85Decode(data []byte) ([]byte, error) {
	data = bytes.TrimLeft(data, "\x00\t\n\f\r ")
	data = bytes.TrimPrefix(data, []byte("<~"))
	if idx := bytes.Index(data, []byte("~>")); idx >= 0 {
		data = data[:idx]
	}
	res, err := io.ReadAll(ascii85.NewDecoder(bytes.NewReader(data)))
	if err != nil {
		return nil, &MalformedFileError{Err: err}
	}
	return res, nil
}

func runLengthDecode(data []byte) []byte {
	var res []byte
	for len(data) > 0 {
		n := int(data[0])
		data = data[1:]
		switch {
		case n == 128:
			return res
		case n < 128:
			k := min(n+1, len(data))
			res = append(res, data[:k]...)
			data = data[k:]
		default:
			if len(data) == 0 {
				return res
			}
			for i := 0; i < 257-n; i++ {
				res = append(res, data[0])
			}
			data = data[1:]
		}
	}
	return res
}
