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

package redact

import (
	"errors"
	"fmt"

	"seehuhn.de/go/geom/rect"
)

// InputError is returned by [Open] if a file cannot be used as input.
// This includes missing files, files which are not PDF files, encrypted
// files and files without pages.
type InputError struct {
	Path string
	Err  error
}

func (err *InputError) Error() string {
	return fmt.Sprintf("cannot open %q: %v", err.Path, err.Err)
}

func (err *InputError) Unwrap() error {
	return err.Err
}

// IOError is returned by [Apply] if the output file cannot be written.
type IOError struct {
	Path string
	Err  error
}

func (err *IOError) Error() string {
	return fmt.Sprintf("cannot write %q: %v", err.Path, err.Err)
}

func (err *IOError) Unwrap() error {
	return err.Err
}

// EncodingError is returned by [Apply] if the page content cannot be
// processed.
type EncodingError struct {
	// Index is the position of the redaction rectangle which required the
	// damaged content to be processed, or -1 if no single rectangle is
	// responsible.
	Index int

	// Rect is the rectangle at position Index, in page coordinates.
	Rect rect.Rect

	Err error
}

func (err *EncodingError) Error() string {
	if err.Index < 0 {
		return fmt.Sprintf("cannot redact page: %v", err.Err)
	}
	return fmt.Sprintf("cannot redact rectangle %d %v: %v", err.Index, err.Rect, err.Err)
}

func (err *EncodingError) Unwrap() error {
	return err.Err
}

// ErrSameFile indicates an attempt to overwrite the input file.
var ErrSameFile = errors.New("output file must differ from the input file")
