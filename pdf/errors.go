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
	"errors"
	"strconv"
	"strings"
)

// MalformedFileError indicates that a PDF file could not be parsed.
type MalformedFileError struct {
	Err error
	Pos int64    // file offset, or 0 if unknown
	Loc []string // object path, innermost first
}

func (err *MalformedFileError) Error() string {
	var parts []string
	for i := len(err.Loc) - 1; i >= 0; i-- {
		parts = append(parts, err.Loc[i])
	}
	if err.Pos > 0 {
		parts = append(parts, "byte "+strconv.FormatInt(err.Pos, 10))
	}

	msg := "not a valid PDF file"
	if err.Err != nil {
		msg = "malformed PDF: " + err.Err.Error()
	}
	if len(parts) > 0 {
		msg += " (" + strings.Join(parts, ", ") + ")"
	}
	return msg
}

func (err *MalformedFileError) Unwrap() error {
	return err.Err
}

// Wrap adds location information to an error.  Non-malformed-file errors are
// returned unchanged.
func Wrap(err error, loc string) error {
	if err == nil {
		return nil
	}
	var mf *MalformedFileError
	if errors.As(err, &mf) {
		mf.Loc = append(mf.Loc, loc)
	}
	return err
}

var (
	// ErrEncrypted is returned when an encrypted file is opened.
	ErrEncrypted = errors.New("encrypted files are not supported")

	// ErrNoXRef indicates that neither the cross-reference table nor a
	// scan of the file located any objects.
	ErrNoXRef = errors.New("no objects found")

	errVersion = errors.New("missing or invalid PDF header")
)

// UnsupportedFilterError is returned when a stream uses a filter which
// cannot be decoded.
type UnsupportedFilterError struct {
	Name Name
}

func (err *UnsupportedFilterError) Error() string {
	return "unsupported filter " + string(err.Name)
}
