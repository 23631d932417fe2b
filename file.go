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
	"io"
	"os"
	"path/filepath"
)

// cleanAbs returns a cleaned, absolute version of a file name.
func cleanAbs(fname string) string {
	abs, err := filepath.Abs(fname)
	if err != nil {
		return filepath.Clean(fname)
	}
	return abs
}

// writeFile writes a file atomically: the data is written to a temporary
// file in the target directory, which then replaces the target.
//
// Errors from the file system are returned as [*IOError], errors from
// write are returned as [*EncodingError].
func writeFile(fname string, write func(w io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(fname), "."+filepath.Base(fname)+".*.tmp")
	if err != nil {
		return &IOError{Path: fname, Err: err}
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	ew := &errWriter{w: tmp}
	err = write(ew)
	if ew.err != nil {
		return &IOError{Path: fname, Err: ew.err}
	}
	if err != nil {
		var encErr *EncodingError
		if errors.As(err, &encErr) {
			return err
		}
		return &EncodingError{Index: -1, Err: err}
	}

	// an existing output file keeps its permissions
	mode := os.FileMode(0o644)
	if fi, statErr := os.Stat(fname); statErr == nil && fi.Mode().IsRegular() {
		mode = fi.Mode().Perm()
	}
	err = tmp.Chmod(mode)
	if err == nil {
		err = tmp.Sync()
	}
	if err == nil {
		err = tmp.Close()
	}
	if err == nil {
		err = os.Rename(tmp.Name(), fname)
	}
	if err != nil {
		return &IOError{Path: fname, Err: err}
	}
	return nil
}

// errWriter records the first error returned by the underlying writer.
type errWriter struct {
	w   io.Writer
	err error
}

func (w *errWriter) Write(p []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	n, err := w.w.Write(p)
	w.err = err
	return n, err
}
