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
	"strconv"
)

// Version represent the version of PDF standard used in a file.
type Version int

// Constants for the known PDF versions.
const (
	_ Version = iota
	V1_0
	V1_1
	V1_2
	V1_3
	V1_4
	V1_5
	V1_6
	V1_7
	V2_0
)

var versionNames = [...]string{
	V1_0: "1.0", V1_1: "1.1", V1_2: "1.2", V1_3: "1.3", V1_4: "1.4",
	V1_5: "1.5", V1_6: "1.6", V1_7: "1.7", V2_0: "2.0",
}

// ParseVersion parses a PDF version string like "1.7".
func ParseVersion(s string) (Version, error) {
	for ver, name := range versionNames {
		if name != "" && name == s {
			return Version(ver), nil
		}
	}
	return 0, errVersion
}

// ToString returns the version number as used in the file header,
// e.g. "1.7".
func (ver Version) ToString() (string, error) {
	if ver < V1_0 || ver > V2_0 {
		return "", errVersion
	}
	return versionNames[ver], nil
}

func (ver Version) String() string {
	s, err := ver.ToString()
	if err != nil {
		return "pdf.Version(" + strconv.Itoa(int(ver)) + ")"
	}
	return s
}

// parseHeader locates the "%PDF-x.y" header in the first bytes of a file.
// The returned offset is the position of the header, which some files
// precede by junk.
func parseHeader(buf []byte) (Version, int64, error) {
	idx := bytes.Index(buf, []byte("%PDF-"))
	if idx < 0 || idx+8 > len(buf) {
		return 0, 0, errVersion
	}
	ver, err := ParseVersion(string(buf[idx+5 : idx+8]))
	if err != nil {
		return 0, 0, err
	}
	return ver, int64(idx), nil
}
