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
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// LineArtPolicy decides which vector paths are removed.
type LineArtPolicy int

// These are the supported line art policies.
const (
	// LineArtRemoveTouched removes every painted path whose bounding box
	// intersects a redaction rectangle.
	LineArtRemoveTouched LineArtPolicy = iota

	// LineArtRemoveCovered only removes paths whose bounding box is
	// completely covered by a single redaction rectangle.  Other paths
	// which intersect a rectangle are kept, with a clipping path which
	// stops them from being painted inside the rectangles.
	LineArtRemoveCovered
)

func (p LineArtPolicy) String() string {
	switch p {
	case LineArtRemoveTouched:
		return "touched"
	case LineArtRemoveCovered:
		return "covered"
	default:
		return "unknown"
	}
}

// Options can be used to control the operation of [Apply].
// The zero value gives the default settings.
type Options struct {
	LineArt LineArtPolicy

	// Log receives messages about the redaction process.
	// If this is nil, messages are discarded.
	Log logrus.FieldLogger

	// Now returns the modification time stored in the document metadata.
	// If this is nil, [time.Now] is used.
	Now func() time.Time
}

func (opt *Options) logger() logrus.FieldLogger {
	if opt != nil && opt.Log != nil {
		return opt.Log
	}
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func (opt *Options) now() time.Time {
	if opt != nil && opt.Now != nil {
		return opt.Now()
	}
	return time.Now()
}
