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

// Package config holds the settings of the redaction tool.
//
// Settings are read from an optional YAML file.  Missing entries keep their
// default values.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"seehuhn.de/go/redact/viewport"
)

// EnvVar names the environment variable which can hold the location of the
// configuration file.
const EnvVar = "REDACT_CONFIG"

// Config represents the settings of the redaction tool.
type Config struct {
	// MinDragPixels is the minimum width and height, in screen pixels,
	// of a drag which is turned into a redaction rectangle.
	MinDragPixels float64 `yaml:"min_drag_pixels"`

	ZoomStep float64 `yaml:"zoom_step"`
	MinZoom  float64 `yaml:"min_zoom"`
	MaxZoom  float64 `yaml:"max_zoom"`

	// LineArt is either "touched" or "covered", see [LineArtPolicy].
	LineArt LineArtPolicy `yaml:"line_art"`

	LogLevel string `yaml:"log_level"`
}

// LineArtPolicy decides which vector paths are removed.
type LineArtPolicy string

// These are the supported line art policies.
const (
	// LineArtTouched removes every path whose bounding box intersects a
	// redaction rectangle.
	LineArtTouched LineArtPolicy = "touched"

	// LineArtCovered removes only paths which lie completely inside a
	// redaction rectangle.
	LineArtCovered LineArtPolicy = "covered"
)

// Default returns the default settings.
func Default() *Config {
	return &Config{
		MinDragPixels: 5,
		ZoomStep:      viewport.DefaultLimits.Step,
		MinZoom:       viewport.DefaultLimits.Min,
		MaxZoom:       viewport.DefaultLimits.Max,
		LineArt:       LineArtTouched,
		LogLevel:      "info",
	}
}

// Limits returns the zoom limits.
func (c *Config) Limits() viewport.Limits {
	return viewport.Limits{Step: c.ZoomStep, Min: c.MinZoom, Max: c.MaxZoom}
}

// Level returns the configured log level.
func (c *Config) Level() (logrus.Level, error) {
	return logrus.ParseLevel(c.LogLevel)
}

// Read reads settings in YAML format from r.  Entries not present in the
// input are set to their default values.
func Read(r io.Reader) (*Config, error) {
	c := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	err := dec.Decode(c)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	err = c.Validate()
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads the configuration file.
//
// If fname is empty, the file named by the REDACT_CONFIG environment variable
// is used.  If this is unset too, the default settings are returned.
// A leading "~" in the file name is replaced by the home directory.
func Load(fname string) (*Config, error) {
	if fname == "" {
		fname = os.Getenv(EnvVar)
	}
	if fname == "" {
		return Default(), nil
	}

	if strings.HasPrefix(fname, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		fname = filepath.Join(home, fname[1:])
	}

	fd, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	c, err := Read(fd)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fname, err)
	}
	return c, nil
}

// Validate checks that all settings are in range.
func (c *Config) Validate() error {
	if c.MinDragPixels < 0 {
		return fmt.Errorf("min_drag_pixels must not be negative, got %g", c.MinDragPixels)
	}
	if !(c.ZoomStep > 1) {
		return fmt.Errorf("zoom_step must be greater than 1, got %g", c.ZoomStep)
	}
	if !(c.MinZoom > 0 && c.MinZoom <= 1 && c.MaxZoom >= 1) {
		return fmt.Errorf("invalid zoom range [%g, %g]", c.MinZoom, c.MaxZoom)
	}
	switch c.LineArt {
	case LineArtTouched, LineArtCovered:
		// pass
	default:
		return fmt.Errorf("invalid line_art policy %q", c.LineArt)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Write writes the settings to w in YAML format.
func (c *Config) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	err := enc.Encode(c)
	if err != nil {
		return err
	}
	return enc.Close()
}
