// Package processor converts farm plot collections: it loads GeoJSON,
// reprojects and reclassifies every feature and writes the result.
package processor

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/woozymasta/rotfarm/internal/geo"

	"github.com/dustin/go-humanize"
	"github.com/natefinch/atomic"
	"github.com/rs/zerolog/log"
)

// Load reads a GeoJSON FeatureCollection from disk.
func Load(path string) (*geo.Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}

	c, err := geo.ParseCollection(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrParse, path, err)
	}

	log.Debug().
		Str("path", path).
		Str("size", humanize.Bytes(uint64(len(data)))).
		Int("features", len(c.Features)).
		Msg("Input loaded")

	return c, nil
}

// Save replaces the file at path with data. The write is atomic: readers
// see either the old or the new content, never a partial file.
func Save(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%w: %w", ErrIO, err)
		}
	}

	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}

	log.Debug().
		Str("path", path).
		Str("size", humanize.Bytes(uint64(len(data)))).
		Msg("File written")

	return nil
}
