package server

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"strconv"

	"github.com/woozymasta/rotfarm/internal/output"
	"github.com/woozymasta/rotfarm/internal/preview"
	"github.com/woozymasta/rotfarm/internal/processor"
	"github.com/woozymasta/rotfarm/internal/stats"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

const etagCap = 64

// ServerContext holds the loaded collection and everything derived from it.
type ServerContext struct {
	Summary stats.Summary

	// Features maps the cleaned property id to the raw feature.
	Features map[string][]byte

	// PreviewImage is nil when the collection has nothing to draw.
	PreviewImage image.Image

	Data        []byte // minified collection
	ETag        string
	Preview     []byte // full size WebP
	PreviewETag string
}

// NewServerContext loads a processed collection from path and prepares
// the responses served by the handlers.
func NewServerContext(path string, previewOpts preview.Options) (*ServerContext, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", processor.ErrIO, err)
	}

	c, err := processor.Load(path)
	if err != nil {
		return nil, err
	}

	data, err := output.Encode(c, output.Options{Format: output.FormatMin})
	if err != nil {
		return nil, fmt.Errorf("encode collection: %w", err)
	}

	s := &ServerContext{
		Data:     data,
		ETag:     makeETag(int64(len(data)), info.ModTime().UnixNano()),
		Features: make(map[string][]byte, len(c.Features)),
		Summary:  stats.Summarize(c.Features),
	}

	for i, raw := range c.Features {
		id := gjson.GetBytes(raw, "properties.id")
		if id.Type == gjson.Null {
			log.Trace().Int("index", i).Msg("Feature without id is not addressable")
			continue
		}
		if _, ok := s.Features[id.String()]; ok {
			log.Debug().Int("index", i).Str("id", id.String()).Msg("Duplicate feature id ignored")
			continue
		}
		s.Features[id.String()] = raw
	}

	img, err := preview.Render(c, previewOpts)
	if err != nil {
		log.Warn().Err(err).Msg("Preview disabled")
	} else {
		var buf bytes.Buffer
		if err := preview.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode preview: %w", err)
		}
		s.PreviewImage = img
		s.Preview = buf.Bytes()
		s.PreviewETag = makeETag(int64(buf.Len()), info.ModTime().UnixNano())
	}

	log.Info().
		Str("path", path).
		Int("features", s.Summary.Features).
		Int("addressable", len(s.Features)).
		Str("size", humanize.Bytes(uint64(len(data)))).
		Bool("preview", s.Preview != nil).
		Msg("Server context initialized successfully")

	return s, nil
}

func makeETag(size, modTime int64) string {
	buf := make([]byte, 0, etagCap)
	buf = append(buf, '"')
	buf = strconv.AppendInt(buf, size, 16)
	buf = append(buf, '-')
	buf = strconv.AppendInt(buf, modTime, 16)
	buf = append(buf, '"')
	return string(buf)
}
