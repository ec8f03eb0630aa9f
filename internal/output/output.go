// Package output encodes processed collections into the supported file formats.
package output

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/woozymasta/rotfarm/internal/geo"

	"github.com/tdewolff/minify/v2"
	mjson "github.com/tdewolff/minify/v2/json"
	"github.com/tidwall/pretty"
	"gopkg.in/yaml.v3"
)

// Format is an output file format.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json" // indented GeoJSON
	FormatMin  Format = "min"  // minified GeoJSON
	FormatYAML Format = "yaml" // GeoJSON structure as YAML
	FormatFGB  Format = "fgb"  // FlatGeobuf
)

const jsonMediaType = "application/json"

// ErrUnknownFormat is returned for unsupported format names.
var ErrUnknownFormat = errors.New("unknown output format")

// Formats lists all supported formats.
func Formats() []Format {
	return []Format{FormatJSON, FormatMin, FormatYAML, FormatFGB}
}

// ParseFormat validates a format name. An empty name selects FormatJSON.
func ParseFormat(s string) (Format, error) {
	if s == "" {
		return FormatJSON, nil
	}
	for _, f := range Formats() {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Options configures Encode.
type Options struct {
	Format Format

	// EPSG code of the coordinates, recorded in FlatGeobuf headers.
	EPSG int
}

// Encode serializes the collection. JSON output is UTF-8 with two-space
// indentation and non-ASCII characters left unescaped.
func Encode(c *geo.Collection, opts Options) ([]byte, error) {
	raw, err := c.MarshalJSON()
	if err != nil {
		return nil, err
	}

	switch opts.Format {
	case FormatJSON, "":
		// zero width expands every array, one element per line
		return pretty.PrettyOptions(raw, &pretty.Options{Width: 0, Indent: "  "}), nil

	case FormatMin:
		m := minify.New()
		m.AddFunc(jsonMediaType, mjson.Minify)
		return m.Bytes(jsonMediaType, raw)

	case FormatYAML:
		return encodeYAML(raw)

	case FormatFGB:
		return encodeFGB(c, opts.EPSG)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, opts.Format)
	}
}

// encodeYAML converts JSON to block style YAML, keeping key order.
// Sequences of scalars (coordinate pairs) stay in flow style.
func encodeYAML(raw []byte) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	restyle(&doc)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func restyle(n *yaml.Node) {
	switch n.Kind {
	case yaml.ScalarNode:
		n.Style = 0
		return
	case yaml.SequenceNode:
		n.Style = 0
		if len(n.Content) > 0 && scalarsOnly(n.Content) {
			n.Style = yaml.FlowStyle
		}
	default:
		n.Style = 0
	}

	for _, child := range n.Content {
		restyle(child)
	}
}

func scalarsOnly(nodes []*yaml.Node) bool {
	for _, n := range nodes {
		if n.Kind != yaml.ScalarNode {
			return false
		}
	}
	return true
}
