// Package geo handles geographic data structures and coordinate conversions.
package geo

import (
	"bytes"
	"errors"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Errors returned by ParseCollection.
var (
	ErrInvalidJSON      = errors.New("invalid JSON")
	ErrInvalidEncoding  = errors.New("input is not valid UTF-8")
	ErrNotObject        = errors.New("top-level value is not a JSON object")
	ErrFeaturesNotArray = errors.New(`"features" is not an array`)
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Collection is a GeoJSON FeatureCollection kept as raw JSON.
// All top-level members other than "features" pass through untouched,
// in document order.
type Collection struct {
	raw []byte

	// Features holds the raw feature values in document order.
	Features [][]byte
}

// ParseCollection splits a JSON document into its top-level object and features.
// A missing "features" member yields an empty sequence.
func ParseCollection(data []byte) (*Collection, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	if !utf8.Valid(data) {
		return nil, ErrInvalidEncoding
	}
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJSON
	}

	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, ErrNotObject
	}

	c := &Collection{raw: data, Features: [][]byte{}}

	features := root.Get("features")
	if !features.Exists() {
		return c, nil
	}
	if !features.IsArray() {
		return nil, ErrFeaturesNotArray
	}

	features.ForEach(func(_, value gjson.Result) bool {
		c.Features = append(c.Features, []byte(value.Raw))
		return true
	})

	return c, nil
}

// NewCollection returns an empty FeatureCollection.
func NewCollection() *Collection {
	return &Collection{
		raw:      []byte(`{"type":"FeatureCollection","features":[]}`),
		Features: [][]byte{},
	}
}

// WithFeatures returns a collection sharing the top-level members of c
// with its features replaced.
func (c *Collection) WithFeatures(features [][]byte) *Collection {
	if features == nil {
		features = [][]byte{}
	}
	return &Collection{raw: c.raw, Features: features}
}

// MarshalJSON returns the document with the current features written
// back into the "features" member. Escaped non-ASCII characters are
// written literally.
func (c *Collection) MarshalJSON() ([]byte, error) {
	size := 2 + len(c.Features)
	for _, f := range c.Features {
		size += len(f)
	}

	arr := make([]byte, 0, size)
	arr = append(arr, '[')
	for i, f := range c.Features {
		if i > 0 {
			arr = append(arr, ',')
		}
		arr = append(arr, f...)
	}
	arr = append(arr, ']')

	out, err := sjson.SetRawBytes(c.raw, "features", arr)
	if err != nil {
		return nil, err
	}
	return UnescapeNonASCII(out), nil
}
