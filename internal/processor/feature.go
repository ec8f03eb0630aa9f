package processor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/woozymasta/rotfarm/internal/geo"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Source property names.
const (
	landUseKey = "LU_DES_TH"
	raiKey     = "RAI"
	idKey      = "id"
)

var (
	errFeatureNotObject    = errors.New("feature is not a JSON object")
	errPropertiesNotObject = errors.New(`"properties" is not a JSON object`)
	errMissingGeometry     = errors.New("feature has no geometry")
	errLandUseType         = errors.New(landUseKey + " is not a string")
)

// Properties is the cleaned property set written for every feature.
// Field order defines the output key order.
type Properties struct {
	ID       json.RawMessage `json:"id"`
	Status   string          `json:"status"`
	CropType string          `json:"crop_type"`
	RAI      json.RawMessage `json:"RAI"`
	Lat      float64         `json:"lat"`
	Lng      float64         `json:"lng"`
}

// MarshalJSON encodes the properties without HTML escaping so
// non-ASCII text stays readable.
func (p *Properties) MarshalJSON() ([]byte, error) {
	// alias drops the method set to avoid recursion
	type alias Properties

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode((*alias)(p)); err != nil {
		return nil, err
	}

	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ProcessFeature classifies, reprojects and cleans a single raw feature.
// It returns the rewritten feature with only "geometry" and "properties"
// replaced, and the cleaned properties.
func ProcessFeature(raw []byte, t *geo.Transformer) ([]byte, *Properties, error) {
	if !gjson.ParseBytes(raw).IsObject() {
		return nil, nil, errFeatureNotObject
	}

	props := gjson.GetBytes(raw, "properties")
	if props.Type != gjson.Null && !props.IsObject() {
		return nil, nil, errPropertiesNotObject
	}

	var cropType string
	switch landUse := props.Get(landUseKey); landUse.Type {
	case gjson.Null:
	case gjson.String:
		cropType = landUse.String()
	default:
		return nil, nil, fmt.Errorf("%w: %s", errLandUseType, landUse.Raw)
	}

	id := props.Get(idKey)
	if id.Type == gjson.Null {
		id = gjson.GetBytes(raw, idKey)
	}

	p := &Properties{
		ID:       literal(id),
		Status:   Classify(cropType),
		CropType: cropType,
		RAI:      literal(props.Get(raiKey)),
	}

	geometry := gjson.GetBytes(raw, "geometry")
	if geometry.Type == gjson.Null {
		return nil, nil, errMissingGeometry
	}

	if dim := geo.CoordinateDimension([]byte(geometry.Raw)); dim > 2 {
		log.Debug().
			Str("id", featureID(raw)).
			Int("dimension", dim).
			Msg("Dropping ordinates beyond x and y")
	}

	g, err := geo.ParseGeometry([]byte(geometry.Raw))
	if err != nil {
		return nil, nil, fmt.Errorf("parse geometry: %w", err)
	}

	projected, err := t.Geometry(g)
	if err != nil {
		return nil, nil, fmt.Errorf("transform geometry: %w", err)
	}

	c, err := geo.Centroid(projected)
	if err != nil {
		return nil, nil, err
	}
	p.Lat, p.Lng = c.Y(), c.X()

	geomJSON, err := geo.MarshalGeometry(projected)
	if err != nil {
		return nil, nil, fmt.Errorf("encode geometry: %w", err)
	}

	propsJSON, err := p.MarshalJSON()
	if err != nil {
		return nil, nil, fmt.Errorf("encode properties: %w", err)
	}

	out, err := sjson.SetRawBytes(raw, "geometry", geomJSON)
	if err != nil {
		return nil, nil, err
	}

	out, err = sjson.SetRawBytes(out, "properties", propsJSON)
	if err != nil {
		return nil, nil, err
	}

	return out, p, nil
}

// featureID returns a printable identifier for log and error messages.
func featureID(raw []byte) string {
	if id := gjson.GetBytes(raw, "properties.id"); id.Type != gjson.Null {
		return id.String()
	}
	return gjson.GetBytes(raw, idKey).String()
}

// literal returns the value verbatim. Strings are re-encoded so escaped
// non-ASCII characters are written literally. Missing values become null.
func literal(r gjson.Result) json.RawMessage {
	switch r.Type {
	case gjson.Null:
		return nil
	case gjson.String:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(r.String()); err != nil {
			return json.RawMessage(r.Raw)
		}
		return bytes.TrimRight(buf.Bytes(), "\n")
	default:
		return json.RawMessage(r.Raw)
	}
}
