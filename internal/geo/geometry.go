package geo

import (
	"errors"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/tidwall/gjson"
)

// ErrEmptyGeometry is returned for missing geometries or geometries without coordinates.
var ErrEmptyGeometry = errors.New("empty geometry")

// ErrInvalidCentroid is returned when a centroid cannot be computed.
var ErrInvalidCentroid = errors.New("invalid centroid")

// ParseGeometry decodes a GeoJSON geometry object.
func ParseGeometry(data []byte) (orb.Geometry, error) {
	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, err
	}

	geom := g.Geometry()
	if geom == nil {
		return nil, ErrEmptyGeometry
	}

	return geom, nil
}

// CoordinateDimension returns the largest number of ordinates in any
// position of a GeoJSON geometry object, or 0 when there are none.
// Geometries are handled in two dimensions, so anything above 2 is dropped.
func CoordinateDimension(data []byte) int {
	root := gjson.ParseBytes(data)
	if geometries := root.Get("geometries"); geometries.IsArray() {
		dim := 0
		for _, g := range geometries.Array() {
			dim = max(dim, CoordinateDimension([]byte(g.Raw)))
		}
		return dim
	}
	return positionDimension(root.Get("coordinates"))
}

func positionDimension(r gjson.Result) int {
	if !r.IsArray() {
		return 0
	}

	items := r.Array()
	if len(items) > 0 && items[0].Type == gjson.Number {
		return len(items)
	}

	dim := 0
	for _, item := range items {
		dim = max(dim, positionDimension(item))
	}
	return dim
}

// MarshalGeometry encodes a geometry as a GeoJSON geometry object.
func MarshalGeometry(g orb.Geometry) ([]byte, error) {
	return geojson.NewGeometry(g).MarshalJSON()
}

// Centroid returns the planar centroid of g: area weighted for polygons,
// length weighted for lines and the mean for points.
func Centroid(g orb.Geometry) (orb.Point, error) {
	c, _ := planar.CentroidArea(g)
	if math.IsNaN(c[0]) || math.IsNaN(c[1]) || math.IsInf(c[0], 0) || math.IsInf(c[1], 0) {
		return orb.Point{}, ErrInvalidCentroid
	}
	return c, nil
}
