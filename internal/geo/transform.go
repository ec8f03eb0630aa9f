package geo

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// Transformer converts coordinates from a source CRS to a target CRS.
// It is immutable after construction and safe for concurrent use.
type Transformer struct {
	source Projection
	target Forward
}

// NewTransformer resolves both CRS identifiers and returns a Transformer.
// The source must convert to WGS84 and the target must convert from it.
func NewTransformer(source, target string) (*Transformer, error) {
	src, err := ParseCRS(source)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}

	dst, err := ParseCRS(target)
	if err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}

	fwd, ok := dst.(Forward)
	if !ok {
		return nil, fmt.Errorf("target: %w: %s can only be used as a source", ErrUnsupportedCRS, CRSName(dst.EPSG()))
	}

	return &Transformer{source: src, target: fwd}, nil
}

// Source returns the source projection.
func (t *Transformer) Source() Projection { return t.source }

// Target returns the target projection.
func (t *Transformer) Target() Projection { return t.target }

// Point converts a single coordinate pair. Axis order is x first on both sides.
func (t *Transformer) Point(x, y float64) (float64, float64, error) {
	lon, lat, err := t.source.ToWGS84(x, y)
	if err != nil {
		return 0, 0, err
	}
	return t.target.FromWGS84(lon, lat)
}

// Geometry returns a copy of g with every coordinate pair converted.
// The geometry type is preserved. Geometries without coordinates are rejected.
func (t *Transformer) Geometry(g orb.Geometry) (orb.Geometry, error) {
	if g == nil {
		return nil, ErrEmptyGeometry
	}

	var (
		count    int
		firstErr error
	)

	out := project.Geometry(orb.Clone(g), func(p orb.Point) orb.Point {
		count++
		if firstErr != nil {
			return p
		}

		x, y, err := t.Point(p[0], p[1])
		if err != nil {
			firstErr = fmt.Errorf("point (%g, %g): %w", p[0], p[1], err)
			return p
		}

		return orb.Point{x, y}
	})

	if firstErr != nil {
		return nil, firstErr
	}
	if count == 0 {
		return nil, ErrEmptyGeometry
	}

	return out, nil
}
