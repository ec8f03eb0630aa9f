package output

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/woozymasta/rotfarm/internal/geo"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ErrEmptyCollection is returned when FlatGeobuf output is requested for no features.
var ErrEmptyCollection = errors.New("flatgeobuf: collection has no features")

// fgbLayerName is the layer name stored in the FlatGeobuf header.
const fgbLayerName = "farms"

type fgbColumn struct {
	name string
	typ  flattypes.ColumnType
}

// fgbColumns is the fixed schema of the cleaned properties.
var fgbColumns = []fgbColumn{
	{"id", flattypes.ColumnTypeString},
	{"status", flattypes.ColumnTypeString},
	{"crop_type", flattypes.ColumnTypeString},
	{"RAI", flattypes.ColumnTypeDouble},
	{"lat", flattypes.ColumnTypeDouble},
	{"lng", flattypes.ColumnTypeDouble},
}

func encodeFGB(c *geo.Collection, epsg int) ([]byte, error) {
	features := make([]*geojson.Feature, 0, len(c.Features))
	for i, raw := range c.Features {
		f, err := geojson.UnmarshalFeature(raw)
		if err != nil {
			return nil, fmt.Errorf("flatgeobuf: feature %d: %w", i, err)
		}
		if f.Geometry == nil {
			continue
		}
		features = append(features, f)
	}

	if len(features) == 0 {
		return nil, ErrEmptyCollection
	}

	// Same geometry type everywhere, otherwise Unknown
	geomType := fgbGeometryType(features[0].Geometry)
	for _, f := range features[1:] {
		if fgbGeometryType(f.Geometry) != geomType {
			geomType = flattypes.GeometryTypeUnknown
			break
		}
	}

	builder := flatbuffers.NewBuilder(4096)

	header := writer.NewHeader(builder)
	header.SetGeometryType(geomType)
	header.SetName(fgbLayerName)

	columns := make([]*writer.Column, 0, len(fgbColumns))
	for _, fc := range fgbColumns {
		col := writer.NewColumn(builder)
		col.SetName(fc.name)
		col.SetTitle(fc.name)
		col.SetType(fc.typ)
		col.SetNullable(true)
		columns = append(columns, col)
	}
	header.SetColumns(columns)

	if epsg > 0 {
		crs := writer.NewCrs(builder)
		crs.SetOrg("EPSG")
		crs.SetCode(int32(epsg))
		if epsg == 4326 {
			crs.SetName("WGS 84")
		}
		header.SetCrs(crs)
	}

	gen := &fgbFeatureGenerator{features: features}

	var buf bytes.Buffer
	if _, err := writer.NewWriter(header, true, gen, nil).Write(&buf); err != nil {
		return nil, fmt.Errorf("flatgeobuf: %w", err)
	}

	return buf.Bytes(), nil
}

// fgbFeatureGenerator feeds features to the FlatGeobuf writer.
type fgbFeatureGenerator struct {
	features []*geojson.Feature
	index    int
}

func (g *fgbFeatureGenerator) Generate() *writer.Feature {
	for g.index < len(g.features) {
		f := g.features[g.index]
		g.index++

		builder := flatbuffers.NewBuilder(1024)
		geom := fgbGeometry(f.Geometry, builder)
		if geom == nil {
			continue
		}

		feature := writer.NewFeature(builder)
		feature.SetGeometry(geom)
		if props := encodeFGBProperties(f.Properties); len(props) > 0 {
			feature.SetProperties(props)
		}

		return feature
	}

	return nil
}

// encodeFGBProperties writes [uint16 column index][value] pairs, skipping nulls.
func encodeFGBProperties(props geojson.Properties) []byte {
	var buf bytes.Buffer

	for i, col := range fgbColumns {
		value, ok := props[col.name]
		if !ok || value == nil {
			continue
		}

		switch col.typ {
		case flattypes.ColumnTypeString:
			s, ok := fgbString(value)
			if !ok {
				continue
			}
			_ = binary.Write(&buf, binary.LittleEndian, uint16(i))
			_ = binary.Write(&buf, binary.LittleEndian, uint32(len(s)))
			buf.WriteString(s)

		case flattypes.ColumnTypeDouble:
			v, ok := value.(float64)
			if !ok {
				continue
			}
			_ = binary.Write(&buf, binary.LittleEndian, uint16(i))
			_ = binary.Write(&buf, binary.LittleEndian, math.Float64bits(v))
		}
	}

	return buf.Bytes()
}

func fgbString(v any) (string, bool) {
	switch v := v.(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}

func fgbGeometryType(g orb.Geometry) flattypes.GeometryType {
	switch g.(type) {
	case orb.Point:
		return flattypes.GeometryTypePoint
	case orb.MultiPoint:
		return flattypes.GeometryTypeMultiPoint
	case orb.LineString:
		return flattypes.GeometryTypeLineString
	case orb.MultiLineString:
		return flattypes.GeometryTypeMultiLineString
	case orb.Polygon:
		return flattypes.GeometryTypePolygon
	case orb.MultiPolygon:
		return flattypes.GeometryTypeMultiPolygon
	case orb.Collection:
		return flattypes.GeometryTypeGeometryCollection
	default:
		return flattypes.GeometryTypeUnknown
	}
}

func fgbGeometry(geom orb.Geometry, builder *flatbuffers.Builder) *writer.Geometry {
	g := writer.NewGeometry(builder)

	switch v := geom.(type) {
	case orb.Point:
		g.SetType(flattypes.GeometryTypePoint)
		g.SetXY([]float64{v[0], v[1]})

	case orb.MultiPoint:
		g.SetType(flattypes.GeometryTypeMultiPoint)
		g.SetXY(pointsXY(v))

	case orb.LineString:
		g.SetType(flattypes.GeometryTypeLineString)
		g.SetXY(pointsXY(v))

	case orb.MultiLineString:
		g.SetType(flattypes.GeometryTypeMultiLineString)
		parts := make([][]orb.Point, len(v))
		for i, ls := range v {
			parts[i] = ls
		}
		xy, ends := partsXY(parts)
		g.SetXY(xy)
		g.SetEnds(ends)

	case orb.Polygon:
		g.SetType(flattypes.GeometryTypePolygon)
		xy, ends := polygonXY(v)
		g.SetXY(xy)
		g.SetEnds(ends)

	case orb.MultiPolygon:
		g.SetType(flattypes.GeometryTypeMultiPolygon)
		parts := make([]writer.Geometry, 0, len(v))
		for _, poly := range v {
			pg := writer.NewGeometry(builder)
			pg.SetType(flattypes.GeometryTypePolygon)
			xy, ends := polygonXY(poly)
			pg.SetXY(xy)
			pg.SetEnds(ends)
			parts = append(parts, *pg)
		}
		g.SetParts(parts)

	case orb.Collection:
		g.SetType(flattypes.GeometryTypeGeometryCollection)
		parts := make([]writer.Geometry, 0, len(v))
		for _, child := range v {
			if cg := fgbGeometry(child, builder); cg != nil {
				parts = append(parts, *cg)
			}
		}
		g.SetParts(parts)

	default:
		return nil
	}

	return g
}

func pointsXY(points []orb.Point) []float64 {
	xy := make([]float64, 0, len(points)*2)
	for _, p := range points {
		xy = append(xy, p[0], p[1])
	}
	return xy
}

func polygonXY(poly orb.Polygon) ([]float64, []uint32) {
	parts := make([][]orb.Point, len(poly))
	for i, r := range poly {
		parts[i] = r
	}
	return partsXY(parts)
}

// partsXY flattens parts into one coordinate array with the end offset of each part.
func partsXY(parts [][]orb.Point) ([]float64, []uint32) {
	var xy []float64
	ends := make([]uint32, 0, len(parts))
	var count uint32
	for _, part := range parts {
		xy = append(xy, pointsXY(part)...)
		count += uint32(len(part))
		ends = append(ends, count)
	}
	return xy, ends
}
