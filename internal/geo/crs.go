package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/im7mortal/UTM"
)

// ErrUnsupportedCRS is returned when a CRS identifier cannot be resolved
// or cannot be used in the requested direction.
var ErrUnsupportedCRS = errors.New("unsupported coordinate reference system")

// ErrOutOfRange is returned when a coordinate lies outside the valid area of a CRS.
var ErrOutOfRange = errors.New("coordinate out of range")

const epsgPrefix = "EPSG:"

// Projection converts coordinates of a CRS to WGS84 longitude/latitude.
// Coordinates are always passed x first: easting or longitude, then
// northing or latitude.
type Projection interface {
	// EPSG returns the EPSG code for this projection.
	EPSG() int

	// ToWGS84 converts CRS coordinates to WGS84 longitude/latitude (degrees).
	ToWGS84(x, y float64) (lon, lat float64, err error)
}

// Forward is implemented by projections usable as a transformation target.
type Forward interface {
	Projection

	// FromWGS84 converts WGS84 longitude/latitude (degrees) to CRS coordinates.
	FromWGS84(lon, lat float64) (x, y float64, err error)
}

// ParseCRS resolves an "EPSG:<code>" identifier. The prefix is case-insensitive.
func ParseCRS(id string) (Projection, error) {
	s := strings.TrimSpace(id)
	if len(s) <= len(epsgPrefix) || !strings.EqualFold(s[:len(epsgPrefix)], epsgPrefix) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCRS, id)
	}

	code, err := strconv.Atoi(s[len(epsgPrefix):])
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCRS, id)
	}

	p := ForEPSG(code)
	if p == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCRS, id)
	}

	return p, nil
}

// ForEPSG returns a Projection for the given EPSG code,
// or nil if the code is not supported.
func ForEPSG(code int) Projection {
	switch {
	case code == 4326:
		return WGS84{}
	case code == 3857:
		return WebMercator{}
	case code > 32600 && code <= 32660:
		return UTMZone{Zone: code - 32600, North: true}
	case code > 32700 && code <= 32760:
		return UTMZone{Zone: code - 32700, North: false}
	default:
		return nil
	}
}

// CRSName formats an EPSG code as an identifier.
func CRSName(code int) string {
	return epsgPrefix + strconv.Itoa(code)
}

// WGS84 is the geographic CRS (EPSG:4326) in longitude, latitude order.
type WGS84 struct{}

func (WGS84) EPSG() int { return 4326 }

func (WGS84) ToWGS84(x, y float64) (lon, lat float64, err error) {
	if err := checkLonLat(x, y); err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

func (WGS84) FromWGS84(lon, lat float64) (x, y float64, err error) {
	if err := checkLonLat(lon, lat); err != nil {
		return 0, 0, err
	}
	return lon, lat, nil
}

func checkLonLat(lon, lat float64) error {
	if math.IsNaN(lon) || math.IsNaN(lat) || lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return fmt.Errorf("%w: lon %g, lat %g", ErrOutOfRange, lon, lat)
	}
	return nil
}

// WebMercator is the spherical pseudo-Mercator CRS (EPSG:3857).
type WebMercator struct{}

const (
	// pole is the half circumference of the sphere in meters.
	pole = 6378137 * math.Pi

	// MaxMercatorLat is the latitude at which the square Web Mercator world is clipped.
	MaxMercatorLat = 85.05112878
)

func (WebMercator) EPSG() int { return 3857 }

func (WebMercator) ToWGS84(x, y float64) (lon, lat float64, err error) {
	if math.Abs(x) > pole || math.Abs(y) > pole {
		return 0, 0, fmt.Errorf("%w: x %g, y %g", ErrOutOfRange, x, y)
	}

	lon = 180.0 * x / pole
	lat = 180.0 / math.Pi * (2*math.Atan(math.Exp((y/pole)*math.Pi)) - math.Pi/2)
	return lon, lat, nil
}

func (WebMercator) FromWGS84(lon, lat float64) (x, y float64, err error) {
	if err := checkLonLat(lon, lat); err != nil {
		return 0, 0, err
	}

	if lat > MaxMercatorLat {
		lat = MaxMercatorLat
	} else if lat < -MaxMercatorLat {
		lat = -MaxMercatorLat
	}

	x = lon * pole / 180.0
	y = math.Log(math.Tan((90.0+lat)*math.Pi/360.0)) / math.Pi * pole
	return x, y, nil
}

// UTMZone is a WGS84 / UTM zone CRS (EPSG:326zz north, EPSG:327zz south).
// Only the inverse direction is supported.
type UTMZone struct {
	Zone  int
	North bool
}

func (z UTMZone) EPSG() int {
	if z.North {
		return 32600 + z.Zone
	}
	return 32700 + z.Zone
}

func (z UTMZone) ToWGS84(x, y float64) (lon, lat float64, err error) {
	lat, lon, err = UTM.ToLatLon(x, y, z.Zone, "", z.North)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %s: %v", ErrOutOfRange, CRSName(z.EPSG()), err)
	}
	return lon, lat, nil
}
