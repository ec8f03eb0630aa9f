package geo

import (
	"errors"
	"math"
	"testing"
)

func TestParseCRS(t *testing.T) {
	tests := map[string]int{
		"EPSG:4326":    4326,
		"epsg:3857":    3857,
		" EPSG:32647 ": 32647,
		"EPSG:32601":   32601,
		"EPSG:32760":   32760,
	}

	for id, expected := range tests {
		p, err := ParseCRS(id)
		if err != nil {
			t.Fatalf("Failed to parse %q: %v", id, err)
		}
		if p.EPSG() != expected {
			t.Errorf("%q: expected EPSG %d, got %d", id, expected, p.EPSG())
		}
	}
}

func TestParseCRS_Unsupported(t *testing.T) {
	for _, id := range []string{"", "EPSG:", "EPSG:abc", "EPSG:9999", "EPSG:32600", "EPSG:32661", "ESRI:102100", "4326"} {
		if _, err := ParseCRS(id); !errors.Is(err, ErrUnsupportedCRS) {
			t.Errorf("%q: expected ErrUnsupportedCRS, got %v", id, err)
		}
	}
}

func TestUTMZone_ToWGS84(t *testing.T) {
	z := UTMZone{Zone: 47, North: true}

	lon, lat, err := z.ToWGS84(500000, 0)
	if err != nil {
		t.Fatalf("ToWGS84 failed: %v", err)
	}
	if math.Abs(lon-99) > 1e-9 || math.Abs(lat) > 1e-9 {
		t.Fatalf("central meridian: got %v %v", lon, lat)
	}

	lon, lat, err = z.ToWGS84(680000, 1520000)
	if err != nil {
		t.Fatalf("ToWGS84 failed: %v", err)
	}
	if math.Abs(lon-100.664772) > 1e-5 || math.Abs(lat-13.743677) > 1e-5 {
		t.Fatalf("unexpected position %v %v", lon, lat)
	}
}

func TestUTMZone_OutOfRange(t *testing.T) {
	z := UTMZone{Zone: 47, North: true}
	if _, _, err := z.ToWGS84(100.5, 13.7); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
}

func TestWebMercator_RoundTrip(t *testing.T) {
	m := WebMercator{}

	x, y, err := m.FromWGS84(8, 53)
	if err != nil {
		t.Fatalf("FromWGS84 failed: %v", err)
	}
	if math.Abs(x-890555.9263461898) > 1e-6 || math.Abs(y-6982997.920389788) > 1e-6 {
		t.Fatalf("%v %v", x, y)
	}

	lon, lat, err := m.ToWGS84(x, y)
	if err != nil {
		t.Fatalf("ToWGS84 failed: %v", err)
	}
	if math.Abs(lon-8) > 1e-9 || math.Abs(lat-53) > 1e-9 {
		t.Fatalf("%v %v", lon, lat)
	}
}

func TestWGS84_Range(t *testing.T) {
	if _, _, err := (WGS84{}).ToWGS84(680000, 1520000); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange for projected input, got %v", err)
	}
}
