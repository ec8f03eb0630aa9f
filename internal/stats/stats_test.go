package stats

import (
	"fmt"
	"math"
	"testing"
)

func farm(status, crop, rai string, lat, lng float64) []byte {
	return fmt.Appendf(nil,
		`{"type":"Feature","properties":{"id":1,"status":%q,"crop_type":%q,"RAI":%s,"lat":%v,"lng":%v},"geometry":null}`,
		status, crop, rai, lat, lng)
}

func TestSummarize(t *testing.T) {
	features := [][]byte{
		farm("Carbon Sink", "นาร้าง", "10", 13.7, 100.6),
		farm("Carbon Sink", "Bush", "5", 13.9, 100.5),
		farm("Active Farm", "ข้าวโพด", "4", 13.8, 100.8),
		farm("Active Farm", "ข้าวโพด", `"n/a"`, 13.6, 100.7),
		farm("Active Farm", "", "1", 13.75, 100.65),
	}

	s := Summarize(features)

	if s.Features != 5 || s.CarbonSinkCount != 2 || s.ActiveFarmCount != 3 {
		t.Errorf("unexpected counts %+v", s)
	}
	if s.TotalRai != 20 || s.CarbonSinkRai != 15 || s.ActiveFarmRai != 5 {
		t.Errorf("unexpected areas %v %v %v", s.TotalRai, s.CarbonSinkRai, s.ActiveFarmRai)
	}
	if s.ForestRatio != 75 {
		t.Errorf("forest ratio = %v", s.ForestRatio)
	}
	if s.SinkToFarmRatio != "3.0" {
		t.Errorf("ratio text = %q", s.SinkToFarmRatio)
	}
	if s.CarbonTonnes != 18 {
		t.Errorf("carbon = %v", s.CarbonTonnes)
	}

	if len(s.TopCrops) != 4 {
		t.Fatalf("expected 4 crops, got %v", s.TopCrops)
	}
	if s.TopCrops[0] != (CropCount{Name: "ข้าวโพด", Count: 2}) {
		t.Errorf("top crop = %+v", s.TopCrops[0])
	}
	// ties ordered by name
	if s.TopCrops[1].Name != "Bush" || s.TopCrops[2].Name != "Unknown" {
		t.Errorf("unexpected order %v", s.TopCrops)
	}

	if s.Bounds == nil {
		t.Fatal("expected bounds")
	}
	expected := [4]float64{100.5, 13.6, 100.8, 13.9}
	for i := range expected {
		if math.Abs(s.Bounds[i]-expected[i]) > 1e-9 {
			t.Errorf("bounds = %v, expected %v", *s.Bounds, expected)
			break
		}
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)

	if s.Features != 0 || s.ForestRatio != 0 || s.CarbonTonnes != 0 {
		t.Errorf("unexpected summary %+v", s)
	}
	if s.SinkToFarmRatio != "0" {
		t.Errorf("ratio text = %q", s.SinkToFarmRatio)
	}
	if s.TopCrops == nil || len(s.TopCrops) != 0 {
		t.Errorf("expected empty crop list, got %v", s.TopCrops)
	}
	if s.Bounds != nil {
		t.Errorf("expected no bounds, got %v", *s.Bounds)
	}
}

func TestRatioText(t *testing.T) {
	tests := []struct {
		sink, farm float64
		expected   string
	}{
		{10, 0, "∞"},
		{0, 0, "0"},
		{0, 4, "0.0"},
		{1, 3, "0.3"},
		{25, 10, "2.5"},
	}

	for _, tt := range tests {
		if got := ratioText(tt.sink, tt.farm); got != tt.expected {
			t.Errorf("ratioText(%v, %v) = %q, expected %q", tt.sink, tt.farm, got, tt.expected)
		}
	}
}

func TestTopCropsLimit(t *testing.T) {
	counts := map[string]int{"a": 1, "b": 2, "c": 3, "d": 4, "e": 5, "f": 6, "g": 7}

	top := topCrops(counts, TopCropsLimit)
	if len(top) != TopCropsLimit {
		t.Fatalf("expected %d crops, got %d", TopCropsLimit, len(top))
	}
	if top[0].Name != "g" || top[4].Name != "c" {
		t.Errorf("unexpected order %v", top)
	}
}
