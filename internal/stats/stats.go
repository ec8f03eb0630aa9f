// Package stats summarizes processed farm collections.
package stats

import (
	"math"
	"sort"
	"strconv"

	"github.com/woozymasta/rotfarm/internal/processor"

	"github.com/paulmach/orb"
	"github.com/tidwall/gjson"
)

// CarbonPerRai is the estimated carbon stock in tonnes per rai of carbon sink.
const CarbonPerRai = 1.2

// TopCropsLimit is the number of crop types reported in Summary.TopCrops.
const TopCropsLimit = 5

// unknownCrop names features without a crop type.
const unknownCrop = "Unknown"

// CropCount is the number of features with a crop type.
type CropCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Summary holds aggregate figures for a processed collection.
type Summary struct {
	Features        int `json:"features"`
	CarbonSinkCount int `json:"carbon_sink_count"`
	ActiveFarmCount int `json:"active_farm_count"`

	TotalRai      float64 `json:"total_rai"`
	CarbonSinkRai float64 `json:"carbon_sink_rai"`
	ActiveFarmRai float64 `json:"active_farm_rai"`

	// ForestRatio is the carbon sink share of the total area in percent.
	ForestRatio float64 `json:"forest_ratio"`

	// SinkToFarmRatio is carbon sink area per active farm area with one decimal.
	SinkToFarmRatio string `json:"sink_to_farm_ratio"`

	CarbonTonnes float64     `json:"carbon_tonnes"`
	TopCrops     []CropCount `json:"top_crops"`

	// Bounds of the feature centroids as [min lng, min lat, max lng, max lat].
	Bounds *[4]float64 `json:"bounds,omitempty"`
}

// Summarize aggregates processed features. Missing or non-numeric RAI counts as zero.
func Summarize(features [][]byte) Summary {
	s := Summary{
		Features: len(features),
		TopCrops: []CropCount{},
	}

	crops := make(map[string]int)
	centroids := make(orb.MultiPoint, 0, len(features))

	for _, raw := range features {
		props := gjson.GetBytes(raw, "properties")

		var rai float64
		if r := props.Get("RAI"); r.Type == gjson.Number {
			rai = r.Float()
		}
		s.TotalRai += rai

		switch props.Get("status").String() {
		case processor.StatusCarbonSink:
			s.CarbonSinkCount++
			s.CarbonSinkRai += rai
		case processor.StatusActiveFarm:
			s.ActiveFarmCount++
			s.ActiveFarmRai += rai
		}

		crop := props.Get("crop_type").String()
		if crop == "" {
			crop = unknownCrop
		}
		crops[crop]++

		lat, lng := props.Get("lat"), props.Get("lng")
		if lat.Type == gjson.Number && lng.Type == gjson.Number {
			centroids = append(centroids, orb.Point{lng.Float(), lat.Float()})
		}
	}

	if s.TotalRai > 0 {
		s.ForestRatio = s.CarbonSinkRai / s.TotalRai * 100
	}
	s.SinkToFarmRatio = ratioText(s.CarbonSinkRai, s.ActiveFarmRai)
	s.CarbonTonnes = math.Round(s.CarbonSinkRai * CarbonPerRai)
	s.TopCrops = topCrops(crops, TopCropsLimit)

	if len(centroids) > 0 {
		b := centroids.Bound()
		s.Bounds = &[4]float64{b.Min.X(), b.Min.Y(), b.Max.X(), b.Max.Y()}
	}

	return s
}

func ratioText(sink, farm float64) string {
	switch {
	case farm > 0:
		return strconv.FormatFloat(sink/farm, 'f', 1, 64)
	case sink > 0:
		return "∞"
	default:
		return "0"
	}
}

// topCrops orders crop types by count, then by name.
func topCrops(counts map[string]int, limit int) []CropCount {
	list := make([]CropCount, 0, len(counts))
	for name, count := range counts {
		list = append(list, CropCount{Name: name, Count: count})
	}

	sort.Slice(list, func(i, j int) bool {
		if list[i].Count != list[j].Count {
			return list[i].Count > list[j].Count
		}
		return list[i].Name < list[j].Name
	})

	if len(list) > limit {
		list = list[:limit]
	}
	return list
}
