package processor

import "strings"

// Land use status values.
const (
	StatusCarbonSink = "Carbon Sink"
	StatusActiveFarm = "Active Farm"
)

// sinkMarkers mark abandoned or overgrown plots: Thai "ร้าง" (abandoned) and "Bush".
var sinkMarkers = []string{"ร้าง", "Bush"}

// Classify maps a land use description to a status.
// Matching is a case-sensitive substring test without normalization.
func Classify(landUse string) string {
	for _, marker := range sinkMarkers {
		if strings.Contains(landUse, marker) {
			return StatusCarbonSink
		}
	}
	return StatusActiveFarm
}
