package render

import (
	"math"

	"busexplorer.nyc/internal/metrics"
)

// Summary holds the headline figures shown above the map.
type Summary struct {
	Routes       int     `json:"routes"`
	MeanSpeed    float64 `json:"mean_speed"`
	FastestRoute string  `json:"fastest_route,omitempty"`
	FastestSpeed float64 `json:"fastest_speed"`
	SlowestRoute string  `json:"slowest_route,omitempty"`
	SlowestSpeed float64 `json:"slowest_speed"`
}

// Summarize computes the mean speed and the fastest and slowest rows.
// Ties go to the earliest row.
func Summarize(rows []metrics.RouteMetric) Summary {
	if len(rows) == 0 {
		return Summary{}
	}
	s := Summary{
		Routes:       len(rows),
		FastestRoute: rows[0].RouteID,
		FastestSpeed: rows[0].AvgSpeed,
		SlowestRoute: rows[0].RouteID,
		SlowestSpeed: rows[0].AvgSpeed,
	}
	var total float64
	for _, r := range rows {
		total += r.AvgSpeed
		if r.AvgSpeed > s.FastestSpeed {
			s.FastestRoute, s.FastestSpeed = r.RouteID, r.AvgSpeed
		}
		if r.AvgSpeed < s.SlowestSpeed {
			s.SlowestRoute, s.SlowestSpeed = r.RouteID, r.AvgSpeed
		}
	}
	s.MeanSpeed = math.Round(total/float64(len(rows))*100) / 100
	return s
}
