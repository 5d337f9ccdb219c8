// Package render joins route geometries with speed metrics and prepares the
// result for an interactive map.
package render

import (
	"cmp"
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"

	"busexplorer.nyc/internal/gtfs"
	"busexplorer.nyc/internal/metrics"
)

// DefaultTolerance is the simplification tolerance in degrees (about 10 m in NYC).
const DefaultTolerance = 0.0001

// Options tune Prepare.
type Options struct {
	// Tolerance in degrees; zero or negative disables simplification.
	Tolerance float64
}

// JoinedRoute is a route geometry with its speed metric.
type JoinedRoute struct {
	RouteID        string         `json:"route_id"`
	DirectionID    string         `json:"direction_id,omitempty"`
	ShapeID        string         `json:"shape_id"`
	Headsign       string         `json:"headsign,omitempty"`
	RouteShortName string         `json:"route_short_name,omitempty"`
	RouteLongName  string         `json:"route_long_name,omitempty"`
	RouteColor     string         `json:"route_color,omitempty"`
	AvgSpeed       float64        `json:"avg_speed"`
	Color          string         `json:"color"`
	Geometry       orb.LineString `json:"-"`
	// OriginalPoints is the point count before simplification.
	OriginalPoints int `json:"original_points"`
}

// RouteMap is everything the map view needs for one request.
type RouteMap struct {
	Routes  []JoinedRoute `json:"routes"`
	Scale   ColorScale    `json:"scale"`
	Summary Summary       `json:"summary"`
	Bounds  orb.Bound     `json:"-"`
	// Dropped counts mapped shapes whose route had no metric.
	Dropped int `json:"dropped"`
}

// Prepare joins shapes to metrics on route id, drops rows without a metric,
// simplifies the surviving lines and colors them on a scale spanning the
// surviving speeds. The inputs are not modified.
func Prepare(shapes []gtfs.RouteShape, rows []metrics.RouteMetric, catalog gtfs.RouteCatalog, opts Options) *RouteMap {
	speeds := make(map[string]float64, len(rows))
	for _, m := range rows {
		if m.RouteID == "" {
			continue
		}
		if _, ok := speeds[m.RouteID]; !ok {
			speeds[m.RouteID] = m.AvgSpeed
		}
	}

	result := &RouteMap{Summary: Summarize(rows)}
	var values []float64
	for _, s := range shapes {
		if !s.Mapped {
			continue
		}
		speed, ok := speeds[s.RouteID]
		if !ok {
			result.Dropped++
			continue
		}

		info := catalog.Lookup(s.RouteID)
		result.Routes = append(result.Routes, JoinedRoute{
			RouteID:        s.RouteID,
			DirectionID:    s.DirectionID,
			ShapeID:        s.ShapeID,
			Headsign:       s.Headsign,
			RouteShortName: info.ShortName,
			RouteLongName:  info.LongName,
			RouteColor:     info.Color,
			AvgSpeed:       speed,
			Geometry:       simplifyLine(s.Geometry, opts.Tolerance),
			OriginalPoints: len(s.Geometry),
		})
		values = append(values, speed)
	}

	result.Scale = NewColorScale(values)
	for i := range result.Routes {
		r := &result.Routes[i]
		r.Color = result.Scale.Color(r.AvgSpeed)
		if i == 0 {
			result.Bounds = r.Geometry.Bound()
		} else {
			result.Bounds = result.Bounds.Union(r.Geometry.Bound())
		}
	}

	slices.SortStableFunc(result.Routes, func(a, b JoinedRoute) int {
		return cmp.Or(
			cmp.Compare(a.AvgSpeed, b.AvgSpeed),
			cmp.Compare(a.RouteID, b.RouteID),
			cmp.Compare(a.ShapeID, b.ShapeID),
			cmp.Compare(a.DirectionID, b.DirectionID),
			cmp.Compare(a.Headsign, b.Headsign),
		)
	})
	return result
}

// simplifyLine returns a simplified copy of line; the cached original is left intact.
func simplifyLine(line orb.LineString, tolerance float64) orb.LineString {
	clone := line.Clone()
	if tolerance <= 0 || len(clone) < 3 {
		return clone
	}
	return simplify.DouglasPeucker(tolerance).LineString(clone)
}

// Center returns the middle of the map's bounds.
func (m *RouteMap) Center() orb.Point {
	return m.Bounds.Center()
}
