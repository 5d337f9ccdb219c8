package gtfs

import (
	"cmp"
	"log/slog"
	"slices"

	"github.com/paulmach/orb"
)

// AssembleRouteShapes builds one line per shape and places it on the routes
// whose trips reference it.
//
// Shapes with fewer than two points are skipped. Duplicate trip rows are
// resolved by ordering on (route, shape, direction, headsign) and keeping
// the first, so the output does not depend on input row order.
func AssembleRouteShapes(shapes *ShapeTable, trips *TripTable, granularity Granularity, logger *slog.Logger) ([]RouteShape, AssemblyStats) {
	var stats AssemblyStats
	if shapes == nil || trips == nil {
		return nil, stats
	}
	if logger == nil {
		logger = slog.Default()
	}

	lines := buildLines(shapes.Points, &stats, logger)
	mapping := reduceTrips(trips.Trips, granularity)

	byShape := make(map[string][]TripRow, len(mapping))
	for _, trip := range mapping {
		byShape[trip.ShapeID] = append(byShape[trip.ShapeID], trip)
	}

	var rows []RouteShape
	for _, line := range lines {
		matches := byShape[line.shapeID]
		if len(matches) == 0 {
			stats.UnmappedShapes++
			rows = append(rows, RouteShape{ShapeID: line.shapeID, Geometry: line.geometry})
			continue
		}
		for _, trip := range matches {
			rows = append(rows, RouteShape{
				RouteID:     trip.RouteID,
				ShapeID:     line.shapeID,
				DirectionID: trip.DirectionID,
				Headsign:    trip.Headsign,
				Mapped:      true,
				Geometry:    line.geometry,
			})
		}
	}

	if granularity == ByHeadsign {
		rows = FirstPerHeadsign(rows)
	}
	stats.Rows = len(rows)
	return rows, stats
}

type shapeLine struct {
	shapeID  string
	geometry orb.LineString
}

// buildLines sorts points by (shape, sequence) and connects each group.
// The result is ordered by shape id.
func buildLines(points []ShapePoint, stats *AssemblyStats, logger *slog.Logger) []shapeLine {
	sorted := slices.Clone(points)
	slices.SortStableFunc(sorted, func(a, b ShapePoint) int {
		return cmp.Or(
			cmp.Compare(a.ShapeID, b.ShapeID),
			cmp.Compare(a.Sequence, b.Sequence),
		)
	})

	var lines []shapeLine
	for start := 0; start < len(sorted); {
		end := start
		for end < len(sorted) && sorted[end].ShapeID == sorted[start].ShapeID {
			end++
		}
		stats.Shapes++

		group := sorted[start:end]
		if len(group) < 2 {
			stats.DegenerateShapes++
			logger.Debug("skipping degenerate shape",
				slog.String("shape_id", group[0].ShapeID),
				slog.Int("points", len(group)))
		} else {
			line := make(orb.LineString, len(group))
			for i, p := range group {
				line[i] = orb.Point{p.Lon, p.Lat}
			}
			lines = append(lines, shapeLine{shapeID: group[0].ShapeID, geometry: line})
		}
		start = end
	}
	return lines
}

// reduceTrips drops rows missing a route or shape and de-duplicates the rest.
func reduceTrips(trips []TripRow, granularity Granularity) []TripRow {
	ordered := make([]TripRow, 0, len(trips))
	for _, t := range trips {
		if t.ShapeID == "" || t.RouteID == "" {
			continue
		}
		ordered = append(ordered, t)
	}
	slices.SortStableFunc(ordered, compareTrips)

	type key struct{ a, b, c string }
	seen := make(map[key]bool, len(ordered))
	reduced := ordered[:0]
	for _, t := range ordered {
		k := key{t.RouteID, t.DirectionID, t.ShapeID}
		if granularity == ByHeadsign {
			// Every shape a headsign uses is kept here; the join picks one per group.
			k = key{t.RouteID, t.Headsign, t.ShapeID}
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		reduced = append(reduced, t)
	}
	return reduced
}

func compareTrips(a, b TripRow) int {
	return cmp.Or(
		cmp.Compare(a.RouteID, b.RouteID),
		cmp.Compare(a.ShapeID, b.ShapeID),
		cmp.Compare(a.DirectionID, b.DirectionID),
		cmp.Compare(a.Headsign, b.Headsign),
	)
}

// FirstPerHeadsign keeps the geometry with the lowest shape id for every
// (route, headsign) pair. Unmapped shapes are dropped.
func FirstPerHeadsign(rows []RouteShape) []RouteShape {
	type key struct{ route, headsign string }
	best := map[key]RouteShape{}
	for _, r := range rows {
		if !r.Mapped {
			continue
		}
		k := key{r.RouteID, r.Headsign}
		if current, ok := best[k]; !ok || r.ShapeID < current.ShapeID {
			best[k] = r
		}
	}

	out := make([]RouteShape, 0, len(best))
	for _, r := range best {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b RouteShape) int {
		return cmp.Or(cmp.Compare(a.RouteID, b.RouteID), cmp.Compare(a.Headsign, b.Headsign))
	})
	return out
}
