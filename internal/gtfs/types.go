package gtfs

import "github.com/paulmach/orb"

// ShapePoint is one row of shapes.txt.
type ShapePoint struct {
	ShapeID  string
	Lon      float64
	Lat      float64
	Sequence float64
}

// ShapeTable holds the rows of shapes.txt in file order.
type ShapeTable struct {
	Points []ShapePoint
}

// TripRow is the part of a trips.txt row needed to place a shape on a route.
type TripRow struct {
	RouteID     string
	ShapeID     string
	DirectionID string
	Headsign    string
}

// TripTable holds the rows of trips.txt in file order.
type TripTable struct {
	Trips []TripRow
}

// FeedTables are the two members of a feed archive the pipeline reads.
type FeedTables struct {
	Shapes *ShapeTable
	Trips  *TripTable
}

// Granularity selects how trip rows are reduced before joining them to shapes.
type Granularity int

const (
	// ByShape keeps one row per distinct (route, direction, shape).
	ByShape Granularity = iota
	// ByHeadsign keeps one row per distinct (route, headsign).
	ByHeadsign
)

func (g Granularity) String() string {
	if g == ByHeadsign {
		return "headsign"
	}
	return "shape"
}

// RouteShape is a line geometry placed on a route.
//
// Geometry is shared with the cache and must not be modified; callers that
// need a different line clone it first.
type RouteShape struct {
	RouteID     string
	ShapeID     string
	DirectionID string
	Headsign    string
	// Mapped is false when no trip references the shape.
	Mapped   bool
	Geometry orb.LineString
}

// AssemblyStats describes what the assembler dropped.
type AssemblyStats struct {
	Shapes           int
	DegenerateShapes int
	UnmappedShapes   int
	Rows             int
}
