package models

import (
	"busexplorer.nyc/internal/explorer"
	"busexplorer.nyc/internal/render"
)

// RouteLine is one colored route on the map. Points is a Google encoded polyline.
type RouteLine struct {
	RouteID        string  `json:"routeId"`
	DirectionID    string  `json:"directionId,omitempty"`
	ShapeID        string  `json:"shapeId"`
	Headsign       string  `json:"headsign,omitempty"`
	ShortName      string  `json:"shortName,omitempty"`
	LongName       string  `json:"longName,omitempty"`
	RouteColor     string  `json:"routeColor,omitempty"`
	AvgSpeed       float64 `json:"avgSpeed"`
	Color          string  `json:"color"`
	Points         string  `json:"points"`
	Length         int     `json:"length"`
	OriginalLength int     `json:"originalLength"`
}

type Scale struct {
	Min   float64            `json:"min"`
	Max   float64            `json:"max"`
	Empty bool               `json:"empty"`
	Stops []render.ColorStop `json:"stops"`
}

type RouteMap struct {
	Borough     string            `json:"borough"`
	Granularity string            `json:"granularity"`
	Start       string            `json:"start,omitempty"`
	End         string            `json:"end,omitempty"`
	Routes      []RouteLine       `json:"routes"`
	Scale       Scale             `json:"scale"`
	Summary     render.Summary    `json:"summary"`
	Center      []float64         `json:"center,omitempty"`
	Bounds      []float64         `json:"bounds,omitempty"`
	Dropped     int               `json:"dropped"`
	Feed        explorer.FeedInfo `json:"feed"`
}

// NewRouteMap flattens an explorer result. Center is [lat, lon] and Bounds
// is [minLon, minLat, maxLon, maxLat].
func NewRouteMap(result *explorer.RouteMapResult, granularity string) RouteMap {
	m := result.Map
	routes := make([]RouteLine, 0, len(m.Routes))
	for _, r := range m.Routes {
		points := r.EncodedPolyline()
		routes = append(routes, RouteLine{
			RouteID:        r.RouteID,
			DirectionID:    r.DirectionID,
			ShapeID:        r.ShapeID,
			Headsign:       r.Headsign,
			ShortName:      r.RouteShortName,
			LongName:       r.RouteLongName,
			RouteColor:     r.RouteColor,
			AvgSpeed:       r.AvgSpeed,
			Color:          r.Color,
			Points:         points,
			Length:         len(r.Geometry),
			OriginalLength: r.OriginalPoints,
		})
	}

	entry := RouteMap{
		Borough:     result.Borough.ID,
		Granularity: granularity,
		Start:       result.Query.DateStart,
		End:         result.Query.DateEnd,
		Routes:      routes,
		Scale: Scale{
			Min:   m.Scale.Min,
			Max:   m.Scale.Max,
			Empty: m.Scale.Empty,
			Stops: m.Scale.Stops(),
		},
		Summary: m.Summary,
		Dropped: m.Dropped,
		Feed:    result.Feed,
	}
	if len(m.Routes) > 0 {
		c := m.Center()
		entry.Center = []float64{c.Lat(), c.Lon()}
		entry.Bounds = []float64{m.Bounds.Min.Lon(), m.Bounds.Min.Lat(), m.Bounds.Max.Lon(), m.Bounds.Max.Lat()}
	}
	return entry
}
