package render

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/paulmach/orb/geojson"
	"github.com/twpayne/go-polyline"

	"busexplorer.nyc/internal/metrics"
)

// RouteColumns is the column order of WriteRoutesCSV.
var RouteColumns = []string{
	"route_id", "direction_id", "shape_id", "headsign",
	"route_short_name", "route_long_name", "avg_speed", "color", "point_count",
}

// WriteMetricsCSV writes speed rows with the query's group fields followed by avg_speed.
func WriteMetricsCSV(w io.Writer, groupFields []string, rows []metrics.RouteMetric) error {
	cw := csv.NewWriter(w)
	header := append(append([]string{}, groupFields...), "avg_speed")
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		record := make([]string, 0, len(header))
		for _, f := range groupFields {
			switch f {
			case "direction":
				record = append(record, r.Direction)
			case "route_name":
				record = append(record, r.RouteName)
			default:
				record = append(record, r.RouteID)
			}
		}
		record = append(record, formatSpeed(r.AvgSpeed))
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteRoutesCSV writes the joined table without geometry.
func WriteRoutesCSV(w io.Writer, routes []JoinedRoute) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(RouteColumns); err != nil {
		return err
	}
	for _, r := range routes {
		if err := cw.Write([]string{
			r.RouteID, r.DirectionID, r.ShapeID, r.Headsign,
			r.RouteShortName, r.RouteLongName, formatSpeed(r.AvgSpeed), r.Color,
			strconv.Itoa(len(r.Geometry)),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatSpeed(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// EncodedPolyline returns the route's line in Google's encoded polyline format.
func (r JoinedRoute) EncodedPolyline() string {
	coords := make([][]float64, len(r.Geometry))
	for i, p := range r.Geometry {
		coords[i] = []float64{p.Lat(), p.Lon()}
	}
	return string(polyline.EncodeCoords(coords))
}

// FeatureCollection returns the map as GeoJSON, one LineString feature per route.
func (m *RouteMap) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, r := range m.Routes {
		f := geojson.NewFeature(r.Geometry)
		f.Properties["route_id"] = r.RouteID
		f.Properties["direction_id"] = r.DirectionID
		f.Properties["shape_id"] = r.ShapeID
		f.Properties["headsign"] = r.Headsign
		f.Properties["route_short_name"] = r.RouteShortName
		f.Properties["route_long_name"] = r.RouteLongName
		f.Properties["avg_speed"] = r.AvgSpeed
		f.Properties["color"] = r.Color
		fc.Append(f)
	}
	if len(m.Routes) > 0 {
		fc.BBox = geojson.NewBBox(m.Bounds)
	}
	fc.ExtraMembers = geojson.Properties{
		"scale":   m.Scale,
		"summary": m.Summary,
	}
	return fc
}
