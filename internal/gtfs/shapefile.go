package gtfs

import (
	"fmt"
	"os"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"

	"busexplorer.nyc/internal/failure"
)

// Attribute columns of an exported route shapefile, in order.
var shapefileFields = []string{"route_id", "shape_id", "dir_id", "headsign"}

// WriteShapefile writes mapped route shapes to an ESRI shapefile at path
// (with its .shx and .dbf companions). Coordinates stay in WGS 84 degrees.
func WriteShapefile(path string, rows []RouteShape) (int, error) {
	base := path
	if strings.HasSuffix(strings.ToLower(base), ".shp") {
		base = base[:len(base)-len(".shp")]
	}
	writer, err := shp.Create(path, shp.POLYLINE)
	if err != nil {
		return 0, fmt.Errorf("create shapefile: %w", err)
	}
	n, err := writeShapeRecords(writer, rows)
	writer.Close()
	if err != nil {
		return n, err
	}

	// go-shp creates the attribute table as "<base>dbf".
	if err := os.Rename(base+"dbf", base+".dbf"); err != nil {
		return n, fmt.Errorf("rename shapefile attributes: %w", err)
	}
	return n, nil
}

func writeShapeRecords(writer *shp.Writer, rows []RouteShape) (int, error) {
	var sizes [4]uint8
	for _, r := range rows {
		for i, v := range []string{r.RouteID, r.ShapeID, r.DirectionID, r.Headsign} {
			sizes[i] = max(sizes[i], uint8(min(254, len(v))))
		}
	}
	fields := make([]shp.Field, len(shapefileFields))
	for i, name := range shapefileFields {
		fields[i] = shp.StringField(name, max(sizes[i], 1))
	}
	if err := writer.SetFields(fields); err != nil {
		return 0, fmt.Errorf("set shapefile fields: %w", err)
	}

	n := 0
	for _, r := range rows {
		if !r.Mapped || len(r.Geometry) < 2 {
			continue
		}
		points := make([]shp.Point, len(r.Geometry))
		for i, p := range r.Geometry {
			points[i] = shp.Point{X: p.Lon(), Y: p.Lat()}
		}
		writer.Write(shp.NewPolyLine([][]shp.Point{points}))

		for i, v := range []string{r.RouteID, r.ShapeID, r.DirectionID, r.Headsign} {
			if err := writer.WriteAttribute(n, i, truncate(v, 254)); err != nil {
				return n, fmt.Errorf("write shapefile attribute: %w", err)
			}
		}
		n++
	}
	return n, nil
}

// ReadShapefile loads route shapes written by WriteShapefile.
func ReadShapefile(path string) ([]RouteShape, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, failure.Wrap(failure.ParseFailure, "open fallback shapefile", err)
	}
	defer reader.Close()

	columns := map[string]int{}
	for i, f := range reader.Fields() {
		columns[strings.ToLower(f.String())] = i
	}
	for _, name := range []string{"route_id", "shape_id"} {
		if _, ok := columns[name]; !ok {
			return nil, failure.New(failure.SchemaMismatch, "read fallback shapefile", fmt.Sprintf("missing attribute %q", name))
		}
	}
	attr := func(row int, name string) string {
		idx, ok := columns[name]
		if !ok {
			return ""
		}
		return strings.Trim(reader.ReadAttribute(row, idx), " \x00")
	}

	var rows []RouteShape
	for reader.Next() {
		n, shape := reader.Shape()
		line, ok := shape.(*shp.PolyLine)
		if !ok || len(line.Points) < 2 {
			continue
		}
		geometry := make(orb.LineString, len(line.Points))
		for i, p := range line.Points {
			geometry[i] = orb.Point{p.X, p.Y}
		}
		routeID := attr(n, "route_id")
		rows = append(rows, RouteShape{
			RouteID:     routeID,
			ShapeID:     attr(n, "shape_id"),
			DirectionID: attr(n, "dir_id"),
			Headsign:    attr(n, "headsign"),
			Mapped:      routeID != "",
			Geometry:    geometry,
		})
	}
	if err := reader.Err(); err != nil {
		return nil, failure.Wrap(failure.ParseFailure, "read fallback shapefile", err)
	}
	return rows, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
