package gtfs

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/jamespfennell/gtfs/constants"
	"github.com/jamespfennell/gtfs/csv"

	"busexplorer.nyc/internal/failure"
)

const (
	ShapesFile constants.StaticFile = "shapes.txt"
	TripsFile  constants.StaticFile = "trips.txt"
)

// ParseFeed reads shapes.txt and trips.txt out of an in-memory GTFS archive.
func ParseFeed(archive []byte) (*FeedTables, error) {
	reader, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, failure.Wrap(failure.ParseFailure, "open feed archive", err)
	}

	members := map[constants.StaticFile]*zip.File{}
	for _, file := range reader.File {
		members[constants.StaticFile(file.Name)] = file
	}
	for _, name := range []constants.StaticFile{ShapesFile, TripsFile} {
		if members[name] == nil {
			return nil, failure.New(failure.ParseFailure, "parse feed", fmt.Sprintf("no %q member in archive", name))
		}
	}

	shapes, err := readMember(members[ShapesFile], parseShapeTable)
	if err != nil {
		return nil, err
	}
	trips, err := readMember(members[TripsFile], parseTripTable)
	if err != nil {
		return nil, err
	}

	return &FeedTables{Shapes: shapes, Trips: trips}, nil
}

func readMember[T any](zipFile *zip.File, parse func(*csv.File) (T, error)) (result T, err error) {
	name := constants.StaticFile(zipFile.Name)
	content, err := zipFile.Open()
	if err != nil {
		return result, failure.Wrap(failure.ParseFailure, fmt.Sprintf("open %s", name), err)
	}
	file, err := csv.New(name, content)
	if err != nil {
		return result, failure.Wrap(failure.ParseFailure, fmt.Sprintf("read %s", name), err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = failure.Wrap(failure.ParseFailure, fmt.Sprintf("read %s", name), closeErr)
		}
	}()
	return parse(file)
}

func parseShapeTable(file *csv.File) (*ShapeTable, error) {
	shapeIDColumn := file.RequiredColumn("shape_id")
	latColumn := file.RequiredColumn("shape_pt_lat")
	lonColumn := file.RequiredColumn("shape_pt_lon")
	sequenceColumn := file.RequiredColumn("shape_pt_sequence")
	if missing := file.MissingRequiredColumns(); len(missing) > 0 {
		return nil, failure.New(failure.SchemaMismatch, "parse shapes.txt", "missing columns "+strings.Join(missing, ", "))
	}

	table := &ShapeTable{}
	row := 1
	for file.NextRow() {
		row++
		lat, err := parseNumber("shape_pt_lat", latColumn.Read(), row)
		if err != nil {
			return nil, err
		}
		lon, err := parseNumber("shape_pt_lon", lonColumn.Read(), row)
		if err != nil {
			return nil, err
		}
		seq, err := parseNumber("shape_pt_sequence", sequenceColumn.Read(), row)
		if err != nil {
			return nil, err
		}
		table.Points = append(table.Points, ShapePoint{
			ShapeID:  shapeIDColumn.Read(),
			Lon:      lon,
			Lat:      lat,
			Sequence: seq,
		})
	}
	return table, nil
}

func parseTripTable(file *csv.File) (*TripTable, error) {
	routeIDColumn := file.RequiredColumn("route_id")
	shapeIDColumn := file.RequiredColumn("shape_id")
	directionIDColumn := file.OptionalColumn("direction_id")
	headsignColumn := file.OptionalColumn("trip_headsign")
	if missing := file.MissingRequiredColumns(); len(missing) > 0 {
		return nil, failure.New(failure.SchemaMismatch, "parse trips.txt", "missing columns "+strings.Join(missing, ", "))
	}

	table := &TripTable{}
	for file.NextRow() {
		table.Trips = append(table.Trips, TripRow{
			RouteID:     routeIDColumn.Read(),
			ShapeID:     shapeIDColumn.Read(),
			DirectionID: directionIDColumn.ReadOr(""),
			Headsign:    headsignColumn.ReadOr(""),
		})
	}
	return table, nil
}

func parseNumber(column, raw string, row int) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, &failure.Error{
			Kind:   failure.TypeConversionFailure,
			Op:     "parse shapes.txt",
			Detail: fmt.Sprintf("non-numeric %s %q on line %d", column, raw, row),
		}
	}
	return v, nil
}
