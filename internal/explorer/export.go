package explorer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"busexplorer.nyc/internal/gtfs"
	"busexplorer.nyc/internal/logging"
)

// wgs84 is the projection sidecar for shapefiles in longitude/latitude degrees.
const wgs84 = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

// ExportFallback writes the borough's live route geometry to
// dir/<id>_routes.shp for use as a fallback. It returns the shapefile path
// and the number of routes written.
func (e *Explorer) ExportFallback(ctx context.Context, b Borough, dir string) (path string, n int, err error) {
	start := time.Now()
	feed, err := e.feedCache.GetOrLoad(ctx, b.FeedURL, func(ctx context.Context) (*Feed, error) {
		return e.loadFeed(ctx, b)
	})
	if err != nil {
		return "", 0, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("create export directory: %w", err)
	}
	path = filepath.Join(dir, b.ID+"_routes.shp")
	n, err = gtfs.WriteShapefile(path, feed.Routes(gtfs.ByShape))
	if err != nil {
		return "", 0, err
	}
	if err := e.writeProjection(strings.TrimSuffix(path, ".shp") + ".prj"); err != nil {
		return "", 0, err
	}

	logging.LogStage(e.logger, "fallback_shapefile_written", start,
		slog.String("borough", b.ID),
		slog.String("path", path),
		slog.Int("routes", n))
	return path, n, nil
}

func (e *Explorer) writeProjection(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create projection file: %w", err)
	}
	defer logging.CloseInto(&err, e.logger, f, "close_projection_file")

	if _, err := f.WriteString(wgs84); err != nil {
		return fmt.Errorf("write projection file: %w", err)
	}
	return nil
}
