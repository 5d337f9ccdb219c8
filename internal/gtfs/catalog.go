package gtfs

import (
	"log/slog"
	"time"

	"github.com/jamespfennell/gtfs"

	"busexplorer.nyc/internal/logging"
)

// RouteInfo carries the descriptive fields of a route.
type RouteInfo struct {
	ShortName string
	LongName  string
	Color     string
}

// RouteCatalog maps a route id to its descriptive fields.
type RouteCatalog map[string]RouteInfo

// Lookup returns the route's descriptive fields, or zero values when unknown.
func (c RouteCatalog) Lookup(routeID string) RouteInfo {
	if c == nil {
		return RouteInfo{}
	}
	return c[routeID]
}

// BuildRouteCatalog parses the full static feed for route names and colors.
// The catalog only decorates rows, so a feed the full parser rejects yields
// an empty catalog and a warning instead of an error.
func BuildRouteCatalog(archive []byte, logger *slog.Logger) RouteCatalog {
	start := time.Now()
	staticData, err := gtfs.ParseStatic(archive, gtfs.ParseStaticOptions{})
	if err != nil {
		if logger != nil {
			logger.Warn("route catalog unavailable",
				slog.String("error", err.Error()),
				slog.String("component", "route_catalog"))
		}
		return RouteCatalog{}
	}

	catalog := make(RouteCatalog, len(staticData.Routes))
	for _, route := range staticData.Routes {
		catalog[route.Id] = RouteInfo{
			ShortName: route.ShortName,
			LongName:  route.LongName,
			Color:     route.Color,
		}
	}

	logging.LogStage(logger, "route_catalog_built", start,
		slog.Int("routes", len(catalog)),
		slog.Int("warnings", len(staticData.Warnings)))
	return catalog
}
