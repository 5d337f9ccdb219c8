// Package explorer runs the bus speed pipeline for a borough: it loads the
// borough's route geometry, queries average speeds and joins the two into
// a colored route map. Feed geometry and speed results are memoized for the
// life of the process.
package explorer

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"busexplorer.nyc/internal/cache"
	"busexplorer.nyc/internal/gtfs"
	"busexplorer.nyc/internal/logging"
	"busexplorer.nyc/internal/metrics"
	"busexplorer.nyc/internal/render"
)

// FeedSource returns the raw bytes of a GTFS archive.
type FeedSource interface {
	Fetch(ctx context.Context, source string) ([]byte, error)
}

// SpeedSource answers average-speed queries.
type SpeedSource interface {
	RouteSpeeds(ctx context.Context, q metrics.Query) ([]metrics.RouteMetric, error)
	LatestTimestamp(ctx context.Context) (time.Time, error)
}

// Config tunes an Explorer.
type Config struct {
	Boroughs []Borough
	// Tolerance is the simplification tolerance in degrees.
	Tolerance float64
	// RouteCatalog enables parsing the whole feed for route names and colors.
	RouteCatalog bool
	CacheSize    int
	CacheTTL     time.Duration
}

// Explorer is safe for concurrent use.
type Explorer struct {
	feeds    FeedSource
	speeds   SpeedSource
	boroughs boroughIndex
	config   Config
	logger   *slog.Logger

	feedCache  *cache.Cache[*Feed]
	speedCache *cache.Cache[[]metrics.RouteMetric]
}

// New creates an Explorer. With no boroughs configured DefaultBoroughs is used.
func New(feeds FeedSource, speeds SpeedSource, config Config, logger *slog.Logger) *Explorer {
	if logger == nil {
		logger = slog.Default()
	}
	if len(config.Boroughs) == 0 {
		config.Boroughs = DefaultBoroughs()
	}
	return &Explorer{
		feeds:      feeds,
		speeds:     speeds,
		boroughs:   newBoroughIndex(config.Boroughs),
		config:     config,
		logger:     logger.With(slog.String("component", "explorer")),
		feedCache:  cache.New[*Feed]("feeds", config.CacheSize, config.CacheTTL),
		speedCache: cache.New[[]metrics.RouteMetric]("speeds", config.CacheSize, config.CacheTTL),
	}
}

// Boroughs returns the configured boroughs in configuration order.
func (e *Explorer) Boroughs() []Borough {
	return slices.Clone(e.boroughs.ordered)
}

// Lookup finds a borough by id or name.
func (e *Explorer) Lookup(key string) (Borough, bool) {
	return e.boroughs.lookup(key)
}

// Speeds runs q for the borough. Results are cached on the full query.
func (e *Explorer) Speeds(ctx context.Context, b Borough, q metrics.Query) ([]metrics.RouteMetric, error) {
	q.Borough = b.MetricsBorough
	if err := q.Err(); err != nil {
		return nil, err
	}
	return e.speedCache.GetOrLoad(ctx, q.CacheKey(), func(ctx context.Context) ([]metrics.RouteMetric, error) {
		start := time.Now()
		rows, err := e.speeds.RouteSpeeds(ctx, q)
		if err != nil {
			return nil, err
		}
		logging.LogStage(e.logger, "route_speeds_loaded", start,
			slog.String("borough", b.ID),
			slog.Int("rows", len(rows)))
		return rows, nil
	})
}

// LatestDate returns the newest timestamp in the speeds dataset.
func (e *Explorer) LatestDate(ctx context.Context) (time.Time, error) {
	return e.speeds.LatestTimestamp(ctx)
}

// RouteMapResult is a prepared route map and where its geometry came from.
type RouteMapResult struct {
	Borough Borough
	Feed    FeedInfo
	Query   metrics.Query
	Map     *render.RouteMap
}

// RouteMap loads the borough's geometry and speeds and joins them. The
// speeds are grouped by route only, since the join is on route id.
func (e *Explorer) RouteMap(ctx context.Context, b Borough, q metrics.Query, granularity gtfs.Granularity) (*RouteMapResult, error) {
	q.GroupBy = metrics.GroupByRoute
	q.Borough = b.MetricsBorough
	if err := q.Err(); err != nil {
		return nil, err
	}

	feed, err := e.RouteShapes(ctx, b)
	if err != nil {
		return nil, err
	}
	rows, err := e.Speeds(ctx, b, q)
	if err != nil {
		return nil, err
	}

	routeMap := render.Prepare(feed.Routes(granularity), rows, feed.Catalog, render.Options{Tolerance: e.config.Tolerance})
	e.logger.Debug("route map prepared",
		slog.String("borough", b.ID),
		slog.String("granularity", granularity.String()),
		slog.Int("routes", len(routeMap.Routes)),
		slog.Int("dropped", routeMap.Dropped))

	return &RouteMapResult{Borough: b, Feed: feed.Info(), Query: q, Map: routeMap}, nil
}

// CacheStats describes the feed and speed caches.
func (e *Explorer) CacheStats() []cache.Stats {
	return []cache.Stats{e.feedCache.Stats(), e.speedCache.Stats()}
}

// CachedFeeds returns the feeds currently held in memory, ordered by source.
func (e *Explorer) CachedFeeds() []*Feed {
	var feeds []*Feed
	for _, key := range e.feedCache.Stats().Keys {
		if feed, ok := e.feedCache.Get(key); ok {
			feeds = append(feeds, feed)
		}
	}
	return feeds
}

// Purge drops every cached feed and query result.
func (e *Explorer) Purge() {
	e.feedCache.Purge()
	e.speedCache.Purge()
}
