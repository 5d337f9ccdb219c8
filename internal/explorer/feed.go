package explorer

import (
	"context"
	"log/slog"
	"time"

	"busexplorer.nyc/internal/gtfs"
	"busexplorer.nyc/internal/logging"
)

// Feed is the assembled geometry of one borough's feed. It is shared
// through the cache and must be treated as read-only.
type Feed struct {
	Borough    string
	Source     string
	Fallback   bool
	LoadedAt   time.Time
	Stats      gtfs.AssemblyStats
	Catalog    gtfs.RouteCatalog
	byShape    []gtfs.RouteShape
	byHeadsign []gtfs.RouteShape
}

// FeedInfo is the part of a Feed reported to API clients.
type FeedInfo struct {
	Source           string    `json:"source"`
	Fallback         bool      `json:"fallback"`
	LoadedAt         time.Time `json:"loadedAt"`
	Shapes           int       `json:"shapes"`
	DegenerateShapes int       `json:"degenerateShapes"`
	UnmappedShapes   int       `json:"unmappedShapes"`
}

// Routes returns the feed's route shapes at the given granularity.
func (f *Feed) Routes(granularity gtfs.Granularity) []gtfs.RouteShape {
	if granularity == gtfs.ByHeadsign {
		return f.byHeadsign
	}
	return f.byShape
}

func (f *Feed) Info() FeedInfo {
	return FeedInfo{
		Source:           f.Source,
		Fallback:         f.Fallback,
		LoadedAt:         f.LoadedAt,
		Shapes:           f.Stats.Shapes,
		DegenerateShapes: f.Stats.DegenerateShapes,
		UnmappedShapes:   f.Stats.UnmappedShapes,
	}
}

// RouteShapes returns the borough's route geometry, downloading and
// assembling the feed on first use. When the feed cannot be loaded and the
// borough has a fallback shapefile, the shapefile is served instead; such a
// result is not cached, so the live feed is tried again on the next call.
func (e *Explorer) RouteShapes(ctx context.Context, b Borough) (*Feed, error) {
	feed, err := e.feedCache.GetOrLoad(ctx, b.FeedURL, func(ctx context.Context) (*Feed, error) {
		return e.loadFeed(ctx, b)
	})
	if err == nil {
		return feed, nil
	}
	if b.FallbackShapefile == "" || ctx.Err() != nil {
		return nil, err
	}

	logger := logging.FromContext(ctx, e.logger).With(slog.String("borough", b.ID))
	logger.Warn("feed unavailable, using fallback shapefile",
		slog.String("error", err.Error()),
		slog.String("fallback", b.FallbackShapefile))
	fallback, fallbackErr := loadFallback(b)
	if fallbackErr != nil {
		logging.LogError(logger, "fallback shapefile unreadable", fallbackErr,
			slog.String("fallback", b.FallbackShapefile))
		return nil, err
	}
	return fallback, nil
}

func (e *Explorer) loadFeed(ctx context.Context, b Borough) (*Feed, error) {
	start := time.Now()
	archive, err := e.feeds.Fetch(ctx, b.FeedURL)
	if err != nil {
		return nil, err
	}
	tables, err := gtfs.ParseFeed(archive)
	if err != nil {
		return nil, err
	}

	byShape, stats := gtfs.AssembleRouteShapes(tables.Shapes, tables.Trips, gtfs.ByShape, e.logger)
	byHeadsign, _ := gtfs.AssembleRouteShapes(tables.Shapes, tables.Trips, gtfs.ByHeadsign, e.logger)

	feed := &Feed{
		Borough:    b.ID,
		Source:     b.FeedURL,
		LoadedAt:   time.Now(),
		Stats:      stats,
		byShape:    byShape,
		byHeadsign: byHeadsign,
	}
	if e.config.RouteCatalog {
		feed.Catalog = gtfs.BuildRouteCatalog(archive, e.logger)
	}

	logging.LogStage(e.logger, "borough_feed_loaded", start,
		slog.String("borough", b.ID),
		slog.Int("shapes", stats.Shapes),
		slog.Int("degenerate_shapes", stats.DegenerateShapes),
		slog.Int("unmapped_shapes", stats.UnmappedShapes),
		slog.Int("rows", stats.Rows))
	return feed, nil
}

func loadFallback(b Borough) (*Feed, error) {
	rows, err := gtfs.ReadShapefile(b.FallbackShapefile)
	if err != nil {
		return nil, err
	}
	stats := gtfs.AssemblyStats{Shapes: len(rows), Rows: len(rows)}
	for _, r := range rows {
		if !r.Mapped {
			stats.UnmappedShapes++
		}
	}
	return &Feed{
		Borough:    b.ID,
		Source:     b.FallbackShapefile,
		Fallback:   true,
		LoadedAt:   time.Now(),
		Stats:      stats,
		byShape:    rows,
		byHeadsign: gtfs.FirstPerHeadsign(rows),
	}, nil
}
