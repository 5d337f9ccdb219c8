package explorer

import (
	"archive/zip"
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"busexplorer.nyc/internal/failure"
	"busexplorer.nyc/internal/gtfs"
	"busexplorer.nyc/internal/logging"
	"busexplorer.nyc/internal/metrics"
)

const (
	feedShapes = `shape_id,shape_pt_lat,shape_pt_lon,shape_pt_sequence
A,40.70,-73.99,1
A,40.72,-73.98,2
A,40.71,-73.95,3
B,40.65,-73.90,1
B,40.66,-73.88,2
`
	feedTrips = `route_id,service_id,trip_id,shape_id,direction_id,trip_headsign
1,WKD,t1,A,0,DOWNTOWN
2,WKD,t2,B,1,UPTOWN
`
)

type fakeFeeds struct {
	mu      sync.Mutex
	archive []byte
	err     error
	calls   int
}

func (f *fakeFeeds) Fetch(_ context.Context, _ string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.archive, f.err
}

type fakeSpeeds struct {
	mu      sync.Mutex
	rows    []metrics.RouteMetric
	err     error
	latest  time.Time
	queries []metrics.Query
}

func (f *fakeSpeeds) RouteSpeeds(_ context.Context, q metrics.Query) ([]metrics.RouteMetric, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	return f.rows, f.err
}

func (f *fakeSpeeds) LatestTimestamp(context.Context) (time.Time, error) {
	return f.latest, f.err
}

func zipFeed(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

var testBorough = Borough{ID: "brooklyn", Name: "Brooklyn", FeedURL: "https://feeds.test/gtfs_b.zip", MetricsBorough: "Brooklyn"}

func newTestExplorer(t *testing.T, feeds *fakeFeeds, speeds *fakeSpeeds, boroughs ...Borough) *Explorer {
	t.Helper()
	if len(boroughs) == 0 {
		boroughs = []Borough{testBorough}
	}
	return New(feeds, speeds, Config{Boroughs: boroughs, Tolerance: 0.0001}, slog.New(slog.DiscardHandler))
}

func TestRouteMapEndToEnd(t *testing.T) {
	feeds := &fakeFeeds{archive: zipFeed(t, map[string]string{"shapes.txt": feedShapes, "trips.txt": feedTrips})}
	speeds := &fakeSpeeds{rows: []metrics.RouteMetric{{RouteID: "1", AvgSpeed: 5.0}, {RouteID: "2", AvgSpeed: 10.0}}}
	e := newTestExplorer(t, feeds, speeds)

	result, err := e.RouteMap(context.Background(), testBorough,
		metrics.Query{DateStart: "2024-01-01", DateEnd: "2024-01-31", GroupBy: metrics.GroupByRouteDirection}, gtfs.ByShape)
	require.NoError(t, err)

	routes := result.Map.Routes
	require.Len(t, routes, 2)
	assert.Equal(t, "1", routes[0].RouteID)
	assert.Len(t, routes[0].Geometry, 3)
	assert.Equal(t, "2", routes[1].RouteID)
	assert.Len(t, routes[1].Geometry, 2)
	assert.Equal(t, 5.0, result.Map.Scale.Min)
	assert.Equal(t, 10.0, result.Map.Scale.Max)

	require.Len(t, speeds.queries, 1)
	assert.Equal(t, "Brooklyn", speeds.queries[0].Borough)
	assert.Equal(t, metrics.GroupByRoute, speeds.queries[0].GroupBy)
	assert.False(t, result.Feed.Fallback)
	assert.Equal(t, 2, result.Feed.Shapes)
}

func TestRouteMapCachesFeedAndSpeeds(t *testing.T) {
	feeds := &fakeFeeds{archive: zipFeed(t, map[string]string{"shapes.txt": feedShapes, "trips.txt": feedTrips})}
	speeds := &fakeSpeeds{rows: []metrics.RouteMetric{{RouteID: "1", AvgSpeed: 5.0}}}
	e := newTestExplorer(t, feeds, speeds)
	q := metrics.Query{DateStart: "2024-01-01", DateEnd: "2024-01-31"}

	for range 3 {
		_, err := e.RouteMap(context.Background(), testBorough, q, gtfs.ByShape)
		require.NoError(t, err)
	}

	assert.Equal(t, 1, feeds.calls)
	assert.Len(t, speeds.queries, 1)

	_, err := e.RouteMap(context.Background(), testBorough, metrics.Query{DateStart: "2024-02-01"}, gtfs.ByHeadsign)
	require.NoError(t, err)
	assert.Equal(t, 1, feeds.calls)
	assert.Len(t, speeds.queries, 2)
}

func TestRouteMapMissingShapesMember(t *testing.T) {
	feeds := &fakeFeeds{archive: zipFeed(t, map[string]string{"trips.txt": feedTrips})}
	e := newTestExplorer(t, feeds, &fakeSpeeds{})

	_, err := e.RouteMap(context.Background(), testBorough, metrics.Query{}, gtfs.ByShape)

	require.Error(t, err)
	assert.Equal(t, failure.ParseFailure, failure.KindOf(err))

	// Failures are not cached.
	_, _ = e.RouteMap(context.Background(), testBorough, metrics.Query{}, gtfs.ByShape)
	assert.Equal(t, 2, feeds.calls)
}

func TestRouteMapRejectsInvalidQuery(t *testing.T) {
	feeds := &fakeFeeds{}
	e := newTestExplorer(t, feeds, &fakeSpeeds{})

	_, err := e.RouteMap(context.Background(), testBorough, metrics.Query{DateStart: "01/02/2024"}, gtfs.ByShape)

	require.Error(t, err)
	assert.Equal(t, failure.ValidationFailure, failure.KindOf(err))
	assert.Equal(t, 0, feeds.calls)
}

func TestRouteMapSpeedFailure(t *testing.T) {
	feeds := &fakeFeeds{archive: zipFeed(t, map[string]string{"shapes.txt": feedShapes, "trips.txt": feedTrips})}
	speeds := &fakeSpeeds{err: failure.WithStatus(failure.RemoteQueryFailure, "query speeds", 503)}
	e := newTestExplorer(t, feeds, speeds)

	_, err := e.RouteMap(context.Background(), testBorough, metrics.Query{}, gtfs.ByShape)

	require.Error(t, err)
	assert.Equal(t, failure.RemoteQueryFailure, failure.KindOf(err))
}

func TestRouteShapesFallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "brooklyn_routes.shp")
	_, err := gtfs.WriteShapefile(path, []gtfs.RouteShape{{
		RouteID: "B46", ShapeID: "S1", Headsign: "KINGS PLAZA", Mapped: true,
		Geometry: orb.LineString{{-73.93, 40.66}, {-73.92, 40.61}},
	}})
	require.NoError(t, err)

	b := testBorough
	b.FallbackShapefile = path
	feeds := &fakeFeeds{err: failure.WithStatus(failure.FetchFailure, "download feed", 503)}
	e := newTestExplorer(t, feeds, &fakeSpeeds{}, b)

	feed, err := e.RouteShapes(context.Background(), b)
	require.NoError(t, err)
	assert.True(t, feed.Fallback)
	require.Len(t, feed.Routes(gtfs.ByShape), 1)
	assert.Equal(t, "B46", feed.Routes(gtfs.ByShape)[0].RouteID)
	assert.Len(t, feed.Routes(gtfs.ByHeadsign), 1)

	_, err = e.RouteShapes(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, 2, feeds.calls, "fallback results are not cached")
}

func TestRouteShapesFallbackLogsToRequestLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "brooklyn_routes.shp")
	_, err := gtfs.WriteShapefile(path, []gtfs.RouteShape{{
		RouteID: "B46", ShapeID: "S1", Mapped: true,
		Geometry: orb.LineString{{-73.93, 40.66}, {-73.92, 40.61}},
	}})
	require.NoError(t, err)

	b := testBorough
	b.FallbackShapefile = path
	e := newTestExplorer(t, &fakeFeeds{err: failure.WithStatus(failure.FetchFailure, "download feed", 503)}, &fakeSpeeds{}, b)

	var buf bytes.Buffer
	requestLogger := slog.New(slog.NewJSONHandler(&buf, nil)).With(slog.String("path", "/api/route-map/brooklyn"))
	_, err = e.RouteShapes(logging.WithLogger(context.Background(), requestLogger), b)
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, `"msg":"feed unavailable, using fallback shapefile"`)
	assert.Contains(t, output, `"path":"/api/route-map/brooklyn"`)
	assert.Contains(t, output, `"borough":"brooklyn"`)
}

func TestRouteShapesFallbackUnreadable(t *testing.T) {
	b := testBorough
	b.FallbackShapefile = filepath.Join(t.TempDir(), "missing.shp")
	feeds := &fakeFeeds{err: failure.WithStatus(failure.FetchFailure, "download feed", 404)}
	e := newTestExplorer(t, feeds, &fakeSpeeds{}, b)

	_, err := e.RouteShapes(context.Background(), b)

	require.Error(t, err)
	assert.Equal(t, failure.FetchFailure, failure.KindOf(err))
}

// gatedFeeds blocks its first fetch until the caller's context is done.
type gatedFeeds struct {
	archive []byte
	started chan struct{}
	calls   atomic.Int32
}

func (f *gatedFeeds) Fetch(ctx context.Context, _ string) ([]byte, error) {
	if f.calls.Add(1) == 1 {
		close(f.started)
		<-ctx.Done()
		return nil, failure.Wrap(failure.FetchFailure, "download feed", ctx.Err())
	}
	return f.archive, nil
}

func TestRouteShapesSurvivesCancelledSharedLoad(t *testing.T) {
	feeds := &gatedFeeds{
		archive: zipFeed(t, map[string]string{"shapes.txt": feedShapes, "trips.txt": feedTrips}),
		started: make(chan struct{}),
	}
	e := New(feeds, &fakeSpeeds{}, Config{Boroughs: []Borough{testBorough}, Tolerance: 0.0001}, slog.New(slog.DiscardHandler))

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := e.RouteShapes(firstCtx, testBorough)
		firstErr <- err
	}()
	<-feeds.started

	second := make(chan error, 1)
	go func() {
		feed, err := e.RouteShapes(context.Background(), testBorough)
		if err == nil {
			assert.NotEmpty(t, feed.Routes(gtfs.ByShape))
		}
		second <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancelFirst()

	assert.ErrorIs(t, <-firstErr, context.Canceled)
	require.NoError(t, <-second)
	assert.Equal(t, int32(2), feeds.calls.Load())
}

func TestExportFallback(t *testing.T) {
	feeds := &fakeFeeds{archive: zipFeed(t, map[string]string{"shapes.txt": feedShapes, "trips.txt": feedTrips})}
	e := newTestExplorer(t, feeds, &fakeSpeeds{})
	dir := filepath.Join(t.TempDir(), "fallback")

	path, n, err := e.ExportFallback(context.Background(), testBorough, dir)

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, filepath.Join(dir, "brooklyn_routes.shp"), path)
	prj, err := os.ReadFile(filepath.Join(dir, "brooklyn_routes.prj"))
	require.NoError(t, err)
	assert.Contains(t, string(prj), "WGS_1984")

	rows, err := gtfs.ReadShapefile(path)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestSpeedsScopesQueryToBorough(t *testing.T) {
	speeds := &fakeSpeeds{rows: []metrics.RouteMetric{{RouteID: "Q44", AvgSpeed: 7}}}
	busco := Borough{ID: "busco", Name: "MTA Bus Company", FeedURL: "https://feeds.test/gtfs_busco.zip"}
	e := newTestExplorer(t, &fakeFeeds{}, speeds, testBorough, busco)

	_, err := e.Speeds(context.Background(), busco, metrics.Query{Borough: "Queens"})
	require.NoError(t, err)

	require.Len(t, speeds.queries, 1)
	assert.Empty(t, speeds.queries[0].Borough)
}

func TestLookupAndBoroughs(t *testing.T) {
	e := New(&fakeFeeds{}, &fakeSpeeds{}, Config{}, nil)

	b, ok := e.Lookup("Staten Island")
	require.True(t, ok)
	assert.Equal(t, "staten-island", b.ID)

	b, ok = e.Lookup("BX")
	assert.False(t, ok)

	b, ok = e.Lookup("BRONX")
	require.True(t, ok)
	assert.Equal(t, "https://rrgtfsfeeds.s3.amazonaws.com/gtfs_bx.zip", b.FeedURL)

	boroughs := e.Boroughs()
	require.Len(t, boroughs, 6)
	assert.Equal(t, "brooklyn", boroughs[0].ID)
}

func TestLatestDate(t *testing.T) {
	latest := time.Date(2025, 3, 31, 23, 0, 0, 0, time.UTC)
	e := newTestExplorer(t, &fakeFeeds{}, &fakeSpeeds{latest: latest})

	got, err := e.LatestDate(context.Background())

	require.NoError(t, err)
	assert.Equal(t, latest, got)
}

func TestCacheStatsAndPurge(t *testing.T) {
	feeds := &fakeFeeds{archive: zipFeed(t, map[string]string{"shapes.txt": feedShapes, "trips.txt": feedTrips})}
	e := newTestExplorer(t, feeds, &fakeSpeeds{})

	_, err := e.RouteShapes(context.Background(), testBorough)
	require.NoError(t, err)

	stats := e.CacheStats()
	require.Len(t, stats, 2)
	assert.Equal(t, "feeds", stats[0].Name)
	assert.Equal(t, []string{testBorough.FeedURL}, stats[0].Keys)
	assert.Len(t, e.CachedFeeds(), 1)

	e.Purge()
	assert.Empty(t, e.CachedFeeds())
}
