package restapi

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/require"

	"busexplorer.nyc/internal/app"
	"busexplorer.nyc/internal/appconf"
	"busexplorer.nyc/internal/explorer"
	"busexplorer.nyc/internal/logging"
	"busexplorer.nyc/internal/metrics"
	"busexplorer.nyc/internal/models"
)

const (
	testShapes = `shape_id,shape_pt_lat,shape_pt_lon,shape_pt_sequence
A,40.70,-73.99,1
A,40.72,-73.98,2
A,40.71,-73.95,3
B,40.65,-73.90,1
B,40.66,-73.88,2
`
	testTrips = `route_id,service_id,trip_id,shape_id,direction_id,trip_headsign
1,WKD,t1,A,0,DOWNTOWN
2,WKD,t2,B,1,UPTOWN
`
)

var testBorough = explorer.Borough{
	ID:             "brooklyn",
	Name:           "Brooklyn",
	FeedURL:        "https://feeds.test/gtfs_b.zip",
	MetricsBorough: "Brooklyn",
}

type stubFeeds struct {
	mu      sync.Mutex
	archive []byte
	err     error
	calls   int
}

func (f *stubFeeds) Fetch(context.Context, string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.archive, f.err
}

type stubSpeeds struct {
	mu        sync.Mutex
	rows      []metrics.RouteMetric
	err       error
	latest    time.Time
	latestErr error
	queries   []metrics.Query
}

func (s *stubSpeeds) RouteSpeeds(_ context.Context, q metrics.Query) ([]metrics.RouteMetric, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, q)
	return s.rows, s.err
}

func (s *stubSpeeds) LatestTimestamp(context.Context) (time.Time, error) {
	return s.latest, s.latestErr
}

func zipArchive(t *testing.T, files map[string]string) []byte {
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

func testFeeds(t *testing.T) *stubFeeds {
	return &stubFeeds{archive: zipArchive(t, map[string]string{"shapes.txt": testShapes, "trips.txt": testTrips})}
}

func testSpeeds() *stubSpeeds {
	return &stubSpeeds{rows: []metrics.RouteMetric{{RouteID: "1", AvgSpeed: 5.0}, {RouteID: "2", AvgSpeed: 10.0}}}
}

// createTestApi creates a RestAPI backed by stub feed and speed sources.
// With no boroughs given only testBorough is configured.
func createTestApi(t *testing.T, feeds explorer.FeedSource, speeds explorer.SpeedSource, boroughs ...explorer.Borough) *RestAPI {
	t.Helper()
	if len(boroughs) == 0 {
		boroughs = []explorer.Borough{testBorough}
	}
	logger := slog.New(slog.DiscardHandler)

	application := &app.Application{
		Config: appconf.Config{
			Env:     appconf.EnvFlagToEnvironment("test"),
			ApiKeys: []string{"TEST"},
		},
		Logger:   logger,
		Explorer: explorer.New(feeds, speeds, explorer.Config{Boroughs: boroughs, Tolerance: 0.0001}, logger),
	}

	return &RestAPI{Application: application}
}

func newTestServer(t *testing.T, api *RestAPI) *httptest.Server {
	t.Helper()
	router := httprouter.New()
	api.SetRoutes(router)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func getEndpoint(t *testing.T, api *RestAPI, endpoint string) *http.Response {
	t.Helper()
	server := newTestServer(t, api)
	resp, err := http.Get(server.URL + endpoint)
	require.NoError(t, err)
	return resp
}

// serveApiAndRetrieveEndpoint makes a request to endpoint and returns the
// response and its decoded envelope.
func serveApiAndRetrieveEndpoint(t *testing.T, api *RestAPI, endpoint string) (*http.Response, models.ResponseModel) {
	t.Helper()
	resp := getEndpoint(t, api, endpoint)
	defer logging.CloseLogged(slog.Default().With(slog.String("component", "test")),
		resp.Body, "http_response_body")

	var response models.ResponseModel
	err := json.NewDecoder(resp.Body).Decode(&response)
	require.NoError(t, err)

	return resp, response
}

func decodeFieldErrors(t *testing.T, resp *http.Response) map[string][]string {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()

	var body struct {
		FieldErrors map[string][]string `json:"fieldErrors"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.FieldErrors
}
