// Package metrics queries the MTA bus speeds dataset on the NY Open Data
// (Socrata) API.
package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"busexplorer.nyc/internal/failure"
	"busexplorer.nyc/internal/logging"
)

// DefaultEndpoint is the MTA Bus Speeds dataset.
const DefaultEndpoint = "https://data.ny.gov/resource/58t6-89vi.json"

// RouteMetric is one row of an average-speed query.
type RouteMetric struct {
	RouteID   string  `json:"route_id"`
	Direction string  `json:"direction,omitempty"`
	RouteName string  `json:"route_name,omitempty"`
	AvgSpeed  float64 `json:"avg_speed"`
}

// Client talks to a Socrata resource endpoint.
type Client struct {
	endpoint string
	appToken string
	client   *http.Client
	logger   *slog.Logger
}

// NewClient creates a Client. appToken may be empty.
func NewClient(endpoint, appToken string, timeout time.Duration, logger *slog.Logger) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		endpoint: endpoint,
		appToken: appToken,
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With(slog.String("component", "metrics_client")),
	}
}

// RouteSpeeds runs q and returns its rows ordered by average speed.
func (c *Client) RouteSpeeds(ctx context.Context, q Query) ([]RouteMetric, error) {
	if err := q.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	var rows []map[string]any
	if err := c.get(ctx, "query speeds", q.Values(), &rows); err != nil {
		return nil, err
	}

	metrics := make([]RouteMetric, 0, len(rows))
	for i, row := range rows {
		speed, err := parseSpeed(row[metricAlias])
		if err != nil {
			return nil, &failure.Error{
				Kind:   failure.TypeConversionFailure,
				Op:     "query speeds",
				Detail: fmt.Sprintf("row %d: %v", i, err),
			}
		}
		metrics = append(metrics, RouteMetric{
			RouteID:   stringField(row, "route_id"),
			Direction: stringField(row, "direction"),
			RouteName: stringField(row, "route_name"),
			AvgSpeed:  speed,
		})
	}

	logging.LogStage(c.logger, "route_speeds_fetched", start,
		slog.Int("rows", len(metrics)),
		slog.String("where", q.Where()))
	return metrics, nil
}

// LatestTimestamp returns the most recent timestamp in the dataset.
func (c *Client) LatestTimestamp(ctx context.Context) (time.Time, error) {
	params := url.Values{}
	params.Set("$select", "MAX(timestamp) as latest_date")

	var rows []map[string]any
	if err := c.get(ctx, "query latest date", params, &rows); err != nil {
		return time.Time{}, err
	}
	if len(rows) == 0 {
		return time.Time{}, failure.New(failure.NoDataFailure, "query latest date", "no date information found in the dataset")
	}
	raw := stringField(rows[0], "latest_date")
	if raw == "" {
		return time.Time{}, failure.New(failure.NoDataFailure, "query latest date", "no date information found in the dataset")
	}

	// Floating timestamps carry no zone; fractional seconds are accepted by time.Parse.
	latest, err := time.Parse("2006-01-02T15:04:05", raw)
	if err != nil {
		return time.Time{}, &failure.Error{Kind: failure.TypeConversionFailure, Op: "query latest date", Err: err}
	}
	return latest, nil
}

func (c *Client) get(ctx context.Context, op string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return failure.Wrap(failure.RemoteQueryFailure, op, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.appToken != "" {
		req.Header.Set("X-App-Token", c.appToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return failure.Wrap(failure.RemoteQueryFailure, op, err)
	}
	defer logging.CloseLogged(c.logger, resp.Body, "metrics_response_body")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &failure.Error{
			Kind:   failure.RemoteQueryFailure,
			Op:     op,
			Status: resp.StatusCode,
			Detail: remoteMessage(body),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return failure.Wrap(failure.RemoteQueryFailure, op+": decode response", err)
	}
	return nil
}

// remoteMessage extracts the message of a Socrata error body.
func remoteMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Message != "" {
		return payload.Message
	}
	return "unexpected response"
}

func stringField(row map[string]any, key string) string {
	switch v := row[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// parseSpeed accepts the string or number forms Socrata returns and rounds to two decimals.
func parseSpeed(v any) (float64, error) {
	var f float64
	switch s := v.(type) {
	case float64:
		f = s
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, fmt.Errorf("non-numeric %s %q", metricAlias, s)
		}
		f = parsed
	case nil:
		return 0, fmt.Errorf("missing %s", metricAlias)
	default:
		return 0, fmt.Errorf("unexpected %s value %v", metricAlias, s)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-finite %s", metricAlias)
	}
	return math.Round(f*100) / 100, nil
}
