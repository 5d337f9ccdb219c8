package gtfs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"busexplorer.nyc/internal/failure"
	"busexplorer.nyc/internal/logging"
)

// Fetcher downloads GTFS archives and keeps them in memory.
type Fetcher struct {
	client *http.Client
	logger *slog.Logger
}

// NewFetcher creates a Fetcher whose requests give up after timeout.
// A zero timeout means no client-side limit.
func NewFetcher(timeout time.Duration, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
		logger: logger.With(slog.String("component", "feed_fetcher")),
	}
}

// IsLocalSource reports whether source is a path on disk rather than a URL.
func IsLocalSource(source string) bool {
	return !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://")
}

// Fetch returns the raw archive bytes found at source. Nothing is written to disk.
func (f *Fetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	start := time.Now()

	if IsLocalSource(source) {
		b, err := os.ReadFile(source)
		if err != nil {
			return nil, failure.Wrap(failure.FetchFailure, "read local feed", err)
		}
		return b, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, failure.Wrap(failure.FetchFailure, "build feed request", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, failure.Wrap(failure.FetchFailure, "download feed", err)
	}
	defer logging.CloseLogged(f.logger, resp.Body, "feed_response_body")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, failure.WithStatus(failure.FetchFailure, "download feed", resp.StatusCode)
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, failure.Wrap(failure.FetchFailure, "read feed body", err)
	}

	logging.LogStage(f.logger, "gtfs_feed_downloaded", start,
		slog.String("url", source),
		slog.String("size_mb", fmt.Sprintf("%.1f", float64(len(b))/(1024*1024))))

	return b, nil
}
