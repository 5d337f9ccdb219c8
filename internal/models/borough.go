package models

import "time"

type Borough struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	FeedURL        string `json:"feedUrl"`
	MetricsBorough string `json:"metricsBorough,omitempty"`
	HasFallback    bool   `json:"hasFallback"`
}

func NewBorough(id, name, feedURL, metricsBorough string, hasFallback bool) Borough {
	return Borough{
		ID:             id,
		Name:           name,
		FeedURL:        feedURL,
		MetricsBorough: metricsBorough,
		HasFallback:    hasFallback,
	}
}

// LatestDate is the newest day with speed data, used as the date picker's upper bound.
type LatestDate struct {
	Date      string `json:"date"`
	Timestamp string `json:"timestamp"`
	Time      int64  `json:"time"`
}

func NewLatestDate(t time.Time) LatestDate {
	return LatestDate{
		Date:      t.Format(time.DateOnly),
		Timestamp: t.Format("2006-01-02T15:04:05"),
		Time:      t.UnixNano() / int64(time.Millisecond),
	}
}
