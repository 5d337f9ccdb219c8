package explorer

import "strings"

const feedBaseURL = "https://rrgtfsfeeds.s3.amazonaws.com/"

// Borough is one selectable area with its static bus feed.
type Borough struct {
	// ID is the path segment used by the API, e.g. "staten-island".
	ID   string `yaml:"id" json:"id" validate:"required,max=32"`
	Name string `yaml:"name" json:"name" validate:"required"`
	// FeedURL is the GTFS archive for the area; a local path is also accepted.
	FeedURL string `yaml:"feedUrl" json:"feedUrl" validate:"required"`
	// MetricsBorough is the value of the speeds dataset's borough column.
	// Empty disables the borough filter.
	MetricsBorough string `yaml:"metricsBorough" json:"metricsBorough,omitempty"`
	// FallbackShapefile is read when the live feed cannot be loaded.
	FallbackShapefile string `yaml:"fallbackShapefile" json:"-"`
}

// DefaultBoroughs lists the MTA's per-borough bus feeds.
func DefaultBoroughs() []Borough {
	return []Borough{
		{ID: "brooklyn", Name: "Brooklyn", FeedURL: feedBaseURL + "gtfs_b.zip", MetricsBorough: "Brooklyn"},
		{ID: "bronx", Name: "Bronx", FeedURL: feedBaseURL + "gtfs_bx.zip", MetricsBorough: "Bronx"},
		{ID: "manhattan", Name: "Manhattan", FeedURL: feedBaseURL + "gtfs_m.zip", MetricsBorough: "Manhattan"},
		{ID: "queens", Name: "Queens", FeedURL: feedBaseURL + "gtfs_q.zip", MetricsBorough: "Queens"},
		{ID: "staten-island", Name: "Staten Island", FeedURL: feedBaseURL + "gtfs_si.zip", MetricsBorough: "Staten Island"},
		{ID: "busco", Name: "MTA Bus Company", FeedURL: feedBaseURL + "gtfs_busco.zip"},
	}
}

// boroughIndex finds a borough by id or display name, ignoring case.
type boroughIndex struct {
	ordered []Borough
	byKey   map[string]Borough
}

func newBoroughIndex(boroughs []Borough) boroughIndex {
	idx := boroughIndex{byKey: make(map[string]Borough, 2*len(boroughs))}
	for _, b := range boroughs {
		idx.ordered = append(idx.ordered, b)
		idx.byKey[strings.ToLower(b.ID)] = b
		idx.byKey[strings.ToLower(b.Name)] = b
	}
	return idx
}

func (idx boroughIndex) lookup(key string) (Borough, bool) {
	b, ok := idx.byKey[strings.ToLower(strings.TrimSpace(key))]
	return b, ok
}
