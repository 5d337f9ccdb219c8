package restapi

import (
	"bytes"
	"net/http"

	"busexplorer.nyc/internal/metrics"
	"busexplorer.nyc/internal/models"
	"busexplorer.nyc/internal/render"
)

// speedsCSVFilename is the download name of every speed table.
const speedsCSVFilename = "bus_data.csv"

func (api *RestAPI) speeds(w http.ResponseWriter, r *http.Request) (metrics.Query, []metrics.RouteMetric, bool) {
	b, ok := api.lookupBorough(w, r)
	if !ok {
		return metrics.Query{}, nil, false
	}

	q, fieldErrors := parseSpeedQuery(r, true)
	if len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return q, nil, false
	}

	rows, err := api.Explorer.Speeds(r.Context(), b, q)
	if err != nil {
		api.pipelineErrorResponse(w, r, err)
		return q, nil, false
	}
	return q, rows, true
}

func (api *RestAPI) speedsHandler(w http.ResponseWriter, r *http.Request) {
	q, rows, ok := api.speeds(w, r)
	if !ok {
		return
	}

	limit := q.Limit
	if limit <= 0 {
		limit = metrics.DefaultLimit
	}
	api.sendResponse(w, r, models.NewListResponse(rows, len(rows) >= limit))
}

func (api *RestAPI) speedsCSVHandler(w http.ResponseWriter, r *http.Request) {
	q, rows, ok := api.speeds(w, r)
	if !ok {
		return
	}

	api.sendCSV(w, r, speedsCSVFilename, func(buf *bytes.Buffer) error {
		return render.WriteMetricsCSV(buf, q.GroupFields(), rows)
	})
}
