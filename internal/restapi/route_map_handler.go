package restapi

import (
	"bytes"
	"encoding/json"
	"net/http"

	"busexplorer.nyc/internal/explorer"
	"busexplorer.nyc/internal/models"
	"busexplorer.nyc/internal/render"
)

// routeMap runs the pipeline for the request. ok is false when a response
// has already been written.
func (api *RestAPI) routeMap(w http.ResponseWriter, r *http.Request) (*explorer.RouteMapResult, bool) {
	b, ok := api.lookupBorough(w, r)
	if !ok {
		return nil, false
	}

	q, fieldErrors := parseSpeedQuery(r, false)
	if len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return nil, false
	}
	granularity, fieldErrors := parseGranularity(r)
	if len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return nil, false
	}

	result, err := api.Explorer.RouteMap(r.Context(), b, q, granularity)
	if err != nil {
		api.pipelineErrorResponse(w, r, err)
		return nil, false
	}
	return result, true
}

func (api *RestAPI) routeMapHandler(w http.ResponseWriter, r *http.Request) {
	result, ok := api.routeMap(w, r)
	if !ok {
		return
	}

	granularity, _ := parseGranularity(r)
	api.sendResponse(w, r, models.NewEntryResponse(models.NewRouteMap(result, granularity.String())))
}

func (api *RestAPI) routeMapGeoJSONHandler(w http.ResponseWriter, r *http.Request) {
	result, ok := api.routeMap(w, r)
	if !ok {
		return
	}

	body, err := json.Marshal(result.Map.FeatureCollection())
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	if _, err := w.Write(body); err != nil {
		api.requestLogger(r).Error("failed to write geojson response", "error", err)
	}
}

func (api *RestAPI) routeMapCSVHandler(w http.ResponseWriter, r *http.Request) {
	result, ok := api.routeMap(w, r)
	if !ok {
		return
	}

	api.sendCSV(w, r, result.Borough.ID+"_route_map.csv", func(buf *bytes.Buffer) error {
		return render.WriteRoutesCSV(buf, result.Map.Routes)
	})
}
