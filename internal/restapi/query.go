package restapi

import (
	"fmt"
	"maps"
	"net/http"

	"busexplorer.nyc/internal/explorer"
	"busexplorer.nyc/internal/gtfs"
	"busexplorer.nyc/internal/metrics"
	"busexplorer.nyc/internal/utils"
)

// parseSpeedQuery reads the speed filters shared by every data endpoint.
// groupBy is only honored where the caller allows it.
func parseSpeedQuery(r *http.Request, allowGroupBy bool) (metrics.Query, map[string][]string) {
	params := r.URL.Query()

	var q metrics.Query
	var fieldErrors map[string][]string
	q.DateStart, fieldErrors = utils.ParseStringParam(params, "start", utils.ValidateDate, fieldErrors)
	q.DateEnd, fieldErrors = utils.ParseStringParam(params, "end", utils.ValidateDate, fieldErrors)
	q.HourStart, fieldErrors = utils.ParseIntParam(params, "startHour", utils.ValidateHour, fieldErrors)
	q.HourEnd, fieldErrors = utils.ParseIntParam(params, "endHour", utils.ValidateHour, fieldErrors)
	q.RouteID, fieldErrors = utils.ParseStringParam(params, "routeId", utils.ValidateID, fieldErrors)

	limit, fieldErrors := utils.ParseIntParam(params, "limit", nil, fieldErrors)
	if limit != nil {
		q.Limit = *limit
	}

	if allowGroupBy {
		var groupBy string
		groupBy, fieldErrors = utils.ParseStringParam(params, "groupBy", nil, fieldErrors)
		q.GroupBy = metrics.GroupBy(groupBy)
	}

	if len(fieldErrors) > 0 {
		return q, fieldErrors
	}
	if queryErrors := q.Validate(); queryErrors != nil {
		maps.Copy(fieldErrors, queryErrors)
		return q, fieldErrors
	}
	return q, nil
}

// parseGranularity reads the granularity parameter; empty means by shape.
func parseGranularity(r *http.Request) (gtfs.Granularity, map[string][]string) {
	switch value := utils.SanitizeInput(r.URL.Query().Get("granularity")); value {
	case "", gtfs.ByShape.String():
		return gtfs.ByShape, nil
	case gtfs.ByHeadsign.String():
		return gtfs.ByHeadsign, nil
	default:
		return gtfs.ByShape, map[string][]string{
			"granularity": {fmt.Sprintf("Invalid field value for field %q.", "granularity")},
		}
	}
}

// lookupBorough resolves the :borough path parameter. ok is false when a
// response has already been written.
func (api *RestAPI) lookupBorough(w http.ResponseWriter, r *http.Request) (explorer.Borough, bool) {
	key := utils.ExtractIDFromParams(r, "borough")
	if err := utils.ValidateBorough(key); err != nil {
		api.validationErrorResponse(w, r, map[string][]string{"borough": {err.Error()}})
		return explorer.Borough{}, false
	}

	b, ok := api.Explorer.Lookup(key)
	if !ok {
		api.sendNotFound(w, r)
		return explorer.Borough{}, false
	}
	return b, true
}
