package restapi

import (
	"net/http"
	"net/http/pprof"

	"github.com/julienschmidt/httprouter"
)

type handlerFunc func(w http.ResponseWriter, r *http.Request)

func validateAPIKey(api *RestAPI, finalHandler handlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if api.RequestHasInvalidAPIKey(r) {
			api.invalidAPIKeyResponse(w, r)
			return
		}
		finalHandler(w, r)
	})
}

// RegisterPprofHandlers mounts the runtime profiler under /debug/pprof/.
func RegisterPprofHandlers(router *httprouter.Router) {
	router.HandlerFunc(http.MethodGet, "/debug/pprof/", pprof.Index)
	router.HandlerFunc(http.MethodGet, "/debug/pprof/:profile", pprofHandler)
}

func pprofHandler(w http.ResponseWriter, r *http.Request) {
	switch httprouter.ParamsFromContext(r.Context()).ByName("profile") {
	case "cmdline":
		pprof.Cmdline(w, r)
	case "profile":
		pprof.Profile(w, r)
	case "symbol":
		pprof.Symbol(w, r)
	case "trace":
		pprof.Trace(w, r)
	default:
		pprof.Index(w, r)
	}
}

func (api *RestAPI) SetRoutes(router *httprouter.Router) {
	router.Handler(http.MethodGet, "/api/boroughs.json", validateAPIKey(api, api.boroughsHandler))
	router.Handler(http.MethodGet, "/api/latest-date.json", validateAPIKey(api, api.latestDateHandler))
	router.Handler(http.MethodGet, "/api/route-map/:borough", validateAPIKey(api, api.routeMapHandler))
	router.Handler(http.MethodGet, "/api/route-map-geojson/:borough", validateAPIKey(api, api.routeMapGeoJSONHandler))
	router.Handler(http.MethodGet, "/api/route-map-csv/:borough", validateAPIKey(api, api.routeMapCSVHandler))
	router.Handler(http.MethodGet, "/api/speeds/:borough", validateAPIKey(api, api.speedsHandler))
	router.Handler(http.MethodGet, "/api/speeds-csv/:borough", validateAPIKey(api, api.speedsCSVHandler))

	router.NotFound = http.HandlerFunc(api.sendNotFound)
}
