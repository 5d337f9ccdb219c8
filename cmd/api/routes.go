package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"busexplorer.nyc/internal/app"
	"busexplorer.nyc/internal/appconf"
	"busexplorer.nyc/internal/restapi"
	"busexplorer.nyc/internal/webui"
)

// routes registers the API, plus the debug pages in development.
func routes(application *app.Application, api *restapi.RestAPI) http.Handler {
	router := httprouter.New()
	api.SetRoutes(router)

	if application.Config.Env == appconf.Development {
		webUI := &webui.WebUI{Application: application}
		webUI.SetWebUIRoutes(router)
		restapi.RegisterPprofHandlers(router)
	}

	return api.Handler(router)
}
