// Package webui serves a development-only page for inspecting the
// explorer's in-memory state.
package webui

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"busexplorer.nyc/internal/app"
)

type WebUI struct {
	*app.Application
}

func (webUI *WebUI) SetWebUIRoutes(router *httprouter.Router) {
	router.HandlerFunc(http.MethodGet, "/debug/", webUI.debugIndexHandler)
}
