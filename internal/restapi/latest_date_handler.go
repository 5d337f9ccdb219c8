package restapi

import (
	"net/http"

	"busexplorer.nyc/internal/models"
)

func (api *RestAPI) latestDateHandler(w http.ResponseWriter, r *http.Request) {
	latest, err := api.Explorer.LatestDate(r.Context())
	if err != nil {
		api.pipelineErrorResponse(w, r, err)
		return
	}

	api.sendResponse(w, r, models.NewEntryResponse(models.NewLatestDate(latest)))
}
