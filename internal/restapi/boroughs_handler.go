package restapi

import (
	"net/http"

	"busexplorer.nyc/internal/models"
)

func (api *RestAPI) boroughsHandler(w http.ResponseWriter, r *http.Request) {
	boroughs := api.Explorer.Boroughs()

	list := make([]models.Borough, 0, len(boroughs))
	for _, b := range boroughs {
		list = append(list, models.NewBorough(b.ID, b.Name, b.FeedURL, b.MetricsBorough, b.FallbackShapefile != ""))
	}

	api.sendResponse(w, r, models.NewListResponse(list, false))
}
