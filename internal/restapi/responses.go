package restapi

import (
	"bytes"
	"encoding/json"
	"net/http"

	"busexplorer.nyc/internal/models"
)

func (api *RestAPI) sendResponse(w http.ResponseWriter, r *http.Request, response models.ResponseModel) {
	setJSONResponseType(&w)
	err := json.NewEncoder(w).Encode(response)
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}
}

func (api *RestAPI) sendNotFound(w http.ResponseWriter, r *http.Request) {
	setJSONResponseType(&w)
	w.WriteHeader(http.StatusNotFound)

	response := models.ResponseModel{
		Code:        http.StatusNotFound,
		CurrentTime: models.ResponseCurrentTime(),
		Text:        "resource not found",
		Version:     2,
	}

	err := json.NewEncoder(w).Encode(response)
	if err != nil {
		api.requestLogger(r).Error("failed to encode not found response", "error", err)
	}
}

// sendCSV renders body into a buffer before writing headers; a rendering
// error becomes a 500 with no partial download.
func (api *RestAPI) sendCSV(w http.ResponseWriter, r *http.Request, filename string, body func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := body(&buf); err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if _, err := w.Write(buf.Bytes()); err != nil {
		api.requestLogger(r).Error("failed to write csv response", "error", err)
	}
}

func setJSONResponseType(w *http.ResponseWriter) {
	(*w).Header().Set("Content-Type", "application/json")
}
