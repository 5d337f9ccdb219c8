package restapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"busexplorer.nyc/internal/failure"
	"busexplorer.nyc/internal/logging"
	"busexplorer.nyc/internal/models"
)

// requestLogger returns the logger tagged with the request's method and path.
func (api *RestAPI) requestLogger(r *http.Request) *slog.Logger {
	return logging.FromContext(r.Context(), api.Logger)
}

// invalidAPIKeyResponse sends a 401 Unauthorized response with the required format
// for invalid API key errors
func (api *RestAPI) invalidAPIKeyResponse(w http.ResponseWriter, r *http.Request) {
	response := struct {
		Code        int    `json:"code"`
		CurrentTime int64  `json:"currentTime"`
		Text        string `json:"text"`
		Version     int    `json:"version"`
	}{
		Code:        http.StatusUnauthorized,
		CurrentTime: models.ResponseCurrentTime(),
		Text:        "permission denied",
		Version:     1,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	err := json.NewEncoder(w).Encode(response)
	if err != nil {
		api.requestLogger(r).Error("failed to encode invalid API key response", "error", err)
	}
}

func (api *RestAPI) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	logging.LogError(api.requestLogger(r), "internal server error", err)

	response := struct {
		Code        int    `json:"code"`
		CurrentTime int64  `json:"currentTime"`
		Text        string `json:"text"`
		Version     int    `json:"version"`
	}{
		Code:        http.StatusInternalServerError,
		CurrentTime: models.ResponseCurrentTime(),
		Text:        "internal server error",
		Version:     1,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	encoderErr := json.NewEncoder(w).Encode(response)
	if encoderErr != nil {
		api.requestLogger(r).Error("failed to encode server error response", "error", encoderErr)
	}
}

// validationErrorResponse sends a 400 Bad Request response with field-specific validation errors
func (api *RestAPI) validationErrorResponse(w http.ResponseWriter, r *http.Request, fieldErrors map[string][]string) {
	response := struct {
		FieldErrors map[string][]string `json:"fieldErrors"`
	}{
		FieldErrors: fieldErrors,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	err := json.NewEncoder(w).Encode(response)
	if err != nil {
		api.requestLogger(r).Error("failed to encode validation error response", "error", err)
	}
}

// statusForFailure maps a pipeline failure kind to the response status.
func statusForFailure(kind failure.Kind) int {
	switch kind {
	case failure.ValidationFailure:
		return http.StatusBadRequest
	case failure.NoDataFailure:
		return http.StatusNotFound
	case failure.FetchFailure, failure.ParseFailure, failure.SchemaMismatch,
		failure.TypeConversionFailure, failure.RemoteQueryFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// pipelineErrorResponse reports a failed pipeline run. The message of a
// classified failure is shown to the client; anything else is a 500.
func (api *RestAPI) pipelineErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	if r.Context().Err() != nil {
		// Client went away.
		return
	}

	var fe *failure.Error
	if !errors.As(err, &fe) {
		api.serverErrorResponse(w, r, err)
		return
	}

	status := statusForFailure(fe.Kind)
	logging.LogError(api.requestLogger(r), "pipeline run failed", err)

	setJSONResponseType(&w)
	w.WriteHeader(status)
	encoderErr := json.NewEncoder(w).Encode(models.NewErrorResponse(status, err.Error()))
	if encoderErr != nil {
		api.requestLogger(r).Error("failed to encode pipeline error response", "error", encoderErr)
	}
}
