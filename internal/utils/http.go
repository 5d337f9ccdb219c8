package utils

import (
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
)

// formatExtensions are stripped from path parameters, so /speeds/queens.json
// and /speeds/queens name the same resource.
var formatExtensions = []string{".json", ".geojson", ".csv"}

// ExtractIDFromParams retrieves a parameter value from the request context and removes file extensions like ".json".
func ExtractIDFromParams(r *http.Request, paramName string) string {
	params := httprouter.ParamsFromContext(r.Context())
	rawID := params.ByName(paramName)
	for _, ext := range formatExtensions {
		if i := strings.Index(rawID, ext); i >= 0 {
			return rawID[:i]
		}
	}
	return rawID
}
