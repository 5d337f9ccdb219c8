package app

import "net/http"

func (app *Application) RequestHasInvalidAPIKey(r *http.Request) bool {
	key := r.URL.Query().Get("key")
	return app.IsInvalidAPIKey(key)
}

// IsInvalidAPIKey reports whether key is rejected. With no keys configured
// the API is open.
func (app *Application) IsInvalidAPIKey(key string) bool {
	validKeys := app.Config.ApiKeys
	if len(validKeys) == 0 {
		return false
	}
	if key == "" {
		return true
	}

	for _, validKey := range validKeys {
		if key == validKey {
			return false
		}
	}

	return true
}

// IsConfiguredAPIKey reports whether key is one of the configured keys.
// It is false for every key when the API is open.
func (app *Application) IsConfiguredAPIKey(key string) bool {
	return len(app.Config.ApiKeys) > 0 && !app.IsInvalidAPIKey(key)
}
