package app

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"busexplorer.nyc/internal/appconf"
)

func TestBlankKeyIsInvalid(t *testing.T) {
	app := &Application{
		Config: appconf.Config{
			ApiKeys: []string{"key"},
		},
	}
	assert.True(t, app.IsInvalidAPIKey(""))
}

func TestConfiguredKeyIsValid(t *testing.T) {
	app := &Application{
		Config: appconf.Config{
			ApiKeys: []string{"key", "other"},
		},
	}
	assert.False(t, app.IsInvalidAPIKey("other"))
	assert.True(t, app.IsInvalidAPIKey("nope"))
}

func TestNoConfiguredKeysIsOpen(t *testing.T) {
	app := &Application{}
	assert.False(t, app.IsInvalidAPIKey(""))
}

func TestIsConfiguredAPIKey(t *testing.T) {
	app := &Application{Config: appconf.Config{ApiKeys: []string{"TEST"}}}
	assert.True(t, app.IsConfiguredAPIKey("TEST"))
	assert.False(t, app.IsConfiguredAPIKey("random"))
	assert.False(t, app.IsConfiguredAPIKey(""))

	open := &Application{}
	assert.False(t, open.IsConfiguredAPIKey("random"))
}

func TestRequestHasInvalidAPIKey(t *testing.T) {
	app := &Application{
		Config: appconf.Config{
			ApiKeys: []string{"TEST"},
		},
	}
	assert.False(t, app.RequestHasInvalidAPIKey(httptest.NewRequest("GET", "/api/boroughs.json?key=TEST", nil)))
	assert.True(t, app.RequestHasInvalidAPIKey(httptest.NewRequest("GET", "/api/boroughs.json", nil)))
}
