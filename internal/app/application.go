package app

import (
	"log/slog"

	"busexplorer.nyc/internal/appconf"
	"busexplorer.nyc/internal/explorer"
)

// Application holds the dependencies for our HTTP handlers, helpers,
// and middleware.
type Application struct {
	Config   appconf.Config
	Logger   *slog.Logger
	Explorer *explorer.Explorer
}
