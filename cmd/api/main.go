package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"busexplorer.nyc/internal/app"
	"busexplorer.nyc/internal/appconf"
	"busexplorer.nyc/internal/explorer"
	"busexplorer.nyc/internal/gtfs"
	"busexplorer.nyc/internal/logging"
	"busexplorer.nyc/internal/metrics"
	"busexplorer.nyc/internal/restapi"
)

// flags overlay the config file. Zero values leave the file's setting alone.
type flags struct {
	configPath     string
	dotEnvPath     string
	env            string
	port           int
	apiKeys        string
	logLevel       string
	exportFallback string
	borough        string
}

func main() {
	var f flags
	flag.StringVar(&f.configPath, "config", "", "Path to a YAML config file")
	flag.StringVar(&f.dotEnvPath, "dotenv", ".env", "Path to a .env file holding "+appconf.AppTokenEnv)
	flag.StringVar(&f.env, "env", "", "Environment (development|test|production)")
	flag.IntVar(&f.port, "port", 0, "API server port")
	flag.StringVar(&f.apiKeys, "api-keys", "", "Comma Separated API Keys; empty leaves the API open")
	flag.StringVar(&f.logLevel, "log-level", "", "Log level (debug|info|warn|error)")
	flag.StringVar(&f.exportFallback, "export-fallback", "", "Write fallback shapefiles to this directory and exit")
	flag.StringVar(&f.borough, "borough", "", "Borough to export; all boroughs when empty")
	flag.Parse()

	if err := run(f); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(f flags) error {
	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := logging.NewStructuredLogger(os.Stdout, level)

	application := &app.Application{
		Config:   cfg,
		Logger:   logger,
		Explorer: newExplorer(cfg, logger),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if f.exportFallback != "" {
		return exportFallbacks(ctx, application, f.exportFallback, f.borough)
	}
	return serve(ctx, application)
}

func loadConfig(f flags) (appconf.Config, error) {
	cfg, err := appconf.Load(f.configPath)
	if err != nil {
		return cfg, err
	}
	if err := appconf.LoadDotEnv(f.dotEnvPath); err != nil {
		return cfg, err
	}
	cfg.ApplyEnvironment()

	if f.env != "" {
		cfg.Env = appconf.EnvFlagToEnvironment(f.env)
		cfg.EnvName = cfg.Env.String()
	}
	if f.port != 0 {
		cfg.Port = f.port
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	if f.apiKeys != "" {
		cfg.ApiKeys = strings.Split(f.apiKeys, ",")
		for i := range cfg.ApiKeys {
			cfg.ApiKeys[i] = strings.TrimSpace(cfg.ApiKeys[i])
		}
	}

	return cfg, cfg.Validate()
}

func newExplorer(cfg appconf.Config, logger *slog.Logger) *explorer.Explorer {
	feeds := gtfs.NewFetcher(cfg.Feeds.Timeout, logger)
	speeds := metrics.NewClient(cfg.Metrics.Endpoint, cfg.Metrics.AppToken, cfg.Metrics.Timeout, logger)
	return explorer.New(feeds, speeds, cfg.ExplorerConfig(), logger)
}

func serve(ctx context.Context, application *app.Application) error {
	api := restapi.NewRestAPI(application)
	defer api.Shutdown()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", application.Config.Port),
		Handler:      routes(application, api),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 2 * time.Minute,
		ErrorLog:     slog.NewLogLogger(application.Logger.Handler(), slog.LevelError),
	}

	errCh := make(chan error, 1)
	go func() {
		application.Logger.Info("starting server",
			"addr", srv.Addr,
			"env", application.Config.Env.String(),
			"boroughs", len(application.Explorer.Boroughs()))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	application.Logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// exportFallbacks writes a fallback shapefile per borough, or for the one
// named by key.
func exportFallbacks(ctx context.Context, application *app.Application, dir, key string) error {
	boroughs := application.Explorer.Boroughs()
	if key != "" {
		b, ok := application.Explorer.Lookup(key)
		if !ok {
			return fmt.Errorf("unknown borough %q", key)
		}
		boroughs = []explorer.Borough{b}
	}

	var errs []error
	for _, b := range boroughs {
		path, n, err := application.Explorer.ExportFallback(ctx, b, dir)
		if err != nil {
			logging.LogError(application.Logger, "fallback export failed", err, slog.String("borough", b.ID))
			errs = append(errs, fmt.Errorf("%s: %w", b.ID, err))
			continue
		}
		application.Logger.Info("fallback exported", "borough", b.ID, "path", path, "routes", n)
	}
	return errors.Join(errs...)
}
