// Package appconf loads the service configuration from an optional YAML
// file, a .env file and command-line flags, in that order of precedence
// from lowest to highest.
package appconf

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"busexplorer.nyc/internal/explorer"
	"busexplorer.nyc/internal/metrics"
	"busexplorer.nyc/internal/render"
)

// AppTokenEnv names the environment variable holding the Socrata app token.
const AppTokenEnv = "SOCRATA_APP_TOKEN"

type Config struct {
	Port      int         `yaml:"port" validate:"min=1,max=65535"`
	EnvName   string      `yaml:"env" validate:"oneof=development test production"`
	Env       Environment `yaml:"-"`
	LogLevel  string      `yaml:"logLevel" validate:"oneof=debug info warn error"`
	ApiKeys   []string    `yaml:"apiKeys"`
	RateLimit int         `yaml:"rateLimit" validate:"min=0"`

	Feeds   FeedsConfig   `yaml:"feeds"`
	Metrics MetricsConfig `yaml:"metrics"`
	Render  RenderConfig  `yaml:"render"`
	Cache   CacheConfig   `yaml:"cache"`
}

type FeedsConfig struct {
	Timeout      time.Duration      `yaml:"timeout" validate:"min=0"`
	RouteCatalog bool               `yaml:"routeCatalog"`
	Boroughs     []explorer.Borough `yaml:"boroughs" validate:"dive"`
}

type MetricsConfig struct {
	Endpoint string        `yaml:"endpoint" validate:"required,url"`
	AppToken string        `yaml:"appToken"`
	Timeout  time.Duration `yaml:"timeout" validate:"min=0"`
}

type RenderConfig struct {
	// Tolerance in degrees; 0 disables simplification.
	Tolerance float64 `yaml:"tolerance" validate:"gte=0,lt=1"`
}

type CacheConfig struct {
	Size int           `yaml:"size" validate:"min=0"`
	TTL  time.Duration `yaml:"ttl" validate:"min=0"`
}

// Default returns a configuration that runs against the public MTA feeds
// and the NY Open Data endpoint.
func Default() Config {
	return Config{
		Port:      4000,
		EnvName:   Development.String(),
		Env:       Development,
		LogLevel:  "info",
		RateLimit: 100,
		Feeds: FeedsConfig{
			Timeout:      60 * time.Second,
			RouteCatalog: true,
			Boroughs:     explorer.DefaultBoroughs(),
		},
		Metrics: MetricsConfig{
			Endpoint: metrics.DefaultEndpoint,
			Timeout:  30 * time.Second,
		},
		Render: RenderConfig{Tolerance: render.DefaultTolerance},
	}
}

// Load reads the YAML file at path over the defaults. An empty path skips
// the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.Env = EnvFlagToEnvironment(cfg.EnvName)
	return cfg, nil
}

// LoadDotEnv loads a .env file into the process environment. A missing
// file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnvironment fills values that may come from the environment.
func (c *Config) ApplyEnvironment() {
	if token := strings.TrimSpace(os.Getenv(AppTokenEnv)); token != "" && c.Metrics.AppToken == "" {
		c.Metrics.AppToken = token
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field and that borough ids are unique.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	seen := map[string]bool{}
	for _, b := range c.Feeds.Boroughs {
		key := strings.ToLower(b.ID)
		if seen[key] {
			return fmt.Errorf("invalid config: duplicate borough id %q", b.ID)
		}
		seen[key] = true
	}
	return nil
}

// ExplorerConfig converts the relevant sections for the explorer.
func (c Config) ExplorerConfig() explorer.Config {
	return explorer.Config{
		Boroughs:     c.Feeds.Boroughs,
		Tolerance:    c.Render.Tolerance,
		RouteCatalog: c.Feeds.RouteCatalog,
		CacheSize:    c.Cache.Size,
		CacheTTL:     c.Cache.TTL,
	}
}
