package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all server settings, loaded from environment variables.
type Config struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`

	// SQLitePath is the settlement database. Empty selects the in-memory
	// store (dev mode; state is lost on restart).
	SQLitePath string `env:"SQLITE_PATH" envDefault:"bidquiz.db"`

	// CatalogFile is a local question catalog in JSON form. CatalogURL, when
	// set, takes precedence and the catalog is fetched from the content
	// service instead.
	CatalogFile string `env:"CATALOG_FILE" envDefault:"questions.json"`
	CatalogURL  string `env:"CATALOG_URL"`

	JWTSecret string        `env:"JWT_SECRET" envDefault:"secret"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"24h"`

	// RootPassword seeds the root admin on first start.
	RootPassword string `env:"ROOT_PASSWORD" envDefault:"root"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load parses configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
