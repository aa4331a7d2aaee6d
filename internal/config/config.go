// Package config loads the service configuration from environment
// variables.
//
// Parsing is done with caarlos0/env: the struct tags name the variables and
// defaults, and env.Parse fills the struct in one call. main loads an
// optional .env file first (godotenv), so local development doesn't need a
// wall of exports.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every environment-derived setting. Values are deployment
// concerns; this package only validates presence and shape.
type Config struct {
	Port   int    `env:"PORT" envDefault:"8080"`
	AppEnv string `env:"APP_ENV" envDefault:"development"`
	DBPath string `env:"DB_PATH" envDefault:"data/gitgate.db"`

	GitHubClientID     string `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `env:"GITHUB_CLIENT_SECRET"`
	GitHubRedirectURI  string `env:"GITHUB_REDIRECT_URI"`

	// Two distinct signing secrets — one per token kind, so an access token
	// can never be presented as a refresh token or vice versa.
	AccessTokenSecret  string `env:"JWT_ACCESS_TOKEN_SECRET"`
	RefreshTokenSecret string `env:"JWT_REFRESH_TOKEN_SECRET"`

	// Go duration strings: "15m", "720h" (time.ParseDuration has no "d"
	// unit, so 30 days is written as 720h).
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"720h"`

	// FrontendURL is both the CORS origin and the post-login redirect base.
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3001"`
}

// Load parses the environment into a Config and validates the required
// fields. Missing OAuth or JWT settings fail fast at startup rather than on
// the first login attempt.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: parsing environment: %w", err)
	}

	var missing []string
	for name, val := range map[string]string{
		"GITHUB_CLIENT_ID":         cfg.GitHubClientID,
		"GITHUB_CLIENT_SECRET":     cfg.GitHubClientSecret,
		"GITHUB_REDIRECT_URI":      cfg.GitHubRedirectURI,
		"JWT_ACCESS_TOKEN_SECRET":  cfg.AccessTokenSecret,
		"JWT_REFRESH_TOKEN_SECRET": cfg.RefreshTokenSecret,
	} {
		if val == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("config: missing required environment variables: %v", missing)
	}

	if cfg.AccessTokenTTL <= 0 || cfg.RefreshTokenTTL <= 0 {
		return nil, errors.New("config: token TTLs must be positive durations")
	}

	return &cfg, nil
}

// Production reports whether the service runs with production hardening
// (Secure cookies, generic error bodies).
func (c *Config) Production() bool {
	return c.AppEnv == "production"
}
