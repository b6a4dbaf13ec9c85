package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// ClientConfig configures the portal client.
type ClientConfig struct {
	APIURL      string        `env:"PORTAL_API_URL" envDefault:"http://localhost:8080/api"`
	SessionFile string        `env:"PORTAL_SESSION_FILE"`
	Timeout     time.Duration `env:"PORTAL_HTTP_TIMEOUT" envDefault:"10s"`
	LogLevel    string        `env:"LOG_LEVEL" envDefault:"warn"`
}

// LoadClient reads portal client settings from the environment.
func LoadClient() (ClientConfig, error) {
	if err := loadDotEnv(); err != nil {
		return ClientConfig{}, err
	}

	var cfg ClientConfig
	if err := env.Parse(&cfg); err != nil {
		return ClientConfig{}, fmt.Errorf("parse client config: %w", err)
	}

	cfg.APIURL = strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	if cfg.SessionFile == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return ClientConfig{}, fmt.Errorf("locate config dir: %w", err)
		}
		cfg.SessionFile = filepath.Join(dir, "eportfolio", "session.json")
	}
	return cfg, nil
}
