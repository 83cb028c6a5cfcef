// Package config loads the Squonk Radio configuration: the shared core settings
// plus storage and session backend options.
package config

import (
	"fmt"
	"strings"

	coreconfig "github.com/m3rciful/squonkradio/core/config"
	coredatabase "github.com/m3rciful/squonkradio/core/database"
)

// Session backends.
const (
	BackendMemory   = "memory"
	BackendBolt     = "bolt"
	BackendPostgres = "postgres"
)

// DefaultPath is used when CONFIG_PATH is not set.
const DefaultPath = "config.yaml"

// StorageConfig locates the song folders.
type StorageConfig struct {
	Root string `yaml:"root" envconfig:"SONGS_ROOT"`
}

// SessionConfig selects where pending group associations are kept.
type SessionConfig struct {
	Backend  string `yaml:"backend" envconfig:"SESSION_BACKEND"`
	BoltPath string `yaml:"bolt_path" envconfig:"SESSION_BOLT_PATH"`
}

// Config is the full application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Storage  StorageConfig       `yaml:"storage"`
	Session  SessionConfig       `yaml:"session"`
	Database coredatabase.Config `yaml:"database"`
}

// Load reads path (optional when it is the default path) and the environment.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, path == DefaultPath, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates the core section and fills application defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}

	cfg.Storage.Root = strings.TrimSpace(cfg.Storage.Root)
	if cfg.Storage.Root == "" {
		cfg.Storage.Root = "songs"
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Session.Backend))
	switch backend {
	case "":
		backend = BackendMemory
	case BackendMemory, BackendBolt, BackendPostgres:
	default:
		return fmt.Errorf("invalid session.backend %q; allowed: memory, bolt, postgres", cfg.Session.Backend)
	}
	cfg.Session.Backend = backend

	if backend == BackendBolt && strings.TrimSpace(cfg.Session.BoltPath) == "" {
		cfg.Session.BoltPath = "data/sessions.db"
	}
	if backend == BackendPostgres {
		cfg.Database = cfg.Database.WithDefaults()
		if cfg.Database.Name == "" || cfg.Database.User == "" {
			return fmt.Errorf("database.name and database.user are required for the postgres session backend")
		}
	}
	return nil
}
