// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() builds a Config with defaults; Load(ctx) layers file and env on top.
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)

// Storage backends accepted by StorageBackend.
const (
	BackendJSONL  = "jsonl"
	BackendSQLite = "sqlite"
)

// Admin credential length bounds.
const (
	MinPINLength = 4
	MaxPINLength = 64
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// AdminPIN is the shared secret guarding stats, export and clear.
	AdminPIN string `koanf:"admin_pin"`

	// StorageBackend selects the event store: "jsonl" or "sqlite".
	StorageBackend string `koanf:"storage_backend"`

	// DataDir is the directory holding the event log or database.
	DataDir string `koanf:"data_dir"`

	// CORSOrigins is a comma-separated list of allowed cross-origin sources.
	CORSOrigins string `koanf:"cors_origins"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:       "info",
		LogFormat:      "text",
		Addr:           ":8080",
		AdminPIN:       "bassam1234",
		StorageBackend: BackendJSONL,
		DataDir:        "data",
		CORSOrigins:    "*",
	}
}

// AllowedOrigins splits CORSOrigins into trimmed, non-empty entries.
// An empty list means every origin is allowed.
func (c *Config) AllowedOrigins() []string {
	parts := strings.Split(c.CORSOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// Validate checks the invariants the service relies on.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if n := len(c.AdminPIN); n < MinPINLength || n > MaxPINLength {
		return fmt.Errorf("%w: admin_pin must be %d to %d characters", ErrInvalidConfig, MinPINLength, MaxPINLength)
	}
	switch c.StorageBackend {
	case BackendJSONL, BackendSQLite:
	default:
		return fmt.Errorf("%w: unknown storage_backend %q", ErrInvalidConfig, c.StorageBackend)
	}
	return nil
}
