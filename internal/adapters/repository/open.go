package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/okian/tracker/internal/config"
	"github.com/okian/tracker/pkg/logger"
	"github.com/okian/tracker/pkg/metrics"
)

// DefaultFallbackDir is used when the configured data directory is unusable.
func DefaultFallbackDir() string {
	return filepath.Join(os.TempDir(), "tracker")
}

// Open returns the store selected by cfg.StorageBackend inside cfg.DataDir.
//
// When the data directory cannot be created or written, Open logs a warning
// and uses the fallback directory instead of failing.
func Open(ctx context.Context, cfg config.Config, opts ...Option) (Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := newSettings(opts)
	log := s.log

	switch cfg.StorageBackend {
	case config.BackendJSONL, config.BackendSQLite:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.StorageBackend)
	}

	dir := cfg.DataDir
	if err := ensureWritableDir(dir); err != nil {
		fallback := s.fallback
		if fallback == "" {
			fallback = DefaultFallbackDir()
		}
		log.Warn(ctx, "data directory unusable, using fallback",
			logger.String("data_dir", dir),
			logger.String("fallback_dir", fallback),
			logger.Error(err))
		metrics.RecordStoreFallback()
		dir = fallback
	}

	var (
		store Store
		err   error
	)
	switch cfg.StorageBackend {
	case config.BackendSQLite:
		store, err = NewSQLiteStore(ctx, dir, opts...)
	default:
		store, err = NewLogStore(dir, opts...)
	}
	if err != nil {
		return nil, err
	}

	log.Info(ctx, "event store opened",
		logger.String("backend", cfg.StorageBackend),
		logger.String("data_dir", dir))
	return store, nil
}

// ensureWritableDir creates dir if needed and verifies a file can be written
// in it.
func ensureWritableDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("data dir is required")
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".writable-*")
	if err != nil {
		return fmt.Errorf("data dir not writable: %w", err)
	}
	name := tmp.Name()
	_ = tmp.Close()
	_ = os.Remove(name)
	return nil
}
