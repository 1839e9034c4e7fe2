package repository

import (
	"github.com/okian/tracker/pkg/logger"
)

// Default file names inside the data directory.
const (
	DefaultLogFile = "events.jsonl"
	DefaultDBFile  = "events.db"
)

type settings struct {
	logFile  string
	dbFile   string
	fallback string
	log      logger.Logger
}

// Option applies a configuration option to a store.
type Option func(*settings)

// WithLogFile sets the file name used by LogStore.
func WithLogFile(name string) Option {
	return func(s *settings) {
		if name != "" {
			s.logFile = name
		}
	}
}

// WithDBFile sets the database file name used by SQLiteStore.
func WithDBFile(name string) Option {
	return func(s *settings) {
		if name != "" {
			s.dbFile = name
		}
	}
}

// WithFallbackDir sets the directory Open uses when the configured one is not
// writable.
func WithFallbackDir(dir string) Option {
	return func(s *settings) {
		if dir != "" {
			s.fallback = dir
		}
	}
}

// WithLogger sets the logger used for store warnings.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}

func newSettings(opts []Option) settings {
	s := settings{
		logFile: DefaultLogFile,
		dbFile:  DefaultDBFile,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
