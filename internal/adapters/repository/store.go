// Package repository persists tracked events.
//
// Two backends satisfy Store: LogStore appends one JSON object per line to a
// file, SQLiteStore keeps one row per event. Open picks one from configuration.
package repository

import (
	"context"

	"github.com/okian/tracker/internal/domain/model"
)

// Store provides durable, append-only access to the event log.
type Store interface {
	// Append persists one event. Once it returns nil the event is visible to
	// every later LoadAll, including after a restart.
	Append(ctx context.Context, e model.Event) error

	// LoadAll returns every readable event in write order. Unreadable records
	// are skipped.
	LoadAll(ctx context.Context) ([]model.Event, error)

	// Clear removes every stored event. Clearing an empty store is not an error.
	Clear(ctx context.Context) error

	// Export returns the stored log as JSON lines.
	// Returns ErrEmpty if nothing is stored.
	Export(ctx context.Context) ([]byte, error)

	// Count returns the number of stored events.
	Count(ctx context.Context) (int, error)

	// Close releases the underlying handle.
	Close() error
}
