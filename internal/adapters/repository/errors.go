package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrEmpty          = errors.New("no events stored")
	ErrUnknownBackend = errors.New("unknown storage backend")
	ErrClosed         = errors.New("store closed")
)
