package repository

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/okian/tracker/internal/domain/model"
	"github.com/okian/tracker/pkg/metrics"
)

// File permissions for the data directory and log file.
const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// LogStore keeps events as JSON lines in a single append-only file.
//
// Every record is written with one write call on an O_APPEND descriptor while
// holding mu, so concurrent appends never interleave. Reads open the file
// separately and tolerate a torn or corrupt line anywhere in it.
type LogStore struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	closed bool
	// torn is set when the file does not end in a newline, e.g. after a
	// crash mid-write. The next append starts a new line first.
	torn bool
}

var _ Store = (*LogStore)(nil)

// NewLogStore opens (creating if needed) the event log inside dir.
func NewLogStore(dir string, opts ...Option) (*LogStore, error) {
	cfg := newSettings(opts)
	if err := ensureWritableDir(dir); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, cfg.logFile)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, filePerm)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	torn, err := endsTorn(path)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &LogStore{path: path, file: f, torn: torn}, nil
}

// endsTorn reports whether the non-empty file at path lacks a trailing newline.
func endsTorn(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("open event log: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return false, fmt.Errorf("stat event log: %w", err)
	}
	if info.Size() == 0 {
		return false, nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return false, fmt.Errorf("read event log: %w", err)
	}
	return last[0] != '\n', nil
}

// Path returns the location of the log file.
func (s *LogStore) Path() string { return s.path }

// Append encodes e as one line and appends it to the log.
func (s *LogStore) Append(ctx context.Context, e model.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()

	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.torn {
		line = append([]byte{'\n'}, line...)
	}
	if _, err := s.file.Write(line); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	s.torn = false

	metrics.RecordStoreAppendLatency(float64(time.Since(start).Nanoseconds()) / 1e6)
	return nil
}

// LoadAll reads the whole log. Lines that are blank, truncated or not a JSON
// event object are skipped.
func (s *LogStore) LoadAll(ctx context.Context) ([]model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []model.Event{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	defer f.Close()

	events, corrupt, err := decodeLines(ctx, f)
	if err != nil {
		return nil, err
	}

	metrics.RecordStoreCorruptRecords(corrupt)
	metrics.RecordStoreLoad(float64(time.Since(start).Nanoseconds())/1e6, len(events))
	return events, nil
}

// decodeLines parses r as JSON lines. A bufio.Reader is used rather than a
// Scanner so an oversized line is read and skipped instead of aborting.
func decodeLines(ctx context.Context, r io.Reader) ([]model.Event, int, error) {
	events := []model.Event{}
	corrupt := 0
	br := bufio.NewReader(r)
	for {
		line, readErr := br.ReadBytes('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return nil, 0, fmt.Errorf("read event log: %w", readErr)
		}

		if line = bytes.TrimSpace(line); len(line) > 0 {
			var e model.Event
			if line[0] != '{' {
				corrupt++
			} else if err := json.Unmarshal(line, &e); err != nil {
				corrupt++
			} else {
				events = append(events, e)
			}
		}

		if readErr != nil {
			return events, corrupt, nil
		}
		if len(events)%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, 0, err
			}
		}
	}
}

// Clear truncates the log.
func (s *LogStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.file.Truncate(0); err != nil {
		return fmt.Errorf("truncate event log: %w", err)
	}
	s.torn = false
	metrics.RecordStoreClear()
	return nil
}

// Export returns the log file verbatim.
func (s *LogStore) Export(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) || (err == nil && len(bytes.TrimSpace(raw)) == 0) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("read event log: %w", err)
	}
	return raw, nil
}

// Count returns the number of lines holding a well-formed JSON object. Lines
// are validated but not decoded, so a valid object that is not an event is
// still counted.
func (s *LogStore) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("open event log: %w", err)
	}
	defer f.Close()

	n := 0
	br := bufio.NewReader(f)
	for {
		line, readErr := br.ReadBytes('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return 0, fmt.Errorf("read event log: %w", readErr)
		}
		if line = bytes.TrimSpace(line); len(line) > 0 && line[0] == '{' && json.Valid(line) {
			n++
		}
		if readErr != nil {
			return n, nil
		}
	}
}

// Close closes the append descriptor. Further calls return ErrClosed.
func (s *LogStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.file.Close()
}
