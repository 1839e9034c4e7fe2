// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/tracker/internal/adapters/repository"
	"github.com/okian/tracker/internal/domain/analytics"
	"github.com/okian/tracker/internal/domain/model"
	"github.com/okian/tracker/pkg/logger"
	"github.com/okian/tracker/pkg/metrics"
)

// ErrNoStore is returned by New when no store is given.
var ErrNoStore = errors.New("event store is required")

// Service records events and serves statistics over an injected store.
type Service struct {
	store      repository.Store
	aggregator *analytics.Aggregator
	now        func() time.Time
	logger     logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithAggregator replaces the default statistics aggregator.
func WithAggregator(a *analytics.Aggregator) Option {
	return func(s *Service) {
		if a != nil {
			s.aggregator = a
		}
	}
}

// WithClock sets the clock used to stamp received events.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a Service over store.
func New(store repository.Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, ErrNoStore
	}
	s := &Service{
		store:  store,
		now:    time.Now,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.aggregator == nil {
		s.aggregator = analytics.New(analytics.WithClock(s.now))
	}
	return s, nil
}

// Track stamps req with the receipt time and appends it to the store. The
// returned event is what was persisted.
func (s *Service) Track(ctx context.Context, req model.TrackRequest) (model.Event, error) {
	if req.Kind == "" || req.DeviceID == "" {
		return model.Event{}, model.ErrInvalidEvent
	}
	payload := req.Payload
	if payload == nil {
		payload = model.Payload{}
	}

	e := model.Event{
		TS:       model.FormatTimestamp(s.now()),
		IP:       model.Ptr(req.IP),
		UA:       model.Ptr(req.UA),
		Kind:     req.Kind,
		DeviceID: req.DeviceID,
		Payload:  payload,
	}

	if err := s.store.Append(ctx, e); err != nil {
		s.logger.Error(ctx, "failed to store event",
			logger.String("event", e.Kind),
			logger.String("deviceId", e.DeviceID),
			logger.Error(err))
		return model.Event{}, fmt.Errorf("track: %w", err)
	}

	client := parseClient(req.UA)
	metrics.RecordEventTracked()
	metrics.RecordEventClient(client.deviceType)
	s.logger.Debug(ctx, "event tracked",
		logger.String("event", e.Kind),
		logger.String("deviceId", e.DeviceID),
		logger.String("browser", client.browser),
		logger.String("os", client.os),
		logger.String("deviceType", client.deviceType))
	return e, nil
}

// Stats loads the full event set and aggregates it.
func (s *Service) Stats(ctx context.Context) (analytics.Summary, error) {
	start := time.Now()
	events, err := s.store.LoadAll(ctx)
	if err != nil {
		return analytics.Summary{}, fmt.Errorf("load events: %w", err)
	}
	summary := s.aggregator.Aggregate(events)

	metrics.RecordStatsComputed(float64(time.Since(start).Nanoseconds()) / 1e6)
	s.logger.Debug(ctx, "stats computed",
		logger.Int("events", summary.TotalEvents),
		logger.Duration("took", time.Since(start)))
	return summary, nil
}

// Export returns the raw stored log.
// Returns repository.ErrEmpty if nothing is stored.
func (s *Service) Export(ctx context.Context) ([]byte, error) {
	raw, err := s.store.Export(ctx)
	if err != nil {
		return nil, err
	}
	metrics.RecordExport()
	return raw, nil
}

// Clear irreversibly removes every stored event.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	s.logger.Warn(ctx, "event store cleared")
	return nil
}

// Count returns the number of stored events.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}

// Close releases the store.
func (s *Service) Close() error {
	return s.store.Close()
}
