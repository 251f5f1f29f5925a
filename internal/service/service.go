// Package service implements the use cases of the crew planner. Each use case
// loads an event aggregate, checks the viewer's permissions, runs the crew
// engine, persists the result and sends notifications for the crew changes
// the engine reports.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Shivanand-hulikatti/crew-planner/internal/crew"
	"github.com/Shivanand-hulikatti/crew-planner/internal/metrics"
	"github.com/Shivanand-hulikatti/crew-planner/internal/model"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

// EventStore persists event aggregates. Update must fail with an error
// wrapping model.ErrConflict when the stored version differs from the
// aggregate's.
type EventStore interface {
	FindByKey(ctx context.Context, key model.EventKey) (*model.Event, error)
	ListByYear(ctx context.Context, year int) ([]*model.Event, error)
	Create(ctx context.Context, ev *model.Event) error
	Update(ctx context.Context, ev *model.Event) error
	DeleteByKey(ctx context.Context, key model.EventKey) error
}

// Notifier delivers notifications. It handles its own failures.
type Notifier interface {
	Notify(ctx context.Context, msg model.Notification)
}

var tracer = otel.Tracer("github.com/Shivanand-hulikatti/crew-planner/internal/service")

// EventService orchestrates event, registration and confirmation use cases.
type EventService struct {
	events   EventStore
	notifier Notifier
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
	managers []model.UserKey
}

type Option func(s *EventService)

func WithLogger(logger *slog.Logger) Option {
	return func(s *EventService) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *EventService) {
		s.metrics = m
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *EventService) {
		s.now = now
	}
}

// WithCrewManagers sets who is alerted when a crew member cancels.
func WithCrewManagers(keys ...model.UserKey) Option {
	return func(s *EventService) {
		s.managers = append([]model.UserKey(nil), keys...)
	}
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(events EventStore, notifier Notifier, opts ...Option) (*EventService, error) {
	if events == nil {
		return nil, errors.New("event store is required")
	}
	if notifier == nil {
		return nil, errors.New("notifier is required")
	}
	s := &EventService{
		events:   events,
		notifier: notifier,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *EventService) load(ctx context.Context, key model.EventKey) (*model.Event, error) {
	ev, err := s.events.FindByKey(ctx, key)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("event %s: %w", key, model.ErrNotFound)
		}
		return nil, fmt.Errorf("load event %s: %w", key, err)
	}
	return ev, nil
}

// loadVisible loads an event and hides it from viewers who may not see it.
func (s *EventService) loadVisible(ctx context.Context, key model.EventKey, viewer model.Viewer) (*model.Event, error) {
	ev, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}
	if !crew.CanView(ev, viewer) {
		return nil, fmt.Errorf("event %s: %w", key, model.ErrNotFound)
	}
	return ev, nil
}

// save repairs slot references and writes the aggregate back.
func (s *EventService) save(ctx context.Context, ev *model.Event) error {
	if repaired := crew.RemoveInvalidSlotAssignments(ev); repaired > 0 {
		s.logger.WarnContext(ctx, "cleared dangling slot assignments",
			"event_key", ev.Details.Key,
			"repaired", repaired,
		)
		s.metrics.AddSlotRepairs(repaired)
	}
	if err := s.events.Update(ctx, ev); err != nil {
		return fmt.Errorf("update event %s: %w", ev.Details.Key, err)
	}
	return nil
}

func (s *EventService) notify(ctx context.Context, kind model.NotificationKind, recipient model.UserKey, ev *model.Event, reg *model.Registration) {
	s.notifier.Notify(ctx, model.NewNotification(kind, recipient, ev, reg))
}

func requirePermission(viewer model.Viewer, perm model.Permission) error {
	if !viewer.Can(perm) {
		return fmt.Errorf("missing permission %s: %w", perm, model.ErrForbidden)
	}
	return nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
