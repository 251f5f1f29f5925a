package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Shivanand-hulikatti/crew-planner/internal/crew"
	"github.com/Shivanand-hulikatti/crew-planner/internal/model"
)

var stageKinds = map[crew.ConfirmationStage]model.NotificationKind{
	crew.StageRequest:  model.NotifyConfirmationRequest,
	crew.StageReminder: model.NotifyConfirmationReminder,
}

var stageLabels = map[crew.ConfirmationStage]string{
	crew.StageRequest:  "request",
	crew.StageReminder: "reminder",
}

// SweepConfirmations sends the confirmation request or reminder that is due
// for every PLANNED event of this year and the next. The stage is persisted
// before anything is sent, so a conflicting concurrent sweep loses the
// version check and sends nothing.
func (s *EventService) SweepConfirmations(ctx context.Context) (result model.SweepResult, err error) {
	ctx, span := tracer.Start(ctx, "EventService.SweepConfirmations")
	defer func() { endSpan(span, err) }()

	started := time.Now()
	now := s.now()
	for _, year := range []int{now.Year(), now.Year() + 1} {
		events, err := s.events.ListByYear(ctx, year)
		if err != nil {
			return result, fmt.Errorf("list events of %d: %w", year, err)
		}
		for _, ev := range events {
			result.EventsChecked++
			stage := crew.DueConfirmationStage(ev, now)
			if stage == crew.StageNone {
				continue
			}
			sent, err := s.sendConfirmations(ctx, ev, stage)
			if err != nil {
				result.Failed++
				s.logger.ErrorContext(ctx, "confirmation sweep failed for event",
					"event_key", ev.Details.Key,
					"stage", stageLabels[stage],
					"error", err,
				)
				continue
			}
			if stage == crew.StageRequest {
				result.RequestsSent += sent
			} else {
				result.RemindersSent += sent
			}
		}
	}

	s.metrics.ObserveSweep(time.Since(started).Seconds())
	span.SetAttributes(
		attribute.Int("sweep.events", result.EventsChecked),
		attribute.Int("sweep.requests", result.RequestsSent),
		attribute.Int("sweep.reminders", result.RemindersSent),
	)
	s.logger.InfoContext(ctx, "confirmation sweep finished",
		"events_checked", result.EventsChecked,
		"requests_sent", result.RequestsSent,
		"reminders_sent", result.RemindersSent,
		"failed", result.Failed,
	)
	return result, nil
}

func (s *EventService) sendConfirmations(ctx context.Context, ev *model.Event, stage crew.ConfirmationStage) (int, error) {
	pending := crew.PendingConfirmations(ev)
	accessKeys := make([]string, len(pending))
	for i, reg := range pending {
		key, _, err := crew.EnsureAccessKey(ev, reg.Key)
		if err != nil {
			return 0, err
		}
		accessKeys[i] = key
	}
	if err := crew.RecordConfirmationRequest(ev, stage); err != nil {
		return 0, err
	}
	if err := s.save(ctx, ev); err != nil {
		return 0, err
	}

	for i, reg := range pending {
		msg := model.NewNotification(stageKinds[stage], *reg.UserKey, ev, &reg)
		msg.AccessKey = accessKeys[i]
		s.notifier.Notify(ctx, msg)
		s.metrics.IncConfirmationsSent(stageLabels[stage])
	}
	s.logger.InfoContext(ctx, "confirmation messages sent",
		"event_key", ev.Details.Key,
		"stage", stageLabels[stage],
		"recipients", len(pending),
	)
	return len(pending), nil
}

// ViewRegistration returns the event as seen through a registration's access
// key. A wrong key is indistinguishable from a missing registration.
func (s *EventService) ViewRegistration(ctx context.Context, eventKey model.EventKey, key model.RegistrationKey, accessKey string) (view *model.Event, err error) {
	ctx, span := tracer.Start(ctx, "EventService.ViewRegistration")
	defer func() { endSpan(span, err) }()

	ev, err := s.load(ctx, eventKey)
	if err != nil {
		return nil, err
	}
	if err := crew.VerifyAccessKey(ev, key, accessKey); err != nil {
		return nil, hideAccessFailure(key, err)
	}
	view, ok := crew.Redact(ev, model.AccessKeyViewer(key))
	if !ok {
		return nil, fmt.Errorf("event %s: %w", eventKey, model.ErrNotFound)
	}
	return view, nil
}

// ConfirmRegistration records that the registrant will take part.
func (s *EventService) ConfirmRegistration(ctx context.Context, eventKey model.EventKey, key model.RegistrationKey, accessKey string) (err error) {
	ctx, span := tracer.Start(ctx, "EventService.ConfirmRegistration")
	defer func() { endSpan(span, err) }()

	ev, err := s.load(ctx, eventKey)
	if err != nil {
		return err
	}
	changed, err := crew.ConfirmRegistration(ev, key, accessKey, s.now())
	if err != nil {
		return hideAccessFailure(key, err)
	}
	if !changed {
		return nil
	}
	if err := s.save(ctx, ev); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "registration confirmed", "event_key", eventKey, "registration_key", key)
	return nil
}

// DeclineRegistration withdraws an unconfirmed registration through its
// access key. Crew managers are alerted when a crew member declines.
func (s *EventService) DeclineRegistration(ctx context.Context, eventKey model.EventKey, key model.RegistrationKey, accessKey string) (err error) {
	ctx, span := tracer.Start(ctx, "EventService.DeclineRegistration")
	defer func() { endSpan(span, err) }()

	ev, err := s.load(ctx, eventKey)
	if err != nil {
		return err
	}
	removal, err := crew.DeclineRegistration(ev, key, accessKey)
	if err != nil {
		return hideAccessFailure(key, err)
	}
	s.backfill(ctx, ev, removal)
	if err := s.save(ctx, ev); err != nil {
		return err
	}
	s.metrics.IncRegistrationsRemoved(removal.WasAssigned)
	s.logger.InfoContext(ctx, "registration declined",
		"event_key", eventKey,
		"registration_key", key,
		"was_assigned", removal.WasAssigned,
	)
	s.notifyRemoval(ctx, ev, removal, true)
	return nil
}

func hideAccessFailure(key model.RegistrationKey, err error) error {
	if errors.Is(err, model.ErrUnauthorized) || errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("registration %s: %w", key, model.ErrNotFound)
	}
	return err
}
