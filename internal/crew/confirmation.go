package crew

import (
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/crew-planner/internal/model"
)

const (
	// ConfirmationRequestWindow is how long before the start the first
	// confirmation request goes out.
	ConfirmationRequestWindow = 14 * 24 * time.Hour
	// ConfirmationReminderWindow is how long before the start the reminder
	// goes out.
	ConfirmationReminderWindow = 7 * 24 * time.Hour
)

// ConfirmationStage counts the confirmation messages an event has sent.
type ConfirmationStage int

const (
	StageNone ConfirmationStage = iota
	StageRequest
	StageReminder
)

// IsUpForConfirmationRequest reports whether a PLANNED event starts within
// the request window.
func IsUpForConfirmationRequest(ev *model.Event, now time.Time) bool {
	return startsWithin(ev, now, ConfirmationRequestWindow)
}

// IsUpForConfirmationReminder reports whether a PLANNED event starts within
// the reminder window.
func IsUpForConfirmationReminder(ev *model.Event, now time.Time) bool {
	return startsWithin(ev, now, ConfirmationReminderWindow)
}

func startsWithin(ev *model.Event, now time.Time, window time.Duration) bool {
	if ev.Details.State != model.EventStatePlanned {
		return false
	}
	start := ev.Details.Start
	return start.After(now) && !start.After(now.Add(window))
}

// DueConfirmationStage returns the stage that should be sent now, or
// StageNone. Stages advance one at a time: the reminder is only due once the
// first request went out.
func DueConfirmationStage(ev *model.Event, now time.Time) ConfirmationStage {
	switch sent := ConfirmationStage(ev.Details.ConfirmationRequestsSent); {
	case sent == StageNone && IsUpForConfirmationRequest(ev, now):
		return StageRequest
	case sent == StageRequest && IsUpForConfirmationReminder(ev, now):
		return StageReminder
	}
	return StageNone
}

// RecordConfirmationRequest advances the event's sent counter to stage.
// The counter never moves backwards and only moves while the event is PLANNED.
func RecordConfirmationRequest(ev *model.Event, stage ConfirmationStage) error {
	if ev.Details.State != model.EventStatePlanned {
		return fmt.Errorf("event %s is %s, not PLANNED: %w", ev.Details.Key, ev.Details.State, model.ErrInvalidState)
	}
	if int(stage) > ev.Details.ConfirmationRequestsSent {
		ev.Details.ConfirmationRequestsSent = int(stage)
	}
	return nil
}

// PendingConfirmations returns the assigned, unconfirmed member registrations
// that confirmation messages go to.
func PendingConfirmations(ev *model.Event) []model.Registration {
	assigned := AssignedRegistrations(ev)
	var pending []model.Registration
	for _, r := range ev.Registrations {
		if _, ok := assigned[r.Key]; !ok || r.UserKey == nil || r.Confirmed() {
			continue
		}
		pending = append(pending, r.Clone())
	}
	return pending
}
