package crew

import "github.com/Shivanand-hulikatti/crew-planner/internal/model"

// CanView reports whether the viewer may see the event at all. Callers turn a
// false into a not-found so hidden events stay indistinguishable from missing
// ones.
func CanView(ev *model.Event, viewer model.Viewer) bool {
	switch ev.Details.State {
	case model.EventStateDraft:
		return viewer.Can(model.PermEventDetailsWrite)
	case model.EventStateCanceled:
		return viewer.Can(model.PermEventDetailsWrite) || viewer.IsRegisteredOn(ev)
	}
	return true
}

// Redact returns the copy of ev the viewer is allowed to see, or false when
// the event is hidden from them. ev itself is never modified.
//
// Without slot-write permission the crew plan of a DRAFT or OPEN_FOR_SIGNUP
// event is hidden. Without registration-write permission the private fields of
// every registration other than the viewer's own are cleared.
func Redact(ev *model.Event, viewer model.Viewer) (*model.Event, bool) {
	if !CanView(ev, viewer) {
		return nil, false
	}
	view := ev.Clone()

	if !viewer.Can(model.PermEventSlotsWrite) && !ev.Details.State.CrewPublished() {
		for i := range view.Details.Slots {
			view.Details.Slots[i].AssignedRegistration = nil
		}
	}

	if !viewer.Can(model.PermEventRegistrationsWrite) {
		for i, r := range view.Registrations {
			if viewer.Owns(r) {
				continue
			}
			view.Registrations[i] = redactRegistration(r)
		}
	}
	return view, true
}

// RedactAll applies Redact to every event and drops the hidden ones.
func RedactAll(events []*model.Event, viewer model.Viewer) []*model.Event {
	visible := make([]*model.Event, 0, len(events))
	for _, ev := range events {
		if view, ok := Redact(ev, viewer); ok {
			visible = append(visible, view)
		}
	}
	return visible
}

func redactRegistration(r model.Registration) model.Registration {
	r.Note = ""
	r.AccessKey = ""
	r.ConfirmedAt = nil
	r.ArrivalDate = nil
	r.OvernightStay = nil
	return r
}
