package model

import (
	"fmt"
	"time"
)

// EventState is the lifecycle state of an event.
type EventState string

const (
	EventStateDraft         EventState = "DRAFT"
	EventStateOpenForSignup EventState = "OPEN_FOR_SIGNUP"
	EventStatePlanned       EventState = "PLANNED"
	EventStateCanceled      EventState = "CANCELED"
)

var stateRank = map[EventState]int{
	EventStateDraft:         0,
	EventStateOpenForSignup: 1,
	EventStatePlanned:       2,
}

func (s EventState) Valid() bool {
	_, ok := stateRank[s]
	return ok || s == EventStateCanceled
}

// CanTransitionTo reports whether an event may move from s to next.
// Forward moves may skip states, staying put is allowed, CANCELED is reachable
// from anywhere and is terminal.
func (s EventState) CanTransitionTo(next EventState) bool {
	if !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	if s == EventStateCanceled {
		return false
	}
	if next == EventStateCanceled {
		return true
	}
	return stateRank[next] > stateRank[s]
}

// CrewPublished reports whether slot assignments are visible to regular crew.
func (s EventState) CrewPublished() bool {
	return s != EventStateDraft && s != EventStateOpenForSignup
}

func ParseEventState(raw string) (EventState, error) {
	s := EventState(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown event state %q: %w", raw, ErrInvalidInput)
	}
	return s, nil
}

type EventType string

const (
	EventTypeWeekend   EventType = "WEEKEND_EVENT"
	EventTypeMultiDay  EventType = "MULTI_DAY_EVENT"
	EventTypeSingleDay EventType = "SINGLE_DAY_EVENT"
	EventTypeWork      EventType = "WORK_EVENT"
	EventTypeTraining  EventType = "TRAINING"
)

func ParseEventType(raw string) (EventType, error) {
	switch t := EventType(raw); t {
	case EventTypeWeekend, EventTypeMultiDay, EventTypeSingleDay, EventTypeWork, EventTypeTraining:
		return t, nil
	}
	return "", fmt.Errorf("unknown event type %q: %w", raw, ErrInvalidInput)
}

// Location is a stop on the event's itinerary.
type Location struct {
	Name        string `json:"name"`
	Address     string `json:"address,omitempty"`
	Information string `json:"information,omitempty"`
}

// EventDetails is the event metadata including its slot plan.
type EventDetails struct {
	Key                      EventKey   `json:"key"`
	Name                     string     `json:"name"`
	Type                     EventType  `json:"type"`
	State                    EventState `json:"state"`
	Note                     string     `json:"note,omitempty"`
	Description              string     `json:"description,omitempty"`
	Start                    time.Time  `json:"start"`
	End                      time.Time  `json:"end"`
	Locations                []Location `json:"locations"`
	Slots                    []Slot     `json:"slots"`
	ConfirmationRequestsSent int        `json:"confirmation_requests_sent"`
	// Version is bumped by the store on every successful update.
	Version int64 `json:"version"`
}

// Event is the aggregate: details plus the ordered registrations. Engine
// operations replace Slots and Registrations with fresh slices instead of
// writing through shared backing arrays, so clones never alias each other.
type Event struct {
	Details       EventDetails   `json:"details"`
	Registrations []Registration `json:"registrations"`
}

// Key is shorthand for e.Details.Key.
func (e *Event) Key() EventKey { return e.Details.Key }

// Clone returns a deep copy of the aggregate.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	c := &Event{Details: e.Details}
	c.Details.Locations = append([]Location(nil), e.Details.Locations...)
	c.Details.Slots = make([]Slot, len(e.Details.Slots))
	for i, s := range e.Details.Slots {
		c.Details.Slots[i] = s.Clone()
	}
	c.Registrations = make([]Registration, len(e.Registrations))
	for i, r := range e.Registrations {
		c.Registrations[i] = r.Clone()
	}
	return c
}

// FindRegistration returns the index of the registration with key, or -1.
func (e *Event) FindRegistration(key RegistrationKey) int {
	for i := range e.Registrations {
		if e.Registrations[i].Key == key {
			return i
		}
	}
	return -1
}

// Registration returns a copy of the registration with key.
func (e *Event) Registration(key RegistrationKey) (Registration, bool) {
	if i := e.FindRegistration(key); i >= 0 {
		return e.Registrations[i].Clone(), true
	}
	return Registration{}, false
}

// HasRegistrationOf reports whether the user holds a registration on the event.
func (e *Event) HasRegistrationOf(user UserKey) bool {
	for _, r := range e.Registrations {
		if r.UserKey != nil && *r.UserKey == user {
			return true
		}
	}
	return false
}

// Validate checks the metadata rules every stored event satisfies.
func (d EventDetails) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("event name is required: %w", ErrInvalidInput)
	}
	if !d.State.Valid() {
		return fmt.Errorf("unknown event state %q: %w", d.State, ErrInvalidInput)
	}
	if d.Start.IsZero() || d.End.IsZero() {
		return fmt.Errorf("event start and end are required: %w", ErrInvalidInput)
	}
	if d.End.Before(d.Start) {
		return fmt.Errorf("event end must not be before start: %w", ErrInvalidInput)
	}
	seen := make(map[SlotKey]struct{}, len(d.Slots))
	for _, s := range d.Slots {
		if _, dup := seen[s.Key]; dup {
			return fmt.Errorf("duplicate slot key %s: %w", s.Key, ErrInvalidInput)
		}
		seen[s.Key] = struct{}{}
		if s.Criticality < 0 {
			return fmt.Errorf("slot %s has negative criticality: %w", s.Key, ErrInvalidInput)
		}
	}
	return nil
}
