// Package model defines the core domain types of the crew planner: events,
// slots, registrations, keys and viewer permissions, plus the request and
// response payloads of the HTTP API.
package model

import "time"

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Note        string      `json:"note"`
	Description string      `json:"description"`
	Start       time.Time   `json:"start"`
	End         time.Time   `json:"end"`
	Locations   []Location  `json:"locations"`
	Slots       []SlotInput `json:"slots"`
}

// UpdateEventRequest changes event metadata. Nil fields are left untouched.
type UpdateEventRequest struct {
	Name        *string     `json:"name"`
	Type        *string     `json:"type"`
	State       *string     `json:"state"`
	Note        *string     `json:"note"`
	Description *string     `json:"description"`
	Start       *time.Time  `json:"start"`
	End         *time.Time  `json:"end"`
	Locations   *[]Location `json:"locations"`
}

// SlotInput describes one slot of a slot plan. An empty Key creates a new slot.
type SlotInput struct {
	Key                  string   `json:"key"`
	Order                int      `json:"order"`
	Criticality          int      `json:"criticality"`
	Positions            []string `json:"positions"`
	Name                 string   `json:"name"`
	AssignedRegistration *string  `json:"assigned_registration"`
}

// UpdateSlotsRequest replaces the slot plan of an event.
type UpdateSlotsRequest struct {
	Slots []SlotInput `json:"slots"`
}

// RegistrationRequest is the payload for adding or updating a registration.
// Exactly one of UserKey and Name must be set when adding.
type RegistrationRequest struct {
	PositionKey   string     `json:"position_key"`
	UserKey       *string    `json:"user_key"`
	Name          string     `json:"name"`
	Note          string     `json:"note"`
	ArrivalDate   *time.Time `json:"arrival_date"`
	OvernightStay *bool      `json:"overnight_stay"`
}

// AccessKeyRequest carries the secret for confirm and decline.
type AccessKeyRequest struct {
	AccessKey string `json:"access_key"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SweepResult summarises one run of the confirmation sweep.
type SweepResult struct {
	EventsChecked int
	RequestsSent  int
	RemindersSent int
	Failed        int
}
