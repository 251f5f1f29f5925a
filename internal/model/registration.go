package model

import (
	"fmt"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	accessKeyAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	accessKeyLength   = 32
)

// Registration is a crew member's or guest's claim on an event. Exactly one
// of UserKey and Name identifies the registrant.
type Registration struct {
	Key         RegistrationKey `json:"key"`
	PositionKey PositionKey     `json:"position_key"`
	UserKey     *UserKey        `json:"user_key,omitempty"`
	Name        *string         `json:"name,omitempty"`
	Note        string          `json:"note,omitempty"`
	// AccessKey authorizes confirm/decline without a session. Empty means
	// none has been issued yet.
	AccessKey     string     `json:"access_key,omitempty"`
	ConfirmedAt   *time.Time `json:"confirmed_at,omitempty"`
	ArrivalDate   *time.Time `json:"arrival_date,omitempty"`
	OvernightStay *bool      `json:"overnight_stay,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// NewRegistration builds a registration for either a member or a guest.
func NewRegistration(key RegistrationKey, position PositionKey, user *UserKey, name string, now time.Time) (Registration, error) {
	name = strings.TrimSpace(name)
	switch {
	case position == "":
		return Registration{}, fmt.Errorf("registration position is required: %w", ErrInvalidInput)
	case user == nil && name == "":
		return Registration{}, fmt.Errorf("registration needs a user key or a guest name: %w", ErrInvalidInput)
	case user != nil && name != "":
		return Registration{}, fmt.Errorf("registration cannot have both a user key and a guest name: %w", ErrInvalidInput)
	}
	r := Registration{Key: key, PositionKey: position, CreatedAt: now}
	if user != nil {
		u := *user
		r.UserKey = &u
	} else {
		r.Name = &name
	}
	return r, nil
}

// IsGuest reports whether the registrant is identified by name only.
func (r Registration) IsGuest() bool { return r.UserKey == nil }

func (r Registration) Confirmed() bool { return r.ConfirmedAt != nil }

// GuestName returns the guest's name or "" for members.
func (r Registration) GuestName() string {
	if r.Name == nil {
		return ""
	}
	return *r.Name
}

func (r Registration) Clone() Registration {
	c := r
	if r.UserKey != nil {
		u := *r.UserKey
		c.UserKey = &u
	}
	if r.Name != nil {
		n := *r.Name
		c.Name = &n
	}
	if r.ConfirmedAt != nil {
		t := *r.ConfirmedAt
		c.ConfirmedAt = &t
	}
	if r.ArrivalDate != nil {
		t := *r.ArrivalDate
		c.ArrivalDate = &t
	}
	if r.OvernightStay != nil {
		b := *r.OvernightStay
		c.OvernightStay = &b
	}
	return c
}

// NewAccessKey generates a fresh registration access key.
func NewAccessKey() (string, error) {
	key, err := gonanoid.Generate(accessKeyAlphabet, accessKeyLength)
	if err != nil {
		return "", fmt.Errorf("generate access key: %w", err)
	}
	return key, nil
}
