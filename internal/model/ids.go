package model

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Keys are opaque strings. Distinct types keep an event key from being passed
// where a registration key is expected.
type (
	EventKey        string
	SlotKey         string
	RegistrationKey string
	PositionKey     string
	UserKey         string
)

func NewEventKey() EventKey               { return EventKey(uuid.NewString()) }
func NewSlotKey() SlotKey                 { return SlotKey(uuid.NewString()) }
func NewRegistrationKey() RegistrationKey { return RegistrationKey(uuid.NewString()) }

func ParseEventKey(raw string) (EventKey, error) { return parseKey[EventKey]("event", raw) }
func ParseSlotKey(raw string) (SlotKey, error)   { return parseKey[SlotKey]("slot", raw) }
func ParseRegistrationKey(raw string) (RegistrationKey, error) {
	return parseKey[RegistrationKey]("registration", raw)
}
func ParsePositionKey(raw string) (PositionKey, error) { return parseKey[PositionKey]("position", raw) }
func ParseUserKey(raw string) (UserKey, error)         { return parseKey[UserKey]("user", raw) }

// SlotKeyOrNew generates a key when raw is empty and validates it otherwise.
func SlotKeyOrNew(raw string) (SlotKey, error) { return keyOrNew[SlotKey]("slot", raw) }

// RegistrationKeyOrNew generates a key when raw is empty and validates it otherwise.
func RegistrationKeyOrNew(raw string) (RegistrationKey, error) {
	return keyOrNew[RegistrationKey]("registration", raw)
}

func parseKey[K ~string](kind, raw string) (K, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%s key must not be blank: %w", kind, ErrInvalidInput)
	}
	return K(trimmed), nil
}

func keyOrNew[K ~string](kind, raw string) (K, error) {
	if raw == "" {
		return K(uuid.NewString()), nil
	}
	return parseKey[K](kind, raw)
}
