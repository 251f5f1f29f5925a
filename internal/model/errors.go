package model

import "errors"

// Sentinel errors shared by the engine, the stores and the use cases. Callers
// wrap them with context and compare with errors.Is; the HTTP layer maps each
// one to a status code.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrInvalidInput = errors.New("invalid input")
)
