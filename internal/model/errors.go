package model

import "errors"

// Common errors used across the relay
var (
	// Connection errors
	ErrConnectionNotFound = errors.New("connection not found")
	ErrAlreadyRegistered  = errors.New("connection is already registered")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")

	// Combat errors
	ErrInvalidWeapon = errors.New("invalid weapon")
	ErrRateLimited   = errors.New("rate limited")

	// Protocol errors
	ErrMalformedPayload = errors.New("malformed payload")
	ErrUnknownEvent     = errors.New("unknown event")
)
