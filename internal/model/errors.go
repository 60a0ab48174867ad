package model

import "errors"

// Common errors used across the application
var (
	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionFull     = errors.New("session is full")

	// Payload errors
	ErrInvalidPayload = errors.New("missing or invalid payload fields")

	// Transport index errors
	ErrTransportNotFound = errors.New("transport not found")
)
