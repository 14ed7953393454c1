package domain

import "errors"

// ErrTutorUnavailable wraps every fatal resolution failure. Callers that only
// need a single "tutor unavailable" signal check this one.
var ErrTutorUnavailable = errors.New("AI tutor is currently unavailable")

var (
	ErrMissingCredential = errors.New("tutor API key is required")
	ErrInvalidCredential = errors.New("tutor API key was rejected")
	ErrRateLimited       = errors.New("tutor rate or size limit exceeded")
)

// ErrInvalidRequest is returned for requests that fail validation before any
// lookup runs.
var ErrInvalidRequest = errors.New("invalid request")
