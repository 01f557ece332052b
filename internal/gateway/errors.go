package gateway

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest marks requests rejected before any upstream call.
var ErrInvalidRequest = errors.New("invalid request")

// ErrMalformedOutput marks structured completions whose content failed to
// parse or conform to the schema. These are never retried; whether to
// reprompt is the caller's call.
var ErrMalformedOutput = errors.New("malformed model output")

// ExhaustedError is returned when every attempt failed with a transient
// error. Err holds the failure from the final attempt.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("upstream unavailable after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// RejectedError is returned when the upstream deterministically rejected
// the request. Retrying would get the same answer.
type RejectedError struct {
	Status int
	Body   string
}

func (e *RejectedError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream rejected request (HTTP %d)", e.Status)
	}
	return fmt.Sprintf("upstream rejected request (HTTP %d): %s", e.Status, e.Body)
}
