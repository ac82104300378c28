package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrFacilityFetchFailed = errors.New("facility fetch failed")
	ErrTimeout             = errors.New("facility fetch timed out")
	ErrNotFound            = errors.New("not found")
)

const (
	msgInvalidInput = "A valid location is required to search for nearby facilities."
	msgFetchFailed  = "Unable to load nearby medical facilities. Please try again."
	msgTimeout      = "Searching for nearby medical facilities took too long. Please try again."
)

// FetchError reports a failed provider call. It matches ErrFacilityFetchFailed
// and, for timeouts, ErrTimeout.
type FetchError struct {
	Message string
	Timeout bool
	Err     error
}

func NewFetchError(err error, timeout bool) *FetchError {
	msg := msgFetchFailed
	if timeout {
		msg = msgTimeout
	}
	return &FetchError{Message: msg, Timeout: timeout, Err: err}
}

func (e *FetchError) Error() string {
	kind := ErrFacilityFetchFailed.Error()
	if e.Timeout {
		kind = ErrTimeout.Error()
	}
	if e.Err == nil {
		return kind
	}
	return fmt.Sprintf("%s: %v", kind, e.Err)
}

func (e *FetchError) Unwrap() []error {
	errs := []error{ErrFacilityFetchFailed}
	if e.Timeout {
		errs = append(errs, ErrTimeout)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// UserMessage turns a search error into text safe to show an end user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var fe *FetchError
	switch {
	case errors.As(err, &fe):
		return fe.Message
	case errors.Is(err, ErrInvalidInput):
		return msgInvalidInput
	case errors.Is(err, ErrTimeout):
		return msgTimeout
	default:
		return msgFetchFailed
	}
}
