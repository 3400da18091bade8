package schedule

import (
	"errors"
	"fmt"
)

var (
	ErrMissingIdentity          = errors.New("missing identity token")
	ErrIdentityResolutionFailed = errors.New("identity resolution failed")
	ErrRequestFailed            = errors.New("appointment request failed")
	ErrNetwork                  = errors.New("network error")
	ErrInvalidDate              = errors.New("invalid calendar date")
)

// StatusError carries the status of a non-success response. It is wrapped
// together with ErrRequestFailed.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("status %d", e.StatusCode)
	}
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
}

// FailureReason classifies why a query could not be shown.
type FailureReason int

const (
	ReasonNone FailureReason = iota
	ReasonMissingIdentity
	ReasonIdentityResolution
	ReasonRequestFailed
	ReasonNetwork
	ReasonInvalidDate
)

func (r FailureReason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonMissingIdentity:
		return "missing identity"
	case ReasonIdentityResolution:
		return "identity resolution failed"
	case ReasonRequestFailed:
		return "request failed"
	case ReasonNetwork:
		return "network error"
	case ReasonInvalidDate:
		return "invalid date"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// ReasonOf maps err onto the failure taxonomy. Unclassified errors count as
// network errors since they come from below the request layer.
func ReasonOf(err error) FailureReason {
	switch {
	case err == nil:
		return ReasonNone
	case errors.Is(err, ErrMissingIdentity):
		return ReasonMissingIdentity
	case errors.Is(err, ErrIdentityResolutionFailed):
		return ReasonIdentityResolution
	case errors.Is(err, ErrRequestFailed):
		return ReasonRequestFailed
	case errors.Is(err, ErrInvalidDate):
		return ReasonInvalidDate
	default:
		return ReasonNetwork
	}
}
