package dashboard

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned for an empty city name or out-of-range coordinates.
	ErrInvalidInput = errors.New("invalid input")
	// ErrMissingCoordinates marks the coordinate-dependent kinds when weather failed.
	ErrMissingCoordinates = errors.New("coordinates unavailable: weather fetch failed")
	// ErrSuperseded is returned by a pass that a newer search replaced.
	ErrSuperseded = errors.New("orchestration pass superseded by a newer search")
)

// FetchErrorKind classifies provider failures.
type FetchErrorKind string

const (
	FetchNetwork     FetchErrorKind = "network"
	FetchStatus      FetchErrorKind = "status"
	FetchNotFound    FetchErrorKind = "not_found"
	FetchShape       FetchErrorKind = "shape"
	FetchConfig      FetchErrorKind = "config"
	FetchRateLimited FetchErrorKind = "rate_limited"
	FetchCircuitOpen FetchErrorKind = "circuit_open"
)

// FetchError is a provider failure. A payload that does not match the vendor
// shape is a FetchError of kind FetchShape.
type FetchError struct {
	Provider string
	Kind     FetchErrorKind
	Message  string
	Err      error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Provider, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, e.Message)
}

func (e *FetchError) Unwrap() error { return e.Err }

// NewFetchError builds a FetchError.
func NewFetchError(provider string, kind FetchErrorKind, msg string, err error) *FetchError {
	return &FetchError{Provider: provider, Kind: kind, Message: msg, Err: err}
}

// ShapeMismatch builds a FetchError for an unexpected payload.
func ShapeMismatch(provider, msg string, err error) *FetchError {
	return NewFetchError(provider, FetchShape, msg, err)
}

// FetchKindOf returns the kind of a FetchError in err's chain, or "" when there is none.
func FetchKindOf(err error) FetchErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}
