package router

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no registered route accepts a path.
	ErrNotFound = errors.New("router: no route matches path")

	// ErrSealed is returned when registering on a builder that has been sealed.
	ErrSealed = errors.New("router: builder sealed")

	// ErrInvalidPattern is returned for malformed route patterns.
	ErrInvalidPattern = errors.New("router: invalid pattern")

	// ErrNilHandler is returned when registering a route without a handler.
	ErrNilHandler = errors.New("router: nil handler")
)

// NotFoundError reports the path that failed to resolve.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("router: no route matches %q", e.Path)
}

// Unwrap allows errors.Is(err, ErrNotFound).
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// PatternError describes why a pattern was rejected.
type PatternError struct {
	Pattern string
	Reason  string
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("router: invalid pattern %q: %s", e.Pattern, e.Reason)
}

// Unwrap allows errors.Is(err, ErrInvalidPattern).
func (e *PatternError) Unwrap() error {
	return ErrInvalidPattern
}
