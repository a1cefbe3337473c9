package core

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidReference is returned when input is neither a catalog link, a catalog URI nor the saved sentinel.
	ErrInvalidReference = errors.New("invalid reference")
	// ErrUnsupportedType is returned for a well-formed reference naming an entity type that cannot be fetched.
	ErrUnsupportedType = errors.New("unsupported type")
	// ErrUnknownField is returned when a format template references a field an item does not have.
	ErrUnknownField = errors.New("unknown field")
	// ErrMalformedTemplate is returned when a format template has unbalanced braces.
	ErrMalformedTemplate = errors.New("malformed template")
	// ErrNoResults is returned by Resolve when a query selects no items.
	ErrNoResults = errors.New("no results")
	// ErrInvalidSlice is returned when the slice argument cannot be parsed.
	ErrInvalidSlice = errors.New("invalid slice")
)

// AuthError reports a failed credential acquisition or refresh. It is fatal for the invocation.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("auth: %s failed", e.Op)
	}
	return fmt.Sprintf("auth: %s failed: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// RequestError reports a completed catalog request that returned an error envelope or a bad status.
type RequestError struct {
	Path    string
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("request %s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("request %s: %d %s", e.Path, e.Status, e.Message)
}
