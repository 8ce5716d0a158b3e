package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnauthorized is reported when the allow-list gate rejects an actor.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrDirectoryUnavailable covers transport failures and malformed responses.
	ErrDirectoryUnavailable = errors.New("directory unavailable")
	// ErrDirectoryAuth signals that the remote admin credential was rejected.
	ErrDirectoryAuth = errors.New("directory credential rejected")
	// ErrNotFound signals that the requested account does not exist.
	ErrNotFound = errors.New("account not found")
	// ErrInvalidInput signals an empty or malformed user input.
	ErrInvalidInput = errors.New("invalid input")
	// ErrStaleReference signals a button that points at session state which no longer exists.
	ErrStaleReference = errors.New("stale reference")
)

// DirectoryError carries the remote side's description of a failed call.
// errors.Is matches it against its Kind sentinel.
type DirectoryError struct {
	Kind       error
	Op         string
	Status     int
	RemoteCode string
	Message    string
	Err        error
}

func (e *DirectoryError) Error() string {
	var b strings.Builder
	b.WriteString("directory")
	if e.Op != "" {
		b.WriteString(" ")
		b.WriteString(e.Op)
	}
	b.WriteString(": ")
	if e.Kind != nil {
		b.WriteString(e.Kind.Error())
	} else {
		b.WriteString("error")
	}
	if e.Status != 0 {
		fmt.Fprintf(&b, " (%d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *DirectoryError) Unwrap() []error {
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Code reports a stable code for handler summaries.
func (e *DirectoryError) Code() string {
	return KindCode(e.Kind)
}

// KindCode maps a taxonomy sentinel to an upper-case code.
func KindCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthorized):
		return "UNAUTHORIZED"
	case errors.Is(err, ErrDirectoryAuth):
		return "DIRECTORY_AUTH"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrInvalidInput):
		return "INVALID_INPUT"
	case errors.Is(err, ErrStaleReference):
		return "STALE_REFERENCE"
	case errors.Is(err, ErrDirectoryUnavailable):
		return "DIRECTORY_UNAVAILABLE"
	}
	return "UNKNOWN_ERROR"
}

// RemoteMessage returns the remote error description when err carries one.
func RemoteMessage(err error) string {
	var de *DirectoryError
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}
