package device

import (
	"errors"
	"fmt"
)

var (
	// ErrConnectionFailure means the socket could not be opened or broke
	// while in use. Fatal for the current run.
	ErrConnectionFailure = errors.New("device connection failure")
	// ErrProtocolViolation means a response was malformed or missing an
	// expected part. Fatal for the rest of the session.
	ErrProtocolViolation = errors.New("device protocol violation")
	// ErrNoResponse means the connection ended before a text frame arrived.
	ErrNoResponse = errors.New("no response received from device")
	// ErrNotLoggedIn is returned by protocol operations issued before Login
	// or after Close.
	ErrNotLoggedIn = errors.New("device session is not logged in")
	// ErrPathNotFound is matched by every PathNotFoundError.
	ErrPathNotFound = errors.New("navigation path not found")
	// ErrFieldNotFound is matched by every FieldNotFoundError.
	ErrFieldNotFound = errors.New("field not found")
)

// PathNotFoundError names the first path segment without a matching menu item.
type PathNotFoundError struct {
	Path    string
	Segment string
}

func (e *PathNotFoundError) Error() string {
	return fmt.Sprintf("item %q of path %q does not exist", e.Segment, e.Path)
}

func (e *PathNotFoundError) Unwrap() error { return ErrPathNotFound }

// FieldNotFoundError names a field absent from a screen.
type FieldNotFoundError struct {
	Field string
}

func (e *FieldNotFoundError) Error() string {
	return fmt.Sprintf("no match for item %q", e.Field)
}

func (e *FieldNotFoundError) Unwrap() error { return ErrFieldNotFound }

func protocolErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrProtocolViolation, fmt.Sprintf(format, args...))
}
