package provider

import (
	"errors"
	"fmt"
)

// ErrUnsupported is returned when an operation outside the provider's
// declared capabilities is invoked.
var ErrUnsupported = errors.New("operation not supported")

// ErrUnknownScheme is returned by the registry for schemes nobody serves.
var ErrUnknownScheme = errors.New("no provider for scheme")

// UnsupportedError names the operation and protocol that refused.
type UnsupportedError struct {
	Op       string
	Protocol string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s: %s not supported", e.Protocol, e.Op)
}

func (e *UnsupportedError) Unwrap() error {
	return ErrUnsupported
}

// Unsupported builds the error returned for capability misuse.
func Unsupported(op, protocol string) error {
	return &UnsupportedError{Op: op, Protocol: protocol}
}

// TrashError is returned when moving a path to the trash fails.
type TrashError struct {
	Path string
	Err  error
}

func (e *TrashError) Error() string {
	return fmt.Sprintf("trash %s: %v", e.Path, e.Err)
}

func (e *TrashError) Unwrap() error {
	return e.Err
}

// ArchiveError is returned when an archive cannot be opened or indexed.
type ArchiveError struct {
	Path string
	Err  error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("archive %s: %v", e.Path, e.Err)
}

func (e *ArchiveError) Unwrap() error {
	return e.Err
}
