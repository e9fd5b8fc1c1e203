// Package apperr defines the sentinel errors shared by every layer.
package apperr

import "errors"

var (
	// ErrNotFound is returned when a requested node does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument marks malformed identifiers and blank required fields.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrConstraint wraps a store-level integrity violation.
	ErrConstraint = errors.New("constraint violation")
)
