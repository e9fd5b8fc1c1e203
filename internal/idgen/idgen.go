// Package idgen produces and parses the time-ordered identifiers used for
// every stored entity.
package idgen

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/starford/storygraph/internal/apperr"
)

// Generator returns a fresh identifier on each call.
type Generator func() uuid.UUID

// New returns a UUIDv7. Values generated by one process increase
// monotonically, so their canonical strings sort by creation time.
func New() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// canonicalLen is the length of the hyphenated 8-4-4-4-12 form.
const canonicalLen = 36

// Parse converts the canonical string form back into an identifier. The
// braced, urn:uuid: and unhyphenated forms are rejected.
func Parse(s string) (uuid.UUID, error) {
	if len(s) != canonicalLen {
		return uuid.Nil, fmt.Errorf("%w: malformed id %q", apperr.ErrInvalidArgument, s)
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: malformed id %q", apperr.ErrInvalidArgument, s)
	}
	return id, nil
}
