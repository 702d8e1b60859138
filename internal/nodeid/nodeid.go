// Package nodeid provides stable, opaque node identifiers.
//
// An ID identifies a node in the repository. IDs are stable across moves and
// across versions; equality is identity. The zero value is reserved and never
// assigned to a node, which lets it double as the "no parent" marker for the
// tree root.
package nodeid

import (
	"fmt"

	"github.com/google/uuid"
)

// ID is a 128-bit node identifier.
type ID [16]byte

// Zero is the reserved null identifier.
var Zero ID

// New generates a fresh random ID.
func New() ID {
	return ID(uuid.New())
}

// Parse decodes the canonical string form of an ID.
func Parse(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return Zero, fmt.Errorf("parse node id %q: %w", s, err)
	}
	return ID(u), nil
}

// String returns the canonical string form.
func (id ID) String() string {
	return uuid.UUID(id).String()
}

// IsZero reports whether id is the reserved null identifier.
func (id ID) IsZero() bool {
	return id == Zero
}
