// Package id generates the identifiers of accounts, tickets, details and
// ledger entries. New ids are UUIDv7, so ledger rows sort by creation time.
package id

import (
	"fmt"

	"github.com/google/uuid"
)

type ID = uuid.UUID

// Nil is the zero ID.
var Nil = uuid.Nil

// New panics only if the system random source is broken.
func New() ID {
	return uuid.Must(uuid.NewV7())
}

// Parse accepts the canonical textual form and rejects the nil UUID.
func Parse(s string) (ID, error) {
	v, err := uuid.Parse(s)
	if err != nil {
		return Nil, err
	}
	if IsNil(v) {
		return Nil, fmt.Errorf("nil id %q", s)
	}
	return v, nil
}

// MustParse is for fixtures.
func MustParse(s string) ID {
	return uuid.MustParse(s)
}

func IsNil(v ID) bool {
	return v == Nil
}

func Ptr(v ID) *ID {
	return &v
}
