// Package entity holds the identity and audit fields shared by accounts,
// tickets and ticket details.
package entity

import (
	"time"

	"stockflow/internal/core/id"
)

// BaseEntity contains the primary key and optimistic-locking version.
type BaseEntity struct {
	// ID is the primary key (UUIDv7)
	ID id.ID `db:"id" json:"id"`

	// Version is incremented on each save
	Version int `db:"version" json:"version"`
}

// NewBaseEntity creates a new BaseEntity with generated ID.
func NewBaseEntity() BaseEntity {
	return BaseEntity{
		ID:      id.New(),
		Version: 1,
	}
}

// Audit records who created and last changed an entity.
// The acting user is always passed in explicitly.
type Audit struct {
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
	CreatedBy string    `db:"created_by" json:"createdBy,omitempty"`
	UpdatedBy string    `db:"updated_by" json:"updatedBy,omitempty"`
}

// NewAudit stamps creation fields.
func NewAudit(actor string, now time.Time) Audit {
	return Audit{
		CreatedAt: now,
		UpdatedAt: now,
		CreatedBy: actor,
		UpdatedBy: actor,
	}
}

// Stamp updates the modification fields.
func (a *Audit) Stamp(actor string, now time.Time) {
	a.UpdatedAt = now
	a.UpdatedBy = actor
}
