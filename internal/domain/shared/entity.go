// Package shared holds the identity and error types every aggregate uses.
package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity provides identity, timestamps and an optimistic-lock version
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int
}

// Touch records a state change
func (e *BaseEntity) Touch(now time.Time) {
	e.UpdatedAt = now
	e.Version++
}

// NewBaseEntity creates a new base entity with a generated ID
func NewBaseEntity() BaseEntity {
	now := time.Now()
	return BaseEntity{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
}
