package history

import (
	"context"

	"github.com/google/uuid"
)

// Filter narrows run history queries
type Filter struct {
	Platform string  // empty matches every platform
	Status   *Status // nil matches every status
	Limit    int     // 0 uses the repository default
}

// Repository defines run history persistence
type Repository interface {
	// Save creates or updates a run
	Save(ctx context.Context, run *Run) error

	// FindByID finds a run by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Run, error)

	// FindRecent returns runs newest first
	FindRecent(ctx context.Context, filter Filter) ([]*Run, error)
}
