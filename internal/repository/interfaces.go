package repository

import (
	"context"

	"msgcounter/internal/domain"
)

// CountsRepository defines durable load/save of counter snapshots
type CountsRepository interface {
	// Name identifies the backend in logs
	Name() string

	// Load returns the persisted state. Missing or unreadable data yields an
	// empty snapshot; an error is only returned when the backend itself failed.
	Load(ctx context.Context) (*domain.Snapshot, error)

	// Save overwrites the persisted state with snap
	Save(ctx context.Context, snap *domain.Snapshot) error
}
