package repository

import (
	"context"
	"errors"
	"fmt"

	"msgcounter/internal/domain"
	"msgcounter/pkg/logger"
)

// multiRepository fans saves out to every backend and loads from the primary,
// filling gaps from the secondaries
type multiRepository struct {
	primary     CountsRepository
	secondaries []CountsRepository
	logger      *logger.Logger
}

// NewMultiRepository combines a primary backend with optional mirrors. With no
// secondaries the primary is returned unchanged.
func NewMultiRepository(primary CountsRepository, logger *logger.Logger, secondaries ...CountsRepository) CountsRepository {
	if len(secondaries) == 0 {
		return primary
	}
	return &multiRepository{
		primary:     primary,
		secondaries: secondaries,
		logger:      logger.Named("multi_repository"),
	}
}

func (r *multiRepository) Name() string {
	name := r.primary.Name()
	for _, s := range r.secondaries {
		name += "+" + s.Name()
	}
	return name
}

// Load reads the primary. Counts are taken from the first secondary with data
// only when the primary has none; cooldowns from the first backend that has any.
func (r *multiRepository) Load(ctx context.Context) (*domain.Snapshot, error) {
	snap, err := r.primary.Load(ctx)
	if err != nil {
		r.logger.WithError(err).WithField("backend", r.primary.Name()).Warn("Primary load failed")
	}
	if snap == nil {
		snap = domain.NewSnapshot()
	}

	for _, s := range r.secondaries {
		other, err := s.Load(ctx)
		if err != nil {
			r.logger.WithError(err).WithField("backend", s.Name()).Warn("Secondary load failed")
			continue
		}

		if snap.IsEmpty() && !other.IsEmpty() {
			snap.Total = other.Total
			snap.Delayed = other.Delayed
			r.logger.WithFields(map[string]interface{}{
				"backend":     s.Name(),
				"total_users": len(other.Total),
			}).Info("Restored counts from secondary backend")
		}
		if len(snap.LastSeen) == 0 && len(other.LastSeen) > 0 {
			snap.LastSeen = other.LastSeen
		}
	}

	return snap, nil
}

// Save writes to every backend and returns the joined errors
func (r *multiRepository) Save(ctx context.Context, snap *domain.Snapshot) error {
	var errs []error
	for _, repo := range append([]CountsRepository{r.primary}, r.secondaries...) {
		if err := repo.Save(ctx, snap); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", repo.Name(), err))
		}
	}
	return errors.Join(errs...)
}
