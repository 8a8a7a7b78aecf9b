package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"msgcounter/internal/domain"
	"msgcounter/internal/repository"
	"msgcounter/internal/store"
	"msgcounter/pkg/logger"
)

// DefaultSaveInterval is how often counters are flushed while running
const DefaultSaveInterval = 5 * time.Minute

// snapshotService restores the store at startup, saves it on a ticker and
// saves once more on shutdown
type snapshotService struct {
	store          *store.CounterStore
	repo           repository.CountsRepository
	logger         *logger.Logger
	interval       time.Duration
	snapshotTicker *time.Ticker
	stopSnapshot   chan struct{}
	routineDone    chan struct{}
	mu             sync.Mutex // guards restored, isRunning and the ticker
	saveMu         sync.Mutex // serializes saves
	restored       bool
	isRunning      bool
}

// NewSnapshotService creates a new snapshot service
func NewSnapshotService(counterStore *store.CounterStore, repo repository.CountsRepository, logger *logger.Logger, interval time.Duration) SnapshotService {
	if interval <= 0 {
		interval = DefaultSaveInterval
	}

	service := &snapshotService{
		store:    counterStore,
		repo:     repo,
		logger:   logger.Named("snapshot_service"),
		interval: interval,
	}

	service.logger.WithFields(map[string]interface{}{
		"backend":  repo.Name(),
		"interval": interval.String(),
	}).Info("Initialized snapshot service")

	return service
}

// Restore loads persisted counters into the store. Later calls are no-ops so
// a reconnect can never roll counters back.
func (s *snapshotService) Restore(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.restoreLocked(ctx)
	return nil
}

func (s *snapshotService) restoreLocked(ctx context.Context) {
	if s.restored {
		return
	}

	snap, err := s.repo.Load(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to restore from snapshot, continuing with fresh counters")
	}
	if snap == nil {
		snap = domain.NewSnapshot()
	}
	s.store.Restore(snap)
	s.restored = true

	s.logger.WithFields(map[string]interface{}{
		"total_users":    len(snap.Total),
		"delayed_users":  len(snap.Delayed),
		"cooldown_users": len(snap.LastSeen),
	}).Info("Restored counters")
}

// Start begins periodic snapshots
func (s *snapshotService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	s.logger.Info("Starting snapshot service...")

	s.restoreLocked(ctx)

	s.stopSnapshot = make(chan struct{})
	s.routineDone = make(chan struct{})
	s.snapshotTicker = time.NewTicker(s.interval)
	go s.snapshotRoutine(ctx, s.snapshotTicker, s.stopSnapshot, s.routineDone)

	s.isRunning = true
	s.logger.Info("Snapshot service started successfully")
	return nil
}

// Stop halts the periodic routine and saves a final snapshot
func (s *snapshotService) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	s.logger.Info("Stopping snapshot service...")

	s.snapshotTicker.Stop()
	close(s.stopSnapshot)
	<-s.routineDone

	s.isRunning = false

	if err := s.Flush(ctx); err != nil {
		s.logger.WithError(err).Error("Failed to save final snapshot during shutdown")
		return fmt.Errorf("final snapshot: %w", err)
	}

	s.logger.Info("Snapshot service stopped")
	return nil
}

// Flush saves the current counters
func (s *snapshotService) Flush(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	snap := s.store.Snapshot()
	start := time.Now()

	if err := s.repo.Save(ctx, snap); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"total_users":   len(snap.Total),
		"delayed_users": len(snap.Delayed),
		"duration":      time.Since(start).String(),
	}).Info("Snapshot saved")

	return nil
}

// snapshotRoutine runs periodic snapshots
func (s *snapshotService) snapshotRoutine(ctx context.Context, ticker *time.Ticker, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-ticker.C:
			s.logger.Debug("Initiating periodic snapshot")
			if err := s.Flush(ctx); err != nil {
				s.logger.WithError(err).Error("Failed to save periodic snapshot")
			}
		case <-stop:
			s.logger.Debug("Snapshot routine stopped")
			return
		case <-ctx.Done():
			s.logger.Debug("Snapshot routine cancelled")
			return
		}
	}
}
