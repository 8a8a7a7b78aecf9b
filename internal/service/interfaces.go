package service

import (
	"context"

	"msgcounter/internal/domain"
)

// SnapshotService defines the persistence lifecycle of the counter store
type SnapshotService interface {
	// Restore loads persisted state into the store once
	Restore(ctx context.Context) error

	// Start begins periodic snapshots, restoring first if Restore was not called
	Start(ctx context.Context) error

	// Stop halts periodic snapshots and performs a final synchronous save
	Stop(ctx context.Context) error

	// Flush saves the current state immediately
	Flush(ctx context.Context) error
}

// UserResolver looks up a user's display name on the chat platform
type UserResolver interface {
	// DisplayName returns domain.ErrUserNotFound when the account no longer exists
	DisplayName(ctx context.Context, userID string) (string, error)
}

// LeaderboardService renders counter queries as chat replies
type LeaderboardService interface {
	// Leaderboard renders the top limit users of the given counter
	Leaderboard(ctx context.Context, kind domain.CounterKind, limit int) string

	// PersonalCount renders the caller's own total count
	PersonalCount(userID, mention string) string

	// Entries returns the ranked rows without resolving names
	Entries(kind domain.CounterKind, limit int) []domain.LeaderboardEntry

	// UserCounts returns both counters for one user
	UserCounts(userID string) domain.UserCounts
}
