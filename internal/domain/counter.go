package domain

import (
	"errors"
	"fmt"
	"time"
)

// CounterKind selects one of the two per-user counters
type CounterKind string

const (
	// CounterTotal counts every non-bot message
	CounterTotal CounterKind = "total"
	// CounterDelayed counts messages at least one cooldown apart
	CounterDelayed CounterKind = "delayed"
)

// ErrUnknownCounterKind is returned when parsing an unsupported counter name
var ErrUnknownCounterKind = errors.New("unknown counter kind")

// ParseCounterKind converts a user-supplied name into a CounterKind
func ParseCounterKind(s string) (CounterKind, error) {
	switch CounterKind(s) {
	case CounterTotal, CounterDelayed:
		return CounterKind(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCounterKind, s)
}

// LeaderboardEntry is one ranked row of a leaderboard
type LeaderboardEntry struct {
	Rank   int    `json:"rank"`
	UserID string `json:"user_id"`
	Count  int64  `json:"count"`
}

// RecordResult describes the effect of recording one message
type RecordResult struct {
	Total          int64
	Delayed        int64
	DelayedCounted bool
}

// UserCounts is the pair of counters for one user
type UserCounts struct {
	UserID  string `json:"user_id"`
	Total   int64  `json:"total"`
	Delayed int64  `json:"delayed"`
}

// Snapshot is a point-in-time copy of all counter state
type Snapshot struct {
	Total    map[string]int64
	Delayed  map[string]int64
	LastSeen map[string]time.Time
	TakenAt  time.Time
}

// NewSnapshot returns a snapshot with empty, non-nil maps
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Total:    make(map[string]int64),
		Delayed:  make(map[string]int64),
		LastSeen: make(map[string]time.Time),
	}
}

// IsEmpty reports whether the snapshot holds no counts
func (s *Snapshot) IsEmpty() bool {
	return s == nil || (len(s.Total) == 0 && len(s.Delayed) == 0)
}

// Counts returns the map for the given kind
func (s *Snapshot) Counts(kind CounterKind) map[string]int64 {
	if kind == CounterDelayed {
		return s.Delayed
	}
	return s.Total
}
