// Package store holds the in-memory per-user message counters.
package store

import (
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"msgcounter/internal/domain"
)

// DefaultCooldown is the minimum gap between two delayed-counted messages
const DefaultCooldown = 10 * time.Second

// ErrEmptyUserID is returned when a message has no author identifier
var ErrEmptyUserID = errors.New("empty user id")

// CounterStore owns the total, delayed and last-seen maps. RecordMessage is the
// only mutation path apart from Restore, which is used once at bootstrap.
type CounterStore struct {
	mu       sync.RWMutex
	cooldown time.Duration
	total    map[string]int64
	delayed  map[string]int64
	lastSeen map[string]time.Time
}

// NewCounterStore creates an empty store. A non-positive cooldown selects DefaultCooldown.
func NewCounterStore(cooldown time.Duration) *CounterStore {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &CounterStore{
		cooldown: cooldown,
		total:    make(map[string]int64),
		delayed:  make(map[string]int64),
		lastSeen: make(map[string]time.Time),
	}
}

// Cooldown returns the configured cooldown window
func (s *CounterStore) Cooldown() time.Duration {
	return s.cooldown
}

// RecordMessage counts one message from userID observed at now
func (s *CounterStore) RecordMessage(userID string, now time.Time) (domain.RecordResult, error) {
	if userID == "" {
		return domain.RecordResult{}, ErrEmptyUserID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.total[userID]++

	counted := false
	last, seen := s.lastSeen[userID]
	if !seen || now.Sub(last) >= s.cooldown {
		s.delayed[userID]++
		s.lastSeen[userID] = now
		counted = true
	}

	return domain.RecordResult{
		Total:          s.total[userID],
		Delayed:        s.delayed[userID],
		DelayedCounted: counted,
	}, nil
}

// Total returns the total count for userID, or 0
func (s *CounterStore) Total(userID string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.total[userID]
}

// Delayed returns the delayed count for userID, or 0
func (s *CounterStore) Delayed(userID string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.delayed[userID]
}

// Counts returns both counters for userID
func (s *CounterStore) Counts(userID string) domain.UserCounts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.UserCounts{
		UserID:  userID,
		Total:   s.total[userID],
		Delayed: s.delayed[userID],
	}
}

// Len returns the number of users tracked by the given counter
func (s *CounterStore) Len(kind domain.CounterKind) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.counts(kind))
}

// TopN returns up to limit entries of the chosen counter ordered by count
// descending, then by ascending user ID. A limit <= 0 returns every entry.
func (s *CounterStore) TopN(kind domain.CounterKind, limit int) []domain.LeaderboardEntry {
	s.mu.RLock()
	entries := make([]domain.LeaderboardEntry, 0, len(s.counts(kind)))
	for id, count := range s.counts(kind) {
		entries = append(entries, domain.LeaderboardEntry{UserID: id, Count: count})
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return userIDLess(entries[i].UserID, entries[j].UserID)
	})

	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// Snapshot returns a deep copy of all state
func (s *CounterStore) Snapshot() *domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &domain.Snapshot{
		Total:    make(map[string]int64, len(s.total)),
		Delayed:  make(map[string]int64, len(s.delayed)),
		LastSeen: make(map[string]time.Time, len(s.lastSeen)),
		TakenAt:  time.Now(),
	}
	for k, v := range s.total {
		snap.Total[k] = v
	}
	for k, v := range s.delayed {
		snap.Delayed[k] = v
	}
	for k, v := range s.lastSeen {
		snap.LastSeen[k] = v
	}
	return snap
}

// Restore replaces all state with a copy of snap. Nil maps become empty.
func (s *CounterStore) Restore(snap *domain.Snapshot) {
	total := make(map[string]int64)
	delayed := make(map[string]int64)
	lastSeen := make(map[string]time.Time)

	if snap != nil {
		for k, v := range snap.Total {
			total[k] = v
		}
		for k, v := range snap.Delayed {
			delayed[k] = v
		}
		for k, v := range snap.LastSeen {
			lastSeen[k] = v
		}
	}

	s.mu.Lock()
	s.total, s.delayed, s.lastSeen = total, delayed, lastSeen
	s.mu.Unlock()
}

func (s *CounterStore) counts(kind domain.CounterKind) map[string]int64 {
	if kind == domain.CounterDelayed {
		return s.delayed
	}
	return s.total
}

// userIDLess orders numeric IDs numerically ahead of any non-numeric ID,
// which are ordered as strings.
func userIDLess(a, b string) bool {
	ai, errA := strconv.ParseUint(a, 10, 64)
	bi, errB := strconv.ParseUint(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		return ai < bi
	case errA == nil:
		return true
	case errB == nil:
		return false
	}
	return a < b
}
