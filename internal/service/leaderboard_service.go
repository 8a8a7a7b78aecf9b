package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"msgcounter/internal/domain"
	"msgcounter/internal/store"
	"msgcounter/pkg/logger"
)

const (
	// DefaultLookupTimeout bounds a single display-name lookup
	DefaultLookupTimeout = 5 * time.Second

	// maxConcurrentLookups caps parallel platform requests per leaderboard
	maxConcurrentLookups = 5
)

// Reply texts
const (
	noTotalCountsText   = "No total message counts recorded yet."
	noDelayedCountsText = "No delayed message counts recorded yet."
	totalHeader         = "📊 **Top Total Message Senders:**\n"
	delayedHeaderFormat = "⏱️ **Top Delayed Message Senders (%s Cooldown):**\n"
	personalCountFormat = "Hey %s! You have sent %d total messages."
)

type leaderboardService struct {
	store         *store.CounterStore
	resolver      UserResolver
	lookupTimeout time.Duration
	logger        *logger.Logger
}

// NewLeaderboardService creates a new leaderboard service
func NewLeaderboardService(counterStore *store.CounterStore, resolver UserResolver, lookupTimeout time.Duration, logger *logger.Logger) LeaderboardService {
	if lookupTimeout <= 0 {
		lookupTimeout = DefaultLookupTimeout
	}
	return &leaderboardService{
		store:         counterStore,
		resolver:      resolver,
		lookupTimeout: lookupTimeout,
		logger:        logger.Named("leaderboard_service"),
	}
}

// Leaderboard renders the top entries of a counter, one line per user. Name
// lookups that fail degrade their own line and never the whole reply.
func (s *leaderboardService) Leaderboard(ctx context.Context, kind domain.CounterKind, limit int) string {
	entries := s.store.TopN(kind, limit)
	if len(entries) == 0 {
		if kind == domain.CounterDelayed {
			return noDelayedCountsText
		}
		return noTotalCountsText
	}

	lines := make([]string, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLookups)
	for i, entry := range entries {
		g.Go(func() error {
			lines[i] = s.renderLine(gctx, entry)
			return nil
		})
	}
	_ = g.Wait()

	var b strings.Builder
	if kind == domain.CounterDelayed {
		fmt.Fprintf(&b, delayedHeaderFormat, s.store.Cooldown())
	} else {
		b.WriteString(totalHeader)
	}
	for _, line := range lines {
		b.WriteString(line)
	}

	s.logger.WithFields(map[string]interface{}{
		"kind":    string(kind),
		"limit":   limit,
		"entries": len(entries),
	}).Debug("Rendered leaderboard")

	return b.String()
}

func (s *leaderboardService) renderLine(ctx context.Context, entry domain.LeaderboardEntry) string {
	lookupCtx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	defer cancel()

	name, err := s.resolver.DisplayName(lookupCtx, entry.UserID)
	switch {
	case err == nil:
		return fmt.Sprintf("%d. %s: %d messages\n", entry.Rank, name, entry.Count)
	case errors.Is(err, domain.ErrUserNotFound):
		return fmt.Sprintf("%d. Unknown User (ID: %s): %d messages\n", entry.Rank, entry.UserID, entry.Count)
	default:
		s.logger.WithError(err).WithField("user_id", entry.UserID).Warn("Failed to resolve display name")
		return fmt.Sprintf("%d. Error fetching user (ID: %s): %d messages (%v)\n", entry.Rank, entry.UserID, entry.Count, err)
	}
}

// PersonalCount renders the caller's total count, addressing them by mention
func (s *leaderboardService) PersonalCount(userID, mention string) string {
	return fmt.Sprintf(personalCountFormat, mention, s.store.Total(userID))
}

func (s *leaderboardService) Entries(kind domain.CounterKind, limit int) []domain.LeaderboardEntry {
	return s.store.TopN(kind, limit)
}

func (s *leaderboardService) UserCounts(userID string) domain.UserCounts {
	return s.store.Counts(userID)
}
