package handler

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"msgcounter/internal/domain"
	"msgcounter/internal/service"
	"msgcounter/internal/store"
	"msgcounter/pkg/logger"
)

func newSeededRouter(t *testing.T, prefix string, defaultLimit, maxLimit int) *CommandRouter {
	t.Helper()
	counterStore := store.NewCounterStore(10 * time.Second)
	snap := domain.NewSnapshot()
	for i := 1; i <= 8; i++ {
		snap.Total[fmt.Sprint(i)] = int64(100 - i)
	}
	snap.Delayed["3"] = 4
	snap.Delayed["4"] = 9
	counterStore.Restore(snap)

	leaderboard := service.NewLeaderboardService(counterStore, staticResolver{}, time.Second, logger.NewNop())
	return NewCommandRouter(prefix, defaultLimit, maxLimit, leaderboard, logger.NewNop())
}

// entryLines counts the ranked lines after the header
func entryLines(content string) int {
	return strings.Count(content, "\n") - 1
}

func TestCommandRouter_Dispatch(t *testing.T) {
	router := newSeededRouter(t, "?", 5, 6)

	tests := []struct {
		name      string
		content   string
		wantNil   bool
		wantLines int
		contains  string
	}{
		{name: "plain chat", content: "hello there", wantNil: true},
		{name: "prefix only", content: "?", wantNil: true},
		{name: "space after prefix", content: "? lb", wantNil: true},
		{name: "unknown command", content: "?help", wantNil: true},
		{name: "command name must match exactly", content: "?lbx", wantNil: true},
		{name: "default limit", content: "?lb", wantLines: 5, contains: "1. name-1: 99 messages"},
		{name: "explicit limit", content: "?lb 2", wantLines: 2, contains: "2. name-2: 98 messages"},
		{name: "limit clamped to max", content: "?lb 999", wantLines: 6},
		{name: "limit clamped to one", content: "?lb 0", wantLines: 1},
		{name: "negative limit clamped to one", content: "?lb -3", wantLines: 1},
		{name: "non-integer limit", content: "?lb many", contains: "Usage: `?lb [limit]`"},
		{name: "delayed leaderboard", content: "?lb-delay", wantLines: 2, contains: "(10s Cooldown)"},
		{name: "delayed usage", content: "?lb-delay x", contains: "Usage: `?lb-delay [limit]`"},
		{name: "messages", content: "?messages", contains: "Hey <@7>! You have sent 93 total messages."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := router.Dispatch(context.Background(), domain.Message{
				ChannelID:     "chan",
				AuthorID:      "7",
				AuthorMention: "<@7>",
				Content:       tt.content,
			})

			if tt.wantNil {
				assert.Nil(t, reply)
				return
			}
			require.NotNil(t, reply)
			assert.Equal(t, "chan", reply.ChannelID)
			if tt.wantLines > 0 {
				assert.Equal(t, tt.wantLines, entryLines(reply.Content))
			}
			if tt.contains != "" {
				assert.Contains(t, reply.Content, tt.contains)
			}
		})
	}
}

func TestCommandRouter_CustomPrefix(t *testing.T) {
	router := newSeededRouter(t, "!", 10, 50)

	assert.Nil(t, router.Dispatch(context.Background(), domain.Message{Content: "?lb"}))
	assert.NotNil(t, router.Dispatch(context.Background(), domain.Message{Content: "!lb"}))
}

func TestCommandRouter_MentionFallback(t *testing.T) {
	router := newSeededRouter(t, "?", 10, 50)

	reply := router.Dispatch(context.Background(), domain.Message{AuthorID: "2", Content: "?messages"})

	require.NotNil(t, reply)
	assert.Equal(t, "Hey <@2>! You have sent 98 total messages.", reply.Content)
}

func TestNewCommandRouter_Defaults(t *testing.T) {
	router := NewCommandRouter("", 0, 0, nil, logger.NewNop())

	assert.Equal(t, DefaultCommandPrefix, router.prefix)
	assert.Equal(t, DefaultLeaderboardLimit, router.defaultLimit)
	assert.Equal(t, DefaultMaxLeaderboardLimit, router.maxLimit)

	router = NewCommandRouter("?", 20, 5, nil, logger.NewNop())
	assert.Equal(t, 5, router.defaultLimit)
}
