package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"msgcounter/internal/domain"
	"msgcounter/internal/service"
	"msgcounter/pkg/logger"
)

// Command names
const (
	CommandLeaderboard        = "lb"
	CommandDelayedLeaderboard = "lb-delay"
	CommandMessages           = "messages"
)

const (
	// DefaultCommandPrefix precedes every command name
	DefaultCommandPrefix = "?"

	// DefaultLeaderboardLimit is used when lb is called without an argument
	DefaultLeaderboardLimit = 10

	// DefaultMaxLeaderboardLimit caps the number of leaderboard lines
	DefaultMaxLeaderboardLimit = 50
)

const usageFormat = "Usage: `%s%s [limit]` where limit is a whole number."

// CommandRouter parses prefixed commands and renders their replies
type CommandRouter struct {
	prefix       string
	defaultLimit int
	maxLimit     int
	leaderboard  service.LeaderboardService
	logger       *logger.Logger
}

// NewCommandRouter creates a new command router
func NewCommandRouter(prefix string, defaultLimit, maxLimit int, leaderboard service.LeaderboardService, logger *logger.Logger) *CommandRouter {
	if prefix == "" {
		prefix = DefaultCommandPrefix
	}
	if maxLimit <= 0 {
		maxLimit = DefaultMaxLeaderboardLimit
	}
	if defaultLimit <= 0 {
		defaultLimit = DefaultLeaderboardLimit
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}

	return &CommandRouter{
		prefix:       prefix,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
		leaderboard:  leaderboard,
		logger:       logger.Named("command_router"),
	}
}

// Dispatch returns the reply to a command message, or nil when the message is
// not a known command
func (r *CommandRouter) Dispatch(ctx context.Context, msg domain.Message) *domain.Reply {
	name, args, ok := r.parse(msg.Content)
	if !ok {
		return nil
	}

	log := r.logger.WithFields(map[string]interface{}{
		"command":    name,
		"user_id":    msg.AuthorID,
		"channel_id": msg.ChannelID,
	})

	var content string
	switch name {
	case CommandLeaderboard, CommandDelayedLeaderboard:
		kind := domain.CounterTotal
		if name == CommandDelayedLeaderboard {
			kind = domain.CounterDelayed
		}
		limit, err := r.parseLimit(args)
		if err != nil {
			log.WithError(err).Debug("Rejected leaderboard limit")
			content = fmt.Sprintf(usageFormat, r.prefix, name)
			break
		}
		content = r.leaderboard.Leaderboard(ctx, kind, limit)
	case CommandMessages:
		mention := msg.AuthorMention
		if mention == "" {
			mention = "<@" + msg.AuthorID + ">"
		}
		content = r.leaderboard.PersonalCount(msg.AuthorID, mention)
	default:
		return nil
	}

	log.Debug("Command handled")
	return &domain.Reply{ChannelID: msg.ChannelID, Content: content}
}

// parse splits "<prefix><name> args..." into its parts. Whitespace directly
// after the prefix means the message is not a command.
func (r *CommandRouter) parse(content string) (string, []string, bool) {
	rest, found := strings.CutPrefix(content, r.prefix)
	if !found || rest == "" {
		return "", nil, false
	}
	if first, _ := utf8.DecodeRuneInString(rest); unicode.IsSpace(first) {
		return "", nil, false
	}

	fields := strings.Fields(rest)
	return fields[0], fields[1:], true
}

// parseLimit reads the optional limit argument and clamps it to 1..maxLimit
func (r *CommandRouter) parseLimit(args []string) (int, error) {
	if len(args) == 0 {
		return r.defaultLimit, nil
	}

	limit, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid limit %q: %w", args[0], err)
	}

	switch {
	case limit < 1:
		return 1, nil
	case limit > r.maxLimit:
		return r.maxLimit, nil
	}
	return limit, nil
}
