// Package discord connects the counter to a Discord gateway session.
package discord

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/gorilla/websocket"

	apperrors "msgcounter/pkg/errors"
	"msgcounter/pkg/logger"
)

// Gateway close codes that end the session for good
const (
	closeAuthenticationFailed = 4004
	closeDisallowedIntents    = 4014
)

var (
	// ErrInvalidToken means the bot token was rejected
	ErrInvalidToken = errors.New("invalid bot token")

	// ErrMissingIntents means a privileged intent is not enabled for the application
	ErrMissingIntents = errors.New("privileged intents not enabled")
)

// Intents requested on identify. Message content and server members are
// privileged and must be enabled in the developer portal.
const Intents = discordgo.IntentsAllWithoutPrivileged |
	discordgo.IntentsMessageContent |
	discordgo.IntentsGuildMembers

// NewSession creates a bot session for token and routes discordgo's own
// logging through log
func NewSession(token string, log *logger.Logger) (*discordgo.Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperrors.NewConfigurationError("Discord bot token is empty", nil)
	}
	if !strings.HasPrefix(token, "Bot ") {
		token = "Bot " + token
	}

	session, err := discordgo.New(token)
	if err != nil {
		return nil, apperrors.NewConnectionError("Failed to create Discord session", err)
	}
	session.Identify.Intents = Intents
	session.ShouldReconnectOnError = true

	discordgo.Logger = gatewayLogger(log.Named("discordgo"))

	return session, nil
}

func gatewayLogger(log *logger.Logger) func(msgL, caller int, format string, a ...interface{}) {
	return func(msgL, caller int, format string, a ...interface{}) {
		msg := fmt.Sprintf(format, a...)
		switch msgL {
		case discordgo.LogError:
			log.Error(msg)
		case discordgo.LogWarning:
			log.Warn(msg)
		case discordgo.LogInformational:
			log.Info(msg)
		default:
			log.Debug(msg)
		}
	}
}

// classifyOpenError maps token and intent failures to their sentinels
func classifyOpenError(err error) error {
	if err == nil {
		return nil
	}

	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		switch closeErr.Code {
		case closeAuthenticationFailed:
			return fmt.Errorf("%w: %w", ErrInvalidToken, err)
		case closeDisallowedIntents:
			return fmt.Errorf("%w: %w", ErrMissingIntents, err)
		}
	}

	if errors.Is(err, discordgo.ErrUnauthorized) || restStatus(err) == http.StatusUnauthorized {
		return fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	return apperrors.NewConnectionError("Failed to connect to Discord", err)
}

// restStatus returns the HTTP status of a REST error, or 0
func restStatus(err error) int {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		return restErr.Response.StatusCode
	}
	return 0
}

// restCode returns the JSON error code of a REST error, or 0
func restCode(err error) int {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Message != nil {
		return restErr.Message.Code
	}
	return 0
}
