package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"msgcounter/internal/domain"
	apperrors "msgcounter/pkg/errors"
	"msgcounter/pkg/logger"
)

// fakeGateway records calls made by the bot
type fakeGateway struct {
	mu       sync.Mutex
	user     *discordgo.User
	userErr  error
	openErr  error
	sendErr  error
	handlers int
	removed  int
	opened   bool
	closed   bool
	sent     []string
}

func (g *fakeGateway) User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error) {
	if g.userErr != nil {
		return nil, g.userErr
	}
	return g.user, nil
}

func (g *fakeGateway) AddHandler(handler interface{}) func() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.handlers++
	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		g.removed++
	}
}

func (g *fakeGateway) Open() error {
	if g.openErr != nil {
		return g.openErr
	}
	g.opened = true
	return nil
}

func (g *fakeGateway) Close() error {
	g.closed = true
	return nil
}

func (g *fakeGateway) ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sendErr != nil {
		return nil, g.sendErr
	}
	g.sent = append(g.sent, content)
	return &discordgo.Message{ChannelID: channelID, Content: content}, nil
}

// echoHandler replies with a fixed text and remembers the last message
type echoHandler struct {
	last  domain.Message
	reply string
}

func (h *echoHandler) OnMessage(ctx context.Context, msg domain.Message) *domain.Reply {
	h.last = msg
	if h.reply == "" {
		return nil
	}
	return &domain.Reply{ChannelID: msg.ChannelID, Content: h.reply}
}

func restError(status, code int) *discordgo.RESTError {
	return &discordgo.RESTError{
		Response: &http.Response{StatusCode: status, Status: http.StatusText(status)},
		Message:  &discordgo.APIErrorMessage{Code: code, Message: "error"},
	}
}

func TestClassifyOpenError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantSentinel error
		wantType     apperrors.ErrorType
	}{
		{
			name:         "rejected token over REST",
			err:          restError(http.StatusUnauthorized, 0),
			wantSentinel: ErrInvalidToken,
		},
		{
			name:         "unauthorized sentinel",
			err:          discordgo.ErrUnauthorized,
			wantSentinel: ErrInvalidToken,
		},
		{
			name:         "authentication failed close code",
			err:          &websocket.CloseError{Code: 4004, Text: "Authentication failed."},
			wantSentinel: ErrInvalidToken,
		},
		{
			name:         "disallowed intents close code",
			err:          fmt.Errorf("open: %w", &websocket.CloseError{Code: 4014, Text: "Disallowed intent(s)."}),
			wantSentinel: ErrMissingIntents,
		},
		{
			name:     "other close code",
			err:      &websocket.CloseError{Code: 4000, Text: "Unknown error."},
			wantType: apperrors.ErrorTypeConnection,
		},
		{
			name:     "network failure",
			err:      errors.New("dial tcp: lookup gateway.discord.gg: no such host"),
			wantType: apperrors.ErrorTypeConnection,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyOpenError(tt.err)
			require.Error(t, got)
			if tt.wantSentinel != nil {
				assert.ErrorIs(t, got, tt.wantSentinel)
			} else {
				assert.True(t, apperrors.IsType(got, tt.wantType))
				assert.NotErrorIs(t, got, ErrInvalidToken)
				assert.NotErrorIs(t, got, ErrMissingIntents)
			}
			assert.ErrorIs(t, got, tt.err)
		})
	}

	assert.NoError(t, classifyOpenError(nil))
}

func TestResolver_DisplayName(t *testing.T) {
	tests := []struct {
		name     string
		user     *discordgo.User
		err      error
		want     string
		notFound bool
		wantType apperrors.ErrorType
	}{
		{name: "global name", user: &discordgo.User{ID: "1", Username: "alice_01", GlobalName: "Alice"}, want: "Alice"},
		{name: "username fallback", user: &discordgo.User{ID: "2", Username: "bob"}, want: "bob"},
		{name: "unknown user code", err: restError(http.StatusNotFound, discordgo.ErrCodeUnknownUser), notFound: true},
		{name: "not found status", err: restError(http.StatusNotFound, 0), notFound: true},
		{name: "server error", err: restError(http.StatusInternalServerError, 0), wantType: apperrors.ErrorTypeLookup},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Resolver{users: &fakeGateway{user: tt.user, userErr: tt.err}}

			name, err := r.DisplayName(context.Background(), "1")
			switch {
			case tt.notFound:
				assert.ErrorIs(t, err, domain.ErrUserNotFound)
			case tt.wantType != "":
				assert.True(t, apperrors.IsType(err, tt.wantType))
				assert.NotErrorIs(t, err, domain.ErrUserNotFound)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.want, name)
			}
		})
	}
}

func TestResolver_TimeoutPassesThrough(t *testing.T) {
	r := &Resolver{users: &fakeGateway{userErr: fmt.Errorf("get: %w", context.DeadlineExceeded)}}

	_, err := r.DisplayName(context.Background(), "1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBot_OpenAndClose(t *testing.T) {
	gw := &fakeGateway{user: &discordgo.User{ID: "bot", Username: "counter"}}
	bot := newBot(gw, &echoHandler{}, logger.NewNop())

	require.NoError(t, bot.Open(context.Background()))
	assert.True(t, gw.opened)
	assert.Equal(t, 2, gw.handlers)

	require.NoError(t, bot.Open(context.Background()))
	assert.Equal(t, 2, gw.handlers)

	require.NoError(t, bot.Close())
	assert.True(t, gw.closed)
	assert.Equal(t, 2, gw.removed)
	require.NoError(t, bot.Close())
}

func TestBot_OpenInvalidToken(t *testing.T) {
	gw := &fakeGateway{userErr: restError(http.StatusUnauthorized, 0)}
	bot := newBot(gw, &echoHandler{}, logger.NewNop())

	err := bot.Open(context.Background())
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.False(t, gw.opened)
	assert.Zero(t, gw.handlers)
}

func TestBot_OpenMissingIntents(t *testing.T) {
	gw := &fakeGateway{
		user:    &discordgo.User{ID: "bot"},
		openErr: &websocket.CloseError{Code: 4014},
	}
	bot := newBot(gw, &echoHandler{}, logger.NewNop())

	err := bot.Open(context.Background())
	assert.ErrorIs(t, err, ErrMissingIntents)
	assert.Equal(t, 2, gw.removed)
	require.NoError(t, bot.Close())
	assert.False(t, gw.closed)
}

func TestBot_OnMessageCreate(t *testing.T) {
	gw := &fakeGateway{}
	handler := &echoHandler{reply: "pong"}
	bot := newBot(gw, handler, logger.NewNop())
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	bot.onMessageCreate(nil, &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:        "m1",
		ChannelID: "c1",
		GuildID:   "g1",
		Content:   "?ping",
		Timestamp: ts,
		Author:    &discordgo.User{ID: "42", Bot: true},
	}})

	assert.Equal(t, domain.Message{
		ID:            "m1",
		ChannelID:     "c1",
		GuildID:       "g1",
		AuthorID:      "42",
		AuthorMention: "<@42>",
		AuthorIsBot:   true,
		Content:       "?ping",
		Timestamp:     ts,
	}, handler.last)
	assert.Equal(t, []string{"pong"}, gw.sent)
}

func TestBot_LongReplyIsChunked(t *testing.T) {
	gw := &fakeGateway{}
	line := strings.Repeat("x", 99) + "\n"
	bot := newBot(gw, &echoHandler{reply: strings.Repeat(line, 30)}, logger.NewNop())

	bot.onMessageCreate(nil, &discordgo.MessageCreate{Message: &discordgo.Message{
		ChannelID: "c1",
		Author:    &discordgo.User{ID: "1"},
	}})

	require.Len(t, gw.sent, 2)
	for _, chunk := range gw.sent {
		assert.LessOrEqual(t, len(chunk), domain.MaxReplyLength)
	}
	assert.Equal(t, strings.Repeat(line, 30), strings.Join(gw.sent, ""))
}

func TestBot_IgnoresMessagesWithoutAuthor(t *testing.T) {
	gw := &fakeGateway{}
	handler := &echoHandler{reply: "pong"}
	bot := newBot(gw, handler, logger.NewNop())

	bot.onMessageCreate(nil, &discordgo.MessageCreate{Message: &discordgo.Message{ChannelID: "c1"}})
	bot.onMessageCreate(nil, &discordgo.MessageCreate{})

	assert.Empty(t, gw.sent)
}

func TestBot_SendFailureIsLogged(t *testing.T) {
	gw := &fakeGateway{sendErr: restError(http.StatusForbidden, 50013)}
	bot := newBot(gw, &echoHandler{reply: "pong"}, logger.NewNop())

	assert.NotPanics(t, func() {
		bot.onMessageCreate(nil, &discordgo.MessageCreate{Message: &discordgo.Message{
			ChannelID: "c1",
			Author:    &discordgo.User{ID: "1"},
		}})
	})
}

func TestNewSession(t *testing.T) {
	_, err := NewSession("  ", logger.NewNop())
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConfiguration))

	session, err := NewSession("abc.def.ghi", logger.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "Bot abc.def.ghi", session.Token)
	assert.Equal(t, Intents, session.Identify.Intents)
}
