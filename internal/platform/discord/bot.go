package discord

import (
	"context"
	"sync"

	"github.com/bwmarrin/discordgo"

	"msgcounter/internal/domain"
	"msgcounter/pkg/logger"
)

// MessageHandler receives every inbound message and may return a reply
type MessageHandler interface {
	OnMessage(ctx context.Context, msg domain.Message) *domain.Reply
}

// gateway is the part of *discordgo.Session the bot drives
type gateway interface {
	User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)
	AddHandler(handler interface{}) func()
	Open() error
	Close() error
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Bot forwards gateway messages to a MessageHandler and sends its replies
type Bot struct {
	session gateway
	handler MessageHandler
	logger  *logger.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	remove []func()
	opened bool
}

// NewBot creates a bot on an existing session
func NewBot(session *discordgo.Session, handler MessageHandler, logger *logger.Logger) *Bot {
	return newBot(session, handler, logger)
}

func newBot(session gateway, handler MessageHandler, logger *logger.Logger) *Bot {
	return &Bot{
		session: session,
		handler: handler,
		logger:  logger.Named("discord_bot"),
	}
}

// Open validates the token and connects to the gateway. A rejected token
// returns ErrInvalidToken and missing privileged intents return ErrMissingIntents.
func (b *Bot) Open(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.opened {
		return nil
	}

	me, err := b.session.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		return classifyOpenError(err)
	}

	b.ctx, b.cancel = context.WithCancel(context.WithoutCancel(ctx))
	b.remove = []func(){
		b.session.AddHandler(b.onReady),
		b.session.AddHandler(b.onMessageCreate),
	}

	if err := b.session.Open(); err != nil {
		b.detach()
		return classifyOpenError(err)
	}

	b.opened = true
	b.logger.WithFields(map[string]interface{}{
		"bot_id":   me.ID,
		"bot_name": me.Username,
	}).Info("Connected to Discord gateway")
	return nil
}

// Close disconnects from the gateway. Replies still in flight are abandoned.
func (b *Bot) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.opened {
		return nil
	}
	b.opened = false
	b.detach()

	if err := b.session.Close(); err != nil {
		b.logger.WithError(err).Warn("Failed to close Discord gateway cleanly")
		return err
	}
	b.logger.Info("Disconnected from Discord gateway")
	return nil
}

func (b *Bot) detach() {
	for _, remove := range b.remove {
		remove()
	}
	b.remove = nil
	if b.cancel != nil {
		b.cancel()
	}
}

func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	log := b.logger.WithField("guilds", len(r.Guilds))
	if r.User != nil {
		log = log.WithField("user", r.User.Username)
	}
	log.Info("Gateway session ready")
}

func (b *Bot) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	msg, ok := toDomainMessage(m)
	if !ok {
		return
	}

	reply := b.handler.OnMessage(b.context(), msg)
	if reply == nil {
		return
	}
	b.send(reply)
}

func (b *Bot) context() context.Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ctx == nil {
		return context.Background()
	}
	return b.ctx
}

// send delivers a reply in chunks. A failed send is logged and dropped.
func (b *Bot) send(reply *domain.Reply) {
	for _, chunk := range reply.Chunks() {
		if _, err := b.session.ChannelMessageSend(reply.ChannelID, chunk); err != nil {
			b.logger.WithError(err).WithField("channel_id", reply.ChannelID).Error("Failed to send reply")
			return
		}
	}
}

func toDomainMessage(m *discordgo.MessageCreate) (domain.Message, bool) {
	if m == nil || m.Message == nil || m.Author == nil {
		return domain.Message{}, false
	}
	return domain.Message{
		ID:            m.ID,
		ChannelID:     m.ChannelID,
		GuildID:       m.GuildID,
		AuthorID:      m.Author.ID,
		AuthorMention: m.Author.Mention(),
		AuthorIsBot:   m.Author.Bot,
		Content:       m.Content,
		Timestamp:     m.Timestamp,
	}, true
}
