package handler

import (
	"context"
	"fmt"
	"time"

	"msgcounter/internal/domain"
	"msgcounter/internal/store"
	"msgcounter/pkg/errors"
	"msgcounter/pkg/logger"
)

// MessageHandler is the single entry point for inbound chat messages
type MessageHandler struct {
	store  *store.CounterStore
	router *CommandRouter
	logger *logger.Logger
	now    func() time.Time
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(counterStore *store.CounterStore, router *CommandRouter, logger *logger.Logger) *MessageHandler {
	return &MessageHandler{
		store:  counterStore,
		router: router,
		logger: logger.Named("message_handler"),
		now:    time.Now,
	}
}

// OnMessage counts the message and returns the reply to send, if any.
// Messages from bots are ignored entirely.
func (h *MessageHandler) OnMessage(ctx context.Context, msg domain.Message) *domain.Reply {
	if msg.AuthorIsBot {
		return nil
	}

	h.record(msg)

	return h.router.Dispatch(ctx, msg)
}

// record updates the counters. A failure here must not stop command dispatch.
func (h *MessageHandler) record(msg domain.Message) {
	defer func() {
		if rec := recover(); rec != nil {
			err := errors.NewInternalError("counting message panicked", fmt.Errorf("%v", rec))
			h.logger.WithError(err).WithFields(map[string]interface{}{
				"user_id":    msg.AuthorID,
				"message_id": msg.ID,
			}).Error("Recovered from panic while counting message")
		}
	}()

	at := msg.Timestamp
	if at.IsZero() {
		at = h.now()
	}

	result, err := h.store.RecordMessage(msg.AuthorID, at)
	if err != nil {
		h.logger.WithError(err).WithField("message_id", msg.ID).Warn("Failed to count message")
		return
	}

	h.logger.WithFields(map[string]interface{}{
		"user_id":         msg.AuthorID,
		"total":           result.Total,
		"delayed":         result.Delayed,
		"delayed_counted": result.DelayedCounted,
	}).Debug("Counted message")
}
