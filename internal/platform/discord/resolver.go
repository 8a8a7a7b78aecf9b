package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"msgcounter/internal/domain"
	apperrors "msgcounter/pkg/errors"
)

// userFetcher is the part of *discordgo.Session the resolver needs
type userFetcher interface {
	User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)
}

// Resolver looks up display names through the REST API
type Resolver struct {
	users userFetcher
}

// NewResolver creates a resolver backed by session
func NewResolver(session *discordgo.Session) *Resolver {
	return &Resolver{users: session}
}

// DisplayName returns the user's global display name, falling back to the
// username. Deleted or unknown accounts return domain.ErrUserNotFound.
func (r *Resolver) DisplayName(ctx context.Context, userID string) (string, error) {
	user, err := r.users.User(userID, discordgo.WithContext(ctx))
	if err != nil {
		return "", classifyLookupError(userID, err)
	}
	return displayName(user), nil
}

func classifyLookupError(userID string, err error) error {
	if restCode(err) == discordgo.ErrCodeUnknownUser || restStatus(err) == http.StatusNotFound {
		return fmt.Errorf("%w: %s", domain.ErrUserNotFound, userID)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	return apperrors.NewLookupError("Failed to fetch user", err)
}

func displayName(user *discordgo.User) string {
	if user.GlobalName != "" {
		return user.GlobalName
	}
	return user.Username
}
