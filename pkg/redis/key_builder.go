package redis

import (
	"fmt"
	"time"
)

// Counter key patterns
const (
	KeyCounts     = "counts:%s" // counts:total, counts:delayed
	KeyLastSeen   = "counts:last_seen"
	KeyLastUpdate = "counts:last_update"
)

// Display name cache
const (
	KeyDisplayName = "names:%s" // names:{userID}
	TTLDisplayName = time.Hour
)

// KeyBuilder provides environment-aware Redis key building functionality
type KeyBuilder struct {
	prefix string // Environment prefix (staging/prod)
}

// NewKeyBuilder creates a new key builder with environment-based prefix
func NewKeyBuilder(environment string) *KeyBuilder {
	prefix := "prod"
	if environment == "development" || environment == "staging" {
		prefix = "staging"
	}

	return &KeyBuilder{
		prefix: prefix,
	}
}

// BuildKey constructs a Redis key with the environment prefix
func (kb *KeyBuilder) BuildKey(key string) string {
	return fmt.Sprintf("%s:%s", kb.prefix, key)
}

// GetPrefix returns the current environment prefix
func (kb *KeyBuilder) GetPrefix() string {
	return kb.prefix
}

// KeyCounts returns the hash key holding per-user counts of the given kind
func (kb *KeyBuilder) KeyCounts(kind string) string {
	return kb.BuildKey(fmt.Sprintf(KeyCounts, kind))
}

// KeyLastSeen returns the hash key holding per-user cooldown timestamps
func (kb *KeyBuilder) KeyLastSeen() string {
	return kb.BuildKey(KeyLastSeen)
}

func (kb *KeyBuilder) KeyLastUpdate() string {
	return kb.BuildKey(KeyLastUpdate)
}

// KeyDisplayName returns the key caching one user's display name
func (kb *KeyBuilder) KeyDisplayName(userID string) string {
	return kb.BuildKey(fmt.Sprintf(KeyDisplayName, userID))
}
