package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"msgcounter/pkg/errors"
)

// Config holds all configuration values for the application
type Config struct {
	DiscordToken            string
	CommandPrefix           string
	DataDir                 string
	CountsFile              string
	BackupFile              string
	DelayedFile             string
	Cooldown                time.Duration
	SaveInterval            time.Duration
	DefaultLeaderboardLimit int
	MaxLeaderboardLimit     int
	LookupTimeout           time.Duration
	LogLevel                string
	Environment             string
	RedisURL                string // optional mirror of the counters
	NameCacheTTL            time.Duration
	HTTPPort                string // ops API is disabled when empty
}

// Load loads configuration from environment variables. Values that fail to
// parse are reported together.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	var problems []string

	cfg := &Config{
		DiscordToken:            strings.TrimSpace(os.Getenv("DISCORD_SECRET")),
		CommandPrefix:           getEnv("COMMAND_PREFIX", "?"),
		DataDir:                 getEnv("DATA_DIR", "."),
		CountsFile:              getEnv("COUNTS_FILE", "message_counts.json"),
		BackupFile:              getEnv("BACKUP_FILE", "messages.txt"),
		DelayedFile:             getEnv("DELAYED_FILE", "msg_delay.txt"),
		Cooldown:                time.Duration(getIntEnv("COOLDOWN_SECONDS", 10, &problems)) * time.Second,
		SaveInterval:            getDurationEnv("SAVE_INTERVAL", 5*time.Minute, &problems),
		DefaultLeaderboardLimit: getIntEnv("DEFAULT_LEADERBOARD_LIMIT", 10, &problems),
		MaxLeaderboardLimit:     getIntEnv("MAX_LEADERBOARD_LIMIT", 50, &problems),
		LookupTimeout:           getDurationEnv("LOOKUP_TIMEOUT", 5*time.Second, &problems),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		Environment:             getEnv("ENVIRONMENT", "production"),
		RedisURL:                getEnv("REDIS_URL", ""),
		NameCacheTTL:            getDurationEnv("NAME_CACHE_TTL", time.Hour, &problems),
		HTTPPort:                getEnv("HTTP_PORT", ""),
	}

	if len(problems) > 0 {
		return nil, errors.NewConfigurationError("Invalid configuration values", map[string]interface{}{
			"problems": problems,
		})
	}

	return cfg, nil
}

// LoadFiles loads only the settings needed to locate the snapshot files
func LoadFiles() *Config {
	_ = godotenv.Load()

	return &Config{
		DataDir:     getEnv("DATA_DIR", "."),
		CountsFile:  getEnv("COUNTS_FILE", "message_counts.json"),
		BackupFile:  getEnv("BACKUP_FILE", "messages.txt"),
		DelayedFile: getEnv("DELAYED_FILE", "msg_delay.txt"),
		LogLevel:    getEnv("LOG_LEVEL", "warn"),
	}
}

// Validate checks the settings the bot cannot run without
func (c *Config) Validate() error {
	if c.DiscordToken == "" {
		return errors.NewConfigurationError("DISCORD_SECRET is not set", map[string]interface{}{
			"variable": "DISCORD_SECRET",
		})
	}
	if c.CommandPrefix == "" {
		return errors.NewConfigurationError("COMMAND_PREFIX must not be empty", nil)
	}
	if c.Cooldown <= 0 {
		return errors.NewConfigurationError("COOLDOWN_SECONDS must be positive", map[string]interface{}{
			"value": c.Cooldown.String(),
		})
	}
	if c.SaveInterval <= 0 {
		return errors.NewConfigurationError("SAVE_INTERVAL must be positive", map[string]interface{}{
			"value": c.SaveInterval.String(),
		})
	}
	if c.MaxLeaderboardLimit < 1 {
		return errors.NewConfigurationError("MAX_LEADERBOARD_LIMIT must be at least 1", nil)
	}
	if c.DefaultLeaderboardLimit < 1 || c.DefaultLeaderboardLimit > c.MaxLeaderboardLimit {
		return errors.NewConfigurationError("DEFAULT_LEADERBOARD_LIMIT must be between 1 and MAX_LEADERBOARD_LIMIT", map[string]interface{}{
			"default": c.DefaultLeaderboardLimit,
			"max":     c.MaxLeaderboardLimit,
		})
	}
	if c.LookupTimeout <= 0 {
		return errors.NewConfigurationError("LOOKUP_TIMEOUT must be positive", nil)
	}
	return nil
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getIntEnv gets an integer environment variable, recording a problem when it
// does not parse
func getIntEnv(key string, fallback int, problems *[]string) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		*problems = append(*problems, fmt.Sprintf("%s: %q is not an integer", key, value))
		return fallback
	}
	return parsed
}

// getDurationEnv gets a duration such as "5m" or "30s"
func getDurationEnv(key string, fallback time.Duration, problems *[]string) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		*problems = append(*problems, fmt.Sprintf("%s: %q is not a duration", key, value))
		return fallback
	}
	return parsed
}
