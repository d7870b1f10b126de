// Package config provides configuration management for the meeting
// orchestration service. Values are loaded from environment variables with
// sensible defaults and validated before the application starts.
//
// Environment Variables:
//
// Application Settings:
//   - PORT: Server port (default: 8080)
//   - LOG_LEVEL: Logging level (default: info)
//   - DATABASE_PATH: SQLite database file path (default: ./interview_schedules.db)
//
// Calendar Provider (Google Calendar + Meet):
//   - GOOGLE_CALENDAR_CREDENTIALS_FILE: Path to service-account credentials JSON
//   - GOOGLE_CALENDAR_ID: Calendar to create events in (default: primary)
//
// Meeting Provider (Zoom server-to-server OAuth):
//   - ZOOM_ACCOUNT_ID: Zoom account id
//   - ZOOM_CLIENT_ID: OAuth client id
//   - ZOOM_CLIENT_SECRET: OAuth client secret
//   - ZOOM_USER_ID: Acting user for meeting creation (default: me)
//
// Fallback:
//   - FALLBACK_BASE_URL: Public meeting-room base URL (default: https://meet.jit.si)
//
// Hardening:
//   - PROVIDER_TIMEOUT: Per-call provider timeout (default: 10s)
//
// Token storage (optional, for multi-instance deployments):
//   - REDIS_ADDRESS: Redis server address; empty disables Redis token storage
//   - REDIS_PASSWORD: Redis password
//   - REDIS_DB: Redis database number 0-15 (default: 0)
//   - TOKEN_ENCRYPTION_KEY: Passphrase for encrypting tokens at rest
//     (required when REDIS_ADDRESS is set)
//
// Provider credentials are all optional: their absence means "this provider
// is disabled", never an error. The orchestrator falls back to the
// credential-free room for disabled providers.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration values for the meeting orchestration service.
type Config struct {
	// Application settings
	Port         string // Server port number
	LogLevel     string // Logging level (debug, info, warn, error)
	DatabasePath string // Path to SQLite database file

	// Calendar provider configuration
	CalendarCredentialsFile string // Path to the calendar credentials JSON file
	CalendarID              string // Target calendar id

	// Meeting provider configuration
	ZoomAccountID    string // Zoom account id for the account_credentials grant
	ZoomClientID     string // OAuth client id
	ZoomClientSecret string // OAuth client secret
	ZoomUserID       string // Acting user id for meeting creation

	// Fallback room configuration
	FallbackBaseURL string // Public meeting-room base URL

	// ProviderTimeout bounds every outbound provider call so a hung provider
	// cannot block interview creation indefinitely
	ProviderTimeout string

	// Redis token storage (optional)
	RedisAddress       string // Redis server address (host:port), empty = disabled
	RedisPassword      string // Redis authentication password
	RedisDB            string // Redis database number (0-15)
	TokenEncryptionKey string // Passphrase for encrypting tokens at rest
}

// Load creates a new Config instance with values loaded from environment
// variables. Call Validate() on the result before use.
func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8080"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		DatabasePath: getEnv("DATABASE_PATH", "./interview_schedules.db"),

		CalendarCredentialsFile: getEnv("GOOGLE_CALENDAR_CREDENTIALS_FILE", ""),
		CalendarID:              getEnv("GOOGLE_CALENDAR_ID", "primary"),

		ZoomAccountID:    getEnv("ZOOM_ACCOUNT_ID", ""),
		ZoomClientID:     getEnv("ZOOM_CLIENT_ID", ""),
		ZoomClientSecret: getEnv("ZOOM_CLIENT_SECRET", ""),
		ZoomUserID:       getEnv("ZOOM_USER_ID", "me"),

		FallbackBaseURL: getEnv("FALLBACK_BASE_URL", "https://meet.jit.si"),

		ProviderTimeout: getEnv("PROVIDER_TIMEOUT", "10s"),

		RedisAddress:       getEnv("REDIS_ADDRESS", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getEnv("REDIS_DB", "0"),
		TokenEncryptionKey: getEnv("TOKEN_ENCRYPTION_KEY", ""),
	}
}

// getEnv retrieves an environment variable value or returns a default value if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// CalendarConfigured reports whether the calendar provider has static configuration.
func (c *Config) CalendarConfigured() bool {
	return c.CalendarCredentialsFile != "" && c.CalendarID != ""
}

// MeetingConfigured reports whether all three meeting-provider credentials are present.
func (c *Config) MeetingConfigured() bool {
	return c.ZoomAccountID != "" && c.ZoomClientID != "" && c.ZoomClientSecret != ""
}

// ProviderTimeoutDuration returns the parsed provider call timeout.
// Validate() guarantees the value parses; a zero duration falls back to 10s.
func (c *Config) ProviderTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.ProviderTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// Validate performs validation on the configuration to ensure all values
// are usable. Missing provider credentials are valid (provider disabled);
// malformed values are not.
func (c *Config) Validate() error {
	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a valid port number between 1 and 65535")
	}

	if _, err := time.ParseDuration(c.ProviderTimeout); err != nil {
		return fmt.Errorf("PROVIDER_TIMEOUT must be a valid duration (e.g., '10s')")
	}

	parsed, err := url.Parse(c.FallbackBaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("FALLBACK_BASE_URL must be an absolute URL")
	}

	if c.RedisAddress != "" {
		if db, err := strconv.Atoi(c.RedisDB); err != nil || db < 0 || db > 15 {
			return fmt.Errorf("REDIS_DB must be a number between 0 and 15")
		}
		if c.TokenEncryptionKey == "" {
			return fmt.Errorf("TOKEN_ENCRYPTION_KEY is required when REDIS_ADDRESS is set - tokens must be encrypted at rest")
		}
	}

	return nil
}
