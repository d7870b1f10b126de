// Package token manages bearer-token lifecycle for OAuth providers: cache,
// expiry-margin checks, single-flight refresh and optional persistence.
package token

import (
	"context"
	"fmt"
	"sync"
	"time"

	"meeting-orchestrator/internal/common/logging"
)

// ExpiryMargin is the safety window before expiry inside which a cached token
// is never used. Refreshing this early leaves room for request processing so
// an in-flight call does not fail with a just-expired token.
const ExpiryMargin = 5 * time.Minute

// Token represents a cached bearer credential with its absolute expiry.
type Token struct {
	// AccessToken is the token string used for API authentication
	AccessToken string `json:"access_token"`
	// TokenType specifies how the token should be used (typically "Bearer")
	TokenType string `json:"token_type"`
	// Expiry is the time when the access token expires
	Expiry time.Time `json:"expiry"`
}

// ExpiredAt returns true if the token is expired or inside the safety margin
// at the given instant. Tokens with zero expiry never expire.
func (t *Token) ExpiredAt(now time.Time) bool {
	if t.Expiry.IsZero() {
		return false
	}
	return !now.Before(t.Expiry.Add(-ExpiryMargin))
}

// RefreshFunc obtains a fresh token from the provider's token endpoint.
type RefreshFunc func(ctx context.Context) (*Token, error)

// Cache holds one provider's bearer token and refreshes it on demand.
//
// Acquisition is single-flight: the mutex is held across the refresh, so
// concurrent callers wait for one refresh rather than issuing duplicates, and
// the expiry check is re-evaluated under the lock on every acquisition.
type Cache struct {
	mu        sync.Mutex
	serviceID string
	refresh   RefreshFunc
	storage   Storage
	current   *Token
	loaded    bool
	now       func() time.Time
	logger    logging.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithStorage persists tokens across restarts via the given backend.
// Storage failures are logged and never fail the acquisition.
func WithStorage(storage Storage) Option {
	return func(c *Cache) {
		c.storage = storage
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithLogger sets the logger used for storage warnings.
func WithLogger(logger logging.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// NewCache creates a token cache for one provider service.
func NewCache(serviceID string, refresh RefreshFunc, opts ...Option) *Cache {
	c := &Cache{
		serviceID: serviceID,
		refresh:   refresh,
		now:       time.Now,
		logger:    logging.GetGlobalLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns a valid access token, refreshing synchronously when the
// cached one is absent or inside the expiry margin.
func (c *Cache) Token(ctx context.Context) (*Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil && !c.loaded {
		c.loadFromStorage(ctx)
	}

	if c.current != nil && !c.current.ExpiredAt(c.now()) {
		return c.current, nil
	}

	fresh, err := c.refresh(ctx)
	if err != nil {
		return nil, err
	}

	c.current = fresh
	c.persist(ctx, fresh)

	return fresh, nil
}

// AuthorizationHeader returns a header value in the form "Bearer <token>",
// acquiring or refreshing the token as needed.
func (c *Cache) AuthorizationHeader(ctx context.Context) (string, error) {
	tok, err := c.Token(ctx)
	if err != nil {
		return "", err
	}

	tokenType := tok.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}

	return fmt.Sprintf("%s %s", tokenType, tok.AccessToken), nil
}

// Invalidate drops the cached token, forcing a refresh on the next
// acquisition. Used after the provider rejects a token mid-lifetime.
func (c *Cache) Invalidate(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = nil
	c.loaded = true

	if c.storage != nil {
		if err := c.storage.DeleteToken(ctx, c.serviceID); err != nil {
			c.logger.Warn("Failed to delete token from storage",
				logging.String("service_id", c.serviceID),
				logging.Err(err))
		}
	}
}

// loadFromStorage is called once, under the lock, on first acquisition.
func (c *Cache) loadFromStorage(ctx context.Context) {
	c.loaded = true

	if c.storage == nil {
		return
	}

	tok, err := c.storage.LoadToken(ctx, c.serviceID)
	if err != nil {
		c.logger.Warn("Failed to load token from storage",
			logging.String("service_id", c.serviceID),
			logging.Err(err))
		return
	}
	c.current = tok
}

func (c *Cache) persist(ctx context.Context, tok *Token) {
	if c.storage == nil {
		return
	}

	if err := c.storage.SaveToken(ctx, c.serviceID, tok); err != nil {
		c.logger.Warn("Failed to persist token",
			logging.String("service_id", c.serviceID),
			logging.Err(err))
	}
}
