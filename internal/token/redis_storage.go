package token

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"meeting-orchestrator/internal/crypto"
)

// RedisInterface defines the Redis operations needed for token storage.
// Abstracting the client keeps the storage testable and independent of the
// concrete Redis library.
type RedisInterface interface {
	// Get retrieves a value by key from Redis
	Get(ctx context.Context, key string) (string, error)
	// Set stores a key-value pair in Redis with optional TTL
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// Delete removes a key from Redis
	Delete(ctx context.Context, key string) error
}

// GoRedisAdapter adapts a go-redis client to RedisInterface.
type GoRedisAdapter struct {
	client *goredis.Client
}

// NewGoRedisAdapter wraps an existing go-redis client.
func NewGoRedisAdapter(client *goredis.Client) *GoRedisAdapter {
	return &GoRedisAdapter{client: client}
}

// Get retrieves a value by key.
func (a *GoRedisAdapter) Get(ctx context.Context, key string) (string, error) {
	return a.client.Get(ctx, key).Result()
}

// Set stores a key-value pair with a TTL.
func (a *GoRedisAdapter) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return a.client.Set(ctx, key, value, ttl).Err()
}

// Delete removes a key.
func (a *GoRedisAdapter) Delete(ctx context.Context, key string) error {
	return a.client.Del(ctx, key).Err()
}

// RedisStorage implements Storage using Redis, for multi-instance deployments
// where the token cache must be shared. Tokens are serialized as JSON,
// encrypted at rest, and stored with a TTL derived from the token expiry.
type RedisStorage struct {
	client    RedisInterface
	encryptor *crypto.TokenEncryptor
	prefix    string
	ttl       time.Duration
}

// NewRedisStorage creates a Redis-backed token storage. The encryptor is
// mandatory: bearer tokens never reach Redis in plaintext.
func NewRedisStorage(client RedisInterface, encryptor *crypto.TokenEncryptor) *RedisStorage {
	return &RedisStorage{
		client:    client,
		encryptor: encryptor,
		prefix:    "meeting:token:",
		ttl:       24 * time.Hour,
	}
}

// SaveToken persists a token to Redis with a TTL of the token expiry plus a
// one-hour buffer, capped at the default TTL.
func (s *RedisStorage) SaveToken(ctx context.Context, serviceID string, token *Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to serialize token: %w", err)
	}

	encrypted, err := s.encryptor.Encrypt(string(data))
	if err != nil {
		return fmt.Errorf("failed to encrypt token: %w", err)
	}

	ttl := s.ttl
	if !token.Expiry.IsZero() {
		tokenTTL := time.Until(token.Expiry) + time.Hour
		if tokenTTL > 0 && tokenTTL < ttl {
			ttl = tokenTTL
		}
	}

	return s.client.Set(ctx, s.prefix+serviceID, encrypted, ttl)
}

// LoadToken retrieves a token from Redis. Redis TTL expiration is handled
// automatically: expired or missing tokens return nil without error.
func (s *RedisStorage) LoadToken(ctx context.Context, serviceID string) (*Token, error) {
	data, err := s.client.Get(ctx, s.prefix+serviceID)
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, err
	}

	if data == "" {
		return nil, nil
	}

	decrypted, err := s.encryptor.Decrypt(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt token: %w", err)
	}

	var token Token
	if err := json.Unmarshal([]byte(decrypted), &token); err != nil {
		return nil, fmt.Errorf("failed to deserialize token: %w", err)
	}

	return &token, nil
}

// DeleteToken removes a token from Redis; idempotent.
func (s *RedisStorage) DeleteToken(ctx context.Context, serviceID string) error {
	return s.client.Delete(ctx, s.prefix+serviceID)
}
