package token

import (
	"context"
	"sync"
)

// Storage defines the contract for persisting tokens across restarts.
// Implementations provide different backends (memory, Redis) depending on
// whether tokens must be shared across service instances.
type Storage interface {
	// SaveToken persists a token for the specified service ID
	SaveToken(ctx context.Context, serviceID string, token *Token) error
	// LoadToken retrieves a previously saved token, returns nil if not found
	LoadToken(ctx context.Context, serviceID string) (*Token, error)
	// DeleteToken removes a token from storage; idempotent
	DeleteToken(ctx context.Context, serviceID string) error
}

// MemoryStorage implements Storage in process memory. Suitable for tests and
// single-instance deployments where persistence across restarts is not needed.
type MemoryStorage struct {
	mu     sync.RWMutex
	tokens map[string]*Token
}

// NewMemoryStorage creates a new thread-safe in-memory token storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		tokens: make(map[string]*Token),
	}
}

// SaveToken stores a token in memory, overwriting any existing one.
func (s *MemoryStorage) SaveToken(ctx context.Context, serviceID string, token *Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[serviceID] = token
	return nil
}

// LoadToken retrieves a token from memory, nil if not found.
func (s *MemoryStorage) LoadToken(ctx context.Context, serviceID string) (*Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	token, exists := s.tokens[serviceID]
	if !exists {
		return nil, nil
	}
	return token, nil
}

// DeleteToken removes a token from memory.
func (s *MemoryStorage) DeleteToken(ctx context.Context, serviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, serviceID)
	return nil
}
