package token

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestToken_ExpiredAt(t *testing.T) {
	expiry := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		token    *Token
		at       time.Time
		expected bool
	}{
		{"zero expiry never expires", &Token{}, expiry, false},
		{"6 minutes before expiry is valid", &Token{Expiry: expiry}, expiry.Add(-6 * time.Minute), false},
		{"4 minutes before expiry is inside the margin", &Token{Expiry: expiry}, expiry.Add(-4 * time.Minute), true},
		{"exactly at the margin boundary is expired", &Token{Expiry: expiry}, expiry.Add(-ExpiryMargin), true},
		{"past expiry is expired", &Token{Expiry: expiry}, expiry.Add(time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.token.ExpiredAt(tt.at); got != tt.expected {
				t.Errorf("ExpiredAt(%v) = %v, want %v", tt.at, got, tt.expected)
			}
		})
	}
}

func TestCache_RefreshesOnFirstAcquisition(t *testing.T) {
	refreshes := 0
	cache := NewCache("zoom", func(ctx context.Context) (*Token, error) {
		refreshes++
		return &Token{AccessToken: "fresh", Expiry: time.Now().Add(time.Hour)}, nil
	})

	tok, err := cache.Token(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.AccessToken != "fresh" {
		t.Errorf("expected fresh token, got %q", tok.AccessToken)
	}
	if refreshes != 1 {
		t.Errorf("expected 1 refresh, got %d", refreshes)
	}
}

func TestCache_ReuseInsideAndRefreshNearExpiry(t *testing.T) {
	expiry := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	now := expiry.Add(-time.Hour)

	refreshes := 0
	cache := NewCache("zoom",
		func(ctx context.Context) (*Token, error) {
			refreshes++
			return &Token{AccessToken: "renewed", Expiry: expiry.Add(time.Hour)}, nil
		},
		WithClock(func() time.Time { return now }),
	)

	// Seed the cache
	cache.current = &Token{AccessToken: "cached", Expiry: expiry}
	cache.loaded = true

	// 6 minutes before expiry: reuse, no refresh
	now = expiry.Add(-6 * time.Minute)
	tok, err := cache.Token(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.AccessToken != "cached" {
		t.Errorf("expected cached token at expiry-6m, got %q", tok.AccessToken)
	}
	if refreshes != 0 {
		t.Errorf("expected no refresh at expiry-6m, got %d", refreshes)
	}

	// 4 minutes before expiry: exactly one refresh
	now = expiry.Add(-4 * time.Minute)
	tok, err = cache.Token(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.AccessToken != "renewed" {
		t.Errorf("expected renewed token at expiry-4m, got %q", tok.AccessToken)
	}
	if refreshes != 1 {
		t.Errorf("expected exactly 1 refresh at expiry-4m, got %d", refreshes)
	}
}

func TestCache_SingleFlight(t *testing.T) {
	var refreshes int32
	cache := NewCache("zoom", func(ctx context.Context) (*Token, error) {
		atomic.AddInt32(&refreshes, 1)
		time.Sleep(50 * time.Millisecond) // simulate a slow token endpoint
		return &Token{AccessToken: "shared", Expiry: time.Now().Add(time.Hour)}, nil
	})

	var wg sync.WaitGroup
	results := make(chan string, 10)

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := cache.Token(context.Background())
			if err != nil {
				t.Errorf("concurrent acquisition failed: %v", err)
				return
			}
			results <- tok.AccessToken
		}()
	}

	wg.Wait()
	close(results)

	if n := atomic.LoadInt32(&refreshes); n != 1 {
		t.Errorf("expected a single refresh for concurrent callers, got %d", n)
	}
	for tok := range results {
		if tok != "shared" {
			t.Errorf("expected all callers to share one token, got %q", tok)
		}
	}
}

func TestCache_RefreshErrorPropagates(t *testing.T) {
	wanted := errors.New("token endpoint down")
	cache := NewCache("zoom", func(ctx context.Context) (*Token, error) {
		return nil, wanted
	})

	_, err := cache.Token(context.Background())
	if !errors.Is(err, wanted) {
		t.Errorf("expected refresh error, got %v", err)
	}
}

func TestCache_LoadsFromStorage(t *testing.T) {
	storage := NewMemoryStorage()
	stored := &Token{AccessToken: "persisted", Expiry: time.Now().Add(time.Hour)}
	storage.SaveToken(context.Background(), "zoom", stored)

	cache := NewCache("zoom",
		func(ctx context.Context) (*Token, error) {
			t.Fatal("refresh should not run when storage has a valid token")
			return nil, nil
		},
		WithStorage(storage),
	)

	tok, err := cache.Token(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.AccessToken != "persisted" {
		t.Errorf("expected persisted token, got %q", tok.AccessToken)
	}
}

func TestCache_PersistsRefreshedToken(t *testing.T) {
	storage := NewMemoryStorage()
	cache := NewCache("zoom",
		func(ctx context.Context) (*Token, error) {
			return &Token{AccessToken: "fresh", Expiry: time.Now().Add(time.Hour)}, nil
		},
		WithStorage(storage),
	)

	if _, err := cache.Token(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	persisted, err := storage.LoadToken(context.Background(), "zoom")
	if err != nil || persisted == nil {
		t.Fatalf("expected persisted token, got %v err %v", persisted, err)
	}
	if persisted.AccessToken != "fresh" {
		t.Errorf("expected fresh token in storage, got %q", persisted.AccessToken)
	}
}

func TestCache_Invalidate(t *testing.T) {
	refreshes := 0
	storage := NewMemoryStorage()
	cache := NewCache("zoom",
		func(ctx context.Context) (*Token, error) {
			refreshes++
			return &Token{AccessToken: "fresh", Expiry: time.Now().Add(time.Hour)}, nil
		},
		WithStorage(storage),
	)

	ctx := context.Background()
	cache.Token(ctx)
	cache.Invalidate(ctx)
	cache.Token(ctx)

	if refreshes != 2 {
		t.Errorf("expected refresh after invalidation, got %d refreshes", refreshes)
	}

	if tok, _ := storage.LoadToken(ctx, "zoom"); tok == nil {
		// Invalidate deletes, then the second acquisition re-persists
		t.Error("expected re-persisted token after invalidate + refresh")
	}
}

func TestCache_AuthorizationHeader(t *testing.T) {
	cache := NewCache("zoom", func(ctx context.Context) (*Token, error) {
		return &Token{AccessToken: "abc123", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)}, nil
	})

	header, err := cache.AuthorizationHeader(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if header != "Bearer abc123" {
		t.Errorf("expected %q, got %q", "Bearer abc123", header)
	}
}

func TestCache_AuthorizationHeader_DefaultsTokenType(t *testing.T) {
	cache := NewCache("zoom", func(ctx context.Context) (*Token, error) {
		return &Token{AccessToken: "abc123", Expiry: time.Now().Add(time.Hour)}, nil
	})

	header, err := cache.AuthorizationHeader(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if header != "Bearer abc123" {
		t.Errorf("expected Bearer default, got %q", header)
	}
}
