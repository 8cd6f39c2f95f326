// Package redis backs the currency resolver with a cross-run symbol
// cache. Denom metadata is immutable in practice, so entries carry a
// long TTL and misses are cheap.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SymbolStore implements currency.Store on a Redis backend.
type SymbolStore struct {
	client *redis.Client
	chain  string
	ttl    time.Duration
}

func NewSymbolStore(client *redis.Client, chain string, ttl time.Duration) *SymbolStore {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &SymbolStore{client: client, chain: chain, ttl: ttl}
}

func (s *SymbolStore) key(denom string) string {
	return fmt.Sprintf("taxindexer:symbol:%s:%s", s.chain, denom)
}

func (s *SymbolStore) GetSymbol(ctx context.Context, denom string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.key(denom)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get symbol: %w", err)
	}
	return v, true, nil
}

func (s *SymbolStore) SetSymbol(ctx context.Context, denom, symbol string) error {
	if err := s.client.Set(ctx, s.key(denom), symbol, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set symbol: %w", err)
	}
	return nil
}
