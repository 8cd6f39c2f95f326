// Package currency resolves opaque denom identifiers (cosmos denoms, IBC
// hashes, asset ids, mint addresses) into display symbols and decimal
// exponents. Resolution is an external collaborator call, memoized for the
// duration of a run.
package currency

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/emperorhan/taxindexer/internal/cache"
	"github.com/emperorhan/taxindexer/internal/metrics"
	"github.com/shopspring/decimal"
)

// Resolver looks up display metadata for a denom or asset address.
type Resolver interface {
	// Symbol returns the display symbol for a denom identifier.
	Symbol(ctx context.Context, denom string) (string, error)
	// Decimals returns the decimal exponent for a denom identifier.
	Decimals(ctx context.Context, denom string) (int32, error)
}

// Store is an optional second-level cache behind the in-memory LRU
// (e.g. Redis), surviving across runs.
type Store interface {
	GetSymbol(ctx context.Context, denom string) (string, bool, error)
	SetSymbol(ctx context.Context, denom, symbol string) error
}

// CachedResolver memoizes an underlying Resolver and degrades to the raw
// denom string when the lookup fails. It never returns an error: a wallet
// report must not abort because token metadata was unavailable.
type CachedResolver struct {
	next     Resolver
	chain    string
	symbols  *cache.LRU[string, string]
	decimals *cache.LRU[string, int32]
	store    Store
	logger   *slog.Logger
}

type CachedOption func(*CachedResolver)

// WithStore adds a persistent symbol cache consulted on LRU misses.
func WithStore(s Store) CachedOption {
	return func(r *CachedResolver) { r.store = s }
}

func NewCachedResolver(next Resolver, chain string, capacity int, ttl time.Duration, logger *slog.Logger, opts ...CachedOption) *CachedResolver {
	r := &CachedResolver{
		next:     next,
		chain:    chain,
		symbols:  cache.NewLRU[string, string](capacity, ttl),
		decimals: cache.NewLRU[string, int32](capacity, ttl),
		logger:   logger.With("component", "currency"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Symbol resolves a denom to its display symbol. Failures degrade to the
// raw denom so downstream rows stay addressable.
func (r *CachedResolver) Symbol(ctx context.Context, denom string) (string, error) {
	if s, ok := r.symbols.Get(denom); ok {
		metrics.CurrencyCacheHits.WithLabelValues(r.chain).Inc()
		return s, nil
	}
	metrics.CurrencyCacheMisses.WithLabelValues(r.chain).Inc()

	if r.store != nil {
		if s, ok, err := r.store.GetSymbol(ctx, denom); err == nil && ok {
			r.symbols.Set(denom, s)
			return s, nil
		}
	}

	s, err := r.next.Symbol(ctx, denom)
	if err != nil || s == "" {
		metrics.CurrencyLookupFailures.WithLabelValues(r.chain).Inc()
		r.logger.Warn("symbol lookup failed, using raw denom", "denom", denom, "error", err)
		s = denom
	}
	r.symbols.Set(denom, s)
	if r.store != nil {
		if err := r.store.SetSymbol(ctx, denom, s); err != nil {
			r.logger.Warn("symbol store write failed", "denom", denom, "error", err)
		}
	}
	return s, nil
}

// Decimals resolves a denom's decimal exponent, degrading to 6 (the most
// common cosmos exponent) on failure.
func (r *CachedResolver) Decimals(ctx context.Context, denom string) (int32, error) {
	if d, ok := r.decimals.Get(denom); ok {
		metrics.CurrencyCacheHits.WithLabelValues(r.chain).Inc()
		return d, nil
	}
	metrics.CurrencyCacheMisses.WithLabelValues(r.chain).Inc()

	d, err := r.next.Decimals(ctx, denom)
	if err != nil {
		metrics.CurrencyLookupFailures.WithLabelValues(r.chain).Inc()
		r.logger.Warn("decimals lookup failed, assuming 6", "denom", denom, "error", err)
		d = 6
	}
	r.decimals.Set(denom, d)
	return d, nil
}

// StaticResolver resolves from a fixed table. Used for native denoms and
// in tests.
type StaticResolver struct {
	Symbols   map[string]string
	Exponents map[string]int32
}

func (s *StaticResolver) Symbol(_ context.Context, denom string) (string, error) {
	if sym, ok := s.Symbols[denom]; ok {
		return sym, nil
	}
	return "", fmt.Errorf("unknown denom %q", denom)
}

func (s *StaticResolver) Decimals(_ context.Context, denom string) (int32, error) {
	if d, ok := s.Exponents[denom]; ok {
		return d, nil
	}
	return 0, fmt.Errorf("unknown denom %q", denom)
}

// NewChainResolver builds a StaticResolver from a chain's native denom
// and its alias table. Aliased denoms share the native exponent unless
// resolved elsewhere.
func NewChainResolver(nativeDenom, nativeSymbol string, nativeDecimals int32, aliases map[string]string) *StaticResolver {
	r := &StaticResolver{
		Symbols:   map[string]string{},
		Exponents: map[string]int32{},
	}
	if nativeDenom != "" {
		r.Symbols[nativeDenom] = nativeSymbol
		r.Exponents[nativeDenom] = nativeDecimals
	}
	for denom, symbol := range aliases {
		r.Symbols[denom] = symbol
		r.Exponents[denom] = nativeDecimals
	}
	return r
}

// HumanAmount converts a raw base-unit amount string into human-readable
// units by shifting the decimal point left by exponent.
func HumanAmount(raw string, exponent int32) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", raw, err)
	}
	return d.Shift(-exponent), nil
}
