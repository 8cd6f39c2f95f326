// Package source fetches raw wallet transactions page by page. Sources
// only fetch; interpretation belongs to the normalizers, so everything
// crosses this boundary as opaque JSON.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/emperorhan/taxindexer/internal/circuitbreaker"
	"github.com/emperorhan/taxindexer/internal/metrics"
	"github.com/emperorhan/taxindexer/internal/progress"
	"github.com/emperorhan/taxindexer/internal/ratelimit"
)

// Page is one batch of raw transactions plus the continuation token for
// the next batch. An empty NextToken ends the scan.
type Page struct {
	Transactions []json.RawMessage
	NextToken    string
}

// RawSource fetches one page of a wallet's transaction history. The
// first call passes an empty token.
type RawSource interface {
	FetchPage(ctx context.Context, pageToken string) (Page, error)
}

// Scanner drives a RawSource to exhaustion under the rate limiter,
// retrying transient fetch failures and reporting per-page progress. A
// circuit breaker stops the scan from hammering an upstream that is
// down outright.
type Scanner struct {
	chain       string
	source      RawSource
	limiter     *ratelimit.Limiter
	breaker     *circuitbreaker.Breaker
	progress    progress.Sink
	maxPages    int
	maxAttempts int
	backoff     time.Duration
}

type ScannerOption func(*Scanner)

// WithMaxPages caps the scan. Zero means unbounded.
func WithMaxPages(n int) ScannerOption {
	return func(s *Scanner) { s.maxPages = n }
}

// WithRetry overrides the per-page retry budget and base backoff.
func WithRetry(maxAttempts int, backoff time.Duration) ScannerOption {
	return func(s *Scanner) {
		s.maxAttempts = maxAttempts
		s.backoff = backoff
	}
}

func NewScanner(chain string, src RawSource, limiter *ratelimit.Limiter, sink progress.Sink, opts ...ScannerOption) *Scanner {
	s := &Scanner{
		chain:       chain,
		source:      src,
		limiter:     limiter,
		breaker:     circuitbreaker.New(circuitbreaker.Config{}),
		progress:    sink,
		maxAttempts: 3,
		backoff:     2 * time.Second,
	}
	if s.progress == nil {
		s.progress = progress.NopSink{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan fetches every page and returns the raw transactions in fetch
// order. A fetch failure aborts the scan; partial results are not
// returned because a report over a truncated history is misleading.
func (s *Scanner) Scan(ctx context.Context) ([]json.RawMessage, error) {
	var all []json.RawMessage
	token := ""
	for page := 1; ; page++ {
		if s.maxPages > 0 && page > s.maxPages {
			return nil, fmt.Errorf("scan exceeded %d pages", s.maxPages)
		}
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limit wait: %w", err)
			}
		}

		p, err := s.fetchPage(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("fetch page %d: %w", page, err)
		}
		metrics.SourcePagesFetched.WithLabelValues(s.chain).Inc()
		s.progress.PageFetched(page, len(p.Transactions))

		all = append(all, p.Transactions...)
		if p.NextToken == "" {
			return all, nil
		}
		token = p.NextToken
	}
}

// fetchPage fetches one page with transient-error retries behind the
// circuit breaker. Terminal errors and exhausted budgets surface the
// last fetch error.
func (s *Scanner) fetchPage(ctx context.Context, token string) (Page, error) {
	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err := s.breaker.Allow(); err != nil {
			return Page{}, err
		}

		start := time.Now()
		p, err := s.source.FetchPage(ctx, token)
		metrics.SourceFetchLatency.WithLabelValues(s.chain).Observe(time.Since(start).Seconds())
		if err == nil {
			s.breaker.RecordSuccess()
			return p, nil
		}
		s.breaker.RecordFailure()
		lastErr = err

		if classifyFetchError(err) != classTransient || attempt == s.maxAttempts {
			break
		}
		select {
		case <-time.After(s.backoff * time.Duration(attempt)):
		case <-ctx.Done():
			return Page{}, ctx.Err()
		}
	}
	return Page{}, lastErr
}
