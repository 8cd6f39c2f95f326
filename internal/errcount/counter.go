// Package errcount tallies classification failures for end-of-run
// diagnostics. Counts are advisory and not part of the per-transaction
// correctness contract.
package errcount

import (
	"log/slog"
	"sort"
	"sync"
)

// Counter accumulates error counts keyed by error kind, remembering which
// transactions contributed for later inspection.
type Counter struct {
	mu     sync.Mutex
	counts map[string]int
	txIDs  map[string][]string
}

func New() *Counter {
	return &Counter{
		counts: make(map[string]int),
		txIDs:  make(map[string][]string),
	}
}

// Increment records one failure of the given kind attributed to txID.
func (c *Counter) Increment(kind, txID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[kind]++
	c.txIDs[kind] = append(c.txIDs[kind], txID)
}

// Count returns the current count for one error kind.
func (c *Counter) Count(kind string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[kind]
}

// Summary returns a copy of the per-kind counts and logs them once,
// tagged with the report's ticker and wallet address.
func (c *Counter) Summary(logger *slog.Logger, ticker, walletAddress string) map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]int, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}

	kinds := make([]string, 0, len(out))
	for k := range out {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	for _, kind := range kinds {
		logger.Warn("classification errors",
			"ticker", ticker,
			"wallet", walletAddress,
			"kind", kind,
			"count", out[kind],
			"sample_tx", c.txIDs[kind][0],
		)
	}
	return out
}
