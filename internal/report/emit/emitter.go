// Package emit accumulates handler output into the canonical row list,
// enforcing the single-fee-per-transaction invariant as a side effect of
// ingestion.
package emit

import (
	"log/slog"
	"sort"

	"github.com/emperorhan/taxindexer/internal/domain/model"
	"github.com/emperorhan/taxindexer/internal/metrics"
)

// Emitter collects rows in the order handlers produce them. The first row
// ingested for a transaction (message index 0's first row) carries the
// transaction fee; fee fields on every later row of the same transaction
// are forced empty, regardless of which handler produced them. No row is
// ever discarded.
type Emitter struct {
	chain   model.Chain
	rows    []model.Row
	feeDone map[string]bool
	logger  *slog.Logger
}

func NewEmitter(chain model.Chain, logger *slog.Logger) *Emitter {
	return &Emitter{
		chain:   chain,
		feeDone: make(map[string]bool),
		logger:  logger.With("component", "emitter"),
	}
}

// Ingest appends one handler's output batch. The batch is stable-sorted by
// SortIndex first, so handlers can force a sub-order within a message
// without affecting ordering across messages.
func (e *Emitter) Ingest(tc *model.TransactionContext, rows ...model.Row) {
	if len(rows) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].SortIndex < rows[j].SortIndex
	})

	for _, row := range rows {
		if !e.feeDone[tc.ID] && tc.HasFee() {
			row.AttachFee(tc.FeeAmount, tc.FeeCurrency)
			e.feeDone[tc.ID] = true
		} else {
			row.ClearFee()
		}
		metrics.RowsEmitted.WithLabelValues(e.chain.String(), row.TxType.String()).Inc()
		e.rows = append(e.rows, row)
	}
}

// Rows returns the accumulated rows in emission order.
func (e *Emitter) Rows() []model.Row {
	return e.rows
}

// Len returns the number of accumulated rows.
func (e *Emitter) Len() int {
	return len(e.rows)
}
