// Package report orchestrates one wallet report run: scan the raw
// history, normalize, dispatch into rows, export. The run is sequential
// by design; transaction order must be preserved end to end.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/emperorhan/taxindexer/internal/domain/model"
	"github.com/emperorhan/taxindexer/internal/errcount"
	"github.com/emperorhan/taxindexer/internal/progress"
	"github.com/emperorhan/taxindexer/internal/report/dispatch"
	"github.com/emperorhan/taxindexer/internal/report/emit"
	"github.com/emperorhan/taxindexer/internal/report/export"
	"github.com/emperorhan/taxindexer/internal/report/normalize"
	"github.com/emperorhan/taxindexer/internal/source"
)

// Summary is the outcome of one report run.
type Summary struct {
	Transactions int
	Messages     int
	Rows         int
	Errors       map[string]int
}

// Runner wires one chain's scan/normalize/dispatch/export path.
type Runner struct {
	chain      model.Chain
	wallet     string
	scanners   []*source.Scanner
	normalizer normalize.Normalizer
	dispatcher *dispatch.Dispatcher
	exporter   export.Exporter
	errs       *errcount.Counter
	progress   progress.Sink
	logger     *slog.Logger
	tracer     trace.Tracer
}

func NewRunner(
	chain model.Chain,
	wallet string,
	scanners []*source.Scanner,
	normalizer normalize.Normalizer,
	dispatcher *dispatch.Dispatcher,
	exporter export.Exporter,
	errs *errcount.Counter,
	sink progress.Sink,
	logger *slog.Logger,
) *Runner {
	if sink == nil {
		sink = progress.NopSink{}
	}
	return &Runner{
		chain:      chain,
		wallet:     wallet,
		scanners:   scanners,
		normalizer: normalizer,
		dispatcher: dispatcher,
		exporter:   exporter,
		errs:       errs,
		progress:   sink,
		logger:     logger.With("component", "report", "chain", chain),
		tracer:     otel.Tracer("taxindexer/report"),
	}
}

// Run executes the full report. Normalization failures are counted and
// skipped; dispatch errors only surface in debug mode; an export failure
// is fatal because the report would otherwise silently not exist.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	ctx, span := r.tracer.Start(ctx, "report.run", trace.WithAttributes(
		attribute.String("chain", r.chain.String()),
		attribute.String("wallet", r.wallet),
	))
	defer span.End()

	raw, err := r.scan(ctx)
	if err != nil {
		return Summary{}, err
	}
	r.logger.Info("scan complete", "transactions", len(raw))

	em := emit.NewEmitter(r.chain, r.logger)
	seen := make(map[string]bool, len(raw))
	summary := Summary{}

	for _, rawTx := range raw {
		tc, msgs, err := r.normalizer.Normalize(ctx, rawTx)
		if err != nil {
			r.errs.Increment("normalize", "")
			r.logger.Warn("skipping unreadable transaction", "error", err)
			continue
		}
		// Bidirectional scans (sender + recipient queries) return shared
		// transactions twice.
		if seen[tc.ID] {
			continue
		}
		seen[tc.ID] = true

		if err := r.dispatcher.ProcessTransaction(em, tc, msgs); err != nil {
			return Summary{}, fmt.Errorf("dispatch %s: %w", tc.ID, err)
		}
		summary.Transactions++
		summary.Messages += len(msgs)
		r.progress.TransactionProcessed(summary.Transactions, summary.Messages)
	}

	rows := em.Rows()
	summary.Rows = len(rows)

	if r.exporter != nil {
		_, exportSpan := r.tracer.Start(ctx, "report.export")
		err := r.exporter.Export(ctx, rows)
		exportSpan.End()
		if err != nil {
			return Summary{}, fmt.Errorf("export: %w", err)
		}
	}

	summary.Errors = r.errs.Summary(r.logger, r.chain.String(), r.wallet)
	r.logger.Info("report complete",
		"transactions", summary.Transactions,
		"messages", summary.Messages,
		"rows", summary.Rows,
		"error_kinds", len(summary.Errors),
	)
	return summary, nil
}

func (r *Runner) scan(ctx context.Context) ([]json.RawMessage, error) {
	ctx, span := r.tracer.Start(ctx, "report.scan")
	defer span.End()

	var all []json.RawMessage
	for i, s := range r.scanners {
		txs, err := s.Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan source %d: %w", i, err)
		}
		all = append(all, txs...)
	}
	return all, nil
}
