// Package dispatch maps message contexts to handlers and guarantees that
// every message degrades to rows: handler absence, handler refusal and
// handler failure all fall back to generic transfer detection.
package dispatch

import (
	"fmt"
	"log/slog"

	"github.com/emperorhan/taxindexer/internal/domain/model"
	"github.com/emperorhan/taxindexer/internal/errcount"
	"github.com/emperorhan/taxindexer/internal/metrics"
	"github.com/emperorhan/taxindexer/internal/report/aggregate"
	"github.com/emperorhan/taxindexer/internal/report/emit"
)

// Dispatcher is stateless per call: one invocation per message, in index
// order, within one transaction at a time.
type Dispatcher struct {
	chain    model.Chain
	registry *Registry
	errs     *errcount.Counter
	netOpts  aggregate.Options
	debug    bool
	logger   *slog.Logger
}

type Option func(*Dispatcher)

// WithDebug re-raises handler failures instead of substituting the
// fallback. Development only; never enabled by runtime decision.
func WithDebug(debug bool) Option {
	return func(d *Dispatcher) { d.debug = debug }
}

func New(chain model.Chain, registry *Registry, errs *errcount.Counter, netOpts aggregate.Options, logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		chain:    chain,
		registry: registry,
		errs:     errs,
		netOpts:  netOpts,
		logger:   logger.With("component", "dispatcher"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ProcessTransaction runs aggregation and dispatch for every message of
// one transaction. Failed transactions never reach per-message handlers:
// a single fee-spend row is emitted when a fee was charged.
func (d *Dispatcher) ProcessTransaction(em *emit.Emitter, tc *model.TransactionContext, msgs []*model.MessageContext) error {
	if tc.IsFailed {
		if tc.HasFee() {
			em.Ingest(tc, emit.SpendFee(tc, "fee for failed transaction"))
		}
		return nil
	}

	for _, mc := range msgs {
		if err := d.processMessage(em, tc, mc); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) processMessage(em *emit.Emitter, tc *model.TransactionContext, mc *model.MessageContext) error {
	// Claim extraction runs once, before cancellation: recognized reward
	// legs become STAKING_REWARD rows and leave the inbound set.
	for _, claim := range aggregate.ExtractClaims(mc) {
		em.Ingest(tc, emit.StakingReward(tc, mc.Index, claim))
	}

	res := aggregate.Net(mc.TransfersIn, mc.TransfersOut, d.netOpts)
	mc.NetIn, mc.NetOut = res.In, res.Out

	// Chains without a separate gas field recover the fee from absorbed
	// dust legs.
	if len(res.FeeAbsorbed) > 0 && !tc.HasFee() {
		sum := res.FeeAbsorbed[0].Amount
		for _, t := range res.FeeAbsorbed[1:] {
			sum = sum.Add(t.Amount)
		}
		tc.FeeAmount = sum
		tc.FeeCurrency = d.netOpts.NativeCurrency
	}

	h, ok := d.registry.Lookup(mc)
	if !ok {
		d.fallback(em, tc, mc)
		return nil
	}

	result, err := d.invoke(h, tc, mc)
	if err != nil {
		if d.debug {
			return fmt.Errorf("handler %s on %s: %w", h.Name(), tc.RowID(mc.Index), err)
		}
		d.errs.Increment("handler/"+h.Name(), tc.ID)
		metrics.DispatchHandlerErrors.WithLabelValues(d.chain.String(), h.Name()).Inc()
		d.logger.Warn("handler failed, substituting fallback",
			"handler", h.Name(),
			"tx_id", tc.ID,
			"msg_index", mc.Index,
			"error", err,
		)
		d.fallback(em, tc, mc)
		return nil
	}
	if !result.handled {
		d.fallback(em, tc, mc)
		return nil
	}

	metrics.DispatchHandled.WithLabelValues(d.chain.String(), h.Name()).Inc()
	em.Ingest(tc, result.rows...)
	return nil
}

// invoke runs a handler with panic isolation. A panicking handler is
// indistinguishable from an erroring one to the caller.
func (d *Dispatcher) invoke(h Handler, tc *model.TransactionContext, mc *model.MessageContext) (result Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = Result{}
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h.Handle(tc, mc)
}

func (d *Dispatcher) fallback(em *emit.Emitter, tc *model.TransactionContext, mc *model.MessageContext) {
	metrics.DispatchFallback.WithLabelValues(d.chain.String()).Inc()
	em.Ingest(tc, DetectTransfers(tc, mc)...)
}
