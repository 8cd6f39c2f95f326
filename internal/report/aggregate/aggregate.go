// Package aggregate computes the net transfer set of a message: it cancels
// pass-through legs, sums repeated legs of the same currency and optionally
// reclassifies negligible outbound native-currency legs as fee. Given the
// same gross input the net output is identical regardless of processing
// order.
package aggregate

import (
	"sort"

	"github.com/emperorhan/taxindexer/internal/domain/model"
	"github.com/shopspring/decimal"
)

// Options carries the chain-specific netting policy.
type Options struct {
	// NativeCurrency and FeeEpsilon drive fee absorption: outbound legs
	// in the native currency with amounts at or below the epsilon are
	// reclassified as fee instead of transfers. A zero epsilon disables
	// absorption. Thresholds are per-chain configuration constants.
	NativeCurrency string
	FeeEpsilon     decimal.Decimal
}

// Result is the outcome of netting one message's gross transfers.
type Result struct {
	In  []model.Transfer
	Out []model.Transfer
	// FeeAbsorbed holds outbound legs reclassified as fee. Chains that do
	// not report gas as a separate field recover it from here.
	FeeAbsorbed []model.Transfer
}

// Net derives the net transfer set from the gross inbound and outbound
// legs. Steps, in order: fee absorption, exact-value pass-through
// cancellation, per-currency aggregation, deterministic ordering. The
// input slices are not mutated.
func Net(in, out []model.Transfer, opts Options) Result {
	var res Result

	out, res.FeeAbsorbed = absorbFee(out, opts)

	keptIn, keptOut := cancel(in, out)

	res.In = combine(keptIn)
	res.Out = combine(keptOut)
	return res
}

// absorbFee splits negligible native-currency outbound legs off as fee.
// Runs before cancellation so a dust leg never cancels a real inbound leg.
func absorbFee(out []model.Transfer, opts Options) (kept, absorbed []model.Transfer) {
	if opts.FeeEpsilon.IsZero() || opts.NativeCurrency == "" {
		return out, nil
	}
	for _, t := range out {
		if t.Currency == opts.NativeCurrency && t.Amount.LessThanOrEqual(opts.FeeEpsilon) {
			absorbed = append(absorbed, t)
			continue
		}
		kept = append(kept, t)
	}
	return kept, absorbed
}

// cancel removes legs present in both sets with an exact (amount,
// currency) match, one outbound occurrence per inbound occurrence.
// Partial overlaps of the same currency are real flows in both directions
// and are left alone.
func cancel(in, out []model.Transfer) (keptIn, keptOut []model.Transfer) {
	keptOut = append(keptOut, out...)
	for _, leg := range in {
		var removed bool
		keptOut, removed = model.RemoveLeg(keptOut, leg)
		if removed {
			continue
		}
		keptIn = append(keptIn, leg)
	}
	return keptIn, keptOut
}

// combine sums legs per currency and orders the result bytewise by
// currency. Source and destination are dropped when multiple legs merge;
// a lone leg keeps its endpoints.
func combine(ts []model.Transfer) []model.Transfer {
	if len(ts) == 0 {
		return nil
	}
	sums := make(map[string]decimal.Decimal, len(ts))
	counts := make(map[string]int, len(ts))
	single := make(map[string]model.Transfer, len(ts))
	for _, t := range ts {
		sums[t.Currency] = sums[t.Currency].Add(t.Amount)
		counts[t.Currency]++
		single[t.Currency] = t
	}

	currencies := make([]string, 0, len(sums))
	for c := range sums {
		currencies = append(currencies, c)
	}
	sort.Strings(currencies)

	out := make([]model.Transfer, 0, len(currencies))
	for _, c := range currencies {
		t := model.Transfer{Amount: sums[c], Currency: c}
		if counts[c] == 1 {
			t.Source = single[c].Source
			t.Destination = single[c].Destination
		}
		out = append(out, t)
	}
	return out
}

// ExtractClaims removes the message's recognized reward legs from its
// gross inbound set, returning the legs actually removed. Removal is
// keyed by exact value match, so re-invocation cannot double-count: a leg
// already extracted no longer matches anything. Must run before Net.
func ExtractClaims(mc *model.MessageContext) []model.Transfer {
	var claimed []model.Transfer
	for _, leg := range mc.RewardClaims {
		var removed bool
		mc.TransfersIn, removed = model.RemoveLeg(mc.TransfersIn, leg)
		if removed {
			claimed = append(claimed, leg)
		}
	}
	return claimed
}
