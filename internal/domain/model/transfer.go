package model

import (
	"github.com/shopspring/decimal"
)

// Transfer is a single directional movement of value attributed to a
// message. Amount is always non-negative and in human-readable units
// (already divided by the currency's decimal exponent). Source and
// Destination are populated only by chain families that report them.
type Transfer struct {
	Amount      decimal.Decimal
	Currency    string
	Source      string
	Destination string
}

// SameLeg reports whether two transfers carry the same amount of the same
// currency. Pass-through cancellation matches on value, not on endpoints.
func (t Transfer) SameLeg(other Transfer) bool {
	return t.Currency == other.Currency && t.Amount.Equal(other.Amount)
}

// RemoveLeg removes the first transfer in ts matching leg by value and
// returns the shortened slice. The second return is false when no match
// was found. Removing at most one occurrence keeps repeated application
// idempotent for an already-removed leg.
func RemoveLeg(ts []Transfer, leg Transfer) ([]Transfer, bool) {
	for i, t := range ts {
		if t.SameLeg(leg) {
			out := make([]Transfer, 0, len(ts)-1)
			out = append(out, ts[:i]...)
			out = append(out, ts[i+1:]...)
			return out, true
		}
	}
	return ts, false
}
