package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Row is one canonical accounting entry, the wire contract with the
// exporters. Exactly one row per transaction carries a non-empty fee; the
// emitter enforces that regardless of which handler produced the rows.
type Row struct {
	Timestamp        *time.Time
	TxType           TxType
	ReceivedAmount   decimal.Decimal
	ReceivedCurrency string
	SentAmount       decimal.Decimal
	SentCurrency     string
	Fee              decimal.Decimal
	FeeCurrency      string
	Exchange         string
	WalletAddress    string
	TxID             string
	URL              string
	Comment          string

	// SortIndex is the only field mutable after construction: handlers
	// that must force a sub-order within a message (a deposit row before
	// its paired borrow row) set it; the emitter stable-sorts each
	// ingested batch by it.
	SortIndex int
}

// HasFee reports whether this row carries the transaction fee.
func (r *Row) HasFee() bool {
	return r.FeeCurrency != "" || !r.Fee.IsZero()
}

// AttachFee sets the fee fields on this row.
func (r *Row) AttachFee(amount decimal.Decimal, currency string) {
	r.Fee = amount
	r.FeeCurrency = currency
}

// ClearFee empties the fee fields on this row.
func (r *Row) ClearFee() {
	r.Fee = decimal.Zero
	r.FeeCurrency = ""
}
