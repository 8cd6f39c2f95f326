package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionContext carries the chain-agnostic metadata of one raw
// transaction. It is created once by a chain normalizer and lives until
// every message of the transaction has been dispatched. Handlers may
// enrich Comment and SourceURL; everything else is read-only to them.
type TransactionContext struct {
	Chain         Chain
	ID            string
	Timestamp     *time.Time // nil for malformed ancient data
	FeeAmount     decimal.Decimal
	FeeCurrency   string
	WalletAddress string
	IsFailed      bool
	SourceURL     string
	Comment       string
	Memo          string

	// MessageCount is the number of messages the normalizer produced for
	// this transaction. Message-scoped row ids are composite only when
	// the transaction carries more than one message.
	MessageCount int
}

// RowID returns the id written into rows produced for the message at the
// given index: "{tx_id}-{index}" for multi-message transactions, the bare
// transaction id otherwise.
func (tc *TransactionContext) RowID(index int) string {
	if tc.MessageCount > 1 {
		return fmt.Sprintf("%s-%d", tc.ID, index)
	}
	return tc.ID
}

// HasFee reports whether the chain charged a fee for this transaction.
func (tc *TransactionContext) HasFee() bool {
	return tc.FeeAmount.IsPositive()
}

// LogAttribute is one key/value pair of an emitted protocol event.
type LogAttribute struct {
	Key   string
	Value string
}

// LogEvent is one protocol event emitted for a message: a type tag plus an
// ordered attribute list. Cosmos-family chains flatten repeated tuples into
// a single attribute list, so extraction walks attributes in fixed-size
// groups (see GroupAttributes).
type LogEvent struct {
	Type       string
	Attributes []LogAttribute
}

// Value returns the value of the first attribute with the given key, or ""
// when absent.
func (e LogEvent) Value(key string) string {
	for _, a := range e.Attributes {
		if a.Key == key {
			return a.Value
		}
	}
	return ""
}

// GroupAttributes splits the attribute list into consecutive groups of the
// given size. A trailing partial group is returned as-is rather than
// dropped, so callers can decide how to treat short groups.
func (e LogEvent) GroupAttributes(size int) [][]LogAttribute {
	if size <= 0 || len(e.Attributes) == 0 {
		return nil
	}
	var groups [][]LogAttribute
	for i := 0; i < len(e.Attributes); i += size {
		end := i + size
		if end > len(e.Attributes) {
			end = len(e.Attributes)
		}
		groups = append(groups, e.Attributes[i:end])
	}
	return groups
}

// MessageContext is one sub-message of a transaction. Index is unique and
// strictly increasing within a transaction. NetIn/NetOut are derived from
// TransfersIn/TransfersOut by the aggregator before dispatch and are
// read-only to handlers, except for reward claim extraction which removes
// recognized legs before aggregation runs.
type MessageContext struct {
	Index           int
	MessageType     string
	RawPayload      json.RawMessage
	ContractAddress string
	LogEvents       []LogEvent

	TransfersIn  []Transfer
	TransfersOut []Transfer
	NetIn        []Transfer
	NetOut       []Transfer

	// RewardClaims holds reward legs recognized from claim marker events
	// by the normalizer. The aggregator's claim-extraction step removes
	// matching legs from TransfersIn exactly once and emits them as
	// STAKING_REWARD rows before the main classification proceeds.
	RewardClaims []Transfer
}
