package emit

import (
	"github.com/emperorhan/taxindexer/internal/domain/model"
)

// Row constructors used by handlers. Constructors never set fee fields;
// fee attribution is the Emitter's job so the fee-once invariant holds
// independently of which handler produced the rows.

// NewRow builds a row scoped to the message at the given index, carrying
// the transaction's timestamp, wallet, explorer link and comment.
func NewRow(tc *model.TransactionContext, index int, txType model.TxType) model.Row {
	return model.Row{
		Timestamp:     tc.Timestamp,
		TxType:        txType,
		Exchange:      tc.Chain.Exchange(),
		WalletAddress: tc.WalletAddress,
		TxID:          tc.RowID(index),
		URL:           tc.SourceURL,
		Comment:       tc.Comment,
	}
}

// TransferIn builds a TRANSFER_IN row for one inbound leg.
func TransferIn(tc *model.TransactionContext, index int, t model.Transfer) model.Row {
	r := NewRow(tc, index, model.TxTypeTransferIn)
	r.ReceivedAmount = t.Amount
	r.ReceivedCurrency = t.Currency
	return r
}

// TransferOut builds a TRANSFER_OUT row for one outbound leg.
func TransferOut(tc *model.TransactionContext, index int, t model.Transfer) model.Row {
	r := NewRow(tc, index, model.TxTypeTransferOut)
	r.SentAmount = t.Amount
	r.SentCurrency = t.Currency
	return r
}

// Trade builds a TRADE row pairing one outbound leg against one inbound leg.
func Trade(tc *model.TransactionContext, index int, received, sent model.Transfer) model.Row {
	r := NewRow(tc, index, model.TxTypeTrade)
	r.ReceivedAmount = received.Amount
	r.ReceivedCurrency = received.Currency
	r.SentAmount = sent.Amount
	r.SentCurrency = sent.Currency
	return r
}

// StakingReward builds a STAKING_REWARD row for one claimed reward leg.
func StakingReward(tc *model.TransactionContext, index int, t model.Transfer) model.Row {
	r := NewRow(tc, index, model.TxTypeStakingReward)
	r.ReceivedAmount = t.Amount
	r.ReceivedCurrency = t.Currency
	return r
}

// Airdrop builds an AIRDROP row for one inbound leg.
func Airdrop(tc *model.TransactionContext, index int, t model.Transfer) model.Row {
	r := NewRow(tc, index, model.TxTypeAirdrop)
	r.ReceivedAmount = t.Amount
	r.ReceivedCurrency = t.Currency
	return r
}

// LPDeposit builds an LP_DEPOSIT row: sent is the deposited leg, received
// the pool token leg when the protocol mints one.
func LPDeposit(tc *model.TransactionContext, index int, sent model.Transfer, received *model.Transfer) model.Row {
	r := NewRow(tc, index, model.TxTypeLPDeposit)
	r.SentAmount = sent.Amount
	r.SentCurrency = sent.Currency
	if received != nil {
		r.ReceivedAmount = received.Amount
		r.ReceivedCurrency = received.Currency
	}
	return r
}

// LPWithdraw builds an LP_WITHDRAW row: received is the withdrawn leg,
// sent the burned pool token leg when present.
func LPWithdraw(tc *model.TransactionContext, index int, received model.Transfer, sent *model.Transfer) model.Row {
	r := NewRow(tc, index, model.TxTypeLPWithdraw)
	r.ReceivedAmount = received.Amount
	r.ReceivedCurrency = received.Currency
	if sent != nil {
		r.SentAmount = sent.Amount
		r.SentCurrency = sent.Currency
	}
	return r
}

// SpendFee builds the transaction-scoped SPEND_FEE row used for failed
// transactions. The fee itself is attached by the Emitter.
func SpendFee(tc *model.TransactionContext, comment string) model.Row {
	r := NewRow(tc, 0, model.TxTypeSpendFee)
	r.TxID = tc.ID
	if comment != "" {
		r.Comment = comment
	}
	return r
}

// Noop builds a NOOP row for messages with no economic effect.
func Noop(tc *model.TransactionContext, index int, comment string) model.Row {
	r := NewRow(tc, index, model.TxTypeNoop)
	if comment != "" {
		r.Comment = comment
	}
	return r
}

// Unknown builds a bare UNKNOWN row with no transfer amounts.
func Unknown(tc *model.TransactionContext, index int) model.Row {
	return NewRow(tc, index, model.TxTypeUnknown)
}

// UnknownWithTransfers builds an UNKNOWN row carrying up to one leg per
// direction, used by the fallback for legibility.
func UnknownWithTransfers(tc *model.TransactionContext, index int, received, sent *model.Transfer) model.Row {
	r := NewRow(tc, index, model.TxTypeUnknown)
	if received != nil {
		r.ReceivedAmount = received.Amount
		r.ReceivedCurrency = received.Currency
	}
	if sent != nil {
		r.SentAmount = sent.Amount
		r.SentCurrency = sent.Currency
	}
	return r
}
