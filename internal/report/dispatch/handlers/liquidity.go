package handlers

import (
	"github.com/emperorhan/taxindexer/internal/domain/model"
	"github.com/emperorhan/taxindexer/internal/report/dispatch"
	"github.com/emperorhan/taxindexer/internal/report/emit"
	"github.com/shopspring/decimal"
)

// ProvideLiquidity interprets liquidity adds: the outbound legs are the
// deposit, the single inbound leg (when the pool mints one) is the pool
// share, split evenly across the deposit rows. Rows are sub-ordered so
// the deposits stay adjacent and deterministic.
func ProvideLiquidity() dispatch.Handler {
	return dispatch.NewHandlerFunc("provide_liquidity", func(tc *model.TransactionContext, mc *model.MessageContext) (dispatch.Result, error) {
		if len(mc.NetOut) == 0 || len(mc.NetIn) > 1 {
			return dispatch.Unhandled(), nil
		}

		share := splitShare(mc.NetIn, len(mc.NetOut))
		rows := make([]model.Row, 0, len(mc.NetOut))
		for i, sent := range mc.NetOut {
			var received *model.Transfer
			if share != nil {
				received = &model.Transfer{Amount: share.Amount, Currency: share.Currency}
			}
			row := emit.LPDeposit(tc, mc.Index, sent, received)
			row.SortIndex = i
			rows = append(rows, row)
		}
		return dispatch.Handled(rows...), nil
	})
}

// WithdrawLiquidity interprets liquidity removals: the inbound legs are
// the withdrawal, the single outbound leg the burned pool share.
func WithdrawLiquidity() dispatch.Handler {
	return dispatch.NewHandlerFunc("withdraw_liquidity", func(tc *model.TransactionContext, mc *model.MessageContext) (dispatch.Result, error) {
		if len(mc.NetIn) == 0 || len(mc.NetOut) > 1 {
			return dispatch.Unhandled(), nil
		}

		share := splitShare(mc.NetOut, len(mc.NetIn))
		rows := make([]model.Row, 0, len(mc.NetIn))
		for i, received := range mc.NetIn {
			var sent *model.Transfer
			if share != nil {
				sent = &model.Transfer{Amount: share.Amount, Currency: share.Currency}
			}
			row := emit.LPWithdraw(tc, mc.Index, received, sent)
			row.SortIndex = i
			rows = append(rows, row)
		}
		return dispatch.Handled(rows...), nil
	})
}

// splitShare divides a lone pool-share leg evenly across n rows.
func splitShare(legs []model.Transfer, n int) *model.Transfer {
	if len(legs) != 1 || n == 0 {
		return nil
	}
	return &model.Transfer{
		Amount:   legs[0].Amount.Div(decimal.NewFromInt(int64(n))),
		Currency: legs[0].Currency,
	}
}
