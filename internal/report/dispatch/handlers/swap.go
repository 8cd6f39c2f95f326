package handlers

import (
	"github.com/emperorhan/taxindexer/internal/domain/model"
	"github.com/emperorhan/taxindexer/internal/report/dispatch"
	"github.com/emperorhan/taxindexer/internal/report/emit"
)

// Swap interprets one-for-one trades (pool swaps, market swaps, wasm swap
// actions). Multi-hop routes net down to a single pair because the
// intermediate pass-through legs cancel; anything else is not a shape this
// handler understands.
func Swap() dispatch.Handler {
	return dispatch.NewHandlerFunc("swap", func(tc *model.TransactionContext, mc *model.MessageContext) (dispatch.Result, error) {
		if len(mc.NetIn) != 1 || len(mc.NetOut) != 1 {
			return dispatch.Unhandled(), nil
		}
		return dispatch.Handled(emit.Trade(tc, mc.Index, mc.NetIn[0], mc.NetOut[0])), nil
	})
}

// Airdrop interprets airdrop claims: every net inbound leg is an airdrop.
func Airdrop() dispatch.Handler {
	return dispatch.NewHandlerFunc("airdrop", func(tc *model.TransactionContext, mc *model.MessageContext) (dispatch.Result, error) {
		if len(mc.NetIn) == 0 {
			return dispatch.Unhandled(), nil
		}
		rows := make([]model.Row, 0, len(mc.NetIn))
		for _, t := range mc.NetIn {
			rows = append(rows, emit.Airdrop(tc, mc.Index, t))
		}
		return dispatch.Handled(rows...), nil
	})
}
