// Package handlers holds the built-in interpretation catalog. Every
// handler works from the message's net transfer set and returns
// Unhandled() when the evidence does not fit its shape, leaving the
// decision to the dispatcher's fallback.
package handlers

import (
	"github.com/emperorhan/taxindexer/internal/domain/model"
	"github.com/emperorhan/taxindexer/internal/report/dispatch"
	"github.com/emperorhan/taxindexer/internal/report/emit"
)

// Send interprets plain value transfers: bank sends, multisends, IBC
// packet receipts and the Algorand pay/axfer families. One row per net
// leg, direction-tagged.
func Send() dispatch.Handler {
	return dispatch.NewHandlerFunc("send", func(tc *model.TransactionContext, mc *model.MessageContext) (dispatch.Result, error) {
		if len(mc.NetIn) == 0 && len(mc.NetOut) == 0 {
			// The wallet was not a party to this leg (e.g. a multisend
			// between third parties sharing the transaction).
			return dispatch.Handled(emit.Noop(tc, mc.Index, "no wallet movement")), nil
		}
		rows := make([]model.Row, 0, len(mc.NetIn)+len(mc.NetOut))
		for _, t := range mc.NetIn {
			rows = append(rows, emit.TransferIn(tc, mc.Index, t))
		}
		for _, t := range mc.NetOut {
			rows = append(rows, emit.TransferOut(tc, mc.Index, t))
		}
		return dispatch.Handled(rows...), nil
	})
}

// Noop interprets messages with no economic effect (client updates,
// acknowledgements, governance votes).
func Noop(comment string) dispatch.Handler {
	return dispatch.NewHandlerFunc("noop", func(tc *model.TransactionContext, mc *model.MessageContext) (dispatch.Result, error) {
		return dispatch.Handled(emit.Noop(tc, mc.Index, comment)), nil
	})
}
