package handlers

import (
	"github.com/emperorhan/taxindexer/internal/domain/model"
	"github.com/emperorhan/taxindexer/internal/report/dispatch"
	"github.com/emperorhan/taxindexer/internal/report/emit"
)

// WithdrawReward interprets explicit reward withdrawals: every net
// inbound leg is a staking reward.
func WithdrawReward() dispatch.Handler {
	return dispatch.NewHandlerFunc("withdraw_reward", func(tc *model.TransactionContext, mc *model.MessageContext) (dispatch.Result, error) {
		if len(mc.NetIn) == 0 {
			return dispatch.Handled(emit.Noop(tc, mc.Index, "no reward paid")), nil
		}
		rows := make([]model.Row, 0, len(mc.NetIn))
		for _, t := range mc.NetIn {
			rows = append(rows, emit.StakingReward(tc, mc.Index, t))
		}
		return dispatch.Handled(rows...), nil
	})
}

// Delegate interprets delegate/undelegate/redelegate messages. Principal
// movements are not taxable events; the rewards these messages auto-claim
// were already extracted by the aggregator's claim step, so any inbound
// leg still present is a reward the log markers missed.
func Delegate() dispatch.Handler {
	return dispatch.NewHandlerFunc("delegate", func(tc *model.TransactionContext, mc *model.MessageContext) (dispatch.Result, error) {
		if len(mc.NetIn) == 0 {
			return dispatch.Handled(emit.Noop(tc, mc.Index, "delegation")), nil
		}
		rows := make([]model.Row, 0, len(mc.NetIn))
		for _, t := range mc.NetIn {
			rows = append(rows, emit.StakingReward(tc, mc.Index, t))
		}
		return dispatch.Handled(rows...), nil
	})
}
