package handlers

import (
	"github.com/emperorhan/taxindexer/internal/report/dispatch"
)

// Default builds the static registration table consulted by the
// dispatcher. Everything is registered here, in one place, at process
// start; there is no runtime handler discovery. Contract-execution
// messages are deliberately not registered by message type so that
// lookup falls through to the contract-address registry.
func Default() *dispatch.Registry {
	r := dispatch.NewRegistry()

	send := Send()
	for _, msgType := range []string{
		"MsgSend",
		"MsgMultiSend",
		"MsgTransfer", // ibc-transfer
		"MsgRecvPacket",
		"pay",      // algorand payment
		"axfer",    // algorand asset transfer
		"transfer", // solana one-directional balance change
	} {
		r.MessageType(msgType, send)
	}

	relay := Noop("ibc relay")
	for _, msgType := range []string{
		"MsgUpdateClient",
		"MsgAcknowledgement",
		"MsgTimeout",
	} {
		r.MessageType(msgType, relay)
	}
	r.MessageType("MsgVote", Noop("governance vote"))

	delegate := Delegate()
	for _, msgType := range []string{
		"MsgDelegate",
		"MsgUndelegate",
		"MsgBeginRedelegate",
	} {
		r.MessageType(msgType, delegate)
	}
	reward := WithdrawReward()
	r.MessageType("MsgWithdrawDelegatorReward", reward)
	r.MessageType("MsgWithdrawDelegationReward", reward) // pre-v0.40 naming
	r.MessageType("MsgWithdrawValidatorCommission", reward)

	swap := Swap()
	for _, msgType := range []string{
		"MsgSwapExactAmountIn", // osmosis gamm
		"MsgSwapExactAmountOut",
		"MsgSwap", // terra market
		"MsgSwapSend",
	} {
		r.MessageType(msgType, swap)
	}
	r.MessageType("MsgJoinPool", ProvideLiquidity())
	r.MessageType("MsgExitPool", WithdrawLiquidity())

	return r
}

// ContractSpec binds one contract address and sub-action to a named
// built-in interpretation. Protocol catalogs (which address is which
// protocol) live outside the core and are registered through this.
type ContractSpec struct {
	Address string
	Action  string
	Kind    string // "swap", "provide_liquidity", "withdraw_liquidity", "airdrop", "transfer"
}

// RegisterContracts adds contract-address bindings to the registry.
// Unknown kinds are skipped: a bad catalog entry must not take down the
// run, the affected contracts simply degrade to the fallback.
func RegisterContracts(r *dispatch.Registry, specs []ContractSpec) {
	for _, s := range specs {
		var h dispatch.Handler
		switch s.Kind {
		case "swap":
			h = Swap()
		case "provide_liquidity":
			h = ProvideLiquidity()
		case "withdraw_liquidity":
			h = WithdrawLiquidity()
		case "airdrop":
			h = Airdrop()
		case "transfer":
			h = Send()
		default:
			continue
		}
		r.Contract(s.Address, s.Action, h)
	}
}
