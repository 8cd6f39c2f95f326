package normalize

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/emperorhan/taxindexer/internal/config"
	"github.com/emperorhan/taxindexer/internal/currency"
	"github.com/emperorhan/taxindexer/internal/domain/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testWallet     = "osmo1testwallet"
	testAlgoWallet = "ALGOWALLETADDR"
	testSolWallet  = "SoLWaLLeTPubKey11111111111111111111111111111"
)

func testResolver(t *testing.T, chain string) currency.Resolver {
	t.Helper()
	static := &currency.StaticResolver{
		Symbols: map[string]string{
			"uosmo": "OSMO",
			"uatom": "ATOM",
			"ibc/27394FB092D2ECCD56123C74F36E4C1F926001CEADA9CA97EA622B25F41E5EB2": "ATOM",
			"12345": "USDC",
			"So11111111111111111111111111111111111111112":  "WSOL",
			"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v": "USDC",
		},
		Exponents: map[string]int32{
			"uosmo": 6,
			"uatom": 6,
			"ibc/27394FB092D2ECCD56123C74F36E4C1F926001CEADA9CA97EA622B25F41E5EB2": 6,
			"12345": 6,
		},
	}
	return currency.NewCachedResolver(static, chain, 128, 0, slog.Default())
}

func cosmosSpec(t *testing.T) config.ChainSpec {
	t.Helper()
	spec, err := config.LoadChainSpec(model.ChainOsmosis, "")
	require.NoError(t, err)
	return spec
}

const sendTxJSON = `{
  "tx_response": {
    "txhash": "ABC123",
    "code": 0,
    "timestamp": "2022-06-15T08:30:00Z",
    "logs": [
      {
        "msg_index": 0,
        "events": [
          {
            "type": "transfer",
            "attributes": [
              {"key": "recipient", "value": "osmo1testwallet"},
              {"key": "sender", "value": "osmo1other"},
              {"key": "amount", "value": "5000000uosmo"}
            ]
          }
        ]
      }
    ],
    "tx": {
      "body": {
        "messages": [{"@type": "/cosmos.bank.v1beta1.MsgSend"}],
        "memo": "rent"
      },
      "auth_info": {"fee": {"amount": [{"denom": "uosmo", "amount": "4000"}]}}
    }
  }
}`

func TestCosmosNormalizeSend(t *testing.T) {
	t.Parallel()

	n := NewCosmos(cosmosSpec(t), testWallet, testResolver(t, "osmosis"), slog.Default())
	tc, msgs, err := n.Normalize(context.Background(), json.RawMessage(sendTxJSON))
	require.NoError(t, err)

	assert.Equal(t, "ABC123", tc.ID)
	assert.Equal(t, model.ChainOsmosis, tc.Chain)
	assert.False(t, tc.IsFailed)
	assert.Equal(t, "rent", tc.Memo)
	assert.Equal(t, 1, tc.MessageCount)
	require.NotNil(t, tc.Timestamp)
	assert.Equal(t, time.Date(2022, 6, 15, 8, 30, 0, 0, time.UTC), tc.Timestamp.UTC())
	assert.True(t, tc.FeeAmount.Equal(decimal.RequireFromString("0.004")))
	assert.Equal(t, "OSMO", tc.FeeCurrency)
	assert.Contains(t, tc.SourceURL, "ABC123")

	require.Len(t, msgs, 1)
	mc := msgs[0]
	assert.Equal(t, "MsgSend", mc.MessageType)
	require.Len(t, mc.TransfersIn, 1)
	assert.True(t, mc.TransfersIn[0].Amount.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, "OSMO", mc.TransfersIn[0].Currency)
	assert.Equal(t, "osmo1other", mc.TransfersIn[0].Source)
	assert.Empty(t, mc.TransfersOut)
}

func TestCosmosNormalizeFailedTx(t *testing.T) {
	t.Parallel()

	raw := `{"tx_response": {"txhash": "FAIL1", "code": 11, "timestamp": "2022-01-01T00:00:00Z",
		"tx": {"body": {"messages": [{"@type": "/cosmos.bank.v1beta1.MsgSend"}]},
		"auth_info": {"fee": {"amount": [{"denom": "uosmo", "amount": "500"}]}}}}}`

	n := NewCosmos(cosmosSpec(t), testWallet, testResolver(t, "osmosis"), slog.Default())
	tc, msgs, err := n.Normalize(context.Background(), json.RawMessage(raw))
	require.NoError(t, err)

	assert.True(t, tc.IsFailed)
	assert.True(t, tc.HasFee())
	require.Len(t, msgs, 1)
	assert.Empty(t, msgs[0].TransfersIn)
}

func TestCosmosNormalizeMultiMessage(t *testing.T) {
	t.Parallel()

	raw := `{"tx_response": {"txhash": "MULTI", "code": 0, "timestamp": "2022-01-01T00:00:00Z",
		"logs": [
			{"msg_index": 0, "events": []},
			{"msg_index": 1, "events": [{"type": "withdraw_rewards", "attributes": [
				{"key": "amount", "value": "800000uosmo"},
				{"key": "validator", "value": "osmovaloper1x"}
			]}]}
		],
		"tx": {"body": {"messages": [
			{"@type": "/cosmos.gov.v1beta1.MsgVote"},
			{"@type": "/cosmos.distribution.v1beta1.MsgWithdrawDelegatorReward"}
		]}, "auth_info": {"fee": {"amount": []}}}}}`

	n := NewCosmos(cosmosSpec(t), testWallet, testResolver(t, "osmosis"), slog.Default())
	tc, msgs, err := n.Normalize(context.Background(), json.RawMessage(raw))
	require.NoError(t, err)

	assert.Equal(t, 2, tc.MessageCount)
	assert.False(t, tc.HasFee())
	require.Len(t, msgs, 2)
	assert.Equal(t, "MsgVote", msgs[0].MessageType)
	assert.Equal(t, "MsgWithdrawDelegatorReward", msgs[1].MessageType)
	require.Len(t, msgs[1].RewardClaims, 1)
	assert.True(t, msgs[1].RewardClaims[0].Amount.Equal(decimal.RequireFromString("0.8")))
	assert.Equal(t, "OSMO", msgs[1].RewardClaims[0].Currency)
	assert.Equal(t, "MULTI-1", tc.RowID(1))
}

func TestCosmosNormalizeGroupedTransferAttributes(t *testing.T) {
	t.Parallel()

	// One MsgMultiSend flattens two sends into a single attribute list.
	raw := `{"tx_response": {"txhash": "GRP", "code": 0, "timestamp": "2022-01-01T00:00:00Z",
		"logs": [{"msg_index": 0, "events": [{"type": "transfer", "attributes": [
			{"key": "recipient", "value": "osmo1testwallet"},
			{"key": "sender", "value": "osmo1a"},
			{"key": "amount", "value": "1000000uosmo"},
			{"key": "recipient", "value": "osmo1b"},
			{"key": "sender", "value": "osmo1testwallet"},
			{"key": "amount", "value": "2000000uatom"}
		]}]}],
		"tx": {"body": {"messages": [{"@type": "/cosmos.bank.v1beta1.MsgMultiSend"}]},
		"auth_info": {"fee": {"amount": []}}}}}`

	n := NewCosmos(cosmosSpec(t), testWallet, testResolver(t, "osmosis"), slog.Default())
	_, msgs, err := n.Normalize(context.Background(), json.RawMessage(raw))
	require.NoError(t, err)

	require.Len(t, msgs, 1)
	require.Len(t, msgs[0].TransfersIn, 1)
	require.Len(t, msgs[0].TransfersOut, 1)
	assert.Equal(t, "OSMO", msgs[0].TransfersIn[0].Currency)
	assert.Equal(t, "ATOM", msgs[0].TransfersOut[0].Currency)
}

func TestCosmosNormalizeUnparseableMessageYieldsEmptySet(t *testing.T) {
	t.Parallel()

	raw := `{"tx_response": {"txhash": "ODD", "code": 0, "timestamp": "2022-01-01T00:00:00Z",
		"tx": {"body": {"messages": [{"no_type_field": true}]},
		"auth_info": {"fee": {"amount": []}}}}}`

	n := NewCosmos(cosmosSpec(t), testWallet, testResolver(t, "osmosis"), slog.Default())
	tc, msgs, err := n.Normalize(context.Background(), json.RawMessage(raw))
	require.NoError(t, err)

	assert.Equal(t, "ODD", tc.ID)
	require.Len(t, msgs, 1)
	assert.Empty(t, msgs[0].MessageType)
	assert.Empty(t, msgs[0].TransfersIn)
	assert.Empty(t, msgs[0].TransfersOut)
}

func TestCosmosNormalizeIBCDenom(t *testing.T) {
	t.Parallel()

	raw := `{"tx_response": {"txhash": "IBC1", "code": 0, "timestamp": "2022-01-01T00:00:00Z",
		"logs": [{"msg_index": 0, "events": [{"type": "transfer", "attributes": [
			{"key": "recipient", "value": "osmo1testwallet"},
			{"key": "sender", "value": "osmo1c"},
			{"key": "amount", "value": "3000000ibc/27394FB092D2ECCD56123C74F36E4C1F926001CEADA9CA97EA622B25F41E5EB2"}
		]}]}],
		"tx": {"body": {"messages": [{"@type": "/ibc.applications.transfer.v1.MsgTransfer"}]},
		"auth_info": {"fee": {"amount": []}}}}}`

	n := NewCosmos(cosmosSpec(t), testWallet, testResolver(t, "osmosis"), slog.Default())
	_, msgs, err := n.Normalize(context.Background(), json.RawMessage(raw))
	require.NoError(t, err)

	require.Len(t, msgs, 1)
	require.Len(t, msgs[0].TransfersIn, 1)
	assert.Equal(t, "ATOM", msgs[0].TransfersIn[0].Currency)
	assert.True(t, msgs[0].TransfersIn[0].Amount.Equal(decimal.NewFromInt(3)))
}

func TestMessageTypeTail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"/cosmos.bank.v1beta1.MsgSend", "MsgSend"},
		{"/osmosis.gamm.v1beta1.MsgSwapExactAmountIn", "MsgSwapExactAmountIn"},
		{"cosmos-sdk/MsgDelegate", "MsgDelegate"},
		{"MsgVote", "MsgVote"},
		{"pay", "pay"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MessageTypeTail(tt.in), tt.in)
	}
}

func TestSplitCoin(t *testing.T) {
	t.Parallel()

	amount, denom, ok := splitCoin("5000uosmo")
	require.True(t, ok)
	assert.Equal(t, "5000", amount)
	assert.Equal(t, "uosmo", denom)

	amount, denom, ok = splitCoin("12ibc/27AB")
	require.True(t, ok)
	assert.Equal(t, "12", amount)
	assert.Equal(t, "ibc/27AB", denom)

	_, _, ok = splitCoin("uosmo")
	assert.False(t, ok)
	_, _, ok = splitCoin("5000")
	assert.False(t, ok)
	_, _, ok = splitCoin("")
	assert.False(t, ok)
}

func solanaSpec(t *testing.T) config.ChainSpec {
	t.Helper()
	spec, err := config.LoadChainSpec(model.ChainSolana, "")
	require.NoError(t, err)
	return spec
}

func TestSolanaNormalizeOutboundWithFee(t *testing.T) {
	t.Parallel()

	raw := `{
		"blockTime": 1660000000,
		"transaction": {"signatures": ["SIG1"], "message": {"accountKeys": ["` + testSolWallet + `", "OtherKey"]}},
		"meta": {"err": null, "fee": 5000,
			"preBalances": [2000005000, 0],
			"postBalances": [1000000000, 1000000000],
			"preTokenBalances": [], "postTokenBalances": []}
	}`

	n := NewSolana(solanaSpec(t), testSolWallet, testResolver(t, "solana"), slog.Default())
	tc, msgs, err := n.Normalize(context.Background(), json.RawMessage(raw))
	require.NoError(t, err)

	assert.Equal(t, "SIG1", tc.ID)
	assert.False(t, tc.IsFailed)
	assert.True(t, tc.FeeAmount.Equal(decimal.RequireFromString("0.000005")))
	assert.Equal(t, "SOL", tc.FeeCurrency)
	require.NotNil(t, tc.Timestamp)

	require.Len(t, msgs, 1)
	mc := msgs[0]
	assert.Equal(t, "transfer", mc.MessageType)
	require.Len(t, mc.TransfersOut, 1)
	// Fee is excluded from the transfer leg.
	assert.True(t, mc.TransfersOut[0].Amount.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, "SOL", mc.TransfersOut[0].Currency)
	assert.Empty(t, mc.TransfersIn)
}

func TestSolanaNormalizeFailedTx(t *testing.T) {
	t.Parallel()

	raw := `{
		"blockTime": 1660000000,
		"transaction": {"signatures": ["SIGF"], "message": {"accountKeys": ["` + testSolWallet + `"]}},
		"meta": {"err": {"InstructionError": [0, "Custom"]}, "fee": 5000,
			"preBalances": [1000005000], "postBalances": [1000000000],
			"preTokenBalances": [], "postTokenBalances": []}
	}`

	n := NewSolana(solanaSpec(t), testSolWallet, testResolver(t, "solana"), slog.Default())
	tc, _, err := n.Normalize(context.Background(), json.RawMessage(raw))
	require.NoError(t, err)

	assert.True(t, tc.IsFailed)
	assert.True(t, tc.HasFee())
}

func TestSolanaNormalizeTokenSwapShape(t *testing.T) {
	t.Parallel()

	// Wallet pays WSOL, receives USDC: mixed direction stays unclassified
	// for the dispatcher to net.
	raw := `{
		"blockTime": 1660000000,
		"transaction": {"signatures": ["SIGT"], "message": {"accountKeys": ["FeePayer", "` + testSolWallet + `"]}},
		"meta": {"err": null, "fee": 5000,
			"preBalances": [10000, 0], "postBalances": [5000, 0],
			"preTokenBalances": [
				{"accountIndex": 3, "mint": "So11111111111111111111111111111111111111112", "owner": "` + testSolWallet + `", "uiTokenAmount": {"amount": "2000000000", "decimals": 9}},
				{"accountIndex": 4, "mint": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", "owner": "` + testSolWallet + `", "uiTokenAmount": {"amount": "0", "decimals": 6}}
			],
			"postTokenBalances": [
				{"accountIndex": 3, "mint": "So11111111111111111111111111111111111111112", "owner": "` + testSolWallet + `", "uiTokenAmount": {"amount": "1000000000", "decimals": 9}},
				{"accountIndex": 4, "mint": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", "owner": "` + testSolWallet + `", "uiTokenAmount": {"amount": "30000000", "decimals": 6}}
			]}
	}`

	n := NewSolana(solanaSpec(t), testSolWallet, testResolver(t, "solana"), slog.Default())
	tc, msgs, err := n.Normalize(context.Background(), json.RawMessage(raw))
	require.NoError(t, err)

	// Wallet is not the fee payer.
	assert.False(t, tc.HasFee())

	require.Len(t, msgs, 1)
	mc := msgs[0]
	assert.Equal(t, "sol_instruction", mc.MessageType)
	require.Len(t, mc.TransfersIn, 1)
	assert.Equal(t, "USDC", mc.TransfersIn[0].Currency)
	assert.True(t, mc.TransfersIn[0].Amount.Equal(decimal.NewFromInt(30)))
	require.Len(t, mc.TransfersOut, 1)
	assert.Equal(t, "WSOL", mc.TransfersOut[0].Currency)
	assert.True(t, mc.TransfersOut[0].Amount.Equal(decimal.NewFromInt(1)))
}

func algorandSpec(t *testing.T) config.ChainSpec {
	t.Helper()
	spec, err := config.LoadChainSpec(model.ChainAlgorand, "")
	require.NoError(t, err)
	return spec
}

func TestAlgorandNormalizePayment(t *testing.T) {
	t.Parallel()

	raw := `{"id": "ALGOTX1", "round-time": 1660000000, "fee": 1000, "sender": "` + testAlgoWallet + `",
		"tx-type": "pay", "payment-transaction": {"receiver": "OTHERADDR", "amount": 2500000}}`

	n := NewAlgorand(algorandSpec(t), testAlgoWallet, testResolver(t, "algorand"), slog.Default())
	tc, msgs, err := n.Normalize(context.Background(), json.RawMessage(raw))
	require.NoError(t, err)

	assert.Equal(t, "ALGOTX1", tc.ID)
	assert.True(t, tc.FeeAmount.Equal(decimal.RequireFromString("0.001")))
	assert.Equal(t, "ALGO", tc.FeeCurrency)

	require.Len(t, msgs, 1)
	mc := msgs[0]
	assert.Equal(t, "pay", mc.MessageType)
	require.Len(t, mc.TransfersOut, 1)
	assert.True(t, mc.TransfersOut[0].Amount.Equal(decimal.RequireFromString("2.5")))
	assert.Equal(t, "ALGO", mc.TransfersOut[0].Currency)
}

func TestAlgorandNormalizeAssetTransferIn(t *testing.T) {
	t.Parallel()

	raw := `{"id": "ALGOTX2", "round-time": 1660000000, "fee": 1000, "sender": "OTHERADDR",
		"tx-type": "axfer", "asset-transfer-transaction": {"receiver": "` + testAlgoWallet + `", "amount": 7000000, "asset-id": 12345}}`

	n := NewAlgorand(algorandSpec(t), testAlgoWallet, testResolver(t, "algorand"), slog.Default())
	tc, msgs, err := n.Normalize(context.Background(), json.RawMessage(raw))
	require.NoError(t, err)

	// Fee was paid by the counterparty.
	assert.False(t, tc.HasFee())

	require.Len(t, msgs, 1)
	require.Len(t, msgs[0].TransfersIn, 1)
	assert.Equal(t, "USDC", msgs[0].TransfersIn[0].Currency)
	assert.True(t, msgs[0].TransfersIn[0].Amount.Equal(decimal.NewFromInt(7)))
}

func TestAlgorandNormalizeInnerTxns(t *testing.T) {
	t.Parallel()

	// App call whose inner transactions move value to the wallet.
	raw := `{"id": "ALGOTX3", "round-time": 1660000000, "fee": 1000, "sender": "` + testAlgoWallet + `",
		"tx-type": "appl", "inner-txns": [
			{"id": "inner1", "sender": "POOLADDR", "tx-type": "pay",
				"payment-transaction": {"receiver": "` + testAlgoWallet + `", "amount": 1500000}},
			{"id": "inner2", "sender": "` + testAlgoWallet + `", "tx-type": "axfer",
				"asset-transfer-transaction": {"receiver": "POOLADDR", "amount": 3000000, "asset-id": 12345}}
		]}`

	n := NewAlgorand(algorandSpec(t), testAlgoWallet, testResolver(t, "algorand"), slog.Default())
	_, msgs, err := n.Normalize(context.Background(), json.RawMessage(raw))
	require.NoError(t, err)

	require.Len(t, msgs, 1)
	mc := msgs[0]
	require.Len(t, mc.TransfersIn, 1)
	assert.Equal(t, "ALGO", mc.TransfersIn[0].Currency)
	require.Len(t, mc.TransfersOut, 1)
	assert.Equal(t, "USDC", mc.TransfersOut[0].Currency)
}

func TestNewSelectsByFamily(t *testing.T) {
	t.Parallel()

	for _, chain := range []model.Chain{model.ChainCosmosHub, model.ChainTerra, model.ChainSolana, model.ChainAlgorand} {
		spec, err := config.LoadChainSpec(chain, "")
		require.NoError(t, err)
		n, err := New(spec, "wallet", testResolver(t, chain.String()), slog.Default())
		require.NoError(t, err)
		require.NotNil(t, n, chain)
	}
}
