package normalize

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/emperorhan/taxindexer/internal/config"
	"github.com/emperorhan/taxindexer/internal/currency"
	"github.com/emperorhan/taxindexer/internal/domain/model"
	"github.com/emperorhan/taxindexer/internal/metrics"
	"github.com/shopspring/decimal"
)

// Solana normalizes RPC getTransaction responses. Solana has no message
// list and no transfer events, so movements are reconstructed from the
// wallet's pre/post balance diffs, native and per-mint token balances
// alike. Each transaction yields exactly one message context.
type Solana struct {
	spec     config.ChainSpec
	wallet   string
	resolver currency.Resolver
	logger   *slog.Logger
}

func NewSolana(spec config.ChainSpec, wallet string, resolver currency.Resolver, logger *slog.Logger) *Solana {
	return &Solana{
		spec:     spec,
		wallet:   wallet,
		resolver: resolver,
		logger:   logger.With("component", "normalizer", "chain", spec.Chain),
	}
}

type solanaTokenBalance struct {
	AccountIndex  int    `json:"accountIndex"`
	Mint          string `json:"mint"`
	Owner         string `json:"owner"`
	UITokenAmount struct {
		Amount   string `json:"amount"`
		Decimals int32  `json:"decimals"`
	} `json:"uiTokenAmount"`
}

type solanaTx struct {
	BlockTime   *int64 `json:"blockTime"`
	Transaction struct {
		Signatures []string `json:"signatures"`
		Message    struct {
			AccountKeys []string `json:"accountKeys"`
		} `json:"message"`
	} `json:"transaction"`
	Meta *struct {
		Err               json.RawMessage      `json:"err"`
		Fee               uint64               `json:"fee"`
		PreBalances       []uint64             `json:"preBalances"`
		PostBalances      []uint64             `json:"postBalances"`
		PreTokenBalances  []solanaTokenBalance `json:"preTokenBalances"`
		PostTokenBalances []solanaTokenBalance `json:"postTokenBalances"`
	} `json:"meta"`
}

func (n *Solana) Normalize(ctx context.Context, raw json.RawMessage) (*model.TransactionContext, []*model.MessageContext, error) {
	var tx solanaTx
	if err := json.Unmarshal(raw, &tx); err != nil {
		return nil, nil, fmt.Errorf("decode solana tx: %w", err)
	}
	if len(tx.Transaction.Signatures) == 0 {
		return nil, nil, fmt.Errorf("solana tx missing signature")
	}
	id := tx.Transaction.Signatures[0]

	tc := &model.TransactionContext{
		Chain:         n.spec.Chain,
		ID:            id,
		WalletAddress: n.wallet,
		SourceURL:     n.spec.ExplorerURL(id),
		MessageCount:  1,
	}
	if tx.BlockTime != nil {
		ts := time.Unix(*tx.BlockTime, 0).UTC()
		tc.Timestamp = &ts
	}

	mc := &model.MessageContext{Index: 0, RawPayload: raw}
	if tx.Meta == nil {
		metrics.NormalizerUnparseable.WithLabelValues(n.spec.Chain.String()).Inc()
		n.logger.Warn("solana tx missing meta", "tx_id", id)
		return tc, []*model.MessageContext{mc}, nil
	}

	tc.IsFailed = len(tx.Meta.Err) > 0 && string(tx.Meta.Err) != "null"
	walletIndex := indexOf(tx.Transaction.Message.AccountKeys, n.wallet)

	// The fee payer is account 0. The fee is reported separately but is
	// already subtracted from the payer's post balance, so it is added
	// back before diffing to keep fee and transfer amounts disjoint.
	if walletIndex == 0 && tx.Meta.Fee > 0 {
		tc.FeeAmount = decimal.NewFromUint64(tx.Meta.Fee).Shift(-n.spec.NativeDecimals)
		tc.FeeCurrency = n.spec.NativeCurrency
	}

	n.nativeDiff(tc, mc, &tx, walletIndex)
	n.tokenDiffs(ctx, mc, &tx)

	// A pure one-directional movement is a transfer; anything mixed is
	// left for the classifier to net and pair up.
	switch {
	case len(mc.TransfersIn) > 0 && len(mc.TransfersOut) == 0,
		len(mc.TransfersOut) > 0 && len(mc.TransfersIn) == 0:
		mc.MessageType = "transfer"
	default:
		mc.MessageType = "sol_instruction"
	}

	metrics.NormalizerTransactions.WithLabelValues(n.spec.Chain.String()).Inc()
	metrics.NormalizerMessages.WithLabelValues(n.spec.Chain.String()).Inc()
	return tc, []*model.MessageContext{mc}, nil
}

func (n *Solana) nativeDiff(tc *model.TransactionContext, mc *model.MessageContext, tx *solanaTx, walletIndex int) {
	meta := tx.Meta
	if walletIndex < 0 || walletIndex >= len(meta.PreBalances) || walletIndex >= len(meta.PostBalances) {
		return
	}
	pre := decimal.NewFromUint64(meta.PreBalances[walletIndex])
	post := decimal.NewFromUint64(meta.PostBalances[walletIndex])
	diff := post.Sub(pre)
	if walletIndex == 0 {
		diff = diff.Add(decimal.NewFromUint64(meta.Fee))
	}
	if diff.IsZero() {
		return
	}

	t := model.Transfer{
		Amount:   diff.Abs().Shift(-n.spec.NativeDecimals),
		Currency: n.spec.NativeCurrency,
	}
	if diff.IsPositive() {
		t.Destination = n.wallet
		mc.TransfersIn = append(mc.TransfersIn, t)
	} else {
		t.Source = n.wallet
		mc.TransfersOut = append(mc.TransfersOut, t)
	}
}

func (n *Solana) tokenDiffs(ctx context.Context, mc *model.MessageContext, tx *solanaTx) {
	type balance struct {
		amount   decimal.Decimal
		decimals int32
	}
	pre := make(map[string]balance)
	post := make(map[string]balance)
	seen := make(map[string]bool)
	mints := make([]string, 0)

	collect := func(list []solanaTokenBalance, into map[string]balance) {
		for _, b := range list {
			if b.Owner != n.wallet {
				continue
			}
			amount, err := decimal.NewFromString(b.UITokenAmount.Amount)
			if err != nil {
				metrics.NormalizerUnparseable.WithLabelValues(n.spec.Chain.String()).Inc()
				n.logger.Warn("unparseable token balance", "mint", b.Mint, "amount", b.UITokenAmount.Amount)
				continue
			}
			prev := into[b.Mint]
			into[b.Mint] = balance{amount: prev.amount.Add(amount), decimals: b.UITokenAmount.Decimals}
			if !seen[b.Mint] {
				seen[b.Mint] = true
				mints = append(mints, b.Mint)
			}
		}
	}
	collect(tx.Meta.PreTokenBalances, pre)
	collect(tx.Meta.PostTokenBalances, post)

	for _, mint := range mints {
		p := pre[mint]
		q := post[mint]
		decimals := q.decimals
		if decimals == 0 {
			decimals = p.decimals
		}
		diff := q.amount.Sub(p.amount)
		if diff.IsZero() {
			continue
		}
		symbol, _ := n.resolver.Symbol(ctx, mint)
		t := model.Transfer{
			Amount:   diff.Abs().Shift(-decimals),
			Currency: symbol,
		}
		if diff.IsPositive() {
			t.Destination = n.wallet
			mc.TransfersIn = append(mc.TransfersIn, t)
		} else {
			t.Source = n.wallet
			mc.TransfersOut = append(mc.TransfersOut, t)
		}
	}
}

func indexOf(keys []string, addr string) int {
	for i, k := range keys {
		if k == addr {
			return i
		}
	}
	return -1
}
