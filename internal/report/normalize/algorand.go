package normalize

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/emperorhan/taxindexer/internal/config"
	"github.com/emperorhan/taxindexer/internal/currency"
	"github.com/emperorhan/taxindexer/internal/domain/model"
	"github.com/emperorhan/taxindexer/internal/metrics"
	"github.com/shopspring/decimal"
)

// Algorand normalizes indexer transaction records. The indexer only
// returns confirmed transactions, so there is no failed case; inner
// transactions of an application call are folded into the outer
// message's transfer sets.
type Algorand struct {
	spec     config.ChainSpec
	wallet   string
	resolver currency.Resolver
	logger   *slog.Logger
}

func NewAlgorand(spec config.ChainSpec, wallet string, resolver currency.Resolver, logger *slog.Logger) *Algorand {
	return &Algorand{
		spec:     spec,
		wallet:   wallet,
		resolver: resolver,
		logger:   logger.With("component", "normalizer", "chain", spec.Chain),
	}
}

type algorandPayment struct {
	Receiver         string `json:"receiver"`
	Amount           uint64 `json:"amount"`
	CloseAmount      uint64 `json:"close-amount"`
	CloseRemainderTo string `json:"close-remainder-to"`
}

type algorandAssetTransfer struct {
	Receiver string `json:"receiver"`
	Amount   uint64 `json:"amount"`
	AssetID  int64  `json:"asset-id"`
	CloseTo  string `json:"close-to"`
}

type algorandTx struct {
	ID            string                 `json:"id"`
	RoundTime     int64                  `json:"round-time"`
	Fee           uint64                 `json:"fee"`
	Sender        string                 `json:"sender"`
	TxType        string                 `json:"tx-type"`
	Payment       *algorandPayment       `json:"payment-transaction"`
	AssetTransfer *algorandAssetTransfer `json:"asset-transfer-transaction"`
	InnerTxns     []algorandTx           `json:"inner-txns"`
}

func (n *Algorand) Normalize(ctx context.Context, raw json.RawMessage) (*model.TransactionContext, []*model.MessageContext, error) {
	var tx algorandTx
	if err := json.Unmarshal(raw, &tx); err != nil {
		return nil, nil, fmt.Errorf("decode algorand tx: %w", err)
	}
	if tx.ID == "" {
		return nil, nil, fmt.Errorf("algorand tx missing id")
	}

	tc := &model.TransactionContext{
		Chain:         n.spec.Chain,
		ID:            tx.ID,
		WalletAddress: n.wallet,
		SourceURL:     n.spec.ExplorerURL(tx.ID),
		MessageCount:  1,
	}
	if tx.RoundTime > 0 {
		ts := time.Unix(tx.RoundTime, 0).UTC()
		tc.Timestamp = &ts
	}
	if tx.Sender == n.wallet && tx.Fee > 0 {
		tc.FeeAmount = decimal.NewFromUint64(tx.Fee).Shift(-n.spec.NativeDecimals)
		tc.FeeCurrency = n.spec.NativeCurrency
	}

	mc := &model.MessageContext{Index: 0, MessageType: tx.TxType, RawPayload: raw}
	n.collect(ctx, mc, &tx)

	metrics.NormalizerTransactions.WithLabelValues(n.spec.Chain.String()).Inc()
	metrics.NormalizerMessages.WithLabelValues(n.spec.Chain.String()).Inc()
	return tc, []*model.MessageContext{mc}, nil
}

// collect recurses through a transaction and its inner transactions,
// appending every leg that touches the wallet.
func (n *Algorand) collect(ctx context.Context, mc *model.MessageContext, tx *algorandTx) {
	switch {
	case tx.Payment != nil:
		n.addLeg(mc, tx.Sender, tx.Payment.Receiver, n.algoAmount(tx.Payment.Amount), n.spec.NativeCurrency)
		if tx.Payment.CloseAmount > 0 {
			n.addLeg(mc, tx.Sender, tx.Payment.CloseRemainderTo, n.algoAmount(tx.Payment.CloseAmount), n.spec.NativeCurrency)
		}
	case tx.AssetTransfer != nil:
		amount, symbol, ok := n.resolveAsset(ctx, tx.AssetTransfer.AssetID, tx.AssetTransfer.Amount)
		if ok {
			n.addLeg(mc, tx.Sender, tx.AssetTransfer.Receiver, amount, symbol)
			if tx.AssetTransfer.CloseTo != "" {
				n.addLeg(mc, tx.Sender, tx.AssetTransfer.CloseTo, decimal.Zero, symbol)
			}
		}
	case tx.TxType != "appl" && tx.TxType != "keyreg" && tx.TxType != "acfg" && tx.TxType != "afrz":
		metrics.NormalizerUnparseable.WithLabelValues(n.spec.Chain.String()).Inc()
		n.logger.Warn("unrecognized algorand tx-type", "tx_id", tx.ID, "tx_type", tx.TxType)
	}

	for i := range tx.InnerTxns {
		n.collect(ctx, mc, &tx.InnerTxns[i])
	}
}

func (n *Algorand) addLeg(mc *model.MessageContext, sender, receiver string, amount decimal.Decimal, symbol string) {
	if amount.IsZero() {
		return
	}
	t := model.Transfer{Amount: amount, Currency: symbol, Source: sender, Destination: receiver}
	if receiver == n.wallet {
		mc.TransfersIn = append(mc.TransfersIn, t)
	}
	if sender == n.wallet {
		mc.TransfersOut = append(mc.TransfersOut, t)
	}
}

func (n *Algorand) algoAmount(micro uint64) decimal.Decimal {
	return decimal.NewFromUint64(micro).Shift(-n.spec.NativeDecimals)
}

func (n *Algorand) resolveAsset(ctx context.Context, assetID int64, raw uint64) (decimal.Decimal, string, bool) {
	key := strconv.FormatInt(assetID, 10)
	exponent, _ := n.resolver.Decimals(ctx, key)
	symbol, _ := n.resolver.Symbol(ctx, key)
	return decimal.NewFromUint64(raw).Shift(-exponent), symbol, true
}
