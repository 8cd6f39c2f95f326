package normalize

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/emperorhan/taxindexer/internal/config"
	"github.com/emperorhan/taxindexer/internal/currency"
	"github.com/emperorhan/taxindexer/internal/domain/model"
	"github.com/emperorhan/taxindexer/internal/metrics"
	"github.com/shopspring/decimal"
)

// Cosmos normalizes LCD transaction responses shared by cosmoshub,
// osmosis and the terra chains. Transfers are extracted from the
// per-message "transfer" log events rather than from message bodies:
// events reflect what actually moved, including contract-internal sends
// the body never mentions.
type Cosmos struct {
	spec     config.ChainSpec
	wallet   string
	resolver currency.Resolver
	logger   *slog.Logger
}

func NewCosmos(spec config.ChainSpec, wallet string, resolver currency.Resolver, logger *slog.Logger) *Cosmos {
	return &Cosmos{
		spec:     spec,
		wallet:   wallet,
		resolver: resolver,
		logger:   logger.With("component", "normalizer", "chain", spec.Chain),
	}
}

type cosmosCoin struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

type cosmosAttribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type cosmosEvent struct {
	Type       string            `json:"type"`
	Attributes []cosmosAttribute `json:"attributes"`
}

type cosmosLog struct {
	MsgIndex int           `json:"msg_index"`
	Events   []cosmosEvent `json:"events"`
}

type cosmosTxResponse struct {
	TxHash    string      `json:"txhash"`
	Code      int         `json:"code"`
	Timestamp string      `json:"timestamp"`
	Logs      []cosmosLog `json:"logs"`
	Tx        struct {
		Body struct {
			Messages []json.RawMessage `json:"messages"`
			Memo     string            `json:"memo"`
		} `json:"body"`
		AuthInfo struct {
			Fee struct {
				Amount []cosmosCoin `json:"amount"`
			} `json:"fee"`
		} `json:"auth_info"`
	} `json:"tx"`
}

type cosmosTxEnvelope struct {
	TxResponse *cosmosTxResponse `json:"tx_response"`
}

func (n *Cosmos) Normalize(ctx context.Context, raw json.RawMessage) (*model.TransactionContext, []*model.MessageContext, error) {
	var envelope cosmosTxEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, nil, fmt.Errorf("decode tx envelope: %w", err)
	}
	resp := envelope.TxResponse
	if resp == nil {
		resp = &cosmosTxResponse{}
		if err := json.Unmarshal(raw, resp); err != nil {
			return nil, nil, fmt.Errorf("decode tx response: %w", err)
		}
	}
	if resp.TxHash == "" {
		return nil, nil, fmt.Errorf("tx response missing txhash")
	}

	tc := &model.TransactionContext{
		Chain:         n.spec.Chain,
		ID:            resp.TxHash,
		WalletAddress: n.wallet,
		IsFailed:      resp.Code != 0,
		SourceURL:     n.spec.ExplorerURL(resp.TxHash),
		Memo:          resp.Tx.Body.Memo,
		MessageCount:  len(resp.Tx.Body.Messages),
	}
	if ts, err := time.Parse(time.RFC3339, resp.Timestamp); err == nil {
		tc.Timestamp = &ts
	} else {
		n.logger.Warn("unparseable timestamp", "tx_id", resp.TxHash, "timestamp", resp.Timestamp)
	}
	n.setFee(ctx, tc, resp.Tx.AuthInfo.Fee.Amount)

	events := make(map[int][]model.LogEvent, len(resp.Logs))
	for _, l := range resp.Logs {
		events[l.MsgIndex] = convertEvents(l.Events)
	}

	msgs := make([]*model.MessageContext, 0, len(resp.Tx.Body.Messages))
	for i, body := range resp.Tx.Body.Messages {
		mc := n.normalizeMessage(ctx, i, body, events[i])
		msgs = append(msgs, mc)
	}

	metrics.NormalizerTransactions.WithLabelValues(n.spec.Chain.String()).Inc()
	metrics.NormalizerMessages.WithLabelValues(n.spec.Chain.String()).Add(float64(len(msgs)))
	return tc, msgs, nil
}

func (n *Cosmos) normalizeMessage(ctx context.Context, index int, body json.RawMessage, events []model.LogEvent) *model.MessageContext {
	mc := &model.MessageContext{
		Index:      index,
		RawPayload: body,
		LogEvents:  events,
	}

	var head struct {
		Type     string `json:"@type"`
		Contract string `json:"contract"`
	}
	if err := json.Unmarshal(body, &head); err != nil || head.Type == "" {
		metrics.NormalizerUnparseable.WithLabelValues(n.spec.Chain.String()).Inc()
		n.logger.Warn("unparseable message body", "msg_index", index)
		return mc
	}
	mc.MessageType = MessageTypeTail(head.Type)
	mc.ContractAddress = head.Contract

	for _, ev := range events {
		switch {
		case ev.Type == "transfer":
			n.extractTransfers(ctx, mc, ev)
		case n.isClaimMarker(ev.Type):
			n.extractClaims(ctx, mc, ev)
		}
	}
	return mc
}

// extractTransfers walks a transfer event's attributes in groups of
// three (recipient, sender, amount). Multiple sends in one message are
// flattened into a single attribute list by the chain, which is why the
// walk is positional.
func (n *Cosmos) extractTransfers(ctx context.Context, mc *model.MessageContext, ev model.LogEvent) {
	for _, group := range ev.GroupAttributes(3) {
		var recipient, sender, amount string
		for _, a := range group {
			switch a.Key {
			case "recipient":
				recipient = a.Value
			case "sender":
				sender = a.Value
			case "amount":
				amount = a.Value
			}
		}
		if amount == "" {
			continue
		}
		for _, t := range n.parseCoins(ctx, amount) {
			t.Source = sender
			t.Destination = recipient
			if recipient == n.wallet {
				mc.TransfersIn = append(mc.TransfersIn, t)
			}
			if sender == n.wallet {
				mc.TransfersOut = append(mc.TransfersOut, t)
			}
		}
	}
}

func (n *Cosmos) extractClaims(ctx context.Context, mc *model.MessageContext, ev model.LogEvent) {
	amount := ev.Value("amount")
	if amount == "" {
		return
	}
	mc.RewardClaims = append(mc.RewardClaims, n.parseCoins(ctx, amount)...)
}

func (n *Cosmos) isClaimMarker(eventType string) bool {
	for _, m := range n.spec.ClaimMarkers {
		if eventType == m {
			return true
		}
	}
	return false
}

func (n *Cosmos) setFee(ctx context.Context, tc *model.TransactionContext, coins []cosmosCoin) {
	if len(coins) == 0 {
		return
	}
	amount, symbol, ok := n.resolveCoin(ctx, coins[0].Amount, coins[0].Denom)
	if !ok {
		return
	}
	tc.FeeAmount = amount
	tc.FeeCurrency = symbol
}

// parseCoins parses a comma-separated coin list ("5000uosmo,12ibc/27..")
// into resolved transfers. Unparseable entries are skipped, not fatal.
func (n *Cosmos) parseCoins(ctx context.Context, s string) []model.Transfer {
	var out []model.Transfer
	for _, part := range strings.Split(s, ",") {
		raw, denom, ok := splitCoin(part)
		if !ok {
			metrics.NormalizerUnparseable.WithLabelValues(n.spec.Chain.String()).Inc()
			n.logger.Warn("unparseable coin", "coin", part)
			continue
		}
		amount, symbol, ok := n.resolveCoin(ctx, raw, denom)
		if !ok {
			continue
		}
		out = append(out, model.Transfer{Amount: amount, Currency: symbol})
	}
	return out
}

func (n *Cosmos) resolveCoin(ctx context.Context, raw, denom string) (decimal.Decimal, string, bool) {
	exponent, _ := n.resolver.Decimals(ctx, denom)
	amount, err := currency.HumanAmount(raw, exponent)
	if err != nil {
		metrics.NormalizerUnparseable.WithLabelValues(n.spec.Chain.String()).Inc()
		n.logger.Warn("unparseable amount", "amount", raw, "denom", denom)
		return decimal.Zero, "", false
	}
	symbol, _ := n.resolver.Symbol(ctx, denom)
	return amount, symbol, true
}

// splitCoin splits a cosmos coin string into its integer amount prefix
// and denom suffix. The denom may itself contain digits ("ibc/27AB..").
func splitCoin(s string) (amount, denom string, ok bool) {
	s = strings.TrimSpace(s)
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 || i == len(s) {
		return "", "", false
	}
	return s[:i], s[i:], true
}

func convertEvents(events []cosmosEvent) []model.LogEvent {
	out := make([]model.LogEvent, 0, len(events))
	for _, ev := range events {
		attrs := make([]model.LogAttribute, 0, len(ev.Attributes))
		for _, a := range ev.Attributes {
			attrs = append(attrs, model.LogAttribute{Key: a.Key, Value: a.Value})
		}
		out = append(out, model.LogEvent{Type: ev.Type, Attributes: attrs})
	}
	return out
}
