package report

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/emperorhan/taxindexer/internal/config"
	"github.com/emperorhan/taxindexer/internal/currency"
	"github.com/emperorhan/taxindexer/internal/domain/model"
	"github.com/emperorhan/taxindexer/internal/errcount"
	"github.com/emperorhan/taxindexer/internal/report/aggregate"
	"github.com/emperorhan/taxindexer/internal/report/dispatch"
	"github.com/emperorhan/taxindexer/internal/report/dispatch/handlers"
	"github.com/emperorhan/taxindexer/internal/report/normalize"
	"github.com/emperorhan/taxindexer/internal/source"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wallet = "osmo1w"

type fixtureSource struct {
	txs []json.RawMessage
}

func (f *fixtureSource) FetchPage(context.Context, string) (source.Page, error) {
	return source.Page{Transactions: f.txs}, nil
}

type captureExporter struct {
	calls int
	rows  []model.Row
}

func (c *captureExporter) Export(_ context.Context, rows []model.Row) error {
	c.calls++
	c.rows = rows
	return nil
}

func sendTx(hash string) json.RawMessage {
	return json.RawMessage(`{"tx_response": {"txhash": "` + hash + `", "code": 0,
		"timestamp": "2022-06-15T08:30:00Z",
		"logs": [{"msg_index": 0, "events": [{"type": "transfer", "attributes": [
			{"key": "recipient", "value": "` + wallet + `"},
			{"key": "sender", "value": "osmo1other"},
			{"key": "amount", "value": "5000000uosmo"}
		]}]}],
		"tx": {"body": {"messages": [{"@type": "/cosmos.bank.v1beta1.MsgSend"}]},
		"auth_info": {"fee": {"amount": [{"denom": "uosmo", "amount": "4000"}]}}}}}`)
}

func newTestRunner(t *testing.T, txs []json.RawMessage, exporter *captureExporter) *Runner {
	t.Helper()
	logger := slog.Default()
	spec, err := config.LoadChainSpec(model.ChainOsmosis, "")
	require.NoError(t, err)

	resolver := currency.NewCachedResolver(&currency.StaticResolver{
		Symbols:   map[string]string{"uosmo": "OSMO"},
		Exponents: map[string]int32{"uosmo": 6},
	}, "osmosis", 16, 0, logger)

	norm := normalize.NewCosmos(spec, wallet, resolver, logger)
	errs := errcount.New()
	d := dispatch.New(model.ChainOsmosis, handlers.Default(), errs, aggregate.Options{
		NativeCurrency: spec.NativeCurrency,
		FeeEpsilon:     spec.FeeEpsilon,
	}, logger)
	scanner := source.NewScanner("osmosis", &fixtureSource{txs: txs}, nil, nil)

	return NewRunner(model.ChainOsmosis, wallet, []*source.Scanner{scanner}, norm, d, exporter, errs, nil, logger)
}

func TestRunnerEndToEnd(t *testing.T) {
	t.Parallel()

	exporter := &captureExporter{}
	r := newTestRunner(t, []json.RawMessage{sendTx("TX1"), sendTx("TX2")}, exporter)

	summary, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Transactions)
	assert.Equal(t, 2, summary.Messages)
	assert.Equal(t, 2, summary.Rows)
	assert.Empty(t, summary.Errors)

	assert.Equal(t, 1, exporter.calls)
	require.Len(t, exporter.rows, 2)
	for _, row := range exporter.rows {
		assert.Equal(t, model.TxTypeTransferIn, row.TxType)
		assert.True(t, row.ReceivedAmount.Equal(decimal.NewFromInt(5)))
		assert.True(t, row.HasFee())
	}
}

func TestRunnerDeduplicatesByTxHash(t *testing.T) {
	t.Parallel()

	// The same transaction arrives from both the sender and recipient
	// scans; it must be processed once.
	exporter := &captureExporter{}
	r := newTestRunner(t, []json.RawMessage{sendTx("DUP"), sendTx("DUP")}, exporter)

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Transactions)
	assert.Equal(t, 1, summary.Rows)
}

func TestRunnerCountsUnreadableTransactions(t *testing.T) {
	t.Parallel()

	exporter := &captureExporter{}
	r := newTestRunner(t, []json.RawMessage{
		json.RawMessage(`{"no_txhash": true}`),
		sendTx("OK1"),
	}, exporter)

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Transactions)
	assert.Equal(t, 1, summary.Errors["normalize"])
}
