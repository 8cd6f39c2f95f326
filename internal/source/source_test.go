package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	pages  []Page
	calls  int
	failAt int
}

func (f *fakeSource) FetchPage(_ context.Context, token string) (Page, error) {
	f.calls++
	if f.failAt > 0 && f.calls == f.failAt {
		return Page{}, fmt.Errorf("boom")
	}
	idx := 0
	if token != "" {
		fmt.Sscanf(token, "%d", &idx)
	}
	return f.pages[idx], nil
}

type countingSink struct {
	pages int
	txs   int
}

func (c *countingSink) PageFetched(_, txCount int)    { c.pages++; c.txs += txCount }
func (c *countingSink) TransactionProcessed(int, int) {}

func rawTxs(n int) []json.RawMessage {
	out := make([]json.RawMessage, n)
	for i := range out {
		out[i] = json.RawMessage(fmt.Sprintf(`{"i":%d}`, i))
	}
	return out
}

func TestScannerDrainsAllPages(t *testing.T) {
	t.Parallel()

	src := &fakeSource{pages: []Page{
		{Transactions: rawTxs(3), NextToken: "1"},
		{Transactions: rawTxs(2), NextToken: "2"},
		{Transactions: rawTxs(1)},
	}}
	sink := &countingSink{}

	txs, err := NewScanner("osmosis", src, nil, sink).Scan(context.Background())
	require.NoError(t, err)
	assert.Len(t, txs, 6)
	assert.Equal(t, 3, src.calls)
	assert.Equal(t, 3, sink.pages)
	assert.Equal(t, 6, sink.txs)
}

func TestScannerAbortsOnFetchError(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		pages:  []Page{{Transactions: rawTxs(3), NextToken: "1"}, {}},
		failAt: 2,
	}
	_, err := NewScanner("osmosis", src, nil, nil).Scan(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch page 2")
}

func TestScannerMaxPages(t *testing.T) {
	t.Parallel()

	// Source that never terminates.
	src := &fakeSource{pages: []Page{{Transactions: rawTxs(1), NextToken: "0"}}}
	_, err := NewScanner("osmosis", src, nil, nil, WithMaxPages(5)).Scan(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeded 5 pages")
	assert.Equal(t, 5, src.calls)
}

type flakySource struct {
	calls    int
	failures int
	errMsg   string
}

func (f *flakySource) FetchPage(context.Context, string) (Page, error) {
	f.calls++
	if f.calls <= f.failures {
		return Page{}, fmt.Errorf("%s", f.errMsg)
	}
	return Page{Transactions: rawTxs(1)}, nil
}

func TestScannerRetriesTransientErrors(t *testing.T) {
	t.Parallel()

	src := &flakySource{failures: 2, errMsg: "lcd request: status 503: upstream"}
	txs, err := NewScanner("osmosis", src, nil, nil, WithRetry(3, time.Millisecond)).Scan(context.Background())
	require.NoError(t, err)
	assert.Len(t, txs, 1)
	assert.Equal(t, 3, src.calls)
}

func TestScannerDoesNotRetryTerminalErrors(t *testing.T) {
	t.Parallel()

	src := &flakySource{failures: 1, errMsg: "decode lcd response: invalid character"}
	_, err := NewScanner("osmosis", src, nil, nil, WithRetry(3, time.Millisecond)).Scan(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, src.calls)
}

func TestClassifyFetchError(t *testing.T) {
	t.Parallel()

	assert.Equal(t, classTransient, classifyFetchError(fmt.Errorf("too many requests")))
	assert.Equal(t, classTransient, classifyFetchError(fmt.Errorf("dial tcp: connection refused")))
	assert.Equal(t, classTransient, classifyFetchError(context.DeadlineExceeded))
	assert.Equal(t, classTerminal, classifyFetchError(context.Canceled))
	assert.Equal(t, classTerminal, classifyFetchError(fmt.Errorf("bad page token")))
}

func TestFileSourcePagination(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "txs.json")
	raw, err := json.Marshal(rawTxs(5))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	fs, err := NewFileSource(path, 2)
	require.NoError(t, err)

	txs, err := NewScanner("osmosis", fs, nil, nil).Scan(context.Background())
	require.NoError(t, err)
	assert.Len(t, txs, 5)
	assert.JSONEq(t, `{"i":0}`, string(txs[0]))
	assert.JSONEq(t, `{"i":4}`, string(txs[4]))
}

func TestFileSourceBadToken(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "txs.json")
	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o644))
	fs, err := NewFileSource(path, 10)
	require.NoError(t, err)

	_, err = fs.FetchPage(context.Background(), "not-a-number")
	require.Error(t, err)
}

func TestLCDSourcePagination(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cosmos/tx/v1beta1/txs", r.URL.Path)
		assert.Equal(t, "message.sender='osmo1w'", r.URL.Query().Get("events"))
		if r.URL.Query().Get("pagination.key") == "" {
			fmt.Fprint(w, `{"tx_responses": [{"txhash": "A"}], "pagination": {"next_key": "k2"}}`)
			return
		}
		fmt.Fprint(w, `{"tx_responses": [{"txhash": "B"}], "pagination": {"next_key": ""}}`)
	}))
	defer srv.Close()

	src := NewLCDSource(srv.URL, SenderQuery("osmo1w"), 50)
	txs, err := NewScanner("osmosis", src, nil, nil).Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.JSONEq(t, `{"txhash": "A"}`, string(txs[0]))
	assert.JSONEq(t, `{"txhash": "B"}`, string(txs[1]))
}

func TestLCDSourceHTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	src := NewLCDSource(srv.URL, SenderQuery("osmo1w"), 50)
	_, err := src.FetchPage(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestIndexerSourceStopsOnEmptyPage(t *testing.T) {
	t.Parallel()

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/v2/accounts/ALGOADDR/transactions", r.URL.Path)
		if calls == 1 {
			fmt.Fprint(w, `{"transactions": [{"id": "T1"}, {"id": "T2"}], "next-token": "tok"}`)
			return
		}
		// Final page: token present but no transactions.
		fmt.Fprint(w, `{"transactions": [], "next-token": "tok2"}`)
	}))
	defer srv.Close()

	src := NewIndexerSource(srv.URL, "ALGOADDR", 50)
	txs, err := NewScanner("algorand", src, nil, nil).Scan(context.Background())
	require.NoError(t, err)
	assert.Len(t, txs, 2)
	assert.Equal(t, 2, calls)
}
