package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultHTTPTimeout = 30 * time.Second

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultHTTPTimeout}
}

// LCDSource pages a wallet's history out of a cosmos-sdk LCD endpoint
// (/cosmos/tx/v1beta1/txs). One source covers one event query; callers
// that need both directions run two scans and dedupe by tx hash.
type LCDSource struct {
	client   *http.Client
	baseURL  string
	query    string
	pageSize int
}

func NewLCDSource(baseURL, eventQuery string, pageSize int) *LCDSource {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &LCDSource{
		client:   newHTTPClient(),
		baseURL:  baseURL,
		query:    eventQuery,
		pageSize: pageSize,
	}
}

// SenderQuery builds the LCD event filter for transactions signed by the
// wallet.
func SenderQuery(wallet string) string {
	return fmt.Sprintf("message.sender='%s'", wallet)
}

// RecipientQuery builds the LCD event filter for transfers received by
// the wallet.
func RecipientQuery(wallet string) string {
	return fmt.Sprintf("transfer.recipient='%s'", wallet)
}

func (s *LCDSource) FetchPage(ctx context.Context, pageToken string) (Page, error) {
	q := url.Values{}
	q.Set("events", s.query)
	q.Set("pagination.limit", strconv.Itoa(s.pageSize))
	q.Set("order_by", "ORDER_BY_ASC")
	if pageToken != "" {
		q.Set("pagination.key", pageToken)
	}

	var body struct {
		TxResponses []json.RawMessage `json:"tx_responses"`
		Pagination  struct {
			NextKey string `json:"next_key"`
		} `json:"pagination"`
	}
	if err := s.getJSON(ctx, s.baseURL+"/cosmos/tx/v1beta1/txs?"+q.Encode(), &body); err != nil {
		return Page{}, err
	}
	return Page{Transactions: body.TxResponses, NextToken: body.Pagination.NextKey}, nil
}

func (s *LCDSource) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("lcd request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("lcd request: status %d: %s", resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode lcd response: %w", err)
	}
	return nil
}

// IndexerSource pages a wallet's history out of an algorand indexer
// (/v2/accounts/{addr}/transactions).
type IndexerSource struct {
	client   *http.Client
	baseURL  string
	wallet   string
	pageSize int
}

func NewIndexerSource(baseURL, wallet string, pageSize int) *IndexerSource {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &IndexerSource{
		client:   newHTTPClient(),
		baseURL:  baseURL,
		wallet:   wallet,
		pageSize: pageSize,
	}
}

func (s *IndexerSource) FetchPage(ctx context.Context, pageToken string) (Page, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(s.pageSize))
	if pageToken != "" {
		q.Set("next", pageToken)
	}
	rawURL := fmt.Sprintf("%s/v2/accounts/%s/transactions?%s", s.baseURL, url.PathEscape(s.wallet), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Page{}, fmt.Errorf("build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("indexer request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Page{}, fmt.Errorf("indexer request: status %d: %s", resp.StatusCode, body)
	}

	var body struct {
		Transactions []json.RawMessage `json:"transactions"`
		NextToken    string            `json:"next-token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Page{}, fmt.Errorf("decode indexer response: %w", err)
	}
	// The indexer returns a next-token even on the final page; an empty
	// page is the real stop signal.
	if len(body.Transactions) == 0 {
		return Page{}, nil
	}
	return Page{Transactions: body.Transactions, NextToken: body.NextToken}, nil
}
