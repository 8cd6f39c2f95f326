package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// FileSource replays a previously captured transaction history from a
// JSON file holding an array of raw transactions. Used for offline
// report runs and deterministic fixtures.
type FileSource struct {
	txs      []json.RawMessage
	pageSize int
}

func NewFileSource(path string, pageSize int) (*FileSource, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input file: %w", err)
	}
	var txs []json.RawMessage
	if err := json.Unmarshal(raw, &txs); err != nil {
		return nil, fmt.Errorf("parse input file %s: %w", path, err)
	}
	if pageSize <= 0 {
		pageSize = 100
	}
	return &FileSource{txs: txs, pageSize: pageSize}, nil
}

func (f *FileSource) FetchPage(_ context.Context, pageToken string) (Page, error) {
	offset := 0
	if pageToken != "" {
		n, err := strconv.Atoi(pageToken)
		if err != nil || n < 0 {
			return Page{}, fmt.Errorf("bad page token %q", pageToken)
		}
		offset = n
	}
	if offset >= len(f.txs) {
		return Page{}, nil
	}

	end := offset + f.pageSize
	if end > len(f.txs) {
		end = len(f.txs)
	}
	p := Page{Transactions: f.txs[offset:end]}
	if end < len(f.txs) {
		p.NextToken = strconv.Itoa(end)
	}
	return p, nil
}
