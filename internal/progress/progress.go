// Package progress reports coarse wallet-scan progress to an external
// sink. Progress is advisory and has no effect on correctness.
package progress

import "log/slog"

// Sink receives progress notifications during a wallet scan.
type Sink interface {
	// PageFetched is called after each raw transaction page, with the
	// number of transactions it contained.
	PageFetched(page, txCount int)
	// TransactionProcessed is called after each transaction completes
	// dispatch, with the running totals of transactions and messages.
	TransactionProcessed(processed, messages int)
}

// LogSink logs progress at a fixed transaction interval.
type LogSink struct {
	logger   *slog.Logger
	interval int
}

func NewLogSink(logger *slog.Logger, interval int) *LogSink {
	if interval <= 0 {
		interval = 50
	}
	return &LogSink{logger: logger.With("component", "progress"), interval: interval}
}

func (s *LogSink) PageFetched(page, txCount int) {
	s.logger.Info("page fetched", "page", page, "tx_count", txCount)
}

func (s *LogSink) TransactionProcessed(processed, messages int) {
	if processed%s.interval == 0 {
		s.logger.Info("processing", "transactions", processed, "messages", messages)
	}
}

// NopSink discards all progress notifications.
type NopSink struct{}

func (NopSink) PageFetched(int, int)          {}
func (NopSink) TransactionProcessed(int, int) {}
