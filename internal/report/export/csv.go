package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/emperorhan/taxindexer/internal/domain/model"
	"github.com/shopspring/decimal"
)

// csvHeader is the stable column order of the report. Consumers import
// the file into accounting tools, so the order is part of the contract.
var csvHeader = []string{
	"timestamp",
	"tx_type",
	"received_amount",
	"received_currency",
	"sent_amount",
	"sent_currency",
	"fee",
	"fee_currency",
	"exchange",
	"wallet_address",
	"txid",
	"url",
	"comment",
}

const csvTimeLayout = "2006-01-02 15:04:05"

// CSVExporter writes rows to a single CSV file, header first.
type CSVExporter struct {
	path string
}

func NewCSVExporter(path string) *CSVExporter {
	return &CSVExporter{path: path}
}

func (e *CSVExporter) Export(_ context.Context, rows []model.Row) error {
	f, err := os.Create(e.path)
	if err != nil {
		return fmt.Errorf("create csv %s: %w", e.path, err)
	}
	defer f.Close()

	if err := WriteCSV(f, rows); err != nil {
		return err
	}
	return f.Close()
}

// WriteCSV renders rows to w in the stable column order.
func WriteCSV(w io.Writer, rows []model.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i := range rows {
		if err := cw.Write(csvRecord(&rows[i])); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRecord(r *model.Row) []string {
	ts := ""
	if r.Timestamp != nil {
		ts = r.Timestamp.UTC().Format(csvTimeLayout)
	}
	return []string{
		ts,
		r.TxType.String(),
		amountField(r.ReceivedAmount, r.ReceivedCurrency),
		r.ReceivedCurrency,
		amountField(r.SentAmount, r.SentCurrency),
		r.SentCurrency,
		amountField(r.Fee, r.FeeCurrency),
		r.FeeCurrency,
		r.Exchange,
		r.WalletAddress,
		r.TxID,
		r.URL,
		r.Comment,
	}
}

// amountField renders an amount, blank when the whole side is unset. A
// genuine zero amount with a currency still prints "0".
func amountField(d decimal.Decimal, currency string) string {
	if currency == "" && d.IsZero() {
		return ""
	}
	return d.String()
}
