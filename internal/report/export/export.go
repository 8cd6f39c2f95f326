// Package export writes finished accounting rows to their destinations.
package export

import (
	"context"

	"github.com/emperorhan/taxindexer/internal/domain/model"
)

// Exporter writes one finished batch of rows. Exporters receive the rows
// exactly once, after the whole wallet scan completed.
type Exporter interface {
	Export(ctx context.Context, rows []model.Row) error
}

// Multi fans one batch out to several exporters in order, stopping at
// the first failure.
type Multi []Exporter

func (m Multi) Export(ctx context.Context, rows []model.Row) error {
	for _, e := range m {
		if err := e.Export(ctx, rows); err != nil {
			return err
		}
	}
	return nil
}
