package export

import (
	"context"
	"fmt"

	"github.com/emperorhan/taxindexer/internal/domain/model"
	"github.com/google/uuid"
)

// RowSink is the persistence surface the Postgres exporter writes to.
type RowSink interface {
	InsertBatch(ctx context.Context, runID, chain string, rows []model.Row) error
}

// PostgresExporter tags each export with a fresh run id so repeated
// runs over the same wallet stay distinguishable in the table.
type PostgresExporter struct {
	sink  RowSink
	chain string
	runID string
}

func NewPostgresExporter(sink RowSink, chain string) *PostgresExporter {
	return &PostgresExporter{sink: sink, chain: chain, runID: uuid.NewString()}
}

// RunID returns the id rows of this export are tagged with.
func (e *PostgresExporter) RunID() string {
	return e.runID
}

func (e *PostgresExporter) Export(ctx context.Context, rows []model.Row) error {
	if err := e.sink.InsertBatch(ctx, e.runID, e.chain, rows); err != nil {
		return fmt.Errorf("export to postgres: %w", err)
	}
	return nil
}
