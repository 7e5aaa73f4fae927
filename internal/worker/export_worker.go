package worker

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"tiendapos/internal/repository"
)

// ExportWorker rewrites the inventory snapshot whenever sales or closes land.
// The snapshot is always the full catalog, so consecutive jobs are naturally
// idempotent and a lost one is healed by the next.
type ExportWorker struct {
	products repository.ProductRepository
	exporter Exporter
}

func NewExportWorker(products repository.ProductRepository, exporter Exporter) *ExportWorker {
	return &ExportWorker{products: products, exporter: exporter}
}

func (w *ExportWorker) Process(ctx context.Context, payload json.RawMessage) error {
	var job ExportJobPayload
	if err := json.Unmarshal(payload, &job); err != nil {
		log.Error().Err(err).Msg("export_worker: invalid payload")
		return nil // malformed payloads are not retryable
	}

	products, err := w.products.ListAll(ctx)
	if err != nil {
		return err
	}
	rows := make([]ExportRow, 0, len(products))
	for i := range products {
		p := &products[i]
		rows = append(rows, ExportRow{
			Product:     p.Key,
			Description: p.Description,
			Stock:       p.Stock,
			Price:       p.UnitPrice,
		})
	}
	if err := w.exporter.Export(ctx, rows); err != nil {
		return err
	}
	log.Info().
		Str("trigger", job.Trigger).
		Int("products", len(rows)).
		Msg("export_worker: snapshot written")
	return nil
}
