package worker

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/shopspring/decimal"
)

// ExportRow is one line of the inventory snapshot, in the fixed four-column
// layout the store's spreadsheet workflow expects.
type ExportRow struct {
	Product     string
	Description string
	Stock       int
	Price       decimal.Decimal
}

// Exporter writes a full inventory snapshot somewhere durable.
type Exporter interface {
	Export(ctx context.Context, rows []ExportRow) error
}

// CSVExporter writes the snapshot to a single CSV file, replacing the
// previous one atomically (temp file + rename).
type CSVExporter struct {
	Path string
}

func NewCSVExporter(path string) *CSVExporter { return &CSVExporter{Path: path} }

func (e *CSVExporter) Export(ctx context.Context, rows []ExportRow) error {
	if err := os.MkdirAll(filepath.Dir(e.Path), 0o755); err != nil {
		return fmt.Errorf("export: creating directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(e.Path), ".inventario-*.csv")
	if err != nil {
		return fmt.Errorf("export: creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write([]string{"producto", "descripcion", "stock", "precio"}); err != nil {
		tmp.Close()
		return err
	}
	for _, r := range rows {
		if err := ctx.Err(); err != nil {
			tmp.Close()
			return err
		}
		rec := []string{r.Product, r.Description, strconv.Itoa(r.Stock), r.Price.StringFixed(2)}
		if err := w.Write(rec); err != nil {
			tmp.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), e.Path)
}
