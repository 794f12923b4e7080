// Package export writes a preview dataset to local spreadsheet files.
// This is the offline complement to the server-rendered download; it
// exports exactly what the grid holds, including any rows the server
// would paginate away.
package export

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/guidelinehq/guidectl/internal/metrics"
	"github.com/guidelinehq/guidectl/internal/preview"
)

const sheetName = "Guideline Data"

// Exporter writes datasets to disk.
type Exporter struct {
	logger  *slog.Logger
	metrics *metrics.Collector
}

// New creates an exporter.
func New(logger *slog.Logger, m *metrics.Collector) *Exporter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if m == nil {
		m = metrics.NewCollector()
	}
	return &Exporter{logger: logger, metrics: m}
}

// XLSX writes the dataset to an Excel workbook at path. Columns control
// header titles, order and widths.
func (e *Exporter) XLSX(path string, d *preview.Dataset, cols []preview.Column) error {
	start := time.Now()
	defer func() {
		e.metrics.RecordTiming(metrics.OpExport, time.Since(start))
	}()

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(cols))
	for i, col := range cols {
		header[i] = col.Title

		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("column name: %w", err)
		}
		if err := f.SetColWidth(sheetName, name, name, float64(col.Width)); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header row: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	endCell, err := excelize.CoordinatesToCellName(max(len(cols), 1), 1)
	if err != nil {
		return fmt.Errorf("header range: %w", err)
	}
	if err := f.SetCellStyle(sheetName, "A1", endCell, headerStyle); err != nil {
		return fmt.Errorf("style header row: %w", err)
	}

	for i, row := range d.Rows {
		cells := rowCells(row, cols)
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("row coordinates: %w", err)
		}
		if err := f.SetSheetRow(sheetName, cell, &cells); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}

	e.logger.Info("dataset exported", "format", "xlsx", "path", path, "rows", len(d.Rows))
	return nil
}

// CSV writes the dataset as comma-separated values at path.
func (e *Exporter) CSV(path string, d *preview.Dataset, cols []preview.Column) error {
	start := time.Now()
	defer func() {
		e.metrics.RecordTiming(metrics.OpExport, time.Since(start))
	}()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	header := make([]string, len(cols))
	for i, col := range cols {
		header[i] = col.Title
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	record := make([]string, len(cols))
	for _, row := range d.Rows {
		for i, col := range cols {
			record[i] = preview.CellString(row[col.Key])
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}

	e.logger.Info("dataset exported", "format", "csv", "path", path, "rows", len(d.Rows))
	return nil
}

func rowCells(row preview.Row, cols []preview.Column) []any {
	cells := make([]any, len(cols))
	for i, col := range cols {
		cells[i] = preview.CellString(row[col.Key])
	}
	return cells
}
