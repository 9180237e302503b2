package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/rbarroso/mlwatch/internal/types"
)

const resultSheet = "Resultados"

// column binds a configurable column key to its header text and the
// cell value it renders for a row.
type column struct {
	key    string
	header string
	width  float64
	value  func(*types.MergedRecord) any
}

// reportColumns is the full column set in report order. The output
// configuration may select a subset by key.
var reportColumns = []column{
	{"term", "Termo", 22, func(r *types.MergedRecord) any { return r.SearchTerm }},
	{"position", "Posição", 10, func(r *types.MergedRecord) any { return r.Position }},
	{"title", "Título", 48, func(r *types.MergedRecord) any { return r.Title }},
	{"price", "Preço", 12, func(r *types.MergedRecord) any { return r.Price }},
	{"ad_tier", "Tipo de anúncio", 16, func(r *types.MergedRecord) any { return string(r.AdTier) }},
	{"seller", "Vendedor", 24, func(r *types.MergedRecord) any { return r.Seller() }},
	{"units_sold", "Vendidos", 10, func(r *types.MergedRecord) any { return intCell(r.Detail.UnitsSold) }},
	{"rating", "Avaliação", 10, func(r *types.MergedRecord) any { return floatCell(r.Rating) }},
	{"reviews", "Opiniões", 10, func(r *types.MergedRecord) any { return intCell(r.ReviewCount) }},
	{"sponsored", "Patrocinado", 12, func(r *types.MergedRecord) any { return boolCell(r.Sponsored) }},
	{"own_store", "Loja própria", 12, func(r *types.MergedRecord) any { return boolCell(r.OwnStore) }},
	{"undercut", "Abaixo do nosso preço", 20, func(r *types.MergedRecord) any { return boolCell(r.UndercutByCompetitor) }},
	{"min_own_price", "Menor preço próprio", 18, func(r *types.MergedRecord) any { return floatCell(r.MinOwnPrice) }},
	{"url", "URL", 60, func(r *types.MergedRecord) any { return r.URL }},
}

func intCell(v *int) any {
	if v == nil {
		return ""
	}
	return *v
}

func floatCell(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

func boolCell(v bool) any {
	if v {
		return "sim"
	}
	return "não"
}

// ExcelSink writes the result table as a styled xlsx workbook.
type ExcelSink struct {
	path    string
	columns []column
	records []*types.MergedRecord
	mu      sync.Mutex
	logger  *slog.Logger
}

// NewExcelSink creates an xlsx sink. keys selects and orders the
// report columns; empty means all of them. Unknown keys are dropped
// with a warning rather than failing the run.
func NewExcelSink(outputPath string, keys []string, logger *slog.Logger) *ExcelSink {
	return &ExcelSink{
		path:    outputPath,
		columns: selectColumns(keys, logger),
		logger:  logger.With("component", "excel_sink"),
	}
}

func selectColumns(keys []string, logger *slog.Logger) []column {
	if len(keys) == 0 {
		return reportColumns
	}

	byKey := make(map[string]column, len(reportColumns))
	for _, c := range reportColumns {
		byKey[c.key] = c
	}

	selected := make([]column, 0, len(keys))
	for _, k := range keys {
		c, ok := byKey[k]
		if !ok {
			logger.Warn("unknown report column, skipping", "column", k)
			continue
		}
		selected = append(selected, c)
	}
	if len(selected) == 0 {
		return reportColumns
	}
	return selected
}

func (s *ExcelSink) Name() string { return "xlsx" }

func (s *ExcelSink) Store(records []*types.MergedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
	return nil
}

// Close renders the buffered rows into the workbook and saves it.
func (s *ExcelSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(resultSheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4472C4"}},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	for i, c := range s.columns {
		colName, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("column name: %w", err)
		}
		cell := colName + "1"
		if err := f.SetCellValue(resultSheet, cell, c.header); err != nil {
			return fmt.Errorf("write header %s: %w", c.key, err)
		}
		if err := f.SetCellStyle(resultSheet, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("style header %s: %w", c.key, err)
		}
		if err := f.SetColWidth(resultSheet, colName, colName, c.width); err != nil {
			return fmt.Errorf("column width %s: %w", c.key, err)
		}
	}

	for rowIdx, rec := range s.records {
		for colIdx, c := range s.columns {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return fmt.Errorf("cell name: %w", err)
			}
			if err := f.SetCellValue(resultSheet, cell, c.value(rec)); err != nil {
				return fmt.Errorf("write cell %s: %w", cell, err)
			}
		}
	}

	if err := f.SaveAs(s.path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}

	s.logger.Info("workbook written", "path", s.path, "rows", len(s.records))
	return nil
}
