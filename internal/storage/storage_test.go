package storage

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/rbarroso/mlwatch/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func sampleRecords() []*types.MergedRecord {
	min := 150.00
	return []*types.MergedRecord{
		{
			ListingRecord: types.ListingRecord{
				SearchTerm: "mouse gamer",
				Title:      "Mouse Gamer Pro",
				Price:      150.00,
				AdTier:     types.AdTierPremium,
				URL:        "https://x.com/p/own",
				Position:   1,
			},
			Detail:      types.DetailRecord{SellerName: "LojaPropria"},
			Enriched:    true,
			OwnStore:    true,
			MinOwnPrice: &min,
		},
		{
			ListingRecord: types.ListingRecord{
				SearchTerm: "mouse gamer",
				Title:      "Mouse Gamer Eco",
				Price:      140.00,
				AdTier:     types.AdTierClassic,
				URL:        "https://x.com/p/comp",
				Position:   2,
			},
			Detail:               types.DetailRecord{SellerName: "Concorrente X"},
			Enriched:             true,
			UndercutByCompetitor: true,
			MinOwnPrice:          &min,
		},
	}
}

func TestJSONSinkWritesCompleteArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "results.json")

	sink, err := NewJSONSink(path, testLogger)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	if err := sink.Store(sampleRecords()); err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var rows []types.MergedRecord
	if err := json.Unmarshal(data, &rows); err != nil {
		t.Fatalf("output is not a JSON array: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[1].Seller() != "Concorrente X" || !rows[1].UndercutByCompetitor {
		t.Errorf("competitor row mangled: %+v", rows[1])
	}
}

func TestJSONLSinkStreamsLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.jsonl")

	sink, err := NewJSONLSink(path, testLogger)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	if err := sink.Store(sampleRecords()); err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()

	lines := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var row types.MergedRecord
		if err := json.Unmarshal(scanner.Bytes(), &row); err != nil {
			t.Fatalf("line %d is not a JSON object: %v", lines+1, err)
		}
		lines++
	}
	if lines != 2 {
		t.Errorf("expected 2 lines, got %d", lines)
	}
}

func TestExcelSinkWritesWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")

	sink := NewExcelSink(path, nil, testLogger)
	if err := sink.Store(sampleRecords()); err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(resultSheet)
	if err != nil {
		t.Fatalf("read sheet: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 data rows, got %d", len(rows))
	}
	if rows[0][0] != "Termo" {
		t.Errorf("first header = %q, want Termo", rows[0][0])
	}

	undercutCol := -1
	for i, h := range rows[0] {
		if h == "Abaixo do nosso preço" {
			undercutCol = i
		}
	}
	if undercutCol < 0 {
		t.Fatal("undercut column missing from header")
	}
	if rows[1][undercutCol] != "não" || rows[2][undercutCol] != "sim" {
		t.Errorf("undercut cells = %q/%q, want não/sim",
			rows[1][undercutCol], rows[2][undercutCol])
	}
}

func TestExcelSinkColumnSelection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")

	sink := NewExcelSink(path, []string{"title", "price", "no_such_column"}, testLogger)
	if err := sink.Store(sampleRecords()); err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(resultSheet)
	if err != nil {
		t.Fatalf("read sheet: %v", err)
	}
	if len(rows[0]) != 2 {
		t.Fatalf("expected 2 selected columns, got %d", len(rows[0]))
	}
	if rows[0][0] != "Título" || rows[0][1] != "Preço" {
		t.Errorf("headers = %v", rows[0])
	}
}

func TestMultiSinkSurvivesBackendFailure(t *testing.T) {
	good := &countingSink{}
	multi := NewMultiSink([]Sink{&failingSink{}, good}, testLogger)

	err := multi.Store(sampleRecords())
	if err == nil {
		t.Error("expected the first backend's error to surface")
	}
	if good.stored != 2 {
		t.Errorf("healthy backend got %d rows, want 2", good.stored)
	}
	if err := multi.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}

type countingSink struct{ stored int }

func (c *countingSink) Store(records []*types.MergedRecord) error {
	c.stored += len(records)
	return nil
}
func (c *countingSink) Close() error { return nil }
func (c *countingSink) Name() string { return "counting" }

type failingSink struct{}

func (f *failingSink) Store([]*types.MergedRecord) error { return os.ErrClosed }
func (f *failingSink) Close() error                      { return nil }
func (f *failingSink) Name() string                      { return "failing" }
