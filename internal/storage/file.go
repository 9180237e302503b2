package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/rbarroso/mlwatch/internal/types"
)

// --- JSON Sink ---

// JSONSink writes the result table as one indented JSON array.
type JSONSink struct {
	path    string
	records []*types.MergedRecord
	mu      sync.Mutex
	logger  *slog.Logger
}

// NewJSONSink creates a JSON file sink. Rows are buffered and written
// on Close so the file is always a complete array.
func NewJSONSink(outputPath string, logger *slog.Logger) (*JSONSink, error) {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	return &JSONSink{
		path:    outputPath,
		records: make([]*types.MergedRecord, 0),
		logger:  logger.With("component", "json_sink"),
	}, nil
}

func (s *JSONSink) Name() string { return "json" }

func (s *JSONSink) Store(records []*types.MergedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
	s.logger.Debug("rows buffered", "count", len(records), "total", len(s.records))
	return nil
}

func (s *JSONSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.records); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}

	s.logger.Info("JSON written", "path", s.path, "rows", len(s.records))
	return nil
}

// --- JSONL Sink ---

// JSONLSink streams rows as newline-delimited JSON, one object per line.
type JSONLSink struct {
	path   string
	file   *os.File
	enc    *json.Encoder
	mu     sync.Mutex
	count  int
	logger *slog.Logger
}

// NewJSONLSink creates a JSONL file sink with streaming writes.
func NewJSONLSink(outputPath string, logger *slog.Logger) (*JSONLSink, error) {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}

	return &JSONLSink{
		path:   outputPath,
		file:   f,
		enc:    json.NewEncoder(f),
		logger: logger.With("component", "jsonl_sink"),
	}, nil
}

func (s *JSONLSink) Name() string { return "jsonl" }

func (s *JSONLSink) Store(records []*types.MergedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range records {
		if err := s.enc.Encode(rec); err != nil {
			return fmt.Errorf("encode JSONL: %w", err)
		}
		s.count++
	}
	return nil
}

func (s *JSONLSink) Close() error {
	s.logger.Info("JSONL written", "path", s.path, "rows", s.count)
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}
