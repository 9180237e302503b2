// Package storage persists the finished result table. The report file
// (xlsx, json or jsonl) is the primary output; MongoDB can mirror the
// rows when enabled.
package storage

import (
	"fmt"
	"log/slog"

	"github.com/rbarroso/mlwatch/internal/config"
	"github.com/rbarroso/mlwatch/internal/types"
)

// Sink is the interface for all result backends.
type Sink interface {
	// Store persists a batch of result rows.
	Store(records []*types.MergedRecord) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the backend identifier.
	Name() string
}

// New builds the sink stack the output configuration asks for: one file
// backend chosen by format, fanned out with MongoDB when that mirror is
// enabled.
func New(cfg *config.Config, logger *slog.Logger) (Sink, error) {
	var primary Sink
	var err error

	switch cfg.Output.Format {
	case "xlsx":
		primary = NewExcelSink(cfg.Output.Path, cfg.Output.Columns, logger)
	case "json":
		primary, err = NewJSONSink(cfg.Output.Path, logger)
	case "jsonl":
		primary, err = NewJSONLSink(cfg.Output.Path, logger)
	default:
		return nil, fmt.Errorf("unsupported output format: %s", cfg.Output.Format)
	}
	if err != nil {
		return nil, err
	}

	if !cfg.Output.Mongo.Enabled {
		return primary, nil
	}

	mongo, err := NewMongoSink(cfg.Output.Mongo, logger)
	if err != nil {
		// The mirror is best effort; the report file must not be lost
		// because a database was down.
		logger.Warn("mongodb mirror unavailable, writing file only", "error", err)
		return primary, nil
	}
	return NewMultiSink([]Sink{primary, mongo}, logger), nil
}
