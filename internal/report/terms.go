// Package report handles the run's file exchange with the analyst: the
// term list comes in as a workbook or plain text, the result table goes
// out through the storage sinks.
package report

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ReadTerms loads the ordered search-term list from path. Workbooks
// (.xlsx) are read from column A of the first sheet; any other
// extension is treated as plain text with one term per line. Blanks
// are skipped and duplicates keep their first occurrence.
func ReadTerms(path string) ([]string, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return readWorkbookTerms(path)
	}
	return readTextTerms(path)
}

func readWorkbookTerms(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open terms workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("terms workbook %s has no sheets", path)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read terms sheet: %w", err)
	}

	raw := make([]string, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		raw = append(raw, row[0])
	}
	return cleanTerms(path, raw)
}

func readTextTerms(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open terms file: %w", err)
	}
	defer f.Close()

	var raw []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		raw = append(raw, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read terms file: %w", err)
	}
	return cleanTerms(path, raw)
}

// cleanTerms trims, drops blanks and an optional header cell, and
// deduplicates preserving first occurrence.
func cleanTerms(path string, raw []string) ([]string, error) {
	seen := make(map[string]struct{}, len(raw))
	terms := make([]string, 0, len(raw))

	for i, t := range raw {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if i == 0 && isHeaderCell(t) {
			continue
		}
		key := strings.ToLower(t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		terms = append(terms, t)
	}

	if len(terms) == 0 {
		return nil, fmt.Errorf("no search terms found in %s", path)
	}
	return terms, nil
}

func isHeaderCell(s string) bool {
	switch strings.ToLower(s) {
	case "termo", "termos", "term", "terms":
		return true
	}
	return false
}
