package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	// ErrBlocked signals the site served an anti-automation challenge
	// instead of content.
	ErrBlocked = errors.New("blocked by anti-bot challenge")

	// ErrPageEnd signals pagination ran past the last results page.
	ErrPageEnd = errors.New("end of results")

	// ErrNotPaginating signals NextPage was called before LoadSearch.
	ErrNotPaginating = errors.New("no search loaded")
)

// ExtractionError reports a fragment that could not yield a required
// field. The orchestrator drops the single item and continues.
type ExtractionError struct {
	Field string
	Err   error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("extract %s: field not found", e.Field)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// DetailError reports a detail page that failed to load or render
// after retry exhaustion. The record survives with empty detail fields.
type DetailError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *DetailError) Error() string {
	return fmt.Sprintf("detail page %s unavailable after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *DetailError) Unwrap() error { return e.Err }
