package types

// Progress is a per-term status event delivered to the progress sink.
type Progress struct {
	Term      string
	Status    string // "searching", "enriching", "done", "blocked", "stopped"
	Succeeded int
	Abandoned int
}

// Warning is a recoverable-failure event delivered to the warning sink.
type Warning struct {
	Term    string
	Kind    string // "blocked", "extraction", "detail", "timeout"
	Message string
}

// ProgressFunc receives progress events. A nil func is valid and ignored.
type ProgressFunc func(Progress)

// WarnFunc receives warning events. A nil func is valid and ignored.
type WarnFunc func(Warning)

// Summary is the terminal report of a run.
type Summary struct {
	TermsProcessed   int
	RecordsCollected int
	Abandoned        int
	BlockedTerms     []string
}
