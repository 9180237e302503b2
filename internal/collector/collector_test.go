package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/rbarroso/mlwatch/internal/config"
	"github.com/rbarroso/mlwatch/internal/pacing"
	"github.com/rbarroso/mlwatch/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

// card builds a minimal listing fragment the extractor accepts.
func card(url, title, price string, premium bool) string {
	installments := ""
	if premium {
		installments = `<span class="poly-price__installments">12x sem juros</span>`
	}
	return fmt.Sprintf(`<li class="poly-card">
		<a class="poly-component__title" href="%s">%s</a>
		<span class="andes-money-amount__fraction">%s</span>%s
	</li>`, url, title, price, installments)
}

// sellerDetail builds a detail fragment carrying only a seller name.
func sellerDetail(name string) string {
	return fmt.Sprintf(`<div class="ui-pdp-container">
		<button class="ui-pdp-seller__link-trigger-button"><span>Vendido por</span><span>%s</span></button>
	</div>`, name)
}

// fakeNav scripts navigator behavior per term.
type fakeNav struct {
	pages       map[string][][]string // term -> successive result pages
	blockOnPage map[string]int        // term -> 1-based page that raises ErrBlocked
	searchErrs  map[string]error      // term -> forced search failure
	details     map[string]string     // url -> detail fragment
	detailErrs  map[string]error      // url -> forced error

	term        string
	pageIdx     int
	detailCalls []string
}

func (f *fakeNav) LoadSearch(_ context.Context, term string) ([]string, error) {
	f.term = term
	f.pageIdx = 1
	if err, ok := f.searchErrs[term]; ok {
		return nil, err
	}
	if f.blockOnPage[term] == 1 {
		return nil, types.ErrBlocked
	}
	pages := f.pages[term]
	if len(pages) == 0 {
		return nil, nil
	}
	return pages[0], nil
}

func (f *fakeNav) NextPage(_ context.Context) ([]string, error) {
	f.pageIdx++
	if f.blockOnPage[f.term] == f.pageIdx {
		return nil, types.ErrBlocked
	}
	pages := f.pages[f.term]
	if f.pageIdx > len(pages) {
		return nil, types.ErrPageEnd
	}
	return pages[f.pageIdx-1], nil
}

func (f *fakeNav) LoadDetail(_ context.Context, url string) (string, error) {
	f.detailCalls = append(f.detailCalls, url)
	if err, ok := f.detailErrs[url]; ok {
		return "", err
	}
	return f.details[url], nil
}

func testConfig(desired int) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Collect.DesiredCount = desired
	cfg.Pacing = config.PacingConfig{
		BetweenTerms: config.DelayRange{Min: time.Millisecond, Max: 2 * time.Millisecond},
		BetweenPages: config.DelayRange{Min: time.Millisecond, Max: 2 * time.Millisecond},
		BeforeDetail: config.DelayRange{Min: time.Millisecond, Max: 2 * time.Millisecond},
	}
	return cfg
}

func TestDedupKeepsFirstPosition(t *testing.T) {
	nav := &fakeNav{
		pages: map[string][][]string{
			"cabo usb": {
				{
					card("https://x.com/p/1", "Cabo A", "10", false),
					card("https://x.com/p/2", "Cabo B", "20", false),
				},
				{
					// Pinned sponsored repeat of p/1 plus a new item.
					card("https://x.com/p/1", "Cabo A", "10", false),
					card("https://x.com/p/3", "Cabo C", "30", false),
				},
			},
		},
	}

	cfg := testConfig(10)
	c := New(nav, cfg, pacing.New(cfg.Pacing, testLogger), testLogger)

	table, summary, err := c.Run(context.Background(), []string{"cabo usb"})
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	if len(table) != 3 {
		t.Fatalf("expected 3 deduplicated rows, got %d", len(table))
	}
	for i, wantURL := range []string{"https://x.com/p/1", "https://x.com/p/2", "https://x.com/p/3"} {
		if table[i].URL != wantURL {
			t.Errorf("row %d url = %q, want %q", i, table[i].URL, wantURL)
		}
		if table[i].Position != i+1 {
			t.Errorf("row %d position = %d, want %d (first occurrence)", i, table[i].Position, i+1)
		}
	}
	if summary.RecordsCollected != 3 {
		t.Errorf("summary records = %d, want 3", summary.RecordsCollected)
	}
}

func TestEndToEndUndercut(t *testing.T) {
	nav := &fakeNav{
		pages: map[string][][]string{
			"mouse gamer": {{
				card("https://x.com/p/own", "Mouse Gamer Pro", "150,00", true),
				card("https://x.com/p/comp", "Mouse Gamer Eco", "140,00", false),
			}},
		},
		details: map[string]string{
			"https://x.com/p/own":  sellerDetail("LojaPropria"),
			"https://x.com/p/comp": sellerDetail("Concorrente X"),
		},
	}

	cfg := testConfig(2)
	cfg.Stores.Own = []string{"LojaPropria"}
	c := New(nav, cfg, pacing.New(cfg.Pacing, testLogger), testLogger)

	table, _, err := c.Run(context.Background(), []string{"mouse gamer"})
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	if len(table) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(table))
	}

	own, comp := table[0], table[1]
	if !own.OwnStore || own.UndercutByCompetitor {
		t.Errorf("own row misclassified: own=%v undercut=%v", own.OwnStore, own.UndercutByCompetitor)
	}
	if comp.OwnStore {
		t.Error("competitor row classified as own store")
	}
	if !comp.UndercutByCompetitor {
		t.Error("140.00 against own 150.00 must be flagged as undercut")
	}
	if comp.MinOwnPrice == nil || *comp.MinOwnPrice != 150.00 {
		t.Errorf("min own price = %v, want 150.00", comp.MinOwnPrice)
	}
	if own.AdTier != types.AdTierPremium || comp.AdTier != types.AdTierClassic {
		t.Errorf("ad tiers = %q/%q", own.AdTier, comp.AdTier)
	}
}

func TestBlockedMidPaginationKeepsPartial(t *testing.T) {
	nav := &fakeNav{
		pages: map[string][][]string{
			"blocked term": {
				{
					card("https://x.com/p/1", "A", "10", false),
					card("https://x.com/p/2", "B", "20", false),
				},
				// page 2 never renders: block fires there
			},
			"ok term": {{
				card("https://x.com/p/9", "Z", "90", false),
			}},
		},
		blockOnPage: map[string]int{"blocked term": 2},
	}

	cfg := testConfig(6) // forces pagination past page 1
	c := New(nav, cfg, pacing.New(cfg.Pacing, testLogger), testLogger)

	var blockedWarnings []types.Warning
	c.warn = func(w types.Warning) {
		if w.Kind == "blocked" {
			blockedWarnings = append(blockedWarnings, w)
		}
	}

	table, summary, err := c.Run(context.Background(), []string{"blocked term", "ok term"})
	if err != nil {
		t.Fatalf("a single blocked term must not abort the run: %v", err)
	}

	if len(table) != 3 {
		t.Fatalf("expected 2 partial + 1 rows, got %d", len(table))
	}
	if table[0].SearchTerm != "blocked term" || table[2].SearchTerm != "ok term" {
		t.Error("run did not continue to the next term after the block")
	}
	if len(blockedWarnings) != 1 {
		t.Fatalf("expected exactly 1 blocked warning, got %d", len(blockedWarnings))
	}
	if blockedWarnings[0].Term != "blocked term" {
		t.Errorf("warning term = %q", blockedWarnings[0].Term)
	}
	if len(summary.BlockedTerms) != 1 || summary.BlockedTerms[0] != "blocked term" {
		t.Errorf("summary blocked terms = %v", summary.BlockedTerms)
	}
	// Blocked during pagination: enrichment for that term is skipped.
	for _, u := range nav.detailCalls {
		if u == "https://x.com/p/1" || u == "https://x.com/p/2" {
			t.Errorf("detail fetched for blocked term: %s", u)
		}
	}
}

func TestPartialEnrichmentKeepsRecord(t *testing.T) {
	nav := &fakeNav{
		pages: map[string][][]string{
			"fone": {{
				card("https://x.com/p/good", "Fone A", "100", false),
				card("https://x.com/p/bad", "Fone B", "90", false),
			}},
		},
		details: map[string]string{
			"https://x.com/p/good": sellerDetail("AlgumaLoja"),
		},
		detailErrs: map[string]error{
			"https://x.com/p/bad": &types.DetailError{URL: "https://x.com/p/bad", Attempts: 3, Err: errors.New("render timeout")},
		},
	}

	cfg := testConfig(2)
	c := New(nav, cfg, pacing.New(cfg.Pacing, testLogger), testLogger)

	table, summary, err := c.Run(context.Background(), []string{"fone"})
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	if len(table) != 2 {
		t.Fatalf("abandoned detail must not drop the record; got %d rows", len(table))
	}

	good, bad := table[0], table[1]
	if !good.Enriched || good.Detail.SellerName != "AlgumaLoja" {
		t.Errorf("good row: enriched=%v seller=%q", good.Enriched, good.Detail.SellerName)
	}
	if bad.Enriched || bad.Detail.SellerName != "" {
		t.Errorf("bad row must keep empty detail fields, got %+v", bad.Detail)
	}
	if summary.Abandoned != 1 {
		t.Errorf("summary abandoned = %d, want 1", summary.Abandoned)
	}
}

func TestSearchFailureWarnsAsNavigation(t *testing.T) {
	nav := &fakeNav{
		searchErrs: map[string]error{
			"broken term": errors.New("net::ERR_CONNECTION_RESET"),
		},
		pages: map[string][][]string{
			"ok term": {{card("https://x.com/p/9", "Z", "90", false)}},
		},
	}

	cfg := testConfig(1)
	c := New(nav, cfg, pacing.New(cfg.Pacing, testLogger), testLogger)

	var warnings []types.Warning
	c.warn = func(w types.Warning) { warnings = append(warnings, w) }

	table, summary, err := c.Run(context.Background(), []string{"broken term", "ok term"})
	if err != nil {
		t.Fatalf("a failed search must not abort the run: %v", err)
	}
	if len(table) != 1 || table[0].SearchTerm != "ok term" {
		t.Fatalf("expected only the healthy term's row, got %d rows", len(table))
	}
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(warnings))
	}
	if warnings[0].Kind != "navigation" {
		t.Errorf("warning kind = %q, want navigation", warnings[0].Kind)
	}
	if len(summary.BlockedTerms) != 0 {
		t.Errorf("a navigation failure is not a block: %v", summary.BlockedTerms)
	}
}

func TestConsecutiveBlockThresholdAbortsRun(t *testing.T) {
	nav := &fakeNav{
		blockOnPage: map[string]int{"a": 1, "b": 1},
		pages:       map[string][][]string{},
	}

	cfg := testConfig(2)
	cfg.Collect.BlockThreshold = 2
	c := New(nav, cfg, pacing.New(cfg.Pacing, testLogger), testLogger)

	_, summary, err := c.Run(context.Background(), []string{"a", "b", "never reached"})
	if !errors.Is(err, types.ErrBlocked) {
		t.Fatalf("expected ErrBlocked after threshold, got %v", err)
	}
	if summary.TermsProcessed != 2 {
		t.Errorf("terms processed = %d, want 2", summary.TermsProcessed)
	}
	if len(summary.BlockedTerms) != 2 {
		t.Errorf("blocked terms = %v", summary.BlockedTerms)
	}
}

func TestStopSignalReturnsFinalizedRows(t *testing.T) {
	nav := &fakeNav{
		pages: map[string][][]string{
			"first":  {{card("https://x.com/p/1", "A", "10", false)}},
			"second": {{card("https://x.com/p/2", "B", "20", false)}},
		},
	}

	cfg := testConfig(1)
	c := New(nav, cfg, pacing.New(cfg.Pacing, testLogger), testLogger)

	ctx, cancel := context.WithCancel(context.Background())
	c.progress = func(p types.Progress) {
		if p.Term == "first" && p.Status == "done" {
			cancel()
		}
	}

	table, _, err := c.Run(ctx, []string{"first", "second"})
	if err != nil {
		t.Fatalf("cooperative stop must not return an error, got %v", err)
	}
	if len(table) != 1 || table[0].SearchTerm != "first" {
		t.Errorf("expected only the finalized first-term row, got %d rows", len(table))
	}
}
