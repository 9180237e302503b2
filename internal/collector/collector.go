// Package collector drives the full research pipeline: per search
// term, harvest paginated listings, enrich from detail pages, compare
// prices, and accumulate the result table. One paced browsing session,
// strictly sequential; throughput is deliberately not a goal.
package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rbarroso/mlwatch/internal/compare"
	"github.com/rbarroso/mlwatch/internal/config"
	"github.com/rbarroso/mlwatch/internal/extract"
	"github.com/rbarroso/mlwatch/internal/pacing"
	"github.com/rbarroso/mlwatch/internal/types"
)

// Navigator is the browsing surface the collector drives. The browser
// session implements it; tests substitute fakes.
type Navigator interface {
	// LoadSearch opens the results page for term and returns raw
	// listing fragments; empty means the query matched nothing.
	LoadSearch(ctx context.Context, term string) ([]string, error)

	// NextPage advances pagination, returning ErrPageEnd at the end.
	NextPage(ctx context.Context) ([]string, error)

	// LoadDetail opens a product page and returns its raw fragment.
	LoadDetail(ctx context.Context, url string) (string, error)
}

// Collector orchestrates a run over an ordered term list.
type Collector struct {
	nav      Navigator
	cfg      *config.Config
	pacer    *pacing.Pacer
	own      compare.OwnStoreSet
	logger   *slog.Logger
	progress types.ProgressFunc
	warn     types.WarnFunc
}

// Option configures a Collector.
type Option func(*Collector)

// WithProgress sets the sink for per-term progress events.
func WithProgress(fn types.ProgressFunc) Option {
	return func(c *Collector) { c.progress = fn }
}

// WithWarn sets the sink for recoverable-failure events.
func WithWarn(fn types.WarnFunc) Option {
	return func(c *Collector) { c.warn = fn }
}

// New creates a Collector over a navigator.
func New(nav Navigator, cfg *config.Config, pacer *pacing.Pacer, logger *slog.Logger, opts ...Option) *Collector {
	c := &Collector{
		nav:    nav,
		cfg:    cfg,
		pacer:  pacer,
		own:    compare.NewOwnStoreSet(cfg.Stores.Own),
		logger: logger.With("component", "collector"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run processes every term in order and returns the accumulated result
// table plus a run summary. Per-item and per-term failures are
// isolated; the only mid-run aborts are context cancellation (which
// returns the rows finalized so far with no error) and the
// consecutive-blocked threshold (which returns them with ErrBlocked).
func (c *Collector) Run(ctx context.Context, terms []string) ([]*types.MergedRecord, *types.Summary, error) {
	table := make([]*types.MergedRecord, 0, len(terms)*c.cfg.Collect.DesiredCount)
	summary := &types.Summary{}
	consecutiveBlocked := 0

	for i, term := range terms {
		if ctx.Err() != nil {
			c.logger.Info("run stopped by caller", "terms_done", i)
			c.emitProgress(types.Progress{Term: term, Status: "stopped"})
			return table, summary, nil
		}
		if i > 0 {
			c.pacer.Delay(ctx, pacing.BetweenTerms)
		}

		records, blocked, abandoned := c.collectTerm(ctx, term)

		summary.TermsProcessed++
		summary.RecordsCollected += len(records)
		summary.Abandoned += abandoned
		table = append(table, records...)

		status := "done"
		if blocked {
			status = "blocked"
			summary.BlockedTerms = append(summary.BlockedTerms, term)
			consecutiveBlocked++
			c.emitWarn(types.Warning{
				Term:    term,
				Kind:    "blocked",
				Message: "anti-bot challenge hit; term abandoned with partial results",
			})
		} else {
			consecutiveBlocked = 0
		}

		c.emitProgress(types.Progress{
			Term:      term,
			Status:    status,
			Succeeded: len(records),
			Abandoned: abandoned,
		})

		if blocked && consecutiveBlocked >= c.cfg.Collect.BlockThreshold {
			c.logger.Error("consecutive block threshold reached, aborting run",
				"threshold", c.cfg.Collect.BlockThreshold)
			return table, summary, fmt.Errorf("%d consecutive terms blocked: %w",
				consecutiveBlocked, types.ErrBlocked)
		}
	}

	return table, summary, nil
}

// collectTerm runs the pipeline for a single term. A blocked result
// carries whatever partial records were gathered before the challenge.
func (c *Collector) collectTerm(ctx context.Context, term string) (records []*types.MergedRecord, blocked bool, abandoned int) {
	c.emitProgress(types.Progress{Term: term, Status: "searching"})

	listings, blocked := c.harvestListings(ctx, term)
	if len(listings) == 0 {
		return nil, blocked, 0
	}

	records = make([]*types.MergedRecord, len(listings))
	for i, lst := range listings {
		records[i] = &types.MergedRecord{ListingRecord: lst}
	}

	if !blocked {
		blocked, abandoned = c.enrich(ctx, term, records)
	}

	compare.Annotate(records, c.own)
	return records, blocked, abandoned
}

// harvestListings pages through results for term, extracting and
// deduplicating cards until the desired count is reached or the
// results run out.
func (c *Collector) harvestListings(ctx context.Context, term string) ([]types.ListingRecord, bool) {
	desired := c.cfg.Collect.DesiredCount
	seen := make(map[string]struct{}, desired)
	var listings []types.ListingRecord

	absorb := func(frags []string) {
		for _, frag := range frags {
			if len(listings) >= desired {
				return
			}
			rec, err := extract.Listing(term, frag)
			if err != nil {
				c.logger.Warn("dropping unextractable card", "term", term, "error", err)
				continue
			}
			if _, dup := seen[rec.URL]; dup {
				continue
			}
			seen[rec.URL] = struct{}{}
			rec.Position = len(listings) + 1
			listings = append(listings, rec)
		}
	}

	frags, err := c.nav.LoadSearch(ctx, term)
	if err != nil {
		if errors.Is(err, types.ErrBlocked) {
			return nil, true
		}
		c.emitWarn(types.Warning{Term: term, Kind: "navigation", Message: err.Error()})
		c.logger.Warn("search failed, skipping term", "term", term, "error", err)
		return nil, false
	}
	absorb(frags)

	for len(listings) < desired {
		if ctx.Err() != nil {
			break
		}
		more, err := c.nav.NextPage(ctx)
		if err != nil {
			if errors.Is(err, types.ErrPageEnd) {
				break
			}
			if errors.Is(err, types.ErrBlocked) {
				return listings, true
			}
			c.emitWarn(types.Warning{Term: term, Kind: "navigation", Message: err.Error()})
			break
		}
		if len(more) == 0 {
			break
		}
		absorb(more)
	}

	return listings, false
}

// enrich visits detail pages for the leading records, merging what
// renders and abandoning what does not. A record is never dropped for
// a failed detail page.
func (c *Collector) enrich(ctx context.Context, term string, records []*types.MergedRecord) (blocked bool, abandoned int) {
	limit := c.cfg.Collect.EnrichLimit
	if limit <= 0 || limit > len(records) {
		limit = len(records)
	}

	c.emitProgress(types.Progress{Term: term, Status: "enriching", Succeeded: len(records)})

	for i := 0; i < limit; i++ {
		if ctx.Err() != nil {
			return false, abandoned
		}
		c.pacer.Delay(ctx, pacing.BeforeDetail)

		frag, err := c.nav.LoadDetail(ctx, records[i].URL)
		if err != nil {
			if errors.Is(err, types.ErrBlocked) {
				return true, abandoned
			}
			abandoned++
			c.emitWarn(types.Warning{Term: term, Kind: "detail", Message: err.Error()})
			c.logger.Warn("detail abandoned, keeping listing fields",
				"term", term, "url", records[i].URL, "error", err)
			continue
		}
		records[i].Merge(extract.Detail(frag))
	}

	return false, abandoned
}

func (c *Collector) emitProgress(p types.Progress) {
	if c.progress != nil {
		c.progress(p)
	}
}

func (c *Collector) emitWarn(w types.Warning) {
	if c.warn != nil {
		c.warn(w)
	}
}
