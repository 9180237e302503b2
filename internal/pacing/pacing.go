// Package pacing produces randomized delays and humanized interaction
// patterns to keep the browsing session's traffic signature irregular.
package pacing

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/rbarroso/mlwatch/internal/config"
)

// Kind names a pacing boundary.
type Kind string

const (
	BetweenTerms Kind = "between_terms"
	BetweenPages Kind = "between_pages"
	BeforeDetail Kind = "before_detail"
)

// minimalDelay is the degraded fallback when a range is missing or a
// scroll fails; pacing must never stop the run.
const minimalDelay = 200 * time.Millisecond

// Pacer draws delays from per-kind configured ranges.
type Pacer struct {
	ranges map[Kind]config.DelayRange
	scroll bool
	logger *slog.Logger
}

// New creates a Pacer from the pacing configuration.
func New(cfg config.PacingConfig, logger *slog.Logger) *Pacer {
	return &Pacer{
		ranges: map[Kind]config.DelayRange{
			BetweenTerms: cfg.BetweenTerms,
			BetweenPages: cfg.BetweenPages,
			BeforeDetail: cfg.BeforeDetail,
		},
		scroll: cfg.Scroll,
		logger: logger.With("component", "pacer"),
	}
}

// Delay suspends the caller for a random duration drawn from the range
// configured for kind. Unknown kinds and empty ranges degrade to a
// fixed minimal delay. Context cancellation cuts the wait short; Delay
// never returns an error.
func (p *Pacer) Delay(ctx context.Context, kind Kind) {
	d := p.Duration(kind)
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}

// Duration returns the delay Delay would sleep for, without sleeping.
func (p *Pacer) Duration(kind Kind) time.Duration {
	r, ok := p.ranges[kind]
	if !ok {
		p.logger.Warn("unknown pacing kind, using minimal delay", "kind", string(kind))
		return minimalDelay
	}
	return randomBetween(r.Min, r.Max)
}

// Scroll issues incremental wheel movements with randomized step sizes
// and pauses, triggering lazy-loaded content and mimicking a reader.
// On an already-scrolled page the extra wheel events are harmless.
// Failures are logged and degrade to a minimal pause, never propagated.
func (p *Pacer) Scroll(page *rod.Page) {
	if !p.scroll || page == nil {
		return
	}

	total := 1500 + rand.IntN(1500)
	scrolled := 0
	for scrolled < total {
		step := 120 + rand.IntN(180) + rand.IntN(61) - 30
		if step < 1 {
			step = 1
		}
		if err := page.Mouse.Scroll(0, float64(step), 1); err != nil {
			p.logger.Debug("scroll failed, degrading to minimal pause", "error", err)
			time.Sleep(minimalDelay)
			return
		}
		scrolled += step
		time.Sleep(randomBetween(200*time.Millisecond, 600*time.Millisecond))
	}
}

// MoveMouse drifts the cursor through a few random points inside the
// viewport, the way a reader's hand idles while scanning a page.
// Failures are logged and never propagated.
func (p *Pacer) MoveMouse(page *rod.Page, width, height int) {
	if !p.scroll || page == nil || width < 100 || height < 200 {
		return
	}

	moves := 2 + rand.IntN(4)
	for i := 0; i < moves; i++ {
		x := float64(30 + rand.IntN(width-60))
		y := float64(80 + rand.IntN(height-160))
		if err := page.Mouse.MoveLinear(proto.Point{X: x, Y: y}, 10+rand.IntN(21)); err != nil {
			p.logger.Debug("mouse move failed", "error", err)
			return
		}
		time.Sleep(randomBetween(50*time.Millisecond, 250*time.Millisecond))
	}
}

// MiniPause occasionally inserts a short extra pause, like a reader
// lingering on a page. Fires roughly a quarter of the time.
func (p *Pacer) MiniPause() {
	if rand.Float64() < 0.25 {
		time.Sleep(randomBetween(800*time.Millisecond, 2*time.Second))
	}
}

func randomBetween(min, max time.Duration) time.Duration {
	if min >= max {
		if min <= 0 {
			return minimalDelay
		}
		return min
	}
	return min + time.Duration(rand.Int64N(int64(max-min)))
}
