// Package browser wraps a single rod browsing session behind the
// navigation operations the collector needs: load a search, paginate,
// open a detail page. One session serves the whole run.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/rbarroso/mlwatch/internal/config"
	"github.com/rbarroso/mlwatch/internal/pacing"
	"github.com/rbarroso/mlwatch/internal/types"
)

// Listing-card and readiness selectors, current plus previous site
// generation.
const (
	selCards         = "li.poly-card, li.ui-search-layout__item"
	selResultsReady  = "main"
	selDetailReady   = "h1.ui-pdp-title, div.ui-pdp-price__second-line"
	selDetailWrapper = "div.ui-pdp-container"

	// First-visit cookie interstitial; its accept button can occlude
	// the results container on a fresh profile.
	selCookieAccept = `button[data-testid="action:understood-button"], ` +
		`.cookie-consent-banner-opt-out__action--key-accept, ` +
		`button.cookie-consent-banner-opt-out__action`
)

// stableWait is the settle window after navigation.
const stableWait = 300 * time.Millisecond

// Session drives one headless browser for the run's duration. It is
// not safe for concurrent use; the collector owns it exclusively.
type Session struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	page     *rod.Page
	profile  browserProfile
	cfg      *config.Config
	pacer    *pacing.Pacer
	logger   *slog.Logger

	// pagination state for the term currently loaded
	term   string
	offset int
}

// New launches a browser and opens a stealth-patched page.
func New(cfg *config.Config, pacer *pacing.Pacer, logger *slog.Logger) (*Session, error) {
	l := launcher.New().
		Headless(cfg.Browser.Headless).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-blink-features", "AutomationControlled")
	if cfg.Browser.Bin != "" {
		l = l.Bin(cfg.Browser.Bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	page, err := stealth.Page(b)
	if err != nil {
		_ = b.Close()
		l.Kill()
		return nil, fmt.Errorf("stealth page: %w", err)
	}

	s := &Session{
		browser:  b,
		launcher: l,
		page:     page,
		profile:  pickProfile(),
		cfg:      cfg,
		pacer:    pacer,
		logger:   logger.With("component", "browser"),
	}

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      s.profile.agent,
		AcceptLanguage: s.profile.locale,
	}); err != nil {
		s.logger.Warn("failed to set user agent", "error", err)
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  s.profile.width,
		Height: s.profile.height,
	}); err != nil {
		s.logger.Warn("failed to set viewport", "error", err)
	}

	s.logger.Info("browser session ready",
		"headless", cfg.Browser.Headless,
		"locale", s.profile.locale,
		"viewport", fmt.Sprintf("%dx%d", s.profile.width, s.profile.height),
	)
	return s, nil
}

// LoadSearch navigates to the search page for term and returns the raw
// listing card fragments. A zero-results page yields an empty slice,
// not an error; a challenge page yields ErrBlocked.
func (s *Session) LoadSearch(ctx context.Context, term string) ([]string, error) {
	s.term = term
	s.offset = 0

	frags, err := s.loadResultsPage(ctx, s.searchURL(term, 0), s.cfg.Browser.SearchRetries)
	if err != nil {
		return nil, err
	}
	s.offset = s.cfg.Site.PageSize
	return frags, nil
}

// NextPage advances pagination for the currently loaded term, pacing
// before the request. It returns ErrPageEnd once results are exhausted.
func (s *Session) NextPage(ctx context.Context) ([]string, error) {
	if s.term == "" {
		return nil, types.ErrNotPaginating
	}

	s.pacer.Delay(ctx, pacing.BetweenPages)

	frags, err := s.loadResultsPage(ctx, s.searchURL(s.term, s.offset), s.cfg.Browser.SearchRetries)
	if err != nil {
		return nil, err
	}
	if len(frags) == 0 {
		return nil, types.ErrPageEnd
	}
	s.offset += s.cfg.Site.PageSize
	return frags, nil
}

// LoadDetail navigates to a product detail page and returns its raw
// fragment. After retry exhaustion the caller gets a DetailError; the
// collector keeps the listing row and moves on.
func (s *Session) LoadDetail(ctx context.Context, pageURL string) (string, error) {
	attempts := s.cfg.Browser.DetailRetries + 1

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if attempt > 1 {
			s.pacer.Delay(ctx, pacing.BeforeDetail)
		}

		html, err := s.navigate(ctx, pageURL, selDetailReady)
		if err != nil {
			if errors.Is(err, types.ErrBlocked) {
				return "", err
			}
			lastErr = err
			s.logger.Warn("detail load failed",
				"url", pageURL, "attempt", attempt, "max", attempts, "error", err)
			continue
		}

		s.pacer.MoveMouse(s.page, s.profile.width, s.profile.height)
		s.pacer.Scroll(s.page)
		s.pacer.MiniPause()

		// Hand back just the detail container when it exists; the full
		// page otherwise, so the extractor still gets a chance.
		if el, err := s.page.Timeout(s.cfg.Browser.NavTimeout).Element(selDetailWrapper); err == nil {
			if frag, err := el.HTML(); err == nil {
				return frag, nil
			}
		}
		return html, nil
	}

	return "", &types.DetailError{URL: pageURL, Attempts: attempts, Err: lastErr}
}

// Close shuts the browser down.
func (s *Session) Close() error {
	err := s.browser.Close()
	s.launcher.Cleanup()
	return err
}

// searchURL builds the escaped listing URL for a term at a result
// offset, using the site's _Desde_ pagination convention.
func (s *Session) searchURL(term string, offset int) string {
	u := s.cfg.Site.SearchBase + url.PathEscape(term)
	if offset > 0 {
		u = fmt.Sprintf("%s_Desde_%d", u, offset+1)
	}
	return u
}

// loadResultsPage navigates to a listing URL with retries and returns
// the card fragments found there.
func (s *Session) loadResultsPage(ctx context.Context, pageURL string, retries int) ([]string, error) {
	attempts := retries + 1

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if attempt > 1 {
			s.pacer.Delay(ctx, pacing.BetweenPages)
		}

		html, err := s.navigate(ctx, pageURL, selResultsReady)
		if err != nil {
			if errors.Is(err, types.ErrBlocked) {
				return nil, err
			}
			lastErr = err
			s.logger.Warn("search load failed",
				"url", pageURL, "attempt", attempt, "max", attempts, "error", err)
			continue
		}

		s.dismissCookieBanner()
		s.pacer.MoveMouse(s.page, s.profile.width, s.profile.height)
		s.pacer.Scroll(s.page)
		s.pacer.MiniPause()

		frags, err := s.cardFragments()
		if err != nil {
			lastErr = err
			continue
		}
		if len(frags) == 0 {
			if !isZeroResults(html) {
				// Card-less but no rescue marker: broken render.
				lastErr = errEmptyRender
				s.logger.Warn("card-less render",
					"url", pageURL, "attempt", attempt, "max", attempts)
				continue
			}
			s.logger.Info("no results for query", "url", pageURL)
			return nil, nil
		}
		return frags, nil
	}

	return nil, fmt.Errorf("load %s: %w", pageURL, lastErr)
}

// navigate opens a URL, waits for it to settle, and returns the
// rendered HTML. ErrBlocked short-circuits retries at the call sites.
func (s *Session) navigate(ctx context.Context, pageURL, readySel string) (string, error) {
	page := s.page.Context(ctx).Timeout(s.cfg.Browser.NavTimeout)

	if err := page.Navigate(pageURL); err != nil {
		return "", fmt.Errorf("navigate: %w", err)
	}
	if err := page.WaitStable(stableWait); err != nil {
		s.logger.Debug("page stability timeout, continuing", "url", pageURL)
	}
	if _, err := page.Element(readySel); err != nil {
		// Readiness element missing: could be a challenge or a broken
		// render; the HTML scan below decides which.
		s.logger.Debug("readiness selector not found", "url", pageURL, "selector", readySel)
	}

	html, err := s.page.HTML()
	if err != nil {
		return "", fmt.Errorf("read page html: %w", err)
	}
	if looksBlocked(html) {
		s.logger.Warn("anti-bot challenge detected", "url", pageURL)
		return "", types.ErrBlocked
	}
	return html, nil
}

// cardFragments snapshots the outer HTML of every listing card on the
// current page.
func (s *Session) cardFragments() ([]string, error) {
	els, err := s.page.Elements(selCards)
	if err != nil {
		return nil, fmt.Errorf("query cards: %w", err)
	}

	frags := make([]string, 0, len(els))
	for _, el := range els {
		frag, err := el.HTML()
		if err != nil {
			s.logger.Debug("card snapshot failed", "error", err)
			continue
		}
		frags = append(frags, frag)
	}
	return frags, nil
}

// errEmptyRender marks a card-less page without the zero-results
// marker; retried like any other failed load.
var errEmptyRender = errors.New("page rendered no listing cards")

// isZeroResults reports whether a card-less page carries the site's
// "nothing matched" rescue markup, as opposed to a broken render.
func isZeroResults(html string) bool {
	return strings.Contains(html, "ui-search-rescue") ||
		strings.Contains(html, "Não há anúncios que coincidam")
}

// dismissCookieBanner accepts the first-visit cookie interstitial when
// it shows up. Absence is the normal case and not an error.
func (s *Session) dismissCookieBanner() {
	el, err := s.page.Timeout(2 * time.Second).Element(selCookieAccept)
	if err != nil {
		return
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		s.logger.Debug("cookie banner click failed", "error", err)
		return
	}
	s.logger.Debug("cookie banner accepted")
}
