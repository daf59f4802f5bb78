package pages

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/themizzi/storecheck/internal/browser"
)

// ErrNoProducts is returned by OpenFirstProduct when the grid is empty.
var ErrNoProducts = errors.New("no products found to open")

// Results page selector strategies.
var (
	ProductCards = browser.Strategy{
		browser.CSS(`a[href*="/products/"]`),
		browser.CSS(`div[data-qa-locator="product-item"] a`),
		browser.CSS(`.info--ifj7U a`),
	}
	BrandRegion = browser.Strategy{
		browser.CSS(`div.c3xV1N a`),
		browser.CSS(`.ant-checkbox-wrapper a`),
	}
	MinPrice = browser.Strategy{
		browser.Placeholder("Min"),
		browser.Label("Minimum Price"),
	}
	MaxPrice = browser.Strategy{
		browser.Placeholder("Max"),
		browser.Label("Maximum Price"),
	}
)

// Settle holds the fixed waits used in place of readiness signals.
type Settle struct {
	Results time.Duration
	Price   time.Duration
	Count   time.Duration
}

// DefaultSettle returns the delays tuned for the live site.
func DefaultSettle() Settle {
	return Settle{
		Results: 4 * time.Second,
		Price:   4 * time.Second,
		Count:   5 * time.Second,
	}
}

// SearchResultsPage is the listing shown after a search.
type SearchResultsPage struct {
	session browser.Session
	settle  Settle
	logger  logrus.FieldLogger
}

// NewSearchResultsPage creates a results page over session.
func NewSearchResultsPage(session browser.Session, settle Settle, logger logrus.FieldLogger) *SearchResultsPage {
	return &SearchResultsPage{session: session, settle: settle, logger: logger}
}

// WaitForResults waits for the DOM and then the results settle delay. It
// fails only when ctx is done.
func (p *SearchResultsPage) WaitForResults(ctx context.Context) error {
	if err := p.session.WaitForLoadState(ctx, browser.LoadStateDOMContentLoaded); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.logger.WithError(err).Warn("Results load state not reached")
	}
	return browser.Pause(ctx, p.settle.Results)
}

// ApplyBrand clicks the first element whose text contains brand. Without
// one it clicks the first entry of the brand facet instead. It never fails;
// the result says what happened. A click followed by a failed load-state
// wait still counts as applied, with the wait error in Err.
func (p *SearchResultsPage) ApplyBrand(ctx context.Context, brand string) FilterResult {
	result := p.clickBrand(ctx, brand)
	if result.Outcome == OutcomeSkippedError {
		p.logger.WithError(result.Err).WithField("brand", brand).Warn("Brand filter failed")
		return result
	}

	if err := p.session.WaitForLoadState(ctx, browser.LoadStateDOMContentLoaded); err != nil {
		p.logger.WithError(err).WithField("brand", brand).Warn("Brand filter did not settle")
		result.Err = err
	}
	return result
}

func (p *SearchResultsPage) clickBrand(ctx context.Context, brand string) FilterResult {
	if brand != "" {
		preferred := p.session.Locate(browser.Text(brand)).First()
		n, err := preferred.Count(ctx)
		if err != nil {
			return skipped(fmt.Sprintf("brand %q", brand), err)
		}
		if n > 0 {
			if err := preferred.Click(ctx); err != nil {
				return skipped(fmt.Sprintf("brand %q", brand), err)
			}
			return applied("brand %q", brand)
		}
	}

	fallback := browser.Find(p.session, BrandRegion).First()
	n, err := fallback.Count(ctx)
	if err != nil {
		return skipped("alternative brand", err)
	}
	if n == 0 {
		return notFound("no brand filters available")
	}
	name, err := fallback.InnerText(ctx)
	if err != nil {
		return skipped("alternative brand", err)
	}
	if err := fallback.Click(ctx); err != nil {
		return skipped(fmt.Sprintf("alternative brand %q", name), err)
	}
	return applied("alternative brand %q", name)
}

// ApplyPriceRange fills the min and max inputs and submits with Enter in
// the max field. Missing inputs skip the step; it never fails.
func (p *SearchResultsPage) ApplyPriceRange(ctx context.Context, minPrice, maxPrice int) FilterResult {
	detail := fmt.Sprintf("price range %d-%d", minPrice, maxPrice)
	result := p.fillPriceRange(ctx, minPrice, maxPrice, detail)
	if !result.Applied() {
		entry := p.logger.WithField("outcome", result.Outcome)
		if result.Err != nil {
			entry = entry.WithError(result.Err)
		}
		entry.Warn("Price range skipped")
	}
	return result
}

func (p *SearchResultsPage) fillPriceRange(ctx context.Context, minPrice, maxPrice int, detail string) FilterResult {
	minInput := browser.Find(p.session, MinPrice).First()
	maxInput := browser.Find(p.session, MaxPrice).First()

	for _, in := range []browser.Locator{minInput, maxInput} {
		n, err := in.Count(ctx)
		if err != nil {
			return skipped(detail, err)
		}
		if n == 0 {
			return notFound("%s: price inputs not available", detail)
		}
	}

	if err := minInput.Fill(ctx, strconv.Itoa(minPrice)); err != nil {
		return skipped(detail, err)
	}
	if err := maxInput.Fill(ctx, strconv.Itoa(maxPrice)); err != nil {
		return skipped(detail, err)
	}
	if err := maxInput.Press(ctx, browser.KeyEnter); err != nil {
		return skipped(detail, err)
	}
	if err := browser.Pause(ctx, p.settle.Price); err != nil {
		return skipped(detail, err)
	}
	return applied("%s", detail)
}

// CountProducts waits the count settle delay and counts the product cards.
func (p *SearchResultsPage) CountProducts(ctx context.Context) (int, error) {
	if err := browser.Pause(ctx, p.settle.Count); err != nil {
		return 0, err
	}
	n, err := browser.Find(p.session, ProductCards).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

// OpenFirstProduct clicks the first product card. An empty grid yields
// ErrNoProducts.
func (p *SearchResultsPage) OpenFirstProduct(ctx context.Context) error {
	cards := browser.Find(p.session, ProductCards)
	n, err := cards.Count(ctx)
	if err != nil {
		return fmt.Errorf("count products: %w", err)
	}
	if n == 0 {
		return ErrNoProducts
	}

	if err := cards.First().Click(ctx); err != nil {
		return fmt.Errorf("open first product: %w", err)
	}
	if err := p.session.WaitForLoadState(ctx, browser.LoadStateDOMContentLoaded); err != nil {
		return fmt.Errorf("wait for product page: %w", err)
	}
	p.logger.WithField("url", p.session.URL()).Debug("Opened first product")
	return nil
}
