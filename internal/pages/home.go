// Package pages holds the page objects for the storefront under test. Each
// page wraps one browser.Session and the selector strategies for its view.
package pages

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/themizzi/storecheck/internal/browser"
)

// SearchBox is the site-wide search input.
var SearchBox = browser.Strategy{
	browser.CSS(`input[type="search"]`),
}

// HomePage is the site root.
type HomePage struct {
	session browser.Session
	baseURL string
	logger  logrus.FieldLogger
}

// NewHomePage creates a home page rooted at baseURL.
func NewHomePage(session browser.Session, baseURL string, logger logrus.FieldLogger) *HomePage {
	return &HomePage{session: session, baseURL: baseURL, logger: logger}
}

// Open navigates to the root and waits for the DOM only.
func (p *HomePage) Open(ctx context.Context) error {
	p.logger.WithField("url", p.baseURL).Debug("Opening homepage")
	if err := p.session.Navigate(ctx, p.baseURL); err != nil {
		return fmt.Errorf("navigate to %s: %w", p.baseURL, err)
	}
	return nil
}

// Search submits keyword through the search box with the Enter key.
func (p *HomePage) Search(ctx context.Context, keyword string) error {
	if err := browser.Find(p.session, SearchBox).First().Fill(ctx, keyword); err != nil {
		return fmt.Errorf("fill search box: %w", err)
	}
	if err := p.session.PressKey(ctx, browser.KeyEnter); err != nil {
		return fmt.Errorf("submit search: %w", err)
	}
	if err := p.session.WaitForLoadState(ctx, browser.LoadStateDOMContentLoaded); err != nil {
		return fmt.Errorf("wait for search results: %w", err)
	}
	p.logger.WithField("keyword", keyword).Debug("Searched")
	return nil
}
