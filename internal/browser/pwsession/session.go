// Package pwsession implements browser.Session on top of playwright-go.
package pwsession

import (
	"context"
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/themizzi/storecheck/internal/browser"
)

// Session drives one Playwright page.
type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
}

// Launch starts Playwright, launches the configured browser and opens a page.
// The returned session owns all of them.
func Launch(opts browser.LaunchOptions) (*Session, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	browserType, err := selectBrowserType(pw, opts.Browser)
	if err != nil {
		pw.Stop()
		return nil, err
	}

	b, err := browserType.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		SlowMo:   playwright.Float(float64(opts.SlowMo.Milliseconds())),
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	s, err := newSession(b, opts)
	if err != nil {
		b.Close()
		pw.Stop()
		return nil, err
	}
	s.pw = pw
	return s, nil
}

// FromBrowser opens a fresh context and page in an already running browser.
// Closing the session leaves the browser running.
func FromBrowser(b playwright.Browser, opts browser.LaunchOptions) (*Session, error) {
	return newSession(b, opts)
}

func newSession(b playwright.Browser, opts browser.LaunchOptions) (*Session, error) {
	contextOptions := playwright.BrowserNewContextOptions{}
	if opts.ViewportWidth > 0 && opts.ViewportHeight > 0 {
		contextOptions.Viewport = &playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		}
	}

	bctx, err := b.NewContext(contextOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to create context: %w", err)
	}
	if opts.ActionTimeout > 0 {
		bctx.SetDefaultTimeout(float64(opts.ActionTimeout.Milliseconds()))
	}
	if opts.NavigationTimeout > 0 {
		bctx.SetDefaultNavigationTimeout(float64(opts.NavigationTimeout.Milliseconds()))
	}

	page, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	return &Session{
		browser: b,
		context: bctx,
		page:    page,
	}, nil
}

func selectBrowserType(pw *playwright.Playwright, name string) (playwright.BrowserType, error) {
	switch strings.ToLower(name) {
	case "", "chromium", "chrome":
		return pw.Chromium, nil
	case "firefox":
		return pw.Firefox, nil
	case "webkit":
		return pw.WebKit, nil
	default:
		return nil, fmt.Errorf("unknown browser type: %s", name)
	}
}

// Page exposes the underlying page for assertions the contract does not cover.
func (s *Session) Page() playwright.Page {
	return s.page
}

// Navigate goes to url and waits for DOMContentLoaded only.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (s *Session) WaitForLoadState(ctx context.Context, state browser.LoadState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var ls *playwright.LoadState
	switch state {
	case browser.LoadStateLoad:
		ls = playwright.LoadStateLoad
	case browser.LoadStateNetworkIdle:
		ls = playwright.LoadStateNetworkidle
	default:
		ls = playwright.LoadStateDomcontentloaded
	}
	return s.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{State: ls})
}

func (s *Session) Locate(m browser.Matcher) browser.Locator {
	var loc playwright.Locator
	switch m.Kind {
	case browser.MatchText:
		loc = s.page.GetByText(m.Value, playwright.PageGetByTextOptions{Exact: playwright.Bool(m.Exact)})
	case browser.MatchPlaceholder:
		loc = s.page.GetByPlaceholder(m.Value, playwright.PageGetByPlaceholderOptions{Exact: playwright.Bool(m.Exact)})
	case browser.MatchLabel:
		loc = s.page.GetByLabel(m.Value, playwright.PageGetByLabelOptions{Exact: playwright.Bool(m.Exact)})
	default:
		loc = s.page.Locator(m.Value)
	}
	return &locator{loc: loc}
}

func (s *Session) PressKey(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.page.Keyboard().Press(key)
}

func (s *Session) URL() string {
	return s.page.URL()
}

// Close tears down the context, and the browser and driver when owned.
// Errors from targets that are already gone are ignored.
func (s *Session) Close() error {
	var closeErr error
	if s.context != nil {
		if err := s.context.Close(); err != nil && !isClosedErr(err) {
			closeErr = fmt.Errorf("failed to close context: %w", err)
		}
		s.context = nil
	}
	if s.pw == nil {
		return closeErr
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil && !isClosedErr(err) && closeErr == nil {
			closeErr = fmt.Errorf("failed to close browser: %w", err)
		}
		s.browser = nil
	}
	if err := s.pw.Stop(); err != nil && closeErr == nil {
		closeErr = fmt.Errorf("failed to stop playwright: %w", err)
	}
	s.pw = nil
	return closeErr
}

func isClosedErr(err error) bool {
	return strings.Contains(err.Error(), "closed")
}

type locator struct {
	loc playwright.Locator
}

func (l *locator) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return l.loc.Count()
}

func (l *locator) First() browser.Locator {
	return &locator{loc: l.loc.First()}
}

func (l *locator) Fill(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return l.loc.Fill(text)
}

func (l *locator) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return l.loc.Click()
}

func (l *locator) Press(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return l.loc.Press(key)
}

func (l *locator) InnerText(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return l.loc.InnerText()
}
