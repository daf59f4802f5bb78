// Package rodsession implements browser.Session with go-rod driving a
// locally launched Chromium.
package rodsession

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/themizzi/storecheck/internal/browser"
)

const defaultTimeout = 30 * time.Second

// findJS resolves the non-CSS matchers in the page, mirroring
// browser.Matcher.MatchString. For text it keeps the innermost match.
const findJS = `(kind, value, exact) => {
	const norm = (s) => (s || '').replace(/\s+/g, ' ').trim();
	const want = norm(value);
	const matches = (s) => {
		const got = norm(s);
		if (!want) return false;
		return exact ? got === want : got.toLowerCase().includes(want.toLowerCase());
	};
	const skip = new Set(['SCRIPT', 'STYLE', 'NOSCRIPT', 'TEMPLATE']);
	const all = Array.from(document.querySelectorAll('body *')).filter((el) => !skip.has(el.tagName));
	if (kind === 'placeholder') {
		return all.filter((el) => el.hasAttribute('placeholder') && matches(el.getAttribute('placeholder')));
	}
	if (kind === 'label') {
		return all.filter((el) => {
			if (matches(el.getAttribute('aria-label'))) return true;
			return !!el.labels && Array.from(el.labels).some((l) => matches(l.innerText));
		});
	}
	return all.filter((el) => matches(el.innerText) &&
		!Array.from(el.children).some((c) => !skip.has(c.tagName) && matches(c.innerText)));
}`

const domReadyJS = `() => document.readyState !== 'loading'`

const loadedJS = `() => document.readyState === 'complete'`

// Session drives one rod page.
type Session struct {
	launcher      *launcher.Launcher
	browser       *rod.Browser
	page          *rod.Page
	actionTimeout time.Duration
	navTimeout    time.Duration
}

// Launch starts Chromium and opens a blank page sized to the viewport.
func Launch(opts browser.LaunchOptions) (*Session, error) {
	l := launcher.New().
		Headless(opts.Headless).
		Set("no-sandbox").
		Set("disable-gpu")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch Chrome: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if opts.SlowMo > 0 {
		b = b.SlowMotion(opts.SlowMo)
	}
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to Chrome: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		b.Close()
		l.Kill()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	if opts.ViewportWidth > 0 && opts.ViewportHeight > 0 {
		if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             opts.ViewportWidth,
			Height:            opts.ViewportHeight,
			DeviceScaleFactor: 1,
		}); err != nil {
			b.Close()
			l.Kill()
			return nil, fmt.Errorf("failed to set viewport: %w", err)
		}
	}

	return &Session{
		launcher:      l,
		browser:       b,
		page:          page,
		actionTimeout: orDefault(opts.ActionTimeout),
		navTimeout:    orDefault(opts.NavigationTimeout),
	}, nil
}

func orDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return defaultTimeout
	}
	return d
}

func (s *Session) scoped(ctx context.Context, d time.Duration) (*rod.Page, context.CancelFunc) {
	tctx, cancel := context.WithTimeout(ctx, d)
	return s.page.Context(tctx), cancel
}

// Navigate loads url and waits until the document has left the loading state.
func (s *Session) Navigate(ctx context.Context, url string) error {
	p, cancel := s.scoped(ctx, s.navTimeout)
	defer cancel()

	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := p.Wait(rod.Eval(domReadyJS)); err != nil {
		return fmt.Errorf("failed waiting for %s: %w", url, err)
	}
	return nil
}

func (s *Session) WaitForLoadState(ctx context.Context, state browser.LoadState) error {
	p, cancel := s.scoped(ctx, s.navTimeout)
	defer cancel()

	switch state {
	case browser.LoadStateLoad:
		return p.Wait(rod.Eval(loadedJS))
	case browser.LoadStateNetworkIdle:
		p.WaitRequestIdle(500*time.Millisecond, nil, nil, nil)()
		return nil
	default:
		return p.Wait(rod.Eval(domReadyJS))
	}
}

func (s *Session) Locate(m browser.Matcher) browser.Locator {
	return &locator{session: s, matcher: m}
}

func (s *Session) PressKey(ctx context.Context, key string) error {
	k, err := lookupKey(key)
	if err != nil {
		return err
	}
	p, cancel := s.scoped(ctx, s.actionTimeout)
	defer cancel()
	return p.Keyboard.Type(k)
}

func (s *Session) URL() string {
	info, err := s.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (s *Session) Close() error {
	var closeErr error
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			closeErr = fmt.Errorf("failed to close browser: %w", err)
		}
		s.browser = nil
	}
	if s.launcher != nil {
		s.launcher.Cleanup()
		s.launcher = nil
	}
	return closeErr
}

func lookupKey(key string) (input.Key, error) {
	switch key {
	case browser.KeyEnter:
		return input.Enter, nil
	case browser.KeyTab:
		return input.Tab, nil
	case browser.KeyEscape:
		return input.Escape, nil
	default:
		return 0, fmt.Errorf("unsupported key: %s", key)
	}
}

type locator struct {
	session *Session
	matcher browser.Matcher
	first   bool
}

func (l *locator) elements(p *rod.Page) (rod.Elements, error) {
	var (
		els rod.Elements
		err error
	)
	if l.matcher.Kind == browser.MatchCSS {
		els, err = p.Elements(l.matcher.Value)
	} else {
		els, err = p.ElementsByJS(rod.Eval(findJS, string(l.matcher.Kind), l.matcher.Value, l.matcher.Exact))
	}
	if err != nil {
		return nil, err
	}
	if l.first && len(els) > 1 {
		els = els[:1]
	}
	return els, nil
}

func (l *locator) element(ctx context.Context) (*rod.Element, context.CancelFunc, error) {
	p, cancel := l.session.scoped(ctx, l.session.actionTimeout)
	els, err := l.elements(p)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	if len(els) == 0 {
		cancel()
		return nil, nil, fmt.Errorf("%w: %s", browser.ErrNotFound, l.matcher)
	}
	return els[0], cancel, nil
}

func (l *locator) Count(ctx context.Context) (int, error) {
	p, cancel := l.session.scoped(ctx, l.session.actionTimeout)
	defer cancel()

	els, err := l.elements(p)
	if err != nil {
		return 0, err
	}
	return len(els), nil
}

func (l *locator) First() browser.Locator {
	return &locator{session: l.session, matcher: l.matcher, first: true}
}

func (l *locator) Fill(ctx context.Context, text string) error {
	el, cancel, err := l.element(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	if err := el.SelectAllText(); err != nil {
		return err
	}
	return el.Input(text)
}

func (l *locator) Click(ctx context.Context) error {
	el, cancel, err := l.element(ctx)
	if err != nil {
		return err
	}
	defer cancel()
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (l *locator) Press(ctx context.Context, key string) error {
	k, err := lookupKey(key)
	if err != nil {
		return err
	}
	el, cancel, err := l.element(ctx)
	if err != nil {
		return err
	}
	defer cancel()
	return el.Type(k)
}

func (l *locator) InnerText(ctx context.Context) (string, error) {
	el, cancel, err := l.element(ctx)
	if err != nil {
		return "", err
	}
	defer cancel()
	return el.Text()
}
