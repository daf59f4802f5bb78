// Package docsession implements browser.Session without a browser. Pages are
// fetched over HTTP and queried with goquery; links are followed on click and
// GET forms are submitted on Enter. No JavaScript runs, so it only suits
// server-rendered storefronts such as the fixture in internal/storefront.
package docsession

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/themizzi/storecheck/internal/browser"
)

// Session holds the most recently loaded document.
type Session struct {
	client  *http.Client
	doc     *goquery.Document
	current *url.URL
	focused *goquery.Selection
}

// New returns a session using client, or a client with a 30s timeout when nil.
func New(client *http.Client) *Session {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Session{client: client}
}

// Navigate fetches url, resolved against the current page, and parses it.
// Like a browser it does not treat HTTP error statuses as failures.
func (s *Session) Navigate(ctx context.Context, rawURL string) error {
	target, err := s.resolve(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", rawURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", target, err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", target, err)
	}

	s.doc = doc
	s.current = resp.Request.URL
	s.focused = nil
	return nil
}

func (s *Session) resolve(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if s.current != nil {
		return s.current.ResolveReference(u), nil
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("relative url without a current page")
	}
	return u, nil
}

// WaitForLoadState returns immediately: documents are parsed before Navigate
// returns.
func (s *Session) WaitForLoadState(ctx context.Context, _ browser.LoadState) error {
	return ctx.Err()
}

func (s *Session) Locate(m browser.Matcher) browser.Locator {
	return &locator{session: s, matcher: m}
}

// PressKey sends key to the last filled, clicked or pressed element.
func (s *Session) PressKey(ctx context.Context, key string) error {
	if s.focused == nil || s.focused.Length() == 0 {
		return ctx.Err()
	}
	return s.press(ctx, s.focused, key)
}

func (s *Session) URL() string {
	if s.current == nil {
		return "about:blank"
	}
	return s.current.String()
}

func (s *Session) Close() error {
	s.doc = nil
	s.focused = nil
	return nil
}

func (s *Session) press(ctx context.Context, el *goquery.Selection, key string) error {
	s.focused = el
	if key != browser.KeyEnter {
		return ctx.Err()
	}
	if goquery.NodeName(el) != "input" {
		return ctx.Err()
	}
	form := el.Closest("form")
	if form.Length() == 0 {
		return ctx.Err()
	}
	return s.submit(ctx, form)
}

func (s *Session) click(ctx context.Context, el *goquery.Selection) error {
	s.focused = el

	if link := el.Closest("a[href]"); link.Length() > 0 {
		href, _ := link.Attr("href")
		return s.Navigate(ctx, href)
	}

	tag := goquery.NodeName(el)
	typ := strings.ToLower(el.AttrOr("type", ""))
	switch {
	case tag == "button" && typ != "button" && typ != "reset",
		tag == "input" && (typ == "submit" || typ == "image"):
		if form := el.Closest("form"); form.Length() > 0 {
			return s.submit(ctx, form)
		}
	case tag == "input" && (typ == "checkbox" || typ == "radio"):
		if _, checked := el.Attr("checked"); checked {
			el.RemoveAttr("checked")
		} else {
			el.SetAttr("checked", "checked")
		}
	}
	return ctx.Err()
}

// submit encodes a GET form the way a browser would and navigates to it.
func (s *Session) submit(ctx context.Context, form *goquery.Selection) error {
	method := strings.ToUpper(form.AttrOr("method", http.MethodGet))
	if method != http.MethodGet {
		return fmt.Errorf("unsupported form method %s", method)
	}

	target, err := s.resolve(form.AttrOr("action", ""))
	if err != nil {
		return fmt.Errorf("invalid form action: %w", err)
	}

	values := url.Values{}
	form.Find("input[name], textarea[name], select[name]").Each(func(_ int, field *goquery.Selection) {
		name := field.AttrOr("name", "")
		switch goquery.NodeName(field) {
		case "textarea":
			values.Add(name, field.Text())
			return
		case "select":
			opt := field.Find("option[selected]").First()
			if opt.Length() == 0 {
				opt = field.Find("option").First()
			}
			values.Add(name, opt.AttrOr("value", opt.Text()))
			return
		}

		switch strings.ToLower(field.AttrOr("type", "text")) {
		case "submit", "button", "image", "reset", "file":
			return
		case "checkbox", "radio":
			if _, checked := field.Attr("checked"); !checked {
				return
			}
			values.Add(name, field.AttrOr("value", "on"))
		default:
			values.Add(name, field.AttrOr("value", ""))
		}
	})

	target.RawQuery = values.Encode()
	target.Fragment = ""
	return s.Navigate(ctx, target.String())
}

var skipTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

func (s *Session) find(m browser.Matcher) *goquery.Selection {
	if s.doc == nil {
		return &goquery.Selection{}
	}

	switch m.Kind {
	case browser.MatchText:
		return s.doc.Find("body *").FilterFunction(func(_ int, el *goquery.Selection) bool {
			if skipTags[goquery.NodeName(el)] || !m.MatchString(el.Text()) {
				return false
			}
			inner := el.Children().FilterFunction(func(_ int, c *goquery.Selection) bool {
				return !skipTags[goquery.NodeName(c)] && m.MatchString(c.Text())
			})
			return inner.Length() == 0
		})
	case browser.MatchPlaceholder:
		return s.doc.Find("[placeholder]").FilterFunction(func(_ int, el *goquery.Selection) bool {
			return m.MatchString(el.AttrOr("placeholder", ""))
		})
	case browser.MatchLabel:
		labelled := s.doc.Find("[aria-label]").FilterFunction(func(_ int, el *goquery.Selection) bool {
			return m.MatchString(el.AttrOr("aria-label", ""))
		})
		s.doc.Find("label").Each(func(_ int, lbl *goquery.Selection) {
			if !m.MatchString(lbl.Text()) {
				return
			}
			if id := lbl.AttrOr("for", ""); id != "" {
				labelled = labelled.AddSelection(s.doc.Find("[id]").FilterFunction(func(_ int, el *goquery.Selection) bool {
					return el.AttrOr("id", "") == id
				}))
				return
			}
			labelled = labelled.AddSelection(lbl.Find("input, select, textarea"))
		})
		return labelled
	default:
		return s.doc.Find(m.Value)
	}
}

type locator struct {
	session *Session
	matcher browser.Matcher
	first   bool
}

func (l *locator) selection() *goquery.Selection {
	sel := l.session.find(l.matcher)
	if l.first {
		return sel.First()
	}
	return sel
}

func (l *locator) element() (*goquery.Selection, error) {
	sel := l.selection()
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", browser.ErrNotFound, l.matcher)
	}
	return sel.First(), nil
}

func (l *locator) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return l.selection().Length(), nil
}

func (l *locator) First() browser.Locator {
	return &locator{session: l.session, matcher: l.matcher, first: true}
}

func (l *locator) Fill(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	el, err := l.element()
	if err != nil {
		return err
	}

	switch goquery.NodeName(el) {
	case "textarea":
		el.SetText(text)
	case "input":
		switch strings.ToLower(el.AttrOr("type", "text")) {
		case "checkbox", "radio", "submit", "button", "image", "reset", "file", "hidden":
			return fmt.Errorf("cannot fill input of type %s", el.AttrOr("type", ""))
		}
		el.SetAttr("value", text)
	default:
		return fmt.Errorf("cannot fill <%s> element", goquery.NodeName(el))
	}

	l.session.focused = el
	return nil
}

func (l *locator) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	el, err := l.element()
	if err != nil {
		return err
	}
	return l.session.click(ctx, el)
}

func (l *locator) Press(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	el, err := l.element()
	if err != nil {
		return err
	}
	return l.session.press(ctx, el, key)
}

func (l *locator) InnerText(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	el, err := l.element()
	if err != nil {
		return "", err
	}
	return browser.NormalizeSpace(el.Text()), nil
}
