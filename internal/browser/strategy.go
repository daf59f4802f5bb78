package browser

import (
	"context"
	"fmt"
	"strings"
)

// MatchKind selects how a Matcher finds elements.
type MatchKind string

const (
	MatchCSS         MatchKind = "css"
	MatchText        MatchKind = "text"
	MatchPlaceholder MatchKind = "placeholder"
	MatchLabel       MatchKind = "label"
)

// Matcher is one way of finding elements.
//
// Text, placeholder and label matchers compare whitespace-normalized strings.
// When Exact is false the comparison is a case-insensitive substring match.
type Matcher struct {
	Kind  MatchKind
	Value string
	Exact bool
}

// CSS matches a CSS selector.
func CSS(selector string) Matcher {
	return Matcher{Kind: MatchCSS, Value: selector}
}

// Text matches elements whose visible text contains s, ignoring case.
func Text(s string) Matcher {
	return Matcher{Kind: MatchText, Value: s}
}

// ExactText matches elements whose whole visible text is s.
func ExactText(s string) Matcher {
	return Matcher{Kind: MatchText, Value: s, Exact: true}
}

// Placeholder matches inputs by their placeholder attribute.
func Placeholder(s string) Matcher {
	return Matcher{Kind: MatchPlaceholder, Value: s, Exact: true}
}

// Label matches form controls by aria-label or an associated <label>.
func Label(s string) Matcher {
	return Matcher{Kind: MatchLabel, Value: s, Exact: true}
}

func (m Matcher) String() string {
	if m.Exact && m.Kind != MatchCSS {
		return fmt.Sprintf("%s=%q", m.Kind, m.Value)
	}
	return fmt.Sprintf("%s:%s", m.Kind, m.Value)
}

// MatchString reports whether s satisfies a text-like matcher.
func (m Matcher) MatchString(s string) bool {
	got := NormalizeSpace(s)
	want := NormalizeSpace(m.Value)
	if want == "" {
		return false
	}
	if m.Exact {
		return got == want
	}
	return strings.Contains(strings.ToLower(got), strings.ToLower(want))
}

// NormalizeSpace collapses runs of whitespace and trims the result.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Strategy is an ordered list of fallback matchers. The first matcher that
// finds at least one element wins.
type Strategy []Matcher

func (s Strategy) String() string {
	parts := make([]string, len(s))
	for i, m := range s {
		parts[i] = m.String()
	}
	return strings.Join(parts, " | ")
}

// Find returns a lazy locator over strategy. Each call on it walks the
// matchers again, so it follows the DOM as it changes.
func Find(session Session, strategy Strategy) Locator {
	return &strategyLocator{session: session, strategy: strategy}
}

type strategyLocator struct {
	session  Session
	strategy Strategy
	first    bool
}

// resolve returns the winning locator and its match count. A failing matcher
// aborts resolution rather than falling through to the next one.
func (l *strategyLocator) resolve(ctx context.Context) (Locator, int, error) {
	for _, m := range l.strategy {
		loc := l.session.Locate(m)
		n, err := loc.Count(ctx)
		if err != nil {
			return nil, 0, fmt.Errorf("locate %s: %w", m, err)
		}
		if n == 0 {
			continue
		}
		if l.first {
			return loc.First(), 1, nil
		}
		return loc, n, nil
	}
	return nil, 0, nil
}

func (l *strategyLocator) target(ctx context.Context) (Locator, error) {
	loc, n, err := l.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, l.strategy)
	}
	return loc, nil
}

func (l *strategyLocator) Count(ctx context.Context) (int, error) {
	_, n, err := l.resolve(ctx)
	return n, err
}

func (l *strategyLocator) First() Locator {
	return &strategyLocator{session: l.session, strategy: l.strategy, first: true}
}

func (l *strategyLocator) Fill(ctx context.Context, text string) error {
	loc, err := l.target(ctx)
	if err != nil {
		return err
	}
	return loc.Fill(ctx, text)
}

func (l *strategyLocator) Click(ctx context.Context) error {
	loc, err := l.target(ctx)
	if err != nil {
		return err
	}
	return loc.Click(ctx)
}

func (l *strategyLocator) Press(ctx context.Context, key string) error {
	loc, err := l.target(ctx)
	if err != nil {
		return err
	}
	return loc.Press(ctx, key)
}

func (l *strategyLocator) InnerText(ctx context.Context) (string, error) {
	loc, err := l.target(ctx)
	if err != nil {
		return "", err
	}
	return loc.InnerText(ctx)
}
