// Package browsertest provides a fault-injecting browser.Session decorator
// and a call journal for asserting on the order of driver operations.
package browsertest

import (
	"context"
	"fmt"
	"strings"

	"github.com/themizzi/storecheck/internal/browser"
)

// Op names a driver operation.
type Op string

const (
	OpNavigate  Op = "navigate"
	OpLoadState Op = "wait"
	OpPressKey  Op = "presskey"
	OpCount     Op = "count"
	OpFill      Op = "fill"
	OpClick     Op = "click"
	OpPress     Op = "press"
	OpInnerText Op = "innertext"
)

// MatchFunc selects the matchers a fault applies to.
type MatchFunc func(browser.Matcher) bool

// AnyMatcher matches every matcher.
func AnyMatcher(browser.Matcher) bool { return true }

// ValueContains matches matchers whose value contains substr.
func ValueContains(substr string) MatchFunc {
	return func(m browser.Matcher) bool {
		return strings.Contains(m.Value, substr)
	}
}

// KindIs matches matchers of the given kind.
func KindIs(kind browser.MatchKind) MatchFunc {
	return func(m browser.Matcher) bool {
		return m.Kind == kind
	}
}

type fault struct {
	op    Op
	match MatchFunc
	err   error
}

// Faulty wraps a Session, failing selected operations and recording every
// call in Journal.
type Faulty struct {
	inner   browser.Session
	faults  []fault
	Journal []string
}

// Wrap decorates inner.
func Wrap(inner browser.Session) *Faulty {
	return &Faulty{inner: inner}
}

// Fail makes every session-level op fail with err.
func (f *Faulty) Fail(op Op, err error) *Faulty {
	f.faults = append(f.faults, fault{op: op, err: err})
	return f
}

// FailLocator makes the listed locator ops fail with err for matchers
// selected by match. With no ops every locator op fails.
func (f *Faulty) FailLocator(match MatchFunc, err error, ops ...Op) *Faulty {
	if len(ops) == 0 {
		ops = []Op{OpCount, OpFill, OpClick, OpPress, OpInnerText}
	}
	for _, op := range ops {
		f.faults = append(f.faults, fault{op: op, match: match, err: err})
	}
	return f
}

func (f *Faulty) check(op Op, m *browser.Matcher) error {
	for _, ft := range f.faults {
		if ft.op != op {
			continue
		}
		if m == nil && ft.match == nil {
			return ft.err
		}
		if m != nil && ft.match != nil && ft.match(*m) {
			return ft.err
		}
	}
	return nil
}

func (f *Faulty) record(op Op, arg string) {
	f.Journal = append(f.Journal, fmt.Sprintf("%s %s", op, arg))
}

// Index returns the position of the first journal entry with the prefix, or -1.
func (f *Faulty) Index(prefix string) int {
	for i, entry := range f.Journal {
		if strings.HasPrefix(entry, prefix) {
			return i
		}
	}
	return -1
}

func (f *Faulty) Navigate(ctx context.Context, url string) error {
	f.record(OpNavigate, url)
	if err := f.check(OpNavigate, nil); err != nil {
		return err
	}
	return f.inner.Navigate(ctx, url)
}

func (f *Faulty) WaitForLoadState(ctx context.Context, state browser.LoadState) error {
	f.record(OpLoadState, string(state))
	if err := f.check(OpLoadState, nil); err != nil {
		return err
	}
	return f.inner.WaitForLoadState(ctx, state)
}

func (f *Faulty) Locate(m browser.Matcher) browser.Locator {
	return &locator{faulty: f, matcher: m, inner: f.inner.Locate(m)}
}

func (f *Faulty) PressKey(ctx context.Context, key string) error {
	f.record(OpPressKey, key)
	if err := f.check(OpPressKey, nil); err != nil {
		return err
	}
	return f.inner.PressKey(ctx, key)
}

func (f *Faulty) URL() string {
	return f.inner.URL()
}

func (f *Faulty) Close() error {
	return f.inner.Close()
}

type locator struct {
	faulty  *Faulty
	matcher browser.Matcher
	inner   browser.Locator
}

func (l *locator) guard(op Op) error {
	l.faulty.record(op, l.matcher.String())
	return l.faulty.check(op, &l.matcher)
}

func (l *locator) Count(ctx context.Context) (int, error) {
	if err := l.guard(OpCount); err != nil {
		return 0, err
	}
	return l.inner.Count(ctx)
}

func (l *locator) First() browser.Locator {
	return &locator{faulty: l.faulty, matcher: l.matcher, inner: l.inner.First()}
}

func (l *locator) Fill(ctx context.Context, text string) error {
	if err := l.guard(OpFill); err != nil {
		return err
	}
	return l.inner.Fill(ctx, text)
}

func (l *locator) Click(ctx context.Context) error {
	if err := l.guard(OpClick); err != nil {
		return err
	}
	return l.inner.Click(ctx)
}

func (l *locator) Press(ctx context.Context, key string) error {
	if err := l.guard(OpPress); err != nil {
		return err
	}
	return l.inner.Press(ctx, key)
}

func (l *locator) InnerText(ctx context.Context) (string, error) {
	if err := l.guard(OpInnerText); err != nil {
		return "", err
	}
	return l.inner.InnerText(ctx)
}
