// Package browser defines the automation contract the page objects are
// written against. Drivers in the subpackages adapt a concrete engine to it.
package browser

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by locator actions when nothing matches.
var ErrNotFound = errors.New("element not found")

// LoadState is the document readiness a session can wait for.
type LoadState string

const (
	LoadStateDOMContentLoaded LoadState = "domcontentloaded"
	LoadStateLoad             LoadState = "load"
	LoadStateNetworkIdle      LoadState = "networkidle"
)

// Key names accepted by Press and PressKey.
const (
	KeyEnter  = "Enter"
	KeyTab    = "Tab"
	KeyEscape = "Escape"
)

// Session is a single browser tab. It is not safe for concurrent use.
type Session interface {
	// Navigate loads url and returns once the DOM is parsed.
	Navigate(ctx context.Context, url string) error
	WaitForLoadState(ctx context.Context, state LoadState) error
	// Locate returns a lazy locator; nothing is queried until it is used.
	Locate(m Matcher) Locator
	// PressKey presses key on whatever element currently has focus.
	PressKey(ctx context.Context, key string) error
	URL() string
	Close() error
}

// Locator is a live query. Every call re-evaluates it against the current DOM.
type Locator interface {
	Count(ctx context.Context) (int, error)
	First() Locator
	Fill(ctx context.Context, text string) error
	Click(ctx context.Context) error
	Press(ctx context.Context, key string) error
	InnerText(ctx context.Context) (string, error)
}

// LaunchOptions configures a driver-backed session.
type LaunchOptions struct {
	Browser           string
	Headless          bool
	SlowMo            time.Duration
	ViewportWidth     int
	ViewportHeight    int
	ActionTimeout     time.Duration
	NavigationTimeout time.Duration
}

// Pause blocks for d or until ctx is done.
func Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
