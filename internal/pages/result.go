package pages

import (
	"errors"
	"fmt"

	"github.com/themizzi/storecheck/internal/browser"
)

// Outcome is what a best-effort filter step actually did.
type Outcome string

const (
	OutcomeApplied         Outcome = "applied"
	OutcomeSkippedNotFound Outcome = "skipped-not-found"
	OutcomeSkippedError    Outcome = "skipped-error"
)

// FilterResult reports a best-effort filter. Err is always set for
// OutcomeSkippedError; an applied filter may carry the error of the wait
// that followed it. Err is never returned to the caller as an error.
type FilterResult struct {
	Outcome Outcome
	Detail  string
	Err     error
}

// Applied reports whether the filter took effect.
func (r FilterResult) Applied() bool {
	return r.Outcome == OutcomeApplied
}

func (r FilterResult) String() string {
	if r.Err != nil {
		return fmt.Sprintf("%s: %s: %v", r.Outcome, r.Detail, r.Err)
	}
	return fmt.Sprintf("%s: %s", r.Outcome, r.Detail)
}

func applied(format string, args ...any) FilterResult {
	return FilterResult{Outcome: OutcomeApplied, Detail: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...any) FilterResult {
	return FilterResult{Outcome: OutcomeSkippedNotFound, Detail: fmt.Sprintf(format, args...)}
}

// skipped classifies err. A missing element is not an error in its own right.
func skipped(detail string, err error) FilterResult {
	if errors.Is(err, browser.ErrNotFound) {
		return FilterResult{Outcome: OutcomeSkippedNotFound, Detail: detail}
	}
	return FilterResult{Outcome: OutcomeSkippedError, Detail: detail, Err: err}
}
