// Package report renders scenario runs for the terminal.
package report

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/themizzi/storecheck/internal/models"
)

// Step marks.
const (
	PassMark = "✓"
	FailMark = "✗"
	SkipMark = "↷"
	InfoMark = "•"
)

// Printer writes step reports and run history to out.
type Printer struct {
	out   io.Writer
	succ  *color.Color
	fail  *color.Color
	warn  *color.Color
	gray  *color.Color
	value *color.Color
}

// NewPrinter returns a printer. With noColor set it emits plain text.
func NewPrinter(out io.Writer, noColor bool) *Printer {
	p := &Printer{
		out:   out,
		succ:  color.New(color.FgGreen),
		fail:  color.New(color.FgRed),
		warn:  color.New(color.FgYellow),
		gray:  color.New(color.Faint),
		value: color.New(color.FgCyan),
	}
	if noColor {
		for _, c := range []*color.Color{p.succ, p.fail, p.warn, p.gray, p.value} {
			c.DisableColor()
		}
	}
	return p
}

func (p *Printer) stepStyle(status models.StepStatus) (string, *color.Color) {
	switch status {
	case models.StepPassed:
		return PassMark, p.succ
	case models.StepFailed:
		return FailMark, p.fail
	case models.StepSkipped:
		return SkipMark, p.warn
	default:
		return InfoMark, p.value
	}
}

// Run prints the step trace of run followed by a one line verdict.
func (p *Printer) Run(run *models.Run) {
	fmt.Fprintf(p.out, "run %s  %s  %s\n\n",
		p.value.Sprint(run.ID), run.Driver, p.gray.Sprint(run.Target))

	for _, step := range run.Steps {
		mark, c := p.stepStyle(step.Status)
		c.Fprintf(p.out, "  %s %2d. %s", mark, step.Seq, step.Name)
		if step.Detail != "" {
			fmt.Fprintf(p.out, ": %s", step.Detail)
		}
		p.gray.Fprintf(p.out, " (%s)\n", step.Duration.Round(time.Millisecond))
	}
	fmt.Fprintln(p.out)

	summary := fmt.Sprintf("%d passed, %d skipped, %d info, %d failed",
		run.CountSteps(models.StepPassed),
		run.CountSteps(models.StepSkipped),
		run.CountSteps(models.StepInfo),
		run.CountSteps(models.StepFailed),
	)
	elapsed := run.Duration().Round(time.Millisecond)

	switch run.Status {
	case models.RunStatusPassed:
		p.succ.Fprintf(p.out, "PASSED in %s: %s\n", elapsed, summary)
	case models.RunStatusFailed:
		p.fail.Fprintf(p.out, "FAILED in %s at state %q: %s\n", elapsed, run.State, summary)
		fmt.Fprintf(p.out, "  %s\n", run.Error)
	default:
		p.warn.Fprintf(p.out, "RUNNING for %s: %s\n", elapsed, summary)
	}
}

// History prints one line per run, newest first as given.
func (p *Printer) History(runs []*models.Run) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(p.out, "no runs recorded")
		return err
	}

	tw := tabwriter.NewWriter(p.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tDRIVER\tKEYWORD\tSTATUS\tSTATE\tDURATION")
	for _, run := range runs {
		status := string(run.Status)
		switch run.Status {
		case models.RunStatusPassed:
			status = p.succ.Sprint(status)
		case models.RunStatusFailed:
			status = p.fail.Sprint(status)
		}
		duration := "-"
		if !run.FinishedAt.IsZero() {
			duration = run.Duration().Round(time.Millisecond).String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			run.ID,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.Driver,
			run.Keyword,
			status,
			run.State,
			duration,
		)
	}
	return tw.Flush()
}
