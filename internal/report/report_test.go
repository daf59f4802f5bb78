package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/themizzi/storecheck/internal/models"
)

func sampleRun(status models.RunStatus) *models.Run {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	run := &models.Run{
		ID:         "run-1",
		Target:     "http://localhost:8080/",
		Driver:     "static",
		Keyword:    "electronics",
		Status:     status,
		State:      models.StateDone,
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
	}
	run.AddStep("open homepage", models.StepPassed, "homepage opened", 120*time.Millisecond)
	run.AddStep("apply brand", models.StepSkipped, "skipped-not-found: no brand filters available", 0)
	run.AddStep("count products", models.StepInfo, "2 products found", 0)
	return run
}

func TestPrinter_RunPassed(t *testing.T) {
	var buf bytes.Buffer

	NewPrinter(&buf, true).Run(sampleRun(models.RunStatusPassed))

	out := buf.String()
	assert.Contains(t, out, "run run-1  static  http://localhost:8080/")
	assert.Contains(t, out, "  ✓  1. open homepage: homepage opened (120ms)")
	assert.Contains(t, out, "  ↷  2. apply brand: skipped-not-found: no brand filters available (0s)")
	assert.Contains(t, out, "  •  3. count products: 2 products found")
	assert.Contains(t, out, "PASSED in 1.5s: 1 passed, 1 skipped, 1 info, 0 failed")
	assert.NotContains(t, out, "\x1b[", "colors must be disabled")
}

func TestPrinter_RunFailed(t *testing.T) {
	run := sampleRun(models.RunStatusFailed)
	run.State = models.StateResultsFiltered
	run.AddStep("validate product count", models.StepFailed, "expected at least one product, got 0", 0)
	run.Error = "expected at least one product, got 0"
	var buf bytes.Buffer

	NewPrinter(&buf, true).Run(run)

	out := buf.String()
	assert.Contains(t, out, "✗  4. validate product count")
	assert.Contains(t, out, `FAILED in 1.5s at state "results-filtered": 1 passed, 1 skipped, 1 info, 1 failed`)
	assert.True(t, strings.HasSuffix(out, "  expected at least one product, got 0\n"))
}

func TestPrinter_RunColored(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)
	p.succ.EnableColor()

	p.Run(sampleRun(models.RunStatusPassed))

	assert.Contains(t, buf.String(), "\x1b[32m")
}

func TestPrinter_History(t *testing.T) {
	passed := sampleRun(models.RunStatusPassed)
	running := sampleRun(models.RunStatusRunning)
	running.ID = "run-2"
	running.FinishedAt = time.Time{}
	var buf bytes.Buffer

	require.NoError(t, NewPrinter(&buf, true).History([]*models.Run{passed, running}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"ID", "STARTED", "DRIVER", "KEYWORD", "STATUS", "STATE", "DURATION"}, strings.Fields(lines[0]))
	row := strings.Fields(lines[1])
	assert.Equal(t, "run-1", row[0])
	assert.Equal(t, []string{"static", "electronics", "passed", "done", "1.5s"}, row[3:])
	assert.Equal(t, "-", strings.Fields(lines[2])[len(row)-1])
}

func TestPrinter_HistoryEmpty(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, NewPrinter(&buf, true).History(nil))
	assert.Equal(t, "no runs recorded\n", buf.String())
}
