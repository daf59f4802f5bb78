package models

import (
	"errors"
	"testing"
	"time"
)

func TestNewRun(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		driver  string
		keyword string
		wantErr error
	}{
		{
			name:    "valid run",
			target:  "https://www.daraz.pk/",
			driver:  "playwright",
			keyword: "electronics",
			wantErr: nil,
		},
		{
			name:    "empty target",
			target:  "",
			driver:  "playwright",
			keyword: "electronics",
			wantErr: ErrInvalidTarget,
		},
		{
			name:    "empty driver",
			target:  "https://www.daraz.pk/",
			driver:  "",
			keyword: "electronics",
			wantErr: ErrInvalidDriver,
		},
		{
			name:    "empty keyword",
			target:  "https://www.daraz.pk/",
			driver:  "static",
			keyword: "",
			wantErr: ErrInvalidKeyword,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run, err := NewRun(tt.target, tt.driver, tt.keyword)

			if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Errorf("NewRun() error = %v, wantErr %v", err, tt.wantErr)
				}
				if run != nil {
					t.Error("Expected run to be nil when error occurs")
				}
				return
			}

			if err != nil {
				t.Errorf("NewRun() unexpected error = %v", err)
				return
			}

			if run.ID == "" {
				t.Error("Run ID should not be empty")
			}
			if run.Status != RunStatusRunning {
				t.Errorf("Expected status %s, got %s", RunStatusRunning, run.Status)
			}
			if run.State != "" {
				t.Errorf("Expected no state, got %s", run.State)
			}
			if run.StartedAt.IsZero() {
				t.Error("StartedAt should be set")
			}
		})
	}
}

func TestRun_Reach(t *testing.T) {
	tests := []struct {
		name    string
		status  RunStatus
		from    State
		to      State
		wantErr bool
	}{
		{name: "start at home", status: RunStatusRunning, from: "", to: StateHome},
		{name: "next state", status: RunStatusRunning, from: StateSearched, to: StateResultsFiltered},
		{name: "skip ahead", status: RunStatusRunning, from: StateHome, to: StateDone},
		{name: "cannot go back", status: RunStatusRunning, from: StateProductOpened, to: StateSearched, wantErr: true},
		{name: "cannot repeat", status: RunStatusRunning, from: StateHome, to: StateHome, wantErr: true},
		{name: "unknown state", status: RunStatusRunning, from: StateHome, to: State("checkout"), wantErr: true},
		{name: "finished run", status: RunStatusFailed, from: StateHome, to: StateSearched, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := &Run{ID: "test-id", Status: tt.status, State: tt.from}

			err := run.Reach(tt.to)

			if (err != nil) != tt.wantErr {
				t.Fatalf("Reach() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidStatusTransition) {
					t.Errorf("Expected ErrInvalidStatusTransition, got %v", err)
				}
				if run.State != tt.from {
					t.Errorf("State changed to %s on error", run.State)
				}
				return
			}
			if run.State != tt.to {
				t.Errorf("Expected state %s, got %s", tt.to, run.State)
			}
		})
	}
}

func TestRun_Pass(t *testing.T) {
	tests := []struct {
		name    string
		status  RunStatus
		state   State
		wantErr bool
	}{
		{name: "pass done run", status: RunStatusRunning, state: StateDone},
		{name: "cannot pass unfinished flow", status: RunStatusRunning, state: StateProductOpened, wantErr: true},
		{name: "cannot pass failed run", status: RunStatusFailed, state: StateDone, wantErr: true},
		{name: "cannot pass twice", status: RunStatusPassed, state: StateDone, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := &Run{ID: "test-id", Status: tt.status, State: tt.state}

			err := run.Pass()

			if (err != nil) != tt.wantErr {
				t.Fatalf("Pass() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				if !run.IsPassed() {
					t.Errorf("Expected status %s, got %s", RunStatusPassed, run.Status)
				}
				if run.FinishedAt.IsZero() {
					t.Error("FinishedAt should be set")
				}
			}
		})
	}
}

func TestRun_Fail(t *testing.T) {
	run, err := NewRun("http://localhost/", "static", "electronics")
	if err != nil {
		t.Fatalf("NewRun() unexpected error = %v", err)
	}

	if err := run.Fail(errors.New("navigation timeout")); err != nil {
		t.Fatalf("Fail() unexpected error = %v", err)
	}
	if !run.IsFailed() {
		t.Errorf("Expected status %s, got %s", RunStatusFailed, run.Status)
	}
	if run.Error != "navigation timeout" {
		t.Errorf("Expected error to be recorded, got %q", run.Error)
	}

	if err := run.Fail(errors.New("again")); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Errorf("Expected ErrInvalidStatusTransition failing twice, got %v", err)
	}
	if run.Error != "navigation timeout" {
		t.Errorf("Error overwritten: %q", run.Error)
	}
}

func TestRun_Steps(t *testing.T) {
	run := &Run{ID: "test-id", Status: RunStatusRunning}

	first := run.AddStep("open homepage", StepPassed, "", time.Second)
	run.AddStep("apply brand", StepSkipped, "skipped-not-found", 0)
	last := run.AddStep("check free shipping", StepInfo, "no free shipping", 0)

	if first.Seq != 1 || last.Seq != 3 {
		t.Errorf("Expected sequence 1..3, got %d..%d", first.Seq, last.Seq)
	}
	if len(run.Steps) != 3 {
		t.Fatalf("Expected 3 steps, got %d", len(run.Steps))
	}
	if run.Steps[1].Detail != "skipped-not-found" {
		t.Errorf("Unexpected detail %q", run.Steps[1].Detail)
	}

	counts := map[StepStatus]int{StepPassed: 1, StepSkipped: 1, StepInfo: 1, StepFailed: 0}
	for status, want := range counts {
		if got := run.CountSteps(status); got != want {
			t.Errorf("CountSteps(%s) = %d, want %d", status, got, want)
		}
	}
}

func TestRun_Duration(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	run := &Run{StartedAt: start, FinishedAt: start.Add(90 * time.Second)}

	if got := run.Duration(); got != 90*time.Second {
		t.Errorf("Duration() = %v, want 90s", got)
	}
}
