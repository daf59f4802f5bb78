package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RunStatus represents the overall result of a scenario run
type RunStatus string

// Run statuses
const (
	RunStatusRunning RunStatus = "running"
	RunStatusPassed  RunStatus = "passed"
	RunStatusFailed  RunStatus = "failed"
)

// State is a point in the scenario flow. States are only ever entered in
// the order of States.
type State string

// Scenario states
const (
	StateHome            State = "home"
	StateSearched        State = "searched"
	StateResultsFiltered State = "results-filtered"
	StateProductOpened   State = "product-opened"
	StateDone            State = "done"
)

// States lists the scenario states in order.
var States = []State{StateHome, StateSearched, StateResultsFiltered, StateProductOpened, StateDone}

// StepStatus is the result of a single step
type StepStatus string

// Step statuses
const (
	StepPassed  StepStatus = "passed"
	StepSkipped StepStatus = "skipped"
	StepFailed  StepStatus = "failed"
	StepInfo    StepStatus = "info"
)

// Step is one entry of a run's execution trace
type Step struct {
	Seq      int
	Name     string
	Status   StepStatus
	Detail   string
	Duration time.Duration
}

// Run is a single scenario execution and its step trace
type Run struct {
	ID         string
	Target     string
	Driver     string
	Keyword    string
	Status     RunStatus
	State      State
	Steps      []Step
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Domain errors
var (
	ErrInvalidTarget           = errors.New("run target cannot be empty")
	ErrInvalidDriver           = errors.New("run driver cannot be empty")
	ErrInvalidKeyword          = errors.New("search keyword cannot be empty")
	ErrInvalidStatusTransition = errors.New("invalid run status transition")
)

// NewRun creates a running run with validation
func NewRun(target, driver, keyword string) (*Run, error) {
	if err := validateRunInput(target, driver, keyword); err != nil {
		return nil, err
	}

	return &Run{
		ID:        uuid.New().String(),
		Target:    target,
		Driver:    driver,
		Keyword:   keyword,
		Status:    RunStatusRunning,
		StartedAt: time.Now(),
	}, nil
}

func validateRunInput(target, driver, keyword string) error {
	if target == "" {
		return ErrInvalidTarget
	}
	if driver == "" {
		return ErrInvalidDriver
	}
	if keyword == "" {
		return ErrInvalidKeyword
	}
	return nil
}

// AddStep appends a step and returns it with its sequence number set
func (r *Run) AddStep(name string, status StepStatus, detail string, d time.Duration) Step {
	step := Step{
		Seq:      len(r.Steps) + 1,
		Name:     name,
		Status:   status,
		Detail:   detail,
		Duration: d,
	}
	r.Steps = append(r.Steps, step)
	return step
}

// Reach moves the run to state. Only forward moves are allowed.
func (r *Run) Reach(state State) error {
	if r.Status != RunStatusRunning {
		return fmt.Errorf("%w: cannot reach %s on a %s run", ErrInvalidStatusTransition, state, r.Status)
	}
	next := stateIndex(state)
	if next < 0 {
		return fmt.Errorf("%w: unknown state %q", ErrInvalidStatusTransition, state)
	}
	if next <= stateIndex(r.State) {
		return fmt.Errorf("%w: cannot move from %s to %s", ErrInvalidStatusTransition, r.State, state)
	}

	r.State = state
	return nil
}

func stateIndex(s State) int {
	for i, state := range States {
		if state == s {
			return i
		}
	}
	return -1
}

// Pass marks a run that reached StateDone as passed
func (r *Run) Pass() error {
	if r.Status != RunStatusRunning {
		return fmt.Errorf("%w: cannot pass a %s run", ErrInvalidStatusTransition, r.Status)
	}
	if r.State != StateDone {
		return fmt.Errorf("%w: cannot pass a run in state %q", ErrInvalidStatusTransition, r.State)
	}

	r.Status = RunStatusPassed
	r.FinishedAt = time.Now()
	return nil
}

// Fail marks the run as failed with cause
func (r *Run) Fail(cause error) error {
	if r.Status != RunStatusRunning {
		return fmt.Errorf("%w: cannot fail a %s run", ErrInvalidStatusTransition, r.Status)
	}

	r.Status = RunStatusFailed
	if cause != nil {
		r.Error = cause.Error()
	}
	r.FinishedAt = time.Now()
	return nil
}

// IsRunning returns true if the run has not finished
func (r *Run) IsRunning() bool {
	return r.Status == RunStatusRunning
}

// IsPassed returns true if the run passed
func (r *Run) IsPassed() bool {
	return r.Status == RunStatusPassed
}

// IsFailed returns true if the run failed
func (r *Run) IsFailed() bool {
	return r.Status == RunStatusFailed
}

// Duration returns how long the run took, or has taken so far
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// CountSteps returns how many steps have status
func (r *Run) CountSteps(status StepStatus) int {
	n := 0
	for _, s := range r.Steps {
		if s.Status == status {
			n++
		}
	}
	return n
}
