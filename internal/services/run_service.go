package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/themizzi/storecheck/internal/models"
)

// History limits
const (
	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 100
)

// ErrRunInProgress is returned when recording a run that has not finished
var ErrRunInProgress = errors.New("cannot record a run that is still running")

// RunRepository defines the interface for run persistence
type RunRepository interface {
	CreateRun(ctx context.Context, run *models.Run) error
	GetRun(ctx context.Context, id string) (*models.Run, error)
	ListRuns(ctx context.Context, limit int) ([]*models.Run, error)
}

// RunService records and queries scenario run history
type RunService interface {
	Record(ctx context.Context, run *models.Run) error
	Get(ctx context.Context, id string) (*models.Run, error)
	Recent(ctx context.Context, limit int) ([]*models.Run, error)
}

// RunServiceImpl implements RunService
type RunServiceImpl struct {
	runRepo RunRepository
}

// NewRunService creates a new run service
func NewRunService(runRepo RunRepository) RunService {
	return &RunServiceImpl{
		runRepo: runRepo,
	}
}

// Record persists a finished run
func (s *RunServiceImpl) Record(ctx context.Context, run *models.Run) error {
	if run == nil {
		return errors.New("run cannot be nil")
	}
	if run.IsRunning() {
		return ErrRunInProgress
	}

	if err := s.runRepo.CreateRun(ctx, run); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// Get retrieves a run with its steps
func (s *RunServiceImpl) Get(ctx context.Context, id string) (*models.Run, error) {
	if id == "" {
		return nil, errors.New("run id cannot be empty")
	}

	run, err := s.runRepo.GetRun(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// Recent lists the latest runs. Out of range limits are clamped.
func (s *RunServiceImpl) Recent(ctx context.Context, limit int) ([]*models.Run, error) {
	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}

	runs, err := s.runRepo.ListRuns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}
