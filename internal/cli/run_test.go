package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/themizzi/storecheck/internal/browser"
	"github.com/themizzi/storecheck/internal/browser/docsession"
	"github.com/themizzi/storecheck/internal/config"
	"github.com/themizzi/storecheck/internal/models"
	"github.com/themizzi/storecheck/internal/scenario"
)

// MockRunService is a mock implementation of services.RunService for testing
type MockRunService struct {
	RecordFunc func(context.Context, *models.Run) error
	GetFunc    func(context.Context, string) (*models.Run, error)
	RecentFunc func(context.Context, int) ([]*models.Run, error)
}

func (m *MockRunService) Record(ctx context.Context, run *models.Run) error {
	if m.RecordFunc != nil {
		return m.RecordFunc(ctx, run)
	}
	return nil
}

func (m *MockRunService) Get(ctx context.Context, id string) (*models.Run, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return &models.Run{ID: id}, nil
}

func (m *MockRunService) Recent(ctx context.Context, limit int) ([]*models.Run, error) {
	if m.RecentFunc != nil {
		return m.RecentFunc(ctx, limit)
	}
	return nil, nil
}

// startStorefront serves the fixture storefront for the duration of the test
func startStorefront(t *testing.T) *httptest.Server {
	t.Helper()
	deps, err := BuildServerDependencies(config.ServerConfig{}, quietLogger())
	if err != nil {
		t.Fatalf("Failed to build storefront: %v", err)
	}
	srv := httptest.NewServer(deps.Handler)
	t.Cleanup(srv.Close)
	return srv
}

// staticConfig returns a run config for the static driver against baseURL
func staticConfig(baseURL string) config.RunConfig {
	cfg := config.DefaultRunConfig()
	cfg.Driver = config.DriverStatic
	cfg.BaseURL = baseURL
	cfg.ResultsSettle = 0
	cfg.PriceSettle = 0
	cfg.CountSettle = 0
	return cfg
}

func TestRunScenario_StaticDriverPasses(t *testing.T) {
	// GIVEN
	srv := startStorefront(t)
	var out bytes.Buffer
	var recorded *models.Run
	deps := RunDependencies{
		Config:  staticConfig(srv.URL + "/"),
		Out:     &out,
		Log:     io.Discard,
		NoColor: true,
		History: &MockRunService{
			RecordFunc: func(ctx context.Context, run *models.Run) error {
				recorded = run
				return nil
			},
		},
	}

	// WHEN
	run, err := RunScenario(context.Background(), deps)

	// THEN
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !run.IsPassed() {
		t.Errorf("Expected passed run, got %s", run.Status)
	}
	if run.Driver != config.DriverStatic {
		t.Errorf("Expected driver static, got %s", run.Driver)
	}
	if recorded != run {
		t.Error("Expected the finished run to be recorded")
	}
	for _, want := range []string{"PASSED", scenario.StepOpenFirstProduct, `brand "Samsung"`, "2 products found"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("Expected report to contain %q, got:\n%s", want, out.String())
		}
	}
}

func TestRunScenario_FailedRunIsReportedAndRecorded(t *testing.T) {
	// GIVEN
	srv := startStorefront(t)
	cfg := staticConfig(srv.URL + "/")
	cfg.Keyword = "zzz"
	var out bytes.Buffer
	recorded := false
	deps := RunDependencies{
		Config:  cfg,
		Out:     &out,
		Log:     io.Discard,
		NoColor: true,
		History: &MockRunService{
			RecordFunc: func(ctx context.Context, run *models.Run) error {
				recorded = true
				return nil
			},
		},
	}

	// WHEN
	run, err := RunScenario(context.Background(), deps)

	// THEN
	if !errors.Is(err, scenario.ErrNoResults) {
		t.Fatalf("Expected ErrNoResults, got %v", err)
	}
	if run == nil || !run.IsFailed() {
		t.Fatalf("Expected failed run, got %+v", run)
	}
	if !recorded {
		t.Error("Expected failed run to be recorded")
	}
	if !strings.Contains(out.String(), "FAILED") {
		t.Errorf("Expected FAILED verdict, got:\n%s", out.String())
	}
}

func TestRunScenario_InvalidConfig(t *testing.T) {
	// GIVEN
	cfg := staticConfig("")
	opened := false
	deps := RunDependencies{
		Config: cfg,
		Out:    io.Discard,
		Log:    io.Discard,
		Open: func(ctx context.Context, cfg config.RunConfig) (browser.Session, error) {
			opened = true
			return nil, nil
		},
	}

	// WHEN
	run, err := RunScenario(context.Background(), deps)

	// THEN
	if err == nil || !strings.Contains(err.Error(), "invalid configuration") {
		t.Errorf("Expected invalid configuration error, got %v", err)
	}
	if run != nil {
		t.Error("Expected no run")
	}
	if opened {
		t.Error("Expected no session to be opened")
	}
}

func TestRunScenario_OpenSessionError(t *testing.T) {
	// GIVEN
	boom := errors.New("no browser")
	deps := RunDependencies{
		Config: staticConfig("http://127.0.0.1:1/"),
		Out:    io.Discard,
		Log:    io.Discard,
		Open: func(ctx context.Context, cfg config.RunConfig) (browser.Session, error) {
			return nil, boom
		},
	}

	// WHEN
	run, err := RunScenario(context.Background(), deps)

	// THEN
	if !errors.Is(err, boom) {
		t.Errorf("Expected wrapped open error, got %v", err)
	}
	if run != nil {
		t.Error("Expected no run")
	}
}

func TestRunScenario_SaveError(t *testing.T) {
	// GIVEN
	srv := startStorefront(t)
	dbErr := errors.New("connection refused")
	deps := RunDependencies{
		Config: staticConfig(srv.URL + "/"),
		Out:    io.Discard,
		Log:    io.Discard,
		History: &MockRunService{
			RecordFunc: func(ctx context.Context, run *models.Run) error {
				return dbErr
			},
		},
	}

	// WHEN
	run, err := RunScenario(context.Background(), deps)

	// THEN
	if !errors.Is(err, dbErr) {
		t.Fatalf("Expected save error, got %v", err)
	}
	if !strings.Contains(err.Error(), "failed to save run") {
		t.Errorf("Expected save context in error, got %v", err)
	}
	if run == nil || !run.IsPassed() {
		t.Error("Expected the scenario itself to pass")
	}
}

func TestRunScenario_PushesMetrics(t *testing.T) {
	// GIVEN
	srv := startStorefront(t)
	var mu sync.Mutex
	var paths []string
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.Method+" "+r.URL.Path)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer gateway.Close()

	cfg := staticConfig(srv.URL + "/")
	cfg.PushgatewayURL = gateway.URL
	deps := RunDependencies{Config: cfg, Out: io.Discard, Log: io.Discard}

	// WHEN
	run, err := RunScenario(context.Background(), deps)

	// THEN
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	want := "PUT /metrics/job/storecheck/run_id/" + run.ID
	if len(paths) != 1 || paths[0] != want {
		t.Errorf("Expected push %q, got %v", want, paths)
	}
}

func TestRunScenario_PushFailureDoesNotFailRun(t *testing.T) {
	// GIVEN
	srv := startStorefront(t)
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer gateway.Close()

	cfg := staticConfig(srv.URL + "/")
	cfg.PushgatewayURL = gateway.URL
	var logs bytes.Buffer
	deps := RunDependencies{Config: cfg, Out: io.Discard, Log: &logs}

	// WHEN
	_, err := RunScenario(context.Background(), deps)

	// THEN
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if !strings.Contains(logs.String(), "Failed to push metrics") {
		t.Error("Expected push failure to be logged")
	}
}

func TestRunScenario_TraceWritesSpans(t *testing.T) {
	// GIVEN
	srv := startStorefront(t)
	cfg := staticConfig(srv.URL + "/")
	cfg.Trace = true
	cfg.LogLevel = "error"
	var logs bytes.Buffer
	deps := RunDependencies{Config: cfg, Out: io.Discard, Log: &logs}

	// WHEN
	_, err := RunScenario(context.Background(), deps)

	// THEN
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	for _, span := range []string{`"scenario"`, `"` + scenario.StepSearch + `"`} {
		if !strings.Contains(logs.String(), span) {
			t.Errorf("Expected span %s in trace output", span)
		}
	}
}

func TestOpenSession(t *testing.T) {
	tests := []struct {
		name      string
		driver    string
		expectErr bool
	}{
		{name: "static", driver: config.DriverStatic},
		{name: "unknown", driver: "selenium", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultRunConfig()
			cfg.Driver = tt.driver

			session, err := OpenSession(context.Background(), cfg)

			if tt.expectErr {
				if err == nil {
					t.Error("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			defer session.Close()
			if _, ok := session.(*docsession.Session); !ok {
				t.Errorf("Expected a static session, got %T", session)
			}
		})
	}
}

func TestOpenSession_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := OpenSession(ctx, config.DefaultRunConfig()); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestShowHistory(t *testing.T) {
	tests := []struct {
		name        string
		runs        []*models.Run
		listErr     error
		expectErr   bool
		checkOutput []string
	}{
		{
			name: "recent runs",
			runs: []*models.Run{
				{ID: "run-2", Driver: "rod", Keyword: "electronics", Status: models.RunStatusFailed, State: models.StateSearched},
				{ID: "run-1", Driver: "static", Keyword: "electronics", Status: models.RunStatusPassed, State: models.StateDone},
			},
			checkOutput: []string{"ID", "run-2", "run-1", "failed", "passed"},
		},
		{
			name:        "empty history",
			checkOutput: []string{"no runs recorded"},
		},
		{
			name:      "repository error",
			listErr:   errors.New("db down"),
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotLimit int
			svc := &MockRunService{
				RecentFunc: func(ctx context.Context, limit int) ([]*models.Run, error) {
					gotLimit = limit
					return tt.runs, tt.listErr
				},
			}
			var out bytes.Buffer

			err := ShowHistory(context.Background(), svc, 5, &out, true)

			if tt.expectErr {
				if err == nil {
					t.Error("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if gotLimit != 5 {
				t.Errorf("Expected limit 5, got %d", gotLimit)
			}
			for _, want := range tt.checkOutput {
				if !strings.Contains(out.String(), want) {
					t.Errorf("Expected output to contain %q, got:\n%s", want, out.String())
				}
			}
		})
	}
}

func TestOpenHistory_NotConfigured(t *testing.T) {
	getenv := func(string) string { return "" }

	_, _, err := OpenHistory(context.Background(), getenv, quietLogger())

	if err == nil || !strings.Contains(err.Error(), "not configured") {
		t.Errorf("Expected not configured error, got %v", err)
	}
}
