package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/themizzi/storecheck/internal/browser"
	"github.com/themizzi/storecheck/internal/browser/docsession"
	"github.com/themizzi/storecheck/internal/browser/pwsession"
	"github.com/themizzi/storecheck/internal/browser/rodsession"
	"github.com/themizzi/storecheck/internal/config"
	"github.com/themizzi/storecheck/internal/models"
	"github.com/themizzi/storecheck/internal/pages"
	"github.com/themizzi/storecheck/internal/report"
	"github.com/themizzi/storecheck/internal/scenario"
	"github.com/themizzi/storecheck/internal/services"
	"github.com/themizzi/storecheck/internal/telemetry"
)

const serviceName = "storecheck"

// SessionOpener starts a browser session for cfg
type SessionOpener func(ctx context.Context, cfg config.RunConfig) (browser.Session, error)

// RunDependencies holds everything a scenario run needs besides the browser
type RunDependencies struct {
	Config config.RunConfig
	// Out receives the step report, Log receives logs and spans.
	Out     io.Writer
	Log     io.Writer
	NoColor bool
	// History records the finished run when set.
	History services.RunService
	// Open defaults to OpenSession.
	Open SessionOpener
}

// OpenSession launches the driver named by cfg.Driver
func OpenSession(ctx context.Context, cfg config.RunConfig) (browser.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch cfg.Driver {
	case config.DriverPlaywright:
		return pwsession.Launch(cfg.LaunchOptions())
	case config.DriverRod:
		return rodsession.Launch(cfg.LaunchOptions())
	case config.DriverStatic:
		return docsession.New(&http.Client{Timeout: cfg.NavigationTimeout}), nil
	default:
		return nil, fmt.Errorf("unknown driver %q", cfg.Driver)
	}
}

// RunScenario opens a session, runs the scenario, prints the report and
// records the run. The returned run is nil only when the scenario never
// started. A failed run is returned together with its error.
func RunScenario(ctx context.Context, deps RunDependencies) (*models.Run, error) {
	cfg := deps.Config
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := telemetry.NewLogger(deps.Log, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	var tp *telemetry.TracerProvider
	if cfg.Trace {
		tp, err = telemetry.NewTracerProvider(deps.Log, serviceName)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.WithError(err).Warn("Failed to flush spans")
			}
		}()
	}

	open := deps.Open
	if open == nil {
		open = OpenSession
	}
	session, err := open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s session: %w", cfg.Driver, err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close session")
		}
	}()

	metrics := telemetry.NewMetrics()
	runner := scenario.NewRunner(session, scenario.Options{
		BaseURL: cfg.BaseURL,
		Driver:  cfg.Driver,
		Params: scenario.Params{
			Keyword:  cfg.Keyword,
			Brand:    cfg.Brand,
			MinPrice: cfg.MinPrice,
			MaxPrice: cfg.MaxPrice,
		},
		Settle: pages.Settle{
			Results: cfg.ResultsSettle,
			Price:   cfg.PriceSettle,
			Count:   cfg.CountSettle,
		},
		Timeout: cfg.RunTimeout,
		Logger:  logger,
		Metrics: metrics,
		Tracer:  tp.Tracer(),
	})

	run, runErr := runner.Run(ctx)
	if run == nil {
		return nil, runErr
	}
	report.NewPrinter(deps.Out, deps.NoColor).Run(run)

	// The run context may already be spent; side effects get their own deadline.
	sideCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if cfg.PushgatewayURL != "" {
		if err := metrics.Push(sideCtx, cfg.PushgatewayURL, run.ID); err != nil {
			logger.WithError(err).Warn("Failed to push metrics")
		}
	}

	var saveErr error
	if deps.History != nil {
		if err := deps.History.Record(sideCtx, run); err != nil {
			saveErr = fmt.Errorf("failed to save run %s: %w", run.ID, err)
		} else {
			logger.WithField("run_id", run.ID).Info("Run saved")
		}
	}

	return run, errors.Join(runErr, saveErr)
}
