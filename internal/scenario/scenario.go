// Package scenario drives the storefront flow end to end and records every
// step on a models.Run.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/themizzi/storecheck/internal/browser"
	"github.com/themizzi/storecheck/internal/models"
	"github.com/themizzi/storecheck/internal/pages"
	"github.com/themizzi/storecheck/internal/telemetry"
)

// ErrNoResults fails the count assertion when the filtered grid is empty.
var ErrNoResults = errors.New("expected at least one product")

// Step names, in execution order.
const (
	StepOpenHomepage     = "open homepage"
	StepSearch           = "search"
	StepWaitForResults   = "wait for results"
	StepApplyBrand       = "apply brand"
	StepApplyPriceRange  = "apply price range"
	StepCountProducts    = "count products"
	StepValidateCount    = "validate product count"
	StepOpenFirstProduct = "open first product"
	StepFreeShipping     = "check free shipping"
	StepStock            = "check stock"
)

// Params are the scenario inputs.
type Params struct {
	Keyword  string
	Brand    string
	MinPrice int
	MaxPrice int
}

// DefaultParams searches electronics and filters Samsung between 500 and 5000.
func DefaultParams() Params {
	return Params{
		Keyword:  "electronics",
		Brand:    "Samsung",
		MinPrice: 500,
		MaxPrice: 5000,
	}
}

// Options configures a Runner. Metrics and Tracer are optional.
type Options struct {
	BaseURL string
	Driver  string
	Params  Params
	Settle  pages.Settle
	Timeout time.Duration
	Logger  logrus.FieldLogger
	Metrics *telemetry.Metrics
	Tracer  trace.Tracer
}

// Runner executes the scenario against one session.
type Runner struct {
	opts    Options
	logger  logrus.FieldLogger
	tracer  trace.Tracer
	home    *pages.HomePage
	results *pages.SearchResultsPage
	product *pages.ProductPage
}

// NewRunner builds the page objects over session.
func NewRunner(session browser.Session, opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}

	return &Runner{
		opts:    opts,
		logger:  logger,
		tracer:  tracer,
		home:    pages.NewHomePage(session, opts.BaseURL, logger),
		results: pages.NewSearchResultsPage(session, opts.Settle, logger),
		product: pages.NewProductPage(session, logger),
	}
}

// Run executes the scenario. The returned run is non-nil whenever the
// inputs were valid, and carries the step trace even when err is set.
func (r *Runner) Run(ctx context.Context) (*models.Run, error) {
	run, err := models.NewRun(r.opts.BaseURL, r.opts.Driver, r.opts.Params.Keyword)
	if err != nil {
		return nil, fmt.Errorf("invalid run: %w", err)
	}

	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	ctx, span := r.tracer.Start(ctx, "scenario", trace.WithAttributes(
		telemetry.AttrRunID.String(run.ID),
		telemetry.AttrTarget.String(run.Target),
		telemetry.AttrDriver.String(run.Driver),
	))
	defer span.End()

	logger := r.logger.WithField("run_id", run.ID)
	logger.WithFields(logrus.Fields{
		"target": run.Target,
		"driver": run.Driver,
	}).Info("Starting scenario")

	if err := r.execute(ctx, run, logger); err != nil {
		if ferr := run.Fail(err); ferr != nil {
			logger.WithError(ferr).Error("Failed to mark run as failed")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.finish(run, logger)
		return run, err
	}

	if err := run.Pass(); err != nil {
		return run, err
	}
	r.finish(run, logger)
	return run, nil
}

func (r *Runner) finish(run *models.Run, logger logrus.FieldLogger) {
	if r.opts.Metrics != nil {
		r.opts.Metrics.ObserveRun(string(run.Status), run.Duration())
	}
	logger.WithFields(logrus.Fields{
		"status":   run.Status,
		"state":    run.State,
		"duration": run.Duration().Round(time.Millisecond),
	}).Info("Scenario finished")
}

func (r *Runner) execute(ctx context.Context, run *models.Run, logger logrus.FieldLogger) error {
	p := r.opts.Params

	err := r.step(ctx, run, logger, StepOpenHomepage, func(ctx context.Context) (models.StepStatus, string, error) {
		if err := r.home.Open(ctx); err != nil {
			return "", "", err
		}
		return models.StepPassed, "homepage opened", nil
	})
	if err != nil {
		return err
	}
	if err := run.Reach(models.StateHome); err != nil {
		return err
	}

	err = r.step(ctx, run, logger, StepSearch, func(ctx context.Context) (models.StepStatus, string, error) {
		if err := r.home.Search(ctx, p.Keyword); err != nil {
			return "", "", err
		}
		return models.StepPassed, fmt.Sprintf("searched for %q", p.Keyword), nil
	})
	if err != nil {
		return err
	}
	if err := run.Reach(models.StateSearched); err != nil {
		return err
	}

	err = r.step(ctx, run, logger, StepWaitForResults, func(ctx context.Context) (models.StepStatus, string, error) {
		if err := r.results.WaitForResults(ctx); err != nil {
			return "", "", err
		}
		return models.StepPassed, "search results loaded", nil
	})
	if err != nil {
		return err
	}

	err = r.step(ctx, run, logger, StepApplyBrand, func(ctx context.Context) (models.StepStatus, string, error) {
		return filterStep(r.results.ApplyBrand(ctx, p.Brand))
	})
	if err != nil {
		return err
	}

	err = r.step(ctx, run, logger, StepApplyPriceRange, func(ctx context.Context) (models.StepStatus, string, error) {
		return filterStep(r.results.ApplyPriceRange(ctx, p.MinPrice, p.MaxPrice))
	})
	if err != nil {
		return err
	}
	if err := run.Reach(models.StateResultsFiltered); err != nil {
		return err
	}

	var count int
	err = r.step(ctx, run, logger, StepCountProducts, func(ctx context.Context) (models.StepStatus, string, error) {
		n, err := r.results.CountProducts(ctx)
		if err != nil {
			return "", "", err
		}
		count = n
		return models.StepInfo, fmt.Sprintf("%d products found", n), nil
	})
	if err != nil {
		return err
	}

	err = r.step(ctx, run, logger, StepValidateCount, func(context.Context) (models.StepStatus, string, error) {
		if count <= 0 {
			return "", "", fmt.Errorf("%w, got %d", ErrNoResults, count)
		}
		return models.StepPassed, fmt.Sprintf("%d > 0", count), nil
	})
	if err != nil {
		return err
	}

	err = r.step(ctx, run, logger, StepOpenFirstProduct, func(ctx context.Context) (models.StepStatus, string, error) {
		if err := r.results.OpenFirstProduct(ctx); err != nil {
			return "", "", err
		}
		return models.StepPassed, "first product opened", nil
	})
	if err != nil {
		return err
	}
	if err := run.Reach(models.StateProductOpened); err != nil {
		return err
	}

	err = r.step(ctx, run, logger, StepFreeShipping, func(ctx context.Context) (models.StepStatus, string, error) {
		if r.product.HasFreeShipping(ctx) {
			return models.StepPassed, "product has free shipping", nil
		}
		return models.StepInfo, "product does not have free shipping", nil
	})
	if err != nil {
		return err
	}

	err = r.step(ctx, run, logger, StepStock, func(ctx context.Context) (models.StepStatus, string, error) {
		if r.product.IsOutOfStock(ctx) {
			return models.StepInfo, "product is out of stock", nil
		}
		return models.StepPassed, "product is in stock", nil
	})
	if err != nil {
		return err
	}

	return run.Reach(models.StateDone)
}

func filterStep(res pages.FilterResult) (models.StepStatus, string, error) {
	if res.Applied() {
		return models.StepPassed, res.String(), nil
	}
	return models.StepSkipped, res.String(), nil
}

type stepFunc func(ctx context.Context) (models.StepStatus, string, error)

// step runs fn, records its outcome on run and returns fn's error wrapped
// with the step name.
func (r *Runner) step(ctx context.Context, run *models.Run, logger logrus.FieldLogger, name string, fn stepFunc) error {
	ctx, span := r.tracer.Start(ctx, name, trace.WithAttributes(telemetry.AttrStep.String(name)))
	defer span.End()

	start := time.Now()
	status, detail, err := fn(ctx)
	elapsed := time.Since(start)
	if err != nil {
		status = models.StepFailed
		detail = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, detail)
	}
	span.SetAttributes(telemetry.AttrOutcome.String(string(status)))

	step := run.AddStep(name, status, detail, elapsed)
	if r.opts.Metrics != nil {
		r.opts.Metrics.ObserveStep(name, string(status), elapsed)
	}

	entry := logger.WithFields(logrus.Fields{
		"step":   step.Name,
		"seq":    step.Seq,
		"status": step.Status,
	})
	switch status {
	case models.StepFailed:
		entry.Error(detail)
	case models.StepSkipped:
		entry.Warn(detail)
	default:
		entry.Info(detail)
	}

	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
