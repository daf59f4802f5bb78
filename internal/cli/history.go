package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/themizzi/storecheck/internal/config"
	"github.com/themizzi/storecheck/internal/database"
	"github.com/themizzi/storecheck/internal/report"
	"github.com/themizzi/storecheck/internal/repository"
	"github.com/themizzi/storecheck/internal/services"
)

// OpenHistory connects to PostgreSQL, runs migrations and returns the run
// service over it. The caller closes the returned db.
func OpenHistory(ctx context.Context, getenv func(string) string, logger logrus.FieldLogger) (services.RunService, *sql.DB, error) {
	pgConfig, err := config.LoadPostgresConfig(getenv)
	if err != nil {
		return nil, nil, fmt.Errorf("run history is not configured: %w", err)
	}

	db, err := database.Connect(ctx, pgConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	logger.WithField("host", pgConfig.Host).Debug("Connected to database")

	if err := database.RunMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	return services.NewRunService(repository.NewRunRepository(db)), db, nil
}

// ShowHistory prints the most recent runs
func ShowHistory(ctx context.Context, svc services.RunService, limit int, out io.Writer, noColor bool) error {
	runs, err := svc.Recent(ctx, limit)
	if err != nil {
		return err
	}
	return report.NewPrinter(out, noColor).History(runs)
}
