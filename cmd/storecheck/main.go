package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	internalcli "github.com/themizzi/storecheck/internal/cli"
	"github.com/themizzi/storecheck/internal/config"
	"github.com/themizzi/storecheck/internal/services"
	"github.com/themizzi/storecheck/internal/telemetry"
)

var version = "0.1.0"

// loadLogger builds the logger from the run configuration's log settings
func loadLogger() (*logrus.Logger, config.RunConfig, error) {
	cfg, err := config.LoadRunConfig(os.LookupEnv)
	if err != nil {
		return nil, cfg, err
	}
	logger, err := telemetry.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, cfg, err
	}
	return logger, cfg, nil
}

// applyRunFlags overrides cfg with the flags given on the command line
func applyRunFlags(c *cli.Context, cfg *config.RunConfig) {
	if c.IsSet("driver") {
		cfg.Driver = c.String("driver")
	}
	if c.IsSet("browser") {
		cfg.Browser = c.String("browser")
	}
	if c.IsSet("base-url") {
		cfg.BaseURL = c.String("base-url")
	}
	if c.IsSet("headless") {
		cfg.Headless = c.Bool("headless")
	}
	if c.IsSet("keyword") {
		cfg.Keyword = c.String("keyword")
	}
	if c.IsSet("brand") {
		cfg.Brand = c.String("brand")
	}
	if c.IsSet("min-price") {
		cfg.MinPrice = c.Int("min-price")
	}
	if c.IsSet("max-price") {
		cfg.MaxPrice = c.Int("max-price")
	}
	if c.IsSet("timeout") {
		cfg.RunTimeout = c.Duration("timeout")
	}
	if c.IsSet("trace") {
		cfg.Trace = c.Bool("trace")
	}
}

// runFlags are the run command flags. None has a default, so an unset flag
// leaves the environment value alone.
func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "driver", Usage: "automation driver: playwright, rod or static"},
		&cli.StringFlag{Name: "browser", Usage: "playwright browser: chromium, firefox or webkit"},
		&cli.StringFlag{Name: "base-url", Usage: "storefront root URL"},
		&cli.BoolFlag{Name: "headless", Usage: "hide the browser window"},
		&cli.StringFlag{Name: "keyword", Usage: "search keyword"},
		&cli.StringFlag{Name: "brand", Usage: "preferred brand filter"},
		&cli.IntFlag{Name: "min-price", Usage: "minimum price filter"},
		&cli.IntFlag{Name: "max-price", Usage: "maximum price filter"},
		&cli.DurationFlag{Name: "timeout", Usage: "deadline for the whole scenario"},
		&cli.BoolFlag{Name: "trace", Usage: "print OpenTelemetry spans to stderr"},
		&cli.BoolFlag{Name: "save", Usage: "record the run in PostgreSQL"},
		&cli.BoolFlag{Name: "no-color", Usage: "disable colored output"},
	}
}

// RunCommand returns the run command
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run the search, filter and product scenario against the storefront",
		Flags: runFlags(),
		Action: func(c *cli.Context) error {
			logger, cfg, err := loadLogger()
			if err != nil {
				return err
			}
			applyRunFlags(c, &cfg)

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			deps := internalcli.RunDependencies{
				Config:  cfg,
				Out:     os.Stdout,
				Log:     os.Stderr,
				NoColor: c.Bool("no-color"),
			}
			if c.Bool("save") {
				svc, db, err := internalcli.OpenHistory(ctx, os.Getenv, logger)
				if err != nil {
					return err
				}
				defer db.Close()
				deps.History = svc
			}

			_, err = internalcli.RunScenario(ctx, deps)
			return err
		},
	}
}

// ServeCommand returns the serve command
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the fixture storefront",
		Action: func(c *cli.Context) error {
			logger, _, err := loadLogger()
			if err != nil {
				return err
			}

			deps, err := internalcli.BuildServerDependencies(config.LoadServerConfig(os.Getenv), logger)
			if err != nil {
				return err
			}

			return internalcli.RunServe(deps)
		},
	}
}

// HistoryCommand returns the history command
func HistoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recorded scenario runs",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: services.DefaultHistoryLimit, Usage: "number of runs to show"},
			&cli.BoolFlag{Name: "no-color", Usage: "disable colored output"},
		},
		Action: func(c *cli.Context) error {
			logger, _, err := loadLogger()
			if err != nil {
				return err
			}

			ctx := c.Context
			if ctx == nil {
				ctx = context.Background()
			}
			svc, db, err := internalcli.OpenHistory(ctx, os.Getenv, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			return internalcli.ShowHistory(ctx, svc, c.Int("limit"), os.Stdout, c.Bool("no-color"))
		},
	}
}

// loadEnvFiles loads environment variables from the given files, .env when
// none are given. Variables already set are kept.
func loadEnvFiles(logger logrus.FieldLogger, filenames ...string) {
	if err := godotenv.Load(filenames...); err != nil {
		logger.WithError(err).Warn(".env file not found, using environment variables")
	}
}

func main() {
	loadEnvFiles(logrus.StandardLogger())

	app := &cli.App{
		Name:    "storecheck",
		Usage:   "Storefront search and product page checks",
		Version: version,
		Commands: []*cli.Command{
			RunCommand(),
			ServeCommand(),
			HistoryCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
