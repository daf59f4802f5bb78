package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/mstoykov/envconfig"

	"github.com/themizzi/storecheck/internal/browser"
)

// Drivers
const (
	DriverPlaywright = "playwright"
	DriverRod        = "rod"
	DriverStatic     = "static"
)

// Drivers lists the supported automation drivers.
var Drivers = []string{DriverPlaywright, DriverRod, DriverStatic}

// Browsers lists the playwright browser types.
var Browsers = []string{"chromium", "firefox", "webkit"}

// RunConfig holds everything a scenario run needs
type RunConfig struct {
	BaseURL string `envconfig:"STORECHECK_BASE_URL"`
	Driver  string `envconfig:"STORECHECK_DRIVER"`
	Browser string `envconfig:"STORECHECK_BROWSER"`

	Headless          bool          `envconfig:"STORECHECK_HEADLESS"`
	ViewportWidth     int           `envconfig:"STORECHECK_VIEWPORT_WIDTH"`
	ViewportHeight    int           `envconfig:"STORECHECK_VIEWPORT_HEIGHT"`
	ActionTimeout     time.Duration `envconfig:"STORECHECK_ACTION_TIMEOUT"`
	NavigationTimeout time.Duration `envconfig:"STORECHECK_NAVIGATION_TIMEOUT"`
	SlowMo            time.Duration `envconfig:"STORECHECK_SLOW_MO"`
	RunTimeout        time.Duration `envconfig:"STORECHECK_RUN_TIMEOUT"`

	ResultsSettle time.Duration `envconfig:"STORECHECK_RESULTS_SETTLE"`
	PriceSettle   time.Duration `envconfig:"STORECHECK_PRICE_SETTLE"`
	CountSettle   time.Duration `envconfig:"STORECHECK_COUNT_SETTLE"`

	Keyword  string `envconfig:"STORECHECK_KEYWORD"`
	Brand    string `envconfig:"STORECHECK_BRAND"`
	MinPrice int    `envconfig:"STORECHECK_MIN_PRICE"`
	MaxPrice int    `envconfig:"STORECHECK_MAX_PRICE"`

	LogLevel       string `envconfig:"STORECHECK_LOG_LEVEL"`
	LogFormat      string `envconfig:"STORECHECK_LOG_FORMAT"`
	PushgatewayURL string `envconfig:"STORECHECK_PUSHGATEWAY_URL"`
	Trace          bool   `envconfig:"STORECHECK_TRACE"`
}

// DefaultRunConfig returns the settings used against the live site
func DefaultRunConfig() RunConfig {
	return RunConfig{
		BaseURL:           "https://www.daraz.pk/",
		Driver:            DriverPlaywright,
		Browser:           "chromium",
		Headless:          false,
		ViewportWidth:     1280,
		ViewportHeight:    800,
		ActionTimeout:     20 * time.Second,
		NavigationTimeout: 30 * time.Second,
		SlowMo:            500 * time.Millisecond,
		RunTimeout:        60 * time.Second,
		ResultsSettle:     4 * time.Second,
		PriceSettle:       4 * time.Second,
		CountSettle:       5 * time.Second,
		Keyword:           "electronics",
		Brand:             "Samsung",
		MinPrice:          500,
		MaxPrice:          5000,
		LogLevel:          "info",
		LogFormat:         "text",
	}
}

// LoadRunConfig applies environment overrides from lookup on top of the
// defaults. It does not validate.
func LoadRunConfig(lookup func(string) (string, bool)) (RunConfig, error) {
	cfg := DefaultRunConfig()
	if err := envconfig.Process("", &cfg, lookup); err != nil {
		return cfg, fmt.Errorf("failed to load run config: %w", err)
	}
	return cfg, nil
}

// Validate reports every invalid setting at once
func (c RunConfig) Validate() error {
	var errs []error

	u, err := url.Parse(c.BaseURL)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("base url: %w", err))
	case u.Scheme != "http" && u.Scheme != "https":
		errs = append(errs, fmt.Errorf("base url %q must be http or https", c.BaseURL))
	case u.Host == "":
		errs = append(errs, fmt.Errorf("base url %q has no host", c.BaseURL))
	}

	if !contains(Drivers, c.Driver) {
		errs = append(errs, fmt.Errorf("unknown driver %q, expected one of %v", c.Driver, Drivers))
	}
	if !contains(Browsers, c.Browser) {
		errs = append(errs, fmt.Errorf("unknown browser %q, expected one of %v", c.Browser, Browsers))
	}
	if c.ViewportWidth <= 0 || c.ViewportHeight <= 0 {
		errs = append(errs, fmt.Errorf("viewport %dx%d must be positive", c.ViewportWidth, c.ViewportHeight))
	}
	if c.RunTimeout <= 0 {
		errs = append(errs, errors.New("run timeout must be positive"))
	}
	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"action timeout", c.ActionTimeout},
		{"navigation timeout", c.NavigationTimeout},
		{"slow mo", c.SlowMo},
		{"results settle", c.ResultsSettle},
		{"price settle", c.PriceSettle},
		{"count settle", c.CountSettle},
	} {
		if d.value < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", d.name))
		}
	}
	if c.Keyword == "" {
		errs = append(errs, errors.New("keyword is required"))
	}
	if c.MinPrice < 0 || c.MaxPrice <= 0 || c.MinPrice > c.MaxPrice {
		errs = append(errs, fmt.Errorf("price range %d-%d is invalid", c.MinPrice, c.MaxPrice))
	}
	if c.PushgatewayURL != "" {
		if u, err := url.Parse(c.PushgatewayURL); err != nil || u.Host == "" {
			errs = append(errs, fmt.Errorf("pushgateway url %q is invalid", c.PushgatewayURL))
		}
	}

	return errors.Join(errs...)
}

// LaunchOptions maps the browser settings for a driver
func (c RunConfig) LaunchOptions() browser.LaunchOptions {
	return browser.LaunchOptions{
		Browser:           c.Browser,
		Headless:          c.Headless,
		SlowMo:            c.SlowMo,
		ViewportWidth:     c.ViewportWidth,
		ViewportHeight:    c.ViewportHeight,
		ActionTimeout:     c.ActionTimeout,
		NavigationTimeout: c.NavigationTimeout,
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
