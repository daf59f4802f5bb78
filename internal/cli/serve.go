package cli

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/themizzi/storecheck/internal/config"
	"github.com/themizzi/storecheck/internal/storefront"
)

// ServerDependencies holds all dependencies needed for the fixture server
type ServerDependencies struct {
	ServerConfig config.ServerConfig
	Handler      http.Handler
	Logger       logrus.FieldLogger
}

// BuildServerDependencies wires the fixture storefront over the default catalog
func BuildServerDependencies(cfg config.ServerConfig, logger logrus.FieldLogger) (ServerDependencies, error) {
	router, err := storefront.NewRouter(storefront.DefaultCatalog(), logger)
	if err != nil {
		return ServerDependencies{}, fmt.Errorf("failed to create storefront router: %w", err)
	}
	return ServerDependencies{
		ServerConfig: cfg,
		Handler:      router,
		Logger:       logger,
	}, nil
}

// RunServe starts the fixture storefront and blocks until SIGINT or SIGTERM
func RunServe(deps ServerDependencies) error {
	listener, server, err := StartServer(deps)
	if err != nil {
		return err
	}
	defer listener.Close()

	return WaitForShutdown(server, nil, deps.Logger)
}

func orStandard(logger logrus.FieldLogger) logrus.FieldLogger {
	if logger == nil {
		return logrus.StandardLogger()
	}
	return logger
}

// StartServer creates and starts the HTTP server, returning the listener and server
func StartServer(deps ServerDependencies) (net.Listener, *http.Server, error) {
	logger := orStandard(deps.Logger)

	listener, err := net.Listen("tcp", deps.ServerConfig.Addr())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create listener: %w", err)
	}

	server := &http.Server{
		Handler:           deps.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.WithField("addr", listener.Addr().String()).Info("Storefront listening")
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Server error")
		}
	}()

	return listener, server, nil
}

// WaitForShutdown waits for a shutdown signal and gracefully shuts down the server.
// If shutdown is nil, a channel is registered with signal.Notify. A nil
// logger logs to the standard logrus logger.
func WaitForShutdown(server *http.Server, shutdown chan os.Signal, logger logrus.FieldLogger) error {
	return WaitForShutdownWithTimeout(server, shutdown, 30*time.Second, logger)
}

// WaitForShutdownWithTimeout allows specifying a custom shutdown timeout
func WaitForShutdownWithTimeout(server *http.Server, shutdown chan os.Signal, shutdownTimeout time.Duration, logger logrus.FieldLogger) error {
	logger = orStandard(logger)
	if shutdown == nil {
		shutdown = make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)
	}

	sig := <-shutdown
	logger.WithField("signal", sig.String()).Info("Shutting down storefront")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		// Force close once the grace period is over
		if err := server.Close(); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}

	logger.Info("Storefront stopped")
	return nil
}
