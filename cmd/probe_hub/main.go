package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"

	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/probe-hub/probe-hub/cmd/probe_hub/server"
	"github.com/probe-hub/probe-hub/internal/config"
	"github.com/probe-hub/probe-hub/internal/logging"
	"github.com/probe-hub/probe-hub/internal/orchestrator"
	"github.com/probe-hub/probe-hub/internal/registry"
	"github.com/probe-hub/probe-hub/internal/tracing"
	"github.com/probe-hub/probe-hub/internal/validation"
	"github.com/probe-hub/probe-hub/pkg/jobservice"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var (
	// Version can be set during the compilation
	Version string = "0.0.1"
	// Build is set during the compilation
	Build string
	// BuildDate is set during the compilation
	BuildDate string
)

func main() {
	logger, logShutdown, err := logging.NewLogger()
	if err != nil {
		// we do this as no point trying to continue
		startUpFailed(nil, err, "Failed to create service logger", logging.FallbackLogger())
	}

	serviceConfig, err := config.LoadConfig(logger, Version, Build, BuildDate)
	if err != nil {
		// we do this as no point trying to continue
		startUpFailed(nil, err, "Failed to create service config", logger)
	}

	// set up the validator
	validate, err := validation.NewValidator()
	if err != nil {
		// we do this as no point trying to continue
		startUpFailed(serviceConfig, err, "Failed to create validator", logger)
	}

	// set up tracing
	traceShutdown, err := tracing.Setup(context.Background(), serviceConfig.Tracing, serviceConfig.Service.Version)
	if err != nil {
		// we do this as no point trying to continue
		startUpFailed(serviceConfig, err, "Failed to create tracing", logger)
	}

	// set up the job service client
	client := newJobServiceClient(serviceConfig, logger)

	reg := registry.New(logger)

	orch := orchestrator.New(client, reg, validate, logger, orchestratorOptions(serviceConfig))

	srv, err := server.NewServer(logger, serviceConfig, orch, validate)
	if err != nil {
		// we do this as no point trying to continue
		startUpFailed(serviceConfig, err, "Failed to create server", logger)
	}

	// log the start up details
	logger.Info("Server starting",
		"server_port", srv.GetPort(),
		"version", serviceConfig.Service.Version,
		"build", serviceConfig.Service.Build,
		"build_date", serviceConfig.Service.BuildDate,
		"validator", validate != nil,
		"local", serviceConfig.Service.LocalMode,
		"job_service", serviceConfig.JobService.BaseURL,
	)

	// Start server in a goroutine
	go func() {
		if err := srv.Start(); err != nil {
			// we do this as no point trying to continue
			if errors.Is(err, http.ErrServerClosed) {
				logger.Info("Server closed gracefully")
				return
			}
			startUpFailed(serviceConfig, err, "Server failed to start", logger)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Create a context with timeout for graceful shutdown
	waitForShutdown := 30 * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), waitForShutdown)
	defer cancel()

	// stop the tracking loops before closing the listener
	if err := orch.Shutdown(ctx); err != nil {
		logger.Error("Tracking loops forced to stop", "error", err.Error())
	}

	if err := traceShutdown(ctx); err != nil {
		logger.Error("Failed to shut down tracing", "error", err.Error())
	}

	// shutdown the server
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err.Error(), "timeout", waitForShutdown)
		_ = logShutdown() // ignore the error
	} else {
		logger.Info("Server shutdown gracefully")
		_ = logShutdown() // ignore the error
	}
}

func newJobServiceClient(conf *config.Config, logger *slog.Logger) *jobservice.Client {
	client := jobservice.NewClient(conf.JobService.BaseURL).WithLogger(logger)
	if conf.JobService.Token != "" {
		client = client.WithToken(conf.JobService.Token)
	}
	if conf.JobService.HTTPTimeout > 0 {
		client = client.WithHTTPClient(&http.Client{
			Timeout:   conf.JobService.HTTPTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		})
	}
	return client
}

func orchestratorOptions(conf *config.Config) orchestrator.Options {
	opts := orchestrator.Options{}
	if conf.Polling != nil {
		opts.PollInterval = conf.Polling.Interval
		opts.PollMaxAttempts = conf.Polling.MaxAttempts
		opts.PollFailureBudget = conf.Polling.FailureBudget
		opts.HistoryLimit = conf.Polling.HistoryLimit
	}
	return opts
}

func startUpFailed(conf *config.Config, err error, msg string, logger *slog.Logger) {
	termErr := server.SetTerminationMessage(server.GetTerminationFile(conf, logger), fmt.Sprintf("%s: %s", msg, err.Error()), logger)
	if termErr != nil {
		logger.Error("Failed to set termination message", "message", msg, "error", termErr.Error())
		log.Println(termErr.Error())
	}
	log.Fatal(err)
}
