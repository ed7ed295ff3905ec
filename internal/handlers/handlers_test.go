package handlers_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/probe-hub/probe-hub/internal/config"
	"github.com/probe-hub/probe-hub/internal/handlers"
	"github.com/probe-hub/probe-hub/internal/orchestrator"
	"github.com/probe-hub/probe-hub/internal/registry"
	"github.com/probe-hub/probe-hub/internal/validation"
	"github.com/probe-hub/probe-hub/pkg/jobservice"

	"github.com/probe-hub/probe-hub/internal/executioncontext"
)

func createExecutionContext(method string, uri string) *executioncontext.ExecutionContext {
	return createExecutionContextWithBody(method, uri, nil, nil)
}

func createExecutionContextWithBody(method string, uri string, body io.Reader, pathParams map[string]string) *executioncontext.ExecutionContext {
	return executioncontext.NewExecutionContext(
		context.Background(),
		"test-request-id",
		slog.New(slog.DiscardHandler),
		method,
		uri,
		body,
		func(name string) string { return pathParams[name] },
	)
}

func testConfig() *config.Config {
	return &config.Config{
		Service: &config.ServiceConfig{
			Version:   "1.0.0",
			Build:     "42",
			BuildDate: "2026-01-01",
			Port:      8085,
		},
	}
}

// newTestHandlers wires real handlers over a stubbed Job Service endpoint.
func newTestHandlers(t *testing.T, jobService http.HandlerFunc) *handlers.Handlers {
	t.Helper()

	server := httptest.NewServer(jobService)
	t.Cleanup(server.Close)

	validate, err := validation.NewValidator()
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}

	client := jobservice.NewClient(server.URL)
	orch := orchestrator.New(client, registry.New(nil), validate, nil, orchestrator.Options{
		PollInterval:    2 * time.Millisecond,
		PollMaxAttempts: 50,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = orch.Shutdown(ctx)
	})

	return handlers.New(orch, validate, testConfig())
}

func bodyReader(s string) io.Reader {
	return strings.NewReader(s)
}
