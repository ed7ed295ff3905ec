package executioncontext

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// ExecutionContext is the request-scoped context handed to handlers. It
// carries the request id, the request-enhanced logger and the request
// envelope so handlers stay decoupled from *http.Request.
type ExecutionContext struct {
	Ctx       context.Context
	RequestID string
	Logger    *slog.Logger
	Method    string
	URI       string

	body      io.Reader
	bodyBytes []byte
	bodyRead  bool

	pathValue func(name string) string
}

func NewExecutionContext(ctx context.Context, requestID string, logger *slog.Logger, method string, uri string, body io.Reader, pathValue func(name string) string) *ExecutionContext {
	return &ExecutionContext{
		Ctx:       ctx,
		RequestID: requestID,
		Logger:    logger,
		Method:    method,
		URI:       uri,
		body:      body,
		pathValue: pathValue,
	}
}

// GetBodyAsBytes reads and caches the request body.
func (e *ExecutionContext) GetBodyAsBytes() ([]byte, error) {
	if e.bodyRead {
		return e.bodyBytes, nil
	}
	e.bodyRead = true
	if e.body == nil {
		return nil, nil
	}
	buf, err := io.ReadAll(e.body)
	if err != nil {
		return nil, fmt.Errorf("failed to read the request body: %w", err)
	}
	e.bodyBytes = buf
	return e.bodyBytes, nil
}

// PathValue returns the named path parameter, or "" when the route has none.
func (e *ExecutionContext) PathValue(name string) string {
	if e.pathValue == nil {
		return ""
	}
	return e.pathValue(name)
}
