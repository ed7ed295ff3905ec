package jobservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/probe-hub/probe-hub/pkg/api"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// API endpoint constants
const (
	// Base API paths
	testsBasePath  = "/api/tests"
	modelsBasePath = "/api/models"

	// Test run endpoints
	endpointTestsRun       = testsBasePath + "/run"
	endpointTestsStatus    = testsBasePath + "/status"
	endpointTestsResults   = testsBasePath + "/results"
	endpointTestsCancel    = testsBasePath + "/cancel"
	endpointTestsHistory   = testsBasePath + "/history"
	endpointTestsAvailable = testsBasePath + "/available"

	// Model endpoints (read-only, precondition source)
	endpointModelsAvailable = modelsBasePath + "/available"
	endpointModelsLoaded    = modelsBasePath + "/loaded"
)

// Client is a thin request/response wrapper around the Job Service HTTP
// surface. It holds no run state and implements no retries; the polling
// engine and orchestrator own that policy.
type Client struct {
	baseURL    string
	httpClient *http.Client
	authToken  string
	logger     *slog.Logger
}

// serviceDetail is the error body shape the Job Service returns on 4xx/5xx.
type serviceDetail struct {
	Detail string `json:"detail"`
}

// NewClient creates a new Job Service client. The transport is instrumented
// with OpenTelemetry so every service call shows up as a client span.
func NewClient(baseURL string) *Client {
	// Ensure baseURL doesn't end with a slash
	if len(baseURL) > 0 && baseURL[len(baseURL)-1] == '/' {
		baseURL = baseURL[:len(baseURL)-1]
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: slog.New(slog.DiscardHandler),
	}
}

func (c *Client) WithHTTPClient(httpClient *http.Client) *Client {
	if c == nil {
		return nil
	}
	return &Client{
		baseURL:    c.baseURL,
		httpClient: httpClient,
		authToken:  c.authToken,
		logger:     c.logger,
	}
}

func (c *Client) WithLogger(logger *slog.Logger) *Client {
	if c == nil {
		return nil
	}
	return &Client{
		baseURL:    c.baseURL,
		httpClient: c.httpClient,
		authToken:  c.authToken,
		logger:     logger,
	}
}

func (c *Client) WithToken(authToken string) *Client {
	if c == nil {
		return nil
	}
	return &Client{
		baseURL:    c.baseURL,
		httpClient: c.httpClient,
		authToken:  authToken,
		logger:     c.logger,
	}
}

func (c *Client) GetLogger() *slog.Logger {
	return c.logger
}

func (c *Client) GetBaseURL() string {
	return c.baseURL
}

// doRequest performs an HTTP request to the Job Service and maps failures to
// typed ServiceError values.
func (c *Client) doRequest(ctx context.Context, method, endpoint string, body interface{}) ([]byte, error) {
	c.logger.Debug("Job service request started", "method", method, "endpoint", endpoint)

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		if strings.HasPrefix(c.authToken, "Bearer ") || strings.HasPrefix(c.authToken, "Basic ") {
			req.Header.Set("Authorization", c.authToken)
		} else {
			req.Header.Set("Authorization", "Bearer "+c.authToken)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// a context cancellation is still reported as unreachable here; the
		// poller inspects its own context before trusting any probe error
		c.logger.Debug("Job service request errored", "method", method, "endpoint", endpoint, "error", err.Error())
		return nil, &ServiceError{Kind: KindUnreachable, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ServiceError{Kind: KindUnreachable, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := serviceDetail{}
		_ = json.Unmarshal(respBody, &detail)
		if detail.Detail == "" {
			detail.Detail = strings.TrimSpace(string(respBody))
		}
		svcErr := &ServiceError{
			Kind:       classifyStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Detail:     detail.Detail,
		}
		c.logger.Debug("Job service request failed", "method", method, "endpoint", endpoint, "status", resp.StatusCode, "detail", detail.Detail)
		return nil, svcErr
	}

	c.logger.Debug("Job service request successful", "method", method, "endpoint", endpoint, "status", resp.StatusCode)
	return respBody, nil
}

func classifyStatus(status int) ErrorKind {
	switch {
	case status == http.StatusNotFound:
		return KindNotFound
	case status >= 400 && status < 500:
		return KindValidationRejected
	default:
		return KindUnreachable
	}
}

// unmarshalResponse unmarshals JSON response body into a struct of type T
func unmarshalResponse[T any](respBody []byte) (*T, error) {
	var response T
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &response, nil
}

// Test run API

// Submit starts a diagnostic test run and returns the service-assigned run id.
func (c *Client) Submit(ctx context.Context, req *api.RunRequest) (*api.SubmitResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("run request is nil")
	}
	respBody, err := c.doRequest(ctx, http.MethodPost, endpointTestsRun, req)
	if err != nil {
		return nil, err
	}

	return unmarshalResponse[api.SubmitResponse](respBody)
}

// Status probes the current lifecycle state of one run.
func (c *Client) Status(ctx context.Context, runID string) (*api.RunStatusInfo, error) {
	respBody, err := c.doRequest(ctx, http.MethodGet, endpointTestsStatus+"/"+url.PathEscape(runID), nil)
	if err != nil {
		return nil, err
	}

	return unmarshalResponse[api.RunStatusInfo](respBody)
}

// Results fetches the full result payload for a run. Only meaningful once the
// run's status is terminal.
func (c *Client) Results(ctx context.Context, runID string) (*api.RunResult, error) {
	respBody, err := c.doRequest(ctx, http.MethodGet, endpointTestsResults+"/"+url.PathEscape(runID), nil)
	if err != nil {
		return nil, err
	}

	return unmarshalResponse[api.RunResult](respBody)
}

// Cancel asks the Job Service to stop a running test. Cancelling a run that
// already reached a terminal state surfaces as KindNotFound; callers treat
// that as an idempotent no-op.
func (c *Client) Cancel(ctx context.Context, runID string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, endpointTestsCancel+"/"+url.PathEscape(runID), nil)
	return err
}

// DeleteResults removes a run's stored results from the Job Service.
func (c *Client) DeleteResults(ctx context.Context, runID string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, endpointTestsResults+"/"+url.PathEscape(runID), nil)
	return err
}

// History lists past runs, newest first by submission time.
func (c *Client) History(ctx context.Context, limit int) (*api.HistoryResponse, error) {
	endpoint := endpointTestsHistory
	if limit > 0 {
		endpoint += "?limit=" + strconv.Itoa(limit)
	}
	respBody, err := c.doRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	return unmarshalResponse[api.HistoryResponse](respBody)
}

// AvailableTests fetches the diagnostic test catalogue.
func (c *Client) AvailableTests(ctx context.Context) (*api.AvailableTestsResponse, error) {
	respBody, err := c.doRequest(ctx, http.MethodGet, endpointTestsAvailable, nil)
	if err != nil {
		return nil, err
	}

	return unmarshalResponse[api.AvailableTestsResponse](respBody)
}

// Model API (read-only; used as a precondition source)

// AvailableModels lists all models known to the Job Service keyed by model id.
func (c *Client) AvailableModels(ctx context.Context) (map[string]api.ModelInfo, error) {
	respBody, err := c.doRequest(ctx, http.MethodGet, endpointModelsAvailable, nil)
	if err != nil {
		return nil, err
	}

	models := map[string]api.ModelInfo{}
	if err := json.Unmarshal(respBody, &models); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return models, nil
}

// LoadedModels lists the ids of currently loaded models.
func (c *Client) LoadedModels(ctx context.Context) ([]string, error) {
	respBody, err := c.doRequest(ctx, http.MethodGet, endpointModelsLoaded, nil)
	if err != nil {
		return nil, err
	}

	loaded := []string{}
	if err := json.Unmarshal(respBody, &loaded); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return loaded, nil
}
