package features

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/probe-hub/probe-hub/cmd/probe_hub/server"
	"github.com/probe-hub/probe-hub/internal/config"
	"github.com/probe-hub/probe-hub/internal/logging"
	"github.com/probe-hub/probe-hub/internal/orchestrator"
	"github.com/probe-hub/probe-hub/internal/registry"
	"github.com/probe-hub/probe-hub/internal/validation"
	papi "github.com/probe-hub/probe-hub/pkg/api"
	"github.com/probe-hub/probe-hub/pkg/jobservice"

	"github.com/Jeffail/gabs/v2"
	"github.com/cucumber/godog"
)

var (
	// api is the shared suite configuration
	api *apiFeature
)

type apiFeature struct {
	baseURL     *url.URL
	facade      *httptest.Server
	upstream    *httptest.Server
	orch        *orchestrator.Orchestrator
	client      *http.Client
	runSequence int
	mu          sync.Mutex
}

// scenarioConfig keeps per-scenario state so scenarios do not overwrite
// data from other scenarios
type scenarioConfig struct {
	scenarioName string
	apiFeature   *apiFeature
	response     *http.Response
	body         []byte

	lastId string
}

func logDebug(format string, a ...any) {
	fmt.Printf(format, a...)
}

// stubJobService plays the remote Job Service for the suite: every submitted
// run is acknowledged and then reported as running until cancelled.
func (a *apiFeature) stubJobService(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/tests/run":
		a.mu.Lock()
		a.runSequence++
		id := fmt.Sprintf("fvt-run-%d", a.runSequence)
		a.mu.Unlock()
		json.NewEncoder(w).Encode(papi.SubmitResponse{TestID: id, EstimatedDuration: "2-5 minutes"})
	case strings.HasPrefix(r.URL.Path, "/api/tests/status/"):
		id := strings.TrimPrefix(r.URL.Path, "/api/tests/status/")
		json.NewEncoder(w).Encode(papi.RunStatusInfo{TestID: id, Status: papi.StateRunning, Progress: 0.5})
	case strings.HasPrefix(r.URL.Path, "/api/tests/cancel/"):
		json.NewEncoder(w).Encode(papi.AckResponse{Message: "cancelled"})
	case strings.HasPrefix(r.URL.Path, "/api/tests/results/"):
		json.NewEncoder(w).Encode(papi.AckResponse{Message: "deleted"})
	case r.URL.Path == "/api/tests/history":
		json.NewEncoder(w).Encode(papi.HistoryResponse{Tests: []papi.RunResult{}})
	case r.URL.Path == "/api/tests/available":
		json.NewEncoder(w).Encode(papi.AvailableTestsResponse{
			Tests: map[string]papi.TestTypeInfo{
				"hallucination": {Name: "Hallucination Detection"},
				"bias":          {Name: "Bias Analysis"},
				"toxicity":      {Name: "Toxicity Screening"},
			},
			TotalCount: 3,
		})
	case r.URL.Path == "/api/models/loaded":
		json.NewEncoder(w).Encode([]string{"granite-3b"})
	default:
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"detail": "not found"})
	}
}

func createApiFeature() (*apiFeature, error) {
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	if serverURL := os.Getenv("SERVER_URL"); serverURL != "" {
		uri, err := url.Parse(serverURL)
		if err != nil {
			return nil, fmt.Errorf("invalid SERVER_URL: %v", err)
		}
		return &apiFeature{client: client, baseURL: uri}, nil
	}

	a := &apiFeature{client: client}
	if err := a.startLocalServer(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *apiFeature) startLocalServer() error {
	logger := logging.FallbackLogger()

	a.upstream = httptest.NewServer(http.HandlerFunc(a.stubJobService))

	validate, err := validation.NewValidator()
	if err != nil {
		return fmt.Errorf("failed to create validator: %w", err)
	}

	jobClient := jobservice.NewClient(a.upstream.URL)
	a.orch = orchestrator.New(jobClient, registry.New(logger), validate, logger, orchestrator.Options{
		PollInterval:    10 * time.Millisecond,
		PollMaxAttempts: 100,
	})

	serviceConfig := &config.Config{
		Service: &config.ServiceConfig{
			Version:   "0.0.1",
			LocalMode: true,
		},
	}

	srv, err := server.NewServer(logger, serviceConfig, a.orch, validate)
	if err != nil {
		return err
	}
	handler, err := srv.SetupRoutes()
	if err != nil {
		return err
	}

	a.facade = httptest.NewServer(handler)
	baseURL, err := url.Parse(a.facade.URL)
	if err != nil {
		return err
	}
	a.baseURL = baseURL
	return nil
}

func (a *apiFeature) cleanup() {
	if a.orch != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		a.orch.Shutdown(ctx)
	}
	if a.facade != nil {
		a.facade.Close()
	}
	if a.upstream != nil {
		a.upstream.Close()
	}
}

func (tc *scenarioConfig) theServiceIsRunning(ctx context.Context) error {
	for range 10 {
		if err := tc.checkHealthEndpoint(); err != nil {
			logDebug("Error checking health endpoint: %v\n", err.Error())
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	return nil
}

func (tc *scenarioConfig) checkHealthEndpoint() error {
	if err := tc.iSendARequestTo("GET", "/api/v1/health"); err != nil {
		return fmt.Errorf("failed to send health check request: %w for URL %s", err, tc.apiFeature.baseURL.String())
	}
	if tc.response.StatusCode != 200 {
		return fmt.Errorf("expected status 200, got %d", tc.response.StatusCode)
	}

	match := "\"status\": \"healthy\""
	if !strings.Contains(string(tc.body), match) {
		return fmt.Errorf("expected body to contain %s, got %s", match, string(tc.body))
	}
	return nil
}

func (tc *scenarioConfig) iSendARequestTo(method, path string) error {
	return tc.iSendARequestToWithBody(method, path, "")
}

func (tc *scenarioConfig) iSendARequestToWithBody(method, path, body string) error {
	if strings.Contains(path, "{id}") {
		if tc.lastId == "" {
			return fmt.Errorf("last ID is not set")
		}
		path = strings.Replace(path, "{id}", tc.lastId, 1)
	}

	// gherkin keeps the backslashes of escaped quotes in the step text, so
	// turn \" back into " before using the body as JSON
	body = strings.ReplaceAll(body, `\"`, `"`)

	url := fmt.Sprintf("%s%s", tc.apiFeature.baseURL.String(), path)
	var entity io.Reader
	if body != "" {
		entity = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, entity)
	if err != nil {
		return err
	}

	tc.response, err = tc.apiFeature.client.Do(req)
	if err != nil {
		return err
	}

	tc.body, err = io.ReadAll(tc.response.Body)
	if err != nil {
		return err
	}
	defer tc.response.Body.Close()

	// remember the run id of a successful submission so later steps can
	// reference it as {id}
	if method == http.MethodPost && strings.HasPrefix(path, "/api/v1/runs") && tc.response.StatusCode == 202 {
		container, err := gabs.ParseJSON(tc.body)
		if err != nil {
			return fmt.Errorf("run submission response is not JSON: %w", err)
		}
		if id, ok := container.Path("run_id").Data().(string); ok {
			tc.lastId = id
		}
	}

	return nil
}

func (tc *scenarioConfig) theResponseStatusShouldBe(status int) error {
	if tc.response.StatusCode != status {
		return fmt.Errorf("expected status %d, got %d: %s", status, tc.response.StatusCode, string(tc.body))
	}
	return nil
}

func (tc *scenarioConfig) theResponseShouldBeJSON() error {
	contentType := tc.response.Header.Get("Content-Type")
	if !strings.Contains(contentType, "application/json") {
		return fmt.Errorf("expected JSON content type, got %s", contentType)
	}

	var js interface{}
	if err := json.Unmarshal(tc.body, &js); err != nil {
		return fmt.Errorf("response is not valid JSON: %v", err)
	}
	return nil
}

func (tc *scenarioConfig) theResponseShouldContainWithValue(key, value string) error {
	var data map[string]interface{}
	if err := json.Unmarshal(tc.body, &data); err != nil {
		return err
	}

	if data[key] != value {
		return fmt.Errorf("expected %s to be %s, got %v", key, value, data[key])
	}
	return nil
}

func (tc *scenarioConfig) theResponseShouldContain(key string) error {
	var data map[string]interface{}
	if err := json.Unmarshal(tc.body, &data); err != nil {
		return err
	}

	if _, ok := data[key]; !ok {
		return fmt.Errorf("response does not contain key: %s", key)
	}
	return nil
}

// theResponsePathShouldBe asserts a dotted JSON path, e.g. "result.status".
func (tc *scenarioConfig) theResponsePathShouldBe(path, value string) error {
	container, err := gabs.ParseJSON(tc.body)
	if err != nil {
		return fmt.Errorf("response is not valid JSON: %v", err)
	}
	got := container.Path(path).Data()
	if got == nil {
		return fmt.Errorf("response does not contain path %s: %s", path, string(tc.body))
	}
	if fmt.Sprintf("%v", got) != value {
		return fmt.Errorf("expected %s to be %s, got %v", path, value, got)
	}
	return nil
}

func (tc *scenarioConfig) theResponseShouldContainPrometheusMetrics() error {
	bodyStr := string(tc.body)
	if !strings.Contains(bodyStr, "# HELP") || !strings.Contains(bodyStr, "# TYPE") {
		return fmt.Errorf("response does not appear to be Prometheus metrics format")
	}
	return nil
}

func (tc *scenarioConfig) theMetricsShouldInclude(metricName string) error {
	bodyStr := string(tc.body)
	if !strings.Contains(bodyStr, metricName) {
		return fmt.Errorf("metrics do not include %s", metricName)
	}
	return nil
}

func (tc *scenarioConfig) saveScenarioName(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
	tc.scenarioName = sc.Name
	return ctx, nil
}

// runCleanup deletes the scenario's run so the single-active-run rule does
// not leak into the next scenario.
func (tc *scenarioConfig) runCleanup(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
	if tc.lastId == "" {
		return ctx, nil
	}
	path := fmt.Sprintf("/api/v1/runs/%s/results", tc.lastId)
	if err := tc.iSendARequestTo("DELETE", path); err != nil {
		return ctx, fmt.Errorf("failed to delete run %s: %w", tc.lastId, err)
	}
	if tc.response.StatusCode != 200 {
		return ctx, fmt.Errorf("expected status 200 cleaning up run %s, got %d", tc.lastId, tc.response.StatusCode)
	}
	logDebug("Deleted run %s with status %d\n", tc.lastId, tc.response.StatusCode)
	tc.lastId = ""
	return ctx, nil
}

func createScenarioConfig(apiConfig *apiFeature) *scenarioConfig {
	conf := new(scenarioConfig)
	conf.apiFeature = apiConfig
	return conf
}

func setUpTestConf() {
	apiFeature, err := createApiFeature()
	if err != nil {
		panic(fmt.Errorf("failed to create API feature: %v", err))
	}
	api = apiFeature
}

func waitForService() {
	tc := createScenarioConfig(api)
	for range 10 {
		if err := tc.checkHealthEndpoint(); err != nil {
			logDebug("Error checking health endpoint: %v\n", err.Error())
			time.Sleep(1 * time.Second)
		} else {
			return
		}
	}
	panic("Stopped API Tests. Service is not ready for testing.\n")
}

func tidyUpTests() {
	if api != nil {
		api.cleanup()
	}
}

func InitializeTestSuite(ctx *godog.TestSuiteContext) {
	ctx.BeforeSuite(setUpTestConf)
	ctx.BeforeSuite(waitForService)
	ctx.AfterSuite(tidyUpTests)
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := createScenarioConfig(api)

	ctx.Before(tc.saveScenarioName)
	ctx.After(tc.runCleanup)

	ctx.Step(`^the service is running$`, tc.theServiceIsRunning)
	ctx.Step(`^I send a (GET|DELETE|POST) request to "([^"]*)"$`, tc.iSendARequestTo)
	ctx.Step(`^I send a (POST|PUT|PATCH) request to "([^"]*)" with body "(.*)"$`, tc.iSendARequestToWithBody)
	ctx.Step(`^the response code should be (\d+)$`, tc.theResponseStatusShouldBe)
	ctx.Step(`^the response should be JSON$`, tc.theResponseShouldBeJSON)
	ctx.Step(`^the response should contain "([^"]*)" with value "([^"]*)"$`, tc.theResponseShouldContainWithValue)
	ctx.Step(`^the response should contain "([^"]*)"$`, tc.theResponseShouldContain)
	ctx.Step(`^the response path "([^"]*)" should be "([^"]*)"$`, tc.theResponsePathShouldBe)
	ctx.Step(`^the response should contain Prometheus metrics$`, tc.theResponseShouldContainPrometheusMetrics)
	ctx.Step(`^the metrics should include "([^"]*)"$`, tc.theMetricsShouldInclude)
}
