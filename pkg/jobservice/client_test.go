package jobservice_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/probe-hub/probe-hub/pkg/api"
	"github.com/probe-hub/probe-hub/pkg/jobservice"
)

func TestSubmit(t *testing.T) {
	t.Run("accepted run returns the service-assigned id", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("Expected POST, got %s", r.Method)
			}
			if r.URL.Path != "/api/tests/run" {
				t.Errorf("Expected /api/tests/run, got %s", r.URL.Path)
			}
			req := api.RunRequest{}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("Failed to decode request body: %v", err)
			}
			if req.ModelID != "granite-3b" {
				t.Errorf("Expected model granite-3b, got %s", req.ModelID)
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(api.SubmitResponse{
				TestID:            "abc-123",
				Message:           "Test run started",
				EstimatedDuration: "2-5 minutes",
			})
		}))
		defer server.Close()

		client := jobservice.NewClient(server.URL)
		resp, err := client.Submit(context.Background(), &api.RunRequest{
			ModelID:   "granite-3b",
			TestTypes: []string{"hallucination"},
		})
		if err != nil {
			t.Fatalf("Expected submission to succeed, got %v", err)
		}
		if resp.TestID != "abc-123" {
			t.Errorf("Expected test id abc-123, got %s", resp.TestID)
		}
		if resp.EstimatedDuration != "2-5 minutes" {
			t.Errorf("Expected the duration estimate, got %q", resp.EstimatedDuration)
		}
	})

	t.Run("rejected run maps to a validation error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"detail": "Model not loaded"})
		}))
		defer server.Close()

		client := jobservice.NewClient(server.URL)
		_, err := client.Submit(context.Background(), &api.RunRequest{
			ModelID:   "ghost-model",
			TestTypes: []string{"bias"},
		})
		if !jobservice.IsValidationRejected(err) {
			t.Fatalf("Expected a validation rejection, got %v", err)
		}
		var svcErr *jobservice.ServiceError
		if !errors.As(err, &svcErr) {
			t.Fatalf("Expected a *ServiceError, got %T", err)
		}
		if svcErr.StatusCode != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", svcErr.StatusCode)
		}
		if svcErr.Detail != "Model not loaded" {
			t.Errorf("Expected the detail from the error body, got %q", svcErr.Detail)
		}
	})

	t.Run("nil request fails before any network call", func(t *testing.T) {
		client := jobservice.NewClient("http://127.0.0.1:1")
		if _, err := client.Submit(context.Background(), nil); err == nil {
			t.Fatal("Expected an error for a nil request")
		}
	})
}

func TestStatus(t *testing.T) {
	t.Run("running status payload", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/tests/status/abc-123" {
				t.Errorf("Expected /api/tests/status/abc-123, got %s", r.URL.Path)
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(api.RunStatusInfo{
				TestID:   "abc-123",
				Status:   api.StateRunning,
				Progress: 0.4,
			})
		}))
		defer server.Close()

		client := jobservice.NewClient(server.URL)
		info, err := client.Status(context.Background(), "abc-123")
		if err != nil {
			t.Fatalf("Expected the probe to succeed, got %v", err)
		}
		if info.Status != api.StateRunning {
			t.Errorf("Expected running, got %s", info.Status)
		}
		if info.Progress != 0.4 {
			t.Errorf("Expected progress 0.4, got %f", info.Progress)
		}
	})

	t.Run("unknown run maps to not found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"detail": "Test run not found"})
		}))
		defer server.Close()

		client := jobservice.NewClient(server.URL)
		_, err := client.Status(context.Background(), "ghost")
		if !jobservice.IsNotFound(err) {
			t.Fatalf("Expected a not-found error, got %v", err)
		}
	})

	t.Run("unreachable service", func(t *testing.T) {
		// a closed server guarantees a transport-level failure
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		client := jobservice.NewClient(server.URL)
		_, err := client.Status(context.Background(), "abc-123")
		if !jobservice.IsUnreachable(err) {
			t.Fatalf("Expected an unreachable error, got %v", err)
		}
	})

	t.Run("server error maps to unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := jobservice.NewClient(server.URL)
		_, err := client.Status(context.Background(), "abc-123")
		if !jobservice.IsUnreachable(err) {
			t.Fatalf("Expected a 5xx to map to unreachable, got %v", err)
		}
	})
}

func TestResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tests/results/abc-123" {
			t.Errorf("Expected /api/tests/results/abc-123, got %s", r.URL.Path)
		}
		score := 0.87
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(api.RunResult{
			TestID:       "abc-123",
			ModelID:      "granite-3b",
			Status:       api.StateCompleted,
			OverallScore: &score,
			Results: map[string]api.TestTypeResult{
				"hallucination": {"status": "completed", "score": 0.87},
				"bias":          {"status": "completed", "bias_score": 0.92},
			},
		})
	}))
	defer server.Close()

	client := jobservice.NewClient(server.URL)
	result, err := client.Results(context.Background(), "abc-123")
	if err != nil {
		t.Fatalf("Expected the fetch to succeed, got %v", err)
	}
	if result.Status != api.StateCompleted {
		t.Errorf("Expected completed, got %s", result.Status)
	}
	if score, ok := result.Results["hallucination"].Score(); !ok || score != 0.87 {
		t.Errorf("Expected the hallucination score 0.87, got %f (%v)", score, ok)
	}
	if score, ok := result.Results["bias"].Score(); !ok || score != 0.92 {
		t.Errorf("Expected the bias_score key to be normalized, got %f (%v)", score, ok)
	}
}

func TestCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("Expected DELETE, got %s", r.Method)
		}
		if r.URL.Path != "/api/tests/cancel/abc-123" {
			t.Errorf("Expected /api/tests/cancel/abc-123, got %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]string{"message": "Test run abc-123 cancelled"})
	}))
	defer server.Close()

	client := jobservice.NewClient(server.URL)
	if err := client.Cancel(context.Background(), "abc-123"); err != nil {
		t.Fatalf("Expected cancellation to succeed, got %v", err)
	}
}

func TestHistory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tests/history" {
			t.Errorf("Expected /api/tests/history, got %s", r.URL.Path)
		}
		if limit := r.URL.Query().Get("limit"); limit != "10" {
			t.Errorf("Expected limit=10, got %q", limit)
		}
		json.NewEncoder(w).Encode(api.HistoryResponse{
			Tests: []api.RunResult{
				{TestID: "newer", Status: api.StateCompleted},
				{TestID: "older", Status: api.StateFailed},
			},
			TotalCount: 2,
		})
	}))
	defer server.Close()

	client := jobservice.NewClient(server.URL)
	history, err := client.History(context.Background(), 10)
	if err != nil {
		t.Fatalf("Expected the fetch to succeed, got %v", err)
	}
	if history.TotalCount != 2 || len(history.Tests) != 2 {
		t.Fatalf("Expected 2 records, got %+v", history)
	}
	if history.Tests[0].TestID != "newer" {
		t.Errorf("Expected newest first, got %s", history.Tests[0].TestID)
	}
}

func TestLoadedModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/models/loaded" {
			t.Errorf("Expected /api/models/loaded, got %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode([]string{"granite-3b", "llama-7b"})
	}))
	defer server.Close()

	client := jobservice.NewClient(server.URL)
	loaded, err := client.LoadedModels(context.Background())
	if err != nil {
		t.Fatalf("Expected the fetch to succeed, got %v", err)
	}
	if len(loaded) != 2 || loaded[0] != "granite-3b" {
		t.Errorf("Expected the loaded model ids, got %v", loaded)
	}
}

func TestAvailableModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/models/available" {
			t.Errorf("Expected /api/models/available, got %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]api.ModelInfo{
			"granite-3b": {ID: "granite-3b", Name: "Granite 3B", IsLoaded: true},
		})
	}))
	defer server.Close()

	client := jobservice.NewClient(server.URL)
	models, err := client.AvailableModels(context.Background())
	if err != nil {
		t.Fatalf("Expected the fetch to succeed, got %v", err)
	}
	if info, ok := models["granite-3b"]; !ok || !info.IsLoaded {
		t.Errorf("Expected granite-3b to be loaded, got %+v", models)
	}
}

func TestAuthorizationHeader(t *testing.T) {
	cases := []struct {
		name   string
		token  string
		header string
	}{
		{"bare token gets the Bearer prefix", "secret", "Bearer secret"},
		{"prefixed token passes through", "Bearer secret", "Bearer secret"},
		{"basic credentials pass through", "Basic dXNlcjpwYXNz", "Basic dXNlcjpwYXNz"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.Header.Get("Authorization")
				json.NewEncoder(w).Encode([]string{})
			}))
			defer server.Close()

			client := jobservice.NewClient(server.URL).WithToken(tc.token)
			if _, err := client.LoadedModels(context.Background()); err != nil {
				t.Fatalf("Expected the call to succeed, got %v", err)
			}
			if got != tc.header {
				t.Errorf("Expected Authorization %q, got %q", tc.header, got)
			}
		})
	}
}

func TestBaseURLTrailingSlash(t *testing.T) {
	client := jobservice.NewClient("http://localhost:8000/")
	if client.GetBaseURL() != "http://localhost:8000" {
		t.Errorf("Expected the trailing slash to be trimmed, got %s", client.GetBaseURL())
	}
}
