package api

import (
	"time"
)

// for marshalling and unmarshalling
type DateTime string

func DateTimeToString(date time.Time) DateTime {
	return DateTime(date.Format("2006-01-02T15:04:05Z07:00"))
}

func DateTimeFromString(date DateTime) (time.Time, error) {
	return time.Parse("2006-01-02T15:04:05Z07:00", string(date))
}

// RunRequest represents the test run request schema accepted by the
// Job Service's POST /api/tests/run endpoint.
type RunRequest struct {
	ModelID    string         `json:"model_id" validate:"required"`
	TestTypes  []string       `json:"test_types" validate:"required,min=1,dive,required"`
	TestConfig map[string]any `json:"test_config,omitempty"`
}

// SubmitResponse is the Job Service acknowledgement for an accepted run.
type SubmitResponse struct {
	TestID            string `json:"test_id"`
	Message           string `json:"message,omitempty"`
	EstimatedDuration string `json:"estimated_duration,omitempty"`
}

// RunStatusInfo is the status probe payload for one run
// (GET /api/tests/status/{test_id}).
type RunStatusInfo struct {
	TestID         string   `json:"test_id"`
	ModelID        string   `json:"model_id,omitempty"`
	Status         State    `json:"status"`
	Progress       float64  `json:"progress,omitempty"`
	StartedAt      DateTime `json:"started_at,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	CompletedAt    DateTime `json:"completed_at,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	TestTypes      []string `json:"test_types,omitempty"`
	OverallScore   *float64 `json:"overall_score,omitempty"`
	TotalTests     int      `json:"total_tests,omitempty"`
	CompletedTests int      `json:"completed_tests,omitempty"`
	FailedTests    int      `json:"failed_tests,omitempty"`
}

// TestTypeResult is one test type's result record. The Job Service emits a
// different score key per test type (score, bias_score, safety_score,
// consistency_score, ...), so the record keeps the raw metrics and exposes
// a normalized accessor.
type TestTypeResult map[string]any

// scoreKeys in lookup order; the first present numeric value wins.
var scoreKeys = []string{"score", "bias_score", "safety_score", "consistency_score", "accuracy"}

func (r TestTypeResult) Status() State {
	if s, ok := r["status"].(string); ok {
		return State(s)
	}
	return ""
}

// Score returns the normalized numeric score of the record, if any.
func (r TestTypeResult) Score() (float64, bool) {
	for _, key := range scoreKeys {
		if v, ok := r[key]; ok {
			if f, ok := v.(float64); ok {
				return f, true
			}
		}
	}
	return 0, false
}

func (r TestTypeResult) ErrorMessage() string {
	if msg, ok := r["error"].(string); ok {
		return msg
	}
	return ""
}

// RunResult is the full result payload for a run (GET /api/tests/results/{test_id}).
// Immutable once the run reaches a terminal state; the Results map is only
// meaningful when Status is completed.
type RunResult struct {
	TestID         string                    `json:"test_id"`
	ModelID        string                    `json:"model_id"`
	TestTypes      []string                  `json:"test_types,omitempty"`
	Status         State                     `json:"status"`
	StartedAt      DateTime                  `json:"started_at,omitempty"`
	CompletedAt    DateTime                  `json:"completed_at,omitempty"`
	Progress       float64                   `json:"progress,omitempty"`
	OverallScore   *float64                  `json:"overall_score,omitempty"`
	Results        map[string]TestTypeResult `json:"results,omitempty"`
	Error          string                    `json:"error,omitempty"`
	TotalTests     int                       `json:"total_tests,omitempty"`
	CompletedTests int                       `json:"completed_tests,omitempty"`
	FailedTests    int                       `json:"failed_tests,omitempty"`
}

// HistoryResponse lists run records newest first by submission time
// (GET /api/tests/history?limit=N).
type HistoryResponse struct {
	Tests      []RunResult `json:"tests"`
	TotalCount int         `json:"total_count"`
}

// AckResponse is the generic acknowledgement for cancel and delete calls.
type AckResponse struct {
	Message string `json:"message,omitempty"`
}
