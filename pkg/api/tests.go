package api

// TestTypeInfo describes one entry of the Job Service's diagnostic test
// catalogue (GET /api/tests/available).
type TestTypeInfo struct {
	Name             string `json:"name"`
	Description      string `json:"description,omitempty"`
	EstimatedTime    string `json:"estimated_time,omitempty"`
	RequiresInternet bool   `json:"requires_internet,omitempty"`
}

type AvailableTestsResponse struct {
	Tests      map[string]TestTypeInfo `json:"tests"`
	TotalCount int                     `json:"total_count"`
}

// DefaultTestTypes is the built-in catalogue, used when the Job Service's
// catalogue endpoint cannot be reached.
var DefaultTestTypes = []string{
	"hallucination",
	"bias",
	"toxicity",
	"consistency",
	"performance",
}
