package api

// ModelInfo describes one model known to the Job Service
// (GET /api/models/available). IsLoaded is the precondition the orchestrator
// cares about: a run may only target a loaded model.
type ModelInfo struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Provider          string   `json:"provider,omitempty"`
	SizeCategory      string   `json:"size_category,omitempty"`
	Type              string   `json:"type,omitempty"`
	IsLoaded          bool     `json:"is_loaded"`
	MemoryUsageMB     *float64 `json:"memory_usage_mb,omitempty"`
	EstimatedMemoryGB *int     `json:"estimated_memory_gb,omitempty"`
	Error             string   `json:"error,omitempty"`
}
