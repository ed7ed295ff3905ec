package handlers

import (
	"github.com/probe-hub/probe-hub/internal/registry"
	"github.com/probe-hub/probe-hub/pkg/api"
)

// RunView is the UI-facing projection of a run handle.
type RunView struct {
	RunID             string         `json:"run_id"`
	ModelID           string         `json:"model_id"`
	TestTypes         []string       `json:"test_types"`
	Status            api.State      `json:"status"`
	Progress          float64        `json:"progress"`
	SubmittedAt       api.DateTime   `json:"submitted_at"`
	CompletedAt       api.DateTime   `json:"completed_at,omitempty"`
	EstimatedDuration string         `json:"estimated_duration,omitempty"`
	TrackingLost      bool           `json:"tracking_lost,omitempty"`
	Error             string         `json:"error,omitempty"`
	Result            *api.RunResult `json:"result,omitempty"`
}

type RunListResponse struct {
	Runs       []RunView `json:"runs"`
	TotalCount int       `json:"total_count"`
}

func runView(h registry.RunHandle) RunView {
	view := RunView{
		RunID:             h.ID,
		ModelID:           h.Request.ModelID,
		TestTypes:         h.Request.TestTypes,
		Status:            h.Status,
		Progress:          h.Progress,
		SubmittedAt:       api.DateTimeToString(h.SubmittedAt),
		EstimatedDuration: h.EstimatedDuration,
		TrackingLost:      h.TrackingLost,
		Error:             h.LastError,
		Result:            h.Result,
	}
	if !h.CompletedAt.IsZero() {
		view.CompletedAt = api.DateTimeToString(h.CompletedAt)
	}
	return view
}

func runViews(handles []registry.RunHandle) []RunView {
	views := make([]RunView, 0, len(handles))
	for _, h := range handles {
		views = append(views, runView(h))
	}
	return views
}
