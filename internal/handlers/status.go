package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/probe-hub/probe-hub/internal/executioncontext"
)

func (h *Handlers) HandleStatus(ctx *executioncontext.ExecutionContext, w http.ResponseWriter) {
	if !h.checkMethod(ctx, http.MethodGet, w) {
		return
	}

	active := 0
	if _, ok := h.orch.ActiveRun(); ok {
		active = 1
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"service":     "probe-hub",
		"version":     h.conf.Service.Version,
		"status":      "running",
		"active_runs": active,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})
}
