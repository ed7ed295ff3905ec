package handlers

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/probe-hub/probe-hub/internal/constants"
	"github.com/probe-hub/probe-hub/internal/executioncontext"
	"github.com/probe-hub/probe-hub/internal/messages"
	"github.com/probe-hub/probe-hub/internal/serialization"
	"github.com/probe-hub/probe-hub/pkg/api"
)

// HandleStartRun handles POST /api/v1/runs
func (h *Handlers) HandleStartRun(ctx *executioncontext.ExecutionContext, w http.ResponseWriter) {
	if !h.checkMethod(ctx, http.MethodPost, w) {
		return
	}
	bodyBytes, err := ctx.GetBodyAsBytes()
	if err != nil {
		h.errorWithMessageCode(ctx, w, messages.InternalServerError, "Error", err.Error())
		return
	}

	request := &api.RunRequest{}
	if err := serialization.Unmarshal(h.validate, ctx.Ctx, ctx.Logger, bodyBytes, request); err != nil {
		h.errorWithMessageCode(ctx, w, messages.InvalidRunRequest, "Error", err.Error())
		return
	}

	handle, err := h.orch.StartRun(ctx.Ctx, request)
	if err != nil {
		h.coreError(ctx, w, err)
		return
	}

	h.successResponse(ctx, w, runView(handle), http.StatusAccepted)
}

// HandleListRuns handles GET /api/v1/runs
func (h *Handlers) HandleListRuns(ctx *executioncontext.ExecutionContext, w http.ResponseWriter) {
	if !h.checkMethod(ctx, http.MethodGet, w) {
		return
	}

	views := runViews(h.orch.Runs())
	h.successResponse(ctx, w, RunListResponse{Runs: views, TotalCount: len(views)}, http.StatusOK)
}

// HandleActiveRun handles GET /api/v1/runs/active
func (h *Handlers) HandleActiveRun(ctx *executioncontext.ExecutionContext, w http.ResponseWriter) {
	if !h.checkMethod(ctx, http.MethodGet, w) {
		return
	}

	handle, ok := h.orch.ActiveRun()
	if !ok {
		h.errorWithMessageCode(ctx, w, messages.RunNotFound, "RunId", "active")
		return
	}
	h.successResponse(ctx, w, runView(handle), http.StatusOK)
}

// HandleGetRun handles GET /api/v1/runs/{run_id}
func (h *Handlers) HandleGetRun(ctx *executioncontext.ExecutionContext, w http.ResponseWriter) {
	if !h.checkMethod(ctx, http.MethodGet, w) {
		return
	}

	runID := ctx.PathValue(constants.PATH_PARAMETER_RUN_ID)
	if runID == "" {
		h.errorWithMessageCode(ctx, w, messages.MissingPathParameter, "ParameterName", constants.PATH_PARAMETER_RUN_ID)
		return
	}

	handle, ok := h.orch.Run(runID)
	if !ok {
		h.errorWithMessageCode(ctx, w, messages.RunNotFound, "RunId", runID)
		return
	}
	h.successResponse(ctx, w, runView(handle), http.StatusOK)
}

// HandleCancelRun handles DELETE /api/v1/runs/{run_id}
func (h *Handlers) HandleCancelRun(ctx *executioncontext.ExecutionContext, w http.ResponseWriter) {
	if !h.checkMethod(ctx, http.MethodDelete, w) {
		return
	}

	runID := ctx.PathValue(constants.PATH_PARAMETER_RUN_ID)
	if runID == "" {
		h.errorWithMessageCode(ctx, w, messages.MissingPathParameter, "ParameterName", constants.PATH_PARAMETER_RUN_ID)
		return
	}

	if err := h.orch.CancelRun(ctx.Ctx, runID); err != nil {
		h.coreError(ctx, w, err)
		return
	}
	h.successResponse(ctx, w, api.AckResponse{Message: "Test run " + runID + " cancelled"}, http.StatusOK)
}

// HandleDeleteRun handles DELETE /api/v1/runs/{run_id}/results
func (h *Handlers) HandleDeleteRun(ctx *executioncontext.ExecutionContext, w http.ResponseWriter) {
	if !h.checkMethod(ctx, http.MethodDelete, w) {
		return
	}

	runID := ctx.PathValue(constants.PATH_PARAMETER_RUN_ID)
	if runID == "" {
		h.errorWithMessageCode(ctx, w, messages.MissingPathParameter, "ParameterName", constants.PATH_PARAMETER_RUN_ID)
		return
	}

	if err := h.orch.DeleteRun(ctx.Ctx, runID); err != nil {
		h.coreError(ctx, w, err)
		return
	}
	h.successResponse(ctx, w, api.AckResponse{Message: "Test run results " + runID + " deleted"}, http.StatusOK)
}

// HandleHistory handles GET /api/v1/history
func (h *Handlers) HandleHistory(ctx *executioncontext.ExecutionContext, w http.ResponseWriter) {
	if !h.checkMethod(ctx, http.MethodGet, w) {
		return
	}

	limit := 0
	if raw := queryValue(ctx.URI, "limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			h.errorWithMessageCode(ctx, w, messages.QueryParameterInvalid, "ParameterName", "limit", "Type", "integer", "Value", raw)
			return
		}
		limit = parsed
	}

	history, err := h.orch.RefreshHistory(ctx.Ctx, limit)
	if err != nil {
		h.coreError(ctx, w, err)
		return
	}
	h.successResponse(ctx, w, history, http.StatusOK)
}

func queryValue(uri string, name string) string {
	parsed, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	return parsed.Query().Get(name)
}

// HandleAvailableTests handles GET /api/v1/tests
func (h *Handlers) HandleAvailableTests(ctx *executioncontext.ExecutionContext, w http.ResponseWriter) {
	if !h.checkMethod(ctx, http.MethodGet, w) {
		return
	}

	catalogue, err := h.orch.AvailableTests(ctx.Ctx)
	if err != nil {
		h.coreError(ctx, w, err)
		return
	}
	h.successResponse(ctx, w, api.AvailableTestsResponse{Tests: catalogue, TotalCount: len(catalogue)}, http.StatusOK)
}
