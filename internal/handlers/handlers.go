package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/probe-hub/probe-hub/internal/config"
	"github.com/probe-hub/probe-hub/internal/executioncontext"
	"github.com/probe-hub/probe-hub/internal/logging"
	"github.com/probe-hub/probe-hub/internal/messages"
	"github.com/probe-hub/probe-hub/internal/orchestrator"
	"github.com/go-playground/validator/v10"
)

type Handlers struct {
	orch     *orchestrator.Orchestrator
	validate *validator.Validate
	conf     *config.Config
}

func New(orch *orchestrator.Orchestrator, validate *validator.Validate, conf *config.Config) *Handlers {
	return &Handlers{
		orch:     orch,
		validate: validate,
		conf:     conf,
	}
}

func (h *Handlers) checkMethod(ctx *executioncontext.ExecutionContext, method string, w http.ResponseWriter) bool {
	if ctx.Method != method {
		h.errorWithMessageCode(ctx, w, messages.MethodNotAllowed, "Method", ctx.Method, "Api", ctx.URI)
		return false
	}
	return true
}

// HandleMethodNotAllowed is the router fallback for methods a route does not serve.
func (h *Handlers) HandleMethodNotAllowed(ctx *executioncontext.ExecutionContext, w http.ResponseWriter) {
	h.errorWithMessageCode(ctx, w, messages.MethodNotAllowed, "Method", ctx.Method, "Api", ctx.URI)
}

func (h *Handlers) setApplicationJSON(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
}

func (h *Handlers) errorWithMessageCode(ctx *executioncontext.ExecutionContext, w http.ResponseWriter, messageCode *messages.MessageCode, messageParams ...any) {
	code := messageCode.GetCode()
	errorMessage := messages.GetErrorMessage(messageCode, messageParams...)

	h.setApplicationJSON(w)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(code)
	fmt.Fprintln(w, fmt.Sprintf(`{"error":%q,"code":%d,"trace":%q}`, errorMessage, code, ctx.RequestID))

	logging.LogRequestFailed(ctx.Ctx, ctx.Logger, code, errorMessage)
}

// coreError maps a typed core error to its user-facing message code.
func (h *Handlers) coreError(ctx *executioncontext.ExecutionContext, w http.ResponseWriter, err error) {
	messageCode, messageParams := mapCoreError(err)
	h.errorWithMessageCode(ctx, w, messageCode, messageParams...)
}

func (h *Handlers) successResponse(ctx *executioncontext.ExecutionContext, w http.ResponseWriter, response any, code int) {
	jsonBytes, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		h.errorWithMessageCode(ctx, w, messages.InternalServerError, "Error", err.Error())
		return
	}

	h.setApplicationJSON(w)
	w.WriteHeader(code)
	w.Write(jsonBytes)

	logging.LogRequestSuccess(ctx.Ctx, ctx.Logger, code)
}
