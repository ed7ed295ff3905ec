package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/probe-hub/probe-hub/internal/config"
	"github.com/probe-hub/probe-hub/internal/constants"
	"github.com/probe-hub/probe-hub/internal/handlers"
	"github.com/probe-hub/probe-hub/internal/orchestrator"
	"github.com/go-playground/validator/v10"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	httpServer    *http.Server
	port          int
	logger        *slog.Logger
	serviceConfig *config.Config
	orch          *orchestrator.Orchestrator
	validate      *validator.Validate
}

// NewServer creates a new HTTP server instance with the provided logger and configuration.
// The server uses standard library net/http.ServeMux for routing without a web framework.
//
// The server implements the routing pattern where:
//   - Handlers receive *ExecutionContext, http.ResponseWriter
//   - ExecutionContext is created at the route level before calling handlers
//   - Routes manually switch on HTTP method in handler functions
//
// All routes are wrapped with Prometheus metrics middleware for request duration and
// status code tracking.
func NewServer(logger *slog.Logger,
	serviceConfig *config.Config,
	orch *orchestrator.Orchestrator,
	validate *validator.Validate) (*Server, error) {

	if logger == nil {
		return nil, fmt.Errorf("logger is required for the server")
	}
	if (serviceConfig == nil) || (serviceConfig.Service == nil) {
		return nil, fmt.Errorf("service config is required for the server")
	}
	if orch == nil {
		return nil, fmt.Errorf("orchestrator is required for the server")
	}
	if validate == nil {
		return nil, fmt.Errorf("validator is required for the server")
	}

	return &Server{
		port:          serviceConfig.Service.Port,
		logger:        logger,
		serviceConfig: serviceConfig,
		orch:          orch,
		validate:      validate,
	}, nil
}

func (s *Server) GetPort() int {
	return s.port
}

// loggerWithRequest enhances a logger with request-specific fields for distributed
// tracing and structured logging. The request ID is taken from the
// X-Global-Transaction-Id header, or auto-generated when missing, so that log
// entries can be correlated across services.
func (s *Server) loggerWithRequest(r *http.Request) (string, *slog.Logger) {
	requestID := r.Header.Get("X-Global-Transaction-Id")
	if requestID == "" {
		requestID = uuid.New().String() // generate a UUID if not present
	}

	enhancedLogger := s.logger.With(constants.LOG_REQUEST_ID, requestID)

	method := r.Method
	if method != "" {
		enhancedLogger = enhancedLogger.With(constants.LOG_METHOD, method)
	}

	uri := ""
	if r.URL != nil {
		uri = r.URL.Path
	}
	if uri == "" {
		uri = r.RequestURI
	}
	if uri != "" {
		enhancedLogger = enhancedLogger.With(constants.LOG_URI, uri)
	}

	userAgent := r.Header.Get("User-Agent")
	if userAgent != "" {
		enhancedLogger = enhancedLogger.With(constants.LOG_USER_AGENT, userAgent)
	}

	remoteAddr := r.RemoteAddr
	if remoteAddr != "" {
		enhancedLogger = enhancedLogger.With(constants.LOG_REMOTE_ADR, remoteAddr)
	}

	referer := r.Header.Get("Referer")
	if referer != "" {
		enhancedLogger = enhancedLogger.With(constants.LOG_REFERER, referer)
	}

	return requestID, enhancedLogger
}

func (s *Server) setupRoutes() (http.Handler, error) {
	router := http.NewServeMux()
	h := handlers.New(s.orch, s.validate, s.serviceConfig)

	// Health and status endpoints
	router.HandleFunc("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		ctx := s.newExecutionContext(r)
		h.HandleHealth(ctx, w)
	})

	router.HandleFunc("/api/v1/status", func(w http.ResponseWriter, r *http.Request) {
		ctx := s.newExecutionContext(r)
		h.HandleStatus(ctx, w)
	})

	// Run collection endpoints
	router.HandleFunc("/api/v1/runs", func(w http.ResponseWriter, r *http.Request) {
		ctx := s.newExecutionContext(r)
		switch r.Method {
		case http.MethodPost:
			h.HandleStartRun(ctx, w)
		case http.MethodGet:
			h.HandleListRuns(ctx, w)
		default:
			h.HandleMethodNotAllowed(ctx, w)
		}
	})

	router.HandleFunc("/api/v1/runs/active", func(w http.ResponseWriter, r *http.Request) {
		ctx := s.newExecutionContext(r)
		h.HandleActiveRun(ctx, w)
	})

	// Individual run endpoints
	router.HandleFunc(fmt.Sprintf("/api/v1/runs/{%s}", constants.PATH_PARAMETER_RUN_ID), func(w http.ResponseWriter, r *http.Request) {
		ctx := s.newExecutionContext(r)
		switch r.Method {
		case http.MethodGet:
			h.HandleGetRun(ctx, w)
		case http.MethodDelete:
			h.HandleCancelRun(ctx, w)
		default:
			h.HandleMethodNotAllowed(ctx, w)
		}
	})

	router.HandleFunc(fmt.Sprintf("/api/v1/runs/{%s}/results", constants.PATH_PARAMETER_RUN_ID), func(w http.ResponseWriter, r *http.Request) {
		ctx := s.newExecutionContext(r)
		switch r.Method {
		case http.MethodDelete:
			h.HandleDeleteRun(ctx, w)
		default:
			h.HandleMethodNotAllowed(ctx, w)
		}
	})

	// History and catalogue endpoints
	router.HandleFunc("/api/v1/history", func(w http.ResponseWriter, r *http.Request) {
		ctx := s.newExecutionContext(r)
		h.HandleHistory(ctx, w)
	})

	router.HandleFunc("/api/v1/tests", func(w http.ResponseWriter, r *http.Request) {
		ctx := s.newExecutionContext(r)
		h.HandleAvailableTests(ctx, w)
	})

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	// Wrap with metrics middleware (outermost for complete observability)
	handler := Middleware(http.Handler(router))

	return handler, nil
}

// SetupRoutes exposes the route setup for testing
func (s *Server) SetupRoutes() (http.Handler, error) {
	return s.setupRoutes()
}

func (s *Server) Start() error {
	handler, err := s.setupRoutes()
	if err != nil {
		return err
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Writing the server ready message", "file", s.serviceConfig.Service.ReadyFile)
	err = SetReady(s.serviceConfig, s.logger)
	if err != nil {
		return err
	}

	s.logger.Info("Server starting", "port", s.port)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server gracefully...")

	return s.httpServer.Shutdown(ctx)
}
