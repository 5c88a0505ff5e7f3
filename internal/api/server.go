// Package api serves the codeflow JSON API over HTTP.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/rendis/codeflow/internal/chat"
	"github.com/rendis/codeflow/internal/flowchart"
	"github.com/rendis/codeflow/internal/logging"
	"github.com/rendis/codeflow/internal/metrics"
	"github.com/rendis/codeflow/internal/sandbox"
	"github.com/rendis/codeflow/internal/store"
	"github.com/rendis/codeflow/internal/validation"
)

// Deps holds the dependencies of the API server. History may be nil, in
// which case chat exchanges are not recorded and the history routes answer
// 503.
type Deps struct {
	Synthesizer *flowchart.Synthesizer
	Runner      sandbox.Runner
	Assistant   *chat.Assistant
	History     store.ConversationLog
	Metrics     *metrics.Registry
	Logger      *slog.Logger
	CORSOrigins []string
	Now         func() time.Time
}

// Server routes API requests to the flowchart, sandbox, scanner and chat
// components.
type Server struct {
	deps    Deps
	schemas *validation.SchemaValidator
}

// NewServer creates a Server, filling unset dependencies with defaults.
func NewServer(deps Deps) (*Server, error) {
	deps.Logger = logging.OrDefault(deps.Logger)
	if deps.Synthesizer == nil {
		deps.Synthesizer = flowchart.New(flowchart.Config{Logger: deps.Logger})
	}
	if deps.Runner == nil {
		deps.Runner = sandbox.NewExecutor(sandbox.Config{}, deps.Logger)
	}
	if deps.Assistant == nil {
		deps.Assistant = chat.New(chat.Config{Logger: deps.Logger})
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewRegistry()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if len(deps.CORSOrigins) == 0 {
		deps.CORSOrigins = []string{"*"}
	}

	schemas, err := validation.NewSchemaValidator()
	if err != nil {
		return nil, err
	}
	return &Server{deps: deps, schemas: schemas}, nil
}

// Handler returns the HTTP handler for all routes, wrapped in the
// request-id, recovery, CORS and metrics middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/generate_flowchart", s.guard("Failed to generate flowchart", s.handleGenerateFlowchart))
	mux.HandleFunc("POST /api/analyze_code", s.guard("Failed to analyze code", s.handleAnalyzeCode))
	mux.HandleFunc("POST /api/execute_code", s.guard("Failed to execute code", s.handleExecuteCode))
	mux.HandleFunc("POST /api/chat", s.guard("Failed to process chat message", s.handleChat))
	mux.HandleFunc("POST /api/render", s.guard("Failed to render diagram", s.handleRender))
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/history", s.guard("Failed to load history", s.handleListHistory))
	mux.HandleFunc("DELETE /api/history", s.guard("Failed to clear history", s.handleClearHistory))
	mux.Handle("GET /metrics", s.deps.Metrics.Handler())

	var h http.Handler = mux
	h = s.instrument(h)
	h = s.cors(h)
	h = s.recoverer(h)
	h = s.requestID(h)
	return h
}

// timestamp formats the current time for response bodies.
func (s *Server) timestamp() string {
	return s.deps.Now().UTC().Format(time.RFC3339)
}
