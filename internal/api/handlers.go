package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/rendis/codeflow/internal/diagram"
	"github.com/rendis/codeflow/internal/logging"
	"github.com/rendis/codeflow/internal/scanner"
	"github.com/rendis/codeflow/internal/store"
	"github.com/rendis/codeflow/internal/validation"
	"github.com/rendis/codeflow/pkg/schema"
)

type problemRequest struct {
	Problem string `json:"problem" validate:"required"`
}

type codeRequest struct {
	Code string `json:"code" validate:"required,max=1048576"`
}

type chatRequest struct {
	Message   string `json:"message" validate:"required"`
	SessionID string `json:"session_id" validate:"omitempty,max=128"`
}

type renderRequest struct {
	Flowchart json.RawMessage `json:"flowchart" validate:"required"`
	Format    string          `json:"format" validate:"required,oneof=mermaid ascii dot svg png"`
}

// bind decodes and validates a request body. On failure it writes the 400
// response and returns false. A missing required field is answered with
// missing, other violations with the validator's description.
func bind(w http.ResponseWriter, r *http.Request, v any, missing string) bool {
	if err := decodeBody(r, v); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	if err := validation.Struct(v); err != nil {
		var ce *schema.CodeflowError
		if errors.As(err, &ce) && ce.Details["tag"] == "required" {
			writeError(w, http.StatusBadRequest, missing)
			return false
		}
		msg := err.Error()
		if ce != nil {
			msg = ce.Message
		}
		writeError(w, http.StatusBadRequest, msg)
		return false
	}
	return true
}

func (s *Server) handleGenerateFlowchart(w http.ResponseWriter, r *http.Request) {
	var req problemRequest
	if !bind(w, r, &req, "No problem description provided") {
		return
	}

	g := s.deps.Synthesizer.FromProblem(r.Context(), req.Problem)
	s.deps.Metrics.RecordFlowchart("problem", len(g.Nodes))

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"flowchart": g,
		"message":   "Flowchart generated successfully",
	})
}

func (s *Server) handleAnalyzeCode(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !bind(w, r, &req, "No code provided") {
		return
	}

	g := s.deps.Synthesizer.FromCode(r.Context(), req.Code)
	s.deps.Metrics.RecordFlowchart("code", len(g.Nodes))

	issues := scanner.Scan(req.Code)
	for _, iss := range issues {
		s.deps.Metrics.RecordIssue(string(iss.Category))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"flowchart": g,
		"errors":    issues,
		"message":   "Code analyzed successfully",
	})
}

func (s *Server) handleExecuteCode(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !bind(w, r, &req, "No code provided") {
		return
	}

	ctx := logging.WithExecutionID(r.Context(), uuid.NewString())
	result := s.deps.Runner.Execute(ctx, req.Code)
	s.deps.Metrics.RecordExecution(executionOutcome(result), result.ExecutionTime)

	logging.LogWith(ctx, s.deps.Logger).Info("code executed",
		"success", result.Success,
		"code", result.Code,
		"execution_time", result.ExecutionTime,
	)

	if result.Code == schema.ErrCodeInternal {
		writeFailure(w, result.ErrorMessage(), "Failed to execute code")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"result":  result,
		"message": "Code executed successfully",
	})
}

// executionOutcome labels a result for metrics.
func executionOutcome(res schema.ExecutionResult) string {
	if res.Success {
		return "success"
	}
	if res.Code == "" {
		return "error"
	}
	return res.Code
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !bind(w, r, &req, "No message provided") {
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	ctx := logging.WithSessionID(r.Context(), sessionID)

	resp := s.deps.Assistant.Reply(ctx, req.Message)
	s.deps.Metrics.RecordChat(resp.Type)

	if s.deps.History != nil {
		body, err := json.Marshal(resp)
		if err == nil {
			err = s.deps.History.Append(ctx, &store.Exchange{
				SessionID:   sessionID,
				UserMessage: req.Message,
				Type:        resp.Type,
				BotResponse: body,
			})
		}
		if err != nil {
			logging.LogWith(ctx, s.deps.Logger).Warn("failed to record chat exchange", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"response":   resp,
		"session_id": sessionID,
		"timestamp":  s.timestamp(),
	})
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if !bind(w, r, &req, "No flowchart provided") {
		return
	}

	var doc any
	if err := json.Unmarshal(req.Flowchart, &doc); err != nil {
		writeError(w, http.StatusBadRequest, "invalid flowchart: "+err.Error())
		return
	}
	if err := s.schemas.ValidateFlowchart(doc); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var g schema.FlowchartGraph
	if err := json.Unmarshal(req.Flowchart, &g); err != nil {
		writeError(w, http.StatusBadRequest, "invalid flowchart: "+err.Error())
		return
	}

	out, err := diagram.Render(r.Context(), g, req.Format)
	if err != nil {
		if schema.HasCode(err, schema.ErrCodeInternal) {
			writeFailure(w, err.Error(), "Failed to render diagram")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, encoding := string(out.Data), "utf-8"
	if !out.Text() {
		data, encoding = base64.StdEncoding.EncodeToString(out.Data), "base64"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"format":       out.Format,
		"content_type": out.ContentType,
		"encoding":     encoding,
		"diagram":      data,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": s.timestamp(),
	})
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		writeError(w, http.StatusServiceUnavailable, "History is disabled")
		return
	}
	ctx := r.Context()

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		sessions, err := s.deps.History.Sessions(ctx)
		if err != nil {
			writeFailure(w, err.Error(), "Failed to load history")
			return
		}
		if sessions == nil {
			sessions = []store.SessionSummary{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "sessions": sessions})
		return
	}

	exchanges, err := s.deps.History.List(ctx, sessionID)
	if err != nil {
		writeFailure(w, err.Error(), "Failed to load history")
		return
	}
	if exchanges == nil {
		exchanges = []*store.Exchange{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"session_id": sessionID,
		"exchanges":  exchanges,
	})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		writeError(w, http.StatusServiceUnavailable, "History is disabled")
		return
	}
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "No session_id provided")
		return
	}

	n, err := s.deps.History.Clear(r.Context(), sessionID)
	if err != nil {
		writeFailure(w, err.Error(), "Failed to clear history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"session_id": sessionID,
		"deleted":    n,
	})
}
