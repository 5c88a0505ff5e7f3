package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/rendis/codeflow/internal/diagram"
	"github.com/rendis/codeflow/internal/logging"
	"github.com/rendis/codeflow/internal/scanner"
	"github.com/rendis/codeflow/internal/store"
	"github.com/rendis/codeflow/pkg/schema"
)

// --- Tool definitions ---

func flowchartTool() mcp.Tool {
	return mcp.NewTool("codeflow.flowchart",
		mcp.WithDescription("Build a flowchart from a free-text problem description"),
		mcp.WithString("problem", mcp.Required(), mcp.Description("Problem description, e.g. 'read two numbers, add them and print the sum'")),
	)
}

func analyzeTool() mcp.Tool {
	return mcp.NewTool("codeflow.analyze",
		mcp.WithDescription("Build a flowchart from Starlark source and scan it for likely errors"),
		mcp.WithString("code", mcp.Required(), mcp.Description("Starlark source")),
	)
}

func executeTool() mcp.Tool {
	return mcp.NewTool("codeflow.execute",
		mcp.WithDescription("Run Starlark source in the restricted sandbox and return its printed output"),
		mcp.WithString("code", mcp.Required(), mcp.Description("Starlark source")),
	)
}

func chatTool() mcp.Tool {
	return mcp.NewTool("codeflow.chat",
		mcp.WithDescription("Ask the programming assistant a question or paste an error message"),
		mcp.WithString("message", mcp.Required(), mcp.Description("Question or error message")),
		mcp.WithString("session_id", mcp.Description("Conversation id; a new one is issued when empty")),
	)
}

func diagramTool() mcp.Tool {
	return mcp.NewTool("codeflow.diagram",
		mcp.WithDescription("Render a flowchart as Mermaid, ASCII, DOT, SVG or base64 PNG. "+
			"Pass exactly one of flowchart, problem or code"),
		mcp.WithObject("flowchart", mcp.Description("Flowchart object with nodes, edges and title")),
		mcp.WithString("problem", mcp.Description("Problem description to chart first")),
		mcp.WithString("code", mcp.Description("Starlark source to chart first")),
		mcp.WithString("format", mcp.Required(),
			mcp.Enum(diagram.Formats...),
			mcp.Description("Output format"),
		),
	)
}

// --- Handlers ---

func (s *Server) handleFlowchart(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	problem, err := req.RequireString("problem")
	if err != nil || problem == "" {
		return mcp.NewToolResultError("No problem description provided"), nil
	}
	return marshalResult(s.synth.FromProblem(ctx, problem))
}

func (s *Server) handleAnalyze(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := req.RequireString("code")
	if err != nil || code == "" {
		return mcp.NewToolResultError("No code provided"), nil
	}
	return marshalResult(map[string]any{
		"flowchart": s.synth.FromCode(ctx, code),
		"errors":    scanner.Scan(code),
	})
}

func (s *Server) handleExecute(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := req.RequireString("code")
	if err != nil || code == "" {
		return mcp.NewToolResultError("No code provided"), nil
	}
	ctx = logging.WithExecutionID(ctx, uuid.NewString())
	return marshalResult(s.runner.Execute(ctx, code))
}

func (s *Server) handleChat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message, err := req.RequireString("message")
	if err != nil || message == "" {
		return mcp.NewToolResultError("No message provided"), nil
	}
	sessionID := req.GetString("session_id", "")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	ctx = logging.WithSessionID(ctx, sessionID)

	resp := s.assistant.Reply(ctx, message)
	if s.history != nil {
		body, mErr := json.Marshal(resp)
		if mErr == nil {
			mErr = s.history.Append(ctx, &store.Exchange{
				SessionID:   sessionID,
				UserMessage: message,
				Type:        resp.Type,
				BotResponse: body,
			})
		}
		if mErr != nil {
			logging.LogWith(ctx, s.logger).Warn("failed to record chat exchange", "error", mErr)
		}
	}

	return marshalResult(map[string]any{
		"session_id": sessionID,
		"response":   resp,
	})
}

func (s *Server) handleDiagram(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format, err := req.RequireString("format")
	if err != nil {
		return mcp.NewToolResultError("format is required"), nil
	}

	g, gErr := s.diagramInput(ctx, req)
	if gErr != nil {
		return mcp.NewToolResultError(gErr.Error()), nil
	}

	out, rErr := diagram.Render(ctx, g, format)
	if rErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("diagram render failed: %v", rErr)), nil
	}
	if out.Text() {
		return mcp.NewToolResultText(string(out.Data)), nil
	}
	encoded := base64.StdEncoding.EncodeToString(out.Data)
	return mcp.NewToolResultImage("flowchart diagram", encoded, out.ContentType), nil
}

// diagramInput resolves the graph to render from exactly one of the
// flowchart, problem and code arguments.
func (s *Server) diagramInput(ctx context.Context, req mcp.CallToolRequest) (schema.FlowchartGraph, error) {
	args := req.GetArguments()
	fc, hasFlowchart := args["flowchart"]
	problem := req.GetString("problem", "")
	code := req.GetString("code", "")

	given := 0
	for _, ok := range []bool{hasFlowchart && fc != nil, problem != "", code != ""} {
		if ok {
			given++
		}
	}
	if given != 1 {
		return schema.FlowchartGraph{}, fmt.Errorf("exactly one of flowchart, problem or code is required")
	}

	switch {
	case problem != "":
		return s.synth.FromProblem(ctx, problem), nil
	case code != "":
		return s.synth.FromCode(ctx, code), nil
	}

	if err := s.schemas.ValidateFlowchart(fc); err != nil {
		return schema.FlowchartGraph{}, fmt.Errorf("invalid flowchart: %w", err)
	}
	data, err := json.Marshal(fc)
	if err != nil {
		return schema.FlowchartGraph{}, fmt.Errorf("invalid flowchart: %w", err)
	}
	var g schema.FlowchartGraph
	if err := json.Unmarshal(data, &g); err != nil {
		return schema.FlowchartGraph{}, fmt.Errorf("invalid flowchart: %w", err)
	}
	return g, nil
}

// marshalResult converts a value to a JSON text tool result.
func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}
