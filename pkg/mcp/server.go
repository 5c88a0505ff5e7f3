// Package mcp exposes codeflow as Model Context Protocol tools over stdio.
package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/rendis/codeflow/internal/chat"
	"github.com/rendis/codeflow/internal/flowchart"
	"github.com/rendis/codeflow/internal/logging"
	"github.com/rendis/codeflow/internal/sandbox"
	"github.com/rendis/codeflow/internal/store"
	"github.com/rendis/codeflow/internal/validation"
)

// ServerDeps holds the dependencies for creating a Server. Nil components
// are replaced by their defaults; a nil History disables recording.
type ServerDeps struct {
	Synthesizer *flowchart.Synthesizer
	Runner      sandbox.Runner
	Assistant   *chat.Assistant
	History     store.ConversationLog
	Logger      *slog.Logger
	Version     string
}

// Server wraps an MCP server with the codeflow tool handlers.
type Server struct {
	synth     *flowchart.Synthesizer
	runner    sandbox.Runner
	assistant *chat.Assistant
	history   store.ConversationLog
	schemas   *validation.SchemaValidator
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a Server with all tools registered.
func NewServer(deps ServerDeps) (*Server, error) {
	logger := logging.OrDefault(deps.Logger)

	schemas, err := validation.NewSchemaValidator()
	if err != nil {
		return nil, err
	}

	s := &Server{
		synth:     deps.Synthesizer,
		runner:    deps.Runner,
		assistant: deps.Assistant,
		history:   deps.History,
		schemas:   schemas,
		logger:    logger,
	}
	if s.synth == nil {
		s.synth = flowchart.New(flowchart.Config{Logger: logger})
	}
	if s.runner == nil {
		s.runner = sandbox.NewExecutor(sandbox.Config{}, logger)
	}
	if s.assistant == nil {
		s.assistant = chat.New(chat.Config{Logger: logger})
	}

	version := deps.Version
	if version == "" {
		version = "dev"
	}
	mcpSrv := server.NewMCPServer(
		"codeflow",
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("Codeflow turns problem descriptions and Starlark source into flowcharts, "+
			"runs Starlark in a restricted sandbox and answers programming questions. Use codeflow.flowchart "+
			"for a problem description, codeflow.analyze to chart and lint source, codeflow.execute to run it, "+
			"codeflow.diagram to render a flowchart and codeflow.chat for help."),
	)
	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	return s, nil
}

// Serve starts the stdio transport and blocks until ctx is cancelled or stdin closes.
func (s *Server) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: flowchartTool(), Handler: s.handleFlowchart},
		{Tool: analyzeTool(), Handler: s.handleAnalyze},
		{Tool: executeTool(), Handler: s.handleExecute},
		{Tool: chatTool(), Handler: s.handleChat},
		{Tool: diagramTool(), Handler: s.handleDiagram},
	}
}
