package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"ambientmcp/internal/backend"
	"ambientmcp/internal/logging"

	"github.com/google/uuid"
	gomcp "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const serverInstructions = "Read-only access to the Ambient Code Platform: projects, agentic sessions, " +
	"session workspaces, workflows and cluster information. Every tool returns JSON text, " +
	"or a line starting with \"Error\" when the call failed."

// ErrToolNotFound is returned by Call for names outside the catalog.
var ErrToolNotFound = errors.New("tool not found")

// Backend is the set of client operations the tools forward to.
// *backend.Client implements it.
type Backend interface {
	ListProjects(ctx context.Context) ([]any, error)
	GetProject(ctx context.Context, project string) (map[string]any, error)
	CheckProjectAccess(ctx context.Context, project string) (map[string]any, error)
	ListSessions(ctx context.Context, project string) ([]any, error)
	GetSession(ctx context.Context, project, session string) (map[string]any, error)
	GetSessionK8sResources(ctx context.Context, project, session string) (map[string]any, error)
	ListSessionWorkspace(ctx context.Context, project, session string) ([]any, error)
	GetWorkspaceFile(ctx context.Context, project, session, path string) (map[string]any, error)
	ListOOTBWorkflows(ctx context.Context) ([]any, error)
	GetWorkflowMetadata(ctx context.Context, project, session string) (map[string]any, error)
	GetClusterInfo(ctx context.Context) (map[string]any, error)
	GetHealth(ctx context.Context) (map[string]any, error)
}

var _ Backend = (*backend.Client)(nil)

// ServerInfo is advertised to clients during initialization.
type ServerInfo struct {
	Name    string
	Version string
}

// Server represents an MCP server instance using mcp-go
type Server struct {
	backend   Backend
	logger    *logging.AppLogger
	tools     []ToolSpec
	byName    map[string]ToolSpec
	mcpServer *server.MCPServer
}

// NewServer creates the MCP server and registers every tool in the catalog
// against b. The caller owns b and closes it after serving ends.
func NewServer(b Backend, logger *logging.AppLogger, info ServerInfo) *Server {
	if logger == nil {
		logger = logging.GetDefault()
	}
	if info.Name == "" {
		info.Name = "ambient-code"
	}

	s := &Server{
		backend: b,
		logger:  logger,
		tools:   catalog(),
		byName:  make(map[string]ToolSpec),
		mcpServer: server.NewMCPServer(info.Name, info.Version,
			server.WithToolCapabilities(false),
			server.WithInstructions(serverInstructions),
			server.WithRecovery(),
		),
	}

	for _, spec := range s.tools {
		s.byName[spec.Name] = spec
		s.mcpServer.AddTool(spec.mcpTool(), s.handler(spec))
	}

	s.logger.Debug("Registered MCP tools", "count", len(s.tools))
	return s
}

// MCPServer exposes the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// Tools returns the tool catalog in registration order.
func (s *Server) Tools() []ToolSpec {
	out := make([]ToolSpec, len(s.tools))
	copy(out, s.tools)
	return out
}

// Serve runs the stdio transport until in reaches EOF or ctx is cancelled.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(s.logger.StandardLog())

	s.logger.Info("Starting MCP server on stdio", "tools", len(s.tools))
	err := stdio.Listen(ctx, in, out)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("MCP server failed: %w", err)
	}

	s.logger.Info("MCP server stopped")
	return nil
}

// Call invokes one tool by name, outside the protocol. It returns the text
// result and whether that text reports a failure.
func (s *Server) Call(ctx context.Context, name string, args map[string]any) (string, bool, error) {
	spec, ok := s.byName[name]
	if !ok {
		return "", false, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	text, isError := s.invoke(ctx, spec, args)
	return text, isError, nil
}

func (s *Server) handler(spec ToolSpec) server.ToolHandlerFunc {
	return func(ctx context.Context, req gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
		text, isError := s.invoke(ctx, spec, req.GetArguments())
		if isError {
			return gomcp.NewToolResultError(text), nil
		}
		return gomcp.NewToolResultText(text), nil
	}
}

// invoke is the error boundary: whatever happens below it, the caller gets
// one line of text.
func (s *Server) invoke(ctx context.Context, spec ToolSpec, raw map[string]any) (string, bool) {
	start := time.Now()
	logger := s.logger.With("tool", spec.Name, "invocation", uuid.NewString())

	args, err := spec.bind(raw)
	if err != nil {
		logger.Warn("Rejected tool call", "error", err)
		return oneLine(fmt.Sprintf("Error %s: %s", spec.Action, err)), true
	}

	result, err := spec.run(ctx, s.backend, args)
	if err != nil {
		logger.Error("Tool call failed",
			"args", args,
			"kind", backend.KindOf(err),
			"error", err,
			"duration", time.Since(start),
		)
		return FormatError(spec.Action, err), true
	}

	text, err := spec.render(result)
	if err != nil {
		logger.Error("Failed to encode tool result", "error", err)
		return FormatError(spec.Action, err), true
	}

	logger.Debug("Tool call succeeded", "duration", time.Since(start))
	return text, false
}
