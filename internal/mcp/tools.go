package mcp

import (
	"context"
	"fmt"
	"strings"

	gomcp "github.com/mark3labs/mcp-go/mcp"
)

// Argument names shared by the tools.
const (
	argProject = "project_name"
	argSession = "session_name"
	argPath    = "path"
)

// Param is a required string argument of a tool.
type Param struct {
	Name        string
	Description string
}

// ToolSpec declares one tool: its schema, how errors are worded and which
// backend operation it forwards to.
type ToolSpec struct {
	Name        string
	Title       string
	Description string
	Category    string
	Params      []Param
	// Action completes the failure text "Error <Action>: ...".
	Action string
	// ListKey, when set, wraps the list result as {ListKey: [...], "count": n}.
	ListKey string

	run func(ctx context.Context, b Backend, args map[string]string) (any, error)
}

var (
	projectParam = Param{Name: argProject, Description: "Name of the project"}
	sessionParam = Param{Name: argSession, Description: "Name of the agentic session"}
	pathParam    = Param{Name: argPath, Description: "Path to the file, relative to the workspace root ('..' is not allowed)"}
)

// Catalog returns every tool the server registers, in registration order.
func Catalog() []ToolSpec {
	return catalog()
}

func catalog() []ToolSpec {
	return []ToolSpec{
		// Project management
		{
			Name:        "list_projects",
			Title:       "List projects",
			Description: "List all projects accessible by the user. Returns project objects with name, displayName, description and status.",
			Category:    "projects",
			Action:      "listing projects",
			ListKey:     "projects",
			run: func(ctx context.Context, b Backend, _ map[string]string) (any, error) {
				return b.ListProjects(ctx)
			},
		},
		{
			Name:        "get_project",
			Title:       "Get project",
			Description: "Get detailed information about a specific project.",
			Category:    "projects",
			Params:      []Param{projectParam},
			Action:      "getting project",
			run: func(ctx context.Context, b Backend, a map[string]string) (any, error) {
				return b.GetProject(ctx, a[argProject])
			},
		},
		{
			Name:        "check_project_access",
			Title:       "Check project access",
			Description: "Check the user's access permissions for a project.",
			Category:    "projects",
			Params:      []Param{projectParam},
			Action:      "checking project access",
			run: func(ctx context.Context, b Backend, a map[string]string) (any, error) {
				return b.CheckProjectAccess(ctx, a[argProject])
			},
		},

		// Session browsing
		{
			Name:        "list_sessions",
			Title:       "List sessions",
			Description: "List all agentic sessions in a project with name, status, phase and timestamps.",
			Category:    "sessions",
			Params:      []Param{projectParam},
			Action:      "listing sessions",
			ListKey:     "sessions",
			run: func(ctx context.Context, b Backend, a map[string]string) (any, error) {
				return b.ListSessions(ctx, a[argProject])
			},
		},
		{
			Name:        "get_session",
			Title:       "Get session",
			Description: "Get detailed information about an agentic session, including spec, status, repos and workflow.",
			Category:    "sessions",
			Params:      []Param{projectParam, sessionParam},
			Action:      "getting session",
			run: func(ctx context.Context, b Backend, a map[string]string) (any, error) {
				return b.GetSession(ctx, a[argProject], a[argSession])
			},
		},
		{
			Name:        "get_session_k8s_resources",
			Title:       "Get session Kubernetes resources",
			Description: "Get the Kubernetes resources (pods, jobs, services) associated with a session.",
			Category:    "sessions",
			Params:      []Param{projectParam, sessionParam},
			Action:      "getting Kubernetes resources",
			run: func(ctx context.Context, b Backend, a map[string]string) (any, error) {
				return b.GetSessionK8sResources(ctx, a[argProject], a[argSession])
			},
		},
		{
			Name:        "list_session_workspace",
			Title:       "List session workspace",
			Description: "List all files in a session's workspace with name, size, type and modified time.",
			Category:    "sessions",
			Params:      []Param{projectParam, sessionParam},
			Action:      "listing workspace",
			ListKey:     "files",
			run: func(ctx context.Context, b Backend, a map[string]string) (any, error) {
				return b.ListSessionWorkspace(ctx, a[argProject], a[argSession])
			},
		},

		// Workspace file access
		{
			Name:        "get_workspace_file",
			Title:       "Get workspace file",
			Description: "Get the contents of a file from a session's workspace.",
			Category:    "workspace",
			Params:      []Param{projectParam, sessionParam, pathParam},
			Action:      "getting workspace file",
			run: func(ctx context.Context, b Backend, a map[string]string) (any, error) {
				return b.GetWorkspaceFile(ctx, a[argProject], a[argSession], a[argPath])
			},
		},

		// Workflow & cluster info
		{
			Name:        "list_ootb_workflows",
			Title:       "List out-of-the-box workflows",
			Description: "List all out-of-the-box (OOTB) workflows available in the platform with name, description and agents.",
			Category:    "workflows",
			Action:      "listing workflows",
			ListKey:     "workflows",
			run: func(ctx context.Context, b Backend, _ map[string]string) (any, error) {
				return b.ListOOTBWorkflows(ctx)
			},
		},
		{
			Name:        "get_workflow_metadata",
			Title:       "Get workflow metadata",
			Description: "Get metadata about the workflow assigned to a session, including name, agents and status.",
			Category:    "workflows",
			Params:      []Param{projectParam, sessionParam},
			Action:      "getting workflow metadata",
			run: func(ctx context.Context, b Backend, a map[string]string) (any, error) {
				return b.GetWorkflowMetadata(ctx, a[argProject], a[argSession])
			},
		},
		{
			Name:        "get_cluster_info",
			Title:       "Get cluster info",
			Description: "Get information about the Kubernetes/OpenShift cluster such as version, platform and capabilities.",
			Category:    "cluster",
			Action:      "getting cluster info",
			run: func(ctx context.Context, b Backend, _ map[string]string) (any, error) {
				return b.GetClusterInfo(ctx)
			},
		},
		{
			Name:        "get_health",
			Title:       "Get backend health",
			Description: "Get the health status of the backend API.",
			Category:    "cluster",
			Action:      "getting health status",
			run: func(ctx context.Context, b Backend, _ map[string]string) (any, error) {
				return b.GetHealth(ctx)
			},
		},
	}
}

// mcpTool builds the protocol schema. Every tool is read-only and idempotent;
// all of them reach an external system.
func (t ToolSpec) mcpTool() gomcp.Tool {
	opts := []gomcp.ToolOption{
		gomcp.WithDescription(t.Description),
		gomcp.WithTitleAnnotation(t.Title),
		gomcp.WithReadOnlyHintAnnotation(true),
		gomcp.WithDestructiveHintAnnotation(false),
		gomcp.WithIdempotentHintAnnotation(true),
		gomcp.WithOpenWorldHintAnnotation(true),
	}
	for _, p := range t.Params {
		opts = append(opts, gomcp.WithString(p.Name, gomcp.Required(), gomcp.Description(p.Description)))
	}
	return gomcp.NewTool(t.Name, opts...)
}

// bind checks that every declared parameter is present as a non-blank string.
// Values are passed on untrimmed.
func (t ToolSpec) bind(raw map[string]any) (map[string]string, error) {
	args := make(map[string]string, len(t.Params))
	for _, p := range t.Params {
		v, ok := raw[p.Name]
		if !ok || v == nil {
			return nil, fmt.Errorf("missing required argument %q", p.Name)
		}
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("argument %q must be a string, got %T", p.Name, v)
		}
		if strings.TrimSpace(s) == "" {
			return nil, fmt.Errorf("missing required argument %q", p.Name)
		}
		args[p.Name] = s
	}
	return args, nil
}

// render serializes a successful result, wrapping list results with a count.
func (t ToolSpec) render(result any) (string, error) {
	if t.ListKey == "" {
		return formatJSON(result)
	}

	items, ok := result.([]any)
	if !ok {
		return "", fmt.Errorf("tool %s returned %T, want a list", t.Name, result)
	}
	return formatJSON(map[string]any{
		t.ListKey: items,
		"count":   len(items),
	})
}
