package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"ambientmcp/internal/backend"
	"ambientmcp/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend returns the same canned answer from every operation and
// records what it was asked.
type fakeBackend struct {
	items  []any
	record map[string]any
	err    error
	calls  []string
}

func (f *fakeBackend) note(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeBackend) list(call string) ([]any, error) {
	f.note("%s", call)
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

func (f *fakeBackend) get(call string) (map[string]any, error) {
	f.note("%s", call)
	if f.err != nil {
		return nil, f.err
	}
	return f.record, nil
}

func (f *fakeBackend) ListProjects(ctx context.Context) ([]any, error) {
	return f.list("ListProjects")
}
func (f *fakeBackend) GetProject(ctx context.Context, p string) (map[string]any, error) {
	return f.get("GetProject " + p)
}
func (f *fakeBackend) CheckProjectAccess(ctx context.Context, p string) (map[string]any, error) {
	return f.get("CheckProjectAccess " + p)
}
func (f *fakeBackend) ListSessions(ctx context.Context, p string) ([]any, error) {
	return f.list("ListSessions " + p)
}
func (f *fakeBackend) GetSession(ctx context.Context, p, s string) (map[string]any, error) {
	return f.get("GetSession " + p + "/" + s)
}
func (f *fakeBackend) GetSessionK8sResources(ctx context.Context, p, s string) (map[string]any, error) {
	return f.get("GetSessionK8sResources " + p + "/" + s)
}
func (f *fakeBackend) ListSessionWorkspace(ctx context.Context, p, s string) ([]any, error) {
	return f.list("ListSessionWorkspace " + p + "/" + s)
}
func (f *fakeBackend) GetWorkspaceFile(ctx context.Context, p, s, path string) (map[string]any, error) {
	return f.get("GetWorkspaceFile " + p + "/" + s + "/" + path)
}
func (f *fakeBackend) ListOOTBWorkflows(ctx context.Context) ([]any, error) {
	return f.list("ListOOTBWorkflows")
}
func (f *fakeBackend) GetWorkflowMetadata(ctx context.Context, p, s string) (map[string]any, error) {
	return f.get("GetWorkflowMetadata " + p + "/" + s)
}
func (f *fakeBackend) GetClusterInfo(ctx context.Context) (map[string]any, error) {
	return f.get("GetClusterInfo")
}
func (f *fakeBackend) GetHealth(ctx context.Context) (map[string]any, error) {
	return f.get("GetHealth")
}

// syncBuffer is written to by the stdio transport's goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestServer(t *testing.T, b Backend) (*Server, *bytes.Buffer) {
	t.Helper()
	logger, buf := logging.NewTestLogger()
	return NewServer(b, logger, ServerInfo{Name: "ambient-code", Version: "test"}), buf
}

func TestNewServer_Catalog(t *testing.T) {
	s, _ := newTestServer(t, &fakeBackend{})

	var names []string
	for _, spec := range s.Tools() {
		names = append(names, spec.Name)
		assert.NotEmpty(t, spec.Action, spec.Name)
		assert.NotEmpty(t, spec.Description, spec.Name)
	}

	assert.Equal(t, []string{
		"list_projects",
		"get_project",
		"check_project_access",
		"list_sessions",
		"get_session",
		"get_session_k8s_resources",
		"list_session_workspace",
		"get_workspace_file",
		"list_ootb_workflows",
		"get_workflow_metadata",
		"get_cluster_info",
		"get_health",
	}, names)
	assert.NotNil(t, s.MCPServer())
}

func TestCall_ListWrapsWithCount(t *testing.T) {
	fb := &fakeBackend{items: []any{
		map[string]any{"metadata": map[string]any{"name": "p1"}},
		map[string]any{"metadata": map[string]any{"name": "p2"}},
	}}
	s, _ := newTestServer(t, fb)

	text, isError, err := s.Call(context.Background(), "list_projects", nil)
	require.NoError(t, err)
	require.False(t, isError, text)

	var got struct {
		Projects []map[string]any `json:"projects"`
		Count    int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal([]byte(text), &got))
	assert.Equal(t, 2, got.Count)
	require.Len(t, got.Projects, 2)
	assert.Equal(t, "p1", got.Projects[0]["metadata"].(map[string]any)["name"])
	assert.Contains(t, text, "\n  ", "output is indented")
}

func TestCall_EmptyListStillSerializesArray(t *testing.T) {
	s, _ := newTestServer(t, &fakeBackend{items: []any{}})

	text, isError, err := s.Call(context.Background(), "list_ootb_workflows", map[string]any{})
	require.NoError(t, err)
	require.False(t, isError)
	assert.JSONEq(t, `{"workflows":[],"count":0}`, text)
}

func TestCall_RecordForwardsArguments(t *testing.T) {
	fb := &fakeBackend{record: map[string]any{"content": "file contents", "path": "README.md"}}
	s, _ := newTestServer(t, fb)

	text, isError, err := s.Call(context.Background(), "get_workspace_file", map[string]any{
		"project_name": "test-project",
		"session_name": "test-session",
		"path":         "README.md",
	})
	require.NoError(t, err)
	require.False(t, isError)

	assert.JSONEq(t, `{"content":"file contents","path":"README.md"}`, text)
	assert.Equal(t, []string{"GetWorkspaceFile test-project/test-session/README.md"}, fb.calls)
}

func TestCall_EveryToolReachesBackend(t *testing.T) {
	fb := &fakeBackend{items: []any{}, record: map[string]any{"ok": true}}
	s, _ := newTestServer(t, fb)

	args := map[string]any{"project_name": "demo", "session_name": "s1", "path": "a.txt"}
	for _, spec := range s.Tools() {
		text, isError, err := s.Call(context.Background(), spec.Name, args)
		require.NoError(t, err, spec.Name)
		assert.False(t, isError, "%s: %s", spec.Name, text)
	}
	assert.Len(t, fb.calls, len(s.Tools()))
}

func TestCall_MissingArguments(t *testing.T) {
	fb := &fakeBackend{record: map[string]any{}}
	s, _ := newTestServer(t, fb)

	tests := []struct {
		name string
		tool string
		args map[string]any
		want string
	}{
		{"absent", "get_session", map[string]any{"project_name": "demo"}, `Error getting session: missing required argument "session_name"`},
		{"blank", "get_project", map[string]any{"project_name": "  "}, `Error getting project: missing required argument "project_name"`},
		{"null", "get_project", map[string]any{"project_name": nil}, `Error getting project: missing required argument "project_name"`},
		{"wrong type", "get_project", map[string]any{"project_name": float64(42)}, `Error getting project: argument "project_name" must be a string, got float64`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, isError, err := s.Call(context.Background(), tt.tool, tt.args)
			require.NoError(t, err)
			assert.True(t, isError)
			assert.Equal(t, tt.want, text)
		})
	}
	assert.Empty(t, fb.calls, "backend must not be called with invalid arguments")
}

func TestCall_UnknownTool(t *testing.T) {
	s, _ := newTestServer(t, &fakeBackend{})

	_, _, err := s.Call(context.Background(), "delete_project", nil)
	assert.ErrorIs(t, err, ErrToolNotFound)
}

func TestCall_BackendErrorsBecomeText(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not found", &backend.Error{Kind: backend.KindNotFound, Resource: "project"}, "Error getting project: Project not found"},
		{"auth", &backend.Error{Kind: backend.KindAuthentication}, "Error getting project: Authentication failed. BOT_TOKEN may be invalid or expired."},
		{"denied", &backend.Error{Kind: backend.KindAccessDenied, Resource: "project"}, "Error getting project: Access denied. User does not have permission for this project."},
		{"backend", &backend.Error{Kind: backend.KindBackend, Detail: "boom\nstack line"}, "Error getting project: Backend API error: boom stack line"},
		{"connectivity", &backend.Error{Kind: backend.KindConnectivity, Err: errors.New("dial tcp 10.0.0.1:8080")}, "Error getting project: Cannot reach backend API. Check cluster connectivity."},
		{"wrapped", fmt.Errorf("layer: %w", &backend.Error{Kind: backend.KindRequestFailed, Status: 409}), "Error getting project: Request failed with status 409"},
		{"validation", &backend.Error{Kind: backend.KindValidation, Detail: "project name cannot be empty"}, "Error getting project: Invalid input: project name cannot be empty"},
		{"path", &backend.Error{Kind: backend.KindValidation, Resource: "path", Detail: "Path cannot be empty"}, "Error getting project: Invalid path: Path cannot be empty"},
		{"canceled", &backend.Error{Kind: backend.KindCanceled, Err: context.Canceled}, "Error getting project: Request was cancelled before the backend responded."},
		{"foreign", errors.New("secret internal detail at 0xdeadbeef"), "Error getting project: internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := logging.NewTestLogger()
			s := NewServer(&fakeBackend{err: tt.err}, logger, ServerInfo{})

			text, isError, err := s.Call(context.Background(), "get_project", map[string]any{"project_name": "demo"})
			require.NoError(t, err)
			assert.True(t, isError)
			assert.Equal(t, tt.want, text)
			assert.NotContains(t, text, "\n")

			logged := buf.String()
			assert.Contains(t, logged, "Tool call failed")
			assert.Contains(t, logged, "get_project")
			assert.Contains(t, logged, "invocation=")
		})
	}
}

func TestFormatError_ForeignDetailsOnlyLogged(t *testing.T) {
	logger, buf := logging.NewTestLogger()
	s := NewServer(&fakeBackend{err: errors.New("secret internal detail")}, logger, ServerInfo{})

	text, _, err := s.Call(context.Background(), "get_health", nil)
	require.NoError(t, err)

	assert.NotContains(t, text, "secret internal detail")
	assert.Contains(t, buf.String(), "secret internal detail")
}

// rpc sends one JSON-RPC request through the mcp-go server and decodes the result.
func rpc(t *testing.T, s *Server, id int, method string, params any) map[string]any {
	t.Helper()
	req, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
		"params":  params,
	})
	require.NoError(t, err)

	resp := s.MCPServer().HandleMessage(context.Background(), req)
	raw, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded struct {
		Result map[string]any `json:"result"`
		Error  map[string]any `json:"error"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Nil(t, decoded.Error, "unexpected JSON-RPC error: %s", raw)
	return decoded.Result
}

type toolText struct {
	Text    string
	IsError bool
}

func callTool(t *testing.T, s *Server, name string, args map[string]any) toolText {
	t.Helper()
	result := rpc(t, s, 2, "tools/call", map[string]any{"name": name, "arguments": args})

	content, ok := result["content"].([]any)
	require.True(t, ok, "result has content: %v", result)
	require.Len(t, content, 1)
	item := content[0].(map[string]any)
	assert.Equal(t, "text", item["type"])

	isError, _ := result["isError"].(bool)
	return toolText{Text: item["text"].(string), IsError: isError}
}

func TestProtocol_ToolsList(t *testing.T) {
	s, _ := newTestServer(t, &fakeBackend{})

	result := rpc(t, s, 1, "tools/list", map[string]any{})
	tools, ok := result["tools"].([]any)
	require.True(t, ok)
	require.Len(t, tools, 12)

	byName := map[string]map[string]any{}
	for _, raw := range tools {
		tool := raw.(map[string]any)
		byName[tool["name"].(string)] = tool
	}

	schema := byName["get_workspace_file"]["inputSchema"].(map[string]any)
	assert.ElementsMatch(t, []any{"project_name", "session_name", "path"}, schema["required"])
	props := schema["properties"].(map[string]any)
	assert.Equal(t, "string", props["path"].(map[string]any)["type"])

	listSchema := byName["list_projects"]["inputSchema"].(map[string]any)
	assert.Empty(t, listSchema["required"])

	annotations := byName["get_health"]["annotations"].(map[string]any)
	assert.Equal(t, true, annotations["readOnlyHint"])
}

// End to end through the protocol and a real client against a fake backend.
func TestProtocol_ToolsCallWithRealClient(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/projects":
			_, _ = w.Write([]byte(`{"items":[{"metadata":{"name":"p1"}}]}`))
		case "/health":
			_, _ = w.Write([]byte(`{"status":"healthy"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	logger, _ := logging.NewTestLogger()
	client, err := backend.NewClient(backend.Options{BaseURL: srv.URL + "/api", Token: "tok-123", Logger: logger})
	require.NoError(t, err)
	defer client.Close()

	s := NewServer(client, logger, ServerInfo{Name: "ambient-code", Version: "test"})

	got := callTool(t, s, "list_projects", nil)
	assert.False(t, got.IsError)
	assert.JSONEq(t, `{"projects":[{"metadata":{"name":"p1"}}],"count":1}`, got.Text)

	got = callTool(t, s, "get_health", nil)
	assert.False(t, got.IsError)
	assert.JSONEq(t, `{"status":"healthy"}`, got.Text)

	got = callTool(t, s, "get_project", map[string]any{"project_name": "nonexistent"})
	assert.True(t, got.IsError)
	assert.Equal(t, "Error getting project: Project not found", got.Text)

	before := atomic.LoadInt64(&hits)
	got = callTool(t, s, "get_workspace_file", map[string]any{
		"project_name": "test-project",
		"session_name": "test-session",
		"path":         "../etc/passwd",
	})
	assert.True(t, got.IsError)
	assert.Equal(t, "Error getting workspace file: Invalid path: Path cannot contain '..' components", got.Text)
	assert.Equal(t, before, atomic.LoadInt64(&hits), "rejected path must not reach the backend")
}

func TestServe_Stdio(t *testing.T) {
	s, _ := newTestServer(t, &fakeBackend{})

	in := strings.NewReader(
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"0"}}}` + "\n" +
			`{"jsonrpc":"2.0","id":2,"method":"tools/list","params":{}}` + "\n",
	)
	var out syncBuffer

	err := s.Serve(context.Background(), in, &out)
	require.NoError(t, err)

	output := out.String()
	assert.Contains(t, output, `"serverInfo"`)
	assert.Contains(t, output, `"ambient-code"`)
	assert.Contains(t, output, `"list_projects"`)
}
