// Package backend is the authenticated HTTP client for the Ambient Code
// Platform backend API.
//
// Every operation issues exactly one GET request and returns either the
// decoded JSON object (or the unwrapped collection for listing operations)
// or a *Error whose Kind names the failure category. The client never
// retries, caches or rate-limits; a single Client is shared by all tool
// invocations and is safe for concurrent use.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"ambientmcp/internal/config"
	"ambientmcp/internal/logging"
)

// TokenSource supplies a bearer token when neither Options.Token nor
// BOT_TOKEN is set. credentials.Store implements it.
type TokenSource interface {
	Token() (string, error)
}

// Options configures NewClient. Every field is optional.
// Redirects are never followed unless HTTPClient sets its own CheckRedirect.
type Options struct {
	// BaseURL defaults to BACKEND_API_URL, then to the in-cluster address.
	BaseURL string
	// HealthURL is the root address serving /health. Empty derives it from
	// BaseURL (see config.ResolveHealthURL).
	HealthURL string
	// Token defaults to BOT_TOKEN, then to Credentials.
	Token       string
	Credentials TokenSource
	// Timeout bounds each request end to end. Defaults to 30s.
	Timeout time.Duration
	// HTTPClient replaces the default transport. Its Timeout is set to
	// Timeout when it has none.
	HTTPClient *http.Client
	Metrics    *Metrics
	Logger     *logging.AppLogger
}

// Client talks to the backend API with a fixed bearer token.
type Client struct {
	baseURL   string
	healthURL string
	token     string
	timeout   time.Duration
	http      *http.Client
	metrics   *Metrics
	logger    *logging.AppLogger
}

// NewClient builds a client. It fails with a KindConfiguration error, without
// any network I/O, when no token is available from any source.
func NewClient(opts Options) (*Client, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.GetDefault()
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = os.Getenv(config.EnvBackendURL)
	}
	if baseURL == "" {
		baseURL = config.DefaultBackendURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	token := strings.TrimSpace(opts.Token)
	if token == "" {
		token = strings.TrimSpace(os.Getenv(config.EnvBotToken))
	}
	if token == "" && opts.Credentials != nil {
		stored, err := opts.Credentials.Token()
		if err != nil {
			logger.Debug("No token from credential store", "error", err)
		} else {
			token = strings.TrimSpace(stored)
		}
	}
	if token == "" {
		return nil, configurationError(config.EnvBotToken + " environment variable must be set")
	}

	healthURL, err := config.ResolveHealthURL(baseURL, opts.HealthURL)
	if err != nil {
		return nil, &Error{Kind: KindConfiguration, Detail: fmt.Sprintf("invalid backend URL %q", baseURL), Err: err}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}

	var httpClient *http.Client
	if opts.HTTPClient != nil {
		copied := *opts.HTTPClient
		if copied.Timeout == 0 {
			copied.Timeout = timeout
		}
		if copied.CheckRedirect == nil {
			copied.CheckRedirect = noRedirect
		}
		httpClient = &copied
	} else {
		httpClient = &http.Client{Timeout: timeout, CheckRedirect: noRedirect}
	}

	logger.Info("Initialized API client",
		"base_url", baseURL,
		"health_url", healthURL,
		"token_len", len(token),
		"timeout", timeout,
	)

	return &Client{
		baseURL:   baseURL,
		healthURL: healthURL,
		token:     token,
		timeout:   timeout,
		http:      httpClient,
		metrics:   opts.Metrics,
		logger:    logger,
	}, nil
}

func (c *Client) BaseURL() string        { return c.baseURL }
func (c *Client) HealthURL() string      { return c.healthURL }
func (c *Client) Token() string          { return c.token }
func (c *Client) Timeout() time.Duration { return c.timeout }

// Close releases idle connections. The client must not be used afterwards.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// Project Management

// ListProjects lists all projects accessible by the token's user.
func (c *Client) ListProjects(ctx context.Context) ([]any, error) {
	return c.list(ctx, "list_projects", c.baseURL+"/projects", "projects", "items")
}

// GetProject returns one project.
func (c *Client) GetProject(ctx context.Context, project string) (map[string]any, error) {
	p, err := projectPath(project)
	if err != nil {
		return nil, err
	}
	return c.get(ctx, "get_project", c.baseURL+p, "project")
}

// CheckProjectAccess returns the caller's permissions on a project.
func (c *Client) CheckProjectAccess(ctx context.Context, project string) (map[string]any, error) {
	p, err := projectPath(project)
	if err != nil {
		return nil, err
	}
	return c.get(ctx, "check_project_access", c.baseURL+p+"/access", "access information")
}

// Session Browsing

// ListSessions lists agentic sessions in a project.
func (c *Client) ListSessions(ctx context.Context, project string) ([]any, error) {
	p, err := projectPath(project)
	if err != nil {
		return nil, err
	}
	return c.list(ctx, "list_sessions", c.baseURL+p+"/agentic-sessions", "sessions", "items")
}

// GetSession returns one agentic session.
func (c *Client) GetSession(ctx context.Context, project, session string) (map[string]any, error) {
	p, err := sessionPath(project, session)
	if err != nil {
		return nil, err
	}
	return c.get(ctx, "get_session", c.baseURL+p, "session")
}

// GetSessionK8sResources returns the Kubernetes resources (pods, jobs,
// services) backing a session.
func (c *Client) GetSessionK8sResources(ctx context.Context, project, session string) (map[string]any, error) {
	p, err := sessionPath(project, session)
	if err != nil {
		return nil, err
	}
	return c.get(ctx, "get_session_k8s_resources", c.baseURL+p+"/k8s-resources", "k8s resources")
}

// ListSessionWorkspace lists files in a session workspace.
func (c *Client) ListSessionWorkspace(ctx context.Context, project, session string) ([]any, error) {
	p, err := sessionPath(project, session)
	if err != nil {
		return nil, err
	}
	return c.list(ctx, "list_session_workspace", c.baseURL+p+"/workspace", "workspace", "files")
}

// Workspace File Access

// GetWorkspaceFile returns a file from a session workspace. filePath is
// relative to the workspace root and is validated before any request.
func (c *Client) GetWorkspaceFile(ctx context.Context, project, session, filePath string) (map[string]any, error) {
	if err := ValidateWorkspacePath(filePath); err != nil {
		return nil, err
	}
	p, err := sessionPath(project, session)
	if err != nil {
		return nil, err
	}
	return c.get(ctx, "get_workspace_file", c.baseURL+p+"/workspace/"+escapeWorkspacePath(filePath), "file")
}

// Workflow & Cluster Info

// ListOOTBWorkflows lists the out-of-the-box workflows.
func (c *Client) ListOOTBWorkflows(ctx context.Context) ([]any, error) {
	return c.list(ctx, "list_ootb_workflows", c.baseURL+"/workflows/ootb", "workflows", "workflows")
}

// GetWorkflowMetadata returns metadata for the workflow assigned to a session.
func (c *Client) GetWorkflowMetadata(ctx context.Context, project, session string) (map[string]any, error) {
	p, err := sessionPath(project, session)
	if err != nil {
		return nil, err
	}
	return c.get(ctx, "get_workflow_metadata", c.baseURL+p+"/workflow/metadata", "workflow metadata")
}

// GetClusterInfo returns information about the hosting cluster.
func (c *Client) GetClusterInfo(ctx context.Context) (map[string]any, error) {
	return c.get(ctx, "get_cluster_info", c.baseURL+"/cluster-info", "cluster info")
}

// GetHealth returns backend health. The endpoint lives at the server root,
// outside the API sub-path.
func (c *Client) GetHealth(ctx context.Context) (map[string]any, error) {
	return c.get(ctx, "get_health", c.healthURL+"/health", "health status")
}

func projectPath(project string) (string, error) {
	if strings.TrimSpace(project) == "" {
		return "", validationError("project name cannot be empty")
	}
	return "/projects/" + url.PathEscape(project), nil
}

func sessionPath(project, session string) (string, error) {
	p, err := projectPath(project)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(session) == "" {
		return "", validationError("session name cannot be empty")
	}
	return p + "/agentic-sessions/" + url.PathEscape(session), nil
}

func (c *Client) list(ctx context.Context, operation, rawURL, resource, field string) ([]any, error) {
	data, err := c.get(ctx, operation, rawURL, resource)
	if err != nil {
		return nil, err
	}
	return unwrapCollection(data, field), nil
}

// unwrapCollection returns data[field] as a slice. A missing, null or
// non-array field yields an empty slice.
func unwrapCollection(data map[string]any, field string) []any {
	items, ok := data[field].([]any)
	if !ok {
		return []any{}
	}
	return items
}

func (c *Client) get(ctx context.Context, operation, rawURL, resource string) (map[string]any, error) {
	start := time.Now()
	data, err := c.doGet(ctx, rawURL, resource)
	c.metrics.observe(operation, start, err)

	if err != nil {
		c.logger.Debug("Backend request failed",
			"operation", operation,
			"url", rawURL,
			"kind", KindOf(err),
			"error", err,
		)
		return nil, err
	}
	c.logger.LogPerformance(operation, start)
	return data, nil
}

func (c *Client) doGet(ctx context.Context, rawURL, resource string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{Kind: KindConfiguration, Detail: fmt.Sprintf("invalid request URL %q", rawURL), Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.transportError(err)
	}
	defer resp.Body.Close()

	return c.handleResponse(resp, resource)
}

// handleResponse maps an HTTP response to the decoded body or a *Error.
func (c *Client) handleResponse(resp *http.Response, resource string) (map[string]any, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.transportError(err)
	}

	status := resp.StatusCode
	switch {
	case status >= 200 && status < 300:
		var data map[string]any
		if err := json.Unmarshal(body, &data); err != nil {
			return nil, &Error{Kind: KindMalformedResponse, Resource: resource, Status: status, Err: err}
		}
		if data == nil {
			return nil, &Error{Kind: KindMalformedResponse, Resource: resource, Status: status}
		}
		return data, nil
	case status == http.StatusUnauthorized:
		return nil, &Error{Kind: KindAuthentication, Resource: resource, Status: status}
	case status == http.StatusForbidden:
		return nil, &Error{Kind: KindAccessDenied, Resource: resource, Status: status}
	case status == http.StatusNotFound:
		return nil, &Error{Kind: KindNotFound, Resource: resource, Status: status}
	case status >= 500:
		return nil, &Error{Kind: KindBackend, Resource: resource, Status: status, Detail: readErrorMessage(body)}
	default:
		return nil, &Error{Kind: KindRequestFailed, Resource: resource, Status: status}
	}
}

// readErrorMessage extracts the "error" field of a JSON error body. It
// returns "" when the body is not JSON or has no such field.
func readErrorMessage(body []byte) string {
	var errResp map[string]any
	if err := json.Unmarshal(body, &errResp); err != nil {
		return ""
	}

	switch v := errResp["error"].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(encoded)
	}
}

// noRedirect hands 3xx responses back to handleResponse instead of
// following them with the bearer token attached.
func noRedirect(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}

// transportError classifies a failure to get a response at all.
func (c *Client) transportError(err error) *Error {
	if errors.Is(err, context.Canceled) {
		return &Error{Kind: KindCanceled, Err: err}
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{Kind: KindTimeout, Timeout: c.timeout, Err: err}
	}
	return &Error{Kind: KindConnectivity, Err: err}
}
