// Package mcp provides the Model Context Protocol (MCP) server for ambient-mcp using mcp-go.
//
// The server exposes the Ambient Code Platform backend API as a fixed set of
// read-only tools. Each tool forwards to one backend.Client operation and always
// answers with a single text result: indented JSON on success, or a one-line
// "Error <action>: <message>" explanation on failure. No error crosses the
// tool boundary as a protocol fault.
//
// # Implementation
//
// The package uses the mcp-go library (github.com/mark3labs/mcp-go).
//
// # Tools
//
// Project management:
//   - list_projects
//   - get_project { "project_name" }
//   - check_project_access { "project_name" }
//
// Session browsing:
//   - list_sessions { "project_name" }
//   - get_session { "project_name", "session_name" }
//   - get_session_k8s_resources { "project_name", "session_name" }
//   - list_session_workspace { "project_name", "session_name" }
//
// Workspace file access:
//   - get_workspace_file { "project_name", "session_name", "path" }
//
// Workflow and cluster info:
//   - list_ootb_workflows
//   - get_workflow_metadata { "project_name", "session_name" }
//   - get_cluster_info
//   - get_health
//
// # Security
//
// Workspace paths containing ".." are rejected by the backend client before any
// request is made. Every request carries the bearer token the process was
// started with, so the backend enforces the token owner's permissions.
//
// # Usage
//
// The MCP server is typically started as a sidecar subprocess by the runner:
//
//	ambient-mcp serve
//
// The server will read JSON-RPC requests from stdin and write responses to stdout
// until it receives EOF or is terminated. Logs go to stderr.
package mcp
