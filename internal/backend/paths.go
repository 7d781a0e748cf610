package backend

import (
	"net/url"
	"path"
	"strings"
)

// ValidateWorkspacePath checks a path supplied for a workspace file read.
// Any ".." anywhere in the string is rejected, whether or not it forms a
// whole segment, so the caller cannot climb out of the session workspace
// whatever the backend itself enforces. The check is static and happens
// before a request is built.
func ValidateWorkspacePath(p string) error {
	if strings.TrimSpace(p) == "" {
		return pathError("Path cannot be empty")
	}

	// Check for path traversal in raw input
	if strings.Contains(p, "..") {
		return pathError("Path cannot contain '..' components")
	}

	// Clean and re-check for traversal
	if strings.Contains(path.Clean("/"+p), "..") {
		return pathError("Path cannot contain '..' components")
	}

	return nil
}

// escapeWorkspacePath escapes each segment of a relative workspace path while
// keeping the separators, so "docs/my file.md" becomes "docs/my%20file.md".
func escapeWorkspacePath(p string) string {
	segments := strings.Split(strings.TrimLeft(p, "/"), "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}
