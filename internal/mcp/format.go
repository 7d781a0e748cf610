package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"ambientmcp/internal/backend"
)

var newlines = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// formatJSON renders v as 2-space indented JSON.
func formatJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode result: %w", err)
	}
	return string(data), nil
}

// FormatError turns a tool failure into the single line shown to the caller.
// Backend failures keep their message; anything else is reported as an
// internal error and only logged in full.
func FormatError(action string, err error) string {
	var msg string

	switch backend.KindOf(err) {
	case backend.KindValidation:
		if isPathError(err) {
			msg = "Invalid path: " + backendMessage(err)
		} else {
			msg = "Invalid input: " + backendMessage(err)
		}
	case backend.KindConfiguration,
		backend.KindConnectivity,
		backend.KindTimeout,
		backend.KindCanceled,
		backend.KindAuthentication,
		backend.KindAccessDenied,
		backend.KindNotFound,
		backend.KindBackend,
		backend.KindRequestFailed,
		backend.KindMalformedResponse:
		msg = backendMessage(err)
	case backend.KindUnknown:
		msg = "internal error"
	default:
		msg = "internal error"
	}

	return oneLine(fmt.Sprintf("Error %s: %s", action, msg))
}

// backendMessage returns the *backend.Error's own message, without any
// context a caller may have wrapped around it.
func backendMessage(err error) string {
	var be *backend.Error
	if errors.As(err, &be) {
		return be.Error()
	}
	return err.Error()
}

func isPathError(err error) bool {
	var be *backend.Error
	return errors.As(err, &be) && be.Resource == "path"
}

func oneLine(s string) string {
	return strings.TrimSpace(newlines.Replace(s))
}
