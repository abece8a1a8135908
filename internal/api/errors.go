package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// AuthError is returned when the backend rejects the bearer token (401).
type AuthError struct {
	Method string
	Path   string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication required (401) on %s %s", e.Method, e.Path)
}

// ForbiddenError is returned when the session's role may not call an
// endpoint (403).
type ForbiddenError struct {
	Method string
	Path   string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("access denied (403) on %s %s", e.Method, e.Path)
}

// StatusError is any other non-2xx response. Body holds the backend's
// message, which is usually a plain sentence meant for the user.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d on %s %s: %s", e.StatusCode, e.Method, e.Path, e.Body)
}

// Message returns a short text suitable for an error banner.
func (e *StatusError) Message() string {
	if e.Body == "" {
		return fmt.Sprintf("request failed (%d)", e.StatusCode)
	}
	return e.Body
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// IsForbidden reports whether err (or any error in its chain) is a ForbiddenError.
func IsForbidden(err error) bool {
	var forbidden *ForbiddenError
	return errors.As(err, &forbidden)
}

// IsNotFound reports whether err is a 404 StatusError.
func IsNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == 404
}

// UserMessage renders err for display, preferring the backend's own text.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var statusErr *StatusError
	switch {
	case errors.As(err, &statusErr):
		return statusErr.Message()
	case IsAuthError(err):
		return "Session expired, please sign in again"
	case IsForbidden(err):
		return "You are not allowed to do that"
	default:
		return err.Error()
	}
}

// errorText extracts the message from an error response body. Spring
// returns either a bare string or a JSON object with "message"/"error".
func errorText(body []byte) string {
	text := strings.TrimSpace(string(body))
	if !strings.HasPrefix(text, "{") {
		return text
	}
	var obj struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &obj) != nil {
		return text
	}
	if obj.Message != "" {
		return obj.Message
	}
	if obj.Error != "" {
		return obj.Error
	}
	return text
}
