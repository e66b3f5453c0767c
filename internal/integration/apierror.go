package integration

import (
	"fmt"
	"net/http"
	"strings"
)

// APIError is a non-2xx backend response.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	if msg := e.BodyMessage(); msg != "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, msg)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
}

func (e *APIError) StatusCode() int { return e.Status }

// RawBody returns the trimmed response body.
func (e *APIError) RawBody() string { return strings.TrimSpace(e.Body) }

// BodyMessage extracts a human message from a JSON error body: the
// "message", "error", "title" or "detail" field, in that order. A plain
// text body is returned as is; an unrecognized JSON body yields "".
func (e *APIError) BodyMessage() string {
	body := e.RawBody()
	if body == "" {
		return ""
	}
	if !strings.HasPrefix(body, "{") {
		if strings.HasPrefix(body, "[") || strings.HasPrefix(body, "<") {
			return ""
		}
		return body
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		return ""
	}
	for _, k := range []string{"message", "Message", "error", "title", "detail"} {
		if s, ok := fields[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// NotFound reports whether the backend answered 404.
func (e *APIError) NotFound() bool { return e.Status == http.StatusNotFound }
