// Package integration talks to the project management REST backend.
package integration

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RequestIDHeader carries a per-request correlation ID.
const RequestIDHeader = "X-Request-ID"

// TokenSource supplies the bearer token for outgoing requests. An empty
// token sends no Authorization header.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }

// Config configures a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Tokens  TokenSource
	Logger  zerolog.Logger
	// HTTPClient overrides the default client built from Timeout.
	HTTPClient *http.Client
}

// Client is the shared HTTP transport of every entity client.
type Client struct {
	base   *url.URL
	http   *http.Client
	tokens TokenSource
	log    zerolog.Logger
}

// NewClient validates cfg.BaseURL and creates a Client.
func NewClient(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base url %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", cfg.BaseURL)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	tokens := cfg.Tokens
	if tokens == nil {
		tokens = TokenFunc(func() string { return "" })
	}
	return &Client{base: base, http: hc, tokens: tokens, log: cfg.Logger}, nil
}

// request describes one backend call.
type request struct {
	method  string
	path    string
	query   url.Values
	header  http.Header
	body    any
	hasBody bool
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// send performs r and returns the raw response body. Non-2xx responses
// become *APIError.
func (c *Client) send(ctx context.Context, r request) ([]byte, error) {
	var body io.Reader
	if r.hasBody {
		data, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("encoding %s %s body: %w", r.method, r.path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.endpoint(r.path, r.query), body)
	if err != nil {
		return nil, fmt.Errorf("building %s %s: %w", r.method, r.path, err)
	}
	for k, vs := range r.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	reqID := uuid.NewString()
	req.Header.Set(RequestIDHeader, reqID)
	req.Header.Set("Accept", "application/json")
	if r.hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.tokens.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("method", r.method).Str("path", r.path).
			Str("request_id", reqID).Msg("request failed")
		return nil, fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s %s response: %w", r.method, r.path, err)
	}

	ev := c.log.Debug()
	if resp.StatusCode >= 300 {
		ev = c.log.Warn()
	}
	ev.Str("method", r.method).Str("path", r.path).Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).Str("request_id", reqID).Msg("api call")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Method: r.method, Path: r.path, Status: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}

// doJSON decodes the JSON response of r into out.
func (c *Client) doJSON(ctx context.Context, r request, out any) error {
	data, err := c.send(ctx, r)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", r.method, r.path, err)
	}
	return nil
}

// doText returns the plain text response of r.
func (c *Client) doText(ctx context.Context, r request) (string, error) {
	data, err := c.send(ctx, r)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
