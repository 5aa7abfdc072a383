// Package apiclient talks to a running minutes server for the CLI viewers
// and producers.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/papercomputeco/minutes/api"
)

const defaultTimeout = 10 * time.Second

// Client calls the minutes HTTP API.
type Client struct {
	base *url.URL
	http *http.Client

	// stream has no overall timeout for long-lived event streams.
	stream *http.Client
}

// New parses target (e.g. "http://localhost:8090") and returns a Client.
func New(target string) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(target, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid API target %q: %w", target, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid API target %q: scheme must be http or https", target)
	}

	return &Client{
		base:   u,
		http:   &http.Client{Timeout: defaultTimeout},
		stream: &http.Client{},
	}, nil
}

// Target returns the server base URL.
func (c *Client) Target() string {
	return c.base.String()
}

// Status fetches /v1/status.
func (c *Client) Status(ctx context.Context) (*api.StatusResponse, error) {
	out := &api.StatusResponse{}
	if err := c.do(ctx, http.MethodGet, "/v1/status", nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Ingest posts one fragment.
func (c *Client) Ingest(ctx context.Context, req api.IngestRequest) error {
	return c.do(ctx, http.MethodPost, "/v1/segments", req, nil)
}

// SetRunning pauses or resumes the summarizer.
func (c *Client) SetRunning(ctx context.Context, running bool) (*api.StateResponse, error) {
	out := &api.StateResponse{}
	if err := c.do(ctx, http.MethodPost, "/v1/summarizer/state", api.StateRequest{Running: &running}, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Flush asks the summarizer to summarize on its next cycle.
func (c *Client) Flush(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/v1/summarizer/flush", nil, nil)
}

// SetModel switches the summarizer model.
func (c *Client) SetModel(ctx context.Context, model string) (*api.ModelResponse, error) {
	out := &api.ModelResponse{}
	if err := c.do(ctx, http.MethodPost, "/v1/model", api.ModelRequest{Model: model}, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Events opens the SSE stream at /v1/events. The caller closes the body.
func (c *Client) Events(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/v1/events"), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.stream.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to minutes API at %s: %w", c.Target(), err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, responseError(resp)
	}
	return resp.Body, nil
}

// WebSocketURL returns the ws(s):// URL of /v1/ws.
func (c *Client) WebSocketURL() string {
	u := *c.base
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/v1/ws"
	return u.String()
}

func (c *Client) endpoint(path string) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	return u.String()
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to minutes API at %s: %w", c.Target(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return responseError(resp)
	}
	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// responseError turns a non-2xx response into an error carrying the
// server's message when it sent one.
func responseError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var e api.ErrorResponse
	if json.Unmarshal(data, &e) == nil && e.Error != "" {
		return fmt.Errorf("minutes API returned %d: %s", resp.StatusCode, e.Error)
	}
	return fmt.Errorf("minutes API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
}
