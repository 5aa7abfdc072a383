// Package transport holds the JSON-over-HTTP call shared by the plain HTTP
// providers.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/papercomputeco/minutes/pkg/llm"
)

// DefaultTimeout bounds a single completion request.
const DefaultTimeout = 60 * time.Second

// Request describes one JSON POST to a provider.
type Request struct {
	Provider string
	URL      string
	Headers  map[string]string
	Timeout  time.Duration
	Body     any
}

// PostJSON sends req.Body as JSON and decodes a 200 response into out.
// Every failure is returned as *llm.Error with its kind already classified.
func PostJSON(ctx context.Context, client *http.Client, req Request, out any) error {
	data, err := json.Marshal(req.Body)
	if err != nil {
		return llm.Permanent(req.Provider, fmt.Errorf("marshal request: %w", err))
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, bytes.NewReader(data))
	if err != nil {
		return llm.Permanent(req.Provider, fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return llm.Transient(req.Provider, fmt.Errorf("request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return llm.Transient(req.Provider, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return llm.StatusError(req.Provider, resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return llm.Transient(req.Provider, fmt.Errorf("unmarshal response: %w", err))
	}

	return nil
}
