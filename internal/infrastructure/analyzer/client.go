package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	assessPath     = "/api/risk/assess"
	defaultTimeout = 30 * time.Second
	maxResultBytes = 1 << 20
)

// Client calls the external risk model over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Assess posts payload and returns the model's JSON answer unchanged.
func (c *Client) Assess(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+assessPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build analyzer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call analyzer: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResultBytes))
	if err != nil {
		return nil, fmt.Errorf("read analyzer response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("analyzer returned %d", resp.StatusCode)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("analyzer returned invalid JSON")
	}
	return json.RawMessage(body), nil
}
