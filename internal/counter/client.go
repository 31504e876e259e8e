package counter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client is a Backend that calls a counter service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient targets the service at baseURL (e.g. "http://localhost:8080").
// A nil httpClient gets a client with a 10s timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// Get implements Backend.
func (c *Client) Get(ctx context.Context) (Count, error) {
	return c.do(ctx, http.MethodGet, "/count")
}

// Inc implements Backend.
func (c *Client) Inc(ctx context.Context) (Count, error) {
	return c.do(ctx, http.MethodPost, "/count/inc")
}

func (c *Client) do(ctx context.Context, method, path string) (Count, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return Count{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Count{}, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		if body.Error == "" {
			body.Error = resp.Status
		}
		return Count{}, fmt.Errorf("%s %s: %s", method, path, body.Error)
	}

	var out Count
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Count{}, fmt.Errorf("decode %s response: %w", path, err)
	}
	return out, nil
}
