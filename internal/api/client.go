// internal/api/client.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/waterrocket/simulator/pkg/core"
)

// ErrNotFound is returned when the server answers 404.
var ErrNotFound = errors.New("not found")

// Client talks to a simulator started with `waterrocket serve`.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a new API client.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Healthcheck checks if the server is reachable.
func (c *Client) Healthcheck() error {
	resp, err := c.httpClient.Get(c.baseURL + "/healthcheck")
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck returned status %d", resp.StatusCode)
	}
	return nil
}

// Launch asks the server to fly a run. A nil stages or site uses the
// server's configured defaults.
func (c *Client) Launch(ctx context.Context, stages *[core.StageCount]core.StageInput, site *core.LaunchSite) (*core.Run, error) {
	body, err := json.Marshal(LaunchRequest{Stages: stages, Site: site})
	if err != nil {
		return nil, fmt.Errorf("failed to encode launch request: %w", err)
	}

	run := &core.Run{}
	if err := c.do(ctx, http.MethodPost, "/api/runs", bytes.NewReader(body), http.StatusCreated, run); err != nil {
		return nil, err
	}
	return run, nil
}

// Get fetches a stored run with its trajectory.
func (c *Client) Get(ctx context.Context, id uint) (*core.Run, error) {
	run := &core.Run{}
	if err := c.do(ctx, http.MethodGet, "/api/runs/"+strconv.FormatUint(uint64(id), 10), nil, http.StatusOK, run); err != nil {
		return nil, err
	}
	return run, nil
}

// List returns stored runs, newest first. limit 0 means no limit.
func (c *Client) List(ctx context.Context, limit int) ([]core.RunSummary, error) {
	path := "/api/runs"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	var runs []core.RunSummary
	if err := c.do(ctx, http.MethodGet, path, nil, http.StatusOK, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

// StateAt reads the current run's state at t seconds.
func (c *Client) StateAt(ctx context.Context, t float64) (*StateResponse, error) {
	q := url.Values{}
	q.Set("t", strconv.FormatFloat(t, 'f', -1, 64))

	state := &StateResponse{}
	if err := c.do(ctx, http.MethodGet, "/api/runs/current/state?"+q.Encode(), nil, http.StatusOK, state); err != nil {
		return nil, err
	}
	return state, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, want int, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set(APIKeyHeader, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		var apiErr errorResponse
		raw, _ := io.ReadAll(resp.Body)
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", ErrNotFound, msg)
		}
		return fmt.Errorf("%s %s returned status %d: %s", method, path, resp.StatusCode, msg)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
