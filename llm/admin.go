package llm

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

// Timeouts of the internal model endpoints.
const (
	modelInfoTimeout = 15 * time.Second
	modelListTimeout = 5 * time.Second
	modelLoadTimeout = 60 * time.Second
)

// AdminClient talks to the model management endpoints of
// text-generation-webui style servers (/internal/model/...).
type AdminClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewAdminClient creates a client for the server at baseURL
// (the same base URL as the completions API).
func NewAdminClient(baseURL, apiKey string) *AdminClient {
	return &AdminClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{},
	}
}

type modelInfo struct {
	ModelName string `json:"model_name"`
}

type modelList struct {
	ModelNames []string `json:"model_names"`
}

type loadSettings struct {
	Preset string `json:"preset,omitempty"`
}

type loadRequest struct {
	ModelName string       `json:"model_name"`
	Settings  loadSettings `json:"settings"`
}

// ModelInfo returns the name of the currently loaded model.
func (c *AdminClient) ModelInfo(ctx context.Context) (string, error) {
	var info modelInfo
	if err := c.do(ctx, http.MethodGet, "/internal/model/info", nil, &info, modelInfoTimeout); err != nil {
		return "", err
	}
	return info.ModelName, nil
}

// ListModels returns the models the server can load.
func (c *AdminClient) ListModels(ctx context.Context) ([]string, error) {
	var list modelList
	if err := c.do(ctx, http.MethodGet, "/internal/model/list", nil, &list, modelListTimeout); err != nil {
		return nil, err
	}
	return list.ModelNames, nil
}

// LoadModel asks the server to load name with the given generation preset.
func (c *AdminClient) LoadModel(ctx context.Context, name, preset string) error {
	body := loadRequest{ModelName: name, Settings: loadSettings{Preset: preset}}
	return c.do(ctx, http.MethodPost, "/internal/model/load", body, nil, modelLoadTimeout)
}

func (c *AdminClient) do(ctx context.Context, method, path string, in, out any, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: unexpected status %s", method, path, resp.Status)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
