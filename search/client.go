// Package search queries a searx-compatible aggregator and turns its results
// into context text for the model.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/richinex/prompter/model"
)

// DefaultTimeout bounds one aggregator query.
const DefaultTimeout = 30 * time.Second

// SearchError reports a failed aggregator query.
type SearchError struct {
	Term string
	Err  error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("search %q: %v", e.Term, e.Err)
}

func (e *SearchError) Unwrap() error {
	return e.Err
}

// Results holds the three result classes of one query, in aggregator order.
type Results struct {
	Organic   []model.OrganicResult
	InfoBoxes []model.InfoBox
	Answers   []model.DirectAnswer
}

// Clamp returns at most max entries of each class, organic results first,
// then info-boxes, then answers.
func (r Results) Clamp(max int) []model.SearchResult {
	var out []model.SearchResult
	for i := 0; i < len(r.Organic) && i < max; i++ {
		out = append(out, r.Organic[i])
	}
	for i := 0; i < len(r.InfoBoxes) && i < max; i++ {
		out = append(out, r.InfoBoxes[i])
	}
	for i := 0; i < len(r.Answers) && i < max; i++ {
		out = append(out, r.Answers[i])
	}
	return out
}

// Client talks to the aggregator's JSON API.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates a client for the aggregator at baseURL. An empty apiKey
// sends no Authorization header.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: DefaultTimeout},
	}
}

// WithHTTPClient replaces the HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.client = hc
	return c
}

type response struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
		Engine  string `json:"engine"`
	} `json:"results"`
	Infoboxes []struct {
		Infobox string `json:"infobox"`
		Content string `json:"content"`
	} `json:"infoboxes"`
	Answers []answer `json:"answers"`
}

// answer accepts both the plain string and the object form.
type answer struct {
	Answer  string `json:"answer"`
	Content string `json:"content"`
}

func (a *answer) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		a.Answer = s
		return nil
	}
	type plain answer
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*a = answer(p)
	return nil
}

// Query runs one search and returns the first result page.
func (c *Client) Query(ctx context.Context, term string) (Results, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return Results{}, fmt.Errorf("invalid search URL: %w", err)
	}
	q := u.Query()
	q.Set("q", term)
	q.Set("format", "json")
	q.Set("pageno", "1")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Results{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Results{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Results{}, fmt.Errorf("HTTP error: %s: %s", resp.Status, body)
	}

	var raw response
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return Results{}, fmt.Errorf("failed to decode response: %w", err)
	}

	var out Results
	for _, r := range raw.Results {
		out.Organic = append(out.Organic, model.OrganicResult{
			Title: r.Title, URL: r.URL, Content: r.Content, Engine: r.Engine,
		})
	}
	for _, ib := range raw.Infoboxes {
		out.InfoBoxes = append(out.InfoBoxes, model.InfoBox{Title: ib.Infobox, Content: ib.Content})
	}
	for _, a := range raw.Answers {
		content := a.Content
		if content == "" {
			content = a.Answer
		}
		if content != "" {
			out.Answers = append(out.Answers, model.DirectAnswer{Content: content})
		}
	}
	return out, nil
}
