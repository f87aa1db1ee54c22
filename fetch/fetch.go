// Package fetch retrieves the readable text of a web page.
//
// Fetch never fails hard: when a page cannot be loaded the returned text says
// so, and the model reads that message as part of its context. The error
// return lets callers tell a degraded result from a real one.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/richinex/prompter/internal/trim"
)

const (
	// DefaultTimeout bounds a single page fetch.
	DefaultTimeout = 5 * time.Second
	// DefaultMaxWords bounds the text kept from one page.
	DefaultMaxWords = 999999

	maxBodyBytes = 2 << 20
	userAgent    = "Mozilla/5.0 (compatible; prompter/1.0)"
)

// FetchError reports a page that could not be loaded.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Fetcher downloads pages and distills them to plain text.
type Fetcher struct {
	client   *http.Client
	maxWords int
	logger   *zap.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the HTTP client (its timeout is kept as is).
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.client = &http.Client{Timeout: d} }
}

// WithMaxWords sets the word budget applied to extracted text.
func WithMaxWords(n int) Option {
	return func(f *Fetcher) { f.maxWords = n }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// New creates a Fetcher with a 5 second timeout.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:   &http.Client{Timeout: DefaultTimeout},
		maxWords: DefaultMaxWords,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Unavailable is the text substituted for a page that could not be loaded.
func Unavailable(url string) string {
	return fmt.Sprintf("The page %s could not be loaded", url)
}

// Fetch returns the paragraph text of url wrapped with a header naming the
// source. Pages without paragraphs fall back to their description meta tags.
// On failure the text is Unavailable(url) and the error is a *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	body, err := f.get(ctx, url)
	if err != nil {
		f.logger.Warn("Could not load page", zap.String("url", url), zap.Error(err))
		return Unavailable(url), &FetchError{URL: url, Err: err}
	}
	f.logger.Info("Fetched", zap.String("url", url))

	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return Unavailable(url), &FetchError{URL: url, Err: fmt.Errorf("failed to parse HTML: %w", err)}
	}

	page := extract(doc)
	if text := strings.Join(page.paragraphs, "\n"); strings.TrimSpace(text) != "" {
		return fmt.Sprintf("\n\n---\n\nContent of %s : \n%s[...]", url, trim.Words(text, f.maxWords)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "The web page at %s doesn't seem to have any readable content.", url)
	for _, m := range page.metas {
		fmt.Fprintf(&sb, " It's %s is '%s'", m.name, m.content)
	}
	return sb.String(), nil
}

func (f *Fetcher) get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("HTTP error: %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	return string(body), nil
}
