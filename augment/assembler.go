// Package augment builds the prompt actually sent to the model: the user's
// message plus any web content it asks for, with a provenance header on
// every piece of injected text.
//
// Per message, the first matching rule wins:
//  1. (search:term) markers, when a search aggregator is configured
//  2. literal URLs
//  3. a natural-language search request, when a search aggregator is configured
//  4. the message unchanged
package augment

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/richinex/prompter/internal/trim"
)

// Fetcher expands a URL into text. Implementations return usable text even
// when they also return an error.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Searcher resolves search requests into text to append.
type Searcher interface {
	Direct(ctx context.Context, term string) (string, error)
	Detect(ctx context.Context, text string) (string, bool, error)
}

var (
	urlPattern    = regexp.MustCompile(`(?i:https?)://(?:[a-zA-Z]|[0-9]|[$-_@.&+]|[!*\(\),]|(?:%[0-9a-fA-F][0-9a-fA-F]))+`)
	markerPattern = regexp.MustCompile(`\(search:(.*?)\)`)
)

// ExtractURLs returns the URLs in text in order of appearance.
func ExtractURLs(text string) []string {
	return urlPattern.FindAllString(text, -1)
}

// ExtractSearchMarkers returns the non-empty terms of (search:term) markers.
func ExtractSearchMarkers(text string) []string {
	var terms []string
	for _, m := range markerPattern.FindAllStringSubmatch(text, -1) {
		if term := strings.TrimSpace(m[1]); term != "" {
			terms = append(terms, term)
		}
	}
	return terms
}

// Config bounds the context added to one message.
type Config struct {
	// MaxURLs is the number of URLs expanded per message.
	MaxURLs int
	// MaxTokens is the token budget of the expanded page text.
	MaxTokens int
}

// Assembler augments user messages with fetched and searched content.
type Assembler struct {
	fetcher   Fetcher
	searcher  Searcher
	tokenizer trim.Tokenizer
	cfg       Config
	logger    *zap.Logger
}

// New creates an Assembler. A nil searcher disables every search rule; a nil
// tokenizer leaves expanded pages untrimmed.
func New(f Fetcher, s Searcher, tok trim.Tokenizer, cfg Config, logger *zap.Logger) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{fetcher: f, searcher: s, tokenizer: tok, cfg: cfg, logger: logger}
}

// Assemble returns msg with its requested context appended.
//
// The returned error only describes enrichment that failed (pages that could
// not be loaded, searches that failed); the returned text is always usable
// and already carries the failure notices.
func (a *Assembler) Assemble(ctx context.Context, msg string) (string, error) {
	if a.searcher != nil {
		if terms := ExtractSearchMarkers(msg); len(terms) > 0 {
			rest := strings.TrimSpace(markerPattern.ReplaceAllString(msg, ""))
			return a.AppendSearches(ctx, rest, terms)
		}
	}

	if urls := ExtractURLs(msg); len(urls) > 0 {
		return a.expandURLs(ctx, msg, urls)
	}

	if a.searcher != nil {
		out, _, err := a.searcher.Detect(ctx, msg)
		return out, err
	}
	return msg, nil
}

// AppendSearches appends the results of a direct search for each term.
func (a *Assembler) AppendSearches(ctx context.Context, msg string, terms []string) (string, error) {
	if a.searcher == nil {
		if len(terms) > 0 {
			a.logger.Warn("Search requested but no search URL configured", zap.Strings("terms", terms))
		}
		return msg, nil
	}

	var sb strings.Builder
	sb.WriteString(msg)
	var errs []error
	for _, term := range terms {
		text, err := a.searcher.Direct(ctx, term)
		sb.WriteString(text)
		errs = append(errs, err)
	}
	return sb.String(), errors.Join(errs...)
}

// expandURLs fetches the first MaxURLs urls concurrently and appends them in
// their original order, trimmed together to MaxTokens.
func (a *Assembler) expandURLs(ctx context.Context, msg string, urls []string) (string, error) {
	if len(urls) > a.cfg.MaxURLs {
		a.logger.Debug("Ignoring extra URLs", zap.Int("found", len(urls)), zap.Int("max", a.cfg.MaxURLs))
		urls = urls[:max(a.cfg.MaxURLs, 0)]
	}

	texts := make([]string, len(urls))
	errs := make([]error, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	for i, u := range urls {
		g.Go(func() error {
			texts[i], errs[i] = a.fetcher.Fetch(gctx, u)
			return nil
		})
	}
	_ = g.Wait()

	var sb strings.Builder
	for _, text := range texts {
		sb.WriteString("\n")
		sb.WriteString(text)
	}
	return msg + a.limit(sb.String()), errors.Join(errs...)
}

func (a *Assembler) limit(text string) string {
	if a.tokenizer == nil || a.cfg.MaxTokens <= 0 {
		return text
	}
	before := a.tokenizer.Count(text)
	if before <= a.cfg.MaxTokens {
		return text
	}
	out := trim.Tokens(text, a.cfg.MaxTokens, a.tokenizer, trim.DropTail)
	a.logger.Info("Page content too long, truncated",
		zap.Int("original_tokens", before),
		zap.Int("tokens", a.tokenizer.Count(out)))
	return out
}
