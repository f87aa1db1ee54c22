package search

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/richinex/prompter/internal/trim"
	"github.com/richinex/prompter/model"
)

// NoResults replaces the search text when nothing usable was found.
const NoResults = "Could not find the results asked for"

// DefaultLocalEngine is the engine whose results are used as inline snippets
// instead of being fetched.
const DefaultLocalEngine = "meilisearch"

// Searcher runs aggregator queries.
type Searcher interface {
	Query(ctx context.Context, term string) (Results, error)
}

// PageFetcher expands a result URL into text. Implementations return usable
// text even when they also return an error.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Config bounds the text produced for one query.
type Config struct {
	// MaxResults caps each result class.
	MaxResults int
	// MaxTokens caps the composed text.
	MaxTokens int
	// MaxWords caps each info-box and answer.
	MaxWords int
	// LocalEngine names the engine used inline; empty means DefaultLocalEngine.
	LocalEngine string
}

// Augmenter turns searches into context text.
type Augmenter struct {
	searcher  Searcher
	fetcher   PageFetcher
	tokenizer trim.Tokenizer
	detector  Detector
	cfg       Config
	logger    *zap.Logger
}

// NewAugmenter creates an Augmenter using the HeuristicDetector.
func NewAugmenter(s Searcher, f PageFetcher, tok trim.Tokenizer, cfg Config, logger *zap.Logger) *Augmenter {
	if cfg.LocalEngine == "" {
		cfg.LocalEngine = DefaultLocalEngine
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Augmenter{
		searcher:  s,
		fetcher:   f,
		tokenizer: tok,
		detector:  HeuristicDetector{},
		cfg:       cfg,
		logger:    logger,
	}
}

// WithDetector replaces the intent detector.
func (a *Augmenter) WithDetector(d Detector) *Augmenter {
	a.detector = d
	return a
}

// Direct searches for term unconditionally and returns the text to append.
func (a *Augmenter) Direct(ctx context.Context, term string) (string, error) {
	found, err := a.Compose(ctx, term)
	return "\nHere is information about " + term + " found online: " + found, err
}

// Detect looks for a search intent in text. When one is found the text is
// rewritten as the instruction followed by the search results; otherwise it
// is returned unchanged with false.
func (a *Augmenter) Detect(ctx context.Context, text string) (string, bool, error) {
	intent, ok := a.detector.Detect(text)
	if !ok {
		return text, false, nil
	}
	a.logger.Info("Found search term", zap.String("subject", intent.Subject))

	found, err := a.Compose(ctx, intent.Subject)
	return intent.Instruction + "\nHere is information about " + intent.Subject + " found online: " + found, true, err
}

// Compose queries the aggregator for term and builds context text from the
// results. It never returns an empty string.
func (a *Augmenter) Compose(ctx context.Context, term string) (string, error) {
	a.logger.Info("Searching", zap.String("term", term))

	results, err := a.searcher.Query(ctx, term)
	if err != nil {
		a.logger.Warn("Search failed", zap.String("term", term), zap.Error(err))
		return NoResults, &SearchError{Term: term, Err: err}
	}

	items := results.Clamp(a.cfg.MaxResults)
	parts := make([]string, len(items))

	g, gctx := errgroup.WithContext(ctx)
	for i, item := range items {
		switch r := item.(type) {
		case model.OrganicResult:
			if r.Engine == a.cfg.LocalEngine {
				a.logger.Info("Found local result", zap.String("title", r.Title), zap.String("engine", r.Engine))
				parts[i] = fmt.Sprintf("Contents of %s:\n%s\n", r.Title, r.Content)
				continue
			}
			if r.URL == "" {
				continue
			}
			a.logger.Info("Found", zap.String("url", r.URL))
			g.Go(func() error {
				text, _ := a.fetcher.Fetch(gctx, r.URL)
				parts[i] = text + "\n"
				return nil
			})
		case model.InfoBox:
			a.logger.Info("Found infobox", zap.String("title", r.Title))
			parts[i] = "Information in HTML format: " + trim.Words(TableText(r.Content), a.cfg.MaxWords) + "\n"
		case model.DirectAnswer:
			a.logger.Info("Found answer", zap.String("answer", r.Content))
			parts[i] = "Answer found online: " + trim.Words(r.Content, a.cfg.MaxWords) + "\n"
		}
	}
	_ = g.Wait()

	text := strings.Join(parts, "")
	if text == "" {
		text = NoResults
	}
	return a.limit(text), nil
}

func (a *Augmenter) limit(text string) string {
	if a.tokenizer == nil || a.cfg.MaxTokens <= 0 {
		return text
	}
	before := a.tokenizer.Count(text)
	if before <= a.cfg.MaxTokens {
		return text
	}
	out := trim.Tokens(text, a.cfg.MaxTokens, a.tokenizer, trim.DropTail)
	a.logger.Info("Context too long, truncated",
		zap.Int("original_tokens", before),
		zap.Int("tokens", a.tokenizer.Count(out)))
	return out
}
