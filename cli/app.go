package cli

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/richinex/prompter/augment"
	"github.com/richinex/prompter/config"
	"github.com/richinex/prompter/fetch"
	"github.com/richinex/prompter/internal/trim"
	"github.com/richinex/prompter/llm"
	"github.com/richinex/prompter/search"
	"github.com/richinex/prompter/storage"
)

// markdownWidth is the wrap width of rendered answers.
const markdownWidth = 100

// App is a fully wired session.
type App struct {
	Settings config.Settings
	Loop     *Loop
	Output   *Output
	Store    storage.HistoryStore
	// Admin is nil for providers without model management endpoints.
	Admin *llm.AdminClient
}

// NewApp wires every component from s. Output goes to console.
func NewApp(s config.Settings, console io.Writer, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	tok, err := trim.NewTiktoken(trim.DefaultEncoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}

	fetcher := fetch.New(
		fetch.WithMaxWords(s.Search.MaxWords),
		fetch.WithLogger(logger.Named("fetch")),
	)

	// Must stay a nil interface when search is off.
	var searcher augment.Searcher
	if s.SearchEnabled() {
		searcher = search.NewAugmenter(
			search.NewClient(s.Search.URL, s.Search.APIKey),
			fetcher,
			tok,
			search.Config{
				MaxResults: s.Search.MaxURLs,
				MaxTokens:  s.Search.MaxTokens,
				MaxWords:   s.Search.MaxWords,
			},
			logger.Named("search"),
		)
	}
	assembler := augment.New(fetcher, searcher, tok, augment.Config{
		MaxURLs:   s.Search.MaxURLs,
		MaxTokens: s.Search.MaxTokens,
	}, logger.Named("augment"))

	providerType, err := llm.ParseProviderType(s.API.Provider)
	if err != nil {
		return nil, err
	}
	provider, err := llm.NewProviderBuilder(providerType).
		BaseURL(s.API.URL).
		Model(s.API.Model).
		APIKey(s.API.APIKey)
	if err != nil {
		return nil, err
	}

	var admin *llm.AdminClient
	if providerType == llm.ProviderOpenAI {
		admin = llm.NewAdminClient(s.API.URL, s.API.APIKey)
	}

	genOpts := []llm.GeneratorOption{
		llm.WithSystemPrompt(s.Chat.SystemPrompt),
		llm.WithCharacter(s.Chat.Character),
		llm.WithInstructTemplate(s.Chat.InstructTemplate),
		llm.WithGeneratorLogger(logger.Named("llm")),
	}
	if admin != nil && s.EnforcementEnabled() {
		genOpts = append(genOpts, llm.WithEnforcement(admin, s.API.Model, s.API.Preset))
	}
	generator := llm.NewGenerator(provider, genOpts...)
	logger.Debug("provider ready",
		zap.String("provider", generator.Provider().Name()),
		zap.String("model", generator.Provider().Model()))

	store, err := storage.Open(s.History.Path, s.History.Session)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	if store == nil {
		store = storage.NewInMemoryStore()
	}

	outOpts := []OutputOption{WithOutputLogger(logger.Named("output"))}
	if s.Output.Printer {
		outOpts = append(outOpts, WithPrinter(s.Output.PrinterPath))
	}
	if s.Output.Markdown {
		outOpts = append(outOpts, WithMarkdown(markdownWidth))
	}
	out := NewOutput(console, outOpts...)

	loop := NewLoop(assembler, generator, store, out, LoopConfig{
		Mode:      s.Chat.Mode,
		Streaming: s.API.Streaming,
	}, logger.Named("loop"))

	return &App{
		Settings: s,
		Loop:     loop,
		Output:   out,
		Store:    store,
		Admin:    admin,
	}, nil
}

// Close releases the history store.
func (a *App) Close() error {
	if c, ok := a.Store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
