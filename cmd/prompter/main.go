// Package main provides the prompter CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/richinex/prompter/config"
)

var (
	// Global flags
	configFile string
	verbose    bool
	quiet      bool
	searches   []string

	flagValues struct {
		url, apiKey, provider, model, preset, mode string
		instructTemplate, character, system        string
		searxURL, searxAPIKey, history, session    string
		enforce, noEnforce, streaming, noStreaming bool
		printer, markdown                          bool
		maxURLs, maxTokens                         int
	}

	logger = zap.NewNop()
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "prompter [prompt...]",
		Short: "Chat with an OpenAI-compatible model from the terminal",
		Long: `A conversational client for OpenAI-compatible chat/completion servers
(text-generation-webui, llama.cpp, OpenAI) and hosted providers.

Links in a message are fetched and added to it. With a SearXNG instance
configured, "search ... for <subject>" and (search:term) add web results.

Without a prompt an interactive session starts; with one, the answer is
printed and the program exits.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			logger, err = newLogger(verbose, quiet)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := resolveSettings(cmd)
			if err != nil {
				return err
			}
			if len(args) > 0 {
				return runOnce(cmd.Context(), settings, strings.Join(args, " "))
			}
			return runInteractive(cmd.Context(), settings)
		},
	}

	flags := rootCmd.PersistentFlags()
	// Accept the underscore spellings too (--api_key, --no_streaming, ...).
	flags.SetNormalizeFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
	flags.StringVar(&configFile, "config", "", "Config file (default $XDG_CONFIG_HOME/prompter/config.toml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Show debug logs")
	flags.BoolVarP(&quiet, "quiet", "q", false, "Only show warnings and errors")

	flags.StringVar(&flagValues.url, "url", "", "API base URL (env OPENAI_API_BASE)")
	flags.StringVar(&flagValues.apiKey, "api-key", "", "API key (env OPENAI_API_KEY)")
	flags.StringVarP(&flagValues.provider, "provider", "p", "", "LLM provider (openai, anthropic, deepseek, gemini)")
	flags.StringVar(&flagValues.model, "model", "", "Model to enforce, n for none")
	flags.BoolVar(&flagValues.enforce, "enforce", false, "Load the configured model before each request")
	flags.BoolVar(&flagValues.noEnforce, "no-enforce", false, "Do not enforce the model")
	flags.BoolVar(&flagValues.streaming, "streaming", false, "Stream answers as they are generated")
	flags.BoolVar(&flagValues.noStreaming, "no-streaming", false, "Wait for complete answers")
	flags.StringVar(&flagValues.preset, "preset", "", "Generation preset used when loading a model")
	flags.StringVar(&flagValues.mode, "mode", "", "Prompt mode: chat or instruct")
	flags.StringVar(&flagValues.instructTemplate, "instruct-template", "", "Instruction template, n for none")
	flags.StringVar(&flagValues.character, "character", "", "Character for chat mode")
	flags.StringVar(&flagValues.system, "system", "", "System prompt for instruct mode")
	flags.StringVar(&flagValues.searxURL, "searx-url", "", "SearXNG search URL, n to disable search")
	flags.StringVar(&flagValues.searxAPIKey, "searx-api-key", "", "SearXNG API key")
	flags.IntVar(&flagValues.maxURLs, "max-urls", config.DefaultMaxURLs, "URLs and search results to expand (1-10)")
	flags.IntVar(&flagValues.maxTokens, "max-tokens", config.DefaultMaxTokens, "Token budget of added context (1-199999)")
	flags.StringVar(&flagValues.history, "history", "", "History file (.json, or .db for SQLite), n to disable")
	flags.StringVar(&flagValues.session, "session", "", "Session name in a SQLite history")
	flags.BoolVar(&flagValues.printer, "printer", false, "Mirror output to the thermal printer device")
	flags.BoolVar(&flagValues.markdown, "markdown", false, "Render answers as markdown")
	rootCmd.Flags().StringArrayVar(&searches, "search", nil, "Search term to add to a one-shot prompt (repeatable)")

	rootCmd.AddCommand(modelsCmd())
	rootCmd.AddCommand(historyCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(verbose, quiet bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableCaller = true
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.TimeKey = ""
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	cfg.Level.SetLevel(zapcore.InfoLevel)
	if quiet {
		cfg.Level.SetLevel(zapcore.WarnLevel)
	}
	if verbose {
		cfg.Level.SetLevel(zapcore.DebugLevel)
	}
	return cfg.Build()
}

// resolveSettings turns the flags the user set into config overrides.
func resolveSettings(cmd *cobra.Command) (config.Settings, error) {
	flags := cmd.Flags()
	opts := config.Options{ConfigFile: configFile}

	str := func(name string, v string) *string {
		if flags.Changed(name) {
			return &v
		}
		return nil
	}
	num := func(name string, v int) *int {
		if flags.Changed(name) {
			return &v
		}
		return nil
	}
	// --no-x wins over --x when both are given.
	pair := func(on, off string, onVal, offVal bool) *bool {
		var v bool
		switch {
		case flags.Changed(off):
			v = !offVal
		case flags.Changed(on):
			v = onVal
		default:
			return nil
		}
		return &v
	}

	opts.URL = str("url", flagValues.url)
	opts.APIKey = str("api-key", flagValues.apiKey)
	opts.Provider = str("provider", flagValues.provider)
	opts.Model = str("model", flagValues.model)
	opts.Preset = str("preset", flagValues.preset)
	opts.Mode = str("mode", flagValues.mode)
	opts.InstructTemplate = str("instruct-template", flagValues.instructTemplate)
	opts.Character = str("character", flagValues.character)
	opts.SystemPrompt = str("system", flagValues.system)
	opts.SearxURL = str("searx-url", flagValues.searxURL)
	opts.SearxAPIKey = str("searx-api-key", flagValues.searxAPIKey)
	opts.History = str("history", flagValues.history)
	opts.Session = str("session", flagValues.session)
	opts.MaxURLs = num("max-urls", flagValues.maxURLs)
	opts.MaxTokens = num("max-tokens", flagValues.maxTokens)
	opts.EnforceModel = pair("enforce", "no-enforce", flagValues.enforce, flagValues.noEnforce)
	opts.Streaming = pair("streaming", "no-streaming", flagValues.streaming, flagValues.noStreaming)
	if flags.Changed("printer") {
		opts.Printer = &flagValues.printer
	}
	if flags.Changed("markdown") {
		opts.Markdown = &flagValues.markdown
	}

	return config.New(opts)
}
