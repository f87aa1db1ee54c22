// Package config resolves the immutable application settings.
//
// Settings are created via New() which applies, lowest precedence first:
// - Built-in defaults
// - The TOML config file
// - Environment variables (a .env file is loaded into the environment by main)
// - Command line flags the user set explicitly

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/richinex/prompter/model"
)

// Defaults.
const (
	DefaultURL          = "https://api.openai.com/v1"
	DefaultPreset       = "Divine Intellect"
	DefaultSystemPrompt = "You are a helpful assistant, answer any request from the user."
	DefaultMaxURLs      = 1
	DefaultMaxTokens    = 15000
	DefaultMaxWords     = 999999
	DefaultPrinterPath  = "/tmp/DEVTERM_PRINTER_IN"
	DefaultSession      = "default"
)

// Limits of the numeric settings.
const (
	minURLs   = 1
	maxURLs   = 10
	minTokens = 1
	maxTokens = 199999
)

// Settings holds all application configuration. It is built once and
// passed by value.
type Settings struct {
	API     APIConfig
	Chat    ChatConfig
	Search  SearchConfig
	History HistoryConfig
	Output  OutputConfig
}

// APIConfig holds the completions endpoint configuration.
type APIConfig struct {
	Provider string
	URL      string
	APIKey   string
	// Model is the model to enforce; empty means whatever the server has loaded.
	Model        string
	Preset       string
	EnforceModel bool
	Streaming    bool
}

// ChatConfig holds the prompt shaping configuration.
type ChatConfig struct {
	Mode             model.Mode
	InstructTemplate string
	Character        string
	SystemPrompt     string
}

// SearchConfig holds the search aggregator and context budget configuration.
type SearchConfig struct {
	URL    string
	APIKey string
	// MaxURLs bounds both expanded URLs per message and results per class.
	MaxURLs int
	// MaxTokens is the token budget of injected context.
	MaxTokens int
	// MaxWords bounds the text kept from one fetched page.
	MaxWords int
}

// HistoryConfig holds the history persistence configuration.
type HistoryConfig struct {
	// Path is empty when persistence is disabled.
	Path    string
	Session string
}

// OutputConfig holds output configuration.
type OutputConfig struct {
	Printer     bool
	PrinterPath string
	Markdown    bool
}

// SearchEnabled reports whether a search aggregator is configured.
func (s Settings) SearchEnabled() bool {
	return s.Search.URL != ""
}

// HistoryEnabled reports whether history is persisted.
func (s Settings) HistoryEnabled() bool {
	return s.History.Path != ""
}

// EnforcementEnabled reports whether the configured model is loaded on the
// server before each request.
func (s Settings) EnforcementEnabled() bool {
	return s.API.EnforceModel && s.API.Model != ""
}

// Options are explicit overrides, typically command line flags. Nil fields
// are not set.
type Options struct {
	// ConfigFile is the TOML file to read. Empty means DefaultPath(), which
	// may be absent; an explicit file must exist.
	ConfigFile string

	Provider         *string
	URL              *string
	APIKey           *string
	Model            *string
	Preset           *string
	EnforceModel     *bool
	Streaming        *bool
	Mode             *string
	InstructTemplate *string
	Character        *string
	SystemPrompt     *string
	SearxURL         *string
	SearxAPIKey      *string
	MaxURLs          *int
	MaxTokens        *int
	History          *string
	Session          *string
	Printer          *bool
	Markdown         *bool
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		API: APIConfig{
			Provider: "openai",
			URL:      DefaultURL,
			Preset:   DefaultPreset,
		},
		Chat: ChatConfig{
			Mode:         model.ModeInstruct,
			SystemPrompt: DefaultSystemPrompt,
		},
		Search: SearchConfig{
			MaxURLs:   DefaultMaxURLs,
			MaxTokens: DefaultMaxTokens,
			MaxWords:  DefaultMaxWords,
		},
		History: HistoryConfig{
			Session: DefaultSession,
		},
		Output: OutputConfig{
			PrinterPath: DefaultPrinterPath,
		},
	}
}

// New resolves the settings. Returns an error if the config file or an
// environment variable holds an invalid value.
func New(opts Options) (Settings, error) {
	s := Defaults()

	path, explicit := opts.ConfigFile, opts.ConfigFile != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		fc, err := LoadFile(path)
		switch {
		case err == nil:
			if err := fc.apply(&s); err != nil {
				return Settings{}, fmt.Errorf("config file %s: %w", path, err)
			}
		case explicit || !os.IsNotExist(err):
			return Settings{}, err
		}
	}

	if err := applyEnv(&s); err != nil {
		return Settings{}, err
	}
	if err := opts.apply(&s); err != nil {
		return Settings{}, err
	}

	if opts.APIKey == nil {
		if key := APIKeyFor(s.API.Provider); key != "" {
			s.API.APIKey = key
		}
	}
	s.normalize()

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// normalize turns the "disabled" sentinels into empty values.
func (s *Settings) normalize() {
	s.API.URL = strings.TrimRight(s.API.URL, "/")
	if s.API.Provider != "openai" && s.API.URL == DefaultURL {
		// Hosted providers use their own endpoint.
		s.API.URL = ""
	}
	s.API.Model = disabledToEmpty(s.API.Model)
	s.Chat.InstructTemplate = disabledToEmpty(s.Chat.InstructTemplate)
	s.Chat.Character = disabledToEmpty(s.Chat.Character)
	s.Search.URL = disabledToEmpty(s.Search.URL)
	s.Search.APIKey = disabledToEmpty(s.Search.APIKey)
	s.History.Path = disabledToEmpty(s.History.Path)
	if s.History.Session == "" {
		s.History.Session = DefaultSession
	}
}

// Validate checks value ranges.
func (s Settings) Validate() error {
	if _, ok := providers[s.API.Provider]; !ok {
		return fmt.Errorf("unknown provider: %q", s.API.Provider)
	}
	if s.Chat.Mode != model.ModeChat && s.Chat.Mode != model.ModeInstruct {
		return fmt.Errorf("invalid mode: %q", s.Chat.Mode)
	}
	if s.Search.MaxURLs < minURLs || s.Search.MaxURLs > maxURLs {
		return fmt.Errorf("max urls must be between %d and %d, got %d", minURLs, maxURLs, s.Search.MaxURLs)
	}
	if s.Search.MaxTokens < minTokens || s.Search.MaxTokens > maxTokens {
		return fmt.Errorf("max tokens must be between %d and %d, got %d", minTokens, maxTokens, s.Search.MaxTokens)
	}
	if s.Search.MaxWords < 1 {
		return fmt.Errorf("max words must be positive, got %d", s.Search.MaxWords)
	}
	return nil
}

func applyEnv(s *Settings) error {
	if v := os.Getenv("OPENAI_API_BASE"); v != "" {
		s.API.URL = v
	}
	if v := os.Getenv("PROMPTER_PROVIDER"); v != "" {
		s.API.Provider = normalizeProvider(v)
	}
	setString(&s.API.Model, "PROMPTER_MODEL")
	setString(&s.API.Preset, "PROMPTER_PRESET")
	setString(&s.Chat.InstructTemplate, "PROMPTER_INSTRUCT_TEMPLATE")
	setString(&s.Chat.Character, "PROMPTER_CHARACTER")
	setString(&s.Chat.SystemPrompt, "PROMPTER_SYSTEM")
	setString(&s.Search.URL, "PROMPTER_SEARX_URL")
	setString(&s.Search.APIKey, "PROMPTER_SEARX_API_KEY")
	setString(&s.History.Path, "PROMPTER_HISTORY")
	setString(&s.History.Session, "PROMPTER_SESSION")

	if v := os.Getenv("PROMPTER_MODE"); v != "" {
		mode, err := model.ParseMode(v)
		if err != nil {
			return fmt.Errorf("invalid value for PROMPTER_MODE: %q: %w", v, err)
		}
		s.Chat.Mode = mode
	}

	var err error
	if s.API.EnforceModel, err = getEnvBool("PROMPTER_ENFORCE_MODEL", s.API.EnforceModel); err != nil {
		return err
	}
	if s.API.Streaming, err = getEnvBool("PROMPTER_STREAMING", s.API.Streaming); err != nil {
		return err
	}
	if s.Output.Printer, err = getEnvBool("PROMPTER_PRINTER", s.Output.Printer); err != nil {
		return err
	}
	if s.Search.MaxURLs, err = getEnvInt("PROMPTER_MAX_URLS", s.Search.MaxURLs); err != nil {
		return err
	}
	if s.Search.MaxTokens, err = getEnvInt("PROMPTER_MAX_TOKENS", s.Search.MaxTokens); err != nil {
		return err
	}
	if s.Search.MaxWords, err = getEnvInt("PROMPTER_MAX_WORDS", s.Search.MaxWords); err != nil {
		return err
	}
	return nil
}

func (o Options) apply(s *Settings) error {
	if o.Provider != nil {
		s.API.Provider = normalizeProvider(*o.Provider)
	}
	if o.Mode != nil {
		mode, err := model.ParseMode(*o.Mode)
		if err != nil {
			return err
		}
		s.Chat.Mode = mode
	}
	override(&s.API.URL, o.URL)
	override(&s.API.APIKey, o.APIKey)
	override(&s.API.Model, o.Model)
	override(&s.API.Preset, o.Preset)
	override(&s.API.EnforceModel, o.EnforceModel)
	override(&s.API.Streaming, o.Streaming)
	override(&s.Chat.InstructTemplate, o.InstructTemplate)
	override(&s.Chat.Character, o.Character)
	override(&s.Chat.SystemPrompt, o.SystemPrompt)
	override(&s.Search.URL, o.SearxURL)
	override(&s.Search.APIKey, o.SearxAPIKey)
	override(&s.Search.MaxURLs, o.MaxURLs)
	override(&s.Search.MaxTokens, o.MaxTokens)
	override(&s.History.Path, o.History)
	override(&s.History.Session, o.Session)
	override(&s.Output.Printer, o.Printer)
	override(&s.Output.Markdown, o.Markdown)
	return nil
}

func override[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// providerInfo holds configuration for a specific LLM provider.
type providerInfo struct {
	apiKeyEnv string
}

// Supported providers and their configuration.
var providers = map[string]providerInfo{
	"openai":    {"OPENAI_API_KEY"},
	"anthropic": {"ANTHROPIC_API_KEY"},
	"deepseek":  {"DEEPSEEK_API_KEY"},
	"gemini":    {"GEMINI_API_KEY"},
}

// Provider aliases map to canonical names.
var providerAliases = map[string]string{
	"claude": "anthropic",
	"google": "gemini",
	"gpt":    "openai",
}

// normalizeProvider converts provider aliases to canonical names.
func normalizeProvider(provider string) string {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if canonical, ok := providerAliases[provider]; ok {
		return canonical
	}
	return provider
}

// APIKeyFor returns the API key for a provider from environment variables,
// or "" when it is not set. OpenAI-compatible servers often need none.
func APIKeyFor(provider string) string {
	info, ok := providers[normalizeProvider(provider)]
	if !ok {
		return ""
	}
	return os.Getenv(info.apiKeyEnv)
}

// SupportedProviders returns the list of supported provider names.
func SupportedProviders() []string {
	return []string{"openai", "anthropic", "deepseek", "gemini"}
}

func disabledToEmpty(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "n", "none":
		return ""
	}
	return strings.TrimSpace(v)
}

// Environment variable helpers with proper error handling

func setString(dst *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return b, nil
}

// ParseBool accepts y/yes/true/1 and n/no/false/0, case-insensitively.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "true", "1":
		return true, nil
	case "n", "no", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean")
}
