// LLM Provider Factory - builder API for creating providers.
//
//	// OpenAI-compatible endpoint (text-generation-webui, llama.cpp, ...)
//	p, err := llm.ProviderOpenAI.BaseURL("http://localhost:5000/v1").APIKey("")
//
//	// Hosted providers, API key from environment
//	claude, err := llm.ProviderAnthropic.Model(llm.ModelAnthropicClaudeSonnet4).FromEnv()

package llm

import (
	"fmt"
	"os"
	"strings"
)

// ProviderType represents supported LLM providers.
type ProviderType int

const (
	// ProviderOpenAI is any OpenAI-compatible endpoint.
	ProviderOpenAI ProviderType = iota
	// ProviderAnthropic is the Anthropic provider (Claude models).
	ProviderAnthropic
	// ProviderDeepSeek is the DeepSeek provider.
	ProviderDeepSeek
	// ProviderGemini is the Google Gemini provider.
	ProviderGemini
)

// DeepSeekBaseURL is the OpenAI-compatible DeepSeek endpoint.
const DeepSeekBaseURL = "https://api.deepseek.com/v1"

// String returns the string representation of the provider type.
func (p ProviderType) String() string {
	switch p {
	case ProviderOpenAI:
		return "openai"
	case ProviderAnthropic:
		return "anthropic"
	case ProviderDeepSeek:
		return "deepseek"
	case ProviderGemini:
		return "gemini"
	default:
		return "unknown"
	}
}

// EnvVar returns the environment variable name for this provider's API key.
func (p ProviderType) EnvVar() string {
	switch p {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderDeepSeek:
		return "DEEPSEEK_API_KEY"
	case ProviderGemini:
		return "GEMINI_API_KEY"
	default:
		return ""
	}
}

// DefaultModel returns the default model for this provider. OpenAI-compatible
// endpoints have none: local servers answer with whatever model is loaded.
func (p ProviderType) DefaultModel() string {
	switch p {
	case ProviderAnthropic:
		return ModelAnthropicClaudeSonnet4
	case ProviderDeepSeek:
		return ModelDeepSeekChat
	case ProviderGemini:
		return ModelGeminiFlash2
	default:
		return ""
	}
}

// ParseProviderType parses a provider from string (case-insensitive).
func ParseProviderType(s string) (ProviderType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "openai", "gpt", "":
		return ProviderOpenAI, nil
	case "anthropic", "claude":
		return ProviderAnthropic, nil
	case "deepseek":
		return ProviderDeepSeek, nil
	case "gemini", "google":
		return ProviderGemini, nil
	default:
		return 0, fmt.Errorf("unknown provider: %s", s)
	}
}

// FromEnv creates a provider with defaults, reading API key from environment.
func (p ProviderType) FromEnv() (Provider, error) {
	return NewProviderBuilder(p).FromEnv()
}

// Model starts configuring this provider with a specific model.
func (p ProviderType) Model(model string) *ProviderBuilder {
	return NewProviderBuilder(p).Model(model)
}

// BaseURL starts configuring this provider with a specific endpoint.
func (p ProviderType) BaseURL(url string) *ProviderBuilder {
	return NewProviderBuilder(p).BaseURL(url)
}

// APIKey creates a provider with an explicit API key (uses defaults for everything else).
func (p ProviderType) APIKey(key string) (Provider, error) {
	return NewProviderBuilder(p).APIKey(key)
}

// ProviderBuilder is a builder for configuring LLM providers.
type ProviderBuilder struct {
	providerType ProviderType
	model        string
	baseURL      string
}

// NewProviderBuilder creates a new builder for the given provider.
func NewProviderBuilder(providerType ProviderType) *ProviderBuilder {
	return &ProviderBuilder{
		providerType: providerType,
	}
}

// Model sets the model to use.
func (b *ProviderBuilder) Model(model string) *ProviderBuilder {
	b.model = model
	return b
}

// BaseURL sets the endpoint. Ignored by Gemini.
func (b *ProviderBuilder) BaseURL(url string) *ProviderBuilder {
	b.baseURL = strings.TrimRight(url, "/")
	return b
}

// FromEnv builds the provider, reading API key from environment.
// OpenAI-compatible endpoints accept an empty key.
func (b *ProviderBuilder) FromEnv() (Provider, error) {
	envVar := b.providerType.EnvVar()
	apiKey := os.Getenv(envVar)
	if apiKey == "" && b.providerType != ProviderOpenAI {
		return nil, fmt.Errorf("%s: %s environment variable not set", b.providerType, envVar)
	}
	return b.build(apiKey)
}

// APIKey builds the provider with an explicit API key.
func (b *ProviderBuilder) APIKey(key string) (Provider, error) {
	return b.build(key)
}

func (b *ProviderBuilder) build(apiKey string) (Provider, error) {
	model := b.model
	if model == "" {
		model = b.providerType.DefaultModel()
	}

	switch b.providerType {
	case ProviderOpenAI:
		return NewOpenAIProvider(b.baseURL, apiKey, model), nil
	case ProviderAnthropic:
		return NewAnthropicProvider(b.baseURL, apiKey, model), nil
	case ProviderDeepSeek:
		baseURL := b.baseURL
		if baseURL == "" {
			baseURL = DeepSeekBaseURL
		}
		p := NewOpenAIProvider(baseURL, apiKey, model)
		p.name = "deepseek"
		return p, nil
	case ProviderGemini:
		return NewGeminiProvider(apiKey, model), nil
	default:
		return nil, fmt.Errorf("unknown provider type: %v", b.providerType)
	}
}

// Anthropic model identifiers
const (
	// ModelAnthropicClaudeSonnet4 is Claude Sonnet 4: Balanced performance.
	ModelAnthropicClaudeSonnet4 = "claude-sonnet-4-20250514"
	// ModelAnthropicClaudeOpus45 is Claude Opus 4.5.
	ModelAnthropicClaudeOpus45 = "claude-opus-4-5-20251101"
)

// DeepSeek model identifiers
const (
	// ModelDeepSeekChat is the general chat model.
	ModelDeepSeekChat = "deepseek-chat"
	// ModelDeepSeekReasoner is the reasoning model.
	ModelDeepSeekReasoner = "deepseek-reasoner"
)

// Gemini model identifiers
const (
	// ModelGeminiFlash2 is Gemini 2.0 Flash.
	ModelGeminiFlash2 = "gemini-2.0-flash"
	// ModelGeminiPro25 is Gemini 2.5 Pro.
	ModelGeminiPro25 = "gemini-2.5-pro"
)
