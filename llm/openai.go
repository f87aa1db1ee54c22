// OpenAI Provider implementation using go-openai library.
//
// Information Hiding:
// - API endpoint and authentication
// - Request/response format for the Chat Completions and Completions APIs
// - Streaming via go-openai library

package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/richinex/prompter/model"
)

// DefaultRequestTimeout bounds one generation request, streaming included.
const DefaultRequestTimeout = time.Hour

// OpenAIProvider implements the Provider interface for OpenAI-compatible
// endpoints (OpenAI, text-generation-webui, llama.cpp server, DeepSeek, ...).
type OpenAIProvider struct {
	name    string
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIProvider creates a provider for the endpoint at baseURL.
// An empty apiKey sends no Authorization header.
// Each request is bounded by DefaultRequestTimeout through its context.
func NewOpenAIProvider(baseURL, apiKey, model string) *OpenAIProvider {
	return newOpenAICompatible("openai", baseURL, apiKey, model, &http.Client{
		Transport: newExtrasTransport(http.DefaultTransport),
	})
}

func newOpenAICompatible(name, baseURL, apiKey, model string, hc *http.Client) *OpenAIProvider {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	config.HTTPClient = hc

	return &OpenAIProvider{
		name:    name,
		client:  openai.NewClientWithConfig(config),
		model:   model,
		timeout: DefaultRequestTimeout,
	}
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string {
	return p.name
}

// Model returns the current model.
func (p *OpenAIProvider) Model() string {
	return p.model
}

// Complete sends a buffered request. Completion mode uses /completions,
// the other modes /chat/completions.
func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (Response, error) {
	ctx, cancel := context.WithTimeout(withExtras(ctx, req.Extras), p.timeout)
	defer cancel()

	if req.Mode == model.ModeCompletion {
		resp, err := p.client.CreateCompletion(ctx, openai.CompletionRequest{
			Model:     p.model,
			Prompt:    req.Prompt,
			MaxTokens: req.MaxTokens,
		})
		if err != nil {
			return Response{}, fmt.Errorf("completion failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			return Response{}, fmt.Errorf("completion returned no choices")
		}
		// Usage is optional on /completions; many local servers omit it.
		return Response{Content: resp.Choices[0].Text, Usage: convertUsage(resp.Usage)}, nil
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     p.model,
		Messages:  convertToOpenAIMessages(req.Messages),
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		return Response{}, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Response{}, fmt.Errorf("chat completion returned no choices")
	}
	return Response{Content: resp.Choices[0].Message.Content, Usage: convertUsage(&resp.Usage)}, nil
}

// Stream sends a streaming request; the server answers with server-sent
// events, one delta each. The request context lives until Close.
func (p *OpenAIProvider) Stream(ctx context.Context, req Request) (Stream, error) {
	ctx, cancel := context.WithTimeout(withExtras(ctx, req.Extras), p.timeout)

	if req.Mode == model.ModeCompletion {
		stream, err := p.client.CreateCompletionStream(ctx, openai.CompletionRequest{
			Model:     p.model,
			Prompt:    req.Prompt,
			MaxTokens: req.MaxTokens,
			Stream:    true,
		})
		if err != nil {
			// Cancelling releases the connection of an error response.
			cancel()
			return nil, fmt.Errorf("stream creation failed: %w", err)
		}
		return &completionStream{stream: stream, cancel: cancel}, nil
	}

	stream, err := p.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:     p.model,
		Messages:  convertToOpenAIMessages(req.Messages),
		MaxTokens: req.MaxTokens,
		Stream:    true,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("stream creation failed: %w", err)
	}
	return &chatStream{stream: stream, cancel: cancel}, nil
}

type chatStream struct {
	stream *openai.ChatCompletionStream
	cancel context.CancelFunc
}

func (s *chatStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if err != nil {
			return "", err
		}
		if len(resp.Choices) > 0 && resp.Choices[0].Delta.Content != "" {
			return resp.Choices[0].Delta.Content, nil
		}
	}
}

func (s *chatStream) Close() error {
	defer s.cancel()
	return s.stream.Close()
}

type completionStream struct {
	stream *openai.CompletionStream
	cancel context.CancelFunc
}

func (s *completionStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if err != nil {
			return "", err
		}
		if len(resp.Choices) > 0 && resp.Choices[0].Text != "" {
			return resp.Choices[0].Text, nil
		}
	}
}

func (s *completionStream) Close() error {
	defer s.cancel()
	return s.stream.Close()
}

// convertToOpenAIMessages converts our ChatMessage to openai.ChatCompletionMessage
func convertToOpenAIMessages(messages []ChatMessage) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		result[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}
	return result
}

func convertUsage(u *openai.Usage) *TokenUsage {
	if u == nil || u.TotalTokens == 0 {
		return nil
	}
	return &TokenUsage{
		PromptTokens:     uint32(u.PromptTokens),
		CompletionTokens: uint32(u.CompletionTokens),
		TotalTokens:      uint32(u.TotalTokens),
	}
}

// Verify OpenAIProvider implements Provider
var _ Provider = (*OpenAIProvider)(nil)
