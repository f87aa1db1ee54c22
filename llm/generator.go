package llm

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/richinex/prompter/model"
)

// DefaultMaxTokens bounds the length of one reply.
const DefaultMaxTokens = 4096

// Extra body mode values understood by text-generation-webui.
const (
	extraModeChat     = "chat-instruct"
	extraModeInstruct = "instruct"
)

// GenerateError wraps every failure of a generation call.
type GenerateError struct {
	Mode model.Mode
	Err  error
}

func (e *GenerateError) Error() string {
	return fmt.Sprintf("%s generation failed: %v", e.Mode, e.Err)
}

func (e *GenerateError) Unwrap() error {
	return e.Err
}

// Generator turns a prompt and the conversation so far into a reply.
type Generator struct {
	provider         Provider
	admin            *AdminClient
	model            string
	preset           string
	systemPrompt     string
	character        string
	instructTemplate string
	maxTokens        int
	logger           *zap.Logger
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithSystemPrompt sets the system prompt sent in instruct mode.
func WithSystemPrompt(s string) GeneratorOption {
	return func(g *Generator) { g.systemPrompt = s }
}

// WithCharacter sets the character embodied in chat mode.
func WithCharacter(s string) GeneratorOption {
	return func(g *Generator) { g.character = s }
}

// WithInstructTemplate sets the server side instruction template.
func WithInstructTemplate(s string) GeneratorOption {
	return func(g *Generator) { g.instructTemplate = s }
}

// WithMaxTokens sets max_tokens. Values <= 0 keep DefaultMaxTokens.
func WithMaxTokens(n int) GeneratorOption {
	return func(g *Generator) {
		if n > 0 {
			g.maxTokens = n
		}
	}
}

// WithEnforcement makes every call first ensure that modelName is the
// model loaded on the server, loading it with preset otherwise.
func WithEnforcement(admin *AdminClient, modelName, preset string) GeneratorOption {
	return func(g *Generator) {
		g.admin = admin
		g.model = modelName
		g.preset = preset
	}
}

// WithGeneratorLogger sets the logger.
func WithGeneratorLogger(l *zap.Logger) GeneratorOption {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGenerator creates a generator on top of p.
func NewGenerator(p Provider, opts ...GeneratorOption) *Generator {
	g := &Generator{
		provider:  p,
		maxTokens: DefaultMaxTokens,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Provider returns the underlying provider.
func (g *Generator) Provider() Provider {
	return g.provider
}

// Request builds the request for prompt in the given mode. Completion mode
// sends the prompt alone; the other modes replay history first, so chat and
// instruct payloads grow linearly with the number of turns.
func (g *Generator) Request(mode model.Mode, history model.History, prompt string) Request {
	req := Request{Mode: mode, MaxTokens: g.maxTokens}

	switch mode {
	case model.ModeCompletion:
		req.Prompt = prompt
	case model.ModeInstruct:
		msgs := make([]ChatMessage, 0, 2*len(history)+2)
		if g.systemPrompt != "" {
			msgs = append(msgs, SystemMessage(g.systemPrompt))
		}
		msgs = append(msgs, HistoryMessages(history)...)
		req.Messages = append(msgs, UserMessage(prompt))
		req.Extras = Extras{Mode: extraModeInstruct, InstructionTemplate: g.instructTemplate}
	default:
		req.Messages = append(HistoryMessages(history), UserMessage(prompt))
		req.Extras = Extras{
			Mode:                extraModeChat,
			Character:           g.character,
			InstructionTemplate: g.instructTemplate,
		}
	}
	return req
}

// Generate sends a buffered request and returns the reply.
func (g *Generator) Generate(ctx context.Context, mode model.Mode, history model.History, prompt string) (string, error) {
	g.EnforceModel(ctx)

	resp, err := g.provider.Complete(ctx, g.Request(mode, history, prompt))
	if err != nil {
		return "", &GenerateError{Mode: mode, Err: err}
	}
	if resp.Usage != nil {
		g.logger.Debug("token usage",
			zap.Uint32("prompt", resp.Usage.PromptTokens),
			zap.Uint32("completion", resp.Usage.CompletionTokens))
	}
	return resp.Content, nil
}

// Stream opens a streaming request. Errors while reading the stream are
// returned by Recv as *GenerateError as well.
func (g *Generator) Stream(ctx context.Context, mode model.Mode, history model.History, prompt string) (Stream, error) {
	g.EnforceModel(ctx)

	s, err := g.provider.Stream(ctx, g.Request(mode, history, prompt))
	if err != nil {
		return nil, &GenerateError{Mode: mode, Err: err}
	}
	return &wrappedStream{Stream: s, mode: mode}, nil
}

// EnforceModel loads the configured model when the server has another one
// loaded. It is a no-op without enforcement. Failures are only logged.
func (g *Generator) EnforceModel(ctx context.Context) {
	if g.admin == nil || g.model == "" {
		return
	}

	loaded, err := g.admin.ModelInfo(ctx)
	if err != nil {
		g.logger.Warn("could not read loaded model", zap.Error(err))
		return
	}
	if loaded == g.model {
		return
	}

	g.logger.Info("changing model",
		zap.String("from", loaded),
		zap.String("to", g.model),
		zap.String("preset", g.preset))
	if err := g.admin.LoadModel(ctx, g.model, g.preset); err != nil {
		g.logger.Warn("could not load model", zap.String("model", g.model), zap.Error(err))
	}
}

type wrappedStream struct {
	Stream
	mode model.Mode
}

func (s *wrappedStream) Recv() (string, error) {
	delta, err := s.Stream.Recv()
	if err != nil && !errors.Is(err, io.EOF) {
		return "", &GenerateError{Mode: s.mode, Err: err}
	}
	return delta, err
}
