// Package cli drives the interactive conversation.
//
// Information Hiding:
// - Turn state machine and in-band commands
// - History bookkeeping and persistence timing
// - Interrupt handling per turn
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/richinex/prompter/llm"
	"github.com/richinex/prompter/model"
	"github.com/richinex/prompter/storage"
)

// In-band commands.
const (
	CommandQuit     = "(quit)"
	CommandContinue = "(continue)"
)

// State is the position of the loop in a turn.
type State int

const (
	AwaitingInput State = iota
	Augmenting
	Generating
	Persisting
	Done
)

func (s State) String() string {
	switch s {
	case AwaitingInput:
		return "awaiting-input"
	case Augmenting:
		return "augmenting"
	case Generating:
		return "generating"
	case Persisting:
		return "persisting"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// Augmenter adds fetched and searched context to a message.
type Augmenter interface {
	Assemble(ctx context.Context, msg string) (string, error)
	AppendSearches(ctx context.Context, msg string, terms []string) (string, error)
}

// Responder produces assistant replies.
type Responder interface {
	Generate(ctx context.Context, mode model.Mode, history model.History, prompt string) (string, error)
	Stream(ctx context.Context, mode model.Mode, history model.History, prompt string) (llm.Stream, error)
}

// LoopConfig holds the per-session behavior of a Loop.
type LoopConfig struct {
	Mode      model.Mode
	Streaming bool
}

// Loop is the conversation state machine. It is not safe for concurrent use.
type Loop struct {
	augmenter Augmenter
	responder Responder
	store     storage.HistoryStore
	out       *Output
	cfg       LoopConfig
	logger    *zap.Logger

	state      State
	history    model.History
	lastPrompt string
	lastAnswer string
}

// NewLoop creates a Loop. A nil store disables persistence.
func NewLoop(a Augmenter, r Responder, store storage.HistoryStore, out *Output, cfg LoopConfig, logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Mode == "" {
		cfg.Mode = model.ModeInstruct
	}
	return &Loop{
		augmenter: a,
		responder: r,
		store:     store,
		out:       out,
		cfg:       cfg,
		logger:    logger,
		state:     AwaitingInput,
		history:   model.History{},
	}
}

// State returns the current state.
func (l *Loop) State() State {
	return l.state
}

// History returns the conversation so far.
func (l *Loop) History() model.History {
	return l.history
}

// LoadHistory restores the stored history. An unreadable history is logged
// and the session starts empty.
func (l *Loop) LoadHistory(ctx context.Context) {
	if l.store == nil {
		return
	}
	history, err := l.store.Load(ctx)
	if err != nil {
		l.logger.Warn("could not load history, starting empty", zap.Error(err))
		history = model.History{}
	}
	l.history = history
	if len(history) > 0 {
		l.logger.Info("history loaded", zap.Int("turns", len(history)))
	}
}

// Run reads lines from in until the quit command or end of input. Each turn
// runs under its own context cancelled by an interrupt signal, so Ctrl+C
// aborts the request in flight without leaving the loop.
func (l *Loop) Run(ctx context.Context, in LineReader) error {
	for {
		l.state = AwaitingInput
		line, err := in.ReadLine("> ")
		if errors.Is(err, io.EOF) || errors.Is(err, ErrAborted) {
			l.state = Done
			return nil
		}
		if err != nil {
			l.state = Done
			return fmt.Errorf("failed to read input: %w", err)
		}

		turnCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
		state := l.Step(turnCtx, line)
		stop()

		if state == Done {
			return nil
		}
		if ctx.Err() != nil {
			l.state = Done
			return ctx.Err()
		}
	}
}

// Step processes one line of input and returns the state the loop is in
// afterwards: AwaitingInput, or Done after the quit command.
func (l *Loop) Step(ctx context.Context, line string) State {
	input := strings.TrimSpace(line)
	switch input {
	case CommandQuit:
		l.state = Done
		return l.state
	case CommandContinue:
		l.continueAnswer(ctx)
		l.state = AwaitingInput
		return l.state
	case "":
		l.state = AwaitingInput
		return l.state
	}

	logger := l.logger.With(zap.String("turn_id", uuid.NewString()))
	l.out.Record("> " + line + "\n")

	l.state = Augmenting
	prompt, err := l.augmenter.Assemble(ctx, line)
	if err != nil {
		logger.Warn("context enrichment incomplete", zap.Error(err))
	}

	l.state = Generating
	answer, err := l.generate(ctx, l.cfg.Mode, l.history, prompt)
	if err != nil {
		l.report(logger, err)
		l.state = AwaitingInput
		return l.state
	}

	l.lastPrompt, l.lastAnswer = prompt, answer
	l.commit(ctx, logger, model.Turn{Question: prompt, Answer: answer})
	l.state = AwaitingInput
	return l.state
}

// continueAnswer asks for more of the last answer in completion mode and
// appends it to that answer.
func (l *Loop) continueAnswer(ctx context.Context) {
	if l.lastPrompt == "" && l.lastAnswer == "" {
		l.out.Notice("Nothing to continue yet.")
		return
	}
	logger := l.logger.With(zap.String("turn_id", uuid.NewString()))

	l.state = Generating
	more, err := l.generate(ctx, model.ModeCompletion, nil, l.lastPrompt+"\n"+l.lastAnswer)
	if err != nil {
		l.report(logger, err)
		return
	}

	l.lastAnswer += more
	l.commit(ctx, logger, model.Turn{Question: CommandContinue, Answer: more})
}

// generate runs one request and prints the answer.
func (l *Loop) generate(ctx context.Context, mode model.Mode, history model.History, prompt string) (string, error) {
	if !l.cfg.Streaming {
		answer, err := l.responder.Generate(ctx, mode, history, prompt)
		if err != nil {
			return "", err
		}
		l.out.Answer(answer)
		return answer, nil
	}

	stream, err := l.responder.Stream(ctx, mode, history, prompt)
	if err != nil {
		return "", err
	}
	answer, err := llm.Collect(stream, l.out.Delta)
	l.out.Delta("\n\n")
	if err != nil {
		return "", err
	}
	l.out.Record(answer)
	return answer, nil
}

func (l *Loop) commit(ctx context.Context, logger *zap.Logger, turn model.Turn) {
	l.history = l.history.Append(turn)
	if l.store == nil {
		return
	}

	l.state = Persisting
	// A completed turn is saved even if an interrupt arrived meanwhile.
	if err := l.store.Save(context.WithoutCancel(ctx), l.history); err != nil {
		logger.Error("could not save history", zap.Error(err))
	}
}

func (l *Loop) report(logger *zap.Logger, err error) {
	if errors.Is(err, context.Canceled) {
		l.out.Notice("Interrupted.")
		logger.Info("turn interrupted")
		return
	}
	l.out.Notice("Error generating response: " + err.Error())
	logger.Error("generation failed", zap.Error(err))
}
