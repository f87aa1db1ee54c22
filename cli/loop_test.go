package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinex/prompter/augment"
	"github.com/richinex/prompter/llm"
	"github.com/richinex/prompter/model"
	"github.com/richinex/prompter/storage"
)

type stubFetcher struct{}

func (stubFetcher) Fetch(ctx context.Context, url string) (string, error) {
	return "Content of " + url + ": hello world", nil
}

type call struct {
	mode    model.Mode
	history model.History
	prompt  string
}

// echoResponder answers with the prompt it received.
type echoResponder struct {
	mu     sync.Mutex
	calls  []call
	chunks []string
	err    error
}

func (r *echoResponder) record(mode model.Mode, history model.History, prompt string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{mode: mode, history: history, prompt: prompt})
}

func (r *echoResponder) Generate(ctx context.Context, mode model.Mode, history model.History, prompt string) (string, error) {
	r.record(mode, history, prompt)
	if r.err != nil {
		return "", r.err
	}
	return "echo: " + prompt, nil
}

func (r *echoResponder) Stream(ctx context.Context, mode model.Mode, history model.History, prompt string) (llm.Stream, error) {
	r.record(mode, history, prompt)
	if r.err != nil {
		return nil, r.err
	}
	return &sliceStream{deltas: append([]string(nil), r.chunks...)}, nil
}

type sliceStream struct {
	deltas []string
}

func (s *sliceStream) Recv() (string, error) {
	if len(s.deltas) == 0 {
		return "", io.EOF
	}
	d := s.deltas[0]
	s.deltas = s.deltas[1:]
	return d, nil
}

func (s *sliceStream) Close() error { return nil }

// writeLog records every Write call separately.
type writeLog struct {
	mu     sync.Mutex
	writes []string
}

func (w *writeLog) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writes = append(w.writes, string(p))
	return len(p), nil
}

func (w *writeLog) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return strings.Join(w.writes, "")
}

func newTestLoop(r Responder, store storage.HistoryStore, console io.Writer, cfg LoopConfig) *Loop {
	assembler := augment.New(stubFetcher{}, nil, nil, augment.Config{MaxURLs: 1}, nil)
	return NewLoop(assembler, r, store, NewOutput(console), cfg, nil)
}

func TestStepExpandsURLAndAnswers(t *testing.T) {
	r := &echoResponder{}
	var console bytes.Buffer
	store := storage.NewInMemoryStore()
	l := newTestLoop(r, store, &console, LoopConfig{Mode: model.ModeInstruct})

	state := l.Step(context.Background(), "What is in https://example.com")
	assert.Equal(t, AwaitingInput, state)

	require.Len(t, r.calls, 1)
	assert.Equal(t, model.ModeInstruct, r.calls[0].mode)
	assert.Contains(t, r.calls[0].prompt, "hello world")
	assert.Contains(t, console.String(), "hello world")

	history := l.History()
	require.Len(t, history, 1)
	assert.Contains(t, history[0].Answer, "hello world")
	assert.Equal(t, 1, store.Saves())
}

func TestStepStreamsDeltasInOrder(t *testing.T) {
	r := &echoResponder{chunks: []string{"Hel", "lo", "!"}}
	console := &writeLog{}
	l := newTestLoop(r, nil, console, LoopConfig{Mode: model.ModeChat, Streaming: true})

	l.Step(context.Background(), "greet me")

	require.GreaterOrEqual(t, len(console.writes), 3)
	assert.Equal(t, []string{"Hel", "lo", "!"}, console.writes[:3])
	require.Len(t, l.History(), 1)
	assert.Equal(t, "Hello!", l.History()[0].Answer)
}

func TestStepReplaysHistory(t *testing.T) {
	r := &echoResponder{}
	l := newTestLoop(r, nil, io.Discard, LoopConfig{Mode: model.ModeChat})

	l.Step(context.Background(), "first")
	l.Step(context.Background(), "second")

	require.Len(t, r.calls, 2)
	assert.Empty(t, r.calls[0].history)
	require.Len(t, r.calls[1].history, 1)
	assert.Equal(t, "first", r.calls[1].history[0].Question)
}

func TestStepQuit(t *testing.T) {
	r := &echoResponder{}
	l := newTestLoop(r, nil, io.Discard, LoopConfig{})

	assert.Equal(t, Done, l.Step(context.Background(), "  (quit) "))
	assert.Equal(t, Done, l.State())
	assert.Empty(t, r.calls)
}

func TestStepIgnoresBlankInput(t *testing.T) {
	r := &echoResponder{}
	l := newTestLoop(r, nil, io.Discard, LoopConfig{})

	assert.Equal(t, AwaitingInput, l.Step(context.Background(), "   "))
	assert.Empty(t, r.calls)
}

func TestContinueExtendsLastAnswer(t *testing.T) {
	r := &echoResponder{}
	store := storage.NewInMemoryStore()
	l := newTestLoop(r, store, io.Discard, LoopConfig{Mode: model.ModeInstruct})

	l.Step(context.Background(), "tell a story")
	l.Step(context.Background(), "(continue)")

	require.Len(t, r.calls, 2)
	assert.Equal(t, model.ModeCompletion, r.calls[1].mode)
	assert.Nil(t, r.calls[1].history)
	assert.Equal(t, "tell a story\necho: tell a story", r.calls[1].prompt)

	history := l.History()
	require.Len(t, history, 2)
	assert.Equal(t, CommandContinue, history[1].Question)
	assert.Equal(t, "echo: tell a story\necho: tell a story", history[1].Answer)
	assert.Equal(t, "echo: tell a storyecho: tell a story\necho: tell a story", l.lastAnswer)
	assert.Equal(t, 2, store.Saves())
}

func TestContinueWithoutPreviousExchange(t *testing.T) {
	r := &echoResponder{}
	var console bytes.Buffer
	l := newTestLoop(r, nil, &console, LoopConfig{})

	l.Step(context.Background(), "(continue)")
	assert.Empty(t, r.calls)
	assert.Contains(t, console.String(), "Nothing to continue")
	assert.Empty(t, l.History())
}

func TestFailedGenerationIsNotRecorded(t *testing.T) {
	r := &echoResponder{err: &llm.GenerateError{Mode: model.ModeChat, Err: errors.New("connection refused")}}
	var console bytes.Buffer
	store := storage.NewInMemoryStore()
	l := newTestLoop(r, store, &console, LoopConfig{Mode: model.ModeChat})

	assert.Equal(t, AwaitingInput, l.Step(context.Background(), "hello"))
	assert.Empty(t, l.History())
	assert.Equal(t, 0, store.Saves())
	assert.Contains(t, console.String(), "connection refused")
}

func TestInterruptedTurnIsNotPersisted(t *testing.T) {
	r := &echoResponder{err: context.Canceled}
	var console bytes.Buffer
	store := storage.NewInMemoryStore()
	l := newTestLoop(r, store, &console, LoopConfig{Mode: model.ModeChat})

	l.Step(context.Background(), "hello")
	assert.Equal(t, 0, store.Saves())
	assert.Contains(t, console.String(), "Interrupted.")
}

func TestRunPersistsEveryTurnToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	store := storage.NewJSONFileStore(path)
	r := &echoResponder{}
	l := newTestLoop(r, store, io.Discard, LoopConfig{Mode: model.ModeChat})

	in := NewScannerReader(strings.NewReader("one\ntwo\n(quit)\nnever\n"), io.Discard)
	require.NoError(t, l.Run(context.Background(), in))
	assert.Equal(t, Done, l.State())
	assert.Len(t, r.calls, 2)

	reloaded := newTestLoop(r, store, io.Discard, LoopConfig{Mode: model.ModeChat})
	reloaded.LoadHistory(context.Background())
	require.Len(t, reloaded.History(), 2)
	assert.Equal(t, "two", reloaded.History()[1].Question)
	assert.Equal(t, "echo: two", reloaded.History()[1].Answer)
}

func TestRunStopsAtEndOfInput(t *testing.T) {
	r := &echoResponder{}
	l := newTestLoop(r, nil, io.Discard, LoopConfig{})

	require.NoError(t, l.Run(context.Background(), NewScannerReader(strings.NewReader("only"), nil)))
	assert.Len(t, r.calls, 1)
	assert.Equal(t, Done, l.State())
}

func TestLoadHistoryToleratesCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
	l := newTestLoop(&echoResponder{}, storage.NewJSONFileStore(path), io.Discard, LoopConfig{})

	l.LoadHistory(context.Background())
	assert.Empty(t, l.History())
}

type recordingAugmenter struct {
	searches []string
}

func (a *recordingAugmenter) Assemble(ctx context.Context, msg string) (string, error) {
	return msg, nil
}

func (a *recordingAugmenter) AppendSearches(ctx context.Context, msg string, terms []string) (string, error) {
	a.searches = append(a.searches, terms...)
	return msg + " [searched " + strings.Join(terms, ",") + "]", nil
}

func TestRunOnceAppliesSearchesAndPersistsInChatMode(t *testing.T) {
	aug := &recordingAugmenter{}
	r := &echoResponder{}
	store := storage.NewInMemoryStore()
	var console bytes.Buffer
	l := NewLoop(aug, r, store, NewOutput(&console), LoopConfig{Mode: model.ModeChat}, nil)

	require.NoError(t, l.RunOnce(context.Background(), "weather", []string{"oslo", "bergen"}))
	assert.Equal(t, []string{"oslo", "bergen"}, aug.searches)
	assert.Equal(t, "weather [searched oslo,bergen]", r.calls[0].prompt)
	assert.Contains(t, console.String(), "echo: weather")
	assert.Equal(t, 1, store.Saves())
	assert.Equal(t, Done, l.State())
}

func TestRunOnceInstructDoesNotPersist(t *testing.T) {
	store := storage.NewInMemoryStore()
	l := NewLoop(&recordingAugmenter{}, &echoResponder{}, store, NewOutput(io.Discard), LoopConfig{Mode: model.ModeInstruct}, nil)

	require.NoError(t, l.RunOnce(context.Background(), "hi", nil))
	assert.Equal(t, 0, store.Saves())
}

func TestRunOnceReturnsGenerationError(t *testing.T) {
	l := NewLoop(&recordingAugmenter{}, &echoResponder{err: errors.New("down")}, nil, NewOutput(io.Discard), LoopConfig{}, nil)

	assert.Error(t, l.RunOnce(context.Background(), "hi", nil))
}
