package augment

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/richinex/prompter/internal/trim"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stubFetcher struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]bool
	delay map[string]time.Duration
}

func (s *stubFetcher) Fetch(ctx context.Context, url string) (string, error) {
	if d := s.delay[url]; d > 0 {
		time.Sleep(d)
	}
	s.mu.Lock()
	s.calls = append(s.calls, url)
	s.mu.Unlock()
	if s.fail[url] {
		return "The page " + url + " could not be loaded", errors.New("unreachable")
	}
	return "Content of " + url + ": hello world", nil
}

type stubSearcher struct {
	direct   []string
	detected []string
	intent   bool
}

func (s *stubSearcher) Direct(ctx context.Context, term string) (string, error) {
	s.direct = append(s.direct, term)
	return "\nHere is information about " + term + " found online: stub", nil
}

func (s *stubSearcher) Detect(ctx context.Context, text string) (string, bool, error) {
	s.detected = append(s.detected, text)
	if !s.intent {
		return text, false, nil
	}
	return text + " [searched]", true, nil
}

func TestExtractURLs(t *testing.T) {
	urls := ExtractURLs("compare https://example.com/a?x=1 and HTTP://Example.org/Path please")
	assert.Equal(t, []string{"https://example.com/a?x=1", "HTTP://Example.org/Path"}, urls)
	assert.Empty(t, ExtractURLs("no links here"))
}

func TestExtractSearchMarkers(t *testing.T) {
	assert.Equal(t, []string{"golang", "rust lang"}, ExtractSearchMarkers("(search:golang) vs (search: rust lang ) which?"))
	assert.Empty(t, ExtractSearchMarkers("(search:) nothing"))
}

func TestAssembleExpandsOnlyFirstURL(t *testing.T) {
	f := &stubFetcher{}
	a := New(f, nil, nil, Config{MaxURLs: 1}, nil)

	out, err := a.Assemble(context.Background(), "diff https://one.example and https://two.example")
	require.NoError(t, err)

	assert.Equal(t, []string{"https://one.example"}, f.calls)
	assert.Equal(t, "diff https://one.example and https://two.example\nContent of https://one.example: hello world", out)
}

func TestAssembleKeepsURLOrder(t *testing.T) {
	f := &stubFetcher{delay: map[string]time.Duration{"https://slow.example": 50 * time.Millisecond}}
	a := New(f, nil, nil, Config{MaxURLs: 5}, nil)

	out, err := a.Assemble(context.Background(), "https://slow.example https://fast.example")
	require.NoError(t, err)
	assert.Equal(t, "https://slow.example https://fast.example"+
		"\nContent of https://slow.example: hello world"+
		"\nContent of https://fast.example: hello world", out)
}

func TestAssembleURLsBeatSearchIntent(t *testing.T) {
	s := &stubSearcher{intent: true}
	a := New(&stubFetcher{}, s, nil, Config{MaxURLs: 1}, nil)

	out, err := a.Assemble(context.Background(), "search for the summary of https://example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "hello world")
	assert.Empty(t, s.detected)
}

func TestAssembleMarkerBeatsURLs(t *testing.T) {
	f := &stubFetcher{}
	s := &stubSearcher{}
	a := New(f, s, nil, Config{MaxURLs: 1}, nil)

	out, err := a.Assemble(context.Background(), "(search:go 1.24) what changed since https://go.dev/doc/go1.23")
	require.NoError(t, err)

	assert.Equal(t, []string{"go 1.24"}, s.direct)
	assert.Empty(t, f.calls)
	assert.Equal(t, "what changed since https://go.dev/doc/go1.23\nHere is information about go 1.24 found online: stub", out)
}

func TestAssembleMarkerIgnoredWithoutSearch(t *testing.T) {
	out, err := New(&stubFetcher{}, nil, nil, Config{MaxURLs: 1}, nil).Assemble(context.Background(), "(search:cats) tell me")
	require.NoError(t, err)
	assert.Equal(t, "(search:cats) tell me", out)
}

func TestAssembleFallsBackToDetection(t *testing.T) {
	s := &stubSearcher{intent: true}
	out, err := New(&stubFetcher{}, s, nil, Config{MaxURLs: 1}, nil).Assemble(context.Background(), "search for cats")
	require.NoError(t, err)
	assert.Equal(t, "search for cats [searched]", out)
	assert.Equal(t, []string{"search for cats"}, s.detected)
}

func TestAssembleUnchangedWithoutSearch(t *testing.T) {
	out, err := New(&stubFetcher{}, nil, nil, Config{MaxURLs: 1}, nil).Assemble(context.Background(), "search for cats")
	require.NoError(t, err)
	assert.Equal(t, "search for cats", out)
}

func TestAssembleFetchFailureDegrades(t *testing.T) {
	f := &stubFetcher{fail: map[string]bool{"https://down.example": true}}

	out, err := New(f, nil, nil, Config{MaxURLs: 2}, nil).Assemble(context.Background(), "read https://down.example")
	assert.Error(t, err)
	assert.Equal(t, "read https://down.example\nThe page https://down.example could not be loaded", out)
}

func TestAppendSearches(t *testing.T) {
	s := &stubSearcher{}
	out, err := New(&stubFetcher{}, s, nil, Config{MaxURLs: 1}, nil).AppendSearches(context.Background(), "question", []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, s.direct)
	assert.Equal(t, "question"+
		"\nHere is information about a found online: stub"+
		"\nHere is information about b found online: stub", out)
}

func TestAppendSearchesWithoutSearcher(t *testing.T) {
	out, err := New(&stubFetcher{}, nil, nil, Config{MaxURLs: 1}, nil).AppendSearches(context.Background(), "question", []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, "question", out)
}

// pageFetcher serves the same page text for every URL.
type pageFetcher struct{ text string }

func (p pageFetcher) Fetch(ctx context.Context, url string) (string, error) {
	return p.text, nil
}

// wordTokenizer counts one token per whitespace-separated word.
type wordTokenizer struct{}

func (wordTokenizer) Count(text string) int { return len(strings.Fields(text)) }

func TestAssembleTrimsPagesToTokenBudget(t *testing.T) {
	page := strings.Repeat("lorem ipsum dolor sit amet ", 2000)
	a := New(pageFetcher{text: page}, nil, wordTokenizer{}, Config{MaxURLs: 2, MaxTokens: 300}, nil)

	msg := "compare https://one.example with https://two.example"
	out, err := a.Assemble(context.Background(), msg)
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(out, msg+"\nlorem ipsum"))
	assert.LessOrEqual(t, wordTokenizer{}.Count(strings.TrimPrefix(out, msg)), 300)
}

func TestAssembleKeepsPagesWithinBudget(t *testing.T) {
	a := New(&stubFetcher{}, nil, wordTokenizer{}, Config{MaxURLs: 1, MaxTokens: 300}, nil)

	out, err := a.Assemble(context.Background(), "read https://one.example")
	require.NoError(t, err)
	assert.Equal(t, "read https://one.example\nContent of https://one.example: hello world", out)
}

func TestAssembleTrimsWithRealTokenizer(t *testing.T) {
	tok, err := trim.NewTiktoken("")
	require.NoError(t, err)

	page := strings.Repeat("The forest is quiet at dawn. ", 600)
	a := New(pageFetcher{text: page}, nil, tok, Config{MaxURLs: 1, MaxTokens: 500}, nil)

	msg := "summarise https://long.example"
	out, err := a.Assemble(context.Background(), msg)
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(out, msg))
	assert.LessOrEqual(t, tok.Count(strings.TrimPrefix(out, msg)), 500)
	assert.Greater(t, tok.Count(page), 500)
}
