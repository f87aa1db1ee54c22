package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinex/prompter/config"
	"github.com/richinex/prompter/model"
)

func TestOutputMirrorsToPrinter(t *testing.T) {
	device := filepath.Join(t.TempDir(), "printer")
	require.NoError(t, os.WriteFile(device, nil, 0644))

	var console bytes.Buffer
	out := NewOutput(&console, WithPrinter(device))
	require.True(t, out.PrinterEnabled())

	out.Record("> question")
	out.Delta("partial")
	out.Answer("full answer")
	out.Notice("console only")

	printed, err := os.ReadFile(device)
	require.NoError(t, err)
	assert.Equal(t, "> question\nfull answer\n", string(printed))
	assert.Equal(t, "partialfull answer\nconsole only\n", console.String())
}

func TestOutputIgnoresMissingPrinter(t *testing.T) {
	device := filepath.Join(t.TempDir(), "absent")
	out := NewOutput(&bytes.Buffer{}, WithPrinter(device))

	assert.False(t, out.PrinterEnabled())
	out.Print("hello")
	_, err := os.Stat(device)
	assert.True(t, os.IsNotExist(err))
}

func TestOutputRendersMarkdown(t *testing.T) {
	var console bytes.Buffer
	out := NewOutput(&console, WithMarkdown(80))

	out.Answer("# Title\n\nSome **bold** text")
	assert.Contains(t, console.String(), "Title")
	assert.Contains(t, console.String(), "bold")
}

func TestBannerMasksSecrets(t *testing.T) {
	s := config.Defaults()
	s.API.APIKey = "sk-secret"
	s.Search.URL = "http://searx.local/search"
	s.Search.APIKey = "tok"
	s.Chat.Mode = model.ModeChat
	s.Chat.Character = "Helper"

	banner := Banner(s, false)
	assert.Contains(t, banner, "API Key: *********")
	assert.Contains(t, banner, "Search API Key: ***")
	assert.NotContains(t, banner, "sk-secret")
	assert.Contains(t, banner, "(search:term)")
	assert.Contains(t, banner, "Character: Helper")
	assert.Contains(t, banner, "History file: not saved")
}

func TestMask(t *testing.T) {
	assert.Equal(t, "", Mask(""))
	assert.Equal(t, "***", Mask("äbc"))
}
