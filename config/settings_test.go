package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/richinex/prompter/model"
)

var envKeys = []string{
	"OPENAI_API_BASE", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "DEEPSEEK_API_KEY", "GEMINI_API_KEY",
	"PROMPTER_PROVIDER", "PROMPTER_MODEL", "PROMPTER_MODE", "PROMPTER_PRESET",
	"PROMPTER_INSTRUCT_TEMPLATE", "PROMPTER_CHARACTER", "PROMPTER_SYSTEM",
	"PROMPTER_ENFORCE_MODEL", "PROMPTER_STREAMING", "PROMPTER_HISTORY", "PROMPTER_SESSION",
	"PROMPTER_SEARX_URL", "PROMPTER_SEARX_API_KEY", "PROMPTER_MAX_URLS", "PROMPTER_MAX_TOKENS",
	"PROMPTER_MAX_WORDS", "PROMPTER_PRINTER",
}

// cleanEnv isolates a test from the developer's environment and config file.
func cleanEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func ptr[T any](v T) *T { return &v }

func TestNewDefaults(t *testing.T) {
	cleanEnv(t)

	s, err := New(Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.API.URL != DefaultURL {
		t.Errorf("expected default URL, got %q", s.API.URL)
	}
	if s.Chat.Mode != model.ModeInstruct {
		t.Errorf("expected instruct mode, got %q", s.Chat.Mode)
	}
	if s.Search.MaxURLs != 1 || s.Search.MaxTokens != 15000 {
		t.Errorf("unexpected search defaults: %+v", s.Search)
	}
	if s.SearchEnabled() || s.HistoryEnabled() || s.EnforcementEnabled() {
		t.Error("search, history and enforcement must be off by default")
	}
	if s.History.Session != DefaultSession {
		t.Errorf("expected default session, got %q", s.History.Session)
	}
}

func TestNewReadsEnvironment(t *testing.T) {
	cleanEnv(t)
	t.Setenv("OPENAI_API_BASE", "http://localhost:5000/v1/")
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("PROMPTER_MODE", "Chat")
	t.Setenv("PROMPTER_STREAMING", "y")
	t.Setenv("PROMPTER_ENFORCE_MODEL", "yes")
	t.Setenv("PROMPTER_MODEL", "mistral")
	t.Setenv("PROMPTER_SEARX_URL", "http://searx.local/search")
	t.Setenv("PROMPTER_MAX_URLS", "3")
	t.Setenv("PROMPTER_HISTORY", "n")

	s, err := New(Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.API.URL != "http://localhost:5000/v1" {
		t.Errorf("expected trimmed URL, got %q", s.API.URL)
	}
	if s.API.APIKey != "sk-env" {
		t.Errorf("expected env key, got %q", s.API.APIKey)
	}
	if s.Chat.Mode != model.ModeChat || !s.API.Streaming || !s.EnforcementEnabled() {
		t.Errorf("unexpected settings: %+v", s)
	}
	if !s.SearchEnabled() || s.Search.MaxURLs != 3 {
		t.Errorf("unexpected search settings: %+v", s.Search)
	}
	if s.HistoryEnabled() {
		t.Error("history sentinel n must disable persistence")
	}
}

func TestNewWithInvalidEnvVar(t *testing.T) {
	cleanEnv(t)
	t.Setenv("PROMPTER_MAX_TOKENS", "not-a-number")

	_, err := New(Options{})
	if err == nil {
		t.Fatal("expected error for invalid PROMPTER_MAX_TOKENS")
	}
	if !strings.Contains(err.Error(), "PROMPTER_MAX_TOKENS") {
		t.Errorf("error should name the variable: %v", err)
	}
}

func TestNewRejectsOutOfRange(t *testing.T) {
	cleanEnv(t)

	if _, err := New(Options{MaxURLs: ptr(11)}); err == nil {
		t.Error("expected error for max urls above 10")
	}
	if _, err := New(Options{MaxTokens: ptr(200000)}); err == nil {
		t.Error("expected error for max tokens above 199999")
	}
	if _, err := New(Options{Mode: ptr("completion")}); err == nil {
		t.Error("completion mode must not be selectable")
	}
	if _, err := New(Options{Provider: ptr("unknown_provider")}); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestPrecedenceFileEnvFlags(t *testing.T) {
	cleanEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
preset = "from-file"
model = "file-model"
streaming = true

[search]
url = "http://file-searx/search"
max_urls = 4

[history]
path = "/tmp/file-history.json"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	t.Setenv("PROMPTER_MODEL", "env-model")
	t.Setenv("PROMPTER_MAX_URLS", "5")

	s, err := New(Options{ConfigFile: path, MaxURLs: ptr(6), Streaming: ptr(false)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.API.Preset != "from-file" {
		t.Errorf("file should override default preset, got %q", s.API.Preset)
	}
	if s.API.Model != "env-model" {
		t.Errorf("env should override file model, got %q", s.API.Model)
	}
	if s.Search.MaxURLs != 6 {
		t.Errorf("flag should override env max urls, got %d", s.Search.MaxURLs)
	}
	if s.API.Streaming {
		t.Error("flag should override file streaming")
	}
	if s.Search.URL != "http://file-searx/search" || s.History.Path != "/tmp/file-history.json" {
		t.Errorf("file values lost: %+v %+v", s.Search, s.History)
	}
}

func TestExplicitConfigFileMustExist(t *testing.T) {
	cleanEnv(t)

	_, err := New(Options{ConfigFile: filepath.Join(t.TempDir(), "missing.toml")})
	if err == nil {
		t.Error("expected error for a missing explicit config file")
	}
}

func TestLoadFileRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("temprature = 0.3\n"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if _, err := LoadFile(path); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestProviderAPIKeyAndAlias(t *testing.T) {
	cleanEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")

	s, err := New(Options{Provider: ptr("claude")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.API.Provider != "anthropic" {
		t.Errorf("expected provider 'anthropic' (normalized from 'claude'), got %q", s.API.Provider)
	}
	if s.API.APIKey != "sk-ant" {
		t.Errorf("expected anthropic key, got %q", s.API.APIKey)
	}
	if s.API.URL != "" {
		t.Errorf("hosted providers should use their own endpoint, got %q", s.API.URL)
	}

	s, err = New(Options{APIKey: ptr("sk-flag")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.API.APIKey != "sk-flag" {
		t.Errorf("flag key should win, got %q", s.API.APIKey)
	}
}

func TestParseBool(t *testing.T) {
	for _, v := range []string{"y", "YES", "true", "1"} {
		if b, err := ParseBool(v); err != nil || !b {
			t.Errorf("ParseBool(%q) = %v, %v", v, b, err)
		}
	}
	for _, v := range []string{"n", "No", "false", "0"} {
		if b, err := ParseBool(v); err != nil || b {
			t.Errorf("ParseBool(%q) = %v, %v", v, b, err)
		}
	}
	if _, err := ParseBool("maybe"); err == nil {
		t.Error("expected error for maybe")
	}
}
