package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/richinex/prompter/model"
)

// FileConfig is the TOML config file. Absent keys leave lower precedence
// values untouched.
//
//	provider = "openai"
//	url = "http://localhost:5000/v1"
//	mode = "chat"
//	streaming = true
//
//	[search]
//	url = "http://localhost:8888/search"
//	max_urls = 3
type FileConfig struct {
	Provider         *string `toml:"provider"`
	URL              *string `toml:"url"`
	APIKey           *string `toml:"api_key"`
	Model            *string `toml:"model"`
	Preset           *string `toml:"preset"`
	EnforceModel     *bool   `toml:"enforce_model"`
	Streaming        *bool   `toml:"streaming"`
	Mode             *string `toml:"mode"`
	InstructTemplate *string `toml:"instruct_template"`
	Character        *string `toml:"character"`
	SystemPrompt     *string `toml:"system"`

	Search struct {
		URL       *string `toml:"url"`
		APIKey    *string `toml:"api_key"`
		MaxURLs   *int    `toml:"max_urls"`
		MaxTokens *int    `toml:"max_tokens"`
		MaxWords  *int    `toml:"max_words"`
	} `toml:"search"`

	History struct {
		Path    *string `toml:"path"`
		Session *string `toml:"session"`
	} `toml:"history"`

	Output struct {
		Printer     *bool   `toml:"printer"`
		PrinterPath *string `toml:"printer_path"`
		Markdown    *bool   `toml:"markdown"`
	} `toml:"output"`
}

// DefaultPath returns $XDG_CONFIG_HOME/prompter/config.toml (or the
// platform equivalent), or "" when no config directory is known.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		var err error
		if dir, err = os.UserConfigDir(); err != nil {
			return ""
		}
	}
	return filepath.Join(dir, "prompter", "config.toml")
}

// LoadFile parses the TOML file at path. A missing file yields an error
// satisfying os.IsNotExist.
func LoadFile(path string) (FileConfig, error) {
	var fc FileConfig
	md, err := toml.DecodeFile(path, &fc)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, err
		}
		return FileConfig{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("config file %s: unknown key %q", path, undecoded[0].String())
	}
	return fc, nil
}

func (fc FileConfig) apply(s *Settings) error {
	if fc.Provider != nil {
		s.API.Provider = normalizeProvider(*fc.Provider)
	}
	if fc.Mode != nil {
		mode, err := model.ParseMode(*fc.Mode)
		if err != nil {
			return err
		}
		s.Chat.Mode = mode
	}
	override(&s.API.URL, fc.URL)
	override(&s.API.APIKey, fc.APIKey)
	override(&s.API.Model, fc.Model)
	override(&s.API.Preset, fc.Preset)
	override(&s.API.EnforceModel, fc.EnforceModel)
	override(&s.API.Streaming, fc.Streaming)
	override(&s.Chat.InstructTemplate, fc.InstructTemplate)
	override(&s.Chat.Character, fc.Character)
	override(&s.Chat.SystemPrompt, fc.SystemPrompt)
	override(&s.Search.URL, fc.Search.URL)
	override(&s.Search.APIKey, fc.Search.APIKey)
	override(&s.Search.MaxURLs, fc.Search.MaxURLs)
	override(&s.Search.MaxTokens, fc.Search.MaxTokens)
	override(&s.Search.MaxWords, fc.Search.MaxWords)
	override(&s.History.Path, fc.History.Path)
	override(&s.History.Session, fc.History.Session)
	override(&s.Output.Printer, fc.Output.Printer)
	override(&s.Output.PrinterPath, fc.Output.PrinterPath)
	override(&s.Output.Markdown, fc.Output.Markdown)
	return nil
}
