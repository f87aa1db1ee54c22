package cli

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/richinex/prompter/config"
	"github.com/richinex/prompter/model"
)

const help = `Type (quit) to exit, (continue) to extend a cut-off answer.
Links in a message are fetched and added to it.`

const searchHelp = `Write (search:term) to add search results for term.`

// Mask replaces every character of secret with '*'.
func Mask(secret string) string {
	return strings.Repeat("*", utf8.RuneCountInString(secret))
}

// Banner describes the session: commands and the effective settings.
func Banner(s config.Settings, printer bool) string {
	var b strings.Builder
	b.WriteString("prompter\n\n")
	b.WriteString(help)
	b.WriteString("\n")
	if s.SearchEnabled() {
		b.WriteString(searchHelp)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	line := func(label, value string) {
		fmt.Fprintf(&b, "%s: %s\n", label, value)
	}

	line("Provider", s.API.Provider)
	if s.API.URL != "" {
		line("API URL", s.API.URL)
	}
	if s.API.APIKey != "" {
		line("API Key", Mask(s.API.APIKey))
	}
	line("Enforce model", yesNo(s.EnforcementEnabled()))
	if s.EnforcementEnabled() {
		line("Model", s.API.Model)
		line("Preset", s.API.Preset)
	}
	line("Streaming", yesNo(s.API.Streaming))
	if s.HistoryEnabled() {
		line("History file", s.History.Path)
	} else {
		line("History file", "not saved")
	}
	line("Mode", string(s.Chat.Mode))
	if s.Chat.InstructTemplate != "" {
		line("Instruct template", s.Chat.InstructTemplate)
	}
	switch s.Chat.Mode {
	case model.ModeChat:
		if s.Chat.Character != "" {
			line("Character", s.Chat.Character)
		}
	case model.ModeInstruct:
		line("System prompt", s.Chat.SystemPrompt)
	}
	if s.SearchEnabled() {
		line("Search URL", s.Search.URL)
		if s.Search.APIKey != "" {
			line("Search API Key", Mask(s.Search.APIKey))
		}
		line("Results per search", fmt.Sprint(s.Search.MaxURLs))
	}
	line("Context token budget", fmt.Sprint(s.Search.MaxTokens))
	if printer {
		line("Printer", "on")
	}
	return b.String()
}

func yesNo(b bool) string {
	if b {
		return "y"
	}
	return "n"
}
