// Package llm provides shared data models for LLM providers.
package llm

import "github.com/richinex/prompter/model"

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage represents a chat message with role and content.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SystemMessage creates a system message.
func SystemMessage(content string) ChatMessage {
	return ChatMessage{
		Role:    RoleSystem,
		Content: content,
	}
}

// UserMessage creates a user message.
func UserMessage(content string) ChatMessage {
	return ChatMessage{
		Role:    RoleUser,
		Content: content,
	}
}

// AssistantMessage creates an assistant message.
func AssistantMessage(content string) ChatMessage {
	return ChatMessage{
		Role:    RoleAssistant,
		Content: content,
	}
}

// HistoryMessages expands turns into alternating user/assistant messages.
func HistoryMessages(h model.History) []ChatMessage {
	out := make([]ChatMessage, 0, 2*len(h))
	for _, t := range h {
		out = append(out, UserMessage(t.Question), AssistantMessage(t.Answer))
	}
	return out
}

// Extras are the non-standard body fields understood by
// text-generation-webui style endpoints. Empty fields are not sent.
type Extras struct {
	Mode                string
	Character           string
	InstructionTemplate string
}

// Fields returns the non-empty extras keyed by their JSON body name.
func (e Extras) Fields() map[string]string {
	fields := make(map[string]string, 3)
	if e.Mode != "" {
		fields["mode"] = e.Mode
	}
	if e.Character != "" {
		fields["character"] = e.Character
	}
	if e.InstructionTemplate != "" {
		fields["instruction_template"] = e.InstructionTemplate
	}
	return fields
}

// Request is one generation request.
type Request struct {
	Mode model.Mode
	// Messages is used by chat and instruct modes.
	Messages []ChatMessage
	// Prompt is used by completion mode.
	Prompt    string
	MaxTokens int
	Extras    Extras
}

// Response represents a response from an LLM provider.
type Response struct {
	Content string
	Usage   *TokenUsage
}

// TokenUsage contains token usage statistics.
type TokenUsage struct {
	PromptTokens     uint32
	CompletionTokens uint32
	TotalTokens      uint32
}
