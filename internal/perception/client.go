// Package perception is the LLM transport boundary. The engine depends only
// on the LLMClient interface; concrete clients (OpenAI-compatible, Gemini)
// live here and the rest of the system never sees provider details.
package perception

import "context"

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single chat message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Usage reports provider-side token accounting for one call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// ChatResponse is the accumulated result of one chat call.
type ChatResponse struct {
	Content string
	Usage   *Usage // nil when the provider reported nothing
}

// TokenCallback receives incremental content deltas as they stream in.
type TokenCallback func(delta string)

// LLMClient is the chat interface the engine consumes.
//
// Implementations must invoke onToken (when non-nil) incrementally as text
// is produced and must honor ctx cancellation by aborting the transport.
type LLMClient interface {
	Chat(ctx context.Context, messages []Message, onToken TokenCallback) (*ChatResponse, error)
}

// SystemUser is a convenience constructor for the common two-message prompt.
func SystemUser(system, user string) []Message {
	msgs := make([]Message, 0, 2)
	if system != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: system})
	}
	msgs = append(msgs, Message{Role: RoleUser, Content: user})
	return msgs
}
