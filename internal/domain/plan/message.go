package plan

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// ConversationMessage is read-only input from the conversation subsystem.
// The engine always receives the full ordered list and never mutates it.
type ConversationMessage struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}
