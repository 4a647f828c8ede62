package entity

type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is one entry of the conversation state: the system prompt, the
// task, a rendered observation, a serialized decision, or a recovery note.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}
