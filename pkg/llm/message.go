package llm

// Message is one prior exchange passed to a Client as conversation history.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// NewTextMessage creates a message with the given role and content.
func NewTextMessage(role, text string) Message {
	return Message{
		Role:    role,
		Content: text,
	}
}
