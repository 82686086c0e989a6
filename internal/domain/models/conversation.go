package models

// Conversation roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationTurn is a single message of a conversation.
type ConversationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
