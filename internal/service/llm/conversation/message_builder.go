package conversation

import (
	"diagramgen/internal/domain/models"
)

// BuildMessages assembles the provider message sequence:
// the system prompt, then history in order, then the new user turn.
func BuildMessages(systemPrompt string, history []models.ConversationTurn, prompt string) []models.ConversationTurn {
	messages := make([]models.ConversationTurn, 0, len(history)+2)
	messages = append(messages, models.ConversationTurn{Role: models.RoleSystem, Content: systemPrompt})
	messages = append(messages, history...)
	messages = append(messages, models.ConversationTurn{Role: models.RoleUser, Content: prompt})
	return messages
}

// ExtendHistory returns history followed by the user prompt and the accepted
// assistant document. The input slice is never modified.
func ExtendHistory(history []models.ConversationTurn, prompt, document string) []models.ConversationTurn {
	out := make([]models.ConversationTurn, 0, len(history)+2)
	out = append(out, history...)
	out = append(out,
		models.ConversationTurn{Role: models.RoleUser, Content: prompt},
		models.ConversationTurn{Role: models.RoleAssistant, Content: document},
	)
	return out
}
