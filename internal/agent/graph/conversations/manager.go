package conversations

import (
	"strings"

	"github.com/echolag-barista/server/internal/agent/model"
)

// MessagesManager renders the client-held history into prompt text. It holds
// no conversation state of its own.
type MessagesManager struct {
	maxHistoryTurns int
}

func NewMessagesManager(config model.ConversationConfig) *MessagesManager {
	return &MessagesManager{
		maxHistoryTurns: config.MaxHistoryTurns,
	}
}

// =========== Dialogue ===========

// BuildDialogueContext renders prior turns as "speaker: content" lines.
func (mm *MessagesManager) BuildDialogueContext(history []model.ConversationTurn, persona model.Persona) string {
	recent := trimTail(history, mm.maxHistoryTurns)

	var b strings.Builder
	for _, turn := range recent {
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(persona.Speaker(turn.Role))
		b.WriteString(": ")
		b.WriteString(content)
	}
	return b.String()
}

// =========== Extractor ===========

// BuildTranscript is the dialogue context followed by the latest learner line.
func (mm *MessagesManager) BuildTranscript(history []model.ConversationTurn, persona model.Persona, userMessage string) string {
	transcript := mm.BuildDialogueContext(history, persona)
	latest := persona.Speaker(model.RoleUser) + ": " + strings.TrimSpace(userMessage)
	if transcript == "" {
		return latest
	}
	return transcript + "\n" + latest
}

// ====================== Helper function ======================
// trimTail keeps the last maxTurns entries; maxTurns <= 0 keeps everything.
func trimTail(turns []model.ConversationTurn, maxTurns int) []model.ConversationTurn {
	if maxTurns <= 0 || len(turns) <= maxTurns {
		return turns
	}
	return turns[len(turns)-maxTurns:]
}
