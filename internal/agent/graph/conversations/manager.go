package conversations

import (
	"context"
	"strings"

	"github.com/decision-mate/server/internal/agent/model"

	"github.com/cloudwego/eino/schema"
)

type MessagesManager struct {
	sessionRepo   model.SessionRepository
	patchMaxTurns int
}

func NewMessagesManager(sessionRepo model.SessionRepository, config model.SessionConfig) *MessagesManager {
	maxTurns := config.Patch.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 6
	}
	return &MessagesManager{
		sessionRepo:   sessionRepo,
		patchMaxTurns: maxTurns,
	}
}

// =========== Function for patch extraction ===========

// BuildPatchContext renders the recent transcript plus the not yet persisted
// user message in the tagged form the patch prompt expects.
func (cm *MessagesManager) BuildPatchContext(ctx context.Context, sessionID string, text string) (string, error) {
	history, err := cm.sessionRepo.LoadHistory(ctx, sessionID)
	if err != nil {
		return "", err
	}

	var fullContext strings.Builder
	fullContext.WriteString(cm.buildPatchHistory(history.Messages))
	fullContext.WriteString("\n<current_message_to_analyze>\n")
	fullContext.WriteString("UserMessage(" + text + ")\n")
	fullContext.WriteString("</current_message_to_analyze>")

	return fullContext.String(), nil
}

func (cm *MessagesManager) buildPatchHistory(messages []*schema.Message) string {
	recentMessages := trimTail(messages, cm.patchMaxTurns)

	var contextBuilder strings.Builder
	contextBuilder.WriteString("<conversation_context>\n")

	for _, msg := range recentMessages {
		if msg == nil || msg.Content == "" {
			continue
		}
		switch msg.Role {
		case schema.User:
			contextBuilder.WriteString("UserMessage(" + msg.Content + ")\n")
		case schema.Assistant:
			contextBuilder.WriteString("AssistantMessage(" + msg.Content + ")\n")
		}
	}

	contextBuilder.WriteString("</conversation_context>")
	return contextBuilder.String()
}

// SaveTurn appends one user/assistant exchange to the transcript.
func (cm *MessagesManager) SaveTurn(ctx context.Context, sessionID string, userText string, assistantText string) error {
	if err := cm.sessionRepo.AddMessage(ctx, sessionID, schema.UserMessage(userText)); err != nil {
		return err
	}
	if assistantText == "" {
		return nil
	}
	return cm.sessionRepo.AddMessage(ctx, sessionID, schema.AssistantMessage(assistantText, nil))
}

// ====================== Helper function ======================
func trimTail(messages []*schema.Message, maxTurns int) []*schema.Message {
	if len(messages) <= maxTurns {
		result := make([]*schema.Message, len(messages))
		copy(result, messages)
		return result
	}
	source := messages[len(messages)-maxTurns:]
	result := make([]*schema.Message, len(source))
	copy(result, source)
	return result
}
