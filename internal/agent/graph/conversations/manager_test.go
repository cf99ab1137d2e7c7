package conversations

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decision-mate/server/internal/agent/model"
	"github.com/decision-mate/server/internal/agent/repo"
)

func newManager(maxTurns int) (*MessagesManager, model.SessionRepository) {
	r := repo.NewMemorySessionRepository(8, time.Minute)
	var cfg model.SessionConfig
	cfg.Patch.MaxTurns = maxTurns
	return NewMessagesManager(r, cfg), r
}

func TestBuildPatchContextEmptyHistory(t *testing.T) {
	m, _ := newManager(4)
	got, err := m.BuildPatchContext(context.Background(), "s1", "홍대")
	require.NoError(t, err)
	assert.Equal(t,
		"<conversation_context>\n</conversation_context>\n<current_message_to_analyze>\nUserMessage(홍대)\n</current_message_to_analyze>",
		got)
}

func TestBuildPatchContextKeepsRecentTurns(t *testing.T) {
	m, _ := newManager(2)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, m.SaveTurn(ctx, "s1", fmt.Sprintf("u%d", i), fmt.Sprintf("a%d", i)))
	}

	got, err := m.BuildPatchContext(ctx, "s1", "now")
	require.NoError(t, err)
	assert.NotContains(t, got, "UserMessage(u1)")
	assert.Contains(t, got, "UserMessage(u2)\nAssistantMessage(a2)\n</conversation_context>")
	assert.Contains(t, got, "<current_message_to_analyze>\nUserMessage(now)")
}

func TestSaveTurnSkipsEmptyAssistant(t *testing.T) {
	m, r := newManager(4)
	ctx := context.Background()
	require.NoError(t, m.SaveTurn(ctx, "s1", "hi", ""))

	h, err := r.LoadHistory(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, h.Messages, 1)
	assert.Equal(t, schema.User, h.Messages[0].Role)
}

func TestTrimTail(t *testing.T) {
	msgs := []*schema.Message{schema.UserMessage("a"), schema.UserMessage("b"), schema.UserMessage("c")}
	assert.Len(t, trimTail(msgs, 5), 3)
	out := trimTail(msgs, 2)
	require.Len(t, out, 2)
	assert.Equal(t, "b", out[0].Content)
}
