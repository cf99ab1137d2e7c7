package repo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decision-mate/server/internal/agent/condition"
	"github.com/decision-mate/server/internal/agent/model"
	redispkg "github.com/decision-mate/server/pkg/redis"
)

// exerciseRepository runs the shared contract against any implementation.
func exerciseRepository(t *testing.T, r model.SessionRepository) {
	t.Helper()
	ctx := context.Background()
	id := uuid.NewString()

	s, err := r.LoadSession(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, s, "missing session is (nil, nil)")

	h, err := r.LoadHistory(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, h.Messages)

	c := condition.New()
	condition.SetLocation(&c, "홍대")
	session := &model.Session{
		ID:          id,
		Condition:   c,
		Pending:     &model.PendingQuestion{Scope: model.ScopeCommon, Key: model.KeyCannotEat, Type: model.AnswerListOrNone},
		LastPickIDs: []string{"1", "2", "3"},
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, r.SaveSession(ctx, session))

	// mutating the caller's copy must not leak into the store
	session.LastPickIDs[0] = "changed"

	got, err := r.LoadSession(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "홍대", got.Condition.LocationText())
	assert.Equal(t, model.KeyCannotEat, got.Pending.Key)
	assert.Equal(t, []string{"1", "2", "3"}, got.LastPickIDs)

	require.NoError(t, r.AddMessage(ctx, id, schema.UserMessage("홍대")))
	require.NoError(t, r.AddMessage(ctx, id, schema.AssistantMessage("못 먹는 거 있어?", nil)))
	h, err = r.LoadHistory(ctx, id)
	require.NoError(t, err)
	require.Len(t, h.Messages, 2)
	assert.Equal(t, schema.User, h.Messages[0].Role)
	assert.Equal(t, "못 먹는 거 있어?", h.Messages[1].Content)

	require.NoError(t, r.DeleteSession(ctx, id))
	s, err = r.LoadSession(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, s)
	h, err = r.LoadHistory(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, h.Messages)
}

func TestMemorySessionRepository(t *testing.T) {
	exerciseRepository(t, NewMemorySessionRepository(16, time.Minute))
}

func TestMemorySessionRepositoryEvictsLeastRecent(t *testing.T) {
	ctx := context.Background()
	r := NewMemorySessionRepository(2, time.Minute)
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, r.SaveSession(ctx, &model.Session{ID: id, Condition: condition.New()}))
	}
	s, err := r.LoadSession(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, s)
	s, err = r.LoadSession(ctx, "c")
	require.NoError(t, err)
	assert.NotNil(t, s)
}

// TestRedisSessionRepository needs a live server: set REDIS_TEST_URL.
func TestRedisSessionRepository(t *testing.T) {
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	cfg := redispkg.Config{URL: url, ReadTimeout: 3, WriteTimeout: 3, DialTimeout: 5}
	client, err := cfg.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	exerciseRepository(t, NewRedisSessionRepository(client, time.Minute))
}
