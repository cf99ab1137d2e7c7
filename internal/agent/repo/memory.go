package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/decision-mate/server/internal/agent/model"
)

type memoryEntry struct {
	state    []byte
	messages []*schema.Message
}

// MemorySessionRepository keeps sessions in a bounded, expiring LRU. It is
// used when no Redis URL is configured. Snapshots are stored serialized so
// callers never share memory with the store.
type MemorySessionRepository struct {
	mu    sync.Mutex
	cache *expirable.LRU[string, *memoryEntry]
}

func NewMemorySessionRepository(size int, ttl time.Duration) *MemorySessionRepository {
	if size <= 0 {
		size = 1024
	}
	return &MemorySessionRepository{cache: expirable.NewLRU[string, *memoryEntry](size, nil, ttl)}
}

func (r *MemorySessionRepository) entry(sessionID string) *memoryEntry {
	e, ok := r.cache.Get(sessionID)
	if !ok {
		e = &memoryEntry{}
		r.cache.Add(sessionID, e)
	}
	return e
}

func (r *MemorySessionRepository) LoadSession(_ context.Context, sessionID string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.cache.Get(sessionID)
	if !ok || e.state == nil {
		return nil, nil
	}
	var s model.Session
	if err := json.Unmarshal(e.state, &s); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &s, nil
}

func (r *MemorySessionRepository) SaveSession(_ context.Context, session *model.Session) error {
	b, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entry(session.ID)
	e.state = b
	r.cache.Add(session.ID, e)
	return nil
}

func (r *MemorySessionRepository) DeleteSession(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Remove(sessionID)
	return nil
}

func (r *MemorySessionRepository) AddMessage(_ context.Context, sessionID string, message *schema.Message) error {
	if message == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entry(sessionID)
	m := *message
	e.messages = append(e.messages, &m)
	r.cache.Add(sessionID, e)
	return nil
}

func (r *MemorySessionRepository) LoadHistory(_ context.Context, sessionID string) (*model.ConversationHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := []*schema.Message{}
	if e, ok := r.cache.Get(sessionID); ok {
		for _, m := range e.messages {
			cp := *m
			msgs = append(msgs, &cp)
		}
	}
	return &model.ConversationHistory{SessionID: sessionID, Messages: msgs}, nil
}

var _ model.SessionRepository = (*MemorySessionRepository)(nil)
