package session

import (
	"context"
	"sync"
)

type memoryStore struct {
	mu      sync.Mutex
	pending map[int64]string
}

// NewMemoryStore returns a process-local Store. Associations are lost on restart.
func NewMemoryStore() Store {
	return &memoryStore{pending: make(map[int64]string)}
}

func (m *memoryStore) SetPendingGroup(ctx context.Context, chatID int64, groupID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[chatID] = groupID
	return nil
}

func (m *memoryStore) TakePendingGroup(ctx context.Context, chatID int64) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	groupID, ok := m.pending[chatID]
	if ok {
		delete(m.pending, chatID)
	}
	return groupID, ok, nil
}

func (m *memoryStore) Close() error { return nil }
