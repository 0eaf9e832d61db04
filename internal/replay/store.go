package replay

import (
	"context"
	"sync"
	"time"
)

// DefaultTTL bounds how long a spent key is remembered when the payload carries no expiry.
const DefaultTTL = 10 * time.Minute

// Store records spent payload keys so a solved challenge is accepted once.
type Store interface {
	// MarkSpent returns true the first time key is seen within ttl.
	MarkSpent(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// Memory is an in-process Store.
type Memory struct {
	mu    sync.Mutex
	spent map[string]time.Time
	now   func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		spent: make(map[string]time.Time),
		now:   time.Now,
	}
}

func (m *Memory) MarkSpent(_ context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, exp := range m.spent {
		if now.After(exp) {
			delete(m.spent, k)
		}
	}
	if _, ok := m.spent[key]; ok {
		return false, nil
	}
	m.spent[key] = now.Add(ttl)
	return true, nil
}
