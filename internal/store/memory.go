package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/MikeSquared-Agency/lazyswap/internal/conversation"
)

// Memory is the default backend. States are held encoded so callers never
// share slices with the map.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memEntry
}

type memEntry struct {
	raw     []byte
	updated time.Time
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memEntry)}
}

func (m *Memory) Load(_ context.Context, id string) (conversation.State, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[id]
	m.mu.RUnlock()
	if !ok {
		return conversation.State{}, false, nil
	}
	var st conversation.State
	if err := json.Unmarshal(e.raw, &st); err != nil {
		return conversation.State{}, false, fmt.Errorf("decode conversation: %w: %w", conversation.ErrCorruptState, err)
	}
	return st, true, nil
}

func (m *Memory) Save(_ context.Context, st conversation.State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode conversation: %w", err)
	}
	updated := st.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	m.mu.Lock()
	m.entries[st.ID] = memEntry{raw: raw, updated: updated}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.entries, id)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Purge(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, e := range m.entries {
		if e.updated.Before(before) {
			delete(m.entries, id)
			n++
		}
	}
	return n, nil
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *Memory) Close() error { return nil }
