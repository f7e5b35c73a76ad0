package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is a process-local Store. It backs the widget when the SQLite
// file cannot be opened, so state lives only for the session.
type MemoryStore struct {
	mu      sync.RWMutex
	values  map[string]string
	firings []Firing
	nextID  int64
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *MemoryStore) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for k := range m.values {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryStore) RecordFiring(_ context.Context, firing *Firing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if firing.Timestamp.IsZero() {
		firing.Timestamp = time.Now()
	}
	m.nextID++
	firing.ID = m.nextID
	m.firings = append(m.firings, *firing)
	return nil
}

func (m *MemoryStore) RecentFirings(_ context.Context, since time.Time, limit int) ([]Firing, error) {
	if limit <= 0 {
		limit = 50
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Firing
	for _, f := range m.firings {
		if !since.IsZero() && f.Timestamp.Before(since) {
			continue
		}
		out = append(out, f)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID > out[j].ID
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) PruneFirings(_ context.Context, olderThan time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.firings[:0]
	var removed int64
	for _, f := range m.firings {
		if f.Timestamp.Before(olderThan) {
			removed++
			continue
		}
		kept = append(kept, f)
	}
	m.firings = kept
	return removed, nil
}

func (m *MemoryStore) Purge(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.values {
		if strings.HasPrefix(k, prefix) {
			delete(m.values, k)
		}
	}
	return nil
}

func (m *MemoryStore) ClearFirings(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.firings))
	m.firings = nil
	return n, nil
}

func (m *MemoryStore) Stats(_ context.Context, prefix string) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := &Stats{TotalFirings: int64(len(m.firings))}
	for k := range m.values {
		if strings.HasPrefix(k, prefix) {
			stats.TotalKeys++
		}
	}
	for _, f := range m.firings {
		if f.Timestamp.After(stats.LastFiring) {
			stats.LastFiring = f.Timestamp
		}
	}
	return stats, nil
}

func (m *MemoryStore) Close() error { return nil }
