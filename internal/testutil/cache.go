package testutil

import (
	"context"
	"path"
	"sort"
	"sync"
	"time"
)

// MemoryCache is an in-process stand-in for the redis cache.
// SubmitTask runs the task inline so tests observe its effects.
type MemoryCache struct {
	mu      sync.Mutex
	strings map[string]string
	zsets   map[string]map[string]float64
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		strings: make(map[string]string),
		zsets:   make(map[string]map[string]float64),
	}
}

func (m *MemoryCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.strings[key] = value
	return nil
}

func (m *MemoryCache) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.strings[key], nil
}

func (m *MemoryCache) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.strings, k)
		delete(m.zsets, k)
	}
	return nil
}

func (m *MemoryCache) DeleteByPattern(_ context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.strings {
		if ok, _ := path.Match(pattern, k); ok {
			delete(m.strings, k)
		}
	}
	return nil
}

func (m *MemoryCache) ZAdd(_ context.Context, key, member string, score float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.zsets[key] == nil {
		m.zsets[key] = make(map[string]float64)
	}
	m.zsets[key][member] = score
	return nil
}

func (m *MemoryCache) ZRangeByMaxScore(_ context.Context, key string, max float64, limit int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for member, score := range m.zsets[key] {
		if score <= max {
			out = append(out, member)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return m.zsets[key][out[i]] < m.zsets[key][out[j]]
	})
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryCache) ZRem(_ context.Context, key string, members ...string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, member := range members {
		if _, ok := m.zsets[key][member]; ok {
			delete(m.zsets[key], member)
			n++
		}
	}
	return n, nil
}

func (m *MemoryCache) SubmitTask(action func()) {
	action()
}

// Len reports how many string keys are stored.
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.strings)
}
