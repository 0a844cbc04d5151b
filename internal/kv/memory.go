package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strconv"
	"sync"
	"time"
)

// MemoryStore keeps everything in a process-local map. Scalar values
// are stored as their JSON encoding so a Get never aliases memory the
// caller still holds. Counters share the scalar keyspace, as they do
// in Redis.
type MemoryStore struct {
	mu      sync.RWMutex
	scalars map[string][]byte
	lists   map[string][]string
	expiry  map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		scalars: make(map[string][]byte),
		lists:   make(map[string][]string),
		expiry:  make(map[string]time.Time),
	}
}

func (m *MemoryStore) expired(key string) bool {
	exp, ok := m.expiry[key]
	return ok && time.Now().After(exp)
}

func (m *MemoryStore) Get(ctx context.Context, key string, dest any) (bool, error) {
	m.mu.RLock()
	raw, ok := m.scalars[key]
	if ok && m.expired(key) {
		ok = false
	}
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode %q: %w", key, err)
	}
	return true, nil
}

func (m *MemoryStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scalars[key] = raw
	if ttl > 0 {
		m.expiry[key] = time.Now().Add(ttl)
	} else {
		delete(m.expiry, key)
	}
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.scalars, key)
	delete(m.lists, key)
	delete(m.expiry, key)
	return nil
}

func (m *MemoryStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for k := range m.scalars {
		if m.expired(k) {
			continue
		}
		if ok, err := path.Match(pattern, k); err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
		} else if ok {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (m *MemoryStore) ListPush(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists[key] = append([]string{value}, m.lists[key]...)
	return nil
}

func (m *MemoryStore) ListRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.lists[key]
	n := int64(len(list))
	if stop == -1 || stop >= n-1 {
		stop = n - 1
	}
	if start < 0 {
		start = 0
	}
	if start > stop {
		return nil, nil
	}
	out := make([]string, stop-start+1)
	copy(out, list[start:stop+1])
	return out, nil
}

func (m *MemoryStore) Incr(ctx context.Context, key string, amount int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var current int64
	if raw, ok := m.scalars[key]; ok && !m.expired(key) {
		if v, err := strconv.ParseInt(string(raw), 10, 64); err == nil {
			current = v
		}
	} else {
		delete(m.expiry, key)
	}
	current += amount
	m.scalars[key] = []byte(strconv.FormatInt(current, 10))
	return current, nil
}
