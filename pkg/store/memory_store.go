package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is a minimal in-memory Store implementation intended for tests
// and examples.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]memoryRecord
	now     func() time.Time
}

type memoryRecord struct {
	data []byte
	meta Meta
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]memoryRecord{}, now: time.Now}
}

func (s *MemoryStore) Load(_ context.Context, path string) ([]byte, Meta, bool, error) {
	s.mu.RLock()
	record, ok := s.records[Key(path)]
	s.mu.RUnlock()
	if !ok {
		return nil, Meta{}, false, nil
	}
	return append([]byte(nil), record.data...), cloneMeta(record.meta), true, nil
}

// Save stores data under path. A non-empty meta.ETag must match the stored
// document's ETag; the returned Meta carries the new one.
func (s *MemoryStore) Save(_ context.Context, path string, data []byte, meta Meta) (Meta, error) {
	key := Key(path)

	s.mu.Lock()
	defer s.mu.Unlock()
	current, exists := s.records[key]
	if exists {
		if err := checkETag(meta.ETag, current.meta.ETag); err != nil {
			return cloneMeta(current.meta), err
		}
	}
	saved := mergeMeta(current.meta, meta)
	saved.ETag = ETag(data)
	if meta.UpdatedAt.IsZero() {
		saved.UpdatedAt = s.now().UTC()
	}
	s.records[key] = memoryRecord{data: append([]byte(nil), data...), meta: cloneMeta(saved)}
	return cloneMeta(saved), nil
}

// Put seeds path with data, ignoring any stored ETag.
func (s *MemoryStore) Put(path string, data []byte) Meta {
	meta, _ := s.Save(context.Background(), path, data, Meta{})
	return meta
}

// Keys returns the stored document keys sorted alphabetically.
func (s *MemoryStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.records))
	for key := range s.records {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
