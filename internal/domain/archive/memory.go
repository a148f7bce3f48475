package archive

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

type memoryStore struct {
	records     map[string]memoryRecord
	mutex       sync.RWMutex
	ttl         time.Duration
	cleanupFreq time.Duration
	stop        chan struct{}
	stopOnce    sync.Once
}

type memoryRecord struct {
	record    Record
	expiresAt time.Time // zero means never
}

// NewMemory builds an in-memory archive. With a positive TTL a
// background sweep removes stale jobs.
func NewMemory(cfg Config) Store {
	cleanup := 5 * time.Minute
	if cfg.Memory != nil && cfg.Memory.GCInterval > 0 {
		cleanup = cfg.Memory.GCInterval
	}
	s := &memoryStore{
		records:     make(map[string]memoryRecord),
		ttl:         cfg.TTL,
		cleanupFreq: cleanup,
		stop:        make(chan struct{}),
	}
	if s.ttl > 0 {
		go s.gcLoop()
	}
	return s
}

func (s *memoryStore) gcLoop() {
	ticker := time.NewTicker(s.cleanupFreq)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_ = s.CleanupExpired(context.Background())
		case <-s.stop:
			return
		}
	}
}

func (s *memoryStore) Put(_ context.Context, record Record) error {
	if record.SessionID == "" {
		return fmt.Errorf("session id required")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	entry := memoryRecord{record: record}
	if s.ttl > 0 {
		entry.expiresAt = record.CreatedAt.Add(s.ttl)
	}

	s.mutex.Lock()
	s.records[record.SessionID] = entry
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) Get(_ context.Context, sessionID string) (Record, error) {
	s.mutex.RLock()
	entry, ok := s.records[sessionID]
	s.mutex.RUnlock()
	if !ok || entry.expired(time.Now()) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	return entry.record, nil
}

func (s *memoryStore) Delete(_ context.Context, sessionID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.records[sessionID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	delete(s.records, sessionID)
	return nil
}

func (s *memoryStore) List(_ context.Context) ([]Record, error) {
	now := time.Now()
	s.mutex.RLock()
	records := make([]Record, 0, len(s.records))
	for _, entry := range s.records {
		if !entry.expired(now) {
			records = append(records, entry.record)
		}
	}
	s.mutex.RUnlock()

	sort.Slice(records, func(i, j int) bool {
		return records[i].SessionID < records[j].SessionID
	})
	return records, nil
}

func (s *memoryStore) CleanupExpired(_ context.Context) error {
	now := time.Now()
	s.mutex.Lock()
	for id, entry := range s.records {
		if entry.expired(now) {
			delete(s.records, id)
		}
	}
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) Stats(_ context.Context) (map[string]any, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	byStatus := make(map[Status]int)
	for _, entry := range s.records {
		byStatus[entry.record.Status]++
	}
	return map[string]any{
		"type":        "memory",
		"total":       len(s.records),
		"processing":  byStatus[StatusProcessing],
		"completed":   byStatus[StatusCompleted],
		"failed":      byStatus[StatusFailed],
		"ttl_seconds": int(s.ttl.Seconds()),
	}, nil
}

func (s *memoryStore) Close(context.Context) error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}

func (e memoryRecord) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}
