package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type dedupRecord struct {
	hash      string
	expiresAt time.Time
}

// DedupStore caches, per subscription, the content hash of the most recently
// alerted disruption set. Records live at most until the subscription's
// active window ends, so the next window starts with a clean slate and
// unchanged disruptions do not re-trigger alerts every polling cycle.
type DedupStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]dedupRecord
	now     func() time.Time
}

// NewDedupStore creates a new DedupStore
func NewDedupStore() *DedupStore {
	return &DedupStore{
		records: make(map[uuid.UUID]dedupRecord),
		now:     time.Now,
	}
}

// Get returns the stored hash for a subscription if the record has not
// expired
func (s *DedupStore) Get(subscriptionID uuid.UUID) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[subscriptionID]
	if !ok || s.now().After(record.expiresAt) {
		return "", false
	}
	return record.hash, true
}

// Set stores a subscription's hash with the given TTL. A non-positive TTL is
// a no-op: the window is already over and there is nothing left to suppress.
func (s *DedupStore) Set(subscriptionID uuid.UUID, hash string, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[subscriptionID] = dedupRecord{hash: hash, expiresAt: s.now().Add(ttl)}
}

// Purge drops expired records. Called opportunistically; Get already ignores
// expired entries.
func (s *DedupStore) Purge() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, record := range s.records {
		if now.After(record.expiresAt) {
			delete(s.records, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored records, expired or not
func (s *DedupStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
