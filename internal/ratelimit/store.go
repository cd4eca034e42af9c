package ratelimit

import (
	"hash/fnv"
	"sync"
	"time"
)

// Record tracks attempt state for one client identity.
type Record struct {
	AttemptCount int
	LastAttempt  time.Time
	LockedUntil  time.Time // zero when no lock is active
}

// UpdateFunc transforms the record for an identity. ok is false when no
// record exists yet. Returning keep=false deletes the record.
type UpdateFunc func(rec Record, ok bool) (updated Record, keep bool)

// Store is the keyed record store backing the limiter. Implementations must
// make Update atomic per identity with respect to concurrent operations on
// the same identity.
type Store interface {
	Get(identity string) (Record, bool)
	Update(identity string, fn UpdateFunc)
	Delete(identity string)
	// Evict removes every record for which shouldEvict returns true and
	// reports how many were removed.
	Evict(shouldEvict func(identity string, rec Record) bool) int
	Len() int
}

const shardCount = 32

// MemoryStore is a sharded in-memory Store. Identities hash to a shard so
// operations on different identities rarely contend on the same lock, while
// each shard's mutex keeps per-identity read-modify-write atomic.
type MemoryStore struct {
	shards [shardCount]shard
}

type shard struct {
	mu      sync.Mutex
	records map[string]Record
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{}
	for i := range s.shards {
		s.shards[i].records = make(map[string]Record)
	}
	return s
}

func (s *MemoryStore) shardFor(identity string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(identity))
	return &s.shards[h.Sum32()%shardCount]
}

func (s *MemoryStore) Get(identity string) (Record, bool) {
	sh := s.shardFor(identity)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	rec, ok := sh.records[identity]
	return rec, ok
}

func (s *MemoryStore) Update(identity string, fn UpdateFunc) {
	sh := s.shardFor(identity)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	rec, ok := sh.records[identity]
	updated, keep := fn(rec, ok)
	if keep {
		sh.records[identity] = updated
	} else {
		delete(sh.records, identity)
	}
}

func (s *MemoryStore) Delete(identity string) {
	sh := s.shardFor(identity)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	delete(sh.records, identity)
}

func (s *MemoryStore) Evict(shouldEvict func(identity string, rec Record) bool) int {
	evicted := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for identity, rec := range sh.records {
			if shouldEvict(identity, rec) {
				delete(sh.records, identity)
				evicted++
			}
		}
		sh.mu.Unlock()
	}
	return evicted
}

func (s *MemoryStore) Len() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		n += len(sh.records)
		sh.mu.Unlock()
	}
	return n
}
