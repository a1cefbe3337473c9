// Package store remembers which catalog items a run has already downloaded.
package store

import (
	"fmt"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DedupStore is a bounded, concurrency-safe set of item ids. A bloom filter answers most
// misses without touching the LRU, which holds the authoritative members. Once capacity is
// reached the least recently added id is forgotten.
type DedupStore struct {
	mu    sync.RWMutex
	bloom *bloom.BloomFilter
	ids   *lru.Cache[string, struct{}]
}

func NewDedupStore(capacity int, falsePositiveRate float64) (*DedupStore, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("dedup capacity must be positive, got %d", capacity)
	}
	if falsePositiveRate <= 0 || falsePositiveRate >= 1 {
		return nil, fmt.Errorf("dedup false positive rate must be in (0,1), got %g", falsePositiveRate)
	}

	ids, err := lru.New[string, struct{}](capacity)
	if err != nil {
		return nil, err
	}

	return &DedupStore{
		bloom: bloom.NewWithEstimates(uint(capacity), falsePositiveRate),
		ids:   ids,
	}, nil
}

func (s *DedupStore) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.bloom.TestString(id) {
		return false
	}
	return s.ids.Contains(id)
}

func (s *DedupStore) Add(id string) {
	if id == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ids.Contains(id) {
		return
	}
	s.bloom.AddString(id)
	s.ids.Add(id, struct{}{})
}

func (s *DedupStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ids.Len()
}
