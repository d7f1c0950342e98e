package storage

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/IshaanNene/carharvest/internal/types"
)

// MemoryStore is an in-process RecordStore used for dry runs and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	docs   map[string]map[string]any
	logger *slog.Logger
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(logger *slog.Logger) *MemoryStore {
	return &MemoryStore{
		docs:   make(map[string]map[string]any),
		logger: logger.With("component", "memory_store"),
	}
}

func (s *MemoryStore) Name() string { return "memory" }

func (s *MemoryStore) FindOne(_ context.Context, url string) (*types.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[url]
	if !ok {
		return nil, nil
	}
	return types.ListingFromDocument(doc)
}

func (s *MemoryStore) Upsert(_ context.Context, listing *types.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs[listing.URL] = listing.Document()
	return nil
}

// All returns the stored listings ordered by URL.
func (s *MemoryStore) All(_ context.Context) ([]*types.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	urls := make([]string, 0, len(s.docs))
	for u := range s.docs {
		urls = append(urls, u)
	}
	sort.Strings(urls)

	listings := make([]*types.Listing, 0, len(urls))
	for _, u := range urls {
		listing, err := types.ListingFromDocument(s.docs[u])
		if err != nil {
			return nil, err
		}
		listings = append(listings, listing)
	}
	return listings, nil
}

// Len returns the number of stored listings.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func (s *MemoryStore) Close() error {
	s.logger.Debug("memory store closing", "listings", s.Len())
	return nil
}
