package elementStore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/WaterTechWarriors/PDMS2/internal/domain/element"
)

// MemoryStore is the test double for Store. SaveCount exposes how many full
// rewrites each document has seen so tests can assert the per-element
// persistence discipline.
type MemoryStore struct {
	mu        sync.RWMutex
	elements  map[string][]element.Element
	chunks    map[string][]element.Chunk
	saveCount map[string]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		elements:  make(map[string][]element.Element),
		chunks:    make(map[string][]element.Chunk),
		saveCount: make(map[string]int),
	}
}

func (s *MemoryStore) LoadElements(ctx context.Context, id string) ([]element.Element, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	elements, ok := s.elements[id]
	if !ok {
		return nil, fmt.Errorf("no elements stored for %s", id)
	}
	out := make([]element.Element, len(elements))
	copy(out, elements)
	return out, nil
}

func (s *MemoryStore) SaveElements(ctx context.Context, id string, elements []element.Element) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]element.Element, len(elements))
	copy(stored, elements)
	s.elements[id] = stored
	s.saveCount[id]++
	return nil
}

func (s *MemoryStore) LoadChunks(ctx context.Context, id string) ([]element.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunks, ok := s.chunks[id]
	if !ok {
		return nil, fmt.Errorf("no chunks stored for %s", id)
	}
	out := make([]element.Chunk, len(chunks))
	copy(out, chunks)
	return out, nil
}

func (s *MemoryStore) SaveChunks(ctx context.Context, id string, chunks []element.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]element.Chunk, len(chunks))
	copy(stored, chunks)
	s.chunks[id] = stored
	return nil
}

func (s *MemoryStore) ListElementIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.elements), nil
}

func (s *MemoryStore) ListChunkIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.chunks), nil
}

// SaveCount returns how many times SaveElements ran for id.
func (s *MemoryStore) SaveCount(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saveCount[id]
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
