package histogram

import "sync"

// QuantileStore resolves opaque keys to precomputed global quantile split
// points. It decouples quantile binning from any particular storage engine:
// the surrounding cluster decides where summaries live, this core only needs
// key lookup with an absent case.
type QuantileStore interface {
	// Get returns the split points stored under key, or ok=false when the
	// key is absent.
	Get(key string) ([]float64, bool)
}

// MemoryQuantileStore is an in-process QuantileStore backed by a map. It is
// safe for concurrent use.
type MemoryQuantileStore struct {
	mu  sync.RWMutex
	pts map[string][]float64
}

// NewMemoryQuantileStore creates an empty in-memory store.
func NewMemoryQuantileStore() *MemoryQuantileStore {
	return &MemoryQuantileStore{pts: make(map[string][]float64)}
}

// Put stores split points under key, replacing any previous value.
func (s *MemoryQuantileStore) Put(key string, splitPoints []float64) {
	cp := make([]float64, len(splitPoints))
	copy(cp, splitPoints)
	s.mu.Lock()
	s.pts[key] = cp
	s.mu.Unlock()
}

// Get implements QuantileStore.
func (s *MemoryQuantileStore) Get(key string) ([]float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pts, ok := s.pts[key]
	return pts, ok
}
