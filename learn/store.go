package learn

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/exp/maps"
)

// Store is the persistence contract for move statistics.
type Store interface {
	// Rows returns every record for a reduced position key in the order the
	// moves were first recorded. An unknown key yields no rows and no error.
	Rows(ctx context.Context, key string) ([]MoveStat, error)
	// Increment creates the (key, move) record on first use and adds one
	// play plus one win, draw or loss.
	Increment(ctx context.Context, key, move string, result Result) error
}

// MemoryStore is a Store held in process memory. It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	rows    map[string][]MoveStat
	version uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string][]MoveStat)}
}

func (s *MemoryStore) Rows(ctx context.Context, key string) ([]MoveStat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.rows[key]
	out := make([]MoveStat, len(rows))
	copy(out, rows)
	return out, nil
}

func (s *MemoryStore) Increment(ctx context.Context, key, move string, result Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !result.Valid() {
		return ErrInvalidResult
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.increment(key, move, result)
	s.version++
	return nil
}

func (s *MemoryStore) increment(key, move string, result Result) {
	rows := s.rows[key]
	for i := range rows {
		if rows[i].Move == move {
			rows[i].record(result)
			return
		}
	}
	stat := MoveStat{Key: key, Move: move}
	stat.record(result)
	s.rows[key] = append(rows, stat)
}

// Len is the number of (key, move) records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, rows := range s.rows {
		n += len(rows)
	}
	return n
}

// Snapshot returns every record, keys in sorted order and moves in
// insertion order within a key, plus the version it reflects.
func (s *MemoryStore) Snapshot() ([]MoveStat, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := maps.Keys(s.rows)
	sort.Strings(keys)
	out := make([]MoveStat, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.rows[k]...)
	}
	return out, s.version
}

// load replaces the contents with rows, keeping their order.
func (s *MemoryStore) load(rows []MoveStat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = make(map[string][]MoveStat, len(rows))
	for _, r := range rows {
		s.rows[r.Key] = append(s.rows[r.Key], r)
	}
}
