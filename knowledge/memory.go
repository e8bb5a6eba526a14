package knowledge

import (
	"context"
	"sync"
)

// MemoryBase is the in-process knowledge store: a mutex-guarded,
// append-only slice. It is the default store for single-process runs.
type MemoryBase struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemoryBase creates an empty in-memory store.
func NewMemoryBase() *MemoryBase {
	return &MemoryBase{}
}

// Append adds an entry to the end of the store.
func (b *MemoryBase) Append(_ context.Context, entry Entry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, entry)
	return nil
}

// Entries returns a snapshot of all entries in insertion order.
func (b *MemoryBase) Entries(_ context.Context) ([]Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Entry(nil), b.entries...), nil
}

// Len returns the number of stored entries.
func (b *MemoryBase) Len(_ context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries), nil
}
