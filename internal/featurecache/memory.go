package featurecache

import (
	"context"
	"fmt"
	"sync"
)

// MemoryPool is the default in-process pool. It is safe for concurrent
// use, although the worker that owns it is the only writer.
//
// The pool never evicts: it grows for the lifetime of a session. That
// is acceptable for bounded-length sessions; long offline jobs should
// use RedisPool (TTL expiry) or SQLitePool (disk resident) instead.
type MemoryPool struct {
	mu      sync.RWMutex
	entries map[Key]Entry
}

// NewMemoryPool creates an empty in-memory pool.
func NewMemoryPool() *MemoryPool {
	return &MemoryPool{
		entries: make(map[Key]Entry),
	}
}

// Put stores an entry. It fails with ErrDuplicateKey if the key is
// already occupied.
func (p *MemoryPool) Put(ctx context.Context, key Key, entry Entry) error {
	if key.Stream == "" {
		return fmt.Errorf("stream id cannot be empty")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.entries[key]; exists {
		return fmt.Errorf("put %s: %w", key, ErrDuplicateKey)
	}
	p.entries[key] = entry
	return nil
}

// Get returns the entry stored under key, or ErrKeyNotFound.
func (p *MemoryPool) Get(ctx context.Context, key Key) (Entry, error) {
	select {
	case <-ctx.Done():
		return Entry{}, ctx.Err()
	default:
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	entry, ok := p.entries[key]
	if !ok {
		return Entry{}, fmt.Errorf("get %s: %w", key, ErrKeyNotFound)
	}
	return entry, nil
}

// Len returns the number of stored entries.
func (p *MemoryPool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}

// Close releases the backing map.
func (p *MemoryPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = make(map[Key]Entry)
	return nil
}

var _ Pool = (*MemoryPool)(nil)
