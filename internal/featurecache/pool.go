// Package featurecache stores per-timestamp model features so that
// inference at one timestamp can look back at features computed for
// nearby timestamps. Entries are written once and read many times.
package featurecache

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrDuplicateKey is returned by Put when the key already holds an
	// entry. A duplicate write means the scheduler fired twice for the
	// same interval bucket.
	ErrDuplicateKey = errors.New("featurecache: duplicate key")

	// ErrKeyNotFound is returned by Get when no entry exists for the key.
	// Callers must update a bucket before scoring it.
	ErrKeyNotFound = errors.New("featurecache: key not found")
)

// Key identifies one cached entry: the stream it belongs to and the
// discretized interval bucket (center timestamp / interval).
type Key struct {
	Stream string
	Bucket int64
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%d", k.Stream, k.Bucket)
}

// Entry holds the two feature blobs computed for one bucket. The
// contents are opaque to the cache; the scoring adapter decides the
// encoding.
type Entry struct {
	Person []byte `json:"person"`
	Object []byte `json:"object"`
}

// Pool is the memory-pool contract. Put is insert-only: overwriting an
// existing key fails with ErrDuplicateKey. Get of an absent key fails
// with ErrKeyNotFound.
type Pool interface {
	Put(ctx context.Context, key Key, entry Entry) error
	Get(ctx context.Context, key Key) (Entry, error)

	// Len reports the number of stored entries. Primarily for stats
	// and tests; backends that cannot count cheaply may approximate.
	Len() int

	Close() error
}
