package featurecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisPool stores entries in Redis so that features survive worker
// restarts and can be shared between processes scoring the same
// stream. Write-once semantics come from SET NX: a second Put on the
// same key fails with ErrDuplicateKey without touching the stored
// value.
type RedisPool struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisPool connects to Redis and verifies the connection.
//
// ttl of 0 keeps entries for 2 hours, which comfortably covers an
// offline pass over a feature film at one firing per second.
func NewRedisPool(addr, password string, db int, ttl time.Duration) (*RedisPool, error) {
	if addr == "" {
		return nil, errors.New("redis address cannot be empty")
	}
	if db < 0 {
		return nil, errors.New("redis database number must be >= 0")
	}
	if ttl == 0 {
		ttl = 2 * time.Hour
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return &RedisPool{client: client, ttl: ttl}, nil
}

func (p *RedisPool) redisKey(key Key) string {
	return fmt.Sprintf("actionpipe:feature:%s:%d", key.Stream, key.Bucket)
}

// Put stores an entry under the composite key, failing with
// ErrDuplicateKey if the key is already occupied.
func (p *RedisPool) Put(ctx context.Context, key Key, entry Entry) error {
	if key.Stream == "" {
		return errors.New("stream id cannot be empty")
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	ok, err := p.client.SetNX(ctx, p.redisKey(key), data, p.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to store entry in redis: %w", err)
	}
	if !ok {
		return fmt.Errorf("put %s: %w", key, ErrDuplicateKey)
	}
	return nil
}

// Get returns the entry stored under key, or ErrKeyNotFound.
func (p *RedisPool) Get(ctx context.Context, key Key) (Entry, error) {
	data, err := p.client.Get(ctx, p.redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Entry{}, fmt.Errorf("get %s: %w", key, ErrKeyNotFound)
		}
		return Entry{}, fmt.Errorf("failed to get entry from redis: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return Entry{}, fmt.Errorf("failed to unmarshal entry: %w", err)
	}
	return entry, nil
}

// Len reports the number of actionpipe feature keys currently in the
// database. Linear in key count; meant for stats endpoints, not hot
// paths.
func (p *RedisPool) Len() int {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	var count int
	var cursor uint64
	for {
		keys, next, err := p.client.Scan(ctx, cursor, "actionpipe:feature:*", 1000).Result()
		if err != nil {
			return count
		}
		count += len(keys)
		cursor = next
		if cursor == 0 {
			return count
		}
	}
}

// Close closes the underlying Redis client.
func (p *RedisPool) Close() error {
	return p.client.Close()
}

var _ Pool = (*RedisPool)(nil)
