package knowledge

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configures the Redis-backed knowledge store.
type RedisOptions struct {
	// URL is the Redis connection string (e.g., "redis://localhost:6379")
	URL string

	// Key is the Redis list key entries are appended to. Defaults to
	// "redcell:knowledge:<run>" keyed by RunID when empty.
	Key string

	// RunID scopes the default key to one evaluation run.
	RunID string

	// TLS configuration for secure connections
	TLS *tls.Config

	// ConnectTimeout is the maximum time to wait for connection establishment
	ConnectTimeout time.Duration
}

// RedisBase stores entries in a Redis list. RPUSH preserves append order
// and Redis serializes concurrent appends, so the append-only contract
// holds across processes.
type RedisBase struct {
	client *redis.Client
	key    string
}

// NewRedisBase connects to Redis and returns a store scoped to one run.
func NewRedisBase(opts RedisOptions) (*RedisBase, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if opts.Key == "" {
		opts.Key = fmt.Sprintf("redcell:knowledge:%s", opts.RunID)
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	redisOpts.TLSConfig = opts.TLS
	redisOpts.DialTimeout = opts.ConnectTimeout

	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisBase{client: client, key: opts.Key}, nil
}

// NewRedisBaseFromClient wraps an existing client, mainly for tests.
func NewRedisBaseFromClient(client *redis.Client, key string) *RedisBase {
	return &RedisBase{client: client, key: key}
}

// Append adds an entry to the end of the store.
func (b *RedisBase) Append(ctx context.Context, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}
	if err := b.client.RPush(ctx, b.key, data).Err(); err != nil {
		return fmt.Errorf("failed to append to %s: %w", b.key, err)
	}
	return nil
}

// Entries returns all entries in insertion order.
func (b *RedisBase) Entries(ctx context.Context) ([]Entry, error) {
	raw, err := b.client.LRange(ctx, b.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", b.key, err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var entry Entry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Len returns the number of stored entries.
func (b *RedisBase) Len(ctx context.Context) (int, error) {
	n, err := b.client.LLen(ctx, b.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", b.key, err)
	}
	return int(n), nil
}

// Close closes the Redis connection.
func (b *RedisBase) Close() error {
	return b.client.Close()
}
