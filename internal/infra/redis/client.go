package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/catfeed/internal/infra/storage"
)

// DefaultKey is the list holding journal entries.
const DefaultKey = "catfeed:facts"

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	Key      string `yaml:"key"`
}

// Client wraps Redis operations for the fact journal.
type Client struct {
	rdb      *redis.Client
	key      string
	capacity int
}

// NewClient connects to Redis. capacity bounds the journal list length; 0
// keeps everything.
func NewClient(cfg Config, capacity int) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	key := cfg.Key
	if key == "" {
		key = DefaultKey
	}

	return &Client{rdb: rdb, key: key, capacity: capacity}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Append pushes an entry to the head of the journal list and trims it.
func (c *Client) Append(ctx context.Context, entry *storage.Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	pipe := c.rdb.TxPipeline()
	pipe.LPush(ctx, c.key, data)
	if c.capacity > 0 {
		pipe.LTrim(ctx, c.key, 0, int64(c.capacity-1))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("lpush failed: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (c *Client) Recent(ctx context.Context, limit int) ([]*storage.Entry, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}

	raw, err := c.rdb.LRange(ctx, c.key, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange failed: %w", err)
	}

	entries := make([]*storage.Entry, 0, len(raw))
	for _, s := range raw {
		var e storage.Entry
		if err := json.Unmarshal([]byte(s), &e); err != nil {
			return nil, fmt.Errorf("invalid journal entry: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, nil
}

// Count returns the journal length.
func (c *Client) Count(ctx context.Context) (int, error) {
	n, err := c.rdb.LLen(ctx, c.key).Result()
	if err != nil {
		return 0, fmt.Errorf("llen failed: %w", err)
	}
	return int(n), nil
}

// Clear removes the journal.
func (c *Client) Clear(ctx context.Context) error {
	return c.rdb.Del(ctx, c.key).Err()
}
