package fraudlog

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configures the Redis store.
type RedisOptions struct {
	Address  string
	Password string
	DB       int
	// Key of the Redis list holding the entries.
	Key string
	// MaxEntries bounds the list length. Zero keeps everything.
	MaxEntries int
}

type redisList interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	Close() error
}

// Redis keeps entries in a Redis list that can be shared between server replicas.
type Redis struct {
	client     redisList
	key        string
	maxEntries int
	closed     atomic.Bool
}

func NewRedis(opts RedisOptions) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Address,
		Password: opts.Password,
		DB:       opts.DB,
	})

	return newRedis(client, opts)
}

func newRedis(client redisList, opts RedisOptions) *Redis {
	return &Redis{client: client, key: opts.Key, maxEntries: opts.MaxEntries}
}

func (r *Redis) Append(ctx context.Context, e Entry) error {
	if r.closed.Load() {
		return ErrClosed
	}

	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal fraud log entry: %w", err)
	}

	if err := r.client.RPush(ctx, r.key, value).Err(); err != nil {
		return fmt.Errorf("append fraud log entry: %w", err)
	}

	if r.maxEntries > 0 {
		if err := r.client.LTrim(ctx, r.key, int64(-r.maxEntries), -1).Err(); err != nil {
			return fmt.Errorf("trim fraud log: %w", err)
		}
	}

	return nil
}

func (r *Redis) List(ctx context.Context) ([]Entry, error) {
	if r.closed.Load() {
		return nil, ErrClosed
	}

	values, err := r.client.LRange(ctx, r.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list fraud log entries: %w", err)
	}

	entries := make([]Entry, 0, len(values))

	for _, v := range values {
		var e Entry
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			return nil, fmt.Errorf("unmarshal fraud log entry: %w", err)
		}

		entries = append(entries, e)
	}

	return entries, nil
}

func (r *Redis) Close() error {
	if r.closed.Swap(true) {
		return nil
	}

	return r.client.Close()
}
