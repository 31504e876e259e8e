package counter

import (
	"context"
	"errors"
	"fmt"

	backend "github.com/redis/go-redis/v9"
)

// Redis stores the counter under a single key and increments it with INCR,
// so several service instances can share it.
type Redis struct {
	client *backend.Client
	id     string
	prefix string
}

// RedisOption configures a Redis backend.
type RedisOption func(*Redis)

// WithPrefix sets the key prefix. Default: "rewind:counter:".
func WithPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		r.prefix = prefix
	}
}

// NewRedis connects to the Redis server at address.
func NewRedis(address, id string, opts ...RedisOption) *Redis {
	return NewRedisFromClient(backend.NewClient(&backend.Options{Addr: address}), id, opts...)
}

// NewRedisFromClient uses an existing client.
func NewRedisFromClient(client *backend.Client, id string, opts ...RedisOption) *Redis {
	if id == "" {
		id = DefaultID
	}
	r := &Redis{
		client: client,
		id:     id,
		prefix: "rewind:counter:",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) key() string {
	return r.prefix + r.id
}

// Get implements Backend. A missing key reads as zero.
func (r *Redis) Get(ctx context.Context) (Count, error) {
	n, err := r.client.Get(ctx, r.key()).Int64()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return Count{ID: r.id}, nil
		}
		return Count{}, fmt.Errorf("failed to read counter: %w", err)
	}
	return Count{ID: r.id, Count: n}, nil
}

// Inc implements Backend.
func (r *Redis) Inc(ctx context.Context) (Count, error) {
	n, err := r.client.Incr(ctx, r.key()).Result()
	if err != nil {
		return Count{}, fmt.Errorf("failed to increment counter: %w", err)
	}
	return Count{ID: r.id, Count: n}, nil
}

// Close releases the client.
func (r *Redis) Close() error {
	return r.client.Close()
}
