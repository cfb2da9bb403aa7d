package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var _ Repo = (*RedisRepo)(nil)

// RedisRepo shares grants between gateway instances.
type RedisRepo struct {
	client *redis.Client
	prefix string
}

// NewRedisRepo connects using a redis:// URL and checks the connection.
func NewRedisRepo(ctx context.Context, redisURL, prefix string) (*RedisRepo, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("[sessions NewRedisRepo] invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("[sessions NewRedisRepo] redis ping failed: %w", err)
	}
	return NewRedisRepoFromClient(client, prefix), nil
}

// NewRedisRepoFromClient namespaces every key under prefix. A trailing ":"
// on prefix is optional.
func NewRedisRepoFromClient(client *redis.Client, prefix string) *RedisRepo {
	return &RedisRepo{client: client, prefix: strings.TrimRight(prefix, ":")}
}

// Key is the redis key a grant key is stored under.
func (r *RedisRepo) Key(k string) string {
	return r.key(k)
}

func (r *RedisRepo) key(k string) string {
	if r.prefix == "" {
		return k
	}
	return r.prefix + ":" + k
}

func (r *RedisRepo) Put(ctx context.Context, key string, grant *Grant, ttl time.Duration) error {
	b, err := json.Marshal(grant)
	if err != nil {
		return fmt.Errorf("[RedisRepo Put] %w", err)
	}
	return r.client.Set(ctx, r.key(key), b, ttl).Err()
}

func (r *RedisRepo) Get(ctx context.Context, key string) (*Grant, error) {
	return r.decode(r.client.Get(ctx, r.key(key)).Bytes())
}

// Take uses GETDEL so concurrent redemptions of one code cannot both succeed.
func (r *RedisRepo) Take(ctx context.Context, key string) (*Grant, error) {
	return r.decode(r.client.GetDel(ctx, r.key(key)).Bytes())
}

func (r *RedisRepo) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}

func (r *RedisRepo) Close() error {
	return r.client.Close()
}

func (r *RedisRepo) decode(b []byte, err error) (*Grant, error) {
	if errors.Is(err, redis.Nil) {
		return nil, ErrGrantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("[RedisRepo] %w", err)
	}
	var g Grant
	if err := json.Unmarshal(b, &g); err != nil {
		return nil, fmt.Errorf("[RedisRepo] corrupt grant: %w", err)
	}
	return &g, nil
}
