package sessions

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

var _ Repo = (*MemoryRepo)(nil)

// MemoryRepo keeps grants in process. Expired entries are purged every minute.
type MemoryRepo struct {
	mu sync.Mutex
	c  *gocache.Cache
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{c: gocache.New(gocache.NoExpiration, time.Minute)}
}

func (r *MemoryRepo) Put(_ context.Context, key string, grant *Grant, ttl time.Duration) error {
	g := *grant
	r.c.Set(key, &g, ttl)
	return nil
}

func (r *MemoryRepo) Get(_ context.Context, key string) (*Grant, error) {
	v, ok := r.c.Get(key)
	if !ok {
		return nil, ErrGrantNotFound
	}
	g := *(v.(*Grant))
	return &g, nil
}

func (r *MemoryRepo) Take(_ context.Context, key string) (*Grant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.c.Get(key)
	if !ok {
		return nil, ErrGrantNotFound
	}
	r.c.Delete(key)
	g := *(v.(*Grant))
	return &g, nil
}

func (r *MemoryRepo) Delete(_ context.Context, key string) error {
	r.c.Delete(key)
	return nil
}
