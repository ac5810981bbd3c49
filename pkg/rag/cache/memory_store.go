package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore is a process-local store. Entries vanish on restart.
type MemoryStore struct {
	cache *gocache.Cache
}

// NewMemoryStore keeps entries for ttl; ttl <= 0 keeps them until restart.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	expiration := gocache.NoExpiration
	cleanup := time.Duration(0)
	if ttl > 0 {
		expiration = ttl
		cleanup = 10 * time.Minute
	}
	return &MemoryStore{cache: gocache.New(expiration, cleanup)}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (*Entry, error) {
	if x, found := s.cache.Get(key); found {
		e := x.(Entry)
		return &e, nil
	}
	return nil, nil
}

func (s *MemoryStore) Put(ctx context.Context, e *Entry) error {
	s.cache.Set(e.Key, *e, gocache.DefaultExpiration)
	return nil
}

// TieredStore answers from a local L1 before falling back to a shared store.
type TieredStore struct {
	l1 *MemoryStore
	l2 Store
}

func NewTieredStore(l1TTL time.Duration, l2 Store) *TieredStore {
	if l1TTL <= 0 {
		l1TTL = 15 * time.Minute
	}
	return &TieredStore{l1: NewMemoryStore(l1TTL), l2: l2}
}

func (s *TieredStore) Get(ctx context.Context, key string) (*Entry, error) {
	if e, _ := s.l1.Get(ctx, key); e != nil {
		return e, nil
	}
	e, err := s.l2.Get(ctx, key)
	if err != nil || e == nil {
		return nil, err
	}
	_ = s.l1.Put(ctx, e)
	return e, nil
}

// Put writes through to L2 first so L1 never holds an entry L2 rejected.
func (s *TieredStore) Put(ctx context.Context, e *Entry) error {
	if err := s.l2.Put(ctx, e); err != nil {
		return err
	}
	return s.l1.Put(ctx, e)
}
