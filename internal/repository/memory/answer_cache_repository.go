package memory

import (
	"context"
	"time"

	"textbook-qa-be/internal/entity"
)

type AnswerCacheRepository struct {
	store *Store
}

func (r *AnswerCacheRepository) FindByKey(ctx context.Context, key string) (*entity.AnswerCache, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	e, ok := r.store.answers[key]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (r *AnswerCacheRepository) Upsert(ctx context.Context, entry *entity.AnswerCache) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *entry
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	r.store.answers[entry.Key] = &cp
	return nil
}

func (r *AnswerCacheRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var n int64
	for k, e := range r.store.answers {
		if e.CreatedAt.Before(cutoff) {
			delete(r.store.answers, k)
			n++
		}
	}
	return n, nil
}
