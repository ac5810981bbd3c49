package contract

import (
	"context"
	"time"

	"textbook-qa-be/internal/entity"
)

type AnswerCacheRepository interface {
	FindByKey(ctx context.Context, key string) (*entity.AnswerCache, error)
	// Upsert overwrites an existing key; concurrent writers resolve last-write-wins.
	Upsert(ctx context.Context, entry *entity.AnswerCache) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
