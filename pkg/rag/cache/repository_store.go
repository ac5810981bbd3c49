package cache

import (
	"context"
	"time"

	"textbook-qa-be/internal/entity"
	"textbook-qa-be/internal/repository/unitofwork"
)

// RepositoryStore keeps entries in the answer_cache table.
type RepositoryStore struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewRepositoryStore(uowFactory unitofwork.RepositoryFactory) *RepositoryStore {
	return &RepositoryStore{uowFactory: uowFactory}
}

func (s *RepositoryStore) Get(ctx context.Context, key string) (*Entry, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	row, err := uow.AnswerCacheRepository().FindByKey(ctx, key)
	if err != nil || row == nil {
		return nil, err
	}
	return &Entry{
		Key:       row.Key,
		Answer:    row.Answer,
		BookID:    row.BookId,
		BookName:  row.BookName,
		Page:      row.PageNumber,
		Mode:      row.Mode,
		Branch:    row.Branch,
		CreatedAt: row.CreatedAt,
	}, nil
}

func (s *RepositoryStore) Put(ctx context.Context, e *Entry) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.AnswerCacheRepository().Upsert(ctx, &entity.AnswerCache{
		Key:        e.Key,
		Answer:     e.Answer,
		BookId:     e.BookID,
		BookName:   e.BookName,
		PageNumber: e.Page,
		Mode:       e.Mode,
		Branch:     e.Branch,
		CreatedAt:  e.CreatedAt,
	})
}

// Prune deletes rows created before now-olderThan.
func (s *RepositoryStore) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.AnswerCacheRepository().DeleteOlderThan(ctx, time.Now().Add(-olderThan))
}
