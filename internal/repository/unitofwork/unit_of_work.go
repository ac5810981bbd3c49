package unitofwork

import (
	"context"

	"textbook-qa-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	BookRepository() contract.BookRepository
	ChunkRepository() contract.ChunkRepository
	AnswerCacheRepository() contract.AnswerCacheRepository
}
