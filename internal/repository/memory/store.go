// Package memory holds in-process repository implementations. They back
// service tests and the CLI's --memory mode.
package memory

import (
	"context"
	"sync"

	"textbook-qa-be/internal/entity"
	"textbook-qa-be/internal/repository/contract"
	"textbook-qa-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

type chunkKey struct {
	book uuid.UUID
	page int
}

// Store is the shared state behind every memory repository.
type Store struct {
	mu      sync.RWMutex
	books   map[uuid.UUID]*entity.Book
	chunks  map[chunkKey]*entity.Chunk
	answers map[string]*entity.AnswerCache
}

func NewStore() *Store {
	return &Store{
		books:   make(map[uuid.UUID]*entity.Book),
		chunks:  make(map[chunkKey]*entity.Chunk),
		answers: make(map[string]*entity.AnswerCache),
	}
}

func (s *Store) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &unitOfWork{store: s}
}

type unitOfWork struct {
	store *Store
}

// Transactions are no-ops; each repository call is atomic on its own.
func (u *unitOfWork) Begin(ctx context.Context) error { return nil }
func (u *unitOfWork) Commit() error                   { return nil }
func (u *unitOfWork) Rollback() error                 { return nil }

func (u *unitOfWork) BookRepository() contract.BookRepository {
	return &BookRepository{store: u.store}
}

func (u *unitOfWork) ChunkRepository() contract.ChunkRepository {
	return &ChunkRepository{store: u.store}
}

func (u *unitOfWork) AnswerCacheRepository() contract.AnswerCacheRepository {
	return &AnswerCacheRepository{store: u.store}
}
