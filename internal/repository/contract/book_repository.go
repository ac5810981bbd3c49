package contract

import (
	"context"

	"textbook-qa-be/internal/entity"
	"textbook-qa-be/internal/repository/specification"

	"github.com/google/uuid"
)

// BookStatusUpdate carries the indexer's progress. Nil fields are left untouched.
type BookStatusUpdate struct {
	Status          entity.BookStatus
	TotalPages      *int
	TotalChunks     *int
	ProcessedChunks *int
	Errors          []string
}

type BookRepository interface {
	Create(ctx context.Context, book *entity.Book) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Book, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Book, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, update BookStatusUpdate) error
}
