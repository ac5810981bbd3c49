package contract

import (
	"context"

	"textbook-qa-be/internal/entity"
	"textbook-qa-be/internal/repository/specification"

	"github.com/google/uuid"
)

// ScoredChunk is a chunk together with its book's display name and a
// relevance score (cosine similarity for vector search, 0 for candidates).
type ScoredChunk struct {
	Chunk    *entity.Chunk
	BookName string
	Score    float64
}

type ChunkRepository interface {
	Exists(ctx context.Context, bookId uuid.UUID, pageNumber int) (bool, error)
	// InsertIfAbsent returns false when a chunk with the same (book, page) exists.
	InsertIfAbsent(ctx context.Context, chunk *entity.Chunk) (bool, error)
	FindByOrdinal(ctx context.Context, bookId uuid.UUID, pageNumber int) (*entity.Chunk, error)
	CountByBook(ctx context.Context, bookId uuid.UUID) (int64, error)
	SearchSimilar(ctx context.Context, embedding []float32, scope specification.ChunkScope, threshold float64, limit int) ([]*ScoredChunk, error)
	// FindCandidates pages through chunks in scope ordered by (book, page).
	FindCandidates(ctx context.Context, scope specification.ChunkScope, offset, limit int) ([]*ScoredChunk, error)
}
