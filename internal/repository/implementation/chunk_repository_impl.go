package implementation

import (
	"context"
	"errors"

	"textbook-qa-be/internal/entity"
	"textbook-qa-be/internal/mapper"
	"textbook-qa-be/internal/model"
	"textbook-qa-be/internal/repository/contract"
	"textbook-qa-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChunkRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChunkMapper
}

func NewChunkRepository(db *gorm.DB) contract.ChunkRepository {
	return &ChunkRepositoryImpl{
		db:     db,
		mapper: mapper.NewChunkMapper(),
	}
}

func (r *ChunkRepositoryImpl) Exists(ctx context.Context, bookId uuid.UUID, pageNumber int) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Chunk{}).
		Where("book_id = ? AND page_number = ?", bookId, pageNumber).
		Limit(1).
		Count(&count).Error
	return count > 0, err
}

func (r *ChunkRepositoryImpl) InsertIfAbsent(ctx context.Context, chunk *entity.Chunk) (bool, error) {
	m := r.mapper.ToModel(chunk)
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "book_id"}, {Name: "page_number"}},
			DoNothing: true,
		}).
		Create(m)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	*chunk = *r.mapper.ToEntity(m)
	return true, nil
}

func (r *ChunkRepositoryImpl) FindByOrdinal(ctx context.Context, bookId uuid.UUID, pageNumber int) (*entity.Chunk, error) {
	var m model.Chunk
	err := r.db.WithContext(ctx).
		Where("book_id = ? AND page_number = ?", bookId, pageNumber).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *ChunkRepositoryImpl) CountByBook(ctx context.Context, bookId uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Chunk{}).Where("book_id = ?", bookId).Count(&count).Error
	return count, err
}

type scoredRow struct {
	model.Chunk
	BookName   string
	Similarity float64
}

// SearchSimilar ranks chunks by cosine similarity. pgvector's <=> is cosine
// distance, so similarity is 1 - distance.
func (r *ChunkRepositoryImpl) SearchSimilar(ctx context.Context, embedding []float32, scope specification.ChunkScope, threshold float64, limit int) ([]*contract.ScoredChunk, error) {
	if limit <= 0 {
		limit = 5
	}
	queryVector := pgvector.NewVector(embedding)

	var rows []scoredRow
	query := r.db.WithContext(ctx).
		Table("book_chunks").
		Select("book_chunks.*, books.name AS book_name, 1 - (book_chunks.embedding_value <=> ?) AS similarity", queryVector)
	err := scope.Apply(query).
		Where("1 - (book_chunks.embedding_value <=> ?) >= ?", queryVector, threshold).
		Order("similarity DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return r.toScored(rows), nil
}

// FindCandidates loads one page of chunks for lexical scoring. (book_id,
// page_number) is unique, so offsets are stable between calls.
func (r *ChunkRepositoryImpl) FindCandidates(ctx context.Context, scope specification.ChunkScope, offset, limit int) ([]*contract.ScoredChunk, error) {
	if limit <= 0 {
		limit = 2000
	}
	if offset < 0 {
		offset = 0
	}
	var rows []scoredRow
	query := r.db.WithContext(ctx).
		Table("book_chunks").
		Select("book_chunks.id, book_chunks.book_id, book_chunks.page_number, book_chunks.content, book_chunks.created_at, books.name AS book_name, 0 AS similarity")
	err := scope.Apply(query).
		Order("book_chunks.book_id, book_chunks.page_number").
		Offset(offset).
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return r.toScored(rows), nil
}

func (r *ChunkRepositoryImpl) toScored(rows []scoredRow) []*contract.ScoredChunk {
	out := make([]*contract.ScoredChunk, len(rows))
	for i := range rows {
		out[i] = &contract.ScoredChunk{
			Chunk:    r.mapper.ToEntity(&rows[i].Chunk),
			BookName: rows[i].BookName,
			Score:    rows[i].Similarity,
		}
	}
	return out
}
