package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// Chunk rows are immutable and only removed through the books FK cascade.
type Chunk struct {
	Id             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	BookId         uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_book_chunks_book_page,priority:1"`
	PageNumber     int             `gorm:"not null;uniqueIndex:idx_book_chunks_book_page,priority:2"`
	Content        string          `gorm:"type:text;not null"`
	EmbeddingValue pgvector.Vector `gorm:"type:vector(768)"`
	CreatedAt      time.Time       `gorm:"autoCreateTime"`
}

func (Chunk) TableName() string {
	return "book_chunks"
}
