package model

import (
	"fmt"

	"gorm.io/gorm"
)

// AutoMigrate creates the pgvector extension, the tables and the ivfflat
// index used by similarity search.
func AutoMigrate(db *gorm.DB) error {
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("enable pgvector: %w", err)
	}
	if err := db.AutoMigrate(&Book{}, &Chunk{}, &AnswerCache{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return db.Exec(
		"CREATE INDEX IF NOT EXISTS idx_book_chunks_embedding ON book_chunks USING ivfflat (embedding_value vector_cosine_ops) WITH (lists = 100)",
	).Error
}
