package entity

import (
	"time"

	"github.com/google/uuid"
)

type Chunk struct {
	Id             uuid.UUID
	BookId         uuid.UUID
	PageNumber     int
	Content        string
	EmbeddingValue []float32
	CreatedAt      time.Time
}
