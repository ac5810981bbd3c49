package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateBookRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Branch      string `json:"branch" validate:"required,max=64"`
	StoragePath string `json:"storagePath" validate:"required,max=1024"`
}

type ListBooksRequest struct {
	Branch string `query:"branch" validate:"max=64"`
	Status string `query:"status" validate:"omitempty,oneof=pending processing analyzed partial_success error"`
	Owner  string `query:"owner" validate:"omitempty,uuid"`
}

type IngestBookRequest struct {
	BookId         uuid.UUID `json:"bookId" validate:"required"`
	StoragePath    string    `json:"storagePath,omitempty" validate:"max=1024"`
	SkipFirstPages *int      `json:"skipFirstPages,omitempty" validate:"omitempty,min=0,max=100"`
	Async          bool      `json:"async"`
}

type IngestBookResponse struct {
	BookId      uuid.UUID `json:"bookId"`
	Queued      bool      `json:"queued"`
	Status      string    `json:"status"`
	Strategy    string    `json:"strategy,omitempty"`
	TotalPages  int       `json:"totalPages"`
	TotalChunks int       `json:"totalChunks"`
	Inserted    int       `json:"inserted"`
	Existing    int       `json:"existing"`
	Failed      int       `json:"failed"`
	Errors      []string  `json:"errors,omitempty"`
}

// IngestBookMessage is the payload of the async ingestion topic.
type IngestBookMessage struct {
	BookId         uuid.UUID `json:"book_id"`
	StoragePath    string    `json:"storage_path,omitempty"`
	SkipFirstPages *int      `json:"skip_first_pages,omitempty"`
}

type BookResponse struct {
	Id              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	Branch          string     `json:"branch"`
	StoragePath     string     `json:"storagePath"`
	Status          string     `json:"status"`
	TotalPages      int        `json:"totalPages"`
	TotalChunks     int        `json:"totalChunks"`
	ProcessedChunks int        `json:"processedChunks"`
	Errors          []string   `json:"errors,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       *time.Time `json:"updatedAt,omitempty"`
}
