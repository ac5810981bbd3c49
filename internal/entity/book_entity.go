package entity

import (
	"time"

	"github.com/google/uuid"
)

type BookStatus string

const (
	BookStatusPending        BookStatus = "pending"
	BookStatusProcessing     BookStatus = "processing"
	BookStatusAnalyzed       BookStatus = "analyzed"
	BookStatusPartialSuccess BookStatus = "partial_success"
	BookStatusError          BookStatus = "error"
)

// Searchable reports whether chunks of a book in this status may be retrieved.
func (s BookStatus) Searchable() bool {
	return s == BookStatusAnalyzed || s == BookStatusPartialSuccess
}

type Book struct {
	Id              uuid.UUID
	UserId          uuid.UUID
	Branch          string
	Name            string
	StoragePath     string
	Status          BookStatus
	TotalPages      int
	TotalChunks     int
	ProcessedChunks int
	ErrorLog        []string
	CreatedAt       time.Time
	UpdatedAt       *time.Time
	DeletedAt       *time.Time
	IsDeleted       bool
}
