package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByBranch struct {
	Branch string
}

func (s ByBranch) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("branch = ?", s.Branch)
}

type ByStatuses struct {
	Statuses []string
}

func (s ByStatuses) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status IN ?", s.Statuses)
}

type ByUserID struct {
	UserID uuid.UUID
}

func (s ByUserID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ?", s.UserID)
}

// ChunkScope restricts book_chunks to explicit books, or to searchable books
// of a branch when no book is named. Expects book_chunks joined with books.
type ChunkScope struct {
	BookIDs []uuid.UUID
	Branch  string
}

var searchableStatuses = []string{"analyzed", "partial_success"}

func (s ChunkScope) Apply(db *gorm.DB) *gorm.DB {
	db = db.Joins("JOIN books ON books.id = book_chunks.book_id").
		Where("books.deleted_at IS NULL")
	if len(s.BookIDs) > 0 {
		return db.Where("book_chunks.book_id IN ?", s.BookIDs)
	}
	db = db.Where("books.status IN ?", searchableStatuses)
	if s.Branch != "" {
		db = db.Where("books.branch = ?", s.Branch)
	}
	return db
}
