package mapper

import (
	"time"

	"textbook-qa-be/internal/entity"
	"textbook-qa-be/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type BookMapper struct{}

func NewBookMapper() *BookMapper {
	return &BookMapper{}
}

func (m *BookMapper) ToEntity(b *model.Book) *entity.Book {
	if b == nil {
		return nil
	}

	var deletedAt *time.Time
	if b.DeletedAt.Valid {
		t := b.DeletedAt.Time
		deletedAt = &t
	}
	var updatedAt *time.Time
	if !b.UpdatedAt.IsZero() {
		t := b.UpdatedAt
		updatedAt = &t
	}

	return &entity.Book{
		Id:              b.Id,
		UserId:          b.UserId,
		Branch:          b.Branch,
		Name:            b.Name,
		StoragePath:     b.StoragePath,
		Status:          entity.BookStatus(b.Status),
		TotalPages:      b.TotalPages,
		TotalChunks:     b.TotalChunks,
		ProcessedChunks: b.ProcessedChunks,
		ErrorLog:        []string(b.ErrorLog),
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       updatedAt,
		DeletedAt:       deletedAt,
		IsDeleted:       b.DeletedAt.Valid,
	}
}

func (m *BookMapper) ToModel(b *entity.Book) *model.Book {
	if b == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if b.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *b.DeletedAt, Valid: true}
	}
	var updatedAt time.Time
	if b.UpdatedAt != nil {
		updatedAt = *b.UpdatedAt
	}
	status := string(b.Status)
	if status == "" {
		status = string(entity.BookStatusPending)
	}

	return &model.Book{
		Id:              b.Id,
		UserId:          b.UserId,
		Branch:          b.Branch,
		Name:            b.Name,
		StoragePath:     b.StoragePath,
		Status:          status,
		TotalPages:      b.TotalPages,
		TotalChunks:     b.TotalChunks,
		ProcessedChunks: b.ProcessedChunks,
		ErrorLog:        datatypes.JSONSlice[string](b.ErrorLog),
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       updatedAt,
		DeletedAt:       deletedAt,
	}
}
