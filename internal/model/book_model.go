package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Book struct {
	Id              uuid.UUID                   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId          uuid.UUID                   `gorm:"type:uuid;not null;index"`
	Branch          string                      `gorm:"type:varchar(100);not null;index"`
	Name            string                      `gorm:"type:varchar(255);not null"`
	StoragePath     string                      `gorm:"type:text;not null"`
	Status          string                      `gorm:"type:varchar(32);not null;default:pending;index"`
	TotalPages      int                         `gorm:"default:0"`
	TotalChunks     int                         `gorm:"default:0"`
	ProcessedChunks int                         `gorm:"default:0"`
	ErrorLog        datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	Chunks          []Chunk                     `gorm:"foreignKey:BookId;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time                   `gorm:"autoCreateTime"`
	UpdatedAt       time.Time                   `gorm:"autoUpdateTime"`
	DeletedAt       gorm.DeletedAt              `gorm:"index"`
}

func (Book) TableName() string {
	return "books"
}
