package model

import (
	"time"

	"github.com/google/uuid"
)

type AnswerCache struct {
	Key        string     `gorm:"type:text;primaryKey"`
	Answer     string     `gorm:"type:text;not null"`
	BookId     *uuid.UUID `gorm:"type:uuid"`
	BookName   string     `gorm:"type:varchar(255)"`
	PageNumber int        `gorm:"default:0"`
	Mode       string     `gorm:"type:varchar(16);not null"`
	Branch     string     `gorm:"type:varchar(100)"`
	CreatedAt  time.Time  `gorm:"autoCreateTime;index"`
}

func (AnswerCache) TableName() string {
	return "answer_cache"
}
