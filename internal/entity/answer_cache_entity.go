package entity

import (
	"time"

	"github.com/google/uuid"
)

type AnswerCache struct {
	Key        string
	Answer     string
	BookId     *uuid.UUID
	BookName   string
	PageNumber int
	Mode       string
	Branch     string
	CreatedAt  time.Time
}
