package mapper

import (
	"textbook-qa-be/internal/entity"
	"textbook-qa-be/internal/model"
)

type AnswerCacheMapper struct{}

func NewAnswerCacheMapper() *AnswerCacheMapper {
	return &AnswerCacheMapper{}
}

func (m *AnswerCacheMapper) ToEntity(c *model.AnswerCache) *entity.AnswerCache {
	if c == nil {
		return nil
	}
	return &entity.AnswerCache{
		Key:        c.Key,
		Answer:     c.Answer,
		BookId:     c.BookId,
		BookName:   c.BookName,
		PageNumber: c.PageNumber,
		Mode:       c.Mode,
		Branch:     c.Branch,
		CreatedAt:  c.CreatedAt,
	}
}

func (m *AnswerCacheMapper) ToModel(c *entity.AnswerCache) *model.AnswerCache {
	if c == nil {
		return nil
	}
	return &model.AnswerCache{
		Key:        c.Key,
		Answer:     c.Answer,
		BookId:     c.BookId,
		BookName:   c.BookName,
		PageNumber: c.PageNumber,
		Mode:       c.Mode,
		Branch:     c.Branch,
		CreatedAt:  c.CreatedAt,
	}
}
