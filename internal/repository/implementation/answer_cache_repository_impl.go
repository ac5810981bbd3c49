package implementation

import (
	"context"
	"errors"
	"time"

	"textbook-qa-be/internal/entity"
	"textbook-qa-be/internal/mapper"
	"textbook-qa-be/internal/model"
	"textbook-qa-be/internal/repository/contract"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AnswerCacheRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.AnswerCacheMapper
}

func NewAnswerCacheRepository(db *gorm.DB) contract.AnswerCacheRepository {
	return &AnswerCacheRepositoryImpl{
		db:     db,
		mapper: mapper.NewAnswerCacheMapper(),
	}
}

func (r *AnswerCacheRepositoryImpl) FindByKey(ctx context.Context, key string) (*entity.AnswerCache, error) {
	var m model.AnswerCache
	if err := r.db.WithContext(ctx).Where("key = ?", key).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *AnswerCacheRepositoryImpl) Upsert(ctx context.Context, entry *entity.AnswerCache) error {
	m := r.mapper.ToModel(entry)
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"answer", "book_id", "book_name", "page_number", "mode", "branch", "created_at"}),
		}).
		Create(m).Error
}

func (r *AnswerCacheRepositoryImpl) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&model.AnswerCache{})
	return res.RowsAffected, res.Error
}
