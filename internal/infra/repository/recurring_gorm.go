package repository

import (
	"context"
	"errors"
	"time"

	"fintrack/internal/domain/model"
	repo "fintrack/internal/repository"

	"gorm.io/gorm"
)

type RecurringGormRepository struct {
	db *gorm.DB
}

func NewRecurringGormRepository(db *gorm.DB) *RecurringGormRepository {
	return &RecurringGormRepository{db: db}
}

func (r *RecurringGormRepository) FindByID(ctx context.Context, recurringID string) (*model.Recurring, error) {
	var rec model.Recurring
	err := r.db.WithContext(ctx).Where("id = ?", recurringID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repo.ErrRecurringNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *RecurringGormRepository) ListActive(ctx context.Context) ([]model.Recurring, error) {
	var items []model.Recurring
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// 読み取り時の last_executed_at と一致するときだけ更新する（楽観ロック）
func (r *RecurringGormRepository) MarkExecuted(ctx context.Context, recurringID string, executedAt time.Time, prev *time.Time) error {
	q := r.db.WithContext(ctx).
		Model(&model.Recurring{}).
		Where("id = ?", recurringID)

	if prev == nil {
		q = q.Where("last_executed_at IS NULL")
	} else {
		q = q.Where("last_executed_at = ?", *prev)
	}

	res := q.Update("last_executed_at", executedAt)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrConcurrentUpdate
	}
	return nil
}

func (r *RecurringGormRepository) Deactivate(ctx context.Context, recurringID string) error {
	res := r.db.WithContext(ctx).
		Model(&model.Recurring{}).
		Where("id = ?", recurringID).
		Update("is_active", false)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrRecurringNotFound
	}
	return nil
}
