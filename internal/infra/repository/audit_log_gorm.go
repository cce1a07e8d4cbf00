package repository

import (
	"context"

	"fintrack/internal/domain/model"
	repo "fintrack/internal/repository"

	"gorm.io/gorm"
)

type auditLogGormRepository struct {
	db *gorm.DB
}

func NewAuditLogGormRepository(db *gorm.DB) repo.AuditLogRepository {
	return &auditLogGormRepository{db: db}
}

// ログイン・ローテーション失敗・定期実行などのイベントを追記
func (r *auditLogGormRepository) Create(ctx context.Context, log model.AuditLog) error {
	return r.db.WithContext(ctx).Create(&log).Error
}

// /me/security-events 用。他人のイベントは返さない
func (r *auditLogGormRepository) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	if filter.UserID == "" {
		return []model.AuditLog{}, nil
	}
	limit, offset := filter.Page()

	//同一時刻のイベントは id で並びを固定
	var events []model.AuditLog
	err := r.db.WithContext(ctx).
		Where("user_id = ?", filter.UserID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
