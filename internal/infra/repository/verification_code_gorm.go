package repository

import (
	"context"
	"time"

	"fintrack/internal/domain/model"
	repo "fintrack/internal/repository"

	"gorm.io/gorm"
)

type verificationCodeGormRepository struct {
	db *gorm.DB
}

func NewVerificationCodeRepository(db *gorm.DB) repo.VerificationCodeRepository {
	return &verificationCodeGormRepository{db: db}
}

func (r *verificationCodeGormRepository) Create(ctx context.Context, code *model.VerificationCode) error {
	return r.db.WithContext(ctx).Create(code).Error
}

// 既存の未使用コードを使用済みにする
func (r *verificationCodeGormRepository) SupersedeActive(ctx context.Context, userID string, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.VerificationCode{}).
		Where("user_id = ? AND is_used = ? AND expires_at > ?", userID, false, now).
		Update("is_used", true)

	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// 条件付き更新なので、同じコードを同時に使っても成功するのは1件だけ
func (r *verificationCodeGormRepository) ConsumeMatching(ctx context.Context, userID string, code string, now time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&model.VerificationCode{}).
		Where("user_id = ? AND code = ? AND is_used = ? AND expires_at > ?", userID, code, false, now).
		Update("is_used", true)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrVerificationCodeNotFound
	}
	return nil
}

func (r *verificationCodeGormRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&model.VerificationCode{})

	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
