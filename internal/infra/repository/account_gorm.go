package repository

import (
	"context"
	"errors"

	"fintrack/internal/domain/model"
	repo "fintrack/internal/repository"

	"gorm.io/gorm"
)

type AccountGormRepository struct {
	db *gorm.DB
}

func NewAccountGormRepository(db *gorm.DB) *AccountGormRepository {
	return &AccountGormRepository{db: db}
}

func (r *AccountGormRepository) FindByID(ctx context.Context, accountID string) (*model.Account, error) {
	var a model.Account
	err := r.db.WithContext(ctx).Where("id = ?", accountID).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repo.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// 残高に加算（支出ならマイナス）
func (r *AccountGormRepository) ApplyBalanceDelta(ctx context.Context, accountID string, delta int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.Account{}).
		Where("id = ?", accountID).
		UpdateColumn("current_balance", gorm.Expr("current_balance + ?", delta))

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrAccountNotFound
	}
	return nil
}
