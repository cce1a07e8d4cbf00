package repository

import (
	"context"

	"fintrack/internal/domain/model"
)

// 取引台帳（残高の更新は AccountRepository 側）
type TransactionRepository interface {
	Create(ctx context.Context, tx *model.Transaction) error
}
