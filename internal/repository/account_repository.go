package repository

import (
	"context"
	"errors"

	"fintrack/internal/domain/model"
)

var ErrAccountNotFound = errors.New("account not found")

type AccountRepository interface {
	FindByID(ctx context.Context, accountID string) (*model.Account, error)
	// current_balance に delta を加算する
	ApplyBalanceDelta(ctx context.Context, accountID string, delta int64) error
}
