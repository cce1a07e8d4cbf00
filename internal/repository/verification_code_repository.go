package repository

import (
	"context"
	"errors"
	"time"

	"fintrack/internal/domain/model"
)

var ErrVerificationCodeNotFound = errors.New("verification code not found")

type VerificationCodeRepository interface {
	Create(ctx context.Context, code *model.VerificationCode) error
	// 未使用・期限内のコードを使用済みにする（削除はしない）
	SupersedeActive(ctx context.Context, userID string, now time.Time) (int64, error)
	// 一致する未使用・期限内のコードを使用済みにする。無ければ ErrVerificationCodeNotFound
	ConsumeMatching(ctx context.Context, userID string, code string, now time.Time) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
