package repository

import (
	"context"
	"errors"
	"time"

	"fintrack/internal/domain/model"
)

var ErrRefreshTokenNotFound = errors.New("refresh token not found")

// 条件付き更新で、すでに失効済みだった
var ErrRefreshTokenAlreadyRevoked = errors.New("refresh token already revoked")

// リフレッシュトークンの保存・取得・失効・掃除
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	FindByToken(ctx context.Context, token string) (*model.RefreshToken, error)
	// is_revoked=false の行だけを失効させる。replacedBy はローテーション時のみ。
	Revoke(ctx context.Context, tokenID string, replacedBy *string) error
	// 同じファミリー、または cutoff 以降に発行されたユーザーの有効トークンを一括失効
	RevokeFamily(ctx context.Context, userID string, familyID string, cutoff time.Time) (int64, error)
	RevokeAllByUserID(ctx context.Context, userID string) (int64, error)
	// 失効しておらず期限内のもの（新しい順）
	ListActiveByUserID(ctx context.Context, userID string, now time.Time) ([]model.RefreshToken, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
