package repository

import (
	"context"
	"errors"

	"fintrack/internal/domain/model"
)

// ユーザーが見つかりませんを統一
var ErrUserNotFound = errors.New("user not found")

// email一意制約違反
var ErrEmailAlreadyExists = errors.New("email already exists")

// 保存・取得を約束
type UserRepository interface {
	//新規ユーザー作成（email重複は ErrEmailAlreadyExists）
	Create(ctx context.Context, user *model.User) error
	// IDからユーザーを1件取得する。
	FindByID(ctx context.Context, userID string) (*model.User, error)
	//メールからユーザーを一件取得する。
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	//is_verified を true にする
	MarkVerified(ctx context.Context, userID string) error
}
