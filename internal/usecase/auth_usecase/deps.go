package auth

import (
	"context"
	"time"

	"fintrack/internal/domain/model"
)

// 平文パスワードからハッシュへ。
type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// 入力パスワードと保存したハッシュを比べる約束
type PasswordVerifier interface {
	Verify(plain string, hashed string) bool
}

// アクセストークン（JWT）を発行する約束
type AccessTokenIssuer interface {
	Issue(userID string, now time.Time) (token string, expiresAt time.Time, err error)
}

// UUID 等のIDを作る約束
type IDGenerator interface {
	NewID() string
}

// 現在の時間
type Clock interface {
	Now() time.Time
}

// 認証コードの発行・検証（verification パッケージが実装）
type CodeIssuer interface {
	CreateVerification(ctx context.Context, user *model.User) error
	ValidateCode(ctx context.Context, userID string, code string) (bool, error)
}

// usecaseがValidatorに依存する約束
type AuthValidator interface {
	ValidateRegister(ctx context.Context, in RegisterUserInput) error
	ValidateLogin(ctx context.Context, email string, password string) error
	ValidateVerifyEmail(ctx context.Context, email string, code string) error
}
