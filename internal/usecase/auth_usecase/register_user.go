package auth

import (
	"context"
	"errors"
	"strings"

	"fintrack/internal/domain/model"
	"fintrack/internal/metrics"
	"fintrack/internal/repository"
	"fintrack/internal/usecase"
)

const msgEmailTaken = "El email ya está registrado"

// 会員登録の入力
type RegisterUserInput struct {
	Email    string
	Password string
	Name     string
	Surname  string
}

// 会員登録の出力（トークンは発行しない）
type RegisterUserOutput struct {
	User                 model.User `json:"user"`
	RequiresVerification bool       `json:"requires_verification"`
}

// RegisterUserUsecaseは会員登録の処理。
type RegisterUserUsecase struct {
	userRepo  repository.UserRepository
	codes     CodeIssuer
	validator AuthValidator
	hasher    PasswordHasher
	idGen     IDGenerator
	clock     Clock
}

// DI
func NewRegisterUserUsecase(
	userRepo repository.UserRepository,
	codes CodeIssuer,
	validator AuthValidator,
	hasher PasswordHasher,
	idGen IDGenerator,
	clock Clock,
) *RegisterUserUsecase {
	return &RegisterUserUsecase{
		userRepo:  userRepo,
		codes:     codes,
		validator: validator,
		hasher:    hasher,
		idGen:     idGen,
		clock:     clock,
	}
}

// 会員登録実行
func (u *RegisterUserUsecase) Execute(ctx context.Context, in RegisterUserInput) (out RegisterUserOutput, err error) {
	defer func() { metrics.AuthEvent("register", err) }()

	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	in.Surname = strings.TrimSpace(in.Surname)

	// 入力検証（形式・ドメイン許可リスト）
	if err := u.validator.ValidateRegister(ctx, in); err != nil {
		return out, err
	}

	existing, err := u.userRepo.FindByEmail(ctx, in.Email)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return out, err
	}

	if existing != nil {
		// 認証済みは重複
		if existing.IsVerified {
			return out, usecase.NewConflictError(msgEmailTaken)
		}
		// 未認証ならアカウントは作らずコードを再発行
		if err := u.codes.CreateVerification(ctx, existing); err != nil {
			return out, err
		}
		out.User = existing.Safe()
		out.RequiresVerification = true
		return out, nil
	}

	// パスワードをハッシュ化
	hashed, err := u.hasher.Hash(in.Password)
	if err != nil {
		return out, err
	}

	now := u.clock.Now()
	user := &model.User{
		ID:           u.idGen.NewID(),
		Email:        in.Email,
		PasswordHash: hashed, // ハッシュを保存（平文は保存しない）
		Name:         in.Name,
		Surname:      in.Surname,
		IsVerified:   false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// DBへ保存
	if err := u.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailAlreadyExists) {
			return out, usecase.NewConflictError(msgEmailTaken)
		}
		return out, err
	}

	if err := u.codes.CreateVerification(ctx, user); err != nil {
		return out, err
	}

	out.User = user.Safe()
	out.RequiresVerification = true
	return out, nil
}
