package auth

import (
	"context"
	"errors"

	"fintrack/internal/domain/model"
	"fintrack/internal/metrics"
	"fintrack/internal/repository"
	"fintrack/internal/usecase"

	"go.uber.org/zap"
)

const (
	msgUserNotFound    = "Usuario no encontrado"
	msgAlreadyVerified = "El email ya está verificado"
)

type VerifyEmailInput struct {
	Email  string
	Code   string
	Client ClientInfo
}

// メール認証に成功したらログインと同じくトークンを発行する
type VerifyEmailUsecase struct {
	userRepo  repository.UserRepository
	audits    repository.AuditLogRepository
	codes     CodeIssuer
	validator AuthValidator
	sessions  *sessionIssuer
	clock     Clock
	log       *zap.Logger
}

func NewVerifyEmailUsecase(
	userRepo repository.UserRepository,
	audits repository.AuditLogRepository,
	codes CodeIssuer,
	validator AuthValidator,
	issuer AccessTokenIssuer,
	ledger *RefreshTokenLedger,
	clock Clock,
	log *zap.Logger,
) *VerifyEmailUsecase {
	return &VerifyEmailUsecase{
		userRepo:  userRepo,
		audits:    audits,
		codes:     codes,
		validator: validator,
		sessions:  &sessionIssuer{issuer: issuer, ledger: ledger, clock: clock},
		clock:     clock,
		log:       log,
	}
}

func (u *VerifyEmailUsecase) Execute(ctx context.Context, in VerifyEmailInput) (out AuthResult, err error) {
	defer func() { metrics.AuthEvent("verify_email", err) }()

	in.Email = normalizeEmail(in.Email)
	if err := u.validator.ValidateVerifyEmail(ctx, in.Email, in.Code); err != nil {
		return out, err
	}

	user, err := u.userRepo.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return out, usecase.NewNotFoundError(msgUserNotFound)
		}
		return out, err
	}
	if user.IsVerified {
		return out, usecase.NewBadRequestError(msgAlreadyVerified)
	}

	// コード消費とis_verifiedの更新は同じトランザクション
	if _, err := u.codes.ValidateCode(ctx, user.ID, in.Code); err != nil {
		return out, err
	}
	user.IsVerified = true

	out, err = u.sessions.start(ctx, user, in.Client)
	if err != nil {
		return AuthResult{}, err
	}

	recordAudit(ctx, u.audits, u.log, model.AuditLog{
		UserID:       user.ID,
		Action:       model.AuditActionEmailVerified,
		ResourceType: model.AuditResourceUser,
		ResourceID:   user.ID,
		IPAddress:    in.Client.IP,
		CreatedAt:    u.clock.Now(),
	})
	return out, nil
}
