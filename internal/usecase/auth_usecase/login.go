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

// 存在しないemailと誤パスワードで同じ文言にする
const msgInvalidCredentials = "Credenciales inválidas"

const msgEmailNotVerified = "Debes verificar tu email antes de iniciar sesión"

// handlerからusecaseに渡す入力
type LoginInput struct {
	Email    string
	Password string
	Client   ClientInfo
}

type LoginUsecase struct {
	userRepo  repository.UserRepository
	audits    repository.AuditLogRepository
	validator AuthValidator
	verifier  PasswordVerifier
	sessions  *sessionIssuer
	clock     Clock
	log       *zap.Logger

	// ユーザーが居ないときも照合してかかる時間を揃える
	timingHash string
}

func NewLoginUsecase(
	userRepo repository.UserRepository,
	audits repository.AuditLogRepository,
	validator AuthValidator,
	verifier PasswordVerifier,
	issuer AccessTokenIssuer,
	ledger *RefreshTokenLedger,
	clock Clock,
	log *zap.Logger,
	timingHash string,
) *LoginUsecase {
	return &LoginUsecase{
		userRepo:   userRepo,
		audits:     audits,
		validator:  validator,
		verifier:   verifier,
		sessions:   &sessionIssuer{issuer: issuer, ledger: ledger, clock: clock},
		clock:      clock,
		log:        log,
		timingHash: timingHash,
	}
}

// ログイン処理を実行する
func (u *LoginUsecase) Execute(ctx context.Context, in LoginInput) (out AuthResult, err error) {
	defer func() { metrics.AuthEvent("login", err) }()

	in.Email = normalizeEmail(in.Email)
	if err := u.validator.ValidateLogin(ctx, in.Email, in.Password); err != nil {
		return out, err
	}

	//emailでユーザー取得
	user, err := u.userRepo.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			u.verifier.Verify(in.Password, u.timingHash)
			return out, usecase.NewUnauthorizedError(msgInvalidCredentials)
		}
		return out, err
	}

	//パスワード照合
	if ok := u.verifier.Verify(in.Password, user.PasswordHash); !ok {
		return out, usecase.NewUnauthorizedError(msgInvalidCredentials)
	}

	//未認証ユーザーはログイン不可
	if !user.IsVerified {
		return out, usecase.NewForbiddenError(msgEmailNotVerified)
	}

	out, err = u.sessions.start(ctx, user, in.Client)
	if err != nil {
		return AuthResult{}, err
	}

	recordAudit(ctx, u.audits, u.log, model.AuditLog{
		UserID:       user.ID,
		Action:       model.AuditActionLogin,
		ResourceType: model.AuditResourceUser,
		ResourceID:   user.ID,
		IPAddress:    in.Client.IP,
		CreatedAt:    u.clock.Now(),
	})
	return out, nil
}
