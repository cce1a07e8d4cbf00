package auth

import (
	"context"
	"errors"
	"strings"

	"fintrack/internal/metrics"
	"fintrack/internal/repository"
	"fintrack/internal/usecase"
)

type RefreshInput struct {
	RefreshToken string
	Client       ClientInfo
}

// 検証 -> アクセストークン発行 -> 新リフレッシュトークン発行 -> 旧トークン失効
type RefreshUsecase struct {
	userRepo repository.UserRepository
	ledger   *RefreshTokenLedger
	sessions *sessionIssuer
}

func NewRefreshUsecase(
	userRepo repository.UserRepository,
	issuer AccessTokenIssuer,
	ledger *RefreshTokenLedger,
	clock Clock,
) *RefreshUsecase {
	return &RefreshUsecase{
		userRepo: userRepo,
		ledger:   ledger,
		sessions: &sessionIssuer{issuer: issuer, ledger: ledger, clock: clock},
	}
}

func (u *RefreshUsecase) Execute(ctx context.Context, in RefreshInput) (out AuthResult, err error) {
	defer func() { metrics.AuthEvent("refresh", err) }()

	presented := strings.TrimSpace(in.RefreshToken)
	if presented == "" {
		return out, usecase.NewUnauthorizedError(msgRefreshInvalid)
	}

	current, err := u.ledger.Validate(ctx, presented)
	if err != nil {
		return out, err
	}

	user, err := u.userRepo.FindByID(ctx, current.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return out, usecase.NewUnauthorizedError(msgRefreshInvalid)
		}
		return out, err
	}

	//猶予経路：発行済みの後継をそのまま返す（再ローテーションしない）
	if current.Token != presented {
		return u.sessions.result(user, current)
	}

	next, err := u.ledger.Rotate(ctx, current, in.Client.DeviceInfo, in.Client.IP)
	if err != nil {
		return out, err
	}
	return u.sessions.result(user, next)
}
