package auth

import (
	"context"
	"errors"
	"time"

	"fintrack/internal/domain/model"
	"fintrack/internal/repository"
	"fintrack/internal/usecase"
)

type GetMeUsecase struct {
	userRepo repository.UserRepository
}

func NewGetMeUsecase(userRepo repository.UserRepository) *GetMeUsecase {
	return &GetMeUsecase{userRepo: userRepo}
}

func (u *GetMeUsecase) Execute(ctx context.Context, userID string) (model.User, error) {
	user, err := u.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.User{}, usecase.NewNotFoundError(msgUserNotFound)
		}
		return model.User{}, err
	}
	return user.Safe(), nil
}

// セッション一覧の1件。トークン文字列は含めない。
type SessionDTO struct {
	ID         string    `json:"id"`
	DeviceInfo string    `json:"device_info"`
	IPAddress  string    `json:"ip_address"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

type ActiveSessionsUsecase struct {
	ledger *RefreshTokenLedger
}

func NewActiveSessionsUsecase(ledger *RefreshTokenLedger) *ActiveSessionsUsecase {
	return &ActiveSessionsUsecase{ledger: ledger}
}

// 失効しておらず期限内のトークンだけ
func (u *ActiveSessionsUsecase) Execute(ctx context.Context, userID string) ([]SessionDTO, error) {
	tokens, err := u.ledger.ActiveForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	sessions := make([]SessionDTO, 0, len(tokens))
	for _, t := range tokens {
		sessions = append(sessions, SessionDTO{
			ID:         t.ID,
			DeviceInfo: t.DeviceInfo,
			IPAddress:  t.IPAddress,
			CreatedAt:  t.CreatedAt,
			ExpiresAt:  t.ExpiresAt,
		})
	}
	return sessions, nil
}

// 自分のセキュリティイベント（監査ログ）
type SecurityEventsUsecase struct {
	audits repository.AuditLogRepository
}

func NewSecurityEventsUsecase(audits repository.AuditLogRepository) *SecurityEventsUsecase {
	return &SecurityEventsUsecase{audits: audits}
}

func (u *SecurityEventsUsecase) Execute(ctx context.Context, userID string, limit int, offset int) ([]model.AuditLog, error) {
	return u.audits.List(ctx, repository.AuditLogFilter{
		UserID: userID,
		Limit:  limit,
		Offset: offset,
	})
}
