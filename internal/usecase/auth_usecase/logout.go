package auth

import (
	"context"
	"errors"
	"strings"

	"fintrack/internal/domain/model"
	"fintrack/internal/metrics"
	"fintrack/internal/repository"

	"go.uber.org/zap"
)

// ログアウト（トークン単体の失効）。無いトークンでもエラーにしない。
type LogoutUsecase struct {
	tokens repository.RefreshTokenRepository
	ledger *RefreshTokenLedger
	audits repository.AuditLogRepository
	clock  Clock
	log    *zap.Logger
}

func NewLogoutUsecase(
	tokens repository.RefreshTokenRepository,
	ledger *RefreshTokenLedger,
	audits repository.AuditLogRepository,
	clock Clock,
	log *zap.Logger,
) *LogoutUsecase {
	return &LogoutUsecase{tokens: tokens, ledger: ledger, audits: audits, clock: clock, log: log}
}

func (u *LogoutUsecase) Execute(ctx context.Context, refreshToken string) (err error) {
	defer func() { metrics.AuthEvent("logout", err) }()

	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil
	}

	rt, err := u.tokens.FindByToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			return nil
		}
		return err
	}
	if rt.IsRevoked {
		return nil
	}

	if err := u.ledger.Revoke(ctx, rt, nil); err != nil {
		return err
	}

	recordAudit(ctx, u.audits, u.log, model.AuditLog{
		UserID:       rt.UserID,
		Action:       model.AuditActionLogout,
		ResourceType: model.AuditResourceSession,
		ResourceID:   rt.FamilyID,
		IPAddress:    rt.IPAddress,
		CreatedAt:    u.clock.Now(),
	})
	return nil
}

// 全端末からログアウト（削除ではなく一括失効）
type LogoutAllUsecase struct {
	ledger *RefreshTokenLedger
	audits repository.AuditLogRepository
	clock  Clock
	log    *zap.Logger
}

func NewLogoutAllUsecase(
	ledger *RefreshTokenLedger,
	audits repository.AuditLogRepository,
	clock Clock,
	log *zap.Logger,
) *LogoutAllUsecase {
	return &LogoutAllUsecase{ledger: ledger, audits: audits, clock: clock, log: log}
}

func (u *LogoutAllUsecase) Execute(ctx context.Context, userID string) (revoked int64, err error) {
	defer func() { metrics.AuthEvent("logout_all", err) }()

	revoked, err = u.ledger.RevokeAllForUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	recordAudit(ctx, u.audits, u.log, model.AuditLog{
		UserID:       userID,
		Action:       model.AuditActionLogoutAll,
		ResourceType: model.AuditResourceUser,
		ResourceID:   userID,
		CreatedAt:    u.clock.Now(),
	})
	return revoked, nil
}
