package auth

import (
	"context"

	"fintrack/internal/domain/model"
	"fintrack/internal/repository"

	"go.uber.org/zap"
)

// 監査ログは失敗しても本処理を止めない
func recordAudit(ctx context.Context, audits repository.AuditLogRepository, log *zap.Logger, entry model.AuditLog) {
	if audits == nil {
		return
	}
	if err := audits.Create(ctx, entry); err != nil {
		log.Error("write audit log",
			zap.String("action", string(entry.Action)),
			zap.String("user_id", entry.UserID),
			zap.Error(err),
		)
	}
}
