package repository

import (
	"context"

	"fintrack/internal/domain/model"
)

// セキュリティイベント一覧のページング既定値
const (
	DefaultSecurityEventsLimit = 50
	MaxSecurityEventsLimit     = 200
)

// ユーザー1人分のセキュリティイベントのページ指定
type AuditLogFilter struct {
	UserID string
	Limit  int
	Offset int
}

// 範囲外の limit は既定値、負の offset は0に寄せる
func (f AuditLogFilter) Page() (limit int, offset int) {
	limit = f.Limit
	if limit <= 0 || limit > MaxSecurityEventsLimit {
		limit = DefaultSecurityEventsLimit
	}
	offset = f.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// 監査ログの保存と、ユーザー単位の一覧
type AuditLogRepository interface {
	//1件保存（ベストエフォートで呼ばれる）
	Create(ctx context.Context, log model.AuditLog) error

	//filter.UserID のイベントを新しい順に
	List(ctx context.Context, filter AuditLogFilter) ([]model.AuditLog, error)
}
