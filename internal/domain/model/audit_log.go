package model

import "time"

// セキュリティ上のイベント種別
type AuditAction string

const (
	AuditActionLogin              AuditAction = "LOGIN"
	AuditActionLogout             AuditAction = "LOGOUT"
	AuditActionLogoutAll          AuditAction = "LOGOUT_ALL"
	AuditActionEmailVerified      AuditAction = "EMAIL_VERIFIED"
	AuditActionTokenReuseDetected AuditAction = "TOKEN_REUSE_DETECTED"
	AuditActionRecurringExecuted  AuditAction = "RECURRING_EXECUTED"
)

// 何に対する操作か
type AuditResourceType string

const (
	AuditResourceUser      AuditResourceType = "user"
	AuditResourceSession   AuditResourceType = "session"
	AuditResourceRecurring AuditResourceType = "recurring"
)

// 監査ログ。
// 「誰の」「何が」「どの対象に」起きたかを残す。
type AuditLog struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	//対象ユーザー
	UserID string `gorm:"type:uuid;not null;index" json:"user_id"`

	Action AuditAction `gorm:"type:varchar(50);not null;index" json:"action"`

	ResourceType AuditResourceType `gorm:"type:varchar(50);not null" json:"resource_type"`

	//対象のID（トークンファミリーID・定期取引IDなど）
	ResourceID string `gorm:"type:varchar(64);not null;default:''" json:"resource_id"`

	IPAddress string `gorm:"type:varchar(64);not null;default:''" json:"ip_address"`

	//補足情報（JSON文字列）
	DetailJSON string `gorm:"type:text" json:"detail_json"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}
