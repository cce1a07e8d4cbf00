package model

import "time"

// 発行済みリフレッシュトークン。
// revokeしても削除せず、期限切れの掃除でのみ消える。
type RefreshToken struct {
	ID         string    `gorm:"type:uuid;primaryKey" json:"id"`
	Token      string    `gorm:"type:varchar(128);not null;uniqueIndex" json:"-"`
	UserID     string    `gorm:"type:uuid;not null;index" json:"user_id"`
	FamilyID   string    `gorm:"type:uuid;not null;index" json:"family_id"`
	DeviceInfo string    `gorm:"type:varchar(255);not null;default:''" json:"device_info"`
	IPAddress  string    `gorm:"type:varchar(64);not null;default:''" json:"ip_address"`
	ExpiresAt  time.Time `gorm:"not null;index" json:"expires_at"`
	IsRevoked  bool      `gorm:"not null;default:false;index" json:"is_revoked"`
	// 置き換え先トークン文字列（ローテーション時のみ）
	ReplacedBy *string   `gorm:"type:varchar(128)" json:"-"`
	CreatedAt  time.Time `gorm:"not null;index" json:"created_at"`
}

func (t *RefreshToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// 失効しておらず期限内
func (t *RefreshToken) IsUsable(now time.Time) bool {
	return !t.IsRevoked && !t.IsExpired(now)
}
