package model

import "time"

type Frequency string

const (
	FrequencyDaily   Frequency = "DAILY"
	FrequencyWeekly  Frequency = "WEEKLY"
	FrequencyMonthly Frequency = "MONTHLY"
	FrequencyYearly  Frequency = "YEARLY"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return true
	}
	return false
}

// 定期取引のテンプレート。
// スケジューラが更新するのは last_executed_at と is_active だけ。
type Recurring struct {
	ID             string          `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         string          `gorm:"type:uuid;not null;index" json:"user_id"`
	AccountID      string          `gorm:"type:uuid;not null" json:"account_id"`
	Type           TransactionType `gorm:"type:varchar(20);not null" json:"type"`
	Amount         int64           `gorm:"not null" json:"amount"`
	CategoryID     *string         `gorm:"type:uuid" json:"category_id,omitempty"`
	Description    *string         `gorm:"type:varchar(255)" json:"description,omitempty"`
	Frequency      Frequency       `gorm:"type:varchar(10);not null" json:"frequency"`
	Interval       int             `gorm:"column:interval_count;not null;default:1" json:"interval"`
	StartDate      time.Time       `gorm:"not null" json:"start_date"`
	EndDate        *time.Time      `json:"end_date,omitempty"`
	LastExecutedAt *time.Time      `json:"last_executed_at,omitempty"`
	IsActive       bool            `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt      time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
