package model

import "time"

type AccountType string

const (
	AccountTypeCash    AccountType = "CASH"
	AccountTypeDebit   AccountType = "DEBIT"
	AccountTypeCredit  AccountType = "CREDIT"
	AccountTypeSavings AccountType = "SAVINGS"
)

type Account struct {
	ID     string      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID string      `gorm:"type:uuid;not null;index" json:"user_id"`
	Name   string      `gorm:"type:varchar(100);not null" json:"name"`
	Type   AccountType `gorm:"type:varchar(20);not null" json:"type"`
	// 最小通貨単位（セント等）
	CurrentBalance int64     `gorm:"not null;default:0" json:"current_balance"`
	Currency       string    `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	IsActive       bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
