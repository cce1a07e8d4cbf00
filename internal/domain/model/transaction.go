package model

import "time"

type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "INCOME"
	TransactionTypeExpense TransactionType = "EXPENSE"
)

// 口座残高に対する符号付きの増減
func (t TransactionType) SignedAmount(amount int64) int64 {
	if t == TransactionTypeExpense {
		return -amount
	}
	return amount
}

type Transaction struct {
	ID          string          `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      string          `gorm:"type:uuid;not null;index" json:"user_id"`
	AccountID   string          `gorm:"type:uuid;not null;index" json:"account_id"`
	Type        TransactionType `gorm:"type:varchar(20);not null" json:"type"`
	Amount      int64           `gorm:"not null" json:"amount"`
	CategoryID  *string         `gorm:"type:uuid" json:"category_id,omitempty"`
	Description string          `gorm:"type:varchar(255);not null;default:''" json:"description"`
	Date        time.Time       `gorm:"not null;index" json:"date"`
	RecurringID *string         `gorm:"type:uuid;index" json:"recurring_id,omitempty"`
	CreatedAt   time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
}
