package models

import "time"

const (
	TransactionTypePlanCredits         = "PLAN_CREDITS"
	TransactionTypePlanCreditsAdjusted = "PLAN_CREDITS_ADJUSTED"
	TransactionTypeSpent               = "SPENT"
	TransactionTypePurchased           = "PURCHASED"
	TransactionTypeEarned              = "EARNED"
	TransactionTypeGifted              = "GIFTED"
)

// UserCredit holds the authoritative per-user credit balance. Every balance
// mutation must append exactly one CreditTransaction in the same database
// transaction.
type UserCredit struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	Balance   int64     `gorm:"not null;default:0" json:"balance"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Transactions []CreditTransaction `gorm:"foreignKey:UserCreditID" json:"-"`
}

// CreditTransaction is an immutable, append-only record of a single balance
// change. Amount is signed: grants positive, spends and deductions negative.
type CreditTransaction struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserCreditID uint      `gorm:"not null;index" json:"user_credit_id"`
	Amount       int64     `gorm:"not null" json:"amount"`
	Type         string    `gorm:"type:varchar(32);not null;index" json:"type"`
	Description  string    `gorm:"type:varchar(255)" json:"description"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
