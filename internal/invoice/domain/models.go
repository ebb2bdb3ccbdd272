package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Status is the invoice lifecycle state. pending is the only
// non-terminal state; every transition out of it is final.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
	StatusExpired   Status = "expired"
)

// Terminal reports whether no further transition is permitted.
func (s Status) Terminal() bool {
	switch s {
	case StatusConfirmed, StatusFailed, StatusExpired:
		return true
	default:
		return false
	}
}

type Invoice struct {
	ID          snowflake.ID      `json:"id" gorm:"primaryKey"`
	InvoiceID   string            `json:"invoice_id" gorm:"type:text;not null;uniqueIndex"`
	UserID      string            `json:"user_id" gorm:"type:text;not null;index"`
	OrderID     string            `json:"order_id" gorm:"type:text;not null"`
	Amount      decimal.Decimal   `json:"amount" gorm:"type:numeric(20,2);not null"`
	Currency    string            `json:"currency" gorm:"type:text;not null"`
	Description string            `json:"description" gorm:"type:text;not null"`
	Email       string            `json:"email" gorm:"type:text"`
	Status      Status            `json:"status" gorm:"type:text;not null;index"`
	Metadata    datatypes.JSONMap `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt   time.Time         `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time         `json:"updated_at" gorm:"not null"`
	ExpiresAt   time.Time         `json:"expires_at" gorm:"not null"`
}

func (Invoice) TableName() string { return "invoices" }

// ExpiredAt reports whether a still-pending invoice has outlived its
// TTL at the given instant. Terminal invoices never expire further.
func (i *Invoice) ExpiredAt(now time.Time) bool {
	return i.Status == StatusPending && now.After(i.ExpiresAt)
}
