package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Repository is the capability surface of the payment record store.
// CompareAndSwapStatus is the only status mutation: a single guarded
// UPDATE whose false return means another delivery won the race.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	FindByInvoiceID(ctx context.Context, db *gorm.DB, invoiceID string) (*Invoice, error)
	CompareAndSwapStatus(ctx context.Context, db *gorm.DB, invoiceID string, expected, next Status, now time.Time) (bool, error)
}
