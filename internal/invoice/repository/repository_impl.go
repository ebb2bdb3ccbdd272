package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/paygate/internal/invoice/domain"
	"github.com/smallbiznis/paygate/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, invoice *domain.Invoice) error {
	res := conn.WithContext(ctx).Exec(
		`INSERT INTO invoices (
			id, invoice_id, user_id, order_id, amount, currency, description,
			email, status, metadata, created_at, updated_at, expires_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		invoice.ID,
		invoice.InvoiceID,
		invoice.UserID,
		invoice.OrderID,
		invoice.Amount,
		invoice.Currency,
		invoice.Description,
		invoice.Email,
		invoice.Status,
		invoice.Metadata,
		invoice.CreatedAt,
		invoice.UpdatedAt,
		invoice.ExpiresAt,
	)
	if res.Error != nil {
		if db.IsDuplicateKeyErr(res.Error) {
			return domain.ErrDuplicateInvoice
		}
		return res.Error
	}
	return nil
}

func (r *repo) FindByInvoiceID(ctx context.Context, conn *gorm.DB, invoiceID string) (*domain.Invoice, error) {
	var item domain.Invoice
	err := conn.WithContext(ctx).Raw(
		`SELECT id, invoice_id, user_id, order_id, amount, currency, description,
			email, status, metadata, created_at, updated_at, expires_at
		 FROM invoices
		 WHERE invoice_id = ?
		 LIMIT 1`,
		invoiceID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, domain.ErrNotFound
	}
	return &item, nil
}

// CompareAndSwapStatus transitions invoiceID from expected to next in a
// single guarded UPDATE. The guard on status makes concurrent swaps
// mutually exclusive: exactly one caller observes true.
func (r *repo) CompareAndSwapStatus(ctx context.Context, conn *gorm.DB, invoiceID string, expected, next domain.Status, now time.Time) (bool, error) {
	res := conn.WithContext(ctx).Exec(
		`UPDATE invoices
		 SET status = ?, updated_at = ?
		 WHERE invoice_id = ? AND status = ?`,
		next,
		now,
		invoiceID,
		expected,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
