package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/paygate/internal/invoice/domain"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := []string{
		`CREATE TABLE invoices (
			id BIGINT PRIMARY KEY,
			invoice_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			order_id TEXT NOT NULL,
			amount NUMERIC NOT NULL,
			currency TEXT NOT NULL,
			description TEXT NOT NULL,
			email TEXT,
			status TEXT NOT NULL,
			metadata TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			expires_at TIMESTAMP NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_invoices_invoice_id ON invoices(invoice_id)`,
	}

	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("schema exec failed: %v", err)
		}
	}

	return db
}

func newInvoice(t *testing.T, node *snowflake.Node, invoiceID string) *domain.Invoice {
	t.Helper()

	now := time.Now().UTC()
	return &domain.Invoice{
		ID:          node.Generate(),
		InvoiceID:   invoiceID,
		UserID:      "user-1",
		OrderID:     "order-1",
		Amount:      decimal.RequireFromString("250.00"),
		Currency:    "RUB",
		Description: "Pro plan, monthly",
		Email:       "buyer@example.com",
		Status:      domain.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(time.Hour),
	}
}

func TestInsertAndFind(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	repo := Provide()
	inv := newInvoice(t, node, "user-1:order-1:abc")
	if err := repo.Insert(ctx, db, inv); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := repo.FindByInvoiceID(ctx, db, "user-1:order-1:abc")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Status != domain.StatusPending {
		t.Fatalf("expected status pending, got %s", got.Status)
	}
	if !got.Amount.Equal(inv.Amount) {
		t.Fatalf("expected amount %s, got %s", inv.Amount, got.Amount)
	}
}

func TestInsertDuplicateInvoiceID(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	node, err := snowflake.NewNode(2)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	repo := Provide()
	if err := repo.Insert(ctx, db, newInvoice(t, node, "dup-1")); err != nil {
		t.Fatalf("insert: %v", err)
	}

	err = repo.Insert(ctx, db, newInvoice(t, node, "dup-1"))
	if !errors.Is(err, domain.ErrDuplicateInvoice) {
		t.Fatalf("expected ErrDuplicateInvoice, got %v", err)
	}
}

func TestFindMissingInvoice(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	repo := Provide()
	_, err := repo.FindByInvoiceID(ctx, db, "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCompareAndSwapStatus(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	node, err := snowflake.NewNode(3)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	repo := Provide()
	if err := repo.Insert(ctx, db, newInvoice(t, node, "cas-1")); err != nil {
		t.Fatalf("insert: %v", err)
	}

	now := time.Now().UTC()
	swapped, err := repo.CompareAndSwapStatus(ctx, db, "cas-1", domain.StatusPending, domain.StatusConfirmed, now)
	if err != nil {
		t.Fatalf("cas: %v", err)
	}
	if !swapped {
		t.Fatalf("expected first swap to win")
	}

	swapped, err = repo.CompareAndSwapStatus(ctx, db, "cas-1", domain.StatusPending, domain.StatusFailed, now)
	if err != nil {
		t.Fatalf("cas: %v", err)
	}
	if swapped {
		t.Fatalf("expected second swap to lose")
	}

	got, err := repo.FindByInvoiceID(ctx, db, "cas-1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Status != domain.StatusConfirmed {
		t.Fatalf("expected status confirmed, got %s", got.Status)
	}
}
