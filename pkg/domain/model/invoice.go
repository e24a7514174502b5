package model

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice is immutable once created.
type Invoice struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	CartID       uuid.UUID
	TrackingCode string
	SaleDate     time.Time
	Subtotal     decimal.Decimal
	Total        decimal.Decimal
	Discount     *InvoiceDiscount
	Lines        []InvoiceLine
	CreatedAt    time.Time
}

type InvoiceLine struct {
	ProductID uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

// InvoiceDiscount snapshots the discount as it was applied.
type InvoiceDiscount struct {
	DiscountID uuid.UUID
	Code       string
	Percentage decimal.Decimal
}

type InvoiceRepository interface {
	NextID() (uuid.UUID, error)
	Create(ctx context.Context, invoice *Invoice) error
	Find(ctx context.Context, id uuid.UUID) (*Invoice, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Invoice, error)
	HasPurchased(ctx context.Context, userID, productID uuid.UUID) (bool, error)
}

// PaymentProcessor is charged inside the finalize transaction. Any error
// rolls the invoice and its stock reservations back. Refund compensates a
// successful charge whose transaction failed to commit.
type PaymentProcessor interface {
	Charge(ctx context.Context, invoice *Invoice) error
	Refund(ctx context.Context, invoice *Invoice) error
}
