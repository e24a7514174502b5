package model

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CartStatus int

const (
	CartOpen CartStatus = iota
	CartClosed
)

type Cart struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Status     CartStatus
	DiscountID *uuid.UUID
	Lines      []CartLine
	Version    int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type CartLine struct {
	ProductID uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal // resolved price when the line last changed
}

func (c *Cart) Line(productID uuid.UUID) (int, bool) {
	for i, line := range c.Lines {
		if line.ProductID == productID {
			return i, true
		}
	}
	return -1, false
}

// Quote is a cart total evaluated at a given instant.
type Quote struct {
	CartID   uuid.UUID
	At       time.Time
	Lines    []QuoteLine
	Subtotal decimal.Decimal
	Discount *Discount // nil when no discount is active at At
	Total    decimal.Decimal
}

type QuoteLine struct {
	ProductID uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

type CartRepository interface {
	NextID() (uuid.UUID, error)
	Create(ctx context.Context, cart *Cart) error
	// Update replaces the lines and fails with ErrOptimisticLock on a stale version.
	Update(ctx context.Context, cart *Cart) error
	Find(ctx context.Context, id uuid.UUID) (*Cart, error)
	FindForUpdate(ctx context.Context, id uuid.UUID) (*Cart, error)
	CountOpenByUser(ctx context.Context, userID uuid.UUID) (int, error)
}
