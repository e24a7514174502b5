package model

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Collection struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

type Product struct {
	ID           uuid.UUID
	CollectionID uuid.UUID
	Number       int
	Name         string
	EditionName  string
	Description  string
	ImageURL     string
	Price        decimal.Decimal
	Available    int
	Special      bool
	Shine        bool
	Version      int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const PriceScale = 2

var maxPrice = decimal.New(1, 10)

// ValidatePrice accepts non-negative amounts that fit DECIMAL(12,2) exactly.
func ValidatePrice(price decimal.Decimal) error {
	if price.IsNegative() || price.GreaterThanOrEqual(maxPrice) || !price.Equal(price.Round(PriceScale)) {
		return ErrInvalidPrice
	}
	return nil
}

// StockIntake is an append-only ledger entry.
type StockIntake struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	Quantity  int
	CreatedAt time.Time
}

type CollectionRepository interface {
	NextID() (uuid.UUID, error)
	Create(ctx context.Context, collection *Collection) error
	Find(ctx context.Context, id uuid.UUID) (*Collection, error)
	// CountByName matches names case-insensitively.
	CountByName(ctx context.Context, name string) (int, error)
}

type ProductRepository interface {
	NextID() (uuid.UUID, error)
	Create(ctx context.Context, product *Product) error
	// Update fails with ErrOptimisticLock unless product.Version is exactly one above the stored version.
	Update(ctx context.Context, product *Product) error
	Find(ctx context.Context, id uuid.UUID) (*Product, error)
	// FindForUpdate locks the product row until the surrounding unit of work ends.
	FindForUpdate(ctx context.Context, id uuid.UUID) (*Product, error)
	FindByNumber(ctx context.Context, collectionID uuid.UUID, number int) (*Product, error)
}

type StockIntakeRepository interface {
	NextID() (uuid.UUID, error)
	Append(ctx context.Context, intake *StockIntake) error
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]StockIntake, error)
}
