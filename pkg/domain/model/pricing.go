package model

import (
	"bytes"
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	MaxDiscountCodeLength = 50
	PercentageScale       = 6
)

// Window is an inclusive range of calendar days in UTC.
type Window struct {
	Start time.Time
	End   time.Time
}

func NewWindow(start, end time.Time) Window {
	return Window{Start: Day(start), End: Day(end)}
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Contains reports whether the day of t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	day := Day(t)
	return !day.Before(w.Start) && !day.After(w.End)
}

func (w Window) Overlaps(other Window) bool {
	return !w.End.Before(other.Start) && !other.End.Before(w.Start)
}

// ValidateWindow is shared by discounts and promotions.
func ValidateWindow(w Window, percentage decimal.Decimal, now time.Time) error {
	today := Day(now)
	if w.Start.After(w.End) || w.Start.Before(today) || w.End.Before(today) {
		return ErrInvalidDateRange
	}
	if percentage.IsNegative() || percentage.GreaterThan(decimal.NewFromInt(1)) || !percentage.Equal(percentage.Round(PercentageScale)) {
		return ErrInvalidPercentage
	}
	return nil
}

// ApplyPercentage returns amount * (1 - percentage) rounded to cents.
func ApplyPercentage(amount, percentage decimal.Decimal) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(1).Sub(percentage)).Round(2)
}

type Discount struct {
	ID         uuid.UUID
	Code       string
	Window     Window
	Percentage decimal.Decimal
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (d *Discount) ActiveAt(t time.Time) bool { return d.Window.Contains(t) }

type Promotion struct {
	ID         uuid.UUID
	ProductID  uuid.UUID
	Window     Window
	Percentage decimal.Decimal
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (p *Promotion) ActiveAt(t time.Time) bool { return p.Window.Contains(t) }

// Precedes orders promotions competing for the same instant:
// the latest start wins, ties go to the lowest ID.
func (p *Promotion) Precedes(other *Promotion) bool {
	if !p.Window.Start.Equal(other.Window.Start) {
		return p.Window.Start.After(other.Window.Start)
	}
	return bytes.Compare(p.ID[:], other.ID[:]) < 0
}

type DiscountRepository interface {
	NextID() (uuid.UUID, error)
	Store(ctx context.Context, discount *Discount) error
	Find(ctx context.Context, id uuid.UUID) (*Discount, error)
	FindByCode(ctx context.Context, code string) (*Discount, error)
}

type PromotionRepository interface {
	NextID() (uuid.UUID, error)
	Store(ctx context.Context, promotion *Promotion) error
	Find(ctx context.Context, id uuid.UUID) (*Promotion, error)
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]Promotion, error)
}
