package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Event interface {
	Type() string
}

type EventDispatcher interface {
	Dispatch(event Event) error
}

type ProductCreated struct {
	ProductID    uuid.UUID
	CollectionID uuid.UUID
	Number       int
}

func (e ProductCreated) Type() string { return "ProductCreated" }

type ProductUpdated struct {
	ProductID uuid.UUID
}

func (e ProductUpdated) Type() string { return "ProductUpdated" }

type ProductStockChanged struct {
	ProductID    uuid.UUID
	ChangeAmount int // positive for intakes, negative for reservations
	NewQuantity  int
}

func (e ProductStockChanged) Type() string { return "ProductStockChanged" }

type ProductStockLow struct {
	ProductID uuid.UUID
	Available int
	Threshold int
}

func (e ProductStockLow) Type() string { return "ProductStockLow" }

type DiscountSaved struct {
	DiscountID uuid.UUID
	Code       string
}

func (e DiscountSaved) Type() string { return "DiscountSaved" }

type PromotionSaved struct {
	PromotionID uuid.UUID
	ProductID   uuid.UUID
}

func (e PromotionSaved) Type() string { return "PromotionSaved" }

// PromotionConflictDetected reports overlapping promotions found at resolution time.
type PromotionConflictDetected struct {
	ProductID    uuid.UUID
	PromotionIDs []uuid.UUID
	ChosenID     uuid.UUID
}

func (e PromotionConflictDetected) Type() string { return "PromotionConflictDetected" }

type CartCreated struct {
	CartID uuid.UUID
	UserID uuid.UUID
}

func (e CartCreated) Type() string { return "CartCreated" }

type CartLineChanged struct {
	CartID    uuid.UUID
	ProductID uuid.UUID
	Quantity  int // zero when the line was removed
}

func (e CartLineChanged) Type() string { return "CartLineChanged" }

type DiscountAttached struct {
	CartID     uuid.UUID
	DiscountID uuid.UUID
}

func (e DiscountAttached) Type() string { return "DiscountAttached" }

type DiscountDetached struct {
	CartID uuid.UUID
}

func (e DiscountDetached) Type() string { return "DiscountDetached" }

type InvoiceCreated struct {
	InvoiceID uuid.UUID
	CartID    uuid.UUID
	UserID    uuid.UUID
	Total     decimal.Decimal
}

func (e InvoiceCreated) Type() string { return "InvoiceCreated" }

type ReviewSubmitted struct {
	ReviewID  uuid.UUID
	ProductID uuid.UUID
	Rating    int
}

func (e ReviewSubmitted) Type() string { return "ReviewSubmitted" }

type QuestionAsked struct {
	QuestionID uuid.UUID
	ProductID  uuid.UUID
}

func (e QuestionAsked) Type() string { return "QuestionAsked" }

type QuestionAnswered struct {
	QuestionID uuid.UUID
	UserID     uuid.UUID
}

func (e QuestionAnswered) Type() string { return "QuestionAnswered" }
