package model

import "errors"

// Error categories. Every specific error below matches exactly one of them with errors.Is.
var (
	ErrValidation        = errors.New("validation error")
	ErrConflict          = errors.New("conflict")
	ErrNotFound          = errors.New("resource not found")
	ErrInsufficientStock = errors.New("insufficient stock quantity")
	ErrPaymentDeclined   = errors.New("payment declined")
)

// DomainError is a sentinel error tagged with one of the categories above.
type DomainError struct {
	category error
	message  string
}

// NewError creates a sentinel in the given category. Adapters use it for their own errors.
func NewError(category error, message string) *DomainError {
	return &DomainError{category: category, message: message}
}

func (e *DomainError) Error() string { return e.message }

func (e *DomainError) Is(target error) bool { return target == e.category }

// Category returns ErrValidation, ErrConflict, ErrNotFound, ErrInsufficientStock or ErrPaymentDeclined.
func (e *DomainError) Category() error { return e.category }

var (
	ErrInvalidDateRange  = NewError(ErrValidation, "validity window must start on or before its end and not lie in the past")
	ErrInvalidPercentage = NewError(ErrValidation, "percentage must be between 0 and 1 with at most 6 decimal places")
	ErrInvalidQuantity   = NewError(ErrValidation, "quantity must be at least 1")
	ErrInvalidPrice      = NewError(ErrValidation, "price must be a non-negative amount in whole cents below 10^10")
	ErrInvalidNumber     = NewError(ErrValidation, "product number must be at least 1")
	ErrInvalidName       = NewError(ErrValidation, "name cannot be empty")
	ErrInvalidRating     = NewError(ErrValidation, "rating must be between 1 and 5")
	ErrInvalidComment    = NewError(ErrValidation, "comment is too long")
	ErrInvalidQuestion   = NewError(ErrValidation, "question text must be between 1 and 255 characters")
	ErrInvalidAnswer     = NewError(ErrValidation, "answer must be between 1 and 255 characters")
	ErrInvalidCode       = NewError(ErrValidation, "discount code must be at most 50 characters")
	ErrEmptyCart         = NewError(ErrValidation, "cannot finalize an empty cart")

	ErrDuplicateProductNumber  = NewError(ErrConflict, "product number already used in this collection")
	ErrDuplicateCollectionName = NewError(ErrConflict, "collection name already used")
	ErrDuplicateDiscountCode   = NewError(ErrConflict, "discount code already exists")
	ErrOverlappingPromotion    = NewError(ErrConflict, "product already has a promotion in this window")
	ErrDuplicateReview         = NewError(ErrConflict, "user already reviewed this product")
	ErrDiscountAlreadyAttached = NewError(ErrConflict, "cart already has a discount")
	ErrCartAlreadyFinalized    = NewError(ErrConflict, "cart is already finalized")
	ErrCartLimitReached        = NewError(ErrConflict, "user has reached the open cart limit")
	ErrOptimisticLock          = NewError(ErrConflict, "record has been modified by another transaction")
	ErrPurchaseRequired        = NewError(ErrConflict, "product must be purchased before it can be reviewed")

	ErrProductNotFound    = NewError(ErrNotFound, "product not found")
	ErrCollectionNotFound = NewError(ErrNotFound, "collection not found")
	ErrDiscountNotFound   = NewError(ErrNotFound, "discount not found")
	ErrPromotionNotFound  = NewError(ErrNotFound, "promotion not found")
	ErrCartNotFound       = NewError(ErrNotFound, "cart not found")
	ErrCartLineNotFound   = NewError(ErrNotFound, "product is not in the cart")
	ErrInvoiceNotFound    = NewError(ErrNotFound, "invoice not found")
	ErrReviewNotFound     = NewError(ErrNotFound, "review not found")
	ErrQuestionNotFound   = NewError(ErrNotFound, "question not found")
)
