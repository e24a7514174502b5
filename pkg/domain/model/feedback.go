package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	MinRating         = 1
	MaxRating         = 5
	MaxCommentLength  = 500
	MaxQuestionLength = 255
)

type Review struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	ProductID uuid.UUID
	Rating    int
	Comment   string
	CreatedAt time.Time
}

type Question struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	ProductID  uuid.UUID
	Text       string
	Answer     string
	CreatedAt  time.Time
	AnsweredAt *time.Time
}

type ReviewRepository interface {
	NextID() (uuid.UUID, error)
	// Create fails with ErrDuplicateReview when the (user, product) pair exists.
	Create(ctx context.Context, review *Review) error
	FindByUserAndProduct(ctx context.Context, userID, productID uuid.UUID) (*Review, error)
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]Review, error)
}

type QuestionRepository interface {
	NextID() (uuid.UUID, error)
	Create(ctx context.Context, question *Question) error
	Update(ctx context.Context, question *Question) error
	Find(ctx context.Context, id uuid.UUID) (*Question, error)
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]Question, error)
}
