package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"figurestore/pkg/domain/model"
)

type FeedbackService interface {
	SubmitReview(ctx context.Context, userID, productID uuid.UUID, rating int, comment string) (*model.Review, error)
	Reviews(ctx context.Context, productID uuid.UUID) ([]model.Review, error)
	SubmitQuestion(ctx context.Context, userID, productID uuid.UUID, text string) (*model.Question, error)
	AnswerQuestion(ctx context.Context, questionID uuid.UUID, answer string) (*model.Question, error)
	Questions(ctx context.Context, productID uuid.UUID) ([]model.Question, error)
}

func NewFeedbackService(uow model.UnitOfWork, dispatcher model.EventDispatcher, logger logrus.FieldLogger) FeedbackService {
	return &feedbackService{
		uow:       uow,
		publisher: publisher{dispatcher: dispatcher, logger: logger},
	}
}

type feedbackService struct {
	uow       model.UnitOfWork
	publisher publisher
}

func (s *feedbackService) SubmitReview(ctx context.Context, userID, productID uuid.UUID, rating int, comment string) (*model.Review, error) {
	if rating < model.MinRating || rating > model.MaxRating {
		return nil, model.ErrInvalidRating
	}
	comment = strings.TrimSpace(comment)
	if utf8.RuneCountInString(comment) > model.MaxCommentLength {
		return nil, model.ErrInvalidComment
	}

	var (
		review *model.Review
		rec    eventRecorder
	)
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		if _, err := provider.ProductRepository().Find(ctx, productID); err != nil {
			return err
		}

		purchased, err := provider.InvoiceRepository().HasPurchased(ctx, userID, productID)
		if err != nil {
			return err
		}
		if !purchased {
			return model.ErrPurchaseRequired
		}

		repo := provider.ReviewRepository()
		_, err = repo.FindByUserAndProduct(ctx, userID, productID)
		if err == nil {
			return model.ErrDuplicateReview
		}
		if !isNotFound(err) {
			return err
		}

		id, err := repo.NextID()
		if err != nil {
			return err
		}
		review = &model.Review{
			ID:        id,
			UserID:    userID,
			ProductID: productID,
			Rating:    rating,
			Comment:   comment,
			CreatedAt: now(),
		}
		if err := repo.Create(ctx, review); err != nil {
			return err
		}
		rec.record(model.ReviewSubmitted{ReviewID: id, ProductID: productID, Rating: rating})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.publish(&rec)
	return review, nil
}

func (s *feedbackService) Reviews(ctx context.Context, productID uuid.UUID) ([]model.Review, error) {
	var reviews []model.Review
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		var err error
		reviews, err = provider.ReviewRepository().ListByProduct(ctx, productID)
		return err
	})
	return reviews, err
}

func (s *feedbackService) SubmitQuestion(ctx context.Context, userID, productID uuid.UUID, text string) (*model.Question, error) {
	text = strings.TrimSpace(text)
	if !validText(text, model.MaxQuestionLength) {
		return nil, model.ErrInvalidQuestion
	}

	var (
		question *model.Question
		rec      eventRecorder
	)
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		if _, err := provider.ProductRepository().Find(ctx, productID); err != nil {
			return err
		}

		repo := provider.QuestionRepository()
		id, err := repo.NextID()
		if err != nil {
			return err
		}
		question = &model.Question{
			ID:        id,
			UserID:    userID,
			ProductID: productID,
			Text:      text,
			CreatedAt: now(),
		}
		if err := repo.Create(ctx, question); err != nil {
			return err
		}
		rec.record(model.QuestionAsked{QuestionID: id, ProductID: productID})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.publish(&rec)
	return question, nil
}

// AnswerQuestion overwrites any previous answer.
func (s *feedbackService) AnswerQuestion(ctx context.Context, questionID uuid.UUID, answer string) (*model.Question, error) {
	answer = strings.TrimSpace(answer)
	if !validText(answer, model.MaxQuestionLength) {
		return nil, model.ErrInvalidAnswer
	}

	var (
		question *model.Question
		rec      eventRecorder
	)
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		repo := provider.QuestionRepository()
		var err error
		question, err = repo.Find(ctx, questionID)
		if err != nil {
			return err
		}

		answeredAt := now()
		question.Answer = answer
		question.AnsweredAt = &answeredAt
		if err := repo.Update(ctx, question); err != nil {
			return err
		}
		rec.record(model.QuestionAnswered{QuestionID: questionID, UserID: question.UserID})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.publish(&rec)
	return question, nil
}

func (s *feedbackService) Questions(ctx context.Context, productID uuid.UUID) ([]model.Question, error) {
	var questions []model.Question
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		var err error
		questions, err = provider.QuestionRepository().ListByProduct(ctx, productID)
		return err
	})
	return questions, err
}

func validText(text string, maxLength int) bool {
	n := utf8.RuneCountInString(text)
	return n > 0 && n <= maxLength
}
