package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"figurestore/pkg/domain/model"
)

type sqlxReview struct {
	ID        uuid.UUID `db:"id"`
	UserID    uuid.UUID `db:"user_id"`
	ProductID uuid.UUID `db:"product_id"`
	Rating    int       `db:"rating"`
	Comment   string    `db:"comment"`
	CreatedAt time.Time `db:"created_at"`
}

const reviewColumns = "id, user_id, product_id, rating, comment, created_at"

type reviewRepository struct {
	tx *sqlx.Tx
}

func (r *reviewRepository) NextID() (uuid.UUID, error) { return uuid.NewRandom() }

func (r *reviewRepository) Create(ctx context.Context, review *model.Review) error {
	_, err := r.tx.NamedExecContext(ctx,
		"INSERT INTO review ("+reviewColumns+") VALUES (:id, :user_id, :product_id, :rating, :comment, :created_at)",
		sqlxReview(*review),
	)
	if isDuplicateEntry(err) {
		return model.ErrDuplicateReview
	}
	return errors.Wrap(err, "failed to insert review")
}

func (r *reviewRepository) FindByUserAndProduct(ctx context.Context, userID, productID uuid.UUID) (*model.Review, error) {
	var row sqlxReview
	err := get(ctx, r.tx, &row, model.ErrReviewNotFound,
		"SELECT "+reviewColumns+" FROM review WHERE user_id = ? AND product_id = ?", userID, productID)
	if err != nil {
		return nil, err
	}
	review := model.Review(row)
	return &review, nil
}

func (r *reviewRepository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.Review, error) {
	var rows []sqlxReview
	err := r.tx.SelectContext(ctx, &rows,
		"SELECT "+reviewColumns+" FROM review WHERE product_id = ? ORDER BY created_at", productID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query reviews")
	}

	reviews := make([]model.Review, 0, len(rows))
	for _, row := range rows {
		reviews = append(reviews, model.Review(row))
	}
	return reviews, nil
}

type sqlxQuestion struct {
	ID         uuid.UUID    `db:"id"`
	UserID     uuid.UUID    `db:"user_id"`
	ProductID  uuid.UUID    `db:"product_id"`
	Text       string       `db:"text"`
	Answer     string       `db:"answer"`
	CreatedAt  time.Time    `db:"created_at"`
	AnsweredAt sql.NullTime `db:"answered_at"`
}

const questionColumns = "id, user_id, product_id, text, answer, created_at, answered_at"

func (q sqlxQuestion) toModel() model.Question {
	question := model.Question{
		ID:        q.ID,
		UserID:    q.UserID,
		ProductID: q.ProductID,
		Text:      q.Text,
		Answer:    q.Answer,
		CreatedAt: q.CreatedAt,
	}
	if q.AnsweredAt.Valid {
		answeredAt := q.AnsweredAt.Time
		question.AnsweredAt = &answeredAt
	}
	return question
}

func answeredAt(question *model.Question) sql.NullTime {
	if question.AnsweredAt == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *question.AnsweredAt, Valid: true}
}

type questionRepository struct {
	tx *sqlx.Tx
}

func (r *questionRepository) NextID() (uuid.UUID, error) { return uuid.NewRandom() }

func (r *questionRepository) Create(ctx context.Context, q *model.Question) error {
	_, err := r.tx.ExecContext(ctx,
		"INSERT INTO question ("+questionColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		q.ID, q.UserID, q.ProductID, q.Text, q.Answer, q.CreatedAt, answeredAt(q),
	)
	return errors.Wrap(err, "failed to insert question")
}

func (r *questionRepository) Update(ctx context.Context, q *model.Question) error {
	result, err := r.tx.ExecContext(ctx,
		"UPDATE question SET text = ?, answer = ?, answered_at = ? WHERE id = ?",
		q.Text, q.Answer, answeredAt(q), q.ID,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update question")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to update question")
	}
	if affected == 0 {
		if _, err := r.Find(ctx, q.ID); err != nil {
			return err
		}
	}
	return nil
}

func (r *questionRepository) Find(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	var row sqlxQuestion
	err := get(ctx, r.tx, &row, model.ErrQuestionNotFound, "SELECT "+questionColumns+" FROM question WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	question := row.toModel()
	return &question, nil
}

func (r *questionRepository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.Question, error) {
	var rows []sqlxQuestion
	err := r.tx.SelectContext(ctx, &rows,
		"SELECT "+questionColumns+" FROM question WHERE product_id = ? ORDER BY created_at", productID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query questions")
	}

	questions := make([]model.Question, 0, len(rows))
	for _, row := range rows {
		questions = append(questions, row.toModel())
	}
	return questions, nil
}
