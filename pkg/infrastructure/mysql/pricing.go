package mysql

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"figurestore/pkg/domain/model"
)

type sqlxDiscount struct {
	ID         uuid.UUID       `db:"id"`
	Code       string          `db:"code"`
	StartDate  time.Time       `db:"start_date"`
	EndDate    time.Time       `db:"end_date"`
	Percentage decimal.Decimal `db:"percentage"`
	CreatedAt  time.Time       `db:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at"`
}

const discountColumns = "id, code, start_date, end_date, percentage, created_at, updated_at"

func (d sqlxDiscount) toModel() *model.Discount {
	return &model.Discount{
		ID:         d.ID,
		Code:       d.Code,
		Window:     model.NewWindow(d.StartDate, d.EndDate),
		Percentage: d.Percentage,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

type discountRepository struct {
	tx *sqlx.Tx
}

func (r *discountRepository) NextID() (uuid.UUID, error) { return uuid.NewRandom() }

// Store upserts by id; the unique code index reports clashes with other discounts.
func (r *discountRepository) Store(ctx context.Context, d *model.Discount) error {
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO discount (`+discountColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			code = VALUES(code), start_date = VALUES(start_date), end_date = VALUES(end_date),
			percentage = VALUES(percentage), updated_at = VALUES(updated_at)`,
		d.ID, d.Code, d.Window.Start, d.Window.End, d.Percentage, d.CreatedAt, d.UpdatedAt,
	)
	if isDuplicateEntry(err) {
		return model.ErrDuplicateDiscountCode
	}
	return errors.Wrap(err, "failed to store discount")
}

func (r *discountRepository) Find(ctx context.Context, id uuid.UUID) (*model.Discount, error) {
	return r.findOne(ctx, "SELECT "+discountColumns+" FROM discount WHERE id = ?", id)
}

func (r *discountRepository) FindByCode(ctx context.Context, code string) (*model.Discount, error) {
	return r.findOne(ctx, "SELECT "+discountColumns+" FROM discount WHERE code = ?", code)
}

func (r *discountRepository) findOne(ctx context.Context, query string, args ...interface{}) (*model.Discount, error) {
	var row sqlxDiscount
	if err := get(ctx, r.tx, &row, model.ErrDiscountNotFound, query, args...); err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

type sqlxPromotion struct {
	ID         uuid.UUID       `db:"id"`
	ProductID  uuid.UUID       `db:"product_id"`
	StartDate  time.Time       `db:"start_date"`
	EndDate    time.Time       `db:"end_date"`
	Percentage decimal.Decimal `db:"percentage"`
	CreatedAt  time.Time       `db:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at"`
}

const promotionColumns = "id, product_id, start_date, end_date, percentage, created_at, updated_at"

func (p sqlxPromotion) toModel() model.Promotion {
	return model.Promotion{
		ID:         p.ID,
		ProductID:  p.ProductID,
		Window:     model.NewWindow(p.StartDate, p.EndDate),
		Percentage: p.Percentage,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

type promotionRepository struct {
	tx *sqlx.Tx
}

func (r *promotionRepository) NextID() (uuid.UUID, error) { return uuid.NewRandom() }

func (r *promotionRepository) Store(ctx context.Context, p *model.Promotion) error {
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO promotion (`+promotionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			product_id = VALUES(product_id), start_date = VALUES(start_date), end_date = VALUES(end_date),
			percentage = VALUES(percentage), updated_at = VALUES(updated_at)`,
		p.ID, p.ProductID, p.Window.Start, p.Window.End, p.Percentage, p.CreatedAt, p.UpdatedAt,
	)
	return errors.Wrap(err, "failed to store promotion")
}

func (r *promotionRepository) Find(ctx context.Context, id uuid.UUID) (*model.Promotion, error) {
	var row sqlxPromotion
	err := get(ctx, r.tx, &row, model.ErrPromotionNotFound, "SELECT "+promotionColumns+" FROM promotion WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	promotion := row.toModel()
	return &promotion, nil
}

func (r *promotionRepository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.Promotion, error) {
	var rows []sqlxPromotion
	err := r.tx.SelectContext(ctx, &rows,
		"SELECT "+promotionColumns+" FROM promotion WHERE product_id = ? ORDER BY start_date", productID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query promotions")
	}

	promotions := make([]model.Promotion, 0, len(rows))
	for _, row := range rows {
		promotions = append(promotions, row.toModel())
	}
	return promotions, nil
}
