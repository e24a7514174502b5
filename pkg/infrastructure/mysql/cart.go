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

type sqlxCart struct {
	ID         uuid.UUID     `db:"id"`
	UserID     uuid.UUID     `db:"user_id"`
	Status     int           `db:"status"`
	DiscountID uuid.NullUUID `db:"discount_id"`
	Version    int           `db:"version"`
	CreatedAt  time.Time     `db:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at"`
}

type sqlxCartLine struct {
	ProductID uuid.UUID       `db:"product_id"`
	Quantity  int             `db:"quantity"`
	UnitPrice decimal.Decimal `db:"unit_price"`
}

const cartColumns = "id, user_id, status, discount_id, version, created_at, updated_at"

type cartRepository struct {
	tx *sqlx.Tx
}

func (r *cartRepository) NextID() (uuid.UUID, error) { return uuid.NewRandom() }

func (r *cartRepository) Create(ctx context.Context, cart *model.Cart) error {
	_, err := r.tx.ExecContext(ctx,
		"INSERT INTO cart ("+cartColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		cart.ID, cart.UserID, int(cart.Status), nullUUID(cart.DiscountID), cart.Version, cart.CreatedAt, cart.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to insert cart")
	}
	return r.insertLines(ctx, cart)
}

// Update rewrites the cart row under its version guard, then replaces every line.
func (r *cartRepository) Update(ctx context.Context, cart *model.Cart) error {
	err := versionedUpdate(ctx, r.tx, "cart", model.ErrCartNotFound,
		"UPDATE cart SET status = ?, discount_id = ?, version = ?, updated_at = ? WHERE id = ? AND version = ?",
		int(cart.Status), nullUUID(cart.DiscountID), cart.Version, cart.UpdatedAt,
		cart.ID, cart.Version-1,
	)
	if err != nil {
		return err
	}

	if _, err := r.tx.ExecContext(ctx, "DELETE FROM cart_line WHERE cart_id = ?", cart.ID); err != nil {
		return errors.Wrap(err, "failed to delete cart lines")
	}
	return r.insertLines(ctx, cart)
}

func (r *cartRepository) insertLines(ctx context.Context, cart *model.Cart) error {
	for i, line := range cart.Lines {
		_, err := r.tx.ExecContext(ctx,
			"INSERT INTO cart_line (cart_id, product_id, position, quantity, unit_price) VALUES (?, ?, ?, ?, ?)",
			cart.ID, line.ProductID, i, line.Quantity, line.UnitPrice,
		)
		if err != nil {
			return errors.Wrap(err, "failed to insert cart line")
		}
	}
	return nil
}

func (r *cartRepository) Find(ctx context.Context, id uuid.UUID) (*model.Cart, error) {
	return r.findOne(ctx, "SELECT "+cartColumns+" FROM cart WHERE id = ?", id)
}

func (r *cartRepository) FindForUpdate(ctx context.Context, id uuid.UUID) (*model.Cart, error) {
	return r.findOne(ctx, "SELECT "+cartColumns+" FROM cart WHERE id = ? FOR UPDATE", id)
}

func (r *cartRepository) CountOpenByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	// Locking the user's carts keeps two concurrent CreateCart calls from both passing the limit.
	err := r.tx.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM cart WHERE user_id = ? AND status = ? FOR UPDATE", userID, int(model.CartOpen))
	return count, errors.Wrap(err, "failed to count carts")
}

func (r *cartRepository) findOne(ctx context.Context, query string, args ...interface{}) (*model.Cart, error) {
	var row sqlxCart
	if err := get(ctx, r.tx, &row, model.ErrCartNotFound, query, args...); err != nil {
		return nil, err
	}

	var lines []sqlxCartLine
	err := r.tx.SelectContext(ctx, &lines,
		"SELECT product_id, quantity, unit_price FROM cart_line WHERE cart_id = ? ORDER BY position", row.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query cart lines")
	}

	cart := &model.Cart{
		ID:        row.ID,
		UserID:    row.UserID,
		Status:    model.CartStatus(row.Status),
		Version:   row.Version,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if row.DiscountID.Valid {
		discountID := row.DiscountID.UUID
		cart.DiscountID = &discountID
	}
	for _, line := range lines {
		cart.Lines = append(cart.Lines, model.CartLine(line))
	}
	return cart, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}
