package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"figurestore/pkg/domain/model"
)

type sqlxInvoice struct {
	ID                 uuid.UUID           `db:"id"`
	UserID             uuid.UUID           `db:"user_id"`
	CartID             uuid.UUID           `db:"cart_id"`
	TrackingCode       string              `db:"tracking_code"`
	SaleDate           time.Time           `db:"sale_date"`
	Subtotal           decimal.Decimal     `db:"subtotal"`
	Total              decimal.Decimal     `db:"total"`
	DiscountID         uuid.NullUUID       `db:"discount_id"`
	DiscountCode       sql.NullString      `db:"discount_code"`
	DiscountPercentage decimal.NullDecimal `db:"discount_percentage"`
	CreatedAt          time.Time           `db:"created_at"`
}

type sqlxInvoiceLine struct {
	ProductID uuid.UUID       `db:"product_id"`
	Quantity  int             `db:"quantity"`
	UnitPrice decimal.Decimal `db:"unit_price"`
	LineTotal decimal.Decimal `db:"line_total"`
}

const invoiceColumns = "id, user_id, cart_id, tracking_code, sale_date, subtotal, total, " +
	"discount_id, discount_code, discount_percentage, created_at"

type invoiceRepository struct {
	tx *sqlx.Tx
}

func (r *invoiceRepository) NextID() (uuid.UUID, error) { return uuid.NewRandom() }

func (r *invoiceRepository) Create(ctx context.Context, invoice *model.Invoice) error {
	row := sqlxInvoice{
		ID:           invoice.ID,
		UserID:       invoice.UserID,
		CartID:       invoice.CartID,
		TrackingCode: invoice.TrackingCode,
		SaleDate:     invoice.SaleDate,
		Subtotal:     invoice.Subtotal,
		Total:        invoice.Total,
		CreatedAt:    invoice.CreatedAt,
	}
	if d := invoice.Discount; d != nil {
		row.DiscountID = uuid.NullUUID{UUID: d.DiscountID, Valid: true}
		row.DiscountCode = sql.NullString{String: d.Code, Valid: true}
		row.DiscountPercentage = decimal.NullDecimal{Decimal: d.Percentage, Valid: true}
	}

	_, err := r.tx.NamedExecContext(ctx, `
		INSERT INTO invoice (`+invoiceColumns+`) VALUES (
			:id, :user_id, :cart_id, :tracking_code, :sale_date, :subtotal, :total,
			:discount_id, :discount_code, :discount_percentage, :created_at
		)`, row)
	if err != nil {
		return errors.Wrap(err, "failed to insert invoice")
	}

	for i, line := range invoice.Lines {
		_, err := r.tx.ExecContext(ctx, `
			INSERT INTO invoice_line (invoice_id, product_id, position, quantity, unit_price, line_total)
			VALUES (?, ?, ?, ?, ?, ?)`,
			invoice.ID, line.ProductID, i, line.Quantity, line.UnitPrice, line.LineTotal,
		)
		if err != nil {
			return errors.Wrap(err, "failed to insert invoice line")
		}
	}
	return nil
}

func (r *invoiceRepository) Find(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	var row sqlxInvoice
	err := get(ctx, r.tx, &row, model.ErrInvoiceNotFound, "SELECT "+invoiceColumns+" FROM invoice WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	return r.withLines(ctx, row)
}

func (r *invoiceRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Invoice, error) {
	var rows []sqlxInvoice
	err := r.tx.SelectContext(ctx, &rows,
		"SELECT "+invoiceColumns+" FROM invoice WHERE user_id = ? ORDER BY created_at", userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query invoices")
	}

	invoices := make([]model.Invoice, 0, len(rows))
	for _, row := range rows {
		invoice, err := r.withLines(ctx, row)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, *invoice)
	}
	return invoices, nil
}

func (r *invoiceRepository) HasPurchased(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	var count int
	err := r.tx.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM invoice_line l
		JOIN invoice i ON i.id = l.invoice_id
		WHERE i.user_id = ? AND l.product_id = ?`,
		userID, productID,
	)
	if err != nil {
		return false, errors.Wrap(err, "failed to query purchases")
	}
	return count > 0, nil
}

func (r *invoiceRepository) withLines(ctx context.Context, row sqlxInvoice) (*model.Invoice, error) {
	var lines []sqlxInvoiceLine
	err := r.tx.SelectContext(ctx, &lines,
		"SELECT product_id, quantity, unit_price, line_total FROM invoice_line WHERE invoice_id = ? ORDER BY position", row.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query invoice lines")
	}

	invoice := &model.Invoice{
		ID:           row.ID,
		UserID:       row.UserID,
		CartID:       row.CartID,
		TrackingCode: row.TrackingCode,
		SaleDate:     row.SaleDate,
		Subtotal:     row.Subtotal,
		Total:        row.Total,
		CreatedAt:    row.CreatedAt,
	}
	if row.DiscountID.Valid {
		invoice.Discount = &model.InvoiceDiscount{
			DiscountID: row.DiscountID.UUID,
			Code:       row.DiscountCode.String,
			Percentage: row.DiscountPercentage.Decimal,
		}
	}
	for _, line := range lines {
		invoice.Lines = append(invoice.Lines, model.InvoiceLine(line))
	}
	return invoice, nil
}
