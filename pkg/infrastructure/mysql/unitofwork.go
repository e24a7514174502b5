package mysql

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"figurestore/pkg/domain/model"
)

type UnitOfWork struct {
	db     *sqlx.DB
	logger logrus.FieldLogger
}

func NewUnitOfWork(db *sqlx.DB, logger logrus.FieldLogger) *UnitOfWork {
	return &UnitOfWork{db: db, logger: logger}
}

// Execute runs f in a REPEATABLE READ transaction. Errors returned by f are passed
// through untouched so that domain error categories survive.
func (u *UnitOfWork) Execute(ctx context.Context, f func(provider model.RepositoryProvider) error) error {
	tx, err := u.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}

	if err := f(&repositoryProvider{tx: tx}); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			u.logger.WithError(rollbackErr).Error("failed to rollback transaction")
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "failed to commit transaction")
}

type repositoryProvider struct {
	tx *sqlx.Tx
}

func (p *repositoryProvider) CollectionRepository() model.CollectionRepository {
	return &collectionRepository{tx: p.tx}
}

func (p *repositoryProvider) ProductRepository() model.ProductRepository {
	return &productRepository{tx: p.tx}
}

func (p *repositoryProvider) StockIntakeRepository() model.StockIntakeRepository {
	return &stockIntakeRepository{tx: p.tx}
}

func (p *repositoryProvider) DiscountRepository() model.DiscountRepository {
	return &discountRepository{tx: p.tx}
}

func (p *repositoryProvider) PromotionRepository() model.PromotionRepository {
	return &promotionRepository{tx: p.tx}
}

func (p *repositoryProvider) CartRepository() model.CartRepository {
	return &cartRepository{tx: p.tx}
}

func (p *repositoryProvider) InvoiceRepository() model.InvoiceRepository {
	return &invoiceRepository{tx: p.tx}
}

func (p *repositoryProvider) ReviewRepository() model.ReviewRepository {
	return &reviewRepository{tx: p.tx}
}

func (p *repositoryProvider) QuestionRepository() model.QuestionRepository {
	return &questionRepository{tx: p.tx}
}

// get maps sql.ErrNoRows to the given domain error.
func get(ctx context.Context, tx *sqlx.Tx, dest interface{}, notFound error, query string, args ...interface{}) error {
	err := tx.GetContext(ctx, dest, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return errors.Wrap(err, "failed to query row")
}

// versionedUpdate runs an UPDATE guarded by "version = ?" and tells a stale version apart from a missing row.
func versionedUpdate(ctx context.Context, tx *sqlx.Tx, table string, notFound error, query string, args ...interface{}) error {
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrapf(err, "failed to update %s", table)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "failed to update %s", table)
	}
	if affected == 1 {
		return nil
	}

	var exists int
	id := args[len(args)-2]
	if err := get(ctx, tx, &exists, notFound, "SELECT 1 FROM "+table+" WHERE id = ?", id); err != nil {
		return err
	}
	return model.ErrOptimisticLock
}
