package memory

import (
	"context"

	"github.com/hashicorp/go-memdb"
	"github.com/pkg/errors"

	"figurestore/pkg/domain/model"
)

// Store keeps every table in one go-memdb database. Write transactions are
// serialized by memdb, which gives the unit of work full isolation.
type Store struct {
	db *memdb.MemDB
}

func NewStore() (*Store, error) {
	db, err := memdb.NewMemDB(schema())
	if err != nil {
		return nil, errors.Wrap(err, "failed to create memory store")
	}
	return &Store{db: db}, nil
}

func (s *Store) Execute(ctx context.Context, f func(provider model.RepositoryProvider) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	txn := s.db.Txn(true)
	defer txn.Abort()

	if err := f(&repositoryProvider{txn: txn}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

type repositoryProvider struct {
	txn *memdb.Txn
}

func (p *repositoryProvider) CollectionRepository() model.CollectionRepository {
	return &collectionRepository{txn: p.txn}
}

func (p *repositoryProvider) ProductRepository() model.ProductRepository {
	return &productRepository{txn: p.txn}
}

func (p *repositoryProvider) StockIntakeRepository() model.StockIntakeRepository {
	return &stockIntakeRepository{txn: p.txn}
}

func (p *repositoryProvider) DiscountRepository() model.DiscountRepository {
	return &discountRepository{txn: p.txn}
}

func (p *repositoryProvider) PromotionRepository() model.PromotionRepository {
	return &promotionRepository{txn: p.txn}
}

func (p *repositoryProvider) CartRepository() model.CartRepository {
	return &cartRepository{txn: p.txn}
}

func (p *repositoryProvider) InvoiceRepository() model.InvoiceRepository {
	return &invoiceRepository{txn: p.txn}
}

func (p *repositoryProvider) ReviewRepository() model.ReviewRepository {
	return &reviewRepository{txn: p.txn}
}

func (p *repositoryProvider) QuestionRepository() model.QuestionRepository {
	return &questionRepository{txn: p.txn}
}
