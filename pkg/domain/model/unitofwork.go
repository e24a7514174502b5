package model

import "context"

type RepositoryProvider interface {
	CollectionRepository() CollectionRepository
	ProductRepository() ProductRepository
	StockIntakeRepository() StockIntakeRepository
	DiscountRepository() DiscountRepository
	PromotionRepository() PromotionRepository
	CartRepository() CartRepository
	InvoiceRepository() InvoiceRepository
	ReviewRepository() ReviewRepository
	QuestionRepository() QuestionRepository
}

// UnitOfWork runs f inside one storage transaction. The transaction is
// committed when f returns nil and rolled back otherwise.
type UnitOfWork interface {
	Execute(ctx context.Context, f func(provider RepositoryProvider) error) error
}
