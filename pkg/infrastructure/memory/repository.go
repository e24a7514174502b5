package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/hashicorp/go-memdb"
	"github.com/pkg/errors"

	"figurestore/pkg/domain/model"
)

// Stored objects are never handed out: reads return copies and writes insert
// copies, so a rolled back transaction cannot leak changes through shared pointers.

func lookup[T any](txn *memdb.Txn, table, index string, notFound error, args ...interface{}) (*T, error) {
	raw, err := txn.First(table, index, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query %s", table)
	}
	if raw == nil {
		return nil, notFound
	}
	return raw.(*T), nil
}

func list[T any](txn *memdb.Txn, table, index string, args ...interface{}) ([]*T, error) {
	it, err := txn.Get(table, index, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query %s", table)
	}
	var result []*T
	for raw := it.Next(); raw != nil; raw = it.Next() {
		result = append(result, raw.(*T))
	}
	return result, nil
}

func insert(txn *memdb.Txn, table string, obj interface{}) error {
	return errors.Wrapf(txn.Insert(table, obj), "failed to store %s", table)
}

type collectionRepository struct {
	txn *memdb.Txn
}

func (r *collectionRepository) NextID() (uuid.UUID, error) { return uuid.NewRandom() }

func (r *collectionRepository) Create(_ context.Context, collection *model.Collection) error {
	clone := *collection
	return insert(r.txn, tableCollection, &clone)
}

func (r *collectionRepository) Find(_ context.Context, id uuid.UUID) (*model.Collection, error) {
	collection, err := lookup[model.Collection](r.txn, tableCollection, indexID, model.ErrCollectionNotFound, id)
	if err != nil {
		return nil, err
	}
	clone := *collection
	return &clone, nil
}

func (r *collectionRepository) CountByName(_ context.Context, name string) (int, error) {
	collections, err := list[model.Collection](r.txn, tableCollection, indexName, name)
	return len(collections), err
}

type productRepository struct {
	txn *memdb.Txn
}

func (r *productRepository) NextID() (uuid.UUID, error) { return uuid.NewRandom() }

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	if err := r.checkNumber(product); err != nil {
		return err
	}
	clone := *product
	return insert(r.txn, tableProduct, &clone)
}

func (r *productRepository) Update(ctx context.Context, product *model.Product) error {
	existing, err := lookup[model.Product](r.txn, tableProduct, indexID, model.ErrProductNotFound, product.ID)
	if err != nil {
		return err
	}
	if existing.Version != product.Version-1 {
		return model.ErrOptimisticLock
	}
	if err := r.checkNumber(product); err != nil {
		return err
	}
	clone := *product
	return insert(r.txn, tableProduct, &clone)
}

// checkNumber backs the unique index, which memdb itself would silently overwrite.
func (r *productRepository) checkNumber(product *model.Product) error {
	existing, err := lookup[model.Product](r.txn, tableProduct, indexNumber, model.ErrProductNotFound, product.CollectionID, product.Number)
	if errors.Is(err, model.ErrProductNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != product.ID {
		return model.ErrDuplicateProductNumber
	}
	return nil
}

func (r *productRepository) Find(_ context.Context, id uuid.UUID) (*model.Product, error) {
	product, err := lookup[model.Product](r.txn, tableProduct, indexID, model.ErrProductNotFound, id)
	if err != nil {
		return nil, err
	}
	clone := *product
	return &clone, nil
}

// FindForUpdate needs no extra locking: the surrounding write transaction is exclusive.
func (r *productRepository) FindForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return r.Find(ctx, id)
}

func (r *productRepository) FindByNumber(_ context.Context, collectionID uuid.UUID, number int) (*model.Product, error) {
	product, err := lookup[model.Product](r.txn, tableProduct, indexNumber, model.ErrProductNotFound, collectionID, number)
	if err != nil {
		return nil, err
	}
	clone := *product
	return &clone, nil
}

type stockIntakeRepository struct {
	txn *memdb.Txn
}

func (r *stockIntakeRepository) NextID() (uuid.UUID, error) { return uuid.NewRandom() }

func (r *stockIntakeRepository) Append(_ context.Context, intake *model.StockIntake) error {
	clone := *intake
	return insert(r.txn, tableStockIntake, &clone)
}

func (r *stockIntakeRepository) ListByProduct(_ context.Context, productID uuid.UUID) ([]model.StockIntake, error) {
	stored, err := list[model.StockIntake](r.txn, tableStockIntake, indexProduct, productID)
	if err != nil {
		return nil, err
	}
	intakes := make([]model.StockIntake, 0, len(stored))
	for _, intake := range stored {
		intakes = append(intakes, *intake)
	}
	sort.Slice(intakes, func(i, j int) bool { return intakes[i].CreatedAt.Before(intakes[j].CreatedAt) })
	return intakes, nil
}

type discountRepository struct {
	txn *memdb.Txn
}

func (r *discountRepository) NextID() (uuid.UUID, error) { return uuid.NewRandom() }

func (r *discountRepository) Store(_ context.Context, discount *model.Discount) error {
	existing, err := lookup[model.Discount](r.txn, tableDiscount, indexCode, model.ErrDiscountNotFound, discount.Code)
	if err == nil && existing.ID != discount.ID {
		return model.ErrDuplicateDiscountCode
	}
	if err != nil && !errors.Is(err, model.ErrDiscountNotFound) {
		return err
	}
	clone := *discount
	return insert(r.txn, tableDiscount, &clone)
}

func (r *discountRepository) Find(_ context.Context, id uuid.UUID) (*model.Discount, error) {
	discount, err := lookup[model.Discount](r.txn, tableDiscount, indexID, model.ErrDiscountNotFound, id)
	if err != nil {
		return nil, err
	}
	clone := *discount
	return &clone, nil
}

func (r *discountRepository) FindByCode(_ context.Context, code string) (*model.Discount, error) {
	discount, err := lookup[model.Discount](r.txn, tableDiscount, indexCode, model.ErrDiscountNotFound, code)
	if err != nil {
		return nil, err
	}
	clone := *discount
	return &clone, nil
}

type promotionRepository struct {
	txn *memdb.Txn
}

func (r *promotionRepository) NextID() (uuid.UUID, error) { return uuid.NewRandom() }

func (r *promotionRepository) Store(_ context.Context, promotion *model.Promotion) error {
	clone := *promotion
	return insert(r.txn, tablePromotion, &clone)
}

func (r *promotionRepository) Find(_ context.Context, id uuid.UUID) (*model.Promotion, error) {
	promotion, err := lookup[model.Promotion](r.txn, tablePromotion, indexID, model.ErrPromotionNotFound, id)
	if err != nil {
		return nil, err
	}
	clone := *promotion
	return &clone, nil
}

func (r *promotionRepository) ListByProduct(_ context.Context, productID uuid.UUID) ([]model.Promotion, error) {
	stored, err := list[model.Promotion](r.txn, tablePromotion, indexProduct, productID)
	if err != nil {
		return nil, err
	}
	promotions := make([]model.Promotion, 0, len(stored))
	for _, promotion := range stored {
		promotions = append(promotions, *promotion)
	}
	return promotions, nil
}

type cartRepository struct {
	txn *memdb.Txn
}

func (r *cartRepository) NextID() (uuid.UUID, error) { return uuid.NewRandom() }

func (r *cartRepository) Create(_ context.Context, cart *model.Cart) error {
	return insert(r.txn, tableCart, cloneCart(cart))
}

func (r *cartRepository) Update(_ context.Context, cart *model.Cart) error {
	existing, err := lookup[model.Cart](r.txn, tableCart, indexID, model.ErrCartNotFound, cart.ID)
	if err != nil {
		return err
	}
	if existing.Version != cart.Version-1 {
		return model.ErrOptimisticLock
	}
	return insert(r.txn, tableCart, cloneCart(cart))
}

func (r *cartRepository) Find(_ context.Context, id uuid.UUID) (*model.Cart, error) {
	cart, err := lookup[model.Cart](r.txn, tableCart, indexID, model.ErrCartNotFound, id)
	if err != nil {
		return nil, err
	}
	return cloneCart(cart), nil
}

func (r *cartRepository) FindForUpdate(ctx context.Context, id uuid.UUID) (*model.Cart, error) {
	return r.Find(ctx, id)
}

func (r *cartRepository) CountOpenByUser(_ context.Context, userID uuid.UUID) (int, error) {
	carts, err := list[model.Cart](r.txn, tableCart, indexUser, userID)
	if err != nil {
		return 0, err
	}
	open := 0
	for _, cart := range carts {
		if cart.Status == model.CartOpen {
			open++
		}
	}
	return open, nil
}

func cloneCart(cart *model.Cart) *model.Cart {
	clone := *cart
	clone.Lines = append([]model.CartLine(nil), cart.Lines...)
	if cart.DiscountID != nil {
		id := *cart.DiscountID
		clone.DiscountID = &id
	}
	return &clone
}

type invoiceRepository struct {
	txn *memdb.Txn
}

func (r *invoiceRepository) NextID() (uuid.UUID, error) { return uuid.NewRandom() }

func (r *invoiceRepository) Create(_ context.Context, invoice *model.Invoice) error {
	if _, err := lookup[model.Invoice](r.txn, tableInvoice, indexID, model.ErrInvoiceNotFound, invoice.ID); err == nil {
		return errors.Errorf("invoice %s already exists", invoice.ID)
	}
	return insert(r.txn, tableInvoice, cloneInvoice(invoice))
}

func (r *invoiceRepository) Find(_ context.Context, id uuid.UUID) (*model.Invoice, error) {
	invoice, err := lookup[model.Invoice](r.txn, tableInvoice, indexID, model.ErrInvoiceNotFound, id)
	if err != nil {
		return nil, err
	}
	return cloneInvoice(invoice), nil
}

func (r *invoiceRepository) ListByUser(_ context.Context, userID uuid.UUID) ([]model.Invoice, error) {
	stored, err := list[model.Invoice](r.txn, tableInvoice, indexUser, userID)
	if err != nil {
		return nil, err
	}
	invoices := make([]model.Invoice, 0, len(stored))
	for _, invoice := range stored {
		invoices = append(invoices, *cloneInvoice(invoice))
	}
	sort.Slice(invoices, func(i, j int) bool { return invoices[i].CreatedAt.Before(invoices[j].CreatedAt) })
	return invoices, nil
}

func (r *invoiceRepository) HasPurchased(_ context.Context, userID, productID uuid.UUID) (bool, error) {
	invoices, err := list[model.Invoice](r.txn, tableInvoice, indexUser, userID)
	if err != nil {
		return false, err
	}
	for _, invoice := range invoices {
		for _, line := range invoice.Lines {
			if line.ProductID == productID {
				return true, nil
			}
		}
	}
	return false, nil
}

func cloneInvoice(invoice *model.Invoice) *model.Invoice {
	clone := *invoice
	clone.Lines = append([]model.InvoiceLine(nil), invoice.Lines...)
	if invoice.Discount != nil {
		discount := *invoice.Discount
		clone.Discount = &discount
	}
	return &clone
}

type reviewRepository struct {
	txn *memdb.Txn
}

func (r *reviewRepository) NextID() (uuid.UUID, error) { return uuid.NewRandom() }

func (r *reviewRepository) Create(ctx context.Context, review *model.Review) error {
	if _, err := r.FindByUserAndProduct(ctx, review.UserID, review.ProductID); err == nil {
		return model.ErrDuplicateReview
	}
	clone := *review
	return insert(r.txn, tableReview, &clone)
}

func (r *reviewRepository) FindByUserAndProduct(_ context.Context, userID, productID uuid.UUID) (*model.Review, error) {
	review, err := lookup[model.Review](r.txn, tableReview, indexPair, model.ErrReviewNotFound, userID, productID)
	if err != nil {
		return nil, err
	}
	clone := *review
	return &clone, nil
}

func (r *reviewRepository) ListByProduct(_ context.Context, productID uuid.UUID) ([]model.Review, error) {
	stored, err := list[model.Review](r.txn, tableReview, indexProduct, productID)
	if err != nil {
		return nil, err
	}
	reviews := make([]model.Review, 0, len(stored))
	for _, review := range stored {
		reviews = append(reviews, *review)
	}
	sort.Slice(reviews, func(i, j int) bool { return reviews[i].CreatedAt.Before(reviews[j].CreatedAt) })
	return reviews, nil
}

type questionRepository struct {
	txn *memdb.Txn
}

func (r *questionRepository) NextID() (uuid.UUID, error) { return uuid.NewRandom() }

func (r *questionRepository) Create(_ context.Context, question *model.Question) error {
	return insert(r.txn, tableQuestion, cloneQuestion(question))
}

func (r *questionRepository) Update(_ context.Context, question *model.Question) error {
	if _, err := lookup[model.Question](r.txn, tableQuestion, indexID, model.ErrQuestionNotFound, question.ID); err != nil {
		return err
	}
	return insert(r.txn, tableQuestion, cloneQuestion(question))
}

func (r *questionRepository) Find(_ context.Context, id uuid.UUID) (*model.Question, error) {
	question, err := lookup[model.Question](r.txn, tableQuestion, indexID, model.ErrQuestionNotFound, id)
	if err != nil {
		return nil, err
	}
	return cloneQuestion(question), nil
}

func (r *questionRepository) ListByProduct(_ context.Context, productID uuid.UUID) ([]model.Question, error) {
	stored, err := list[model.Question](r.txn, tableQuestion, indexProduct, productID)
	if err != nil {
		return nil, err
	}
	questions := make([]model.Question, 0, len(stored))
	for _, question := range stored {
		questions = append(questions, *cloneQuestion(question))
	}
	sort.Slice(questions, func(i, j int) bool { return questions[i].CreatedAt.Before(questions[j].CreatedAt) })
	return questions, nil
}

func cloneQuestion(question *model.Question) *model.Question {
	clone := *question
	if question.AnsweredAt != nil {
		answeredAt := *question.AnsweredAt
		clone.AnsweredAt = &answeredAt
	}
	return &clone
}
