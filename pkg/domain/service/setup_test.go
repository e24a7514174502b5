package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"figurestore/pkg/domain/model"
	"figurestore/pkg/domain/service"
	"figurestore/pkg/infrastructure/memory"
)

// --- Mocks ---

type mockEventDispatcher struct {
	mu     sync.Mutex
	events []model.Event
}

func (d *mockEventDispatcher) Dispatch(event model.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *mockEventDispatcher) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = nil
}

func (d *mockEventDispatcher) Types() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	types := make([]string, 0, len(d.events))
	for _, event := range d.events {
		types = append(types, event.Type())
	}
	return types
}

type mockPaymentProcessor struct {
	mu       sync.Mutex
	err      error
	onCharge func()
	charged  []uuid.UUID
	refunded []uuid.UUID
}

func (p *mockPaymentProcessor) Charge(_ context.Context, invoice *model.Invoice) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.charged = append(p.charged, invoice.ID)
	if p.onCharge != nil {
		p.onCharge()
	}
	return nil
}

func (p *mockPaymentProcessor) Refund(_ context.Context, invoice *model.Invoice) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refunded = append(p.refunded, invoice.ID)
	return nil
}

// --- Setup ---

type fixture struct {
	ctx        context.Context
	store      *memory.Store
	dispatcher *mockEventDispatcher
	payments   *mockPaymentProcessor
	logs       *test.Hook

	catalog   service.CatalogService
	inventory service.InventoryService
	pricing   service.PricingService
	carts     service.CartService
	invoices  service.InvoiceService
	feedback  service.FeedbackService
}

func setupServiceTest(t *testing.T) *fixture {
	t.Helper()

	store, err := memory.NewStore()
	require.NoError(t, err)

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	dispatcher := &mockEventDispatcher{}
	payments := &mockPaymentProcessor{}
	policy := service.DefaultPolicy()

	return &fixture{
		ctx:        context.Background(),
		store:      store,
		dispatcher: dispatcher,
		payments:   payments,
		logs:       hook,
		catalog:    service.NewCatalogService(store, dispatcher, logger, policy),
		inventory:  service.NewInventoryService(store, dispatcher, logger, policy),
		pricing:    service.NewPricingService(store, dispatcher, logger),
		carts:      service.NewCartService(store, dispatcher, logger, policy),
		invoices:   service.NewInvoiceService(store, payments, dispatcher, logger, policy),
		feedback:   service.NewFeedbackService(store, dispatcher, logger),
	}
}

func (f *fixture) collection(t *testing.T) *model.Collection {
	t.Helper()
	collection, err := f.catalog.CreateCollection(f.ctx, "Collection "+uuid.NewString())
	require.NoError(t, err)
	return collection
}

// product creates a product in a fresh collection.
func (f *fixture) product(t *testing.T, price string, available int) *model.Product {
	t.Helper()
	product, err := f.catalog.CreateProduct(f.ctx, service.ProductParams{
		CollectionID: f.collection(t).ID,
		Number:       1,
		Name:         "Figure",
		Price:        dec(price),
		Available:    available,
	})
	require.NoError(t, err)
	return product
}

func (f *fixture) promotion(t *testing.T, productID uuid.UUID, start, end time.Time, percentage string) *model.Promotion {
	t.Helper()
	promotion, err := f.pricing.CreatePromotion(f.ctx, service.PromotionParams{
		ProductID:  productID,
		Start:      start,
		End:        end,
		Percentage: dec(percentage),
	})
	require.NoError(t, err)
	return promotion
}

func (f *fixture) discount(t *testing.T, code string, start, end time.Time, percentage string) *model.Discount {
	t.Helper()
	discount, err := f.pricing.CreateDiscount(f.ctx, service.DiscountParams{
		Code:       code,
		Start:      start,
		End:        end,
		Percentage: dec(percentage),
	})
	require.NoError(t, err)
	return discount
}

func (f *fixture) cartWith(t *testing.T, userID uuid.UUID, products map[uuid.UUID]int) *model.Cart {
	t.Helper()
	cart, err := f.carts.CreateCart(f.ctx, userID)
	require.NoError(t, err)
	for productID, quantity := range products {
		cart, err = f.carts.AddLineItem(f.ctx, cart.ID, productID, quantity)
		require.NoError(t, err)
	}
	return cart
}

// purchase runs a full cart checkout so that userID has bought the product.
func (f *fixture) purchase(t *testing.T, userID, productID uuid.UUID) *model.Invoice {
	t.Helper()
	cart := f.cartWith(t, userID, map[uuid.UUID]int{productID: 1})
	invoice, err := f.invoices.Finalize(f.ctx, cart.ID, time.Now())
	require.NoError(t, err)
	return invoice
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func today() time.Time {
	return model.Day(time.Now())
}

func day(n int) time.Time {
	return today().AddDate(0, 0, n)
}
