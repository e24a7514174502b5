package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"figurestore/pkg/domain/model"
	"figurestore/pkg/domain/service"
)

func TestFinalizeAppliesPromotionAndDiscount(t *testing.T) {
	f := setupServiceTest(t)
	userID := uuid.New()
	product := f.product(t, "100.00", 5)
	f.promotion(t, product.ID, day(0), day(10), "0.20")
	discount := f.discount(t, "TENOFF", day(0), day(10), "0.10")
	cart := f.cartWith(t, userID, map[uuid.UUID]int{product.ID: 2})
	_, err := f.carts.AttachDiscount(f.ctx, cart.ID, "TENOFF")
	require.NoError(t, err)
	f.dispatcher.Reset()

	invoice, err := f.invoices.Finalize(f.ctx, cart.ID, day(2))
	require.NoError(t, err)

	assert.Equal(t, "160.00", invoice.Subtotal.StringFixed(2))
	assert.Equal(t, "144.00", invoice.Total.StringFixed(2))
	assert.Equal(t, day(2), invoice.SaleDate)
	assert.Equal(t, userID, invoice.UserID)
	assert.Regexp(t, `^TRK-[0-9A-F]{12}$`, invoice.TrackingCode)
	require.Len(t, invoice.Lines, 1)
	assert.Equal(t, 2, invoice.Lines[0].Quantity)
	assert.Equal(t, "80.00", invoice.Lines[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "160.00", invoice.Lines[0].LineTotal.StringFixed(2))
	require.NotNil(t, invoice.Discount)
	assert.Equal(t, discount.ID, invoice.Discount.DiscountID)
	assert.Equal(t, "TENOFF", invoice.Discount.Code)

	available, err := f.inventory.Available(f.ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, available)

	closed, err := f.carts.FindCart(f.ctx, cart.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CartClosed, closed.Status)

	assert.Equal(t, []uuid.UUID{invoice.ID}, f.payments.charged)
	assert.Contains(t, f.dispatcher.Types(), "InvoiceCreated")
	assert.Contains(t, f.dispatcher.Types(), "ProductStockChanged")
}

func TestFinalizeRollsBackOnInsufficientStock(t *testing.T) {
	f := setupServiceTest(t)
	plenty := f.product(t, "10.00", 5)
	scarce := f.product(t, "20.00", 3)
	cart := f.cartWith(t, uuid.New(), map[uuid.UUID]int{plenty.ID: 2, scarce.ID: 3})

	// Someone else buys most of the scarce product after it went into the cart.
	require.NoError(t, f.inventory.Reserve(f.ctx, scarce.ID, 2))
	f.dispatcher.Reset()

	_, err := f.invoices.Finalize(f.ctx, cart.ID, time.Now())
	assert.ErrorIs(t, err, model.ErrInsufficientStock)

	assertAvailable(t, f, plenty.ID, 5)
	assertAvailable(t, f, scarce.ID, 1)

	stored, err := f.carts.FindCart(f.ctx, cart.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CartOpen, stored.Status)
	assert.Empty(t, f.payments.charged)
	assert.Empty(t, f.dispatcher.Types())
}

func TestFinalizeRollsBackOnDeclinedPayment(t *testing.T) {
	f := setupServiceTest(t)
	userID := uuid.New()
	product := f.product(t, "10.00", 5)
	cart := f.cartWith(t, userID, map[uuid.UUID]int{product.ID: 4})
	f.payments.err = model.NewError(model.ErrPaymentDeclined, "card declined")

	_, err := f.invoices.Finalize(f.ctx, cart.ID, time.Now())
	assert.ErrorIs(t, err, model.ErrPaymentDeclined)

	assertAvailable(t, f, product.ID, 5)
	invoices, err := f.invoices.InvoicesForUser(f.ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, invoices)

	t.Run("the cart can be finalized once payment works", func(t *testing.T) {
		f.payments.err = nil
		invoice, err := f.invoices.Finalize(f.ctx, cart.ID, time.Now())
		require.NoError(t, err)
		assert.Equal(t, "40.00", invoice.Total.StringFixed(2))
		assertAvailable(t, f, product.ID, 1)
	})
}

func TestFinalizeRefundsWhenCommitFails(t *testing.T) {
	f := setupServiceTest(t)
	product := f.product(t, "10.00", 5)
	cart := f.cartWith(t, uuid.New(), map[uuid.UUID]int{product.ID: 1})

	ctx, cancel := context.WithCancel(f.ctx)
	f.payments.onCharge = cancel

	_, err := f.invoices.Finalize(ctx, cart.ID, time.Now())
	assert.ErrorIs(t, err, context.Canceled)

	require.Len(t, f.payments.charged, 1)
	assert.Equal(t, f.payments.charged, f.payments.refunded)
	assertAvailable(t, f, product.ID, 5)
}

func TestFinalizeRejects(t *testing.T) {
	f := setupServiceTest(t)
	product := f.product(t, "10.00", 5)

	t.Run("empty cart", func(t *testing.T) {
		cart := f.cartWith(t, uuid.New(), nil)
		_, err := f.invoices.Finalize(f.ctx, cart.ID, time.Now())
		assert.ErrorIs(t, err, model.ErrEmptyCart)
	})

	t.Run("finalized cart", func(t *testing.T) {
		cart := f.cartWith(t, uuid.New(), map[uuid.UUID]int{product.ID: 1})
		_, err := f.invoices.Finalize(f.ctx, cart.ID, time.Now())
		require.NoError(t, err)

		_, err = f.invoices.Finalize(f.ctx, cart.ID, time.Now())
		assert.ErrorIs(t, err, model.ErrCartAlreadyFinalized)

		_, err = f.carts.AddLineItem(f.ctx, cart.ID, product.ID, 1)
		assert.ErrorIs(t, err, model.ErrCartAlreadyFinalized)
	})

	t.Run("unknown cart", func(t *testing.T) {
		_, err := f.invoices.Finalize(f.ctx, uuid.New(), time.Now())
		assert.ErrorIs(t, err, model.ErrCartNotFound)
	})
}

func TestConcurrentFinalizeDoesNotOversell(t *testing.T) {
	f := setupServiceTest(t)
	product := f.product(t, "10.00", 5)

	carts := make([]*model.Cart, 10)
	for i := range carts {
		carts[i] = f.cartWith(t, uuid.New(), map[uuid.UUID]int{product.ID: 1})
	}

	var wg sync.WaitGroup
	errs := make([]error, len(carts))
	start := make(chan struct{})
	for i, cart := range carts {
		wg.Add(1)
		go func(i int, cartID uuid.UUID) {
			defer wg.Done()
			<-start
			_, errs[i] = f.invoices.Finalize(f.ctx, cartID, time.Now())
		}(i, cart.ID)
	}
	close(start)
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, model.ErrInsufficientStock)
	}
	assert.Equal(t, 5, succeeded)
	assert.Len(t, f.payments.charged, 5)
	assertAvailable(t, f, product.ID, 0)
}

func TestFinalizeRoundsTotalsToCents(t *testing.T) {
	f := setupServiceTest(t)
	collection := f.collection(t)

	// Catalog validation keeps such prices out; rows written around it still quote in cents.
	product := &model.Product{
		ID:           uuid.New(),
		CollectionID: collection.ID,
		Number:       1,
		Name:         "Legacy",
		Price:        dec("10.005"),
		Available:    5,
		Version:      1,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	require.NoError(t, f.store.Execute(f.ctx, func(provider model.RepositoryProvider) error {
		return provider.ProductRepository().Create(f.ctx, product)
	}))
	cart := f.cartWith(t, uuid.New(), map[uuid.UUID]int{product.ID: 3})

	quote, err := f.carts.ComputeTotal(f.ctx, cart.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "30.02", quote.Subtotal.String())
	assert.Equal(t, "30.02", quote.Total.String())

	invoice, err := f.invoices.Finalize(f.ctx, cart.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "30.02", invoice.Total.String())
	require.Len(t, invoice.Lines, 1)
	assert.Equal(t, "30.02", invoice.Lines[0].LineTotal.String())
}

func TestInvoiceIsASnapshot(t *testing.T) {
	f := setupServiceTest(t)
	userID := uuid.New()
	product := f.product(t, "10.00", 5)
	invoice := f.purchase(t, userID, product.ID)

	_, err := f.catalog.UpdateProduct(f.ctx, product.ID, service.ProductParams{
		CollectionID: product.CollectionID,
		Number:       product.Number,
		Name:         product.Name,
		Price:        dec("99.00"),
	})
	require.NoError(t, err)

	stored, err := f.invoices.Invoice(f.ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, "10.00", stored.Total.StringFixed(2))
	assert.Equal(t, invoice.TrackingCode, stored.TrackingCode)

	second := f.purchase(t, userID, product.ID)
	invoices, err := f.invoices.InvoicesForUser(f.ctx, userID)
	require.NoError(t, err)
	require.Len(t, invoices, 2)
	assert.ElementsMatch(t, []uuid.UUID{invoice.ID, second.ID}, []uuid.UUID{invoices[0].ID, invoices[1].ID})
	assert.NotEqual(t, invoices[0].TrackingCode, invoices[1].TrackingCode)

	_, err = f.invoices.Invoice(f.ctx, uuid.New())
	assert.ErrorIs(t, err, model.ErrInvoiceNotFound)
}

func assertAvailable(t *testing.T, f *fixture, productID uuid.UUID, expected int) {
	t.Helper()
	available, err := f.inventory.Available(f.ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, expected, available)
}
