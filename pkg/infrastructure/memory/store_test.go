package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"figurestore/pkg/domain/model"
	"figurestore/pkg/infrastructure/memory"
)

func setupStore(t *testing.T) *memory.Store {
	t.Helper()
	store, err := memory.NewStore()
	require.NoError(t, err)
	return store
}

func seedProduct(t *testing.T, store *memory.Store) *model.Product {
	t.Helper()
	product := &model.Product{
		ID:           uuid.New(),
		CollectionID: uuid.New(),
		Number:       1,
		Name:         "Figure",
		Price:        decimal.RequireFromString("10.00"),
		Available:    3,
		Version:      1,
	}
	err := store.Execute(context.Background(), func(provider model.RepositoryProvider) error {
		return provider.ProductRepository().Create(context.Background(), product)
	})
	require.NoError(t, err)
	return product
}

func findProduct(t *testing.T, store *memory.Store, id uuid.UUID) *model.Product {
	t.Helper()
	var product *model.Product
	err := store.Execute(context.Background(), func(provider model.RepositoryProvider) error {
		var err error
		product, err = provider.ProductRepository().Find(context.Background(), id)
		return err
	})
	require.NoError(t, err)
	return product
}

func TestExecuteRollsBackOnError(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	product := seedProduct(t, store)
	failure := errors.New("boom")

	err := store.Execute(ctx, func(provider model.RepositoryProvider) error {
		changed := *product
		changed.Available = 0
		changed.Version++
		if err := provider.ProductRepository().Update(ctx, &changed); err != nil {
			return err
		}
		return failure
	})
	assert.ErrorIs(t, err, failure)
	assert.Equal(t, 3, findProduct(t, store, product.ID).Available)

	t.Run("canceled context discards the transaction", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		err := store.Execute(ctx, func(provider model.RepositoryProvider) error {
			changed := *product
			changed.Available = 0
			changed.Version++
			cancel()
			return provider.ProductRepository().Update(ctx, &changed)
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 3, findProduct(t, store, product.ID).Available)
	})
}

func TestProductRepository(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	product := seedProduct(t, store)

	t.Run("stale version", func(t *testing.T) {
		err := store.Execute(ctx, func(provider model.RepositoryProvider) error {
			stale := *product
			stale.Version = 3
			return provider.ProductRepository().Update(ctx, &stale)
		})
		assert.ErrorIs(t, err, model.ErrOptimisticLock)
	})

	t.Run("number is unique per collection", func(t *testing.T) {
		err := store.Execute(ctx, func(provider model.RepositoryProvider) error {
			duplicate := *product
			duplicate.ID = uuid.New()
			return provider.ProductRepository().Create(ctx, &duplicate)
		})
		assert.ErrorIs(t, err, model.ErrDuplicateProductNumber)

		err = store.Execute(ctx, func(provider model.RepositoryProvider) error {
			other := *product
			other.ID = uuid.New()
			other.CollectionID = uuid.New()
			return provider.ProductRepository().Create(ctx, &other)
		})
		assert.NoError(t, err)
	})

	t.Run("find by number", func(t *testing.T) {
		err := store.Execute(ctx, func(provider model.RepositoryProvider) error {
			found, err := provider.ProductRepository().FindByNumber(ctx, product.CollectionID, 1)
			if err != nil {
				return err
			}
			assert.Equal(t, product.ID, found.ID)
			_, err = provider.ProductRepository().FindByNumber(ctx, product.CollectionID, 2)
			return err
		})
		assert.ErrorIs(t, err, model.ErrProductNotFound)
	})

	t.Run("returned products are copies", func(t *testing.T) {
		found := findProduct(t, store, product.ID)
		found.Available = 99
		assert.Equal(t, 3, findProduct(t, store, product.ID).Available)
	})
}

func TestCollectionNamesAreCaseInsensitive(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	err := store.Execute(ctx, func(provider model.RepositoryProvider) error {
		repo := provider.CollectionRepository()
		if err := repo.Create(ctx, &model.Collection{ID: uuid.New(), Name: "Marvel"}); err != nil {
			return err
		}
		count, err := repo.CountByName(ctx, "MARVEL")
		if err != nil {
			return err
		}
		assert.Equal(t, 1, count)
		return nil
	})
	require.NoError(t, err)
}

func TestDiscountCodeIsUnique(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	window := model.NewWindow(time.Now(), time.Now())
	first := &model.Discount{ID: uuid.New(), Code: "SAVE", Window: window, Percentage: decimal.RequireFromString("0.1")}

	err := store.Execute(ctx, func(provider model.RepositoryProvider) error {
		return provider.DiscountRepository().Store(ctx, first)
	})
	require.NoError(t, err)

	err = store.Execute(ctx, func(provider model.RepositoryProvider) error {
		second := *first
		second.ID = uuid.New()
		return provider.DiscountRepository().Store(ctx, &second)
	})
	assert.ErrorIs(t, err, model.ErrDuplicateDiscountCode)

	err = store.Execute(ctx, func(provider model.RepositoryProvider) error {
		renamed := *first
		renamed.Code = "SAVE-MORE"
		if err := provider.DiscountRepository().Store(ctx, &renamed); err != nil {
			return err
		}
		_, err := provider.DiscountRepository().FindByCode(ctx, "SAVE")
		return err
	})
	assert.ErrorIs(t, err, model.ErrDiscountNotFound)
}

func TestCartRepository(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	userID := uuid.New()
	discountID := uuid.New()
	cart := &model.Cart{ID: uuid.New(), UserID: userID, Status: model.CartOpen, Version: 1}

	err := store.Execute(ctx, func(provider model.RepositoryProvider) error {
		return provider.CartRepository().Create(ctx, cart)
	})
	require.NoError(t, err)

	err = store.Execute(ctx, func(provider model.RepositoryProvider) error {
		repo := provider.CartRepository()
		stored, err := repo.FindForUpdate(ctx, cart.ID)
		if err != nil {
			return err
		}
		stored.Lines = append(stored.Lines, model.CartLine{ProductID: uuid.New(), Quantity: 2})
		stored.DiscountID = &discountID
		stored.Status = model.CartClosed
		stored.Version++
		return repo.Update(ctx, stored)
	})
	require.NoError(t, err)
	assert.Empty(t, cart.Lines, "the caller's cart is not shared with the store")

	err = store.Execute(ctx, func(provider model.RepositoryProvider) error {
		repo := provider.CartRepository()
		stored, err := repo.Find(ctx, cart.ID)
		if err != nil {
			return err
		}
		assert.Len(t, stored.Lines, 1)
		require.NotNil(t, stored.DiscountID)
		assert.Equal(t, discountID, *stored.DiscountID)

		open, err := repo.CountOpenByUser(ctx, userID)
		if err != nil {
			return err
		}
		assert.Zero(t, open)

		stored.Version = 1
		return repo.Update(ctx, stored)
	})
	assert.ErrorIs(t, err, model.ErrOptimisticLock)
}

func TestReviewPairIsUnique(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	review := &model.Review{ID: uuid.New(), UserID: uuid.New(), ProductID: uuid.New(), Rating: 5}

	create := func(review model.Review) error {
		return store.Execute(ctx, func(provider model.RepositoryProvider) error {
			return provider.ReviewRepository().Create(ctx, &review)
		})
	}
	require.NoError(t, create(*review))

	duplicate := *review
	duplicate.ID = uuid.New()
	assert.ErrorIs(t, create(duplicate), model.ErrDuplicateReview)

	otherProduct := duplicate
	otherProduct.ProductID = uuid.New()
	assert.NoError(t, create(otherProduct))
}

func TestInvoiceRepository(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	userID := uuid.New()
	productID := uuid.New()
	invoice := &model.Invoice{
		ID:           uuid.New(),
		UserID:       userID,
		CartID:       uuid.New(),
		TrackingCode: "TRK-000000000001",
		Lines:        []model.InvoiceLine{{ProductID: productID, Quantity: 1}},
		Discount:     &model.InvoiceDiscount{DiscountID: uuid.New(), Code: "SAVE"},
	}

	err := store.Execute(ctx, func(provider model.RepositoryProvider) error {
		return provider.InvoiceRepository().Create(ctx, invoice)
	})
	require.NoError(t, err)
	invoice.Discount.Code = "CHANGED"

	err = store.Execute(ctx, func(provider model.RepositoryProvider) error {
		repo := provider.InvoiceRepository()
		if err := repo.Create(ctx, invoice); err == nil {
			t.Error("creating an invoice twice must fail")
		}

		stored, err := repo.Find(ctx, invoice.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, "SAVE", stored.Discount.Code)

		purchased, err := repo.HasPurchased(ctx, userID, productID)
		if err != nil {
			return err
		}
		assert.True(t, purchased)

		purchased, err = repo.HasPurchased(ctx, uuid.New(), productID)
		if err != nil {
			return err
		}
		assert.False(t, purchased)
		return nil
	})
	require.NoError(t, err)
}
