package service_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"figurestore/pkg/domain/model"
)

func TestIntakeThenReserveUntilEmpty(t *testing.T) {
	f := setupServiceTest(t)
	product := f.product(t, "100.00", 0)

	_, err := f.inventory.RecordIntake(f.ctx, product.ID, 5)
	require.NoError(t, err)

	require.NoError(t, f.inventory.Reserve(f.ctx, product.ID, 5))

	err = f.inventory.Reserve(f.ctx, product.ID, 1)
	assert.ErrorIs(t, err, model.ErrInsufficientStock)

	available, err := f.inventory.Available(f.ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, available)
}

func TestRecordIntake(t *testing.T) {
	f := setupServiceTest(t)
	product := f.product(t, "10.00", 2)
	f.dispatcher.Reset()

	intake, err := f.inventory.RecordIntake(f.ctx, product.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, intake.Quantity)

	available, err := f.inventory.Available(f.ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, available)

	require.Len(t, f.dispatcher.events, 1)
	event, ok := f.dispatcher.events[0].(model.ProductStockChanged)
	require.True(t, ok)
	assert.Equal(t, 3, event.ChangeAmount)
	assert.Equal(t, 5, event.NewQuantity)

	_, err = f.inventory.RecordIntake(f.ctx, product.ID, 4)
	require.NoError(t, err)

	intakes, err := f.inventory.Intakes(f.ctx, product.ID)
	require.NoError(t, err)
	require.Len(t, intakes, 2)
	assert.Equal(t, 3, intakes[0].Quantity)
	assert.Equal(t, 4, intakes[1].Quantity)

	t.Run("quantity must be positive", func(t *testing.T) {
		_, err := f.inventory.RecordIntake(f.ctx, product.ID, 0)
		assert.ErrorIs(t, err, model.ErrInvalidQuantity)
	})

	t.Run("unknown product", func(t *testing.T) {
		_, err := f.inventory.RecordIntake(f.ctx, uuid.New(), 1)
		assert.ErrorIs(t, err, model.ErrProductNotFound)
	})
}

func TestReserve(t *testing.T) {
	f := setupServiceTest(t)
	product := f.product(t, "10.00", 4)
	f.dispatcher.Reset()

	t.Run("crossing the threshold reports low stock", func(t *testing.T) {
		require.NoError(t, f.inventory.Reserve(f.ctx, product.ID, 2))
		assert.Equal(t, []string{"ProductStockChanged", "ProductStockLow"}, f.dispatcher.Types())
	})

	t.Run("failed reservation leaves stock untouched", func(t *testing.T) {
		f.dispatcher.Reset()
		err := f.inventory.Reserve(f.ctx, product.ID, 3)
		assert.ErrorIs(t, err, model.ErrInsufficientStock)
		assert.Empty(t, f.dispatcher.Types())

		available, err := f.inventory.Available(f.ctx, product.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, available)
	})

	t.Run("quantity must be positive", func(t *testing.T) {
		assert.ErrorIs(t, f.inventory.Reserve(f.ctx, product.ID, -1), model.ErrInvalidQuantity)
	})
}
