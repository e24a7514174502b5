package mysql

import (
	"context"
	"os"
	"testing"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"figurestore/pkg/domain/model"
)

func TestEmbeddedMigrations(t *testing.T) {
	source, err := iofs.New(migrations, "migrations")
	require.NoError(t, err)
	defer source.Close()

	version, err := source.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	up, _, err := source.ReadUp(version)
	require.NoError(t, err)
	require.NoError(t, up.Close())

	down, _, err := source.ReadDown(version)
	require.NoError(t, err)
	require.NoError(t, down.Close())
}

func TestIsDuplicateEntry(t *testing.T) {
	duplicate := &gomysql.MySQLError{Number: 1062, Message: "Duplicate entry"}

	assert.True(t, isDuplicateEntry(duplicate))
	assert.True(t, isDuplicateEntry(errors.Wrap(duplicate, "failed to insert")))
	assert.False(t, isDuplicateEntry(&gomysql.MySQLError{Number: 1213}))
	assert.False(t, isDuplicateEntry(errors.New("boom")))
}

func TestRowConversions(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

	t.Run("discount window", func(t *testing.T) {
		discount := sqlxDiscount{ID: uuid.New(), Code: "SAVE", StartDate: start, EndDate: end, Percentage: decimal.RequireFromString("0.1")}.toModel()
		assert.True(t, discount.Window.Contains(end.Add(23*time.Hour)))
		assert.False(t, discount.Window.Contains(end.AddDate(0, 0, 1)))
	})

	t.Run("question answer time", func(t *testing.T) {
		question := sqlxQuestion{ID: uuid.New()}.toModel()
		assert.Nil(t, question.AnsweredAt)
		assert.False(t, answeredAt(&question).Valid)

		question.AnsweredAt = &start
		assert.Equal(t, start, answeredAt(&question).Time)
	})

	t.Run("nullable discount id", func(t *testing.T) {
		assert.False(t, nullUUID(nil).Valid)
		id := uuid.New()
		assert.Equal(t, uuid.NullUUID{UUID: id, Valid: true}, nullUUID(&id))
	})
}

// TestUnitOfWork runs against a real server when FIGURESTORE_TEST_MYSQL_DSN is set.
func TestUnitOfWork(t *testing.T) {
	dsn := os.Getenv("FIGURESTORE_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("FIGURESTORE_TEST_MYSQL_DSN is not set")
	}
	ctx := context.Background()
	db, err := Open(ctx, dsn)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, Migrate(db))

	logger, _ := test.NewNullLogger()
	uow := NewUnitOfWork(db, logger)
	collection := &model.Collection{ID: uuid.New(), Name: "Test " + uuid.NewString(), CreatedAt: time.Now().UTC()}
	product := &model.Product{
		ID:           uuid.New(),
		CollectionID: collection.ID,
		Number:       1,
		Name:         "Figure",
		Price:        decimal.RequireFromString("10.00"),
		Available:    2,
		Version:      1,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	err = uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		if err := provider.CollectionRepository().Create(ctx, collection); err != nil {
			return err
		}
		return provider.ProductRepository().Create(ctx, product)
	})
	require.NoError(t, err)

	t.Run("duplicate number", func(t *testing.T) {
		err := uow.Execute(ctx, func(provider model.RepositoryProvider) error {
			duplicate := *product
			duplicate.ID = uuid.New()
			return provider.ProductRepository().Create(ctx, &duplicate)
		})
		assert.ErrorIs(t, err, model.ErrDuplicateProductNumber)
	})

	t.Run("rollback", func(t *testing.T) {
		failure := errors.New("boom")
		err := uow.Execute(ctx, func(provider model.RepositoryProvider) error {
			changed := *product
			changed.Available = 0
			changed.Version++
			if err := provider.ProductRepository().Update(ctx, &changed); err != nil {
				return err
			}
			return failure
		})
		assert.ErrorIs(t, err, failure)

		err = uow.Execute(ctx, func(provider model.RepositoryProvider) error {
			stored, err := provider.ProductRepository().Find(ctx, product.ID)
			if err != nil {
				return err
			}
			assert.Equal(t, 2, stored.Available)
			assert.Equal(t, 1, stored.Version)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("stale version", func(t *testing.T) {
		err := uow.Execute(ctx, func(provider model.RepositoryProvider) error {
			stale := *product
			stale.Version = 5
			return provider.ProductRepository().Update(ctx, &stale)
		})
		assert.ErrorIs(t, err, model.ErrOptimisticLock)
	})
}
