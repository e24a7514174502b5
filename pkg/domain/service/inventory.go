package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"figurestore/pkg/domain/model"
)

type InventoryService interface {
	RecordIntake(ctx context.Context, productID uuid.UUID, quantity int) (*model.StockIntake, error)
	Reserve(ctx context.Context, productID uuid.UUID, quantity int) error
	Available(ctx context.Context, productID uuid.UUID) (int, error)
	Intakes(ctx context.Context, productID uuid.UUID) ([]model.StockIntake, error)
}

func NewInventoryService(uow model.UnitOfWork, dispatcher model.EventDispatcher, logger logrus.FieldLogger, policy Policy) InventoryService {
	return &inventoryService{
		uow:       uow,
		publisher: publisher{dispatcher: dispatcher, logger: logger},
		policy:    policy,
	}
}

type inventoryService struct {
	uow       model.UnitOfWork
	publisher publisher
	policy    Policy
}

func (s *inventoryService) RecordIntake(ctx context.Context, productID uuid.UUID, quantity int) (*model.StockIntake, error) {
	if quantity < 1 {
		return nil, model.ErrInvalidQuantity
	}

	var (
		intake *model.StockIntake
		rec    eventRecorder
	)
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		products := provider.ProductRepository()
		product, err := products.FindForUpdate(ctx, productID)
		if err != nil {
			return err
		}

		intakes := provider.StockIntakeRepository()
		id, err := intakes.NextID()
		if err != nil {
			return err
		}
		intake = &model.StockIntake{ID: id, ProductID: productID, Quantity: quantity, CreatedAt: now()}
		if err := intakes.Append(ctx, intake); err != nil {
			return err
		}

		product.Available += quantity
		if err := updateProduct(ctx, products, product); err != nil {
			return err
		}
		rec.record(model.ProductStockChanged{ProductID: productID, ChangeAmount: quantity, NewQuantity: product.Available})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.publish(&rec)
	return intake, nil
}

func (s *inventoryService) Reserve(ctx context.Context, productID uuid.UUID, quantity int) error {
	if quantity < 1 {
		return model.ErrInvalidQuantity
	}

	var rec eventRecorder
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		products := provider.ProductRepository()
		product, err := products.FindForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		return reserveStock(ctx, products, product, quantity, s.policy.LowStockThreshold, &rec)
	})
	if err != nil {
		return err
	}

	s.publisher.publish(&rec)
	return nil
}

func (s *inventoryService) Available(ctx context.Context, productID uuid.UUID) (int, error) {
	var available int
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		product, err := provider.ProductRepository().Find(ctx, productID)
		if err != nil {
			return err
		}
		available = product.Available
		return nil
	})
	return available, err
}

func (s *inventoryService) Intakes(ctx context.Context, productID uuid.UUID) ([]model.StockIntake, error) {
	var intakes []model.StockIntake
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		if _, err := provider.ProductRepository().Find(ctx, productID); err != nil {
			return err
		}
		var err error
		intakes, err = provider.StockIntakeRepository().ListByProduct(ctx, productID)
		return err
	})
	return intakes, err
}

// reserveStock decrements a product that the caller has already locked with FindForUpdate.
func reserveStock(ctx context.Context, repo model.ProductRepository, product *model.Product, quantity, lowStockThreshold int, rec *eventRecorder) error {
	if quantity < 1 {
		return model.ErrInvalidQuantity
	}
	if quantity > product.Available {
		return model.ErrInsufficientStock
	}

	before := product.Available
	product.Available -= quantity
	if err := updateProduct(ctx, repo, product); err != nil {
		return err
	}

	rec.record(model.ProductStockChanged{ProductID: product.ID, ChangeAmount: -quantity, NewQuantity: product.Available})
	if lowStockThreshold > 0 && before >= lowStockThreshold && product.Available < lowStockThreshold {
		rec.record(model.ProductStockLow{ProductID: product.ID, Available: product.Available, Threshold: lowStockThreshold})
	}
	return nil
}
