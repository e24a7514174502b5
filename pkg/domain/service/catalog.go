package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"figurestore/pkg/domain/model"
)

type ProductParams struct {
	CollectionID uuid.UUID
	Number       int
	Name         string
	EditionName  string
	Description  string
	ImageURL     string
	Price        decimal.Decimal
	Available    int
	Special      bool
	Shine        bool
}

type CatalogService interface {
	CreateCollection(ctx context.Context, name string) (*model.Collection, error)
	CreateProduct(ctx context.Context, params ProductParams) (*model.Product, error)
	// UpdateProduct leaves the available quantity untouched; it belongs to the inventory ledger.
	UpdateProduct(ctx context.Context, productID uuid.UUID, params ProductParams) (*model.Product, error)
	LookupProduct(ctx context.Context, productID uuid.UUID) (*model.Product, error)
}

func NewCatalogService(uow model.UnitOfWork, dispatcher model.EventDispatcher, logger logrus.FieldLogger, policy Policy) CatalogService {
	return &catalogService{
		uow:       uow,
		publisher: publisher{dispatcher: dispatcher, logger: logger},
		policy:    policy,
	}
}

type catalogService struct {
	uow       model.UnitOfWork
	publisher publisher
	policy    Policy
}

func (s *catalogService) CreateCollection(ctx context.Context, name string) (*model.Collection, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.ErrInvalidName
	}

	var collection *model.Collection
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		repo := provider.CollectionRepository()
		count, err := repo.CountByName(ctx, name)
		if err != nil {
			return err
		}
		if s.policy.CollectionNameLimit > 0 && count >= s.policy.CollectionNameLimit {
			return model.ErrDuplicateCollectionName
		}

		id, err := repo.NextID()
		if err != nil {
			return err
		}
		collection = &model.Collection{ID: id, Name: name, CreatedAt: now()}
		return repo.Create(ctx, collection)
	})
	if err != nil {
		return nil, err
	}
	return collection, nil
}

func (s *catalogService) CreateProduct(ctx context.Context, params ProductParams) (*model.Product, error) {
	if err := validateProductParams(params); err != nil {
		return nil, err
	}
	if params.Available < 0 {
		return nil, model.ErrInvalidQuantity
	}

	var (
		product *model.Product
		rec     eventRecorder
	)
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		if err := checkProductNumber(ctx, provider, params, uuid.Nil); err != nil {
			return err
		}

		repo := provider.ProductRepository()
		id, err := repo.NextID()
		if err != nil {
			return err
		}

		createdAt := now()
		product = &model.Product{
			ID:        id,
			Available: params.Available,
			Version:   1,
			CreatedAt: createdAt,
			UpdatedAt: createdAt,
		}
		applyProductParams(product, params)

		if err := repo.Create(ctx, product); err != nil {
			return err
		}
		rec.record(model.ProductCreated{ProductID: id, CollectionID: params.CollectionID, Number: params.Number})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.publish(&rec)
	return product, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, productID uuid.UUID, params ProductParams) (*model.Product, error) {
	if err := validateProductParams(params); err != nil {
		return nil, err
	}

	var (
		product *model.Product
		rec     eventRecorder
	)
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		repo := provider.ProductRepository()
		var err error
		product, err = repo.FindForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if err := checkProductNumber(ctx, provider, params, productID); err != nil {
			return err
		}

		applyProductParams(product, params)
		if err := updateProduct(ctx, repo, product); err != nil {
			return err
		}
		rec.record(model.ProductUpdated{ProductID: productID})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.publish(&rec)
	return product, nil
}

func (s *catalogService) LookupProduct(ctx context.Context, productID uuid.UUID) (*model.Product, error) {
	var product *model.Product
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		var err error
		product, err = provider.ProductRepository().Find(ctx, productID)
		return err
	})
	return product, err
}

func validateProductParams(params ProductParams) error {
	if strings.TrimSpace(params.Name) == "" {
		return model.ErrInvalidName
	}
	if params.Number < 1 {
		return model.ErrInvalidNumber
	}
	return model.ValidatePrice(params.Price)
}

// checkProductNumber rejects a (collection, number) pair held by any product other than self.
func checkProductNumber(ctx context.Context, provider model.RepositoryProvider, params ProductParams, self uuid.UUID) error {
	if _, err := provider.CollectionRepository().Find(ctx, params.CollectionID); err != nil {
		return err
	}

	existing, err := provider.ProductRepository().FindByNumber(ctx, params.CollectionID, params.Number)
	switch {
	case errors.Is(err, model.ErrProductNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID != self:
		return model.ErrDuplicateProductNumber
	}
	return nil
}

func applyProductParams(product *model.Product, params ProductParams) {
	product.CollectionID = params.CollectionID
	product.Number = params.Number
	product.Name = strings.TrimSpace(params.Name)
	product.EditionName = params.EditionName
	product.Description = params.Description
	product.ImageURL = params.ImageURL
	product.Price = params.Price
	product.Special = params.Special
	product.Shine = params.Shine
}

func updateProduct(ctx context.Context, repo model.ProductRepository, product *model.Product) error {
	product.Version++
	product.UpdatedAt = now()
	return repo.Update(ctx, product)
}
