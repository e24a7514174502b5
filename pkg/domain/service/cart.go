package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"figurestore/pkg/domain/model"
)

type CartService interface {
	CreateCart(ctx context.Context, userID uuid.UUID) (*model.Cart, error)
	FindCart(ctx context.Context, cartID uuid.UUID) (*model.Cart, error)
	// AddLineItem merges quantities when the product is already in the cart. The stock
	// check here is advisory; the authoritative one happens when the cart is finalized.
	AddLineItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*model.Cart, error)
	RemoveLineItem(ctx context.Context, cartID, productID uuid.UUID) (*model.Cart, error)
	AttachDiscount(ctx context.Context, cartID uuid.UUID, code string) (*model.Cart, error)
	DetachDiscount(ctx context.Context, cartID uuid.UUID) (*model.Cart, error)
	ComputeTotal(ctx context.Context, cartID uuid.UUID, at time.Time) (*model.Quote, error)
}

func NewCartService(uow model.UnitOfWork, dispatcher model.EventDispatcher, logger logrus.FieldLogger, policy Policy) CartService {
	return &cartService{
		uow:       uow,
		publisher: publisher{dispatcher: dispatcher, logger: logger},
		resolver:  priceResolver{logger: logger},
		policy:    policy,
	}
}

type cartService struct {
	uow       model.UnitOfWork
	publisher publisher
	resolver  priceResolver
	policy    Policy
}

func (s *cartService) CreateCart(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	var (
		cart *model.Cart
		rec  eventRecorder
	)
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		repo := provider.CartRepository()
		open, err := repo.CountOpenByUser(ctx, userID)
		if err != nil {
			return err
		}
		if s.policy.OpenCartsPerUser > 0 && open >= s.policy.OpenCartsPerUser {
			return model.ErrCartLimitReached
		}

		id, err := repo.NextID()
		if err != nil {
			return err
		}
		createdAt := now()
		cart = &model.Cart{
			ID:        id,
			UserID:    userID,
			Status:    model.CartOpen,
			Version:   1,
			CreatedAt: createdAt,
			UpdatedAt: createdAt,
		}
		if err := repo.Create(ctx, cart); err != nil {
			return err
		}
		rec.record(model.CartCreated{CartID: id, UserID: userID})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.publish(&rec)
	return cart, nil
}

func (s *cartService) FindCart(ctx context.Context, cartID uuid.UUID) (*model.Cart, error) {
	var cart *model.Cart
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		var err error
		cart, err = provider.CartRepository().Find(ctx, cartID)
		return err
	})
	return cart, err
}

func (s *cartService) AddLineItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*model.Cart, error) {
	if quantity < 1 {
		return nil, model.ErrInvalidQuantity
	}

	return s.executeOnCart(ctx, cartID, func(provider model.RepositoryProvider, cart *model.Cart, rec *eventRecorder) error {
		product, err := provider.ProductRepository().Find(ctx, productID)
		if err != nil {
			return err
		}

		index, found := cart.Line(productID)
		total := quantity
		if found {
			total += cart.Lines[index].Quantity
		}
		if total > product.Available {
			return model.ErrInsufficientStock
		}

		unitPrice, err := s.resolver.productPrice(ctx, provider.PromotionRepository(), product, now(), rec)
		if err != nil {
			return err
		}

		line := model.CartLine{ProductID: productID, Quantity: total, UnitPrice: unitPrice}
		if found {
			cart.Lines[index] = line
		} else {
			cart.Lines = append(cart.Lines, line)
		}
		rec.record(model.CartLineChanged{CartID: cartID, ProductID: productID, Quantity: total})
		return nil
	})
}

func (s *cartService) RemoveLineItem(ctx context.Context, cartID, productID uuid.UUID) (*model.Cart, error) {
	return s.executeOnCart(ctx, cartID, func(_ model.RepositoryProvider, cart *model.Cart, rec *eventRecorder) error {
		index, found := cart.Line(productID)
		if !found {
			return model.ErrCartLineNotFound
		}
		cart.Lines = append(cart.Lines[:index], cart.Lines[index+1:]...)
		rec.record(model.CartLineChanged{CartID: cartID, ProductID: productID})
		return nil
	})
}

// AttachDiscount holds the cart lock while checking the slot, so of two concurrent
// calls for the same cart exactly one succeeds.
func (s *cartService) AttachDiscount(ctx context.Context, cartID uuid.UUID, code string) (*model.Cart, error) {
	return s.executeOnCart(ctx, cartID, func(provider model.RepositoryProvider, cart *model.Cart, rec *eventRecorder) error {
		discount, err := provider.DiscountRepository().FindByCode(ctx, strings.TrimSpace(code))
		if err != nil {
			return err
		}
		if cart.DiscountID != nil {
			return model.ErrDiscountAlreadyAttached
		}
		cart.DiscountID = &discount.ID
		rec.record(model.DiscountAttached{CartID: cartID, DiscountID: discount.ID})
		return nil
	})
}

func (s *cartService) DetachDiscount(ctx context.Context, cartID uuid.UUID) (*model.Cart, error) {
	return s.executeOnCart(ctx, cartID, func(_ model.RepositoryProvider, cart *model.Cart, rec *eventRecorder) error {
		if cart.DiscountID == nil {
			return model.ErrDiscountNotFound
		}
		cart.DiscountID = nil
		rec.record(model.DiscountDetached{CartID: cartID})
		return nil
	})
}

func (s *cartService) ComputeTotal(ctx context.Context, cartID uuid.UUID, at time.Time) (*model.Quote, error) {
	var (
		quote *model.Quote
		rec   eventRecorder
	)
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		cart, err := provider.CartRepository().Find(ctx, cartID)
		if err != nil {
			return err
		}
		quote, err = s.resolver.quote(ctx, provider, cart, at, &rec)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publisher.publish(&rec)
	return quote, nil
}

func (s *cartService) executeOnCart(
	ctx context.Context,
	cartID uuid.UUID,
	action func(provider model.RepositoryProvider, cart *model.Cart, rec *eventRecorder) error,
) (*model.Cart, error) {
	var (
		cart *model.Cart
		rec  eventRecorder
	)
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		repo := provider.CartRepository()
		var err error
		cart, err = repo.FindForUpdate(ctx, cartID)
		if err != nil {
			return err
		}
		if cart.Status != model.CartOpen {
			return model.ErrCartAlreadyFinalized
		}

		if err := action(provider, cart, &rec); err != nil {
			return err
		}
		return updateCart(ctx, repo, cart)
	})
	if err != nil {
		return nil, err
	}

	s.publisher.publish(&rec)
	return cart, nil
}

func updateCart(ctx context.Context, repo model.CartRepository, cart *model.Cart) error {
	cart.Version++
	cart.UpdatedAt = now()
	return repo.Update(ctx, cart)
}
