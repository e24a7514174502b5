package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"figurestore/pkg/domain/model"
)

const generatedCodePrefix = "FIG-"

type DiscountParams struct {
	// Code is generated when left blank.
	Code       string
	Start      time.Time
	End        time.Time
	Percentage decimal.Decimal
}

type PromotionParams struct {
	ProductID  uuid.UUID
	Start      time.Time
	End        time.Time
	Percentage decimal.Decimal
}

// PricingService resolves effective prices at an instant. Expired discounts and
// promotions simply stop matching; stored prices are never rewritten.
type PricingService interface {
	ProductPrice(ctx context.Context, productID uuid.UUID, at time.Time) (decimal.Decimal, error)
	CreateDiscount(ctx context.Context, params DiscountParams) (*model.Discount, error)
	UpdateDiscount(ctx context.Context, discountID uuid.UUID, params DiscountParams) (*model.Discount, error)
	FindDiscount(ctx context.Context, code string) (*model.Discount, error)
	CreatePromotion(ctx context.Context, params PromotionParams) (*model.Promotion, error)
	UpdatePromotion(ctx context.Context, promotionID uuid.UUID, params PromotionParams) (*model.Promotion, error)
}

func NewPricingService(uow model.UnitOfWork, dispatcher model.EventDispatcher, logger logrus.FieldLogger) PricingService {
	return &pricingService{
		uow:       uow,
		publisher: publisher{dispatcher: dispatcher, logger: logger},
		resolver:  priceResolver{logger: logger},
	}
}

type pricingService struct {
	uow       model.UnitOfWork
	publisher publisher
	resolver  priceResolver
}

func (s *pricingService) ProductPrice(ctx context.Context, productID uuid.UUID, at time.Time) (decimal.Decimal, error) {
	var (
		price decimal.Decimal
		rec   eventRecorder
	)
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		product, err := provider.ProductRepository().Find(ctx, productID)
		if err != nil {
			return err
		}
		price, err = s.resolver.productPrice(ctx, provider.PromotionRepository(), product, at, &rec)
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}

	s.publisher.publish(&rec)
	return price, nil
}

func (s *pricingService) CreateDiscount(ctx context.Context, params DiscountParams) (*model.Discount, error) {
	return s.saveDiscount(ctx, uuid.Nil, params)
}

func (s *pricingService) UpdateDiscount(ctx context.Context, discountID uuid.UUID, params DiscountParams) (*model.Discount, error) {
	return s.saveDiscount(ctx, discountID, params)
}

func (s *pricingService) saveDiscount(ctx context.Context, discountID uuid.UUID, params DiscountParams) (*model.Discount, error) {
	window := model.NewWindow(params.Start, params.End)
	if err := model.ValidateWindow(window, params.Percentage, now()); err != nil {
		return nil, err
	}
	code := strings.TrimSpace(params.Code)
	if code == "" {
		code = generateDiscountCode()
	}
	if len(code) > model.MaxDiscountCodeLength {
		return nil, model.ErrInvalidCode
	}

	var (
		discount *model.Discount
		rec      eventRecorder
	)
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		repo := provider.DiscountRepository()

		existing, err := repo.FindByCode(ctx, code)
		switch {
		case errors.Is(err, model.ErrDiscountNotFound):
		case err != nil:
			return err
		case existing.ID != discountID:
			return model.ErrDuplicateDiscountCode
		}

		if discountID == uuid.Nil {
			id, err := repo.NextID()
			if err != nil {
				return err
			}
			discount = &model.Discount{ID: id, CreatedAt: now()}
		} else {
			discount, err = repo.Find(ctx, discountID)
			if err != nil {
				return err
			}
		}

		discount.Code = code
		discount.Window = window
		discount.Percentage = params.Percentage
		discount.UpdatedAt = now()
		if err := repo.Store(ctx, discount); err != nil {
			return err
		}
		rec.record(model.DiscountSaved{DiscountID: discount.ID, Code: code})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.publish(&rec)
	return discount, nil
}

func (s *pricingService) FindDiscount(ctx context.Context, code string) (*model.Discount, error) {
	var discount *model.Discount
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		var err error
		discount, err = provider.DiscountRepository().FindByCode(ctx, strings.TrimSpace(code))
		return err
	})
	return discount, err
}

func (s *pricingService) CreatePromotion(ctx context.Context, params PromotionParams) (*model.Promotion, error) {
	return s.savePromotion(ctx, uuid.Nil, params)
}

func (s *pricingService) UpdatePromotion(ctx context.Context, promotionID uuid.UUID, params PromotionParams) (*model.Promotion, error) {
	return s.savePromotion(ctx, promotionID, params)
}

func (s *pricingService) savePromotion(ctx context.Context, promotionID uuid.UUID, params PromotionParams) (*model.Promotion, error) {
	window := model.NewWindow(params.Start, params.End)
	if err := model.ValidateWindow(window, params.Percentage, now()); err != nil {
		return nil, err
	}

	var (
		promotion *model.Promotion
		rec       eventRecorder
	)
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		// Locking the product serializes promotion writes for it.
		if _, err := provider.ProductRepository().FindForUpdate(ctx, params.ProductID); err != nil {
			return err
		}

		repo := provider.PromotionRepository()
		others, err := repo.ListByProduct(ctx, params.ProductID)
		if err != nil {
			return err
		}
		for _, other := range others {
			if other.ID != promotionID && other.Window.Overlaps(window) {
				return model.ErrOverlappingPromotion
			}
		}

		if promotionID == uuid.Nil {
			id, err := repo.NextID()
			if err != nil {
				return err
			}
			promotion = &model.Promotion{ID: id, CreatedAt: now()}
		} else {
			promotion, err = repo.Find(ctx, promotionID)
			if err != nil {
				return err
			}
		}

		promotion.ProductID = params.ProductID
		promotion.Window = window
		promotion.Percentage = params.Percentage
		promotion.UpdatedAt = now()
		if err := repo.Store(ctx, promotion); err != nil {
			return err
		}
		rec.record(model.PromotionSaved{PromotionID: promotion.ID, ProductID: params.ProductID})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.publish(&rec)
	return promotion, nil
}

func generateDiscountCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return generatedCodePrefix + strings.ToUpper(raw[:8])
}

type priceResolver struct {
	logger logrus.FieldLogger
}

// productPrice returns the base price unless a promotion is active at the given instant.
// Overlapping promotions can only come from data written around the service; they are
// resolved deterministically and reported instead of failing the request.
func (r priceResolver) productPrice(ctx context.Context, repo model.PromotionRepository, product *model.Product, at time.Time, rec *eventRecorder) (decimal.Decimal, error) {
	promotions, err := repo.ListByProduct(ctx, product.ID)
	if err != nil {
		return decimal.Zero, err
	}

	var active []*model.Promotion
	for i := range promotions {
		if promotions[i].ActiveAt(at) {
			active = append(active, &promotions[i])
		}
	}
	if len(active) == 0 {
		return product.Price, nil
	}

	chosen := active[0]
	for _, promotion := range active[1:] {
		if promotion.Precedes(chosen) {
			chosen = promotion
		}
	}

	if len(active) > 1 {
		ids := make([]uuid.UUID, 0, len(active))
		for _, promotion := range active {
			ids = append(ids, promotion.ID)
		}
		r.logger.WithFields(logrus.Fields{
			"product_id":   product.ID,
			"promotions":   ids,
			"chosen":       chosen.ID,
			"evaluated_at": at,
		}).Warn("overlapping promotions found, applying the most recent one")
		rec.record(model.PromotionConflictDetected{ProductID: product.ID, PromotionIDs: ids, ChosenID: chosen.ID})
	}

	return model.ApplyPercentage(product.Price, chosen.Percentage), nil
}

// activeDiscount returns nil when the cart has no discount or it is inert at the given instant.
func (r priceResolver) activeDiscount(ctx context.Context, repo model.DiscountRepository, cart *model.Cart, at time.Time) (*model.Discount, error) {
	if cart.DiscountID == nil {
		return nil, nil
	}
	discount, err := repo.Find(ctx, *cart.DiscountID)
	if err != nil {
		return nil, err
	}
	if !discount.ActiveAt(at) {
		return nil, nil
	}
	return discount, nil
}

func (r priceResolver) quote(ctx context.Context, provider model.RepositoryProvider, cart *model.Cart, at time.Time, rec *eventRecorder) (*model.Quote, error) {
	products := provider.ProductRepository()
	promotions := provider.PromotionRepository()

	quote := &model.Quote{CartID: cart.ID, At: at, Subtotal: decimal.Zero}
	for _, line := range cart.Lines {
		product, err := products.Find(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		unitPrice, err := r.productPrice(ctx, promotions, product, at, rec)
		if err != nil {
			return nil, err
		}
		lineTotal := unitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(model.PriceScale)
		quote.Lines = append(quote.Lines, model.QuoteLine{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: unitPrice,
			LineTotal: lineTotal,
		})
		quote.Subtotal = quote.Subtotal.Add(lineTotal)
	}

	discount, err := r.activeDiscount(ctx, provider.DiscountRepository(), cart, at)
	if err != nil {
		return nil, err
	}
	quote.Discount = discount
	quote.Total = quote.Subtotal
	if discount != nil {
		quote.Total = model.ApplyPercentage(quote.Subtotal, discount.Percentage)
	}
	return quote, nil
}
