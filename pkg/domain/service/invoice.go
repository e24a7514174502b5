package service

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"figurestore/pkg/domain/model"
)

const trackingCodePrefix = "TRK-"

type InvoiceService interface {
	// Finalize converts an open cart into an invoice. Stock reservation, invoice
	// creation, cart closing and the payment charge either all happen or none do.
	Finalize(ctx context.Context, cartID uuid.UUID, at time.Time) (*model.Invoice, error)
	Invoice(ctx context.Context, invoiceID uuid.UUID) (*model.Invoice, error)
	InvoicesForUser(ctx context.Context, userID uuid.UUID) ([]model.Invoice, error)
}

func NewInvoiceService(
	uow model.UnitOfWork,
	payments model.PaymentProcessor,
	dispatcher model.EventDispatcher,
	logger logrus.FieldLogger,
	policy Policy,
) InvoiceService {
	return &invoiceService{
		uow:       uow,
		payments:  payments,
		publisher: publisher{dispatcher: dispatcher, logger: logger},
		resolver:  priceResolver{logger: logger},
		policy:    policy,
	}
}

type invoiceService struct {
	uow       model.UnitOfWork
	payments  model.PaymentProcessor
	publisher publisher
	resolver  priceResolver
	policy    Policy
}

func (s *invoiceService) Finalize(ctx context.Context, cartID uuid.UUID, at time.Time) (*model.Invoice, error) {
	var (
		invoice *model.Invoice
		charged bool
		rec     eventRecorder
	)
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		carts := provider.CartRepository()
		cart, err := carts.FindForUpdate(ctx, cartID)
		if err != nil {
			return err
		}
		if cart.Status != model.CartOpen {
			return model.ErrCartAlreadyFinalized
		}
		if len(cart.Lines) == 0 {
			return model.ErrEmptyCart
		}

		if err := s.reserveLines(ctx, provider.ProductRepository(), cart.Lines, &rec); err != nil {
			return err
		}

		quote, err := s.resolver.quote(ctx, provider, cart, at, &rec)
		if err != nil {
			return err
		}

		invoices := provider.InvoiceRepository()
		invoice, err = newInvoice(invoices, cart, quote)
		if err != nil {
			return err
		}
		if err := invoices.Create(ctx, invoice); err != nil {
			return err
		}

		cart.Status = model.CartClosed
		if err := updateCart(ctx, carts, cart); err != nil {
			return err
		}

		if err := s.payments.Charge(ctx, invoice); err != nil {
			return err
		}
		charged = true
		rec.record(model.InvoiceCreated{InvoiceID: invoice.ID, CartID: cartID, UserID: cart.UserID, Total: invoice.Total})
		return nil
	})
	if err != nil {
		if charged {
			s.refund(invoice, err)
		}
		return nil, err
	}

	s.publisher.publish(&rec)
	return invoice, nil
}

func (s *invoiceService) refund(invoice *model.Invoice, cause error) {
	logger := s.publisher.logger.WithFields(logrus.Fields{
		"invoice_id": invoice.ID,
		"cart_id":    invoice.CartID,
		"cause":      cause.Error(),
	})
	if err := s.payments.Refund(context.Background(), invoice); err != nil {
		logger.WithError(err).Error("failed to refund charge of rolled back invoice")
		return
	}
	logger.Warn("refunded charge of rolled back invoice")
}

// reserveLines locks products in ascending ID order so concurrent finalizations
// over overlapping products cannot deadlock.
func (s *invoiceService) reserveLines(ctx context.Context, products model.ProductRepository, lines []model.CartLine, rec *eventRecorder) error {
	ordered := make([]model.CartLine, len(lines))
	copy(ordered, lines)
	sort.Slice(ordered, func(i, j int) bool {
		return bytes.Compare(ordered[i].ProductID[:], ordered[j].ProductID[:]) < 0
	})

	for _, line := range ordered {
		product, err := products.FindForUpdate(ctx, line.ProductID)
		if err != nil {
			return err
		}
		if err := reserveStock(ctx, products, product, line.Quantity, s.policy.LowStockThreshold, rec); err != nil {
			return err
		}
	}
	return nil
}

func (s *invoiceService) Invoice(ctx context.Context, invoiceID uuid.UUID) (*model.Invoice, error) {
	var invoice *model.Invoice
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		var err error
		invoice, err = provider.InvoiceRepository().Find(ctx, invoiceID)
		return err
	})
	return invoice, err
}

func (s *invoiceService) InvoicesForUser(ctx context.Context, userID uuid.UUID) ([]model.Invoice, error) {
	var invoices []model.Invoice
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		var err error
		invoices, err = provider.InvoiceRepository().ListByUser(ctx, userID)
		return err
	})
	return invoices, err
}

func newInvoice(repo model.InvoiceRepository, cart *model.Cart, quote *model.Quote) (*model.Invoice, error) {
	id, err := repo.NextID()
	if err != nil {
		return nil, err
	}

	invoice := &model.Invoice{
		ID:           id,
		UserID:       cart.UserID,
		CartID:       cart.ID,
		TrackingCode: newTrackingCode(),
		SaleDate:     model.Day(quote.At),
		Subtotal:     quote.Subtotal,
		Total:        quote.Total,
		CreatedAt:    now(),
	}
	for _, line := range quote.Lines {
		invoice.Lines = append(invoice.Lines, model.InvoiceLine{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			LineTotal: line.LineTotal,
		})
	}
	if quote.Discount != nil {
		invoice.Discount = &model.InvoiceDiscount{
			DiscountID: quote.Discount.ID,
			Code:       quote.Discount.Code,
			Percentage: quote.Discount.Percentage,
		}
	}
	return invoice, nil
}

func newTrackingCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return trackingCodePrefix + strings.ToUpper(raw[:12])
}
