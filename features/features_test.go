package features

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cucumber/godog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"

	"figurestore/pkg/domain/model"
	"figurestore/pkg/domain/service"
	"figurestore/pkg/infrastructure/amqp"
	"figurestore/pkg/infrastructure/memory"
	"figurestore/pkg/infrastructure/payment"
)

type storeTestContext struct {
	ctx       context.Context
	catalog   service.CatalogService
	inventory service.InventoryService
	pricing   service.PricingService
	carts     service.CartService
	invoices  service.InvoiceService

	products map[string]uuid.UUID
	users    map[string]uuid.UUID
	cartIDs  map[string]uuid.UUID
	invoice  *model.Invoice
	err      error
}

func (c *storeTestContext) reset() error {
	store, err := memory.NewStore()
	if err != nil {
		return err
	}
	logger, _ := test.NewNullLogger()
	dispatcher := amqp.NewLogDispatcher(logger)
	policy := service.DefaultPolicy()

	c.ctx = context.Background()
	c.catalog = service.NewCatalogService(store, dispatcher, logger, policy)
	c.inventory = service.NewInventoryService(store, dispatcher, logger, policy)
	c.pricing = service.NewPricingService(store, dispatcher, logger)
	c.carts = service.NewCartService(store, dispatcher, logger, policy)
	c.invoices = service.NewInvoiceService(store, payment.NewWalletProcessor(decimal.NewFromInt(10000), logger), dispatcher, logger, policy)
	c.products = make(map[string]uuid.UUID)
	c.users = make(map[string]uuid.UUID)
	c.cartIDs = make(map[string]uuid.UUID)
	c.invoice = nil
	c.err = nil
	return nil
}

func day(n int) time.Time {
	return model.Day(time.Now()).AddDate(0, 0, n)
}

func (c *storeTestContext) product(name string) (uuid.UUID, error) {
	id, ok := c.products[name]
	if !ok {
		return uuid.Nil, fmt.Errorf("unknown product %q", name)
	}
	return id, nil
}

func (c *storeTestContext) user(name string) uuid.UUID {
	id, ok := c.users[name]
	if !ok {
		id = uuid.New()
		c.users[name] = id
	}
	return id
}

func (c *storeTestContext) cart(name string) (uuid.UUID, error) {
	if id, ok := c.cartIDs[name]; ok {
		return id, nil
	}
	cart, err := c.carts.CreateCart(c.ctx, c.user(name))
	if err != nil {
		return uuid.Nil, err
	}
	c.cartIDs[name] = cart.ID
	return cart.ID, nil
}

func (c *storeTestContext) aProductPricedWithInStock(name, price string, available int) error {
	collection, err := c.catalog.CreateCollection(c.ctx, "Collection "+name)
	if err != nil {
		return err
	}
	product, err := c.catalog.CreateProduct(c.ctx, service.ProductParams{
		CollectionID: collection.ID,
		Number:       1,
		Name:         name,
		Price:        decimal.RequireFromString(price),
		Available:    available,
	})
	if err != nil {
		return err
	}
	c.products[name] = product.ID
	return nil
}

func (c *storeTestContext) aPromotionOnFromDayToDay(percentage, name string, start, end int) error {
	productID, err := c.product(name)
	if err != nil {
		return err
	}
	_, err = c.pricing.CreatePromotion(c.ctx, service.PromotionParams{
		ProductID:  productID,
		Start:      day(start),
		End:        day(end),
		Percentage: decimal.RequireFromString(percentage),
	})
	return err
}

func (c *storeTestContext) aDiscountOfFromDayToDay(code, percentage string, start, end int) error {
	_, err := c.pricing.CreateDiscount(c.ctx, service.DiscountParams{
		Code:       code,
		Start:      day(start),
		End:        day(end),
		Percentage: decimal.RequireFromString(percentage),
	})
	return err
}

func (c *storeTestContext) thePriceOfOnDayIs(name string, n int, expected string) error {
	productID, err := c.product(name)
	if err != nil {
		return err
	}
	price, err := c.pricing.ProductPrice(c.ctx, productID, day(n))
	if err != nil {
		return err
	}
	return expectMoney(expected, price)
}

func (c *storeTestContext) addsOfToCart(userName string, quantity int, productName string) error {
	productID, err := c.product(productName)
	if err != nil {
		return err
	}
	cartID, err := c.cart(userName)
	if err != nil {
		return err
	}
	_, err = c.carts.AddLineItem(c.ctx, cartID, productID, quantity)
	return err
}

func (c *storeTestContext) appliesTheDiscount(userName, code string) error {
	cartID, err := c.cart(userName)
	if err != nil {
		return err
	}
	_, err = c.carts.AttachDiscount(c.ctx, cartID, code)
	return err
}

func (c *storeTestContext) theCartTotalOfOnDayIs(userName string, n int, expected string) error {
	cartID, err := c.cart(userName)
	if err != nil {
		return err
	}
	quote, err := c.carts.ComputeTotal(c.ctx, cartID, day(n))
	if err != nil {
		return err
	}
	return expectMoney(expected, quote.Total)
}

func (c *storeTestContext) checksOutOnDay(userName string, n int) error {
	cartID, err := c.cart(userName)
	if err != nil {
		return err
	}
	c.invoice, c.err = c.invoices.Finalize(c.ctx, cartID, day(n))
	return nil
}

func (c *storeTestContext) theCheckoutSucceedsWithATotalOf(expected string) error {
	if c.err != nil {
		return fmt.Errorf("expected checkout to succeed but got: %v", c.err)
	}
	return expectMoney(expected, c.invoice.Total)
}

func (c *storeTestContext) theCheckoutFailsWithInsufficientStock() error {
	if !errors.Is(c.err, model.ErrInsufficientStock) {
		return fmt.Errorf("expected insufficient stock but got: %v", c.err)
	}
	return nil
}

func (c *storeTestContext) unitsOfArrive(quantity int, name string) error {
	productID, err := c.product(name)
	if err != nil {
		return err
	}
	_, err = c.inventory.RecordIntake(c.ctx, productID, quantity)
	return err
}

func (c *storeTestContext) unitsOfAreReserved(quantity int, name string) error {
	productID, err := c.product(name)
	if err != nil {
		return err
	}
	c.err = c.inventory.Reserve(c.ctx, productID, quantity)
	return nil
}

func (c *storeTestContext) hasInStock(name string, expected int) error {
	productID, err := c.product(name)
	if err != nil {
		return err
	}
	available, err := c.inventory.Available(c.ctx, productID)
	if err != nil {
		return err
	}
	if available != expected {
		return fmt.Errorf("expected %d in stock, got %d", expected, available)
	}
	return nil
}

func expectMoney(expected string, actual decimal.Decimal) error {
	if actual.StringFixed(2) != expected {
		return fmt.Errorf("expected %s, got %s", expected, actual.StringFixed(2))
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &storeTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		return ctx, tc.reset()
	})

	// Given steps
	ctx.Step(`^a product "([^"]*)" priced (\d+\.\d+) with (\d+) in stock$`, tc.aProductPricedWithInStock)
	ctx.Step(`^a promotion of (\d+(?:\.\d+)?) on "([^"]*)" from day (\d+) to day (\d+)$`, tc.aPromotionOnFromDayToDay)
	ctx.Step(`^a discount "([^"]*)" of (\d+(?:\.\d+)?) from day (\d+) to day (\d+)$`, tc.aDiscountOfFromDayToDay)

	// When steps
	ctx.Step(`^"([^"]*)" adds (\d+) of "([^"]*)" to the cart$`, tc.addsOfToCart)
	ctx.Step(`^"([^"]*)" applies the discount "([^"]*)"$`, tc.appliesTheDiscount)
	ctx.Step(`^"([^"]*)" checks out on day (\d+)$`, tc.checksOutOnDay)
	ctx.Step(`^(\d+) units? of "([^"]*)" arrives?$`, tc.unitsOfArrive)
	ctx.Step(`^(\d+) units? of "([^"]*)" (?:is|are) reserved$`, tc.unitsOfAreReserved)

	// Then steps
	ctx.Step(`^the price of "([^"]*)" on day (\d+) is (\d+\.\d+)$`, tc.thePriceOfOnDayIs)
	ctx.Step(`^the cart total of "([^"]*)" on day (\d+) is (\d+\.\d+)$`, tc.theCartTotalOfOnDayIs)
	ctx.Step(`^the checkout succeeds with a total of (\d+\.\d+)$`, tc.theCheckoutSucceedsWithATotalOf)
	ctx.Step(`^the (?:checkout|last reservation) fails with insufficient stock$`, tc.theCheckoutFailsWithInsufficientStock)
	ctx.Step(`^"([^"]*)" has (\d+) in stock$`, tc.hasInStock)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"."},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
