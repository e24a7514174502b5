package transport

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"figurestore/pkg/domain/model"
)

const dateLayout = "2006-01-02"

var errMalformedDate = model.NewError(model.ErrValidation, "dates must use the YYYY-MM-DD format")

func parseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, errMalformedDate
	}
	return t, nil
}

// evaluationTime reads the optional "at" query parameter; it defaults to now.
func evaluationTime(r *http.Request) (time.Time, error) {
	at := r.URL.Query().Get("at")
	if at == "" {
		return time.Now().UTC(), nil
	}
	return parseDate(at)
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

type collectionRequest struct {
	Name string `json:"name"`
}

type collectionResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type productRequest struct {
	CollectionID uuid.UUID       `json:"collection_id"`
	Number       int             `json:"number"`
	Name         string          `json:"name"`
	EditionName  string          `json:"edition_name"`
	Description  string          `json:"description"`
	ImageURL     string          `json:"image_url"`
	Price        decimal.Decimal `json:"price"`
	Available    int             `json:"available"`
	Special      bool            `json:"special"`
	Shine        bool            `json:"shine"`
}

type productResponse struct {
	ID           uuid.UUID `json:"id"`
	CollectionID uuid.UUID `json:"collection_id"`
	Number       int       `json:"number"`
	Name         string    `json:"name"`
	EditionName  string    `json:"edition_name"`
	Description  string    `json:"description"`
	ImageURL     string    `json:"image_url"`
	Price        string    `json:"price"`
	Available    int       `json:"available"`
	Special      bool      `json:"special"`
	Shine        bool      `json:"shine"`
	Version      int       `json:"version"`
}

func newProductResponse(p *model.Product) productResponse {
	return productResponse{
		ID:           p.ID,
		CollectionID: p.CollectionID,
		Number:       p.Number,
		Name:         p.Name,
		EditionName:  p.EditionName,
		Description:  p.Description,
		ImageURL:     p.ImageURL,
		Price:        money(p.Price),
		Available:    p.Available,
		Special:      p.Special,
		Shine:        p.Shine,
		Version:      p.Version,
	}
}

type priceResponse struct {
	ProductID uuid.UUID `json:"product_id"`
	At        string    `json:"at"`
	Price     string    `json:"price"`
}

type stockResponse struct {
	ProductID uuid.UUID `json:"product_id"`
	Available int       `json:"available"`
}

type intakeRequest struct {
	Quantity int `json:"quantity"`
}

type intakeResponse struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}

type windowRequest struct {
	Start      string          `json:"start"`
	End        string          `json:"end"`
	Percentage decimal.Decimal `json:"percentage"`
}

func (w windowRequest) dates() (time.Time, time.Time, error) {
	start, err := parseDate(w.Start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseDate(w.End)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

type discountRequest struct {
	windowRequest
	Code string `json:"code"`
}

type discountResponse struct {
	ID         uuid.UUID `json:"id"`
	Code       string    `json:"code"`
	Start      string    `json:"start"`
	End        string    `json:"end"`
	Percentage string    `json:"percentage"`
}

func newDiscountResponse(d *model.Discount) discountResponse {
	return discountResponse{
		ID:         d.ID,
		Code:       d.Code,
		Start:      d.Window.Start.Format(dateLayout),
		End:        d.Window.End.Format(dateLayout),
		Percentage: d.Percentage.String(),
	}
}

type promotionRequest struct {
	windowRequest
	ProductID uuid.UUID `json:"product_id"`
}

type promotionResponse struct {
	ID         uuid.UUID `json:"id"`
	ProductID  uuid.UUID `json:"product_id"`
	Start      string    `json:"start"`
	End        string    `json:"end"`
	Percentage string    `json:"percentage"`
}

func newPromotionResponse(p *model.Promotion) promotionResponse {
	return promotionResponse{
		ID:         p.ID,
		ProductID:  p.ProductID,
		Start:      p.Window.Start.Format(dateLayout),
		End:        p.Window.End.Format(dateLayout),
		Percentage: p.Percentage.String(),
	}
}

type lineItemRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

type attachDiscountRequest struct {
	Code string `json:"code"`
}

type cartLineResponse struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	UnitPrice string    `json:"unit_price"`
}

type cartResponse struct {
	ID         uuid.UUID          `json:"id"`
	UserID     uuid.UUID          `json:"user_id"`
	Open       bool               `json:"open"`
	DiscountID *uuid.UUID         `json:"discount_id,omitempty"`
	Lines      []cartLineResponse `json:"lines"`
}

func newCartResponse(c *model.Cart) cartResponse {
	resp := cartResponse{
		ID:         c.ID,
		UserID:     c.UserID,
		Open:       c.Status == model.CartOpen,
		DiscountID: c.DiscountID,
		Lines:      make([]cartLineResponse, 0, len(c.Lines)),
	}
	for _, line := range c.Lines {
		resp.Lines = append(resp.Lines, cartLineResponse{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: money(line.UnitPrice),
		})
	}
	return resp
}

type lineResponse struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	UnitPrice string    `json:"unit_price"`
	LineTotal string    `json:"line_total"`
}

type appliedDiscountResponse struct {
	ID         uuid.UUID `json:"id"`
	Code       string    `json:"code"`
	Percentage string    `json:"percentage"`
}

type quoteResponse struct {
	CartID   uuid.UUID                `json:"cart_id"`
	At       string                   `json:"at"`
	Lines    []lineResponse           `json:"lines"`
	Subtotal string                   `json:"subtotal"`
	Discount *appliedDiscountResponse `json:"discount,omitempty"`
	Total    string                   `json:"total"`
}

func newQuoteResponse(q *model.Quote) quoteResponse {
	resp := quoteResponse{
		CartID:   q.CartID,
		At:       q.At.Format(dateLayout),
		Lines:    make([]lineResponse, 0, len(q.Lines)),
		Subtotal: money(q.Subtotal),
		Total:    money(q.Total),
	}
	for _, line := range q.Lines {
		resp.Lines = append(resp.Lines, lineResponse{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: money(line.UnitPrice),
			LineTotal: money(line.LineTotal),
		})
	}
	if q.Discount != nil {
		resp.Discount = &appliedDiscountResponse{ID: q.Discount.ID, Code: q.Discount.Code, Percentage: q.Discount.Percentage.String()}
	}
	return resp
}

type invoiceResponse struct {
	ID           uuid.UUID                `json:"id"`
	UserID       uuid.UUID                `json:"user_id"`
	CartID       uuid.UUID                `json:"cart_id"`
	TrackingCode string                   `json:"tracking_code"`
	SaleDate     string                   `json:"sale_date"`
	Lines        []lineResponse           `json:"lines"`
	Subtotal     string                   `json:"subtotal"`
	Discount     *appliedDiscountResponse `json:"discount,omitempty"`
	Total        string                   `json:"total"`
}

func newInvoiceResponse(i *model.Invoice) invoiceResponse {
	resp := invoiceResponse{
		ID:           i.ID,
		UserID:       i.UserID,
		CartID:       i.CartID,
		TrackingCode: i.TrackingCode,
		SaleDate:     i.SaleDate.Format(dateLayout),
		Lines:        make([]lineResponse, 0, len(i.Lines)),
		Subtotal:     money(i.Subtotal),
		Total:        money(i.Total),
	}
	for _, line := range i.Lines {
		resp.Lines = append(resp.Lines, lineResponse{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: money(line.UnitPrice),
			LineTotal: money(line.LineTotal),
		})
	}
	if i.Discount != nil {
		resp.Discount = &appliedDiscountResponse{ID: i.Discount.DiscountID, Code: i.Discount.Code, Percentage: i.Discount.Percentage.String()}
	}
	return resp
}

type reviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type reviewResponse struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	ProductID uuid.UUID `json:"product_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

type questionRequest struct {
	Text string `json:"text"`
}

type answerRequest struct {
	Answer string `json:"answer"`
}

type questionResponse struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	ProductID  uuid.UUID  `json:"product_id"`
	Text       string     `json:"text"`
	Answer     string     `json:"answer,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	AnsweredAt *time.Time `json:"answered_at,omitempty"`
}

func newQuestionResponse(q *model.Question) questionResponse {
	return questionResponse{
		ID:         q.ID,
		UserID:     q.UserID,
		ProductID:  q.ProductID,
		Text:       q.Text,
		Answer:     q.Answer,
		CreatedAt:  q.CreatedAt,
		AnsweredAt: q.AnsweredAt,
	}
}
