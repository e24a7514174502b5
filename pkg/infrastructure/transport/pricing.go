package transport

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"figurestore/pkg/domain/model"
	"figurestore/pkg/domain/service"
)

func (h *Handler) productPrice(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	at, err := evaluationTime(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	price, err := h.services.Pricing.ProductPrice(r.Context(), productID, at)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, priceResponse{ProductID: productID, At: at.Format(dateLayout), Price: money(price)})
}

func (h *Handler) createDiscount(w http.ResponseWriter, r *http.Request) {
	h.saveDiscount(w, r, uuid.Nil, http.StatusCreated)
}

func (h *Handler) updateDiscount(w http.ResponseWriter, r *http.Request) {
	discountID, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.saveDiscount(w, r, discountID, http.StatusOK)
}

func (h *Handler) saveDiscount(w http.ResponseWriter, r *http.Request, discountID uuid.UUID, status int) {
	var req discountRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	start, end, err := req.dates()
	if err != nil {
		h.fail(w, r, err)
		return
	}

	params := service.DiscountParams{Code: req.Code, Start: start, End: end, Percentage: req.Percentage}
	var discount *model.Discount
	if discountID == uuid.Nil {
		discount, err = h.services.Pricing.CreateDiscount(r.Context(), params)
	} else {
		discount, err = h.services.Pricing.UpdateDiscount(r.Context(), discountID, params)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, status, newDiscountResponse(discount))
}

func (h *Handler) findDiscount(w http.ResponseWriter, r *http.Request) {
	discount, err := h.services.Pricing.FindDiscount(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newDiscountResponse(discount))
}

func (h *Handler) createPromotion(w http.ResponseWriter, r *http.Request) {
	h.savePromotion(w, r, uuid.Nil, http.StatusCreated)
}

func (h *Handler) updatePromotion(w http.ResponseWriter, r *http.Request) {
	promotionID, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.savePromotion(w, r, promotionID, http.StatusOK)
}

func (h *Handler) savePromotion(w http.ResponseWriter, r *http.Request, promotionID uuid.UUID, status int) {
	var req promotionRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	start, end, err := req.dates()
	if err != nil {
		h.fail(w, r, err)
		return
	}

	params := service.PromotionParams{ProductID: req.ProductID, Start: start, End: end, Percentage: req.Percentage}
	var promotion *model.Promotion
	if promotionID == uuid.Nil {
		promotion, err = h.services.Pricing.CreatePromotion(r.Context(), params)
	} else {
		promotion, err = h.services.Pricing.UpdatePromotion(r.Context(), promotionID, params)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, status, newPromotionResponse(promotion))
}
