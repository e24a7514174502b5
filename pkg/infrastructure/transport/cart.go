package transport

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"figurestore/pkg/domain/model"
)

func (h *Handler) createCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.services.Carts.CreateCart(r.Context(), identity(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newCartResponse(cart))
}

func (h *Handler) findCart(w http.ResponseWriter, r *http.Request) {
	cart, ok := h.ownedCart(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(cart))
}

func (h *Handler) addLineItem(w http.ResponseWriter, r *http.Request) {
	cart, ok := h.ownedCart(w, r)
	if !ok {
		return
	}
	var req lineItemRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondCart(w, r)(h.services.Carts.AddLineItem(r.Context(), cart.ID, req.ProductID, req.Quantity))
}

func (h *Handler) removeLineItem(w http.ResponseWriter, r *http.Request) {
	cart, ok := h.ownedCart(w, r)
	if !ok {
		return
	}
	productID, err := pathID(r, "productID")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondCart(w, r)(h.services.Carts.RemoveLineItem(r.Context(), cart.ID, productID))
}

func (h *Handler) attachDiscount(w http.ResponseWriter, r *http.Request) {
	cart, ok := h.ownedCart(w, r)
	if !ok {
		return
	}
	var req attachDiscountRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondCart(w, r)(h.services.Carts.AttachDiscount(r.Context(), cart.ID, req.Code))
}

func (h *Handler) detachDiscount(w http.ResponseWriter, r *http.Request) {
	cart, ok := h.ownedCart(w, r)
	if !ok {
		return
	}
	h.respondCart(w, r)(h.services.Carts.DetachDiscount(r.Context(), cart.ID))
}

func (h *Handler) cartTotal(w http.ResponseWriter, r *http.Request) {
	cart, ok := h.ownedCart(w, r)
	if !ok {
		return
	}
	at, err := evaluationTime(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	quote, err := h.services.Carts.ComputeTotal(r.Context(), cart.ID, at)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newQuoteResponse(quote))
}

// finalize always prices at server time; "at" is only honored by the read-only quotes.
func (h *Handler) finalize(w http.ResponseWriter, r *http.Request) {
	cart, ok := h.ownedCart(w, r)
	if !ok {
		return
	}
	invoice, err := h.services.Invoices.Finalize(r.Context(), cart.ID, time.Now().UTC())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newInvoiceResponse(invoice))
}

// ownedCart loads the cart from the path. Carts of other users look like missing ones, except to staff.
func (h *Handler) ownedCart(w http.ResponseWriter, r *http.Request) (*model.Cart, bool) {
	cartID, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	cart, err := h.services.Carts.FindCart(r.Context(), cartID)
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	if !owns(identity(r), cart.UserID) {
		h.fail(w, r, model.ErrCartNotFound)
		return nil, false
	}
	return cart, true
}

func (h *Handler) respondCart(w http.ResponseWriter, r *http.Request) func(*model.Cart, error) {
	return func(cart *model.Cart, err error) {
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newCartResponse(cart))
	}
}

func owns(id model.Identity, owner uuid.UUID) bool {
	return id.UserID == owner || id.Can(model.RoleStaff)
}
