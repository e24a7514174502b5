package transport

import (
	"net/http"

	"figurestore/pkg/domain/model"
)

func (h *Handler) invoice(w http.ResponseWriter, r *http.Request) {
	invoiceID, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	invoice, err := h.services.Invoices.Invoice(r.Context(), invoiceID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !owns(identity(r), invoice.UserID) {
		h.fail(w, r, model.ErrInvoiceNotFound)
		return
	}
	writeJSON(w, http.StatusOK, newInvoiceResponse(invoice))
}

func (h *Handler) myInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.services.Invoices.InvoicesForUser(r.Context(), identity(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp := make([]invoiceResponse, 0, len(invoices))
	for i := range invoices {
		resp = append(resp, newInvoiceResponse(&invoices[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}
