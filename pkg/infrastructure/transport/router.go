package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"figurestore/pkg/domain/model"
	"figurestore/pkg/domain/service"
)

const (
	headerUserID   = "X-User-ID"
	headerUserRole = "X-User-Role"
)

var (
	errUnauthenticated = errors.New("missing or malformed identity headers")
	errForbidden       = errors.New("operation requires staff role")
	errMalformedBody   = errors.New("malformed request body")
)

type Services struct {
	Catalog   service.CatalogService
	Inventory service.InventoryService
	Pricing   service.PricingService
	Carts     service.CartService
	Invoices  service.InvoiceService
	Feedback  service.FeedbackService
	Wallets   Wallets
}

type Handler struct {
	services Services
	logger   log.FieldLogger
}

func Router(services Services, logger log.FieldLogger) http.Handler {
	h := &Handler{services: services, logger: logger}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)

	s := r.PathPrefix("/api/v1").Subrouter()
	s.Use(identityMiddleware)

	s.HandleFunc("/collections", staffOnly(h.createCollection)).Methods(http.MethodPost)
	s.HandleFunc("/products", staffOnly(h.createProduct)).Methods(http.MethodPost)
	s.HandleFunc("/products/{id}", h.lookupProduct).Methods(http.MethodGet)
	s.HandleFunc("/products/{id}", staffOnly(h.updateProduct)).Methods(http.MethodPut)
	s.HandleFunc("/products/{id}/price", h.productPrice).Methods(http.MethodGet)
	s.HandleFunc("/products/{id}/stock", h.stock).Methods(http.MethodGet)
	s.HandleFunc("/products/{id}/intakes", staffOnly(h.recordIntake)).Methods(http.MethodPost)
	s.HandleFunc("/products/{id}/intakes", staffOnly(h.intakes)).Methods(http.MethodGet)
	s.HandleFunc("/products/{id}/reviews", h.reviews).Methods(http.MethodGet)
	s.HandleFunc("/products/{id}/reviews", h.submitReview).Methods(http.MethodPost)
	s.HandleFunc("/products/{id}/questions", h.questions).Methods(http.MethodGet)
	s.HandleFunc("/products/{id}/questions", h.submitQuestion).Methods(http.MethodPost)
	s.HandleFunc("/questions/{id}/answer", staffOnly(h.answerQuestion)).Methods(http.MethodPut)

	s.HandleFunc("/discounts", staffOnly(h.createDiscount)).Methods(http.MethodPost)
	s.HandleFunc("/discounts/{id}", staffOnly(h.updateDiscount)).Methods(http.MethodPut)
	s.HandleFunc("/discounts/code/{code}", staffOnly(h.findDiscount)).Methods(http.MethodGet)
	s.HandleFunc("/promotions", staffOnly(h.createPromotion)).Methods(http.MethodPost)
	s.HandleFunc("/promotions/{id}", staffOnly(h.updatePromotion)).Methods(http.MethodPut)

	s.HandleFunc("/carts", h.createCart).Methods(http.MethodPost)
	s.HandleFunc("/carts/{id}", h.findCart).Methods(http.MethodGet)
	s.HandleFunc("/carts/{id}/items", h.addLineItem).Methods(http.MethodPost)
	s.HandleFunc("/carts/{id}/items/{productID}", h.removeLineItem).Methods(http.MethodDelete)
	s.HandleFunc("/carts/{id}/discount", h.attachDiscount).Methods(http.MethodPut)
	s.HandleFunc("/carts/{id}/discount", h.detachDiscount).Methods(http.MethodDelete)
	s.HandleFunc("/carts/{id}/total", h.cartTotal).Methods(http.MethodGet)
	s.HandleFunc("/carts/{id}/finalize", h.finalize).Methods(http.MethodPost)

	s.HandleFunc("/invoices", h.myInvoices).Methods(http.MethodGet)
	s.HandleFunc("/invoices/{id}", h.invoice).Methods(http.MethodGet)

	s.HandleFunc("/wallets/{userID}", h.wallet).Methods(http.MethodGet)
	s.HandleFunc("/wallets/{userID}/deposits", staffOnly(h.deposit)).Methods(http.MethodPost)

	return h.logMiddleware(r)
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

type identityKey struct{}

// identityMiddleware trusts the headers set by the upstream auth proxy.
func identityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(r.Header.Get(headerUserID))
		if err != nil {
			writeError(w, http.StatusUnauthorized, errUnauthenticated)
			return
		}
		role, err := model.ParseRole(r.Header.Get(headerUserRole))
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		ctx := context.WithValue(r.Context(), identityKey{}, model.Identity{UserID: userID, Role: role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func identity(r *http.Request) model.Identity {
	id, _ := r.Context().Value(identityKey{}).(model.Identity)
	return id
}

func staffOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !identity(r).Can(model.RoleStaff) {
			writeError(w, http.StatusForbidden, errForbidden)
			return
		}
		next(w, r)
	}
}

func (h *Handler) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.logger.WithFields(log.Fields{
			"method":     r.Method,
			"url":        r.URL,
			"remoteAddr": r.RemoteAddr,
			"userAgent":  r.UserAgent(),
		}).Info("got a new request")
		next.ServeHTTP(w, r)
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrConflict), errors.Is(err, model.ErrInsufficientStock):
		return http.StatusConflict
	case errors.Is(err, model.ErrPaymentDeclined):
		return http.StatusPaymentRequired
	}
	return http.StatusInternalServerError
}

// fail writes a domain error. Anything uncategorized is logged and hidden behind a 500.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.WithError(err).WithField("url", r.URL.String()).Error("request failed")
		writeError(w, status, errors.New(http.StatusText(status)))
		return
	}
	writeError(w, status, err)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Error("write response body")
	}
}

func decode(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return model.NewError(model.ErrValidation, errMalformedBody.Error()+": "+err.Error())
	}
	return nil
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		return uuid.Nil, model.NewError(model.ErrValidation, "malformed "+name+" in path")
	}
	return id, nil
}
