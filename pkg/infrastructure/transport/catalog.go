package transport

import (
	"net/http"

	"figurestore/pkg/domain/service"
)

func (h *Handler) createCollection(w http.ResponseWriter, r *http.Request) {
	var req collectionRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	collection, err := h.services.Catalog.CreateCollection(r.Context(), req.Name)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, collectionResponse{ID: collection.ID, Name: collection.Name, CreatedAt: collection.CreatedAt})
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	product, err := h.services.Catalog.CreateProduct(r.Context(), req.params())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newProductResponse(product))
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req productRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	product, err := h.services.Catalog.UpdateProduct(r.Context(), productID, req.params())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newProductResponse(product))
}

func (h *Handler) lookupProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	product, err := h.services.Catalog.LookupProduct(r.Context(), productID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newProductResponse(product))
}

func (h *Handler) stock(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	available, err := h.services.Inventory.Available(r.Context(), productID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stockResponse{ProductID: productID, Available: available})
}

func (h *Handler) recordIntake(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req intakeRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	intake, err := h.services.Inventory.RecordIntake(r.Context(), productID, req.Quantity)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, intakeResponse{
		ID:        intake.ID,
		ProductID: intake.ProductID,
		Quantity:  intake.Quantity,
		CreatedAt: intake.CreatedAt,
	})
}

func (h *Handler) intakes(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	intakes, err := h.services.Inventory.Intakes(r.Context(), productID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp := make([]intakeResponse, 0, len(intakes))
	for _, intake := range intakes {
		resp = append(resp, intakeResponse{
			ID:        intake.ID,
			ProductID: intake.ProductID,
			Quantity:  intake.Quantity,
			CreatedAt: intake.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (req productRequest) params() service.ProductParams {
	return service.ProductParams{
		CollectionID: req.CollectionID,
		Number:       req.Number,
		Name:         req.Name,
		EditionName:  req.EditionName,
		Description:  req.Description,
		ImageURL:     req.ImageURL,
		Price:        req.Price,
		Available:    req.Available,
		Special:      req.Special,
		Shine:        req.Shine,
	}
}
