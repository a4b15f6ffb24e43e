package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/Lixing-Zhang/products-api/internal/models"
	"github.com/Lixing-Zhang/products-api/internal/repository"
	"github.com/Lixing-Zhang/products-api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	msgRequiredFields = "Field name, category, price and brand are required!"
	msgInvalidBody    = "Invalid request body"
	msgInvalidID      = "Invalid ID supplied"
	msgNotFound       = "Product not found"
	msgInternal       = "Internal server error"
)

// ProductRequest is the JSON body accepted by create and update.
// Price may be sent as a number or a numeric string; an empty string or a
// zero price counts as missing.
type ProductRequest struct {
	Name        string           `json:"name" validate:"required"`
	Category    string           `json:"category" validate:"required"`
	Price       *decimal.Decimal `json:"price" validate:"required"`
	Description *string          `json:"description"`
	Brand       string           `json:"brand" validate:"required"`
}

func (req *ProductRequest) UnmarshalJSON(data []byte) error {
	type plain ProductRequest
	aux := struct {
		*plain
		Price json.RawMessage `json:"price"`
	}{plain: (*plain)(req)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	switch strings.TrimSpace(string(aux.Price)) {
	case "", "null", `""`:
		req.Price = nil
		return nil
	}

	var price decimal.Decimal
	if err := price.UnmarshalJSON(aux.Price); err != nil {
		return err
	}
	req.Price = &price
	return nil
}

func (req ProductRequest) toInput() models.ProductInput {
	return models.ProductInput{
		Name:        req.Name,
		Category:    req.Category,
		Price:       *req.Price,
		Description: req.Description,
		Brand:       req.Brand,
	}
}

// ProductHandler handles product-related HTTP requests
type ProductHandler struct {
	service  *service.ProductService
	validate *validator.Validate
	logger   *zap.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(service *service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		service:  service,
		validate: validator.New(),
		logger:   logger,
	}
}

// ListProducts handles GET /api/products
// An optional ?category= query parameter restricts the result to one category.
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	category := r.URL.Query().Get("category")

	var (
		products []models.Product
		err      error
	)
	if category != "" {
		products, err = h.service.ListByCategory(ctx, category)
	} else {
		products, err = h.service.ListProducts(ctx)
	}
	if err != nil {
		h.logger.Error("failed to list products", zap.String("category", category), zap.Error(err))
		WriteError(w, http.StatusInternalServerError, msgInternal, h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, ListResponse{Success: true, Count: len(products), Data: products}, h.logger)
}

// GetProduct handles GET /api/products/{id}
// - 200: successful operation
// - 400: Invalid ID supplied
// - 404: Product not found
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}

	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, "get", id, err)
		return
	}

	WriteJSON(w, http.StatusOK, DataResponse{Success: true, Data: product}, h.logger)
}

// CreateProduct handles POST /api/products
// - 201: created, full record returned
// - 400: missing required field or malformed body
// - 409: a product with the same name exists
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}

	product, err := h.service.CreateProduct(r.Context(), req.toInput())
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateProduct) {
			h.logger.Info("duplicate product rejected", zap.String("name", req.Name))
			WriteError(w, http.StatusConflict, duplicateMessage(req.Name), h.logger)
			return
		}
		h.logger.Error("failed to create product", zap.String("name", req.Name), zap.Error(err))
		WriteError(w, http.StatusInternalServerError, msgInternal, h.logger)
		return
	}

	h.logger.Info("product created", zap.Int64("id", product.ID), zap.String("name", product.Name))
	WriteJSON(w, http.StatusCreated, DataResponse{Success: true, Data: product}, h.logger)
}

// UpdateProduct handles PUT /api/products/{id}
// Every field except id is replaced.
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}
	req, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}

	summary, err := h.service.UpdateProduct(r.Context(), id, req.toInput())
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateProduct) {
			WriteError(w, http.StatusConflict, duplicateMessage(req.Name), h.logger)
			return
		}
		h.writeStoreError(w, "update", id, err)
		return
	}

	h.logger.Info("product updated", zap.Int64("id", summary.ID))
	WriteJSON(w, http.StatusOK, DataResponse{Success: true, Data: summary}, h.logger)
}

// DeleteProduct handles DELETE /api/products/{id}
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}

	deleted, err := h.service.DeleteProduct(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, "delete", id, err)
		return
	}

	h.logger.Info("product deleted", zap.Int64("id", deleted.ID), zap.String("name", deleted.Name))
	WriteJSON(w, http.StatusOK, DataResponse{Success: true, Data: deleted}, h.logger)
}

func (h *ProductHandler) productID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.logger.Warn("invalid product ID format", zap.String("id", raw), zap.Error(err))
		WriteError(w, http.StatusBadRequest, msgInvalidID, h.logger)
		return 0, false
	}
	return id, true
}

func (h *ProductHandler) decodeProduct(w http.ResponseWriter, r *http.Request) (*ProductRequest, bool) {
	var req ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode product request", zap.Error(err))
		WriteError(w, http.StatusBadRequest, msgInvalidBody, h.logger)
		return nil, false
	}

	err := h.validate.Struct(req)
	if err == nil && req.Price.IsZero() {
		err = errors.New("price is zero")
	}
	if err != nil {
		h.logger.Info("product request missing required fields", zap.Error(err))
		WriteError(w, http.StatusBadRequest, msgRequiredFields, h.logger)
		return nil, false
	}
	return &req, true
}

// writeStoreError maps not-found to 404 and everything else to 500
func (h *ProductHandler) writeStoreError(w http.ResponseWriter, op string, id int64, err error) {
	if errors.Is(err, repository.ErrProductNotFound) {
		h.logger.Info("product not found", zap.String("op", op), zap.Int64("id", id))
		WriteError(w, http.StatusNotFound, msgNotFound, h.logger)
		return
	}

	h.logger.Error("product store failure", zap.String("op", op), zap.Int64("id", id), zap.Error(err))
	WriteError(w, http.StatusInternalServerError, msgInternal, h.logger)
}

func duplicateMessage(name string) string {
	return fmt.Sprintf("Product \"%s\" already exist", name)
}
