package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Lixing-Zhang/products-api/internal/models"
	"github.com/Lixing-Zhang/products-api/internal/repository"
	"github.com/Lixing-Zhang/products-api/internal/service"
	"github.com/Lixing-Zhang/products-api/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listBody struct {
	Success bool             `json:"success"`
	Count   int              `json:"count"`
	Data    []models.Product `json:"data"`
}

type productBody struct {
	Success bool           `json:"success"`
	Data    models.Product `json:"data"`
}

// brokenRepo fails every read and write that reaches the database
type brokenRepo struct {
	*repository.InMemoryProductRepository
}

var errConnLost = errors.New("connection lost")

func (brokenRepo) GetAll(ctx context.Context) ([]models.Product, error) { return nil, errConnLost }
func (brokenRepo) Create(ctx context.Context, in models.ProductInput) (*models.ProductSummary, error) {
	return nil, errConnLost
}
func (brokenRepo) Delete(ctx context.Context, id int64) (*models.DeletedProduct, error) {
	return nil, errConnLost
}

func seededRouter(t *testing.T) http.Handler {
	t.Helper()

	repo := repository.NewInMemoryProductRepository()
	seed := []models.ProductInput{
		{Name: "MacBook Pro 14", Category: "laptops", Price: decimal.RequireFromString("1999.99"), Brand: "Apple"},
		{Name: "Dell XPS 15", Category: "laptops", Price: decimal.RequireFromString("1599.99"), Brand: "Dell"},
		{Name: "iPad Pro 12.9", Category: "tablets", Price: decimal.RequireFromString("1099.99"), Brand: "Apple"},
	}
	for _, in := range seed {
		_, err := repo.Create(context.Background(), in)
		require.NoError(t, err)
	}

	return newTestRouter(repo)
}

func newTestRouter(repo repository.ProductRepository) http.Handler {
	handler := NewProductHandler(service.NewProductService(repo), logger.New("error"))

	r := chi.NewRouter()
	r.Get("/api/products", handler.ListProducts)
	r.Post("/api/products", handler.CreateProduct)
	r.Get("/api/products/{id}", handler.GetProduct)
	r.Put("/api/products/{id}", handler.UpdateProduct)
	r.Delete("/api/products/{id}", handler.DeleteProduct)
	return r
}

func do(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.False(t, resp.Success)
	return resp
}

func TestListProducts(t *testing.T) {
	r := seededRouter(t)

	w := do(r, http.MethodGet, "/api/products", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body listBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.True(t, body.Success)
	assert.Equal(t, 3, body.Count)
	require.Len(t, body.Data, 3)
	for i, p := range body.Data {
		assert.Equal(t, int64(i+1), p.ID)
	}
}

func TestListProducts_EmptyStoreReturnsEmptyArray(t *testing.T) {
	r := newTestRouter(repository.NewInMemoryProductRepository())

	w := do(r, http.MethodGet, "/api/products", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"count":0,"data":[]}`, w.Body.String())
}

func TestListProducts_ByCategory(t *testing.T) {
	r := seededRouter(t)

	testCases := []struct {
		category string
		want     []string
	}{
		{"laptops", []string{"MacBook Pro 14", "Dell XPS 15"}},
		{"tablets", []string{"iPad Pro 12.9"}},
		{"nonexistent", []string{}},
	}

	for _, tc := range testCases {
		t.Run(tc.category, func(t *testing.T) {
			w := do(r, http.MethodGet, "/api/products?category="+tc.category, "")
			require.Equal(t, http.StatusOK, w.Code)

			var body listBody
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, len(tc.want), body.Count)

			names := make([]string, 0, len(body.Data))
			for _, p := range body.Data {
				names = append(names, p.Name)
			}
			assert.Equal(t, tc.want, names)
		})
	}
}

func TestListProducts_StoreFailure(t *testing.T) {
	r := newTestRouter(brokenRepo{repository.NewInMemoryProductRepository()})

	w := do(r, http.MethodGet, "/api/products", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", decodeError(t, w).Error)
}

func TestGetProduct_Success(t *testing.T) {
	r := seededRouter(t)

	w := do(r, http.MethodGet, "/api/products/2", "")

	require.Equal(t, http.StatusOK, w.Code)
	var body productBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.True(t, body.Success)
	assert.Equal(t, int64(2), body.Data.ID)
	assert.Equal(t, "Dell XPS 15", body.Data.Name)
	assert.Equal(t, "1599.99", body.Data.Price.StringFixed(2))
	assert.Nil(t, body.Data.Description)
}

func TestGetProduct_NotFound(t *testing.T) {
	r := seededRouter(t)

	w := do(r, http.MethodGet, "/api/products/999", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Product not found", decodeError(t, w).Error)
}

func TestGetProduct_InvalidID(t *testing.T) {
	r := seededRouter(t)

	testCases := []struct {
		name string
		id   string
	}{
		{"letters", "invalid"},
		{"special chars", "abc@123"},
		{"float", "12.34"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(r, http.MethodGet, "/api/products/"+tc.id, "")

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "Invalid ID supplied", decodeError(t, w).Error)
		})
	}
}

func TestCreateProduct_Success(t *testing.T) {
	r := seededRouter(t)

	w := do(r, http.MethodPost, "/api/products",
		`{"name":"Widget","category":"tools","price":9.99,"description":"desc","brand":"BrandX"}`)

	require.Equal(t, http.StatusCreated, w.Code)
	var body productBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.True(t, body.Success)
	assert.Equal(t, int64(4), body.Data.ID)
	assert.Equal(t, "Widget", body.Data.Name)
	assert.Equal(t, "tools", body.Data.Category)
	assert.Equal(t, "9.99", body.Data.Price.StringFixed(2))
	require.NotNil(t, body.Data.Description)
	assert.Equal(t, "desc", *body.Data.Description)
	assert.Equal(t, "BrandX", body.Data.Brand)
}

func TestCreateProduct_PriceAsString(t *testing.T) {
	r := seededRouter(t)

	w := do(r, http.MethodPost, "/api/products",
		`{"name":"Samsung Galaxy Tab S9","category":"tablets","price":"799.99","brand":"Samsung"}`)

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestCreateProduct_MissingFields(t *testing.T) {
	r := seededRouter(t)

	testCases := []struct {
		name string
		body string
	}{
		{"missing name", `{"category":"x","price":1,"brand":"y"}`},
		{"empty name", `{"name":"","category":"x","price":1,"brand":"y"}`},
		{"missing category", `{"name":"a","price":1,"brand":"y"}`},
		{"missing price", `{"name":"a","category":"x","brand":"y"}`},
		{"null price", `{"name":"a","category":"x","price":null,"brand":"y"}`},
		{"empty price", `{"name":"a","category":"x","price":"","brand":"y"}`},
		{"zero price", `{"name":"Zero","category":"x","price":0,"brand":"y"}`},
		{"zero price string", `{"name":"Zero","category":"x","price":"0.00","brand":"y"}`},
		{"missing brand", `{"name":"a","category":"x","price":1}`},
		{"empty object", `{}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/api/products", tc.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "Field name, category, price and brand are required!", decodeError(t, w).Error)
		})
	}
}

func TestCreateProduct_MalformedBody(t *testing.T) {
	r := seededRouter(t)

	w := do(r, http.MethodPost, "/api/products", `{"name":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid request body", decodeError(t, w).Error)
}

func TestCreateProduct_Duplicate(t *testing.T) {
	r := seededRouter(t)
	body := `{"name":"Widget","category":"tools","price":9.99,"brand":"BrandX"}`

	first := do(r, http.MethodPost, "/api/products", body)
	second := do(r, http.MethodPost, "/api/products", body)

	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusConflict, second.Code)
	assert.Equal(t, `Product "Widget" already exist`, decodeError(t, second).Error)

	list := do(r, http.MethodGet, "/api/products", "")
	var listed listBody
	require.NoError(t, json.NewDecoder(list.Body).Decode(&listed))
	assert.Equal(t, 4, listed.Count)
}

func TestCreateProduct_StoreFailure(t *testing.T) {
	r := newTestRouter(brokenRepo{repository.NewInMemoryProductRepository()})

	w := do(r, http.MethodPost, "/api/products", `{"name":"a","category":"x","price":1,"brand":"y"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestUpdateProduct(t *testing.T) {
	r := seededRouter(t)

	testCases := []struct {
		name       string
		id         string
		body       string
		wantStatus int
		wantError  string
	}{
		{
			name:       "success",
			id:         "1",
			body:       `{"name":"MacBook Pro 14 M3 Max","category":"laptops","price":2299.99,"description":"Updated professional laptop with M3 Max chip","brand":"Apple"}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "not found",
			id:         "42",
			body:       `{"name":"Ghost","category":"x","price":1,"brand":"y"}`,
			wantStatus: http.StatusNotFound,
			wantError:  "Product not found",
		},
		{
			name:       "rename onto existing name",
			id:         "2",
			body:       `{"name":"iPad Pro 12.9","category":"laptops","price":1,"brand":"Dell"}`,
			wantStatus: http.StatusConflict,
			wantError:  `Product "iPad Pro 12.9" already exist`,
		},
		{
			name:       "missing fields",
			id:         "1",
			body:       `{"name":"x"}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Field name, category, price and brand are required!",
		},
		{
			name:       "zero price",
			id:         "1",
			body:       `{"name":"MacBook Pro 14","category":"laptops","price":0,"brand":"Apple"}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Field name, category, price and brand are required!",
		},
		{
			name:       "invalid id",
			id:         "abc",
			body:       `{"name":"x","category":"x","price":1,"brand":"y"}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid ID supplied",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(r, http.MethodPut, "/api/products/"+tc.id, tc.body)

			assert.Equal(t, tc.wantStatus, w.Code)
			if tc.wantError != "" {
				assert.Equal(t, tc.wantError, decodeError(t, w).Error)
			}
		})
	}

	w := do(r, http.MethodGet, "/api/products/1", "")
	var body productBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "MacBook Pro 14 M3 Max", body.Data.Name)
	assert.Equal(t, "2299.99", body.Data.Price.StringFixed(2))
}

func TestDeleteProduct(t *testing.T) {
	r := seededRouter(t)

	w := do(r, http.MethodDelete, "/api/products/3", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":{"id":3,"name":"iPad Pro 12.9"}}`, w.Body.String())

	again := do(r, http.MethodDelete, "/api/products/3", "")
	assert.Equal(t, http.StatusNotFound, again.Code)

	list := do(r, http.MethodGet, "/api/products", "")
	var listed listBody
	require.NoError(t, json.NewDecoder(list.Body).Decode(&listed))
	assert.Equal(t, 2, listed.Count)
}

func TestDeleteProduct_StoreFailure(t *testing.T) {
	r := newTestRouter(brokenRepo{repository.NewInMemoryProductRepository()})

	w := do(r, http.MethodDelete, "/api/products/1", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
