package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Lixing-Zhang/products-api/internal/models"
	"github.com/Lixing-Zhang/products-api/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingRepo embeds the in-memory store and fails selected calls
type failingRepo struct {
	*repository.InMemoryProductRepository
	nowErr    error
	schemaErr error
}

func (f *failingRepo) Now(ctx context.Context) (time.Time, error) {
	if f.nowErr != nil {
		return time.Time{}, f.nowErr
	}
	return f.InMemoryProductRepository.Now(ctx)
}

func (f *failingRepo) EnsureSchema(ctx context.Context) error {
	if f.schemaErr != nil {
		return f.schemaErr
	}
	return f.InMemoryProductRepository.EnsureSchema(ctx)
}

func widget() models.ProductInput {
	desc := "desc"
	return models.ProductInput{
		Name:        "Widget",
		Category:    "tools",
		Price:       decimal.RequireFromString("9.99"),
		Description: &desc,
		Brand:       "BrandX",
	}
}

func TestCreateProduct_ReturnsFullRecord(t *testing.T) {
	svc := NewProductService(repository.NewInMemoryProductRepository())

	product, err := svc.CreateProduct(context.Background(), widget())
	require.NoError(t, err)

	assert.Equal(t, int64(1), product.ID)
	assert.Equal(t, "Widget", product.Name)
	assert.Equal(t, "tools", product.Category)
	assert.Equal(t, "BrandX", product.Brand)
	assert.Equal(t, "desc", *product.Description)
}

func TestCreateProduct_TwiceKeepsOneRecord(t *testing.T) {
	ctx := context.Background()
	svc := NewProductService(repository.NewInMemoryProductRepository())

	_, err := svc.CreateProduct(ctx, widget())
	require.NoError(t, err)
	_, err = svc.CreateProduct(ctx, widget())
	assert.ErrorIs(t, err, repository.ErrDuplicateProduct)

	products, err := svc.ListProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 1)
}

func TestUpdateAndDelete_InvalidIDIsNotFound(t *testing.T) {
	svc := NewProductService(repository.NewInMemoryProductRepository())

	_, err := svc.UpdateProduct(context.Background(), 0, widget())
	assert.ErrorIs(t, err, repository.ErrProductNotFound)

	_, err = svc.DeleteProduct(context.Background(), -1)
	assert.ErrorIs(t, err, repository.ErrProductNotFound)
}

func TestStartup(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewInMemoryProductRepository()
	svc := NewProductService(repo)
	_, _ = svc.CreateProduct(ctx, widget())

	report, err := svc.Startup(ctx)
	require.NoError(t, err)

	assert.False(t, report.DatabaseTime.IsZero())
	assert.Len(t, report.Columns, 6)
	assert.Len(t, report.Products, 1)
}

func TestStartup_Failures(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name string
		repo *failingRepo
	}{
		{"database unreachable", &failingRepo{InMemoryProductRepository: repository.NewInMemoryProductRepository(), nowErr: boom}},
		{"schema creation fails", &failingRepo{InMemoryProductRepository: repository.NewInMemoryProductRepository(), schemaErr: boom}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := NewProductService(tt.repo).Startup(context.Background())
			assert.ErrorIs(t, err, boom)
			assert.Nil(t, report)
		})
	}
}
