package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Lixing-Zhang/products-api/internal/models"
	"github.com/Lixing-Zhang/products-api/internal/repository"
)

// ProductService handles business logic for products
type ProductService struct {
	repo repository.ProductRepository
}

// NewProductService creates a new product service
func NewProductService(repo repository.ProductRepository) *ProductService {
	return &ProductService{
		repo: repo,
	}
}

// StartupReport is the outcome of the startup smoke test
type StartupReport struct {
	DatabaseTime time.Time
	Columns      []models.ColumnInfo
	Products     []models.Product
}

// Startup checks connectivity, makes sure the table exists and snapshots its
// layout and contents. It is run once before the server starts listening.
func (s *ProductService) Startup(ctx context.Context) (*StartupReport, error) {
	now, err := s.repo.Now(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.repo.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	columns, err := s.repo.DescribeSchema(ctx)
	if err != nil {
		return nil, err
	}

	products, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	return &StartupReport{DatabaseTime: now, Columns: columns, Products: products}, nil
}

func (s *ProductService) EnsureSchema(ctx context.Context) error {
	return s.repo.EnsureSchema(ctx)
}

func (s *ProductService) DescribeSchema(ctx context.Context) ([]models.ColumnInfo, error) {
	return s.repo.DescribeSchema(ctx)
}

// Ping reports whether the store is reachable
func (s *ProductService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// ListProducts returns all products ordered by id
func (s *ProductService) ListProducts(ctx context.Context) ([]models.Product, error) {
	return s.repo.GetAll(ctx)
}

// ListByCategory returns the products of one category; an unknown category
// yields an empty slice.
func (s *ProductService) ListByCategory(ctx context.Context, category string) ([]models.Product, error) {
	return s.repo.GetByCategory(ctx, category)
}

// GetProduct returns a product by ID
func (s *ProductService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	return s.repo.GetByID(ctx, id)
}

// CreateProduct stores a new product and returns the stored record.
// repository.ErrDuplicateProduct is returned when the name is already used.
func (s *ProductService) CreateProduct(ctx context.Context, in models.ProductInput) (*models.Product, error) {
	summary, err := s.repo.Create(ctx, in)
	if err != nil {
		return nil, err
	}

	return &models.Product{
		ID:          summary.ID,
		Name:        summary.Name,
		Category:    in.Category,
		Price:       summary.Price,
		Description: in.Description,
		Brand:       in.Brand,
	}, nil
}

func (s *ProductService) UpdateProduct(ctx context.Context, id int64, in models.ProductInput) (*models.ProductSummary, error) {
	if id <= 0 {
		return nil, fmt.Errorf("update product %d: %w", id, repository.ErrProductNotFound)
	}
	return s.repo.Update(ctx, id, in)
}

func (s *ProductService) DeleteProduct(ctx context.Context, id int64) (*models.DeletedProduct, error) {
	if id <= 0 {
		return nil, fmt.Errorf("delete product %d: %w", id, repository.ErrProductNotFound)
	}
	return s.repo.Delete(ctx, id)
}
