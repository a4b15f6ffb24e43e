package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Lixing-Zhang/products-api/internal/models"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrDuplicateProduct = errors.New("product already exists")
)

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	// EnsureSchema creates the products table when it is missing. Idempotent.
	EnsureSchema(ctx context.Context) error
	// DescribeSchema lists the table columns in ordinal order.
	DescribeSchema(ctx context.Context) ([]models.ColumnInfo, error)
	// Now returns the store's clock, used as a connectivity check.
	Now(ctx context.Context) (time.Time, error)
	Ping(ctx context.Context) error

	GetAll(ctx context.Context) ([]models.Product, error)
	GetByCategory(ctx context.Context, category string) ([]models.Product, error)
	GetByID(ctx context.Context, id int64) (*models.Product, error)
	// Create returns ErrDuplicateProduct when the name is taken.
	Create(ctx context.Context, in models.ProductInput) (*models.ProductSummary, error)
	// Update replaces every field of the product with the given id.
	Update(ctx context.Context, id int64, in models.ProductInput) (*models.ProductSummary, error)
	Delete(ctx context.Context, id int64) (*models.DeletedProduct, error)
}
