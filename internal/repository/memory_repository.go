package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Lixing-Zhang/products-api/internal/models"
)

// memorySchema mirrors what information_schema reports for the postgres table.
var memorySchema = []models.ColumnInfo{
	{ColumnName: "id", DataType: "integer", IsNullable: "NO"},
	{ColumnName: "name", DataType: "character varying", IsNullable: "NO"},
	{ColumnName: "category", DataType: "character varying", IsNullable: "NO"},
	{ColumnName: "price", DataType: "numeric", IsNullable: "NO"},
	{ColumnName: "description", DataType: "text", IsNullable: "YES"},
	{ColumnName: "brand", DataType: "character varying", IsNullable: "NO"},
}

// InMemoryProductRepository implements ProductRepository with in-memory storage
type InMemoryProductRepository struct {
	mu       sync.RWMutex
	products map[int64]models.Product
	names    map[string]int64
	nextID   int64
}

// NewInMemoryProductRepository creates an empty in-memory product repository
func NewInMemoryProductRepository() *InMemoryProductRepository {
	return &InMemoryProductRepository{
		products: make(map[int64]models.Product),
		names:    make(map[string]int64),
		nextID:   1,
	}
}

func (r *InMemoryProductRepository) EnsureSchema(ctx context.Context) error { return nil }

func (r *InMemoryProductRepository) DescribeSchema(ctx context.Context) ([]models.ColumnInfo, error) {
	columns := make([]models.ColumnInfo, len(memorySchema))
	copy(columns, memorySchema)
	return columns, nil
}

func (r *InMemoryProductRepository) Now(ctx context.Context) (time.Time, error) {
	return time.Now(), nil
}

func (r *InMemoryProductRepository) Ping(ctx context.Context) error { return nil }

// GetAll returns all products ordered by id
func (r *InMemoryProductRepository) GetAll(ctx context.Context) ([]models.Product, error) {
	return r.filter(func(models.Product) bool { return true }), nil
}

func (r *InMemoryProductRepository) GetByCategory(ctx context.Context, category string) ([]models.Product, error) {
	return r.filter(func(p models.Product) bool { return p.Category == category }), nil
}

// GetByID returns a product by its ID
func (r *InMemoryProductRepository) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, exists := r.products[id]
	if !exists {
		return nil, ErrProductNotFound
	}
	return &product, nil
}

func (r *InMemoryProductRepository) Create(ctx context.Context, in models.ProductInput) (*models.ProductSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.names[in.Name]; taken {
		return nil, ErrDuplicateProduct
	}

	id := r.nextID
	r.nextID++
	r.products[id] = fromInput(id, in)
	r.names[in.Name] = id

	return &models.ProductSummary{ID: id, Name: in.Name, Price: r.products[id].Price}, nil
}

func (r *InMemoryProductRepository) Update(ctx context.Context, id int64, in models.ProductInput) (*models.ProductSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.products[id]
	if !exists {
		return nil, ErrProductNotFound
	}
	if owner, taken := r.names[in.Name]; taken && owner != id {
		return nil, ErrDuplicateProduct
	}

	delete(r.names, current.Name)
	r.products[id] = fromInput(id, in)
	r.names[in.Name] = id

	return &models.ProductSummary{ID: id, Name: in.Name, Price: r.products[id].Price}, nil
}

func (r *InMemoryProductRepository) Delete(ctx context.Context, id int64) (*models.DeletedProduct, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, exists := r.products[id]
	if !exists {
		return nil, ErrProductNotFound
	}
	delete(r.products, id)
	delete(r.names, product.Name)

	return &models.DeletedProduct{ID: id, Name: product.Name}, nil
}

func (r *InMemoryProductRepository) filter(keep func(models.Product) bool) []models.Product {
	r.mu.RLock()
	defer r.mu.RUnlock()

	products := make([]models.Product, 0, len(r.products))
	for _, product := range r.products {
		if keep(product) {
			products = append(products, product)
		}
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products
}

// priceScale matches the DECIMAL(10,2) price column.
const priceScale = 2

func fromInput(id int64, in models.ProductInput) models.Product {
	var description *string
	if in.Description != nil {
		d := *in.Description
		description = &d
	}
	return models.Product{
		ID:          id,
		Name:        in.Name,
		Category:    in.Category,
		Price:       in.Price.Round(priceScale),
		Description: description,
		Brand:       in.Brand,
	}
}
