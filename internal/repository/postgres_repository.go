package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Lixing-Zhang/products-api/internal/models"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const uniqueViolation = "23505"

const createTableSQL = `CREATE TABLE IF NOT EXISTS products (
	id SERIAL PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	category VARCHAR(100) NOT NULL,
	price DECIMAL(10,2) NOT NULL,
	description TEXT,
	brand VARCHAR(100) NOT NULL
)`

// Kept separate from the table definition so tables created before the
// index existed pick it up too.
const createNameIndexSQL = `CREATE UNIQUE INDEX IF NOT EXISTS products_name_key ON products (name)`

const productColumns = `id, name, category, price, description, brand`

// PostgresProductRepository implements ProductRepository on PostgreSQL.
// Each method is a single statement; there are no explicit transactions.
type PostgresProductRepository struct {
	db *gorm.DB
}

// NewPostgresProductRepository creates a repository on top of an open pool.
func NewPostgresProductRepository(db *gorm.DB) *PostgresProductRepository {
	return &PostgresProductRepository{db: db}
}

func (r *PostgresProductRepository) EnsureSchema(ctx context.Context) error {
	if err := r.db.WithContext(ctx).Exec(createTableSQL).Error; err != nil {
		return fmt.Errorf("create products table: %w", err)
	}
	if err := r.db.WithContext(ctx).Exec(createNameIndexSQL).Error; err != nil {
		if isUniqueViolation(err) {
			return r.duplicateNamesError(ctx, err)
		}
		return fmt.Errorf("create products name index: %w", err)
	}
	return nil
}

// duplicateNamesError reports the names that block the unique index. Such
// rows exist only in tables written before the index was introduced.
func (r *PostgresProductRepository) duplicateNamesError(ctx context.Context, cause error) error {
	var names []string
	err := r.db.WithContext(ctx).Raw(`SELECT name FROM products
		GROUP BY name
		HAVING COUNT(*) > 1
		ORDER BY name`).Scan(&names).Error
	if err != nil || len(names) == 0 {
		return fmt.Errorf("create products name index: %w", cause)
	}
	return fmt.Errorf("create products name index: remove duplicate products first (%s): %w",
		strings.Join(names, ", "), cause)
}

func (r *PostgresProductRepository) DescribeSchema(ctx context.Context) ([]models.ColumnInfo, error) {
	columns := make([]models.ColumnInfo, 0)
	err := r.db.WithContext(ctx).Raw(`SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_name = ?
		ORDER BY ordinal_position`, "products").Scan(&columns).Error
	if err != nil {
		return nil, fmt.Errorf("describe products table: %w", err)
	}
	return columns, nil
}

func (r *PostgresProductRepository) Now(ctx context.Context) (time.Time, error) {
	var now time.Time
	if err := r.db.WithContext(ctx).Raw(`SELECT NOW()`).Scan(&now).Error; err != nil {
		return time.Time{}, fmt.Errorf("query database time: %w", err)
	}
	return now, nil
}

func (r *PostgresProductRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *PostgresProductRepository) GetAll(ctx context.Context) ([]models.Product, error) {
	products := make([]models.Product, 0)
	err := r.db.WithContext(ctx).
		Raw(`SELECT ` + productColumns + ` FROM products ORDER BY id`).
		Scan(&products).Error
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (r *PostgresProductRepository) GetByCategory(ctx context.Context, category string) ([]models.Product, error) {
	products := make([]models.Product, 0)
	err := r.db.WithContext(ctx).
		Raw(`SELECT `+productColumns+` FROM products WHERE category = ? ORDER BY id`, category).
		Scan(&products).Error
	if err != nil {
		return nil, fmt.Errorf("list products in category %q: %w", category, err)
	}
	return products, nil
}

func (r *PostgresProductRepository) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	res := r.db.WithContext(ctx).
		Raw(`SELECT `+productColumns+` FROM products WHERE id = ?`, id).
		Scan(&product)
	if res.Error != nil {
		return nil, fmt.Errorf("get product %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrProductNotFound
	}
	return &product, nil
}

// Create inserts a product unless one with the same name exists. The check
// and the insert are one statement, so concurrent callers cannot both win.
func (r *PostgresProductRepository) Create(ctx context.Context, in models.ProductInput) (*models.ProductSummary, error) {
	var summary models.ProductSummary
	res := r.db.WithContext(ctx).Raw(`INSERT INTO products (name, category, price, description, brand)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (name) DO NOTHING
		RETURNING id, name, price`,
		in.Name, in.Category, in.Price, in.Description, in.Brand,
	).Scan(&summary)
	if res.Error != nil {
		return nil, fmt.Errorf("insert product %q: %w", in.Name, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrDuplicateProduct
	}
	return &summary, nil
}

func (r *PostgresProductRepository) Update(ctx context.Context, id int64, in models.ProductInput) (*models.ProductSummary, error) {
	var summary models.ProductSummary
	res := r.db.WithContext(ctx).Raw(`UPDATE products
		SET name = ?, category = ?, price = ?, description = ?, brand = ?
		WHERE id = ?
		RETURNING id, name, price`,
		in.Name, in.Category, in.Price, in.Description, in.Brand, id,
	).Scan(&summary)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return nil, ErrDuplicateProduct
		}
		return nil, fmt.Errorf("update product %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrProductNotFound
	}
	return &summary, nil
}

func (r *PostgresProductRepository) Delete(ctx context.Context, id int64) (*models.DeletedProduct, error) {
	var deleted models.DeletedProduct
	res := r.db.WithContext(ctx).
		Raw(`DELETE FROM products WHERE id = ? RETURNING id, name`, id).
		Scan(&deleted)
	if res.Error != nil {
		return nil, fmt.Errorf("delete product %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrProductNotFound
	}
	return &deleted, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
