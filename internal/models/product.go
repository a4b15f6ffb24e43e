package models

import "github.com/shopspring/decimal"

// Product represents an item for sale, one row of the products table
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Description *string         `json:"description"`
	Brand       string          `json:"brand"`
}

// ProductInput carries every writable field of a product.
// It is used for both inserts and full replacements.
type ProductInput struct {
	Name        string
	Category    string
	Price       decimal.Decimal
	Description *string
	Brand       string
}

// ProductSummary is what the store hands back after an insert or update
type ProductSummary struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// DeletedProduct identifies a removed row
type DeletedProduct struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ColumnInfo describes one column of the products table
type ColumnInfo struct {
	ColumnName string `json:"column_name"`
	DataType   string `json:"data_type"`
	IsNullable string `json:"is_nullable"`
}
