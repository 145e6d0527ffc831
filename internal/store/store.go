// Package store provides durable storage for the product catalog and the
// sales ledger backed by PostgreSQL.
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog row. UnitPriceHT is the price excluding VAT and
// VATRate is a fraction in [0, 1].
type Product struct {
	ID          int64
	SKU         string
	Name        string
	Category    string
	UnitPriceHT decimal.Decimal
	VATRate     decimal.Decimal
	Quantity    int32
	CreatedAt   time.Time
}

// Sale is a sales ledger row. Price and rate are snapshots taken at the
// moment of sale, so later product edits never rewrite history.
type Sale struct {
	ID          int64
	ProductID   int64
	SKU         string
	Quantity    int32
	UnitPriceHT decimal.Decimal
	VATRate     decimal.Decimal
	TotalHT     decimal.Decimal
	TotalVAT    decimal.Decimal
	TotalTTC    decimal.Decimal
	SoldAt      time.Time
}

// SalesStats aggregates the whole sales ledger.
type SalesStats struct {
	NbSales       int64
	TotalQuantity int64
	TotalHT       decimal.Decimal
	TotalVAT      decimal.Decimal
	TotalTTC      decimal.Decimal
}

// InventoryStore defines the persistence operations for products and sales.
type InventoryStore interface {
	// Reset drops the products and sales tables and recreates them from
	// scratch. All prior data is lost.
	Reset(ctx context.Context) error
	// EnsureSchema creates the tables and indexes if they do not exist yet.
	// It is safe to call on every startup.
	EnsureSchema(ctx context.Context) error
	// InsertProduct stores a new product and fills in its generated ID.
	InsertProduct(ctx context.Context, product *Product) error
	// InsertProducts stores a batch of products in a single transaction and
	// returns the number inserted. A failing row rolls back the whole batch.
	InsertProducts(ctx context.Context, products []Product) (int, error)
	// FindBySKU returns the product with the given SKU, or
	// errors.ErrProductNotFound if no such row exists.
	FindBySKU(ctx context.Context, sku string) (*Product, error)
	// UpdateProduct overwrites the mutable fields of the product identified
	// by its SKU.
	UpdateProduct(ctx context.Context, product *Product) error
	// DeleteProduct removes the product with the given SKU.
	DeleteProduct(ctx context.Context, sku string) error
	// ListProducts returns the whole catalog ordered by SKU.
	ListProducts(ctx context.Context) ([]Product, error)
	// RecordSale atomically decrements the product stock and appends a row
	// to the sales ledger. It returns errors.ErrInsufficientStock when the
	// remaining stock no longer covers the requested quantity.
	RecordSale(ctx context.Context, sale Sale) (*Sale, error)
	// SalesStats aggregates the sales ledger. All totals are zero when no
	// sale has been recorded.
	SalesStats(ctx context.Context) (*SalesStats, error)
}
