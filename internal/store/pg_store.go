package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	inverrors "github.com/abgdnv/goinventory/internal/errors"
)

//go:embed schema.sql
var schemaSQL string

// PostgreSQL error codes, see https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

const dropTablesSQL = `
DROP TABLE IF EXISTS sales;
DROP TABLE IF EXISTS products;`

const insertProductSQL = `
INSERT INTO products (sku, name, category, unit_price_ht, vat_rate, quantity, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`

const findBySKUSQL = `
SELECT id, sku, name, category, unit_price_ht, vat_rate, quantity, created_at
FROM products
WHERE sku = $1`

const updateProductSQL = `
UPDATE products
SET name = $1, category = $2, unit_price_ht = $3, vat_rate = $4, quantity = $5
WHERE sku = $6`

const deleteProductSQL = `
DELETE FROM products
WHERE sku = $1`

const listProductsSQL = `
SELECT id, sku, name, category, unit_price_ht, vat_rate, quantity, created_at
FROM products
ORDER BY sku`

const decrementStockSQL = `
UPDATE products
SET quantity = quantity - $1
WHERE id = $2 AND quantity >= $1`

const insertSaleSQL = `
INSERT INTO sales (product_id, sku, quantity, unit_price_ht, vat_rate, total_ht, total_vat, total_ttc, sold_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id`

const salesStatsSQL = `
SELECT COUNT(*),
       COALESCE(SUM(quantity), 0),
       COALESCE(SUM(total_ht), 0),
       COALESCE(SUM(total_vat), 0),
       COALESCE(SUM(total_ttc), 0)
FROM sales`

// NewStore creates a new PgStore instance
func NewStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{
		db: db,
	}
}

// PgStore is a PostgreSQL store for products and sales
type PgStore struct {
	db *pgxpool.Pool
}

// querier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx, so the
// same statements can run both inside and outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// EnsureSchema creates the tables and indexes if they do not exist yet.
func (p *PgStore) EnsureSchema(ctx context.Context) error {
	err := p.withTransaction(ctx, func(q querier) error {
		if _, err := q.Exec(ctx, schemaSQL, pgx.QueryExecModeSimpleProtocol); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
		return nil
	})
	return wrapStoreErr("ensure schema", err)
}

// Reset drops both tables and recreates them. The drop and the recreate run
// in one transaction, so a failure leaves the previous schema in place.
func (p *PgStore) Reset(ctx context.Context) error {
	err := p.withTransaction(ctx, func(q querier) error {
		if _, err := q.Exec(ctx, dropTablesSQL, pgx.QueryExecModeSimpleProtocol); err != nil {
			return fmt.Errorf("failed to drop tables: %w", err)
		}
		if _, err := q.Exec(ctx, schemaSQL, pgx.QueryExecModeSimpleProtocol); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
		return nil
	})
	return wrapStoreErr("reset schema", err)
}

// InsertProduct stores a new product and fills in its generated ID.
func (p *PgStore) InsertProduct(ctx context.Context, product *Product) error {
	return p.insertRow(ctx, p.db, product)
}

// InsertProducts stores a batch of products in a single transaction and
// returns the number inserted.
func (p *PgStore) InsertProducts(ctx context.Context, products []Product) (int, error) {
	err := p.withTransaction(ctx, func(q querier) error {
		for i := range products {
			if err := p.insertRow(ctx, q, &products[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, wrapStoreErr("insert products", err)
	}
	return len(products), nil
}

// FindBySKU returns the product with the given SKU.
func (p *PgStore) FindBySKU(ctx context.Context, sku string) (*Product, error) {
	var product Product
	err := p.db.QueryRow(ctx, findBySKUSQL, sku).Scan(
		&product.ID,
		&product.SKU,
		&product.Name,
		&product.Category,
		&product.UnitPriceHT,
		&product.VATRate,
		&product.Quantity,
		&product.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, inverrors.ErrProductNotFound
		}
		return nil, inverrors.NewDatabaseError("find product by sku", err)
	}
	return &product, nil
}

// UpdateProduct overwrites the mutable fields of the product identified by
// its SKU.
func (p *PgStore) UpdateProduct(ctx context.Context, product *Product) error {
	ct, err := p.db.Exec(ctx, updateProductSQL,
		product.Name,
		product.Category,
		product.UnitPriceHT,
		product.VATRate,
		product.Quantity,
		product.SKU,
	)
	if err != nil {
		return inverrors.NewDatabaseError("update product", err)
	}
	if ct.RowsAffected() == 0 {
		return inverrors.ErrProductNotFound
	}
	return nil
}

// DeleteProduct removes the product with the given SKU. Products referenced
// by recorded sales are protected by the foreign key and cannot be deleted.
func (p *PgStore) DeleteProduct(ctx context.Context, sku string) error {
	ct, err := p.db.Exec(ctx, deleteProductSQL, sku)
	if err != nil {
		if isPgErr(err, pgForeignKeyViolation) {
			return inverrors.NewDatabaseError("delete product", fmt.Errorf("product %q is referenced by recorded sales", sku))
		}
		return inverrors.NewDatabaseError("delete product", err)
	}
	if ct.RowsAffected() == 0 {
		return inverrors.ErrProductNotFound
	}
	return nil
}

// ListProducts returns the whole catalog ordered by SKU.
func (p *PgStore) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := p.db.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, inverrors.NewDatabaseError("list products", err)
	}
	defer rows.Close()

	products := make([]Product, 0)
	for rows.Next() {
		var product Product
		if err := rows.Scan(
			&product.ID,
			&product.SKU,
			&product.Name,
			&product.Category,
			&product.UnitPriceHT,
			&product.VATRate,
			&product.Quantity,
			&product.CreatedAt,
		); err != nil {
			return nil, inverrors.NewDatabaseError("list products", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, inverrors.NewDatabaseError("list products", err)
	}
	return products, nil
}

// RecordSale decrements the product stock and appends a sales ledger row in
// one transaction. The decrement is conditional on enough stock remaining,
// so two concurrent sales can never drive the quantity below zero.
func (p *PgStore) RecordSale(ctx context.Context, sale Sale) (*Sale, error) {
	recorded := sale
	err := p.withTransaction(ctx, func(q querier) error {
		ct, err := q.Exec(ctx, decrementStockSQL, sale.Quantity, sale.ProductID)
		if err != nil {
			return fmt.Errorf("failed to decrement stock: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return inverrors.ErrInsufficientStock
		}

		recorded.SoldAt = time.Now().UTC()
		if err := q.QueryRow(ctx, insertSaleSQL,
			recorded.ProductID,
			recorded.SKU,
			recorded.Quantity,
			recorded.UnitPriceHT,
			recorded.VATRate,
			recorded.TotalHT,
			recorded.TotalVAT,
			recorded.TotalTTC,
			recorded.SoldAt,
		).Scan(&recorded.ID); err != nil {
			return fmt.Errorf("failed to insert sale: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("record sale", err)
	}
	return &recorded, nil
}

// SalesStats aggregates the sales ledger. All counters are zero when the
// ledger is empty.
func (p *PgStore) SalesStats(ctx context.Context) (*SalesStats, error) {
	var stats SalesStats
	err := p.db.QueryRow(ctx, salesStatsSQL).Scan(
		&stats.NbSales,
		&stats.TotalQuantity,
		&stats.TotalHT,
		&stats.TotalVAT,
		&stats.TotalTTC,
	)
	if err != nil {
		return nil, inverrors.NewDatabaseError("sales stats", err)
	}
	return &stats, nil
}

// insertRow inserts one product via q, which is either the pool or an open
// transaction.
func (p *PgStore) insertRow(ctx context.Context, q querier, product *Product) error {
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	err := q.QueryRow(ctx, insertProductSQL,
		product.SKU,
		product.Name,
		product.Category,
		product.UnitPriceHT,
		product.VATRate,
		product.Quantity,
		product.CreatedAt,
	).Scan(&product.ID)
	if err != nil {
		if isPgErr(err, pgUniqueViolation) {
			return inverrors.NewDatabaseError("insert product", fmt.Errorf("sku %q already exists", product.SKU))
		}
		return inverrors.NewDatabaseError("insert product", fmt.Errorf("failed to insert product %q: %w", product.SKU, err))
	}
	return nil
}

// withTransaction is a helper that wraps a function call in a database transaction.
func (p *PgStore) withTransaction(ctx context.Context, fn func(q querier) error) error {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return fmt.Errorf("tx failed: %v, rollback failed: %w", err, rbErr)
		}
		return err
	}

	return tx.Commit(ctx)
}

// wrapStoreErr turns raw driver faults into a DatabaseError while letting
// domain errors pass through unchanged.
func wrapStoreErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, inverrors.ErrProductNotFound) ||
		errors.Is(err, inverrors.ErrInsufficientStock) ||
		inverrors.IsDatabaseError(err) {
		return err
	}
	return inverrors.NewDatabaseError(op, err)
}

func isPgErr(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
