// Package service implements the inventory and sales business logic.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	inverrors "github.com/abgdnv/goinventory/internal/errors"
	"github.com/abgdnv/goinventory/internal/importer"
	"github.com/abgdnv/goinventory/internal/store"
	"github.com/abgdnv/goinventory/internal/validation"
)

// InventoryService defines the methods for managing the product catalog and
// selling stock. It abstracts the underlying business logic and data access.
type InventoryService interface {
	// InitializeFromJSON wipes the database and loads the catalog from a
	// JSON file. It returns the number of imported products. The file is
	// parsed and validated before anything is dropped, so a bad file never
	// destroys existing data.
	InitializeFromJSON(ctx context.Context, path string) (int, error)

	// ImportFromJSON loads the catalog from a JSON file into the existing
	// database without wiping it first. It returns the number of imported
	// products.
	ImportFromJSON(ctx context.Context, path string) (int, error)

	// ListInventory returns the whole catalog ordered by SKU.
	// Returns an empty slice if no products exist.
	ListInventory(ctx context.Context) ([]ProductDto, error)

	// GetProduct retrieves a single product by its SKU.
	// Returns a NotFoundError if no product exists with the given SKU.
	GetProduct(ctx context.Context, sku string) (*ProductDto, error)

	// AddProduct adds a new product to the catalog.
	// Returns a ValidationError if a field is invalid or the SKU is taken.
	AddProduct(ctx context.Context, product ProductCreateDto) (*ProductDto, error)

	// UpdateProduct modifies an existing product. Nil fields in the update
	// keep their current value.
	// Returns a NotFoundError if no product exists with the given SKU.
	UpdateProduct(ctx context.Context, sku string, update ProductUpdateDto) (*ProductDto, error)

	// DeleteProduct removes a product from the catalog.
	// Returns a NotFoundError if no product exists with the given SKU.
	DeleteProduct(ctx context.Context, sku string) error

	// SellProduct sells quantity units of the product and returns the
	// receipt. Returns a StockError when the stock does not cover the
	// requested quantity.
	SellProduct(ctx context.Context, sku string, quantity int32) (*ReceiptDto, error)

	// DashboardData aggregates the catalog and the sales ledger into a
	// single overview.
	DashboardData(ctx context.Context) (*DashboardDto, error)
}

// Service implements InventoryService on top of an InventoryStore.
type Service struct {
	repository     store.InventoryStore
	defaultVATRate decimal.Decimal
}

// NewService creates a new instance of InventoryService with the provided
// repository. defaultVATRate applies to products created without an
// explicit rate.
func NewService(repo store.InventoryStore, defaultVATRate decimal.Decimal) *Service {
	return &Service{
		repository:     repo,
		defaultVATRate: defaultVATRate,
	}
}

// ProductCreateDto represents the data transfer object for creating a new product.
type ProductCreateDto struct {
	SKU         string           `json:"sku"           validate:"required,max=64"`
	Name        string           `json:"name"          validate:"required,max=200"`
	Category    string           `json:"category"      validate:"required,max=100"`
	UnitPriceHT decimal.Decimal  `json:"unit_price_ht"`
	VATRate     *decimal.Decimal `json:"vat_rate,omitempty"`
	Quantity    int32            `json:"quantity"      validate:"min=0"`
}

// ProductUpdateDto represents a partial update. Nil fields keep the product's
// current value.
type ProductUpdateDto struct {
	Name        *string          `json:"name,omitempty"          validate:"omitempty,max=200"`
	Category    *string          `json:"category,omitempty"      validate:"omitempty,max=100"`
	UnitPriceHT *decimal.Decimal `json:"unit_price_ht,omitempty"`
	VATRate     *decimal.Decimal `json:"vat_rate,omitempty"`
	Quantity    *int32           `json:"quantity,omitempty"      validate:"omitempty,min=0"`
}

// ProductDto represents the data transfer object for a product.
type ProductDto struct {
	ID          int64           `json:"id"`
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	UnitPriceHT decimal.Decimal `json:"unit_price_ht"`
	VATRate     decimal.Decimal `json:"vat_rate"`
	Quantity    int32           `json:"quantity"`
	CreatedAt   time.Time       `json:"created_at"`
}

// SaleCreateDto represents the data transfer object for selling a product.
type SaleCreateDto struct {
	Quantity int32 `json:"quantity" validate:"required,min=1"`
}

// ReceiptDto represents the outcome of a completed sale. Prices and totals
// are snapshots taken at the moment of sale.
type ReceiptDto struct {
	SaleID         int64           `json:"sale_id"`
	SKU            string          `json:"sku"`
	Name           string          `json:"name"`
	Quantity       int32           `json:"quantity"`
	UnitPriceHT    decimal.Decimal `json:"unit_price_ht"`
	VATRate        decimal.Decimal `json:"vat_rate"`
	TotalHT        decimal.Decimal `json:"total_ht"`
	TotalVAT       decimal.Decimal `json:"total_vat"`
	TotalTTC       decimal.Decimal `json:"total_ttc"`
	RemainingStock int32           `json:"remaining_stock"`
	SoldAt         time.Time       `json:"sold_at"`
}

// SalesStatsDto aggregates the sales ledger.
type SalesStatsDto struct {
	NbSales       int64           `json:"nb_sales"`
	TotalQuantity int64           `json:"total_quantity"`
	TotalHT       decimal.Decimal `json:"total_ht"`
	TotalVAT      decimal.Decimal `json:"total_vat"`
	TotalTTC      decimal.Decimal `json:"total_ttc"`
}

// DashboardDto combines the catalog with the sales aggregates.
type DashboardDto struct {
	Products     []ProductDto    `json:"products"`
	ProductCount int             `json:"product_count"`
	TotalUnits   int64           `json:"total_units"`
	StockValueHT decimal.Decimal `json:"stock_value_ht"`
	Sales        SalesStatsDto   `json:"sales"`
}

// InitializeFromJSON wipes the database and loads the catalog from a JSON
// file, returning the number of imported products.
func (s *Service) InitializeFromJSON(ctx context.Context, path string) (int, error) {
	products, err := importer.Load(path, s.defaultVATRate)
	if err != nil {
		return 0, err
	}

	if err := s.repository.Reset(ctx); err != nil {
		return 0, fmt.Errorf("failed to reset schema: %w", err)
	}

	count, err := s.repository.InsertProducts(ctx, products)
	if err != nil {
		return 0, fmt.Errorf("failed to import products: %w", err)
	}
	return count, nil
}

// ImportFromJSON loads the catalog from a JSON file into the existing
// database, returning the number of imported products.
func (s *Service) ImportFromJSON(ctx context.Context, path string) (int, error) {
	products, err := importer.Load(path, s.defaultVATRate)
	if err != nil {
		return 0, err
	}

	count, err := s.repository.InsertProducts(ctx, products)
	if err != nil {
		return 0, fmt.Errorf("failed to import products: %w", err)
	}
	return count, nil
}

// ListInventory retrieves the whole catalog and returns it as ProductDTOs.
func (s *Service) ListInventory(ctx context.Context) ([]ProductDto, error) {
	products, err := s.repository.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	productDTOs := make([]ProductDto, len(products))

	for i, item := range products {
		productDTOs[i] = *toDto(&item)
	}

	return productDTOs, nil
}

// GetProduct retrieves a product by its SKU and returns it as a ProductDto.
func (s *Service) GetProduct(ctx context.Context, sku string) (*ProductDto, error) {
	sku, err := validation.SKU(sku)
	if err != nil {
		return nil, err
	}

	product, err := s.findBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}
	return toDto(product), nil
}

// AddProduct validates and adds a new product to the catalog.
func (s *Service) AddProduct(ctx context.Context, product ProductCreateDto) (*ProductDto, error) {
	sku, err := validation.SKU(product.SKU)
	if err != nil {
		return nil, err
	}
	name, err := validation.NonEmpty(product.Name, "name")
	if err != nil {
		return nil, err
	}
	category, err := validation.NonEmpty(product.Category, "category")
	if err != nil {
		return nil, err
	}
	price, err := validation.UnitPrice(product.UnitPriceHT)
	if err != nil {
		return nil, err
	}
	quantity, err := validation.Quantity(product.Quantity, true)
	if err != nil {
		return nil, err
	}
	rate := s.defaultVATRate
	if product.VATRate != nil {
		rate = *product.VATRate
	}
	rate, err = validation.VATRate(rate)
	if err != nil {
		return nil, err
	}

	// A taken SKU is a caller mistake, not a storage fault
	if _, err := s.repository.FindBySKU(ctx, sku); err == nil {
		return nil, inverrors.NewValidationError("sku", fmt.Sprintf("product %q already exists", sku))
	} else if !errors.Is(err, inverrors.ErrProductNotFound) {
		return nil, err
	}

	p := &store.Product{
		SKU:         sku,
		Name:        name,
		Category:    category,
		UnitPriceHT: price,
		VATRate:     rate,
		Quantity:    quantity,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repository.InsertProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return toDto(p), nil
}

// UpdateProduct applies a partial update to an existing product and returns
// the updated product as a ProductDto.
func (s *Service) UpdateProduct(ctx context.Context, sku string, update ProductUpdateDto) (*ProductDto, error) {
	sku, err := validation.SKU(sku)
	if err != nil {
		return nil, err
	}

	product, err := s.findBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		name, err := validation.NonEmpty(*update.Name, "name")
		if err != nil {
			return nil, err
		}
		product.Name = name
	}
	if update.Category != nil {
		category, err := validation.NonEmpty(*update.Category, "category")
		if err != nil {
			return nil, err
		}
		product.Category = category
	}
	if update.UnitPriceHT != nil {
		price, err := validation.UnitPrice(*update.UnitPriceHT)
		if err != nil {
			return nil, err
		}
		product.UnitPriceHT = price
	}
	if update.VATRate != nil {
		rate, err := validation.VATRate(*update.VATRate)
		if err != nil {
			return nil, err
		}
		product.VATRate = rate
	}
	if update.Quantity != nil {
		quantity, err := validation.Quantity(*update.Quantity, true)
		if err != nil {
			return nil, err
		}
		product.Quantity = quantity
	}

	if err := s.repository.UpdateProduct(ctx, product); err != nil {
		if errors.Is(err, inverrors.ErrProductNotFound) {
			return nil, inverrors.NewNotFoundError(sku)
		}
		return nil, fmt.Errorf("failed to update product %q: %w", sku, err)
	}
	return toDto(product), nil
}

// DeleteProduct removes a product from the catalog by its SKU.
func (s *Service) DeleteProduct(ctx context.Context, sku string) error {
	sku, err := validation.SKU(sku)
	if err != nil {
		return err
	}

	if err := s.repository.DeleteProduct(ctx, sku); err != nil {
		if errors.Is(err, inverrors.ErrProductNotFound) {
			return inverrors.NewNotFoundError(sku)
		}
		return err
	}
	return nil
}

// SellProduct sells quantity units of a product. Totals are computed from
// the price snapshot with each monetary step rounded to two decimals: the
// net total first, then the VAT amount, then their sum.
func (s *Service) SellProduct(ctx context.Context, sku string, quantity int32) (*ReceiptDto, error) {
	sku, err := validation.SKU(sku)
	if err != nil {
		return nil, err
	}
	quantity, err = validation.Quantity(quantity, false)
	if err != nil {
		return nil, err
	}

	product, err := s.findBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}
	if product.Quantity < quantity {
		return nil, inverrors.NewStockError(sku, quantity, product.Quantity)
	}

	totalHT := product.UnitPriceHT.Mul(decimal.NewFromInt32(quantity)).Round(2)
	totalVAT := totalHT.Mul(product.VATRate).Round(2)
	totalTTC := totalHT.Add(totalVAT).Round(2)

	recorded, err := s.repository.RecordSale(ctx, store.Sale{
		ProductID:   product.ID,
		SKU:         product.SKU,
		Quantity:    quantity,
		UnitPriceHT: product.UnitPriceHT,
		VATRate:     product.VATRate,
		TotalHT:     totalHT,
		TotalVAT:    totalVAT,
		TotalTTC:    totalTTC,
	})
	if err != nil {
		// Another sale may have won the race between the stock check and
		// the decrement. Report the stock as it stands now.
		if errors.Is(err, inverrors.ErrInsufficientStock) {
			available := product.Quantity
			if fresh, ferr := s.repository.FindBySKU(ctx, sku); ferr == nil {
				available = fresh.Quantity
			}
			return nil, inverrors.NewStockError(sku, quantity, available)
		}
		return nil, fmt.Errorf("failed to record sale for %q: %w", sku, err)
	}

	return &ReceiptDto{
		SaleID:         recorded.ID,
		SKU:            recorded.SKU,
		Name:           product.Name,
		Quantity:       recorded.Quantity,
		UnitPriceHT:    recorded.UnitPriceHT,
		VATRate:        recorded.VATRate,
		TotalHT:        recorded.TotalHT,
		TotalVAT:       recorded.TotalVAT,
		TotalTTC:       recorded.TotalTTC,
		RemainingStock: product.Quantity - quantity,
		SoldAt:         recorded.SoldAt,
	}, nil
}

// DashboardData aggregates the catalog and the sales ledger into a single
// overview.
func (s *Service) DashboardData(ctx context.Context) (*DashboardDto, error) {
	products, err := s.ListInventory(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := s.repository.SalesStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sales stats: %w", err)
	}

	var totalUnits int64
	stockValue := decimal.Zero
	for _, p := range products {
		totalUnits += int64(p.Quantity)
		stockValue = stockValue.Add(p.UnitPriceHT.Mul(decimal.NewFromInt32(p.Quantity)))
	}

	return &DashboardDto{
		Products:     products,
		ProductCount: len(products),
		TotalUnits:   totalUnits,
		StockValueHT: stockValue.Round(2),
		Sales: SalesStatsDto{
			NbSales:       stats.NbSales,
			TotalQuantity: stats.TotalQuantity,
			TotalHT:       stats.TotalHT,
			TotalVAT:      stats.TotalVAT,
			TotalTTC:      stats.TotalTTC,
		},
	}, nil
}

// findBySKU fetches a product, translating the store's absence sentinel into
// the service level NotFoundError.
func (s *Service) findBySKU(ctx context.Context, sku string) (*store.Product, error) {
	product, err := s.repository.FindBySKU(ctx, sku)
	if err != nil {
		if errors.Is(err, inverrors.ErrProductNotFound) {
			return nil, inverrors.NewNotFoundError(sku)
		}
		return nil, fmt.Errorf("failed to fetch product %q: %w", sku, err)
	}
	return product, nil
}

// toDto converts a store.Product to a ProductDto.
func toDto(product *store.Product) *ProductDto {
	return &ProductDto{
		ID:          product.ID,
		SKU:         product.SKU,
		Name:        product.Name,
		Category:    product.Category,
		UnitPriceHT: product.UnitPriceHT,
		VATRate:     product.VATRate,
		Quantity:    product.Quantity,
		CreatedAt:   product.CreatedAt,
	}
}
