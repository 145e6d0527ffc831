package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inverrors "github.com/abgdnv/goinventory/internal/errors"
	"github.com/abgdnv/goinventory/internal/store"
)

var testVAT = decimal.RequireFromString("0.20")

// mockInventoryStore is a mock implementation of the InventoryStore interface
type mockInventoryStore struct {
	product  *store.Product
	products []store.Product
	stats    *store.SalesStats

	findErr   error
	insertErr error
	updateErr error
	deleteErr error
	listErr   error
	saleErr   error
	statsErr  error
	resetErr  error

	inserted   []store.Product // products captured by InsertProduct / InsertProducts
	updated    *store.Product  // product captured by UpdateProduct
	recorded   *store.Sale     // sale captured by RecordSale
	resetCalls int
}

// Simulate a destructive schema reset
func (m *mockInventoryStore) Reset(_ context.Context) error {
	m.resetCalls++
	return m.resetErr
}

// Simulate an idempotent schema creation
func (m *mockInventoryStore) EnsureSchema(_ context.Context) error {
	return nil
}

// Simulate inserting a single product
func (m *mockInventoryStore) InsertProduct(_ context.Context, product *store.Product) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	product.ID = int64(len(m.inserted)) + 1
	m.inserted = append(m.inserted, *product)
	return nil
}

// Simulate inserting a batch of products
func (m *mockInventoryStore) InsertProducts(_ context.Context, products []store.Product) (int, error) {
	if m.insertErr != nil {
		return 0, m.insertErr
	}
	m.inserted = append(m.inserted, products...)
	return len(products), nil
}

// Simulate finding a product by SKU
func (m *mockInventoryStore) FindBySKU(_ context.Context, _ string) (*store.Product, error) {
	return m.product, m.findErr
}

// Simulate updating a product
func (m *mockInventoryStore) UpdateProduct(_ context.Context, product *store.Product) error {
	m.updated = product
	return m.updateErr
}

// Simulate deleting a product by SKU
func (m *mockInventoryStore) DeleteProduct(_ context.Context, _ string) error {
	return m.deleteErr
}

// Simulate listing the catalog
func (m *mockInventoryStore) ListProducts(_ context.Context) ([]store.Product, error) {
	return m.products, m.listErr
}

// Simulate recording a sale
func (m *mockInventoryStore) RecordSale(_ context.Context, sale store.Sale) (*store.Sale, error) {
	if m.saleErr != nil {
		return nil, m.saleErr
	}
	out := sale
	out.ID = 7
	out.SoldAt = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m.recorded = &out
	return &out, nil
}

// Simulate aggregating the sales ledger
func (m *mockInventoryStore) SalesStats(_ context.Context) (*store.SalesStats, error) {
	return m.stats, m.statsErr
}

func testProduct() *store.Product {
	return &store.Product{
		ID:          1,
		SKU:         "KB-001",
		Name:        "Mechanical Keyboard",
		Category:    "peripherals",
		UnitPriceHT: decimal.RequireFromString("19.99"),
		VATRate:     testVAT,
		Quantity:    100,
		CreatedAt:   time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC),
	}
}

func strPtr(s string) *string { return &s }
func int32Ptr(n int32) *int32 { return &n }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func Test_InventoryService_GetProduct(t *testing.T) {
	testCases := []struct {
		name      string
		mockStore *mockInventoryStore
		sku       string
		checkErr  func(t *testing.T, err error)
	}{
		{
			name:      "Success - product found",
			mockStore: &mockInventoryStore{product: testProduct()},
			sku:       "KB-001",
		},
		{
			name:      "Error - product not found",
			mockStore: &mockInventoryStore{findErr: inverrors.ErrProductNotFound},
			sku:       "NO-SUCH",
			checkErr: func(t *testing.T, err error) {
				assert.True(t, inverrors.IsNotFoundError(err), "expected NotFoundError")
			},
		},
		{
			name:      "Error - blank sku",
			mockStore: &mockInventoryStore{},
			sku:       "   ",
			checkErr: func(t *testing.T, err error) {
				assert.True(t, inverrors.IsValidationError(err), "expected ValidationError")
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			svc := NewService(tc.mockStore, testVAT)
			// when
			found, err := svc.GetProduct(context.Background(), tc.sku)
			// then
			if tc.checkErr != nil {
				require.Error(t, err)
				tc.checkErr(t, err)
				assert.Nil(t, found)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "KB-001", found.SKU)
			assert.Equal(t, "Mechanical Keyboard", found.Name)
			assert.True(t, decimal.RequireFromString("19.99").Equal(found.UnitPriceHT))
		})
	}
}

func Test_InventoryService_AddProduct(t *testing.T) {
	t.Run("Success - product created with default VAT rate", func(t *testing.T) {
		// given
		mockStore := &mockInventoryStore{findErr: inverrors.ErrProductNotFound}
		svc := NewService(mockStore, testVAT)
		// when
		created, err := svc.AddProduct(context.Background(), ProductCreateDto{
			SKU:         "  KB-001  ",
			Name:        "Mechanical Keyboard",
			Category:    "peripherals",
			UnitPriceHT: decimal.RequireFromString("19.99"),
			Quantity:    100,
		})
		// then
		require.NoError(t, err)
		assert.Equal(t, "KB-001", created.SKU, "SKU should be trimmed")
		assert.True(t, testVAT.Equal(created.VATRate), "missing VAT rate should fall back to the default")
		assert.False(t, created.CreatedAt.IsZero(), "CreatedAt should be set")
		require.Len(t, mockStore.inserted, 1)
	})

	t.Run("Success - explicit VAT rate wins over the default", func(t *testing.T) {
		mockStore := &mockInventoryStore{findErr: inverrors.ErrProductNotFound}
		svc := NewService(mockStore, testVAT)

		created, err := svc.AddProduct(context.Background(), ProductCreateDto{
			SKU:         "BK-001",
			Name:        "Paperback",
			Category:    "books",
			UnitPriceHT: decimal.RequireFromString("12.00"),
			VATRate:     decPtr("0.055"),
			Quantity:    10,
		})

		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString("0.055").Equal(created.VATRate))
	})

	t.Run("Error - SKU already exists", func(t *testing.T) {
		mockStore := &mockInventoryStore{product: testProduct()}
		svc := NewService(mockStore, testVAT)

		_, err := svc.AddProduct(context.Background(), ProductCreateDto{
			SKU:         "KB-001",
			Name:        "Another Keyboard",
			Category:    "peripherals",
			UnitPriceHT: decimal.RequireFromString("10.00"),
			Quantity:    1,
		})

		require.Error(t, err)
		assert.True(t, inverrors.IsValidationError(err), "expected ValidationError for duplicate SKU")
		assert.Empty(t, mockStore.inserted, "nothing should be inserted")
	})

	t.Run("Error - invalid fields", func(t *testing.T) {
		testCases := []struct {
			name string
			dto  ProductCreateDto
		}{
			{
				name: "blank sku",
				dto:  ProductCreateDto{SKU: " ", Name: "X", Category: "c", UnitPriceHT: decimal.NewFromInt(1), Quantity: 1},
			},
			{
				name: "empty name",
				dto:  ProductCreateDto{SKU: "A-1", Name: "", Category: "c", UnitPriceHT: decimal.NewFromInt(1), Quantity: 1},
			},
			{
				name: "negative price",
				dto:  ProductCreateDto{SKU: "A-1", Name: "X", Category: "c", UnitPriceHT: decimal.NewFromInt(-1), Quantity: 1},
			},
			{
				name: "negative quantity",
				dto:  ProductCreateDto{SKU: "A-1", Name: "X", Category: "c", UnitPriceHT: decimal.NewFromInt(1), Quantity: -1},
			},
			{
				name: "vat rate above one",
				dto:  ProductCreateDto{SKU: "A-1", Name: "X", Category: "c", UnitPriceHT: decimal.NewFromInt(1), VATRate: decPtr("1.5"), Quantity: 1},
			},
		}
		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				mockStore := &mockInventoryStore{findErr: inverrors.ErrProductNotFound}
				svc := NewService(mockStore, testVAT)

				_, err := svc.AddProduct(context.Background(), tc.dto)

				require.Error(t, err)
				assert.True(t, inverrors.IsValidationError(err), "expected ValidationError")
				assert.Empty(t, mockStore.inserted, "nothing should be inserted")
			})
		}
	})
}

func Test_InventoryService_UpdateProduct(t *testing.T) {
	t.Run("Success - partial update keeps untouched fields", func(t *testing.T) {
		// given
		mockStore := &mockInventoryStore{product: testProduct()}
		svc := NewService(mockStore, testVAT)
		// when
		updated, err := svc.UpdateProduct(context.Background(), "KB-001", ProductUpdateDto{
			UnitPriceHT: decPtr("24.99"),
			Quantity:    int32Ptr(80),
		})
		// then
		require.NoError(t, err)
		assert.Equal(t, "Mechanical Keyboard", updated.Name, "name should be unchanged")
		assert.Equal(t, "peripherals", updated.Category, "category should be unchanged")
		assert.True(t, decimal.RequireFromString("24.99").Equal(updated.UnitPriceHT))
		assert.EqualValues(t, 80, updated.Quantity)
		require.NotNil(t, mockStore.updated, "store should receive the update")
	})

	t.Run("Error - product not found", func(t *testing.T) {
		mockStore := &mockInventoryStore{findErr: inverrors.ErrProductNotFound}
		svc := NewService(mockStore, testVAT)

		_, err := svc.UpdateProduct(context.Background(), "NO-SUCH", ProductUpdateDto{Name: strPtr("X")})

		require.Error(t, err)
		assert.True(t, inverrors.IsNotFoundError(err), "expected NotFoundError")
	})

	t.Run("Error - invalid new value", func(t *testing.T) {
		mockStore := &mockInventoryStore{product: testProduct()}
		svc := NewService(mockStore, testVAT)

		_, err := svc.UpdateProduct(context.Background(), "KB-001", ProductUpdateDto{UnitPriceHT: decPtr("-1")})

		require.Error(t, err)
		assert.True(t, inverrors.IsValidationError(err), "expected ValidationError")
		assert.Nil(t, mockStore.updated, "store should not be written")
	})
}

func Test_InventoryService_DeleteProduct(t *testing.T) {
	t.Run("Success - product deleted", func(t *testing.T) {
		mockStore := &mockInventoryStore{}
		svc := NewService(mockStore, testVAT)

		err := svc.DeleteProduct(context.Background(), "KB-001")

		require.NoError(t, err)
	})

	t.Run("Error - product not found", func(t *testing.T) {
		mockStore := &mockInventoryStore{deleteErr: inverrors.ErrProductNotFound}
		svc := NewService(mockStore, testVAT)

		err := svc.DeleteProduct(context.Background(), "NO-SUCH")

		require.Error(t, err)
		assert.True(t, inverrors.IsNotFoundError(err), "expected NotFoundError")
	})

	t.Run("Error - product referenced by sales", func(t *testing.T) {
		mockStore := &mockInventoryStore{deleteErr: inverrors.NewDatabaseError("delete product", context.Canceled)}
		svc := NewService(mockStore, testVAT)

		err := svc.DeleteProduct(context.Background(), "KB-001")

		require.Error(t, err)
		assert.True(t, inverrors.IsDatabaseError(err), "expected DatabaseError to pass through")
	})
}

func Test_InventoryService_SellProduct(t *testing.T) {
	t.Run("Success - totals are rounded at each step", func(t *testing.T) {
		// given a unit price of 19.99 and a 20% VAT rate
		mockStore := &mockInventoryStore{product: testProduct()}
		svc := NewService(mockStore, testVAT)
		// when selling 3 units
		receipt, err := svc.SellProduct(context.Background(), "KB-001", 3)
		// then 59.97 net, 11.994 VAT rounded to 11.99, 71.96 gross
		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString("59.97").Equal(receipt.TotalHT), "TotalHT mismatch: %s", receipt.TotalHT)
		assert.True(t, decimal.RequireFromString("11.99").Equal(receipt.TotalVAT), "TotalVAT mismatch: %s", receipt.TotalVAT)
		assert.True(t, decimal.RequireFromString("71.96").Equal(receipt.TotalTTC), "TotalTTC mismatch: %s", receipt.TotalTTC)
		assert.EqualValues(t, 97, receipt.RemainingStock)
		assert.Equal(t, "Mechanical Keyboard", receipt.Name)
		assert.False(t, receipt.SoldAt.IsZero())
		require.NotNil(t, mockStore.recorded, "a sale should be recorded")
		assert.EqualValues(t, 3, mockStore.recorded.Quantity)
	})

	t.Run("Error - insufficient stock", func(t *testing.T) {
		product := testProduct()
		product.Quantity = 2
		mockStore := &mockInventoryStore{product: product}
		svc := NewService(mockStore, testVAT)

		_, err := svc.SellProduct(context.Background(), "KB-001", 3)

		require.Error(t, err)
		var stockErr *inverrors.StockError
		require.ErrorAs(t, err, &stockErr)
		assert.EqualValues(t, 3, stockErr.Requested)
		assert.EqualValues(t, 2, stockErr.Available)
		assert.Nil(t, mockStore.recorded, "no sale should be recorded")
	})

	t.Run("Error - lost the race for the last units", func(t *testing.T) {
		// The stock check passes but the conditional decrement loses
		// against a concurrent sale.
		mockStore := &mockInventoryStore{product: testProduct(), saleErr: inverrors.ErrInsufficientStock}
		svc := NewService(mockStore, testVAT)

		_, err := svc.SellProduct(context.Background(), "KB-001", 3)

		require.Error(t, err)
		assert.True(t, inverrors.IsStockError(err), "expected StockError after losing the race")
	})

	t.Run("Error - invalid quantity", func(t *testing.T) {
		mockStore := &mockInventoryStore{product: testProduct()}
		svc := NewService(mockStore, testVAT)

		for _, quantity := range []int32{0, -5} {
			_, err := svc.SellProduct(context.Background(), "KB-001", quantity)
			require.Error(t, err)
			assert.True(t, inverrors.IsValidationError(err), "expected ValidationError for quantity %d", quantity)
		}
		assert.Nil(t, mockStore.recorded, "no sale should be recorded")
	})

	t.Run("Error - product not found", func(t *testing.T) {
		mockStore := &mockInventoryStore{findErr: inverrors.ErrProductNotFound}
		svc := NewService(mockStore, testVAT)

		_, err := svc.SellProduct(context.Background(), "NO-SUCH", 1)

		require.Error(t, err)
		assert.True(t, inverrors.IsNotFoundError(err), "expected NotFoundError")
	})
}

func Test_InventoryService_InitializeFromJSON(t *testing.T) {
	writeCatalog := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "catalog.json")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		return path
	}

	t.Run("Success - catalog imported after reset", func(t *testing.T) {
		// given
		mockStore := &mockInventoryStore{}
		svc := NewService(mockStore, testVAT)
		path := writeCatalog(t, `{"products": [
			{"sku": "KB-001", "name": "Mechanical Keyboard", "category": "peripherals", "unit_price_ht": 19.99, "quantity": 100},
			{"sku": "MS-002", "name": "Wireless Mouse", "category": "peripherals", "unit_price_ht": 9.99, "vat_rate": 0.055, "quantity": 50}
		]}`)
		// when
		count, err := svc.InitializeFromJSON(context.Background(), path)
		// then
		require.NoError(t, err)
		assert.Equal(t, 2, count)
		assert.Equal(t, 1, mockStore.resetCalls, "the schema should be reset exactly once")
		require.Len(t, mockStore.inserted, 2)
		assert.True(t, testVAT.Equal(mockStore.inserted[0].VATRate), "default VAT rate should apply")
	})

	t.Run("Error - bad file leaves the database untouched", func(t *testing.T) {
		mockStore := &mockInventoryStore{}
		svc := NewService(mockStore, testVAT)
		path := writeCatalog(t, `{"products": [`)

		_, err := svc.InitializeFromJSON(context.Background(), path)

		require.Error(t, err)
		assert.True(t, inverrors.IsDataImportError(err), "expected DataImportError")
		assert.Zero(t, mockStore.resetCalls, "a bad file must not wipe existing data")
	})

	t.Run("Error - invalid entry leaves the database untouched", func(t *testing.T) {
		mockStore := &mockInventoryStore{}
		svc := NewService(mockStore, testVAT)
		path := writeCatalog(t, `{"products": [{"sku": "", "name": "X", "category": "c", "unit_price_ht": 1, "quantity": 1}]}`)

		_, err := svc.InitializeFromJSON(context.Background(), path)

		require.Error(t, err)
		assert.True(t, inverrors.IsValidationError(err), "expected ValidationError")
		assert.Zero(t, mockStore.resetCalls, "an invalid entry must not wipe existing data")
	})
}

func Test_InventoryService_ImportFromJSON(t *testing.T) {
	t.Run("Success - catalog imported without reset", func(t *testing.T) {
		// given
		mockStore := &mockInventoryStore{}
		svc := NewService(mockStore, testVAT)
		path := filepath.Join(t.TempDir(), "catalog.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"products": [
			{"sku": "KB-001", "name": "Mechanical Keyboard", "category": "peripherals", "unit_price_ht": 19.99, "quantity": 100}
		]}`), 0o600))
		// when
		count, err := svc.ImportFromJSON(context.Background(), path)
		// then
		require.NoError(t, err)
		assert.Equal(t, 1, count)
		assert.Zero(t, mockStore.resetCalls, "existing data should be kept")
		require.Len(t, mockStore.inserted, 1)
	})

	t.Run("Error - missing file", func(t *testing.T) {
		mockStore := &mockInventoryStore{}
		svc := NewService(mockStore, testVAT)

		_, err := svc.ImportFromJSON(context.Background(), filepath.Join(t.TempDir(), "missing.json"))

		require.Error(t, err)
		assert.True(t, inverrors.IsDataImportError(err), "expected DataImportError")
		assert.Empty(t, mockStore.inserted)
	})
}

func Test_InventoryService_DashboardData(t *testing.T) {
	t.Run("Success - aggregates catalog and ledger", func(t *testing.T) {
		// given
		keyboard := *testProduct()
		monitor := store.Product{
			ID: 2, SKU: "MON-003", Name: "27 Inch Monitor", Category: "displays",
			UnitPriceHT: decimal.RequireFromString("249.00"), VATRate: testVAT, Quantity: 2,
		}
		mockStore := &mockInventoryStore{
			products: []store.Product{keyboard, monitor},
			stats: &store.SalesStats{
				NbSales:       4,
				TotalQuantity: 9,
				TotalHT:       decimal.RequireFromString("100.00"),
				TotalVAT:      decimal.RequireFromString("20.00"),
				TotalTTC:      decimal.RequireFromString("120.00"),
			},
		}
		svc := NewService(mockStore, testVAT)
		// when
		dashboard, err := svc.DashboardData(context.Background())
		// then
		require.NoError(t, err)
		assert.Equal(t, 2, dashboard.ProductCount)
		assert.EqualValues(t, 102, dashboard.TotalUnits)
		// 100 * 19.99 + 2 * 249.00 = 2497.00
		assert.True(t, decimal.RequireFromString("2497.00").Equal(dashboard.StockValueHT), "StockValueHT mismatch: %s", dashboard.StockValueHT)
		assert.EqualValues(t, 4, dashboard.Sales.NbSales)
		assert.True(t, decimal.RequireFromString("120.00").Equal(dashboard.Sales.TotalTTC))
	})

	t.Run("Success - empty inventory", func(t *testing.T) {
		mockStore := &mockInventoryStore{stats: &store.SalesStats{}}
		svc := NewService(mockStore, testVAT)

		dashboard, err := svc.DashboardData(context.Background())

		require.NoError(t, err)
		assert.Zero(t, dashboard.ProductCount)
		assert.True(t, dashboard.StockValueHT.IsZero())
		assert.Zero(t, dashboard.Sales.NbSales)
	})
}
