// Package importer loads an initial product catalog from a JSON file.
//
// The expected document shape is:
//
//	{
//	  "products": [
//	    {"sku": "KB-001", "name": "Mechanical Keyboard", "category": "peripherals",
//	     "unit_price_ht": 59.90, "vat_rate": 0.20, "quantity": 100}
//	  ]
//	}
//
// vat_rate is optional and falls back to the configured default.
package importer

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	inverrors "github.com/abgdnv/goinventory/internal/errors"
	"github.com/abgdnv/goinventory/internal/store"
	"github.com/abgdnv/goinventory/internal/validation"
)

type catalogFile struct {
	Products []productEntry `json:"products"`
}

type productEntry struct {
	SKU         string           `json:"sku"`
	Name        string           `json:"name"`
	Category    string           `json:"category"`
	UnitPriceHT decimal.Decimal  `json:"unit_price_ht"`
	VATRate     *decimal.Decimal `json:"vat_rate"`
	Quantity    int32            `json:"quantity"`
}

// Load reads and validates the catalog file at path. Entries without a
// vat_rate get defaultVATRate. File access and parse faults come back as a
// DataImportError, as does a missing or empty products list; a failing
// entry surfaces as a ValidationError.
func Load(path string, defaultVATRate decimal.Decimal) ([]store.Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, inverrors.NewDataImportError(path, err)
	}

	var file catalogFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, inverrors.NewDataImportError(path, fmt.Errorf("invalid JSON: %w", err))
	}
	if file.Products == nil {
		return nil, inverrors.NewDataImportError(path, errors.New(`missing "products" key`))
	}
	if len(file.Products) == 0 {
		return nil, inverrors.NewDataImportError(path, errors.New(`"products" list is empty`))
	}

	products := make([]store.Product, 0, len(file.Products))
	for i, entry := range file.Products {
		product, err := entry.toProduct(defaultVATRate)
		if err != nil {
			return nil, fmt.Errorf("product %d: %w", i, err)
		}
		products = append(products, product)
	}
	return products, nil
}

// toProduct validates one catalog entry and maps it to a store row.
func (e productEntry) toProduct(defaultVATRate decimal.Decimal) (store.Product, error) {
	sku, err := validation.SKU(e.SKU)
	if err != nil {
		return store.Product{}, err
	}
	name, err := validation.NonEmpty(e.Name, "name")
	if err != nil {
		return store.Product{}, err
	}
	category, err := validation.NonEmpty(e.Category, "category")
	if err != nil {
		return store.Product{}, err
	}
	price, err := validation.UnitPrice(e.UnitPriceHT)
	if err != nil {
		return store.Product{}, err
	}
	quantity, err := validation.Quantity(e.Quantity, true)
	if err != nil {
		return store.Product{}, err
	}
	rate := defaultVATRate
	if e.VATRate != nil {
		rate = *e.VATRate
	}
	rate, err = validation.VATRate(rate)
	if err != nil {
		return store.Product{}, err
	}

	return store.Product{
		SKU:         sku,
		Name:        name,
		Category:    category,
		UnitPriceHT: price,
		VATRate:     rate,
		Quantity:    quantity,
	}, nil
}
