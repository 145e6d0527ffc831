// Package validation provides pure field-level business-rule checks.
// Functions return the normalized value or a *ValidationError naming the
// offending field; they never touch storage.
package validation

import (
	"strconv"
	"strings"

	inverrors "github.com/abgdnv/goinventory/internal/errors"
	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// SKU trims the sku and rejects empty values.
func SKU(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", inverrors.NewValidationError("sku", "must not be empty")
	}
	return s, nil
}

// NonEmpty trims a display string and rejects empty values, naming the field.
func NonEmpty(s, field string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", inverrors.NewValidationError(field, "must not be empty")
	}
	return s, nil
}

// UnitPrice rejects negative prices.
func UnitPrice(d decimal.Decimal) (decimal.Decimal, error) {
	if d.IsNegative() {
		return decimal.Decimal{}, inverrors.NewValidationError("unit_price_ht", "must not be negative")
	}
	return d, nil
}

// Quantity rejects negative quantities, and zero unless allowZero is set.
func Quantity(n int32, allowZero bool) (int32, error) {
	if n < 0 {
		return 0, inverrors.NewValidationError("quantity", "must not be negative")
	}
	if n == 0 && !allowZero {
		return 0, inverrors.NewValidationError("quantity", "must be greater than 0")
	}
	return n, nil
}

// VATRate rejects rates outside [0, 1]. 0.20 means 20%.
func VATRate(d decimal.Decimal) (decimal.Decimal, error) {
	if d.IsNegative() || d.GreaterThan(one) {
		return decimal.Decimal{}, inverrors.NewValidationError("vat_rate", "must be between 0 and 1")
	}
	return d, nil
}

// ParseDecimal parses a decimal from user input, naming the field on failure.
func ParseDecimal(s, field string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, inverrors.NewValidationError(field, "must be a number")
	}
	return d, nil
}

// ParseInt parses an integer from user input, naming the field on failure.
func ParseInt(s, field string) (int32, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, inverrors.NewValidationError(field, "must be an integer")
	}
	return int32(n), nil
}
