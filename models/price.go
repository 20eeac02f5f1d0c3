package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Price is a currency-aware decimal amount. Arithmetic between different
// currencies is an error, never a silent conversion.
type Price struct {
	Number       decimal.Decimal
	CurrencyCode string
}

// currencyExponents lists the minor-unit digits for currencies that deviate
// from the default of 2.
var currencyExponents = map[string]int32{
	"BHD": 3,
	"IQD": 3,
	"JOD": 3,
	"KWD": 3,
	"LYD": 3,
	"OMR": 3,
	"TND": 3,
	"BIF": 0,
	"CLP": 0,
	"DJF": 0,
	"GNF": 0,
	"JPY": 0,
	"KMF": 0,
	"KRW": 0,
	"PYG": 0,
	"RWF": 0,
	"VND": 0,
	"VUV": 0,
	"XAF": 0,
	"XOF": 0,
	"XPF": 0,
}

// NewPrice parses a decimal string into a Price.
func NewPrice(value, currencyCode string) (Price, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Price{}, fmt.Errorf("invalid price value %q: %w", value, err)
	}
	if currencyCode == "" {
		return Price{}, fmt.Errorf("missing currency code")
	}
	return Price{Number: d, CurrencyCode: currencyCode}, nil
}

// NewPriceFromDecimal wraps an existing decimal in a Price.
func NewPriceFromDecimal(d decimal.Decimal, currencyCode string) Price {
	return Price{Number: d, CurrencyCode: currencyCode}
}

func (p Price) assertSameCurrency(other Price) error {
	if p.CurrencyCode != other.CurrencyCode {
		return fmt.Errorf("currency mismatch: %s vs %s", p.CurrencyCode, other.CurrencyCode)
	}
	return nil
}

// Add returns the sum of two prices of the same currency.
func (p Price) Add(other Price) (Price, error) {
	if err := p.assertSameCurrency(other); err != nil {
		return Price{}, err
	}
	return Price{Number: p.Number.Add(other.Number), CurrencyCode: p.CurrencyCode}, nil
}

// Sub returns the difference of two prices of the same currency.
func (p Price) Sub(other Price) (Price, error) {
	if err := p.assertSameCurrency(other); err != nil {
		return Price{}, err
	}
	return Price{Number: p.Number.Sub(other.Number), CurrencyCode: p.CurrencyCode}, nil
}

// Equals reports whether both currency and numeric value match.
func (p Price) Equals(other Price) bool {
	return p.CurrencyCode == other.CurrencyCode && p.Number.Equal(other.Number)
}

// LessThan compares numeric values; currencies must already match.
func (p Price) LessThan(other Price) bool {
	return p.Number.LessThan(other.Number)
}

// GreaterThan compares numeric values; currencies must already match.
func (p Price) GreaterThan(other Price) bool {
	return p.Number.GreaterThan(other.Number)
}

// IsZero reports whether the amount is zero.
func (p Price) IsZero() bool {
	return p.Number.IsZero()
}

// Format renders the amount rounded to the currency's minor units with
// trailing zeros trimmed, e.g. "19.99" USD, "10" USD, "1200" JPY.
func (p Price) Format() string {
	exp := int32(2)
	if e, ok := currencyExponents[p.CurrencyCode]; ok {
		exp = e
	}
	rounded := p.Number.Round(exp)
	// decimal.String already omits trailing zeros after normalization.
	return rounded.String()
}

func (p Price) String() string {
	return p.Format() + " " + p.CurrencyCode
}
