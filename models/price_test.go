package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPriceFormat(t *testing.T) {
	t.Run("two decimal currency keeps cents", func(t *testing.T) {
		p, err := NewPrice("19.99", "USD")
		assert.NoError(t, err)
		assert.Equal(t, "19.99", p.Format())
	})

	t.Run("trailing zeros are trimmed", func(t *testing.T) {
		p, err := NewPrice("10.00", "USD")
		assert.NoError(t, err)
		assert.Equal(t, "10", p.Format())
	})

	t.Run("zero exponent currency drops decimals", func(t *testing.T) {
		p, err := NewPrice("1200.00", "JPY")
		assert.NoError(t, err)
		assert.Equal(t, "1200", p.Format())
	})

	t.Run("three exponent currency keeps mils", func(t *testing.T) {
		p, err := NewPrice("4.555", "KWD")
		assert.NoError(t, err)
		assert.Equal(t, "4.555", p.Format())
	})

	t.Run("rounds to the currency exponent", func(t *testing.T) {
		p, err := NewPrice("19.995", "USD")
		assert.NoError(t, err)
		assert.Equal(t, "20", p.Format())
	})
}

func TestPriceArithmetic(t *testing.T) {
	usd := func(v string) Price {
		p, err := NewPrice(v, "USD")
		assert.NoError(t, err)
		return p
	}

	t.Run("add same currency", func(t *testing.T) {
		sum, err := usd("10.50").Add(usd("9.49"))
		assert.NoError(t, err)
		assert.Equal(t, "19.99", sum.Format())
	})

	t.Run("add currency mismatch fails", func(t *testing.T) {
		eur, _ := NewPrice("5.00", "EUR")
		_, err := usd("10.00").Add(eur)
		assert.Error(t, err)
	})

	t.Run("sub same currency", func(t *testing.T) {
		diff, err := usd("19.99").Sub(usd("5.00"))
		assert.NoError(t, err)
		assert.Equal(t, "14.99", diff.Format())
	})

	t.Run("comparisons", func(t *testing.T) {
		assert.True(t, usd("5.00").LessThan(usd("5.01")))
		assert.True(t, usd("5.01").GreaterThan(usd("5.00")))
		assert.True(t, usd("5.00").Equals(usd("5")))
		assert.False(t, usd("5.00").Equals(Price{Number: decimal.NewFromInt(5), CurrencyCode: "EUR"}))
	})

	t.Run("invalid value rejected", func(t *testing.T) {
		_, err := NewPrice("not-a-number", "USD")
		assert.Error(t, err)
	})

	t.Run("missing currency rejected", func(t *testing.T) {
		_, err := NewPrice("1.00", "")
		assert.Error(t, err)
	})
}
