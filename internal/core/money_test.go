package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		currency string
		wantErr  bool
		field    string
	}{
		{name: "valid amount", amount: "25.50", currency: "USD"},
		{name: "zero is allowed", amount: "0", currency: "EUR"},
		{name: "whole units", amount: "100", currency: "USD"},
		{name: "negative amount", amount: "-0.01", currency: "USD", wantErr: true, field: "amount"},
		{name: "sub-cent precision", amount: "1.999", currency: "USD", wantErr: true, field: "amount"},
		{name: "lowercase currency", amount: "10", currency: "usd", wantErr: true, field: "currency"},
		{name: "short currency", amount: "10", currency: "US", wantErr: true, field: "currency"},
		{name: "empty currency", amount: "10", currency: "", wantErr: true, field: "currency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, err := decimal.NewFromString(tt.amount)
			require.NoError(t, err)

			money, err := NewMoney(amount, tt.currency)
			if tt.wantErr {
				var validationErr *ValidationError
				require.ErrorAs(t, err, &validationErr)
				assert.Equal(t, tt.field, validationErr.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.currency, money.Currency)
			assert.True(t, money.Amount.Equal(amount))
		})
	}
}

func TestMoneyMinorUnitsRoundTrip(t *testing.T) {
	tests := []struct {
		amount string
		minor  int64
	}{
		{"12.34", 1234},
		{"25.50", 2550},
		{"0.01", 1},
		{"0.10", 10},
		{"1000000.99", 100000099},
		{"7", 700},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			amount, err := decimal.NewFromString(tt.amount)
			require.NoError(t, err)
			money, err := NewMoney(amount, "USD")
			require.NoError(t, err)

			minor, err := money.MinorUnits()
			require.NoError(t, err)
			assert.Equal(t, tt.minor, minor)

			back := MoneyFromMinorUnits(minor, "USD")
			assert.True(t, back.Equal(money), "round trip changed %s to %s", money, back)
		})
	}
}

func TestMoneyComparisons(t *testing.T) {
	usd10 := Money{Amount: decimal.NewFromInt(10), Currency: "USD"}
	usd20 := Money{Amount: decimal.NewFromInt(20), Currency: "USD"}
	eur20 := Money{Amount: decimal.NewFromInt(20), Currency: "EUR"}

	assert.True(t, usd20.GreaterThan(usd10))
	assert.False(t, usd10.GreaterThan(usd20))
	assert.False(t, eur20.GreaterThan(usd10), "cross-currency comparison must not report true")
	assert.False(t, usd20.Equal(eur20))
	assert.True(t, usd10.IsPositive())
}
