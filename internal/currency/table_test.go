package currency

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/sarafi-settlement/internal/domain"
)

func TestToleranceFor(t *testing.T) {
	table := DefaultTable()

	tests := []struct {
		name     string
		currency domain.Currency
		want     string
	}{
		{name: "CAD cents", currency: "CAD", want: "0.01"},
		{name: "USD cents", currency: "USD", want: "0.01"},
		{name: "IRR whole units", currency: "IRR", want: "1"},
		{name: "JPY whole units", currency: "JPY", want: "1"},
		{name: "KWD fils", currency: "KWD", want: "0.001"},
		{name: "BHD fils", currency: "BHD", want: "0.001"},
		{name: "lower case code", currency: "irr", want: "1"},
		{name: "unknown falls back", currency: "XYZ", want: "0.01"},
		{name: "empty falls back", currency: "", want: "0.01"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := table.ToleranceFor(tc.currency)
			assert.True(t, got.Equal(decimal.RequireFromString(tc.want)), "got %s, want %s", got, tc.want)
		})
	}
}

func TestDecimalPlacesFor(t *testing.T) {
	table := DefaultTable()

	tests := []struct {
		currency domain.Currency
		want     int32
	}{
		{"IRR", 0},
		{"KWD", 3},
		{"CAD", 2},
		{"EUR", 2},
		{"VND", 0},
		{"OMR", 3},
		{"ZZZ", 2},
	}

	for _, tc := range tests {
		t.Run(string(tc.currency), func(t *testing.T) {
			assert.Equal(t, tc.want, table.DecimalPlacesFor(tc.currency))
		})
	}
}

func TestIsWithinTolerance_ZeroAlwaysSettled(t *testing.T) {
	table := DefaultTable()

	codes := append(table.Codes(), "XYZ", "")
	for _, c := range codes {
		assert.True(t, table.IsWithinTolerance(decimal.Zero, c), "currency %q", c)
	}
}

func TestIsWithinTolerance(t *testing.T) {
	table := DefaultTable()

	tests := []struct {
		name     string
		amount   string
		currency domain.Currency
		want     bool
	}{
		{name: "exactly one cent", amount: "0.01", currency: "CAD", want: true},
		{name: "negative one cent", amount: "-0.01", currency: "CAD", want: true},
		{name: "just over one cent", amount: "0.011", currency: "CAD", want: false},
		{name: "IRR fraction", amount: "0.4", currency: "IRR", want: true},
		{name: "IRR overpaid fraction", amount: "-0.9", currency: "IRR", want: true},
		{name: "IRR two rials", amount: "2", currency: "IRR", want: false},
		{name: "KWD one fils", amount: "0.001", currency: "KWD", want: true},
		{name: "KWD two fils", amount: "-0.002", currency: "KWD", want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := table.IsWithinTolerance(decimal.RequireFromString(tc.amount), tc.currency)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestWithOverrides(t *testing.T) {
	base := DefaultTable()

	t.Run("adds and replaces without touching the base", func(t *testing.T) {
		over, err := base.WithOverrides(map[string]string{"irr": "1000", "XAU": "0.0001"})
		require.NoError(t, err)

		assert.True(t, over.ToleranceFor("IRR").Equal(decimal.NewFromInt(1000)))
		assert.True(t, over.Known("XAU"))
		assert.True(t, base.ToleranceFor("IRR").Equal(decimal.NewFromInt(1)))
		assert.False(t, base.Known("XAU"))
	})

	t.Run("rejects malformed code", func(t *testing.T) {
		_, err := base.WithOverrides(map[string]string{"DOLLARS": "0.01"})
		require.ErrorIs(t, err, domain.ErrInvalidCurrency)
	})

	t.Run("rejects non-positive unit", func(t *testing.T) {
		_, err := base.WithOverrides(map[string]string{"USD": "0"})
		require.ErrorIs(t, err, domain.ErrInvalidAmount)
	})

	t.Run("rejects unparsable unit", func(t *testing.T) {
		_, err := base.WithOverrides(map[string]string{"USD": "cent"})
		require.Error(t, err)
	})
}

func TestNewTable_CopiesInput(t *testing.T) {
	units := map[domain.Currency]decimal.Decimal{"USD": decimal.RequireFromString("0.01")}
	table := NewTable(units)

	units["USD"] = decimal.NewFromInt(5)

	assert.True(t, table.ToleranceFor("USD").Equal(decimal.RequireFromString("0.01")))
}
