package currency

import (
	"fmt"
	"maps"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/sarafi-settlement/internal/domain"
)

var (
	unitCent  = decimal.RequireFromString("0.01")
	unitWhole = decimal.NewFromInt(1)
	unitMil   = decimal.RequireFromString("0.001")
)

// DefaultTolerance applies to any currency the table does not list.
var DefaultTolerance = unitCent

// Table maps a currency to its smallest representable unit. A Table is never
// mutated after construction and is safe for concurrent use.
type Table struct {
	units map[domain.Currency]decimal.Decimal
}

func NewTable(units map[domain.Currency]decimal.Decimal) *Table {
	t := &Table{units: make(map[domain.Currency]decimal.Decimal, len(units))}
	for c, u := range units {
		t.units[domain.NormalizeCurrency(string(c))] = u
	}
	return t
}

func DefaultTable() *Table {
	units := make(map[domain.Currency]decimal.Decimal)
	for _, c := range []domain.Currency{
		domain.CurrencyUSD, domain.CurrencyEUR, domain.CurrencyAFN,
		"CAD", "GBP", "AUD", "AED", "SAR", "TRY", "CHF", "CNY", "INR", "PKR",
	} {
		units[c] = unitCent
	}
	for _, c := range []domain.Currency{domain.CurrencyIRR, "JPY", "KRW", "VND"} {
		units[c] = unitWhole
	}
	for _, c := range []domain.Currency{domain.CurrencyKWD, "BHD", "OMR", "JOD", "TND", "LYD"} {
		units[c] = unitMil
	}
	return NewTable(units)
}

// WithOverrides returns a copy of t with the given CODE -> unit entries
// replaced or added. t itself is left untouched.
func (t *Table) WithOverrides(overrides map[string]string) (*Table, error) {
	units := maps.Clone(t.units)
	for code, raw := range overrides {
		c := domain.NormalizeCurrency(code)
		if !c.IsValid() {
			return nil, fmt.Errorf("WithOverrides: %q: %w", code, domain.ErrInvalidCurrency)
		}
		u, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("WithOverrides: %s unit %q: %w", c, raw, err)
		}
		if !u.IsPositive() {
			return nil, fmt.Errorf("WithOverrides: %s unit must be positive: %w", c, domain.ErrInvalidAmount)
		}
		units[c] = u
	}
	return &Table{units: units}, nil
}

func (t *Table) ToleranceFor(c domain.Currency) decimal.Decimal {
	if u, ok := t.units[domain.NormalizeCurrency(string(c))]; ok {
		return u
	}
	return DefaultTolerance
}

// DecimalPlacesFor derives display precision from the tolerance. Only units
// of 1 and 0.001 map to something other than 2 places; a currency with a
// finer unit would need this derivation revisited.
func (t *Table) DecimalPlacesFor(c domain.Currency) int32 {
	tol := t.ToleranceFor(c)
	switch {
	case tol.Equal(unitWhole):
		return 0
	case tol.Equal(unitMil):
		return 3
	default:
		return 2
	}
}

func (t *Table) IsWithinTolerance(amount decimal.Decimal, c domain.Currency) bool {
	return amount.Abs().LessThanOrEqual(t.ToleranceFor(c))
}

func (t *Table) Known(c domain.Currency) bool {
	_, ok := t.units[domain.NormalizeCurrency(string(c))]
	return ok
}

func (t *Table) Codes() []domain.Currency {
	return slices.Sorted(maps.Keys(t.units))
}
