package domain

import "strings"

type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyAFN Currency = "AFN"
	CurrencyIRR Currency = "IRR"
	CurrencyKWD Currency = "KWD"
)

func NormalizeCurrency(s string) Currency {
	return Currency(strings.ToUpper(strings.TrimSpace(s)))
}

// IsValid reports whether c looks like an ISO 4217 alphabetic code. It does
// not check that the code is listed in any tolerance table.
func (c Currency) IsValid() bool {
	if len(c) != 3 {
		return false
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
