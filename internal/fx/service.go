package fx

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/sarafi-settlement/internal/domain"
)

// Derived rates keep this many significant digits. A fixed number of decimal
// places would strip most of the digits from rates such as IRR/USD.
const rateSignificantDigits = 18

type RateSource string

const (
	SourceIdentity RateSource = "identity"
	SourceDirect   RateSource = "direct"
	SourceInverse  RateSource = "inverse"
	SourceCross    RateSource = "cross"
)

type Quote struct {
	FromCurrency domain.Currency
	ToCurrency   domain.Currency
	Rate         decimal.Decimal
	Source       RateSource
}

// RateBook holds operator supplied reference rates. It is read-only after
// construction.
type RateBook struct {
	base  domain.Currency
	rates map[string]decimal.Decimal
}

// NewRateBook parses FROM_TO -> rate entries. Missing pairs are derived from
// their inverse or crossed through base.
func NewRateBook(base string, raw map[string]string) (*RateBook, error) {
	b := &RateBook{
		base:  domain.NormalizeCurrency(base),
		rates: make(map[string]decimal.Decimal, len(raw)),
	}
	if !b.base.IsValid() {
		return nil, fmt.Errorf("NewRateBook: base %q: %w", base, domain.ErrInvalidCurrency)
	}

	for pair, value := range raw {
		fromS, toS, ok := strings.Cut(pair, "_")
		from, to := domain.NormalizeCurrency(fromS), domain.NormalizeCurrency(toS)
		if !ok || !from.IsValid() || !to.IsValid() {
			return nil, fmt.Errorf("NewRateBook: pair %q: %w", pair, domain.ErrInvalidCurrency)
		}
		rate, err := decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("NewRateBook: pair %s rate %q: %w", pair, value, err)
		}
		if !rate.IsPositive() {
			return nil, fmt.Errorf("NewRateBook: pair %s: %w", pair, domain.ErrInvalidRate)
		}
		b.rates[pairKey(from, to)] = rate
	}
	return b, nil
}

func pairKey(from, to domain.Currency) string {
	return string(from) + "_" + string(to)
}

func (b *RateBook) Base() domain.Currency {
	return b.base
}

func (b *RateBook) Pairs() []string {
	return slices.Sorted(maps.Keys(b.rates))
}

func (b *RateBook) GetRate(_ context.Context, from, to domain.Currency) (*Quote, error) {
	from, to = domain.NormalizeCurrency(string(from)), domain.NormalizeCurrency(string(to))
	if !from.IsValid() || !to.IsValid() {
		return nil, fmt.Errorf("GetRate: invalid currency pair %s/%s: %w", from, to, domain.ErrInvalidCurrency)
	}

	if from == to {
		return &Quote{FromCurrency: from, ToCurrency: to, Rate: decimal.NewFromInt(1), Source: SourceIdentity}, nil
	}

	if rate, src, ok := b.lookup(from, to); ok {
		return &Quote{FromCurrency: from, ToCurrency: to, Rate: rate, Source: src}, nil
	}

	if from != b.base && to != b.base {
		toBase, _, okFrom := b.lookup(from, b.base)
		fromBase, _, okTo := b.lookup(b.base, to)
		if okFrom && okTo {
			return &Quote{
				FromCurrency: from,
				ToCurrency:   to,
				Rate:         roundSignificant(toBase.Mul(fromBase)),
				Source:       SourceCross,
			}, nil
		}
	}

	return nil, fmt.Errorf("GetRate: no reference rate for %s/%s: %w", from, to, domain.ErrNotFound)
}

func (b *RateBook) lookup(from, to domain.Currency) (decimal.Decimal, RateSource, bool) {
	if r, ok := b.rates[pairKey(from, to)]; ok {
		return r, SourceDirect, true
	}
	if r, ok := b.rates[pairKey(to, from)]; ok {
		return invert(r), SourceInverse, true
	}
	return decimal.Decimal{}, "", false
}

// magnitude is the position of the leading digit: 3 for 420.5, -4 for 0.00002.
func magnitude(d decimal.Decimal) int32 {
	return int32(d.NumDigits()) + d.Exponent()
}

func roundSignificant(d decimal.Decimal) decimal.Decimal {
	if d.IsZero() {
		return d
	}
	return d.Round(rateSignificantDigits - magnitude(d))
}

func invert(r decimal.Decimal) decimal.Decimal {
	// 1/r has its leading digit at about 1-magnitude(r).
	places := rateSignificantDigits + magnitude(r)
	return roundSignificant(decimal.NewFromInt(1).DivRound(r, places))
}

// Convert returns amount expressed in to, along with the quote used.
func (b *RateBook) Convert(ctx context.Context, amount decimal.Decimal, from, to domain.Currency) (decimal.Decimal, *Quote, error) {
	quote, err := b.GetRate(ctx, from, to)
	if err != nil {
		return decimal.Decimal{}, nil, fmt.Errorf("Convert: %w", err)
	}
	return amount.Mul(quote.Rate), quote, nil
}
