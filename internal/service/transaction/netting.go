package transaction

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/sarafi-settlement/internal/domain"
	"github.com/josh-kwaku/sarafi-settlement/internal/logging"
	"github.com/josh-kwaku/sarafi-settlement/internal/settlement"
)

const maxNettingLegs = 500

type NetRequest struct {
	TenantID       string
	BaseCurrency   domain.Currency
	TransactionIDs []uuid.UUID
}

// NetRemittances offsets a set of remittances against each other in a single
// base currency, using reference rates for every conversion.
func (s *Service) NetRemittances(ctx context.Context, req NetRequest) (*settlement.NetPosition, error) {
	log := logging.FromContext(ctx)

	if len(req.TransactionIDs) == 0 || len(req.TransactionIDs) > maxNettingLegs {
		return nil, fmt.Errorf("NetRemittances: %w", domain.InvalidRequestf("between 1 and %d transactions required", maxNettingLegs))
	}
	if s.rates == nil {
		return nil, fmt.Errorf("NetRemittances: no reference rates configured: %w", domain.ErrInvalidRate)
	}

	base := domain.NormalizeCurrency(string(req.BaseCurrency))
	if base == "" {
		base = s.rates.Base()
	}

	seen := make(map[uuid.UUID]struct{}, len(req.TransactionIDs))
	legs := make([]settlement.Leg, 0, len(req.TransactionIDs))
	for _, id := range req.TransactionIDs {
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("NetRemittances: %w", domain.InvalidRequestf("transaction %s listed twice", id))
		}
		seen[id] = struct{}{}

		t, err := s.transactions.GetByID(ctx, req.TenantID, id)
		if err != nil {
			return nil, fmt.Errorf("NetRemittances: %w", storageError(err))
		}
		leg, err := s.legFor(ctx, t, base)
		if err != nil {
			return nil, fmt.Errorf("NetRemittances: transaction %s: %w", id, err)
		}
		legs = append(legs, leg)
	}

	pos, err := s.calc.Net(base, legs)
	if err != nil {
		return nil, fmt.Errorf("NetRemittances: %w", err)
	}

	log.Info("remittances netted",
		"base_currency", pos.BaseCurrency,
		"legs", pos.Legs,
		"net", pos.Net,
		"status", pos.Status,
	)
	return pos, nil
}

func (s *Service) legFor(ctx context.Context, t *domain.Transaction, base domain.Currency) (settlement.Leg, error) {
	if t.Kind != domain.TransactionKindRemittance || t.Direction == nil {
		return settlement.Leg{}, domain.InvalidRequestf("transaction %s is not a remittance", t.ID)
	}

	sendRate, err := s.baseRate(ctx, t.SendCurrency, base)
	if err != nil {
		return settlement.Leg{}, err
	}
	receiveRate, err := s.baseRate(ctx, t.ReceiveCurrency, base)
	if err != nil {
		return settlement.Leg{}, err
	}

	leg := settlement.Leg{
		TransactionID: t.ID,
		Direction:     *t.Direction,
		SendAmount:    t.SendAmount,
		SendRate:      sendRate,
		ReceiveAmount: t.ReceiveAmount,
		ReceiveRate:   receiveRate,
		Fee:           t.FeeCharged,
		FeeRate:       decimal.Zero,
	}
	if !t.FeeCharged.IsZero() {
		leg.FeeRate, err = s.baseRate(ctx, t.FeeCurrency, base)
		if err != nil {
			return settlement.Leg{}, err
		}
	}
	return leg, nil
}

func (s *Service) baseRate(ctx context.Context, from, base domain.Currency) (decimal.Decimal, error) {
	quote, err := s.rates.GetRate(ctx, from, base)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("rate %s/%s (%v): %w", from, base, err, domain.ErrInvalidRate)
	}
	return quote.Rate, nil
}
