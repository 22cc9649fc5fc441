package transaction

import (
	"fmt"
	"strings"

	"github.com/josh-kwaku/sarafi-settlement/internal/domain"
)

func validateCreate(req *CreateTransactionRequest) error {
	if strings.TrimSpace(req.TenantID) == "" {
		return fmt.Errorf("validateCreate: %w", domain.InvalidRequestf("tenant id required"))
	}
	if !req.Kind.IsValid() {
		return fmt.Errorf("validateCreate: %w", domain.InvalidRequestf("unknown kind %q", req.Kind))
	}

	switch req.Kind {
	case domain.TransactionKindRemittance:
		if req.Direction == nil || !req.Direction.IsValid() {
			return fmt.Errorf("validateCreate: %w", domain.InvalidRequestf("remittance needs a direction"))
		}
	case domain.TransactionKindExchange:
		if req.Direction != nil {
			return fmt.Errorf("validateCreate: %w", domain.InvalidRequestf("exchange has no direction"))
		}
	}

	if err := normalizeTerms(&req.Terms); err != nil {
		return fmt.Errorf("validateCreate: %w", err)
	}
	return nil
}

// normalizeTerms upper-cases currency codes, defaults the fee currency to the
// send currency and checks every amount.
func normalizeTerms(t *domain.Terms) error {
	t.SendCurrency = domain.NormalizeCurrency(string(t.SendCurrency))
	t.ReceiveCurrency = domain.NormalizeCurrency(string(t.ReceiveCurrency))
	t.FeeCurrency = domain.NormalizeCurrency(string(t.FeeCurrency))
	if t.FeeCurrency == "" {
		t.FeeCurrency = t.SendCurrency
	}

	for field, c := range map[string]domain.Currency{
		"send_currency":    t.SendCurrency,
		"receive_currency": t.ReceiveCurrency,
		"fee_currency":     t.FeeCurrency,
	} {
		if !c.IsValid() {
			return fmt.Errorf("%s %q: %w", field, c, domain.ErrInvalidCurrency)
		}
	}

	if !t.SendAmount.IsPositive() {
		return fmt.Errorf("send_amount: %w", domain.ErrInvalidAmount)
	}
	if !t.ReceiveAmount.IsPositive() {
		return fmt.Errorf("receive_amount: %w", domain.ErrInvalidAmount)
	}
	if t.FeeCharged.IsNegative() {
		return fmt.Errorf("fee_charged must not be negative: %w", domain.ErrInvalidAmount)
	}
	if !t.RateApplied.IsPositive() {
		return fmt.Errorf("rate_applied: %w", domain.ErrInvalidRate)
	}
	return nil
}

func validatePayment(req *RecordPaymentRequest) error {
	if strings.TrimSpace(req.TenantID) == "" {
		return fmt.Errorf("validatePayment: %w", domain.InvalidRequestf("tenant id required"))
	}
	if !req.Amount.IsPositive() {
		return fmt.Errorf("validatePayment: %w", domain.ErrInvalidAmount)
	}

	req.Currency = domain.NormalizeCurrency(string(req.Currency))
	if !req.Currency.IsValid() {
		return fmt.Errorf("validatePayment: currency %q: %w", req.Currency, domain.ErrInvalidCurrency)
	}
	if req.ExchangeRate != nil && !req.ExchangeRate.IsPositive() {
		return fmt.Errorf("validatePayment: %w", domain.ErrInvalidRate)
	}

	if req.Method == "" {
		req.Method = domain.PaymentMethodCash
	}
	if !req.Method.IsValid() {
		return fmt.Errorf("validatePayment: %w", domain.InvalidRequestf("unknown method %q", req.Method))
	}

	switch req.Status {
	case "":
		req.Status = domain.PaymentStatusCompleted
	case domain.PaymentStatusCompleted, domain.PaymentStatusPending:
	default:
		return fmt.Errorf("validatePayment: %w", domain.InvalidRequestf("initial status %q not allowed", req.Status))
	}
	return nil
}
