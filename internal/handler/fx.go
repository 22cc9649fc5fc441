package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/sarafi-settlement/internal/domain"
	"github.com/josh-kwaku/sarafi-settlement/internal/fx"
	"github.com/josh-kwaku/sarafi-settlement/internal/logging"
)

type fxService interface {
	Base() domain.Currency
	GetRate(ctx context.Context, from, to domain.Currency) (*fx.Quote, error)
	Convert(ctx context.Context, amount decimal.Decimal, from, to domain.Currency) (decimal.Decimal, *fx.Quote, error)
}

type FXHandler struct {
	fx fxService
}

func NewFXHandler(fxSvc fxService) *FXHandler {
	return &FXHandler{fx: fxSvc}
}

type fxRateQuery struct {
	From   string `json:"from" validate:"required,currency"`
	To     string `json:"to" validate:"omitempty,currency"`
	Amount string `json:"amount" validate:"omitempty,decimal_gt0"`
}

type fxRateResponse struct {
	FromCurrency string `json:"from_currency"`
	ToCurrency   string `json:"to_currency"`
	Rate         string `json:"rate"`
	Source       string `json:"source"`
	Amount       string `json:"amount,omitempty"`
	Converted    string `json:"converted_amount,omitempty"`
	Timestamp    string `json:"timestamp"`
}

// GetRate quotes from→to using the reference rate book. to defaults to the
// book's base currency. With amount set the response also carries the
// converted value, which is what the counter shows before taking a payment.
func (h *FXHandler) GetRate(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	q := fxRateQuery{From: query.Get("from"), To: query.Get("to"), Amount: query.Get("amount")}
	if fields := validateStruct(q); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	to := domain.Currency(q.To)
	if to == "" {
		to = h.fx.Base()
	}

	var (
		quote     *fx.Quote
		converted decimal.Decimal
		err       error
	)
	if q.Amount != "" {
		converted, quote, err = h.fx.Convert(r.Context(), parseDecimal(q.Amount), domain.Currency(q.From), to)
	} else {
		quote, err = h.fx.GetRate(r.Context(), domain.Currency(q.From), to)
	}
	if err != nil {
		logging.FromContext(r.Context()).Warn("fx rate lookup failed", "error", err)
		if isNotFound(err) {
			RespondAppError(w, ErrRateNotFound, nil)
			return
		}
		RespondDomainError(w, err)
		return
	}

	resp := fxRateResponse{
		FromCurrency: string(quote.FromCurrency),
		ToCurrency:   string(quote.ToCurrency),
		Rate:         quote.Rate.String(),
		Source:       string(quote.Source),
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}
	if q.Amount != "" {
		resp.Amount = q.Amount
		resp.Converted = converted.String()
	}
	RespondSuccess(w, http.StatusOK, resp)
}
