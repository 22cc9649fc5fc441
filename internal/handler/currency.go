package handler

import (
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/sarafi-settlement/internal/domain"
)

type toleranceTable interface {
	ToleranceFor(c domain.Currency) decimal.Decimal
	DecimalPlacesFor(c domain.Currency) int32
	Known(c domain.Currency) bool
	Codes() []domain.Currency
}

type CurrencyHandler struct {
	table toleranceTable
}

func NewCurrencyHandler(table toleranceTable) *CurrencyHandler {
	return &CurrencyHandler{table: table}
}

type currencyResponse struct {
	Code          string `json:"code"`
	Tolerance     string `json:"tolerance"`
	DecimalPlaces int32  `json:"decimal_places"`
	Known         bool   `json:"known"`
}

func (h *CurrencyHandler) describe(c domain.Currency) currencyResponse {
	return currencyResponse{
		Code:          string(c),
		Tolerance:     h.table.ToleranceFor(c).String(),
		DecimalPlaces: h.table.DecimalPlacesFor(c),
		Known:         h.table.Known(c),
	}
}

// Get reports the settlement tolerance for a code. Unknown but well formed
// codes get the default tolerance and known=false.
func (h *CurrencyHandler) Get(w http.ResponseWriter, r *http.Request) {
	code := domain.NormalizeCurrency(r.PathValue("code"))
	if !code.IsValid() {
		RespondAppError(w, ErrInvalidCurrency, nil)
		return
	}
	RespondSuccess(w, http.StatusOK, h.describe(code))
}

func (h *CurrencyHandler) List(w http.ResponseWriter, r *http.Request) {
	codes := h.table.Codes()
	out := make([]currencyResponse, 0, len(codes))
	for _, c := range codes {
		out = append(out, h.describe(c))
	}
	RespondSuccess(w, http.StatusOK, out)
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
