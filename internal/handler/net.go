package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/josh-kwaku/sarafi-settlement/internal/domain"
	"github.com/josh-kwaku/sarafi-settlement/internal/logging"
	"github.com/josh-kwaku/sarafi-settlement/internal/service/transaction"
	"github.com/josh-kwaku/sarafi-settlement/internal/settlement"
	"github.com/josh-kwaku/sarafi-settlement/internal/tenant"
)

type nettingService interface {
	NetRemittances(ctx context.Context, req transaction.NetRequest) (*settlement.NetPosition, error)
}

type NetHandler struct {
	netting nettingService
}

func NewNetHandler(netting nettingService) *NetHandler {
	return &NetHandler{netting: netting}
}

type netRequest struct {
	BaseCurrency   string   `json:"base_currency" validate:"omitempty,currency"`
	TransactionIDs []string `json:"transaction_ids" validate:"required,min=1,max=500,dive,uuid"`
}

type netResponse struct {
	BaseCurrency string `json:"base_currency"`
	Outgoing     string `json:"outgoing"`
	Incoming     string `json:"incoming"`
	Net          string `json:"net"`
	FeeIncome    string `json:"fee_income"`
	ProfitLoss   string `json:"profit_loss"`
	Status       string `json:"status"`
	Legs         int    `json:"legs"`
}

func (h *NetHandler) Net(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := tenant.IDFromContext(r.Context())

	var req netRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := validateStruct(req); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	ids := make([]uuid.UUID, 0, len(req.TransactionIDs))
	for _, s := range req.TransactionIDs {
		ids = append(ids, uuid.MustParse(s))
	}

	pos, err := h.netting.NetRemittances(r.Context(), transaction.NetRequest{
		TenantID:       tenantID,
		BaseCurrency:   domain.Currency(req.BaseCurrency),
		TransactionIDs: ids,
	})
	if err != nil {
		logging.FromContext(r.Context()).Warn("remittance netting failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, netResponse{
		BaseCurrency: string(pos.BaseCurrency),
		Outgoing:     pos.Outgoing.String(),
		Incoming:     pos.Incoming.String(),
		Net:          pos.Net.String(),
		FeeIncome:    pos.FeeIncome.String(),
		ProfitLoss:   pos.ProfitLoss.String(),
		Status:       string(pos.Status),
		Legs:         pos.Legs,
	})
}
