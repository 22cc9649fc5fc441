package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/josh-kwaku/sarafi-settlement/internal/domain"
	"github.com/josh-kwaku/sarafi-settlement/internal/logging"
	"github.com/josh-kwaku/sarafi-settlement/internal/service/transaction"
	"github.com/josh-kwaku/sarafi-settlement/internal/tenant"
)

type transactionService interface {
	CreateTransaction(ctx context.Context, req transaction.CreateTransactionRequest) (*domain.Transaction, error)
	GetTransaction(ctx context.Context, tenantID string, id uuid.UUID) (*transaction.View, error)
	ListTransactions(ctx context.Context, tenantID string, status domain.SettlementStatus, limit, offset int) (*transaction.Page, error)
	UpdateTransaction(ctx context.Context, req transaction.UpdateTransactionRequest) (*transaction.UpdateResult, error)
	DeleteTransaction(ctx context.Context, tenantID string, id uuid.UUID) error
	GetEditHistory(ctx context.Context, tenantID string, id uuid.UUID) ([]domain.EditHistoryEntry, error)
}

type TransactionHandler struct {
	transactions transactionService
}

func NewTransactionHandler(transactions transactionService) *TransactionHandler {
	return &TransactionHandler{transactions: transactions}
}

type termsRequest struct {
	SendCurrency        string  `json:"send_currency" validate:"required,currency"`
	SendAmount          string  `json:"send_amount" validate:"required,decimal_gt0"`
	ReceiveCurrency     string  `json:"receive_currency" validate:"required,currency"`
	ReceiveAmount       string  `json:"receive_amount" validate:"required,decimal_gt0"`
	RateApplied         string  `json:"rate_applied" validate:"required,decimal_gt0"`
	FeeCharged          string  `json:"fee_charged" validate:"omitempty,decimal_gte0"`
	FeeCurrency         string  `json:"fee_currency" validate:"omitempty,currency"`
	Beneficiary         *string `json:"beneficiary" validate:"omitempty,max=200"`
	Notes               *string `json:"notes" validate:"omitempty,max=2000"`
	AllowPartialPayment *bool   `json:"allow_partial_payment" validate:"required"`
}

func (r termsRequest) toTerms() domain.Terms {
	fee := "0"
	if r.FeeCharged != "" {
		fee = r.FeeCharged
	}
	return domain.Terms{
		SendCurrency:        domain.Currency(r.SendCurrency),
		SendAmount:          parseDecimal(r.SendAmount),
		ReceiveCurrency:     domain.Currency(r.ReceiveCurrency),
		ReceiveAmount:       parseDecimal(r.ReceiveAmount),
		RateApplied:         parseDecimal(r.RateApplied),
		FeeCharged:          parseDecimal(fee),
		FeeCurrency:         domain.Currency(r.FeeCurrency),
		Beneficiary:         r.Beneficiary,
		Notes:               r.Notes,
		AllowPartialPayment: *r.AllowPartialPayment,
	}
}

type createTransactionRequest struct {
	Kind      string  `json:"kind" validate:"required,oneof=exchange remittance"`
	Direction *string `json:"direction" validate:"omitempty,oneof=outgoing incoming"`
	termsRequest
}

type listTransactionsResponse struct {
	Items  []transactionDTO `json:"items"`
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

type updateTransactionResponse struct {
	viewDTO
	History []editDTO `json:"history"`
}

func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	tenantID, _ := tenant.IDFromContext(r.Context())

	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := validateStruct(req); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	var direction *domain.RemittanceDirection
	if req.Direction != nil {
		d := domain.RemittanceDirection(*req.Direction)
		direction = &d
	}

	t, err := h.transactions.CreateTransaction(r.Context(), transaction.CreateTransactionRequest{
		TenantID:  tenantID,
		Kind:      domain.TransactionKind(req.Kind),
		Direction: direction,
		Terms:     req.toTerms(),
		CreatedBy: tenant.OperatorFromContext(r.Context()),
	})
	if err != nil {
		log.Warn("transaction creation failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/transactions/%s", t.ID))
	RespondSuccess(w, http.StatusCreated, toTransactionDTO(t))
}

func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := tenant.IDFromContext(r.Context())
	q := r.URL.Query()

	limit, lerr := queryInt(q.Get("limit"))
	offset, oerr := queryInt(q.Get("offset"))
	var fields []FieldError
	if lerr != nil {
		fields = append(fields, FieldError{Field: "limit", Message: "must be an integer"})
	}
	if oerr != nil {
		fields = append(fields, FieldError{Field: "offset", Message: "must be an integer"})
	}
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	page, err := h.transactions.ListTransactions(r.Context(), tenantID, domain.SettlementStatus(q.Get("status")), limit, offset)
	if err != nil {
		logging.FromContext(r.Context()).Warn("transaction list failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	items := make([]transactionDTO, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, toTransactionDTO(&page.Items[i]))
	}
	RespondSuccess(w, http.StatusOK, listTransactionsResponse{
		Items:  items,
		Total:  page.Total,
		Limit:  page.Limit,
		Offset: page.Offset,
	})
}

func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := tenant.IDFromContext(r.Context())

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	view, err := h.transactions.GetTransaction(r.Context(), tenantID, id)
	if err != nil {
		logging.FromContext(r.Context()).Warn("transaction lookup failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toViewDTO(view))
}

func (h *TransactionHandler) Update(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	tenantID, _ := tenant.IDFromContext(r.Context())

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	var req termsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := validateStruct(req); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	result, err := h.transactions.UpdateTransaction(r.Context(), transaction.UpdateTransactionRequest{
		TenantID: tenantID,
		ID:       id,
		Terms:    req.toTerms(),
		EditedBy: tenant.OperatorFromContext(r.Context()),
	})
	if err != nil {
		log.Warn("transaction update failed", "transaction_id", id, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, updateTransactionResponse{
		viewDTO: toViewDTO(result.View),
		History: toEditDTOs(result.History),
	})
}

func (h *TransactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := tenant.IDFromContext(r.Context())

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	if err := h.transactions.DeleteTransaction(r.Context(), tenantID, id); err != nil {
		logging.FromContext(r.Context()).Warn("transaction delete failed", "transaction_id", id, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]any{"id": id, "deleted": true})
}

func (h *TransactionHandler) History(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := tenant.IDFromContext(r.Context())

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	entries, err := h.transactions.GetEditHistory(r.Context(), tenantID, id)
	if err != nil {
		logging.FromContext(r.Context()).Warn("edit history lookup failed", "transaction_id", id, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toEditDTOs(entries))
}

func queryInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
