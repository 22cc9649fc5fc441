package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/sarafi-settlement/internal/domain"
	"github.com/josh-kwaku/sarafi-settlement/internal/logging"
	"github.com/josh-kwaku/sarafi-settlement/internal/service/transaction"
	"github.com/josh-kwaku/sarafi-settlement/internal/tenant"
)

type paymentService interface {
	RecordPayment(ctx context.Context, req transaction.RecordPaymentRequest) (*transaction.View, *domain.Payment, error)
	CompletePayment(ctx context.Context, tenantID string, transactionID, paymentID uuid.UUID) (*transaction.View, error)
	FailPayment(ctx context.Context, tenantID string, transactionID, paymentID uuid.UUID, reason string) (*transaction.View, error)
	ReversePayment(ctx context.Context, tenantID string, transactionID, paymentID uuid.UUID, reason string) (*transaction.View, *domain.Payment, error)
}

type PaymentHandler struct {
	payments paymentService
}

func NewPaymentHandler(payments paymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

type recordPaymentRequest struct {
	Amount       string     `json:"amount" validate:"required,decimal_gt0"`
	Currency     string     `json:"currency" validate:"required,currency"`
	ExchangeRate *string    `json:"exchange_rate" validate:"omitempty,decimal_gt0"`
	Method       string     `json:"method" validate:"omitempty,oneof=cash bank_transfer card hawala crypto other"`
	Status       string     `json:"status" validate:"omitempty,oneof=pending completed"`
	Details      *string    `json:"details" validate:"omitempty,max=2000"`
	PaidAt       *time.Time `json:"paid_at"`
}

type reasonRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

type paymentResultResponse struct {
	viewDTO
	Payment paymentDTO `json:"payment"`
}

func (h *PaymentHandler) Record(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	tenantID, _ := tenant.IDFromContext(r.Context())

	txID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	var req recordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := validateStruct(req); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	view, p, err := h.payments.RecordPayment(r.Context(), transaction.RecordPaymentRequest{
		TenantID:      tenantID,
		TransactionID: txID,
		Amount:        parseDecimal(req.Amount),
		Currency:      domain.Currency(req.Currency),
		ExchangeRate:  parseOptionalDecimal(req.ExchangeRate),
		Method:        domain.PaymentMethod(req.Method),
		Status:        domain.PaymentStatus(req.Status),
		Details:       req.Details,
		PaidAt:        req.PaidAt,
		RecordedBy:    tenant.OperatorFromContext(r.Context()),
	})
	if err != nil {
		log.Warn("payment recording failed", "transaction_id", txID, "error", err)
		RespondDomainError(w, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/transactions/%s", txID))
	RespondSuccess(w, http.StatusCreated, paymentResultResponse{viewDTO: toViewDTO(view), Payment: toPaymentDTO(p)})
}

func (h *PaymentHandler) Complete(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := tenant.IDFromContext(r.Context())

	txID, paymentID, ok := paymentPath(r)
	if !ok {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	view, err := h.payments.CompletePayment(r.Context(), tenantID, txID, paymentID)
	if err != nil {
		logging.FromContext(r.Context()).Warn("payment completion failed", "payment_id", paymentID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toViewDTO(view))
}

func (h *PaymentHandler) Fail(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := tenant.IDFromContext(r.Context())

	txID, paymentID, ok := paymentPath(r)
	if !ok {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	req, ok := decodeReason(w, r)
	if !ok {
		return
	}

	view, err := h.payments.FailPayment(r.Context(), tenantID, txID, paymentID, req.Reason)
	if err != nil {
		logging.FromContext(r.Context()).Warn("payment failure update failed", "payment_id", paymentID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toViewDTO(view))
}

func (h *PaymentHandler) Reverse(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := tenant.IDFromContext(r.Context())

	txID, paymentID, ok := paymentPath(r)
	if !ok {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	req, ok := decodeReason(w, r)
	if !ok {
		return
	}

	view, reversal, err := h.payments.ReversePayment(r.Context(), tenantID, txID, paymentID, req.Reason)
	if err != nil {
		logging.FromContext(r.Context()).Warn("payment reversal failed", "payment_id", paymentID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, paymentResultResponse{viewDTO: toViewDTO(view), Payment: toPaymentDTO(reversal)})
}

func paymentPath(r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	txID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, false
	}
	paymentID, err := uuid.Parse(r.PathValue("paymentID"))
	if err != nil {
		return uuid.Nil, uuid.Nil, false
	}
	return txID, paymentID, true
}

// decodeReason accepts an empty body as no reason.
func decodeReason(w http.ResponseWriter, r *http.Request) (reasonRequest, bool) {
	var req reasonRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			RespondAppError(w, ErrInvalidRequest, nil)
			return req, false
		}
	}
	if fields := validateStruct(req); len(fields) > 0 {
		RespondValidationError(w, fields)
		return req, false
	}
	return req, true
}
