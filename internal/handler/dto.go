package handler

import (
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/sarafi-settlement/internal/domain"
	"github.com/josh-kwaku/sarafi-settlement/internal/service/transaction"
	"github.com/josh-kwaku/sarafi-settlement/internal/settlement"
)

type termsDTO struct {
	SendCurrency        string  `json:"send_currency"`
	SendAmount          string  `json:"send_amount"`
	ReceiveCurrency     string  `json:"receive_currency"`
	ReceiveAmount       string  `json:"receive_amount"`
	RateApplied         string  `json:"rate_applied"`
	FeeCharged          string  `json:"fee_charged"`
	FeeCurrency         string  `json:"fee_currency"`
	Beneficiary         *string `json:"beneficiary,omitempty"`
	Notes               *string `json:"notes,omitempty"`
	AllowPartialPayment bool    `json:"allow_partial_payment"`
}

func toTermsDTO(t domain.Terms) termsDTO {
	return termsDTO{
		SendCurrency:        string(t.SendCurrency),
		SendAmount:          t.SendAmount.String(),
		ReceiveCurrency:     string(t.ReceiveCurrency),
		ReceiveAmount:       t.ReceiveAmount.String(),
		RateApplied:         t.RateApplied.String(),
		FeeCharged:          t.FeeCharged.String(),
		FeeCurrency:         string(t.FeeCurrency),
		Beneficiary:         t.Beneficiary,
		Notes:               t.Notes,
		AllowPartialPayment: t.AllowPartialPayment,
	}
}

type transactionDTO struct {
	ID        uuid.UUID `json:"id"`
	Kind      string    `json:"kind"`
	Direction *string   `json:"direction,omitempty"`
	termsDTO
	PaymentStatus    string    `json:"payment_status"`
	TotalPaid        string    `json:"total_paid"`
	RemainingBalance string    `json:"remaining_balance"`
	Version          int64     `json:"version"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func toTransactionDTO(t *domain.Transaction) transactionDTO {
	dto := transactionDTO{
		ID:               t.ID,
		Kind:             string(t.Kind),
		termsDTO:         toTermsDTO(t.Terms),
		PaymentStatus:    string(t.PaymentStatus),
		TotalPaid:        t.TotalPaid.String(),
		RemainingBalance: t.RemainingBalance.String(),
		Version:          t.Version,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
	if t.Direction != nil {
		d := string(*t.Direction)
		dto.Direction = &d
	}
	return dto
}

type paymentDTO struct {
	ID                uuid.UUID  `json:"id"`
	TransactionID     uuid.UUID  `json:"transaction_id"`
	Amount            string     `json:"amount"`
	Currency          string     `json:"currency"`
	ExchangeRate      string     `json:"exchange_rate"`
	ConvertedAmount   string     `json:"converted_amount"`
	Method            string     `json:"method"`
	Status            string     `json:"status"`
	ReversesPaymentID *uuid.UUID `json:"reverses_payment_id,omitempty"`
	Details           *string    `json:"details,omitempty"`
	FailureReason     *string    `json:"failure_reason,omitempty"`
	PaidAt            *time.Time `json:"paid_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

func toPaymentDTO(p *domain.Payment) paymentDTO {
	return paymentDTO{
		ID:                p.ID,
		TransactionID:     p.TransactionID,
		Amount:            p.Amount.String(),
		Currency:          string(p.Currency),
		ExchangeRate:      p.ExchangeRate.String(),
		ConvertedAmount:   settlement.Convert(*p).String(),
		Method:            string(p.Method),
		Status:            string(p.Status),
		ReversesPaymentID: p.ReversesPaymentID,
		Details:           p.Details,
		FailureReason:     p.FailureReason,
		PaidAt:            p.PaidAt,
		CreatedAt:         p.CreatedAt,
	}
}

type summaryDTO struct {
	TotalPaid         string `json:"total_paid"`
	RemainingBalance  string `json:"remaining_balance"`
	Tolerance         string `json:"tolerance"`
	Status            string `json:"status"`
	CompletedPayments int    `json:"completed_payments"`
}

type viewDTO struct {
	Transaction transactionDTO `json:"transaction"`
	Payments    []paymentDTO   `json:"payments"`
	Summary     summaryDTO     `json:"summary"`
}

func toViewDTO(v *transaction.View) viewDTO {
	payments := make([]paymentDTO, 0, len(v.Payments))
	for i := range v.Payments {
		payments = append(payments, toPaymentDTO(&v.Payments[i]))
	}
	return viewDTO{
		Transaction: toTransactionDTO(v.Transaction),
		Payments:    payments,
		Summary: summaryDTO{
			TotalPaid:         v.Summary.TotalPaid.String(),
			RemainingBalance:  v.Summary.RemainingBalance.String(),
			Tolerance:         v.Summary.Tolerance.String(),
			Status:            string(v.Summary.Status),
			CompletedPayments: v.Summary.CompletedPayments,
		},
	}
}

type editDTO struct {
	ID       uuid.UUID `json:"id"`
	Seq      int       `json:"seq"`
	Previous termsDTO  `json:"previous"`
	EditedBy string    `json:"edited_by"`
	EditedAt time.Time `json:"edited_at"`
}

func toEditDTOs(entries []domain.EditHistoryEntry) []editDTO {
	out := make([]editDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, editDTO{
			ID:       e.ID,
			Seq:      e.Seq,
			Previous: toTermsDTO(e.Previous),
			EditedBy: e.EditedBy,
			EditedAt: e.EditedAt,
		})
	}
	return out
}
