package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/sarafi-settlement/internal/currency"
	"github.com/josh-kwaku/sarafi-settlement/internal/domain"
	"github.com/josh-kwaku/sarafi-settlement/internal/fx"
	"github.com/josh-kwaku/sarafi-settlement/internal/service/transaction"
	"github.com/josh-kwaku/sarafi-settlement/internal/settlement"
	"github.com/josh-kwaku/sarafi-settlement/internal/tenant"
)

type mockService struct {
	createReq  transaction.CreateTransactionRequest
	recordReq  transaction.RecordPaymentRequest
	netReq     transaction.NetRequest
	err        error
	view       *transaction.View
	payment    *domain.Payment
	position   *settlement.NetPosition
	deletedID  uuid.UUID
	history    []domain.EditHistoryEntry
	listStatus domain.SettlementStatus
}

func (m *mockService) CreateTransaction(_ context.Context, req transaction.CreateTransactionRequest) (*domain.Transaction, error) {
	m.createReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Transaction{ID: uuid.New(), TenantID: req.TenantID, Kind: req.Kind, Terms: req.Terms, PaymentStatus: domain.SettlementStatusOpen}, nil
}

func (m *mockService) GetTransaction(_ context.Context, _ string, _ uuid.UUID) (*transaction.View, error) {
	return m.view, m.err
}

func (m *mockService) ListTransactions(_ context.Context, _ string, status domain.SettlementStatus, limit, offset int) (*transaction.Page, error) {
	m.listStatus = status
	if m.err != nil {
		return nil, m.err
	}
	return &transaction.Page{Limit: limit, Offset: offset}, nil
}

func (m *mockService) UpdateTransaction(_ context.Context, _ transaction.UpdateTransactionRequest) (*transaction.UpdateResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &transaction.UpdateResult{View: m.view, History: m.history}, nil
}

func (m *mockService) DeleteTransaction(_ context.Context, _ string, id uuid.UUID) error {
	m.deletedID = id
	return m.err
}

func (m *mockService) GetEditHistory(_ context.Context, _ string, _ uuid.UUID) ([]domain.EditHistoryEntry, error) {
	return m.history, m.err
}

func (m *mockService) RecordPayment(_ context.Context, req transaction.RecordPaymentRequest) (*transaction.View, *domain.Payment, error) {
	m.recordReq = req
	if m.err != nil {
		return nil, nil, m.err
	}
	return m.view, m.payment, nil
}

func (m *mockService) CompletePayment(_ context.Context, _ string, _, _ uuid.UUID) (*transaction.View, error) {
	return m.view, m.err
}

func (m *mockService) FailPayment(_ context.Context, _ string, _, _ uuid.UUID, _ string) (*transaction.View, error) {
	return m.view, m.err
}

func (m *mockService) ReversePayment(_ context.Context, _ string, _, _ uuid.UUID, _ string) (*transaction.View, *domain.Payment, error) {
	if m.err != nil {
		return nil, nil, m.err
	}
	return m.view, m.payment, nil
}

func (m *mockService) NetRemittances(_ context.Context, req transaction.NetRequest) (*settlement.NetPosition, error) {
	m.netReq = req
	return m.position, m.err
}

func sampleView() *transaction.View {
	tx := &domain.Transaction{
		ID:       uuid.New(),
		TenantID: "tenant-a",
		Kind:     domain.TransactionKindExchange,
		Terms: domain.Terms{
			SendCurrency:    "USD",
			SendAmount:      decimal.NewFromInt(100),
			ReceiveCurrency: "AFN",
			ReceiveAmount:   decimal.NewFromInt(7000),
			RateApplied:     decimal.NewFromInt(70),
			FeeCharged:      decimal.Zero,
			FeeCurrency:     "USD",
		},
		PaymentStatus:    domain.SettlementStatusPartiallyPaid,
		TotalPaid:        decimal.NewFromInt(3500),
		RemainingBalance: decimal.NewFromInt(3500),
	}
	return &transaction.View{
		Transaction: tx,
		Summary: settlement.Summary{
			TotalPaid:        tx.TotalPaid,
			RemainingBalance: tx.RemainingBalance,
			Tolerance:        decimal.RequireFromString("0.01"),
			Status:           tx.PaymentStatus,
		},
	}
}

func newRouter(svc *mockService) http.Handler {
	th := NewTransactionHandler(svc)
	ph := NewPaymentHandler(svc)
	nh := NewNetHandler(svc)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/transactions", th.Create)
	mux.HandleFunc("GET /api/v1/transactions", th.List)
	mux.HandleFunc("GET /api/v1/transactions/{id}", th.Get)
	mux.HandleFunc("DELETE /api/v1/transactions/{id}", th.Delete)
	mux.HandleFunc("POST /api/v1/transactions/{id}/payments", ph.Record)
	mux.HandleFunc("POST /api/v1/transactions/{id}/payments/{paymentID}/reverse", ph.Reverse)
	mux.HandleFunc("POST /api/v1/remittances/net", nh.Net)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := tenant.ContextWithTenantID(r.Context(), "tenant-a")
		ctx = tenant.ContextWithOperator(ctx, "cashier-1")
		mux.ServeHTTP(w, r.WithContext(ctx))
	})
}

func doRequest(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestCreateTransaction(t *testing.T) {
	valid := `{"kind":"exchange","send_currency":"USD","send_amount":"100","receive_currency":"afn",
		"receive_amount":"7000.50","rate_applied":"70.005","allow_partial_payment":true}`

	t.Run("valid body", func(t *testing.T) {
		svc := &mockService{}
		rec := doRequest(newRouter(svc), http.MethodPost, "/api/v1/transactions", valid)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, "tenant-a", svc.createReq.TenantID)
		assert.Equal(t, "cashier-1", svc.createReq.CreatedBy)
		assert.True(t, svc.createReq.Terms.ReceiveAmount.Equal(decimal.RequireFromString("7000.50")))
		assert.True(t, svc.createReq.Terms.FeeCharged.IsZero())
		assert.True(t, svc.createReq.Terms.AllowPartialPayment)
		assert.Contains(t, rec.Header().Get("Location"), "/api/v1/transactions/")
	})

	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{"amount not a decimal", strings.Replace(valid, `"send_amount":"100"`, `"send_amount":"ten"`, 1), "send_amount"},
		{"negative receive", strings.Replace(valid, `"7000.50"`, `"-1"`, 1), "receive_amount"},
		{"bad currency", strings.Replace(valid, `"afn"`, `"afghani"`, 1), "receive_currency"},
		{"unknown kind", strings.Replace(valid, `"exchange"`, `"loan"`, 1), "kind"},
		{"missing partial flag", strings.Replace(valid, `,"allow_partial_payment":true`, ``, 1), "allow_partial_payment"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(newRouter(&mockService{}), http.MethodPost, "/api/v1/transactions", tc.body)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decodeResponse(t, rec)
			require.NotNil(t, resp.Error)
			assert.Equal(t, "VALIDATION_FAILED", resp.Error.Code)
			assert.Contains(t, fmt.Sprint(resp.Error.Details), tc.wantField)
		})
	}

	t.Run("malformed json", func(t *testing.T) {
		rec := doRequest(newRouter(&mockService{}), http.MethodPost, "/api/v1/transactions", `{`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRecordPayment_PolicyViolation(t *testing.T) {
	txID := uuid.New()
	svc := &mockService{err: fmt.Errorf("RecordPayment: %w", &domain.PolicyViolationError{
		TransactionID:  txID,
		Currency:       "CAD",
		WouldBeBalance: decimal.NewFromInt(500),
		Tolerance:      decimal.RequireFromString("0.01"),
	})}

	rec := doRequest(newRouter(svc), http.MethodPost, "/api/v1/transactions/"+txID.String()+"/payments",
		`{"amount":"500","currency":"CAD","exchange_rate":"1"}`)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, "POLICY_VIOLATION", resp.Error.Code)
	details, ok := resp.Error.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "500", details["would_be_balance"])
	assert.Equal(t, "CAD", details["currency"])

	assert.True(t, svc.recordReq.ExchangeRate.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, "cashier-1", svc.recordReq.RecordedBy)
}

func TestRecordPayment_Success(t *testing.T) {
	view := sampleView()
	p := &domain.Payment{
		ID:            uuid.New(),
		TransactionID: view.Transaction.ID,
		Amount:        decimal.NewFromInt(50),
		Currency:      "USD",
		ExchangeRate:  decimal.NewFromInt(70),
		Method:        domain.PaymentMethodHawala,
		Status:        domain.PaymentStatusCompleted,
	}
	svc := &mockService{view: view, payment: p}

	rec := doRequest(newRouter(svc), http.MethodPost, "/api/v1/transactions/"+view.Transaction.ID.String()+"/payments",
		`{"amount":"50","currency":"usd","method":"hawala"}`)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Nil(t, svc.recordReq.ExchangeRate, "omitted rate is resolved by the service")

	var body struct {
		Data struct {
			Transaction struct {
				PaymentStatus    string `json:"payment_status"`
				RemainingBalance string `json:"remaining_balance"`
			} `json:"transaction"`
			Payment struct {
				ConvertedAmount string `json:"converted_amount"`
			} `json:"payment"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "partially_paid", body.Data.Transaction.PaymentStatus)
	assert.Equal(t, "3500", body.Data.Transaction.RemainingBalance)
	assert.Equal(t, "3500", body.Data.Payment.ConvertedAmount)
}

func TestDomainErrorMapping(t *testing.T) {
	tests := []struct {
		err      error
		wantCode int
		wantBody string
	}{
		{domain.ErrNotFound, http.StatusNotFound, "RESOURCE_NOT_FOUND"},
		{domain.ErrTransactionHasPayments, http.StatusConflict, "TRANSACTION_HAS_PAYMENTS"},
		{domain.ErrAlreadyReversed, http.StatusConflict, "ALREADY_REVERSED"},
		{domain.ErrPaymentTerminal, http.StatusConflict, "PAYMENT_TERMINAL"},
		{domain.ErrCurrencyLocked, http.StatusConflict, "CURRENCY_LOCKED"},
		{domain.ErrInvalidRate, http.StatusBadRequest, "INVALID_RATE"},
		{fmt.Errorf("%w: connection refused", domain.ErrPersistence), http.StatusServiceUnavailable, "PERSISTENCE_ERROR"},
		{fmt.Errorf("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range tests {
		t.Run(tc.wantBody, func(t *testing.T) {
			svc := &mockService{err: fmt.Errorf("DeleteTransaction: %w", tc.err)}
			rec := doRequest(newRouter(svc), http.MethodDelete, "/api/v1/transactions/"+uuid.NewString(), "")

			assert.Equal(t, tc.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.wantBody)
		})
	}
}

func TestDomainErrorMapping_InvalidRequestShowsReasonOnly(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantMessage string
	}{
		{
			name:        "reason from wrapped error",
			err:         fmt.Errorf("ReversePayment: %w", domain.InvalidRequestf("a reversal cannot be reversed")),
			wantMessage: "a reversal cannot be reversed",
		},
		{
			name:        "bare sentinel uses catalogue message",
			err:         fmt.Errorf("ReversePayment: lookup detail: %w", domain.ErrInvalidRequest),
			wantMessage: ErrInvalidRequest.Message,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockService{err: tc.err}
			rec := doRequest(newRouter(svc), http.MethodDelete, "/api/v1/transactions/"+uuid.NewString(), "")

			require.Equal(t, http.StatusBadRequest, rec.Code)
			var resp APIResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, "INVALID_REQUEST", resp.Error.Code)
			assert.Equal(t, tc.wantMessage, resp.Error.Message)
			assert.NotContains(t, rec.Body.String(), "ReversePayment")
		})
	}
}

func TestGetTransaction_BadID(t *testing.T) {
	rec := doRequest(newRouter(&mockService{}), http.MethodGet, "/api/v1/transactions/not-a-uuid", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListTransactions(t *testing.T) {
	svc := &mockService{}

	rec := doRequest(newRouter(svc), http.MethodGet, "/api/v1/transactions?status=open&limit=5&offset=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.SettlementStatusOpen, svc.listStatus)

	rec = doRequest(newRouter(svc), http.MethodGet, "/api/v1/transactions?limit=five", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReversePayment_EmptyBody(t *testing.T) {
	view := sampleView()
	svc := &mockService{view: view, payment: &domain.Payment{ID: uuid.New(), Amount: decimal.NewFromInt(-5), ExchangeRate: decimal.NewFromInt(1)}}

	path := fmt.Sprintf("/api/v1/transactions/%s/payments/%s/reverse", view.Transaction.ID, uuid.New())
	rec := doRequest(newRouter(svc), http.MethodPost, path, "")

	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestNet(t *testing.T) {
	svc := &mockService{position: &settlement.NetPosition{
		BaseCurrency: "USD",
		Status:       settlement.NetStatusSettled,
		Legs:         2,
	}}
	a, b := uuid.New(), uuid.New()

	rec := doRequest(newRouter(svc), http.MethodPost, "/api/v1/remittances/net",
		fmt.Sprintf(`{"transaction_ids":["%s","%s"]}`, a, b))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []uuid.UUID{a, b}, svc.netReq.TransactionIDs)
	assert.Contains(t, rec.Body.String(), `"status":"settled"`)

	rec = doRequest(newRouter(svc), http.MethodPost, "/api/v1/remittances/net", `{"transaction_ids":["nope"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(newRouter(svc), http.MethodPost, "/api/v1/remittances/net", `{"transaction_ids":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCurrencyHandler(t *testing.T) {
	h := NewCurrencyHandler(currency.DefaultTable())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/currencies/{code}", h.Get)

	rec := doRequest(mux, http.MethodGet, "/api/v1/currencies/irr", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"IRR"`)
	assert.Contains(t, rec.Body.String(), `"decimal_places":0`)

	rec = doRequest(mux, http.MethodGet, "/api/v1/currencies/kwd", "")
	assert.Contains(t, rec.Body.String(), `"tolerance":"0.001"`)

	rec = doRequest(mux, http.MethodGet, "/api/v1/currencies/12", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFXHandler(t *testing.T) {
	book, err := fx.NewRateBook("USD", map[string]string{"USD_AFN": "70"})
	require.NoError(t, err)
	h := NewFXHandler(book)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/fx/rates", h.GetRate)

	rec := doRequest(mux, http.MethodGet, "/api/v1/fx/rates?from=USD&to=AFN", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"rate":"70"`)
	assert.Contains(t, rec.Body.String(), `"source":"direct"`)

	rec = doRequest(mux, http.MethodGet, "/api/v1/fx/rates?from=AFN", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"to_currency":"USD"`)
	assert.Contains(t, rec.Body.String(), `"source":"inverse"`)

	rec = doRequest(mux, http.MethodGet, "/api/v1/fx/rates?from=USD&to=KWD", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "RATE_NOT_FOUND")

	rec = doRequest(mux, http.MethodGet, "/api/v1/fx/rates", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(mux, http.MethodGet, "/api/v1/fx/rates?from=USD&to=AFN&amount=12.5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"amount":"12.5"`)
	assert.Contains(t, rec.Body.String(), `"converted_amount":"875"`)

	rec = doRequest(mux, http.MethodGet, "/api/v1/fx/rates?from=USD&to=AFN&amount=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
