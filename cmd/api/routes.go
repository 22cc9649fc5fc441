package main

import (
	"net/http"

	"github.com/josh-kwaku/sarafi-settlement/internal/handler"
)

type routeDeps struct {
	health       *handler.HealthHandler
	docs         *handler.DocsHandler
	currencies   *handler.CurrencyHandler
	fx           *handler.FXHandler
	transactions *handler.TransactionHandler
	payments     *handler.PaymentHandler
	netting      *handler.NetHandler
}

func registerRoutes(mux *http.ServeMux, d routeDeps) {
	mux.HandleFunc("GET /health", d.health.Liveness)
	mux.HandleFunc("GET /health/ready", d.health.Readiness)

	mux.HandleFunc("GET /docs", d.docs.UI)
	mux.HandleFunc("GET /docs/openapi.yaml", d.docs.Spec)

	mux.HandleFunc("GET /api/v1/currencies", d.currencies.List)
	mux.HandleFunc("GET /api/v1/currencies/{code}", d.currencies.Get)
	mux.HandleFunc("GET /api/v1/fx/rates", d.fx.GetRate)

	mux.HandleFunc("POST /api/v1/transactions", d.transactions.Create)
	mux.HandleFunc("GET /api/v1/transactions", d.transactions.List)
	mux.HandleFunc("GET /api/v1/transactions/{id}", d.transactions.Get)
	mux.HandleFunc("PUT /api/v1/transactions/{id}", d.transactions.Update)
	mux.HandleFunc("DELETE /api/v1/transactions/{id}", d.transactions.Delete)
	mux.HandleFunc("GET /api/v1/transactions/{id}/history", d.transactions.History)

	mux.HandleFunc("POST /api/v1/transactions/{id}/payments", d.payments.Record)
	mux.HandleFunc("POST /api/v1/transactions/{id}/payments/{paymentID}/complete", d.payments.Complete)
	mux.HandleFunc("POST /api/v1/transactions/{id}/payments/{paymentID}/fail", d.payments.Fail)
	mux.HandleFunc("POST /api/v1/transactions/{id}/payments/{paymentID}/reverse", d.payments.Reverse)

	mux.HandleFunc("POST /api/v1/remittances/net", d.netting.Net)
}
