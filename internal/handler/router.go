package handler

import (
	"net/http"
	"time"

	"github.com/segyhp/microloan-engine/pkg/response"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

func NewRouter(
	loanHandler *LoanHandler,
	clientHandler *ClientHandler,
	healthHandler *HealthHandler,
	logger *logrus.Logger,
	requestTimeout time.Duration,
) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.CORSMiddleware)
	if logger != nil {
		router.Use(response.LoggingMiddleware(logger))
	}

	// Health check
	if healthHandler != nil {
		router.HandleFunc("/health", healthHandler.Health).Methods(http.MethodGet)
		router.HandleFunc("/health/ready", healthHandler.Ready).Methods(http.MethodGet)
	}

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(response.TimeoutMiddleware(requestTimeout))

	api.HandleFunc("/clients", clientHandler.CreateClient).Methods(http.MethodPost)
	api.HandleFunc("/clients", clientHandler.ListClients).Methods(http.MethodGet)
	api.HandleFunc("/clients/{clientId}", clientHandler.GetClient).Methods(http.MethodGet)
	api.HandleFunc("/clients/{clientId}/loans", clientHandler.ListClientLoans).Methods(http.MethodGet)

	api.HandleFunc("/loans", loanHandler.CreateLoan).Methods(http.MethodPost)
	api.HandleFunc("/loans/{loanId}", loanHandler.GetLoan).Methods(http.MethodGet)
	api.HandleFunc("/loans/{loanId}", loanHandler.UpdateLoan).Methods(http.MethodPatch)
	api.HandleFunc("/loans/{loanId}", loanHandler.DeleteLoan).Methods(http.MethodDelete)
	api.HandleFunc("/loans/{loanId}/renew", loanHandler.RenewLoan).Methods(http.MethodPost)
	api.HandleFunc("/loans/{loanId}/payments", loanHandler.ListPayments).Methods(http.MethodGet)
	api.HandleFunc("/loans/{loanId}/payments", loanHandler.RecordPayment).Methods(http.MethodPost)

	api.HandleFunc("/payments/bulk", loanHandler.RecordBulkPayments).Methods(http.MethodPost)
	api.HandleFunc("/payments/{paymentId}", loanHandler.UpdatePayment).Methods(http.MethodPatch)
	api.HandleFunc("/payments/{paymentId}", loanHandler.DeletePayment).Methods(http.MethodDelete)

	api.HandleFunc("/reports/portfolio", loanHandler.PortfolioReport).Methods(http.MethodGet)

	return router
}
