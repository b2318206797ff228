package router

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/avelacruz/fintrack-api/internal/config"
	"github.com/avelacruz/fintrack-api/internal/handlers"
	"github.com/avelacruz/fintrack-api/internal/middleware"
	"github.com/avelacruz/fintrack-api/internal/services"
	"github.com/avelacruz/fintrack-api/internal/utils"
)

func NewRouter(statementService services.StatementService, portfolioService services.PortfolioService, cfg *config.Config, logger *utils.Logger) http.Handler {
	r := mux.NewRouter()

	// Middlewares
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS())
	r.Use(middleware.Recovery(logger))

	statementHandler := handlers.NewStatementHandler(statementService, cfg, logger)
	portfolioHandler := handlers.NewPortfolioHandler(portfolioService, logger)

	api := r.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	portfolio := api.PathPrefix("/portfolio").Subrouter()

	// Accounts and balances
	portfolio.HandleFunc("/accounts", portfolioHandler.ListAccounts).Methods(http.MethodGet)
	portfolio.HandleFunc("/accounts", portfolioHandler.CreateAccount).Methods(http.MethodPost)
	portfolio.HandleFunc("/accounts/{id}/balances", portfolioHandler.ListBalances).Methods(http.MethodGet)
	portfolio.HandleFunc("/balances", portfolioHandler.AddManualBalance).Methods(http.MethodPost)
	portfolio.HandleFunc("/bank-balances", portfolioHandler.ListBankBalances).Methods(http.MethodGet)

	// Statement processing workflow
	portfolio.HandleFunc("/statements/upload", statementHandler.UploadStatement).Methods(http.MethodPost)
	portfolio.HandleFunc("/statements/{id}/page-pdf", statementHandler.ServePagePDF).Methods(http.MethodGet)
	portfolio.HandleFunc("/statements/{id}/quick-save", statementHandler.QuickSave).Methods(http.MethodPost)
	portfolio.HandleFunc("/statements/{id}/review", statementHandler.SaveReviewed).Methods(http.MethodPost)
	portfolio.HandleFunc("/statements/{id}/resolve-conflict", statementHandler.ResolveConflict).Methods(http.MethodPost)

	// Bank statement fast path
	portfolio.HandleFunc("/bank-statements/upload", statementHandler.UploadBankStatement).Methods(http.MethodPost)

	return r
}
