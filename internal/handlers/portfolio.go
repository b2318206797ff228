package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/avelacruz/fintrack-api/internal/models"
	"github.com/avelacruz/fintrack-api/internal/services"
	"github.com/avelacruz/fintrack-api/internal/utils"
)

type PortfolioHandler struct {
	service services.PortfolioService
	logger  *utils.Logger
}

func NewPortfolioHandler(service services.PortfolioService, logger *utils.Logger) *PortfolioHandler {
	return &PortfolioHandler{service: service, logger: logger}
}

func (h *PortfolioHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListAccounts(r.Context())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]any{
		"accounts": accounts,
		"total":    len(accounts),
	})
}

func (h *PortfolioHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var account models.InvestmentAccount
	if err := json.NewDecoder(r.Body).Decode(&account); err != nil {
		respondError(w, h.logger, utils.NewBadRequestError("Invalid request body"))
		return
	}

	if err := h.service.CreateAccount(r.Context(), &account); err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusCreated, account)
}

func (h *PortfolioHandler) ListBalances(w http.ResponseWriter, r *http.Request) {
	accountID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || accountID <= 0 {
		respondError(w, h.logger, utils.NewBadRequestError("Invalid account ID"))
		return
	}

	balances, err := h.service.ListBalances(r.Context(), accountID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]any{
		"balances": balances,
		"total":    len(balances),
	})
}

func (h *PortfolioHandler) AddManualBalance(w http.ResponseWriter, r *http.Request) {
	var req models.ManualBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, utils.NewBadRequestError("Invalid request body"))
		return
	}
	forceOverride := r.URL.Query().Get("force_override") == "true"

	result, conflict, err := h.service.AddManualBalance(r.Context(), &req, forceOverride)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	if conflict != nil {
		respondJSON(w, h.logger, http.StatusOK, conflict)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, result)
}

func (h *PortfolioHandler) ListBankBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := h.service.ListBankBalances(r.Context())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]any{
		"bank_balances": balances,
		"total_records": len(balances),
	})
}
