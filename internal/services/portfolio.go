package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avelacruz/fintrack-api/internal/models"
	"github.com/avelacruz/fintrack-api/internal/repository"
	"github.com/avelacruz/fintrack-api/internal/utils"
)

// BalanceConflict is returned instead of saving when a manual entry collides
// with an existing balance and the caller did not force an override.
type BalanceConflict struct {
	HasConflict     bool           `json:"has_conflict"`
	ExistingBalance map[string]any `json:"existing_balance"`
	ConflictType    string         `json:"conflict_type"`
	Message         string         `json:"message"`
}

type PortfolioService interface {
	ListAccounts(ctx context.Context) ([]models.InvestmentAccount, error)
	CreateAccount(ctx context.Context, account *models.InvestmentAccount) error
	ListBalances(ctx context.Context, accountID int64) ([]models.PortfolioBalance, error)
	AddManualBalance(ctx context.Context, req *models.ManualBalanceRequest, forceOverride bool) (*SaveResult, *BalanceConflict, error)
	ListBankBalances(ctx context.Context) ([]models.BankBalance, error)
}

type portfolioService struct {
	repo   repository.Repository
	logger *utils.Logger
}

func NewPortfolioService(repo repository.Repository, logger *utils.Logger) PortfolioService {
	return &portfolioService{repo: repo, logger: logger}
}

func (s *portfolioService) ListAccounts(ctx context.Context) ([]models.InvestmentAccount, error) {
	accounts, err := s.repo.GetAllAccounts(ctx)
	if err != nil {
		return nil, utils.NewInternalError(fmt.Sprintf("Error listing accounts: %v", err))
	}
	return accounts, nil
}

func (s *portfolioService) CreateAccount(ctx context.Context, account *models.InvestmentAccount) error {
	if account.AccountName == "" || account.Institution == "" {
		return utils.NewBadRequestError("account_name and institution are required")
	}
	account.IsActive = true
	if err := s.repo.CreateAccount(ctx, account); err != nil {
		if repository.IsUniqueViolation(err) {
			return utils.NewConflictError(fmt.Sprintf("Account '%s' already exists", account.AccountName))
		}
		return utils.NewInternalError(fmt.Sprintf("Error creating account: %v", err))
	}
	return nil
}

func (s *portfolioService) ListBalances(ctx context.Context, accountID int64) ([]models.PortfolioBalance, error) {
	account, err := s.repo.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, utils.NewInternalError(fmt.Sprintf("Error listing balances: %v", err))
	}
	if account == nil {
		return nil, utils.NewNotFoundError(fmt.Sprintf("Account %d not found", accountID))
	}

	balances, err := s.repo.ListBalances(ctx, accountID)
	if err != nil {
		return nil, utils.NewInternalError(fmt.Sprintf("Error listing balances: %v", err))
	}
	return balances, nil
}

func (s *portfolioService) AddManualBalance(ctx context.Context, req *models.ManualBalanceRequest, forceOverride bool) (*SaveResult, *BalanceConflict, error) {
	balanceDate, err := time.Parse("2006-01-02", req.BalanceDate)
	if err != nil {
		return nil, nil, utils.NewBadRequestError(fmt.Sprintf("Invalid balance date: %s", req.BalanceDate))
	}
	balanceAmount, err := decimal.NewFromString(req.BalanceAmount)
	if err != nil {
		return nil, nil, utils.NewBadRequestError(fmt.Sprintf("Invalid balance amount: %s", req.BalanceAmount))
	}

	account, err := s.repo.GetAccountByID(ctx, req.AccountID)
	if err != nil {
		return nil, nil, utils.NewInternalError(fmt.Sprintf("Error adding manual balance: %v", err))
	}
	if account == nil {
		return nil, nil, utils.NewNotFoundError(fmt.Sprintf("Account %d not found", req.AccountID))
	}

	existing, err := s.repo.BalanceExists(ctx, req.AccountID, balanceDate)
	if err != nil {
		return nil, nil, utils.NewInternalError(fmt.Sprintf("Error adding manual balance: %v", err))
	}

	if existing != nil && !forceOverride {
		return nil, &BalanceConflict{
			HasConflict: true,
			ExistingBalance: map[string]any{
				"id":             existing.ID,
				"balance_amount": existing.BalanceAmount.InexactFloat64(),
				"data_source":    string(existing.DataSource),
				"notes":          existing.Notes,
				"created_at":     existing.CreatedAt.Format(time.RFC3339),
			},
			ConflictType: string(existing.DataSource),
			Message: fmt.Sprintf("Balance already exists for %s on %s. Existing balance: $%s (%s)",
				account.AccountName, balanceDate.Format("2006-01-02"),
				existing.BalanceAmount.StringFixed(2), existing.DataSource),
		}, nil
	}

	balance := &models.PortfolioBalance{
		AccountID:       req.AccountID,
		BalanceDate:     balanceDate,
		BalanceAmount:   balanceAmount,
		DataSource:      models.DataSourceManual,
		ConfidenceScore: 1.0,
		Notes:           req.Notes,
	}
	if err := s.repo.UpsertBalance(ctx, balance); err != nil {
		return nil, nil, utils.NewInternalError(fmt.Sprintf("Error adding manual balance: %v", err))
	}

	action := "added"
	if existing != nil {
		action = "updated"
	}
	return &SaveResult{
		Success:     true,
		Balance:     balance,
		AccountName: account.AccountName,
		Message:     fmt.Sprintf("Successfully %s balance for %s", action, account.AccountName),
	}, nil, nil
}

func (s *portfolioService) ListBankBalances(ctx context.Context) ([]models.BankBalance, error) {
	balances, err := s.repo.ListBankBalances(ctx, bankAccountName)
	if err != nil {
		return nil, utils.NewInternalError(fmt.Sprintf("Error listing bank balances: %v", err))
	}
	return balances, nil
}
