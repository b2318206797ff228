package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/avelacruz/fintrack-api/internal/models"
)

// testRepo opens an in-memory database with the real schema. A single
// connection keeps the memory database alive for the whole test.
func testRepo(t *testing.T) Repository {
	t.Helper()

	db, err := sqlx.Connect("sqlite", "file::memory:?_pragma=foreign_keys(1)&_time_format=sqlite")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	schema, err := os.ReadFile(filepath.Join("..", "db", "migrations", "000001_init.up.sql"))
	require.NoError(t, err)
	_, err = db.Exec(string(schema))
	require.NoError(t, err)

	return NewRepository(db)
}

func createTestAccount(t *testing.T, repo Repository, name string) *models.InvestmentAccount {
	t.Helper()
	account := &models.InvestmentAccount{
		AccountName: name,
		Institution: "schwab",
		AccountType: models.AccountTypeBrokerage,
		IsActive:    true,
	}
	require.NoError(t, repo.CreateAccount(context.Background(), account))
	require.NotZero(t, account.ID)
	return account
}

func TestCreateAndListAccounts(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	createTestAccount(t, repo, "Schwab Brokerage")
	createTestAccount(t, repo, "Acorns Invest")
	inactive := &models.InvestmentAccount{
		AccountName: "Closed Account",
		Institution: "robinhood",
		AccountType: models.AccountTypeBrokerage,
		IsActive:    false,
	}
	require.NoError(t, repo.CreateAccount(ctx, inactive))

	accounts, err := repo.GetAllAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "Acorns Invest", accounts[0].AccountName)
	assert.Equal(t, "Schwab Brokerage", accounts[1].AccountName)
}

func TestCreateAccountDuplicateName(t *testing.T) {
	repo := testRepo(t)
	createTestAccount(t, repo, "Schwab Brokerage")

	err := repo.CreateAccount(context.Background(), &models.InvestmentAccount{
		AccountName: "Schwab Brokerage",
		Institution: "schwab",
		AccountType: models.AccountTypeBrokerage,
		IsActive:    true,
	})

	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
}

func TestGetAccountByID(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	created := createTestAccount(t, repo, "Schwab Brokerage")

	account, err := repo.GetAccountByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Equal(t, "Schwab Brokerage", account.AccountName)
	assert.True(t, account.IsActive)

	missing, err := repo.GetAccountByID(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSaveBalanceRejectsSameDate(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	account := createTestAccount(t, repo, "Schwab Brokerage")
	balanceDate := time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC)

	first := &models.PortfolioBalance{
		AccountID:       account.ID,
		BalanceDate:     balanceDate,
		BalanceAmount:   decimal.RequireFromString("50000.00"),
		DataSource:      models.DataSourcePDFStatement,
		ConfidenceScore: 0.85,
	}
	require.NoError(t, repo.SaveBalance(ctx, first))
	require.NotZero(t, first.ID)

	second := &models.PortfolioBalance{
		AccountID:     account.ID,
		BalanceDate:   balanceDate,
		BalanceAmount: decimal.RequireFromString("51000.00"),
		DataSource:    models.DataSourceManual,
	}
	err := repo.SaveBalance(ctx, second)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
}

func TestUpsertBalanceUpdatesExisting(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	account := createTestAccount(t, repo, "Schwab Brokerage")
	balanceDate := time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC)

	notes := "Quick save from PDF: may.pdf"
	require.NoError(t, repo.SaveBalance(ctx, &models.PortfolioBalance{
		AccountID:       account.ID,
		BalanceDate:     balanceDate,
		BalanceAmount:   decimal.RequireFromString("50000.00"),
		DataSource:      models.DataSourcePDFStatement,
		ConfidenceScore: 0.85,
	}))
	require.NoError(t, repo.UpsertBalance(ctx, &models.PortfolioBalance{
		AccountID:       account.ID,
		BalanceDate:     balanceDate,
		BalanceAmount:   decimal.RequireFromString("52000.00"),
		DataSource:      models.DataSourceManual,
		ConfidenceScore: 1.0,
		Notes:           &notes,
	}))

	stored, err := repo.BalanceExists(ctx, account.ID, balanceDate)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.BalanceAmount.Equal(decimal.RequireFromString("52000.00")))
	assert.Equal(t, models.DataSourceManual, stored.DataSource)
	require.NotNil(t, stored.Notes)
	assert.Equal(t, notes, *stored.Notes)

	balances, err := repo.ListBalances(ctx, account.ID)
	require.NoError(t, err)
	assert.Len(t, balances, 1)
}

func TestBalancesForMonthFiltering(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	account := createTestAccount(t, repo, "Schwab Brokerage")

	dates := []time.Time{
		time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
	}
	for _, d := range dates {
		require.NoError(t, repo.SaveBalance(ctx, &models.PortfolioBalance{
			AccountID:     account.ID,
			BalanceDate:   d,
			BalanceAmount: decimal.RequireFromString("50000.00"),
			DataSource:    models.DataSourcePDFStatement,
		}))
	}

	january, err := repo.BalancesForMonth(ctx, account.ID, 2025, time.January)
	require.NoError(t, err)
	require.Len(t, january, 2)
	assert.Equal(t, "2025-01-15", january[0].BalanceDate.Format("2006-01-02"))
	assert.Equal(t, "2025-01-31", january[1].BalanceDate.Format("2006-01-02"))

	march, err := repo.BalancesForMonth(ctx, account.ID, 2025, time.March)
	require.NoError(t, err)
	assert.Empty(t, march)
}

func TestBalanceExistsMissing(t *testing.T) {
	repo := testRepo(t)
	account := createTestAccount(t, repo, "Schwab Brokerage")

	stored, err := repo.BalanceExists(context.Background(), account.ID, time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestSaveBankBalanceLifecycle(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	deposits := decimal.RequireFromString("2345.10")
	withdrawals := decimal.RequireFromString("1200.00")
	balance := &models.BankBalance{
		AccountName:             "Wells Fargo Checking",
		StatementMonth:          "2025-05",
		BeginningBalance:        decimal.RequireFromString("7000.00"),
		EndingBalance:           decimal.RequireFromString("8000.00"),
		DepositsAdditions:       &deposits,
		WithdrawalsSubtractions: &withdrawals,
		StatementDate:           time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC),
		DataSource:              models.DataSourcePDFStatement,
		ConfidenceScore:         0.9,
	}
	require.NoError(t, repo.SaveBankBalance(ctx, balance, false))
	require.NotZero(t, balance.ID)

	// Second statement for the same month is rejected unless updating.
	dup := &models.BankBalance{
		AccountName:      "Wells Fargo Checking",
		StatementMonth:   "2025-05",
		BeginningBalance: decimal.RequireFromString("7000.00"),
		EndingBalance:    decimal.RequireFromString("8100.00"),
		StatementDate:    time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC),
		DataSource:       models.DataSourcePDFStatement,
	}
	err := repo.SaveBankBalance(ctx, dup, false)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))

	require.NoError(t, repo.SaveBankBalance(ctx, dup, true))

	stored, err := repo.BankBalanceForMonth(ctx, "Wells Fargo Checking", "2025-05")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.EndingBalance.Equal(decimal.RequireFromString("8100.00")))
	assert.Nil(t, stored.DepositsAdditions)

	missing, err := repo.BankBalanceForMonth(ctx, "Wells Fargo Checking", "2025-06")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestListBankBalancesOrdering(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	for _, month := range []string{"2025-03", "2025-05", "2025-04"} {
		require.NoError(t, repo.SaveBankBalance(ctx, &models.BankBalance{
			AccountName:      "Wells Fargo Checking",
			StatementMonth:   month,
			BeginningBalance: decimal.RequireFromString("7000.00"),
			EndingBalance:    decimal.RequireFromString("8000.00"),
			StatementDate:    time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC),
			DataSource:       models.DataSourcePDFStatement,
		}, false))
	}

	balances, err := repo.ListBankBalances(ctx, "Wells Fargo Checking")
	require.NoError(t, err)
	require.Len(t, balances, 3)
	assert.Equal(t, "2025-05", balances[0].StatementMonth)
	assert.Equal(t, "2025-04", balances[1].StatementMonth)
	assert.Equal(t, "2025-03", balances[2].StatementMonth)
}

func TestUploadLifecycle(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	account := createTestAccount(t, repo, "Schwab Brokerage")

	extracted := decimal.RequireFromString("50000.00")
	upload := &models.StatementUpload{
		OriginalFilename: "may_statement.pdf",
		FilePath:         "/uploads/statements/may_statement.pdf",
		RelevantPage:     2,
		TotalPages:       5,
		ExtractedBalance: &extracted,
		ConfidenceScore:  0.85,
		RequiresReview:   true,
		ProcessingStatus: models.StatusProcessed,
	}
	require.NoError(t, repo.CreateUpload(ctx, upload))
	require.NotZero(t, upload.ID)

	stored, err := repo.GetUpload(ctx, upload.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "may_statement.pdf", stored.OriginalFilename)
	assert.Equal(t, 2, stored.RelevantPage)
	assert.Equal(t, 5, stored.TotalPages)
	require.NotNil(t, stored.ExtractedBalance)
	assert.True(t, stored.ExtractedBalance.Equal(extracted))
	assert.True(t, stored.RequiresReview)
	assert.Nil(t, stored.AccountID)
	assert.Nil(t, stored.ProcessedAt)

	byName, err := repo.UploadByFilename(ctx, "may_statement.pdf")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, upload.ID, byName.ID)

	missing, err := repo.UploadByFilename(ctx, "other.pdf")
	require.NoError(t, err)
	assert.Nil(t, missing)

	// Re-uploading the same filename hits the UNIQUE constraint.
	err = repo.CreateUpload(ctx, &models.StatementUpload{
		OriginalFilename: "may_statement.pdf",
		FilePath:         "/uploads/statements/may_statement_2.pdf",
		RelevantPage:     1,
		TotalPages:       1,
		ProcessingStatus: models.StatusPending,
	})
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))

	statementDate := time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC)
	stored.AccountID = &account.ID
	stored.StatementDate = &statementDate
	stored.ReviewedByUser = true
	stored.ProcessingStatus = models.StatusSaved
	require.NoError(t, repo.UpdateUpload(ctx, stored))

	updated, err := repo.GetUpload(ctx, upload.ID)
	require.NoError(t, err)
	require.NotNil(t, updated)
	require.NotNil(t, updated.AccountID)
	assert.Equal(t, account.ID, *updated.AccountID)
	require.NotNil(t, updated.StatementDate)
	assert.Equal(t, "2025-05-31", updated.StatementDate.Format("2006-01-02"))
	assert.True(t, updated.ReviewedByUser)
	assert.Equal(t, models.StatusSaved, updated.ProcessingStatus)
}

func TestSetUploadStatus(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	upload := &models.StatementUpload{
		OriginalFilename: "june_statement.pdf",
		FilePath:         "/uploads/statements/june_statement.pdf",
		RelevantPage:     1,
		TotalPages:       1,
		ProcessingStatus: models.StatusPending,
	}
	require.NoError(t, repo.CreateUpload(ctx, upload))

	reason := "Could not extract sufficient data from PDF"
	require.NoError(t, repo.SetUploadStatus(ctx, upload.ID, models.StatusFailed, &reason))

	stored, err := repo.GetUpload(ctx, upload.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, models.StatusFailed, stored.ProcessingStatus)
	require.NotNil(t, stored.ProcessingError)
	assert.Equal(t, reason, *stored.ProcessingError)
	assert.NotNil(t, stored.ProcessedAt)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, IsUniqueViolation(nil))
	assert.False(t, IsUniqueViolation(errors.New("database is locked")))
	assert.True(t, IsUniqueViolation(errors.New("constraint failed: UNIQUE constraint failed: statement_uploads.original_filename")))
}
