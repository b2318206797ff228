package dedup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/avelacruz/fintrack-api/internal/models"
	"github.com/avelacruz/fintrack-api/internal/utils"
)

type fakeBalances struct {
	records []models.PortfolioBalance
	err     error
}

func (f *fakeBalances) BalancesForMonth(ctx context.Context, accountID int64, year int, month time.Month) ([]models.PortfolioBalance, error) {
	return f.records, f.err
}

type fakeBank struct {
	record *models.BankBalance
	err    error
}

func (f *fakeBank) BankBalanceForMonth(ctx context.Context, accountName, statementMonth string) (*models.BankBalance, error) {
	return f.record, f.err
}

type fakeUploads struct {
	record *models.StatementUpload
	err    error
}

func (f *fakeUploads) UploadByFilename(ctx context.Context, filename string) (*models.StatementUpload, error) {
	return f.record, f.err
}

func testDetector(balances *fakeBalances, bank *fakeBank, uploads *fakeUploads) *Detector {
	if balances == nil {
		balances = &fakeBalances{}
	}
	if bank == nil {
		bank = &fakeBank{}
	}
	if uploads == nil {
		uploads = &fakeUploads{}
	}
	return NewDetector(balances, bank, uploads, utils.NewLogger("error"))
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func storedBalance(id int64, balanceDate time.Time, amount string) models.PortfolioBalance {
	return models.PortfolioBalance{
		ID:            id,
		AccountID:     1,
		BalanceDate:   balanceDate,
		BalanceAmount: decimal.RequireFromString(amount),
		DataSource:    models.DataSourcePDFStatement,
		CreatedAt:     balanceDate,
	}
}

func TestCheckFilenameUnique(t *testing.T) {
	d := testDetector(nil, nil, &fakeUploads{})

	result := d.CheckFilename(context.Background(), "may_statement.pdf")

	assert.False(t, result.IsDuplicate)
	assert.Equal(t, "none", result.ConflictType)
	assert.Equal(t, RecommendSafeToSave, result.Recommendation)
}

func TestCheckFilenameDuplicate(t *testing.T) {
	uploaded := date(2025, time.May, 2)
	d := testDetector(nil, nil, &fakeUploads{record: &models.StatementUpload{
		ID:               42,
		OriginalFilename: "may_statement.pdf",
		ProcessingStatus: models.StatusSaved,
		UploadedAt:       uploaded,
	}})

	result := d.CheckFilename(context.Background(), "may_statement.pdf")

	assert.True(t, result.IsDuplicate)
	assert.Equal(t, "filename_duplicate", result.ConflictType)
	assert.Equal(t, RecommendWarnUser, result.Recommendation)
	assert.Contains(t, result.Message, "may_statement.pdf")
	assert.Contains(t, result.Message, "2025-05-02")
	assert.Equal(t, int64(42), result.ExistingBalance["upload_id"])
	assert.Equal(t, "saved", result.ExistingBalance["processing_status"])
}

func TestCheckFilenameStoreError(t *testing.T) {
	d := testDetector(nil, nil, &fakeUploads{err: errors.New("db locked")})

	result := d.CheckFilename(context.Background(), "may_statement.pdf")

	assert.False(t, result.IsDuplicate)
	assert.Equal(t, "error", result.ConflictType)
	assert.Equal(t, RecommendManualReview, result.Recommendation)
}

func TestCheckMonthlyNoRecords(t *testing.T) {
	d := testDetector(&fakeBalances{}, nil, nil)

	result := d.CheckMonthly(context.Background(), 1, date(2025, time.January, 31), decimal.RequireFromString("50000"), 0)

	assert.False(t, result.IsDuplicate)
	assert.Equal(t, RecommendSafeToSave, result.Recommendation)
}

func TestCheckMonthlyExactDuplicate(t *testing.T) {
	d := testDetector(&fakeBalances{records: []models.PortfolioBalance{
		storedBalance(1, date(2025, time.January, 31), "50000.00"),
	}}, nil, nil)

	result := d.CheckMonthly(context.Background(), 1, date(2025, time.January, 31), decimal.RequireFromString("50000.00"), 0)

	assert.True(t, result.IsDuplicate)
	assert.Equal(t, "exact_duplicate", result.ConflictType)
	assert.Equal(t, RecommendBlockSave, result.Recommendation)
	assert.InDelta(t, 100.0, result.SimilarityPercentage, 0.001)
}

func TestCheckMonthlySameDateDifferentAmount(t *testing.T) {
	d := testDetector(&fakeBalances{records: []models.PortfolioBalance{
		storedBalance(1, date(2025, time.January, 31), "50000.00"),
	}}, nil, nil)

	result := d.CheckMonthly(context.Background(), 1, date(2025, time.January, 31), decimal.RequireFromString("47500.00"), 0)

	assert.True(t, result.IsDuplicate)
	assert.Equal(t, "same_date_different_amount", result.ConflictType)
	assert.Equal(t, RecommendRequireConfirmation, result.Recommendation)
	assert.Contains(t, result.Message, "$50,000.00")
	assert.Contains(t, result.Message, "$47,500.00")
}

func TestCheckMonthlySimilarBalanceAcrossDates(t *testing.T) {
	// A one-dollar drift between two statements in the same month is almost
	// certainly the same snapshot reported twice.
	d := testDetector(&fakeBalances{records: []models.PortfolioBalance{
		storedBalance(1, date(2025, time.January, 15), "50000.00"),
	}}, nil, nil)

	result := d.CheckMonthly(context.Background(), 1, date(2025, time.January, 28), decimal.RequireFromString("50001.00"), 0)

	assert.True(t, result.IsDuplicate)
	assert.Equal(t, "similar_monthly_balance", result.ConflictType)
	assert.Equal(t, RecommendWarnUser, result.Recommendation)
	assert.InDelta(t, 99.998, result.SimilarityPercentage, 0.001)
	assert.Contains(t, result.Message, "2025-01-15")
}

func TestCheckMonthlyUpdate(t *testing.T) {
	d := testDetector(&fakeBalances{records: []models.PortfolioBalance{
		storedBalance(1, date(2025, time.January, 15), "50000.00"),
	}}, nil, nil)

	result := d.CheckMonthly(context.Background(), 1, date(2025, time.January, 31), decimal.RequireFromString("51000.00"), 0)

	assert.True(t, result.IsDuplicate)
	assert.Equal(t, "monthly_update", result.ConflictType)
	assert.Equal(t, RecommendSuggestUpdate, result.Recommendation)
	assert.InDelta(t, 98.0, result.SimilarityPercentage, 0.001)
	assert.Contains(t, result.Message, "01/15 to 01/31")
}

func TestCheckMonthlyLargeDifference(t *testing.T) {
	d := testDetector(&fakeBalances{records: []models.PortfolioBalance{
		storedBalance(1, date(2025, time.January, 15), "50000.00"),
	}}, nil, nil)

	result := d.CheckMonthly(context.Background(), 1, date(2025, time.January, 31), decimal.RequireFromString("45000.00"), 0)

	assert.True(t, result.IsDuplicate)
	assert.Equal(t, "monthly_large_difference", result.ConflictType)
	assert.Equal(t, RecommendManualReview, result.Recommendation)
	assert.InDelta(t, 90.0, result.SimilarityPercentage, 0.001)
	assert.Contains(t, result.Message, "Previous: $50,000.00 (01/15)")
	assert.Contains(t, result.Message, "New: $45,000.00 (01/31)")
}

func TestCheckMonthlyFirstConflictWins(t *testing.T) {
	d := testDetector(&fakeBalances{records: []models.PortfolioBalance{
		storedBalance(1, date(2025, time.January, 15), "50000.00"),
		storedBalance(2, date(2025, time.January, 20), "10000.00"),
	}}, nil, nil)

	result := d.CheckMonthly(context.Background(), 1, date(2025, time.January, 28), decimal.RequireFromString("50001.00"), 0)

	assert.Equal(t, "similar_monthly_balance", result.ConflictType)
	assert.Equal(t, int64(1), result.ExistingBalance["id"])
}

func TestCheckMonthlyExcludesOwnRecord(t *testing.T) {
	d := testDetector(&fakeBalances{records: []models.PortfolioBalance{
		storedBalance(7, date(2025, time.January, 31), "50000.00"),
	}}, nil, nil)

	result := d.CheckMonthly(context.Background(), 1, date(2025, time.January, 31), decimal.RequireFromString("50000.00"), 7)

	assert.False(t, result.IsDuplicate)
	assert.Equal(t, RecommendSafeToSave, result.Recommendation)
}

func TestCheckMonthlyZeroExistingBalance(t *testing.T) {
	d := testDetector(&fakeBalances{records: []models.PortfolioBalance{
		storedBalance(1, date(2025, time.January, 15), "0"),
	}}, nil, nil)

	result := d.CheckMonthly(context.Background(), 1, date(2025, time.January, 31), decimal.RequireFromString("500.00"), 0)

	assert.Equal(t, "monthly_large_difference", result.ConflictType)
	assert.InDelta(t, 0.0, result.SimilarityPercentage, 0.001)
}

func TestCheckMonthlyBothZeroSameDate(t *testing.T) {
	d := testDetector(&fakeBalances{records: []models.PortfolioBalance{
		storedBalance(1, date(2025, time.January, 31), "0"),
	}}, nil, nil)

	result := d.CheckMonthly(context.Background(), 1, date(2025, time.January, 31), decimal.Zero, 0)

	assert.Equal(t, "exact_duplicate", result.ConflictType)
	assert.Equal(t, RecommendBlockSave, result.Recommendation)
}

func TestCheckMonthlyStoreError(t *testing.T) {
	d := testDetector(&fakeBalances{err: errors.New("db locked")}, nil, nil)

	result := d.CheckMonthly(context.Background(), 1, date(2025, time.January, 31), decimal.RequireFromString("50000"), 0)

	assert.False(t, result.IsDuplicate)
	assert.Equal(t, "error", result.ConflictType)
	assert.Equal(t, RecommendManualReview, result.Recommendation)
	assert.Contains(t, result.Message, "db locked")
}

func storedBankBalance(id int64, statementDate time.Time, ending string) *models.BankBalance {
	return &models.BankBalance{
		ID:             id,
		AccountName:    "Wells Fargo Checking",
		StatementMonth: models.StatementMonth(statementDate),
		EndingBalance:  decimal.RequireFromString(ending),
		StatementDate:  statementDate,
		DataSource:     models.DataSourcePDFStatement,
	}
}

func TestCheckBankMonthlyNoRecord(t *testing.T) {
	d := testDetector(nil, &fakeBank{}, nil)

	result := d.CheckBankMonthly(context.Background(), "Wells Fargo Checking", "2025-05",
		decimal.RequireFromString("8000.00"), date(2025, time.May, 31), 0)

	assert.False(t, result.IsDuplicate)
	assert.Equal(t, "no_conflict", result.ConflictType)
}

func TestCheckBankMonthlyIdenticalWithinPenny(t *testing.T) {
	d := testDetector(nil, &fakeBank{record: storedBankBalance(1, date(2025, time.May, 31), "8000.00")}, nil)

	result := d.CheckBankMonthly(context.Background(), "Wells Fargo Checking", "2025-05",
		decimal.RequireFromString("8000.01"), date(2025, time.May, 31), 0)

	assert.True(t, result.IsDuplicate)
	assert.Equal(t, "identical_bank_balance", result.ConflictType)
	assert.Equal(t, RecommendAutoSkip, result.Recommendation)
	assert.InDelta(t, 100.0, result.SimilarityPercentage, 0.001)
}

func TestCheckBankMonthlySameDateDifferentAmount(t *testing.T) {
	d := testDetector(nil, &fakeBank{record: storedBankBalance(1, date(2025, time.May, 31), "8000.00")}, nil)

	result := d.CheckBankMonthly(context.Background(), "Wells Fargo Checking", "2025-05",
		decimal.RequireFromString("8100.00"), date(2025, time.May, 31), 0)

	assert.True(t, result.IsDuplicate)
	assert.Equal(t, "same_date_different_amount", result.ConflictType)
	assert.Equal(t, RecommendManualReview, result.Recommendation)
	assert.Contains(t, result.Message, "Existing: $8,000.00, New: $8,100.00")
}

func TestCheckBankMonthlySimilarAcrossDates(t *testing.T) {
	d := testDetector(nil, &fakeBank{record: storedBankBalance(1, date(2025, time.May, 15), "8000.00")}, nil)

	result := d.CheckBankMonthly(context.Background(), "Wells Fargo Checking", "2025-05",
		decimal.RequireFromString("8040.00"), date(2025, time.May, 31), 0)

	assert.True(t, result.IsDuplicate)
	assert.Equal(t, "similar_bank_balance", result.ConflictType)
	assert.Equal(t, RecommendSuggestUpdate, result.Recommendation)
	assert.InDelta(t, 99.5, result.SimilarityPercentage, 0.001)
}

func TestCheckBankMonthlyUpdate(t *testing.T) {
	d := testDetector(nil, &fakeBank{record: storedBankBalance(1, date(2025, time.May, 15), "8000.00")}, nil)

	result := d.CheckBankMonthly(context.Background(), "Wells Fargo Checking", "2025-05",
		decimal.RequireFromString("8200.00"), date(2025, time.May, 31), 0)

	assert.True(t, result.IsDuplicate)
	assert.Equal(t, "bank_monthly_update", result.ConflictType)
	assert.Equal(t, RecommendManualReview, result.Recommendation)
	assert.InDelta(t, 97.5, result.SimilarityPercentage, 0.001)
	assert.Contains(t, result.Message, "05/15 to 05/31")
}

func TestCheckBankMonthlyLargeDifference(t *testing.T) {
	d := testDetector(nil, &fakeBank{record: storedBankBalance(1, date(2025, time.May, 15), "8000.00")}, nil)

	result := d.CheckBankMonthly(context.Background(), "Wells Fargo Checking", "2025-05",
		decimal.RequireFromString("5000.00"), date(2025, time.May, 31), 0)

	assert.True(t, result.IsDuplicate)
	assert.Equal(t, "bank_large_difference", result.ConflictType)
	assert.Equal(t, RecommendManualReview, result.Recommendation)
}

func TestCheckBankMonthlyExcludesOwnRecord(t *testing.T) {
	d := testDetector(nil, &fakeBank{record: storedBankBalance(9, date(2025, time.May, 31), "8000.00")}, nil)

	result := d.CheckBankMonthly(context.Background(), "Wells Fargo Checking", "2025-05",
		decimal.RequireFromString("8000.00"), date(2025, time.May, 31), 9)

	assert.False(t, result.IsDuplicate)
	assert.Equal(t, "no_conflict", result.ConflictType)
}

func TestCheckBankMonthlyStoreError(t *testing.T) {
	d := testDetector(nil, &fakeBank{err: errors.New("db locked")}, nil)

	result := d.CheckBankMonthly(context.Background(), "Wells Fargo Checking", "2025-05",
		decimal.RequireFromString("8000.00"), date(2025, time.May, 31), 0)

	assert.False(t, result.IsDuplicate)
	assert.Equal(t, "error", result.ConflictType)
	assert.Equal(t, RecommendManualReview, result.Recommendation)
}

func TestSimilarityOf(t *testing.T) {
	tests := []struct {
		existing string
		new      string
		want     float64
	}{
		{"50000", "50000", 1.0},
		{"50000", "49500", 0.99},
		{"50000", "45000", 0.90},
		{"0", "0", 1.0},
		{"0", "100", 0.0},
		{"100", "300", -1.0},
	}
	for _, tt := range tests {
		got := similarityOf(decimal.RequireFromString(tt.existing), decimal.RequireFromString(tt.new))
		assert.InDelta(t, tt.want, got, 0.0001, "similarityOf(%s, %s)", tt.existing, tt.new)
	}
}

func TestMoneyFormatting(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"0", "0.00"},
		{"999.5", "999.50"},
		{"1000", "1,000.00"},
		{"1234567.891", "1,234,567.89"},
		{"-50000", "-50,000.00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, money(decimal.RequireFromString(tt.input)), "money(%s)", tt.input)
	}
}
