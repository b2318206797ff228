package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/avelacruz/fintrack-api/internal/models"
)

type Repository interface {
	CreateAccount(ctx context.Context, account *models.InvestmentAccount) error
	GetAllAccounts(ctx context.Context) ([]models.InvestmentAccount, error)
	GetAccountByID(ctx context.Context, id int64) (*models.InvestmentAccount, error)

	SaveBalance(ctx context.Context, balance *models.PortfolioBalance) error
	UpsertBalance(ctx context.Context, balance *models.PortfolioBalance) error
	BalancesForMonth(ctx context.Context, accountID int64, year int, month time.Month) ([]models.PortfolioBalance, error)
	BalanceExists(ctx context.Context, accountID int64, balanceDate time.Time) (*models.PortfolioBalance, error)
	ListBalances(ctx context.Context, accountID int64) ([]models.PortfolioBalance, error)

	SaveBankBalance(ctx context.Context, balance *models.BankBalance, allowUpdate bool) error
	BankBalanceForMonth(ctx context.Context, accountName, statementMonth string) (*models.BankBalance, error)
	ListBankBalances(ctx context.Context, accountName string) ([]models.BankBalance, error)

	CreateUpload(ctx context.Context, upload *models.StatementUpload) error
	GetUpload(ctx context.Context, id int64) (*models.StatementUpload, error)
	UploadByFilename(ctx context.Context, filename string) (*models.StatementUpload, error)
	UpdateUpload(ctx context.Context, upload *models.StatementUpload) error
	SetUploadStatus(ctx context.Context, id int64, status models.ProcessingStatus, processingError *string) error
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// IsUniqueViolation reports whether an error came from a UNIQUE constraint.
// The constraint is the last line of defense behind the duplicate detector;
// callers translate this into a duplicate outcome rather than a 500.
func IsUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (r *repository) CreateAccount(ctx context.Context, account *models.InvestmentAccount) error {
	query := `
		INSERT INTO investment_accounts (account_name, institution, account_type, is_active, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now()
	}
	res, err := r.db.ExecContext(ctx, query,
		account.AccountName,
		account.Institution,
		account.AccountType,
		account.IsActive,
		account.CreatedAt,
	)
	if err != nil {
		return err
	}
	account.ID, err = res.LastInsertId()
	return err
}

func (r *repository) GetAllAccounts(ctx context.Context) ([]models.InvestmentAccount, error) {
	query := `
		SELECT id, account_name, institution, account_type, is_active, created_at
		FROM investment_accounts
		WHERE is_active = 1
		ORDER BY account_name
	`

	var accounts []models.InvestmentAccount
	if err := r.db.SelectContext(ctx, &accounts, query); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *repository) GetAccountByID(ctx context.Context, id int64) (*models.InvestmentAccount, error) {
	query := `
		SELECT id, account_name, institution, account_type, is_active, created_at
		FROM investment_accounts
		WHERE id = ?
	`

	var account models.InvestmentAccount
	err := r.db.GetContext(ctx, &account, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) SaveBalance(ctx context.Context, balance *models.PortfolioBalance) error {
	query := `
		INSERT INTO portfolio_balances
			(account_id, balance_date, balance_amount, data_source, confidence_score, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	if balance.CreatedAt.IsZero() {
		balance.CreatedAt = time.Now()
	}
	res, err := r.db.ExecContext(ctx, query,
		balance.AccountID,
		balance.BalanceDate,
		balance.BalanceAmount.String(),
		balance.DataSource,
		balance.ConfidenceScore,
		balance.Notes,
		balance.CreatedAt,
	)
	if err != nil {
		return err
	}
	balance.ID, err = res.LastInsertId()
	return err
}

func (r *repository) UpsertBalance(ctx context.Context, balance *models.PortfolioBalance) error {
	query := `
		INSERT INTO portfolio_balances
			(account_id, balance_date, balance_amount, data_source, confidence_score, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (account_id, balance_date) DO UPDATE SET
			balance_amount = excluded.balance_amount,
			data_source = excluded.data_source,
			confidence_score = excluded.confidence_score,
			notes = excluded.notes
	`

	if balance.CreatedAt.IsZero() {
		balance.CreatedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, query,
		balance.AccountID,
		balance.BalanceDate,
		balance.BalanceAmount.String(),
		balance.DataSource,
		balance.ConfidenceScore,
		balance.Notes,
		balance.CreatedAt,
	)
	return err
}

func (r *repository) BalancesForMonth(ctx context.Context, accountID int64, year int, month time.Month) ([]models.PortfolioBalance, error) {
	query := `
		SELECT id, account_id, balance_date, balance_amount, data_source, confidence_score, notes, created_at
		FROM portfolio_balances
		WHERE account_id = ?
		  AND strftime('%Y', balance_date) = ?
		  AND strftime('%m', balance_date) = ?
		ORDER BY balance_date
	`

	monthStart := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	var balances []models.PortfolioBalance
	err := r.db.SelectContext(ctx, &balances, query,
		accountID,
		monthStart.Format("2006"),
		monthStart.Format("01"),
	)
	if err != nil {
		return nil, err
	}
	return balances, nil
}

func (r *repository) BalanceExists(ctx context.Context, accountID int64, balanceDate time.Time) (*models.PortfolioBalance, error) {
	query := `
		SELECT id, account_id, balance_date, balance_amount, data_source, confidence_score, notes, created_at
		FROM portfolio_balances
		WHERE account_id = ? AND balance_date = ?
	`

	var balance models.PortfolioBalance
	err := r.db.GetContext(ctx, &balance, query, accountID, balanceDate)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &balance, nil
}

func (r *repository) ListBalances(ctx context.Context, accountID int64) ([]models.PortfolioBalance, error) {
	query := `
		SELECT id, account_id, balance_date, balance_amount, data_source, confidence_score, notes, created_at
		FROM portfolio_balances
		WHERE account_id = ?
		ORDER BY balance_date DESC
	`

	var balances []models.PortfolioBalance
	if err := r.db.SelectContext(ctx, &balances, query, accountID); err != nil {
		return nil, err
	}
	return balances, nil
}

func (r *repository) SaveBankBalance(ctx context.Context, balance *models.BankBalance, allowUpdate bool) error {
	if balance.CreatedAt.IsZero() {
		balance.CreatedAt = time.Now()
	}

	var deposits, withdrawals *string
	if balance.DepositsAdditions != nil {
		s := balance.DepositsAdditions.String()
		deposits = &s
	}
	if balance.WithdrawalsSubtractions != nil {
		s := balance.WithdrawalsSubtractions.String()
		withdrawals = &s
	}

	if allowUpdate {
		query := `
			INSERT INTO bank_balances
				(account_name, statement_month, beginning_balance, ending_balance,
				 deposits_additions, withdrawals_subtractions, statement_date,
				 data_source, confidence_score, notes, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (account_name, statement_month) DO UPDATE SET
				beginning_balance = excluded.beginning_balance,
				ending_balance = excluded.ending_balance,
				deposits_additions = excluded.deposits_additions,
				withdrawals_subtractions = excluded.withdrawals_subtractions,
				statement_date = excluded.statement_date,
				data_source = excluded.data_source,
				confidence_score = excluded.confidence_score,
				notes = excluded.notes
		`
		_, err := r.db.ExecContext(ctx, query,
			balance.AccountName, balance.StatementMonth,
			balance.BeginningBalance.String(), balance.EndingBalance.String(),
			deposits, withdrawals, balance.StatementDate,
			balance.DataSource, balance.ConfidenceScore, balance.Notes, balance.CreatedAt,
		)
		return err
	}

	query := `
		INSERT INTO bank_balances
			(account_name, statement_month, beginning_balance, ending_balance,
			 deposits_additions, withdrawals_subtractions, statement_date,
			 data_source, confidence_score, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	res, err := r.db.ExecContext(ctx, query,
		balance.AccountName, balance.StatementMonth,
		balance.BeginningBalance.String(), balance.EndingBalance.String(),
		deposits, withdrawals, balance.StatementDate,
		balance.DataSource, balance.ConfidenceScore, balance.Notes, balance.CreatedAt,
	)
	if err != nil {
		return err
	}
	balance.ID, err = res.LastInsertId()
	return err
}

func (r *repository) BankBalanceForMonth(ctx context.Context, accountName, statementMonth string) (*models.BankBalance, error) {
	query := `
		SELECT id, account_name, statement_month, beginning_balance, ending_balance,
		       deposits_additions, withdrawals_subtractions, statement_date,
		       data_source, confidence_score, notes, created_at
		FROM bank_balances
		WHERE account_name = ? AND statement_month = ?
	`

	var balance models.BankBalance
	err := r.db.GetContext(ctx, &balance, query, accountName, statementMonth)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &balance, nil
}

func (r *repository) ListBankBalances(ctx context.Context, accountName string) ([]models.BankBalance, error) {
	query := `
		SELECT id, account_name, statement_month, beginning_balance, ending_balance,
		       deposits_additions, withdrawals_subtractions, statement_date,
		       data_source, confidence_score, notes, created_at
		FROM bank_balances
		WHERE account_name = ?
		ORDER BY statement_month DESC
	`

	var balances []models.BankBalance
	if err := r.db.SelectContext(ctx, &balances, query, accountName); err != nil {
		return nil, err
	}
	return balances, nil
}

func (r *repository) CreateUpload(ctx context.Context, upload *models.StatementUpload) error {
	query := `
		INSERT INTO statement_uploads
			(original_filename, file_path, account_id, statement_date, relevant_page,
			 page_pdf_path, total_pages, extracted_balance, confidence_score,
			 requires_review, reviewed_by_user, processing_status, processing_error,
			 uploaded_at, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	if upload.UploadedAt.IsZero() {
		upload.UploadedAt = time.Now()
	}
	res, err := r.db.ExecContext(ctx, query,
		upload.OriginalFilename,
		upload.FilePath,
		upload.AccountID,
		upload.StatementDate,
		upload.RelevantPage,
		upload.PagePDFPath,
		upload.TotalPages,
		extractedBalanceString(upload),
		upload.ConfidenceScore,
		upload.RequiresReview,
		upload.ReviewedByUser,
		upload.ProcessingStatus,
		upload.ProcessingError,
		upload.UploadedAt,
		upload.ProcessedAt,
	)
	if err != nil {
		return err
	}
	upload.ID, err = res.LastInsertId()
	return err
}

func (r *repository) GetUpload(ctx context.Context, id int64) (*models.StatementUpload, error) {
	query := uploadSelect + ` WHERE id = ?`

	var upload models.StatementUpload
	err := r.db.GetContext(ctx, &upload, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &upload, nil
}

func (r *repository) UploadByFilename(ctx context.Context, filename string) (*models.StatementUpload, error) {
	query := uploadSelect + ` WHERE original_filename = ?`

	var upload models.StatementUpload
	err := r.db.GetContext(ctx, &upload, query, filename)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &upload, nil
}

const uploadSelect = `
	SELECT id, original_filename, file_path, account_id, statement_date, relevant_page,
	       page_pdf_path, total_pages, extracted_balance, confidence_score,
	       requires_review, reviewed_by_user, processing_status, processing_error,
	       uploaded_at, processed_at
	FROM statement_uploads`

func (r *repository) UpdateUpload(ctx context.Context, upload *models.StatementUpload) error {
	query := `
		UPDATE statement_uploads
		SET account_id = ?, statement_date = ?, relevant_page = ?, page_pdf_path = ?,
		    total_pages = ?, extracted_balance = ?, confidence_score = ?,
		    requires_review = ?, reviewed_by_user = ?, processing_status = ?,
		    processing_error = ?, processed_at = ?
		WHERE id = ?
	`

	_, err := r.db.ExecContext(ctx, query,
		upload.AccountID,
		upload.StatementDate,
		upload.RelevantPage,
		upload.PagePDFPath,
		upload.TotalPages,
		extractedBalanceString(upload),
		upload.ConfidenceScore,
		upload.RequiresReview,
		upload.ReviewedByUser,
		upload.ProcessingStatus,
		upload.ProcessingError,
		upload.ProcessedAt,
		upload.ID,
	)
	return err
}

func (r *repository) SetUploadStatus(ctx context.Context, id int64, status models.ProcessingStatus, processingError *string) error {
	query := `
		UPDATE statement_uploads
		SET processing_status = ?, processing_error = ?, processed_at = ?
		WHERE id = ?
	`

	now := time.Now()
	_, err := r.db.ExecContext(ctx, query, status, processingError, now, id)
	return err
}

func extractedBalanceString(upload *models.StatementUpload) *string {
	if upload.ExtractedBalance == nil {
		return nil
	}
	s := upload.ExtractedBalance.String()
	return &s
}
