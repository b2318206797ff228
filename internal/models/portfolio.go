package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountTypeBrokerage AccountType = "brokerage"
	AccountTypeRothIRA   AccountType = "roth_ira"
	AccountType401K      AccountType = "401k"
	AccountTypeCash      AccountType = "cash"
)

type DataSource string

const (
	DataSourceCSVImport    DataSource = "csv_import"
	DataSourceManual       DataSource = "manual"
	DataSourcePDFStatement DataSource = "pdf_statement"
)

type InvestmentAccount struct {
	ID          int64       `json:"id" db:"id"`
	AccountName string      `json:"account_name" db:"account_name"`
	Institution string      `json:"institution" db:"institution"`
	AccountType AccountType `json:"account_type" db:"account_type"`
	IsActive    bool        `json:"is_active" db:"is_active"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
}

// PortfolioBalance is one monthly snapshot of an investment account's value.
// There is at most one authoritative balance per account per calendar month;
// the dedup detector enforces this before any write.
type PortfolioBalance struct {
	ID              int64           `json:"id" db:"id"`
	AccountID       int64           `json:"account_id" db:"account_id"`
	BalanceDate     time.Time       `json:"balance_date" db:"balance_date"`
	BalanceAmount   decimal.Decimal `json:"balance_amount" db:"balance_amount"`
	DataSource      DataSource      `json:"data_source" db:"data_source"`
	ConfidenceScore float64         `json:"confidence_score" db:"confidence_score"`
	Notes           *string         `json:"notes,omitempty" db:"notes"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

// BankBalance is a monthly bank statement snapshot, keyed by account name and
// statement month in YYYY-MM form rather than a numeric account id.
type BankBalance struct {
	ID                      int64            `json:"id" db:"id"`
	AccountName             string           `json:"account_name" db:"account_name"`
	StatementMonth          string           `json:"statement_month" db:"statement_month"`
	BeginningBalance        decimal.Decimal  `json:"beginning_balance" db:"beginning_balance"`
	EndingBalance           decimal.Decimal  `json:"ending_balance" db:"ending_balance"`
	DepositsAdditions       *decimal.Decimal `json:"deposits_additions,omitempty" db:"deposits_additions"`
	WithdrawalsSubtractions *decimal.Decimal `json:"withdrawals_subtractions,omitempty" db:"withdrawals_subtractions"`
	StatementDate           time.Time        `json:"statement_date" db:"statement_date"`
	DataSource              DataSource       `json:"data_source" db:"data_source"`
	ConfidenceScore         float64          `json:"confidence_score" db:"confidence_score"`
	Notes                   *string          `json:"notes,omitempty" db:"notes"`
	CreatedAt               time.Time        `json:"created_at" db:"created_at"`
}

// StatementMonth formats a statement date as the YYYY-MM bucket key used for
// bank balance duplicate detection.
func StatementMonth(d time.Time) string {
	return d.Format("2006-01")
}
