package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProcessingStatus string

const (
	StatusPending   ProcessingStatus = "pending"
	StatusProcessed ProcessingStatus = "processed"
	StatusFailed    ProcessingStatus = "failed"
	StatusSaved     ProcessingStatus = "saved"
	StatusDuplicate ProcessingStatus = "duplicate"
	StatusSkipped   ProcessingStatus = "skipped"
)

// StatementUpload is the audit record for one upload attempt. It is created
// once per attempt and mutated as the workflow advances; it is never deleted.
// There is deliberately no raw-text or account-number field on this record.
type StatementUpload struct {
	ID               int64            `json:"id" db:"id"`
	OriginalFilename string           `json:"original_filename" db:"original_filename"`
	FilePath         string           `json:"file_path" db:"file_path"`
	AccountID        *int64           `json:"account_id,omitempty" db:"account_id"`
	StatementDate    *time.Time       `json:"statement_date,omitempty" db:"statement_date"`
	RelevantPage     int              `json:"relevant_page" db:"relevant_page"`
	PagePDFPath      *string          `json:"page_pdf_path,omitempty" db:"page_pdf_path"`
	TotalPages       int              `json:"total_pages" db:"total_pages"`
	ExtractedBalance *decimal.Decimal `json:"extracted_balance,omitempty" db:"extracted_balance"`
	ConfidenceScore  float64          `json:"confidence_score" db:"confidence_score"`
	RequiresReview   bool             `json:"requires_review" db:"requires_review"`
	ReviewedByUser   bool             `json:"reviewed_by_user" db:"reviewed_by_user"`
	ProcessingStatus ProcessingStatus `json:"processing_status" db:"processing_status"`
	ProcessingError  *string          `json:"processing_error,omitempty" db:"processing_error"`
	UploadedAt       time.Time        `json:"uploaded_at" db:"uploaded_at"`
	ProcessedAt      *time.Time       `json:"processed_at,omitempty" db:"processed_at"`
}

type AccountSuggestion struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Institution string `json:"institution"`
	MatchReason string `json:"match_reason"`
}

type QuickSaveRequest struct {
	ConfirmDuplicates bool `json:"confirm_duplicates"`
}

type StatementReviewRequest struct {
	AccountID     int64   `json:"account_id"`
	BalanceDate   string  `json:"balance_date"`
	BalanceAmount string  `json:"balance_amount"`
	Notes         *string `json:"notes,omitempty"`
}

type ManualBalanceRequest struct {
	AccountID     int64   `json:"account_id"`
	BalanceDate   string  `json:"balance_date"`
	BalanceAmount string  `json:"balance_amount"`
	Notes         *string `json:"notes,omitempty"`
}
