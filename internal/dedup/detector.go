// Package dedup implements monthly-granularity duplicate and conflict
// detection for portfolio and bank balances. Statements arrive roughly
// monthly, so conflicts are judged within a calendar month rather than on
// exact dates.
package dedup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avelacruz/fintrack-api/internal/models"
	"github.com/avelacruz/fintrack-api/internal/utils"
)

// Difference thresholds. 1% apart counts as the same balance, 5% apart is a
// plausible monthly update. Empirically tuned.
const (
	similarityThreshold = 0.01
	warningThreshold    = 0.05
)

// Recommendation tells the caller how to proceed with a save. The detector
// only supplies the decision inputs; final disposition belongs to the caller.
type Recommendation string

const (
	RecommendSafeToSave          Recommendation = "safe_to_save"
	RecommendAutoSkip            Recommendation = "auto_skip"
	RecommendSuggestUpdate       Recommendation = "suggest_update"
	RecommendManualReview        Recommendation = "manual_review"
	RecommendBlockSave           Recommendation = "block_save"
	RecommendWarnUser            Recommendation = "warn_user"
	RecommendRequireConfirmation Recommendation = "require_confirmation"
)

// Result is a pure value object describing one duplicate check. It is
// recomputed on every check and never cached; underlying balances can change
// between checks.
type Result struct {
	IsDuplicate          bool           `json:"is_duplicate"`
	ConflictType         string         `json:"conflict_type"`
	Message              string         `json:"message"`
	ExistingBalance      map[string]any `json:"existing_balance,omitempty"`
	SimilarityPercentage float64        `json:"similarity_percentage"`
	Recommendation       Recommendation `json:"recommendation"`
}

// PortfolioBalanceReader lists stored balances for one account within a
// calendar month.
type PortfolioBalanceReader interface {
	BalancesForMonth(ctx context.Context, accountID int64, year int, month time.Month) ([]models.PortfolioBalance, error)
}

// BankBalanceReader looks up the stored bank balance for an account name and
// statement month (YYYY-MM). Returns nil when no record exists.
type BankBalanceReader interface {
	BankBalanceForMonth(ctx context.Context, accountName, statementMonth string) (*models.BankBalance, error)
}

// UploadReader looks up a prior upload by its original filename. Returns nil
// when no record exists.
type UploadReader interface {
	UploadByFilename(ctx context.Context, filename string) (*models.StatementUpload, error)
}

type Detector struct {
	balances PortfolioBalanceReader
	bank     BankBalanceReader
	uploads  UploadReader
	logger   *utils.Logger
}

func NewDetector(balances PortfolioBalanceReader, bank BankBalanceReader, uploads UploadReader, logger *utils.Logger) *Detector {
	return &Detector{balances: balances, bank: bank, uploads: uploads, logger: logger}
}

func noConflict(message string) Result {
	return Result{
		IsDuplicate:    false,
		ConflictType:   "none",
		Message:        message,
		Recommendation: RecommendSafeToSave,
	}
}

// Store errors degrade to a non-blocking manual-review result instead of
// propagating; a failed check must never block the processing pipeline.
func degraded(context string, err error) Result {
	return Result{
		IsDuplicate:    false,
		ConflictType:   "error",
		Message:        fmt.Sprintf("Error checking %s: %v", context, err),
		Recommendation: RecommendManualReview,
	}
}

// CheckFilename reports whether a statement with the same original filename
// was already uploaded.
func (d *Detector) CheckFilename(ctx context.Context, filename string) Result {
	existing, err := d.uploads.UploadByFilename(ctx, filename)
	if err != nil {
		d.logger.Error("Filename duplicate check failed", "filename", filename, "error", err)
		return degraded("filename", err)
	}
	if existing == nil {
		return noConflict("Filename is unique")
	}

	return Result{
		IsDuplicate:  true,
		ConflictType: "filename_duplicate",
		Message: fmt.Sprintf("File '%s' was already uploaded on %s",
			filename, existing.UploadedAt.Format("2006-01-02 15:04")),
		ExistingBalance: map[string]any{
			"upload_id":         existing.ID,
			"upload_date":       existing.UploadedAt.Format(time.RFC3339),
			"processing_status": string(existing.ProcessingStatus),
			"account_id":        existing.AccountID,
		},
		Recommendation: RecommendWarnUser,
	}
}

// CheckMonthly checks a new investment balance against all stored balances
// for the same account in the same calendar month. excludeID skips one record
// so an update does not conflict with itself.
func (d *Detector) CheckMonthly(ctx context.Context, accountID int64, balanceDate time.Time, amount decimal.Decimal, excludeID int64) Result {
	existing, err := d.balances.BalancesForMonth(ctx, accountID, balanceDate.Year(), balanceDate.Month())
	if err != nil {
		d.logger.Error("Monthly duplicate check failed", "account_id", accountID, "error", err)
		return degraded("duplicates", err)
	}

	for _, record := range existing {
		if excludeID != 0 && record.ID == excludeID {
			continue
		}
		if result := analyzeConflict(record, balanceDate, amount); result.IsDuplicate {
			return result
		}
	}

	return noConflict("No conflicts detected")
}

// analyzeConflict classifies one stored balance against the incoming one.
// Every same-month record is some kind of conflict, so the first stored
// record examined decides the outcome.
func analyzeConflict(existing models.PortfolioBalance, newDate time.Time, newAmount decimal.Decimal) Result {
	similarity := similarityOf(existing.BalanceAmount, newAmount)

	info := map[string]any{
		"id":               existing.ID,
		"balance_date":     existing.BalanceDate.Format("2006-01-02"),
		"balance_amount":   existing.BalanceAmount.InexactFloat64(),
		"data_source":      string(existing.DataSource),
		"notes":            existing.Notes,
		"created_at":       existing.CreatedAt.Format(time.RFC3339),
		"confidence_score": existing.ConfidenceScore,
	}

	sameDate := existing.BalanceDate.Year() == newDate.Year() &&
		existing.BalanceDate.Month() == newDate.Month() &&
		existing.BalanceDate.Day() == newDate.Day()

	if sameDate {
		if similarity >= 1.0-similarityThreshold {
			return Result{
				IsDuplicate:  true,
				ConflictType: "exact_duplicate",
				Message: fmt.Sprintf("Identical balance already exists for %s",
					newDate.Format("2006-01-02")),
				ExistingBalance:      info,
				SimilarityPercentage: similarity * 100,
				Recommendation:       RecommendBlockSave,
			}
		}
		return Result{
			IsDuplicate:  true,
			ConflictType: "same_date_different_amount",
			Message: fmt.Sprintf("Different balance exists for same date. Replace $%s with $%s?",
				money(existing.BalanceAmount), money(newAmount)),
			ExistingBalance:      info,
			SimilarityPercentage: similarity * 100,
			Recommendation:       RecommendRequireConfirmation,
		}
	}

	switch {
	case similarity >= 1.0-similarityThreshold:
		return Result{
			IsDuplicate:  true,
			ConflictType: "similar_monthly_balance",
			Message: fmt.Sprintf("Very similar balance exists for %s in same month",
				existing.BalanceDate.Format("2006-01-02")),
			ExistingBalance:      info,
			SimilarityPercentage: similarity * 100,
			Recommendation:       RecommendWarnUser,
		}
	case similarity >= 1.0-warningThreshold:
		return Result{
			IsDuplicate:  true,
			ConflictType: "monthly_update",
			Message: fmt.Sprintf("Monthly balance update: %s to %s. Replace $%s with $%s?",
				existing.BalanceDate.Format("01/02"), newDate.Format("01/02"),
				money(existing.BalanceAmount), money(newAmount)),
			ExistingBalance:      info,
			SimilarityPercentage: similarity * 100,
			Recommendation:       RecommendSuggestUpdate,
		}
	default:
		// Large gaps can be legitimate, e.g. a different account type
		// statement matched to the same account.
		return Result{
			IsDuplicate:  true,
			ConflictType: "monthly_large_difference",
			Message: fmt.Sprintf("Large difference from existing monthly balance. Previous: $%s (%s), New: $%s (%s)",
				money(existing.BalanceAmount), existing.BalanceDate.Format("01/02"),
				money(newAmount), newDate.Format("01/02")),
			ExistingBalance:      info,
			SimilarityPercentage: similarity * 100,
			Recommendation:       RecommendManualReview,
		}
	}
}

// CheckBankMonthly is the bank-account variant of CheckMonthly, keyed by
// account name and YYYY-MM statement month instead of an account id. Bank
// accounts carry at most one record per month.
func (d *Detector) CheckBankMonthly(ctx context.Context, accountName, statementMonth string, endingBalance decimal.Decimal, statementDate time.Time, excludeID int64) Result {
	existing, err := d.bank.BankBalanceForMonth(ctx, accountName, statementMonth)
	if err != nil {
		d.logger.Error("Bank duplicate check failed",
			"account_name", accountName, "statement_month", statementMonth, "error", err)
		return degraded("bank duplicates", err)
	}
	if existing == nil || (excludeID != 0 && existing.ID == excludeID) {
		return Result{
			IsDuplicate:  false,
			ConflictType: "no_conflict",
			Message:      "No duplicate found",
		}
	}

	similarity := similarityOf(existing.EndingBalance, endingBalance)

	info := map[string]any{
		"id":               existing.ID,
		"ending_balance":   existing.EndingBalance.InexactFloat64(),
		"statement_date":   existing.StatementDate.Format("2006-01-02"),
		"statement_month":  existing.StatementMonth,
		"data_source":      string(existing.DataSource),
		"confidence_score": existing.ConfidenceScore,
	}

	sameDate := existing.StatementDate.Year() == statementDate.Year() &&
		existing.StatementDate.Month() == statementDate.Month() &&
		existing.StatementDate.Day() == statementDate.Day()

	if sameDate {
		if existing.EndingBalance.Sub(endingBalance).Abs().LessThanOrEqual(decimal.NewFromFloat(0.01)) {
			return Result{
				IsDuplicate:  true,
				ConflictType: "identical_bank_balance",
				Message: fmt.Sprintf("Identical bank balance already exists for %s",
					statementDate.Format("2006-01-02")),
				ExistingBalance:      info,
				SimilarityPercentage: 100,
				Recommendation:       RecommendAutoSkip,
			}
		}
		return Result{
			IsDuplicate:  true,
			ConflictType: "same_date_different_amount",
			Message: fmt.Sprintf("Different amount for same date. Existing: $%s, New: $%s",
				money(existing.EndingBalance), money(endingBalance)),
			ExistingBalance:      info,
			SimilarityPercentage: similarity * 100,
			Recommendation:       RecommendManualReview,
		}
	}

	switch {
	case similarity >= 0.99:
		return Result{
			IsDuplicate:  true,
			ConflictType: "similar_bank_balance",
			Message: fmt.Sprintf("Very similar balance exists for %s in same month. Replace $%s with $%s?",
				existing.StatementDate.Format("2006-01-02"),
				money(existing.EndingBalance), money(endingBalance)),
			ExistingBalance:      info,
			SimilarityPercentage: similarity * 100,
			Recommendation:       RecommendSuggestUpdate,
		}
	case similarity >= 0.95:
		return Result{
			IsDuplicate:  true,
			ConflictType: "bank_monthly_update",
			Message: fmt.Sprintf("Monthly update detected: %s to %s. Replace $%s with $%s?",
				existing.StatementDate.Format("01/02"), statementDate.Format("01/02"),
				money(existing.EndingBalance), money(endingBalance)),
			ExistingBalance:      info,
			SimilarityPercentage: similarity * 100,
			Recommendation:       RecommendManualReview,
		}
	default:
		return Result{
			IsDuplicate:  true,
			ConflictType: "bank_large_difference",
			Message: fmt.Sprintf("Large difference from existing monthly balance. Previous: $%s (%s), New: $%s (%s)",
				money(existing.EndingBalance), existing.StatementDate.Format("01/02"),
				money(endingBalance), statementDate.Format("01/02")),
			ExistingBalance:      info,
			SimilarityPercentage: similarity * 100,
			Recommendation:       RecommendManualReview,
		}
	}
}

// similarityOf returns 1 - |existing-new|/existing, clamped semantics for
// zero: 1.0 when both sides are zero, 0.0 when only the stored side is.
func similarityOf(existing, new decimal.Decimal) float64 {
	if existing.IsZero() {
		if new.IsZero() {
			return 1.0
		}
		return 0.0
	}
	diff := existing.Sub(new).Abs()
	return 1.0 - diff.Div(existing).InexactFloat64()
}

// money renders an amount with thousands separators and two decimals, for
// user-facing conflict messages.
func money(d decimal.Decimal) string {
	s := d.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	dot := strings.IndexByte(s, '.')
	intPart, frac := s[:dot], s[dot:]
	var sb strings.Builder
	if neg {
		sb.WriteByte('-')
	}
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(c)
	}
	sb.WriteString(frac)
	return sb.String()
}
