package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avelacruz/fintrack-api/internal/config"
	"github.com/avelacruz/fintrack-api/internal/dedup"
	"github.com/avelacruz/fintrack-api/internal/extractor"
	"github.com/avelacruz/fintrack-api/internal/matcher"
	"github.com/avelacruz/fintrack-api/internal/models"
	"github.com/avelacruz/fintrack-api/internal/parser"
	"github.com/avelacruz/fintrack-api/internal/repository"
	"github.com/avelacruz/fintrack-api/internal/storage"
	"github.com/avelacruz/fintrack-api/internal/utils"
)

// Extraction below this confidence is treated as failed outright.
const minExtractionConfidence = 0.2

// Parser confidence floor for the bank statement fast path, which saves
// without user review.
const minBankParseConfidence = 0.5

// bankAccountName is the fixed ledger name for bank statement balances. Only
// Wells Fargo checking statements go through the bank path.
const bankAccountName = "Wells Fargo Checking"

// UploadInput is an uploaded statement held in memory. Statements are a few
// MB at most.
type UploadInput struct {
	Filename string
	Data     []byte
}

// ProcessResult summarizes one upload-and-extract pass: what was extracted,
// how confident the pipeline is, and which dispositions are open to the user.
type ProcessResult struct {
	StatementID     int64          `json:"statement_id"`
	ExtractedData   map[string]any `json:"extracted_data"`
	ConfidenceScore float64        `json:"confidence_score"`
	RelevantPage    int            `json:"relevant_page"`
	TotalPages      int            `json:"total_pages"`
	RequiresReview  bool           `json:"requires_review"`
	Message         string         `json:"message"`
	CanQuickSave    bool           `json:"can_quick_save"`
	DuplicateCheck  *dedup.Result  `json:"duplicate_check,omitempty"`
}

// SaveResult reports the outcome of a balance save attempt.
type SaveResult struct {
	Success              bool                     `json:"success"`
	RequiresConfirmation bool                     `json:"requires_confirmation,omitempty"`
	DuplicateInfo        *dedup.Result            `json:"duplicate_info,omitempty"`
	Balance              *models.PortfolioBalance `json:"balance,omitempty"`
	AccountName          string                   `json:"account_name,omitempty"`
	Action               string                   `json:"action,omitempty"`
	Message              string                   `json:"message"`
}

// BankStatementResult is the outcome of the bank statement fast path.
type BankStatementResult struct {
	Success             bool                `json:"success"`
	Message             string              `json:"message"`
	DetectedInstitution string              `json:"detected_institution,omitempty"`
	ConfidenceScore     float64             `json:"confidence_score,omitempty"`
	TotalPages          int                 `json:"total_pages,omitempty"`
	ExtractedData       map[string]any      `json:"extracted_data,omitempty"`
	DuplicateDetected   bool                `json:"duplicate_detected,omitempty"`
	Conflict            *dedup.Result       `json:"conflict,omitempty"`
	Options             map[string]bool     `json:"options,omitempty"`
	BankBalance         *models.BankBalance `json:"bank_balance,omitempty"`
	ParsingConfidence   float64             `json:"parsing_confidence,omitempty"`
	ExtractionNotes     []string            `json:"extraction_notes,omitempty"`
}

type StatementService interface {
	ProcessStatement(ctx context.Context, input UploadInput) (*ProcessResult, error)
	QuickSave(ctx context.Context, statementID int64, confirmDuplicates bool) (*SaveResult, error)
	SaveReviewed(ctx context.Context, statementID int64, req *models.StatementReviewRequest) (*SaveResult, error)
	ResolveConflict(ctx context.Context, statementID int64, action string) (*SaveResult, error)
	ProcessBankStatement(ctx context.Context, input UploadInput, allowUpdate bool) (*BankStatementResult, error)
	StatementPDFPath(ctx context.Context, statementID int64) (string, error)
}

type statementService struct {
	repo     repository.Repository
	engine   *extractor.Engine
	parser   *parser.Parser
	matcher  *matcher.Matcher
	detector *dedup.Detector
	archive  storage.Archive
	cfg      *config.Config
	logger   *utils.Logger
}

func NewStatementService(repo repository.Repository, cfg *config.Config, logger *utils.Logger) StatementService {
	var archive storage.Archive = storage.NopArchive{}
	if cfg.S3Enabled {
		s3, err := storage.NewS3Archive(cfg)
		if err != nil {
			logger.Fatal("Failed to initialize statement archive", "error", err)
		}
		archive = s3
	}

	return &statementService{
		repo:     repo,
		engine:   extractor.NewEngine(cfg, logger),
		parser:   parser.New(logger),
		matcher:  matcher.New(logger),
		detector: dedup.NewDetector(repo, repo, repo, logger),
		archive:  archive,
		cfg:      cfg,
		logger:   logger,
	}
}

// saveUploadFile persists the raw PDF under a collision-proof name and
// best-effort archives it. Returns the local path.
func (s *statementService) saveUploadFile(ctx context.Context, input UploadInput, prefix string) (string, string, error) {
	if err := os.MkdirAll(s.cfg.UploadDir, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create upload dir: %w", err)
	}
	if err := os.MkdirAll(s.cfg.SinglePageDir(), 0755); err != nil {
		return "", "", fmt.Errorf("failed to create single page dir: %w", err)
	}

	safeName := fmt.Sprintf("%s%s_%s_%s",
		prefix, time.Now().Format("20060102_150405"), utils.GenerateID(), input.Filename)
	fullPath := filepath.Join(s.cfg.UploadDir, safeName)

	if err := os.WriteFile(fullPath, input.Data, 0644); err != nil {
		return "", "", fmt.Errorf("failed to save uploaded PDF: %w", err)
	}
	s.logger.Info("Saved uploaded PDF", "path", fullPath, "bytes", len(input.Data))

	if err := s.archive.Store(ctx, "statements/"+safeName, input.Data); err != nil {
		// Archive failures never block processing; the local copy remains.
		s.logger.Warn("Failed to archive statement", "filename", safeName, "error", err)
	}

	return fullPath, safeName, nil
}

func (s *statementService) ProcessStatement(ctx context.Context, input UploadInput) (*ProcessResult, error) {
	fullPath, safeName, err := s.saveUploadFile(ctx, input, "")
	if err != nil {
		return nil, utils.NewInternalError(err.Error())
	}

	// Filename check runs before any extraction so a duplicate upload never
	// pays the OCR cost.
	filenameCheck := s.detector.CheckFilename(ctx, input.Filename)
	if filenameCheck.IsDuplicate && filenameCheck.Recommendation != dedup.RecommendAutoSkip {
		return s.duplicateFilenameResult(ctx, input, fullPath, filenameCheck)
	}

	text, extractionConfidence, relevantPage, totalPages := s.engine.DetectBestPage(fullPath)

	if text == "" || extractionConfidence < minExtractionConfidence {
		return s.failedExtractionResult(ctx, input, fullPath, extractionConfidence, relevantPage, totalPages)
	}

	// Materialize the relevant page as its own PDF for the review UI. The
	// full document remains the fallback when trimming fails.
	var pagePDFPath *string
	singlePagePath := filepath.Join(s.cfg.SinglePageDir(), fmt.Sprintf("page_%d_%s", relevantPage, safeName))
	if s.engine.ExtractSinglePage(fullPath, relevantPage, singlePagePath) {
		pagePDFPath = &singlePagePath
		if pageData, readErr := os.ReadFile(singlePagePath); readErr == nil {
			if err := s.archive.Store(ctx, "pages/"+filepath.Base(singlePagePath), pageData); err != nil {
				s.logger.Warn("Failed to archive page PDF", "path", singlePagePath, "error", err)
			}
		}
	}

	statementData := s.parser.Parse(text)
	overallConfidence := (extractionConfidence + statementData.ConfidenceScore) / 2

	var account *models.InvestmentAccount
	var suggestions []models.AccountSuggestion
	if statementData.Institution != "" {
		accounts, err := s.repo.GetAllAccounts(ctx)
		if err != nil {
			s.logger.Error("Failed to load accounts for matching", "error", err)
		} else {
			var candidates []models.InvestmentAccount
			account, candidates = s.matcher.Match(statementData, accounts)
			for _, c := range candidates {
				suggestions = append(suggestions, models.AccountSuggestion{
					ID:          c.ID,
					Name:        c.AccountName,
					Institution: c.Institution,
					MatchReason: "institution_partial",
				})
			}
		}
	}

	var monthlyCheck dedup.Result
	if account != nil && statementData.EndingBalance != nil && statementData.PeriodEnd != nil {
		monthlyCheck = s.detector.CheckMonthly(ctx, account.ID, *statementData.PeriodEnd, *statementData.EndingBalance, 0)
	} else {
		monthlyCheck = dedup.Result{
			IsDuplicate:    false,
			ConflictType:   "insufficient_data",
			Message:        "Cannot check monthly duplicates - missing account or date info",
			Recommendation: dedup.RecommendSafeToSave,
		}
	}

	now := time.Now()
	upload := &models.StatementUpload{
		OriginalFilename: input.Filename,
		FilePath:         fullPath,
		StatementDate:    statementData.PeriodEnd,
		RelevantPage:     relevantPage,
		PagePDFPath:      pagePDFPath,
		TotalPages:       totalPages,
		ExtractedBalance: statementData.EndingBalance,
		ConfidenceScore:  overallConfidence,
		ProcessingStatus: models.StatusProcessed,
		ProcessedAt:      &now,
	}
	if account != nil {
		upload.AccountID = &account.ID
	}

	if err := s.repo.CreateUpload(ctx, upload); err != nil {
		if repository.IsUniqueViolation(err) {
			// The constraint is the backstop behind the filename check; a
			// race between the two surfaces here.
			return &ProcessResult{
				ExtractedData: map[string]any{
					"duplicate_checks": duplicateChecksPayload(dedup.Result{
						IsDuplicate:    true,
						ConflictType:   "filename_duplicate",
						Message:        fmt.Sprintf("File '%s' was already uploaded previously", input.Filename),
						Recommendation: dedup.RecommendWarnUser,
					}, dedup.Result{}),
				},
				ConfidenceScore: overallConfidence,
				RelevantPage:    relevantPage,
				TotalPages:      totalPages,
				RequiresReview:  true,
				Message:         fmt.Sprintf("File '%s' was already uploaded. Please use a different file or skip this upload.", input.Filename),
				CanQuickSave:    false,
			}, nil
		}
		return nil, utils.NewInternalError(fmt.Sprintf("Database error: %v", err))
	}

	extractedData := map[string]any{
		"institution":            string(statementData.Institution),
		"account_type":           statementData.AccountType,
		"statement_period_start": isoDateOrNil(statementData.PeriodStart),
		"statement_period_end":   isoDateOrNil(statementData.PeriodEnd),
		"duplicate_checks":       duplicateChecksPayload(filenameCheck, monthlyCheck),
		"beginning_balance":      decimalOrNil(statementData.BeginningBalance),
		"ending_balance":         decimalOrNil(statementData.EndingBalance),
		"matched_account":        matchedAccountPayload(account),
		"account_suggestions":    suggestions,
		"extraction_notes":       statementData.ExtractionNotes,
	}

	canQuickSave := overallConfidence >= 0.6 &&
		statementData.EndingBalance != nil &&
		account != nil &&
		statementData.PeriodEnd != nil

	requiresReview := overallConfidence < 0.7 ||
		account == nil ||
		statementData.EndingBalance == nil ||
		(filenameCheck.IsDuplicate && filenameCheck.Recommendation != dedup.RecommendAutoSkip) ||
		(monthlyCheck.IsDuplicate && monthlyCheck.Recommendation != dedup.RecommendAutoSkip)

	var message string
	switch {
	case canQuickSave && !requiresReview:
		message = fmt.Sprintf("High confidence extraction (%.1f%%). Ready for quick save or review.", overallConfidence*100)
	case canQuickSave:
		message = fmt.Sprintf("Good extraction (%.1f%%) but review recommended due to conflicts.", overallConfidence*100)
	default:
		message = "Manual review required due to low confidence or missing data."
	}

	return &ProcessResult{
		StatementID:     upload.ID,
		ExtractedData:   extractedData,
		ConfidenceScore: overallConfidence,
		RelevantPage:    relevantPage,
		TotalPages:      totalPages,
		RequiresReview:  requiresReview,
		Message:         message,
		CanQuickSave:    canQuickSave,
		DuplicateCheck:  &monthlyCheck,
	}, nil
}

func (s *statementService) duplicateFilenameResult(ctx context.Context, input UploadInput, fullPath string, check dedup.Result) (*ProcessResult, error) {
	processingError := fmt.Sprintf("Filename duplicate detected: %s", check.Message)
	upload := &models.StatementUpload{
		OriginalFilename: input.Filename,
		FilePath:         fullPath,
		RelevantPage:     1,
		TotalPages:       1,
		ProcessingStatus: models.StatusDuplicate,
		ProcessingError:  &processingError,
	}

	statementID := int64(0)
	if err := s.repo.CreateUpload(ctx, upload); err != nil {
		if repository.IsUniqueViolation(err) {
			if existing, lookupErr := s.repo.UploadByFilename(ctx, input.Filename); lookupErr == nil && existing != nil {
				statementID = existing.ID
			}
		}
	} else {
		statementID = upload.ID
	}

	return &ProcessResult{
		StatementID: statementID,
		ExtractedData: map[string]any{
			"duplicate_checks": duplicateChecksPayload(check, dedup.Result{}),
		},
		ConfidenceScore: 0.0,
		RelevantPage:    1,
		TotalPages:      1,
		RequiresReview:  true,
		Message:         fmt.Sprintf("File '%s' was already uploaded previously", input.Filename),
		CanQuickSave:    false,
		DuplicateCheck:  &check,
	}, nil
}

func (s *statementService) failedExtractionResult(ctx context.Context, input UploadInput, fullPath string, confidence float64, relevantPage, totalPages int) (*ProcessResult, error) {
	processingError := "Text extraction failed or very low confidence"
	upload := &models.StatementUpload{
		OriginalFilename: input.Filename,
		FilePath:         fullPath,
		RelevantPage:     relevantPage,
		TotalPages:       totalPages,
		ProcessingStatus: models.StatusFailed,
		ProcessingError:  &processingError,
	}
	if err := s.repo.CreateUpload(ctx, upload); err != nil {
		s.logger.Error("Failed to record failed upload", "filename", input.Filename, "error", err)
	}

	return &ProcessResult{
		StatementID:     upload.ID,
		ExtractedData:   map[string]any{},
		ConfidenceScore: confidence,
		RelevantPage:    relevantPage,
		TotalPages:      totalPages,
		RequiresReview:  true,
		Message:         "Text extraction failed. Manual entry recommended.",
		CanQuickSave:    false,
	}, nil
}

func (s *statementService) QuickSave(ctx context.Context, statementID int64, confirmDuplicates bool) (*SaveResult, error) {
	statement, err := s.repo.GetUpload(ctx, statementID)
	if err != nil {
		return nil, utils.NewInternalError(fmt.Sprintf("Error in quick save: %v", err))
	}
	if statement == nil {
		return nil, utils.NewNotFoundError("Statement not found")
	}
	if statement.AccountID == nil || statement.ExtractedBalance == nil || statement.StatementDate == nil {
		return nil, utils.NewBadRequestError("Insufficient extracted data for quick save")
	}

	// Re-check at save time; balances may have changed since processing.
	duplicateResult := s.detector.CheckMonthly(ctx, *statement.AccountID, *statement.StatementDate, *statement.ExtractedBalance, 0)

	if duplicateResult.IsDuplicate && !confirmDuplicates {
		if duplicateResult.Recommendation == dedup.RecommendBlockSave {
			return nil, utils.NewConflictError("Duplicate balance detected. Cannot save identical balance.")
		}
		return &SaveResult{
			Success:              false,
			RequiresConfirmation: true,
			DuplicateInfo:        &duplicateResult,
			Message:              duplicateResult.Message,
		}, nil
	}

	notes := fmt.Sprintf("Quick save from PDF: %s", statement.OriginalFilename)
	balance := &models.PortfolioBalance{
		AccountID:       *statement.AccountID,
		BalanceDate:     *statement.StatementDate,
		BalanceAmount:   *statement.ExtractedBalance,
		DataSource:      models.DataSourcePDFStatement,
		ConfidenceScore: statement.ConfidenceScore,
		Notes:           &notes,
	}
	if err := s.repo.UpsertBalance(ctx, balance); err != nil {
		return nil, utils.NewInternalError(fmt.Sprintf("Error in quick save: %v", err))
	}

	if err := s.repo.SetUploadStatus(ctx, statementID, models.StatusSaved, nil); err != nil {
		s.logger.Error("Failed to mark statement saved", "statement_id", statementID, "error", err)
	}

	return &SaveResult{
		Success: true,
		Balance: balance,
		Message: "Balance saved successfully via quick save",
	}, nil
}

func (s *statementService) SaveReviewed(ctx context.Context, statementID int64, req *models.StatementReviewRequest) (*SaveResult, error) {
	statement, err := s.repo.GetUpload(ctx, statementID)
	if err != nil {
		return nil, utils.NewInternalError(fmt.Sprintf("Error saving reviewed statement: %v", err))
	}
	if statement == nil {
		return nil, utils.NewNotFoundError("Statement not found")
	}

	account, err := s.repo.GetAccountByID(ctx, req.AccountID)
	if err != nil {
		return nil, utils.NewInternalError(fmt.Sprintf("Error saving reviewed statement: %v", err))
	}
	if account == nil {
		return nil, utils.NewNotFoundError(fmt.Sprintf("Account %d not found", req.AccountID))
	}

	balanceDate, err := time.Parse("2006-01-02", req.BalanceDate)
	if err != nil {
		return nil, utils.NewBadRequestError(fmt.Sprintf("Invalid balance date: %s", req.BalanceDate))
	}
	balanceAmount, err := decimal.NewFromString(req.BalanceAmount)
	if err != nil {
		return nil, utils.NewBadRequestError(fmt.Sprintf("Invalid balance amount: %s", req.BalanceAmount))
	}

	// Informational only; the user has reviewed the data and decides.
	duplicateResult := s.detector.CheckMonthly(ctx, req.AccountID, balanceDate, balanceAmount, 0)

	notes := fmt.Sprintf("Reviewed PDF: %s", statement.OriginalFilename)
	if req.Notes != nil && *req.Notes != "" {
		notes = fmt.Sprintf("%s | %s", notes, *req.Notes)
	}
	balance := &models.PortfolioBalance{
		AccountID:       req.AccountID,
		BalanceDate:     balanceDate,
		BalanceAmount:   balanceAmount,
		DataSource:      models.DataSourcePDFStatement,
		ConfidenceScore: statement.ConfidenceScore,
		Notes:           &notes,
	}
	if err := s.repo.UpsertBalance(ctx, balance); err != nil {
		return nil, utils.NewInternalError(fmt.Sprintf("Error saving reviewed statement: %v", err))
	}

	statement.ReviewedByUser = true
	statement.ProcessingStatus = models.StatusSaved
	now := time.Now()
	statement.ProcessedAt = &now
	statement.AccountID = &req.AccountID
	statement.StatementDate = &balanceDate
	if err := s.repo.UpdateUpload(ctx, statement); err != nil {
		s.logger.Error("Failed to mark statement reviewed", "statement_id", statementID, "error", err)
	}

	result := &SaveResult{
		Success:     true,
		Balance:     balance,
		AccountName: account.AccountName,
		Message:     fmt.Sprintf("Successfully saved reviewed balance for %s", account.AccountName),
	}
	if duplicateResult.IsDuplicate {
		result.DuplicateInfo = &duplicateResult
	}
	return result, nil
}

func (s *statementService) ResolveConflict(ctx context.Context, statementID int64, action string) (*SaveResult, error) {
	statement, err := s.repo.GetUpload(ctx, statementID)
	if err != nil {
		return nil, utils.NewInternalError(fmt.Sprintf("Error resolving conflict: %v", err))
	}
	if statement == nil {
		return nil, utils.NewNotFoundError("Statement not found")
	}

	switch action {
	case "skip":
		if err := s.repo.SetUploadStatus(ctx, statementID, models.StatusSkipped, nil); err != nil {
			return nil, utils.NewInternalError(fmt.Sprintf("Error resolving conflict: %v", err))
		}
		return &SaveResult{Success: true, Action: "skipped", Message: "Statement upload skipped"}, nil

	case "proceed":
		if statement.AccountID == nil || statement.ExtractedBalance == nil || statement.StatementDate == nil {
			return nil, utils.NewBadRequestError("Insufficient data to proceed")
		}

		notes := fmt.Sprintf("Saved despite duplicates: %s", statement.OriginalFilename)
		balance := &models.PortfolioBalance{
			AccountID:       *statement.AccountID,
			BalanceDate:     *statement.StatementDate,
			BalanceAmount:   *statement.ExtractedBalance,
			DataSource:      models.DataSourcePDFStatement,
			ConfidenceScore: statement.ConfidenceScore,
			Notes:           &notes,
		}
		if err := s.repo.UpsertBalance(ctx, balance); err != nil {
			return nil, utils.NewInternalError(fmt.Sprintf("Error resolving conflict: %v", err))
		}
		if err := s.repo.SetUploadStatus(ctx, statementID, models.StatusSaved, nil); err != nil {
			s.logger.Error("Failed to mark statement saved", "statement_id", statementID, "error", err)
		}
		return &SaveResult{Success: true, Action: "proceeded", Balance: balance, Message: "Balance saved despite duplicates"}, nil

	default:
		return nil, utils.NewBadRequestError(fmt.Sprintf("Unknown action: %s", action))
	}
}

func (s *statementService) ProcessBankStatement(ctx context.Context, input UploadInput, allowUpdate bool) (*BankStatementResult, error) {
	fullPath, _, err := s.saveUploadFile(ctx, input, "bank_")
	if err != nil {
		return nil, utils.NewInternalError(err.Error())
	}

	text, extractionConfidence, relevantPage, totalPages := s.engine.DetectBankSummaryPage(fullPath)

	if text == "" || extractionConfidence < minExtractionConfidence {
		return &BankStatementResult{
			Success:         false,
			Message:         "Text extraction failed or very low confidence",
			ConfidenceScore: extractionConfidence,
			TotalPages:      totalPages,
		}, nil
	}

	statementData := s.parser.Parse(text)
	s.logger.Info("Bank parsing results",
		"institution", string(statementData.Institution),
		"confidence", statementData.ConfidenceScore)

	if statementData.Institution != parser.InstitutionWellsFargo {
		return &BankStatementResult{
			Success: false,
			Message: fmt.Sprintf("Detected institution '%s' is not Wells Fargo. Only Wells Fargo bank statements are supported.",
				statementData.Institution),
			DetectedInstitution: string(statementData.Institution),
		}, nil
	}

	if statementData.ConfidenceScore < minBankParseConfidence {
		return &BankStatementResult{
			Success:         false,
			Message:         "Could not reliably extract bank statement data",
			ConfidenceScore: statementData.ConfidenceScore,
			ExtractionNotes: statementData.ExtractionNotes,
		}, nil
	}

	deposits := parser.ExtractDeposits(text)
	withdrawals := parser.ExtractWithdrawals(text)
	statementDate := statementData.PeriodEnd

	if statementData.BeginningBalance == nil || statementData.EndingBalance == nil || statementDate == nil {
		return &BankStatementResult{
			Success: false,
			Message: "Missing required balance data (beginning balance, ending balance, or statement date)",
			ExtractedData: map[string]any{
				"beginning_balance": decimalOrNil(statementData.BeginningBalance),
				"ending_balance":    decimalOrNil(statementData.EndingBalance),
				"statement_date":    isoDateOrNil(statementDate),
			},
		}, nil
	}

	statementMonth := models.StatementMonth(*statementDate)
	notes := fmt.Sprintf("Auto-extracted from %s", input.Filename)
	bankBalance := &models.BankBalance{
		AccountName:             bankAccountName,
		StatementMonth:          statementMonth,
		BeginningBalance:        *statementData.BeginningBalance,
		EndingBalance:           *statementData.EndingBalance,
		DepositsAdditions:       deposits,
		WithdrawalsSubtractions: withdrawals,
		StatementDate:           *statementDate,
		DataSource:              models.DataSourcePDFStatement,
		ConfidenceScore:         statementData.ConfidenceScore,
		Notes:                   &notes,
	}

	if err := s.repo.SaveBankBalance(ctx, bankBalance, allowUpdate); err != nil {
		if repository.IsUniqueViolation(err) {
			conflict := s.detector.CheckBankMonthly(ctx, bankAccountName, statementMonth,
				*statementData.EndingBalance, *statementDate, 0)
			return &BankStatementResult{
				Success:           false,
				DuplicateDetected: true,
				Message:           conflict.Message,
				Conflict:          &conflict,
				Options: map[string]bool{
					"can_skip": conflict.Recommendation == dedup.RecommendAutoSkip,
					"can_update": conflict.Recommendation == dedup.RecommendSuggestUpdate ||
						conflict.Recommendation == dedup.RecommendManualReview,
					"requires_review": conflict.Recommendation == dedup.RecommendManualReview,
				},
			}, nil
		}
		return nil, utils.NewInternalError(fmt.Sprintf("Database error: %v", err))
	}

	s.logger.Info("Saved bank balance",
		"account_name", bankBalance.AccountName, "statement_month", bankBalance.StatementMonth)

	return &BankStatementResult{
		Success:           true,
		Message:           "Bank statement processed successfully",
		BankBalance:       bankBalance,
		ParsingConfidence: statementData.ConfidenceScore,
		ExtractionNotes: []string{
			fmt.Sprintf("Extracted from page %d of %d", relevantPage, totalPages),
			fmt.Sprintf("Extraction confidence: %.1f%%", extractionConfidence*100),
			fmt.Sprintf("Data extraction confidence: %.1f%%", statementData.ConfidenceScore*100),
		},
	}, nil
}

// StatementPDFPath returns the path of the PDF to show for a statement,
// preferring the single extracted page over the full document.
func (s *statementService) StatementPDFPath(ctx context.Context, statementID int64) (string, error) {
	statement, err := s.repo.GetUpload(ctx, statementID)
	if err != nil {
		return "", utils.NewInternalError(fmt.Sprintf("Error serving PDF: %v", err))
	}
	if statement == nil {
		return "", utils.NewNotFoundError("Statement not found")
	}

	path := statement.FilePath
	archiveKey := "statements/" + filepath.Base(statement.FilePath)
	if statement.PagePDFPath != nil && *statement.PagePDFPath != "" {
		path = *statement.PagePDFPath
		archiveKey = "pages/" + filepath.Base(path)
	}
	if path == "" {
		return "", utils.NewNotFoundError("PDF file not found")
	}
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	// Local copy is gone; restore it from the archive.
	data, err := s.archive.Retrieve(ctx, archiveKey)
	if err != nil {
		s.logger.Warn("Statement PDF missing locally and not in archive",
			"path", path, "key", archiveKey, "error", err)
		return "", utils.NewNotFoundError("PDF file not found")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", utils.NewInternalError(fmt.Sprintf("Error serving PDF: %v", err))
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", utils.NewInternalError(fmt.Sprintf("Error serving PDF: %v", err))
	}
	s.logger.Info("Restored statement PDF from archive", "path", path, "key", archiveKey)
	return path, nil
}

func duplicateChecksPayload(filenameCheck, monthlyCheck dedup.Result) map[string]any {
	return map[string]any{
		"filename_duplicate": map[string]any{
			"is_duplicate":   filenameCheck.IsDuplicate,
			"message":        messageIfDuplicate(filenameCheck),
			"recommendation": recommendationIfDuplicate(filenameCheck),
		},
		"monthly_duplicate": map[string]any{
			"is_duplicate":          monthlyCheck.IsDuplicate,
			"message":               messageIfDuplicate(monthlyCheck),
			"recommendation":        recommendationIfDuplicate(monthlyCheck),
			"existing_balance":      monthlyCheck.ExistingBalance,
			"similarity_percentage": monthlyCheck.SimilarityPercentage,
		},
	}
}

func messageIfDuplicate(r dedup.Result) any {
	if r.IsDuplicate {
		return r.Message
	}
	return nil
}

func recommendationIfDuplicate(r dedup.Result) any {
	if r.IsDuplicate {
		return string(r.Recommendation)
	}
	return nil
}

func matchedAccountPayload(account *models.InvestmentAccount) any {
	if account == nil {
		return nil
	}
	return map[string]any{
		"id":          account.ID,
		"name":        account.AccountName,
		"institution": account.Institution,
	}
}

func isoDateOrNil(d *time.Time) any {
	if d == nil {
		return nil
	}
	return d.Format("2006-01-02")
}

func decimalOrNil(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.InexactFloat64()
}
