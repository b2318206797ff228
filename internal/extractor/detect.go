package extractor

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Statements front-load summary data, so the scan never looks past the first
// few pages.
const maxPagesToScan = 3

// Combined-score weights. Relevance dominates: a cleanly extracted irrelevant
// page is worse than a noisily extracted relevant one. Empirically tuned, not
// derived.
const (
	extractionWeight = 0.3
	relevanceWeight  = 0.7
)

// DetectBestPage scans the first pages of the document, scores each for
// summary financial content and picks the winner. Returns the winning page's
// text and extraction confidence, its 1-based page number, and the total page
// count. Never fails; worst case is ("", 0.0, 1, totalPages).
func (e *Engine) DetectBestPage(path string) (string, float64, int, int) {
	totalPages := e.PageCount(path)

	pagesToScan := maxPagesToScan
	if totalPages < pagesToScan {
		pagesToScan = totalPages
	}

	bestPage := 0
	bestScore := -1.0
	var bestText string
	var bestConfidence float64

	for i := 0; i < pagesToScan; i++ {
		text, confidence := e.ExtractPageText(path, i)
		if text == "" {
			continue
		}

		relevance := ScorePageRelevance(text)
		combined := extractionWeight*confidence + relevanceWeight*relevance

		e.logger.Info("Scored page",
			"page", i+1,
			"extraction_confidence", confidence,
			"relevance", relevance,
			"combined", combined)

		if combined > bestScore {
			bestScore = combined
			bestPage = i + 1
			bestText = text
			bestConfidence = confidence
		}
	}

	if bestPage == 0 {
		e.logger.Error("No pages could be processed", "path", path)
		return "", 0.0, 1, totalPages
	}

	e.logger.Info("Selected best page", "page", bestPage, "score", bestScore)
	return bestText, bestConfidence, bestPage, totalPages
}

// DetectBankSummaryPage is a fixed-layout shortcut for Wells Fargo checking
// and savings statements, whose summary data sits on page 2. Falls back to
// the generic scan when the layout assumption does not hold.
func (e *Engine) DetectBankSummaryPage(path string) (string, float64, int, int) {
	totalPages := e.PageCount(path)

	if totalPages >= 2 {
		text, confidence := e.ExtractPageText(path, 1)
		lower := strings.ToLower(text)
		if strings.Contains(lower, "statement period activity summary") &&
			strings.Contains(lower, "beginning balance on") {
			e.logger.Info("Using bank statement summary page", "page", 2)
			return text, confidence, 2, totalPages
		}
	}

	e.logger.Info("Summary page validation failed, falling back to page detection", "path", path)
	return e.DetectBestPage(path)
}

// ExtractSinglePage materializes one page (1-based) of the source document as
// a standalone PDF at outPath, so a reviewer can be shown just the relevant
// page. Returns false on any failure.
func (e *Engine) ExtractSinglePage(src string, pageNumber int, outPath string) bool {
	totalPages := e.PageCount(src)
	if pageNumber > totalPages {
		e.logger.Error("Page does not exist",
			"path", src, "page", pageNumber, "total_pages", totalPages)
		return false
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		e.logger.Error("Failed to create output directory", "path", outPath, "error", err)
		return false
	}

	if err := api.TrimFile(src, outPath, []string{strconv.Itoa(pageNumber)}, nil); err != nil {
		e.logger.Error("Failed to extract single page",
			"path", src, "page", pageNumber, "error", err)
		return false
	}

	e.logger.Info("Extracted single page", "path", src, "page", pageNumber, "output", outPath)
	return true
}
