package extractor

import (
	"strconv"
	"strings"
)

// Phrases that mark a statement's balance-summary section. These are what the
// page scan is hunting for, so their score carries double weight.
var summaryIndicators = []string{
	"statement period activity summary",
	"beginning balance on",
	"ending balance on",
	"deposits/additions",
	"withdrawals/subtractions",
}

// Phrases that mark itemized transaction listings. Transaction pages repeat
// generic terms like "balance" enough to fool plain keyword scoring, so they
// carry an explicit penalty.
var transactionIndicators = []string{
	"transaction history",
	"check deposits",
	"check number",
	"description withdrawals",
	"transaction history (continued)",
}

var generalFinancialKeywords = []string{"balance", "account", "total", "value", "statement"}

const (
	summaryBoost          = 2.0
	maxTransactionPenalty = 0.5
	largeAmountFloor      = 1000.0
)

// ScorePageRelevance estimates in [0,1] how likely page text is to contain
// summary financial data (balances, totals) rather than transaction listings.
// Pure function, no I/O.
func ScorePageRelevance(text string) float64 {
	if text == "" {
		return 0.0
	}

	lower := strings.ToLower(text)

	summaryCount := 0
	for _, phrase := range summaryIndicators {
		if strings.Contains(lower, phrase) {
			summaryCount++
		}
	}
	summaryScore := float64(summaryCount) / float64(len(summaryIndicators))
	if summaryScore > 1.0 {
		summaryScore = 1.0
	}
	summaryScore *= summaryBoost

	keywordCount := 0
	for _, kw := range generalFinancialKeywords {
		if strings.Contains(lower, kw) {
			keywordCount++
		}
	}
	keywordScore := float64(keywordCount) / float64(len(generalFinancialKeywords))

	largeAmounts := 0
	for _, amt := range currencyRe.FindAllString(text, -1) {
		if parseCurrencyAmount(amt) > largeAmountFloor {
			largeAmounts++
		}
	}
	currencyScore := float64(largeAmounts) / 5.0
	if currencyScore > 1.0 {
		currencyScore = 1.0
	}

	transactionCount := 0
	for _, phrase := range transactionIndicators {
		if strings.Contains(lower, phrase) {
			transactionCount++
		}
	}
	penalty := float64(transactionCount) / 3.0
	if penalty > maxTransactionPenalty {
		penalty = maxTransactionPenalty
	}

	base := (summaryScore + keywordScore + currencyScore) / 3.0

	final := base - penalty
	if final < 0 {
		final = 0
	}
	if final > 1.0 {
		final = 1.0
	}
	return final
}

func parseCurrencyAmount(s string) float64 {
	cleaned := strings.NewReplacer("$", "", ",", "").Replace(s)
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0.0
	}
	return v
}
