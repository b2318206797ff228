package extractor

import (
	"regexp"
	"strings"
)

// Method identifies which tier of the extraction cascade produced a result.
type Method string

const (
	MethodStructured Method = "structured"
	MethodFallback   Method = "structured-fallback"
	MethodOCR        Method = "ocr"
)

// Empirical reliability multipliers per extraction tier. The structured text
// layer is trusted as-is; the content-stream fallback misses formatting on
// complex layouts; OCR is the weakest tier.
var methodMultipliers = map[Method]float64{
	MethodStructured: 1.0,
	MethodFallback:   0.85,
	MethodOCR:        0.7,
}

var confidenceKeywords = []string{
	"balance", "account", "total", "value", "portfolio",
	"investment", "statement", "period", "$", "amount",
}

var (
	currencyRe     = regexp.MustCompile(`\$[\d,]+\.?\d*`)
	numericDateRe  = regexp.MustCompile(`\d{1,2}[/\-]\d{1,2}[/\-]\d{4}`)
	coherenceChars = ".,/$%-()"
)

// textConfidence scores extracted text quality in [0,1]: the average of
// length, financial-keyword, currency/date-pattern and coherence signals,
// scaled by the method multiplier.
func textConfidence(text string, m Method) float64 {
	if len(strings.TrimSpace(text)) < 10 {
		return 0.0
	}

	lengthScore := float64(len(text)) / 1000.0
	if lengthScore > 1.0 {
		lengthScore = 1.0
	}

	lower := strings.ToLower(text)
	keywordCount := 0
	for _, kw := range confidenceKeywords {
		if strings.Contains(lower, kw) {
			keywordCount++
		}
	}
	keywordScore := float64(keywordCount) / float64(len(confidenceKeywords))

	patternCount := len(currencyRe.FindAllString(text, -1)) + len(numericDateRe.FindAllString(text, -1))
	patternScore := float64(patternCount) / 10.0
	if patternScore > 1.0 {
		patternScore = 1.0
	}

	weird := 0
	for _, r := range text {
		if isWordChar(r) || isSpaceChar(r) || strings.ContainsRune(coherenceChars, r) {
			continue
		}
		weird++
	}
	coherenceScore := 1.0 - float64(weird)/float64(len(text))
	if coherenceScore < 0 {
		coherenceScore = 0
	}

	base := (lengthScore + keywordScore + patternScore + coherenceScore) / 4.0

	final := base * methodMultipliers[m]
	if final > 1.0 {
		final = 1.0
	}
	return final
}

func isWordChar(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_'
}

func isSpaceChar(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f'
}
