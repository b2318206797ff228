// Package parser turns raw statement text into structured statement data
// using institution-specific pattern tables. It never returns errors:
// unmatched fields stay nil and drag the confidence score down instead.
package parser

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avelacruz/fintrack-api/internal/utils"
)

// StatementData holds the fields extracted from one statement. There is
// deliberately no account-number field: account numbers are never extracted
// or persisted.
type StatementData struct {
	Institution      Institution
	AccountType      string
	PeriodStart      *time.Time
	PeriodEnd        *time.Time
	BeginningBalance *decimal.Decimal
	EndingBalance    *decimal.Decimal
	ConfidenceScore  float64
	ExtractionNotes  []string
}

type Parser struct {
	logger *utils.Logger
}

func New(logger *utils.Logger) *Parser {
	return &Parser{logger: logger}
}

// Parse extracts statement data from raw text. Pure function of its input;
// calling it twice on identical text yields identical results.
func (p *Parser) Parse(text string) StatementData {
	p.logger.Info("Parsing statement text", "chars", len(text))

	cleaned := cleanText(text)

	institution := detectInstitution(cleaned)
	p.logger.Info("Detected institution", "institution", string(institution))

	extract, ok := institutionExtractors[institution]
	if !ok {
		return StatementData{
			Institution:     institution,
			ConfidenceScore: 0.1,
			ExtractionNotes: []string{fmt.Sprintf("Unknown institution: %s", institution)},
		}
	}

	data := StatementData{Institution: institution}
	extract(&data, cleaned)
	data.ConfidenceScore = calculateConfidence(&data)

	p.logger.Info("Parsing complete", "confidence", data.ConfidenceScore)
	return data
}

var (
	whitespaceRunRe = regexp.MustCompile(`\s+`)
	artifactRe      = regexp.MustCompile(`[^\w\s$.,\-/():%]`)
	currencyGapRe   = regexp.MustCompile(`\$\s+`)
)

// cleanText normalizes statement text for pattern matching: collapse
// whitespace runs, strip OCR artifacts outside a punctuation whitelist, and
// tighten "$ 123" to "$123".
func cleanText(text string) string {
	cleaned := whitespaceRunRe.ReplaceAllString(text, " ")
	cleaned = artifactRe.ReplaceAllString(cleaned, " ")
	cleaned = currencyGapRe.ReplaceAllString(cleaned, "$")
	return strings.TrimSpace(cleaned)
}

func detectInstitution(text string) Institution {
	lower := strings.ToLower(text)

	for _, check := range institutionMarkers {
		for _, marker := range check.markers {
			if strings.Contains(lower, marker) {
				return check.institution
			}
		}
	}

	return InstitutionUnknown
}

// calculateConfidence is the only place a parser confidence score is
// computed: the average of five factor scores reflecting how much of the
// statement was successfully extracted. Adding a matched field never lowers
// the score.
func calculateConfidence(data *StatementData) float64 {
	factors := make([]float64, 0, 5)

	if data.Institution != "" && data.Institution != InstitutionUnknown {
		factors = append(factors, 0.8)
	} else {
		factors = append(factors, 0.2)
	}

	switch {
	case data.BeginningBalance != nil && data.EndingBalance != nil:
		factors = append(factors, 0.9)
	case data.EndingBalance != nil:
		factors = append(factors, 0.7)
	default:
		factors = append(factors, 0.3)
	}

	switch {
	case data.PeriodStart != nil && data.PeriodEnd != nil:
		factors = append(factors, 0.9)
	case data.PeriodEnd != nil:
		factors = append(factors, 0.7)
	default:
		factors = append(factors, 0.4)
	}

	if data.AccountType != "" {
		factors = append(factors, 0.8)
	} else {
		factors = append(factors, 0.5)
	}

	switch {
	case len(data.ExtractionNotes) >= 3:
		factors = append(factors, 0.9)
	case len(data.ExtractionNotes) == 2:
		factors = append(factors, 0.8)
	case len(data.ExtractionNotes) == 1:
		factors = append(factors, 0.6)
	default:
		factors = append(factors, 0.3)
	}

	sum := 0.0
	for _, f := range factors {
		sum += f
	}
	return sum / float64(len(factors))
}
