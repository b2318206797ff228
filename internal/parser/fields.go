package parser

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var dateLayouts = []string{
	"01/02/2006",
	"01/02/06",
	"January 2, 2006",
	"Jan 2, 2006",
	"2006-01-02",
}

// parseDate tries the date formats that show up across statement layouts.
// Returns nil when nothing matches.
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return &d
		}
	}
	return nil
}

// parseMonthYear parses "March 2025" or "Mar 2025" into the last calendar day
// of that month.
func parseMonthYear(s string) *time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"January 2006", "Jan 2006"} {
		parsed, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		// day 0 of the next month normalizes to the month's last day
		last := time.Date(parsed.Year(), parsed.Month()+1, 0, 0, 0, 0, 0, time.UTC)
		return &last
	}
	return nil
}

func isoDate(d *time.Time) string {
	return d.Format("2006-01-02")
}

var nonAmountRe = regexp.MustCompile(`[^\d.]`)

// cleanAmount strips everything but digits and the decimal point, and returns
// "" when the remainder is not a valid number (for example two decimal points
// from an OCR misread).
func cleanAmount(s string) string {
	if s == "" {
		return ""
	}
	cleaned := nonAmountRe.ReplaceAllString(s, "")
	if _, err := decimal.NewFromString(cleaned); err != nil {
		return ""
	}
	return cleaned
}

// firstAmount returns the first pattern match that cleans to a valid amount,
// together with the cleaned string for note text. A match whose amount fails
// to clean does not stop the search.
func firstAmount(text string, patterns []*regexp.Regexp) (*decimal.Decimal, string) {
	for _, re := range patterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		cleaned := cleanAmount(m[1])
		if cleaned == "" {
			continue
		}
		d, err := decimal.NewFromString(cleaned)
		if err != nil {
			continue
		}
		return &d, cleaned
	}
	return nil, ""
}

// firstPeriod returns the first pattern match whose two capture groups both
// parse as dates.
func firstPeriod(text string, patterns []*regexp.Regexp) (*time.Time, *time.Time) {
	for _, re := range patterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		start := parseDate(m[1])
		end := parseDate(m[2])
		if start != nil && end != nil {
			return start, end
		}
	}
	return nil, nil
}

var (
	depositsRe    = regexp.MustCompile(`(?i)deposits/additions\s+\$?([\d,]+\.?\d*)`)
	withdrawalsRe = regexp.MustCompile(`(?i)withdrawals/subtractions\s*-?\s*\$?([\d,]+\.?\d*)`)
)

// ExtractDeposits pulls the deposits/additions total from a bank statement
// summary page. Nil when the line is absent.
func ExtractDeposits(text string) *decimal.Decimal {
	return matchAmount(depositsRe, text)
}

// ExtractWithdrawals pulls the withdrawals/subtractions total from a bank
// statement summary page. Nil when the line is absent.
func ExtractWithdrawals(text string) *decimal.Decimal {
	return matchAmount(withdrawalsRe, text)
}

func matchAmount(re *regexp.Regexp, text string) *decimal.Decimal {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return nil
	}
	return &d
}
