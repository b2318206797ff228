package parser

import (
	"fmt"
	"regexp"
)

// Institution identifies the issuer of a statement.
type Institution string

const (
	InstitutionWellsFargo  Institution = "wells_fargo"
	InstitutionADP         Institution = "adp"
	InstitutionAcorns      Institution = "acorns"
	InstitutionRobinhood   Institution = "robinhood"
	InstitutionSchwab      Institution = "schwab"
	InstitutionWealthfront Institution = "wealthfront"
	InstitutionUnknown     Institution = "unknown"
)

// institutionMarkers drives detection. Order matters: earlier entries win, so
// the most distinctive phrasings come first. Markers are general wording only;
// addresses and account identifiers are deliberately absent.
var institutionMarkers = []struct {
	institution Institution
	markers     []string
}{
	{InstitutionWellsFargo, []string{
		"wells fargo combined statement of accounts",
		"wells fargo everyday checking",
		"wells fargo platinum savings",
		"wells fargo bank, n.a.",
		"wellsfargo.com",
		"statement period activity summary",
	}},
	{InstitutionWealthfront, []string{
		"wealthfront brokerage llc", "wealthfront advisers",
		"monthly statement for march", "individual investment account",
		"wealthfront.com", "support@wealthfront.com",
		"wealthfront cash account",
		"investment account",
		"wealthfront savings",
		"cash account",
	}},
	{InstitutionAcorns, []string{
		"acorns securities llc", "acorns advisers llc",
		"base investment account", "acorns.com",
	}},
	{InstitutionRobinhood, []string{
		"robinhood securities llc", "robinhood financial llc",
		"help@robinhood.com", "robinhood gold",
	}},
	{InstitutionSchwab, []string{
		"charles schwab co inc", "schwab one account",
		"schwab.com/login", "member sipc schwab",
		"schwab representative",
	}},
	{InstitutionADP, []string{
		"transaction and balance history", "transaction history by fund",
		"personal rate of return", "mykplan.adp.com",
		"modified dietz method",
	}},
}

var institutionExtractors = map[Institution]func(*StatementData, string){
	InstitutionWellsFargo:  extractWellsFargo,
	InstitutionADP:         extractADP,
	InstitutionAcorns:      extractAcorns,
	InstitutionRobinhood:   extractRobinhood,
	InstitutionSchwab:      extractSchwab,
	InstitutionWealthfront: extractWealthfront,
}

var (
	wellsFargoDateRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\w+\s+\d{1,2},\s+\d{4})`),
		regexp.MustCompile(`(?i)Statement\s+Period:?\s*(\d{1,2}/\d{1,2}/\d{4})\s*-\s*(\d{1,2}/\d{1,2}/\d{4})`),
		regexp.MustCompile(`(?i)For\s+the\s+period\s+(\w+\s+\d{1,2})\s*-\s*(\w+\s+\d{1,2},\s+\d{4})`),
	}
	wellsFargoBeginningRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Beginning\s+balance\s+on\s+\d{1,2}/\d{1,2}\s+\$?([\d,]+\.?\d*)`),
		regexp.MustCompile(`(?i)Previous\s+balance\s*:?\s*\$?([\d,]+\.?\d*)`),
		regexp.MustCompile(`(?i)Balance\s+forward\s*:?\s*\$?([\d,]+\.?\d*)`),
	}
	wellsFargoEndingRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Ending\s+balance\s+on\s+\d{1,2}/\d{1,2}\s+\$?([\d,]+\.?\d*)`),
		regexp.MustCompile(`(?i)Current\s+balance\s*:?\s*\$?([\d,]+\.?\d*)`),
		regexp.MustCompile(`(?i)New\s+balance\s*:?\s*\$?([\d,]+\.?\d*)`),
	}
)

func extractWellsFargo(data *StatementData, text string) {
	data.AccountType = "Checking"

	// The generic "May 31, 2025" pattern has one capture group; the period
	// patterns have two, in which case the second group is the period end.
	for _, re := range wellsFargoDateRes {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		dateStr := m[1]
		if len(m) > 2 {
			dateStr = m[2]
		}
		if d := parseDate(dateStr); d != nil {
			data.PeriodEnd = d
			break
		}
	}

	if amount, cleaned := firstAmount(text, wellsFargoBeginningRes); amount != nil {
		data.BeginningBalance = amount
		data.ExtractionNotes = append(data.ExtractionNotes,
			fmt.Sprintf("Found beginning balance: $%s", cleaned))
	}
	if amount, cleaned := firstAmount(text, wellsFargoEndingRes); amount != nil {
		data.EndingBalance = amount
		data.ExtractionNotes = append(data.ExtractionNotes,
			fmt.Sprintf("Found ending balance: $%s", cleaned))
	}
}

var (
	adpPeriodRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)statement period\s*(\d{1,2}/\d{1,2}/\d{4})\s*-\s*(\d{1,2}/\d{1,2}/\d{4})`),
		regexp.MustCompile(`(?i)for the period\s*(\w+\s+\d{1,2},\s+\d{4})\s*through\s*(\w+\s+\d{1,2},\s+\d{4})`),
	}
	adpBeginningRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)beginning account value\s*\$?([\d,]+\.?\d*)`),
		regexp.MustCompile(`(?i)beginning balance\s*\$?([\d,]+\.?\d*)`),
	}
	adpEndingRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)ending balance\s*\$?([\d,]+\.?\d*)`),
		regexp.MustCompile(`(?i)ending account value\s*\$?([\d,]+\.?\d*)`),
	}
)

func extractADP(data *StatementData, text string) {
	data.AccountType = "401(k) Plan"

	if start, end := firstPeriod(text, adpPeriodRes); start != nil && end != nil {
		data.PeriodStart = start
		data.PeriodEnd = end
		data.ExtractionNotes = append(data.ExtractionNotes,
			fmt.Sprintf("Found statement period: %s to %s", isoDate(start), isoDate(end)))
	}

	if amount, cleaned := firstAmount(text, adpBeginningRes); amount != nil {
		data.BeginningBalance = amount
		data.ExtractionNotes = append(data.ExtractionNotes,
			fmt.Sprintf("Found beginning balance: $%s", cleaned))
	}
	if amount, cleaned := firstAmount(text, adpEndingRes); amount != nil {
		data.EndingBalance = amount
		data.ExtractionNotes = append(data.ExtractionNotes,
			fmt.Sprintf("Found ending balance: $%s", cleaned))
	}
}

var (
	acornsMonthRe  = regexp.MustCompile(`(?i)statement for\s*(\w+\s+\d{4})`)
	acornsPeriodRe = regexp.MustCompile(`(?i)monthly statement\s*(\w+\s+\d{1,2},\s+\d{4})\s*through\s*(\w+\s+\d{1,2},\s+\d{4})`)

	acornsBalanceRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)account value\s*\$?([\d,]+\.?\d*)`),
		regexp.MustCompile(`(?i)total invested\s*\$?([\d,]+\.?\d*)`),
		regexp.MustCompile(`(?i)portfolio value\s*\$?([\d,]+\.?\d*)`),
	}
)

func extractAcorns(data *StatementData, text string) {
	data.AccountType = "Base Investment Account"
	extractMonthOrPeriod(data, text, acornsMonthRe, acornsPeriodRe)

	if amount, cleaned := firstAmount(text, acornsBalanceRes); amount != nil {
		data.EndingBalance = amount
		data.ExtractionNotes = append(data.ExtractionNotes,
			fmt.Sprintf("Found account value: $%s", cleaned))
	}
}

var (
	robinhoodPeriodRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)statement period\s*(\w+\s+\d{1,2},\s+\d{4})\s*-\s*(\w+\s+\d{1,2},\s+\d{4})`),
		regexp.MustCompile(`(?i)for the period\s*(\d{1,2}/\d{1,2}/\d{4})\s*to\s*(\d{1,2}/\d{1,2}/\d{4})`),
	}
	robinhoodBalanceRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)total account value\s*\$?([\d,]+\.?\d*)`),
		regexp.MustCompile(`(?i)net account value\s*\$?([\d,]+\.?\d*)`),
		regexp.MustCompile(`(?i)portfolio value\s*\$?([\d,]+\.?\d*)`),
	}
)

func extractRobinhood(data *StatementData, text string) {
	data.AccountType = "Brokerage Account"

	if start, end := firstPeriod(text, robinhoodPeriodRes); start != nil && end != nil {
		data.PeriodStart = start
		data.PeriodEnd = end
		data.ExtractionNotes = append(data.ExtractionNotes,
			fmt.Sprintf("Found statement period: %s to %s", isoDate(start), isoDate(end)))
	}

	if amount, cleaned := firstAmount(text, robinhoodBalanceRes); amount != nil {
		data.EndingBalance = amount
		data.ExtractionNotes = append(data.ExtractionNotes,
			fmt.Sprintf("Found account value: $%s", cleaned))
	}
}

var (
	schwabRothRe    = regexp.MustCompile(`(?i)roth ira`)
	schwabPeriodRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)statement period\s*(\w+\s+\d{1,2},\s+\d{4})\s*through\s*(\w+\s+\d{1,2},\s+\d{4})`),
		regexp.MustCompile(`(?i)for the period\s*(\d{1,2}/\d{1,2}/\d{4})\s*-\s*(\d{1,2}/\d{1,2}/\d{4})`),
	}
	schwabBalanceRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)total account value\s*\$?([\d,]+\.?\d*)`),
		regexp.MustCompile(`(?i)ending account value\s*\$?([\d,]+\.?\d*)`),
		regexp.MustCompile(`(?i)account total\s*\$?([\d,]+\.?\d*)`),
	}
)

func extractSchwab(data *StatementData, text string) {
	if schwabRothRe.MatchString(text) {
		data.AccountType = "Roth IRA"
	} else {
		data.AccountType = "Brokerage Account"
	}

	if start, end := firstPeriod(text, schwabPeriodRes); start != nil && end != nil {
		data.PeriodStart = start
		data.PeriodEnd = end
		data.ExtractionNotes = append(data.ExtractionNotes,
			fmt.Sprintf("Found statement period: %s to %s", isoDate(start), isoDate(end)))
	}

	if amount, cleaned := firstAmount(text, schwabBalanceRes); amount != nil {
		data.EndingBalance = amount
		data.ExtractionNotes = append(data.ExtractionNotes,
			fmt.Sprintf("Found account value: $%s", cleaned))
	}
}

var (
	wealthfrontInvestmentRe = regexp.MustCompile(`(?i)individual investment account`)
	wealthfrontCashRe       = regexp.MustCompile(`(?i)cash account|savings|high yield`)

	wealthfrontMonthRe  = regexp.MustCompile(`(?i)monthly statement for\s*(\w+\s+\d{4})`)
	wealthfrontPeriodRe = regexp.MustCompile(`(?i)statement period\s*(\w+\s+\d{1,2},\s+\d{4})\s*through\s*(\w+\s+\d{1,2},\s+\d{4})`)

	wealthfrontBalanceRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)account value\s*\$?([\d,]+\.?\d*)`),
		regexp.MustCompile(`(?i)total balance\s*\$?([\d,]+\.?\d*)`),
		regexp.MustCompile(`(?i)portfolio value\s*\$?([\d,]+\.?\d*)`),
	}
)

func extractWealthfront(data *StatementData, text string) {
	switch {
	case wealthfrontInvestmentRe.MatchString(text):
		data.AccountType = "Individual Investment Account"
	case wealthfrontCashRe.MatchString(text):
		data.AccountType = "Cash Account"
	default:
		data.AccountType = "Investment Account"
	}

	extractMonthOrPeriod(data, text, wealthfrontMonthRe, wealthfrontPeriodRe)

	if amount, cleaned := firstAmount(text, wealthfrontBalanceRes); amount != nil {
		data.EndingBalance = amount
		data.ExtractionNotes = append(data.ExtractionNotes,
			fmt.Sprintf("Found account value: $%s", cleaned))
	}
}

// extractMonthOrPeriod handles the statement layouts that carry either a bare
// "Month YYYY" label or a full start-through-end period. The month-only form
// resolves to the last day of that month as the period end.
func extractMonthOrPeriod(data *StatementData, text string, monthRe, periodRe *regexp.Regexp) {
	if m := monthRe.FindStringSubmatch(text); m != nil {
		if d := parseMonthYear(m[1]); d != nil {
			data.PeriodEnd = d
			data.ExtractionNotes = append(data.ExtractionNotes,
				fmt.Sprintf("Found statement month: %s", m[1]))
		}
		return
	}

	if m := periodRe.FindStringSubmatch(text); m != nil {
		start := parseDate(m[1])
		end := parseDate(m[2])
		if start != nil && end != nil {
			data.PeriodStart = start
			data.PeriodEnd = end
			data.ExtractionNotes = append(data.ExtractionNotes,
				fmt.Sprintf("Found statement period: %s to %s", isoDate(start), isoDate(end)))
		}
	}
}
