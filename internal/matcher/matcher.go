// Package matcher maps parsed statement data to a stored investment account.
package matcher

import (
	"strings"

	"github.com/avelacruz/fintrack-api/internal/models"
	"github.com/avelacruz/fintrack-api/internal/parser"
	"github.com/avelacruz/fintrack-api/internal/utils"
)

// matchRule routes an institution plus account-type wording to a stored
// account whose name contains targetName. Order matters: the Schwab Roth rule
// must precede the broader Schwab brokerage rule. Empty keyword lists match
// any account type for that institution.
type matchRule struct {
	institution string
	keywords    []string
	targetName  string
}

var matchRules = []matchRule{
	{"schwab", []string{"roth ira", "roth contributory ira", "contributory ira"}, "roth ira"},
	{"schwab", []string{"schwab one account", "brokerage", "investment account"}, "schwab brokerage"},
	{"wealthfront", []string{"individual investment account", "investment"}, "wealthfront investment"},
	{"wealthfront", []string{"cash account", "savings", "cash"}, "wealthfront cash"},
	{"acorns", nil, "acorns"},
	{"robinhood", nil, "robinhood"},
}

type Matcher struct {
	logger *utils.Logger
}

func New(logger *utils.Logger) *Matcher {
	return &Matcher{logger: logger}
}

// Match resolves the account a statement belongs to. Returns the matched
// account, or nil plus a list of candidate accounts for the caller to suggest
// when the match is ambiguous.
func (m *Matcher) Match(data parser.StatementData, accounts []models.InvestmentAccount) (*models.InvestmentAccount, []models.InvestmentAccount) {
	if data.Institution == "" {
		return nil, nil
	}

	institution := strings.ToLower(string(data.Institution))
	accountType := strings.ToLower(data.AccountType)

	m.logger.Info("Matching account", "institution", institution, "account_type", accountType)

	for _, rule := range matchRules {
		if !strings.Contains(institution, rule.institution) {
			continue
		}
		if len(rule.keywords) == 0 {
			if account := findByName(accounts, rule.targetName); account != nil {
				m.logger.Info("Rule match", "account", account.AccountName, "rule", rule.targetName)
				return account, nil
			}
			continue
		}
		for _, keyword := range rule.keywords {
			if !strings.Contains(accountType, keyword) {
				continue
			}
			if account := findByName(accounts, rule.targetName); account != nil {
				m.logger.Info("Rule match", "account", account.AccountName, "keyword", keyword)
				return account, nil
			}
		}
	}

	// Fallback: match on the institution column alone.
	var exact, partial []models.InvestmentAccount
	for _, account := range accounts {
		accountInstitution := strings.ToLower(account.Institution)
		switch {
		case institution == accountInstitution:
			exact = append(exact, account)
		case strings.Contains(accountInstitution, institution) || strings.Contains(institution, accountInstitution):
			partial = append(partial, account)
		}
	}

	switch {
	case len(exact) == 1:
		m.logger.Info("Exact institution match", "account", exact[0].AccountName)
		return &exact[0], nil
	case len(exact) > 1:
		m.logger.Warn("Multiple exact institution matches", "count", len(exact))
		return &exact[0], exact[1:]
	case len(partial) > 0:
		m.logger.Warn("Only partial institution matches", "count", len(partial))
		return nil, partial
	}

	m.logger.Warn("No account match", "institution", institution)
	return nil, nil
}

func findByName(accounts []models.InvestmentAccount, targetName string) *models.InvestmentAccount {
	for i := range accounts {
		if strings.Contains(strings.ToLower(accounts[i].AccountName), targetName) {
			return &accounts[i]
		}
	}
	return nil
}
