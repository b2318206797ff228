package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelacruz/fintrack-api/internal/models"
	"github.com/avelacruz/fintrack-api/internal/parser"
	"github.com/avelacruz/fintrack-api/internal/utils"
)

func testMatcher() *Matcher {
	return New(utils.NewLogger("error"))
}

func testAccounts() []models.InvestmentAccount {
	return []models.InvestmentAccount{
		{ID: 1, AccountName: "Schwab Roth IRA", Institution: "schwab", AccountType: models.AccountTypeRothIRA},
		{ID: 2, AccountName: "Schwab Brokerage", Institution: "schwab", AccountType: models.AccountTypeBrokerage},
		{ID: 3, AccountName: "Wealthfront Investment", Institution: "wealthfront", AccountType: models.AccountTypeBrokerage},
		{ID: 4, AccountName: "Wealthfront Cash", Institution: "wealthfront", AccountType: models.AccountTypeCash},
		{ID: 5, AccountName: "Acorns Invest", Institution: "acorns", AccountType: models.AccountTypeBrokerage},
		{ID: 6, AccountName: "Robinhood Trading", Institution: "robinhood", AccountType: models.AccountTypeBrokerage},
	}
}

func TestMatchSchwabRothBeatsBrokerage(t *testing.T) {
	data := parser.StatementData{Institution: parser.InstitutionSchwab, AccountType: "Roth Contributory IRA Brokerage"}

	account, suggestions := testMatcher().Match(data, testAccounts())

	require.NotNil(t, account)
	assert.Equal(t, int64(1), account.ID)
	assert.Nil(t, suggestions)
}

func TestMatchSchwabBrokerage(t *testing.T) {
	data := parser.StatementData{Institution: parser.InstitutionSchwab, AccountType: "Brokerage Account"}

	account, suggestions := testMatcher().Match(data, testAccounts())

	require.NotNil(t, account)
	assert.Equal(t, int64(2), account.ID)
	assert.Nil(t, suggestions)
}

func TestMatchWealthfrontInvestmentVsCash(t *testing.T) {
	m := testMatcher()
	accounts := testAccounts()

	investment, _ := m.Match(parser.StatementData{
		Institution: parser.InstitutionWealthfront,
		AccountType: "Individual Investment Account",
	}, accounts)
	require.NotNil(t, investment)
	assert.Equal(t, int64(3), investment.ID)

	cash, _ := m.Match(parser.StatementData{
		Institution: parser.InstitutionWealthfront,
		AccountType: "Cash Account",
	}, accounts)
	require.NotNil(t, cash)
	assert.Equal(t, int64(4), cash.ID)
}

func TestMatchInstitutionOnlyRules(t *testing.T) {
	m := testMatcher()
	accounts := testAccounts()

	// Acorns and Robinhood each map to a single account regardless of the
	// parsed account type.
	acorns, _ := m.Match(parser.StatementData{Institution: parser.InstitutionAcorns, AccountType: "anything"}, accounts)
	require.NotNil(t, acorns)
	assert.Equal(t, int64(5), acorns.ID)

	robinhood, _ := m.Match(parser.StatementData{Institution: parser.InstitutionRobinhood}, accounts)
	require.NotNil(t, robinhood)
	assert.Equal(t, int64(6), robinhood.ID)
}

func TestMatchExactInstitutionFallback(t *testing.T) {
	accounts := []models.InvestmentAccount{
		{ID: 10, AccountName: "My Retirement", Institution: "adp"},
	}
	data := parser.StatementData{Institution: parser.InstitutionADP, AccountType: "401(k) Plan"}

	account, suggestions := testMatcher().Match(data, accounts)

	require.NotNil(t, account)
	assert.Equal(t, int64(10), account.ID)
	assert.Nil(t, suggestions)
}

func TestMatchMultipleExactMatchesSuggestsRest(t *testing.T) {
	accounts := []models.InvestmentAccount{
		{ID: 10, AccountName: "ADP Primary", Institution: "adp"},
		{ID: 11, AccountName: "ADP Rollover", Institution: "adp"},
	}
	data := parser.StatementData{Institution: parser.InstitutionADP}

	account, suggestions := testMatcher().Match(data, accounts)

	require.NotNil(t, account)
	assert.Equal(t, int64(10), account.ID)
	require.Len(t, suggestions, 1)
	assert.Equal(t, int64(11), suggestions[0].ID)
}

func TestMatchPartialInstitutionSuggestsOnly(t *testing.T) {
	accounts := []models.InvestmentAccount{
		{ID: 20, AccountName: "Old 401k", Institution: "adp retirement services"},
	}
	data := parser.StatementData{Institution: parser.InstitutionADP}

	account, suggestions := testMatcher().Match(data, accounts)

	assert.Nil(t, account)
	require.Len(t, suggestions, 1)
	assert.Equal(t, int64(20), suggestions[0].ID)
}

func TestMatchNoInstitution(t *testing.T) {
	account, suggestions := testMatcher().Match(parser.StatementData{}, testAccounts())

	assert.Nil(t, account)
	assert.Nil(t, suggestions)
}

func TestMatchNoCandidates(t *testing.T) {
	data := parser.StatementData{Institution: parser.InstitutionSchwab, AccountType: "Brokerage Account"}

	account, suggestions := testMatcher().Match(data, nil)

	assert.Nil(t, account)
	assert.Nil(t, suggestions)
}

func TestMatchRuleSkippedWhenNamedAccountMissing(t *testing.T) {
	// Schwab roth statement but no roth account on file; the brokerage rule
	// does not fire for a roth account type, so the fallback resolves it.
	accounts := []models.InvestmentAccount{
		{ID: 2, AccountName: "Schwab Brokerage", Institution: "schwab"},
	}
	data := parser.StatementData{Institution: parser.InstitutionSchwab, AccountType: "Roth IRA"}

	account, suggestions := testMatcher().Match(data, accounts)

	require.NotNil(t, account)
	assert.Equal(t, int64(2), account.ID)
	assert.Nil(t, suggestions)
}
