package accounts

import (
	"sort"
	"strings"
	"time"
)

// AccountType enumerates CoA categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// Standard account codes looked up by posting and allocation.
const (
	CodeCash            = "101"
	CodeBank            = "110"
	CodeReceivables     = "135"
	CodeVATPurchases    = "164"
	CodeGoodsPurchases  = "183"
	CodePayables        = "405"
	CodeVATSales        = "440"
	CodeDefaultExpense  = "600"
	CodeGoodsRevenue    = "900"
	CodeServicesRevenue = "904"
)

// Account models a chart of accounts node.
type Account struct {
	ID        int64       `json:"id"`
	ChartID   int64       `json:"chart_id"`
	Code      string      `json:"code"`
	Name      string      `json:"name"`
	Type      AccountType `json:"type"`
	ParentID  *int64      `json:"parent_id,omitempty"`
	IsActive  bool        `json:"is_active"`
	CreatedAt time.Time   `json:"-"`
	UpdatedAt time.Time   `json:"-"`
}

// Chart is the active chart of accounts of one company, indexed by id and code.
type Chart struct {
	ID        int64
	CompanyID int64
	accounts  []Account
	byID      map[int64]int
	byCode    map[string]int
}

// NewChart indexes accounts. Inactive accounts are skipped and the list is ordered by code.
func NewChart(id, companyID int64, list []Account) *Chart {
	c := &Chart{ID: id, CompanyID: companyID, byID: make(map[int64]int), byCode: make(map[string]int)}
	for _, a := range list {
		if !a.IsActive {
			continue
		}
		c.accounts = append(c.accounts, a)
	}
	sort.SliceStable(c.accounts, func(i, j int) bool { return c.accounts[i].Code < c.accounts[j].Code })
	for i, a := range c.accounts {
		c.byID[a.ID] = i
		code := strings.TrimSpace(a.Code)
		if _, dup := c.byCode[code]; !dup {
			c.byCode[code] = i
		}
	}
	return c
}

// ByID returns the account with id.
func (c *Chart) ByID(id int64) (Account, bool) {
	if c == nil {
		return Account{}, false
	}
	i, ok := c.byID[id]
	if !ok {
		return Account{}, false
	}
	return c.accounts[i], true
}

// ByCode returns the account with code.
func (c *Chart) ByCode(code string) (Account, bool) {
	if c == nil {
		return Account{}, false
	}
	i, ok := c.byCode[strings.TrimSpace(code)]
	if !ok {
		return Account{}, false
	}
	return c.accounts[i], true
}

// IDByCode is ByCode returning only the id, zero when absent.
func (c *Chart) IDByCode(code string) int64 {
	a, _ := c.ByCode(code)
	return a.ID
}

// Has reports whether id is an active account of the chart.
func (c *Chart) Has(id int64) bool {
	_, ok := c.ByID(id)
	return ok
}

// First returns the lowest-coded account.
func (c *Chart) First() (Account, bool) {
	if c == nil || len(c.accounts) == 0 {
		return Account{}, false
	}
	return c.accounts[0], true
}

// Accounts returns a copy of the ordered account list.
func (c *Chart) Accounts() []Account {
	if c == nil {
		return nil
	}
	out := make([]Account, len(c.accounts))
	copy(out, c.accounts)
	return out
}

// Len is the number of active accounts.
func (c *Chart) Len() int {
	if c == nil {
		return 0
	}
	return len(c.accounts)
}
