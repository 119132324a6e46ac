package ledgertest

import (
	"context"
	"sort"

	"github.com/odyssey-erp/odyssey-books/internal/access"
	"github.com/odyssey-erp/odyssey-books/internal/accounting"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/mappings"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/periods"
	ledgererr "github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

// Account ids of StandardChart.
const (
	AccCash            int64 = 1
	AccBank            int64 = 2
	AccReceivables     int64 = 3
	AccVATPurchases    int64 = 4
	AccGoodsPurchases  int64 = 5
	AccPayables        int64 = 6
	AccVATSales        int64 = 7
	AccDefaultExpense  int64 = 8
	AccGoodsRevenue    int64 = 9
	AccServicesRevenue int64 = 10
	AccFuelTax         int64 = 11
	AccStampTax        int64 = 12
	AccBankLedger      int64 = 13
	AccAltExpense      int64 = 14
	AccAltRevenue      int64 = 15
)

// StandardChart builds a chart carrying every standard code plus a few extras.
func StandardChart(companyID int64) []accounts.Account {
	return []accounts.Account{
		{ID: AccCash, Code: accounts.CodeCash, Name: "Cash", Type: accounts.AccountTypeAsset, IsActive: true},
		{ID: AccBank, Code: accounts.CodeBank, Name: "Banks", Type: accounts.AccountTypeAsset, IsActive: true},
		{ID: AccReceivables, Code: accounts.CodeReceivables, Name: "Receivables", Type: accounts.AccountTypeAsset, IsActive: true},
		{ID: AccVATPurchases, Code: accounts.CodeVATPurchases, Name: "VAT purchases", Type: accounts.AccountTypeAsset, IsActive: true},
		{ID: AccGoodsPurchases, Code: accounts.CodeGoodsPurchases, Name: "Goods purchases", Type: accounts.AccountTypeAsset, IsActive: true},
		{ID: AccPayables, Code: accounts.CodePayables, Name: "Payables", Type: accounts.AccountTypeLiability, IsActive: true},
		{ID: AccVATSales, Code: accounts.CodeVATSales, Name: "VAT sales", Type: accounts.AccountTypeLiability, IsActive: true},
		{ID: AccDefaultExpense, Code: accounts.CodeDefaultExpense, Name: "Expenses", Type: accounts.AccountTypeExpense, IsActive: true},
		{ID: AccGoodsRevenue, Code: accounts.CodeGoodsRevenue, Name: "Goods revenue", Type: accounts.AccountTypeRevenue, IsActive: true},
		{ID: AccServicesRevenue, Code: accounts.CodeServicesRevenue, Name: "Services revenue", Type: accounts.AccountTypeRevenue, IsActive: true},
		{ID: AccFuelTax, Code: "441", Name: "Fuel tax", Type: accounts.AccountTypeLiability, IsActive: true},
		{ID: AccStampTax, Code: "450", Name: "Stamp tax", Type: accounts.AccountTypeLiability, IsActive: true},
		{ID: AccBankLedger, Code: "111", Name: "Bank operating", Type: accounts.AccountTypeAsset, IsActive: true},
		{ID: AccAltExpense, Code: "610", Name: "Services expense", Type: accounts.AccountTypeExpense, IsActive: true},
		{ID: AccAltRevenue, Code: "910", Name: "Other revenue", Type: accounts.AccountTypeRevenue, IsActive: true},
	}
}

// SetChart installs the active chart of a company.
func (s *Store) SetChart(companyID int64, list []accounts.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version++
	s.st.charts[companyID] = accounts.NewChart(companyID, companyID, list)
}

// AddBankAccount registers a bank account.
func (s *Store) AddBankAccount(b mappings.BankAccount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version++
	s.st.banks[b.ID] = b
}

// AddDocument stores a document, assigning an id when missing.
func (s *Store) AddDocument(d accounting.Document) accounting.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version++
	if d.ID == 0 {
		d.ID = s.st.id()
	}
	s.st.documents[d.ID] = d
	return d
}

// SetPeriod writes a period row directly.
func (s *Store) SetPeriod(p periods.Period) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version++
	s.st.periods[periods.Key{CompanyID: p.CompanyID, Year: p.Year, Month: p.Month}] = p
}

// Document returns the stored document.
func (s *Store) Document(id int64) (accounting.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.st.documents[id]
	return d, ok
}

// Entries returns the company's entries with lines, ordered by correlativo.
func (s *Store) Entries(companyID int64) []accounting.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []accounting.LedgerEntry
	for _, e := range s.st.entries {
		if e.CompanyID != companyID {
			continue
		}
		for _, l := range s.st.lines {
			if l.EntryID == e.ID {
				e.Lines = append(e.Lines, l)
			}
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Correlativo < out[j].Correlativo })
	return out
}

// Lines returns every stored line.
func (s *Store) Lines() []accounting.LedgerLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]accounting.LedgerLine(nil), s.st.lines...)
}

// AddEntry stores a pre-existing entry with its lines, bypassing the services.
func (s *Store) AddEntry(e accounting.LedgerEntry) accounting.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version++
	e.ID = s.st.id()
	for _, l := range e.Lines {
		l.ID = s.st.id()
		l.EntryID = e.ID
		s.st.lines = append(s.st.lines, l)
	}
	e.Lines = nil
	s.st.entries = append(s.st.entries, e)
	return e
}

// AddBankMovement stores a pre-existing bank movement.
func (s *Store) AddBankMovement(m accounting.BankMovement) accounting.BankMovement {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version++
	m.ID = s.st.id()
	s.st.movements = append(s.st.movements, m)
	return m
}

// BankMovements returns every stored bank movement.
func (s *Store) BankMovements() []accounting.BankMovement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]accounting.BankMovement(nil), s.st.movements...)
}

// TreasuryMovements returns every stored collection or payment.
func (s *Store) TreasuryMovements() []accounting.TreasuryMovement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]accounting.TreasuryMovement(nil), s.st.treasury...)
}

// Applications returns every stored application.
func (s *Store) Applications() []accounting.Application {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]accounting.Application(nil), s.st.applications...)
}

// Audits returns the audit trail.
func (s *Store) Audits() []shared.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]shared.AuditLog(nil), s.st.audits...)
}

// Counter returns the last correlativo handed out for the company.
func (s *Store) Counter(companyID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.counters[companyID]
}

// Authorizer grants every request for known companies unless the permission is denied.
type Authorizer struct {
	Companies map[int64]access.Company
	Denied    map[string]bool
}

// NewAuthorizer registers one company with the given accounting mode.
func NewAuthorizer(tenantID, companyID int64, mode accounting.AccountingMode) *Authorizer {
	return &Authorizer{
		Companies: map[int64]access.Company{
			companyID: {ID: companyID, TenantID: tenantID, Name: "Test Co", AccountingMode: string(mode), IsActive: true},
		},
		Denied: map[string]bool{},
	}
}

// Authorize implements accounting.Authorizer.
func (a *Authorizer) Authorize(_ context.Context, req access.Request) (access.Grant, error) {
	if req.UserID <= 0 {
		return access.Grant{}, ledgererr.Unauthorized("authenticated user required")
	}
	company, ok := a.Companies[req.CompanyID]
	if !ok || company.TenantID != req.TenantID {
		return access.Grant{}, ledgererr.NotFound("", "company not found")
	}
	if a.Denied[req.Permission] {
		return access.Grant{}, ledgererr.Forbidden("permission denied")
	}
	return access.Grant{ActorID: req.UserID, Permission: req.Permission, Company: company}, nil
}
