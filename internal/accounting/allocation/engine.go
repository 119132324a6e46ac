// Package allocation proposes candidate ledger lines for a document before it is persisted.
package allocation

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/accounting"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/accounts"
)

// Role labels what a candidate line represents.
type Role string

const (
	RoleDebit  Role = "DEBIT"
	RoleCredit Role = "CREDIT"
	RoleVAT    Role = "VAT"
	RoleExtras Role = "EXTRAS"
)

// Line is a candidate ledger line.
type Line struct {
	Role      Role            `json:"role"`
	AccountID int64           `json:"account_id"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
}

func (l Line) amount() decimal.Decimal {
	return l.Debit.Add(l.Credit)
}

// Valid reports whether the line has an account and a non-zero amount.
func (l Line) Valid() bool {
	return l.AccountID != 0 && !l.amount().IsZero()
}

// Result is the outcome of Allocate.
type Result struct {
	Policy   string          `json:"policy"`
	Lines    []Line          `json:"lines"`
	Debit    decimal.Decimal `json:"debit"`
	Credit   decimal.Decimal `json:"credit"`
	Balanced bool            `json:"balanced"`
}

// Engine runs the builders under one policy.
type Engine struct {
	policy Policy
}

// NewEngine constructs an engine for policy.
func NewEngine(policy Policy) *Engine {
	return &Engine{policy: policy}
}

// Policy returns the policy in use.
func (e *Engine) Policy() Policy {
	return e.policy
}

// Allocate runs every builder and keeps the valid lines only.
func (e *Engine) Allocate(doc accounting.Document, chart *accounts.Chart) Result {
	res := Result{Policy: e.policy.Name, Debit: decimal.Zero, Credit: decimal.Zero}
	if doc.ValidateAmounts() != nil {
		return res
	}
	var candidates []Line
	if lines, ok := e.DebitLines(doc, chart); ok {
		candidates = append(candidates, lines...)
	}
	if lines, ok := e.CreditLines(doc, chart); ok {
		candidates = append(candidates, lines...)
	}
	if lines, ok := e.VATLine(doc, chart); ok {
		candidates = append(candidates, lines...)
	}
	if lines, ok := e.ExtrasLine(doc, chart); ok {
		candidates = append(candidates, lines...)
	}
	for _, l := range candidates {
		if !l.Valid() {
			continue
		}
		res.Lines = append(res.Lines, l)
		res.Debit = res.Debit.Add(l.Debit)
		res.Credit = res.Credit.Add(l.Credit)
	}
	res.Balanced = len(res.Lines) > 0 && res.Debit.Equal(res.Credit)
	return res
}

// DebitLines builds the debit side of the document's own leg.
func (e *Engine) DebitLines(doc accounting.Document, chart *accounts.Chart) ([]Line, bool) {
	if doc.Direction == accounting.DirectionPurchase {
		return e.debitPurchase(doc, chart)
	}
	return e.debitSale(doc, chart)
}

func (e *Engine) debitSale(doc accounting.Document, chart *accounts.Chart) ([]Line, bool) {
	total := accounting.Round(doc.Total)
	if total.IsZero() {
		return nil, false
	}
	id, ok := e.policy.DebitSale(doc, chart)
	if !ok {
		return nil, false
	}
	return []Line{debit(RoleDebit, id, total)}, true
}

func (e *Engine) debitPurchase(doc accounting.Document, chart *accounts.Chart) ([]Line, bool) {
	services := accounting.Round(doc.ServicesAmount)
	goods := accounting.Round(doc.GoodsAmount)
	split := !services.IsZero() && !goods.IsZero()
	var lines []Line
	if !services.IsZero() {
		if id, ok := e.policy.DebitPurchase(doc, chart, false, split); ok {
			lines = append(lines, debit(RoleDebit, id, services))
		}
	}
	if !goods.IsZero() {
		if id, ok := e.policy.DebitPurchase(doc, chart, true, split); ok {
			lines = append(lines, debit(RoleDebit, id, goods))
		}
	}
	if len(lines) > 0 {
		return lines, true
	}
	total := accounting.Round(doc.Total)
	if !total.IsPositive() {
		return nil, false
	}
	id, ok := e.policy.PurchaseFallback(doc, chart)
	if !ok {
		return nil, false
	}
	return []Line{debit(RoleDebit, id, total)}, true
}

// CreditLines builds the opposite leg. When the candidates exceed the total
// they collapse to the first candidate alone.
func (e *Engine) CreditLines(doc accounting.Document, chart *accounts.Chart) ([]Line, bool) {
	total := accounting.Round(doc.Total)
	var lines []Line
	if doc.Direction == accounting.DirectionPurchase {
		if total.IsZero() {
			return nil, false
		}
		id, ok := e.policy.CreditPurchase(chart)
		if !ok {
			return nil, false
		}
		lines = append(lines, credit(RoleCredit, id, total))
	} else {
		goods := accounting.Round(doc.GoodsAmount)
		services := accounting.Round(doc.ServicesAmount)
		if !goods.IsZero() {
			if id, ok := e.policy.CreditSale(doc, chart, true); ok {
				lines = append(lines, credit(RoleCredit, id, goods))
			}
		}
		if !services.IsZero() {
			if id, ok := e.policy.CreditSale(doc, chart, false); ok {
				lines = append(lines, credit(RoleCredit, id, services))
			}
		}
		if len(lines) == 0 && total.IsPositive() {
			if id, ok := e.policy.CreditSale(doc, chart, true); ok {
				lines = append(lines, credit(RoleCredit, id, total))
			}
		}
	}
	if len(lines) == 0 {
		return nil, false
	}
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Credit)
	}
	if sum.GreaterThan(total) {
		lines = lines[:1]
	}
	return lines, true
}

// VATLine is a debit on purchases and a credit on sales.
func (e *Engine) VATLine(doc accounting.Document, chart *accounts.Chart) ([]Line, bool) {
	amount := accounting.Round(doc.VAT)
	id, ok := e.policy.VAT(doc, chart)
	if !ok || amount.IsZero() {
		return nil, false
	}
	return []Line{taxLine(doc, RoleVAT, id, amount)}, true
}

// ExtrasLine sums the itemized taxes into one line on the VAT side.
func (e *Engine) ExtrasLine(doc accounting.Document, chart *accounts.Chart) ([]Line, bool) {
	amount := accounting.Round(doc.Extras.Sum())
	id, ok := e.policy.Extras(doc, chart)
	if !ok || amount.IsZero() {
		return nil, false
	}
	return []Line{taxLine(doc, RoleExtras, id, amount)}, true
}

func taxLine(doc accounting.Document, role Role, id int64, amount decimal.Decimal) Line {
	if doc.Direction == accounting.DirectionPurchase {
		return debit(role, id, amount)
	}
	return credit(role, id, amount)
}

func debit(role Role, id int64, amount decimal.Decimal) Line {
	return Line{Role: role, AccountID: id, Debit: amount, Credit: decimal.Zero}
}

func credit(role Role, id int64, amount decimal.Decimal) Line {
	return Line{Role: role, AccountID: id, Debit: decimal.Zero, Credit: amount}
}
