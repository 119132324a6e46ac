package posting

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/accounting"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/allocation"
	ledgererr "github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
)

type lineBuilder struct {
	doc        accounting.Document
	chart      *accounts.Chart
	policy     allocation.Policy
	condition  accounting.PaymentCondition
	bankLedger int64
}

func (b lineBuilder) standard(code, errCode string) (int64, error) {
	a, ok := b.chart.ByCode(code)
	if !ok {
		return 0, ledgererr.NotFound(errCode, "standard account "+code+" missing from chart").
			With("code", code).
			With("company_id", b.doc.CompanyID)
	}
	return a.ID, nil
}

func (b lineBuilder) presetOr(id *int64, code string) (int64, bool) {
	if id != nil && b.chart.Has(*id) {
		return *id, true
	}
	a, ok := b.chart.ByCode(code)
	return a.ID, ok
}

func (b lineBuilder) line(accountID int64, debit, credit decimal.Decimal) accounting.LedgerLine {
	return accounting.LedgerLine{AccountID: accountID, Debit: debit, Credit: credit, SourceRef: b.doc.Key}
}

// build assembles the entry for direction x condition. amounts may have extras folded.
func (b lineBuilder) build(amounts Amounts) ([]accounting.LedgerLine, Amounts, error) {
	var extrasAccount int64
	if amounts.Extras.IsPositive() {
		if id, ok := b.policy.Extras(b.doc, b.chart); ok {
			extrasAccount = id
		} else {
			amounts = amounts.FoldExtras()
		}
	}
	if b.doc.Direction == accounting.DirectionPurchase {
		lines, err := b.purchase(amounts, extrasAccount)
		return lines, amounts, err
	}
	lines, err := b.sale(amounts, extrasAccount)
	return lines, amounts, err
}

func (b lineBuilder) sale(amounts Amounts, extrasAccount int64) ([]accounting.LedgerLine, error) {
	var debitAccount int64
	if b.condition == accounting.ConditionCash {
		debitAccount = b.bankLedger
	} else {
		id, err := b.standard(accounts.CodeReceivables, ledgererr.CodeReceivablesAccountNotFound)
		if err != nil {
			return nil, err
		}
		debitAccount = id
	}
	lines := []accounting.LedgerLine{b.line(debitAccount, amounts.Total, decimal.Zero)}

	revenue, err := b.revenue(amounts.Base)
	if err != nil {
		return nil, err
	}
	lines = append(lines, revenue...)
	if amounts.VAT.IsPositive() {
		id, err := b.standard(accounts.CodeVATSales, ledgererr.CodeVATSalesAccountNotFound)
		if err != nil {
			return nil, err
		}
		lines = append(lines, b.line(id, decimal.Zero, amounts.VAT))
	}
	if amounts.Extras.IsPositive() {
		lines = append(lines, b.line(extrasAccount, decimal.Zero, amounts.Extras))
	}
	return lines, nil
}

// revenue credits the preset account, else splits base between goods and services revenue.
func (b lineBuilder) revenue(base decimal.Decimal) ([]accounting.LedgerLine, error) {
	if !base.IsPositive() {
		return nil, nil
	}
	if b.doc.CreditAccountID != nil && b.chart.Has(*b.doc.CreditAccountID) {
		return []accounting.LedgerLine{b.line(*b.doc.CreditAccountID, decimal.Zero, base)}, nil
	}
	goods := b.doc.GoodsAmount
	services := b.doc.ServicesAmount
	notFound := func(code string) error {
		return ledgererr.NotFound(ledgererr.CodeRevenueAccountNotFound, "revenue account missing from chart").
			With("code", code).
			With("company_id", b.doc.CompanyID)
	}
	switch {
	case goods.IsPositive() && services.IsPositive():
		goodsID, ok := b.chart.ByCode(accounts.CodeGoodsRevenue)
		if !ok {
			return nil, notFound(accounts.CodeGoodsRevenue)
		}
		servicesID, ok := b.chart.ByCode(accounts.CodeServicesRevenue)
		if !ok {
			return nil, notFound(accounts.CodeServicesRevenue)
		}
		servicesPart := accounting.Round(base.Mul(services).Div(goods.Add(services)))
		goodsPart := base.Sub(servicesPart)
		var out []accounting.LedgerLine
		if goodsPart.IsPositive() {
			out = append(out, b.line(goodsID.ID, decimal.Zero, goodsPart))
		}
		if servicesPart.IsPositive() {
			out = append(out, b.line(servicesID.ID, decimal.Zero, servicesPart))
		}
		return out, nil
	case services.IsPositive():
		a, ok := b.chart.ByCode(accounts.CodeServicesRevenue)
		if !ok {
			return nil, notFound(accounts.CodeServicesRevenue)
		}
		return []accounting.LedgerLine{b.line(a.ID, decimal.Zero, base)}, nil
	default:
		a, ok := b.chart.ByCode(accounts.CodeGoodsRevenue)
		if !ok {
			return nil, notFound(accounts.CodeGoodsRevenue)
		}
		return []accounting.LedgerLine{b.line(a.ID, decimal.Zero, base)}, nil
	}
}

func (b lineBuilder) purchase(amounts Amounts, extrasAccount int64) ([]accounting.LedgerLine, error) {
	var lines []accounting.LedgerLine
	if amounts.Base.IsPositive() {
		id, ok := b.presetOr(b.doc.DebitAccountID, accounts.CodeDefaultExpense)
		if !ok {
			return nil, ledgererr.NotFound(ledgererr.CodeExpenseAccountNotFound, "expense account missing from chart").
				With("code", accounts.CodeDefaultExpense).
				With("company_id", b.doc.CompanyID)
		}
		lines = append(lines, b.line(id, amounts.Base, decimal.Zero))
	}
	if amounts.VAT.IsPositive() {
		id, err := b.standard(accounts.CodeVATPurchases, ledgererr.CodeVATPurchasesAccountNotFound)
		if err != nil {
			return nil, err
		}
		lines = append(lines, b.line(id, amounts.VAT, decimal.Zero))
	}
	if amounts.Extras.IsPositive() {
		lines = append(lines, b.line(extrasAccount, amounts.Extras, decimal.Zero))
	}

	var creditAccount int64
	if b.condition == accounting.ConditionCash {
		creditAccount = b.bankLedger
	} else {
		id, err := b.standard(accounts.CodePayables, ledgererr.CodePayablesAccountNotFound)
		if err != nil {
			return nil, err
		}
		creditAccount = id
	}
	return append(lines, b.line(creditAccount, decimal.Zero, amounts.Total)), nil
}
