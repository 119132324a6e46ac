package allocation

import (
	"github.com/odyssey-erp/odyssey-books/internal/accounting"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/accounts"
)

// ExtraRule maps a tax type to the account code that absorbs it.
type ExtraRule struct {
	Tax  accounting.TaxType
	Code string
}

// Policy is the AccountResolutionPolicy: every fallback chain the builders use, as data.
type Policy struct {
	Name                string
	CashCodes           []string
	FirstAvailable      bool
	GoodsPurchasesCode  string
	PurchaseExpenseCode string
	GoodsRevenueCode    string
	ServicesRevenueCode string
	PurchaseCreditCodes []string
	VATSalesCode        string
	VATPurchasesCode    string
	ExtrasPriority      []ExtraRule
}

// DefaultPolicy is the standard chain set for the local chart layout.
func DefaultPolicy() Policy {
	return Policy{
		Name:                "standard",
		CashCodes:           []string{accounts.CodeCash},
		FirstAvailable:      true,
		GoodsPurchasesCode:  accounts.CodeGoodsPurchases,
		PurchaseExpenseCode: accounts.CodeDefaultExpense,
		GoodsRevenueCode:    accounts.CodeGoodsRevenue,
		ServicesRevenueCode: accounts.CodeServicesRevenue,
		PurchaseCreditCodes: []string{accounts.CodeCash, accounts.CodeBank},
		VATSalesCode:        accounts.CodeVATSales,
		VATPurchasesCode:    accounts.CodeVATPurchases,
		ExtrasPriority: []ExtraRule{
			{Tax: accounting.TaxFuel, Code: "441"},
			{Tax: accounting.TaxTourismLodging, Code: "442"},
			{Tax: accounting.TaxTourismTickets, Code: "443"},
			{Tax: accounting.TaxFireBrigade, Code: "444"},
			{Tax: accounting.TaxMunicipal, Code: "445"},
			{Tax: accounting.TaxAlcohol, Code: "446"},
			{Tax: accounting.TaxTobacco, Code: "447"},
			{Tax: accounting.TaxCement, Code: "448"},
			{Tax: accounting.TaxBeverages, Code: "449"},
			{Tax: accounting.TaxStamp, Code: "450"},
			{Tax: accounting.TaxOther, Code: "451"},
		},
	}
}

func preset(chart *accounts.Chart, id *int64) (int64, bool) {
	if id == nil || !chart.Has(*id) {
		return 0, false
	}
	return *id, true
}

func firstCode(chart *accounts.Chart, codes ...string) (int64, bool) {
	for _, code := range codes {
		if code == "" {
			continue
		}
		if a, ok := chart.ByCode(code); ok {
			return a.ID, true
		}
	}
	return 0, false
}

// DebitSale resolves preset debit, then cash, then the first account of the chart.
func (p Policy) DebitSale(doc accounting.Document, chart *accounts.Chart) (int64, bool) {
	if id, ok := preset(chart, doc.DebitAccountID); ok {
		return id, true
	}
	if id, ok := firstCode(chart, p.CashCodes...); ok {
		return id, true
	}
	if p.FirstAvailable {
		if a, ok := chart.First(); ok {
			return a.ID, true
		}
	}
	return 0, false
}

// DebitPurchase resolves the account of a purchase portion. The goods portion
// prefers goods purchases when the document splits goods and services.
func (p Policy) DebitPurchase(doc accounting.Document, chart *accounts.Chart, goods, split bool) (int64, bool) {
	if goods && split {
		if id, ok := firstCode(chart, p.GoodsPurchasesCode); ok {
			return id, true
		}
	}
	return preset(chart, doc.DebitAccountID)
}

// PurchaseFallback resolves the account of the single full-total purchase line.
func (p Policy) PurchaseFallback(doc accounting.Document, chart *accounts.Chart) (int64, bool) {
	if id, ok := preset(chart, doc.DebitAccountID); ok {
		return id, true
	}
	return firstCode(chart, p.PurchaseExpenseCode)
}

// CreditSale resolves preset credit, then goods or services revenue.
func (p Policy) CreditSale(doc accounting.Document, chart *accounts.Chart, goods bool) (int64, bool) {
	if id, ok := preset(chart, doc.CreditAccountID); ok {
		return id, true
	}
	if goods {
		return firstCode(chart, p.GoodsRevenueCode)
	}
	return firstCode(chart, p.ServicesRevenueCode)
}

// CreditPurchase resolves cash, then bank.
func (p Policy) CreditPurchase(chart *accounts.Chart) (int64, bool) {
	return firstCode(chart, p.PurchaseCreditCodes...)
}

// VAT resolves the direction's VAT code, then the document's credit-side account.
func (p Policy) VAT(doc accounting.Document, chart *accounts.Chart) (int64, bool) {
	code := p.VATSalesCode
	if doc.Direction == accounting.DirectionPurchase {
		code = p.VATPurchasesCode
	}
	if id, ok := firstCode(chart, code); ok {
		return id, true
	}
	return preset(chart, doc.CreditAccountID)
}

// Extras walks the priority table; the first non-zero tax whose code resolves wins.
func (p Policy) Extras(doc accounting.Document, chart *accounts.Chart) (int64, bool) {
	for _, rule := range p.ExtrasPriority {
		if doc.Extras.Amount(rule.Tax).IsZero() {
			continue
		}
		if id, ok := firstCode(chart, rule.Code); ok {
			return id, true
		}
	}
	return preset(chart, doc.CreditAccountID)
}
