package posting

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/accounting"
)

// Amounts is the document total broken into the parts that get their own lines.
type Amounts struct {
	Total  decimal.Decimal
	VAT    decimal.Decimal
	Extras decimal.Decimal
	Base   decimal.Decimal
}

// SplitAmounts derives base = total - VAT - extras in minor units. A negative
// base drops extras, then VAT, then falls back to the total itself.
// Base absorbs any rounding residual so the parts always add up to total.
func SplitAmounts(total, vat, extras decimal.Decimal) Amounts {
	a := Amounts{
		Total:  accounting.Round(total),
		VAT:    accounting.Round(vat),
		Extras: accounting.Round(extras),
	}
	a.Base = a.Total.Sub(a.VAT).Sub(a.Extras)
	if a.Base.IsNegative() {
		a.Extras = decimal.Zero
		a.Base = a.Total.Sub(a.VAT)
	}
	if a.Base.IsNegative() {
		a.VAT = decimal.Zero
		a.Base = a.Total
	}
	residual := a.Total.Sub(a.Base.Add(a.VAT).Add(a.Extras))
	a.Base = a.Base.Add(residual)
	return a
}

// FoldExtras moves extras into base when no account can carry them.
func (a Amounts) FoldExtras() Amounts {
	a.Base = a.Base.Add(a.Extras)
	a.Extras = decimal.Zero
	return a
}

// Balance nudges the first debit-bearing line so debits equal credits.
func Balance(lines []accounting.LedgerLine) []accounting.LedgerLine {
	debit, credit := accounting.Totals(lines)
	diff := accounting.Round(credit).Sub(accounting.Round(debit))
	if diff.IsZero() {
		return lines
	}
	for i := range lines {
		if !lines[i].Debit.IsZero() {
			lines[i].Debit = lines[i].Debit.Add(diff)
			break
		}
	}
	return lines
}
