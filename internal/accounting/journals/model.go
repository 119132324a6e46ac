package journals

import (
	"time"

	"github.com/shopspring/decimal"

	ledgererr "github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
)

// Filter bounds a ledger listing by entry date, both ends inclusive.
type Filter struct {
	CompanyID int64
	From      time.Time
	To        time.Time
}

// Validate ensures the range is usable.
func (f Filter) Validate() error {
	if f.CompanyID <= 0 {
		return ledgererr.Validation("", "company required")
	}
	if f.From.IsZero() || f.To.IsZero() {
		return ledgererr.Validation("", "from and to dates required")
	}
	if f.To.Before(f.From) {
		return ledgererr.Validation("", "to must not precede from").
			With("from", f.From.Format("2006-01-02")).
			With("to", f.To.Format("2006-01-02"))
	}
	return nil
}

// EntryTotal is the summed debit and credit of one active entry.
type EntryTotal struct {
	EntryID     int64
	Correlativo int64
	EntryDate   time.Time
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Lines       int
}

// IssueKind classifies an integrity finding.
type IssueKind string

const (
	IssueUnbalanced           IssueKind = "UNBALANCED_ENTRY"
	IssueTooFewLines          IssueKind = "TOO_FEW_LINES"
	IssueDuplicateCorrelativo IssueKind = "DUPLICATE_CORRELATIVO"
	IssueCorrelativoGap       IssueKind = "CORRELATIVO_GAP"
)

// Issue is one integrity finding for a company.
type Issue struct {
	CompanyID   int64     `json:"company_id"`
	Kind        IssueKind `json:"kind"`
	EntryID     int64     `json:"entry_id,omitempty"`
	Correlativo int64     `json:"correlativo"`
	Detail      string    `json:"detail"`
}
