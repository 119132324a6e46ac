// Package journals is the read side of the ledger: entry listings and integrity scans.
package journals

import (
	"context"
	"errors"
	"fmt"

	"github.com/odyssey-erp/odyssey-books/internal/access"
	"github.com/odyssey-erp/odyssey-books/internal/accounting"
	ledgererr "github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

// ListInput identifies the caller and the range.
type ListInput struct {
	TenantID int64
	UserID   int64
	Filter   Filter
}

// Service serves ledger listings and integrity scans.
type Service struct {
	reader Reader
	authz  accounting.Authorizer
}

// NewService constructs the read service.
func NewService(reader Reader, authz accounting.Authorizer) *Service {
	return &Service{reader: reader, authz: authz}
}

// List returns the company's entries in the range ordered by (entry_date, correlativo).
func (s *Service) List(ctx context.Context, in ListInput) ([]accounting.LedgerEntry, error) {
	if err := in.Filter.Validate(); err != nil {
		return nil, err
	}
	if s.authz == nil {
		return nil, ledgererr.Internal(errors.New("journals: authorizer not configured"))
	}
	if _, err := s.authz.Authorize(ctx, access.Request{
		TenantID:   in.TenantID,
		CompanyID:  in.Filter.CompanyID,
		UserID:     in.UserID,
		Permission: shared.PermLedgerView,
	}); err != nil {
		return nil, err
	}
	entries, err := s.reader.Entries(ctx, in.Filter.CompanyID, in.Filter.From, in.Filter.To)
	if err != nil {
		return nil, ledgererr.Internal(fmt.Errorf("journals: list entries: %w", err))
	}
	return entries, nil
}

// Companies lists the companies that carry ledger entries.
func (s *Service) Companies(ctx context.Context) ([]int64, error) {
	return s.reader.CompanyIDs(ctx)
}

// Scan reports integrity issues across the company's active entries.
func (s *Service) Scan(ctx context.Context, companyID int64) ([]Issue, error) {
	totals, err := s.reader.EntryTotals(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("journals: entry totals for company %d: %w", companyID, err)
	}
	return Inspect(companyID, totals), nil
}

// Inspect checks balance and line count per entry and that correlativos run 1..n
// without repeats or holes. Totals must be ordered by correlativo.
func Inspect(companyID int64, totals []EntryTotal) []Issue {
	var issues []Issue
	var prev int64
	for i, t := range totals {
		if !t.Debit.Equal(t.Credit) {
			issues = append(issues, Issue{
				CompanyID:   companyID,
				Kind:        IssueUnbalanced,
				EntryID:     t.EntryID,
				Correlativo: t.Correlativo,
				Detail:      fmt.Sprintf("debit %s credit %s", t.Debit.StringFixed(2), t.Credit.StringFixed(2)),
			})
		}
		if t.Lines < 2 {
			issues = append(issues, Issue{
				CompanyID:   companyID,
				Kind:        IssueTooFewLines,
				EntryID:     t.EntryID,
				Correlativo: t.Correlativo,
				Detail:      fmt.Sprintf("%d lines", t.Lines),
			})
		}
		switch {
		case i > 0 && t.Correlativo == prev:
			issues = append(issues, Issue{
				CompanyID:   companyID,
				Kind:        IssueDuplicateCorrelativo,
				EntryID:     t.EntryID,
				Correlativo: t.Correlativo,
				Detail:      "correlativo repeated",
			})
		case t.Correlativo > prev+1:
			issues = append(issues, Issue{
				CompanyID:   companyID,
				Kind:        IssueCorrelativoGap,
				EntryID:     t.EntryID,
				Correlativo: t.Correlativo,
				Detail:      fmt.Sprintf("missing %d..%d", prev+1, t.Correlativo-1),
			})
		}
		prev = t.Correlativo
	}
	return issues
}
