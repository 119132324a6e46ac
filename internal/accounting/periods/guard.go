package periods

import (
	"context"
	"time"

	ledgererr "github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
)

// Reader looks up a period row. found is false when the month was never toggled.
type Reader interface {
	GetPeriod(ctx context.Context, key Key) (Period, bool, error)
}

// AssertOpen fails with PERIOD_CLOSED when date falls in a closed month of the company.
func AssertOpen(ctx context.Context, r Reader, companyID int64, date time.Time) error {
	if date.IsZero() {
		return ledgererr.Validation("", "posting date required")
	}
	key := KeyFor(companyID, date)
	p, found, err := r.GetPeriod(ctx, key)
	if err != nil {
		return err
	}
	if found && p.IsClosed {
		return ledgererr.ErrPeriodClosed.
			With("company_id", key.CompanyID).
			With("year", key.Year).
			With("month", key.Month)
	}
	return nil
}

// AssertAllOpen checks every date, stopping at the first closed period.
func AssertAllOpen(ctx context.Context, r Reader, companyID int64, dates ...time.Time) error {
	seen := make(map[Key]struct{}, len(dates))
	for _, d := range dates {
		key := KeyFor(companyID, d)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		if err := AssertOpen(ctx, r, companyID, d); err != nil {
			return err
		}
	}
	return nil
}
