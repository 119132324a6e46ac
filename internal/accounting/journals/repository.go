package journals

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/odyssey-books/internal/accounting"
	"github.com/odyssey-erp/odyssey-books/internal/platform/db"
)

// Reader is the query surface of the ledger read model.
type Reader interface {
	Entries(ctx context.Context, companyID int64, from, to time.Time) ([]accounting.LedgerEntry, error)
	EntryTotals(ctx context.Context, companyID int64) ([]EntryTotal, error)
	CompanyIDs(ctx context.Context) ([]int64, error)
}

// Repository reads ledger entries from Postgres.
type Repository struct {
	q db.Querier
}

// NewRepository wires the read model to a pool or transaction.
func NewRepository(q db.Querier) *Repository {
	return &Repository{q: q}
}

// Entries returns active and inactive entries in the range ordered by (entry_date, correlativo), lines attached.
func (r *Repository) Entries(ctx context.Context, companyID int64, from, to time.Time) ([]accounting.LedgerEntry, error) {
	rows, err := r.q.Query(ctx, `SELECT id, company_id, correlativo, entry_type, entry_date, source_ref, COALESCE(memo,''), is_active, COALESCE(created_by,0), created_at
FROM ledger_entries
WHERE company_id=$1 AND entry_date BETWEEN $2 AND $3
ORDER BY entry_date, correlativo`, companyID, from, to)
	if err != nil {
		return nil, err
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (accounting.LedgerEntry, error) {
		var e accounting.LedgerEntry
		err := row.Scan(&e.ID, &e.CompanyID, &e.Correlativo, &e.EntryType, &e.EntryDate, &e.SourceRef, &e.Memo, &e.IsActive, &e.CreatedBy, &e.CreatedAt)
		return e, err
	})
	if err != nil || len(entries) == 0 {
		return entries, err
	}

	ids := make([]int64, len(entries))
	index := make(map[int64]int, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
		index[e.ID] = i
	}
	lineRows, err := r.q.Query(ctx, `SELECT id, entry_id, account_id, debit, credit, source_ref
FROM ledger_lines WHERE entry_id = ANY($1) ORDER BY entry_id, id`, ids)
	if err != nil {
		return nil, err
	}
	defer lineRows.Close()
	for lineRows.Next() {
		var l accounting.LedgerLine
		if err := lineRows.Scan(&l.ID, &l.EntryID, &l.AccountID, &l.Debit, &l.Credit, &l.SourceRef); err != nil {
			return nil, err
		}
		i := index[l.EntryID]
		entries[i].Lines = append(entries[i].Lines, l)
	}
	return entries, lineRows.Err()
}

// EntryTotals sums every active entry of the company, ordered by correlativo.
func (r *Repository) EntryTotals(ctx context.Context, companyID int64) ([]EntryTotal, error) {
	rows, err := r.q.Query(ctx, `SELECT e.id, e.correlativo, e.entry_date,
	COALESCE(SUM(l.debit),0), COALESCE(SUM(l.credit),0), COUNT(l.id)
FROM ledger_entries e
LEFT JOIN ledger_lines l ON l.entry_id = e.id
WHERE e.company_id=$1 AND e.is_active
GROUP BY e.id, e.correlativo, e.entry_date
ORDER BY e.correlativo, e.id`, companyID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (EntryTotal, error) {
		var t EntryTotal
		err := row.Scan(&t.EntryID, &t.Correlativo, &t.EntryDate, &t.Debit, &t.Credit, &t.Lines)
		return t, err
	})
}

// CompanyIDs lists companies that own at least one entry.
func (r *Repository) CompanyIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.q.Query(ctx, `SELECT DISTINCT company_id FROM ledger_entries ORDER BY company_id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}
