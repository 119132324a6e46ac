package sequence

import (
	"context"

	"github.com/odyssey-erp/odyssey-books/internal/platform/db"
)

const nextSQL = `INSERT INTO ledger_sequences (company_id, last_value, updated_at)
SELECT $1, COALESCE(MAX(correlativo), 0) + 1, NOW() FROM ledger_entries WHERE company_id = $1
ON CONFLICT (company_id) DO UPDATE
SET last_value = ledger_sequences.last_value + 1, updated_at = NOW()
RETURNING last_value`

// PgStore allocates from the ledger_sequences counter row.
type PgStore struct {
	q db.Querier
}

// NewPgStore binds the store to a transaction.
func NewPgStore(q db.Querier) *PgStore {
	return &PgStore{q: q}
}

// NextCorrelativo upserts the counter row. The first call seeds it from existing entries.
func (s *PgStore) NextCorrelativo(ctx context.Context, companyID int64) (int64, error) {
	var n int64
	if err := s.q.QueryRow(ctx, nextSQL, companyID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
