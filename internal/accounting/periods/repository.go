package periods

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-books/internal/platform/db"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

// Store reads and writes fiscal_periods through any pgx querier.
type Store struct {
	q db.Querier
}

// NewStore binds a Store to q, normally a transaction.
func NewStore(q db.Querier) *Store {
	return &Store{q: q}
}

// GetPeriod loads the period row with a share lock so a concurrent toggle waits for the caller's transaction.
func (s *Store) GetPeriod(ctx context.Context, key Key) (Period, bool, error) {
	var p Period
	err := s.q.QueryRow(ctx, `SELECT company_id, year, month, is_closed, closed_at, closed_by, updated_by, updated_at
FROM fiscal_periods WHERE company_id=$1 AND year=$2 AND month=$3 FOR SHARE`, key.CompanyID, key.Year, key.Month).
		Scan(&p.CompanyID, &p.Year, &p.Month, &p.IsClosed, &p.ClosedAt, &p.ClosedBy, &p.UpdatedBy, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return key.Open(), false, nil
		}
		return Period{}, false, fmt.Errorf("periods: load %s: %w", key, err)
	}
	return p, true, nil
}

// UpsertPeriod writes the full lock state for p.
func (s *Store) UpsertPeriod(ctx context.Context, p Period) (Period, error) {
	err := s.q.QueryRow(ctx, `INSERT INTO fiscal_periods (company_id, year, month, is_closed, closed_at, closed_by, updated_by, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())
ON CONFLICT (company_id, year, month) DO UPDATE
SET is_closed=EXCLUDED.is_closed, closed_at=EXCLUDED.closed_at, closed_by=EXCLUDED.closed_by, updated_by=EXCLUDED.updated_by, updated_at=NOW()
RETURNING updated_at`, p.CompanyID, p.Year, p.Month, p.IsClosed, p.ClosedAt, p.ClosedBy, p.UpdatedBy).Scan(&p.UpdatedAt)
	if err != nil {
		return Period{}, fmt.Errorf("periods: upsert %s: %w", Key{p.CompanyID, p.Year, p.Month}, err)
	}
	return p, nil
}

// Repository runs period toggles on a pool.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes fn within a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	if r == nil {
		return errors.New("periods repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txStore{Store: NewStore(tx), tx: tx})
	})
}

type txStore struct {
	*Store
	tx pgx.Tx
}

func (t *txStore) RecordAudit(ctx context.Context, log shared.AuditLog) error {
	return shared.RecordAudit(ctx, t.tx, log)
}
