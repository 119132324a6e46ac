package accounts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/odyssey-books/internal/platform/db"
)

// Catalog loads charts of accounts through a querier, usually the current transaction.
type Catalog struct {
	q db.Querier
}

// NewCatalog binds the catalog to q.
func NewCatalog(q db.Querier) *Catalog {
	return &Catalog{q: q}
}

// ActiveChart returns the company's active chart. found is false when the company has none.
func (c *Catalog) ActiveChart(ctx context.Context, companyID int64) (*Chart, bool, error) {
	var chartID int64
	err := c.q.QueryRow(ctx, `SELECT id FROM charts WHERE company_id=$1 AND is_active ORDER BY id DESC LIMIT 1`, companyID).Scan(&chartID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	rows, err := c.q.Query(ctx, `SELECT id, chart_id, code, name, type, parent_id, is_active, created_at, updated_at
FROM accounts WHERE chart_id=$1 AND is_active ORDER BY code`, chartID)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()
	var list []Account
	for rows.Next() {
		var a Account
		err := rows.Scan(&a.ID, &a.ChartID, &a.Code, &a.Name, &a.Type, &a.ParentID, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
		if err != nil {
			return nil, false, err
		}
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	return NewChart(chartID, companyID, list), true, nil
}
