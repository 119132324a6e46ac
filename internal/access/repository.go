package access

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates that the requested record does not exist.
var ErrNotFound = errors.New("access: not found")

// Store exposes the identity lookups Authorize depends on.
type Store interface {
	CompanyByID(ctx context.Context, companyID int64) (Company, error)
	UserActive(ctx context.Context, userID int64) (bool, error)
	Permissions(ctx context.Context, userID, companyID int64) ([]string, error)
}

// Repository implements Store on Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CompanyByID loads a company regardless of tenant; callers compare TenantID.
func (r *Repository) CompanyByID(ctx context.Context, companyID int64) (Company, error) {
	var c Company
	err := r.pool.QueryRow(ctx, `SELECT id, tenant_id, name, accounting_mode, is_active FROM companies WHERE id=$1`, companyID).
		Scan(&c.ID, &c.TenantID, &c.Name, &c.AccountingMode, &c.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Company{}, ErrNotFound
		}
		return Company{}, err
	}
	return c, nil
}

// UserActive reports whether the user exists and is enabled.
func (r *Repository) UserActive(ctx context.Context, userID int64) (bool, error) {
	var active bool
	err := r.pool.QueryRow(ctx, `SELECT is_active FROM users WHERE id=$1`, userID).Scan(&active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return active, nil
}

// Permissions returns the distinct permission names granted to the user on the company.
func (r *Repository) Permissions(ctx context.Context, userID, companyID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT rp.permission
FROM company_users cu
JOIN role_permissions rp ON rp.role_id = cu.role_id
WHERE cu.user_id=$1 AND cu.company_id=$2
ORDER BY rp.permission`, userID, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}
