package mappings

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/odyssey-books/internal/platform/db"
)

// ErrBankAccountNotFound indicates the bank account does not exist for the company.
var ErrBankAccountNotFound = errors.New("mappings: bank account not found")

// Directory resolves bank accounts through a querier, usually the current transaction.
type Directory struct {
	q db.Querier
}

// NewDirectory binds the directory to q.
func NewDirectory(q db.Querier) *Directory {
	return &Directory{q: q}
}

// BankAccount loads the bank account scoped to the company.
func (d *Directory) BankAccount(ctx context.Context, companyID, bankAccountID int64) (BankAccount, error) {
	var b BankAccount
	err := d.q.QueryRow(ctx, `SELECT id, company_id, name, number, ledger_account_id, is_active, created_at, updated_at
FROM bank_accounts WHERE company_id=$1 AND id=$2`, companyID, bankAccountID).
		Scan(&b.ID, &b.CompanyID, &b.Name, &b.Number, &b.LedgerAccountID, &b.IsActive, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BankAccount{}, ErrBankAccountNotFound
		}
		return BankAccount{}, err
	}
	return b, nil
}
