package mappings

import "time"

// BankAccount is a company bank account and the ledger account it posts to.
type BankAccount struct {
	ID              int64     `json:"id"`
	CompanyID       int64     `json:"company_id"`
	Name            string    `json:"name"`
	Number          string    `json:"number"`
	LedgerAccountID *int64    `json:"ledger_account_id,omitempty"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"-"`
	UpdatedAt       time.Time `json:"-"`
}

// Mapped reports whether the bank account can be posted against.
func (b BankAccount) Mapped() bool {
	return b.IsActive && b.LedgerAccountID != nil && *b.LedgerAccountID > 0
}
