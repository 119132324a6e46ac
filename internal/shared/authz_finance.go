package shared

// Ledger permissions checked by the access collaborator.
const (
	PermLedgerView         = "finance.gl.view"
	PermLedgerPost         = "finance.gl.post"
	PermLedgerRectify      = "finance.gl.rectify"
	PermTreasuryRegister   = "finance.treasury.register"
	PermFinancePeriodClose = "finance.period.close"
)

// FinanceScopes lists all permissions related to the ledger.
func FinanceScopes() []string {
	return []string{
		PermLedgerView,
		PermLedgerPost,
		PermLedgerRectify,
		PermTreasuryRegister,
		PermFinancePeriodClose,
	}
}
