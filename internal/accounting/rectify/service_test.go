package rectify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-books/internal/accounting"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/ledgertest"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/periods"
	ledgererr "github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

const (
	tenantID  int64 = 1
	companyID int64 = 10
	userID    int64 = 7
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func setup(t *testing.T) (*ledgertest.Store, *ledgertest.Authorizer, *Service) {
	t.Helper()
	store := ledgertest.NewStore()
	store.SetChart(companyID, ledgertest.StandardChart(companyID))
	authz := ledgertest.NewAuthorizer(tenantID, companyID, accounting.ModeAccrual)
	svc := NewService(store, authz)
	svc.WithNow(func() time.Time { return day(2025, 6, 30) })
	return store, authz, svc
}

// postedSale stores a sale with its entry and a bank movement linked by document id.
func postedSale(store *ledgertest.Store, key, external string) accounting.Document {
	entry := store.AddEntry(accounting.LedgerEntry{
		CompanyID:   companyID,
		Correlativo: 1,
		EntryType:   accounting.EntrySale,
		EntryDate:   day(2025, 5, 14),
		SourceRef:   key,
		IsActive:    true,
		Lines: []accounting.LedgerLine{
			{AccountID: ledgertest.AccReceivables, Debit: dec("112"), Credit: decimal.Zero, SourceRef: key},
			{AccountID: ledgertest.AccGoodsRevenue, Debit: decimal.Zero, Credit: dec("100"), SourceRef: key},
			{AccountID: ledgertest.AccVATSales, Debit: decimal.Zero, Credit: dec("12"), SourceRef: key},
		},
	})
	doc := store.AddDocument(accounting.Document{
		CompanyID:        companyID,
		Key:              key,
		ExternalID:       external,
		Direction:        accounting.DirectionSale,
		PaymentCondition: accounting.ConditionCredit,
		IssuedOn:         day(2025, 5, 14),
		Total:            dec("112"),
		VAT:              dec("12"),
		IsActive:         true,
		LedgerEntryID:    accounting.Int64Ptr(entry.ID),
	})
	store.AddBankMovement(accounting.BankMovement{
		CompanyID:    companyID,
		DocumentID:   accounting.Int64Ptr(doc.ID),
		SourceRef:    "other-ref",
		Direction:    accounting.BankDebit,
		Amount:       dec("112"),
		MovementDate: day(2025, 5, 14),
		IsActive:     true,
	})
	return doc
}

func rectify(svc *Service, patch Patch, keys ...string) (Result, error) {
	return svc.Rectify(context.Background(), Input{
		TenantID:     tenantID,
		CompanyID:    companyID,
		UserID:       userID,
		DocumentKeys: keys,
		Patch:        patch,
	})
}

func TestScenarioDDualAmountLineKeepsCreditAccount(t *testing.T) {
	store, _, svc := setup(t)
	store.AddEntry(accounting.LedgerEntry{
		CompanyID:   companyID,
		Correlativo: 1,
		EntryType:   accounting.EntrySale,
		SourceRef:   "D-1",
		IsActive:    true,
		Lines: []accounting.LedgerLine{
			{AccountID: ledgertest.AccCash, Debit: dec("10"), Credit: dec("10"), SourceRef: "D-1"},
		},
	})
	store.AddDocument(accounting.Document{CompanyID: companyID, Key: "D-1", IssuedOn: day(2025, 5, 1), IsActive: true})

	res, err := rectify(svc, Patch{
		DebitAccountID:  accounting.Int64Ptr(ledgertest.AccAltExpense),
		CreditAccountID: accounting.Int64Ptr(ledgertest.AccAltRevenue),
	}, "D-1")
	require.NoError(t, err)
	require.Equal(t, int64(1), res.Lines, "the line counts once even though both rules touched it")

	lines := store.Lines()
	require.Len(t, lines, 1)
	require.Equal(t, ledgertest.AccAltRevenue, lines[0].AccountID)
}

func TestRectifyReassignsByLineSide(t *testing.T) {
	store, _, svc := setup(t)
	doc := postedSale(store, "S-1", "EXT-1")

	res, err := rectify(svc, Patch{
		DebitAccountID:   accounting.Int64Ptr(ledgertest.AccBankLedger),
		CreditAccountID:  accounting.Int64Ptr(ledgertest.AccServicesRevenue),
		CreditOverrideID: accounting.Int64Ptr(ledgertest.AccAltRevenue),
	}, "S-1")
	require.NoError(t, err)
	require.Equal(t, Result{Documents: 1, Lines: 3}, res)

	lines := store.Entries(companyID)[0].Lines
	require.Equal(t, ledgertest.AccBankLedger, lines[0].AccountID)
	require.Equal(t, ledgertest.AccAltRevenue, lines[1].AccountID)
	require.Equal(t, ledgertest.AccAltRevenue, lines[2].AccountID)

	stored, _ := store.Document(doc.ID)
	require.Equal(t, ledgertest.AccBankLedger, *stored.DebitAccountID)
	require.Equal(t, ledgertest.AccServicesRevenue, *stored.CreditAccountID, "the override only moves lines")
}

func TestRectifyDateAndActiveFlag(t *testing.T) {
	store, _, svc := setup(t)
	doc := postedSale(store, "S-1", "EXT-1")
	inactive := false
	newDate := day(2025, 5, 28)

	res, err := rectify(svc, Patch{NewDate: &newDate, Active: &inactive}, "EXT-1")
	require.NoError(t, err)
	require.Equal(t, Result{Documents: 1, Entries: 1, BankMovements: 1}, res)

	stored, _ := store.Document(doc.ID)
	require.False(t, stored.IsActive)
	require.True(t, stored.IssuedOn.Equal(newDate))
	entry := store.Entries(companyID)[0]
	require.False(t, entry.IsActive)
	require.True(t, entry.EntryDate.Equal(newDate))
	movement := store.BankMovements()[0]
	require.False(t, movement.IsActive)
	require.True(t, movement.MovementDate.Equal(newDate))

	audits := store.Audits()
	require.Len(t, audits, 1)
	require.Equal(t, "ledger.rectify", audits[0].Action)
	require.Equal(t, "2025-05-28", audits[0].Meta["new_date"])
}

func TestRectifyLeavesTreasuryArtifactsAlone(t *testing.T) {
	store, _, svc := setup(t)
	postedSale(store, "S-1", "")
	collection := store.AddEntry(accounting.LedgerEntry{
		CompanyID:   companyID,
		Correlativo: 2,
		EntryType:   accounting.EntryCollection,
		EntryDate:   day(2025, 5, 20),
		SourceRef:   "S-1",
		IsActive:    true,
		Lines: []accounting.LedgerLine{
			{AccountID: ledgertest.AccBankLedger, Debit: dec("112"), Credit: decimal.Zero, SourceRef: "S-1"},
			{AccountID: ledgertest.AccReceivables, Debit: decimal.Zero, Credit: dec("112"), SourceRef: "S-1"},
		},
	})
	store.AddBankMovement(accounting.BankMovement{
		CompanyID:     companyID,
		LedgerEntryID: accounting.Int64Ptr(collection.ID),
		SourceRef:     "S-1",
		Direction:     accounting.BankDebit,
		Amount:        dec("112"),
		MovementDate:  day(2025, 5, 20),
		IsActive:      true,
	})
	inactive := false

	res, err := rectify(svc, Patch{Active: &inactive, DebitAccountID: accounting.Int64Ptr(ledgertest.AccCash)}, "S-1")
	require.NoError(t, err)
	require.Equal(t, Result{Documents: 1, Lines: 1, Entries: 1, BankMovements: 1}, res)

	entries := store.Entries(companyID)
	require.False(t, entries[0].IsActive)
	require.True(t, entries[1].IsActive)
	require.Equal(t, ledgertest.AccBankLedger, entries[1].Lines[0].AccountID)
	movements := store.BankMovements()
	require.False(t, movements[0].IsActive)
	require.True(t, movements[1].IsActive)
}

func TestRectifyValidation(t *testing.T) {
	store, _, svc := setup(t)
	active := true
	cases := []struct {
		name  string
		keys  []string
		patch Patch
		code  string
	}{
		{"no keys", nil, Patch{Active: &active}, ledgererr.CodeValidation},
		{"blank key", []string{" "}, Patch{Active: &active}, ledgererr.CodeValidation},
		{"duplicate keys", []string{"A", "A"}, Patch{Active: &active}, ledgererr.CodeDuplicateKeys},
		{"empty patch", []string{"A"}, Patch{}, ledgererr.CodeValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := rectify(svc, tc.patch, tc.keys...)
			require.Equal(t, tc.code, ledgererr.CodeOf(err))
		})
	}
	require.Zero(t, store.Transactions())
}

func TestRectifyListsMissingKeys(t *testing.T) {
	store, _, svc := setup(t)
	postedSale(store, "S-1", "EXT-1")
	active := false

	_, err := rectify(svc, Patch{Active: &active}, "S-1", "S-9", "EXT-7")
	require.ErrorIs(t, err, ledgererr.ErrDocumentsNotFound)
	e, ok := ledgererr.As(err)
	require.True(t, ok)
	require.Equal(t, []string{"EXT-7", "S-9"}, e.Context["document_keys"])

	stored := store.Entries(companyID)[0]
	require.True(t, stored.IsActive)
}

func TestRectifyGuardsCurrentAndNewPeriods(t *testing.T) {
	store, _, svc := setup(t)
	postedSale(store, "S-1", "")

	store.SetPeriod(periods.Period{CompanyID: companyID, Year: 2025, Month: 7, IsClosed: true})
	target := day(2025, 7, 3)
	_, err := rectify(svc, Patch{NewDate: &target}, "S-1")
	require.ErrorIs(t, err, ledgererr.ErrPeriodClosed)

	store.SetPeriod(periods.Period{CompanyID: companyID, Year: 2025, Month: 5, IsClosed: true})
	active := false
	_, err = rectify(svc, Patch{Active: &active}, "S-1")
	require.ErrorIs(t, err, ledgererr.ErrPeriodClosed)
	require.Empty(t, store.Audits())
}

func TestRectifyRequiresChartAccounts(t *testing.T) {
	store, _, svc := setup(t)
	postedSale(store, "S-1", "")

	_, err := rectify(svc, Patch{DebitOverrideID: accounting.Int64Ptr(999)}, "S-1")
	require.Equal(t, ledgererr.CodeAccountNotFound, ledgererr.CodeOf(err))
	require.Equal(t, ledgertest.AccReceivables, store.Entries(companyID)[0].Lines[0].AccountID)
}

func TestRectifyIsAllOrNothing(t *testing.T) {
	store, _, svc := setup(t)
	doc := postedSale(store, "S-1", "")
	store.FailOn("UpdateBankMovements", errors.New("boom"))
	newDate := day(2025, 5, 20)

	_, err := rectify(svc, Patch{NewDate: &newDate, DebitAccountID: accounting.Int64Ptr(ledgertest.AccCash)}, "S-1")
	require.Error(t, err)

	stored, _ := store.Document(doc.ID)
	require.True(t, stored.IssuedOn.Equal(day(2025, 5, 14)))
	require.Equal(t, ledgertest.AccReceivables, store.Entries(companyID)[0].Lines[0].AccountID)
	require.Empty(t, store.Audits())
}

func TestRectifyPermission(t *testing.T) {
	store, authz, svc := setup(t)
	authz.Denied[shared.PermLedgerRectify] = true
	active := false

	_, err := rectify(svc, Patch{Active: &active}, "S-1")
	require.Equal(t, ledgererr.KindForbidden, ledgererr.KindOf(err))
	require.Zero(t, store.Transactions())
}
