package posting

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-books/internal/accounting"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/ledgertest"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/mappings"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/periods"
	ledgererr "github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-books/internal/platform/db"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

const (
	tenantID  int64 = 1
	companyID int64 = 10
	userID    int64 = 7
	bankID    int64 = 500
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func requireAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Equal(t, want, got.StringFixed(2))
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func setup(t *testing.T, mode accounting.AccountingMode) (*ledgertest.Store, *ledgertest.Authorizer, *Service) {
	t.Helper()
	store := ledgertest.NewStore()
	store.SetChart(companyID, ledgertest.StandardChart(companyID))
	store.AddBankAccount(mappings.BankAccount{
		ID:              bankID,
		CompanyID:       companyID,
		Name:            "Operating",
		LedgerAccountID: accounting.Int64Ptr(ledgertest.AccBankLedger),
		IsActive:        true,
	})
	authz := ledgertest.NewAuthorizer(tenantID, companyID, mode)
	svc := NewService(store, authz)
	svc.WithNow(func() time.Time { return day(2025, 6, 30) })
	return store, authz, svc
}

func document(key string, dir accounting.Direction, cond accounting.PaymentCondition, date time.Time, total, vat string) accounting.Document {
	doc := accounting.Document{
		CompanyID:        companyID,
		Key:              key,
		ExternalID:       "EXT-" + key,
		Direction:        dir,
		PaymentCondition: cond,
		IssuedOn:         date,
		Total:            dec(total),
		VAT:              dec(vat),
		IsActive:         true,
	}
	if cond == accounting.ConditionCash {
		doc.BankAccountID = accounting.Int64Ptr(bankID)
	}
	return doc
}

func post(svc *Service, key string) (Result, error) {
	return svc.Post(context.Background(), Input{TenantID: tenantID, CompanyID: companyID, UserID: userID, DocumentKey: key})
}

func requireBalanced(t *testing.T, lines []accounting.LedgerLine) {
	t.Helper()
	debit, credit := accounting.Totals(lines)
	require.True(t, debit.Equal(credit), "debit %s != credit %s", debit, credit)
}

func TestScenarioASaleCash(t *testing.T) {
	store, _, svc := setup(t, accounting.ModeAccrual)
	doc := store.AddDocument(document("S-1", accounting.DirectionSale, accounting.ConditionCash, day(2025, 5, 14), "112.00", "12.00"))

	res, err := post(svc, "S-1")
	require.NoError(t, err)
	require.Equal(t, int64(1), res.Correlativo)
	require.Equal(t, accounting.ConditionCash, res.PaymentCondition)
	require.Equal(t, accounting.ModeAccrual, res.AccountingMode)
	require.NotNil(t, res.BankMovementID)

	entries := store.Entries(companyID)
	require.Len(t, entries, 1)
	require.Equal(t, accounting.EntrySale, entries[0].EntryType)
	require.Equal(t, "S-1", entries[0].SourceRef)
	lines := entries[0].Lines
	require.Len(t, lines, 3)
	require.Equal(t, ledgertest.AccBankLedger, lines[0].AccountID)
	requireAmount(t, "112.00", lines[0].Debit)
	require.Equal(t, ledgertest.AccGoodsRevenue, lines[1].AccountID)
	requireAmount(t, "100.00", lines[1].Credit)
	require.Equal(t, ledgertest.AccVATSales, lines[2].AccountID)
	requireAmount(t, "12.00", lines[2].Credit)
	requireBalanced(t, lines)

	stamped, _ := store.Document(doc.ID)
	require.NotNil(t, stamped.LedgerEntryID)
	require.Equal(t, entries[0].ID, *stamped.LedgerEntryID)

	movements := store.BankMovements()
	require.Len(t, movements, 1)
	require.Equal(t, accounting.BankDebit, movements[0].Direction)
	require.Equal(t, accounting.BankStatusPending, movements[0].Status)
	requireAmount(t, "112.00", movements[0].Amount)
	require.Equal(t, doc.ID, *movements[0].DocumentID)

	audits := store.Audits()
	require.Len(t, audits, 1)
	require.Equal(t, "ledger.post", audits[0].Action)
	require.Equal(t, userID, audits[0].ActorID)
}

func TestScenarioBPurchaseCredit(t *testing.T) {
	store, _, svc := setup(t, accounting.ModeAccrual)
	store.AddDocument(document("P-1", accounting.DirectionPurchase, accounting.ConditionCredit, day(2025, 5, 2), "224.00", "24.00"))

	res, err := post(svc, "P-1")
	require.NoError(t, err)
	require.Nil(t, res.BankMovementID)

	lines := store.Entries(companyID)[0].Lines
	require.Len(t, lines, 3)
	require.Equal(t, ledgertest.AccDefaultExpense, lines[0].AccountID)
	requireAmount(t, "200.00", lines[0].Debit)
	require.Equal(t, ledgertest.AccVATPurchases, lines[1].AccountID)
	requireAmount(t, "24.00", lines[1].Debit)
	require.Equal(t, ledgertest.AccPayables, lines[2].AccountID)
	requireAmount(t, "224.00", lines[2].Credit)
	requireBalanced(t, lines)
	require.Empty(t, store.BankMovements())
	require.Equal(t, accounting.EntryPurchase, store.Entries(companyID)[0].EntryType)
}

func TestScenarioCClosedPeriod(t *testing.T) {
	store, _, svc := setup(t, accounting.ModeAccrual)
	store.SetPeriod(periods.Period{CompanyID: companyID, Year: 2025, Month: 6, IsClosed: true})
	june := store.AddDocument(document("S-JUNE", accounting.DirectionSale, accounting.ConditionCredit, day(2025, 6, 30), "50.00", "0"))
	store.AddDocument(document("S-JULY", accounting.DirectionSale, accounting.ConditionCredit, day(2025, 7, 1), "50.00", "0"))

	_, err := post(svc, "S-JUNE")
	require.ErrorIs(t, err, ledgererr.ErrPeriodClosed)
	require.Empty(t, store.Entries(companyID))
	require.Zero(t, store.Counter(companyID), "closed period must not consume a correlativo")
	stored, _ := store.Document(june.ID)
	require.Nil(t, stored.LedgerEntryID)
	require.Empty(t, store.Audits())

	res, err := post(svc, "S-JULY")
	require.NoError(t, err)
	require.Equal(t, int64(1), res.Correlativo)
}

func TestPostIsAtMostOnce(t *testing.T) {
	store, _, svc := setup(t, accounting.ModeAccrual)
	store.AddDocument(document("S-2", accounting.DirectionSale, accounting.ConditionCredit, day(2025, 5, 1), "10.00", "0"))

	_, err := post(svc, "S-2")
	require.NoError(t, err)
	_, err = post(svc, "S-2")
	require.ErrorIs(t, err, ledgererr.ErrDocumentAlreadyPosted)
	require.Len(t, store.Entries(companyID), 1)
	require.Equal(t, int64(1), store.Counter(companyID))
}

func TestPostRejectsInactiveAndMissingDocuments(t *testing.T) {
	store, _, svc := setup(t, accounting.ModeAccrual)
	doc := document("S-OFF", accounting.DirectionSale, accounting.ConditionCredit, day(2025, 5, 1), "10.00", "0")
	doc.IsActive = false
	store.AddDocument(doc)

	_, err := post(svc, "S-OFF")
	require.ErrorIs(t, err, ledgererr.ErrDocumentAlreadyPosted)

	_, err = post(svc, "NOPE")
	require.Equal(t, ledgererr.CodeDocumentNotFound, ledgererr.CodeOf(err))
	require.Equal(t, ledgererr.KindNotFound, ledgererr.KindOf(err))

	_, err = post(svc, "  ")
	require.Equal(t, ledgererr.KindValidation, ledgererr.KindOf(err))
}

func TestPostRejectsNegativeAmounts(t *testing.T) {
	store, _, svc := setup(t, accounting.ModeAccrual)

	vat := document("S-VAT", accounting.DirectionSale, accounting.ConditionCash, day(2025, 5, 1), "100.00", "-12.00")
	store.AddDocument(vat)
	_, err := post(svc, "S-VAT")
	require.Equal(t, ledgererr.KindValidation, ledgererr.KindOf(err))
	e, ok := ledgererr.As(err)
	require.True(t, ok)
	require.Equal(t, "vat", e.Context["field"])

	extra := document("S-TAX", accounting.DirectionSale, accounting.ConditionCredit, day(2025, 5, 1), "100.00", "0")
	extra.Extras.Stamp = dec("-1.00")
	store.AddDocument(extra)
	_, err = post(svc, "S-TAX")
	require.Equal(t, ledgererr.KindValidation, ledgererr.KindOf(err))
	e, ok = ledgererr.As(err)
	require.True(t, ok)
	require.Equal(t, string(accounting.TaxStamp), e.Context["tax_type"])

	goods := document("P-GOODS", accounting.DirectionPurchase, accounting.ConditionCredit, day(2025, 5, 1), "100.00", "0")
	goods.GoodsAmount = dec("-5")
	store.AddDocument(goods)
	_, err = post(svc, "P-GOODS")
	require.Equal(t, ledgererr.KindValidation, ledgererr.KindOf(err))

	require.Empty(t, store.Entries(companyID))
	require.Empty(t, store.BankMovements())
}

func TestPostRequiresChart(t *testing.T) {
	store := ledgertest.NewStore()
	store.AddDocument(document("S-3", accounting.DirectionSale, accounting.ConditionCredit, day(2025, 5, 1), "10.00", "0"))
	svc := NewService(store, ledgertest.NewAuthorizer(tenantID, companyID, accounting.ModeAccrual))

	_, err := post(svc, "S-3")
	require.ErrorIs(t, err, ledgererr.ErrNomenclaturaRequired)
}

func TestPaymentConditionDefaultsFromAccountingMode(t *testing.T) {
	store, _, svc := setup(t, accounting.ModeCash)
	doc := document("S-4", accounting.DirectionSale, "", day(2025, 5, 1), "20.00", "0")
	doc.BankAccountID = accounting.Int64Ptr(bankID)
	store.AddDocument(doc)

	res, err := post(svc, "S-4")
	require.NoError(t, err)
	require.Equal(t, accounting.ModeCash, res.AccountingMode)
	require.Equal(t, accounting.ConditionCash, res.PaymentCondition)
	require.NotNil(t, res.BankMovementID)

	store2, _, accrual := setup(t, accounting.ModeAccrual)
	store2.AddDocument(document("S-5", accounting.DirectionSale, "", day(2025, 5, 1), "20.00", "0"))
	res, err = post(accrual, "S-5")
	require.NoError(t, err)
	require.Equal(t, accounting.ConditionCredit, res.PaymentCondition)
	require.Equal(t, ledgertest.AccReceivables, store2.Entries(companyID)[0].Lines[0].AccountID)
}

func chartWithout(codes ...string) []accounts.Account {
	drop := make(map[string]bool, len(codes))
	for _, c := range codes {
		drop[c] = true
	}
	var out []accounts.Account
	for _, a := range ledgertest.StandardChart(companyID) {
		if !drop[a.Code] {
			out = append(out, a)
		}
	}
	return out
}

func TestStandardAccountsAreFatalWhenNeeded(t *testing.T) {
	cases := []struct {
		name string
		drop string
		doc  accounting.Document
		code string
	}{
		{"receivables", accounts.CodeReceivables, document("K", accounting.DirectionSale, accounting.ConditionCredit, day(2025, 5, 1), "10", "0"), ledgererr.CodeReceivablesAccountNotFound},
		{"payables", accounts.CodePayables, document("K", accounting.DirectionPurchase, accounting.ConditionCredit, day(2025, 5, 1), "10", "0"), ledgererr.CodePayablesAccountNotFound},
		{"vat sales", accounts.CodeVATSales, document("K", accounting.DirectionSale, accounting.ConditionCredit, day(2025, 5, 1), "112", "12"), ledgererr.CodeVATSalesAccountNotFound},
		{"vat purchases", accounts.CodeVATPurchases, document("K", accounting.DirectionPurchase, accounting.ConditionCredit, day(2025, 5, 1), "112", "12"), ledgererr.CodeVATPurchasesAccountNotFound},
		{"revenue", accounts.CodeGoodsRevenue, document("K", accounting.DirectionSale, accounting.ConditionCredit, day(2025, 5, 1), "10", "0"), ledgererr.CodeRevenueAccountNotFound},
		{"expense", accounts.CodeDefaultExpense, document("K", accounting.DirectionPurchase, accounting.ConditionCredit, day(2025, 5, 1), "10", "0"), ledgererr.CodeExpenseAccountNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store, _, svc := setup(t, accounting.ModeAccrual)
			store.SetChart(companyID, chartWithout(tc.drop))
			store.AddDocument(tc.doc)

			_, err := post(svc, "K")
			require.Equal(t, tc.code, ledgererr.CodeOf(err))
			require.Equal(t, ledgererr.KindNotFound, ledgererr.KindOf(err))
			require.Empty(t, store.Entries(companyID))
			require.Zero(t, store.Counter(companyID))
		})
	}
}

func TestVATAccountOnlyRequiredWhenVATPresent(t *testing.T) {
	store, _, svc := setup(t, accounting.ModeAccrual)
	store.SetChart(companyID, chartWithout(accounts.CodeVATSales))
	store.AddDocument(document("S-6", accounting.DirectionSale, accounting.ConditionCredit, day(2025, 5, 1), "10", "0"))
	_, err := post(svc, "S-6")
	require.NoError(t, err)
}

func TestCashPostingRequiresMappedBankAccount(t *testing.T) {
	store, _, svc := setup(t, accounting.ModeAccrual)
	noBank := document("S-7", accounting.DirectionSale, accounting.ConditionCash, day(2025, 5, 1), "10", "0")
	noBank.BankAccountID = nil
	store.AddDocument(noBank)
	_, err := post(svc, "S-7")
	require.ErrorIs(t, err, ledgererr.ErrBankAccountRequired)

	store.AddBankAccount(mappings.BankAccount{ID: 501, CompanyID: companyID, Name: "Unmapped", IsActive: true})
	unmapped := document("S-8", accounting.DirectionSale, accounting.ConditionCash, day(2025, 5, 1), "10", "0")
	unmapped.BankAccountID = accounting.Int64Ptr(501)
	store.AddDocument(unmapped)
	_, err = post(svc, "S-8")
	require.ErrorIs(t, err, ledgererr.ErrBankAccountRequired)

	foreign := document("S-9", accounting.DirectionSale, accounting.ConditionCash, day(2025, 5, 1), "10", "0")
	foreign.BankAccountID = accounting.Int64Ptr(999)
	store.AddDocument(foreign)
	_, err = post(svc, "S-9")
	require.ErrorIs(t, err, ledgererr.ErrBankAccountRequired)
	require.Empty(t, store.Entries(companyID))
}

func TestPurchaseCashCreditsBankAndCreatesCreditMovement(t *testing.T) {
	store, _, svc := setup(t, accounting.ModeAccrual)
	store.AddDocument(document("P-2", accounting.DirectionPurchase, accounting.ConditionCash, day(2025, 5, 1), "56.00", "6.00"))

	_, err := post(svc, "P-2")
	require.NoError(t, err)
	lines := store.Entries(companyID)[0].Lines
	last := lines[len(lines)-1]
	require.Equal(t, ledgertest.AccBankLedger, last.AccountID)
	requireAmount(t, "56.00", last.Credit)
	require.Equal(t, accounting.BankCredit, store.BankMovements()[0].Direction)
}

func TestExtrasLineAndFolding(t *testing.T) {
	store, _, svc := setup(t, accounting.ModeAccrual)
	withStamp := document("S-10", accounting.DirectionSale, accounting.ConditionCredit, day(2025, 5, 1), "120.00", "12.00")
	withStamp.Extras = accounting.ExtraTaxes{Stamp: dec("8.00")}
	store.AddDocument(withStamp)

	_, err := post(svc, "S-10")
	require.NoError(t, err)
	lines := store.Entries(companyID)[0].Lines
	require.Len(t, lines, 4)
	requireAmount(t, "100.00", lines[1].Credit)
	require.Equal(t, ledgertest.AccStampTax, lines[3].AccountID)
	requireAmount(t, "8.00", lines[3].Credit)

	unresolved := document("S-11", accounting.DirectionSale, accounting.ConditionCredit, day(2025, 5, 1), "120.00", "12.00")
	unresolved.Extras = accounting.ExtraTaxes{Other: dec("8.00")}
	store.AddDocument(unresolved)
	_, err = post(svc, "S-11")
	require.NoError(t, err)
	lines = store.Entries(companyID)[1].Lines
	require.Len(t, lines, 3)
	requireAmount(t, "108.00", lines[1].Credit)
	requireBalanced(t, lines)
}

func TestRevenueSplitsGoodsAndServices(t *testing.T) {
	store, _, svc := setup(t, accounting.ModeAccrual)
	doc := document("S-12", accounting.DirectionSale, accounting.ConditionCredit, day(2025, 5, 1), "100.00", "0")
	doc.GoodsAmount = dec("60")
	doc.ServicesAmount = dec("40")
	store.AddDocument(doc)

	_, err := post(svc, "S-12")
	require.NoError(t, err)
	lines := store.Entries(companyID)[0].Lines
	require.Len(t, lines, 3)
	require.Equal(t, ledgertest.AccGoodsRevenue, lines[1].AccountID)
	requireAmount(t, "60.00", lines[1].Credit)
	require.Equal(t, ledgertest.AccServicesRevenue, lines[2].AccountID)
	requireAmount(t, "40.00", lines[2].Credit)
}

func TestSplitAmountsRounding(t *testing.T) {
	a := SplitAmounts(dec("100.00"), dec("12.00"), decimal.Zero)
	requireAmount(t, "88.00", a.Base)

	a = SplitAmounts(dec("100.01"), dec("12.00"), decimal.Zero)
	requireAmount(t, "88.01", a.Base)
	require.True(t, a.Base.Add(a.VAT).Add(a.Extras).Equal(a.Total))

	a = SplitAmounts(dec("100.004"), dec("12.006"), dec("0.333"))
	require.True(t, a.Base.Add(a.VAT).Add(a.Extras).Equal(dec("100.00")))

	a = SplitAmounts(dec("10"), dec("5"), dec("8"))
	requireAmount(t, "0.00", a.Extras)
	requireAmount(t, "5.00", a.Base)

	a = SplitAmounts(dec("10"), dec("12"), dec("1"))
	requireAmount(t, "0.00", a.VAT)
	requireAmount(t, "0.00", a.Extras)
	requireAmount(t, "10.00", a.Base)
}

func TestBalanceNudgesFirstDebitLine(t *testing.T) {
	lines := Balance([]accounting.LedgerLine{
		{AccountID: 1, Credit: dec("10.01"), Debit: decimal.Zero},
		{AccountID: 2, Debit: dec("10.00"), Credit: decimal.Zero},
	})
	requireAmount(t, "10.01", lines[1].Debit)
	requireAmount(t, "0.00", lines[0].Debit)
}

func TestFailureRollsBackSequence(t *testing.T) {
	store, _, svc := setup(t, accounting.ModeAccrual)
	doc := store.AddDocument(document("S-13", accounting.DirectionSale, accounting.ConditionCash, day(2025, 5, 1), "10", "0"))

	store.FailOn("RecordAudit", errors.New("audit unavailable"))
	_, err := post(svc, "S-13")
	require.Error(t, err)
	require.Empty(t, store.Entries(companyID))
	require.Empty(t, store.BankMovements())
	require.Zero(t, store.Counter(companyID))
	stored, _ := store.Document(doc.ID)
	require.Nil(t, stored.LedgerEntryID)

	store.FailOn("RecordAudit", nil)
	res, err := post(svc, "S-13")
	require.NoError(t, err)
	require.Equal(t, int64(1), res.Correlativo)
}

func TestPostRequiresPermission(t *testing.T) {
	store, authz, svc := setup(t, accounting.ModeAccrual)
	authz.Denied[shared.PermLedgerPost] = true
	store.AddDocument(document("S-14", accounting.DirectionSale, accounting.ConditionCredit, day(2025, 5, 1), "10", "0"))

	_, err := post(svc, "S-14")
	require.Equal(t, ledgererr.KindForbidden, ledgererr.KindOf(err))
	require.Zero(t, store.Transactions())

	_, err = svc.Post(context.Background(), Input{TenantID: 2, CompanyID: companyID, UserID: userID, DocumentKey: "S-14"})
	require.Equal(t, ledgererr.KindNotFound, ledgererr.KindOf(err))
}

func TestConcurrentPostingsGetDistinctCorrelativos(t *testing.T) {
	store, _, svc := setup(t, accounting.ModeAccrual)
	store.Snapshot(db.TxOptions{MaxAttempts: 50, BaseDelay: 100 * time.Microsecond})
	const n = 25
	for i := 0; i < n; i++ {
		store.AddDocument(document(fmt.Sprintf("C-%02d", i), accounting.DirectionSale, accounting.ConditionCredit, day(2025, 5, 1), "10", "0"))
	}
	var g errgroup.Group
	g.SetLimit(4)
	results := make([]int64, n)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			res, err := post(svc, fmt.Sprintf("C-%02d", i))
			if err != nil {
				return err
			}
			results[i] = res.Correlativo
			return nil
		})
	}
	require.NoError(t, g.Wait())
	sort.Slice(results, func(i, j int) bool { return results[i] < results[j] })
	for i, v := range results {
		require.Equal(t, int64(i+1), v)
	}
	for _, e := range store.Entries(companyID) {
		requireBalanced(t, e.Lines)
	}
}

func TestPostReplaysAfterSerializationConflict(t *testing.T) {
	store, _, svc := setup(t, accounting.ModeAccrual)
	store.Snapshot(db.TxOptions{MaxAttempts: 3, BaseDelay: time.Millisecond})
	store.AddDocument(document("S-A", accounting.DirectionSale, accounting.ConditionCredit, day(2025, 5, 1), "10", "0"))
	store.AddDocument(document("S-B", accounting.DirectionSale, accounting.ConditionCredit, day(2025, 5, 1), "20", "0"))

	entered := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	store.OnCall("InsertEntry", func() {
		if calls.Add(1) == 1 {
			close(entered)
			<-release
		}
	})

	var (
		first    Result
		firstErr error
		wg       sync.WaitGroup
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		first, firstErr = post(svc, "S-A")
	}()
	<-entered

	second, err := post(svc, "S-B")
	require.NoError(t, err)
	require.Equal(t, int64(1), second.Correlativo)

	close(release)
	wg.Wait()
	require.NoError(t, firstErr)
	require.Equal(t, int64(2), first.Correlativo, "the replay sees the committed counter")
	require.Equal(t, 1, store.Conflicts())

	entries := store.Entries(companyID)
	require.Len(t, entries, 2)
	for _, e := range entries {
		requireBalanced(t, e.Lines)
	}
}

func TestPostGivesUpWhenConflictsPersist(t *testing.T) {
	store, _, svc := setup(t, accounting.ModeAccrual)
	store.Snapshot(db.TxOptions{MaxAttempts: 2, BaseDelay: time.Millisecond})
	store.AddDocument(document("S-A", accounting.DirectionSale, accounting.ConditionCredit, day(2025, 5, 1), "10", "0"))

	// A competing write lands while every attempt is in flight.
	store.OnCall("InsertEntry", func() {
		store.SetPeriod(periods.Period{CompanyID: companyID, Year: 2030, Month: 1})
	})

	_, err := post(svc, "S-A")
	require.Error(t, err)
	require.True(t, db.IsRetryable(err))
	require.Equal(t, 2, store.Conflicts())
	require.Empty(t, store.Entries(companyID))
}
