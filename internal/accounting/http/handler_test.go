package ledgerhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-books/internal/accounting"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/allocation"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/ledgertest"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/mappings"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/periods"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/posting"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/rectify"
	ledgererr "github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/treasury"
	"github.com/odyssey-erp/odyssey-books/internal/observability"
	"github.com/odyssey-erp/odyssey-books/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

const base = "/api/v1/tenants/1/companies/10"

type stubPeriods struct {
	closed map[periods.Key]bool
}

func (s *stubPeriods) Status(_ context.Context, req periods.Request) (periods.Period, error) {
	key := periods.Key{CompanyID: req.CompanyID, Year: req.Year, Month: req.Month}
	if !key.Valid() {
		return periods.Period{}, ledgererr.Validation("", "invalid period")
	}
	p := key.Open()
	p.IsClosed = s.closed[key]
	return p, nil
}

func (s *stubPeriods) Close(ctx context.Context, req periods.Request) (periods.Period, error) {
	s.closed[periods.Key{CompanyID: req.CompanyID, Year: req.Year, Month: req.Month}] = true
	return s.Status(ctx, req)
}

func (s *stubPeriods) Reopen(ctx context.Context, req periods.Request) (periods.Period, error) {
	delete(s.closed, periods.Key{CompanyID: req.CompanyID, Year: req.Year, Month: req.Month})
	return s.Status(ctx, req)
}

type storeReader struct {
	store *ledgertest.Store
}

func (r storeReader) Entries(_ context.Context, companyID int64, from, to time.Time) ([]accounting.LedgerEntry, error) {
	var out []accounting.LedgerEntry
	for _, e := range r.store.Entries(companyID) {
		if !e.EntryDate.Before(from) && !e.EntryDate.After(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (storeReader) EntryTotals(context.Context, int64) ([]journals.EntryTotal, error) {
	return nil, nil
}

func (storeReader) CompanyIDs(context.Context) ([]int64, error) { return nil, nil }

func (r storeReader) ActiveChart(ctx context.Context, companyID int64) (*accounts.Chart, bool, error) {
	var chart *accounts.Chart
	var found bool
	err := r.store.WithTx(ctx, func(ctx context.Context, tx accounting.TxRepository) error {
		var err error
		chart, found, err = tx.ActiveChart(ctx, companyID)
		return err
	})
	return chart, found, err
}

type memoryIdempotency struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func (m *memoryIdempotency) Claim(_ context.Context, module, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.keys[module+"/"+key]; ok {
		return shared.ErrIdempotencyConflict
	}
	m.keys[module+"/"+key] = struct{}{}
	return nil
}

func (m *memoryIdempotency) Release(_ context.Context, module, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, module+"/"+key)
	return nil
}

type fixture struct {
	store   *ledgertest.Store
	router  http.Handler
	idem    *memoryIdempotency
	metrics *observability.Metrics
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := ledgertest.NewStore()
	store.SetChart(10, ledgertest.StandardChart(10))
	store.AddBankAccount(mappings.BankAccount{ID: 500, CompanyID: 10, Name: "Operating", LedgerAccountID: accounting.Int64Ptr(ledgertest.AccBankLedger), IsActive: true})
	authz := ledgertest.NewAuthorizer(1, 10, accounting.ModeAccrual)
	idem := &memoryIdempotency{keys: map[string]struct{}{}}
	metrics := observability.NewMetrics()

	handler := NewHandler(nil, Services{
		Periods:  &stubPeriods{closed: map[periods.Key]bool{}},
		Posting:  posting.NewService(store, authz),
		Treasury: treasury.NewService(store, authz),
		Rectify:  rectify.NewService(store, authz),
		Preview:  allocation.NewService(store, authz, nil),
		Ledger:   journals.NewService(storeReader{store: store}, authz),
		Accounts: accounts.NewService(storeReader{store: store}, authz),
	}, metrics, idem)

	r := chi.NewRouter()
	r.Route("/api/v1/tenants/{tenantID}/companies/{companyID}", handler.MountRoutes)
	return fixture{store: store, router: r, idem: idem, metrics: metrics}
}

func (f fixture) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderUserID, "7")
	for k, v := range headers {
		if v == "" {
			req.Header.Del(k)
			continue
		}
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) httpx.ErrorBody {
	t.Helper()
	var body httpx.ErrorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func (f fixture) addSale(key string, date time.Time) accounting.Document {
	return f.store.AddDocument(accounting.Document{
		CompanyID:        10,
		Key:              key,
		Direction:        accounting.DirectionSale,
		PaymentCondition: accounting.ConditionCredit,
		IssuedOn:         date,
		Total:            decimal.RequireFromString("112.00"),
		VAT:              decimal.RequireFromString("12.00"),
		IsActive:         true,
	})
}

func TestPostDocumentEndpoint(t *testing.T) {
	f := newFixture(t)
	f.addSale("S-1", time.Date(2025, 5, 14, 0, 0, 0, 0, time.UTC))

	rr := f.do(t, http.MethodPost, base+"/documents/S-1/post", nil, nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var res postingResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.Equal(t, int64(1), res.Correlativo)
	require.Equal(t, "CREDIT", res.PaymentCondition)
	require.Equal(t, "ACCRUAL", res.AccountingMode)
	require.Nil(t, res.BankMovementID)
	require.Len(t, res.Lines, 3)

	rr = f.do(t, http.MethodPost, base+"/documents/S-1/post", nil, nil)
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Equal(t, ledgererr.CodeDocumentAlreadyPosted, decodeError(t, rr).Code)
}

func TestMissingActorIsUnauthorized(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodPost, base+"/documents/S-1/post", nil, map[string]string{HeaderUserID: ""})
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, ledgererr.CodeUnauthorized, decodeError(t, rr).Code)

	rr = f.do(t, http.MethodPost, "/api/v1/tenants/x/companies/10/documents/S-1/post", nil, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestPostingIntoClosedPeriod(t *testing.T) {
	f := newFixture(t)
	f.addSale("S-1", time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC))
	f.store.SetPeriod(periods.Period{CompanyID: 10, Year: 2025, Month: 3, IsClosed: true})

	rr := f.do(t, http.MethodPost, base+"/documents/S-1/post", nil, nil)
	require.Equal(t, http.StatusConflict, rr.Code)
	body := decodeError(t, rr)
	require.Equal(t, ledgererr.KindConflict, body.Kind)
	require.Equal(t, ledgererr.CodePeriodClosed, body.Code)
	require.Equal(t, float64(3), body.Context["month"])
}

func TestPeriodEndpoints(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodPost, base+"/periods/2025/4/close", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var p periodResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	require.True(t, p.IsClosed)

	rr = f.do(t, http.MethodGet, base+"/periods/2025/4", nil, nil)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	require.True(t, p.IsClosed)

	rr = f.do(t, http.MethodPost, base+"/periods/2025/4/reopen", nil, nil)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	require.False(t, p.IsClosed)

	rr = f.do(t, http.MethodGet, base+"/periods/2025/13", nil, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = f.do(t, http.MethodGet, base+"/periods/abc/1", nil, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestTreasuryIdempotency(t *testing.T) {
	f := newFixture(t)
	body := map[string]any{
		"kind":            "COLLECTION",
		"bank_account_id": 500,
		"date":            "2025-05-20",
		"amount":          "40.00",
		"reference":       "RC-9",
	}
	headers := map[string]string{HeaderIdempotencyKey: "abc-1"}

	rr := f.do(t, http.MethodPost, base+"/treasury/movements", body, headers)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var res treasuryResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.Equal(t, "40.00", res.Unapplied.StringFixed(2))
	require.Equal(t, "RC-9", res.Reference)

	rr = f.do(t, http.MethodPost, base+"/treasury/movements", body, headers)
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Equal(t, ledgererr.CodeDuplicateRequest, decodeError(t, rr).Code)
	require.Len(t, f.store.TreasuryMovements(), 1)
}

func TestTreasuryFailureReleasesKey(t *testing.T) {
	f := newFixture(t)
	f.store.SetPeriod(periods.Period{CompanyID: 10, Year: 2025, Month: 5, IsClosed: true})
	body := map[string]any{"kind": "PAYMENT", "bank_account_id": 500, "date": "2025-05-20", "amount": "10"}
	headers := map[string]string{HeaderIdempotencyKey: "retry-me"}

	rr := f.do(t, http.MethodPost, base+"/treasury/movements", body, headers)
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Equal(t, ledgererr.CodePeriodClosed, decodeError(t, rr).Code)
	require.Empty(t, f.idem.keys)

	f.store.SetPeriod(periods.Period{CompanyID: 10, Year: 2025, Month: 5})
	rr = f.do(t, http.MethodPost, base+"/treasury/movements", body, headers)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
}

func TestRequestValidation(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodPost, base+"/treasury/movements", map[string]any{"kind": "TRANSFER", "bank_account_id": 500, "date": "20-05-2025"}, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	body := decodeError(t, rr)
	require.Equal(t, ledgererr.CodeValidation, body.Code)
	fields, ok := body.Context["fields"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "oneof", fields["treasuryRequest.Kind"])
	require.Equal(t, "datetime", fields["treasuryRequest.Date"])

	rr = f.do(t, http.MethodPost, base+"/treasury/movements", `{"kind":`, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(t, http.MethodPost, base+"/documents/rectify", map[string]any{"document_keys": []string{}}, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestRectifyEndpoint(t *testing.T) {
	f := newFixture(t)
	f.addSale("S-1", time.Date(2025, 5, 14, 0, 0, 0, 0, time.UTC))
	rr := f.do(t, http.MethodPost, base+"/documents/S-1/post", nil, nil)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = f.do(t, http.MethodPost, base+"/documents/rectify", map[string]any{
		"document_keys": []string{"S-1"},
		"new_date":      "2025-05-20",
	}, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var res rectify.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.Equal(t, rectify.Result{Documents: 1, Entries: 1}, res)

	rr = f.do(t, http.MethodPost, base+"/documents/rectify", map[string]any{
		"document_keys": []string{"S-404"},
		"active":        false,
	}, nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, ledgererr.CodeDocumentsNotFound, decodeError(t, rr).Code)
}

func TestAllocateEndpoint(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodPost, base+"/documents/allocate", map[string]any{
		"direction":    "SALE",
		"total":        "112.00",
		"vat":          "12.00",
		"goods_amount": "100.00",
	}, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var res allocation.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.True(t, res.Balanced)
	require.Len(t, res.Lines, 3)
}

func TestListEntriesEndpoint(t *testing.T) {
	f := newFixture(t)
	f.addSale("S-1", time.Date(2025, 5, 14, 0, 0, 0, 0, time.UTC))
	f.addSale("S-2", time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC))
	for _, key := range []string{"S-1", "S-2"} {
		rr := f.do(t, http.MethodPost, base+"/documents/"+key+"/post", nil, nil)
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	rr := f.do(t, http.MethodGet, base+"/ledger/entries?from=2025-05-01&to=2025-05-31", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var body struct {
		Entries []accounting.LedgerEntry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Entries, 1)
	require.Equal(t, "S-1", body.Entries[0].SourceRef)
	require.Len(t, body.Entries[0].Lines, 3)

	rr = f.do(t, http.MethodGet, base+"/ledger/entries?from=2025-05-01", nil, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestOperationsAreCounted(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, base+"/documents/missing/post", nil, nil)

	rr := httptest.NewRecorder()
	f.metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.True(t, strings.Contains(rr.Body.String(), `odyssey_ledger_operations_total{operation="post",result="DOCUMENT_NOT_FOUND"} 1`))
}

func TestListAccountsEndpoint(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodGet, base+"/accounts", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var body struct {
		Accounts []accounts.Account `json:"accounts"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Accounts, len(ledgertest.StandardChart(10)))
	require.Equal(t, accounts.CodeCash, body.Accounts[0].Code)

	rr = f.do(t, http.MethodGet, "/api/v1/tenants/1/companies/11/accounts", nil, nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
}
