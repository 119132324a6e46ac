// Package ledgertest provides an in-memory accounting.TxRepository for service tests.
package ledgertest

import (
	"context"
	"errors"
	"maps"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/accounting"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/mappings"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/periods"
	ledgererr "github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-books/internal/platform/db"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

type state struct {
	nextID       int64
	periods      map[periods.Key]periods.Period
	counters     map[int64]int64
	charts       map[int64]*accounts.Chart
	banks        map[int64]mappings.BankAccount
	documents    map[int64]accounting.Document
	entries      []accounting.LedgerEntry
	lines        []accounting.LedgerLine
	movements    []accounting.BankMovement
	treasury     []accounting.TreasuryMovement
	applications []accounting.Application
	audits       []shared.AuditLog
}

func newState() *state {
	return &state{
		periods:   make(map[periods.Key]periods.Period),
		counters:  make(map[int64]int64),
		charts:    make(map[int64]*accounts.Chart),
		banks:     make(map[int64]mappings.BankAccount),
		documents: make(map[int64]accounting.Document),
	}
}

func (s *state) clone() *state {
	cp := &state{
		nextID:       s.nextID,
		periods:      make(map[periods.Key]periods.Period, len(s.periods)),
		counters:     make(map[int64]int64, len(s.counters)),
		charts:       make(map[int64]*accounts.Chart, len(s.charts)),
		banks:        make(map[int64]mappings.BankAccount, len(s.banks)),
		documents:    make(map[int64]accounting.Document, len(s.documents)),
		entries:      append([]accounting.LedgerEntry(nil), s.entries...),
		lines:        append([]accounting.LedgerLine(nil), s.lines...),
		movements:    append([]accounting.BankMovement(nil), s.movements...),
		treasury:     append([]accounting.TreasuryMovement(nil), s.treasury...),
		applications: append([]accounting.Application(nil), s.applications...),
		audits:       append([]shared.AuditLog(nil), s.audits...),
	}
	for k, v := range s.periods {
		cp.periods[k] = v
	}
	for k, v := range s.counters {
		cp.counters[k] = v
	}
	for k, v := range s.charts {
		cp.charts[k] = v
	}
	for k, v := range s.banks {
		cp.banks[k] = v
	}
	for k, v := range s.documents {
		cp.documents[k] = v
	}
	return cp
}

func (s *state) id() int64 {
	s.nextID++
	return s.nextID
}

// Store is a transactional in-memory ledger. Transactions are serialised and
// run on a copy of the state that replaces the original only on success.
// Snapshot switches to concurrent units of work with first-committer-wins;
// fixture writes count as commits.
type Store struct {
	mu        sync.Mutex
	st        *state
	version   uint64
	failures  map[string]error
	hooks     map[string]func()
	txCount   int
	conflicts int
	snapshot  *db.TxOptions
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{st: newState(), failures: make(map[string]error), hooks: make(map[string]func())}
}

// Snapshot makes units of work run concurrently on private copies of the state.
// A commit that finds another commit since its copy was taken fails with
// SQLSTATE 40001 and is replayed through db.Retry with opts.
func (s *Store) Snapshot(opts db.TxOptions) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = &opts
	return s
}

// WithTx implements accounting.Transactor.
func (s *Store) WithTx(ctx context.Context, fn func(context.Context, accounting.TxRepository) error) error {
	s.mu.Lock()
	s.txCount++
	if s.snapshot == nil {
		defer s.mu.Unlock()
		work := s.st.clone()
		if err := fn(ctx, &tx{st: work, failures: s.failures, hooks: s.hooks}); err != nil {
			return err
		}
		s.st = work
		s.version++
		return nil
	}
	opts := *s.snapshot
	s.mu.Unlock()
	return db.Retry(ctx, opts, func() error {
		return s.attempt(ctx, fn)
	})
}

func (s *Store) attempt(ctx context.Context, fn func(context.Context, accounting.TxRepository) error) error {
	s.mu.Lock()
	work := s.st.clone()
	base := s.version
	t := &tx{st: work, failures: maps.Clone(s.failures), hooks: maps.Clone(s.hooks)}
	s.mu.Unlock()

	if err := fn(ctx, t); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version != base {
		s.conflicts++
		return &pgconn.PgError{Code: "40001", Message: "could not serialize access due to concurrent update"}
	}
	s.st = work
	s.version++
	return nil
}

// FailOn makes the named repository method return err until cleared with a nil err.
func (s *Store) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, method)
		return
	}
	s.failures[method] = err
}

// OnCall runs hook every time the named repository method is entered.
func (s *Store) OnCall(method string, hook func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if hook == nil {
		delete(s.hooks, method)
		return
	}
	s.hooks[method] = hook
}

// Transactions counts WithTx calls.
func (s *Store) Transactions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txCount
}

// Conflicts counts snapshot commits rejected with a serialization failure.
func (s *Store) Conflicts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conflicts
}

type tx struct {
	st       *state
	failures map[string]error
	hooks    map[string]func()
}

func (t *tx) fail(method string) error {
	if hook := t.hooks[method]; hook != nil {
		hook()
	}
	return t.failures[method]
}

func (t *tx) GetPeriod(_ context.Context, key periods.Key) (periods.Period, bool, error) {
	if err := t.fail("GetPeriod"); err != nil {
		return periods.Period{}, false, err
	}
	p, ok := t.st.periods[key]
	if !ok {
		return key.Open(), false, nil
	}
	return p, true, nil
}

func (t *tx) NextCorrelativo(_ context.Context, companyID int64) (int64, error) {
	if err := t.fail("NextCorrelativo"); err != nil {
		return 0, err
	}
	last, ok := t.st.counters[companyID]
	if !ok {
		for _, e := range t.st.entries {
			if e.CompanyID == companyID && e.Correlativo > last {
				last = e.Correlativo
			}
		}
	}
	last++
	t.st.counters[companyID] = last
	return last, nil
}

func (t *tx) ActiveChart(_ context.Context, companyID int64) (*accounts.Chart, bool, error) {
	if err := t.fail("ActiveChart"); err != nil {
		return nil, false, err
	}
	c, ok := t.st.charts[companyID]
	return c, ok, nil
}

func (t *tx) BankAccount(_ context.Context, companyID, bankAccountID int64) (mappings.BankAccount, error) {
	if err := t.fail("BankAccount"); err != nil {
		return mappings.BankAccount{}, err
	}
	b, ok := t.st.banks[bankAccountID]
	if !ok || b.CompanyID != companyID {
		return mappings.BankAccount{}, mappings.ErrBankAccountNotFound
	}
	return b, nil
}

func (t *tx) DocumentByKeyForUpdate(_ context.Context, companyID int64, key string) (accounting.Document, bool, error) {
	if err := t.fail("DocumentByKeyForUpdate"); err != nil {
		return accounting.Document{}, false, err
	}
	for _, d := range t.sortedDocuments() {
		if d.CompanyID == companyID && d.Key == key {
			return d, true, nil
		}
	}
	return accounting.Document{}, false, nil
}

func (t *tx) DocumentsByKeysForUpdate(_ context.Context, companyID int64, keys []string) ([]accounting.Document, error) {
	if err := t.fail("DocumentsByKeysForUpdate"); err != nil {
		return nil, err
	}
	want := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		want[k] = struct{}{}
	}
	var out []accounting.Document
	for _, d := range t.sortedDocuments() {
		if d.CompanyID != companyID {
			continue
		}
		_, byKey := want[d.Key]
		_, byExternal := want[d.ExternalID]
		if byKey || (d.ExternalID != "" && byExternal) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (t *tx) DocumentsByIDsForUpdate(_ context.Context, companyID int64, ids []int64) ([]accounting.Document, error) {
	if err := t.fail("DocumentsByIDsForUpdate"); err != nil {
		return nil, err
	}
	var out []accounting.Document
	for _, id := range ids {
		if d, ok := t.st.documents[id]; ok && d.CompanyID == companyID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tx) AppliedTotals(_ context.Context, companyID int64, documentIDs []int64) (map[int64]decimal.Decimal, error) {
	if err := t.fail("AppliedTotals"); err != nil {
		return nil, err
	}
	movementCompany := make(map[int64]int64, len(t.st.treasury))
	for _, m := range t.st.treasury {
		movementCompany[m.ID] = m.CompanyID
	}
	want := make(map[int64]struct{}, len(documentIDs))
	for _, id := range documentIDs {
		want[id] = struct{}{}
	}
	totals := make(map[int64]decimal.Decimal)
	for _, a := range t.st.applications {
		if _, ok := want[a.DocumentID]; !ok || movementCompany[a.MovementID] != companyID {
			continue
		}
		totals[a.DocumentID] = totals[a.DocumentID].Add(a.Amount)
	}
	return totals, nil
}

func (t *tx) StampDocumentEntry(_ context.Context, companyID, documentID, entryID int64) error {
	if err := t.fail("StampDocumentEntry"); err != nil {
		return err
	}
	d, ok := t.st.documents[documentID]
	if !ok || d.CompanyID != companyID || d.LedgerEntryID != nil {
		return ledgererr.ErrDocumentAlreadyPosted.With("document_id", documentID)
	}
	d.LedgerEntryID = accounting.Int64Ptr(entryID)
	t.st.documents[documentID] = d
	return nil
}

func (t *tx) InsertEntry(_ context.Context, entry accounting.LedgerEntry) (accounting.LedgerEntry, error) {
	if err := t.fail("InsertEntry"); err != nil {
		return accounting.LedgerEntry{}, err
	}
	for _, e := range t.st.entries {
		if e.CompanyID == entry.CompanyID && e.Correlativo == entry.Correlativo {
			return accounting.LedgerEntry{}, errors.New("duplicate key value violates unique constraint \"uq_ledger_entries_company_correlativo\"")
		}
	}
	entry.ID = t.st.id()
	entry.IsActive = true
	entry.Lines = nil
	t.st.entries = append(t.st.entries, entry)
	return entry, nil
}

func (t *tx) InsertLines(_ context.Context, entryID int64, lines []accounting.LedgerLine) ([]accounting.LedgerLine, error) {
	if err := t.fail("InsertLines"); err != nil {
		return nil, err
	}
	out := make([]accounting.LedgerLine, 0, len(lines))
	for _, l := range lines {
		l.ID = t.st.id()
		l.EntryID = entryID
		t.st.lines = append(t.st.lines, l)
		out = append(out, l)
	}
	return out, nil
}

func (t *tx) InsertBankMovement(_ context.Context, m accounting.BankMovement) (accounting.BankMovement, error) {
	if err := t.fail("InsertBankMovement"); err != nil {
		return accounting.BankMovement{}, err
	}
	m.ID = t.st.id()
	m.IsActive = true
	if m.Status == "" {
		m.Status = accounting.BankStatusPending
	}
	t.st.movements = append(t.st.movements, m)
	return m, nil
}

func (t *tx) InsertTreasuryMovement(_ context.Context, m accounting.TreasuryMovement) (accounting.TreasuryMovement, error) {
	if err := t.fail("InsertTreasuryMovement"); err != nil {
		return accounting.TreasuryMovement{}, err
	}
	m.ID = t.st.id()
	t.st.treasury = append(t.st.treasury, m)
	return m, nil
}

func (t *tx) InsertApplications(_ context.Context, movementID int64, apps []accounting.Application) error {
	if err := t.fail("InsertApplications"); err != nil {
		return err
	}
	for _, a := range apps {
		a.ID = t.st.id()
		a.MovementID = movementID
		t.st.applications = append(t.st.applications, a)
	}
	return nil
}

func (t *tx) UpdateDocuments(_ context.Context, companyID int64, ids []int64, patch accounting.DocumentPatch) (int64, error) {
	if err := t.fail("UpdateDocuments"); err != nil {
		return 0, err
	}
	if patch.Empty() {
		return 0, nil
	}
	var n int64
	for _, id := range ids {
		d, ok := t.st.documents[id]
		if !ok || d.CompanyID != companyID {
			continue
		}
		if patch.IssuedOn != nil {
			d.IssuedOn = *patch.IssuedOn
		}
		if patch.IsActive != nil {
			d.IsActive = *patch.IsActive
		}
		if patch.DebitAccountID != nil {
			d.DebitAccountID = accounting.Int64Ptr(*patch.DebitAccountID)
		}
		if patch.CreditAccountID != nil {
			d.CreditAccountID = accounting.Int64Ptr(*patch.CreditAccountID)
		}
		t.st.documents[id] = d
		n++
	}
	return n, nil
}

func (t *tx) ReassignLines(_ context.Context, companyID int64, sourceRefs []string, side accounting.LineSide, accountID int64) ([]int64, error) {
	if err := t.fail("ReassignLines"); err != nil {
		return nil, err
	}
	refs := stringSet(sourceRefs)
	entryCompany := t.entryCompanies()
	documentary := t.documentaryEntries()
	var ids []int64
	for i, l := range t.st.lines {
		if entryCompany[l.EntryID] != companyID || !documentary[l.EntryID] {
			continue
		}
		if _, ok := refs[l.SourceRef]; !ok {
			continue
		}
		amount := l.Debit
		if side == accounting.SideCredit {
			amount = l.Credit
		}
		if amount.IsZero() {
			continue
		}
		t.st.lines[i].AccountID = accountID
		ids = append(ids, l.ID)
	}
	return ids, nil
}

func (t *tx) UpdateEntries(_ context.Context, companyID int64, sourceRefs []string, patch accounting.ArtifactPatch) (int64, error) {
	if err := t.fail("UpdateEntries"); err != nil {
		return 0, err
	}
	if patch.Empty() {
		return 0, nil
	}
	refs := stringSet(sourceRefs)
	var n int64
	for i, e := range t.st.entries {
		if e.CompanyID != companyID || !e.EntryType.Documentary() {
			continue
		}
		if _, ok := refs[e.SourceRef]; !ok {
			continue
		}
		if patch.Date != nil {
			t.st.entries[i].EntryDate = *patch.Date
		}
		if patch.IsActive != nil {
			t.st.entries[i].IsActive = *patch.IsActive
		}
		n++
	}
	return n, nil
}

func (t *tx) UpdateBankMovements(_ context.Context, companyID int64, sourceRefs []string, documentIDs []int64, patch accounting.ArtifactPatch) (int64, error) {
	if err := t.fail("UpdateBankMovements"); err != nil {
		return 0, err
	}
	if patch.Empty() {
		return 0, nil
	}
	refs := stringSet(sourceRefs)
	docs := make(map[int64]struct{}, len(documentIDs))
	for _, id := range documentIDs {
		docs[id] = struct{}{}
	}
	documentary := t.documentaryEntries()
	var n int64
	for i, m := range t.st.movements {
		if m.CompanyID != companyID {
			continue
		}
		if m.LedgerEntryID != nil && !documentary[*m.LedgerEntryID] {
			continue
		}
		_, byRef := refs[m.SourceRef]
		byDoc := false
		if m.DocumentID != nil {
			_, byDoc = docs[*m.DocumentID]
		}
		if !byRef && !byDoc {
			continue
		}
		if patch.Date != nil {
			t.st.movements[i].MovementDate = *patch.Date
		}
		if patch.IsActive != nil {
			t.st.movements[i].IsActive = *patch.IsActive
		}
		n++
	}
	return n, nil
}

func (t *tx) RecordAudit(_ context.Context, log shared.AuditLog) error {
	if err := t.fail("RecordAudit"); err != nil {
		return err
	}
	if err := log.Validate(); err != nil {
		return err
	}
	t.st.audits = append(t.st.audits, log)
	return nil
}

func (t *tx) sortedDocuments() []accounting.Document {
	out := make([]accounting.Document, 0, len(t.st.documents))
	for _, d := range t.st.documents {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (t *tx) documentaryEntries() map[int64]bool {
	out := make(map[int64]bool, len(t.st.entries))
	for _, e := range t.st.entries {
		out[e.ID] = e.EntryType.Documentary()
	}
	return out
}

func (t *tx) entryCompanies() map[int64]int64 {
	out := make(map[int64]int64, len(t.st.entries))
	for _, e := range t.st.entries {
		out[e.ID] = e.CompanyID
	}
	return out
}

func stringSet(values []string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out
}
