package accounting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/access"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/mappings"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/periods"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/sequence"
	ledgererr "github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-books/internal/platform/db"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

// TxRepository exposes every read and write a ledger operation performs inside its transaction.
type TxRepository interface {
	periods.Reader
	sequence.Store
	ActiveChart(ctx context.Context, companyID int64) (*accounts.Chart, bool, error)
	BankAccount(ctx context.Context, companyID, bankAccountID int64) (mappings.BankAccount, error)

	DocumentByKeyForUpdate(ctx context.Context, companyID int64, key string) (Document, bool, error)
	DocumentsByKeysForUpdate(ctx context.Context, companyID int64, keys []string) ([]Document, error)
	DocumentsByIDsForUpdate(ctx context.Context, companyID int64, ids []int64) ([]Document, error)
	AppliedTotals(ctx context.Context, companyID int64, documentIDs []int64) (map[int64]decimal.Decimal, error)
	StampDocumentEntry(ctx context.Context, companyID, documentID, entryID int64) error

	InsertEntry(ctx context.Context, entry LedgerEntry) (LedgerEntry, error)
	InsertLines(ctx context.Context, entryID int64, lines []LedgerLine) ([]LedgerLine, error)
	InsertBankMovement(ctx context.Context, m BankMovement) (BankMovement, error)
	InsertTreasuryMovement(ctx context.Context, m TreasuryMovement) (TreasuryMovement, error)
	InsertApplications(ctx context.Context, movementID int64, apps []Application) error

	UpdateDocuments(ctx context.Context, companyID int64, ids []int64, patch DocumentPatch) (int64, error)
	ReassignLines(ctx context.Context, companyID int64, sourceRefs []string, side LineSide, accountID int64) ([]int64, error)
	UpdateEntries(ctx context.Context, companyID int64, sourceRefs []string, patch ArtifactPatch) (int64, error)
	UpdateBankMovements(ctx context.Context, companyID int64, sourceRefs []string, documentIDs []int64, patch ArtifactPatch) (int64, error)

	RecordAudit(ctx context.Context, log shared.AuditLog) error
}

// Transactor runs a unit of work in one transaction. fn may be invoked more than once on retryable conflicts.
type Transactor interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// Authorizer resolves the acting user and company for a ledger operation.
type Authorizer interface {
	Authorize(ctx context.Context, req access.Request) (access.Grant, error)
}

// Repository persists ledger entities.
type Repository struct {
	pool *pgxpool.Pool
	opts db.TxOptions
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool, maxAttempts int) *Repository {
	return &Repository{pool: pool, opts: db.TxOptions{MaxAttempts: maxAttempts}}
}

// WithTx executes fn within a repeatable-read transaction, retrying on serialization and sequence conflicts.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil || r.pool == nil {
		return errors.New("accounting repository not initialised")
	}
	return db.WithTxRetry(ctx, r.pool, r.opts, func(tx pgx.Tx) error {
		return fn(ctx, newTxRepository(tx))
	})
}

type txRepository struct {
	tx      pgx.Tx
	periods *periods.Store
	seq     *sequence.PgStore
	catalog *accounts.Catalog
	banks   *mappings.Directory
}

func newTxRepository(tx pgx.Tx) *txRepository {
	return &txRepository{
		tx:      tx,
		periods: periods.NewStore(tx),
		seq:     sequence.NewPgStore(tx),
		catalog: accounts.NewCatalog(tx),
		banks:   mappings.NewDirectory(tx),
	}
}

func (r *txRepository) GetPeriod(ctx context.Context, key periods.Key) (periods.Period, bool, error) {
	return r.periods.GetPeriod(ctx, key)
}

func (r *txRepository) NextCorrelativo(ctx context.Context, companyID int64) (int64, error) {
	return r.seq.NextCorrelativo(ctx, companyID)
}

func (r *txRepository) ActiveChart(ctx context.Context, companyID int64) (*accounts.Chart, bool, error) {
	return r.catalog.ActiveChart(ctx, companyID)
}

func (r *txRepository) BankAccount(ctx context.Context, companyID, bankAccountID int64) (mappings.BankAccount, error) {
	return r.banks.BankAccount(ctx, companyID, bankAccountID)
}

const documentColumns = `id, company_id, doc_key, external_id, direction, payment_condition, issued_on, total, vat,
tax_fuel, tax_tourism_lodging, tax_tourism_tickets, tax_fire_brigade, tax_municipal, tax_alcohol,
tax_tobacco, tax_cement, tax_beverages, tax_stamp, tax_other,
goods_amount, services_amount, debit_account_id, credit_account_id, bank_account_id, counterparty_id,
ledger_entry_id, is_active`

func scanDocument(row pgx.Row) (Document, error) {
	var d Document
	var condition *string
	var externalID *string
	err := row.Scan(&d.ID, &d.CompanyID, &d.Key, &externalID, &d.Direction, &condition, &d.IssuedOn, &d.Total, &d.VAT,
		&d.Extras.Fuel, &d.Extras.TourismLodging, &d.Extras.TourismTickets, &d.Extras.FireBrigade, &d.Extras.Municipal, &d.Extras.Alcohol,
		&d.Extras.Tobacco, &d.Extras.Cement, &d.Extras.Beverages, &d.Extras.Stamp, &d.Extras.Other,
		&d.GoodsAmount, &d.ServicesAmount, &d.DebitAccountID, &d.CreditAccountID, &d.BankAccountID, &d.CounterpartyID,
		&d.LedgerEntryID, &d.IsActive)
	if err != nil {
		return Document{}, err
	}
	if condition != nil {
		d.PaymentCondition = PaymentCondition(*condition)
	}
	if externalID != nil {
		d.ExternalID = *externalID
	}
	return d, nil
}

func (r *txRepository) DocumentByKeyForUpdate(ctx context.Context, companyID int64, key string) (Document, bool, error) {
	doc, err := scanDocument(r.tx.QueryRow(ctx, `SELECT `+documentColumns+`
FROM documents WHERE company_id=$1 AND doc_key=$2 FOR UPDATE`, companyID, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, false, nil
		}
		return Document{}, false, err
	}
	return doc, true, nil
}

func (r *txRepository) DocumentsByKeysForUpdate(ctx context.Context, companyID int64, keys []string) ([]Document, error) {
	return r.queryDocuments(ctx, `SELECT `+documentColumns+`
FROM documents WHERE company_id=$1 AND (doc_key = ANY($2) OR external_id = ANY($2)) ORDER BY id FOR UPDATE`, companyID, keys)
}

func (r *txRepository) DocumentsByIDsForUpdate(ctx context.Context, companyID int64, ids []int64) ([]Document, error) {
	return r.queryDocuments(ctx, `SELECT `+documentColumns+`
FROM documents WHERE company_id=$1 AND id = ANY($2) ORDER BY id FOR UPDATE`, companyID, ids)
}

func (r *txRepository) queryDocuments(ctx context.Context, sql string, args ...any) ([]Document, error) {
	rows, err := r.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (r *txRepository) AppliedTotals(ctx context.Context, companyID int64, documentIDs []int64) (map[int64]decimal.Decimal, error) {
	rows, err := r.tx.Query(ctx, `SELECT a.document_id, SUM(a.amount)
FROM treasury_applications a
JOIN treasury_movements m ON m.id = a.movement_id
WHERE m.company_id=$1 AND a.document_id = ANY($2)
GROUP BY a.document_id`, companyID, documentIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	totals := make(map[int64]decimal.Decimal, len(documentIDs))
	for rows.Next() {
		var id int64
		var sum decimal.Decimal
		if err := rows.Scan(&id, &sum); err != nil {
			return nil, err
		}
		totals[id] = sum
	}
	return totals, rows.Err()
}

func (r *txRepository) StampDocumentEntry(ctx context.Context, companyID, documentID, entryID int64) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE documents SET ledger_entry_id=$3, updated_at=NOW()
WHERE company_id=$1 AND id=$2 AND ledger_entry_id IS NULL`, companyID, documentID, entryID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ledgererr.ErrDocumentAlreadyPosted.With("document_id", documentID)
	}
	return nil
}

func (r *txRepository) InsertEntry(ctx context.Context, entry LedgerEntry) (LedgerEntry, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO ledger_entries (company_id, correlativo, entry_type, entry_date, source_ref, memo, is_active, created_by)
VALUES ($1,$2,$3,$4,$5,$6,TRUE,$7) RETURNING id, created_at`,
		entry.CompanyID, entry.Correlativo, entry.EntryType, entry.EntryDate, entry.SourceRef, entry.Memo, nullInt(entry.CreatedBy)).
		Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return LedgerEntry{}, err
	}
	entry.IsActive = true
	return entry, nil
}

func (r *txRepository) InsertLines(ctx context.Context, entryID int64, lines []LedgerLine) ([]LedgerLine, error) {
	out := make([]LedgerLine, 0, len(lines))
	for _, line := range lines {
		line.EntryID = entryID
		if err := r.tx.QueryRow(ctx, `INSERT INTO ledger_lines (entry_id, account_id, debit, credit, source_ref)
VALUES ($1,$2,$3,$4,$5) RETURNING id`, entryID, line.AccountID, line.Debit, line.Credit, line.SourceRef).Scan(&line.ID); err != nil {
			return nil, err
		}
		out = append(out, line)
	}
	return out, nil
}

func (r *txRepository) InsertBankMovement(ctx context.Context, m BankMovement) (BankMovement, error) {
	if m.Status == "" {
		m.Status = BankStatusPending
	}
	err := r.tx.QueryRow(ctx, `INSERT INTO bank_movements (company_id, bank_account_id, ledger_entry_id, document_id, source_ref, direction, amount, movement_date, status, is_active)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,TRUE) RETURNING id`,
		m.CompanyID, m.BankAccountID, m.LedgerEntryID, m.DocumentID, m.SourceRef, m.Direction, m.Amount, m.MovementDate, m.Status).Scan(&m.ID)
	if err != nil {
		return BankMovement{}, err
	}
	m.IsActive = true
	return m, nil
}

func (r *txRepository) InsertTreasuryMovement(ctx context.Context, m TreasuryMovement) (TreasuryMovement, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO treasury_movements (company_id, kind, bank_account_id, counterparty_id, movement_date, amount, reference, ledger_entry_id, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id`,
		m.CompanyID, m.Kind, m.BankAccountID, m.CounterpartyID, m.MovementDate, m.Amount, m.Reference, m.LedgerEntryID, nullInt(m.CreatedBy)).Scan(&m.ID)
	if err != nil {
		return TreasuryMovement{}, err
	}
	return m, nil
}

func (r *txRepository) InsertApplications(ctx context.Context, movementID int64, apps []Application) error {
	if len(apps) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, app := range apps {
		batch.Queue(`INSERT INTO treasury_applications (movement_id, document_id, amount) VALUES ($1,$2,$3)`, movementID, app.DocumentID, app.Amount)
	}
	results := r.tx.SendBatch(ctx, batch)
	for range apps {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("insert application: %w", err)
		}
	}
	return results.Close()
}

func (r *txRepository) UpdateDocuments(ctx context.Context, companyID int64, ids []int64, patch DocumentPatch) (int64, error) {
	if len(ids) == 0 || patch.Empty() {
		return 0, nil
	}
	cmd, err := r.tx.Exec(ctx, `UPDATE documents SET
issued_on=COALESCE($3, issued_on),
is_active=COALESCE($4, is_active),
debit_account_id=COALESCE($5, debit_account_id),
credit_account_id=COALESCE($6, credit_account_id),
updated_at=NOW()
WHERE company_id=$1 AND id = ANY($2)`, companyID, ids, dateArg(patch.IssuedOn), patch.IsActive, patch.DebitAccountID, patch.CreditAccountID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *txRepository) ReassignLines(ctx context.Context, companyID int64, sourceRefs []string, side LineSide, accountID int64) ([]int64, error) {
	if len(sourceRefs) == 0 {
		return nil, nil
	}
	column := "debit"
	if side == SideCredit {
		column = "credit"
	}
	rows, err := r.tx.Query(ctx, `UPDATE ledger_lines l SET account_id=$3
FROM ledger_entries e
WHERE l.entry_id = e.id AND e.company_id=$1 AND e.entry_type IN ('SALE', 'PURCHASE')
AND l.source_ref = ANY($2) AND l.`+column+` <> 0
RETURNING l.id`, companyID, sourceRefs, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *txRepository) UpdateEntries(ctx context.Context, companyID int64, sourceRefs []string, patch ArtifactPatch) (int64, error) {
	if len(sourceRefs) == 0 || patch.Empty() {
		return 0, nil
	}
	cmd, err := r.tx.Exec(ctx, `UPDATE ledger_entries SET entry_date=COALESCE($3, entry_date), is_active=COALESCE($4, is_active)
WHERE company_id=$1 AND entry_type IN ('SALE', 'PURCHASE') AND source_ref = ANY($2)`, companyID, sourceRefs, dateArg(patch.Date), patch.IsActive)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *txRepository) UpdateBankMovements(ctx context.Context, companyID int64, sourceRefs []string, documentIDs []int64, patch ArtifactPatch) (int64, error) {
	if patch.Empty() || (len(sourceRefs) == 0 && len(documentIDs) == 0) {
		return 0, nil
	}
	cmd, err := r.tx.Exec(ctx, `UPDATE bank_movements SET movement_date=COALESCE($4, movement_date), is_active=COALESCE($5, is_active)
WHERE company_id=$1 AND (source_ref = ANY($2) OR document_id = ANY($3))
AND (ledger_entry_id IS NULL OR ledger_entry_id IN (
	SELECT id FROM ledger_entries WHERE company_id=$1 AND entry_type IN ('SALE', 'PURCHASE')))`, companyID, sourceRefs, documentIDs, dateArg(patch.Date), patch.IsActive)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *txRepository) RecordAudit(ctx context.Context, log shared.AuditLog) error {
	return shared.RecordAudit(ctx, r.tx, log)
}

func nullInt(val int64) any {
	if val == 0 {
		return nil
	}
	return val
}

func dateArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
