// Package treasury registers collections and payments and indexes the documents they offset.
package treasury

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/access"
	"github.com/odyssey-erp/odyssey-books/internal/accounting"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/mappings"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/periods"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/sequence"
	ledgererr "github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

// ApplicationInput pairs the movement with part of one document.
type ApplicationInput struct {
	DocumentID int64
	Amount     decimal.Decimal
}

// MovementInput describes a collection or payment.
type MovementInput struct {
	TenantID       int64
	CompanyID      int64
	UserID         int64
	Kind           accounting.MovementKind
	BankAccountID  int64
	CounterpartyID *int64
	Date           time.Time
	Amount         decimal.Decimal
	Reference      string
	Applications   []ApplicationInput
}

// Result describes the created artifacts.
type Result struct {
	MovementID     int64
	EntryID        int64
	Correlativo    int64
	BankMovementID int64
	Reference      string
	Applied        decimal.Decimal
	Unapplied      decimal.Decimal
}

// Service registers treasury movements.
type Service struct {
	repo  accounting.Transactor
	authz accounting.Authorizer
	now   func() time.Time
}

// NewService constructs the treasury service.
func NewService(repo accounting.Transactor, authz accounting.Authorizer) *Service {
	return &Service{repo: repo, authz: authz, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Validate checks the request shape and the applied-amount bound without touching storage.
func (in MovementInput) Validate() (decimal.Decimal, error) {
	if !in.Kind.Valid() {
		return decimal.Zero, ledgererr.Validation("", "kind must be COLLECTION or PAYMENT")
	}
	amount := accounting.Round(in.Amount)
	if !amount.IsPositive() {
		return decimal.Zero, ledgererr.Validation("", "amount must be positive")
	}
	if in.Date.IsZero() {
		return decimal.Zero, ledgererr.Validation("", "movement date required")
	}
	if in.BankAccountID <= 0 {
		return decimal.Zero, ledgererr.ErrBankAccountRequired
	}
	applied := decimal.Zero
	seen := make(map[int64]struct{}, len(in.Applications))
	for idx, app := range in.Applications {
		if app.DocumentID <= 0 {
			return decimal.Zero, ledgererr.Validation("", fmt.Sprintf("application %d missing document", idx))
		}
		if !accounting.Round(app.Amount).IsPositive() {
			return decimal.Zero, ledgererr.Validation("", fmt.Sprintf("application %d amount must be positive", idx)).
				With("document_id", app.DocumentID)
		}
		if _, dup := seen[app.DocumentID]; dup {
			return decimal.Zero, ledgererr.Conflict(ledgererr.CodeDuplicateApplication, "document applied twice").
				With("document_id", app.DocumentID)
		}
		seen[app.DocumentID] = struct{}{}
		applied = applied.Add(accounting.Round(app.Amount))
	}
	if applied.GreaterThan(amount) {
		return decimal.Zero, ledgererr.ErrAppliedAmountExceeds.
			With("amount", amount.StringFixed(2)).
			With("applied", applied.StringFixed(2))
	}
	return applied, nil
}

// RegisterMovement posts the full amount against the control account and records the applications.
func (s *Service) RegisterMovement(ctx context.Context, in MovementInput) (Result, error) {
	applied, err := in.Validate()
	if err != nil {
		return Result{}, err
	}
	if s.authz == nil {
		return Result{}, ledgererr.Internal(errors.New("treasury: authorizer not configured"))
	}
	grant, err := s.authz.Authorize(ctx, access.Request{
		TenantID:   in.TenantID,
		CompanyID:  in.CompanyID,
		UserID:     in.UserID,
		Permission: shared.PermTreasuryRegister,
	})
	if err != nil {
		return Result{}, err
	}
	mode := accounting.ParseAccountingMode(grant.Company.AccountingMode)
	amount := accounting.Round(in.Amount)
	reference := strings.TrimSpace(in.Reference)
	if reference == "" {
		reference = "TRX-" + uuid.NewString()
	}
	entryType := accounting.EntryCollection
	bankDirection := accounting.BankDebit
	if in.Kind == accounting.KindPayment {
		entryType = accounting.EntryPayment
		bankDirection = accounting.BankCredit
	}

	var result Result
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx accounting.TxRepository) error {
		result = Result{}

		chart, found, err := tx.ActiveChart(ctx, in.CompanyID)
		if err != nil {
			return err
		}
		if !found {
			return ledgererr.ErrNomenclaturaRequired.With("company_id", in.CompanyID)
		}
		bank, err := tx.BankAccount(ctx, in.CompanyID, in.BankAccountID)
		if err != nil {
			if errors.Is(err, mappings.ErrBankAccountNotFound) {
				return ledgererr.ErrBankAccountRequired.With("bank_account_id", in.BankAccountID)
			}
			return err
		}
		if !bank.Mapped() || !chart.Has(*bank.LedgerAccountID) {
			return ledgererr.ErrBankAccountRequired.With("bank_account_id", bank.ID)
		}
		if err := checkReference(ctx, tx, in.CompanyID, reference); err != nil {
			return err
		}
		control, err := controlAccount(chart, in.Kind)
		if err != nil {
			return err
		}
		if err := s.checkApplications(ctx, tx, in, mode); err != nil {
			return err
		}
		if err := periods.AssertOpen(ctx, tx, in.CompanyID, in.Date); err != nil {
			return err
		}

		correlativo, err := sequence.Next(ctx, tx, in.CompanyID)
		if err != nil {
			return err
		}
		entry, err := tx.InsertEntry(ctx, accounting.LedgerEntry{
			CompanyID:   in.CompanyID,
			Correlativo: correlativo,
			EntryType:   entryType,
			EntryDate:   in.Date,
			SourceRef:   reference,
			Memo:        fmt.Sprintf("%s %s", strings.ToLower(string(in.Kind)), reference),
			CreatedBy:   grant.ActorID,
		})
		if err != nil {
			return fmt.Errorf("treasury: insert entry: %w", err)
		}
		debitAccount, creditAccount := *bank.LedgerAccountID, control
		if in.Kind == accounting.KindPayment {
			debitAccount, creditAccount = control, *bank.LedgerAccountID
		}
		lines := []accounting.LedgerLine{
			{AccountID: debitAccount, Debit: amount, Credit: decimal.Zero, SourceRef: reference},
			{AccountID: creditAccount, Debit: decimal.Zero, Credit: amount, SourceRef: reference},
		}
		if err := accounting.ValidateLines(lines); err != nil {
			return err
		}
		if _, err := tx.InsertLines(ctx, entry.ID, lines); err != nil {
			return fmt.Errorf("treasury: insert lines: %w", err)
		}
		movement, err := tx.InsertTreasuryMovement(ctx, accounting.TreasuryMovement{
			CompanyID:      in.CompanyID,
			Kind:           in.Kind,
			BankAccountID:  bank.ID,
			CounterpartyID: in.CounterpartyID,
			MovementDate:   in.Date,
			Amount:         amount,
			Reference:      reference,
			LedgerEntryID:  accounting.Int64Ptr(entry.ID),
			CreatedBy:      grant.ActorID,
		})
		if err != nil {
			return fmt.Errorf("treasury: insert movement: %w", err)
		}
		bankMovement, err := tx.InsertBankMovement(ctx, accounting.BankMovement{
			CompanyID:     in.CompanyID,
			BankAccountID: bank.ID,
			LedgerEntryID: accounting.Int64Ptr(entry.ID),
			SourceRef:     reference,
			Direction:     bankDirection,
			Amount:        amount,
			MovementDate:  in.Date,
			Status:        accounting.BankStatusPending,
		})
		if err != nil {
			return fmt.Errorf("treasury: insert bank movement: %w", err)
		}
		apps := make([]accounting.Application, 0, len(in.Applications))
		for _, app := range in.Applications {
			apps = append(apps, accounting.Application{DocumentID: app.DocumentID, Amount: accounting.Round(app.Amount)})
		}
		if err := tx.InsertApplications(ctx, movement.ID, apps); err != nil {
			return fmt.Errorf("treasury: insert applications: %w", err)
		}
		if err := tx.RecordAudit(ctx, shared.AuditLog{
			ActorID:  grant.ActorID,
			Action:   "treasury.register",
			Entity:   "treasury_movement",
			EntityID: strconv.FormatInt(movement.ID, 10),
			Meta: map[string]any{
				"kind":         string(in.Kind),
				"reference":    reference,
				"correlativo":  correlativo,
				"amount":       amount.StringFixed(2),
				"applied":      applied.StringFixed(2),
				"applications": len(apps),
			},
			At: s.now(),
		}); err != nil {
			return fmt.Errorf("treasury: audit: %w", err)
		}

		result = Result{
			MovementID:     movement.ID,
			EntryID:        entry.ID,
			Correlativo:    correlativo,
			BankMovementID: bankMovement.ID,
			Reference:      reference,
			Applied:        applied,
			Unapplied:      amount.Sub(applied),
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return result, nil
}

func controlAccount(chart *accounts.Chart, kind accounting.MovementKind) (int64, error) {
	code, errCode := accounts.CodeReceivables, ledgererr.CodeReceivablesAccountNotFound
	if kind == accounting.KindPayment {
		code, errCode = accounts.CodePayables, ledgererr.CodePayablesAccountNotFound
	}
	a, ok := chart.ByCode(code)
	if !ok {
		return 0, ledgererr.NotFound(errCode, "standard account "+code+" missing from chart").With("code", code)
	}
	return a.ID, nil
}

// checkReference keeps movement references apart from document keys, which
// rectification uses to find derived entries.
func checkReference(ctx context.Context, tx accounting.TxRepository, companyID int64, reference string) error {
	docs, err := tx.DocumentsByKeysForUpdate(ctx, companyID, []string{reference})
	if err != nil {
		return err
	}
	if len(docs) > 0 {
		return ledgererr.ErrReferenceInUse.With("reference", reference)
	}
	return nil
}

// checkApplications rejects the whole call when any target is not an active
// credit document of the right direction, or when an application exceeds its open balance.
func (s *Service) checkApplications(ctx context.Context, tx accounting.TxRepository, in MovementInput, mode accounting.AccountingMode) error {
	if len(in.Applications) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(in.Applications))
	for _, app := range in.Applications {
		ids = append(ids, app.DocumentID)
	}
	docs, err := tx.DocumentsByIDsForUpdate(ctx, in.CompanyID, ids)
	if err != nil {
		return err
	}
	byID := make(map[int64]accounting.Document, len(docs))
	for _, d := range docs {
		byID[d.ID] = d
	}
	want := accounting.DirectionSale
	if in.Kind == accounting.KindPayment {
		want = accounting.DirectionPurchase
	}
	prior, err := tx.AppliedTotals(ctx, in.CompanyID, ids)
	if err != nil {
		return err
	}
	for _, app := range in.Applications {
		doc, ok := byID[app.DocumentID]
		invalid := func(reason string) error {
			return ledgererr.ErrInvalidAppliedDoc.With("document_id", app.DocumentID).With("reason", reason)
		}
		if !ok {
			return invalid("not found for company")
		}
		if doc.Direction != want {
			return invalid("direction mismatch")
		}
		condition := doc.PaymentCondition
		if condition == "" {
			condition = mode.DefaultCondition()
		}
		if condition != accounting.ConditionCredit {
			return invalid("not a credit document")
		}
		if !doc.IsActive {
			return invalid("inactive")
		}
		if in.CounterpartyID != nil && doc.CounterpartyID != nil && *in.CounterpartyID != *doc.CounterpartyID {
			return invalid("counterparty mismatch")
		}
		open := accounting.Round(doc.Total).Sub(prior[doc.ID])
		if accounting.Round(app.Amount).GreaterThan(open) {
			return ledgererr.ErrAppliedAmountExceeds.
				With("document_id", doc.ID).
				With("open_balance", open.StringFixed(2)).
				With("applied", accounting.Round(app.Amount).StringFixed(2))
		}
	}
	return nil
}
