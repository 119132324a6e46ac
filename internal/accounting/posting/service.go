// Package posting turns one unposted commercial document into one balanced ledger entry.
package posting

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-books/internal/access"
	"github.com/odyssey-erp/odyssey-books/internal/accounting"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/allocation"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/mappings"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/periods"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/sequence"
	ledgererr "github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

// Input identifies the document to post and who posts it.
type Input struct {
	TenantID    int64
	CompanyID   int64
	UserID      int64
	DocumentKey string
}

// Result describes the created entry.
type Result struct {
	EntryID          int64
	Correlativo      int64
	BankMovementID   *int64
	AccountingMode   accounting.AccountingMode
	PaymentCondition accounting.PaymentCondition
	Lines            []accounting.LedgerLine
}

// Service posts documents.
type Service struct {
	repo   accounting.Transactor
	authz  accounting.Authorizer
	policy allocation.Policy
	now    func() time.Time
}

// NewService constructs the posting service with the default resolution policy.
func NewService(repo accounting.Transactor, authz accounting.Authorizer) *Service {
	return &Service{repo: repo, authz: authz, policy: allocation.DefaultPolicy(), now: time.Now}
}

// WithPolicy swaps the policy used to resolve the extras account.
func (s *Service) WithPolicy(policy allocation.Policy) *Service {
	s.policy = policy
	return s
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Post creates the ledger entry for the document, at most once.
func (s *Service) Post(ctx context.Context, in Input) (Result, error) {
	in.DocumentKey = strings.TrimSpace(in.DocumentKey)
	if in.DocumentKey == "" {
		return Result{}, ledgererr.Validation("", "document key required")
	}
	if s.authz == nil {
		return Result{}, ledgererr.Internal(errors.New("posting: authorizer not configured"))
	}
	grant, err := s.authz.Authorize(ctx, access.Request{
		TenantID:   in.TenantID,
		CompanyID:  in.CompanyID,
		UserID:     in.UserID,
		Permission: shared.PermLedgerPost,
	})
	if err != nil {
		return Result{}, err
	}
	mode := accounting.ParseAccountingMode(grant.Company.AccountingMode)

	var result Result
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx accounting.TxRepository) error {
		result = Result{AccountingMode: mode}

		doc, found, err := tx.DocumentByKeyForUpdate(ctx, in.CompanyID, in.DocumentKey)
		if err != nil {
			return err
		}
		if !found {
			return ledgererr.NotFound(ledgererr.CodeDocumentNotFound, "document not found").With("document_key", in.DocumentKey)
		}
		if doc.Posted() || !doc.IsActive {
			return ledgererr.ErrDocumentAlreadyPosted.With("document_key", doc.Key)
		}
		if err := periods.AssertOpen(ctx, tx, in.CompanyID, doc.IssuedOn); err != nil {
			return err
		}
		chart, found, err := tx.ActiveChart(ctx, in.CompanyID)
		if err != nil {
			return err
		}
		if !found {
			return ledgererr.ErrNomenclaturaRequired.With("company_id", in.CompanyID)
		}

		condition := doc.PaymentCondition
		if condition == "" {
			condition = mode.DefaultCondition()
		}
		result.PaymentCondition = condition

		if err := doc.ValidateAmounts(); err != nil {
			return err
		}
		amounts := SplitAmounts(doc.Total, doc.VAT, doc.Extras.Sum())
		if !amounts.Total.IsPositive() {
			return ledgererr.Validation("", "document total must be positive").With("document_key", doc.Key)
		}

		builder := lineBuilder{doc: doc, chart: chart, policy: s.policy, condition: condition}
		var bank mappings.BankAccount
		if condition == accounting.ConditionCash {
			bank, err = s.bankAccount(ctx, tx, doc)
			if err != nil {
				return err
			}
			if !chart.Has(*bank.LedgerAccountID) {
				return ledgererr.ErrBankAccountRequired.
					With("bank_account_id", bank.ID).
					With("ledger_account_id", *bank.LedgerAccountID)
			}
			builder.bankLedger = *bank.LedgerAccountID
		}
		lines, amounts, err := builder.build(amounts)
		if err != nil {
			return err
		}
		lines = Balance(lines)
		if err := accounting.ValidateLines(lines); err != nil {
			return err
		}

		correlativo, err := sequence.Next(ctx, tx, in.CompanyID)
		if err != nil {
			return err
		}
		entry, err := tx.InsertEntry(ctx, accounting.LedgerEntry{
			CompanyID:   in.CompanyID,
			Correlativo: correlativo,
			EntryType:   doc.EntryType(),
			EntryDate:   doc.IssuedOn,
			SourceRef:   doc.Key,
			Memo:        memo(doc),
			CreatedBy:   grant.ActorID,
		})
		if err != nil {
			return fmt.Errorf("posting: insert entry: %w", err)
		}
		saved, err := tx.InsertLines(ctx, entry.ID, lines)
		if err != nil {
			return fmt.Errorf("posting: insert lines: %w", err)
		}
		if err := tx.StampDocumentEntry(ctx, in.CompanyID, doc.ID, entry.ID); err != nil {
			return err
		}
		if condition == accounting.ConditionCash {
			direction := accounting.BankDebit
			if doc.Direction == accounting.DirectionPurchase {
				direction = accounting.BankCredit
			}
			movement, err := tx.InsertBankMovement(ctx, accounting.BankMovement{
				CompanyID:     in.CompanyID,
				BankAccountID: bank.ID,
				LedgerEntryID: accounting.Int64Ptr(entry.ID),
				DocumentID:    accounting.Int64Ptr(doc.ID),
				SourceRef:     doc.Key,
				Direction:     direction,
				Amount:        amounts.Total,
				MovementDate:  doc.IssuedOn,
				Status:        accounting.BankStatusPending,
			})
			if err != nil {
				return fmt.Errorf("posting: insert bank movement: %w", err)
			}
			result.BankMovementID = accounting.Int64Ptr(movement.ID)
		}
		if err := tx.RecordAudit(ctx, shared.AuditLog{
			ActorID:  grant.ActorID,
			Action:   "ledger.post",
			Entity:   "ledger_entry",
			EntityID: strconv.FormatInt(entry.ID, 10),
			Meta: map[string]any{
				"document_key":      doc.Key,
				"correlativo":       correlativo,
				"entry_type":        string(entry.EntryType),
				"payment_condition": string(condition),
				"accounting_mode":   string(mode),
				"total":             amounts.Total.StringFixed(2),
				"base":              amounts.Base.StringFixed(2),
				"vat":               amounts.VAT.StringFixed(2),
				"extras":            amounts.Extras.StringFixed(2),
			},
			At: s.now(),
		}); err != nil {
			return fmt.Errorf("posting: audit: %w", err)
		}

		result.EntryID = entry.ID
		result.Correlativo = correlativo
		result.Lines = saved
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return result, nil
}

func (s *Service) bankAccount(ctx context.Context, tx accounting.TxRepository, doc accounting.Document) (mappings.BankAccount, error) {
	required := ledgererr.ErrBankAccountRequired.With("document_key", doc.Key)
	if doc.BankAccountID == nil {
		return mappings.BankAccount{}, required
	}
	bank, err := tx.BankAccount(ctx, doc.CompanyID, *doc.BankAccountID)
	if err != nil {
		if errors.Is(err, mappings.ErrBankAccountNotFound) {
			return mappings.BankAccount{}, required.With("bank_account_id", *doc.BankAccountID)
		}
		return mappings.BankAccount{}, err
	}
	if !bank.Mapped() {
		return mappings.BankAccount{}, required.With("bank_account_id", bank.ID)
	}
	return bank, nil
}

func memo(doc accounting.Document) string {
	ref := doc.ExternalID
	if ref == "" {
		ref = doc.Key
	}
	return fmt.Sprintf("%s %s", strings.ToLower(string(doc.Direction)), ref)
}
