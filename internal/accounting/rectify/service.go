// Package rectify applies one patch across a batch of documents and every artifact derived from them.
package rectify

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-books/internal/access"
	"github.com/odyssey-erp/odyssey-books/internal/accounting"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/periods"
	ledgererr "github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

// Patch lists the changes to apply. Nil fields are left untouched.
type Patch struct {
	NewDate          *time.Time
	Active           *bool
	DebitAccountID   *int64
	DebitOverrideID  *int64
	CreditAccountID  *int64
	CreditOverrideID *int64
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.NewDate == nil && p.Active == nil &&
		p.DebitAccountID == nil && p.DebitOverrideID == nil &&
		p.CreditAccountID == nil && p.CreditOverrideID == nil
}

// debitTarget is the account debit-bearing lines move to, if any.
func (p Patch) debitTarget() *int64 {
	if p.DebitOverrideID != nil {
		return p.DebitOverrideID
	}
	return p.DebitAccountID
}

// creditTarget is the account credit-bearing lines move to, if any.
func (p Patch) creditTarget() *int64 {
	if p.CreditOverrideID != nil {
		return p.CreditOverrideID
	}
	return p.CreditAccountID
}

func (p Patch) accountIDs() []int64 {
	var ids []int64
	for _, id := range []*int64{p.DebitAccountID, p.DebitOverrideID, p.CreditAccountID, p.CreditOverrideID} {
		if id != nil {
			ids = append(ids, *id)
		}
	}
	return ids
}

// Input selects the documents and the patch.
type Input struct {
	TenantID     int64
	CompanyID    int64
	UserID       int64
	DocumentKeys []string
	Patch        Patch
}

// Result counts the affected rows.
type Result struct {
	Documents     int64 `json:"documents"`
	Lines         int64 `json:"lines"`
	Entries       int64 `json:"entries"`
	BankMovements int64 `json:"bank_movements"`
}

// Service rectifies posted and unposted documents.
type Service struct {
	repo  accounting.Transactor
	authz accounting.Authorizer
	now   func() time.Time
}

// NewService constructs the rectification service.
func NewService(repo accounting.Transactor, authz accounting.Authorizer) *Service {
	return &Service{repo: repo, authz: authz, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func normalizeKeys(keys []string) ([]string, error) {
	if len(keys) == 0 {
		return nil, ledgererr.Validation("", "at least one document key required")
	}
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			return nil, ledgererr.Validation("", "document keys must not be blank")
		}
		if _, dup := seen[k]; dup {
			return nil, ledgererr.Conflict(ledgererr.CodeDuplicateKeys, "document key repeated").With("document_key", k)
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out, nil
}

// Rectify patches the documents and their entries, lines and bank movements in one transaction.
func (s *Service) Rectify(ctx context.Context, in Input) (Result, error) {
	keys, err := normalizeKeys(in.DocumentKeys)
	if err != nil {
		return Result{}, err
	}
	if in.Patch.Empty() {
		return Result{}, ledgererr.Validation("", "patch changes nothing")
	}
	if s.authz == nil {
		return Result{}, ledgererr.Internal(errors.New("rectify: authorizer not configured"))
	}
	grant, err := s.authz.Authorize(ctx, access.Request{
		TenantID:   in.TenantID,
		CompanyID:  in.CompanyID,
		UserID:     in.UserID,
		Permission: shared.PermLedgerRectify,
	})
	if err != nil {
		return Result{}, err
	}

	var result Result
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx accounting.TxRepository) error {
		result = Result{}

		docs, err := resolve(ctx, tx, in.CompanyID, keys)
		if err != nil {
			return err
		}
		dates := make([]time.Time, 0, len(docs)+1)
		for _, d := range docs {
			dates = append(dates, d.IssuedOn)
		}
		if in.Patch.NewDate != nil {
			dates = append(dates, *in.Patch.NewDate)
		}
		if err := periods.AssertAllOpen(ctx, tx, in.CompanyID, dates...); err != nil {
			return err
		}
		if err := checkAccounts(ctx, tx, in.CompanyID, in.Patch.accountIDs()); err != nil {
			return err
		}

		ids := make([]int64, 0, len(docs))
		refs := make([]string, 0, len(docs))
		for _, d := range docs {
			ids = append(ids, d.ID)
			refs = append(refs, d.Key)
		}

		result.Documents, err = tx.UpdateDocuments(ctx, in.CompanyID, ids, accounting.DocumentPatch{
			IssuedOn:        in.Patch.NewDate,
			IsActive:        in.Patch.Active,
			DebitAccountID:  in.Patch.DebitAccountID,
			CreditAccountID: in.Patch.CreditAccountID,
		})
		if err != nil {
			return err
		}

		// Debit first, credit second: a line carrying both amounts keeps the credit account.
		touched := make(map[int64]struct{})
		for _, rule := range []struct {
			side    accounting.LineSide
			account *int64
		}{
			{accounting.SideDebit, in.Patch.debitTarget()},
			{accounting.SideCredit, in.Patch.creditTarget()},
		} {
			if rule.account == nil {
				continue
			}
			lineIDs, err := tx.ReassignLines(ctx, in.CompanyID, refs, rule.side, *rule.account)
			if err != nil {
				return err
			}
			for _, id := range lineIDs {
				touched[id] = struct{}{}
			}
		}
		result.Lines = int64(len(touched))

		artifact := accounting.ArtifactPatch{Date: in.Patch.NewDate, IsActive: in.Patch.Active}
		if !artifact.Empty() {
			if result.Entries, err = tx.UpdateEntries(ctx, in.CompanyID, refs, artifact); err != nil {
				return err
			}
			if result.BankMovements, err = tx.UpdateBankMovements(ctx, in.CompanyID, refs, ids, artifact); err != nil {
				return err
			}
		}

		meta := map[string]any{
			"document_keys":  refs,
			"documents":      result.Documents,
			"lines":          result.Lines,
			"entries":        result.Entries,
			"bank_movements": result.BankMovements,
		}
		if in.Patch.NewDate != nil {
			meta["new_date"] = in.Patch.NewDate.Format("2006-01-02")
		}
		if in.Patch.Active != nil {
			meta["active"] = *in.Patch.Active
		}
		return tx.RecordAudit(ctx, shared.AuditLog{
			ActorID:  grant.ActorID,
			Action:   "ledger.rectify",
			Entity:   "document",
			EntityID: strings.Join(refs, ","),
			Meta:     meta,
			At:       s.now(),
		})
	})
	if err != nil {
		return Result{}, err
	}
	return result, nil
}

// resolve locks the documents matching the keys by internal key or external id.
func resolve(ctx context.Context, tx accounting.TxRepository, companyID int64, keys []string) ([]accounting.Document, error) {
	docs, err := tx.DocumentsByKeysForUpdate(ctx, companyID, keys)
	if err != nil {
		return nil, err
	}
	matched := make(map[string]struct{}, len(docs)*2)
	for _, d := range docs {
		matched[d.Key] = struct{}{}
		if d.ExternalID != "" {
			matched[d.ExternalID] = struct{}{}
		}
	}
	var missing []string
	for _, k := range keys {
		if _, ok := matched[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, ledgererr.ErrDocumentsNotFound.With("document_keys", missing)
	}
	return docs, nil
}

func checkAccounts(ctx context.Context, tx accounting.TxRepository, companyID int64, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	chart, found, err := tx.ActiveChart(ctx, companyID)
	if err != nil {
		return err
	}
	if !found {
		return ledgererr.ErrNomenclaturaRequired.With("company_id", companyID)
	}
	return requireInChart(chart, ids)
}

func requireInChart(chart *accounts.Chart, ids []int64) error {
	for _, id := range ids {
		if !chart.Has(id) {
			return ledgererr.NotFound(ledgererr.CodeAccountNotFound, "account not in active chart").With("account_id", id)
		}
	}
	return nil
}
