package periods

import (
	"context"
	"fmt"
	"time"

	"github.com/odyssey-erp/odyssey-books/internal/access"
	ledgererr "github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

// TxStore is the transactional surface used by period toggles.
type TxStore interface {
	Reader
	UpsertPeriod(ctx context.Context, p Period) (Period, error)
	RecordAudit(ctx context.Context, log shared.AuditLog) error
}

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error
}

// Authorizer resolves the acting user for a tenant/company pair.
type Authorizer interface {
	Authorize(ctx context.Context, req access.Request) (access.Grant, error)
}

// Service reads and toggles fiscal period locks.
type Service struct {
	repo  RepositoryPort
	authz Authorizer
	now   func() time.Time
}

// NewService constructs the period service.
func NewService(repo RepositoryPort, authz Authorizer) *Service {
	return &Service{repo: repo, authz: authz, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Request addresses one company month on behalf of a user.
type Request struct {
	TenantID  int64
	CompanyID int64
	UserID    int64
	Year      int
	Month     int
}

func (r Request) key() Key {
	return Key{CompanyID: r.CompanyID, Year: r.Year, Month: r.Month}
}

func (r Request) validate() error {
	if !r.key().Valid() {
		return ledgererr.Validation("", "invalid fiscal period").
			With("year", r.Year).
			With("month", r.Month)
	}
	return nil
}

// Status returns the lock state, open when the month was never toggled.
func (s *Service) Status(ctx context.Context, req Request) (Period, error) {
	if err := req.validate(); err != nil {
		return Period{}, err
	}
	if _, err := s.authorize(ctx, req, shared.PermLedgerView); err != nil {
		return Period{}, err
	}
	var period Period
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		p, _, err := tx.GetPeriod(ctx, req.key())
		period = p
		return err
	})
	return period, err
}

// Close marks the month closed for postings.
func (s *Service) Close(ctx context.Context, req Request) (Period, error) {
	return s.toggle(ctx, req, true)
}

// Reopen marks the month open again.
func (s *Service) Reopen(ctx context.Context, req Request) (Period, error) {
	return s.toggle(ctx, req, false)
}

func (s *Service) toggle(ctx context.Context, req Request, closed bool) (Period, error) {
	if err := req.validate(); err != nil {
		return Period{}, err
	}
	grant, err := s.authorize(ctx, req, shared.PermFinancePeriodClose)
	if err != nil {
		return Period{}, err
	}
	actor := grant.ActorID
	action := "period.reopen"
	if closed {
		action = "period.close"
	}
	var result Period
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		previous, found, err := tx.GetPeriod(ctx, req.key())
		if err != nil {
			return err
		}
		now := s.now()
		next := req.key().Open()
		next.IsClosed = closed
		next.UpdatedBy = &actor
		if closed {
			next.ClosedAt = &now
			next.ClosedBy = &actor
		}
		saved, err := tx.UpsertPeriod(ctx, next)
		if err != nil {
			return err
		}
		if err := tx.RecordAudit(ctx, shared.AuditLog{
			ActorID:  actor,
			Action:   action,
			Entity:   "fiscal_period",
			EntityID: req.key().String(),
			Meta: map[string]any{
				"year":       req.Year,
				"month":      req.Month,
				"existed":    found,
				"was_closed": previous.IsClosed,
				"is_closed":  closed,
			},
			At: now,
		}); err != nil {
			return fmt.Errorf("periods: audit: %w", err)
		}
		result = saved
		return nil
	})
	if err != nil {
		return Period{}, err
	}
	return result, nil
}

func (s *Service) authorize(ctx context.Context, req Request, perm string) (access.Grant, error) {
	if s.authz == nil {
		return access.Grant{}, ledgererr.Internal(fmt.Errorf("periods: authorizer not configured"))
	}
	return s.authz.Authorize(ctx, access.Request{
		TenantID:   req.TenantID,
		CompanyID:  req.CompanyID,
		UserID:     req.UserID,
		Permission: perm,
	})
}
