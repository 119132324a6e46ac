package allocation

import (
	"context"
	"errors"

	"github.com/odyssey-erp/odyssey-books/internal/access"
	"github.com/odyssey-erp/odyssey-books/internal/accounting"
	ledgererr "github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

// PreviewInput identifies the caller and carries an unsaved document.
type PreviewInput struct {
	TenantID  int64
	CompanyID int64
	UserID    int64
	Document  accounting.Document
}

// Service previews allocations against the company's active chart.
type Service struct {
	repo   accounting.Transactor
	authz  accounting.Authorizer
	engine *Engine
}

// NewService constructs the preview service.
func NewService(repo accounting.Transactor, authz accounting.Authorizer, engine *Engine) *Service {
	if engine == nil {
		engine = NewEngine(DefaultPolicy())
	}
	return &Service{repo: repo, authz: authz, engine: engine}
}

// Preview returns candidate lines without persisting anything.
func (s *Service) Preview(ctx context.Context, in PreviewInput) (Result, error) {
	if !in.Document.Direction.Valid() {
		return Result{}, ledgererr.Validation("", "direction must be SALE or PURCHASE")
	}
	if err := in.Document.ValidateAmounts(); err != nil {
		return Result{}, err
	}
	if s.authz == nil {
		return Result{}, ledgererr.Internal(errors.New("allocation: authorizer not configured"))
	}
	if _, err := s.authz.Authorize(ctx, access.Request{
		TenantID:   in.TenantID,
		CompanyID:  in.CompanyID,
		UserID:     in.UserID,
		Permission: shared.PermLedgerView,
	}); err != nil {
		return Result{}, err
	}
	doc := in.Document
	doc.CompanyID = in.CompanyID
	var result Result
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx accounting.TxRepository) error {
		chart, found, err := tx.ActiveChart(ctx, in.CompanyID)
		if err != nil {
			return err
		}
		if !found {
			return ledgererr.ErrNomenclaturaRequired.With("company_id", in.CompanyID)
		}
		result = s.engine.Allocate(doc, chart)
		return nil
	})
	return result, err
}
