package accounts

import (
	"context"
	"errors"

	"github.com/odyssey-erp/odyssey-books/internal/access"
	ledgererr "github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

// ChartReader loads a company's active chart.
type ChartReader interface {
	ActiveChart(ctx context.Context, companyID int64) (*Chart, bool, error)
}

// Authorizer checks the caller before the chart is read.
type Authorizer interface {
	Authorize(ctx context.Context, req access.Request) (access.Grant, error)
}

// ListInput identifies the caller and the company.
type ListInput struct {
	TenantID  int64
	CompanyID int64
	UserID    int64
}

// Service exposes the read-only chart listing.
type Service struct {
	reader ChartReader
	authz  Authorizer
}

// NewService constructs the listing service.
func NewService(reader ChartReader, authz Authorizer) *Service {
	return &Service{reader: reader, authz: authz}
}

// List returns the active accounts of the company ordered by code.
func (s *Service) List(ctx context.Context, in ListInput) ([]Account, error) {
	if s.authz == nil {
		return nil, ledgererr.Internal(errors.New("accounts: authorizer not configured"))
	}
	if _, err := s.authz.Authorize(ctx, access.Request{
		TenantID:   in.TenantID,
		CompanyID:  in.CompanyID,
		UserID:     in.UserID,
		Permission: shared.PermLedgerView,
	}); err != nil {
		return nil, err
	}
	chart, found, err := s.reader.ActiveChart(ctx, in.CompanyID)
	if err != nil {
		return nil, ledgererr.Internal(err)
	}
	if !found {
		return nil, ledgererr.ErrNomenclaturaRequired.With("company_id", in.CompanyID)
	}
	return chart.Accounts(), nil
}
