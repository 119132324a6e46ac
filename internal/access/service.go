package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/sync/singleflight"

	ledgererr "github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

// Service resolves tenant, company and permission for every ledger operation.
type Service struct {
	store  Store
	cache  *Cache
	logger *slog.Logger
	group  singleflight.Group
}

// NewService constructs the authorizer. cache and logger may be nil.
func NewService(store Store, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, cache: cache, logger: logger}
}

// Authorize returns the actor grant or an UNAUTHORIZED, FORBIDDEN or NOT_FOUND error.
func (s *Service) Authorize(ctx context.Context, req Request) (Grant, error) {
	req.Permission = strings.TrimSpace(req.Permission)
	if req.UserID <= 0 {
		return Grant{}, ledgererr.Unauthorized("authenticated user required")
	}
	if req.TenantID <= 0 || req.CompanyID <= 0 {
		return Grant{}, ledgererr.Validation("", "tenant and company required")
	}
	if req.Permission == "" {
		return Grant{}, ledgererr.Internal(errors.New("access: permission required"))
	}
	if !slices.Contains(shared.FinanceScopes(), req.Permission) {
		return Grant{}, ledgererr.Internal(fmt.Errorf("access: unknown permission %q", req.Permission))
	}

	allowed, err := s.cache.Allowed(ctx, req)
	if err != nil {
		s.logger.Warn("access cache read", slog.Any("error", err))
	}
	if allowed {
		company, err := s.company(ctx, req)
		if err != nil {
			return Grant{}, err
		}
		return Grant{ActorID: req.UserID, Permission: req.Permission, Company: company}, nil
	}

	key := shared.AccessGrantKey(req.TenantID, req.CompanyID, req.UserID, req.Permission)
	resultChan := s.group.DoChan(key, func() (interface{}, error) {
		return s.resolve(context.WithoutCancel(ctx), req)
	})
	select {
	case <-ctx.Done():
		return Grant{}, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return Grant{}, res.Err
		}
		return res.Val.(Grant), nil
	}
}

// Invalidate drops cached decisions after a role change.
func (s *Service) Invalidate(ctx context.Context, tenantID, companyID int64) error {
	return s.cache.InvalidateCompany(ctx, tenantID, companyID)
}

func (s *Service) resolve(ctx context.Context, req Request) (Grant, error) {
	active, err := s.store.UserActive(ctx, req.UserID)
	if err != nil {
		return Grant{}, ledgererr.Internal(err)
	}
	if !active {
		return Grant{}, ledgererr.Unauthorized("user not found or disabled")
	}
	company, err := s.company(ctx, req)
	if err != nil {
		return Grant{}, err
	}
	perms, err := s.store.Permissions(ctx, req.UserID, req.CompanyID)
	if err != nil {
		return Grant{}, ledgererr.Internal(err)
	}
	if !hasPermission(perms, req.Permission) {
		return Grant{}, ledgererr.Forbidden("permission denied").With("permission", req.Permission)
	}
	if err := s.cache.Allow(ctx, req); err != nil {
		s.logger.Warn("access cache write", slog.Any("error", err))
	}
	return Grant{ActorID: req.UserID, Permission: req.Permission, Company: company}, nil
}

// company loads the request's company fresh so mode and status changes apply immediately.
func (s *Service) company(ctx context.Context, req Request) (Company, error) {
	company, err := s.store.CompanyByID(ctx, req.CompanyID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Company{}, companyNotFound(req)
		}
		return Company{}, ledgererr.Internal(err)
	}
	if company.TenantID != req.TenantID || !company.IsActive {
		return Company{}, companyNotFound(req)
	}
	return company, nil
}

func companyNotFound(req Request) error {
	return ledgererr.NotFound("", "company not found").
		With("tenant_id", req.TenantID).
		With("company_id", req.CompanyID)
}
