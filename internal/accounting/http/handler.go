// Package ledgerhttp exposes the ledger services as JSON endpoints.
package ledgerhttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-books/internal/accounting"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/allocation"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/periods"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/posting"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/rectify"
	ledgererr "github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/treasury"
	"github.com/odyssey-erp/odyssey-books/internal/observability"
	"github.com/odyssey-erp/odyssey-books/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

// HeaderUserID carries the acting user, set by the upstream auth gateway.
const HeaderUserID = "X-User-ID"

// HeaderIdempotencyKey lets clients retry treasury registration safely.
const HeaderIdempotencyKey = "Idempotency-Key"

const treasuryModule = "treasury.movement"

type periodService interface {
	Status(ctx context.Context, req periods.Request) (periods.Period, error)
	Close(ctx context.Context, req periods.Request) (periods.Period, error)
	Reopen(ctx context.Context, req periods.Request) (periods.Period, error)
}

type postingService interface {
	Post(ctx context.Context, in posting.Input) (posting.Result, error)
}

type treasuryService interface {
	RegisterMovement(ctx context.Context, in treasury.MovementInput) (treasury.Result, error)
}

type rectifyService interface {
	Rectify(ctx context.Context, in rectify.Input) (rectify.Result, error)
}

type previewService interface {
	Preview(ctx context.Context, in allocation.PreviewInput) (allocation.Result, error)
}

type accountService interface {
	List(ctx context.Context, in accounts.ListInput) ([]accounts.Account, error)
}

type ledgerService interface {
	List(ctx context.Context, in journals.ListInput) ([]accounting.LedgerEntry, error)
}

// IdempotencyStore records processed request keys per module.
type IdempotencyStore interface {
	Claim(ctx context.Context, module, key string) error
	Release(ctx context.Context, module, key string) error
}

// Services bundles the ledger operations served over HTTP.
type Services struct {
	Periods  periodService
	Posting  postingService
	Treasury treasuryService
	Rectify  rectifyService
	Preview  previewService
	Ledger   ledgerService
	Accounts accountService
}

// Handler wires HTTP endpoints for the ledger.
type Handler struct {
	logger      *slog.Logger
	services    Services
	metrics     *observability.Metrics
	idempotency IdempotencyStore
	validate    *validator.Validate
}

// NewHandler builds the handler. metrics and idempotency may be nil.
func NewHandler(logger *slog.Logger, services Services, metrics *observability.Metrics, idempotency IdempotencyStore) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:      logger,
		services:    services,
		metrics:     metrics,
		idempotency: idempotency,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

// MountRoutes attaches the ledger routes to a router scoped to
// /tenants/{tenantID}/companies/{companyID}.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/periods/{year}/{month}", func(r chi.Router) {
		r.Get("/", h.periodStatus)
		r.Post("/close", h.closePeriod)
		r.Post("/reopen", h.reopenPeriod)
	})
	r.Post("/documents/{key}/post", h.postDocument)
	r.Post("/documents/rectify", h.rectifyDocuments)
	r.Post("/documents/allocate", h.allocate)
	r.Post("/treasury/movements", h.registerMovement)
	r.Get("/ledger/entries", h.listEntries)
	r.Get("/accounts", h.listAccounts)
}

type scope struct {
	tenantID  int64
	companyID int64
	userID    int64
}

func (h *Handler) scope(w http.ResponseWriter, r *http.Request) (scope, bool) {
	tenantID, err := strconv.ParseInt(chi.URLParam(r, "tenantID"), 10, 64)
	if err != nil || tenantID <= 0 {
		httpx.BadRequest(w, "invalid tenant id")
		return scope{}, false
	}
	companyID, err := strconv.ParseInt(chi.URLParam(r, "companyID"), 10, 64)
	if err != nil || companyID <= 0 {
		httpx.BadRequest(w, "invalid company id")
		return scope{}, false
	}
	userID, err := strconv.ParseInt(strings.TrimSpace(r.Header.Get(HeaderUserID)), 10, 64)
	if err != nil || userID <= 0 {
		httpx.RespondError(w, ledgererr.Unauthorized("missing or invalid "+HeaderUserID))
		return scope{}, false
	}
	return scope{tenantID: tenantID, companyID: companyID, userID: userID}, true
}

func (h *Handler) periodRequest(w http.ResponseWriter, r *http.Request) (periods.Request, bool) {
	sc, ok := h.scope(w, r)
	if !ok {
		return periods.Request{}, false
	}
	year, errYear := strconv.Atoi(chi.URLParam(r, "year"))
	month, errMonth := strconv.Atoi(chi.URLParam(r, "month"))
	if errYear != nil || errMonth != nil {
		httpx.BadRequest(w, "year and month must be numeric")
		return periods.Request{}, false
	}
	return periods.Request{TenantID: sc.tenantID, CompanyID: sc.companyID, UserID: sc.userID, Year: year, Month: month}, true
}

func (h *Handler) periodStatus(w http.ResponseWriter, r *http.Request) {
	req, ok := h.periodRequest(w, r)
	if !ok {
		return
	}
	period, err := h.services.Periods.Status(r.Context(), req)
	if err != nil {
		h.fail(w, r, "", err)
		return
	}
	httpx.JSON(w, http.StatusOK, newPeriodResponse(period))
}

func (h *Handler) closePeriod(w http.ResponseWriter, r *http.Request) {
	h.togglePeriod(w, r, observability.OpPeriodClose, h.services.Periods.Close)
}

func (h *Handler) reopenPeriod(w http.ResponseWriter, r *http.Request) {
	h.togglePeriod(w, r, observability.OpPeriodReopen, h.services.Periods.Reopen)
}

func (h *Handler) togglePeriod(w http.ResponseWriter, r *http.Request, op string, fn func(context.Context, periods.Request) (periods.Period, error)) {
	req, ok := h.periodRequest(w, r)
	if !ok {
		return
	}
	period, err := fn(r.Context(), req)
	h.metrics.RecordOperation(op, err)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newPeriodResponse(period))
}

func (h *Handler) postDocument(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.scope(w, r)
	if !ok {
		return
	}
	res, err := h.services.Posting.Post(r.Context(), posting.Input{
		TenantID:    sc.tenantID,
		CompanyID:   sc.companyID,
		UserID:      sc.userID,
		DocumentKey: chi.URLParam(r, "key"),
	})
	h.metrics.RecordOperation(observability.OpPost, err)
	if err != nil {
		h.fail(w, r, observability.OpPost, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, newPostingResponse(res))
}

func (h *Handler) registerMovement(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.scope(w, r)
	if !ok {
		return
	}
	var body treasuryRequest
	if !h.decode(w, r, &body) {
		return
	}
	in, err := body.input(sc.tenantID, sc.companyID, sc.userID)
	if err != nil {
		httpx.BadRequest(w, "invalid date")
		return
	}

	key := strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey))
	if key != "" && h.idempotency != nil {
		scoped := idempotencyKey(sc, key)
		if err := h.idempotency.Claim(r.Context(), treasuryModule, scoped); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				err = ledgererr.Conflict(ledgererr.CodeDuplicateRequest, "request already processed").With("idempotency_key", key)
			}
			h.fail(w, r, observability.OpTreasury, err)
			return
		}
		defer func() {
			if err != nil {
				if delErr := h.idempotency.Release(context.WithoutCancel(r.Context()), treasuryModule, scoped); delErr != nil {
					h.logger.Warn("release idempotency key", slog.String("key", scoped), slog.Any("error", delErr))
				}
			}
		}()
	}

	var res treasury.Result
	res, err = h.services.Treasury.RegisterMovement(r.Context(), in)
	h.metrics.RecordOperation(observability.OpTreasury, err)
	if err != nil {
		h.fail(w, r, observability.OpTreasury, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, newTreasuryResponse(res))
}

func idempotencyKey(sc scope, key string) string {
	return strconv.FormatInt(sc.tenantID, 10) + ":" + strconv.FormatInt(sc.companyID, 10) + ":" + key
}

func (h *Handler) rectifyDocuments(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.scope(w, r)
	if !ok {
		return
	}
	var body rectifyRequest
	if !h.decode(w, r, &body) {
		return
	}
	in, err := body.input(sc.tenantID, sc.companyID, sc.userID)
	if err != nil {
		httpx.BadRequest(w, "invalid new_date")
		return
	}
	res, err := h.services.Rectify.Rectify(r.Context(), in)
	h.metrics.RecordOperation(observability.OpRectify, err)
	if err != nil {
		h.fail(w, r, observability.OpRectify, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) allocate(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.scope(w, r)
	if !ok {
		return
	}
	var body allocateRequest
	if !h.decode(w, r, &body) {
		return
	}
	res, err := h.services.Preview.Preview(r.Context(), allocation.PreviewInput{
		TenantID:  sc.tenantID,
		CompanyID: sc.companyID,
		UserID:    sc.userID,
		Document:  body.document(),
	})
	h.metrics.RecordOperation(observability.OpPreview, err)
	if err != nil {
		h.fail(w, r, observability.OpPreview, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) listEntries(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.scope(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	from, errFrom := parseDate(query.Get("from"))
	to, errTo := parseDate(query.Get("to"))
	if errFrom != nil || errTo != nil {
		httpx.BadRequest(w, "from and to must be YYYY-MM-DD")
		return
	}
	entries, err := h.services.Ledger.List(r.Context(), journals.ListInput{
		TenantID: sc.tenantID,
		UserID:   sc.userID,
		Filter:   journals.Filter{CompanyID: sc.companyID, From: from, To: to},
	})
	if err != nil {
		h.fail(w, r, "", err)
		return
	}
	if entries == nil {
		entries = []accounting.LedgerEntry{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.scope(w, r)
	if !ok {
		return
	}
	list, err := h.services.Accounts.List(r.Context(), accounts.ListInput{
		TenantID:  sc.tenantID,
		CompanyID: sc.companyID,
		UserID:    sc.userID,
	})
	if err != nil {
		h.fail(w, r, "", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"accounts": list})
}

// decode reads and validates the body, writing the failure response itself.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.BadRequest(w, err.Error())
		return false
	}
	if err := h.validate.Struct(target); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			fields := make(map[string]string, len(fieldErrs))
			for _, fe := range fieldErrs {
				fields[fe.Namespace()] = fe.Tag()
			}
			httpx.RespondError(w, ledgererr.Validation("", "request validation failed").With("fields", fields))
			return false
		}
		httpx.BadRequest(w, err.Error())
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := httpx.RespondError(w, err)
	attrs := []any{
		slog.String("path", r.URL.Path),
		slog.String("code", ledgererr.CodeOf(err)),
		slog.Int("status", status),
	}
	if op != "" {
		attrs = append(attrs, slog.String("operation", op))
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("ledger request failed", append(attrs, slog.Any("error", err))...)
		return
	}
	h.logger.Info("ledger request rejected", attrs...)
}
