package ledgerhttp

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/accounting"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/periods"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/posting"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/rectify"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/treasury"
)

const dateLayout = "2006-01-02"

func parseDate(value string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, value, time.UTC)
}

type applicationRequest struct {
	DocumentID int64           `json:"document_id" validate:"required,gt=0"`
	Amount     decimal.Decimal `json:"amount"`
}

type treasuryRequest struct {
	Kind           string               `json:"kind" validate:"required,oneof=COLLECTION PAYMENT"`
	BankAccountID  int64                `json:"bank_account_id" validate:"required,gt=0"`
	CounterpartyID *int64               `json:"counterparty_id" validate:"omitempty,gt=0"`
	Date           string               `json:"date" validate:"required,datetime=2006-01-02"`
	Amount         decimal.Decimal      `json:"amount"`
	Reference      string               `json:"reference" validate:"max=64"`
	Applications   []applicationRequest `json:"applications" validate:"dive"`
}

func (r treasuryRequest) input(tenantID, companyID, userID int64) (treasury.MovementInput, error) {
	date, err := parseDate(r.Date)
	if err != nil {
		return treasury.MovementInput{}, err
	}
	apps := make([]treasury.ApplicationInput, 0, len(r.Applications))
	for _, a := range r.Applications {
		apps = append(apps, treasury.ApplicationInput{DocumentID: a.DocumentID, Amount: a.Amount})
	}
	return treasury.MovementInput{
		TenantID:       tenantID,
		CompanyID:      companyID,
		UserID:         userID,
		Kind:           accounting.MovementKind(r.Kind),
		BankAccountID:  r.BankAccountID,
		CounterpartyID: r.CounterpartyID,
		Date:           date,
		Amount:         r.Amount,
		Reference:      r.Reference,
		Applications:   apps,
	}, nil
}

type treasuryResponse struct {
	MovementID     int64           `json:"movement_id"`
	EntryID        int64           `json:"entry_id"`
	Correlativo    int64           `json:"correlativo"`
	BankMovementID int64           `json:"bank_movement_id"`
	Reference      string          `json:"reference"`
	Applied        decimal.Decimal `json:"applied"`
	Unapplied      decimal.Decimal `json:"unapplied"`
}

func newTreasuryResponse(res treasury.Result) treasuryResponse {
	return treasuryResponse{
		MovementID:     res.MovementID,
		EntryID:        res.EntryID,
		Correlativo:    res.Correlativo,
		BankMovementID: res.BankMovementID,
		Reference:      res.Reference,
		Applied:        res.Applied,
		Unapplied:      res.Unapplied,
	}
}

type rectifyRequest struct {
	DocumentKeys     []string `json:"document_keys" validate:"required,min=1,dive,required"`
	NewDate          *string  `json:"new_date" validate:"omitempty,datetime=2006-01-02"`
	Active           *bool    `json:"active"`
	DebitAccountID   *int64   `json:"debit_account_id" validate:"omitempty,gt=0"`
	DebitOverrideID  *int64   `json:"debit_override_id" validate:"omitempty,gt=0"`
	CreditAccountID  *int64   `json:"credit_account_id" validate:"omitempty,gt=0"`
	CreditOverrideID *int64   `json:"credit_override_id" validate:"omitempty,gt=0"`
}

func (r rectifyRequest) input(tenantID, companyID, userID int64) (rectify.Input, error) {
	patch := rectify.Patch{
		Active:           r.Active,
		DebitAccountID:   r.DebitAccountID,
		DebitOverrideID:  r.DebitOverrideID,
		CreditAccountID:  r.CreditAccountID,
		CreditOverrideID: r.CreditOverrideID,
	}
	if r.NewDate != nil {
		date, err := parseDate(*r.NewDate)
		if err != nil {
			return rectify.Input{}, err
		}
		patch.NewDate = &date
	}
	return rectify.Input{
		TenantID:     tenantID,
		CompanyID:    companyID,
		UserID:       userID,
		DocumentKeys: r.DocumentKeys,
		Patch:        patch,
	}, nil
}

type allocateRequest struct {
	Direction        string                `json:"direction" validate:"required,oneof=SALE PURCHASE"`
	PaymentCondition string                `json:"payment_condition" validate:"omitempty,oneof=CASH CREDIT"`
	Total            decimal.Decimal       `json:"total"`
	VAT              decimal.Decimal       `json:"vat"`
	GoodsAmount      decimal.Decimal       `json:"goods_amount"`
	ServicesAmount   decimal.Decimal       `json:"services_amount"`
	Extras           accounting.ExtraTaxes `json:"extras"`
	DebitAccountID   *int64                `json:"debit_account_id" validate:"omitempty,gt=0"`
	CreditAccountID  *int64                `json:"credit_account_id" validate:"omitempty,gt=0"`
}

func (r allocateRequest) document() accounting.Document {
	return accounting.Document{
		Direction:        accounting.Direction(r.Direction),
		PaymentCondition: accounting.PaymentCondition(r.PaymentCondition),
		Total:            r.Total,
		VAT:              r.VAT,
		Extras:           r.Extras,
		GoodsAmount:      r.GoodsAmount,
		ServicesAmount:   r.ServicesAmount,
		DebitAccountID:   r.DebitAccountID,
		CreditAccountID:  r.CreditAccountID,
		IsActive:         true,
	}
}

type postingResponse struct {
	EntryID          int64                   `json:"entry_id"`
	Correlativo      int64                   `json:"correlativo"`
	BankMovementID   *int64                  `json:"bank_movement_id,omitempty"`
	AccountingMode   string                  `json:"accounting_mode"`
	PaymentCondition string                  `json:"payment_condition"`
	Lines            []accounting.LedgerLine `json:"lines"`
}

func newPostingResponse(res posting.Result) postingResponse {
	return postingResponse{
		EntryID:          res.EntryID,
		Correlativo:      res.Correlativo,
		BankMovementID:   res.BankMovementID,
		AccountingMode:   string(res.AccountingMode),
		PaymentCondition: string(res.PaymentCondition),
		Lines:            res.Lines,
	}
}

type periodResponse struct {
	CompanyID int64      `json:"company_id"`
	Year      int        `json:"year"`
	Month     int        `json:"month"`
	IsClosed  bool       `json:"is_closed"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
	ClosedBy  *int64     `json:"closed_by,omitempty"`
}

func newPeriodResponse(p periods.Period) periodResponse {
	return periodResponse{
		CompanyID: p.CompanyID,
		Year:      p.Year,
		Month:     p.Month,
		IsClosed:  p.IsClosed,
		ClosedAt:  p.ClosedAt,
		ClosedBy:  p.ClosedBy,
	}
}
