package accounting

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	ledgererr "github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
)

// Direction is the commercial side of a document.
type Direction string

const (
	DirectionSale     Direction = "SALE"
	DirectionPurchase Direction = "PURCHASE"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == DirectionSale || d == DirectionPurchase
}

// PaymentCondition states whether a document settles on issue or later.
type PaymentCondition string

const (
	ConditionCash   PaymentCondition = "CASH"
	ConditionCredit PaymentCondition = "CREDIT"
)

// AccountingMode is the company-level posting policy.
type AccountingMode string

const (
	ModeAccrual AccountingMode = "ACCRUAL"
	ModeCash    AccountingMode = "CASH"
)

// ParseAccountingMode normalises a stored mode, defaulting to accrual.
func ParseAccountingMode(raw string) AccountingMode {
	if strings.EqualFold(strings.TrimSpace(raw), string(ModeCash)) {
		return ModeCash
	}
	return ModeAccrual
}

// DefaultCondition is the payment condition assumed when a document leaves it unset.
func (m AccountingMode) DefaultCondition() PaymentCondition {
	if m == ModeCash {
		return ConditionCash
	}
	return ConditionCredit
}

// EntryType tags the business event that produced a ledger entry.
type EntryType string

const (
	EntrySale       EntryType = "SALE"
	EntryPurchase   EntryType = "PURCHASE"
	EntryCollection EntryType = "COLLECTION"
	EntryPayment    EntryType = "PAYMENT"
)

// Documentary reports whether entries of this type are posted from a document.
func (t EntryType) Documentary() bool {
	return t == EntrySale || t == EntryPurchase
}

// MovementKind distinguishes collections from payments.
type MovementKind string

const (
	KindCollection MovementKind = "COLLECTION"
	KindPayment    MovementKind = "PAYMENT"
)

// Valid reports whether k is a known movement kind.
func (k MovementKind) Valid() bool {
	return k == KindCollection || k == KindPayment
}

// BankDirection is the side of the bank account a movement hits.
type BankDirection string

const (
	BankDebit  BankDirection = "DEBIT"
	BankCredit BankDirection = "CREDIT"
)

// BankStatusPending is the reconciliation status of every new bank movement.
const BankStatusPending = "PENDING"

// TaxType names one of the itemized taxes carried by a document.
type TaxType string

const (
	TaxFuel           TaxType = "FUEL"
	TaxTourismLodging TaxType = "TOURISM_LODGING"
	TaxTourismTickets TaxType = "TOURISM_TICKETS"
	TaxFireBrigade    TaxType = "FIRE_BRIGADE"
	TaxMunicipal      TaxType = "MUNICIPAL"
	TaxAlcohol        TaxType = "ALCOHOL"
	TaxTobacco        TaxType = "TOBACCO"
	TaxCement         TaxType = "CEMENT"
	TaxBeverages      TaxType = "BEVERAGES"
	TaxStamp          TaxType = "STAMP"
	TaxOther          TaxType = "OTHER"
)

// TaxAmount is one itemized tax.
type TaxAmount struct {
	Type   TaxType
	Amount decimal.Decimal
}

// ExtraTaxes are the eleven itemized taxes beyond VAT.
type ExtraTaxes struct {
	Fuel           decimal.Decimal `json:"fuel"`
	TourismLodging decimal.Decimal `json:"tourism_lodging"`
	TourismTickets decimal.Decimal `json:"tourism_tickets"`
	FireBrigade    decimal.Decimal `json:"fire_brigade"`
	Municipal      decimal.Decimal `json:"municipal"`
	Alcohol        decimal.Decimal `json:"alcohol"`
	Tobacco        decimal.Decimal `json:"tobacco"`
	Cement         decimal.Decimal `json:"cement"`
	Beverages      decimal.Decimal `json:"beverages"`
	Stamp          decimal.Decimal `json:"stamp"`
	Other          decimal.Decimal `json:"other"`
}

// Items lists the taxes in declaration order.
func (e ExtraTaxes) Items() []TaxAmount {
	return []TaxAmount{
		{TaxFuel, e.Fuel},
		{TaxTourismLodging, e.TourismLodging},
		{TaxTourismTickets, e.TourismTickets},
		{TaxFireBrigade, e.FireBrigade},
		{TaxMunicipal, e.Municipal},
		{TaxAlcohol, e.Alcohol},
		{TaxTobacco, e.Tobacco},
		{TaxCement, e.Cement},
		{TaxBeverages, e.Beverages},
		{TaxStamp, e.Stamp},
		{TaxOther, e.Other},
	}
}

// Sum adds every itemized tax.
func (e ExtraTaxes) Sum() decimal.Decimal {
	total := decimal.Zero
	for _, item := range e.Items() {
		total = total.Add(item.Amount)
	}
	return total
}

// Amount returns the value of one tax type.
func (e ExtraTaxes) Amount(t TaxType) decimal.Decimal {
	for _, item := range e.Items() {
		if item.Type == t {
			return item.Amount
		}
	}
	return decimal.Zero
}

// Document is a commercial document as read and stamped by posting and rectification.
type Document struct {
	ID               int64
	CompanyID        int64
	Key              string
	ExternalID       string
	Direction        Direction
	PaymentCondition PaymentCondition
	IssuedOn         time.Time
	Total            decimal.Decimal
	VAT              decimal.Decimal
	Extras           ExtraTaxes
	GoodsAmount      decimal.Decimal
	ServicesAmount   decimal.Decimal
	DebitAccountID   *int64
	CreditAccountID  *int64
	BankAccountID    *int64
	CounterpartyID   *int64
	LedgerEntryID    *int64
	IsActive         bool
}

// Posted reports whether a ledger entry is linked.
func (d Document) Posted() bool {
	return d.LedgerEntryID != nil && *d.LedgerEntryID > 0
}

// ValidateAmounts rejects negative money fields before any line is built.
func (d Document) ValidateAmounts() error {
	fields := []struct {
		name   string
		amount decimal.Decimal
	}{
		{"total", d.Total},
		{"vat", d.VAT},
		{"goods_amount", d.GoodsAmount},
		{"services_amount", d.ServicesAmount},
	}
	for _, f := range fields {
		if f.amount.IsNegative() {
			return ledgererr.Validation("", f.name+" must not be negative").
				With("document_key", d.Key).
				With("field", f.name)
		}
	}
	for _, item := range d.Extras.Items() {
		if item.Amount.IsNegative() {
			return ledgererr.Validation("", "itemized tax must not be negative").
				With("document_key", d.Key).
				With("tax_type", string(item.Type))
		}
	}
	return nil
}

// EntryType maps the document direction to the entry tag.
func (d Document) EntryType() EntryType {
	if d.Direction == DirectionPurchase {
		return EntryPurchase
	}
	return EntrySale
}

// LedgerEntry is the header of a balanced set of lines.
type LedgerEntry struct {
	ID          int64        `json:"id"`
	CompanyID   int64        `json:"company_id"`
	Correlativo int64        `json:"correlativo"`
	EntryType   EntryType    `json:"entry_type"`
	EntryDate   time.Time    `json:"entry_date"`
	SourceRef   string       `json:"source_ref"`
	Memo        string       `json:"memo,omitempty"`
	IsActive    bool         `json:"is_active"`
	CreatedBy   int64        `json:"created_by"`
	CreatedAt   time.Time    `json:"created_at"`
	Lines       []LedgerLine `json:"lines,omitempty"`
}

// LedgerLine is one debit or credit against an account.
type LedgerLine struct {
	ID        int64           `json:"id"`
	EntryID   int64           `json:"entry_id"`
	AccountID int64           `json:"account_id"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	SourceRef string          `json:"source_ref"`
}

// BankMovement is a pending bank-side record created by posting or treasury.
type BankMovement struct {
	ID            int64
	CompanyID     int64
	BankAccountID int64
	LedgerEntryID *int64
	DocumentID    *int64
	SourceRef     string
	Direction     BankDirection
	Amount        decimal.Decimal
	MovementDate  time.Time
	Status        string
	IsActive      bool
}

// TreasuryMovement is a collection or payment header.
type TreasuryMovement struct {
	ID             int64
	CompanyID      int64
	Kind           MovementKind
	BankAccountID  int64
	CounterpartyID *int64
	MovementDate   time.Time
	Amount         decimal.Decimal
	Reference      string
	LedgerEntryID  *int64
	CreatedBy      int64
}

// Application records how much of a document a movement offsets.
type Application struct {
	ID         int64
	MovementID int64
	DocumentID int64
	Amount     decimal.Decimal
}

// DocumentPatch carries the document fields rectification may change.
type DocumentPatch struct {
	IssuedOn        *time.Time
	IsActive        *bool
	DebitAccountID  *int64
	CreditAccountID *int64
}

// Empty reports whether the patch changes nothing.
func (p DocumentPatch) Empty() bool {
	return p.IssuedOn == nil && p.IsActive == nil && p.DebitAccountID == nil && p.CreditAccountID == nil
}

// ArtifactPatch carries the entry and bank-movement fields rectification may change.
type ArtifactPatch struct {
	Date     *time.Time
	IsActive *bool
}

// Empty reports whether the patch changes nothing.
func (p ArtifactPatch) Empty() bool {
	return p.Date == nil && p.IsActive == nil
}

// LineSide selects debit-bearing or credit-bearing lines.
type LineSide string

const (
	SideDebit  LineSide = "DEBIT"
	SideCredit LineSide = "CREDIT"
)

// Round brings an amount to minor units, half away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Totals sums the debit and credit columns.
func Totals(lines []LedgerLine) (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, l := range lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	return debit, credit
}

// ValidateLines ensures a new entry has at least two well-formed, balanced lines.
func ValidateLines(lines []LedgerLine) error {
	if len(lines) < 2 {
		return ledgererr.Validation(ledgererr.CodeUnbalanced, "entry requires at least two lines")
	}
	for idx, line := range lines {
		if line.AccountID == 0 {
			return ledgererr.Validation(ledgererr.CodeUnbalanced, fmt.Sprintf("line %d missing account", idx))
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return ledgererr.Validation(ledgererr.CodeUnbalanced, fmt.Sprintf("line %d negative amount", idx))
		}
		if line.Debit.IsZero() == line.Credit.IsZero() {
			return ledgererr.Validation(ledgererr.CodeUnbalanced, fmt.Sprintf("line %d must carry exactly one side", idx))
		}
	}
	debit, credit := Totals(lines)
	if !Round(debit).Equal(Round(credit)) {
		return ledgererr.Validation(ledgererr.CodeUnbalanced, "entry lines must balance").
			With("debit", debit.StringFixed(2)).
			With("credit", credit.StringFixed(2))
	}
	return nil
}

// Int64Ptr is a convenience for optional id fields.
func Int64Ptr(v int64) *int64 {
	return &v
}
