// Package shared holds the error vocabulary used across the ledger packages.
package shared

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind classifies a failure for propagation and transport mapping.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindInternal     Kind = "internal"
)

// Stable failure codes.
const (
	CodeValidation                  = "VALIDATION_FAILED"
	CodeUnauthorized                = "UNAUTHORIZED"
	CodeForbidden                   = "FORBIDDEN"
	CodeNotFound                    = "NOT_FOUND"
	CodeInternal                    = "INTERNAL"
	CodePeriodClosed                = "PERIOD_CLOSED"
	CodeDocumentAlreadyPosted       = "DOCUMENTO_ALREADY_POSTED"
	CodeDocumentNotFound            = "DOCUMENT_NOT_FOUND"
	CodeDocumentsNotFound           = "DOCUMENTS_NOT_FOUND"
	CodeNomenclaturaRequired        = "NOMENCLATURA_REQUIRED"
	CodeReceivablesAccountNotFound  = "RECEIVABLES_ACCOUNT_NOT_FOUND"
	CodePayablesAccountNotFound     = "PAYABLES_ACCOUNT_NOT_FOUND"
	CodeVATSalesAccountNotFound     = "VAT_SALES_ACCOUNT_NOT_FOUND"
	CodeVATPurchasesAccountNotFound = "VAT_PURCHASES_ACCOUNT_NOT_FOUND"
	CodeRevenueAccountNotFound      = "REVENUE_ACCOUNT_NOT_FOUND"
	CodeExpenseAccountNotFound      = "EXPENSE_ACCOUNT_NOT_FOUND"
	CodeAccountNotFound             = "ACCOUNT_NOT_FOUND"
	CodeBankAccountRequired         = "BANK_ACCOUNT_REQUIRED"
	CodeAppliedAmountExceeds        = "APPLIED_AMOUNT_EXCEEDS"
	CodeInvalidAppliedDocument      = "INVALID_APPLIED_DOCUMENT"
	CodeDuplicateApplication        = "DUPLICATE_APPLICATION"
	CodeDuplicateKeys               = "DUPLICATE_KEYS"
	CodeUnbalanced                  = "UNBALANCED_ENTRY"
	CodeDuplicateRequest            = "DUPLICATE_REQUEST"
	CodeReferenceInUse              = "REFERENCE_IN_USE"
)

// Error is the single failure shape returned by the ledger services.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Context map[string]any
	cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString(e.Code)
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%v", k, e.Context[k])
		}
		b.WriteString(")")
	}
	return b.String()
}

// Unwrap exposes the underlying cause for internal failures.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches another *Error by code so errors.Is works against sentinel-like values.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// With returns a copy carrying an additional context key.
func (e *Error) With(key string, value any) *Error {
	cp := *e
	cp.Context = make(map[string]any, len(e.Context)+1)
	for k, v := range e.Context {
		cp.Context[k] = v
	}
	cp.Context[key] = value
	return &cp
}

func newError(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

// Validation builds a pre-transaction input failure.
func Validation(code, msg string) *Error {
	if code == "" {
		code = CodeValidation
	}
	return newError(KindValidation, code, msg)
}

// Unauthorized builds a missing-identity failure.
func Unauthorized(msg string) *Error {
	return newError(KindUnauthorized, CodeUnauthorized, msg)
}

// Forbidden builds a missing-membership or missing-permission failure.
func Forbidden(msg string) *Error {
	return newError(KindForbidden, CodeForbidden, msg)
}

// NotFound builds a missing-resource failure.
func NotFound(code, msg string) *Error {
	if code == "" {
		code = CodeNotFound
	}
	return newError(KindNotFound, code, msg)
}

// Conflict builds a state-conflict failure.
func Conflict(code, msg string) *Error {
	return newError(KindConflict, code, msg)
}

// Internal wraps an unexpected failure.
func Internal(err error) *Error {
	e := newError(KindInternal, CodeInternal, "internal error")
	e.cause = err
	return e
}

// As extracts an *Error from err.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CodeOf returns the stable code for err, or CodeInternal when err is not an *Error.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	if e, ok := As(err); ok {
		return e.Code
	}
	return CodeInternal
}

// KindOf returns the kind for err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

// Sentinels for errors.Is comparisons.
var (
	ErrPeriodClosed          = Conflict(CodePeriodClosed, "accounting period is closed")
	ErrDocumentAlreadyPosted = Conflict(CodeDocumentAlreadyPosted, "document already posted or inactive")
	ErrNomenclaturaRequired  = NotFound(CodeNomenclaturaRequired, "company has no active chart of accounts")
	ErrAppliedAmountExceeds  = Conflict(CodeAppliedAmountExceeds, "applied amount exceeds movement amount")
	ErrInvalidAppliedDoc     = Conflict(CodeInvalidAppliedDocument, "applied document is not eligible")
	ErrDocumentsNotFound     = NotFound(CodeDocumentsNotFound, "documents not found")
	ErrBankAccountRequired   = NotFound(CodeBankAccountRequired, "bank account with mapped ledger account required")
	ErrReferenceInUse        = Conflict(CodeReferenceInUse, "reference matches a document key")
)
