package httpx

import (
	"net/http"

	ledgererr "github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
)

// ErrorBody is the JSON shape of every failed response.
type ErrorBody struct {
	Kind    ledgererr.Kind `json:"kind"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind ledgererr.Kind) int {
	switch kind {
	case ledgererr.KindValidation:
		return http.StatusUnprocessableEntity
	case ledgererr.KindUnauthorized:
		return http.StatusUnauthorized
	case ledgererr.KindForbidden:
		return http.StatusForbidden
	case ledgererr.KindNotFound:
		return http.StatusNotFound
	case ledgererr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// RespondError renders err as an ErrorBody. Unclassified errors become INTERNAL
// and their text is not exposed.
func RespondError(w http.ResponseWriter, err error) int {
	e, ok := ledgererr.As(err)
	if !ok {
		e = ledgererr.Internal(err)
	}
	body := ErrorBody{Kind: e.Kind, Code: e.Code, Message: e.Message, Context: e.Context}
	if e.Kind == ledgererr.KindInternal {
		body = ErrorBody{Kind: ledgererr.KindInternal, Code: ledgererr.CodeInternal, Message: "internal error"}
	}
	status := StatusFor(e.Kind)
	JSON(w, status, body)
	return status
}

// BadRequest renders a malformed-request failure with status 400.
func BadRequest(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusBadRequest, ErrorBody{Kind: ledgererr.KindValidation, Code: ledgererr.CodeValidation, Message: msg})
}
